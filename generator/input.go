package generator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

// LoadInput reads every input named by the tables from dir. Inputs ending
// in ".h" are read as plain C headers, anything else as a JSON declaration
// list. Only the core area and the image format input are required.
func LoadInput(cfg *config.Config, dir string) (Input, error) {
	type loaded struct {
		area string
		mod  *parser.Module
	}

	results := make([]loaded, len(cfg.Areas))

	var eg errgroup.Group
	for i, a := range cfg.Areas {
		eg.Go(func() error {
			mod, err := loadModule(filepath.Join(dir, a.Input))
			switch {
			case errors.Is(err, fs.ErrNotExist) && a.Name != config.AreaCore:
				return nil
			case err != nil:
				return fmt.Errorf("area %s: %w", a.Name, err)
			}
			results[i] = loaded{area: a.Name, mod: mod}
			return nil
		})
	}

	var imageFormat *parser.Module
	eg.Go(func() error {
		mod, err := loadModule(filepath.Join(dir, cfg.ImageFormat.Input))
		if err != nil {
			return fmt.Errorf("image format: %w", err)
		}
		imageFormat = mod
		return nil
	})

	if err := eg.Wait(); err != nil {
		return Input{}, err
	}

	in := Input{Areas: make(map[string]*parser.Module), ImageFormat: imageFormat}
	for _, r := range results {
		if r.mod != nil {
			in.Areas[r.area] = r.mod
		}
	}

	return in, nil
}

func loadModule(path string) (*parser.Module, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".h") {
		return parser.ParseHeaderFile(path)
	}
	return parser.DecodeFile(path)
}
