package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/generator"
)

func main() {
	app := &cli.App{
		Name:  "rhi-bindgen",
		Usage: "Translate renderer declarations into a flat, prefixed C interface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Table file replacing the built-in tables",
			},
			&cli.StringFlag{
				Name:  "input",
				Value: ".",
				Usage: "Directory holding the declaration inputs",
			},
			&cli.StringFlag{
				Name:  "output",
				Value: "rhi",
				Usage: "Directory of the generated interface",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Override the identifier prefix",
			},
			&cli.BoolFlag{
				Name:  "strict-symbols",
				Usage: "Fail loader init when any symbol is missing",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every artifact",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Write the generated interface to the output directory",
				Action: runGenerate,
			},
			{
				Name:   "check",
				Usage:  "Report differences between the output directory and a fresh generation",
				Action: runCheck,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if c.Bool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if prefix := c.String("prefix"); prefix != "" {
		cfg.Prefix = prefix
	}
	if c.IsSet("strict-symbols") {
		cfg.Loader.Strict = c.Bool("strict-symbols")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func generate(c *cli.Context, log *logrus.Logger) (map[string]string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	in, err := generator.LoadInput(cfg, c.String("input"))
	if err != nil {
		return nil, fmt.Errorf("loading input: %w", err)
	}

	return generator.New(cfg, in, generator.WithLogger(log)).Generate()
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func runGenerate(c *cli.Context) error {
	log := newLogger(c)

	files, err := generate(c, log)
	if err != nil {
		return err
	}

	outputDir := c.String("output")
	for _, name := range sortedPaths(files) {
		path := filepath.Join(outputDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(files[name]), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.WithField("path", path).Info("generated")
	}

	return nil
}

func runCheck(c *cli.Context) error {
	log := newLogger(c)

	files, err := generate(c, log)
	if err != nil {
		return err
	}

	dmp := diffmatchpatch.New()
	outputDir := c.String("output")
	stale := 0

	for _, name := range sortedPaths(files) {
		path := filepath.Join(outputDir, filepath.FromSlash(name))

		current, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.WithField("path", path).Warn("missing")
			stale++
			continue
		case err != nil:
			return fmt.Errorf("reading %s: %w", name, err)
		}

		if string(current) == files[name] {
			log.WithField("path", path).Debug("up to date")
			continue
		}

		diffs := dmp.DiffMain(string(current), files[name], false)
		patches := dmp.PatchMake(string(current), diffs)
		fmt.Printf("--- %s\n+++ %s (generated)\n%s", path, path, dmp.PatchToText(patches))

		log.WithField("path", path).Warn("out of date")
		stale++
	}

	if stale > 0 {
		return cli.Exit(fmt.Sprintf("%d generated files are out of date", stale), 1)
	}

	log.Info("generated interface is up to date")
	return nil
}
