package generator

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

// Input is the complete declaration set, one module per area plus the
// image format enumeration.
type Input struct {
	Areas       map[string]*parser.Module
	ImageFormat *parser.Module
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for progress and warnings.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Generator) {
		g.log = log
	}
}

type Generator struct {
	cfg *config.Config
	in  Input
	log logrus.FieldLogger

	resolver    *Resolver
	structs     map[string]*parser.StructDecl
	owners      map[string]string
	enumerators map[string]string
	sequential  bool
}

// WithSequential renders artifacts one after the other.
func WithSequential() Option {
	return func(g *Generator) {
		g.sequential = true
	}
}

func New(cfg *config.Config, in Input, opts ...Option) *Generator {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	g := &Generator{
		cfg:         cfg,
		in:          in,
		log:         quiet,
		structs:     make(map[string]*parser.StructDecl),
		owners:      make(map[string]string),
		enumerators: make(map[string]string),
	}
	for _, opt := range opts {
		opt(g)
	}

	names := make(map[string]bool)
	for _, area := range g.areas() {
		mod := in.Areas[area]
		for _, s := range mod.Structs() {
			if _, dup := g.structs[s.Name]; !dup {
				g.structs[s.Name] = s
				g.owners[ownerKey(s)] = area
			}
			names[s.Name] = true
		}
		for _, e := range mod.Enums() {
			if _, dup := g.owners[ownerKey(e)]; !dup && !e.IsConstGroup() {
				g.owners[ownerKey(e)] = area
			}
			for _, it := range e.Items {
				g.enumerators[it.Name] = cfg.Prefix + "_" + it.Name
			}
		}
	}
	if in.ImageFormat != nil {
		for _, e := range in.ImageFormat.Enums() {
			for _, it := range e.Items {
				g.enumerators[it.Name] = g.imageFormatItem(it.Name)
			}
		}
	}

	g.resolver = NewResolver(cfg, names)

	return g
}

func ownerKey(d parser.Decl) string {
	return fmt.Sprintf("%T %s", d, d.DeclName())
}

// owns reports whether area is the first to declare d. Declarations
// repeated by a later area are emitted once.
func (g *Generator) owns(area string, d parser.Decl) bool {
	owner, ok := g.owners[ownerKey(d)]
	return !ok || owner == area
}

// artifact renders one output file.
type artifact struct {
	path  string
	build func() (*cdoc.File, error)
}

// Generate translates the whole input. It returns the rendered artifacts
// keyed by path relative to the output directory. No artifact is returned
// when any of them fails.
func (g *Generator) Generate() (map[string]string, error) {
	if _, ok := g.in.Areas[config.AreaCore]; !ok {
		return nil, fmt.Errorf("input has no %s area", config.AreaCore)
	}

	funcs, err := g.plan()
	if err != nil {
		return nil, fmt.Errorf("planning functions: %w", err)
	}
	g.warnUnusedAdapters(funcs)

	arts := g.artifacts(funcs)
	out := make([]string, len(arts))

	var eg errgroup.Group
	if g.sequential {
		eg.SetLimit(1)
	}
	for i, a := range arts {
		eg.Go(func() error {
			f, err := a.build()
			if err != nil {
				return fmt.Errorf("generating %s: %w", a.path, err)
			}
			out[i] = f.Render()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	files := make(map[string]string, len(arts))
	var total uint64
	for i, a := range arts {
		files[a.path] = out[i]
		total += uint64(len(out[i]))
		g.log.WithFields(logrus.Fields{
			"artifact": a.path,
			"size":     humanize.Bytes(uint64(len(out[i]))),
		}).Debug("rendered artifact")
	}

	g.log.WithFields(logrus.Fields{
		"artifacts": len(files),
		"functions": len(funcs),
		"size":      humanize.Bytes(total),
	}).Info("generation complete")

	return files, nil
}

func (g *Generator) artifacts(funcs []*function) []artifact {
	arts := []artifact{
		{"export.h", g.buildExport},
		{"imageformat.h", g.buildImageFormat},
		{"platform.h", g.buildPlatform},
		{"loader.h", func() (*cdoc.File, error) { return g.buildLoaderHeader(funcs) }},
	}

	for _, area := range g.areas() {
		arts = append(arts,
			artifact{enumsFile(area), func() (*cdoc.File, error) { return g.buildEnums(area) }},
			artifact{structsFile(area), func() (*cdoc.File, error) { return g.buildStructs(area) }},
			artifact{g.funcsFile(area), func() (*cdoc.File, error) { return g.buildFuncs(area, funcs) }},
		)
	}

	arts = append(arts, artifact{g.implFile(), func() (*cdoc.File, error) { return g.buildImpl(funcs) }})

	return arts
}

// areas returns the areas present in the input, in emission order.
func (g *Generator) areas() []string {
	var out []string
	for _, a := range config.Areas {
		if _, ok := g.in.Areas[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (g *Generator) resolve(where, raw string) (Resolved, error) {
	res, err := g.resolver.Resolve(raw)
	if err != nil {
		return Resolved{}, &UnrecognizedTypeError{Where: where, Type: raw, Err: err}
	}
	return res, nil
}

func (g *Generator) internal(where, raw string) (string, error) {
	s, err := g.resolver.Internal(raw)
	if err != nil {
		return "", &UnrecognizedTypeError{Where: where, Type: raw, Err: err}
	}
	return s, nil
}

func (g *Generator) prefixed(name string) string {
	return g.cfg.Prefix + "_" + name
}

func (g *Generator) imageFormatItem(name string) string {
	suffix := strings.TrimPrefix(name, g.cfg.ImageFormat.ItemPrefix)
	return g.cfg.Prefix + "_" + g.cfg.ImageFormat.ItemTarget + suffix
}

func (g *Generator) warnUnusedAdapters(funcs []*function) {
	used := make(map[string]bool)
	for _, fn := range funcs {
		if fn.adapter != "" {
			used[fn.decl.Name] = true
		}
	}

	var unused []string
	for _, a := range g.cfg.Adapters {
		if !used[a.Function] {
			unused = append(unused, a.Function)
		}
	}
	sort.Strings(unused)

	for _, name := range unused {
		g.log.WithField("function", name).Warn("adapter registered for a function not in the input")
	}
}
