package generator

import (
	"fmt"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/config"
)

// slot is one entry of the loader's function table.
type slot struct {
	name  string
	guard string
	sig   signature
}

func (g *Generator) slots(funcs []*function) ([]slot, error) {
	var out []slot
	for _, fn := range funcs {
		sig, err := g.signature(fn)
		if err != nil {
			return nil, err
		}
		out = append(out, slot{name: fn.target, guard: fn.guard, sig: sig})
	}
	for _, acc := range g.accessors() {
		out = append(out, slot{name: acc.name, sig: acc.signature(g.cfg.Prefix)})
	}
	return out, nil
}

func (g *Generator) pfn(name string) string {
	return g.cfg.Prefix + "_PFN_" + name
}

func (g *Generator) buildLoaderHeader(funcs []*function) (*cdoc.File, error) {
	slots, err := g.slots(funcs)
	if err != nil {
		return nil, err
	}
	p := g.cfg.Prefix

	includes := []string{quoted("export.h"), quoted("enums.h"), quoted("imageformat.h"), quoted("structs.h")}
	for _, area := range g.areas() {
		if area != config.AreaCore {
			includes = append(includes, quoted(enumsFile(area)), quoted(structsFile(area)))
		}
	}

	var typedefs, fields []cdoc.Node
	for _, s := range slots {
		typedefs = append(typedefs, cdoc.Guarded(s.guard, cdoc.Line(s.sig.pointer(g.pfn(s.name)))))
		fields = append(fields, cdoc.Guarded(s.guard, cdoc.Linef("%s %s;", g.pfn(s.name), s.name)))
	}

	api := p + "_Api"
	loader := p + "_Loader"

	body := []cdoc.Node{
		cdoc.Group(typedefs),
		cdoc.Blank{},
		cdoc.Line("typedef struct " + api),
		&cdoc.Block{Open: "{", Body: fields, Close: "} " + api + ";"},
		cdoc.Blank{},
		cdoc.Line("// Zero initialise before the first call to init."),
		cdoc.Line("typedef struct " + loader),
		&cdoc.Block{
			Open: "{",
			Body: []cdoc.Node{
				cdoc.Line("void *library;"),
				cdoc.Line("int initialized;"),
				cdoc.Linef("%s_Result result;", p),
				cdoc.Linef("%s api;", api),
			},
			Close: "} " + loader + ";",
		},
		cdoc.Blank{},
		cdoc.Linef("%[1]s_API %[1]s_Result %[1]s_init(%[1]s_Loader *loader, %[1]s_RendererApi renderer);", p),
		cdoc.Linef("%[1]s_API void %[1]s_exit(%[1]s_Loader *loader);", p),
		cdoc.Blank{},
	}

	return g.header("loader.h", includes, externC(body...)), nil
}

// loaderPrologue opens init: a null loader fails and a loader already
// initialised replays its cached result.
func (g *Generator) loaderPrologue() []cdoc.Node {
	p := g.cfg.Prefix
	return []cdoc.Node{
		cdoc.Line("if (!loader)"),
		&cdoc.Block{Open: "{", Body: []cdoc.Node{cdoc.Linef("return %s_RESULT_ERROR;", p)}, Close: "}"},
		cdoc.Line("if (loader->initialized)"),
		&cdoc.Block{Open: "{", Body: []cdoc.Node{cdoc.Line("return loader->result;")}, Close: "}"},
		cdoc.Blank{},
		cdoc.Line("loader->initialized = 1;"),
	}
}

func (g *Generator) initOpen() string {
	return fmt.Sprintf("%[1]s_API %[1]s_Result %[1]s_init(%[1]s_Loader *loader, %[1]s_RendererApi renderer)", g.cfg.Prefix)
}

func (g *Generator) exitOpen() string {
	return fmt.Sprintf("%[1]s_API void %[1]s_exit(%[1]s_Loader *loader)", g.cfg.Prefix)
}

// staticLoader fills the table with the functions linked into this unit.
func (g *Generator) staticLoader(funcs []*function) ([]cdoc.Node, error) {
	slots, err := g.slots(funcs)
	if err != nil {
		return nil, err
	}
	p := g.cfg.Prefix

	initBody := []cdoc.Node{cdoc.Line("(void)renderer;")}
	initBody = append(initBody, g.loaderPrologue()...)
	initBody = append(initBody, cdoc.Line("loader->library = NULL;"))
	for _, s := range slots {
		line := cdoc.Linef("loader->api.%s = %s_%s;", s.name, p, s.name)
		initBody = append(initBody, cdoc.Guarded(s.guard, line))
	}
	initBody = append(initBody,
		cdoc.Linef("loader->result = %s_RESULT_SUCCESS;", p),
		cdoc.Line("return loader->result;"),
	)

	return []cdoc.Node{
		cdoc.Line(g.initOpen()),
		&cdoc.Block{Open: "{", Body: initBody, Close: "}"},
		cdoc.Blank{},
		cdoc.Line(g.exitOpen()),
		&cdoc.Block{Open: "{", Body: g.exitBody(false), Close: "}"},
		cdoc.Blank{},
	}, nil
}

// exitBody resets the loader so init may run again. It is a no-op for a
// loader that was never initialised or already exited.
func (g *Generator) exitBody(dynamic bool) []cdoc.Node {
	p := g.cfg.Prefix

	body := []cdoc.Node{
		cdoc.Line("if (!loader || !loader->initialized)"),
		&cdoc.Block{Open: "{", Body: []cdoc.Node{cdoc.Line("return;")}, Close: "}"},
		cdoc.Blank{},
	}
	if dynamic {
		body = append(body,
			cdoc.Line("if (loader->library)"),
			&cdoc.Block{Open: "{", Body: []cdoc.Node{cdoc.Linef("%s_LIBRARY_CLOSE(loader->library);", p)}, Close: "}"},
		)
	}
	body = append(body,
		cdoc.Line("loader->library = NULL;"),
		cdoc.Line("memset(&loader->api, 0, sizeof(loader->api));"),
		cdoc.Line("loader->initialized = 0;"),
		cdoc.Linef("loader->result = %s_RESULT_SUCCESS;", p),
	)
	return body
}

// =============================================================================

var platformExt = map[string]string{
	config.PlatformWindows: "dll",
	config.PlatformApple:   "dylib",
	config.PlatformOther:   "so",
}

var platformCond = []struct {
	platform string
	cond     string
}{
	{config.PlatformWindows, "defined(_WIN32)"},
	{config.PlatformApple, "defined(__APPLE__)"},
	{config.PlatformOther, ""},
}

// libraryFile names the backend library for a platform family.
func (g *Generator) libraryFile(b config.Backend, platform string) string {
	return fmt.Sprintf("%s_%s.%s", g.cfg.Prefix, b.Library, platformExt[platform])
}

func (g *Generator) libraryNameFunc() cdoc.Node {
	p := g.cfg.Prefix

	var branches []cdoc.Branch
	for _, pc := range platformCond {
		var cases []cdoc.Node
		for _, b := range g.cfg.Backends {
			for _, bp := range b.Platforms {
				if bp != pc.platform {
					continue
				}
				cases = append(cases,
					cdoc.Linef("case %s_%s:", p, b.Enumerator),
					cdoc.Linef("    return %q;", g.libraryFile(b, pc.platform)),
				)
			}
		}
		branches = append(branches, cdoc.Branch{Cond: pc.cond, Body: cases})
	}

	sw := &cdoc.Block{
		Open: "{",
		Body: []cdoc.Node{
			&cdoc.Chain{Branches: branches},
			cdoc.Line("default:"),
			cdoc.Line("    return NULL;"),
		},
		Close: "}",
	}

	return cdoc.Group{
		cdoc.Linef("static const char *%[1]s_libraryName(%[1]s_RendererApi renderer)", p),
		&cdoc.Block{
			Open:  "{",
			Body:  []cdoc.Node{cdoc.Line("switch (renderer)"), sw},
			Close: "}",
		},
		cdoc.Blank{},
	}
}

func (g *Generator) libraryMacros() cdoc.Node {
	p := g.cfg.Prefix
	return &cdoc.Guard{
		Cond: "defined(_WIN32)",
		Body: []cdoc.Node{
			cdoc.Directive("#define WIN32_LEAN_AND_MEAN"),
			cdoc.Directive("#include <windows.h>"),
			cdoc.Directivef("#define %s_LIBRARY_OPEN(path) ((void *)LoadLibraryA(path))", p),
			cdoc.Directivef("#define %s_LIBRARY_CLOSE(lib) FreeLibrary((HMODULE)(lib))", p),
			cdoc.Directivef("#define %s_LIBRARY_FIND(lib, symbol) ((void *)GetProcAddress((HMODULE)(lib), symbol))", p),
		},
		Else: []cdoc.Node{
			cdoc.Directive("#include <dlfcn.h>"),
			cdoc.Directivef("#define %s_LIBRARY_OPEN(path) dlopen(path, RTLD_NOW)", p),
			cdoc.Directivef("#define %s_LIBRARY_CLOSE(lib) dlclose(lib)", p),
			cdoc.Directivef("#define %s_LIBRARY_FIND(lib, symbol) dlsym(lib, symbol)", p),
		},
	}
}

// dynamicSection is the implementation used when the declarations are
// skipped: init opens the backend library and resolves every slot by its
// exported symbol name.
func (g *Generator) dynamicSection(funcs []*function) ([]cdoc.Node, error) {
	slots, err := g.slots(funcs)
	if err != nil {
		return nil, err
	}
	p := g.cfg.Prefix
	strict := g.cfg.Loader.Strict

	initBody := []cdoc.Node{cdoc.Line("const char *name;")}
	if strict {
		initBody = append(initBody, cdoc.Line("int missing = 0;"))
	}
	initBody = append(initBody, cdoc.Blank{})
	initBody = append(initBody, g.loaderPrologue()...)
	initBody = append(initBody,
		cdoc.Linef("loader->result = %s_RESULT_ERROR;", p),
		cdoc.Line("memset(&loader->api, 0, sizeof(loader->api));"),
		cdoc.Blank{},
		cdoc.Linef("name = %s_libraryName(renderer);", p),
		cdoc.Line("if (!name)"),
		&cdoc.Block{Open: "{", Body: []cdoc.Node{cdoc.Line("return loader->result;")}, Close: "}"},
		cdoc.Blank{},
		cdoc.Linef("loader->library = %s_LIBRARY_OPEN(name);", p),
		cdoc.Line("if (!loader->library)"),
		&cdoc.Block{Open: "{", Body: []cdoc.Node{cdoc.Line("return loader->result;")}, Close: "}"},
		cdoc.Blank{},
	)

	for _, s := range slots {
		resolve := []cdoc.Node{
			cdoc.Linef("loader->api.%s = (%s)%s_LIBRARY_FIND(loader->library, \"%s_%s\");", s.name, g.pfn(s.name), p, p, s.name),
		}
		if strict {
			resolve = append(resolve, cdoc.Linef("missing += loader->api.%s == NULL;", s.name))
		}
		initBody = append(initBody, cdoc.Guarded(s.guard, resolve...))
	}

	if strict {
		initBody = append(initBody,
			cdoc.Blank{},
			cdoc.Line("if (missing)"),
			&cdoc.Block{
				Open: "{",
				Body: []cdoc.Node{
					cdoc.Linef("%s_LIBRARY_CLOSE(loader->library);", p),
					cdoc.Line("loader->library = NULL;"),
					cdoc.Line("memset(&loader->api, 0, sizeof(loader->api));"),
					cdoc.Line("return loader->result;"),
				},
				Close: "}",
			},
		)
	}

	initBody = append(initBody,
		cdoc.Blank{},
		cdoc.Linef("loader->result = %s_RESULT_SUCCESS;", p),
		cdoc.Line("return loader->result;"),
	)

	return []cdoc.Node{
		cdoc.Blank{},
		cdoc.Directive("#include <string.h>"),
		cdoc.Blank{},
		g.libraryMacros(),
		cdoc.Blank{},
		g.libraryNameFunc(),
		cdoc.Line(g.initOpen()),
		&cdoc.Block{Open: "{", Body: initBody, Close: "}"},
		cdoc.Blank{},
		cdoc.Line(g.exitOpen()),
		&cdoc.Block{Open: "{", Body: g.exitBody(true), Close: "}"},
		cdoc.Blank{},
	}, nil
}
