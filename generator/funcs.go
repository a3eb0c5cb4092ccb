package generator

import (
	"fmt"
	"strings"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/config"
)

// signature is a function prototype in the namespaced interface.
type signature struct {
	ret    Resolved
	params []string
}

func (s signature) paramList() string {
	if len(s.params) == 0 {
		return "void"
	}
	return strings.Join(s.params, ", ")
}

// declare spells the prototype for name, without the trailing semicolon.
func (s signature) declare(name string) string {
	return declarator(s.ret.Text, fmt.Sprintf("%s(%s)", name, s.paramList()))
}

// pointer spells a function pointer typedef named name.
func (s signature) pointer(name string) string {
	return "typedef " + declarator(s.ret.Text, fmt.Sprintf("(*%s)(%s);", name, s.paramList()))
}

// declarator joins a type and a declarator, binding pointers to the name.
func declarator(typ, name string) string {
	if strings.HasSuffix(typ, "*") {
		return typ + name
	}
	return typ + " " + name
}

func (g *Generator) signature(fn *function) (signature, error) {
	ret, err := g.resolve(fn.decl.Name+" return", fn.decl.ReturnType)
	if err != nil {
		return signature{}, err
	}
	if ret.Elided || ret.Ref.IsArray {
		return signature{}, &UnrecognizedTypeError{
			Where: fn.decl.Name + " return",
			Type:  fn.decl.ReturnType,
			Err:   fmt.Errorf("%w: not a valid return type", ErrUnrecognizedType),
		}
	}

	sig := signature{ret: ret}
	for _, p := range fn.params {
		res, err := g.resolve(fmt.Sprintf("%s(%s)", fn.decl.Name, p.Name), p.Type)
		if err != nil {
			return signature{}, err
		}
		sig.params = append(sig.params, declarator(res.Text, p.Name)+res.Array)
	}

	return sig, nil
}

func (g *Generator) funcsIncludes(area string) []string {
	inc := []string{quoted("export.h"), quoted("enums.h"), quoted("imageformat.h"), quoted("structs.h")}
	if area != config.AreaCore {
		inc = append(inc, quoted(enumsFile(area)), quoted(structsFile(area)))
	}
	return inc
}

func (g *Generator) buildFuncs(area string, funcs []*function) (*cdoc.File, error) {
	var decls []cdoc.Node

	for _, fn := range funcs {
		if fn.area != area {
			continue
		}
		sig, err := g.signature(fn)
		if err != nil {
			return nil, err
		}
		line := cdoc.Line(g.cfg.Prefix + "_API " + sig.declare(fn.symbol(g.cfg.Prefix)) + ";")
		decls = append(decls, cdoc.Guarded(fn.guard, line))
	}

	if area == config.AreaCore {
		decls = append(decls, cdoc.Blank{}, cdoc.Line("// accessors"))
		for _, acc := range g.accessors() {
			decls = append(decls, cdoc.Line(g.cfg.Prefix+"_API "+acc.declare(g.cfg.Prefix)+";"))
		}
	}

	skip := g.skipDeclarations()
	body := []cdoc.Node{
		&cdoc.Guard{Cond: skip, Body: append([]cdoc.Node{cdoc.Blank{}}, append(decls, cdoc.Blank{})...)},
		cdoc.Blank{},
	}

	nodes := []cdoc.Node{externC(body...)}

	// The core header pulls in the other areas and the loader, so one
	// include exposes the whole interface.
	if area == config.AreaCore {
		for _, other := range g.areas() {
			if other != config.AreaCore {
				nodes = append(nodes, cdoc.Directive("#include "+quoted(g.funcsFile(other))))
			}
		}
		nodes = append(nodes, cdoc.Directive("#include "+quoted("loader.h")), cdoc.Blank{})
	}

	return g.header(g.funcsFile(area), g.funcsIncludes(area), nodes...), nil
}

func (g *Generator) skipDeclarations() string {
	return fmt.Sprintf("!defined(%s_SKIP_DECLARATIONS)", g.cfg.Prefix)
}
