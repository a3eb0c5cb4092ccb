package generator

import (
	"fmt"
	"strings"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

// arguments casts each parameter back to the internal type. Entries in
// replace substitute the expression passed at that position.
func (g *Generator) arguments(fn *function, replace map[int]string) (string, error) {
	args := make([]string, len(fn.params))

	for i, p := range fn.params {
		if expr, ok := replace[i]; ok {
			args[i] = expr
			continue
		}

		where := fmt.Sprintf("%s(%s)", fn.decl.Name, p.Name)
		res, err := g.resolve(where, p.Type)
		if err != nil {
			return "", err
		}
		internal, err := g.internal(where, p.Type)
		if err != nil {
			return "", err
		}

		// A struct passed by value cannot be cast, only reinterpreted.
		if g.resolver.IsStructValue(res.Ref) {
			args[i] = fmt.Sprintf("*(%s *)&%s", internal, p.Name)
			continue
		}
		args[i] = fmt.Sprintf("(%s)%s", internal, p.Name)
	}

	return strings.Join(args, ", "), nil
}

// genericBody forwards every argument to the internal function and casts
// the result back.
func (g *Generator) genericBody(fn *function, sig signature) ([]cdoc.Node, error) {
	var body []cdoc.Node
	void := sig.ret.Text == "void"

	if len(fn.params) > 0 {
		ref, err := parser.ParseType(fn.params[0].Type)
		if err == nil && ref.Name == "Renderer" && ref.PointerDepth() == 1 {
			ret := "return {};"
			if void {
				ret = "return;"
			}
			body = append(body,
				cdoc.Linef("if (!%s)", fn.params[0].Name),
				&cdoc.Block{Open: "{", Body: []cdoc.Node{cdoc.Line(ret)}, Close: "}"},
			)
		}
	}

	args, err := g.arguments(fn, nil)
	if err != nil {
		return nil, err
	}
	call := fmt.Sprintf("%s(%s)", fn.decl.Name, args)

	switch {
	case void:
		body = append(body, cdoc.Line(call+";"))

	case g.resolver.IsStructValue(sig.ret.Ref):
		internal, err := g.internal(fn.decl.Name+" return", fn.decl.ReturnType)
		if err != nil {
			return nil, err
		}
		body = append(body,
			cdoc.Linef("%s result = %s;", internal, call),
			cdoc.Linef("return *(%s *)&result;", sig.ret.Text),
		)

	default:
		body = append(body, cdoc.Linef("return (%s)%s;", sig.ret.Text, call))
	}

	return body, nil
}

func (g *Generator) definition(fn *function) (cdoc.Node, error) {
	sig, err := g.signature(fn)
	if err != nil {
		return nil, err
	}

	var body []cdoc.Node
	if fn.adapter != "" {
		body, err = g.adapterBody(fn)
	} else {
		body, err = g.genericBody(fn, sig)
	}
	if err != nil {
		return nil, err
	}

	def := cdoc.Group{
		cdoc.Line(g.cfg.Prefix + "_API " + sig.declare(fn.symbol(g.cfg.Prefix))),
		&cdoc.Block{Open: "{", Body: body, Close: "}"},
	}
	return cdoc.Group{cdoc.Guarded(fn.guard, def), cdoc.Blank{}}, nil
}

func (g *Generator) buildImpl(funcs []*function) (*cdoc.File, error) {
	f := &cdoc.File{}
	f.Add(banner(), cdoc.Blank{})

	for _, area := range g.areas() {
		f.Add(cdoc.Directive("#include " + quoted("../"+g.funcsFile(area))))
	}
	f.Add(
		cdoc.Directive("#include "+quoted("../loader.h")),
		cdoc.Directive("#include "+quoted("../platform.h")),
		cdoc.Blank{},
	)

	static, err := g.staticSection(funcs)
	if err != nil {
		return nil, err
	}
	dynamic, err := g.dynamicSection(funcs)
	if err != nil {
		return nil, err
	}

	platform, err := g.execute(platformImplTmpl)
	if err != nil {
		return nil, err
	}

	f.Add(
		&cdoc.Guard{Cond: g.skipDeclarations(), Body: static, Else: dynamic},
		cdoc.Blank{},
		platform,
	)

	return f, nil
}

// staticSection is the implementation linked against the internal API:
// the pass-through bodies, the layout assertions and a loader filling
// its table with the linked functions.
func (g *Generator) staticSection(funcs []*function) ([]cdoc.Node, error) {
	nodes := []cdoc.Node{
		cdoc.Blank{},
		cdoc.Directive("#include <string.h>"),
	}
	for _, inc := range g.cfg.InternalIncludes {
		nodes = append(nodes, cdoc.Directive("#include "+inc))
	}
	nodes = append(nodes, cdoc.Blank{})
	if _, declared := g.structs[subresourceDesc]; !declared {
		nodes = append(nodes, internalSubresourceDesc())
	}

	for _, ext := range g.cfg.InternalExterns {
		nodes = append(nodes, cdoc.Line("extern "+ext))
	}
	if len(g.cfg.InternalExterns) > 0 {
		nodes = append(nodes, cdoc.Blank{})
	}

	helpers, err := g.adapterHelpers(funcs)
	if err != nil {
		return nil, err
	}
	nodes = append(nodes, helpers...)

	for _, area := range g.areas() {
		nodes = append(nodes, cdoc.Linef("// %s functions", area))
		for _, fn := range funcs {
			if fn.area != area {
				continue
			}
			def, err := g.definition(fn)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, def)
		}
	}

	nodes = append(nodes, cdoc.Line("// accessors"))
	for _, acc := range g.accessors() {
		nodes = append(nodes, acc.define(g.cfg.Prefix))
	}

	nodes = append(nodes, g.layoutChecks()...)

	loader, err := g.staticLoader(funcs)
	if err != nil {
		return nil, err
	}
	nodes = append(nodes, loader...)

	return nodes, nil
}
