package generator

import (
	"fmt"
	"strings"

	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

// ResolveName maps a source function name to its target name, without
// the prefix. Unconditional renames win; overloaded names are then
// disambiguated by their first parameter; everything else keeps its name.
func ResolveName(cfg *config.Config, area string, fn *parser.FuncDecl) (string, error) {
	if to, ok := cfg.Rename(area, fn.Name); ok {
		return to, nil
	}

	rule := cfg.Overload(fn.Name)
	if rule == nil {
		return fn.Name, nil
	}

	if len(fn.Params) == 0 {
		return "", &UnhandledOverloadError{Function: fn.Name}
	}

	first := fn.Params[0]
	subject := first.Name
	if rule.MatchesType() {
		ref, err := parser.ParseType(first.Type)
		if err != nil {
			return "", &UnrecognizedTypeError{Where: fn.Name, Type: first.Type, Err: err}
		}
		subject = ref.Name
	}

	for _, v := range rule.Variants {
		if strings.Contains(subject, v.Contains) {
			return v.Target, nil
		}
	}

	return "", &UnhandledOverloadError{Function: fn.Name, Param: subject}
}

// function is a declaration ready for emission.
type function struct {
	area    string
	decl    *parser.FuncDecl
	target  string
	guard   string
	adapter config.AdapterKind
	params  []parser.Param
}

// symbol is the exported symbol name of the function.
func (f *function) symbol(prefix string) string {
	return prefix + "_" + f.target
}

func (f *function) qualified() string {
	return f.area + ":" + f.decl.Name
}

// plan resolves names, guards and adapters for every function, in area
// order, and checks the result for collisions.
func (g *Generator) plan() ([]*function, error) {
	var funcs []*function
	owners := make(map[string]string)

	claim := func(target, owner string) error {
		if prev, ok := owners[target]; ok {
			return &NameCollisionError{Target: g.cfg.Prefix + "_" + target, First: prev, Second: owner}
		}
		owners[target] = owner
		return nil
	}

	for _, reserved := range []string{"init", "exit"} {
		owners[reserved] = "loader:" + reserved
	}

	for _, area := range g.areas() {
		for _, decl := range g.in.Areas[area].Funcs() {
			if g.cfg.IsSkipped(area, decl.Name) {
				g.log.WithField("function", decl.Name).Debug("skipping function without implementation")
				continue
			}

			target, err := ResolveName(g.cfg, area, decl)
			if err != nil {
				return nil, err
			}

			fn := &function{
				area:   area,
				decl:   decl,
				target: target,
				guard:  g.cfg.FunctionGuard(decl.Name),
				params: namedParams(decl.Params),
			}

			if err := claim(target, fn.qualified()); err != nil {
				return nil, err
			}

			if err := g.bindAdapter(fn); err != nil {
				return nil, err
			}

			funcs = append(funcs, fn)
		}
	}

	for _, acc := range g.accessors() {
		if err := claim(acc.name, "accessor:"+acc.name); err != nil {
			return nil, err
		}
	}

	return funcs, nil
}

// bindAdapter attaches the registered adapter, and fails for functions
// that take a reshaped type but have none.
func (g *Generator) bindAdapter(fn *function) error {
	if kind, ok := g.cfg.Adapter(fn.area, fn.decl.Name); ok {
		fn.adapter = kind
		return g.checkAdapterShape(fn)
	}

	for _, p := range fn.decl.Params {
		ref, err := parser.ParseType(p.Type)
		if err != nil {
			return &UnrecognizedTypeError{Where: fmt.Sprintf("%s(%s)", fn.decl.Name, p.Name), Type: p.Type, Err: err}
		}
		if g.cfg.IsAdaptedType(ref.Name) {
			return &MissingAdapterError{
				Function: fn.decl.Name,
				Reason:   fmt.Sprintf("parameter %s of type %s cannot be cast through", p.Name, p.Type),
			}
		}
	}

	return nil
}

func namedParams(params []parser.Param) []parser.Param {
	out := make([]parser.Param, len(params))
	for i, p := range params {
		if p.Name == "" {
			p.Name = fmt.Sprintf("arg%d", i)
		}
		out[i] = p
	}
	return out
}
