package generator

import (
	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

const checkMacro = "API_CHK"

// layoutChecks renders the compile time size and offset assertions that
// prove each translated struct matches its internal counterpart. Every
// assertion carries the guard of the member it checks.
func (g *Generator) layoutChecks() []cdoc.Node {
	nodes := []cdoc.Node{
		cdoc.Directivef(`#define %s(x) static_assert(x, "Mismatched size!")`, checkMacro),
		cdoc.Blank{},
	}

	for _, area := range g.areas() {
		for _, s := range g.in.Areas[area].Structs() {
			if !g.isChecked(area, s) {
				continue
			}
			nodes = append(nodes, g.structChecks(s), cdoc.Blank{})
		}
	}

	nodes = append(nodes, cdoc.Directive("#undef "+checkMacro), cdoc.Blank{})
	return nodes
}

func (g *Generator) isChecked(area string, s *parser.StructDecl) bool {
	switch {
	case g.cfg.IsHandle(s.Name), g.cfg.IsIgnored(s.Name), g.cfg.IsUnchecked(s.Name):
		return false
	}
	return g.owns(area, s)
}

func (g *Generator) structChecks(s *parser.StructDecl) cdoc.Node {
	name := g.prefixed(s.Name)

	checks := []cdoc.Node{
		cdoc.Linef("%s(sizeof(%s) == sizeof(%s));", checkMacro, name, s.Name),
	}

	// Bitfield offsets are not addressable and embedded records have no
	// member name to check.
	for _, f := range s.Fields {
		if f.Name == "" || f.IsRecord() || f.Bitfield != "" {
			continue
		}
		line := cdoc.Linef("%s(offsetof(%s, %s) == offsetof(%s, %s));", checkMacro, name, f.Name, s.Name, f.Name)
		checks = append(checks, cdoc.Guarded(g.fieldGuard(s.Name, f), line))
	}

	return cdoc.Guarded(g.structGuard(s.Name), checks...)
}
