package generator

import (
	"github.com/ardanlabs/rhi-bindgen/parser"
)

// fieldGuard returns the backend predicate for a struct member. The same
// lookup scopes the member declaration and its offset assertion.
func (g *Generator) fieldGuard(structName string, f parser.Field) string {
	if cond := g.cfg.FieldGuard(structName, f.Name); cond != "" {
		return cond
	}
	if f.Type == "" {
		return ""
	}
	ref, err := parser.ParseType(f.Type)
	if err != nil || ref.Anonymous {
		return ""
	}
	return g.cfg.StructGuard(ref.Name)
}

// structGuard returns the predicate wrapping a whole struct.
func (g *Generator) structGuard(name string) string {
	return g.cfg.StructGuard(name)
}
