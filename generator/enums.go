package generator

import (
	"fmt"
	"regexp"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

var identifierRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

// enumValue namespaces every enumerator referenced by a value expression.
func (g *Generator) enumValue(expr string) string {
	return identifierRe.ReplaceAllStringFunc(expr, func(id string) string {
		if to, ok := g.enumerators[id]; ok {
			return to
		}
		return id
	})
}

func (g *Generator) enumItems(items []parser.EnumItem, name func(string) string) []cdoc.Node {
	nodes := make([]cdoc.Node, 0, len(items))
	for i, it := range items {
		line := name(it.Name)
		if it.Value != "" {
			line += " = " + g.enumValue(it.Value)
		}
		if i < len(items)-1 {
			line += ","
		}
		nodes = append(nodes, cdoc.Line(line))
	}
	return nodes
}

// enumDecl renders a typed enumeration, or an anonymous one for a
// constant group.
func (g *Generator) enumDecl(e *parser.EnumDecl) cdoc.Node {
	items := g.enumItems(e.Items, g.prefixed)

	if e.IsConstGroup() {
		return cdoc.Group{
			cdoc.Line("enum"),
			&cdoc.Block{Open: "{", Body: items, Close: "};"},
			cdoc.Blank{},
		}
	}

	name := g.prefixed(e.Name)
	return cdoc.Group{
		cdoc.Line("typedef enum " + name),
		&cdoc.Block{Open: "{", Body: items, Close: "} " + name + ";"},
		cdoc.Blank{},
	}
}

// enumPrelude holds the constants every consumer of the core area needs
// and that no input declares.
func (g *Generator) enumPrelude() cdoc.Node {
	p := g.cfg.Prefix
	result := p + "_Result"

	return cdoc.Group{
		cdoc.Linef("static const int %s_RED = 0x1;", p),
		cdoc.Linef("static const int %s_GREEN = 0x2;", p),
		cdoc.Linef("static const int %s_BLUE = 0x4;", p),
		cdoc.Linef("static const int %s_ALPHA = 0x8;", p),
		cdoc.Linef("static const int %[1]s_ALL = (%[1]s_RED | %[1]s_GREEN | %[1]s_BLUE | %[1]s_ALPHA);", p),
		cdoc.Linef("static const int %s_NONE = 0;", p),
		cdoc.Blank{},
		cdoc.Linef("static const int %s_BS_NONE = -1;", p),
		cdoc.Linef("static const int %s_DS_NONE = -1;", p),
		cdoc.Linef("static const int %s_RS_NONE = -1;", p),
		cdoc.Blank{},
		cdoc.Line("typedef enum " + result),
		&cdoc.Block{
			Open: "{",
			Body: []cdoc.Node{
				cdoc.Linef("%s_RESULT_SUCCESS = 0,", p),
				cdoc.Linef("%s_RESULT_ERROR = -1", p),
			},
			Close: "} " + result + ";",
		},
		cdoc.Blank{},
	}
}

func (g *Generator) buildEnums(area string) (*cdoc.File, error) {
	var includes []string
	var body []cdoc.Node

	if area == config.AreaCore {
		includes = append(includes, "<stdint.h>")
		body = append(body, g.enumPrelude())
	}

	for _, e := range g.in.Areas[area].Enums() {
		if !g.owns(area, e) {
			continue
		}
		body = append(body, g.enumDecl(e))
	}

	return g.header(enumsFile(area), includes, body...), nil
}

// =============================================================================

func (g *Generator) buildImageFormat() (*cdoc.File, error) {
	spec := g.cfg.ImageFormat

	if g.in.ImageFormat == nil {
		return nil, fmt.Errorf("no %s input", spec.Enum)
	}

	var src *parser.EnumDecl
	for _, e := range g.in.ImageFormat.Enums() {
		if e.Name == spec.Enum {
			src = e
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("enumeration %s not found", spec.Enum)
	}

	name := g.prefixed(spec.Target)
	items := g.enumItems(src.Items, g.imageFormatItem)

	return g.header("imageformat.h", nil,
		cdoc.Line("typedef enum "+name),
		&cdoc.Block{Open: "{", Body: items, Close: "} " + name + ";"},
		cdoc.Blank{},
	), nil
}
