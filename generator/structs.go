package generator

import (
	"fmt"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

// subresourceField is a member of the sub-resource update descriptor,
// which the internal API keeps out of its public headers.
type subresourceField struct {
	name  string
	ctype string
	guard string
}

const subresourcePitchGuard = "defined(DIRECT3D11) || defined(METAL) || defined(VULKAN)"

var subresourceFields = []subresourceField{
	{"mSrcOffset", "uint64_t", ""},
	{"mMipLevel", "uint32_t", ""},
	{"mArrayLayer", "uint32_t", ""},
	{"mRowPitch", "uint32_t", subresourcePitchGuard},
	{"mSlicePitch", "uint32_t", subresourcePitchGuard},
}

const subresourceDesc = "SubresourceDataDesc"

func (g *Generator) structsIncludes(area string) []string {
	if area == config.AreaCore {
		return []string{"<stddef.h>", "<stdbool.h>", "<stdint.h>", "", quoted("enums.h"), quoted("imageformat.h")}
	}
	return []string{quoted("enums.h"), quoted(enumsFile(area)), quoted("structs.h")}
}

func (g *Generator) structPrelude(area string) []cdoc.Node {
	p := g.cfg.Prefix

	switch area {
	case config.AreaCore:
		var nodes []cdoc.Node
		for _, h := range g.cfg.Handles {
			nodes = append(nodes, cdoc.Linef("typedef struct %[1]s_%[2]s *%[1]s_%[2]sHandle;", p, h))
		}
		nodes = append(nodes,
			cdoc.Blank{},
			cdoc.Linef("typedef void (*%[1]s_LogFn)(%[1]s_LogType, const char *, const char *);", p),
			cdoc.Blank{},
			cdoc.Linef("typedef struct %s_WindowHandle", p),
			&cdoc.Block{
				Open: "{",
				Body: []cdoc.Node{
					cdoc.Line("void *display;  // X11"),
					cdoc.Line("void *window;   // native window"),
					cdoc.Line("void *activity; // android"),
				},
				Close: fmt.Sprintf("} %s_WindowHandle;", p),
			},
			cdoc.Blank{},
		)

		if _, declared := g.structs[subresourceDesc]; !declared {
			var fields []cdoc.Node
			for _, f := range subresourceFields {
				fields = append(fields, cdoc.Linef("%s %s;", f.ctype, f.name))
			}
			name := g.prefixed(subresourceDesc)
			nodes = append(nodes,
				cdoc.Line("typedef struct "+name),
				&cdoc.Block{Open: "{", Body: fields, Close: "} " + name + ";"},
				cdoc.Blank{},
			)
		}
		return nodes

	case config.AreaResourceLoader:
		return []cdoc.Node{
			cdoc.Linef("typedef uint64_t %s_SyncToken;", p),
			cdoc.Blank{},
		}
	}

	return nil
}

func (g *Generator) buildStructs(area string) (*cdoc.File, error) {
	body := g.structPrelude(area)

	for _, s := range g.in.Areas[area].Structs() {
		if g.cfg.IsHandle(s.Name) || g.cfg.IsIgnored(s.Name) || !g.owns(area, s) {
			continue
		}

		node, err := g.structDecl(s)
		if err != nil {
			return nil, err
		}
		body = append(body, node, cdoc.Blank{})
	}

	return g.header(structsFile(area), g.structsIncludes(area), body...), nil
}

// structDecl renders one struct. Field order is kept exactly, since it
// determines the layout.
func (g *Generator) structDecl(s *parser.StructDecl) (cdoc.Node, error) {
	fields, err := g.fields(s.Name, s.Fields, s.IsUnion)
	if err != nil {
		return nil, err
	}

	if s.IsUnion {
		fields = []cdoc.Node{&cdoc.Block{Open: "union {", Body: fields, Close: "};"}}
	}

	name := g.prefixed(s.Name)
	decl := &cdoc.Block{
		Open:  "typedef struct " + name + " {",
		Body:  fields,
		Close: "} " + name + ";",
	}

	return cdoc.Guarded(g.structGuard(s.Name), decl), nil
}

// fields renders members of structName, recursing into embedded records.
// A record directly followed by a named member of anonymous type is the
// declaration of that member and is folded into it.
func (g *Generator) fields(structName string, fields []parser.Field, inUnion bool) ([]cdoc.Node, error) {
	var nodes []cdoc.Node

	for i := 0; i < len(fields); i++ {
		f := fields[i]

		if f.IsRecord() {
			inner, err := g.fields(structName, f.Nested, f.Kind == "union")
			if err != nil {
				return nil, err
			}

			open := f.Kind + " {"
			if f.Name != "" {
				open = f.Kind + " " + g.prefixed(f.Name) + " {"
			}
			block := &cdoc.Block{Open: open, Body: inner, Close: "};"}

			if i+1 < len(fields) && isAnonymousMember(fields[i+1]) && fields[i+1].Name != "" {
				member := fields[i+1]
				block.Close = "} " + member.Name + ";"
				nodes = append(nodes, cdoc.Guarded(g.fieldGuard(structName, member), block))
				i++
				continue
			}

			nodes = append(nodes, block)
			continue
		}

		if isAnonymousMember(f) {
			if f.Name == "" {
				continue
			}
			return nil, &UnrecognizedTypeError{
				Where: structName + "." + f.Name,
				Type:  f.Type,
				Err:   fmt.Errorf("%w: anonymous member without a record body", ErrUnrecognizedType),
			}
		}

		if f.Name == "" {
			continue
		}

		line, err := g.fieldLine(structName, f, inUnion)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, cdoc.Guarded(g.fieldGuard(structName, f), line))
	}

	return nodes, nil
}

func (g *Generator) fieldLine(structName string, f parser.Field, inUnion bool) (cdoc.Node, error) {
	res, err := g.resolve(structName+"."+f.Name, f.Type)
	if err != nil {
		return nil, err
	}

	line := declarator(res.Text, f.Name) + res.Array

	switch {
	case f.Bitfield != "":
		line += " : " + f.Bitfield

	case !inUnion && !res.Ref.IsArray:
		def := g.cfg.DefaultValue(structName, f.Name)
		if def == "" {
			def = f.Default
		}
		if def != "" {
			line += " = " + g.enumValue(def)
		}
	}

	return cdoc.Line(line + ";"), nil
}

func isAnonymousMember(f parser.Field) bool {
	if f.IsRecord() || f.Type == "" {
		return false
	}
	ref, err := parser.ParseType(f.Type)
	return err == nil && ref.Anonymous
}
