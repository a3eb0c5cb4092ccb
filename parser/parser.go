package parser

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var blockCommentRe = regexp.MustCompile(`/\*[\s\S]*?\*/`)
var lineCommentRe = regexp.MustCompile(`//[^\n]*`)
var directiveRe = regexp.MustCompile(`(?m)^[ \t]*#[^\n]*`)
var multiSpaceRe = regexp.MustCompile(`[ \t]+`)
var structRe = regexp.MustCompile(`typedef\s+(struct|union)\s*(?:\w+)?\s*\{([^}]*)\}\s*(\w+)\s*;`)
var enumRe = regexp.MustCompile(`typedef\s+enum\s*(?:\w+)?\s*\{([^}]+)\}\s*(\w+)\s*;`)
var constEnumRe = regexp.MustCompile(`(?m)^[ \t]*enum\s*\{([^}]+)\}\s*;`)
var funcRe = regexp.MustCompile(`(?m)^[ \t]*((?:const\s+)?(?:unsigned\s+)?(?:struct\s+|enum\s+)?\w+(?:\s*\*+\s*|\s+))(\w+)\s*\(([^)]*)\)\s*;`)

type located struct {
	pos  int
	decl Decl
}

// ParseHeader reads flat C declarations (typedef'd structs and enums,
// anonymous constant enums and prototypes) from header text. Nested
// records are not supported; use the JSON ingestion format for those.
func ParseHeader(content string) (*Module, error) {
	content = removeComments(content)
	content = normalizeWhitespace(content)

	var found []located

	for _, m := range structRe.FindAllStringSubmatchIndex(content, -1) {
		body := content[m[4]:m[5]]
		name := content[m[6]:m[7]]
		fields, err := parseStructFields(body)
		if err != nil {
			return nil, fmt.Errorf("struct %s: %w", name, err)
		}
		found = append(found, located{m[0], &StructDecl{
			Name:    name,
			Fields:  fields,
			IsUnion: content[m[2]:m[3]] == "union",
		}})
	}

	for _, m := range enumRe.FindAllStringSubmatchIndex(content, -1) {
		found = append(found, located{m[0], &EnumDecl{
			Name:  content[m[4]:m[5]],
			Items: parseEnumValues(content[m[2]:m[3]]),
		}})
	}

	for _, m := range constEnumRe.FindAllStringSubmatchIndex(content, -1) {
		found = append(found, located{m[0], &EnumDecl{
			Items: parseEnumValues(content[m[2]:m[3]]),
		}})
	}

	for _, m := range funcRe.FindAllStringSubmatchIndex(content, -1) {
		if strings.HasPrefix(strings.TrimSpace(content[m[2]:m[3]]), "typedef") {
			continue
		}
		fn := &FuncDecl{
			Name:       content[m[4]:m[5]],
			ReturnType: strings.TrimSpace(content[m[2]:m[3]]),
		}
		paramsStr := strings.TrimSpace(content[m[6]:m[7]])
		if paramsStr != "void" && paramsStr != "" {
			params, err := parseParams(paramsStr)
			if err != nil {
				return nil, fmt.Errorf("function %s: %w", fn.Name, err)
			}
			fn.Params = params
		}
		found = append(found, located{m[0], fn})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	mod := &Module{}
	for _, f := range found {
		mod.Decls = append(mod.Decls, f.decl)
	}

	return mod, nil
}

// ParseHeaderFile reads a header from disk.
func ParseHeaderFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	mod, err := ParseHeader(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mod, nil
}

func removeComments(s string) string {
	s = blockCommentRe.ReplaceAllString(s, "")
	s = lineCommentRe.ReplaceAllString(s, "")
	s = directiveRe.ReplaceAllString(s, "")

	return s
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = multiSpaceRe.ReplaceAllString(s, " ")

	return s
}

func parseStructFields(body string) ([]Field, error) {
	var fields []Field

	for _, line := range strings.Split(body, ";") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var f Field
		if i := strings.Index(line, ":"); i >= 0 {
			f.Bitfield = strings.TrimSpace(line[i+1:])
			line = strings.TrimSpace(line[:i])
		}
		if i := strings.Index(line, "="); i >= 0 {
			f.Default = strings.TrimSpace(line[i+1:])
			line = strings.TrimSpace(line[:i])
		}

		name, typ, err := splitDeclarator(line)
		if err != nil {
			return nil, err
		}
		f.Name = name
		f.Type = typ

		fields = append(fields, f)
	}

	return fields, nil
}

// splitDeclarator splits "const Foo *pName[4]" into "pName" and
// "const Foo * [4]".
func splitDeclarator(decl string) (string, string, error) {
	decl = strings.TrimSpace(decl)

	var array string
	if i := strings.Index(decl, "["); i >= 0 {
		array = decl[i:]
		decl = strings.TrimSpace(decl[:i])
	}

	end := len(decl)
	start := end
	for start > 0 && isIdentByte(decl[start-1]) {
		start--
	}
	if start == end || start == 0 {
		return "", "", fmt.Errorf("%w: cannot split declarator %q", ErrUnrecognizedType, decl)
	}

	name := decl[start:end]
	typ := strings.TrimSpace(decl[:start])
	if array != "" {
		typ += " " + array
	}

	return name, typ, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func parseEnumValues(body string) []EnumItem {
	var values []EnumItem

	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if idx := strings.Index(part, "="); idx != -1 {
			name := strings.TrimSpace(part[:idx])
			value := strings.TrimSpace(part[idx+1:])
			values = append(values, EnumItem{Name: name, Value: value})
		} else {
			values = append(values, EnumItem{Name: part})
		}
	}

	return values
}

func parseParams(paramsStr string) ([]Param, error) {
	var params []Param

	for _, part := range strings.Split(paramsStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if part == "..." {
			return nil, fmt.Errorf("%w: variadic parameters", ErrUnrecognizedType)
		}

		name, typ, err := splitDeclarator(part)
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: name, Type: typ})
	}

	return params, nil
}
