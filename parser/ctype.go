package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnrecognizedType is returned when a type string has a shape the
// translation rules do not cover.
var ErrUnrecognizedType = errors.New("unrecognized type")

// MaxPointerDepth is the deepest indirection a TypeRef may carry.
const MaxPointerDepth = 3

var arraySuffixRe = regexp.MustCompile(`(\s*\[[^\]]*\])+$`)
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var builtinWords = map[string]bool{
	"unsigned": true,
	"signed":   true,
	"short":    true,
	"long":     true,
	"int":      true,
	"char":     true,
}

// ParseType parses a raw C type spelling such as "const Buffer *const *",
// "uint32_t [4]" or "struct Foo *".
func ParseType(raw string) (TypeRef, error) {
	t := TypeRef{Raw: raw}
	s := strings.TrimSpace(raw)

	if s == "" {
		return t, fmt.Errorf("%w: empty type", ErrUnrecognizedType)
	}

	if strings.Contains(s, "anonymous") {
		t.Anonymous = true
		return t, nil
	}

	if strings.ContainsAny(s, "()&<>:") {
		return t, fmt.Errorf("%w: %q", ErrUnrecognizedType, raw)
	}

	if loc := arraySuffixRe.FindStringIndex(s); loc != nil {
		t.IsArray = true
		t.ArrayExtent = strings.Join(strings.Fields(s[loc[0]:]), "")
		s = strings.TrimSpace(s[:loc[0]])
	}

	s = strings.ReplaceAll(s, "*", " * ")
	tokens := strings.Fields(s)

	var words []string
	var ident string
	inPointers := false

	for _, tok := range tokens {
		switch {
		case tok == "*":
			inPointers = true
			t.Pointers = append(t.Pointers, false)

		case inPointers && tok == "const":
			t.Pointers[len(t.Pointers)-1] = true

		case inPointers:
			return t, fmt.Errorf("%w: %q: unexpected %q after pointer", ErrUnrecognizedType, raw, tok)

		case tok == "const":
			t.IsConst = true

		case tok == "struct" || tok == "enum" || tok == "union":

		case builtinWords[tok]:
			words = append(words, tok)

		case identRe.MatchString(tok):
			if ident != "" {
				return t, fmt.Errorf("%w: %q: unexpected qualifier %q", ErrUnrecognizedType, raw, tok)
			}
			ident = tok

		default:
			return t, fmt.Errorf("%w: %q: unexpected token %q", ErrUnrecognizedType, raw, tok)
		}
	}

	switch {
	case ident != "" && len(words) > 0:
		return t, fmt.Errorf("%w: %q: mixed builtin and named type", ErrUnrecognizedType, raw)
	case ident != "":
		t.Name = ident
	case len(words) > 0:
		t.Name = strings.Join(words, " ")
	default:
		return t, fmt.Errorf("%w: %q: no type name", ErrUnrecognizedType, raw)
	}

	if len(t.Pointers) > MaxPointerDepth {
		return t, fmt.Errorf("%w: %q: pointer depth %d", ErrUnrecognizedType, raw, len(t.Pointers))
	}

	return t, nil
}

// Format spells the type with name substituted for the base identifier,
// dropping the innermost drop indirection levels. The array extent is not
// included; it belongs after the declarator name.
func (t TypeRef) Format(name string, drop int) string {
	var b strings.Builder

	if t.IsConst {
		b.WriteString("const ")
	}
	b.WriteString(name)

	ptrs := t.Pointers
	if drop > len(ptrs) {
		drop = len(ptrs)
	}
	ptrs = ptrs[drop:]

	if len(ptrs) > 0 {
		b.WriteByte(' ')
		for i, c := range ptrs {
			b.WriteByte('*')
			if c {
				b.WriteString("const")
				if i < len(ptrs)-1 {
					b.WriteByte(' ')
				}
			}
		}
	}

	return b.String()
}

// String spells the type as parsed.
func (t TypeRef) String() string {
	if t.Anonymous {
		return t.Raw
	}
	return t.Format(t.Name, 0) + t.ArrayExtent
}

// ReturnType extracts the return type from a function type spelling such
// as "void (Renderer *, Fence **)".
func ReturnType(funcType string) string {
	if i := strings.Index(funcType, "("); i >= 0 {
		return strings.TrimSpace(funcType[:i])
	}
	return strings.TrimSpace(funcType)
}
