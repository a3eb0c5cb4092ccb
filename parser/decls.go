package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// flexString accepts a JSON string or a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

type jsonField struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	BitfieldSize flexString  `json:"bitfieldvalue"`
	DefaultValue string      `json:"defaultvalue"`
	Kind         string      `json:"kind"`
	Fields       []jsonField `json:"fields"`
}

type jsonItem struct {
	Name  string     `json:"name"`
	Value flexString `json:"value"`
}

type jsonParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type jsonDecl struct {
	Kind   string      `json:"kind"`
	Name   string      `json:"name"`
	Union  bool        `json:"union"`
	Fields []jsonField `json:"fields"`
	Items  []jsonItem  `json:"items"`
	Type   string      `json:"type"`
	Return string      `json:"return"`
	Params []jsonParam `json:"params"`
}

type jsonModule struct {
	Decls []jsonDecl `json:"decls"`
}

// Decode reads a declaration list in the ingestion JSON format.
func Decode(r io.Reader) (*Module, error) {
	var in jsonModule
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding declarations: %w", err)
	}

	m := &Module{}
	for i, d := range in.Decls {
		decl, err := convertDecl(d)
		if err != nil {
			return nil, fmt.Errorf("decl %d (%s %s): %w", i, d.Kind, d.Name, err)
		}
		if decl != nil {
			m.Decls = append(m.Decls, decl)
		}
	}

	return m, nil
}

// DecodeFile reads a declaration list from a JSON file.
func DecodeFile(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func convertDecl(d jsonDecl) (Decl, error) {
	switch d.Kind {
	case "struct":
		if d.Name == "" {
			return nil, fmt.Errorf("struct without name")
		}
		return &StructDecl{
			Name:    d.Name,
			Fields:  convertFields(d.Fields),
			IsUnion: d.Union,
		}, nil

	case "enum", "consts":
		e := &EnumDecl{}
		if d.Kind == "enum" {
			e.Name = d.Name
		}
		for _, it := range d.Items {
			e.Items = append(e.Items, EnumItem{Name: it.Name, Value: string(it.Value)})
		}
		return e, nil

	case "func":
		if d.Name == "" {
			return nil, fmt.Errorf("function without name")
		}
		ret := d.Return
		if ret == "" {
			ret = ReturnType(d.Type)
		}
		fn := &FuncDecl{Name: d.Name, ReturnType: ret}
		for _, p := range d.Params {
			fn.Params = append(fn.Params, Param{Name: p.Name, Type: p.Type})
		}
		return fn, nil

	default:
		return nil, fmt.Errorf("unknown declaration kind %q", d.Kind)
	}
}

func convertFields(in []jsonField) []Field {
	var out []Field
	for _, f := range in {
		if f.Fields != nil {
			kind := f.Kind
			if kind == "" {
				kind = "struct"
			}
			out = append(out, Field{
				Name:   f.Name,
				Kind:   kind,
				Nested: convertFields(f.Fields),
			})
			continue
		}

		// Member typedefs carry only a name.
		if f.Type == "" {
			continue
		}

		out = append(out, Field{
			Name:     f.Name,
			Type:     f.Type,
			Bitfield: string(f.BitfieldSize),
			Default:  f.DefaultValue,
		})
	}
	return out
}
