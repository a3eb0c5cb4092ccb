package parser

// TypeRef is a parsed C type as it appears in a declaration.
type TypeRef struct {
	Raw string

	// Name is the bare identifier with elaborations ("struct", "enum")
	// removed. Multi-word builtins keep their spelling ("unsigned int").
	Name    string
	IsConst bool

	// Pointers holds one entry per indirection level, innermost first.
	// An entry is true when that level is const qualified ("*const").
	Pointers []bool

	IsArray     bool
	ArrayExtent string

	Anonymous bool
}

// PointerDepth reports the number of indirection levels.
func (t TypeRef) PointerDepth() int {
	return len(t.Pointers)
}

// Decl is one of *StructDecl, *EnumDecl or *FuncDecl.
type Decl interface {
	DeclName() string
}

type StructDecl struct {
	Name    string
	Fields  []Field
	IsUnion bool
}

func (d *StructDecl) DeclName() string { return d.Name }

// EnumDecl with an empty Name is a free-standing constant group.
type EnumDecl struct {
	Name  string
	Items []EnumItem
}

func (d *EnumDecl) DeclName() string { return d.Name }

// IsConstGroup reports whether the enum has no name.
func (d *EnumDecl) IsConstGroup() bool {
	return d.Name == ""
}

type FuncDecl struct {
	Name       string
	ReturnType string
	Params     []Param
}

func (d *FuncDecl) DeclName() string { return d.Name }

// Field is a struct member. Nested is set for embedded records, in which
// case Kind is "struct" or "union" and Type is empty.
type Field struct {
	Name     string
	Type     string
	Bitfield string
	Default  string
	Nested   []Field
	Kind     string
}

// IsRecord reports whether the field is an embedded struct or union.
func (f Field) IsRecord() bool {
	return f.Kind != ""
}

type EnumItem struct {
	Name  string
	Value string
}

type Param struct {
	Name string
	Type string
}

// Module is the declaration list of one input, in source order.
type Module struct {
	Decls []Decl
}

// Structs returns the struct declarations in order.
func (m *Module) Structs() []*StructDecl {
	var out []*StructDecl
	for _, d := range m.Decls {
		if s, ok := d.(*StructDecl); ok {
			out = append(out, s)
		}
	}
	return out
}

// Enums returns the enum and constant group declarations in order.
func (m *Module) Enums() []*EnumDecl {
	var out []*EnumDecl
	for _, d := range m.Decls {
		if e, ok := d.(*EnumDecl); ok {
			out = append(out, e)
		}
	}
	return out
}

// Funcs returns the function declarations in order.
func (m *Module) Funcs() []*FuncDecl {
	var out []*FuncDecl
	for _, d := range m.Decls {
		if f, ok := d.(*FuncDecl); ok {
			out = append(out, f)
		}
	}
	return out
}
