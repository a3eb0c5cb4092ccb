package generator

import (
	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

// Resolved is a type rewritten into the namespaced interface.
type Resolved struct {
	Ref parser.TypeRef

	// Text is the namespaced spelling without the array extent.
	Text  string
	Array string

	// Elided is set for anonymous record types, which print nothing.
	Elided bool
}

// Resolver rewrites raw type strings into namespaced, ABI-safe spellings.
type Resolver struct {
	cfg     *config.Config
	structs map[string]bool
}

// NewResolver returns a resolver. structs names every struct declared in
// the input; it decides which by-value types need reinterpreting casts.
func NewResolver(cfg *config.Config, structs map[string]bool) *Resolver {
	return &Resolver{cfg: cfg, structs: structs}
}

// Resolve applies the rules in priority order: exception table,
// anonymous records, handles, base types, then plain namespacing.
func (r *Resolver) Resolve(raw string) (Resolved, error) {
	ref, err := parser.ParseType(raw)
	if err != nil {
		return Resolved{}, err
	}

	res := Resolved{Ref: ref, Array: ref.ArrayExtent}

	if ref.Anonymous {
		res.Elided = true
		return res, nil
	}

	switch {
	case r.cfg.IsPassthrough(ref.Name):
		res.Text = ref.Format(ref.Name, 0)

	case r.isRenamed(ref.Name):
		to, _ := r.cfg.TypeRename(ref.Name)
		res.Text = ref.Format(r.prefixed(to), 0)

	case r.cfg.IsHandle(ref.Name):
		// The handle is already a pointer sized reference, so the
		// innermost level of indirection is folded into it.
		res.Text = ref.Format(r.prefixed(ref.Name+"Handle"), 1)

	case r.cfg.IsBaseType(ref.Name):
		res.Text = ref.Format(ref.Name, 0)

	default:
		res.Text = ref.Format(r.prefixed(ref.Name), 0)
	}

	return res, nil
}

// Internal spells the type as the internal API sees it, for casts.
func (r *Resolver) Internal(raw string) (string, error) {
	ref, err := parser.ParseType(raw)
	if err != nil {
		return "", err
	}
	if ref.IsArray {
		return ref.Format(ref.Name, 0) + " *", nil
	}
	return ref.Format(ref.Name, 0), nil
}

// IsStructValue reports whether the type is a struct passed by value.
func (r *Resolver) IsStructValue(ref parser.TypeRef) bool {
	return ref.PointerDepth() == 0 && !ref.IsArray && !ref.Anonymous &&
		r.structs[ref.Name] && !r.cfg.IsHandle(ref.Name)
}

func (r *Resolver) isRenamed(name string) bool {
	_, ok := r.cfg.TypeRename(name)
	return ok
}

func (r *Resolver) prefixed(name string) string {
	return r.cfg.Prefix + "_" + name
}
