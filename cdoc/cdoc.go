// Package cdoc models a generated C source file as a tree of nodes and
// renders it in one pass. Guards always close with the condition they
// opened with and block bodies are indented by the renderer, so emitters
// never pair directives or count spaces by hand.
package cdoc

import (
	"fmt"
	"strings"
)

// Indent is one level of block indentation.
const Indent = "    "

// Node is an element of a generated file.
type Node interface {
	render(w *writer)
}

// File is the root of a generated artifact.
type File struct {
	Nodes []Node
}

// Add appends nodes to the file.
func (f *File) Add(nodes ...Node) {
	f.Nodes = append(f.Nodes, nodes...)
}

// Render produces the text of the file.
func (f *File) Render() string {
	w := &writer{}
	for _, n := range f.Nodes {
		if n != nil {
			n.render(w)
		}
	}
	return w.b.String()
}

// Line is a single line of code at the current indentation.
type Line string

// Linef formats a Line.
func Linef(format string, args ...any) Line {
	return Line(fmt.Sprintf(format, args...))
}

func (l Line) render(w *writer) {
	w.line(string(l))
}

// Blank is an empty line.
type Blank struct{}

func (Blank) render(w *writer) {
	w.raw("")
}

// Directive is a preprocessor line. It is never indented.
type Directive string

// Directivef formats a Directive.
func Directivef(format string, args ...any) Directive {
	return Directive(fmt.Sprintf(format, args...))
}

func (d Directive) render(w *writer) {
	w.raw(string(d))
}

// Raw is verbatim text, one output line per input line, with no
// indentation applied.
type Raw string

func (r Raw) render(w *writer) {
	text := strings.TrimSuffix(string(r), "\n")
	for _, l := range strings.Split(text, "\n") {
		w.raw(l)
	}
}

// Block is a brace-delimited construct: Open and Close are written at the
// current level and Body one level deeper.
type Block struct {
	Open  string
	Body  []Node
	Close string
}

func (b *Block) render(w *writer) {
	w.line(b.Open)
	w.depth++
	for _, n := range b.Body {
		if n != nil {
			n.render(w)
		}
	}
	w.depth--
	w.line(b.Close)
}

// Guard wraps its body in "#if Cond" / "#endif // Cond". An empty Cond
// renders the body unguarded. Else, when set, is emitted after "#else".
type Guard struct {
	Cond string
	Body []Node
	Else []Node
}

func (g *Guard) render(w *writer) {
	if g.Cond == "" {
		for _, n := range g.Body {
			if n != nil {
				n.render(w)
			}
		}
		return
	}

	w.raw("#if " + g.Cond)
	for _, n := range g.Body {
		if n != nil {
			n.render(w)
		}
	}
	if g.Else != nil {
		w.raw("#else // " + g.Cond)
		for _, n := range g.Else {
			if n != nil {
				n.render(w)
			}
		}
	}
	w.raw("#endif // " + g.Cond)
}

// Guarded returns nodes wrapped in a guard when cond is set, or the nodes
// as a group otherwise.
func Guarded(cond string, nodes ...Node) Node {
	return &Guard{Cond: cond, Body: nodes}
}

// Branch is one arm of a Chain. An empty Cond marks the "#else" arm and
// must come last.
type Branch struct {
	Cond string
	Body []Node
}

// Chain renders an "#if" / "#elif" / "#else" ladder closed by one
// "#endif" naming the first condition.
type Chain struct {
	Branches []Branch
}

func (c *Chain) render(w *writer) {
	if len(c.Branches) == 0 {
		return
	}

	first := c.Branches[0].Cond
	for i, b := range c.Branches {
		switch {
		case i == 0:
			w.raw("#if " + b.Cond)
		case b.Cond == "":
			w.raw("#else // " + first)
		default:
			w.raw("#elif " + b.Cond)
		}
		for _, n := range b.Body {
			if n != nil {
				n.render(w)
			}
		}
	}
	w.raw("#endif // " + first)
}

// Group is a sequence of nodes rendered in order.
type Group []Node

func (g Group) render(w *writer) {
	for _, n := range g {
		if n != nil {
			n.render(w)
		}
	}
}

type writer struct {
	b     strings.Builder
	depth int
}

func (w *writer) line(s string) {
	if s == "" {
		w.b.WriteByte('\n')
		return
	}
	for i := 0; i < w.depth; i++ {
		w.b.WriteString(Indent)
	}
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func (w *writer) raw(s string) {
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}
