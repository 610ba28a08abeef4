// Package matcher pairs factory declarations with constructor candidates.
package matcher

import (
	"strings"

	"relaygen/internal/discovery"
	"relaygen/internal/graph"
	"relaygen/internal/index"
)

// Binding selects one constructor for one factory.
type Binding struct {
	Factory   *discovery.FactoryDeclaration
	Target    graph.TypeRef
	Candidate *discovery.ConstructorCandidate
}

// Matcher holds the graph and the inheritance index the filters consult.
type Matcher struct {
	graph *graph.Graph
	index *index.Inheritance
}

func New(g *graph.Graph, in *index.Inheritance) *Matcher {
	if in == nil {
		in = index.NewInheritance()
	}
	return &Matcher{graph: g, index: in}
}

// Descends is the coarse filter: the candidate's type descends from a type the
// factory names. Targets are found by name lookup from the factory's package and
// through the factory file's imports, so aliased qualifiers resolve too.
func Descends(g *graph.Graph, in *index.Inheritance, f *discovery.FactoryDeclaration, c *discovery.ConstructorCandidate) bool {
	for i, text := range f.TargetTexts {
		for _, base := range targetBases(g, f, i, text) {
			if in.Descends(c.Type, base) {
				return true
			}
		}
	}
	return false
}

func targetBases(g *graph.Graph, f *discovery.FactoryDeclaration, i int, text string) []*graph.Type {
	bases := g.Lookup(text, f.Type.Package)
	if i < len(f.Targets) && f.Targets[i].Decl != nil {
		bases = append(bases, f.Targets[i].Decl)
	}
	name := strings.TrimLeft(text, "*[]")
	if qual, rest, ok := strings.Cut(name, "."); ok {
		if imp, found := g.ImportFor(f.Type.Filepath, qual); found {
			if t := g.TypeIn(imp.Path, rest); t != nil {
				bases = append(bases, t)
			}
		}
	} else if t := g.TypeAt(f.Type.Dir, name); t != nil {
		bases = append(bases, t)
	}
	return bases
}

// DirectlyDerives reports whether target is the direct base of the candidate's type,
// by declaration identity or else by case-insensitive qualified name.
func DirectlyDerives(target graph.TypeRef, c *discovery.ConstructorCandidate) bool {
	base, ok := c.Type.DirectBase()
	if !ok {
		return false
	}
	base = base.Elem()
	if target.Decl != nil && base.Decl != nil && target.Decl == base.Decl {
		return true
	}
	return strings.EqualFold(target.Qualified(), base.Qualified())
}

// MatchFactory binds each candidate at most once, to the first target it directly derives from.
func (m *Matcher) MatchFactory(f *discovery.FactoryDeclaration, cands []*discovery.ConstructorCandidate) []Binding {
	var out []Binding
	for _, c := range cands {
		if !Descends(m.graph, m.index, f, c) {
			continue
		}
		for _, target := range f.Targets {
			if DirectlyDerives(target, c) {
				out = append(out, Binding{Factory: f, Target: target, Candidate: c})
				break
			}
		}
	}
	return out
}

// Match binds every factory in factory order.
func (m *Matcher) Match(decls []*discovery.FactoryDeclaration, cands []*discovery.ConstructorCandidate) []Binding {
	var out []Binding
	for _, f := range decls {
		out = append(out, m.MatchFactory(f, cands)...)
	}
	return out
}
