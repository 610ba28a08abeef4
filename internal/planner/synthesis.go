package planner

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"relaygen/internal/crawler"
	"relaygen/internal/discovery"
	"relaygen/internal/graph"
	"relaygen/internal/matcher"
)

// Plan is everything needed to emit one Create method.
type Plan struct {
	Binding      matcher.Binding `json:"-"`
	FuncName     string          `json:"func_name"`
	Constructor  string          `json:"constructor"`
	Target       string          `json:"target"`
	Produced     graph.TypeRef   `json:"produced"`
	Resolution   Resolution      `json:"resolution"`
	Interceptors InterceptorSet  `json:"interceptors"`
}

// Candidate is the bound constructor.
func (p Plan) Candidate() *discovery.ConstructorCandidate {
	return p.Binding.Candidate
}

// SynthesisPlan is the generated file of one factory.
type SynthesisPlan struct {
	Factory *discovery.FactoryDeclaration `json:"-"`
	Name    string                        `json:"factory"`
	Output  string                        `json:"output"`
	Plans   []Plan                        `json:"plans"`
}

// Synthesize plans every binding of one factory. Bindings of other factories are ignored.
func Synthesize(f *discovery.FactoryDeclaration, bindings []matcher.Binding) *SynthesisPlan {
	sp := &SynthesisPlan{Factory: f, Name: f.Name, Output: OutputPath(f.Type)}
	names := newNameSet(f.Type)

	for _, b := range bindings {
		if b.Factory != f {
			continue
		}
		c := b.Candidate
		sp.Plans = append(sp.Plans, Plan{
			Binding:      b,
			FuncName:     names.claim(c),
			Constructor:  c.Name,
			Target:       b.Target.Qualified(),
			Produced:     c.Produces,
			Resolution:   PlanResolution(c),
			Interceptors: BindInterceptors(f.Hooks, c.Produces),
		})
	}
	return sp
}

// OutputPath is the generated file next to the factory's declaration.
func OutputPath(t *graph.Type) string {
	return filepath.Join(t.Dir, SnakeCase(t.Name)+crawler.GeneratedSuffix)
}

// SnakeCase converts a Go identifier, keeping initialisms together: HTTPFactory -> http_factory.
func SnakeCase(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// nameSet hands out Create method names that clash neither with each other nor with the factory's members.
type nameSet struct {
	taken map[string]bool
}

func newNameSet(t *graph.Type) *nameSet {
	s := &nameSet{taken: make(map[string]bool)}
	for _, f := range t.Fields {
		s.taken[f.Name] = true
	}
	for _, m := range t.Methods {
		s.taken[m.Name] = true
	}
	return s
}

func (s *nameSet) claim(c *discovery.ConstructorCandidate) string {
	rest := strings.TrimPrefix(c.Name, "New")
	if rest == "" {
		rest = c.TypeName
	}

	name := "Create" + rest
	if s.taken[name] {
		name = "Create" + exported(c.Type.Package) + rest
	}
	if s.taken[name] {
		base := name
		for n := 2; s.taken[name]; n++ {
			name = fmt.Sprintf("%s%d", base, n)
		}
	}
	s.taken[name] = true
	return name
}

func exported(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
