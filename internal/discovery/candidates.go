package discovery

import (
	"relaygen/internal/diag"
	"relaygen/internal/graph"
)

// Param is a constructor parameter as the planner sees it.
type Param struct {
	Name     string        `json:"name"`
	Type     graph.TypeRef `json:"type"`
	Injected bool          `json:"injected,omitempty"`
	Variadic bool          `json:"variadic,omitempty"`
}

// ConstructorCandidate is a constructor of a type with an explicit base.
type ConstructorCandidate struct {
	Func         *graph.Func   `json:"-"`
	Type         *graph.Type   `json:"-"`
	Name         string        `json:"name"`
	TypeName     string        `json:"type_name"`
	Params       []Param       `json:"params"`
	Produces     graph.TypeRef `json:"produces"`
	ReturnsError bool          `json:"returns_error,omitempty"`
}

// CollectCandidates returns every eligible constructor in declaration order.
func CollectCandidates(g *graph.Graph) []*ConstructorCandidate {
	var out []*ConstructorCandidate
	for _, f := range g.Funcs {
		if !f.IsConstructor() || !f.Owner.HasExplicitBase() {
			continue
		}
		c := &ConstructorCandidate{
			Func:         f,
			Type:         f.Owner,
			Name:         f.Name,
			TypeName:     f.Owner.Name,
			Produces:     f.Results[0],
			ReturnsError: f.ReturnsError(),
		}
		for _, p := range f.Params {
			c.Params = append(c.Params, Param{Name: p.Name, Type: p.Type, Injected: p.Injected, Variadic: p.Variadic})
		}
		out = append(out, c)
	}
	return out
}

// ReportInjectIssues turns unknown relay:inject names into warnings.
func ReportInjectIssues(g *graph.Graph, sink diag.Sink) {
	for _, issue := range g.InjectIssues {
		sink.Report(diag.UnknownInjectParameter(issue.Func, issue.Name))
	}
}
