package graph

func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		reason := u.Reason
		if reason == "" {
			reason = ReasonNoCandidate
		}
		counts[reason]++
	}
	return counts
}

// Stats is a size summary used in logs and run history.
type Stats struct {
	Types        int `json:"types"`
	Funcs        int `json:"funcs"`
	Factories    int `json:"factories"`
	Constructors int `json:"constructors"`
	Edges        int `json:"edges"`
	Unresolved   int `json:"unresolved"`
}

func (g *Graph) Stats() Stats {
	s := Stats{Types: len(g.Types), Funcs: len(g.Funcs), Edges: len(g.Edges), Unresolved: len(g.Unresolved)}
	for _, t := range g.Types {
		if t.IsFactory {
			s.Factories++
		}
		s.Constructors += len(t.Constructors)
	}
	return s
}
