package resolver

import "relaygen/internal/graph"

type ResolveStats struct {
	Attempted int
	Resolved  int
	Skipped   int
}

type GraphResolver interface {
	Name() string
	Resolve(g *graph.Graph) (ResolveStats, error)
}

type StageResult struct {
	Resolver         string
	Stats            ResolveStats
	UnresolvedBefore int
	UnresolvedAfter  int
	Err              error
}

type ResolverChain struct {
	resolvers []GraphResolver
}

func NewResolverChain(resolvers ...GraphResolver) *ResolverChain {
	return &ResolverChain{resolvers: resolvers}
}

// NewDefaultChain resolves through imports first; the name heuristic only sees what is left.
func NewDefaultChain() *ResolverChain {
	return NewResolverChain(NewImportResolver(), NewHeuristicResolver())
}

// Run executes every stage, then refreshes g.Unresolved and the edge set.
func (c *ResolverChain) Run(g *graph.Graph) []StageResult {
	if g == nil {
		return nil
	}

	var out []StageResult
	for _, r := range c.resolvers {
		before := countUnresolved(g)
		stats, err := r.Resolve(g)
		out = append(out, StageResult{
			Resolver:         r.Name(),
			Stats:            stats,
			UnresolvedBefore: before,
			UnresolvedAfter:  countUnresolved(g),
			Err:              err,
		})
		if err != nil {
			break
		}
	}
	g.CollectUnresolved()
	g.BuildEdges()
	return out
}

func countUnresolved(g *graph.Graph) int {
	n := 0
	for _, s := range g.Sites() {
		if !s.Ref.Resolved() {
			n++
		}
	}
	return n
}

// HeuristicResolver binds leftovers through the graph's name index.
// Ambiguous names stay unresolved to avoid introducing wrong bindings.
type HeuristicResolver struct{}

func NewHeuristicResolver() *HeuristicResolver {
	return &HeuristicResolver{}
}

func (r *HeuristicResolver) Name() string {
	return "heuristic"
}

func (r *HeuristicResolver) Resolve(g *graph.Graph) (ResolveStats, error) {
	var stats ResolveStats
	if g == nil {
		return stats, nil
	}
	for _, s := range g.Sites() {
		if s.Ref.Resolved() {
			continue
		}
		stats.Attempted++
		candidates := g.Lookup(s.Ref.Text, s.Package)
		switch len(candidates) {
		case 1:
			s.Ref.Decl = candidates[0]
			s.Ref.PkgPath = candidates[0].PkgPath
			stats.Resolved++
		case 0:
			s.Reason = graph.ReasonNoCandidate
			stats.Skipped++
		default:
			s.Reason = graph.ReasonAmbiguous
			stats.Skipped++
		}
	}
	return stats, nil
}
