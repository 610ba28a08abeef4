package resolver

import (
	"relaygen/internal/graph"
)

// ImportResolver binds references by scope: unqualified names to the declaring
// directory, qualified names through the file's imports.
type ImportResolver struct{}

func NewImportResolver() *ImportResolver {
	return &ImportResolver{}
}

func (r *ImportResolver) Name() string {
	return "imports"
}

func (r *ImportResolver) Resolve(g *graph.Graph) (ResolveStats, error) {
	var stats ResolveStats
	if g == nil {
		return stats, nil
	}

	for _, s := range g.Sites() {
		ref := s.Ref
		if ref.Opaque {
			r.resolveQualifiers(g, s)
			continue
		}
		if ref.Resolved() {
			continue
		}
		stats.Attempted++

		if ref.PkgName == "" {
			decl := g.TypeAt(s.Dir, ref.Name)
			if decl == nil {
				s.Reason = graph.ReasonNoCandidate
				stats.Skipped++
				continue
			}
			ref.Decl = decl
			ref.PkgPath = decl.PkgPath
			stats.Resolved++
			continue
		}

		imp, ok := g.ImportFor(s.File, ref.PkgName)
		if !ok {
			s.Reason = graph.ReasonNoImport
			stats.Skipped++
			continue
		}
		// Types outside the scanned module keep a nil Decl but a known path.
		ref.PkgPath = imp.Path
		ref.Decl = g.TypeIn(imp.Path, ref.Name)
		stats.Resolved++
	}
	return stats, nil
}

func (r *ImportResolver) resolveQualifiers(g *graph.Graph, s *graph.RefSite) {
	for _, q := range s.Ref.Qualifiers() {
		imp, ok := g.ImportFor(s.File, q)
		if !ok {
			continue
		}
		if s.Ref.Imports == nil {
			s.Ref.Imports = make(map[string]string)
		}
		s.Ref.Imports[q] = imp.Path
	}
}
