package analysis

import (
	"path/filepath"
	"sort"
	"strings"

	"relaygen/internal/crawler"
	"relaygen/internal/discovery"
	"relaygen/internal/git"
	"relaygen/internal/graph"
	"relaygen/internal/index"
)

// ImpactReport summarizes the symbols affected by changes.
type ImpactReport struct {
	DirectlyAffected   []*graph.Node
	IndirectlyAffected []*graph.Node

	// FullRebuild is set when a change cannot be attributed to a symbol of the
	// current graph, such as a deleted file or a removed declaration.
	FullRebuild bool
	Reasons     []string
}

// Analyzer performs impact analysis on the symbol graph.
type Analyzer struct {
	g    *graph.Graph
	root string
	in   *index.Inheritance
}

// NewAnalyzer creates a new analyzer. root is the directory diff paths are relative to.
func NewAnalyzer(g *graph.Graph, root string) *Analyzer {
	return &Analyzer{g: g, root: root, in: index.NewInheritance()}
}

// AnalyzeImpact identifies which nodes are affected by the given changes.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) *ImpactReport {
	report := &ImpactReport{
		DirectlyAffected:   []*graph.Node{},
		IndirectlyAffected: []*graph.Node{},
	}

	byFile := a.nodesByFile()
	seenDirect := make(map[string]bool)
	seenIndirect := make(map[string]bool)

	for _, change := range changes {
		if !crawler.IsSource(filepath.Base(change.Path)) {
			continue
		}
		if change.Deleted {
			report.FullRebuild = true
			report.Reasons = append(report.Reasons, change.Path+" was deleted")
			continue
		}

		nodes := byFile[a.abs(change.Path)]
		for _, line := range change.ChangedLines {
			hit := false
			for _, node := range nodes {
				if start, end := span(node.Symbol); line >= start && line <= end {
					hit = true
					if !seenDirect[node.Symbol.ID] {
						report.DirectlyAffected = append(report.DirectlyAffected, node)
						seenDirect[node.Symbol.ID] = true
					}
				}
			}
			// Lines outside every declaration may be a removed type or constructor.
			if !hit {
				report.FullRebuild = true
				report.Reasons = append(report.Reasons, change.Path+" changed outside known declarations")
				break
			}
		}
	}

	for _, node := range report.DirectlyAffected {
		for _, dep := range a.g.GetDependents(node.Symbol.ID) {
			if !seenDirect[dep.Symbol.ID] && !seenIndirect[dep.Symbol.ID] {
				report.IndirectlyAffected = append(report.IndirectlyAffected, dep)
				seenIndirect[dep.Symbol.ID] = true
			}
		}
	}

	return report
}

// AffectedFactories returns the factory type IDs whose generated file may change.
// A nil map means every factory must be regenerated.
func (a *Analyzer) AffectedFactories(decls []*discovery.FactoryDeclaration, changes []git.ChangedFile) (map[string]bool, *ImpactReport) {
	report := a.AnalyzeImpact(changes)
	if report.FullRebuild {
		return nil, report
	}

	touched := make(map[string]bool)
	for _, n := range report.DirectlyAffected {
		touched[n.Symbol.ID] = true
	}
	for _, n := range report.IndirectlyAffected {
		touched[n.Symbol.ID] = true
	}

	affected := make(map[string]bool)
	for _, d := range decls {
		for id := range a.Footprint(d) {
			if touched[id] {
				affected[d.Type.ID] = true
				break
			}
		}
	}
	return affected, report
}

// Footprint is every symbol ID the generated file of d is derived from:
// the factory with its methods, the targets, and each descendant type with its
// chain, constructors and constructor parameter types.
func (a *Analyzer) Footprint(d *discovery.FactoryDeclaration) map[string]bool {
	ids := map[string]bool{d.Type.ID: true}
	for _, m := range d.Type.Methods {
		ids[m.ID] = true
	}

	targets := make(map[*graph.Type]bool)
	for _, t := range d.Targets {
		if t.Decl != nil {
			targets[t.Decl] = true
			ids[t.Decl.ID] = true
		}
	}

	for _, t := range a.g.Types {
		chain := a.in.Chain(t)
		if !reachesAny(chain, targets) {
			continue
		}
		ids[t.ID] = true
		for _, b := range chain {
			ids[b.ID] = true
		}
		for _, c := range t.Constructors {
			ids[c.ID] = true
			for _, p := range c.Params {
				if p.Type.Decl != nil {
					ids[p.Type.Decl.ID] = true
				}
			}
		}
	}
	return ids
}

// span covers the declaration and its doc comment, where directives live.
func span(s *graph.Symbol) (int, int) {
	start := s.StartLine
	if s.Doc != "" {
		start -= strings.Count(s.Doc, "\n") + 1
	}
	return start, s.EndLine
}

func reachesAny(chain []*graph.Type, targets map[*graph.Type]bool) bool {
	for _, b := range chain {
		if targets[b] {
			return true
		}
	}
	return false
}

func (a *Analyzer) nodesByFile() map[string][]*graph.Node {
	out := make(map[string][]*graph.Node)
	for _, n := range a.g.Nodes {
		if n.Symbol == nil {
			continue
		}
		p := filepath.Clean(n.Symbol.Filepath)
		out[p] = append(out[p], n)
	}
	for _, nodes := range out {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].Symbol.StartLine < nodes[j].Symbol.StartLine })
	}
	return out
}

func (a *Analyzer) abs(path string) string {
	if a.root == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(a.root, path)
}
