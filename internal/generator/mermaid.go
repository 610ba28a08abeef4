package generator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"relaygen/internal/graph"
	"relaygen/internal/planner"
	"relaygen/internal/retrieval"
)

// MermaidGenerator draws factories, the types they create and the embedding graph.
type MermaidGenerator struct{}

// GenerateFactoryDiagram draws each factory with an edge per Create method.
func (m *MermaidGenerator) GenerateFactoryDiagram(plans []*planner.SynthesisPlan) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("classDiagram\n")

	declared := map[string]bool{}
	declare := func(id, label, stereotype string) {
		if declared[id] {
			return
		}
		declared[id] = true
		sb.WriteString(fmt.Sprintf("    class %s[\"%s\"] {\n", id, label))
		if stereotype != "" {
			sb.WriteString(fmt.Sprintf("        <<%s>>\n", stereotype))
		}
		sb.WriteString("    }\n")
	}

	for _, sp := range plans {
		factoryID := sanitizeMermaidID(sp.Name)
		declare(factoryID, sp.Name, "factory")
		for _, p := range sp.Plans {
			c := p.Candidate()
			typeID := sanitizeMermaidID(c.Type.Package + "_" + c.TypeName)
			declare(typeID, c.Type.Package+"."+c.TypeName, "")
			sb.WriteString(fmt.Sprintf("    %s ..> %s : %s()\n", factoryID, typeID, p.FuncName))

			targetID := sanitizeMermaidID(p.Binding.Target.Qualified())
			declare(targetID, p.Binding.Target.Name, "")
			sb.WriteString(fmt.Sprintf("    %s --|> %s\n", typeID, targetID))
		}
	}

	sb.WriteString("```\n")
	return sb.String()
}

// GenerateEmbeddingDiagram draws the embedding edges of the graph, grouped by package.
func (m *MermaidGenerator) GenerateEmbeddingDiagram(g *graph.Graph) string {
	type edge struct {
		from *graph.Type
		to   *graph.Type
	}
	var edges []edge
	byPkg := map[string][]*graph.Type{}
	seen := map[*graph.Type]bool{}
	add := func(t *graph.Type) {
		if !seen[t] {
			seen[t] = true
			byPkg[t.PkgPath] = append(byPkg[t.PkgPath], t)
		}
	}
	for _, e := range g.Edges {
		if e.Kind != graph.RelationEmbeds {
			continue
		}
		from, to := g.Nodes[e.From], g.Nodes[e.To]
		if from == nil || to == nil || from.Type == nil || to.Type == nil {
			continue
		}
		add(from.Type)
		add(to.Type)
		edges = append(edges, edge{from: from.Type, to: to.Type})
	}

	pkgs := make([]string, 0, len(byPkg))
	for p := range byPkg {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)

	id := func(t *graph.Type) string { return sanitizeMermaidID(t.PkgPath + "_" + t.Name) }

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph BT\n")
	for _, p := range pkgs {
		sb.WriteString(fmt.Sprintf("    subgraph %s[%q]\n", sanitizeMermaidID(p), p))
		for _, t := range byPkg[p] {
			label := t.Name
			if t.IsFactory {
				label += " (factory)"
			}
			sb.WriteString(fmt.Sprintf("        %s[%q]\n", id(t), label))
		}
		sb.WriteString("    end\n")
	}
	for _, e := range edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", id(e.from), id(e.to)))
	}
	sb.WriteString("```\n")
	return sb.String()
}

// GenerateSubgraphDiagram draws the nodes and edges of sub. Seeds are highlighted.
func (m *MermaidGenerator) GenerateSubgraphDiagram(g *graph.Graph, sub *retrieval.Subgraph) string {
	seeds := map[string]bool{}
	for _, id := range sub.SeedIDs {
		seeds[id] = true
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph LR\n")
	for _, id := range sub.NodeIDs {
		n := g.Nodes[id]
		if n == nil {
			continue
		}
		label := n.Symbol.Package + "." + n.Symbol.Name
		if n.Func != nil {
			label += "()"
		}
		sb.WriteString(fmt.Sprintf("    %s[%q]\n", sanitizeMermaidID(id), label))
		if seeds[id] {
			sb.WriteString(fmt.Sprintf("    style %s stroke-width:3px\n", sanitizeMermaidID(id)))
		}
	}
	for _, e := range sub.Edges {
		sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", sanitizeMermaidID(e.From), e.Kind, sanitizeMermaidID(e.To)))
	}
	sb.WriteString("```\n")
	return sb.String()
}

var mermaidIDRe = regexp.MustCompile(`[^a-z0-9_]`)

func sanitizeMermaidID(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "node"
	}
	v = mermaidIDRe.ReplaceAllString(strings.ReplaceAll(v, "-", "_"), "_")
	if v[0] >= '0' && v[0] <= '9' {
		v = "n_" + v
	}
	return v
}
