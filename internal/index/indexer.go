package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"relaygen/internal/crawler"
	"relaygen/internal/extractor"
	"relaygen/internal/graph"
	"relaygen/internal/resolver"

	"golang.org/x/mod/modfile"
)

// Indexer orchestrates codebase indexing and graph management.
type Indexer struct {
	crawler *crawler.Crawler
	chain   *resolver.ResolverChain

	// LastStages holds the resolver report of the most recent build.
	LastStages []resolver.StageResult
}

// NewIndexer creates a new indexer.
func NewIndexer(c *crawler.Crawler) *Indexer {
	return &Indexer{
		crawler: c,
		chain:   resolver.NewDefaultChain(),
	}
}

// BuildGraph scans the project root and constructs a linked, resolved graph.
// modulePath overrides the go.mod module path when not empty.
func (i *Indexer) BuildGraph(ctx context.Context, root, modulePath string) (*graph.Graph, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	if modulePath == "" {
		modulePath, err = ReadModulePath(absRoot)
		if err != nil {
			return nil, err
		}
	}

	g := graph.NewGraph()
	g.Root = absRoot
	g.ModulePath = modulePath

	err = i.crawler.ScanProject(ctx, absRoot, func(unit *extractor.CodeUnit) {
		g.AddUnit(unit)
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	i.Relink(g)
	return g, nil
}

// Relink rebuilds derived graph state after units changed.
func (i *Indexer) Relink(g *graph.Graph) {
	g.LinkRelations()
	i.LastStages = i.chain.Run(g)
}

// ReadModulePath returns the module path of root/go.mod, or "" without one.
func ReadModulePath(root string) (string, error) {
	path := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	mod := modfile.ModulePath(data)
	if mod == "" {
		return "", fmt.Errorf("no module directive in %s", path)
	}
	return mod, nil
}

// SaveGraph writes a JSON snapshot of the declared types and funcs.
func (i *Indexer) SaveGraph(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer f.Close()

	snapshot := struct {
		Module string        `json:"module"`
		Types  []*graph.Type `json:"types"`
		Funcs  []*graph.Func `json:"funcs"`
		Edges  []graph.Edge  `json:"edges"`
		Stats  graph.Stats   `json:"stats"`
	}{g.ModulePath, g.Types, g.Funcs, g.Edges, g.Stats()}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}
