// Package graphtest builds resolved graphs from inline Go sources for tests.
package graphtest

import (
	"sort"
	"testing"

	"relaygen/internal/extractor"
	"relaygen/internal/graph"
	"relaygen/internal/resolver"

	"github.com/stretchr/testify/require"
)

// Module is the module path used by Build.
const Module = "example.com/app"

// Build extracts files (relative path -> source), links and resolves them.
func Build(t testing.TB, files map[string]string) *graph.Graph {
	t.Helper()
	ext, err := extractor.NewExtractor("go")
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	g := graph.NewGraph()
	g.ModulePath = Module
	for _, p := range paths {
		units, err := ext.ExtractFromSource(p, []byte(files[p]))
		require.NoError(t, err)
		for _, u := range units {
			g.AddUnit(u)
		}
	}
	g.LinkRelations()
	resolver.NewDefaultChain().Run(g)
	return g
}

// RelaySource is a stand-in for the runtime package inside the test module.
const RelaySource = `package relay

import "reflect"

type Cursor interface {
	Next() bool
	Value() any
	Reset()
}

type Provider interface {
	Required(t reflect.Type) (any, error)
	All(t reflect.Type) Cursor
}
`
