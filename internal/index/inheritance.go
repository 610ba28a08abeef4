package index

import (
	"sync"

	"relaygen/internal/graph"
)

// Inheritance answers transitive is-a queries over the first-embedded chain of one graph.
// Answers are memoized; the cache is safe for concurrent use.
type Inheritance struct {
	mu     sync.Mutex
	chains map[*graph.Type][]*graph.Type
}

func NewInheritance() *Inheritance {
	return &Inheritance{chains: make(map[*graph.Type][]*graph.Type)}
}

// Descends reports whether base appears in t's chain of direct bases.
// t itself is not part of its own chain.
func (in *Inheritance) Descends(t, base *graph.Type) bool {
	if t == nil || base == nil {
		return false
	}
	for _, b := range in.Chain(t) {
		if b == base {
			return true
		}
	}
	return false
}

// Chain returns the resolved direct bases of t, nearest first. Cycles through pointer embedding stop the walk.
func (in *Inheritance) Chain(t *graph.Type) []*graph.Type {
	in.mu.Lock()
	defer in.mu.Unlock()

	if chain, ok := in.chains[t]; ok {
		return chain
	}

	var chain []*graph.Type
	seen := map[*graph.Type]bool{t: true}
	current := t
	for {
		base, ok := current.DirectBase()
		if !ok || base.Decl == nil || seen[base.Decl] {
			break
		}
		chain = append(chain, base.Decl)
		seen[base.Decl] = true
		current = base.Decl
	}
	in.chains[t] = chain
	return chain
}

// Size is the number of memoized chains.
func (in *Inheritance) Size() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.chains)
}
