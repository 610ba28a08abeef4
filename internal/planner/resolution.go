// Package planner turns relay bindings into what the renderer emits: which
// constructor parameters the caller supplies, which the provider resolves and how,
// and which interceptor hooks run on the result.
package planner

import (
	"relaygen/internal/discovery"
	"relaygen/internal/graph"
)

type StepKind string

const (
	// StepDirect resolves one parameter with relay.Required.
	StepDirect StepKind = "direct"
	// StepCyclic resolves several parameters of one service type with relay.Cyclic.
	StepCyclic StepKind = "cyclic"
)

// Step resolves the injected parameters at Params (indices into the constructor's parameters).
type Step struct {
	Kind    StepKind      `json:"kind"`
	Service graph.TypeRef `json:"service"`
	Params  []int         `json:"params"`
}

// Resolution is the parameter half of a plan.
type Resolution struct {
	// Passthrough are indices of caller supplied parameters, in declared order.
	Passthrough []int  `json:"passthrough"`
	Steps       []Step `json:"steps"`
}

// PlanResolution groups injected parameters by service type, groups ordered by first occurrence.
func PlanResolution(c *discovery.ConstructorCandidate) Resolution {
	var res Resolution
	groups := make(map[string]int)

	for i, p := range c.Params {
		if !p.Injected {
			res.Passthrough = append(res.Passthrough, i)
			continue
		}
		key := p.Type.Key()
		if at, ok := groups[key]; ok {
			res.Steps[at].Params = append(res.Steps[at].Params, i)
			res.Steps[at].Kind = StepCyclic
			continue
		}
		groups[key] = len(res.Steps)
		res.Steps = append(res.Steps, Step{Kind: StepDirect, Service: p.Type, Params: []int{i}})
	}
	return res
}

// Injected reports how many parameters the provider resolves.
func (r Resolution) Injected() int {
	n := 0
	for _, s := range r.Steps {
		n += len(s.Params)
	}
	return n
}
