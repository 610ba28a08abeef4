package planner

import (
	"path/filepath"
	"testing"

	"relaygen/internal/diag"
	"relaygen/internal/discovery"
	"relaygen/internal/graph"
	"relaygen/internal/graphtest"
	"relaygen/internal/index"
	"relaygen/internal/matcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelSrc = `package model

type Clock interface {
	Now() int64
}

type Logger interface {
	Log(msg string)
}

type Command struct {
	ID string
}

type Deploy struct {
	Command
}

//relay:inject primary logger backup
func NewDeploy(target string, primary Clock, logger Logger, backup Clock, extra ...string) (*Deploy, error) {
	return &Deploy{}, nil
}

type Rollback struct {
	Command
}

func NewRollback() Rollback { return Rollback{} }
`

const factorySrc = `package app

import (
	"example.com/app/model"
	"relaygen/relay"
)

//relay:factory model.Command
type Commands struct {
	services relay.Provider
}

func (c *Commands) CreateDeploy() {}

func (c *Commands) interceptDeploy(d *model.Deploy) *model.Deploy { return d }
func (c *Commands) interceptRollback(r model.Rollback)           {}
func (c *Commands) interceptAny(v any) any                       { return v }
func (c *Commands) interceptLog(v any)                           {}
`

func synthesize(t *testing.T) *SynthesisPlan {
	g := graphtest.Build(t, map[string]string{
		"model/model.go": modelSrc,
		"app/app.go":     factorySrc,
	})
	r := diag.NewReporter()
	decls := discovery.Discover(g, discovery.Options{}, r)
	require.Len(t, decls, 1)
	bindings := matcher.New(g, index.NewInheritance()).MatchFactory(decls[0], discovery.CollectCandidates(g))
	require.Len(t, bindings, 2)
	return Synthesize(decls[0], bindings)
}

func TestSynthesize(t *testing.T) {
	sp := synthesize(t)

	assert.Equal(t, "Commands", sp.Name)
	assert.Equal(t, filepath.Join("app", "commands_relay.gen.go"), sp.Output)
	require.Len(t, sp.Plans, 2)

	t.Run("Names avoid existing members", func(t *testing.T) {
		assert.Equal(t, "CreateModelDeploy", sp.Plans[0].FuncName)
		assert.Equal(t, "CreateRollback", sp.Plans[1].FuncName)
	})

	t.Run("Resolution groups by service type", func(t *testing.T) {
		res := sp.Plans[0].Resolution
		assert.Equal(t, []int{0, 4}, res.Passthrough)
		require.Len(t, res.Steps, 2)

		assert.Equal(t, StepCyclic, res.Steps[0].Kind)
		assert.Equal(t, []int{1, 3}, res.Steps[0].Params)
		assert.Equal(t, "Clock", res.Steps[0].Service.Name)

		assert.Equal(t, StepDirect, res.Steps[1].Kind)
		assert.Equal(t, []int{2}, res.Steps[1].Params)
		assert.Equal(t, 3, res.Injected())
	})

	t.Run("Exact hook assigns", func(t *testing.T) {
		set := sp.Plans[0].Interceptors
		require.NotNil(t, set.Exact)
		assert.Equal(t, "interceptDeploy", set.Exact.Name)
		assert.True(t, set.ExactAssigns())
		require.NotNil(t, set.Object)
		assert.Equal(t, "interceptAny", set.Object.Name)
		assert.Nil(t, set.Void, "object and void hooks are exclusive")
	})

	t.Run("Void exact hook for value types", func(t *testing.T) {
		set := sp.Plans[1].Interceptors
		require.NotNil(t, set.Exact)
		assert.Equal(t, "interceptRollback", set.Exact.Name)
		assert.False(t, set.ExactAssigns())
		assert.Empty(t, sp.Plans[1].Resolution.Steps)
	})
}

func TestPlanResolution_SingleInjected(t *testing.T) {
	clock := graph.TypeRef{Text: "Clock", Name: "Clock", PkgPath: "example.com/app/model"}
	c := &discovery.ConstructorCandidate{Params: []discovery.Param{
		{Name: "name", Type: graph.ParseTypeRef("string")},
		{Name: "clock", Type: clock, Injected: true},
	}}

	res := PlanResolution(c)
	assert.Equal(t, []int{0}, res.Passthrough)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, StepDirect, res.Steps[0].Kind)
	assert.Equal(t, []int{1}, res.Steps[0].Params)
}

func TestPlanResolution_PointerIsADistinctService(t *testing.T) {
	c := &discovery.ConstructorCandidate{Params: []discovery.Param{
		{Name: "a", Type: graph.ParseTypeRef("Conn"), Injected: true},
		{Name: "b", Type: graph.ParseTypeRef("*Conn"), Injected: true},
	}}
	res := PlanResolution(c)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, StepDirect, res.Steps[0].Kind)
	assert.Equal(t, StepDirect, res.Steps[1].Kind)
}

func TestBindInterceptors(t *testing.T) {
	widget := graph.TypeRef{Text: "*Widget", Prefix: "*", Name: "Widget", PkgPath: "example.com/app/w"}
	anyRef := graph.ParseTypeRef("any")
	other := graph.TypeRef{Text: "*Gadget", Prefix: "*", Name: "Gadget", PkgPath: "example.com/app/w"}

	tests := []struct {
		name   string
		hooks  []discovery.Hook
		exact  string
		object string
		void   string
	}{
		{
			name:  "none",
			hooks: nil,
		},
		{
			name:  "void only",
			hooks: []discovery.Hook{{Name: "interceptLog", Param: anyRef}},
			void:  "interceptLog",
		},
		{
			name: "exact from any parameter",
			hooks: []discovery.Hook{
				{Name: "interceptGadget", Param: other, Result: &other},
				{Name: "interceptWidget", Param: anyRef, Result: &widget},
			},
			exact: "interceptWidget",
		},
		{
			name: "returning exact wins over void exact",
			hooks: []discovery.Hook{
				{Name: "interceptSee", Param: widget},
				{Name: "interceptWidget", Param: widget, Result: &widget},
				{Name: "interceptLog", Param: anyRef},
			},
			exact: "interceptWidget",
			void:  "interceptLog",
		},
		{
			name: "object excludes void",
			hooks: []discovery.Hook{
				{Name: "interceptLog", Param: anyRef},
				{Name: "interceptAny", Param: anyRef, Result: &anyRef},
			},
			object: "interceptAny",
		},
	}

	name := func(h *discovery.Hook) string {
		if h == nil {
			return ""
		}
		return h.Name
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := BindInterceptors(tt.hooks, widget)
			assert.Equal(t, tt.exact, name(set.Exact))
			assert.Equal(t, tt.object, name(set.Object))
			assert.Equal(t, tt.void, name(set.Void))
			assert.Equal(t, tt.exact == "" && tt.object == "" && tt.void == "", set.Empty())
		})
	}
}

func TestNameSet(t *testing.T) {
	owner := &graph.Type{Symbol: graph.Symbol{Name: "Widget", Package: "shop"}}
	factory := &graph.Type{Fields: []graph.Field{{Name: "CreateWidget"}}}
	s := newNameSet(factory)

	c := &discovery.ConstructorCandidate{Name: "New", TypeName: "Widget", Type: owner}
	assert.Equal(t, "CreateShopWidget", s.claim(c))
	assert.Equal(t, "CreateShopWidget2", s.claim(c))

	other := &discovery.ConstructorCandidate{Name: "NewGadget", TypeName: "Gadget", Type: owner}
	assert.Equal(t, "CreateGadget", s.claim(other))
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "commands", SnakeCase("Commands"))
	assert.Equal(t, "via_getter", SnakeCase("ViaGetter"))
	assert.Equal(t, "http_factory", SnakeCase("HTTPFactory"))
	assert.Equal(t, "v2_factory", SnakeCase("V2Factory"))
}
