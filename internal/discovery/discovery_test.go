package discovery

import (
	"testing"

	"relaygen/internal/diag"
	"relaygen/internal/graphtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelSrc = `package model

type Clock interface {
	Now() int64
}

type Command struct {
	ID string
}

type Deploy struct {
	Command
	Target string
}

// NewDeploy builds a deploy command.
//
//relay:inject clock ghost
func NewDeploy(target string, clock Clock) (*Deploy, error) {
	return &Deploy{Target: target}, nil
}

func NewDeployDryRun(target string) Deploy {
	return Deploy{Target: target}
}

type Orphan struct {
	Name string
}

func NewOrphan() *Orphan { return &Orphan{} }
`

const factorySrc = `package app

import (
	"example.com/app/model"
	"relaygen/relay"
	lr "example.com/app/relay"
)

// Commands builds commands.
//
//relay:factory model.Command
//relay:factory map[string]int
//relay:factory
type Commands struct {
	name     string
	services relay.Provider
}

func (c *Commands) interceptDeploy(d *model.Deploy) *model.Deploy { return d }
func (c *Commands) interceptAny(v any) any                       { return v }
func (c *Commands) interceptLog(v any)                           {}
func (c *Commands) interceptTwo(a, b any)                        {}
func (c *Commands) helper(v any)                                 {}

//relay:factory model.Command
type Lonely struct {
	name string
}

//relay:factory Nope[int]
type AllInvalid struct {
	services relay.Provider
}

//relay:factory model.Command
type ViaGetter struct {
	inner *Commands
}

func (v *ViaGetter) Services() lr.Provider { return nil }
`

func build(t *testing.T) (*Fixture, *diag.Reporter) {
	g := graphtest.Build(t, map[string]string{
		"model/model.go": modelSrc,
		"app/factory.go": factorySrc,
		"relay/relay.go": graphtest.RelaySource,
	})
	r := diag.NewReporter()
	return &Fixture{decls: Discover(g, Options{}, r), cands: CollectCandidates(g)}, r
}

type Fixture struct {
	decls []*FactoryDeclaration
	cands []*ConstructorCandidate
}

func TestDiscover(t *testing.T) {
	fx, r := build(t)

	t.Run("Valid factories only", func(t *testing.T) {
		require.Len(t, fx.decls, 2)
		assert.Equal(t, "Commands", fx.decls[0].Name)
		assert.Equal(t, "ViaGetter", fx.decls[1].Name)
	})

	t.Run("Targets skip invalid directives", func(t *testing.T) {
		d := fx.decls[0]
		assert.Equal(t, []string{"model.Command"}, d.TargetTexts)
		require.Len(t, d.Targets, 1)
		require.NotNil(t, d.Targets[0].Decl)
		assert.Equal(t, "example.com/app/model.Command", d.Targets[0].Qualified())
	})

	t.Run("Provider field", func(t *testing.T) {
		p := fx.decls[0].Provider
		assert.Equal(t, ProviderMember{Name: "services", Type: p.Type, Kind: MemberField}, p)
		assert.Equal(t, "c.services", p.Access("c"))
	})

	t.Run("Structural provider through getter", func(t *testing.T) {
		p := fx.decls[1].Provider
		assert.Equal(t, MemberMethod, p.Kind)
		assert.Equal(t, "v.Services()", p.Access("v"))
	})

	t.Run("Hooks", func(t *testing.T) {
		hooks := fx.decls[0].Hooks
		require.Len(t, hooks, 3)
		assert.Equal(t, "interceptDeploy", hooks[0].Name)
		require.NotNil(t, hooks[0].Result)
		assert.True(t, hooks[1].Param.IsAny())
		assert.Nil(t, hooks[2].Result)
	})

	t.Run("Diagnostics in factory order", func(t *testing.T) {
		var codes []diag.Code
		var factories []string
		for _, d := range r.Diagnostics() {
			codes = append(codes, d.Code)
			factories = append(factories, d.Factory)
		}
		assert.Equal(t, []diag.Code{
			diag.CodeInvalidAnnotation, diag.CodeInvalidAnnotation,
			diag.CodeMissingProvider,
			diag.CodeInvalidAnnotation,
		}, codes)
		assert.Equal(t, []string{"Commands", "Commands", "Lonely", "AllInvalid"}, factories)
	})
}

func TestCollectCandidates(t *testing.T) {
	fx, _ := build(t)

	require.Len(t, fx.cands, 2, "Orphan has no embedded base")
	deploy := fx.cands[0]
	assert.Equal(t, "NewDeploy", deploy.Name)
	assert.Equal(t, "Deploy", deploy.TypeName)
	assert.True(t, deploy.ReturnsError)
	assert.Equal(t, "*", deploy.Produces.Prefix)
	require.Len(t, deploy.Params, 2)
	assert.False(t, deploy.Params[0].Injected)
	assert.True(t, deploy.Params[1].Injected)

	dry := fx.cands[1]
	assert.Equal(t, "NewDeployDryRun", dry.Name)
	assert.False(t, dry.ReturnsError)
	assert.Empty(t, dry.Produces.Prefix)
}

func TestReportInjectIssues(t *testing.T) {
	g := graphtest.Build(t, map[string]string{"model/model.go": modelSrc})
	r := diag.NewReporter()
	ReportInjectIssues(g, r)

	ds := r.Diagnostics()
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeUnknownInjectParameter, ds[0].Code)
	assert.Contains(t, ds[0].Message, `"ghost"`)
	assert.False(t, r.HasErrors())
}

func TestOptions(t *testing.T) {
	assert.Equal(t, "relay.Provider", Options{}.ProviderType())
	assert.Equal(t, "di.Container", Options{ProviderPkgPath: "example.com/di", ProviderName: "Container"}.ProviderType())
}
