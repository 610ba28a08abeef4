package matcher

import (
	"testing"

	"relaygen/internal/diag"
	"relaygen/internal/discovery"
	"relaygen/internal/graph"
	"relaygen/internal/graphtest"
	"relaygen/internal/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelSrc = `package model

type Entity struct {
	ID string
}

type Command struct {
	Entity
}

func NewCommand() *Command { return &Command{} }

type Deploy struct {
	Command
	Target string
}

func NewDeploy(target string) *Deploy { return &Deploy{Target: target} }

type Rollback struct {
	*Command
}

func NewRollback() Rollback { return Rollback{} }

type Other struct {
	Entity
}

func NewOther() *Other { return &Other{} }

type Plain struct{}

func NewPlain() *Plain { return &Plain{} }
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

//relay:factory model.Entity
//relay:factory model.Command
type Entities struct {
	services relay.Provider
}

//relay:factory model.Plain
type Plains struct {
	services relay.Provider
}
`

type fixture struct {
	g     *graph.Graph
	decls []*discovery.FactoryDeclaration
	cands []*discovery.ConstructorCandidate
}

func build(t *testing.T) fixture {
	g := graphtest.Build(t, map[string]string{
		"model/model.go": modelSrc,
		"app/app.go":     factorySrc,
	})
	r := diag.NewReporter()
	decls := discovery.Discover(g, discovery.Options{}, r)
	require.Empty(t, r.Diagnostics())
	require.Len(t, decls, 3)
	return fixture{g: g, decls: decls, cands: discovery.CollectCandidates(g)}
}

func names(bs []Binding) []string {
	var out []string
	for _, b := range bs {
		out = append(out, b.Candidate.Name)
	}
	return out
}

func TestMatchFactory(t *testing.T) {
	fx := build(t)
	m := New(fx.g, index.NewInheritance())

	t.Run("Direct subtypes only", func(t *testing.T) {
		got := m.MatchFactory(fx.decls[0], fx.cands)
		assert.Equal(t, []string{"NewDeploy", "NewRollback"}, names(got))
	})

	t.Run("One binding per candidate", func(t *testing.T) {
		got := m.MatchFactory(fx.decls[1], fx.cands)
		assert.Equal(t, []string{"NewCommand", "NewDeploy", "NewRollback", "NewOther"}, names(got))
		assert.Equal(t, "Entity", got[0].Target.Name)
		assert.Equal(t, "Command", got[1].Target.Name)
		assert.Equal(t, "Entity", got[3].Target.Name)
	})

	t.Run("Types without a base never bind", func(t *testing.T) {
		assert.Empty(t, m.MatchFactory(fx.decls[2], fx.cands))
	})

	t.Run("Factory order", func(t *testing.T) {
		all := m.Match(fx.decls, fx.cands)
		require.Len(t, all, 6)
		assert.Equal(t, "Commands", all[0].Factory.Name)
		assert.Equal(t, "Entities", all[5].Factory.Name)
	})
}

func TestDescends(t *testing.T) {
	fx := build(t)
	in := index.NewInheritance()
	byName := map[string]*discovery.ConstructorCandidate{}
	for _, c := range fx.cands {
		byName[c.Name] = c
	}

	commands := fx.decls[0]
	assert.True(t, Descends(fx.g, in, commands, byName["NewDeploy"]))
	assert.True(t, Descends(fx.g, in, commands, byName["NewRollback"]))
	assert.False(t, Descends(fx.g, in, commands, byName["NewCommand"]), "a type is not its own base")
	assert.False(t, Descends(fx.g, in, commands, byName["NewOther"]))
}

func TestDirectlyDerives(t *testing.T) {
	fx := build(t)
	var deploy *discovery.ConstructorCandidate
	for _, c := range fx.cands {
		if c.Name == "NewDeploy" {
			deploy = c
		}
	}
	require.NotNil(t, deploy)

	command := fx.g.TypeIn("example.com/app/model", "Command")
	entity := fx.g.TypeIn("example.com/app/model", "Entity")
	require.NotNil(t, command)

	assert.True(t, DirectlyDerives(command.Ref(), deploy))
	assert.False(t, DirectlyDerives(entity.Ref(), deploy), "transitive bases are not direct")

	byName := graph.TypeRef{Name: "COMMAND", PkgPath: "example.com/app/model"}
	assert.True(t, DirectlyDerives(byName, deploy), "names compare case-insensitively")
}

func TestDescends_AliasedImport(t *testing.T) {
	g := graphtest.Build(t, map[string]string{
		"model/model.go": `package model

type Entity struct{}

type Order struct {
	Entity
}

func NewOrder(id string) *Order { return &Order{} }
`,
		"app/app.go": `package app

import (
	m "example.com/app/model"
	"relaygen/relay"
)

//relay:factory m.Entity
type Entities struct {
	services relay.Provider
}
`,
	})
	r := diag.NewReporter()
	decls := discovery.Discover(g, discovery.Options{}, r)
	require.Empty(t, r.Diagnostics())
	require.Len(t, decls, 1)
	require.Equal(t, "example.com/app/model.Entity", decls[0].Targets[0].Qualified())

	cands := discovery.CollectCandidates(g)
	require.Len(t, cands, 1)

	assert.True(t, Descends(g, index.NewInheritance(), decls[0], cands[0]))
	assert.True(t, DirectlyDerives(decls[0].Targets[0], cands[0]))

	got := New(g, nil).MatchFactory(decls[0], cands)
	assert.Equal(t, []string{"NewOrder"}, names(got))
}
