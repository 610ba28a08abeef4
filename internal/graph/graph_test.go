package graph

import (
	"testing"

	"relaygen/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func structUnit(file, pkg, name string, line int, doc string, fields ...extractor.GoField) *extractor.CodeUnit {
	return &extractor.CodeUnit{
		ID: file + ":" + name, Filepath: file, Package: pkg, Name: name, StartLine: line,
		UnitType: extractor.UnitStruct, Description: doc,
		Details: extractor.GoTypeDetails{Fields: fields},
	}
}

func funcUnit(file, pkg, name string, line int, doc string, params []extractor.GoParam, returns ...string) *extractor.CodeUnit {
	d := extractor.GoFunctionDetails{Name: name, Parameters: params}
	for _, r := range returns {
		d.Returns = append(d.Returns, extractor.GoReturn{Type: r})
	}
	return &extractor.CodeUnit{
		ID: file + ":" + name, Filepath: file, Package: pkg, Name: name, StartLine: line,
		UnitType: extractor.UnitFunction, Description: doc, Details: d,
	}
}

func methodUnit(file, pkg, recv, name string, line int) *extractor.CodeUnit {
	return &extractor.CodeUnit{
		ID: file + ":" + recv + "." + name, Filepath: file, Package: pkg, Name: name, StartLine: line,
		UnitType: extractor.UnitMethod,
		Details:  extractor.GoFunctionDetails{Name: name, ReceiverType: recv},
	}
}

func TestGraph_LinkRelations(t *testing.T) {
	g := NewGraph()
	g.ModulePath = "example.com/app"

	g.AddUnit(structUnit("svc/widget.go", "svc", "Widget", 10, "", extractor.GoField{Name: "Entity", Type: "*Entity", Embedded: true}))
	g.AddUnit(structUnit("svc/entity.go", "svc", "Entity", 3, ""))
	g.AddUnit(funcUnit("svc/widget.go", "svc", "NewWidget", 20, "relay:inject store missing",
		[]extractor.GoParam{{Name: "name", Type: "string"}, {Name: "store", Type: "Store"}}, "*Widget", "error"))
	g.AddUnit(funcUnit("svc/widget.go", "svc", "NewCounter", 30, "", nil, "int"))
	g.AddUnit(funcUnit("svc/widget.go", "svc", "NewPair", 40, "", nil, "*Widget", "bool"))
	g.AddUnit(structUnit("app/factory.go", "app", "Factory", 5, "Factory builds.\nrelay:factory svc.Entity\nrelay:factory"))
	g.AddUnit(methodUnit("app/factory.go", "app", "Factory", "interceptWidget", 12))

	g.LinkRelations()

	t.Run("Declaration order", func(t *testing.T) {
		require.Len(t, g.Types, 3)
		assert.Equal(t, "Factory", g.Types[0].Name)
		assert.Equal(t, "Entity", g.Types[1].Name)
		assert.Equal(t, "Widget", g.Types[2].Name)
	})

	t.Run("Package paths", func(t *testing.T) {
		assert.Equal(t, "example.com/app/svc", g.Types[1].PkgPath)
		assert.Equal(t, "app", g.PackageName("example.com/app/app"))
	})

	t.Run("Constructors", func(t *testing.T) {
		widget := g.TypeAt("svc", "Widget")
		require.NotNil(t, widget)
		require.Len(t, widget.Constructors, 1, "NewPair has a non-error second result")
		ctor := widget.Constructors[0]
		assert.True(t, ctor.IsConstructor())
		assert.True(t, ctor.ReturnsError())
		assert.False(t, ctor.Params[0].Injected)
		assert.True(t, ctor.Params[1].Injected)
	})

	t.Run("Inject issues", func(t *testing.T) {
		require.Len(t, g.InjectIssues, 1)
		assert.Equal(t, "missing", g.InjectIssues[0].Name)
		assert.Equal(t, "NewWidget", g.InjectIssues[0].Func.Name)
	})

	t.Run("Factory tags", func(t *testing.T) {
		factory := g.TypeAt("app", "Factory")
		require.NotNil(t, factory)
		assert.True(t, factory.IsFactory)
		dirs := factory.DirectivesNamed("factory")
		require.Len(t, dirs, 2)
		require.NotNil(t, dirs[0].Ref)
		assert.Equal(t, "svc", dirs[0].Ref.PkgName)
		assert.Nil(t, dirs[1].Ref)
		require.Len(t, factory.Methods, 1)
		assert.Equal(t, []*Type{factory}, g.FactoryTypes())
	})

	t.Run("Direct base", func(t *testing.T) {
		base, ok := g.TypeAt("svc", "Widget").DirectBase()
		require.True(t, ok)
		assert.Equal(t, "*", base.Prefix)
		assert.Equal(t, "Entity", base.Name)
		assert.False(t, g.TypeAt("svc", "Entity").HasExplicitBase())
	})

	t.Run("Heuristic lookup", func(t *testing.T) {
		found := g.Lookup("*Entity", "app")
		require.Len(t, found, 1)
		assert.Equal(t, "Entity", found[0].Name)

		found = g.Lookup("svc.Entity", "app")
		require.Len(t, found, 1)
		assert.Empty(t, g.Lookup("Nope", "svc"))
	})

	t.Run("Relink is idempotent", func(t *testing.T) {
		g.LinkRelations()
		assert.Len(t, g.Types, 3)
		assert.Len(t, g.InjectIssues, 1)
		assert.Len(t, g.TypeAt("svc", "Widget").Constructors, 1)
	})

	t.Run("Remove file", func(t *testing.T) {
		assert.Equal(t, 2, g.RemoveFile("app/factory.go"))
		g.LinkRelations()
		assert.Empty(t, g.FactoryTypes())
	})
}

func TestGraph_EdgesAndDependents(t *testing.T) {
	g := NewGraph()
	g.AddUnit(structUnit("a/a.go", "a", "Base", 1, ""))
	g.AddUnit(structUnit("a/a.go", "a", "Derived", 5, "", extractor.GoField{Name: "Base", Type: "Base", Embedded: true}))

	g.LinkRelations()
	// Resolve by hand; the resolver package owns this in production.
	for _, s := range g.Sites() {
		s.Ref.Decl = g.TypeAt(s.Dir, s.Ref.Name)
	}
	g.BuildEdges()

	base := g.TypeAt("a", "Base")
	dependents := g.GetDependents(base.ID)
	require.Len(t, dependents, 1)
	assert.Equal(t, "Derived", dependents[0].Type.Name)
	assert.Equal(t, RelationEmbeds, g.Edges[0].Kind)
	assert.Len(t, g.GetDependencies(g.TypeAt("a", "Derived").ID), 1)
}

func TestParseTypeRef(t *testing.T) {
	tests := []struct {
		text    string
		prefix  string
		pkg     string
		name    string
		builtin bool
		opaque  bool
	}{
		{"Widget", "", "", "Widget", false, false},
		{"*svc.Widget", "*", "svc", "Widget", false, false},
		{"[]*Conn", "[]*", "", "Conn", false, false},
		{"string", "", "", "string", true, false},
		{"interface{}", "", "", "any", true, false},
		{"map[string]svc.Conn", "", "", "map[string]svc.Conn", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ref := ParseTypeRef(tt.text)
			assert.Equal(t, tt.prefix, ref.Prefix)
			assert.Equal(t, tt.pkg, ref.PkgName)
			assert.Equal(t, tt.name, ref.Name)
			assert.Equal(t, tt.builtin, ref.Builtin)
			assert.Equal(t, tt.opaque, ref.Opaque)
		})
	}

	assert.Equal(t, []string{"svc"}, ParseTypeRef("map[string]svc.Conn").Qualifiers())
	assert.True(t, ParseTypeRef("any").IsAny())
	assert.False(t, ParseTypeRef("*any").IsAny())
}

func TestTypeRef_Same(t *testing.T) {
	decl := &Type{Symbol: Symbol{Name: "Widget", PkgPath: "example.com/app/svc"}}
	a := TypeRef{Text: "Widget", Name: "Widget", PkgPath: decl.PkgPath, Decl: decl}
	b := TypeRef{Text: "svc.Widget", PkgName: "svc", Name: "Widget", PkgPath: decl.PkgPath, Decl: decl}
	assert.True(t, a.Same(b))

	ptr := b
	ptr.Prefix = "*"
	assert.False(t, a.Same(ptr))
	assert.True(t, a.Same(ptr.Elem()))

	external := TypeRef{Name: "Widget", PkgPath: decl.PkgPath}
	assert.True(t, a.Same(external), "falls back to qualified keys")
}

func TestParseDirectives(t *testing.T) {
	dirs := ParseDirectives("Doc line.\n\nrelay:factory Widget\nrelay:inject a b\nrelay:")
	require.Len(t, dirs, 3)
	assert.Equal(t, "factory", dirs[0].Name)
	assert.Equal(t, []string{"Widget"}, dirs[0].Args)
	assert.Equal(t, []string{"a", "b"}, dirs[1].Args)
	assert.Empty(t, dirs[2].Name)
}

func TestPackageNameOf(t *testing.T) {
	assert.Equal(t, "yaml", PackageNameOf("gopkg.in/yaml.v3"))
	assert.Equal(t, "jsonschema", PackageNameOf("github.com/santhosh-tekuri/jsonschema/v5"))
	assert.Equal(t, "sqlite3", PackageNameOf("github.com/mattn/go-sqlite3"))
	assert.Equal(t, "relay", PackageNameOf("relaygen/relay"))
}
