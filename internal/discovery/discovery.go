package discovery

import (
	"strings"

	"relaygen/internal/diag"
	"relaygen/internal/graph"
)

const (
	DefaultProviderPkgPath = "relaygen/relay"
	DefaultProviderName    = "Provider"

	hookPrefix = "intercept"
)

// Options selects the provider capability.
type Options struct {
	ProviderPkgPath string
	ProviderName    string
}

func (o Options) withDefaults() Options {
	if o.ProviderPkgPath == "" {
		o.ProviderPkgPath = DefaultProviderPkgPath
	}
	if o.ProviderName == "" {
		o.ProviderName = DefaultProviderName
	}
	return o
}

// ProviderType is the provider type as users write it, for messages.
func (o Options) ProviderType() string {
	o = o.withDefaults()
	return graph.PackageNameOf(o.ProviderPkgPath) + "." + o.ProviderName
}

type MemberKind string

const (
	MemberField  MemberKind = "field"
	MemberMethod MemberKind = "method"
)

// ProviderMember is the factory member generated code resolves services through.
type ProviderMember struct {
	Name string        `json:"name"`
	Type graph.TypeRef `json:"type"`
	Kind MemberKind    `json:"kind"`
}

// Access is the Go expression reaching the provider from receiver recv.
func (m ProviderMember) Access(recv string) string {
	if m.Kind == MemberMethod {
		return recv + "." + m.Name + "()"
	}
	return recv + "." + m.Name
}

// Hook is an interceptor method: unexported, named intercept*, one parameter, at most one result.
type Hook struct {
	Name   string         `json:"name"`
	Param  graph.TypeRef  `json:"param"`
	Result *graph.TypeRef `json:"result,omitempty"`
}

// FactoryDeclaration is a validated factory.
type FactoryDeclaration struct {
	Type *graph.Type `json:"-"`
	Name string      `json:"name"`
	// TargetTexts are the directive arguments as written, parallel to Targets.
	TargetTexts []string        `json:"target_texts"`
	Targets     []graph.TypeRef `json:"targets"`
	Provider    ProviderMember  `json:"provider"`
	Hooks       []Hook          `json:"hooks,omitempty"`
}

// Discover builds a declaration for every factory of g in declaration order.
func Discover(g *graph.Graph, opts Options, sink diag.Sink) []*FactoryDeclaration {
	var out []*FactoryDeclaration
	for _, t := range g.FactoryTypes() {
		if decl, ok := DiscoverFactory(t, opts, sink); ok {
			out = append(out, decl)
		}
	}
	return out
}

// DiscoverFactory validates one factory type. Directives are checked first, the provider second.
func DiscoverFactory(t *graph.Type, opts Options, sink diag.Sink) (*FactoryDeclaration, bool) {
	opts = opts.withDefaults()
	decl := &FactoryDeclaration{Type: t, Name: t.Name}

	for _, d := range t.DirectivesNamed("factory") {
		if d.Ref == nil {
			sink.Report(diag.InvalidAnnotation(t, d))
			continue
		}
		decl.TargetTexts = append(decl.TargetTexts, d.Args[0])
		decl.Targets = append(decl.Targets, *d.Ref)
	}

	member, ok := findProvider(t, opts)
	if !ok {
		sink.Report(diag.MissingProvider(t, opts.ProviderType()))
		return nil, false
	}
	if len(decl.Targets) == 0 {
		return nil, false
	}

	decl.Provider = member
	decl.Hooks = collectHooks(t)
	return decl, true
}

// findProvider returns the first field, then the first getter method, of provider type.
func findProvider(t *graph.Type, opts Options) (ProviderMember, bool) {
	for _, f := range t.Fields {
		if isProvider(f.Type, opts) {
			return ProviderMember{Name: f.Name, Type: f.Type, Kind: MemberField}, true
		}
	}
	for _, m := range t.Methods {
		if len(m.Params) != 0 || len(m.Results) != 1 {
			continue
		}
		if isProvider(m.Results[0], opts) {
			return ProviderMember{Name: m.Name, Type: m.Results[0], Kind: MemberMethod}, true
		}
	}
	return ProviderMember{}, false
}

// isProvider matches the configured type nominally, or any local interface structurally.
func isProvider(ref graph.TypeRef, opts Options) bool {
	if ref.Prefix != "" {
		return false
	}
	if ref.PkgPath == opts.ProviderPkgPath && ref.Name == opts.ProviderName {
		return true
	}
	return ref.Decl != nil && ref.Decl.HasInterfaceMethods("Required", "All")
}

func collectHooks(t *graph.Type) []Hook {
	var hooks []Hook
	for _, m := range t.Methods {
		if !strings.HasPrefix(m.Name, hookPrefix) || len(m.Params) != 1 || len(m.Results) > 1 || m.Params[0].Variadic {
			continue
		}
		h := Hook{Name: m.Name, Param: m.Params[0].Type}
		if len(m.Results) == 1 {
			r := m.Results[0]
			h.Result = &r
		}
		hooks = append(hooks, h)
	}
	return hooks
}
