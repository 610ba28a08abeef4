package graph

type RelationKind string

const (
	RelationEmbeds     RelationKind = "embeds"
	RelationBelongsTo  RelationKind = "belongs_to"
	RelationConstructs RelationKind = "constructs"
	RelationUsesType   RelationKind = "uses_type"
	RelationProduces   RelationKind = "produces"
)

type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonAmbiguous   UnresolvedReason = "ambiguous"
	ReasonNoImport    UnresolvedReason = "no_import"
)

// Directive is one `//relay:<name> args...` line of a doc comment.
type Directive struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
	Raw  string   `json:"raw"`
	// Ref is the parsed first argument when it is a plain type reference.
	Ref *TypeRef `json:"ref,omitempty"`
}

// Symbol is the graph-domain payload shared by types and funcs.
// It is intentionally decoupled from extractor.CodeUnit.
type Symbol struct {
	ID         string      `json:"id"`
	StableID   string      `json:"stable_id"`
	Name       string      `json:"name"`
	Package    string      `json:"package"`
	PkgPath    string      `json:"pkg_path"`
	Dir        string      `json:"dir"`
	Filepath   string      `json:"filepath"`
	StartLine  int         `json:"start_line"`
	EndLine    int         `json:"end_line"`
	Doc        string      `json:"doc,omitempty"`
	Directives []Directive `json:"directives,omitempty"`
}

// DirectivesNamed returns the directives with the given name in source order.
func (s *Symbol) DirectivesNamed(name string) []Directive {
	var out []Directive
	for _, d := range s.Directives {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// Field is a struct field. Embedded fields are named after their type.
type Field struct {
	Name     string  `json:"name"`
	Type     TypeRef `json:"type"`
	Embedded bool    `json:"embedded,omitempty"`
}

// Type is a declared type.
type Type struct {
	Symbol
	Kind             string   `json:"kind"` // struct, interface or type
	Fields           []Field  `json:"fields,omitempty"`
	InterfaceMethods []string `json:"interface_methods,omitempty"`
	Methods          []*Func  `json:"-"`
	Constructors     []*Func  `json:"-"`

	// IsFactory is set when the type carries at least one relay:factory directive.
	IsFactory bool `json:"is_factory,omitempty"`
}

// Ref returns a resolved reference to t itself.
func (t *Type) Ref() TypeRef {
	return TypeRef{Text: t.Name, Name: t.Name, PkgPath: t.PkgPath, Decl: t}
}

// Embeds returns the embedded fields in declaration order.
func (t *Type) Embeds() []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Embedded {
			out = append(out, f)
		}
	}
	return out
}

// DirectBase returns the first embedded field's type.
func (t *Type) DirectBase() (TypeRef, bool) {
	for _, f := range t.Fields {
		if f.Embedded {
			return f.Type, true
		}
	}
	return TypeRef{}, false
}

// HasExplicitBase reports whether t embeds anything.
func (t *Type) HasExplicitBase() bool {
	_, ok := t.DirectBase()
	return ok
}

// HasInterfaceMethods reports whether every name is in the interface's own method set.
func (t *Type) HasInterfaceMethods(names ...string) bool {
	if t.Kind != "interface" {
		return false
	}
	set := make(map[string]bool, len(t.InterfaceMethods))
	for _, m := range t.InterfaceMethods {
		set[m] = true
	}
	for _, n := range names {
		if !set[n] {
			return false
		}
	}
	return true
}

// Param is a func parameter. Injected is the relay:inject tag.
type Param struct {
	Name     string  `json:"name"`
	Type     TypeRef `json:"type"`
	Variadic bool    `json:"variadic,omitempty"`
	Injected bool    `json:"injected,omitempty"`
}

// Func is a top-level function or a method.
type Func struct {
	Symbol
	IsMethod     bool      `json:"is_method,omitempty"`
	ReceiverType string    `json:"receiver_type,omitempty"`
	Params       []Param   `json:"params"`
	Results      []TypeRef `json:"results"`
	Signature    string    `json:"signature"`

	// Owner is the receiver type of a method or the produced type of a constructor.
	Owner *Type `json:"-"`
}

// IsConstructor reports whether f was recognized as a constructor of Owner.
func (f *Func) IsConstructor() bool {
	return !f.IsMethod && f.Owner != nil
}

// ReturnsError reports whether the last result is error.
func (f *Func) ReturnsError() bool {
	return len(f.Results) > 1 && f.Results[len(f.Results)-1].Text == "error"
}

// Import is one import spec of a file.
type Import struct {
	Alias string `json:"alias,omitempty"`
	Path  string `json:"path"`
}

// InjectIssue is a relay:inject name that matches no parameter.
type InjectIssue struct {
	Func *Func
	Name string
}

// UnresolvedRef is a type reference no resolver could bind.
type UnresolvedRef struct {
	From   string           `json:"from"`
	Text   string           `json:"text"`
	File   string           `json:"file"`
	Reason UnresolvedReason `json:"reason"`
}

// RefSite is a type reference together with the scope it was written in.
type RefSite struct {
	Ref     *TypeRef
	From    string
	File    string
	Dir     string
	Package string
	Reason  UnresolvedReason
}
