package graph

import (
	"regexp"
	"strings"
)

var (
	identRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	qualifiedRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)$`)
	qualifierRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.[A-Za-z_]`)
)

var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
}

// TypeRef is a type expression as written plus what it resolved to.
type TypeRef struct {
	Text    string `json:"text"`
	Prefix  string `json:"prefix,omitempty"`   // "*", "[]", "[]*", ...
	PkgName string `json:"pkg_name,omitempty"` // qualifier as written
	PkgPath string `json:"pkg_path,omitempty"`
	Name    string `json:"name"`
	Builtin bool   `json:"builtin,omitempty"`
	// Opaque marks composite expressions (maps, funcs, generics) kept verbatim.
	Opaque bool `json:"opaque,omitempty"`
	// Qualifiers of an opaque expression mapped to import paths.
	Imports map[string]string `json:"imports,omitempty"`

	Decl *Type `json:"-"`
}

// ParseTypeRef splits a type expression into prefix, qualifier and name.
func ParseTypeRef(text string) TypeRef {
	text = strings.TrimSpace(text)
	ref := TypeRef{Text: text}

	rest := text
	for {
		switch {
		case strings.HasPrefix(rest, "*"):
			rest = rest[1:]
			continue
		case strings.HasPrefix(rest, "[]"):
			rest = rest[2:]
			continue
		}
		break
	}
	ref.Prefix = text[:len(text)-len(rest)]

	compact := strings.ReplaceAll(rest, " ", "")
	switch {
	case compact == "interface{}":
		ref.Name = "any"
		ref.Builtin = true
	case identRe.MatchString(rest):
		ref.Name = rest
		ref.Builtin = predeclared[rest]
	case qualifiedRe.MatchString(rest):
		m := qualifiedRe.FindStringSubmatch(rest)
		ref.PkgName, ref.Name = m[1], m[2]
	default:
		ref.Name = rest
		ref.Opaque = true
	}
	return ref
}

// Qualifiers lists the package qualifiers used inside an opaque expression.
func (r TypeRef) Qualifiers() []string {
	if !r.Opaque {
		if r.PkgName != "" {
			return []string{r.PkgName}
		}
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, m := range qualifierRe.FindAllStringSubmatch(r.Name, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// IsAny reports whether r is the top type.
func (r TypeRef) IsAny() bool {
	return r.Prefix == "" && r.Builtin && r.Name == "any"
}

// Resolved reports whether no further resolution is possible or needed.
func (r TypeRef) Resolved() bool {
	return r.Decl != nil || r.Builtin || r.Opaque || r.PkgPath != ""
}

// Qualified is the package path qualified name without prefix.
func (r TypeRef) Qualified() string {
	if r.PkgPath != "" && !r.Builtin && !r.Opaque {
		return r.PkgPath + "." + r.Name
	}
	if r.PkgName != "" {
		return r.PkgName + "." + r.Name
	}
	return r.Name
}

// Key identifies the type for grouping. Two refs with equal keys are the same service type.
func (r TypeRef) Key() string {
	return r.Prefix + r.Qualified()
}

// Same is identity: the same declaration and prefix, else equal keys.
func (r TypeRef) Same(o TypeRef) bool {
	if r.Decl != nil && o.Decl != nil {
		return r.Decl == o.Decl && r.Prefix == o.Prefix
	}
	return r.Key() == o.Key()
}

// Elem strips the prefix.
func (r TypeRef) Elem() TypeRef {
	e := r
	e.Prefix = ""
	e.Text = strings.TrimPrefix(r.Text, r.Prefix)
	return e
}

func (r TypeRef) String() string {
	return r.Text
}
