package generator

import (
	"fmt"
	"regexp"
	"sort"

	"relaygen/internal/graph"
)

type importLine struct {
	Alias string
	Path  string
}

// fileScope tracks the imports and identifiers of one generated file.
type fileScope struct {
	home    string
	aliases map[string]string // import path -> alias
	used    map[string]bool
}

func newFileScope(home string) *fileScope {
	return &fileScope{
		home:    home,
		aliases: make(map[string]string),
		used:    make(map[string]bool),
	}
}

// alias imports path under want, or want2, want3... when want is taken.
func (s *fileScope) alias(path, want string) string {
	if a, ok := s.aliases[path]; ok {
		return a
	}
	name := want
	for n := 2; s.used[name]; n++ {
		name = fmt.Sprintf("%s%d", want, n)
	}
	s.aliases[path] = name
	s.used[name] = true
	return name
}

// qualify is the expression for name declared in pkgPath, as seen from the generated file.
func (s *fileScope) qualify(pkgPath, pkgName, name string) string {
	if pkgPath == "" || pkgPath == s.home {
		return name
	}
	if pkgName == "" {
		pkgName = graph.PackageNameOf(pkgPath)
	}
	return s.alias(pkgPath, pkgName) + "." + name
}

// typeExpr renders ref for the generated file, importing what it needs.
func (s *fileScope) typeExpr(ref graph.TypeRef) string {
	switch {
	case ref.Builtin:
		return ref.Prefix + ref.Name
	case ref.Opaque:
		return ref.Prefix + s.rewriteQualifiers(ref)
	case ref.Decl != nil:
		return ref.Prefix + s.qualify(ref.Decl.PkgPath, ref.Decl.Package, ref.Name)
	case ref.PkgPath != "":
		return ref.Prefix + s.qualify(ref.PkgPath, ref.PkgName, ref.Name)
	default:
		return ref.Text
	}
}

func (s *fileScope) rewriteQualifiers(ref graph.TypeRef) string {
	text := ref.Name
	for _, q := range ref.Qualifiers() {
		path, ok := ref.Imports[q]
		if !ok {
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(q) + `\.`)
		repl := ""
		if path != s.home {
			repl = s.alias(path, q) + "."
		}
		text = re.ReplaceAllLiteralString(text, repl)
	}
	return text
}

// imports lists the file's imports by path. Aliases equal to the guessed package name are omitted.
func (s *fileScope) imports() []importLine {
	out := make([]importLine, 0, len(s.aliases))
	for path, alias := range s.aliases {
		line := importLine{Path: path}
		if alias != graph.PackageNameOf(path) {
			line.Alias = alias
		}
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// locals hands out identifiers unique within one generated method.
type locals struct {
	scope *fileScope
	taken map[string]bool
}

func (s *fileScope) locals(reserved ...string) *locals {
	l := &locals{scope: s, taken: make(map[string]bool)}
	for _, r := range reserved {
		l.taken[r] = true
	}
	return l
}

func (l *locals) claim(want string) string {
	name := want
	for n := 2; l.taken[name] || l.scope.used[name] || goKeywords[name]; n++ {
		name = fmt.Sprintf("%s%d", want, n)
	}
	l.taken[name] = true
	return name
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}
