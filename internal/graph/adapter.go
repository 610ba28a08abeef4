package graph

import (
	"path/filepath"
	"strings"

	"relaygen/internal/extractor"
)

// typeFromUnit converts a struct, interface or named type unit.
func typeFromUnit(unit *extractor.CodeUnit) *Type {
	t := &Type{Symbol: symbolFromUnit(unit), Kind: unit.UnitType}

	switch d := unit.Details.(type) {
	case extractor.GoTypeDetails:
		for _, f := range d.Fields {
			t.Fields = append(t.Fields, Field{Name: f.Name, Type: ParseTypeRef(f.Type), Embedded: f.Embedded})
		}
	case extractor.GoInterfaceDetails:
		for _, m := range d.Methods {
			t.InterfaceMethods = append(t.InterfaceMethods, m.Name)
		}
	}
	return t
}

// funcFromUnit converts a function or method unit.
func funcFromUnit(unit *extractor.CodeUnit) *Func {
	f := &Func{Symbol: symbolFromUnit(unit), IsMethod: unit.UnitType == extractor.UnitMethod}

	d, ok := unit.Details.(extractor.GoFunctionDetails)
	if !ok {
		return f
	}
	f.ReceiverType = d.ReceiverType
	f.Signature = d.Signature
	for _, p := range d.Parameters {
		f.Params = append(f.Params, Param{Name: p.Name, Type: ParseTypeRef(p.Type), Variadic: p.Variadic})
	}
	for _, r := range d.Returns {
		f.Results = append(f.Results, ParseTypeRef(r.Type))
	}
	return f
}

func importFromUnit(unit *extractor.CodeUnit) (Import, bool) {
	d, ok := unit.Details.(extractor.GoImportDetails)
	if !ok {
		return Import{}, false
	}
	return Import{Alias: d.Alias, Path: d.Path}, true
}

func symbolFromUnit(unit *extractor.CodeUnit) Symbol {
	return Symbol{
		ID:         unit.ID,
		StableID:   extractor.BuildStableSymbolID(unit),
		Name:       unit.Name,
		Package:    unit.Package,
		Dir:        filepath.Dir(unit.Filepath),
		Filepath:   unit.Filepath,
		StartLine:  unit.StartLine,
		EndLine:    unit.EndLine,
		Doc:        unit.Description,
		Directives: ParseDirectives(unit.Description),
	}
}

// ParseDirectives picks relay:<name> lines out of a cleaned doc comment.
func ParseDirectives(doc string) []Directive {
	var out []Directive
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "relay:") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "relay:"))
		d := Directive{Raw: line}
		if len(fields) > 0 {
			d.Name = fields[0]
			d.Args = fields[1:]
		}
		out = append(out, d)
	}
	return out
}

// PackageNameOf guesses the package name of an import path from its last element.
func PackageNameOf(path string) string {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]
	if len(parts) > 1 && len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
		name = parts[len(parts)-2]
	}
	if idx := strings.Index(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.ReplaceAll(name, "-", "_")
}
