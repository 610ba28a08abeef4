package graph

import (
	"path/filepath"
	"sort"
	"strings"

	"relaygen/internal/extractor"
)

// Node represents a vertex in the dependency graph.
type Node struct {
	Symbol *Symbol
	Type   *Type
	Func   *Func
}

// Edge represents a directed relationship between two nodes.
type Edge struct {
	From string       // Source symbol ID
	To   string       // Target symbol ID
	Kind RelationKind // Relationship type
}

// Graph manages declared types, funcs and their relationships.
type Graph struct {
	// Root and ModulePath qualify directories into package paths.
	Root       string
	ModulePath string

	Nodes map[string]*Node
	Edges []Edge

	// Types and Funcs are in declaration order (file path, then line).
	Types []*Type
	Funcs []*Func

	Imports      map[string][]Import // file -> imports
	Unresolved   []UnresolvedRef
	InjectIssues []InjectIssue

	units []*extractor.CodeUnit
	sites []*RefSite

	// Index for faster lookup: Name -> []ID
	// Useful for resolving name-based references to actual IDs.
	nameIndex map[string][]string
	typeIndex map[string]*Type  // TypeKey(dir, name)
	pkgDirs   map[string]string // package path -> dir
	pkgNames  map[string]string // package path -> package name
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	g := &Graph{}
	g.reset()
	return g
}

func (g *Graph) reset() {
	g.Nodes = make(map[string]*Node)
	g.Edges = []Edge{}
	g.Types = nil
	g.Funcs = nil
	g.Imports = make(map[string][]Import)
	g.Unresolved = nil
	g.InjectIssues = nil
	g.sites = nil
	g.nameIndex = make(map[string][]string)
	g.typeIndex = make(map[string]*Type)
	g.pkgDirs = make(map[string]string)
	g.pkgNames = make(map[string]string)
}

// AddUnit queues a CodeUnit. Nothing is derived until LinkRelations.
func (g *Graph) AddUnit(unit *extractor.CodeUnit) {
	if unit == nil {
		return
	}
	g.units = append(g.units, unit)
}

// Units returns the queued units.
func (g *Graph) Units() []*extractor.CodeUnit {
	return g.units
}

// RemoveFile drops every unit that came from path.
func (g *Graph) RemoveFile(path string) int {
	kept := g.units[:0]
	removed := 0
	for _, u := range g.units {
		if u.Filepath == path {
			removed++
			continue
		}
		kept = append(kept, u)
	}
	g.units = kept
	return removed
}

// PackagePath maps a directory to its import path.
func (g *Graph) PackagePath(dir string) string {
	rel := filepath.Clean(dir)
	if g.Root != "" {
		if r, err := filepath.Rel(g.Root, dir); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	switch {
	case g.ModulePath == "":
		return rel
	case rel == ".":
		return g.ModulePath
	default:
		return g.ModulePath + "/" + rel
	}
}

// LinkRelations derives types, funcs, tags and reference sites from the queued units.
// It is safe to call again after AddUnit or RemoveFile.
func (g *Graph) LinkRelations() {
	units := append([]*extractor.CodeUnit(nil), g.units...)
	g.reset()

	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Filepath != units[j].Filepath {
			return units[i].Filepath < units[j].Filepath
		}
		return units[i].StartLine < units[j].StartLine
	})

	for _, unit := range units {
		switch unit.UnitType {
		case extractor.UnitImport:
			if imp, ok := importFromUnit(unit); ok {
				g.Imports[unit.Filepath] = append(g.Imports[unit.Filepath], imp)
			}
		case extractor.UnitStruct, extractor.UnitInterface, extractor.UnitType:
			g.addType(typeFromUnit(unit))
		case extractor.UnitFunction, extractor.UnitMethod:
			g.addFunc(funcFromUnit(unit))
		}
	}

	for _, f := range g.Funcs {
		g.attach(f)
	}
	for _, t := range g.Types {
		g.tagType(t)
	}
	for _, f := range g.Funcs {
		g.tagFunc(f)
	}
	g.collectSites()
}

func (g *Graph) addType(t *Type) {
	t.PkgPath = g.PackagePath(t.Dir)
	g.Types = append(g.Types, t)
	g.Nodes[t.ID] = &Node{Symbol: &t.Symbol, Type: t}
	g.typeIndex[extractor.TypeKey(t.Dir, t.Name)] = t
	g.pkgDirs[t.PkgPath] = t.Dir
	if t.Package != "" {
		g.pkgNames[t.PkgPath] = t.Package
	}

	// Simple index: Name -> ID
	g.nameIndex[t.Name] = append(g.nameIndex[t.Name], t.ID)

	// Qualified index: Package.Name -> ID
	if t.Package != "" {
		key := t.Package + "." + t.Name
		g.nameIndex[key] = append(g.nameIndex[key], t.ID)
	}
}

func (g *Graph) addFunc(f *Func) {
	f.PkgPath = g.PackagePath(f.Dir)
	g.Funcs = append(g.Funcs, f)
	g.Nodes[f.ID] = &Node{Symbol: &f.Symbol, Func: f}
	if f.Package != "" {
		g.pkgNames[f.PkgPath] = f.Package
	}
}

// attach binds methods to their receiver and constructors to their product.
func (g *Graph) attach(f *Func) {
	if f.IsMethod {
		if t := g.typeIndex[extractor.TypeKey(f.Dir, f.ReceiverType)]; t != nil {
			f.Owner = t
			t.Methods = append(t.Methods, f)
		}
		return
	}

	if !strings.HasPrefix(f.Name, "New") || len(f.Results) == 0 || len(f.Results) > 2 {
		return
	}
	if len(f.Results) == 2 && f.Results[1].Text != "error" {
		return
	}
	first := f.Results[0]
	if first.PkgName != "" || first.Opaque || (first.Prefix != "" && first.Prefix != "*") {
		return
	}
	t := g.typeIndex[extractor.TypeKey(f.Dir, first.Name)]
	if t == nil || t.Kind != extractor.UnitStruct {
		return
	}
	f.Owner = t
	t.Constructors = append(t.Constructors, f)
}

func (g *Graph) tagType(t *Type) {
	for i := range t.Directives {
		d := &t.Directives[i]
		if d.Name != "factory" {
			continue
		}
		t.IsFactory = true
		if len(d.Args) == 0 {
			continue
		}
		if ref := ParseTypeRef(d.Args[0]); ref.Prefix == "" && !ref.Opaque {
			d.Ref = &ref
		}
	}
}

// tagFunc applies relay:inject names to the parameters of constructors.
func (g *Graph) tagFunc(f *Func) {
	for _, d := range f.DirectivesNamed("inject") {
		for _, name := range d.Args {
			found := false
			for i := range f.Params {
				if f.Params[i].Name == name {
					f.Params[i].Injected = true
					found = true
				}
			}
			if !found {
				g.InjectIssues = append(g.InjectIssues, InjectIssue{Func: f, Name: name})
			}
		}
	}
}

func (g *Graph) collectSites() {
	add := func(ref *TypeRef, sym *Symbol) {
		g.sites = append(g.sites, &RefSite{Ref: ref, From: sym.ID, File: sym.Filepath, Dir: sym.Dir, Package: sym.Package})
	}
	for _, t := range g.Types {
		for i := range t.Fields {
			add(&t.Fields[i].Type, &t.Symbol)
		}
		for i := range t.Directives {
			if t.Directives[i].Ref != nil {
				add(t.Directives[i].Ref, &t.Symbol)
			}
		}
	}
	for _, f := range g.Funcs {
		for i := range f.Params {
			add(&f.Params[i].Type, &f.Symbol)
		}
		for i := range f.Results {
			add(&f.Results[i], &f.Symbol)
		}
	}
}

// Sites returns every type reference recorded by LinkRelations.
func (g *Graph) Sites() []*RefSite {
	return g.sites
}

// TypeAt finds a type declared in dir.
func (g *Graph) TypeAt(dir, name string) *Type {
	return g.typeIndex[extractor.TypeKey(dir, name)]
}

// TypeIn finds a type by package path.
func (g *Graph) TypeIn(pkgPath, name string) *Type {
	dir, ok := g.pkgDirs[pkgPath]
	if !ok {
		return nil
	}
	return g.TypeAt(dir, name)
}

// PackageName returns the declared package name for a package path inside the graph.
func (g *Graph) PackageName(pkgPath string) string {
	if name, ok := g.pkgNames[pkgPath]; ok {
		return name
	}
	return PackageNameOf(pkgPath)
}

// ImportFor resolves a qualifier used in file to its import.
func (g *Graph) ImportFor(file, qualifier string) (Import, bool) {
	for _, imp := range g.Imports[file] {
		name := imp.Alias
		if name == "" {
			name = g.PackageName(imp.Path)
		}
		if name == qualifier {
			return imp, true
		}
	}
	return Import{}, false
}

// Lookup finds declared types for a name as written in sourcePackage.
func (g *Graph) Lookup(targetName, sourcePackage string) []*Type {
	var out []*Type
	for _, id := range g.resolveTarget(targetName, sourcePackage) {
		if n, ok := g.Nodes[id]; ok && n.Type != nil {
			out = append(out, n.Type)
		}
	}
	return out
}

// resolveTarget finds potential target IDs for a given name.
func (g *Graph) resolveTarget(targetName string, sourcePackage string) []string {
	// Normalize target name (e.g., "*Extractor" -> "Extractor", "[]Node" -> "Node")
	cleanName := strings.TrimPrefix(targetName, "*")
	cleanName = strings.TrimPrefix(cleanName, "[]")

	// 1. Try exact match with normalized name
	if ids, ok := g.nameIndex[cleanName]; ok {
		return ids
	}

	// 2. Try match with original name (for qualified names like pkg.Type)
	if ids, ok := g.nameIndex[targetName]; ok {
		return ids
	}

	// 3. Try package-local match with normalized name
	localKey := sourcePackage + "." + cleanName
	if ids, ok := g.nameIndex[localKey]; ok {
		return ids
	}

	return nil
}

// CollectUnresolved rebuilds Unresolved from sites no resolver could bind.
func (g *Graph) CollectUnresolved() {
	g.Unresolved = nil
	for _, s := range g.sites {
		if s.Ref.Resolved() {
			continue
		}
		reason := s.Reason
		if reason == "" {
			reason = ReasonNoCandidate
		}
		g.Unresolved = append(g.Unresolved, UnresolvedRef{From: s.From, Text: s.Ref.Text, File: s.File, Reason: reason})
	}
}

// BuildEdges derives edges from resolved references.
func (g *Graph) BuildEdges() {
	g.Edges = []Edge{}
	seen := make(map[Edge]bool)
	add := func(e Edge) {
		if e.From == e.To || seen[e] {
			return
		}
		seen[e] = true
		g.Edges = append(g.Edges, e)
	}

	for _, t := range g.Types {
		for _, f := range t.Fields {
			if f.Type.Decl == nil {
				continue
			}
			kind := RelationUsesType
			if f.Embedded {
				kind = RelationEmbeds
			}
			add(Edge{From: t.ID, To: f.Type.Decl.ID, Kind: kind})
		}
		for _, d := range t.DirectivesNamed("factory") {
			if d.Ref != nil && d.Ref.Decl != nil {
				add(Edge{From: t.ID, To: d.Ref.Decl.ID, Kind: RelationProduces})
			}
		}
	}

	for _, f := range g.Funcs {
		if f.Owner != nil {
			kind := RelationBelongsTo
			if f.IsConstructor() {
				kind = RelationConstructs
			}
			add(Edge{From: f.ID, To: f.Owner.ID, Kind: kind})
		}
		for _, p := range f.Params {
			if p.Type.Decl != nil {
				add(Edge{From: f.ID, To: p.Type.Decl.ID, Kind: RelationUsesType})
			}
		}
		for _, r := range f.Results {
			if r.Decl != nil && r.Decl != f.Owner {
				add(Edge{From: f.ID, To: r.Decl.ID, Kind: RelationUsesType})
			}
		}
	}
}

// GetDependencies returns all nodes that the given node depends on.
func (g *Graph) GetDependencies(id string) []*Node {
	var deps []*Node
	for _, edge := range g.Edges {
		if edge.From == id {
			if node, ok := g.Nodes[edge.To]; ok {
				deps = append(deps, node)
			}
		}
	}
	return deps
}

// GetDependents returns all nodes that depend on the given node.
func (g *Graph) GetDependents(id string) []*Node {
	var deps []*Node
	for _, edge := range g.Edges {
		if edge.To == id {
			if node, ok := g.Nodes[edge.From]; ok {
				deps = append(deps, node)
			}
		}
	}
	return deps
}

// FactoryTypes returns the types tagged IsFactory in declaration order.
func (g *Graph) FactoryTypes() []*Type {
	var out []*Type
	for _, t := range g.Types {
		if t.IsFactory {
			out = append(out, t)
		}
	}
	return out
}
