package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"
	"unicode"

	"relaygen/internal/discovery"
	"relaygen/internal/planner"
)

const (
	// Header is the first line of every generated file.
	Header = "// Code generated by relaygen; DO NOT EDIT."

	// RuntimePath is the import path of the helpers generated code calls.
	RuntimePath = "relaygen/relay"
)

var fileTemplate = template.Must(template.New("relay").Parse(`{{.Header}}

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{- end}}
)
{{end}}
{{- range .Methods}}
// {{.Name}} creates {{.Produced}} with {{.Constructor}}.
func ({{.Recv}} *{{$.Factory}}) {{.Name}}({{.Params}}) (result {{.Produced}}, err error) {
{{- range .Body}}
	{{.Code}}
{{- if .Check}}
	if err != nil {
		return result, err
	}
{{- end}}
{{- end}}
	return result, nil
}
{{end -}}
`))

type fileView struct {
	Header  string
	Package string
	Factory string
	Imports []importLine
	Methods []methodView
}

type methodView struct {
	Name        string
	Recv        string
	Params      string
	Produced    string
	Constructor string
	Body        []stmt
}

type stmt struct {
	Code  string
	Check bool
}

// Renderer turns synthesis plans into Go source. It holds no per-file state.
type Renderer struct {
	runtimePath string
}

func NewRenderer() *Renderer {
	return &Renderer{runtimePath: RuntimePath}
}

// Render produces the formatted generated file of one factory.
func (r *Renderer) Render(sp *planner.SynthesisPlan) ([]byte, error) {
	f := sp.Factory
	scope := newFileScope(f.Type.PkgPath)
	view := fileView{Header: Header, Package: f.Type.Package, Factory: f.Name}

	for _, p := range sp.Plans {
		view.Methods = append(view.Methods, r.method(scope, f, p))
	}
	view.Imports = scope.imports()

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", sp.Output, err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format %s: %w", sp.Output, err)
	}
	return out, nil
}

func (r *Renderer) method(scope *fileScope, f *discovery.FactoryDeclaration, p planner.Plan) methodView {
	c := p.Candidate()
	m := methodView{Name: p.FuncName}

	// Type expressions first so every import alias is known before locals are named.
	produced := scope.typeExpr(p.Produced)
	types := make([]string, len(c.Params))
	for i, param := range c.Params {
		types[i] = scope.typeExpr(param.Type)
	}
	services := make([]string, len(p.Resolution.Steps))
	for i, step := range p.Resolution.Steps {
		services[i] = scope.typeExpr(step.Service)
	}
	ctor := scope.qualify(c.Func.PkgPath, c.Func.Package, c.Name)
	rt := ""
	if len(p.Resolution.Steps) > 0 || p.Interceptors.Object != nil {
		rt = scope.alias(r.runtimePath, "relay")
	}

	names := scope.locals("result", "err")
	params := make([]string, len(c.Params))
	for i, param := range c.Params {
		want := param.Name
		if want == "" || want == "_" {
			want = fmt.Sprintf("arg%d", i)
		}
		params[i] = names.claim(want)
	}
	recv := names.claim(receiverName(f.Name))
	provider := f.Provider.Access(recv)

	var sig []string
	for _, i := range p.Resolution.Passthrough {
		t := types[i]
		if c.Params[i].Variadic {
			t = "..." + t
		}
		sig = append(sig, params[i]+" "+t)
	}

	for si, step := range p.Resolution.Steps {
		switch step.Kind {
		case planner.StepDirect:
			m.Body = append(m.Body, stmt{
				Code:  fmt.Sprintf("%s, err := %s.Required[%s](%s)", params[step.Params[0]], rt, services[si], provider),
				Check: true,
			})
		case planner.StepCyclic:
			all := names.claim(params[step.Params[0]] + "All")
			m.Body = append(m.Body, stmt{
				Code:  fmt.Sprintf("%s, err := %s.Cyclic[%s](%s, %d)", all, rt, services[si], provider, len(step.Params)),
				Check: true,
			})
			lhs := make([]string, len(step.Params))
			rhs := make([]string, len(step.Params))
			for k, idx := range step.Params {
				lhs[k] = params[idx]
				rhs[k] = fmt.Sprintf("%s[%d]", all, k)
			}
			m.Body = append(m.Body, stmt{Code: strings.Join(lhs, ", ") + " := " + strings.Join(rhs, ", ")})
		}
	}

	args := make([]string, len(c.Params))
	for i, param := range c.Params {
		args[i] = params[i]
		if param.Variadic && !param.Injected {
			args[i] += "..."
		}
	}
	call := fmt.Sprintf("%s(%s)", ctor, strings.Join(args, ", "))
	if c.ReturnsError {
		m.Body = append(m.Body, stmt{Code: "result, err = " + call, Check: true})
	} else {
		m.Body = append(m.Body, stmt{Code: "result = " + call})
	}

	set := p.Interceptors
	if set.Exact != nil {
		hook := fmt.Sprintf("%s.%s(result)", recv, set.Exact.Name)
		if set.ExactAssigns() {
			hook = "result = " + hook
		}
		m.Body = append(m.Body, stmt{Code: hook})
	}
	switch {
	case set.Object != nil:
		m.Body = append(m.Body, stmt{
			Code:  fmt.Sprintf("result, err = %s.As[%s](%s.%s(result))", rt, produced, recv, set.Object.Name),
			Check: true,
		})
	case set.Void != nil:
		m.Body = append(m.Body, stmt{Code: fmt.Sprintf("%s.%s(result)", recv, set.Void.Name)})
	}

	m.Recv = recv
	m.Params = strings.Join(sig, ", ")
	m.Produced = produced
	m.Constructor = ctor
	return m
}

// receiverName is the lowercased first letter of the factory name.
func receiverName(factory string) string {
	for _, r := range factory {
		if unicode.IsLetter(r) {
			return string(unicode.ToLower(r))
		}
	}
	return "f"
}
