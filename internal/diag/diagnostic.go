package diag

import (
	"fmt"
	"time"

	"relaygen/internal/graph"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type Code string

const (
	CodeMissingProvider        Code = "RELAY001"
	CodeInvalidAnnotation      Code = "RELAY002"
	CodeNoFactoryMethods       Code = "RELAY003"
	CodeInternal               Code = "RELAY004"
	CodePerformance            Code = "RELAY005"
	CodeUnknownInjectParameter Code = "RELAY006"
)

// Location points at a declaration. The zero value means no location.
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Diagnostic is one finding of a run.
type Diagnostic struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
	Factory  string   `json:"factory,omitempty"`
	// Detail carries the full error and stack of internal failures.
	Detail string `json:"detail,omitempty"`
}

func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

func (d Diagnostic) String() string {
	if loc := d.Location.String(); loc != "" {
		return fmt.Sprintf("%s: %s %s: %s", loc, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
}

func locate(s *graph.Symbol) Location {
	return Location{File: s.Filepath, Line: s.StartLine}
}

func MissingProvider(t *graph.Type, providerType string) Diagnostic {
	return Diagnostic{
		Code:     CodeMissingProvider,
		Severity: SeverityError,
		Message:  fmt.Sprintf("The %s type must contain a %s field or method.", t.Name, providerType),
		Location: locate(&t.Symbol),
		Factory:  t.Name,
	}
}

func InvalidAnnotation(t *graph.Type, d graph.Directive) Diagnostic {
	msg := fmt.Sprintf("The relay:factory directive on %s has no type argument.", t.Name)
	if len(d.Args) > 0 {
		msg = fmt.Sprintf("The relay:factory directive on %s names %q, which is not a type.", t.Name, d.Args[0])
	}
	return Diagnostic{
		Code:     CodeInvalidAnnotation,
		Severity: SeverityError,
		Message:  msg,
		Location: locate(&t.Symbol),
		Factory:  t.Name,
	}
}

func NoFactoryMethods(t *graph.Type) Diagnostic {
	return Diagnostic{
		Code:     CodeNoFactoryMethods,
		Severity: SeverityError,
		Message:  fmt.Sprintf("No factory methods generated for %s.", t.Name),
		Location: locate(&t.Symbol),
		Factory:  t.Name,
	}
}

// Internal wraps a failure while processing one factory. stack may be nil.
func Internal(t *graph.Type, err error, stack []byte) Diagnostic {
	d := Diagnostic{
		Code:     CodeInternal,
		Severity: SeverityError,
		Message:  fmt.Sprintf("relaygen failed while processing %s: %v", t.Name, err),
		Location: locate(&t.Symbol),
		Factory:  t.Name,
		Detail:   fmt.Sprintf("%+v", err),
	}
	if len(stack) > 0 {
		d.Detail += "\n" + string(stack)
	}
	return d
}

func Performance(elapsed time.Duration) Diagnostic {
	return Diagnostic{
		Code:     CodePerformance,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("relaygen took %dms to execute.", elapsed.Milliseconds()),
	}
}

func UnknownInjectParameter(f *graph.Func, name string) Diagnostic {
	return Diagnostic{
		Code:     CodeUnknownInjectParameter,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("relay:inject on %s names unknown parameter %q.", f.Name, name),
		Location: locate(&f.Symbol),
	}
}
