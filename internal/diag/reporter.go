package diag

import "sync"

// Sink accepts diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// Reporter collects the diagnostics of one run. It is safe for concurrent use.
type Reporter struct {
	mu    sync.Mutex
	items []Diagnostic
}

func NewReporter() *Reporter {
	return &Reporter{}
}

func (r *Reporter) Report(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, d)
}

// Merge appends buffers in argument order. Nil buffers are skipped.
func (r *Reporter) Merge(bufs ...*Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bufs {
		if b != nil {
			r.items = append(r.items, b.items...)
		}
	}
}

// Diagnostics returns a copy in report order.
func (r *Reporter) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.items...)
}

func (r *Reporter) HasErrors() bool {
	return r.Count(SeverityError) > 0
}

func (r *Reporter) Count(sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.items {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Buffer holds the diagnostics of one factory until they are merged. It is not safe for concurrent use.
type Buffer struct {
	items []Diagnostic
}

func (b *Buffer) Report(d Diagnostic) {
	b.items = append(b.items, d)
}

func (b *Buffer) Items() []Diagnostic {
	return b.items
}

func (b *Buffer) HasErrors() bool {
	for _, d := range b.items {
		if d.IsError() {
			return true
		}
	}
	return false
}
