// Package diag carries the diagnostics a parse produces: severities, source
// positions and collectors.
package diag

import (
	"fmt"
	"strings"
	"sync"
)

// ParsePosition locates the current token. Line and Column are 1-based,
// offsets are 0-based byte offsets of the token in the source.
type ParsePosition struct {
	Line       int
	Column     int
	TokenStart int
	TokenEnd   int
}

// IsValid reports whether the position points into a source.
func (p ParsePosition) IsValid() bool {
	return p.Line > 0
}

func (p ParsePosition) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Diagnostic is one message about a source file. Pos is the zero value for
// problems that concern the whole parse.
type Diagnostic struct {
	Severity Severity
	Path     string
	Pos      ParsePosition
	Message  string
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.Path != "" {
		sb.WriteString(d.Path)
		sb.WriteString(":")
	}
	if d.Pos.IsValid() {
		sb.WriteString(d.Pos.String())
		sb.WriteString(":")
	}
	if sb.Len() > 0 {
		sb.WriteString(" ")
	}
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// Collector receives diagnostics.
type Collector interface {
	Report(d Diagnostic)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(d Diagnostic)

func (f CollectorFunc) Report(d Diagnostic) {
	f(d)
}

// List is a Collector that keeps every diagnostic in report order. It is
// safe for concurrent use.
type List struct {
	mu    sync.Mutex
	items []Diagnostic
}

func (l *List) Report(d Diagnostic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, d)
}

// Diagnostics returns a copy of the collected diagnostics.
func (l *List) Diagnostics() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Diagnostic(nil), l.items...)
}

func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// HasErrors reports whether any collected diagnostic has Error severity.
func (l *List) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range l.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
