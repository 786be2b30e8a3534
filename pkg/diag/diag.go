// Package diag carries the diagnostics reported while building and
// analysing control flow graphs.
package diag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/l3aro/phpflow/pkg/ast"
)

// Severity ranks diagnostics.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Code identifies a diagnostic and its message template.
type Code struct {
	ID       string
	Severity Severity
	Format   string
}

var (
	ErrBreakOutOfScope = Code{"PHP0001", SeverityFatal, "'%s' not in the 'loop' or 'switch' context"}
	ErrBreakLevel      = Code{"PHP0002", SeverityFatal, "cannot '%s' %d levels"}
	ErrBreakOperand    = Code{"PHP0003", SeverityFatal, "'%s' operator accepts only positive integers"}
	ErrLabelUndefined  = Code{"PHP0004", SeverityFatal, "'goto' to undefined label '%s'"}
	ErrBind            = Code{"PHP0005", SeverityError, "cannot bind %s: %v"}
	ErrSyntax          = Code{"PHP0006", SeverityError, "syntax error near %q"}

	WarnUnreachableCode = Code{"PHP5001", SeverityWarning, "unreachable code detected"}
	WarnLabelUnused     = Code{"PHP5002", SeverityWarning, "label '%s' is defined but never used"}
	WarnLabelRedefined  = Code{"PHP5003", SeverityWarning, "label '%s' already defined"}
	WarnLoopNeverEnds   = Code{"PHP5004", SeverityInfo, "routine never reaches its end"}
)

// Diagnostic is one reported issue.
type Diagnostic struct {
	Routine  string   `json:"routine" yaml:"routine" msgpack:"routine"`
	Span     ast.Span `json:"span" yaml:"span" msgpack:"span"`
	Code     string   `json:"code" yaml:"code" msgpack:"code"`
	Severity Severity `json:"severity" yaml:"severity" msgpack:"severity"`
	Message  string   `json:"message" yaml:"message" msgpack:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s %s: %s (in %s)", d.Span.StartLine, d.Span.StartCol, d.Severity, d.Code, d.Message, d.Routine)
}

// Sink receives diagnostics. Reporting is fire-and-forget.
type Sink interface {
	Report(routine string, span ast.Span, code Code, args ...interface{})
}

// New formats a diagnostic.
func New(routine string, span ast.Span, code Code, args ...interface{}) Diagnostic {
	return Diagnostic{
		Routine:  routine,
		Span:     span,
		Code:     code.ID,
		Severity: code.Severity,
		Message:  fmt.Sprintf(code.Format, args...),
	}
}

// Bag collects diagnostics in memory. It is safe for concurrent use.
type Bag struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewBag creates an empty bag.
func NewBag() *Bag {
	return &Bag{}
}

// Report implements Sink.
func (b *Bag) Report(routine string, span ast.Span, code Code, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, New(routine, span, code, args...))
}

// Items returns the collected diagnostics ordered by position.
func (b *Bag) Items() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Span.StartLine != out[j].Span.StartLine {
			return out[i].Span.StartLine < out[j].Span.StartLine
		}
		return out[i].Span.StartCol < out[j].Span.StartCol
	})
	return out
}

// Len returns the number of collected diagnostics.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Has reports whether a diagnostic with the given code was collected.
func (b *Bag) Has(code Code) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.items {
		if d.Code == code.ID {
			return true
		}
	}
	return false
}

// Count returns how many diagnostics with the given code were collected.
func (b *Bag) Count(code Code) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, d := range b.items {
		if d.Code == code.ID {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error or fatal diagnostic was collected.
func (b *Bag) HasErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.items {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}

// Discard drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(string, ast.Span, Code, ...interface{}) {}

// Multi fans a report out to several sinks.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Report(routine string, span ast.Span, code Code, args ...interface{}) {
	for _, s := range m {
		s.Report(routine, span, code, args...)
	}
}
