package diag

import "github.com/l3aro/phpflow/pkg/ast"

// Logger is the subset of internal/log.Logger a LogSink needs.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// LogSink writes every diagnostic to a logger at a level matching its
// severity.
type LogSink struct {
	Logger Logger
}

// Report implements Sink.
func (s LogSink) Report(routine string, span ast.Span, code Code, args ...interface{}) {
	d := New(routine, span, code, args...)
	kv := []interface{}{"code", d.Code, "routine", routine, "line", span.StartLine}
	switch {
	case code.Severity >= SeverityError:
		s.Logger.Error(d.Message, kv...)
	case code.Severity == SeverityWarning:
		s.Logger.Warn(d.Message, kv...)
	default:
		s.Logger.Info(d.Message, kv...)
	}
}
