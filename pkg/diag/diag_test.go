package diag

import (
	"fmt"
	"sync"
	"testing"

	"github.com/l3aro/phpflow/pkg/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBagReportFormatsMessage(t *testing.T) {
	b := NewBag()
	b.Report("foo", ast.Span{StartLine: 3, StartCol: 5}, ErrBreakLevel, "break", 2)

	items := b.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "PHP0002", items[0].Code)
	assert.Equal(t, SeverityFatal, items[0].Severity)
	assert.Equal(t, "cannot 'break' 2 levels", items[0].Message)
	assert.Equal(t, "foo", items[0].Routine)
	assert.True(t, b.HasErrors())
	assert.True(t, b.Has(ErrBreakLevel))
	assert.False(t, b.Has(ErrBreakOutOfScope))
}

func TestBagItemsSortedByPosition(t *testing.T) {
	b := NewBag()
	b.Report("r", ast.Span{StartLine: 9}, WarnUnreachableCode)
	b.Report("r", ast.Span{StartLine: 2, StartCol: 4}, WarnLabelUnused, "a")
	b.Report("r", ast.Span{StartLine: 2, StartCol: 1}, WarnLabelUnused, "b")

	items := b.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "label 'b' is defined but never used", items[0].Message)
	assert.Equal(t, "label 'a' is defined but never used", items[1].Message)
	assert.Equal(t, 9, items[2].Span.StartLine)
	assert.False(t, b.HasErrors())
	assert.Equal(t, 2, b.Count(WarnLabelUnused))
}

func TestBagConcurrentReports(t *testing.T) {
	b := NewBag()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Report(fmt.Sprintf("r%d", i), ast.Span{StartLine: i}, WarnUnreachableCode)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, b.Len())
}

type recordingLogger struct {
	levels []string
}

func (l *recordingLogger) Info(msg string, args ...interface{})  { l.levels = append(l.levels, "info") }
func (l *recordingLogger) Warn(msg string, args ...interface{})  { l.levels = append(l.levels, "warn") }
func (l *recordingLogger) Error(msg string, args ...interface{}) { l.levels = append(l.levels, "error") }

func TestLogSinkLevels(t *testing.T) {
	l := &recordingLogger{}
	sink := Multi(LogSink{Logger: l}, Discard)

	sink.Report("r", ast.Span{}, ErrLabelUndefined, "L")
	sink.Report("r", ast.Span{}, WarnLabelRedefined, "L")
	sink.Report("r", ast.Span{}, WarnLoopNeverEnds)

	assert.Equal(t, []string{"error", "warn", "info"}, l.levels)
}
