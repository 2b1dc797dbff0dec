package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/videojudge/internal/llm"
	"github.com/bdougie/videojudge/internal/metrics"
	"github.com/bdougie/videojudge/internal/models"
	"github.com/bdougie/videojudge/internal/tokens"
)

var words = tokens.CounterFunc(func(text string) int { return len(strings.Fields(text)) })

func budgeter(t *testing.T, ceiling int, counter tokens.Counter) *tokens.Budgeter {
	t.Helper()
	limits := tokens.Limits{Contexts: map[string]int{"summ": ceiling}, Default: tokens.DefaultContext}
	b, err := tokens.NewBudgeter("summ", limits, counter)
	require.NoError(t, err)
	return b
}

type recorder struct {
	calls   [][]llm.Message
	replies []string
	reply   func(n int, content string) string
}

func (r *recorder) Complete(ctx context.Context, model string, messages []llm.Message) (string, error) {
	r.calls = append(r.calls, messages)
	out := r.reply(len(r.calls), messages[1].Content)
	r.replies = append(r.replies, out)
	return out, nil
}

func TestFormatLine(t *testing.T) {
	r := models.Record{FrameID: "frame_000002.jpg", Timestamp: 10, Label: models.LabelYes, Confidence: 85}
	assert.Equal(t, "Frame frame_000002.jpg at 10.0s: Yes (85.0%)", FormatLine(r))

	r = models.Record{FrameID: "f", Timestamp: 2.5, Label: models.LabelUnknown, Confidence: 0}
	assert.Equal(t, "Frame f at 2.5s: Unknown (0.0%)", FormatLine(r))
}

func TestSummarizeSingleChunk(t *testing.T) {
	records := []models.Record{
		{FrameID: "a.jpg", Timestamp: 0, Label: models.LabelYes, Confidence: 90},
		{FrameID: "b.jpg", Timestamp: 10, Label: models.LabelYes, Confidence: 85},
		{FrameID: "c.jpg", Timestamp: 20, Label: models.LabelNo, Confidence: 60},
	}
	c := &recorder{reply: func(int, string) string { return "  Overall: no. Confidence 42%\n" }}
	s := New(c, "summ", "Summarize.", budgeter(t, 1000, words), Options{}, nil)

	v, err := s.Summarize(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, models.LabelNo, v.Label)
	assert.Equal(t, 42.0, v.Confidence)
	assert.Equal(t, "Overall: no. Confidence 42%", v.Summary)
	assert.Equal(t, 1, v.Passes)

	require.Len(t, c.calls, 1)
	assert.Equal(t, []llm.Message{
		llm.System("Summarize."),
		llm.User("Frame a.jpg at 0.0s: Yes (90.0%)\nFrame b.jpg at 10.0s: Yes (85.0%)\nFrame c.jpg at 20.0s: No (60.0%)"),
	}, c.calls[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SummaryPasses))
}

func TestSummarizeConvergesOnManyRecords(t *testing.T) {
	records := make([]models.Record, 1000)
	for i := range records {
		records[i] = models.Record{FrameID: fmt.Sprintf("f%04d", i), Timestamp: float64(i), Label: models.LabelYes, Confidence: 90}
	}
	c := &recorder{reply: func(n int, _ string) string { return fmt.Sprintf("summary %d: no, 55%%", n) }}

	// Each line is six words and each summary four, so a ceiling of twelve
	// forces several passes.
	s := New(c, "summ", "Summarize.", budgeter(t, 12, words), Options{}, nil)

	v, err := s.Summarize(context.Background(), records)
	require.NoError(t, err)

	assert.Greater(t, v.Passes, 1)
	assert.LessOrEqual(t, v.Passes, DefaultMaxPasses)
	assert.Equal(t, c.replies[len(c.replies)-1], v.Summary)
	assert.Equal(t, models.LabelNo, v.Label)
	assert.Equal(t, 55.0, v.Confidence)

	// The first pass sees every record exactly once and in order.
	var firstPass []string
	for _, call := range c.calls[:500] {
		firstPass = append(firstPass, strings.Split(call[1].Content, "\n")...)
	}
	require.Len(t, firstPass, 1000)
	for i, line := range firstPass {
		assert.Equal(t, FormatLine(records[i]), line)
	}
}

func TestSummarizeNoConvergence(t *testing.T) {
	huge := tokens.CounterFunc(func(string) int { return 1 << 20 })
	c := &recorder{reply: func(int, string) string { return "yes 50%" }}
	s := New(c, "summ", "Summarize.", budgeter(t, 100, huge), Options{MaxPasses: 4}, nil)

	records := []models.Record{{FrameID: "a"}, {FrameID: "b"}, {FrameID: "c"}}
	v, err := s.Summarize(context.Background(), records)

	assert.ErrorIs(t, err, ErrNoConvergence)
	assert.Nil(t, v)
	assert.Len(t, c.calls, 12)
}

func TestSummarizeCallFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	calls := 0
	c := llm.ClientFunc(func(ctx context.Context, model string, messages []llm.Message) (string, error) {
		calls++
		if calls == 2 {
			return "", boom
		}
		return "Yes 99%", nil
	})
	s := New(c, "summ", "Summarize.", budgeter(t, 6, words), Options{}, nil)

	records := []models.Record{{FrameID: "a"}, {FrameID: "b"}, {FrameID: "c"}}
	v, err := s.Summarize(context.Background(), records)

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, v)
	assert.Equal(t, 2, calls, "no call after the failure")
}

func TestSummarizeEmpty(t *testing.T) {
	c := &recorder{reply: func(int, string) string { return "yes" }}
	s := New(c, "summ", "Summarize.", budgeter(t, 100, words), Options{}, nil)

	_, err := s.Summarize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Empty(t, c.calls)
}

func TestSummarizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &recorder{reply: func(int, string) string { return "yes" }}
	s := New(c, "summ", "Summarize.", budgeter(t, 100, words), Options{}, nil)

	_, err := s.Summarize(ctx, []models.Record{{FrameID: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.calls)
}
