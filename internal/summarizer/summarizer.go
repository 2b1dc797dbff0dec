// Package summarizer merges any number of per-frame judgments into one final
// verdict. Judgment lines are packed into chunks that fit the summarizer
// model's context, each chunk is summarized, and the summaries are summarized
// again until a single text is left. The verdict is parsed from that text
// alone; no statistics are computed over the inputs.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bdougie/videojudge/internal/llm"
	"github.com/bdougie/videojudge/internal/metrics"
	"github.com/bdougie/videojudge/internal/models"
	"github.com/bdougie/videojudge/internal/parser"
	"github.com/bdougie/videojudge/internal/tokens"
)

// DefaultMaxPasses bounds the number of summarization passes.
const DefaultMaxPasses = 10

var (
	// ErrNoRecords is returned when there is nothing to summarize.
	ErrNoRecords = errors.New("no records to summarize")

	// ErrNoConvergence is returned when more than one summary is still left
	// after the maximum number of passes.
	ErrNoConvergence = errors.New("summaries did not converge")
)

type Options struct {
	MaxPasses int
}

type Summarizer struct {
	client   llm.Client
	model    string
	prompt   string
	budgeter *tokens.Budgeter
	opts     Options
	logger   *slog.Logger
}

func New(client llm.Client, model, prompt string, budgeter *tokens.Budgeter, opts Options, logger *slog.Logger) *Summarizer {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		client:   client,
		model:    model,
		prompt:   prompt,
		budgeter: budgeter,
		opts:     opts,
		logger:   logger,
	}
}

// FormatLine renders one record as a single summarizer input line.
func FormatLine(r models.Record) string {
	return fmt.Sprintf("Frame %s at %ss: %s (%s%%)",
		r.FrameID, models.FormatNumber(r.Timestamp), r.Label, models.FormatNumber(r.Confidence))
}

// Summarize produces the final verdict for records. Any failed call aborts
// the whole summarization without a verdict.
func (s *Summarizer) Summarize(ctx context.Context, records []models.Record) (*models.Verdict, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	units := make([]string, len(records))
	for i, r := range records {
		units[i] = FormatLine(r)
	}

	passes := 0
	for {
		if passes == s.opts.MaxPasses {
			return nil, fmt.Errorf("%d summaries left after %d passes: %w", len(units), passes, ErrNoConvergence)
		}
		passes++

		plan := s.budgeter.Pack(units)
		s.logger.Info("summarization pass", "pass", passes, "units", len(units), "chunks", len(plan))

		summaries, err := s.summarizePlan(ctx, plan)
		if err != nil {
			return nil, err
		}
		units = summaries
		if len(units) == 1 {
			break
		}
	}
	metrics.SummaryPasses.Set(float64(passes))

	label, confidence := parser.Parse(units[0])
	return &models.Verdict{
		Label:      label,
		Confidence: confidence,
		Summary:    units[0],
		Passes:     passes,
	}, nil
}

func (s *Summarizer) summarizePlan(ctx context.Context, plan tokens.Plan) ([]string, error) {
	summaries := make([]string, 0, len(plan))
	for i, chunk := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.logger.Info("summarizing chunk", "chunk", i+1, "total", len(plan), "tokens", chunk.Tokens)

		reply, err := s.client.Complete(ctx, s.model, []llm.Message{
			llm.System(s.prompt),
			llm.User(strings.Join(chunk.Units, "\n")),
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(plan), err)
		}
		metrics.SummaryChunksTotal.Inc()

		reply = strings.TrimSpace(reply)
		s.logger.Debug("chunk summary", "chunk", i+1, "content", reply)
		summaries = append(summaries, reply)
	}
	return summaries, nil
}
