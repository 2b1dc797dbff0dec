package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bdougie/videojudge/internal/llm"
	"github.com/bdougie/videojudge/internal/metrics"
	"github.com/bdougie/videojudge/internal/models"
	"github.com/bdougie/videojudge/internal/storage"
)

// Config holds the per-frame judgment settings
type Config struct {
	Model            string
	SystemPrompt     string
	ReflectionPrompt string

	// Interval is the sampling interval in seconds; frame i is stamped i*Interval.
	Interval float64

	// Delay is slept after each model call, except for the last frame.
	Delay time.Duration

	// Workers > 1 judges frames concurrently. Records are still persisted and
	// returned in frame order.
	Workers int
}

// FrameSource produces the ordered frames of a video
type FrameSource interface {
	Frames(ctx context.Context, videoPath, framesDir string) ([]models.Frame, error)
}

type Processor struct {
	client  llm.Client
	storage storage.Storage
	cfg     Config
	logger  *slog.Logger
}

func NewProcessor(client llm.Client, storage storage.Storage, cfg Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		client:  client,
		storage: storage,
		cfg:     cfg,
		logger:  logger,
	}
}

// ProcessVideo extracts the frames of a video and judges them
func (p *Processor) ProcessVideo(ctx context.Context, src FrameSource, videoPath, framesDir string) ([]models.Record, error) {
	p.logger.Info("processing video", "path", videoPath)

	frames, err := src.Frames(ctx, videoPath, framesDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames found in directory '%s'", framesDir)
	}

	p.logger.Info("found frames to analyze", "count", len(frames))
	return p.Run(ctx, frames)
}

// Run judges frames in order and persists each record as soon as it is
// final. On failure the records persisted so far are returned with the error.
func (p *Processor) Run(ctx context.Context, frames []models.Frame) ([]models.Record, error) {
	if p.cfg.Workers > 1 {
		return p.runParallel(ctx, frames)
	}

	records := make([]models.Record, 0, len(frames))
	for i, frame := range frames {
		rec, err := p.judgeFrame(ctx, i, frame, len(frames))
		if err != nil {
			return records, err
		}
		if err := p.persist(ctx, rec); err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// runParallel judges with a bounded worker pool. Whoever completes the next
// frame in order flushes the contiguous run of finished records to storage.
func (p *Processor) runParallel(ctx context.Context, frames []models.Frame) ([]models.Record, error) {
	var (
		mu      sync.Mutex
		done    = make([]*models.Record, len(frames))
		next    int
		records = make([]models.Record, 0, len(frames))
	)

	// Completed work is still written after a sibling failure cancels ctx.
	persistCtx := context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, frame := range frames {
		g.Go(func() error {
			rec, err := p.judgeFrame(gctx, i, frame, len(frames))
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			done[i] = &rec
			for next < len(done) && done[next] != nil {
				if err := p.persist(persistCtx, *done[next]); err != nil {
					return err
				}
				records = append(records, *done[next])
				next++
			}
			return nil
		})
	}

	err := g.Wait()
	return records, err
}

func (p *Processor) judgeFrame(ctx context.Context, idx int, frame models.Frame, total int) (models.Record, error) {
	if err := ctx.Err(); err != nil {
		return models.Record{}, err
	}

	p.logger.Info("analyzing frame", "frame", idx+1, "total", total, "id", frame.ID)

	client := p.client
	if idx < total-1 {
		client = llm.WithDelay(client, p.cfg.Delay)
	}
	judge := NewJudge(client, p.cfg.Model, p.cfg.SystemPrompt, p.cfg.ReflectionPrompt, p.logger)

	j, err := judge.Judge(ctx, frame)
	if err != nil {
		return models.Record{}, fmt.Errorf("frame %d/%d (%s) failed: %w", idx+1, total, frame.ID, err)
	}

	if j.FellBack {
		metrics.ReflectionFallbackTotal.Inc()
		p.logger.Debug("reflection gave no confidence, keeping initial judgment", "id", frame.ID)
	}
	metrics.FramesJudgedTotal.WithLabelValues(string(j.Label)).Inc()

	return models.Record{
		FrameID:    frame.ID,
		Timestamp:  float64(frame.Index) * p.cfg.Interval,
		Label:      j.Label,
		Confidence: j.Confidence,
	}, nil
}

func (p *Processor) persist(ctx context.Context, rec models.Record) error {
	if err := p.storage.AddResult(ctx, rec); err != nil {
		return fmt.Errorf("persist %s: %w", rec.FrameID, err)
	}
	return nil
}
