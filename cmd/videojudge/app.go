package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/bdougie/videojudge/internal/analyzer"
	"github.com/bdougie/videojudge/internal/config"
	"github.com/bdougie/videojudge/internal/llm"
	"github.com/bdougie/videojudge/internal/metrics"
	"github.com/bdougie/videojudge/internal/storage"
	"github.com/bdougie/videojudge/internal/summarizer"
	"github.com/bdougie/videojudge/internal/tokens"
)

// app carries what every command needs once the config is loaded
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      lvl,
			TimeFormat: "15:04:05",
			NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		}),
	)
}

// client connects to the configured provider
func (a *app) client(ctx context.Context) (llm.Client, error) {
	switch a.cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAI(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.BaseURL), nil
	default:
		c, err := llm.NewOllama(ctx, llm.OllamaOpts{
			BaseURL: a.cfg.Ollama.BaseURL,
			Port:    a.cfg.Ollama.Port,
			Logger:  a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize model client: %w", err)
		}
		return c, nil
	}
}

// storage always writes per-frame JSON into analysisDir and mirrors records
// to the configured backend.
func (a *app) storage(ctx context.Context, analysisDir, videoName string) (storage.Storage, error) {
	dir, err := storage.NewJSONDir(analysisDir)
	if err != nil {
		return nil, err
	}

	sc := a.cfg.Storage
	switch sc.Backend {
	case "sqlite":
		db, err := storage.OpenSQLite(sc.SQLitePath, videoName)
		if err != nil {
			return nil, err
		}
		a.logger.Info("mirroring results to sqlite", "path", sc.SQLitePath, "run", db.RunID())
		return storage.Multi{dir, db}, nil
	case "postgres":
		pg, err := storage.NewPostgres(ctx, sc.PostgresURL, videoName)
		if err != nil {
			return nil, err
		}
		return storage.Multi{dir, pg}, nil
	case "minio":
		obj, err := storage.NewMinIO(ctx, a.cfg.MinIOConfig(), videoName)
		if err != nil {
			return nil, err
		}
		return storage.Multi{dir, obj}, nil
	default:
		return dir, nil
	}
}

func (a *app) processor(client llm.Client, store storage.Storage) *analyzer.Processor {
	return analyzer.NewProcessor(metrics.Instrument(client, "analyze"), store, analyzer.Config{
		Model:            a.cfg.Models.Analyzer,
		SystemPrompt:     a.cfg.Prompts.Analyzer,
		ReflectionPrompt: a.cfg.Prompts.Reflection,
		Interval:         a.cfg.FrameInterval,
		Delay:            a.cfg.Delay(),
		Workers:          a.cfg.Workers,
	}, a.logger)
}

func (a *app) summarizer(client llm.Client) (*summarizer.Summarizer, error) {
	budgeter, err := tokens.ForModel(a.cfg.Models.Summarizer, a.cfg.Limits())
	if err != nil {
		return nil, err
	}
	return summarizer.New(
		metrics.Instrument(client, "summarize"),
		a.cfg.Models.Summarizer,
		a.cfg.Prompts.Summarizer,
		budgeter,
		summarizer.Options{MaxPasses: a.cfg.MaxPasses},
		a.logger,
	), nil
}

// writeMetrics dumps the run's metrics when a metrics file is configured
func (a *app) writeMetrics() {
	if a.cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.logger.Warn("failed to write metrics", "path", a.cfg.MetricsFile, "error", err)
	}
}

func videoName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
