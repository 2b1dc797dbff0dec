package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/videojudge/internal/tokens"
)

const sample = `
frame_interval = 5
request_delay = 1.5
workers = 2

[models]
analyzer = "llava"
summarizer = "gpt-4o-mini"

[prompts]
analyzer = "Is there a dog? Answer yes or no with a confidence percentage."
reflection = "Are you sure?"
summarizer = "Combine these judgments."

[context]
buffer = 400

[context.models]
"gpt-4o" = 128000

[storage]
backend = "sqlite"
sqlite_path = "runs.db"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.FrameInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Delay())
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 10, cfg.MaxPasses)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llava", cfg.Models.Analyzer)
	assert.Equal(t, "Are you sure?", cfg.Prompts.Reflection)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "runs.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 256, cfg.ImageOptions().Width)
	assert.Equal(t, 30, cfg.ImageOptions().Quality)
}

func TestLoadMergesContextTable(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	limits := cfg.Limits()
	assert.Equal(t, 400, limits.Buffer)
	assert.Equal(t, tokens.DefaultContext, limits.Default)
	assert.Equal(t, 128000, limits.Context("gpt-4o-mini"))
	assert.Equal(t, 8192, limits.Context("gpt-4-turbo"))
	assert.Equal(t, 4096, limits.Context("gpt-3.5-turbo"))

	ceiling, err := limits.Ceiling("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, 127600, ceiling)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("VIDEOJUDGE_FRAME_INTERVAL", "2")
	t.Setenv("VIDEOJUDGE_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VIDEOJUDGE_STORAGE", "minio")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 2.0, cfg.FrameInterval)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "localhost:9000", cfg.MinIOConfig().Endpoint)
	assert.Equal(t, "videojudge", cfg.MinIOConfig().Bucket)
}

func TestValidateMissingPrompts(t *testing.T) {
	cfg := Default()
	cfg.Models = Models{Analyzer: "llava", Summarizer: "llama3"}

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "Prompts.Analyzer")
	assert.Contains(t, err.Error(), "Prompts.Summarizer")
}

func TestValidateNonPositiveInterval(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	cfg.FrameInterval = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestValidateNoCeiling(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	cfg.Context.Buffer = 200000
	err = cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, tokens.ErrNoCeiling)
}

func TestValidateOpenAIKey(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	cfg.Provider = ProviderOpenAI
	cfg.OpenAI.APIKey = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	cfg.Storage.Backend = "postgres"
	cfg.Storage.PostgresURL = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Storage.PostgresURL = "postgres://localhost/videojudge"
	assert.NoError(t, cfg.Validate())
}

func TestLoadBadFile(t *testing.T) {
	_, err := Load(writeConfig(t, "frame_interval = ["))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
