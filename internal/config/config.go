// Package config loads videojudge settings. Defaults are applied first, a
// TOML file is decoded over them, environment variables override both, and
// the result is validated before any model is called.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/bdougie/videojudge/internal/extractor"
	"github.com/bdougie/videojudge/internal/storage"
	"github.com/bdougie/videojudge/internal/tokens"
)

// DefaultPath is read when no config file is given and it exists
const DefaultPath = "config.toml"

// ErrInvalid wraps every configuration error reported at startup
var ErrInvalid = errors.New("invalid configuration")

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	FrameInterval float64 `toml:"frame_interval" env:"VIDEOJUDGE_FRAME_INTERVAL" validate:"gt=0"`
	RequestDelay  float64 `toml:"request_delay"  env:"VIDEOJUDGE_REQUEST_DELAY"  validate:"gte=0"`
	Workers       int     `toml:"workers"        env:"VIDEOJUDGE_WORKERS"        validate:"gte=1"`
	MaxPasses     int     `toml:"max_passes"     env:"VIDEOJUDGE_MAX_PASSES"     validate:"gte=1"`
	Provider      string  `toml:"provider"       env:"VIDEOJUDGE_PROVIDER"       validate:"oneof=ollama openai"`
	LogLevel      string  `toml:"log_level"      env:"LOG_LEVEL"                 validate:"oneof=debug info warn error"`
	MetricsFile   string  `toml:"metrics_file"   env:"VIDEOJUDGE_METRICS_FILE"`

	Models  Models  `toml:"models"`
	Prompts Prompts `toml:"prompts"`
	Context Context `toml:"context"`
	Image   Image   `toml:"image"`
	Ollama  Ollama  `toml:"ollama"`
	OpenAI  OpenAI  `toml:"openai"`
	Storage Storage `toml:"storage"`
}

type Models struct {
	Analyzer   string `toml:"analyzer"   env:"VIDEOJUDGE_ANALYZER_MODEL"   validate:"required"`
	Summarizer string `toml:"summarizer" env:"VIDEOJUDGE_SUMMARIZER_MODEL" validate:"required"`
}

// Prompts holds the system prompts. An empty reflection prompt disables the
// reflection step.
type Prompts struct {
	Analyzer   string `toml:"analyzer"   validate:"required"`
	Reflection string `toml:"reflection"`
	Summarizer string `toml:"summarizer" validate:"required"`
}

// Context is the per-model context size table
type Context struct {
	Buffer  int            `toml:"buffer"  validate:"gte=0"`
	Default int            `toml:"default" validate:"gt=0"`
	Models  map[string]int `toml:"models"`
}

type Image struct {
	Width   int `toml:"width"   validate:"gt=0"`
	Height  int `toml:"height"  validate:"gt=0"`
	Quality int `toml:"quality" validate:"gte=1,lte=100"`
}

type Ollama struct {
	BaseURL string `toml:"base_url" env:"OLLAMA_BASE_URL"`
	Port    int    `toml:"port"     env:"OLLAMA_PORT" validate:"gte=0,lte=65535"`
}

type OpenAI struct {
	BaseURL string `toml:"base_url" env:"OPENAI_BASE_URL"`
	APIKey  string `toml:"api_key"  env:"OPENAI_API_KEY"`
}

type Storage struct {
	Backend     string `toml:"backend"      env:"VIDEOJUDGE_STORAGE" validate:"oneof=json sqlite postgres minio"`
	SQLitePath  string `toml:"sqlite_path"  env:"VIDEOJUDGE_SQLITE_PATH"`
	PostgresURL string `toml:"postgres_url" env:"DATABASE_URL" validate:"required_if=Backend postgres"`
	MinIO       MinIO  `toml:"minio"`
}

type MinIO struct {
	Endpoint  string `toml:"endpoint"   env:"MINIO_ENDPOINT"`
	AccessKey string `toml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `toml:"secret_key" env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `toml:"use_ssl"    env:"MINIO_USE_SSL"`
	Bucket    string `toml:"bucket"     env:"MINIO_BUCKET"`
}

// Default returns the configuration used before any file or environment
// variable is applied. Models and prompts have no defaults.
func Default() *Config {
	limits := tokens.DefaultLimits()
	img := extractor.DefaultImageOptions()
	return &Config{
		FrameInterval: 10,
		Workers:       1,
		MaxPasses:     10,
		Provider:      ProviderOllama,
		LogLevel:      "info",
		Context: Context{
			Buffer:  limits.Buffer,
			Default: limits.Default,
			Models:  limits.Contexts,
		},
		Image: Image{Width: img.Width, Height: img.Height, Quality: img.Quality},
		Ollama: Ollama{
			BaseURL: "http://localhost",
			Port:    11434,
		},
		Storage: Storage{
			Backend:    "json",
			SQLitePath: "videojudge.db",
			MinIO:      MinIO{Bucket: "videojudge"},
		},
	}
}

// Load reads the config file at path. An empty path falls back to
// DefaultPath when that file exists and to pure defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every problem that would otherwise surface only after
// model calls were made.
func (c *Config) Validate() error {
	var problems []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Errorf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	if c.Provider == ProviderOpenAI && c.OpenAI.APIKey == "" {
		problems = append(problems, errors.New("openai.api_key is required for the openai provider (or set OPENAI_API_KEY)"))
	}
	if c.Storage.Backend == "minio" && (c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "") {
		problems = append(problems, errors.New("storage.minio endpoint and bucket are required for the minio backend"))
	}
	if c.Models.Summarizer != "" {
		if _, err := c.Limits().Ceiling(c.Models.Summarizer); err != nil {
			problems = append(problems, err)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(problems...))
	}
	return nil
}

// Limits returns the token limits table.
func (c *Config) Limits() tokens.Limits {
	return tokens.Limits{
		Contexts: c.Context.Models,
		Default:  c.Context.Default,
		Buffer:   c.Context.Buffer,
	}
}

// Delay returns the pause after each model call.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.RequestDelay * float64(time.Second))
}

func (c *Config) ImageOptions() extractor.ImageOptions {
	return extractor.ImageOptions{Width: c.Image.Width, Height: c.Image.Height, Quality: c.Image.Quality}
}

func (c *Config) MinIOConfig() storage.MinIOConfig {
	m := c.Storage.MinIO
	return storage.MinIOConfig{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		UseSSL:    m.UseSSL,
		Bucket:    m.Bucket,
	}
}
