package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/agent-api/core"
	"github.com/agent-api/core/agent"
	"github.com/agent-api/core/agent/bootstrap"
	"github.com/agent-api/ollama"
	"github.com/go-logr/logr"
)

// OllamaOpts configures the Ollama provider
type OllamaOpts struct {
	BaseURL string
	Port    int
	Logger  *slog.Logger
}

// Ollama runs requests through an agent-api agent backed by a local Ollama
// server. Each call gets a fresh agent so no conversation state leaks
// between frames.
type Ollama struct {
	opts   OllamaOpts
	logger logr.Logger
}

// NewOllama checks that Ollama is reachable and returns a client
func NewOllama(ctx context.Context, opts OllamaOpts) (*Ollama, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost"
	}
	if opts.Port == 0 {
		opts.Port = 11434
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// Check if Ollama is running
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s:%d/api/tags", opts.BaseURL, opts.Port), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama not healthy: %s", resp.Status)
	}

	return &Ollama{opts: opts, logger: logr.FromSlogHandler(opts.Logger.Handler())}, nil
}

func (o *Ollama) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	system, input, image := flatten(messages)

	provider := ollama.NewProvider(&ollama.ProviderOpts{
		Logger:  &o.logger,
		BaseURL: o.opts.BaseURL,
		Port:    o.opts.Port,
	})
	if err := provider.UseModel(ctx, &core.Model{ID: model}); err != nil {
		return "", err
	}

	a, err := agent.NewAgent(
		bootstrap.WithProvider(provider),
		bootstrap.WithSystemPrompt(system),
		bootstrap.WithLogger(&o.logger),
	)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	response, err := a.Run(ctx, runOptions(system, input, image)...)
	if err != nil {
		return "", err
	}
	return lastReply(response)
}

// runOptions builds the agent run input. The agent does not forward its
// system prompt and the provider has no system role, so the system text
// leads the user input.
func runOptions(system, input string, image []byte) []agent.RunOptionFunc {
	if system != "" {
		input = system + "\n\n" + input
	}
	opts := []agent.RunOptionFunc{agent.WithInput(input)}
	if image != nil {
		opts = append(opts, agent.WithImageBase64(base64.StdEncoding.EncodeToString(image), http.DetectContentType(image)))
	}
	return opts
}

// lastReply returns the model's answer, the final message of the run.
func lastReply(response *agent.AgentRunAggregator) (string, error) {
	if response == nil {
		return "", ErrEmptyReply
	}
	last := response.Pop()
	if last == nil || last.Role != core.AssistantMessageRole {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(last.Content), nil
}

// flatten turns a role-tagged conversation into the single system prompt and
// input an agent run accepts. Earlier turns are replayed as a transcript.
func flatten(messages []Message) (system, input string, image []byte) {
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		if image == nil && len(m.Images) > 0 {
			image = m.Images[0]
		}
		turns = append(turns, m)
	}

	if len(turns) == 1 {
		return system, turns[0].Content, image
	}

	var b strings.Builder
	for i, m := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch m.Role {
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(m.Content)
	}
	return system, b.String(), image
}
