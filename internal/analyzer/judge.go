package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bdougie/videojudge/internal/llm"
	"github.com/bdougie/videojudge/internal/models"
	"github.com/bdougie/videojudge/internal/parser"
)

// imagePreamble is the text sent alongside every frame image
const imagePreamble = "Here is the image to analyze."

// Judgment is the outcome of judging one frame
type Judgment struct {
	Label      models.Label
	Confidence float64

	// Initial is the first reply, Reflection the second one (empty when no
	// reflection prompt is configured).
	Initial    string
	Reflection string

	// FellBack is set when the reflection reply carried no confidence and the
	// initial judgment was kept.
	FellBack bool
}

// Judge runs the analyze-then-reflect protocol for single frames
type Judge struct {
	client           llm.Client
	model            string
	systemPrompt     string
	reflectionPrompt string
	logger           *slog.Logger
}

// NewJudge creates a judge. An empty reflectionPrompt disables reflection.
func NewJudge(client llm.Client, model, systemPrompt, reflectionPrompt string, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{
		client:           client,
		model:            model,
		systemPrompt:     systemPrompt,
		reflectionPrompt: reflectionPrompt,
		logger:           logger,
	}
}

// Judge asks the model about frame and, when configured, asks it to reflect
// on its own answer. The reflected answer wins unless it lost the confidence
// value that the initial answer had.
func (j *Judge) Judge(ctx context.Context, frame models.Frame) (Judgment, error) {
	image, err := frame.Load()
	if err != nil {
		return Judgment{}, fmt.Errorf("load image: %w", err)
	}

	messages := []llm.Message{
		llm.System(j.systemPrompt),
		llm.User(imagePreamble, image),
	}
	initial, err := j.client.Complete(ctx, j.model, messages)
	if err != nil {
		return Judgment{}, fmt.Errorf("initial analysis: %w", err)
	}
	initial = strings.TrimSpace(initial)
	j.logger.Debug("initial reply", "frame", frame.ID, "content", initial)

	label, confidence := parser.Parse(initial)
	result := Judgment{Label: label, Confidence: confidence, Initial: initial}
	if j.reflectionPrompt == "" {
		return result, nil
	}

	messages = append(messages,
		llm.Assistant(initial),
		llm.User(j.reflectionPrompt),
	)
	reflection, err := j.client.Complete(ctx, j.model, messages)
	if err != nil {
		return Judgment{}, fmt.Errorf("reflection: %w", err)
	}
	reflection = strings.TrimSpace(reflection)
	j.logger.Debug("reflection reply", "frame", frame.ID, "content", reflection)
	result.Reflection = reflection

	// Label and confidence revert together; the label never reverts alone.
	rLabel, rConfidence := parser.Parse(reflection)
	if rConfidence == models.NoConfidence && confidence > models.NoConfidence {
		result.FellBack = true
		return result, nil
	}
	result.Label, result.Confidence = rLabel, rConfidence
	return result, nil
}
