package tokens

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultBuffer is the number of tokens kept free for the model's reply.
const DefaultBuffer = 500

// DefaultContext is used for models that match no entry in Limits.Contexts.
const DefaultContext = 2048

// ErrNoCeiling is returned when a model's context minus the buffer leaves no
// room for prompt content.
var ErrNoCeiling = errors.New("no token budget left for prompt content")

// Limits maps model identifiers to their maximum context size. Keys are
// matched as substrings of the model id and the longest match wins, so
// "gpt-4o" beats "gpt-4" for the model "gpt-4o-mini".
type Limits struct {
	Contexts map[string]int
	Default  int
	Buffer   int
}

// DefaultLimits returns the context table used when none is configured.
func DefaultLimits() Limits {
	return Limits{
		Contexts: map[string]int{
			"gpt-4":   8192,
			"gpt-3.5": 4096,
		},
		Default: DefaultContext,
		Buffer:  DefaultBuffer,
	}
}

// Context returns the maximum context size for model.
func (l Limits) Context(model string) int {
	best, size := "", l.Default
	for key, n := range l.Contexts {
		if key == "" || !strings.Contains(model, key) {
			continue
		}
		if len(key) > len(best) || (len(key) == len(best) && key < best) {
			best, size = key, n
		}
	}
	return size
}

// Ceiling returns the token ceiling for prompt content sent to model.
func (l Limits) Ceiling(model string) (int, error) {
	ceiling := l.Context(model) - l.Buffer
	if ceiling <= 0 {
		return 0, fmt.Errorf("model %q: context %d, buffer %d: %w", model, l.Context(model), l.Buffer, ErrNoCeiling)
	}
	return ceiling, nil
}
