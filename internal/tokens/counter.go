package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// FallbackEncoding is used for models tiktoken has no mapping for.
const FallbackEncoding = "cl100k_base"

// Counter estimates how many tokens a text costs.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to the Counter interface.
type CounterFunc func(text string) int

func (f CounterFunc) Count(text string) int { return f(text) }

// Tiktoken counts tokens with a BPE encoding.
type Tiktoken struct {
	Model    string
	Fallback bool
	enc      *tiktoken.Tiktoken
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

var (
	loaderOnce sync.Once
	counters   sync.Map // model id -> *Tiktoken
)

// NewCounter returns a counter using the model's own encoding, or
// FallbackEncoding when the model is not known to tiktoken. Ranks come from
// the embedded offline loader so counting never touches the network.
func NewCounter(model string) (*Tiktoken, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	if cached, ok := counters.Load(model); ok {
		return cached.(*Tiktoken), nil
	}

	counter := &Tiktoken{Model: model}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(FallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load encoding %s: %w", FallbackEncoding, err)
		}
		counter.Fallback = true
	}
	counter.enc = enc

	actual, _ := counters.LoadOrStore(model, counter)
	return actual.(*Tiktoken), nil
}
