// Package llm defines the model-call capability used by the judge and the
// summarizer, plus adapters for concrete providers.
package llm

import (
	"context"
	"errors"
	"time"
)

// Role tags a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrEmptyReply is returned when a provider answers without any content.
var ErrEmptyReply = errors.New("no response messages received from model")

// Message is one role-tagged turn. Images are raw encoded image bytes
// attached to the turn.
type Message struct {
	Role    Role
	Content string
	Images  [][]byte
}

// Client sends an ordered conversation to a model and returns its reply.
type Client interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, model string, messages []Message) (string, error)

func (f ClientFunc) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	return f(ctx, model, messages)
}

// System builds a system turn.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user turn with optional images.
func User(content string, images ...[]byte) Message {
	return Message{Role: RoleUser, Content: content, Images: images}
}

// Assistant builds an assistant turn.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// WithDelay returns a client that waits d after every successful call. The
// wait is cut short when ctx is cancelled.
func WithDelay(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return ClientFunc(func(ctx context.Context, model string, messages []Message) (string, error) {
		reply, err := c.Complete(ctx, model, messages)
		if err != nil {
			return "", err
		}
		if err := Sleep(ctx, d); err != nil {
			return "", err
		}
		return reply, nil
	})
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
