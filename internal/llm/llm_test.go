package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/agent-api/core"
	"github.com/agent-api/core/agent"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenSingleTurn(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff}
	system, input, image := flatten([]Message{
		System("judge the frame"),
		User("here is the frame", img),
	})

	assert.Equal(t, "judge the frame", system)
	assert.Equal(t, "here is the frame", input)
	assert.Equal(t, img, image)
}

func TestFlattenReplaysHistory(t *testing.T) {
	img := []byte{1, 2, 3}
	system, input, image := flatten([]Message{
		System("judge"),
		User("frame", img),
		Assistant("Yes, 80%"),
		User("are you sure?"),
	})

	assert.Equal(t, "judge", system)
	assert.Equal(t, "User: frame\n\nAssistant: Yes, 80%\n\nUser: are you sure?", input)
	assert.Equal(t, img, image)
}

func TestRunOptionsLeadWithSystemAndInlineImage(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
	opts := &agent.RunOptions{}
	for _, apply := range runOptions("judge the frame", "here is the frame", img) {
		apply(opts)
	}

	assert.Equal(t, "judge the frame\n\nhere is the frame", opts.Input)
	require.Len(t, opts.Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(img), opts.Images[0].Base64Encoding)
	assert.Equal(t, "image/jpeg", opts.Images[0].MimeType)
}

func TestRunOptionsTextOnly(t *testing.T) {
	opts := &agent.RunOptions{}
	for _, apply := range runOptions("", "summarize", nil) {
		apply(opts)
	}

	assert.Equal(t, "summarize", opts.Input)
	assert.Empty(t, opts.Images)
}

func TestLastReply(t *testing.T) {
	agg := agent.NewAgentRunAggregator()
	agg.Push(
		&core.Message{Role: core.UserMessageRole, Content: "is anyone there?"},
		&core.Message{Role: core.AssistantMessageRole, Content: "  Yes, 80%\n"},
	)
	reply, err := lastReply(agg)
	require.NoError(t, err)
	assert.Equal(t, "Yes, 80%", reply)

	_, err = lastReply(agent.NewAgentRunAggregator())
	assert.ErrorIs(t, err, ErrEmptyReply)

	prompt := agent.NewAgentRunAggregator()
	prompt.Push(&core.Message{Role: core.UserMessageRole, Content: "is anyone there?"})
	_, err = lastReply(prompt)
	assert.ErrorIs(t, err, ErrEmptyReply)

	_, err = lastReply(nil)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func ollamaAt(t *testing.T, status int) OllamaOpts {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return OllamaOpts{BaseURL: u.Scheme + "://" + u.Hostname(), Port: port}
}

func TestNewOllamaHealthy(t *testing.T) {
	o, err := NewOllama(context.Background(), ollamaAt(t, http.StatusOK))
	require.NoError(t, err)
	assert.NotNil(t, o)
}

func TestNewOllamaRejectsUnhealthyServer(t *testing.T) {
	_, err := NewOllama(context.Background(), ollamaAt(t, http.StatusInternalServerError))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestToOpenAIMessages(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	out := toOpenAIMessages([]Message{
		System("sys"),
		User("look", png),
		Assistant("No 10%"),
	})

	require.Len(t, out, 3)
	assert.Equal(t, "sys", out[0].Content)
	assert.Empty(t, out[0].MultiContent)

	assert.Empty(t, out[1].Content)
	require.Len(t, out[1].MultiContent, 2)
	assert.Equal(t, openai.ChatMessagePartTypeText, out[1].MultiContent[0].Type)
	assert.Equal(t, "look", out[1].MultiContent[0].Text)
	assert.True(t, strings.HasPrefix(out[1].MultiContent[1].ImageURL.URL, "data:image/png;base64,"))

	assert.Equal(t, openai.ChatMessageRoleAssistant, out[2].Role)
	assert.Equal(t, "No 10%", out[2].Content)
}

func TestWithDelay(t *testing.T) {
	calls := 0
	base := ClientFunc(func(ctx context.Context, model string, messages []Message) (string, error) {
		calls++
		return "ok", nil
	})

	start := time.Now()
	reply, err := WithDelay(base, 20*time.Millisecond).Complete(context.Background(), "m", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, 1, calls)
}

func TestWithDelayZeroIsPassthrough(t *testing.T) {
	base := ClientFunc(func(ctx context.Context, model string, messages []Message) (string, error) {
		return "ok", nil
	})
	c := WithDelay(base, 0)
	_, isFunc := c.(ClientFunc)
	assert.True(t, isFunc)
}

func TestWithDelayPropagatesErrorsWithoutWaiting(t *testing.T) {
	boom := errors.New("rate limited")
	base := ClientFunc(func(ctx context.Context, model string, messages []Message) (string, error) {
		return "", boom
	})

	start := time.Now()
	_, err := WithDelay(base, time.Hour).Complete(context.Background(), "m", nil)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
