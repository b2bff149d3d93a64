package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	failures int
	calls    int
	content  string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ChatCompletion(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("transient error")
	}
	return &ChatResponse{Provider: s.name, Content: s.content}, nil
}

func TestGatewayRetriesTransientFailures(t *testing.T) {
	p := &stubProvider{name: "cloud", failures: 2, content: "ok"}
	gw := NewGatewayWithProviders(map[string]Provider{"cloud": p}, "cloud", "", 3)

	resp, err := gw.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, p.calls)
}

func TestGatewayFallsBack(t *testing.T) {
	primary := &stubProvider{name: "cloud", failures: 100}
	fallback := &stubProvider{name: "anthropic", content: "from fallback"}
	gw := NewGatewayWithProviders(
		map[string]Provider{"cloud": primary, "anthropic": fallback},
		"cloud", "anthropic", 0,
	)

	resp, err := gw.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, "from fallback", resp.Content)
}

func TestGatewayUnknownProvider(t *testing.T) {
	gw := NewGatewayWithProviders(map[string]Provider{}, "cloud", "", 0)

	_, err := gw.Chat(context.Background(), ChatRequest{})
	assert.Error(t, err)
}

func TestGatewayExplicitProviderSelection(t *testing.T) {
	a := &stubProvider{name: "cloud", content: "a"}
	b := &stubProvider{name: "anthropic", content: "b"}
	gw := NewGatewayWithProviders(map[string]Provider{"cloud": a, "anthropic": b}, "cloud", "", 0)

	resp, err := gw.Chat(context.Background(), ChatRequest{Provider: "anthropic"})
	require.NoError(t, err)
	assert.Equal(t, "b", resp.Content)
	assert.Zero(t, a.calls)
}

func TestCloudProviderModelURI(t *testing.T) {
	p := NewCloudProvider("key", "", "b1gfolder", "yandexgpt")

	assert.Equal(t, "gpt://b1gfolder/yandexgpt", p.ModelURI(""))
	assert.Equal(t, "gpt://b1gfolder/yandexgpt-lite", p.ModelURI("yandexgpt-lite"))
	assert.Equal(t, "gpt://other/custom", p.ModelURI("gpt://other/custom"))
}
