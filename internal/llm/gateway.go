package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paperlane/docpipe/internal/config"
)

type gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	fallbackProvider string
	maxRetries       int
}

func NewGateway(cfg config.LLMConfig) Gateway {
	g := &gateway{
		providers:        make(map[string]Provider),
		defaultProvider:  cfg.DefaultProvider,
		fallbackProvider: cfg.FallbackProvider,
		maxRetries:       cfg.MaxRetries,
	}

	if cfg.APIKey != "" {
		g.providers["cloud"] = NewCloudProvider(cfg.APIKey, cfg.BaseURL, cfg.FolderID, cfg.Model)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}

	return g
}

// NewGatewayWithProviders wires explicit providers, mainly for tests.
func NewGatewayWithProviders(providers map[string]Provider, defaultProvider, fallbackProvider string, maxRetries int) Gateway {
	return &gateway{
		providers:        providers,
		defaultProvider:  defaultProvider,
		fallbackProvider: fallbackProvider,
		maxRetries:       maxRetries,
	}
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	resp, err := g.chatWithRetry(ctx, providerName, req)
	if err != nil && g.fallbackProvider != "" && g.fallbackProvider != providerName {
		slog.Warn("primary provider failed, trying fallback",
			"primary", providerName,
			"fallback", g.fallbackProvider,
			"error", err,
		)
		return g.chatWithRetry(ctx, g.fallbackProvider, req)
	}
	return resp, err
}

func (g *gateway) chatWithRetry(ctx context.Context, providerName string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := p.ChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		slog.Warn("chat attempt failed", "provider", providerName, "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("provider %s failed after %d attempts: %w", providerName, g.maxRetries+1, lastErr)
}
