package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// CloudProvider talks to an OpenAI-compatible hosted endpoint. Models are
// addressed by cloud URIs of the form gpt://<folder-id>/<model>; bare model
// names are expanded with the configured folder.
type CloudProvider struct {
	client       *openai.Client
	folderID     string
	defaultModel string
}

func NewCloudProvider(apiKey, baseURL, folderID, defaultModel string) *CloudProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &CloudProvider{
		client:       openai.NewClientWithConfig(cfg),
		folderID:     folderID,
		defaultModel: defaultModel,
	}
}

func (p *CloudProvider) Name() string { return "cloud" }

// ModelURI expands a bare model name into the folder-scoped URI the hosted
// endpoint expects. Already-qualified URIs pass through untouched.
func (p *CloudProvider) ModelURI(model string) string {
	if model == "" {
		model = p.defaultModel
	}
	if strings.Contains(model, "://") {
		return model
	}
	return fmt.Sprintf("gpt://%s/%s", p.folderID, model)
}

func (p *CloudProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	oReq := openai.ChatCompletionRequest{
		Model:    p.ModelURI(req.Model),
		Messages: msgs,
	}
	if req.Temperature > 0 {
		oReq.Temperature = float32(req.Temperature)
	}
	if req.MaxTokens > 0 {
		oReq.MaxTokens = req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, oReq)
	if err != nil {
		return nil, fmt.Errorf("cloud chat: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &ChatResponse{
		ID:           resp.ID,
		Provider:     "cloud",
		Model:        resp.Model,
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
