// Package review checks script content against editorial policy through the
// hosted LLM and returns a structured verdict.
package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/paperlane/docpipe/internal/cache"
	"github.com/paperlane/docpipe/internal/llm"
)

// Instruction is the reviewing prompt. The model must answer with exactly
// one line: an approval carrying the detected topic, or a rejection carrying
// the reason.
const Instruction = `Ты — эксперт по анализу контента. Проанализируй предоставленный сценарий по строгим правилам:

1.  Тема: Определи основную тему сценария и вырази её одним обобщающим словом или короткой фразой (например: семья, патриотизм, экология, здоровый образ жизни, историческая память).
2.  Проверка ценностей: Проверь, соответствует ли сценарий традиционным ценностям (жизнь, достоинство, патриотизм, крепкая семья, духовное над материальным, гуманизм, справедливость, историческая память и другие из списка). Если нет — сценарий отклоняется.
3.  Проверка на запреты: Отклони сценарий, если в нем есть прямое или косвенное описание, пропаганда или одобрение: секса, наркотиков, злоупотребления алкоголем, нецензурной лексики, насилия, разжигания розни, унижения традиционных ценностей.

Формат ответа: Только одна строка.
*   Если сценарий прошел: «ОДОБРЕНО: [Тема]».
*   Если сценарий отклонен: «ОТКЛОНЕНО: [Причина: несоответствие ценностям/запретный контент, цитата из текста]».

Ответ строго до 150 символов. Никаких пояснений.`

const (
	approvedPrefix = "ОДОБРЕНО:"
	rejectedPrefix = "ОТКЛОНЕНО:"
)

// ErrUnparseableVerdict means the model reply did not follow the mandated
// one-line format. The raw reply is wrapped alongside.
var ErrUnparseableVerdict = errors.New("unparseable verdict")

// Verdict is the structured outcome of a content review.
type Verdict struct {
	Approved bool   `json:"approved"`
	Topic    string `json:"topic,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Raw      string `json:"raw"`
}

type Service struct {
	gateway     llm.Gateway
	cache       *cache.Cache
	temperature float64
	maxTokens   int
	cacheTTL    time.Duration
}

// NewService builds a reviewer. cache may be nil, in which case every call
// goes to the model.
func NewService(gw llm.Gateway, c *cache.Cache, temperature float64, maxTokens int) *Service {
	if temperature <= 0 {
		temperature = 0.3
	}
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Service{
		gateway:     gw,
		cache:       c,
		temperature: temperature,
		maxTokens:   maxTokens,
		cacheTTL:    24 * time.Hour,
	}
}

// Review classifies the given script content. Identical content hits the
// verdict cache instead of the model.
func (s *Service) Review(ctx context.Context, content string) (*Verdict, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("empty content")
	}

	key := cacheKey(content)
	if s.cache != nil {
		var cached Verdict
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("verdict cache read failed", "error", err)
		}
	}

	resp, err := s.gateway.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: Instruction},
			{Role: "user", Content: content},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("review content: %w", err)
	}

	verdict, err := ParseVerdict(resp.Content)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, verdict, s.cacheTTL); err != nil {
			slog.Warn("verdict cache write failed", "error", err)
		}
	}
	return verdict, nil
}

// ParseVerdict extracts the structured verdict from the model's one-line
// reply. Replies outside the mandated format are an error, never a guess.
func ParseVerdict(reply string) (*Verdict, error) {
	line := strings.TrimSpace(reply)
	line = strings.Trim(line, "«»\"")

	switch {
	case strings.HasPrefix(line, approvedPrefix):
		topic := strings.TrimSpace(strings.TrimPrefix(line, approvedPrefix))
		topic = strings.Trim(topic, "[]")
		return &Verdict{Approved: true, Topic: topic, Raw: reply}, nil
	case strings.HasPrefix(line, rejectedPrefix):
		reason := strings.TrimSpace(strings.TrimPrefix(line, rejectedPrefix))
		reason = strings.Trim(reason, "[]")
		return &Verdict{Approved: false, Reason: reason, Raw: reply}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnparseableVerdict, reply)
	}
}

func cacheKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "review:verdict:" + hex.EncodeToString(sum[:])
}
