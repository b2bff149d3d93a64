package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlane/docpipe/internal/finance"
	"github.com/paperlane/docpipe/internal/llm"
	"github.com/paperlane/docpipe/internal/review"
)

type fixedProvider struct {
	reply string
}

func (p *fixedProvider) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Provider: p.Name(), Content: p.reply}, nil
}

func (p *fixedProvider) Name() string { return "fixed" }

func newReviewHandler(reply string) *ReviewHandler {
	gw := llm.NewGatewayWithProviders(map[string]llm.Provider{"fixed": &fixedProvider{reply: reply}}, "fixed", "", 1)
	return NewReviewHandler(review.NewService(gw, nil, 0.3, 500))
}

func TestReviewApproved(t *testing.T) {
	h := newReviewHandler("ОДОБРЕНО: финансы")

	req := httptest.NewRequest(http.MethodPost, "/review", strings.NewReader(`{"content":"квартальный отчёт"}`))
	rec := httptest.NewRecorder()
	h.Review(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var verdict review.Verdict
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&verdict))
	assert.True(t, verdict.Approved)
	assert.Equal(t, "финансы", verdict.Topic)
}

func TestReviewRejected(t *testing.T) {
	h := newReviewHandler("ОТКЛОНЕНО: реклама")

	req := httptest.NewRequest(http.MethodPost, "/review", strings.NewReader(`{"content":"купите сейчас"}`))
	rec := httptest.NewRecorder()
	h.Review(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var verdict review.Verdict
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&verdict))
	assert.False(t, verdict.Approved)
	assert.Equal(t, "реклама", verdict.Reason)
}

func TestReviewRequiresContent(t *testing.T) {
	h := newReviewHandler("ОДОБРЕНО: тема")

	req := httptest.NewRequest(http.MethodPost, "/review", strings.NewReader(`{"content":""}`))
	rec := httptest.NewRecorder()
	h.Review(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewUnparseableVerdict(t *testing.T) {
	h := newReviewHandler("какой-то свободный текст")

	req := httptest.NewRequest(http.MethodPost, "/review", strings.NewReader(`{"content":"статья"}`))
	rec := httptest.NewRecorder()
	h.Review(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func newFinanceHandler(reply string) *FinanceHandler {
	gw := llm.NewGatewayWithProviders(map[string]llm.Provider{"fixed": &fixedProvider{reply: reply}}, "fixed", "", 1)
	return NewFinanceHandler(finance.NewVerifier(gw))
}

func multipartReport(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range fields {
		part, err := mw.CreateFormFile(field, field+".json")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestFinanceVerifyWithoutPrevious(t *testing.T) {
	h := newFinanceHandler("Верно: все проверки пройдены.")

	body, contentType := multipartReport(t, map[string]string{
		"current": `{"items":[{"name":"аренда","amount":50000}],"total":50000}`,
	})
	req := httptest.NewRequest(http.MethodPost, "/finance/verify", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result finance.CheckResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.Passed)
	assert.Empty(t, result.LocalFindings)
}

func TestFinanceVerifyWithPrevious(t *testing.T) {
	h := newFinanceHandler("Ошибка: снижение по статье «аренда».")

	body, contentType := multipartReport(t, map[string]string{
		"current":  `{"items":[{"name":"аренда","amount":40000}],"total":40000}`,
		"previous": `{"items":[{"name":"аренда","amount":45000}],"total":45000}`,
	})
	req := httptest.NewRequest(http.MethodPost, "/finance/verify", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result finance.CheckResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.False(t, result.Passed)
	require.Len(t, result.LocalFindings, 1)
	assert.Equal(t, finance.FindingAmountDecreased, result.LocalFindings[0].Kind)
}

func TestFinanceVerifyRequiresCurrent(t *testing.T) {
	h := newFinanceHandler("Верно: все проверки пройдены.")

	body, contentType := multipartReport(t, map[string]string{})
	req := httptest.NewRequest(http.MethodPost, "/finance/verify", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
