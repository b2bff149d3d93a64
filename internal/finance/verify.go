package finance

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/paperlane/docpipe/internal/llm"
)

const checkInstruction = `Ты — финансовый контролер. Проанализируй предоставленные финансовые отчеты.

ТЕКУЩИЙ ОТЧЕТ: %s
ПРЕДЫДУЩИЙ ОТЧЕТ: %s

Выполни строго следующие проверки:
1. Проверь, что итоговая сумма в текущем отчете рассчитана верно.
2. Убедись, что все статьи расходов из отчета за предыдущий квартал присутствуют в текущем отчете.
3. Проверь по каждой статье расходов: сумма в текущем отчете должна быть равна или больше, чем в отчете за предыдущий квартал.

Формат ответа: Только один из двух вариантов:
- «Верно: все проверки пройдены.»
- «Ошибка: [Укажи, какая конкретно проверка не пройдена: неверная итоговая сумма / отсутствует статья "X" / снижение по статье "Y"].»

Ответ должен быть предельно лаконичным, без пояснений.`

// Finding kinds produced by local verification.
const (
	FindingTotalMismatch   = "total_mismatch"
	FindingMissingItem     = "missing_item"
	FindingAmountDecreased = "amount_decreased"
)

// Finding is one discrepancy detected locally.
type Finding struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// CheckResult combines the model verdict with local findings.
type CheckResult struct {
	Passed        bool      `json:"passed"`
	ModelVerdict  string    `json:"model_verdict"`
	LocalFindings []Finding `json:"local_findings"`
}

// Amounts within this tolerance count as equal.
const amountTolerance = 0.01

type Verifier struct {
	gateway llm.Gateway
}

func NewVerifier(gw llm.Gateway) *Verifier {
	return &Verifier{gateway: gw}
}

// Check asks the model to compare the two reports and double-checks the
// arithmetic locally. The result passes only when both agree.
func (v *Verifier) Check(ctx context.Context, current, previous *Report) (*CheckResult, error) {
	prompt := fmt.Sprintf(checkInstruction, current.FormatForPrompt(), previous.FormatForPrompt())

	resp, err := v.gateway.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "Ты — финансовый контролер. Анализируй финансовые отчеты строго по инструкции."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("verify reports: %w", err)
	}

	verdict := strings.TrimSpace(resp.Content)
	findings := Verify(current, previous)

	return &CheckResult{
		Passed:        len(findings) == 0 && strings.HasPrefix(strings.Trim(verdict, "«»"), "Верно"),
		ModelVerdict:  verdict,
		LocalFindings: findings,
	}, nil
}

// Verify runs the three local checks: recomputed total, items missing from
// the current report, and per-item decreases against the previous quarter.
// previous may be nil; the cross-quarter checks are skipped then.
func Verify(current, previous *Report) []Finding {
	var findings []Finding

	calculated := sumItems(current.Items)
	if math.Abs(calculated-current.Total) > amountTolerance {
		findings = append(findings, Finding{
			Kind:   FindingTotalMismatch,
			Detail: fmt.Sprintf("итоговая сумма %s руб. в отчете, %s руб. по расчету", formatAmount(current.Total), formatAmount(calculated)),
		})
	}

	if previous == nil {
		return findings
	}

	currentByName := make(map[string]float64, len(current.Items))
	for _, item := range current.Items {
		currentByName[item.Name] = item.Amount
	}

	for _, prev := range previous.Items {
		amount, ok := currentByName[prev.Name]
		if !ok {
			findings = append(findings, Finding{
				Kind:   FindingMissingItem,
				Detail: fmt.Sprintf("отсутствует статья %q", prev.Name),
			})
			continue
		}
		if amount < prev.Amount-amountTolerance {
			findings = append(findings, Finding{
				Kind:   FindingAmountDecreased,
				Detail: fmt.Sprintf("снижение по статье %q: %s → %s руб.", prev.Name, formatAmount(prev.Amount), formatAmount(amount)),
			})
		}
	}
	return findings
}
