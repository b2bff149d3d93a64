package finance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/paperlane/docpipe/internal/llm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileJSON(t *testing.T) {
	path := writeFile(t, "report.json", `{
		"items": [
			{"name": "аренда", "amount": 50000},
			{"article": "связь", "sum": 3000}
		],
		"total": 53000
	}`)

	report, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Item{{Name: "аренда", Amount: 50000}, {Name: "связь", Amount: 3000}}, report.Items)
	assert.Equal(t, 53000.0, report.Total)
}

func TestParseFileCSV(t *testing.T) {
	path := writeFile(t, "report.csv", "name,amount\nаренда,50000\nсвязь,3000\n")

	report, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, 53000.0, report.Total)
}

func TestParseFileCSVAliasHeaders(t *testing.T) {
	path := writeFile(t, "report.csv", "description,value\nтранспорт,1200\n")

	report, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Item{{Name: "транспорт", Amount: 1200}}, report.Items)
}

func TestParseFileCSVMissingColumns(t *testing.T) {
	path := writeFile(t, "report.csv", "foo,bar\nx,1\n")

	_, err := ParseFile(path)
	assert.Error(t, err)
}

func TestParseFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"name", "amount"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"аренда", 50000}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"связь", 3000}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	report, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "аренда", report.Items[0].Name)
	assert.Equal(t, 50000.0, report.Items[0].Amount)
}

func TestParseFileUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "report.txt", "whatever")

	_, err := ParseFile(path)
	assert.Error(t, err)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("/nonexistent/report.json")
	assert.Error(t, err)
}

func TestFormatForPrompt(t *testing.T) {
	report := &Report{
		Items: []Item{{Name: "аренда", Amount: 50000}, {Name: "связь", Amount: 3000.5}},
		Total: 53000.5,
	}

	got := report.FormatForPrompt()
	assert.Contains(t, got, "  - аренда: 50000 руб.")
	assert.Contains(t, got, "  - связь: 3000.5 руб.")
	assert.Contains(t, got, "Итоговая сумма: 53000.5 руб.")

	assert.Equal(t, "Данные отсутствуют", (&Report{}).FormatForPrompt())
}

func TestVerifyCleanReports(t *testing.T) {
	previous := &Report{Items: []Item{{Name: "аренда", Amount: 45000}}, Total: 45000}
	current := &Report{Items: []Item{{Name: "аренда", Amount: 50000}}, Total: 50000}

	assert.Empty(t, Verify(current, previous))
}

func TestVerifyWithoutPreviousReport(t *testing.T) {
	current := &Report{Items: []Item{{Name: "аренда", Amount: 50000}}, Total: 50000}
	assert.Empty(t, Verify(current, nil))

	// The total check still runs on its own.
	wrong := &Report{Items: []Item{{Name: "аренда", Amount: 50000}}, Total: 60000}
	findings := Verify(wrong, nil)
	require.Len(t, findings, 1)
	assert.Equal(t, FindingTotalMismatch, findings[0].Kind)
}

func TestCheckWithoutPreviousReport(t *testing.T) {
	v := NewVerifier(&verdictGateway{reply: "Верно: все проверки пройдены."})

	current := &Report{Items: []Item{{Name: "аренда", Amount: 50000}}, Total: 50000}
	result, err := v.Check(context.Background(), current, nil)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.LocalFindings)
}

func TestVerifyFindsAllDiscrepancies(t *testing.T) {
	previous := &Report{
		Items: []Item{
			{Name: "аренда", Amount: 45000},
			{Name: "связь", Amount: 3000},
			{Name: "транспорт", Amount: 1200},
		},
		Total: 49200,
	}
	current := &Report{
		Items: []Item{
			{Name: "аренда", Amount: 40000}, // decreased
			{Name: "связь", Amount: 3000},
			// транспорт is missing
		},
		Total: 50000, // wrong: items sum to 43000
	}

	findings := Verify(current, previous)
	kinds := make([]string, 0, len(findings))
	for _, f := range findings {
		kinds = append(kinds, f.Kind)
	}
	assert.ElementsMatch(t, []string{FindingTotalMismatch, FindingMissingItem, FindingAmountDecreased}, kinds)
}

func TestVerifyToleratesRounding(t *testing.T) {
	current := &Report{Items: []Item{{Name: "аренда", Amount: 100.004}}, Total: 100.0}

	assert.Empty(t, Verify(current, &Report{}))
}

type verdictGateway struct{ reply string }

func (g *verdictGateway) Chat(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: g.reply}, nil
}

func (g *verdictGateway) Provider(string) (llm.Provider, error) { return nil, nil }

func TestCheckPassesWhenBothAgree(t *testing.T) {
	v := NewVerifier(&verdictGateway{reply: "Верно: все проверки пройдены."})

	report := &Report{Items: []Item{{Name: "аренда", Amount: 50000}}, Total: 50000}
	result, err := v.Check(context.Background(), report, report)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.LocalFindings)
}

func TestCheckFailsOnLocalFindingsDespiteModelApproval(t *testing.T) {
	v := NewVerifier(&verdictGateway{reply: "Верно: все проверки пройдены."})

	current := &Report{Items: []Item{{Name: "аренда", Amount: 100}}, Total: 500}
	result, err := v.Check(context.Background(), current, &Report{})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.LocalFindings, 1)
	assert.Equal(t, FindingTotalMismatch, result.LocalFindings[0].Kind)
}

func TestCheckFailsOnModelRejection(t *testing.T) {
	v := NewVerifier(&verdictGateway{reply: `Ошибка: отсутствует статья "транспорт".`})

	report := &Report{Items: []Item{{Name: "аренда", Amount: 100}}, Total: 100}
	result, err := v.Check(context.Background(), report, report)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Contains(t, result.ModelVerdict, "Ошибка")
}
