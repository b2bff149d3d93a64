// Package finance parses quarterly expense reports and verifies them both
// locally and through the hosted LLM.
package finance

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Item is a single expense line.
type Item struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Report is a parsed financial report.
type Report struct {
	Items []Item  `json:"items"`
	Total float64 `json:"total"`
}

// Column aliases accepted across report formats.
var (
	nameAliases   = []string{"name", "article", "item", "description"}
	amountAliases = []string{"amount", "sum", "value", "total"}
)

// ParseFile reads a report from json, csv, or xlsx, chosen by extension.
func ParseFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(f)
	case ".csv":
		return parseCSV(f)
	case ".xlsx", ".xls":
		return parseXLSX(f)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", path)
	}
}

func parseJSON(r io.Reader) (*Report, error) {
	var raw struct {
		Items []map[string]any `json:"items"`
		Total *float64         `json:"total"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json report: %w", err)
	}

	report := &Report{}
	for _, rec := range raw.Items {
		item := Item{}
		for _, alias := range nameAliases {
			if v, ok := rec[alias]; ok {
				item.Name = fmt.Sprint(v)
				break
			}
		}
		for _, alias := range amountAliases {
			if v, ok := rec[alias]; ok {
				if n, ok := toNumber(v); ok {
					item.Amount = n
					break
				}
			}
		}
		report.Items = append(report.Items, item)
	}

	if raw.Total != nil {
		report.Total = *raw.Total
	} else {
		report.Total = sumItems(report.Items)
	}
	return report, nil
}

func parseCSV(r io.Reader) (*Report, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv report: %w", err)
	}
	return fromRows(records)
}

func parseXLSX(r io.Reader) (*Report, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read workbook rows: %w", err)
	}
	return fromRows(rows)
}

// fromRows builds a report from a header row plus data rows, resolving the
// name and amount columns through their aliases.
func fromRows(rows [][]string) (*Report, error) {
	if len(rows) == 0 {
		return &Report{}, nil
	}

	nameCol, amountCol := -1, -1
	for i, header := range rows[0] {
		h := strings.ToLower(strings.TrimSpace(header))
		if nameCol < 0 && contains(nameAliases, h) {
			nameCol = i
		}
		if amountCol < 0 && contains(amountAliases, h) {
			amountCol = i
		}
	}
	if nameCol < 0 || amountCol < 0 {
		return nil, fmt.Errorf("report is missing a name or amount column (headers: %s)", strings.Join(rows[0], ", "))
	}

	report := &Report{}
	for _, row := range rows[1:] {
		if nameCol >= len(row) {
			continue
		}
		item := Item{Name: strings.TrimSpace(row[nameCol])}
		if item.Name == "" {
			continue
		}
		if amountCol < len(row) {
			if n, err := strconv.ParseFloat(strings.TrimSpace(row[amountCol]), 64); err == nil {
				item.Amount = n
			}
		}
		report.Items = append(report.Items, item)
	}
	report.Total = sumItems(report.Items)
	return report, nil
}

// FormatForPrompt renders the report deterministically for inclusion in the
// verification prompt.
func (r *Report) FormatForPrompt() string {
	if r == nil || (len(r.Items) == 0 && r.Total == 0) {
		return "Данные отсутствуют"
	}

	var sb strings.Builder
	if len(r.Items) > 0 {
		sb.WriteString("Статьи расходов:\n")
		for _, item := range r.Items {
			fmt.Fprintf(&sb, "  - %s: %s руб.\n", item.Name, formatAmount(item.Amount))
		}
	}
	fmt.Fprintf(&sb, "Итоговая сумма: %s руб.", formatAmount(r.Total))
	return sb.String()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sumItems(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return total
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
