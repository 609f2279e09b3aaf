package symptomrx

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultLabelColumn is the label column used when none is configured.
const DefaultLabelColumn = "medicine"

// labelCandidates are tried, in order, when the default label column is absent
// from the header. An explicitly configured column is never substituted.
var labelCandidates = []string{DefaultLabelColumn, "medication", "drug", "label"}

// DatasetOptions selects which columns map to record fields.
// Column references are header names (case-insensitive) or 1-based "#n" positions.
type DatasetOptions struct {
	LabelColumn    string
	SymptomColumns []string
	// Table is the SQLite table read when the source is a database.
	Table string
	// LabelOptional lets rows through without a label column; used when reading prediction input.
	LabelOptional bool
}

func (o DatasetOptions) withDefaults() DatasetOptions {
	if strings.TrimSpace(o.LabelColumn) == "" {
		o.LabelColumn = DefaultLabelColumn
	}
	if len(o.SymptomColumns) == 0 {
		o.SymptomColumns = []string{"symptom1", "symptom2", "symptom3"}
	}
	if strings.TrimSpace(o.Table) == "" {
		o.Table = "records"
	}
	return o
}

type resolvedColumns struct {
	Label       int
	LabelName   string
	Symptoms    []int
	SymptomName []string
}

// resolveColumns maps the configured column references onto header positions.
// Symptom columns that cannot be found resolve to -1 and read as absent.
func resolveColumns(header []string, opts DatasetOptions) (resolvedColumns, error) {
	res := resolvedColumns{
		Label:       -1,
		Symptoms:    make([]int, len(opts.SymptomColumns)),
		SymptomName: make([]string, len(opts.SymptomColumns)),
	}
	idx, err := matchColumn(header, opts.LabelColumn)
	if err != nil {
		return res, err
	}
	if idx < 0 && strings.EqualFold(strings.TrimSpace(opts.LabelColumn), DefaultLabelColumn) {
		idx = findColumn(header, labelCandidates)
	}
	if idx < 0 && !opts.LabelOptional {
		return res, fmt.Errorf("label column %q not found in header %v", opts.LabelColumn, header)
	}
	res.Label = idx
	res.LabelName = headerNameForIndex(header, idx)
	for i, ref := range opts.SymptomColumns {
		col, err := matchColumn(header, ref)
		if err != nil {
			return res, err
		}
		if col == res.Label && col >= 0 {
			return res, fmt.Errorf("symptom column %q is also the label column", ref)
		}
		res.Symptoms[i] = col
		res.SymptomName[i] = headerNameForIndex(header, col)
	}
	return res, nil
}

func findColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

// matchColumn returns -1 without error when a named column is simply absent;
// malformed or out-of-range "#n" references are errors.
func matchColumn(header []string, ref string) (int, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return -1, nil
	}
	for i, col := range header {
		if strings.EqualFold(col, trimmed) {
			return i, nil
		}
	}
	if strings.HasPrefix(trimmed, "#") {
		idx, err := parseColumnIndex(trimmed)
		if err != nil {
			return -1, err
		}
		if idx >= len(header) {
			return -1, fmt.Errorf("column index %s is out of range", trimmed)
		}
		return idx, nil
	}
	return -1, nil
}

func parseColumnIndex(token string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(token, "#"))
	if trimmed == "" {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	idx, err := strconv.Atoi(trimmed)
	if err != nil {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	if idx <= 0 {
		return -1, fmt.Errorf("column indices are 1-based: %q", token)
	}
	return idx - 1, nil
}

func headerNameForIndex(header []string, idx int) string {
	if idx < 0 {
		return ""
	}
	if idx < len(header) {
		if name := header[idx]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("#%d", idx+1)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
