package symptomrx

import "strings"

// Combine derives the single text feature of a record: every symptom slot in
// order, lowercased, with absent values replaced by sentinel, joined by one space.
func Combine(rec Record, sentinel string) string {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	parts := make([]string, len(rec.Symptoms))
	for i, cell := range rec.Symptoms {
		if !cell.Valid || strings.TrimSpace(cell.Value) == "" {
			parts[i] = sentinel
			continue
		}
		parts[i] = FoldCase(cell.Value)
	}
	return strings.Join(parts, " ")
}

// CombineAll applies Combine to every record, preserving order.
func CombineAll(records []Record, sentinel string) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = Combine(rec, sentinel)
	}
	return out
}
