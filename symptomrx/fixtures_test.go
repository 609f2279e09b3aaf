package symptomrx

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// medicineSymptoms maps each medicine to the symptoms that indicate it.
var medicineSymptoms = map[string][]string{
	"Cetirizine":  {"sneezing", "itchy eyes", "runny nose"},
	"Ibuprofen":   {"joint pain", "swelling", "muscle ache"},
	"Omeprazole":  {"heartburn", "acid reflux", "bloating"},
	"Paracetamol": {"fever", "headache", "chills"},
	"Salbutamol":  {"wheezing", "breathlessness", "chest tightness"},
}

var medicines = []string{"Cetirizine", "Ibuprofen", "Omeprazole", "Paracetamol", "Salbutamol"}

// syntheticRows returns a header plus n labeled rows cycling through the five
// medicines. Every third row leaves one symptom empty.
func syntheticRows(n int) [][]string {
	rows := [][]string{{"symptom1", "symptom2", "symptom3", "medicine"}}
	for i := 0; i < n; i++ {
		med := medicines[i%len(medicines)]
		syms := medicineSymptoms[med]
		row := []string{
			syms[i%3],
			syms[(i+1)%3],
			syms[(i+2)%3],
			med,
		}
		if i%3 == 0 {
			row[i%2+1] = ""
		}
		rows = append(rows, row)
	}
	return rows
}

func writeCSV(t *testing.T, name string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	if filepath.Ext(name) == ".tsv" {
		w.Comma = '\t'
	}
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return path
}

// splitRows separates combined documents and labels from rows produced by syntheticRows.
func splitRows(rows [][]string) (docs, labels []string) {
	for _, row := range rows[1:] {
		rec := Record{Label: row[3]}
		for _, v := range row[:3] {
			if v == "" {
				rec.Symptoms = append(rec.Symptoms, Cell{})
			} else {
				rec.Symptoms = append(rec.Symptoms, Present(v))
			}
		}
		docs = append(docs, Combine(rec, DefaultSentinel))
		labels = append(labels, rec.Label)
	}
	return docs, labels
}
