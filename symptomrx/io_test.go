package symptomrx

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDatasetDropsUnlabeledRows(t *testing.T) {
	path := writeCSV(t, "data.csv", [][]string{
		{"\ufeffSymptom1", "symptom2", "symptom3", "Medicine"},
		{"fever", "", "chills", "Paracetamol"},
		{"cough", "sore throat", "", ""},
		{"", "", "", "Ibuprofen"},
		{"rash", "itching", "", "   "},
	})

	ds, err := LoadDataset(context.Background(), path, DatasetOptions{})
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, 2, ds.Dropped)
	assert.Equal(t, "Medicine", ds.LabelColumn)
	assert.Equal(t, []string{"Symptom1", "symptom2", "symptom3"}, ds.SymptomColumns)

	for _, rec := range ds.Records {
		assert.NotEmpty(t, rec.Label)
		assert.Len(t, rec.Symptoms, 3)
	}
	assert.Equal(t, []Cell{Present("fever"), {}, Present("chills")}, ds.Records[0].Symptoms)
	assert.Equal(t, []string{"Paracetamol", "Ibuprofen"}, ds.Labels())
}

func TestLoadDatasetMissingSymptomColumns(t *testing.T) {
	path := writeCSV(t, "data.csv", [][]string{
		{"symptom1", "medicine"},
		{"fever", "Paracetamol"},
	})
	ds, err := LoadDataset(context.Background(), path, DatasetOptions{})
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, []string{"symptom1", "", ""}, ds.SymptomColumns)
	assert.Equal(t, "fever null null", Combine(ds.Records[0], DefaultSentinel))
}

func TestLoadDatasetLabelFallbackAndIndexes(t *testing.T) {
	path := writeCSV(t, "data.tsv", [][]string{
		{"a", "b", "drug"},
		{"wheezing", "cough", "Salbutamol"},
	})
	ds, err := LoadDataset(context.Background(), path, DatasetOptions{SymptomColumns: []string{"#1", "#2"}})
	require.NoError(t, err)
	assert.Equal(t, "drug", ds.LabelColumn)
	assert.Equal(t, []string{"a", "b"}, ds.SymptomColumns)
	assert.Equal(t, "wheezing cough", Combine(ds.Records[0], DefaultSentinel))
}

func TestLoadDatasetKeepsLabelSpelling(t *testing.T) {
	path := writeCSV(t, "data.csv", [][]string{
		{"symptom1", "medicine"},
		{"ＦＡＴＩＧＵＥ", " Vitamin B₁₂ "},
		{"fever", "Ｐａｒａｃｅｔａｍｏｌ"},
	})
	ds, err := LoadDataset(context.Background(), path, DatasetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vitamin B₁₂", "Ｐａｒａｃｅｔａｍｏｌ"}, ds.Labels())
	assert.Equal(t, Present("FATIGUE"), ds.Records[0].Symptoms[0])
}

func TestLoadDatasetErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	noLabel := writeCSV(t, "nolabel.csv", [][]string{{"symptom1", "symptom2"}, {"fever", "cough"}})
	malformed := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(malformed, []byte("symptom1,medicine\n\"fever,Paracetamol\n"), 0o644))
	overlap := writeCSV(t, "overlap.csv", [][]string{{"symptom1", "medicine"}, {"fever", "Paracetamol"}})
	drugOnly := writeCSV(t, "drug.csv", [][]string{{"symptom1", "drug"}, {"fever", "Paracetamol"}})

	tests := []struct {
		name string
		path string
		opts DatasetOptions
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.csv")},
		{name: "empty file", path: empty},
		{name: "no label column", path: noLabel},
		{name: "malformed quotes", path: malformed},
		{name: "bad column index", path: noLabel, opts: DatasetOptions{LabelColumn: "#9"}},
		{name: "configured label column absent", path: drugOnly, opts: DatasetOptions{LabelColumn: "diagnosis"}},
		{name: "symptom is label", path: overlap, opts: DatasetOptions{SymptomColumns: []string{"medicine"}}},
		{name: "missing database", path: filepath.Join(dir, "nope.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDataset(context.Background(), tt.path, tt.opts)
			require.Error(t, err)
			var loadErr *DatasetLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.path, loadErr.Path)
		})
	}
}

func TestLoadInputsAllowsMissingLabel(t *testing.T) {
	path := writeCSV(t, "inputs.csv", [][]string{
		{"symptom1", "symptom2", "symptom3"},
		{"fever", "", ""},
		{"", "", ""},
	})
	ds, err := LoadInputs(context.Background(), path, DatasetOptions{})
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "", ds.LabelColumn)
	assert.Equal(t, "null null null", Combine(ds.Records[1], DefaultSentinel))
}

func TestLoadDatasetSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE records (symptom1 TEXT, symptom2 TEXT, symptom3 TEXT, medicine TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO records VALUES
		('Fever', NULL, 'chills', 'Paracetamol'),
		('sneezing', 'runny nose', '', 'Cetirizine'),
		('cough', NULL, NULL, NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ds, err := LoadDataset(context.Background(), path, DatasetOptions{})
	require.NoError(t, err)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, 1, ds.Dropped)
	assert.Equal(t, "fever null chills", Combine(ds.Records[0], DefaultSentinel))
	assert.Equal(t, "sneezing runny nose null", Combine(ds.Records[1], DefaultSentinel))

	_, err = LoadDataset(context.Background(), path, DatasetOptions{Table: "records; DROP TABLE records"})
	var loadErr *DatasetLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestLoadDatasetHonoursCancellation(t *testing.T) {
	path := writeCSV(t, "data.csv", syntheticRows(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadDataset(ctx, path, DatasetOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
