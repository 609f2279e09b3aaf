package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/symptomrx/symptomrx"
)

func trainModel(t *testing.T, dir string) string {
	t.Helper()
	docs := []string{
		"fever headache chills", "fever chills null", "headache fever null",
		"sneezing runny nose itchy eyes", "sneezing itchy eyes null", "runny nose sneezing null",
	}
	labels := []string{"Paracetamol", "Paracetamol", "Paracetamol", "Cetirizine", "Cetirizine", "Cetirizine"}
	params := symptomrx.Params{NGram: symptomrx.Unigrams, C: 10, Solver: symptomrx.SolverLBFGS}
	pipe, err := symptomrx.FitPipeline(docs, labels, params, symptomrx.ClassifierOptions{}, symptomrx.Seed(1).Stream())
	require.NoError(t, err)
	pipe.Features.SymptomColumns = []string{"symptom1", "symptom2", "symptom3"}
	path := filepath.Join(dir, "model.bin")
	require.NoError(t, symptomrx.SavePipeline(path, pipe))
	return path
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--model", "m.bin", "fever", "chills"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fever", "chills"}, opts.texts)
	assert.Equal(t, 3, opts.top)

	_, err = parseFlags([]string{"--model", "m.bin"})
	assert.Error(t, err)
}

func TestRunFreeText(t *testing.T) {
	dir := t.TempDir()
	model := trainModel(t, dir)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cliOptions{modelPath: model, top: 2, texts: []string{"Fever and chills"}}, &out))
	assert.Contains(t, out.String(), "Fever and chills => Paracetamol")
}

func TestRunInputFile(t *testing.T) {
	dir := t.TempDir()
	model := trainModel(t, dir)
	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input, []byte("symptom1,symptom2,symptom3\nsneezing,,itchy eyes\nfever,,\n"), 0o644))
	output := filepath.Join(dir, "out", "pred.csv")

	var out bytes.Buffer
	err := run(context.Background(), cliOptions{modelPath: model, inputPath: input, outputPath: output, top: 1, stdout: true}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "==== Prediction preview ====")
	assert.Contains(t, out.String(), "1. sneezing, itchy eyes")

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"symptom1", "symptom2", "symptom3", "medicine", "predicted_medicine", "score"}, rows[0])
	assert.Equal(t, "Cetirizine", rows[1][4])
	assert.Equal(t, "Paracetamol", rows[2][4])
}

func TestRunMissingModel(t *testing.T) {
	err := run(context.Background(), cliOptions{modelPath: filepath.Join(t.TempDir(), "none.bin"), texts: []string{"x"}}, &bytes.Buffer{})
	var perr *symptomrx.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestSummarizeSymptoms(t *testing.T) {
	assert.Equal(t, "(no symptoms)", summarizeSymptoms([]string{"", " "}))
	assert.Equal(t, "fever, cough", summarizeSymptoms([]string{"fever", "", "cough"}))
	long := summarizeSymptoms([]string{strings.Repeat("a", 80)})
	assert.Equal(t, 61, len([]rune(long)))
}
