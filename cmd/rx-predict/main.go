package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"yashubustudio/symptomrx/symptomrx"
)

type cliOptions struct {
	modelPath   string
	inputPath   string
	outputPath  string
	outputDir   string
	labelColumn string
	textColumn  string
	top         int
	stdout      bool
	texts       []string
}

// prediction is one scored input row.
type prediction struct {
	Symptoms []string
	Label    string
	Scores   []symptomrx.ClassScore
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rx-predict: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "rx-predict: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("rx-predict", flag.ContinueOnError)
	fs.StringVar(&opts.modelPath, "model", "model.bin", "Trained model written by rx-train")
	fs.StringVar(&opts.inputPath, "input", "", "CSV/TSV/SQLite file with symptom columns")
	fs.StringVar(&opts.outputPath, "output", "", "CSV file to write predictions (default uses --output-dir/predictions_*.csv)")
	fs.StringVar(&opts.outputDir, "output-dir", "csv", "Directory where prediction CSVs are written when --output is omitted")
	fs.StringVar(&opts.labelColumn, "label-column", "", "Column name or #index holding a known medicine, copied to the output")
	fs.StringVar(&opts.textColumn, "text-column", "", "Column name or #index holding free text instead of symptom columns")
	fs.IntVar(&opts.top, "top", 3, "Number of ranked medicines shown per row with --stdout")
	fs.BoolVar(&opts.stdout, "stdout", false, "Print predictions to STDOUT")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s --model FILE (--input FILE | TEXT...) [options]\n\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.modelPath = strings.TrimSpace(opts.modelPath)
	opts.inputPath = strings.TrimSpace(opts.inputPath)
	opts.outputPath = strings.TrimSpace(opts.outputPath)
	opts.outputDir = strings.TrimSpace(opts.outputDir)
	opts.labelColumn = strings.TrimSpace(opts.labelColumn)
	opts.textColumn = strings.TrimSpace(opts.textColumn)
	opts.texts = fs.Args()

	if opts.modelPath == "" {
		fs.Usage()
		return opts, errors.New("missing required --model file")
	}
	if opts.inputPath == "" && len(opts.texts) == 0 {
		fs.Usage()
		return opts, errors.New("provide --input or symptom text arguments")
	}
	if opts.top <= 0 {
		opts.top = 1
	}
	return opts, nil
}

func run(ctx context.Context, opts cliOptions, out io.Writer) error {
	artifact, err := symptomrx.LoadArtifact(opts.modelPath)
	if err != nil {
		return err
	}
	pipe := artifact.Pipeline
	fmt.Fprintf(out, "Loaded model %s (run %s, trained %s, %d medicines)\n",
		opts.modelPath, artifact.RunID, humanize.Time(artifact.CreatedAt), len(pipe.Classes()))

	if opts.inputPath == "" {
		for _, text := range opts.texts {
			scores := pipe.PredictProba(text)
			fmt.Fprintf(out, "%s => %s\n", text, scores[0].Label)
			printScores(out, scores, opts.top)
		}
		return nil
	}

	preds, columns, err := predictFile(ctx, pipe, opts)
	if err != nil {
		return err
	}
	if len(preds) == 0 {
		return errors.New("input file does not contain any rows")
	}
	outputPath, err := resolveOutputPath(opts.outputPath, opts.outputDir)
	if err != nil {
		return err
	}
	if err := writeResultCSV(outputPath, columns, preds); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s predictions to %s\n", humanize.Comma(int64(len(preds))), outputPath)
	if opts.stdout {
		printSummary(out, preds, opts.top)
	}
	return nil
}

// predictFile reads the input rows with the column layout recorded in the
// model, or a single free-text column when --text-column is set.
func predictFile(ctx context.Context, pipe *symptomrx.Pipeline, opts cliOptions) ([]prediction, []string, error) {
	columns := pipe.Features.SymptomColumns
	if opts.textColumn != "" {
		columns = []string{opts.textColumn}
	}
	ds, err := symptomrx.LoadInputs(ctx, opts.inputPath, symptomrx.DatasetOptions{
		LabelColumn:    opts.labelColumn,
		SymptomColumns: columns,
	})
	if err != nil {
		return nil, nil, err
	}
	preds := make([]prediction, len(ds.Records))
	for i, rec := range ds.Records {
		symptoms := make([]string, len(rec.Symptoms))
		for j, cell := range rec.Symptoms {
			symptoms[j] = cell.Value
		}
		text := symptomrx.Combine(rec, pipe.Features.Sentinel)
		preds[i] = prediction{
			Symptoms: symptoms,
			Label:    rec.Label,
			Scores:   pipe.PredictProba(text),
		}
	}
	return preds, columns, nil
}

func resolveOutputPath(path, dir string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = "csv"
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("predictions_%s.csv", time.Now().Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}

func writeResultCSV(path string, columns []string, preds []prediction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	header := append(append([]string{}, columns...), "medicine", "predicted_medicine", "score")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, pred := range preds {
		row := append(append([]string{}, pred.Symptoms...), pred.Label, "", "")
		if len(pred.Scores) > 0 {
			row[len(row)-2] = pred.Scores[0].Label
			row[len(row)-1] = fmt.Sprintf("%.3f", pred.Scores[0].Score)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, preds []prediction, top int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "==== Prediction preview ====")
	for i, pred := range preds {
		fmt.Fprintf(w, "%d. %s\n", i+1, summarizeSymptoms(pred.Symptoms))
		if len(pred.Scores) == 0 {
			fmt.Fprintln(w, "    no prediction")
			continue
		}
		printScores(w, pred.Scores, top)
	}
}

func printScores(w io.Writer, scores []symptomrx.ClassScore, top int) {
	limit := min(top, len(scores))
	for i := 0; i < limit; i++ {
		fmt.Fprintf(w, "      - %s (p=%.3f)\n", scores[i].Label, scores[i].Score)
	}
}

func summarizeSymptoms(symptoms []string) string {
	var parts []string
	for _, s := range symptoms {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "(no symptoms)"
	}
	text := strings.Join(parts, ", ")
	runeText := []rune(text)
	if len(runeText) > 60 {
		return string(runeText[:60]) + "…"
	}
	return text
}
