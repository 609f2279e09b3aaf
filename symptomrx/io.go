package symptomrx

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDataset reads a labeled dataset and drops rows without a label.
// CSV, TSV and SQLite sources are recognised by file extension.
func LoadDataset(ctx context.Context, path string, opts DatasetOptions) (*Dataset, error) {
	opts = opts.withDefaults()
	opts.LabelOptional = false
	ds, err := loadSource(ctx, path, opts)
	if err != nil {
		return nil, &DatasetLoadError{Path: path, Err: err}
	}
	return ds, nil
}

// LoadInputs reads symptom rows for prediction. The label column is optional
// and rows are kept even when it is empty.
func LoadInputs(ctx context.Context, path string, opts DatasetOptions) (*Dataset, error) {
	opts = opts.withDefaults()
	opts.LabelOptional = true
	ds, err := loadSource(ctx, path, opts)
	if err != nil {
		return nil, &DatasetLoadError{Path: path, Err: err}
	}
	return ds, nil
}

func loadSource(ctx context.Context, path string, opts DatasetOptions) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return loadDelimited(path, '\t', opts)
	case ".db", ".sqlite", ".sqlite3":
		return loadSQLite(ctx, path, opts)
	default:
		return loadDelimited(path, ',', opts)
	}
}

func loadDelimited(path string, comma rune, opts DatasetOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	cells := make([][]Cell, 0, len(rows)-1)
	for _, row := range rows[1:] {
		line := make([]Cell, len(row))
		for i, raw := range row {
			v := cleanCell(raw)
			line[i] = Cell{Value: v, Valid: v != ""}
		}
		cells = append(cells, line)
	}
	return buildDataset(header, cells, opts)
}

func buildDataset(header []string, rows [][]Cell, opts DatasetOptions) (*Dataset, error) {
	cols, err := resolveColumns(header, opts)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{
		Records:        make([]Record, 0, len(rows)),
		SymptomColumns: cols.SymptomName,
		LabelColumn:    cols.LabelName,
	}
	for _, row := range rows {
		label := labelAt(row, cols.Label)
		if !label.Valid && !opts.LabelOptional {
			ds.Dropped++
			continue
		}
		rec := Record{
			Symptoms: make([]Cell, len(cols.Symptoms)),
			Label:    label.Value,
		}
		for i, col := range cols.Symptoms {
			rec.Symptoms[i] = cellAt(row, col)
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func cellAt(row []Cell, idx int) Cell {
	if idx < 0 || idx >= len(row) {
		return Cell{}
	}
	c := row[idx]
	if !c.Valid {
		return Cell{}
	}
	v := NormalizeText(c.Value)
	if v == "" {
		return Cell{}
	}
	return Present(v)
}

// labelAt reads a label cell. Labels are only trimmed so they keep their exact spelling.
func labelAt(row []Cell, idx int) Cell {
	if idx < 0 || idx >= len(row) || !row[idx].Valid || row[idx].Value == "" {
		return Cell{}
	}
	return row[idx]
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}
