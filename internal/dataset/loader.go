package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"house-insights/internal/common"

	"github.com/rs/zerolog/log"
)

// missingTokens are read as missing values, matching how the training
// notebook's CSV reader treated them.
var missingTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "NaN": true, "nan": true, "null": true, "NULL": true,
}

// LoadFromCSV reads the dataset from a CSV file with a header row.
func LoadFromCSV(filePath string) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	table, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	log.Info().
		Str("file", filePath).
		Int("rows", table.Len()).
		Int("columns", len(table.Columns)).
		Msg("CSV dataset loaded successfully")

	return table, nil
}

// ReadCSV parses a dataset from any reader. Column kinds are inferred: a
// column is numeric when every non-missing cell parses as a float.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	// Drop the unnamed index column pandas writes with to_csv(index=True).
	skipFirst := len(header) > 0 && header[0] == ""
	if skipFirst {
		header = header[1:]
	}

	var raw [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(raw)+2, err)
		}
		if skipFirst {
			rec = rec[1:]
		}
		raw = append(raw, rec)
	}

	kinds := make(map[string]ColumnKind, len(header))
	for i, col := range header {
		kinds[col] = inferKind(raw, i)
	}

	b, err := newBuilder(header, kinds)
	if err != nil {
		return nil, err
	}
	for _, rec := range raw {
		values := make([]any, len(header))
		for i, cell := range rec {
			cell = strings.TrimSpace(cell)
			if missingTokens[cell] {
				continue
			}
			if kinds[header[i]] == Numeric {
				values[i], _ = strconv.ParseFloat(cell, 64)
			} else {
				values[i] = cell
			}
		}
		if err := b.add(values); err != nil {
			return nil, err
		}
	}

	return b.table(), nil
}

// inferKind leaves all-missing columns numeric, as pandas reads them as float NaN.
func inferKind(raw [][]string, col int) ColumnKind {
	for _, rec := range raw {
		cell := strings.TrimSpace(rec[col])
		if missingTokens[cell] {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return Categorical
		}
	}
	return Numeric
}

// builder assembles a Table from positional row values and enforces the
// dataset invariants shared by every source.
type builder struct {
	columns []string
	kinds   map[string]ColumnKind
	records []Record
}

func newBuilder(columns []string, kinds map[string]ColumnKind) (*builder, error) {
	for _, required := range []string{common.ColSalePrice, common.ColPredictedPrice} {
		if kind, ok := kinds[required]; !ok || kind != Numeric {
			return nil, fmt.Errorf("dataset must have a numeric %s column", required)
		}
	}
	return &builder{columns: columns, kinds: kinds}, nil
}

func (b *builder) add(values []any) error {
	fields := make(map[string]any, len(b.columns))
	for i, col := range b.columns {
		fields[col] = values[i]
	}
	rec := Record{Index: len(b.records), Fields: fields}

	price, ok := rec.Float(common.ColSalePrice)
	if !ok || price <= 0 || math.IsInf(price, 0) {
		return fmt.Errorf("row %d: %s must be a positive number, got %v", rec.Index, common.ColSalePrice, fields[common.ColSalePrice])
	}

	b.records = append(b.records, rec)
	return nil
}

func (b *builder) table() *Table {
	return &Table{Columns: b.columns, Kinds: b.kinds, Records: b.records}
}
