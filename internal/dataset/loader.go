package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"parsegen/internal/logging"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// missingTokens are read as absent values, like a dataframe reader would.
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
	"#N/A": true,
	"<NA>": true,
}

// DatasetLoadError reports a missing, unreadable or malformed reference table.
type DatasetLoadError struct {
	Path  string
	Cause error
}

func (e *DatasetLoadError) Error() string {
	return fmt.Sprintf("failed to load reference table %s: %v", e.Path, e.Cause)
}

func (e *DatasetLoadError) Unwrap() error { return e.Cause }

// Load reads a comma-delimited reference table with a header row.
func Load(path string) (*Table, error) {
	timer := logging.StartTimer(logging.CategoryDataset, "Load")
	defer timer.Stop()

	f, err := os.Open(path)
	if err != nil {
		return nil, &DatasetLoadError{Path: path, Cause: err}
	}
	defer f.Close()

	t, err := Read(f, ',')
	if err != nil {
		return nil, &DatasetLoadError{Path: path, Cause: err}
	}

	rows, cols := t.Shape()
	logging.Dataset("Loaded reference %s: %d rows x %d columns", path, rows, cols)
	logging.DatasetDebug("Reference types: %s", t.TypeMap())
	return t, nil
}

// Read parses delimited text from r. Every record must have the header's
// width.
func Read(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed row: %w", err)
		}
		records = append(records, rec)
	}

	t := &Table{
		Columns: make([]Column, len(header)),
		Rows:    make([][]any, len(records)),
	}
	for r, rec := range records {
		row := make([]any, len(rec))
		for c, cell := range rec {
			if missingTokens[strings.TrimSpace(cell)] {
				row[c] = nil
			} else {
				row[c] = cell
			}
		}
		t.Rows[r] = row
	}

	for c, name := range header {
		typ := InferType(t.Column(c))
		t.Columns[c] = Column{Name: name, Type: typ}
		if typ != Numeric {
			continue
		}
		for _, row := range t.Rows {
			if s, ok := row[c].(string); ok {
				// InferType already proved this parses.
				f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
				row[c] = f
			}
		}
	}
	return t, nil
}
