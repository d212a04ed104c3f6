// Package dataset models the tabular results compared by parsegen and loads
// the reference table a generated parser must reproduce.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ColumnType is the declared semantic type of a column.
type ColumnType int

const (
	Text ColumnType = iota
	Numeric
)

func (c ColumnType) String() string {
	if c == Numeric {
		return "numeric"
	}
	return "text"
}

// Column is a named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is an ordered set of typed columns and rows of scalar values.
// Cells hold string, float64 or nil (missing). Tables are treated as
// immutable once built.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) {
	if t == nil {
		return 0, 0
	}
	return len(t.Rows), len(t.Columns)
}

// Names returns the column labels in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the values of column i, one per row. Rows shorter than i
// contribute nil.
func (t *Table) Column(i int) []any {
	out := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out
}

// Head returns a table holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// FromRecords builds a table from a header and raw rows, normalising cells
// and inferring column types.
func FromRecords(header []string, rows [][]any) *Table {
	t := &Table{
		Columns: make([]Column, len(header)),
		Rows:    make([][]any, len(rows)),
	}
	for r, row := range rows {
		norm := make([]any, len(row))
		for c, v := range row {
			norm[c] = NormalizeValue(v)
		}
		t.Rows[r] = norm
	}
	for i, name := range header {
		t.Columns[i] = Column{Name: name, Type: InferType(t.Column(i))}
	}
	return t
}

// NormalizeValue maps arbitrary Go scalars onto string, float64 or nil.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case float32:
		return NormalizeValue(float64(x))
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// InferType reports Numeric when every non-missing value is a number or a
// string that parses as one. An all-missing column is Numeric.
func InferType(values []any) ColumnType {
	for _, v := range values {
		switch x := v.(type) {
		case nil, float64:
		case string:
			if _, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
				return Text
			}
		default:
			return Text
		}
	}
	return Numeric
}

// FormatValue stringifies a cell for text comparison: nil is "", floats use
// the shortest exact form.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// ParseNumber converts a cell to float64. ok is false for missing or
// unparseable values.
func ParseNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Render lays the table out as right-aligned text columns, missing cells as
// NaN. Used to serialise reference content into prompts.
func (t *Table) Render() string {
	cells := make([][]string, len(t.Rows)+1)
	cells[0] = t.Names()
	for r, row := range t.Rows {
		line := make([]string, len(t.Columns))
		for c := range t.Columns {
			var v any
			if c < len(row) {
				v = row[c]
			}
			if v == nil {
				line[c] = "NaN"
			} else {
				line[c] = FormatValue(v)
			}
		}
		cells[r+1] = line
	}

	widths := make([]int, len(t.Columns))
	for _, line := range cells {
		for c, s := range line {
			if n := len([]rune(s)); n > widths[c] {
				widths[c] = n
			}
		}
	}

	var sb strings.Builder
	for i, line := range cells {
		for c, s := range line {
			if c > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(strings.Repeat(" ", widths[c]-len([]rune(s))))
			sb.WriteString(s)
		}
		if i < len(cells)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// TypeMap renders the per-column declared types, e.g.
// {"Date": "text", "Balance": "numeric"}.
func (t *Table) TypeMap() string {
	parts := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		parts[i] = fmt.Sprintf("%q: %q", c.Name, c.Type.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
