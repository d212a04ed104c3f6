// Package validation compares a produced table with the reference table.
// Checks run in a fixed order and stop at the first failure: shape, column
// identity, then content per column using the reference column's type.
package validation

import (
	"fmt"
	"math"
	"strings"

	"parsegen/internal/dataset"
	"parsegen/internal/logging"
	"parsegen/internal/types"
)

// Numeric tolerance: |a-b| <= ATol + RTol*|b|, b being the expected value.
const (
	RTol = 1e-5
	ATol = 1e-8
)

// Validate returns a passing verdict only if actual matches expected.
func Validate(expected, actual *dataset.Table) types.Verdict {
	if actual == nil {
		return types.FailVerdict(types.NewFailure(types.EmptyResult, ""))
	}

	if f := checkShape(expected, actual); f != nil {
		return fail(f)
	}
	if f := checkColumns(expected, actual); f != nil {
		return fail(f)
	}

	// Actual labels take the expected names; comparison is positional.
	for i, col := range expected.Columns {
		want := expected.Column(i)
		got := actual.Column(i)

		var f *types.Failure
		if col.Type == dataset.Numeric {
			f = compareNumeric(col.Name, want, got)
		} else {
			f = compareText(col.Name, want, got)
		}
		if f != nil {
			return fail(f)
		}
	}

	logging.ValidationDebug("Validation successful")
	return types.PassVerdict()
}

func fail(f *types.Failure) types.Verdict {
	logging.ValidationDebug("%s", f.Message)
	return types.FailVerdict(f)
}

func checkShape(expected, actual *dataset.Table) *types.Failure {
	er, ec := expected.Shape()
	ar, ac := actual.Shape()
	if er != ar || ec != ac {
		return types.Failuref(types.ShapeMismatch, "Shape mismatch: expected (%d, %d), got (%d, %d)", er, ec, ar, ac)
	}
	for r, row := range actual.Rows {
		if len(row) != ac {
			return types.Failuref(types.ShapeMismatch,
				"Shape mismatch: expected (%d, %d), got row %d with %d values", er, ec, r, len(row))
		}
	}
	return nil
}

func checkColumns(expected, actual *dataset.Table) *types.Failure {
	want := normalizeLabels(expected.Names())
	got := normalizeLabels(actual.Names())
	for i := range want {
		if want[i] != got[i] {
			return types.Failuref(types.ColumnMismatch, "Column mismatch: expected %s, got %s", quoteList(want), quoteList(got))
		}
	}
	return nil
}

func normalizeLabels(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(strings.TrimSpace(n))
	}
	return out
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("'%s'", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func compareText(name string, want, got []any) *types.Failure {
	for r := range want {
		w := strings.TrimSpace(dataset.FormatValue(want[r]))
		g := strings.TrimSpace(dataset.FormatValue(got[r]))
		if w != g {
			return types.Failuref(types.ContentMismatch,
				"Content mismatch in text column '%s' (first difference at row %d: expected %q, got %q)", name, r, w, g)
		}
	}
	return nil
}

func compareNumeric(name string, want, got []any) *types.Failure {
	for r := range want {
		// Missing or unparseable values count as zero on both sides.
		w, _ := dataset.ParseNumber(want[r])
		g, _ := dataset.ParseNumber(got[r])
		if !Close(g, w) {
			return types.Failuref(types.ContentMismatch,
				"Content mismatch in numeric column '%s' (first difference at row %d: expected %s, got %s)",
				name, r, dataset.FormatValue(w), dataset.FormatValue(g))
		}
	}
	return nil
}

// Close reports whether a is within tolerance of the expected value b.
func Close(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= ATol+RTol*math.Abs(b)
}
