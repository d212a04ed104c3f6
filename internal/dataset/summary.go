package dataset

import (
	"fmt"
	"strings"
)

// Summary is the advisory schema description used to enrich prompts. It is
// never consulted by validation.
type Summary struct {
	Columns []string
	Types   []ColumnType
	Sample  string // first two rows rendered as text
}

// Summarize derives the schema summary of t.
func Summarize(t *Table) Summary {
	s := Summary{
		Columns: t.Names(),
		Types:   make([]ColumnType, len(t.Columns)),
		Sample:  t.Head(2).Render(),
	}
	for i, c := range t.Columns {
		s.Types[i] = c.Type
	}
	return s
}

// String renders the summary as prompt text.
func (s Summary) String() string {
	quoted := make([]string, len(s.Columns))
	typed := make([]string, len(s.Columns))
	for i, name := range s.Columns {
		quoted[i] = fmt.Sprintf("%q", name)
		typed[i] = fmt.Sprintf("%s=%s", name, s.Types[i])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The CSV has these columns: [%s]\n", strings.Join(quoted, ", "))
	sb.WriteString("Here are the first two rows:\n")
	sb.WriteString(s.Sample)
	sb.WriteString("\nColumn types: ")
	sb.WriteString(strings.Join(typed, ", "))
	return sb.String()
}
