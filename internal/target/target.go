// Package target resolves a target identifier into the fixed file layout used
// by one synthesis run.
package target

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Target identifies one synthesis task. It is a value; nothing mutates it
// after Resolve.
type Target struct {
	ID            string // e.g. "icici"
	InputPath     string // document the generated parser reads
	ReferencePath string // expected table
	SourcePath    string // where each attempt's source is written
	UnitName      string // logical name of the loaded unit
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Resolve derives the conventional layout for id:
//
//	<dataDir>/<id>/<id> sample.pdf
//	<dataDir>/<id>/result.csv
//	<parsersDir>/<id>_parser.go
func Resolve(id, dataDir, parsersDir string) (Target, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Target{}, fmt.Errorf("target identifier required")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return Target{}, fmt.Errorf("invalid target identifier %q", id)
	}

	unit := nonIdent.ReplaceAllString(id, "_") + "_parser"
	if unit[0] >= '0' && unit[0] <= '9' {
		unit = "p" + unit
	}

	dir := filepath.Join(dataDir, id)
	return Target{
		ID:            id,
		InputPath:     filepath.Join(dir, id+" sample.pdf"),
		ReferencePath: filepath.Join(dir, "result.csv"),
		SourcePath:    filepath.Join(parsersDir, id+"_parser.go"),
		UnitName:      unit,
	}, nil
}

// MissingInputs returns the paths among the input document and the reference
// table that cannot be stat'ed as regular files.
func (t Target) MissingInputs() []string {
	var missing []string
	for _, p := range []string{t.InputPath, t.ReferencePath} {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			missing = append(missing, p)
		}
	}
	return missing
}

func (t Target) String() string { return t.ID }
