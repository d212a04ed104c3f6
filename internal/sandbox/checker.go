package sandbox

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/stdlib"
)

// HostPackage is the import path generated code uses for document text.
const HostPackage = "parsegen/pdftext"

// ViolationType categorizes why source was rejected before loading.
type ViolationType int

const (
	ViolationParseError ViolationType = iota
	ViolationForbiddenImport
	ViolationUnknownImport
	ViolationCGO
	ViolationGoroutine
)

func (v ViolationType) String() string {
	switch v {
	case ViolationParseError:
		return "parse_error"
	case ViolationForbiddenImport:
		return "forbidden_import"
	case ViolationUnknownImport:
		return "unknown_import"
	case ViolationCGO:
		return "cgo"
	case ViolationGoroutine:
		return "goroutine"
	default:
		return "unknown"
	}
}

// Violation is one reason a source file cannot be loaded.
type Violation struct {
	Type        ViolationType
	Location    string // file:line
	Description string
}

// SafetyReport is the outcome of checking one source file.
type SafetyReport struct {
	Package    string // declared package name
	Imports    []string
	Violations []Violation
}

// Safe reports whether no violation was found.
func (r *SafetyReport) Safe() bool { return len(r.Violations) == 0 }

func (r *SafetyReport) String() string {
	if r.Safe() {
		return "safe"
	}
	parts := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		parts[i] = fmt.Sprintf("%s: %s (%s)", v.Location, v.Description, v.Type)
	}
	return strings.Join(parts, "; ")
}

// forbiddenImports are rejected outright. Entries ending in "/" match a
// whole subtree.
var forbiddenImports = []string{
	"unsafe",
	"syscall",
	"os/exec",
	"net",
	"net/",
	"plugin",
	"runtime/cgo",
	"debug/",
	"crypto/tls",
}

// SafetyChecker parses generated source and enforces the load policy:
// no forbidden imports, nothing the interpreter cannot resolve, and no go
// statements. A panic on a goroutine the unit started cannot be recovered by
// the invoker and would take the process down.
type SafetyChecker struct {
	known map[string]bool
}

// NewSafetyChecker builds a checker that accepts the interpreter's standard
// library plus the host package.
func NewSafetyChecker() *SafetyChecker {
	known := make(map[string]bool, len(stdlib.Symbols)+1)
	for key := range stdlib.Symbols {
		// Keys look like "path/filepath/filepath".
		if i := strings.LastIndex(key, "/"); i > 0 {
			known[key[:i]] = true
		}
	}
	known[HostPackage] = true
	return &SafetyChecker{known: known}
}

// Check parses src (named filename in positions) and reports violations.
func (sc *SafetyChecker) Check(filename, src string) *SafetyReport {
	report := &SafetyReport{}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.AllErrors)
	if err != nil {
		report.Violations = append(report.Violations, Violation{
			Type:        ViolationParseError,
			Location:    filename,
			Description: fmt.Sprintf("failed to parse code: %v", err),
		})
		return report
	}
	report.Package = file.Name.Name

	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		report.Imports = append(report.Imports, path)
		loc := location(fset, imp)

		switch {
		case path == "C":
			report.Violations = append(report.Violations, Violation{
				Type:        ViolationCGO,
				Location:    loc,
				Description: "cgo is not available to generated code",
			})
		case isForbidden(path):
			report.Violations = append(report.Violations, Violation{
				Type:        ViolationForbiddenImport,
				Location:    loc,
				Description: fmt.Sprintf("import %q is forbidden", path),
			})
		case !sc.known[path]:
			report.Violations = append(report.Violations, Violation{
				Type:        ViolationUnknownImport,
				Location:    loc,
				Description: fmt.Sprintf("import %q is not available; use the standard library or %s", path, HostPackage),
			})
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		if g, ok := n.(*ast.GoStmt); ok {
			report.Violations = append(report.Violations, Violation{
				Type:        ViolationGoroutine,
				Location:    location(fset, g),
				Description: "go statements are not allowed; Parse must run on the calling goroutine",
			})
		}
		return true
	})
	return report
}

// Allowed lists the importable packages, sorted.
func (sc *SafetyChecker) Allowed() []string {
	out := make([]string, 0, len(sc.known))
	for p := range sc.known {
		if !isForbidden(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func isForbidden(path string) bool {
	for _, f := range forbiddenImports {
		if strings.HasSuffix(f, "/") {
			if strings.HasPrefix(path, f) {
				return true
			}
		} else if path == f {
			return true
		}
	}
	return false
}

func location(fset *token.FileSet, n ast.Node) string {
	pos := fset.Position(n.Pos())
	return fmt.Sprintf("%s:%d", pos.Filename, pos.Line)
}
