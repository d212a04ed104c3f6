package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafetyChecker(t *testing.T) {
	sc := NewSafetyChecker()

	tests := []struct {
		name     string
		src      string
		wantSafe bool
		wantType ViolationType
	}{
		{
			name:     "stdlib and host package",
			src:      "package p\nimport (\n\"regexp\"\n\"strconv\"\n\"parsegen/pdftext\"\n)\n",
			wantSafe: true,
		},
		{
			name:     "os is allowed",
			src:      "package p\nimport \"os\"\n",
			wantSafe: true,
		},
		{
			name:     "os/exec",
			src:      "package p\nimport \"os/exec\"\n",
			wantType: ViolationForbiddenImport,
		},
		{
			name:     "net subtree",
			src:      "package p\nimport \"net/http\"\n",
			wantType: ViolationForbiddenImport,
		},
		{
			name:     "unsafe",
			src:      "package p\nimport \"unsafe\"\n",
			wantType: ViolationForbiddenImport,
		},
		{
			name:     "third party",
			src:      "package p\nimport \"github.com/foo/bar\"\n",
			wantType: ViolationUnknownImport,
		},
		{
			name:     "cgo",
			src:      "package p\nimport \"C\"\n",
			wantType: ViolationCGO,
		},
		{
			name:     "go statement",
			src:      "package p\nfunc Parse() { go func() { panic(\"boom\") }() }\n",
			wantType: ViolationGoroutine,
		},
		{
			name:     "go statement in nested func literal",
			src:      "package p\nvar start = func(f func()) { if f != nil { go f() } }\n",
			wantType: ViolationGoroutine,
		},
		{
			name:     "syntax error",
			src:      "package p\nfunc Parse( {\n",
			wantType: ViolationParseError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := sc.Check("gen.go", tt.src)
			if tt.wantSafe {
				assert.True(t, report.Safe(), report.String())
				assert.Equal(t, "p", report.Package)
				return
			}
			require.False(t, report.Safe())
			assert.Equal(t, tt.wantType, report.Violations[0].Type)
		})
	}
}

func TestSafetyChecker_GoroutineLocation(t *testing.T) {
	src := "package p\n\nimport \"fmt\"\n\nfunc Parse() {\n\tgo fmt.Println()\n}\n"
	report := NewSafetyChecker().Check("gen.go", src)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, ViolationGoroutine, report.Violations[0].Type)
	assert.Equal(t, "gen.go:6", report.Violations[0].Location)
	assert.Contains(t, report.String(), "(goroutine)")
}

func TestSafetyChecker_Location(t *testing.T) {
	report := NewSafetyChecker().Check("gen.go", "package p\n\nimport \"os/exec\"\n")
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "gen.go:3", report.Violations[0].Location)
}

func TestAllowedExcludesForbidden(t *testing.T) {
	allowed := NewSafetyChecker().Allowed()
	assert.Contains(t, allowed, "strings")
	assert.Contains(t, allowed, HostPackage)
	assert.NotContains(t, allowed, "os/exec")
	assert.NotContains(t, allowed, "net/http")
}
