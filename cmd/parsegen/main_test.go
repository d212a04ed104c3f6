package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parsegen/internal/config"
	"parsegen/internal/llm"
	"parsegen/internal/logging"
)

const sampleText = "01-08-2024 Salary Credit 6864.58\n02-08-2024 Rent 6364.58\n"

const sampleCSV = "Date,Description,Balance\n" +
	"01-08-2024,Salary Credit,6864.58\n" +
	"02-08-2024,Rent,6364.58\n"

const workingParser = "```go\n" + `package demo_parser

import (
	"strconv"
	"strings"

	"parsegen/pdftext"
)

func Parse(path string) ([]string, [][]any, error) {
	lines, err := pdftext.Lines(path)
	if err != nil {
		return nil, nil, err
	}
	var rows [][]any
	for _, line := range lines {
		f := strings.Fields(line)
		bal, err := strconv.ParseFloat(f[len(f)-1], 64)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, []any{f[0], strings.Join(f[1:len(f)-1], " "), bal})
	}
	return []string{"Date", "Description", "Balance"}, rows, nil
}
` + "```"

type workspace struct {
	dir        string
	dataDir    string
	parsersDir string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:        dir,
		dataDir:    filepath.Join(dir, "data"),
		parsersDir: filepath.Join(dir, "custom_parsers"),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(ws.dataDir, "demo"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.dataDir, "demo", "demo sample.pdf"), []byte(sampleText), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(ws.dataDir, "demo", "result.csv"), []byte(sampleCSV), 0644))

	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PARSEGEN_MAX_ATTEMPTS", "")
	t.Setenv("PARSEGEN_MODEL", "")
	t.Setenv("PARSEGEN_DATA_DIR", "")
	t.Setenv("PARSEGEN_PARSERS_DIR", "")
	t.Cleanup(func() { logging.UseLogger(nil) })
	return ws
}

// execute runs the CLI with the workspace's paths prepended.
func (ws workspace) execute(t *testing.T, args ...string) (string, int) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	base := []string{
		"--config", filepath.Join(ws.dir, "config.yaml"),
		"--env-file", filepath.Join(ws.dir, ".env"),
	}
	// Subcommand first, then globals, then the rest.
	root.SetArgs(append(append([]string{args[0]}, base...), args[1:]...))
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(&out, err)
	}
	return out.String(), exitCode(err)
}

func (ws workspace) dirs() []string {
	return []string{"--data-dir", ws.dataDir, "--parsers-dir", ws.parsersDir}
}

func fakeGenerator(t *testing.T, responses ...string) *int {
	t.Helper()
	calls := 0
	orig := newGenerator
	newGenerator = func(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
		return llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
			i := calls
			if i >= len(responses) {
				i = len(responses) - 1
			}
			calls++
			return responses[i], nil
		}), nil
	}
	t.Cleanup(func() { newGenerator = orig })
	return &calls
}

func TestRun_Success(t *testing.T) {
	ws := newWorkspace(t)
	calls := fakeGenerator(t, "```go\npackage demo_parser\n```", workingParser)

	out, code := ws.execute(t, append([]string{"run", "--target", "demo"}, ws.dirs()...)...)
	assert.Equal(t, exitOK, code, out)
	assert.Equal(t, 2, *calls)
	assert.Contains(t, out, "--- Attempt 1 of 3 ---")
	assert.Contains(t, out, "FAIL ContractViolation")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "Success")
	assert.FileExists(t, filepath.Join(ws.parsersDir, "demo_parser.go"))
}

func TestRun_PositionalTarget(t *testing.T) {
	ws := newWorkspace(t)
	fakeGenerator(t, workingParser)

	out, code := ws.execute(t, append([]string{"run", "demo"}, ws.dirs()...)...)
	assert.Equal(t, exitOK, code, out)
}

func TestRun_Exhausted(t *testing.T) {
	ws := newWorkspace(t)
	calls := fakeGenerator(t, "")

	out, code := ws.execute(t, append([]string{"run", "--target", "demo", "--max-attempts", "2"}, ws.dirs()...)...)
	assert.Equal(t, exitFailed, code, out)
	assert.Equal(t, 2, *calls)
	assert.Contains(t, out, "Exhausted 2 attempts")
	assert.Contains(t, out, "after 2 attempts")
}

func TestRun_SetupErrors(t *testing.T) {
	t.Run("missing inputs", func(t *testing.T) {
		ws := newWorkspace(t)
		calls := fakeGenerator(t, workingParser)

		out, code := ws.execute(t, append([]string{"run", "--target", "other"}, ws.dirs()...)...)
		assert.Equal(t, exitSetup, code, out)
		assert.Contains(t, out, "Missing required files")
		assert.Equal(t, 0, *calls)
	})

	t.Run("missing credential", func(t *testing.T) {
		ws := newWorkspace(t)
		t.Setenv("GOOGLE_API_KEY", "")
		fakeGenerator(t, workingParser)

		out, code := ws.execute(t, append([]string{"run", "--target", "demo"}, ws.dirs()...)...)
		assert.Equal(t, exitSetup, code, out)
		assert.Contains(t, out, "API key")
	})

	t.Run("no target", func(t *testing.T) {
		ws := newWorkspace(t)
		out, code := ws.execute(t, append([]string{"run"}, ws.dirs()...)...)
		assert.Equal(t, exitSetup, code, out)
	})

	t.Run("conflicting targets", func(t *testing.T) {
		ws := newWorkspace(t)
		out, code := ws.execute(t, append([]string{"run", "demo", "--target", "icici"}, ws.dirs()...)...)
		assert.Equal(t, exitSetup, code, out)
	})

	t.Run("bad config", func(t *testing.T) {
		ws := newWorkspace(t)
		require.NoError(t, os.WriteFile(filepath.Join(ws.dir, "config.yaml"), []byte("agent: [\n"), 0644))
		out, code := ws.execute(t, append([]string{"run", "demo"}, ws.dirs()...)...)
		assert.Equal(t, exitSetup, code, out)
	})
}

func TestRun_DotEnvProvidesKey(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("GOOGLE_API_KEY", "")
	require.NoError(t, os.Unsetenv("GOOGLE_API_KEY"))
	t.Cleanup(func() { os.Unsetenv("GOOGLE_API_KEY") })
	require.NoError(t, os.WriteFile(filepath.Join(ws.dir, ".env"), []byte("GOOGLE_API_KEY=from-file\n"), 0644))

	var seen string
	orig := newGenerator
	newGenerator = func(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
		seen = cfg.LLM.APIKey
		return llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
			return workingParser, nil
		}), nil
	}
	t.Cleanup(func() { newGenerator = orig })

	out, code := ws.execute(t, append([]string{"run", "demo"}, ws.dirs()...)...)
	assert.Equal(t, exitOK, code, out)
	assert.Equal(t, "from-file", seen)
}

func TestCheck(t *testing.T) {
	ws := newWorkspace(t)
	src := filepath.Join(ws.parsersDir, "demo_parser.go")

	out, code := ws.execute(t, append([]string{"check", "--target", "demo"}, ws.dirs()...)...)
	assert.Equal(t, exitSetup, code, "no parser generated yet: %s", out)

	require.NoError(t, os.MkdirAll(ws.parsersDir, 0755))
	require.NoError(t, os.WriteFile(src, []byte("package demo_parser\n\nfunc Parse(path string) ([]string, [][]any, error) {\n\treturn []string{\"Date\"}, [][]any{[]any{\"x\"}}, nil\n}\n"), 0644))
	out, code = ws.execute(t, append([]string{"check", "demo"}, ws.dirs()...)...)
	assert.Equal(t, exitFailed, code, out)
	assert.Contains(t, out, "Shape mismatch")

	fakeGenerator(t, workingParser)
	_, code = ws.execute(t, append([]string{"run", "demo"}, ws.dirs()...)...)
	require.Equal(t, exitOK, code)

	out, code = ws.execute(t, append([]string{"check", "demo"}, ws.dirs()...)...)
	assert.Equal(t, exitOK, code, out)
	assert.Contains(t, out, "Validation successful")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailed, exitCode(&exitError{code: exitFailed, err: errors.New("x")}))
	assert.Equal(t, exitSetup, exitCode(errors.New("unknown flag: --nope")))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "a", firstLine("a"))
	assert.Equal(t, "panic: boom ...", firstLine("panic: boom\ngoroutine 1"))
}
