package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGet_NoopBeforeInitialize(t *testing.T) {
	UseLogger(nil)
	// Must not panic and must not write anywhere.
	Get(CategoryForge).Info("attempt %d", 1)
	Forge("hello %s", "world")
}

func TestCategoriesAreNamedChildren(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	defer UseLogger(nil)

	categories := []Category{
		CategoryBoot,
		CategoryAPI,
		CategoryForge,
		CategorySandbox,
		CategoryValidation,
		CategoryDataset,
		CategoryPrompt,
	}
	for _, cat := range categories {
		Get(cat).Info("message for %s", cat)
	}

	entries := logs.All()
	if len(entries) != len(categories) {
		t.Fatalf("got %d entries, want %d", len(entries), len(categories))
	}
	for i, cat := range categories {
		if entries[i].LoggerName != string(cat) {
			t.Errorf("entry %d logger = %q, want %q", i, entries[i].LoggerName, cat)
		}
		if !strings.Contains(entries[i].Message, string(cat)) {
			t.Errorf("entry %d message = %q, missing category", i, entries[i].Message)
		}
	}
}

func TestLoggerWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	defer UseLogger(nil)

	Get(CategoryForge).With("run", "abc").Debug("attempt %d", 2)

	entries := logs.FilterField(zap.String("run", "abc")).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry with run field, got %d", len(entries))
	}
	if entries[0].Message != "attempt 2" {
		t.Errorf("message = %q", entries[0].Message)
	}
}

func TestInitialize_FileSink(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "parsegen.log")

	if err := Initialize(Options{Level: "error", Format: "console", File: logPath}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Get(CategorySandbox).Debug("debug line reaches the file")
	Sync()
	defer UseLogger(nil)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if entry["logger"] != "sandbox" {
		t.Errorf("logger = %v, want sandbox", entry["logger"])
	}
	if entry["msg"] != "debug line reaches the file" {
		t.Errorf("msg = %v", entry["msg"])
	}
}

func TestInitialize_BadLevel(t *testing.T) {
	if err := Initialize(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestTimerThreshold(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core))
	defer UseLogger(nil)

	timer := StartTimer(CategoryAPI, "Generate")
	time.Sleep(2 * time.Millisecond)
	timer.StopWithThreshold(time.Nanosecond)

	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Errorf("expected one warning for a slow operation, got %d", logs.Len())
	}
}
