package shell

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/goodbase/goodbase/internal/config"
)

func TestHistoryAddSkipsBlanksAndRepeats(t *testing.T) {
	t.Parallel()

	h := NewHistory(10)
	for _, line := range []string{"echo -t a", "  ", "echo -t a", "config", "echo -t a"} {
		h.Add(line)
	}
	if got := h.Entries(); !slices.Equal(got, []string{"echo -t a", "config", "echo -t a"}) {
		t.Fatalf("unexpected entries %v", got)
	}
	if h.Len() != 3 || h.At(0) != "echo -t a" || h.At(1) != "config" {
		t.Fatalf("unexpected ordering: len=%d at0=%q at1=%q", h.Len(), h.At(0), h.At(1))
	}
}

func TestHistoryTrimsToLimit(t *testing.T) {
	t.Parallel()

	h := NewHistory(2)
	h.Add("one")
	h.Add("two")
	h.Add("three")
	if got := h.Entries(); !slices.Equal(got, []string{"two", "three"}) {
		t.Fatalf("unexpected entries %v", got)
	}
}

func TestOpenHistoryPersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", ".good_history")
	h, err := OpenHistory(path, 3)
	if err != nil {
		t.Fatalf("open missing history: %v", err)
	}
	for _, line := range []string{"a", "b", "c", "d"} {
		h.Add(line)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected history file: %v", err)
	}
	if string(data) != "b\nc\nd\n" {
		t.Fatalf("unexpected history file %q", data)
	}

	reopened, err := OpenHistory(path, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Entries(); !slices.Equal(got, []string{"c", "d"}) {
		t.Fatalf("expected trimmed reload, got %v", got)
	}
}

func TestHistoryFor(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".good_history")
	h, err := HistoryFor(config.CLIConfig{HistoryFile: path, HistorySize: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Add("echo")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no history file without persistence, got %v", err)
	}

	h, err = HistoryFor(config.CLIConfig{HistoryFile: path, HistorySize: 5, PersistentHistory: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Add("echo")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected history file: %v", err)
	}
}
