package shell

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHistoryInvalidPathErrors(t *testing.T) {
	if _, err := NewHistory("/etc/shadow-does-not-exist/history", 50); err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestHistorySaveCapsAtMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	const maxHistory = 50

	h, err := NewHistory(path, maxHistory)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	for i := 0; i < maxHistory+10; i++ {
		if err := h.Save("foobar"); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	reloaded, err := NewHistory(path, maxHistory)
	if err != nil {
		t.Fatalf("reload NewHistory: %v", err)
	}
	if len(reloaded.lines) != maxHistory+1 {
		t.Fatalf("len(lines) = %d, want %d", len(reloaded.lines), maxHistory+1)
	}
	for i := 0; i < maxHistory; i++ {
		if reloaded.lines[i] != "foobar" {
			t.Errorf("lines[%d] = %q, want foobar", i, reloaded.lines[i])
		}
	}
}

func TestHistoryPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	h, err := NewHistory(path, 10)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	h.Save("ls")
	h.Save("ps")
	h.Save("echo hi")

	reloaded, err := NewHistory(path, 10)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	want := []string{"ls", "ps", "echo hi"}
	for i, w := range want {
		if reloaded.lines[i] != w {
			t.Errorf("lines[%d] = %q, want %q", i, reloaded.lines[i], w)
		}
	}
}

func TestHistoryUpDownNavigation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	h, _ := NewHistory(path, 10)
	h.Save("one")
	h.Save("two")
	h.Save("three")

	if got := h.Up(); got != "three" {
		t.Errorf("Up() = %q, want three", got)
	}
	if got := h.Up(); got != "two" {
		t.Errorf("Up() = %q, want two", got)
	}
	if got := h.Up(); got != "one" {
		t.Errorf("Up() = %q, want one", got)
	}
	if got := h.Up(); got != "one" {
		t.Errorf("Up() past oldest = %q, want one (clamped)", got)
	}
	if got := h.Down(); got != "two" {
		t.Errorf("Down() = %q, want two", got)
	}
}

func TestHistoryOverrideDoesNotPersistUntilSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	h, _ := NewHistory(path, 10)
	h.Save("committed")
	h.Up()
	h.Override("in-progress edit")
	if got := h.current(); got != "in-progress edit" {
		t.Errorf("current() = %q, want in-progress edit", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "committed\n" {
		t.Errorf("persisted file changed before Save: %q", data)
	}
}

func TestHistoryResetCursorReturnsToNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	h, _ := NewHistory(path, 10)
	h.Save("a")
	h.Save("b")
	h.Up()
	h.Up()
	h.ResetCursor()
	if got := h.current(); got != "" {
		t.Errorf("current() after ResetCursor = %q, want empty (not-yet-typed line)", got)
	}
}
