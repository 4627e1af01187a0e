// History is the shell's persistent command history, adapted nearly
// verbatim from the teacher's src/history.go — that file already
// implements exactly the cursor/override/append semantics spec §6's
// up/down-arrow history recall needs, generalized here from
// fuzzy-finder query history to shell command history (spec's
// supplemented feature: "terminal history file persistence", grounded
// on original_source/src/util/terminal_history.c's save/get_history).
package shell

import (
	"errors"
	"os"
	"strings"
)

// History holds the shell's command-line history, persisted to a file
// one line per entry (spec §6).
type History struct {
	path     string
	lines    []string
	modified map[int]string
	maxSize  int
	cursor   int
}

// NewHistory loads path (creating it if absent) and returns a History
// capped at maxSize entries.
func NewHistory(path string, maxSize int) (*History, error) {
	fmtError := func(e error) error {
		if os.IsPermission(e) {
			return errors.New("permission denied: " + path)
		}
		return errors.New("invalid history file: " + e.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			data = []byte{}
			if err := os.WriteFile(path, data, 0600); err != nil {
				return nil, fmtError(err)
			}
		} else {
			return nil, fmtError(err)
		}
	}

	lines := strings.Split(strings.Trim(string(data), "\n"), "\n")
	if len(lines[len(lines)-1]) > 0 {
		lines = append(lines, "")
	}
	return &History{
		path:     path,
		maxSize:  maxSize,
		lines:    lines,
		modified: make(map[int]string),
		cursor:   len(lines) - 1,
	}, nil
}

// Save appends line to history and persists it (spec §6 "every
// executed command line is appended to history").
func (h *History) Save(line string) error {
	if len(line) == 0 {
		return nil
	}
	lines := append(h.lines[:len(h.lines)-1], line)
	if len(lines) > h.maxSize {
		lines = lines[len(lines)-h.maxSize:]
	}
	h.lines = append(lines, "")
	h.cursor = len(h.lines) - 1
	h.modified = make(map[int]string)
	return os.WriteFile(h.path, []byte(strings.Join(h.lines, "\n")), 0600)
}

// Override edits the in-memory (not-yet-saved) line at the current
// cursor, used while a user scrolls history and keeps typing.
func (h *History) Override(str string) {
	if h.cursor == len(h.lines)-1 {
		h.lines[h.cursor] = str
	} else if h.cursor < len(h.lines)-1 {
		h.modified[h.cursor] = str
	}
}

func (h *History) current() string {
	if str, ok := h.modified[h.cursor]; ok {
		return str
	}
	return h.lines[h.cursor]
}

// Up moves the cursor one entry toward the oldest command and returns
// it (spec §6 up-arrow).
func (h *History) Up() string {
	if h.cursor > 0 {
		h.cursor--
	}
	return h.current()
}

// Down moves the cursor one entry toward the newest command and
// returns it (spec §6 down-arrow).
func (h *History) Down() string {
	if h.cursor < len(h.lines)-1 {
		h.cursor++
	}
	return h.current()
}

// ResetCursor returns the cursor to the newest (currently-being-typed)
// entry, called once a command line is submitted.
func (h *History) ResetCursor() {
	h.cursor = len(h.lines) - 1
}
