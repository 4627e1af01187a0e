// The interactive line editor: raw-mode byte-at-a-time reading with
// backspace and history recall, adapted from the original's
// read_command (kernel/shell.c) and restructured around
// internal/rawterm for raw-mode control and rivo/uniseg for
// grapheme-aware backspace, the way the teacher's terminal.go uses
// uniseg for display-width-aware rendering.
package shell

import (
	"os"

	"github.com/rivo/uniseg"

	"github.com/arush-mehrotra/penn-os/internal/rawterm"
)

const prompt = "$ "

// LineEditor reads one command line at a time from fd in raw mode,
// supporting backspace and up/down history recall (spec §6).
type LineEditor struct {
	fd      int
	in      *os.File
	history *History

	// Silent suppresses the prompt, for non-interactive (piped/script)
	// input where echoing "$ " would just pollute redirected output.
	Silent bool
}

// NewLineEditor returns a LineEditor reading from fd, backed by h.
func NewLineEditor(fd int, h *History) *LineEditor {
	return &LineEditor{fd: fd, in: os.NewFile(uintptr(fd), "/dev/stdin"), history: h}
}

// clearLine erases the current line on the terminal and reprints the
// prompt plus line.
func clearLine(out *os.File, line string) {
	out.WriteString("\033[2K\r")
	out.WriteString(prompt)
	out.WriteString(line)
}

// ReadLine blocks until a full line is available, echoing input and
// servicing backspace/arrow-key editing. ok is false on EOF (Ctrl-D),
// matching the original's "logout on EOF" behavior.
func (e *LineEditor) ReadLine(out *os.File) (line string, ok bool) {
	if !e.Silent {
		out.WriteString(prompt)
	}

	state, err := rawterm.EnableRaw(e.fd)
	if err != nil {
		// Not a real tty (e.g. piped input/tests): fall back to
		// line-buffered reads so the shell still works non-interactively.
		return e.readLineCooked()
	}
	defer rawterm.Restore(state)

	var buf []byte
	one := make([]byte, 1)
	for {
		n, err := e.in.Read(one)
		if err != nil || n == 0 {
			return "", false
		}
		ch := one[0]

		switch {
		case ch == '\r' || ch == '\n':
			out.WriteString("\r\n")
			e.history.ResetCursor()
			return string(buf), true

		case ch == 4 && len(buf) == 0: // Ctrl-D on an empty line
			return "", false

		case ch == 127 || ch == '\b':
			if len(buf) > 0 {
				kept, removed := dropLastGrapheme(string(buf))
				buf = []byte(kept)
				// One "\b \b" per column the removed cluster occupied,
				// so wide/combining characters erase cleanly.
				width := uniseg.StringWidth(removed)
				if width < 1 {
					width = 1
				}
				for i := 0; i < width; i++ {
					out.WriteString("\b \b")
				}
			}

		case ch == 0x1b: // ESC: possibly an arrow-key sequence
			seq := make([]byte, 2)
			if n1, _ := e.in.Read(seq[0:1]); n1 == 0 || seq[0] != '[' {
				continue
			}
			if n2, _ := e.in.Read(seq[1:2]); n2 == 0 {
				continue
			}
			switch seq[1] {
			case 'A': // up
				buf = []byte(e.history.Up())
				clearLine(out, string(buf))
			case 'B': // down
				buf = []byte(e.history.Down())
				clearLine(out, string(buf))
			}

		default:
			buf = append(buf, ch)
			out.Write([]byte{ch})
		}

		e.history.Override(string(buf))
	}
}

// dropLastGrapheme splits s into everything but its final grapheme
// cluster, and that final cluster, so backspace removes one visual
// character at a time even when it's a multi-rune cluster.
func dropLastGrapheme(s string) (kept, removed string) {
	var clusters []string
	state := -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		clusters = append(clusters, cluster)
	}
	if len(clusters) == 0 {
		return "", ""
	}
	removed = clusters[len(clusters)-1]
	for _, c := range clusters[:len(clusters)-1] {
		kept += c
	}
	return kept, removed
}

// readLineCooked is the non-tty fallback: a plain buffered line read.
func (e *LineEditor) readLineCooked() (string, bool) {
	var buf []byte
	one := make([]byte, 1)
	for {
		n, err := e.in.Read(one)
		if n == 0 || err != nil {
			if len(buf) == 0 {
				return "", false
			}
			return string(buf), true
		}
		if one[0] == '\n' {
			return string(buf), true
		}
		buf = append(buf, one[0])
	}
}
