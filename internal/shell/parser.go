// Command-line parsing for the PennOS shell, grounded on spec §6 "line
// parsing" and the original's struct parsed_command (parser.h):
// argv, optional stdin/stdout redirection, append mode, and a
// trailing '&' for background jobs. Tokenization itself is delegated
// to mattn/go-shellwords rather than hand-rolled, since that's the
// library the broader retrieval pack reaches for wherever POSIX-ish
// word splitting is needed.
package shell

import (
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

// ParsedCommand is one parsed shell line (spec §6).
type ParsedCommand struct {
	Argv         []string
	StdinFile    string
	StdoutFile   string
	AppendStdout bool
	Background   bool
}

// Parse tokenizes line and extracts redirection/background markers.
// Unlike the original C parser, this shell does not support pipelines
// (spec.md's command surface never names a '|' operator); a line is
// exactly one command plus optional redirection.
func Parse(line string) (*ParsedCommand, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return &ParsedCommand{}, nil
	}

	pc := &ParsedCommand{}
	if strings.HasSuffix(trimmed, "&") {
		pc.Background = true
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "&"))
	}

	parser := shellwords.NewParser()
	tokens, err := parser.Parse(trimmed)
	if err != nil {
		return nil, errors.Wrap(err, "shell: parse error")
	}

	var argv []string
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "<":
			if i+1 >= len(tokens) {
				return nil, errors.New("shell: missing filename after '<'")
			}
			pc.StdinFile = tokens[i+1]
			i++
		case ">":
			if i+1 >= len(tokens) {
				return nil, errors.New("shell: missing filename after '>'")
			}
			pc.StdoutFile = tokens[i+1]
			pc.AppendStdout = false
			i++
		case ">>":
			if i+1 >= len(tokens) {
				return nil, errors.New("shell: missing filename after '>>'")
			}
			pc.StdoutFile = tokens[i+1]
			pc.AppendStdout = true
			i++
		default:
			argv = append(argv, tokens[i])
		}
	}
	pc.Argv = argv
	return pc, nil
}
