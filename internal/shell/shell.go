// The PennOS shell: prompt, parse, dispatch to a builtin or a file
// script, reap background zombies between commands. Grounded on
// original_source/src/kernel/shell.c's shell() main loop, restructured
// around the Go scheduler's PID-spawn model instead of the original's
// direct fork/exec.
package shell

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/arush-mehrotra/penn-os/internal/fat"
	"github.com/arush-mehrotra/penn-os/internal/kernel"
)

// PID 1 is always the shell itself (spec §4.4 "the shell is spawned as
// the first process").
const ShellPID kernel.PID = 1

// Shell owns the interactive loop binding the scheduler, filesystem,
// and line editor together.
type Shell struct {
	Scheduler *kernel.Scheduler
	FS        *kernel.FS
	History   *History
	Editor    *LineEditor
	Stdout    *os.File

	// Interactive reports whether stdin is a real terminal (spec §6);
	// it decides whether the prompt is printed. Raw-mode editing does
	// not depend on it: ReadLine uses raw mode whenever EnableRaw works.
	Interactive bool
}

// New builds the shell's history and line editor and wires them to
// sched/fs. It creates no PCB: the caller spawns the shell as PID 1.
// historyPath persists command history across runs (spec §6).
func New(sched *kernel.Scheduler, fs *kernel.FS, historyPath string) (*Shell, error) {
	hist, err := NewHistory(historyPath, 1000)
	if err != nil {
		return nil, err
	}
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	editor := NewLineEditor(0, hist)
	editor.Silent = !interactive

	return &Shell{
		Scheduler:   sched,
		FS:          fs,
		History:     hist,
		Editor:      editor,
		Stdout:      os.Stdout,
		Interactive: interactive,
	}, nil
}

// Run is the shell's top-level loop (spec §6): read a line, reap
// finished background jobs, parse, dispatch. Returns when the user
// logs out (EOF or the `logout` builtin).
func (sh *Shell) Run() {
	for {
		sh.reapBackground()

		line, ok := sh.Editor.ReadLine(sh.Stdout)
		if !ok {
			sh.Scheduler.RequestLogout()
			return
		}
		sh.History.Save(line)

		pc, err := Parse(line)
		if err != nil {
			fmt.Fprintln(sh.Stdout, err)
			continue
		}
		if len(pc.Argv) == 0 {
			continue
		}

		if pc.Argv[0] == "logout" {
			sh.Scheduler.RequestLogout()
			return
		}
		if pc.Argv[0] == "jobs" {
			sh.printJobs()
			continue
		}
		if pc.Argv[0] == "fg" || pc.Argv[0] == "bg" {
			sh.runJobControl(pc)
			continue
		}
		if pc.Argv[0] == "nice" {
			sh.runNice(pc)
			continue
		}

		sh.execute(pc)
	}
}

// reapBackground drains finished background children without blocking
// (spec §4.4 waitpid WNOHANG), mirroring the original shell's
// check_zombies() call at the top of every prompt.
func (sh *Shell) reapBackground() {
	for {
		pid, _, ok := sh.Scheduler.WaitPID(ShellPID, -1, true)
		if !ok || pid <= 0 {
			return
		}
	}
}

func (sh *Shell) printJobs() {
	for _, p := range sh.Scheduler.Registry.All() {
		if p.IsBackground && !p.Status.Exited() {
			fmt.Fprintf(sh.Stdout, "[%d]\t%s\t%s\n", p.JobID, p.Status, p.CommandLine)
		}
	}
}

func (sh *Shell) runJobControl(pc *ParsedCommand) {
	target := kernel.PID(-1)
	if len(pc.Argv) > 1 {
		var n int
		if _, err := fmt.Sscanf(pc.Argv[1], "%d", &n); err == nil {
			target = kernel.PID(n)
		}
	}
	if pc.Argv[0] == "bg" {
		if err := sh.Scheduler.Bg(target); err != nil {
			fmt.Fprintln(sh.Stdout, "bg:", err)
		}
		return
	}
	resolved, err := sh.Scheduler.Fg(ShellPID, target)
	if err != nil {
		fmt.Fprintln(sh.Stdout, "fg:", err)
		return
	}
	sh.waitForeground(resolved)
}

// runNice implements spec §6 `nice priority cmd [args...]`: spawn cmd
// at the given priority from the start, rather than retroactively
// (original's nice, distinct from nice_pid).
func (sh *Shell) runNice(pc *ParsedCommand) {
	if len(pc.Argv) < 3 {
		fmt.Fprintln(sh.Stdout, "nice: usage: nice priority command [args...]")
		return
	}
	var priority int
	if _, err := fmt.Sscanf(pc.Argv[1], "%d", &priority); err != nil {
		fmt.Fprintln(sh.Stdout, "nice: invalid priority")
		return
	}
	inner := &ParsedCommand{
		Argv:         pc.Argv[2:],
		StdinFile:    pc.StdinFile,
		StdoutFile:   pc.StdoutFile,
		AppendStdout: pc.AppendStdout,
		Background:   pc.Background,
	}
	fn, ok := builtins[inner.Argv[0]]
	if !ok {
		fmt.Fprintf(sh.Stdout, "%s: command not found\n", inner.Argv[0])
		return
	}
	childPID := sh.spawnCommand(inner, fn)
	sh.Scheduler.Nice(childPID, priority)
	sh.finishDispatch(inner, childPID)
}

// execute resolves redirection, spawns the command as a scheduled PCB,
// and — unless backgrounded — blocks the shell until it exits (spec §6
// "a bare command waits for its job; a trailing & does not").
func (sh *Shell) execute(pc *ParsedCommand) {
	fn, ok := builtins[pc.Argv[0]]
	if !ok {
		fmt.Fprintf(sh.Stdout, "%s: command not found\n", pc.Argv[0])
		return
	}
	childPID := sh.spawnCommand(pc, fn)
	sh.finishDispatch(pc, childPID)
}

// spawnCommand launches fn as a new PCB, wiring redirected stdin/
// stdout around the call (spec §6 "<", ">", ">>").
func (sh *Shell) spawnCommand(pc *ParsedCommand, fn Builtin) kernel.PID {
	return sh.Scheduler.Spawn(ShellPID, pc.Argv[0], strings.Join(pc.Argv, " "), pc.Background, func(pid kernel.PID) int {
		stdin, stdout := 0, 1
		if pc.StdinFile != "" {
			fd, err := sh.FS.Open(pid, pc.StdinFile, fat.ModeRead)
			if err != nil {
				fmt.Fprintf(sh.Stdout, "%s: %v\n", pc.StdinFile, err)
				return 1
			}
			stdin = fd
			defer sh.FS.Close(pid, fd)
		}
		if pc.StdoutFile != "" {
			mode := fat.ModeWrite
			if pc.AppendStdout {
				mode = fat.ModeAppend
			}
			fd, err := sh.FS.Open(pid, pc.StdoutFile, mode)
			if err != nil {
				fmt.Fprintf(sh.Stdout, "%s: %v\n", pc.StdoutFile, err)
				return 1
			}
			stdout = fd
			defer sh.FS.Close(pid, fd)
		}
		return fn(sh, pid, pc.Argv, stdin, stdout)
	})
}

// finishDispatch reports job-control info for a backgrounded command,
// or blocks the shell on a foreground one.
func (sh *Shell) finishDispatch(pc *ParsedCommand, childPID kernel.PID) {
	if pc.Background {
		fmt.Fprintf(sh.Stdout, "[%d] %d\n", sh.jobIDFor(childPID), childPID)
		return
	}
	sh.waitForeground(childPID)
}

// RedrawPrompt reprints the prompt on its own line, used when a host
// interrupt/stop signal arrives while the shell itself is the
// foreground job (spec §5: "a prompt is redrawn rather than
// delivered").
func (sh *Shell) RedrawPrompt() {
	if sh.Editor.Silent {
		return
	}
	fmt.Fprint(sh.Stdout, "\r\n"+prompt)
}

func (sh *Shell) jobIDFor(pid kernel.PID) int {
	if p := sh.Scheduler.Registry.Get(pid); p != nil {
		return p.JobID
	}
	return 0
}

// waitForeground blocks the shell's own PCB until child exits, yielding
// back to the scheduler between polls the way a blocked parent always
// does in this cooperative model.
func (sh *Shell) waitForeground(child kernel.PID) {
	for {
		pid, _, ok := sh.Scheduler.WaitPID(ShellPID, child, false)
		if ok {
			_ = pid
			return
		}
		sh.Scheduler.Yield(ShellPID)
	}
}

// readHostFile and writeHostFile back the `cp -h` host-filesystem
// passthrough (spec's supplemented feature, original_source/src/
// pennfat.c's -h flag), operating on the real OS filesystem rather than
// the mounted FAT volume.
func readHostFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func writeHostFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}
