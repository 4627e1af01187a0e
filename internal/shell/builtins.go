// Builtin command bodies, translated from original_source/src/util/
// builtins.c. Each builtin runs as its own scheduled PCB (spec §4.4
// spawn), exactly the way the original's function_map dispatches a
// thread body per builtin rather than running them inline in the
// shell process.
package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arush-mehrotra/penn-os/internal/fat"
	"github.com/arush-mehrotra/penn-os/internal/kernel"
)

// Builtin is one shell-builtin process body.
type Builtin func(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int

var builtins = map[string]Builtin{
	"sleep":     biSleep,
	"busy":      biBusy,
	"ps":        biPS,
	"kill":      biKill,
	"cat":       biCat,
	"echo":      biEcho,
	"ls":        biLs,
	"touch":     biTouch,
	"mv":        biMv,
	"rm":        biRm,
	"cp":        biCp,
	"chmod":     biChmod,
	"nice_pid":  biNicePid,
	"zombify":   biZombify,
	"orphanify": biOrphanify,
	"man":       biMan,
}

func (sh *Shell) writeString(fd int, s string) {
	sh.FS.Write(fd, []byte(s))
}

func biSleep(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	if len(argv) < 2 {
		sh.writeString(stdout, "sleep: missing argument\n")
		return 1
	}
	n, err := strconv.Atoi(argv[1])
	if err != nil || n < 0 {
		sh.writeString(stdout, "sleep: invalid argument\n")
		return 1
	}
	sh.Scheduler.Sleep(pid, n)
	sh.Scheduler.Yield(pid)
	return 0
}

// biBusy spins, periodically yielding so the cooperative scheduler
// stays responsive to other jobs — a deliberate divergence from the
// original's true infinite spin, which relied on the C original's
// real pthread-level preemption rather than a single-runner baton.
func biBusy(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	for {
		sh.Scheduler.Yield(pid)
	}
}

func biPS(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	sh.writeString(stdout, sh.Scheduler.PS())
	return 0
}

func biKill(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	if len(argv) < 2 {
		sh.writeString(stdout, "kill: missing argument\n")
		return 1
	}
	sig := kernel.SigTerm
	start := 1
	switch argv[1] {
	case "-term":
		sig, start = kernel.SigTerm, 2
	case "-stop":
		sig, start = kernel.SigStop, 2
	case "-cont":
		sig, start = kernel.SigCont, 2
	}
	for _, arg := range argv[start:] {
		n, err := strconv.Atoi(arg)
		if err != nil {
			sh.writeString(stdout, "kill: invalid pid\n")
			continue
		}
		sh.Scheduler.Kill(kernel.PID(n), sig)
	}
	return 0
}

func biCat(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	if len(argv) == 1 {
		for {
			data, err := sh.FS.Read(stdin, 1024)
			if err != nil || len(data) == 0 {
				return 0
			}
			sh.FS.Write(stdout, data)
		}
	}
	for _, name := range argv[1:] {
		fd, err := sh.FS.Open(pid, name, fat.ModeRead)
		if err != nil {
			sh.writeString(stdout, fmt.Sprintf("cat: %s: no such file\n", name))
			continue
		}
		for {
			data, err := sh.FS.Read(fd, 1024)
			if err != nil || len(data) == 0 {
				break
			}
			sh.FS.Write(stdout, data)
		}
		sh.FS.Close(pid, fd)
	}
	return 0
}

func biEcho(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	sh.writeString(stdout, strings.Join(argv[1:], " ")+"\n")
	return 0
}

func biLs(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	for _, e := range sh.FS.Ls() {
		sh.writeString(stdout, fmt.Sprintf("%s\t%d\t%03o\n", e.NameString(), e.Size, e.Perm))
	}
	return 0
}

func biTouch(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	for _, name := range argv[1:] {
		if err := sh.FS.Touch(name); err != nil {
			sh.writeString(stdout, fmt.Sprintf("touch: %s: %v\n", name, err))
			return 1
		}
	}
	return 0
}

func biMv(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	if len(argv) != 3 {
		sh.writeString(stdout, "mv: usage: mv src dst\n")
		return 1
	}
	if err := sh.FS.Mv(argv[1], argv[2]); err != nil {
		sh.writeString(stdout, fmt.Sprintf("mv: %v\n", err))
		return 1
	}
	return 0
}

func biRm(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	for _, name := range argv[1:] {
		if err := sh.FS.Unlink(name); err != nil {
			sh.writeString(stdout, fmt.Sprintf("rm: %s: %v\n", name, err))
			return 1
		}
	}
	return 0
}

// biCp implements spec's supplemented "cp -h" host passthrough in
// addition to volume-to-volume copy (original_source/src/pennfat.c's
// cp, generalized to a shell builtin rather than pennfat-only).
func biCp(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	args := argv[1:]
	hostSrc, hostDst := false, false
	if len(args) >= 1 && args[0] == "-h" {
		hostSrc = true
		args = args[1:]
	}
	// "-h" immediately before the destination marks it host-side instead
	// (original pennfat.c's cp [-h] SRC [-h] DST form).
	if len(args) >= 2 && args[len(args)-2] == "-h" {
		hostDst = true
		args = append(args[:len(args)-2], args[len(args)-1])
	}
	if len(args) != 2 {
		sh.writeString(stdout, "cp: usage: cp [-h] src dst\n")
		return 1
	}
	src, dst := args[0], args[1]

	var data []byte
	if hostSrc {
		b, err := readHostFile(src)
		if err != nil {
			sh.writeString(stdout, fmt.Sprintf("cp: %v\n", err))
			return 1
		}
		data = b
	} else {
		fd, err := sh.FS.Open(pid, src, fat.ModeRead)
		if err != nil {
			sh.writeString(stdout, fmt.Sprintf("cp: %v\n", err))
			return 1
		}
		for {
			chunk, err := sh.FS.Read(fd, 4096)
			if err != nil || len(chunk) == 0 {
				break
			}
			data = append(data, chunk...)
		}
		sh.FS.Close(pid, fd)
	}

	if hostDst {
		if err := writeHostFile(dst, data); err != nil {
			sh.writeString(stdout, fmt.Sprintf("cp: %v\n", err))
			return 1
		}
		return 0
	}

	fd, err := sh.FS.Open(pid, dst, fat.ModeWrite)
	if err != nil {
		sh.writeString(stdout, fmt.Sprintf("cp: %v\n", err))
		return 1
	}
	sh.FS.Write(fd, data)
	sh.FS.Close(pid, fd)
	return 0
}

func biChmod(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	if len(argv) != 3 {
		sh.writeString(stdout, "chmod: usage: chmod [+-]bits file\n")
		return 1
	}
	spec := argv[1]
	if len(spec) < 2 {
		sh.writeString(stdout, "chmod: invalid mode\n")
		return 1
	}
	mod := spec[0]
	bits, err := strconv.Atoi(spec[1:])
	if err != nil {
		sh.writeString(stdout, "chmod: invalid mode\n")
		return 1
	}
	if err := sh.FS.Chmod(argv[2], bits, mod); err != nil {
		sh.writeString(stdout, fmt.Sprintf("chmod: %v\n", err))
		return 1
	}
	return 0
}

// biNicePid implements `nice_pid priority pid`, retroactively changing
// a running job's priority. Spawn-time `nice priority cmd...` is
// handled in shell.go's runNice, since it needs to launch a new job
// rather than operate within one.
func biNicePid(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	if len(argv) != 3 {
		sh.writeString(stdout, "nice_pid: usage: nice_pid priority pid\n")
		return 1
	}
	priority, err1 := strconv.Atoi(argv[1])
	target, err2 := strconv.Atoi(argv[2])
	if err1 != nil || err2 != nil {
		sh.writeString(stdout, "nice_pid: invalid argument\n")
		return 1
	}
	if err := sh.Scheduler.Nice(kernel.PID(target), priority); err != nil {
		sh.writeString(stdout, fmt.Sprintf("nice_pid: %v\n", err))
		return 1
	}
	return 0
}

// biZombify spawns a child that exits immediately but is never waited
// on, demonstrating the ZOMBIE log event (spec's supplemented stress
// builtins, original_source/src/kernel/stress.c).
func biZombify(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	sh.Scheduler.Spawn(pid, "zombie_child", "zombie_child", true, func(childPID kernel.PID) int {
		return 0
	})
	return 0
}

// biOrphanify spawns a child that sleeps, then exits itself before the
// child finishes, demonstrating the ORPHAN log event.
func biOrphanify(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	sh.Scheduler.Spawn(pid, "orphan_child", "orphan_child", true, func(childPID kernel.PID) int {
		sh.Scheduler.Sleep(childPID, 50)
		sh.Scheduler.Yield(childPID)
		return 0
	})
	return 0
}

func biMan(sh *Shell, pid kernel.PID, argv []string, stdin, stdout int) int {
	var b strings.Builder
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	b.WriteString("PennOS shell builtins:\n")
	for _, n := range names {
		b.WriteString("  " + n + "\n")
	}
	sh.writeString(stdout, b.String())
	return 0
}
