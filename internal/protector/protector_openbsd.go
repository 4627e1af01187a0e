//go:build openbsd

// Package protector applies OS-specific sandboxing at PennOS startup.
// Grounded on the teacher's src/protector/protector_openbsd.go pledge
// call; the promise set is narrowed to what PennOS actually needs
// (mmap-backed FAT volume, tty raw mode, no exec/inet surface).
package protector

import "golang.org/x/sys/unix"

// Protect pledges PennOS down to the syscalls it needs: stdio, reading
// and mmapping the FAT volume file, and tty control for the shell.
func Protect() {
	unix.PledgePromises("stdio rpath wpath flock tty")
}
