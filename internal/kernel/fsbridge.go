// Bridges the process-level syscall surface to internal/fat, mirroring
// kernel_system.c's s_open/s_close/s_read/s_write/s_touch/s_mv/s_chmod/
// s_unlink/s_lseek/s_ls/s_findperm: thin wrappers that additionally
// maintain each PCB's own small FD table (spec §3 "per-process FD
// table maps local fd numbers onto the global open-file-table").
package kernel

import (
	"github.com/arush-mehrotra/penn-os/internal/fat"
	"github.com/arush-mehrotra/penn-os/internal/perrors"
)

// FS bundles a mounted volume with the registry so process-level
// syscalls can resolve "the caller's PCB" the way the original's
// k_get_proc() did via the global currentJob.
type FS struct {
	Volume   *fat.Volume
	Registry *Registry
}

func NewFS(v *fat.Volume, reg *Registry) *FS {
	return &FS{Volume: v, Registry: reg}
}

func (f *FS) proc(pid PID) (*PCB, error) {
	p := f.Registry.Get(pid)
	if p == nil {
		return nil, perrors.New(perrors.NoSuchFile)
	}
	return p, nil
}

// Open opens name in mode and records the resulting global fd in the
// caller's own FD table under the same index (spec §4.2 open / §3).
func (f *FS) Open(pid PID, name string, mode fat.OpenMode) (int, error) {
	proc, err := f.proc(pid)
	if err != nil {
		return -1, err
	}
	fd, err := f.Volume.Open(name, mode)
	if err != nil {
		return -1, err
	}
	proc.FDTable[fd] = fd
	return fd, nil
}

// Close closes fd globally and drops it from the caller's FD table.
func (f *FS) Close(pid PID, fd int) error {
	proc, err := f.proc(pid)
	if err != nil {
		return err
	}
	delete(proc.FDTable, fd)
	return f.Volume.Close(fd)
}

// Read, Write, Lseek pass straight through: the global open-file table
// already enforces per-fd semantics. The caller's FDTable is not
// consulted here, and the shell layer does not check it either.
func (f *FS) Read(fd int, n int) ([]byte, error)         { return f.Volume.Read(fd, n) }
func (f *FS) Write(fd int, data []byte) (int, error)     { return f.Volume.Write(fd, data) }
func (f *FS) Lseek(fd, offset, whence int) (int, error)  { return f.Volume.Lseek(fd, offset, whence) }

func (f *FS) Touch(name string) error                   { return f.Volume.Touch(name) }
func (f *FS) Mv(src, dst string) error                  { return f.Volume.Mv(src, dst) }
func (f *FS) Chmod(name string, bits int, mod byte) error { return f.Volume.Chmod(name, bits, mod) }
func (f *FS) Unlink(name string) error                  { return f.Volume.Unlink(name) }
func (f *FS) Ls() []fat.DirEntry                        { return f.Volume.Ls() }
func (f *FS) Findperm(name string) (uint8, error)       { return f.Volume.Findperm(name) }
