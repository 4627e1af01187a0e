package fat

// OpenMode is the mode a global open-file-table slot was opened with
// (spec §3/§4.2).
type OpenMode uint8

const (
	ModeNone OpenMode = iota
	ModeRead
	ModeWrite
	ModeAppend
)

// maxOpenFiles bounds the global open-file table (spec §3: "1024
// slots").
const maxOpenFiles = 1024

// OpenFile is one slot of the global open-file table.
type OpenFile struct {
	Name       string
	Perm       OpenMode
	FirstBlock int
	Offset     int
	Size       int
	Open       bool
}

// OpenFileTable is the global table described in spec §3: fixed 1024
// slots, 0/1/2 reserved for stdin/stdout/stderr and always open, new
// slots assigned sequentially from a counter that never reuses a
// closed index during a run.
type OpenFileTable struct {
	slots   [maxOpenFiles]OpenFile
	counter int
}

func newOpenFileTable() *OpenFileTable {
	t := &OpenFileTable{counter: 3}
	t.slots[0] = OpenFile{Name: "stdin", Perm: ModeRead, Open: true}
	t.slots[1] = OpenFile{Name: "stdout", Perm: ModeWrite, Open: true}
	t.slots[2] = OpenFile{Name: "stderr", Perm: ModeWrite, Open: true}
	return t
}

// Get returns a copy of slot fd's state.
func (t *OpenFileTable) Get(fd int) (OpenFile, bool) {
	if fd < 0 || fd >= maxOpenFiles {
		return OpenFile{}, false
	}
	return t.slots[fd], true
}

// IsOpenByName reports whether any slot currently names name (used by
// unlink, which must refuse to remove an open file, spec §4.2).
func (t *OpenFileTable) IsOpenByName(name string) bool {
	for i := range t.slots {
		if t.slots[i].Open && t.slots[i].Name == name {
			return true
		}
	}
	return false
}

// HasConflictingOpen reports whether name is already open for WRITE or
// APPEND (spec §4.2 open: "Forbids concurrent WRITE or APPEND opens of
// the same name").
func (t *OpenFileTable) HasConflictingOpen(name string) bool {
	for i := range t.slots {
		s := t.slots[i]
		if s.Open && s.Name == name && (s.Perm == ModeWrite || s.Perm == ModeAppend) {
			return true
		}
	}
	return false
}

// Alloc assigns the next sequential slot (never reusing an index
// during this run, per spec §3) and returns its index.
func (t *OpenFileTable) Alloc(of OpenFile) (int, bool) {
	if t.counter >= maxOpenFiles {
		return 0, false
	}
	fd := t.counter
	t.counter++
	of.Open = true
	t.slots[fd] = of
	return fd, true
}

// Close flips slot fd to CLOSED without freeing it (spec §4.2: "close
// merely flips to CLOSED without freeing the slot").
func (t *OpenFileTable) Close(fd int) bool {
	if fd < 0 || fd >= maxOpenFiles || !t.slots[fd].Open {
		return false
	}
	t.slots[fd].Open = false
	return true
}

// mutate runs fn against slot fd under the caller's assumption that fd
// is valid and open; used internally by the read/write/lseek path.
func (t *OpenFileTable) mutate(fd int, fn func(*OpenFile)) {
	fn(&t.slots[fd])
}
