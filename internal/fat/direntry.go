package fat

import "time"

// Directory entry type byte (spec §3).
const (
	TypeUnknown uint8 = 0
	TypeFile    uint8 = 1
	TypeDir     uint8 = 2
	TypeLink    uint8 = 4
)

// Permission bitmask values (spec §3/§4.2). Only these six occur as a
// stored directory entry's Perm; 1 (exec-only) and 3 (write+exec,
// no read) are never legal resting states — exec requires read.
const (
	PermNone         uint8 = 0
	PermWrite        uint8 = 2
	PermRead         uint8 = 4
	PermReadExec     uint8 = 5
	PermReadWrite    uint8 = 6
	PermReadWriteExec uint8 = 7
)

// Bit values for chmod's perm_bits argument (spec §4.2: "1=X,2=W,4=R").
const (
	BitExec  = 1
	BitWrite = 2
	BitRead  = 4
)

// nameEnd, nameDeleted mark the two sentinel first-bytes of
// DirEntry.Name (spec §3).
const (
	nameEnd     byte = 0
	nameDeleted byte = 1
)

// entrySize is the fixed on-disk size of a DirEntry (spec §3/§6).
const entrySize = 64

// DirEntry is the fixed 64-byte root-directory record (spec §3).
type DirEntry struct {
	Name       [32]byte
	Size       uint32
	FirstBlock uint16
	Type       uint8
	Perm       uint8
	Mtime      int64
	_reserved  [16]byte
}

// NameString returns Name as a Go string, trimmed at the first NUL.
func (e *DirEntry) NameString() string {
	for i, b := range e.Name {
		if b == 0 {
			return string(e.Name[:i])
		}
	}
	return string(e.Name[:])
}

// SetName copies s into Name, NUL-padding/truncating to 32 bytes.
func (e *DirEntry) SetName(s string) {
	e.Name = [32]byte{}
	copy(e.Name[:], s)
}

// IsEndOfDirectory reports whether this slot terminates the scan.
func (e *DirEntry) IsEndOfDirectory() bool { return e.Name[0] == nameEnd }

// IsDeleted reports whether this slot was unlinked and is reusable.
func (e *DirEntry) IsDeleted() bool { return e.Name[0] == nameDeleted }

// IsLive reports whether this slot names a real, current file.
func (e *DirEntry) IsLive() bool { return !e.IsEndOfDirectory() && !e.IsDeleted() }

func (e *DirEntry) marshal() []byte {
	buf := make([]byte, entrySize)
	copy(buf[0:32], e.Name[:])
	putU32(buf[32:36], e.Size)
	putU16(buf[36:38], e.FirstBlock)
	buf[38] = e.Type
	buf[39] = e.Perm
	putU64(buf[40:48], uint64(e.Mtime))
	copy(buf[48:64], e._reserved[:])
	return buf
}

func unmarshalDirEntry(buf []byte) DirEntry {
	var e DirEntry
	copy(e.Name[:], buf[0:32])
	e.Size = getU32(buf[32:36])
	e.FirstBlock = getU16(buf[36:38])
	e.Type = buf[38]
	e.Perm = buf[39]
	e.Mtime = int64(getU64(buf[40:48]))
	copy(e._reserved[:], buf[48:64])
	return e
}

func putU16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putU32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
func getU16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func getU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func now() int64 { return time.Now().Unix() }
