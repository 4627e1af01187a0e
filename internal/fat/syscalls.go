// This file implements the filesystem syscalls of spec §4.2: the hard
// read/write path that manages chain extension, truncation, and size
// bookkeeping simultaneously. Grounded on original_source/src/fat/fat_helper.c
// (k_touch/k_mv/k_chmod/k_unlink/k_open/k_read/k_write/k_lseek), with the
// write-path truncation and chmod fall-through ambiguities resolved per
// SPEC_FULL.md §D.
package fat

import (
	"github.com/arush-mehrotra/penn-os/internal/perrors"
)

// Whence values for Lseek (spec §4.2).
const (
	SeekSet = iota
	SeekCur
	SeekEnd
)

// Touch implements spec §4.2 touch: create if absent, else refresh
// mtime only.
func (v *Volume) Touch(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, loc, ok := v.lookupLocked(name)
	if ok {
		e.Mtime = now()
		v.writeEntryAt(loc, e)
		return v.sync()
	}

	var entry DirEntry
	entry.SetName(name)
	entry.Type = TypeFile
	entry.Perm = PermReadWrite
	entry.Mtime = now()
	_, err := v.insertEntry(entry)
	return err
}

// Mv implements spec §4.2 mv: src must exist and be readable; an
// existing dst must be writable and is unlinked first; data blocks are
// never moved.
func (v *Volume) Mv(src, dst string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	srcEntry, srcLoc, ok := v.lookupLocked(src)
	if !ok {
		return perrors.New(perrors.NoSuchFile)
	}
	if srcEntry.Perm&PermRead == 0 {
		return perrors.New(perrors.PermError)
	}

	if dstEntry, dstLoc, ok := v.lookupLocked(dst); ok {
		if dstEntry.Perm&PermWrite == 0 {
			return perrors.New(perrors.PermError)
		}
		if v.Files.IsOpenByName(dst) {
			return perrors.New(perrors.PermError)
		}
		if err := v.unlinkLocked(dst, dstEntry, dstLoc); err != nil {
			return err
		}
		// The unlink above may have walked/rewritten the chain; re-find
		// src's (unchanged) location defensively.
		srcEntry, srcLoc, ok = v.lookupLocked(src)
		if !ok {
			return perrors.New(perrors.NoSuchFile)
		}
	}

	srcEntry.SetName(dst)
	srcEntry.Mtime = now()
	v.writeEntryAt(srcLoc, srcEntry)
	return v.sync()
}

// applyChmodBit returns perm with bit added (modifier '+') or removed
// (modifier '-'), and false when that transition is rejected. perm 3
// (write+exec) has its own explicit transitions (SPEC_FULL.md §D.3) in
// place of the original's fall-through into case 4.
func applyChmodBit(perm uint8, bit int, modifier byte) (uint8, bool) {
	add := modifier == '+'
	switch bit {
	case BitExec:
		if add {
			switch perm {
			case PermRead:
				return PermReadExec, true
			case PermReadWrite, PermReadWriteExec:
				return PermReadWriteExec, true
			}
			return perm, true
		}
		switch perm {
		case PermReadExec:
			return PermRead, true
		case PermReadWriteExec:
			return PermReadWrite, true
		}
		return perm, true

	case BitWrite:
		if add {
			switch perm {
			case PermNone:
				return PermWrite, true
			case PermRead:
				return PermReadWrite, true
			case PermReadExec:
				return PermReadWriteExec, true
			}
			return perm, true
		}
		switch perm {
		case PermWrite:
			return PermNone, true
		case PermReadWrite:
			return PermRead, true
		case PermReadWriteExec:
			return PermReadExec, true
		}
		return perm, true

	case BitExec | BitWrite: // 3: write+exec
		if add {
			switch perm {
			case PermNone:
				return PermWrite, true
			case PermRead, PermReadExec, PermReadWrite, PermReadWriteExec:
				return PermReadWriteExec, true
			}
			return perm, true
		}
		switch perm {
		case PermWrite:
			return PermNone, true
		case PermReadExec, PermReadWrite, PermReadWriteExec:
			return PermRead, true
		}
		return perm, true

	case BitRead:
		if add {
			switch perm {
			case PermNone:
				return PermRead, true
			case PermWrite:
				return PermReadWrite, true
			}
			return perm, true
		}
		switch perm {
		case PermRead:
			return PermNone, true
		case PermReadWrite:
			return PermWrite, true
		case PermReadWriteExec:
			// spec §4.2: "unreachable intermediate states ... are
			// rejected" — can't drop R while X is still set.
			return perm, false
		}
		return perm, true

	case BitRead | BitExec: // 5
		if add {
			switch perm {
			case PermNone:
				return PermReadExec, true
			case PermWrite, PermReadWrite:
				return PermReadWriteExec, true
			case PermRead:
				return PermReadExec, true
			}
			return perm, true
		}
		switch perm {
		case PermRead, PermReadExec:
			return PermNone, true
		case PermReadWriteExec:
			return PermWrite, true
		}
		return perm, true

	case BitRead | BitWrite: // 6
		if add {
			switch perm {
			case PermNone, PermRead, PermWrite:
				return PermReadWrite, true
			case PermReadWrite:
				return PermReadWriteExec, true
			}
			return perm, true
		}
		switch perm {
		case PermReadExec, PermReadWriteExec:
			// spec §4.2: unreachable ("remove R from RWX" style) —
			// can't drop R+W while X is still set.
			return perm, false
		}
		return PermNone, true

	case BitRead | BitWrite | BitExec: // 7
		if add {
			return PermReadWriteExec, true
		}
		return PermNone, true
	}
	return perm, false
}

// Chmod implements spec §4.2 chmod.
func (v *Volume) Chmod(name string, permBits int, modifier byte) error {
	if modifier != '+' && modifier != '-' {
		return perrors.New(perrors.InvalidArg)
	}
	if permBits < 0 || permBits > 7 {
		return perrors.New(perrors.InvalidArg)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	e, loc, ok := v.lookupLocked(name)
	if !ok {
		return perrors.New(perrors.NoSuchFile)
	}

	newPerm, allowed := applyChmodBit(e.Perm, permBits, modifier)
	if !allowed {
		return perrors.New(perrors.PermError)
	}
	e.Perm = newPerm
	v.writeEntryAt(loc, e)
	return v.sync()
}

// Findperm returns a file's permission bits without a full ls (spec §6
// syscall surface; original kernel_system.c s_findperm).
func (v *Volume) Findperm(name string) (uint8, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, _, ok := v.lookupLocked(name)
	if !ok {
		return 0, perrors.New(perrors.NoSuchFile)
	}
	return e.Perm, nil
}

// Ls returns every live directory entry (spec §4.2 ls).
func (v *Volume) Ls() []DirEntry {
	return v.ListEntries()
}

// Unlink implements spec §4.2 unlink.
func (v *Volume) Unlink(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Files.IsOpenByName(name) {
		return perrors.New(perrors.PermError)
	}
	e, loc, ok := v.lookupLocked(name)
	if !ok {
		return perrors.New(perrors.NoSuchFile)
	}
	return v.unlinkLocked(name, e, loc)
}

func (v *Volume) unlinkLocked(_ string, e DirEntry, loc location) error {
	if err := v.markDeletedAt(loc); err != nil {
		return err
	}
	if e.FirstBlock == 0 {
		return nil
	}
	return v.TruncateChainFrom(int(e.FirstBlock))
}

// Open implements spec §4.2 open.
func (v *Volume) Open(name string, mode OpenMode) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch mode {
	case ModeRead:
		e, _, ok := v.lookupLocked(name)
		if !ok {
			return -1, perrors.New(perrors.NoSuchFile)
		}
		if e.Perm&PermRead == 0 {
			return -1, perrors.New(perrors.PermError)
		}
		fd, ok := v.Files.Alloc(OpenFile{Name: name, Perm: ModeRead, FirstBlock: int(e.FirstBlock), Offset: 0, Size: int(e.Size)})
		if !ok {
			return -1, perrors.New(perrors.FDError)
		}
		return fd, nil

	case ModeWrite:
		e, loc, ok := v.lookupLocked(name)
		if !ok {
			var entry DirEntry
			entry.SetName(name)
			entry.Type = TypeFile
			entry.Perm = PermReadWrite
			entry.Mtime = now()
			newLoc, err := v.insertEntry(entry)
			if err != nil {
				return -1, err
			}
			e, loc = entry, newLoc
		} else {
			if e.Perm&PermWrite == 0 {
				return -1, perrors.New(perrors.PermError)
			}
		}
		if v.Files.HasConflictingOpen(name) {
			return -1, perrors.New(perrors.PermError)
		}

		// WRITE truncates: free the existing chain and reset size to 0.
		if e.FirstBlock != 0 {
			if err := v.TruncateChainFrom(int(e.FirstBlock)); err != nil {
				return -1, err
			}
			e.FirstBlock = 0
		}
		e.Size = 0
		e.Mtime = now()
		v.writeEntryAt(loc, e)
		if err := v.sync(); err != nil {
			return -1, err
		}

		fd, ok := v.Files.Alloc(OpenFile{Name: name, Perm: ModeWrite, FirstBlock: 0, Offset: 0, Size: 0})
		if !ok {
			return -1, perrors.New(perrors.FDError)
		}
		return fd, nil

	case ModeAppend:
		e, _, ok := v.lookupLocked(name)
		if !ok {
			var entry DirEntry
			entry.SetName(name)
			entry.Type = TypeFile
			entry.Perm = PermReadWrite
			entry.Mtime = now()
			if _, err := v.insertEntry(entry); err != nil {
				return -1, err
			}
			e = entry
		} else if e.Perm&PermRead == 0 || e.Perm&PermWrite == 0 {
			return -1, perrors.New(perrors.PermError)
		}
		if v.Files.HasConflictingOpen(name) {
			return -1, perrors.New(perrors.PermError)
		}
		fd, ok := v.Files.Alloc(OpenFile{Name: name, Perm: ModeAppend, FirstBlock: int(e.FirstBlock), Offset: int(e.Size), Size: int(e.Size)})
		if !ok {
			return -1, perrors.New(perrors.FDError)
		}
		return fd, nil
	}
	return -1, perrors.New(perrors.InvalidArg)
}

// Close implements spec §4.2 close: flips the slot to CLOSED.
func (v *Volume) Close(fd int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.Files.Close(fd) {
		return perrors.New(perrors.FDError)
	}
	return nil
}

// chainBlockAt walks first's chain forward n hops (0-based) and
// returns the block index n hops in.
func (v *Volume) chainBlockAt(first int, n int) int {
	cur := first
	for i := 0; i < n; i++ {
		cur = int(v.fatEntry(cur))
	}
	return cur
}

// Lseek implements spec §4.2 lseek: extends the file (zero-filled via
// AllocateBlock) when the new position lands past the current size.
func (v *Volume) Lseek(fd int, offset int, whence int) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	of, ok := v.Files.Get(fd)
	if !ok || !of.Open {
		return -1, perrors.New(perrors.FDError)
	}

	var newPos int
	switch whence {
	case SeekSet:
		newPos = offset
	case SeekCur:
		newPos = of.Offset + offset
	case SeekEnd:
		newPos = of.Size + offset
	default:
		return -1, perrors.New(perrors.InvalidArg)
	}
	if newPos < 0 {
		return -1, perrors.New(perrors.InvalidArg)
	}

	if newPos > of.Size {
		e, loc, ok := v.lookupLocked(of.Name)
		if !ok {
			return -1, perrors.New(perrors.NoSuchFile)
		}
		if e.FirstBlock == 0 {
			nb, err := v.AllocateBlock()
			if err != nil {
				return -1, err
			}
			e.FirstBlock = uint16(nb)
		}
		neededBlocks := (newPos + v.blockSize - 1) / v.blockSize
		haveBlocks := 1
		last := int(e.FirstBlock)
		for v.fatEntry(last) != EndOfChain {
			last = int(v.fatEntry(last))
			haveBlocks++
		}
		for haveBlocks < neededBlocks {
			nb, err := v.AllocateBlock()
			if err != nil {
				return -1, err
			}
			if err := v.ExtendChain(last, nb); err != nil {
				return -1, err
			}
			last = nb
			haveBlocks++
		}
		e.Size = newPos
		v.writeEntryAt(loc, e)
		if err := v.sync(); err != nil {
			return -1, err
		}
		v.Files.mutate(fd, func(o *OpenFile) {
			o.FirstBlock = int(e.FirstBlock)
			o.Size = newPos
			o.Offset = newPos
		})
		return newPos, nil
	}

	v.Files.mutate(fd, func(o *OpenFile) { o.Offset = newPos })
	return newPos, nil
}

// Read implements spec §4.2 read.
func (v *Volume) Read(fd int, n int) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	of, ok := v.Files.Get(fd)
	if !ok || !of.Open {
		return nil, perrors.New(perrors.FDError)
	}
	if of.Perm == ModeNone {
		return nil, perrors.New(perrors.FDError)
	}

	out := make([]byte, 0, n)
	if of.FirstBlock == 0 || of.Offset >= of.Size {
		return out, nil
	}

	blockIdx := of.Offset / v.blockSize
	curBlock := v.chainBlockAt(of.FirstBlock, blockIdx)
	within := of.Offset % v.blockSize
	offset := of.Offset

	buf := make([]byte, v.blockSize)
	for len(out) < n && offset < of.Size {
		v.readBlock(curBlock, buf)
		remainingInBlock := v.blockSize - within
		remainingInFile := of.Size - offset
		take := n - len(out)
		if take > remainingInBlock {
			take = remainingInBlock
		}
		if take > remainingInFile {
			take = remainingInFile
		}
		out = append(out, buf[within:within+take]...)
		offset += take
		within += take
		if within >= v.blockSize {
			within = 0
			curBlock = int(v.fatEntry(curBlock))
		}
	}

	v.Files.mutate(fd, func(o *OpenFile) { o.Offset = offset })
	return out, nil
}

// Write implements spec §4.2 write, the hardest path in the
// filesystem: chain extension, size bookkeeping, and (WRITE-mode only)
// chain truncation, all in the same pass.
func (v *Volume) Write(fd int, data []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	of, ok := v.Files.Get(fd)
	if !ok || !of.Open {
		return 0, perrors.New(perrors.FDError)
	}
	if of.Perm == ModeRead || of.Perm == ModeNone {
		return 0, perrors.New(perrors.PermError)
	}

	e, loc, ok := v.lookupLocked(of.Name)
	if !ok {
		return 0, perrors.New(perrors.NoSuchFile)
	}

	if e.FirstBlock == 0 {
		nb, err := v.AllocateBlock()
		if err != nil {
			return 0, err
		}
		e.FirstBlock = uint16(nb)
		v.writeEntryAt(loc, e)
		if err := v.sync(); err != nil {
			return 0, err
		}
		v.Files.mutate(fd, func(o *OpenFile) { o.FirstBlock = nb })
		of.FirstBlock = nb
	}

	oldSize := int(e.Size)
	offset := of.Offset
	blockIdx := offset / v.blockSize
	curBlock := v.chainBlockAt(of.FirstBlock, blockIdx)
	within := offset % v.blockSize

	written := 0
	for written < len(data) {
		room := v.blockSize - within
		chunk := len(data) - written
		if chunk > room {
			chunk = room
		}
		v.writeBlock(curBlock, within, data[written:written+chunk])
		written += chunk
		within += chunk
		offset += chunk

		if written == len(data) {
			break
		}

		// More bytes remain: follow the chain, or allocate.
		next := v.fatEntry(curBlock)
		if next != EndOfChain {
			curBlock = int(next)
			within = 0
			continue
		}
		nb, err := v.AllocateBlock()
		if err != nil {
			// FAT exhausted mid-write: spec §4.2 step 7 — return the
			// partial count, no error.
			break
		}
		if err := v.ExtendChain(curBlock, nb); err != nil {
			break
		}
		curBlock = nb
		within = 0
	}
	if err := v.sync(); err != nil {
		return written, err
	}

	newEnd := offset
	newSize := oldSize
	if newEnd > newSize {
		newSize = newEnd
	}

	if of.Perm == ModeWrite && newEnd < oldSize {
		// SPEC_FULL.md §D.1: only truncate when the write strictly
		// shortened the file, i.e. there was data beyond newEnd that
		// this write did not itself just extend into.
		tailBlock := v.chainBlockAt(of.FirstBlock, newEnd/v.blockSize)
		successor := v.fatEntry(tailBlock)
		if successor != EndOfChain {
			v.setFATEntry(tailBlock, EndOfChain)
			if err := v.sync(); err != nil {
				return written, err
			}
			if err := v.TruncateChainFrom(int(successor)); err != nil {
				return written, err
			}
		}
	}

	e.Size = uint32(newSize)
	e.Mtime = now()
	v.writeEntryAt(loc, e)
	if err := v.sync(); err != nil {
		return written, err
	}

	v.Files.mutate(fd, func(o *OpenFile) {
		o.Offset = offset
		o.Size = newSize
	})

	return written, nil
}
