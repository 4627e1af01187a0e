package fat

import "github.com/arush-mehrotra/penn-os/internal/perrors"

// rootFirstBlock is always block 1 (spec §3: "entry 1 = first-block of
// root directory").
const rootFirstBlock = 1

// entriesPerBlock returns how many 64-byte directory entries fit in
// one block.
func (v *Volume) entriesPerBlock() int {
	return v.blockSize / entrySize
}

// location names where a directory entry lives on disk: which block in
// the root chain, and the byte offset of the entry within that block.
type location struct {
	block  int
	offset int
}

func (v *Volume) readEntryAt(loc location) DirEntry {
	off := v.blockOffset(loc.block) + loc.offset
	return unmarshalDirEntry(v.data[off : off+entrySize])
}

func (v *Volume) writeEntryAt(loc location, e DirEntry) {
	off := v.blockOffset(loc.block) + loc.offset
	copy(v.data[off:off+entrySize], e.marshal())
}

// walkRoot calls visit for every directory-entry slot across the root
// chain, in scan order, stopping as soon as visit returns true (found)
// or the chain is exhausted. It returns whether visit ever returned
// true, the matching entry, and its location.
func (v *Volume) walkRoot(visit func(DirEntry, location) bool) (DirEntry, location, bool) {
	block := rootFirstBlock
	perBlock := v.entriesPerBlock()
	for block != int(EndOfChain) && block != 0 {
		for slot := 0; slot < perBlock; slot++ {
			loc := location{block: block, offset: slot * entrySize}
			e := v.readEntryAt(loc)
			if visit(e, loc) {
				return e, loc, true
			}
			if e.IsEndOfDirectory() {
				// End of directory reached before end of chain: no
				// further entries exist anywhere in the chain.
				return DirEntry{}, location{}, false
			}
		}
		block = int(v.fatEntry(block))
	}
	return DirEntry{}, location{}, false
}

// Lookup resolves name against the root directory by exact byte
// compare, per spec §4.2. It reports whether the file exists.
func (v *Volume) Lookup(name string) (DirEntry, location, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lookupLocked(name)
}

func (v *Volume) lookupLocked(name string) (DirEntry, location, bool) {
	var nameBuf [32]byte
	copy(nameBuf[:], name)
	return v.walkRoot(func(e DirEntry, _ location) bool {
		return e.IsLive() && e.Name == nameBuf
	})
}

// firstReusableSlot finds the first DELETED or END-OF-DIRECTORY slot
// across the chain, extending the chain with a fresh zeroed block if
// none exists (spec §4.1 "Root directory layout").
func (v *Volume) firstReusableSlot() (location, error) {
	block := rootFirstBlock
	perBlock := v.entriesPerBlock()
	var lastBlock int
	for block != int(EndOfChain) && block != 0 {
		lastBlock = block
		for slot := 0; slot < perBlock; slot++ {
			loc := location{block: block, offset: slot * entrySize}
			e := v.readEntryAt(loc)
			if e.IsDeleted() || e.IsEndOfDirectory() {
				return loc, nil
			}
		}
		block = int(v.fatEntry(block))
	}

	newBlock, err := v.AllocateBlock()
	if err != nil {
		return location{}, err
	}
	if err := v.ExtendChain(lastBlock, newBlock); err != nil {
		return location{}, err
	}
	loc := location{block: newBlock, offset: 0}
	return loc, nil
}

// insertEntry writes e into the first reusable slot and returns its
// location.
func (v *Volume) insertEntry(e DirEntry) (location, error) {
	loc, err := v.firstReusableSlot()
	if err != nil {
		return location{}, err
	}
	v.writeEntryAt(loc, e)
	if err := v.sync(); err != nil {
		return location{}, err
	}
	return loc, nil
}

// ListEntries returns every live (non-deleted, non-terminal) directory
// entry, in scan order.
func (v *Volume) ListEntries() []DirEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []DirEntry
	v.walkRoot(func(e DirEntry, _ location) bool {
		if e.IsLive() {
			out = append(out, e)
		}
		return false
	})
	return out
}

// markDeletedAt marks the slot at loc DELETED, promoting it to
// END-OF-DIRECTORY when it is the last live slot of the chain (spec
// §4.2 unlink).
func (v *Volume) markDeletedAt(loc location) error {
	e := v.readEntryAt(loc)
	e.Name[0] = nameDeleted
	v.writeEntryAt(loc, e)

	// Determine whether this was the tail of the chain: either the
	// very last slot of the very last block, or immediately followed
	// by an END-OF-DIRECTORY entry.
	perBlock := v.entriesPerBlock()
	nextOffset := loc.offset + entrySize
	isLastSlotOfBlock := nextOffset >= perBlock*entrySize
	isLastBlockOfChain := v.fatEntry(loc.block) == EndOfChain

	promote := false
	switch {
	case isLastSlotOfBlock && isLastBlockOfChain:
		promote = true
	case !isLastSlotOfBlock:
		nextLoc := location{block: loc.block, offset: nextOffset}
		if v.readEntryAt(nextLoc).IsEndOfDirectory() {
			promote = true
		}
	default:
		// Last slot of a non-final block: the next entry in scan order
		// is the first slot of the following block in the chain.
		nextBlock := int(v.fatEntry(loc.block))
		nextLoc := location{block: nextBlock, offset: 0}
		if v.readEntryAt(nextLoc).IsEndOfDirectory() {
			promote = true
		}
	}
	if promote {
		e.Name[0] = nameEnd
		v.writeEntryAt(loc, e)
	}
	return v.sync()
}

func errNoSuchFile() error { return perrors.New(perrors.NoSuchFile) }
