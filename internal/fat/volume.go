// Package fat implements the on-disk FAT-style filesystem described in
// spec §3/§4.1/§6: a single host file holds a packed superblock, a FAT
// chain table, and a data region addressed in fixed-size blocks. The
// whole FAT table is memory-mapped read-write shared and msynced after
// every mutation, matching spec §4.1's "durable-on-msync" requirement.
//
// The on-disk vocabulary (blocks, clusters, chains, a block-device-style
// separation between raw I/O and directory logic) is grounded on the
// standalone FAT implementations in the retrieval pack
// (other_examples: soypat-fat, dsoprea-go-exfat) even though this
// format is its own single-root-directory design, not FAT12/16/32.
package fat

import (
	"os"
	"sync"

	"github.com/arush-mehrotra/penn-os/internal/perrors"
	"golang.org/x/sys/unix"
)

// EndOfChain and Free are the two reserved FAT entry values; every
// other value is the index of the next block in a chain.
const (
	EndOfChain uint16 = 0xFFFF
	Free       uint16 = 0x0000
)

// NoSpace is returned by AllocateBlock when the FAT has no free entry.
const NoSpace = -1

// blockSizes maps the 3-bit block-size code in the superblock's low
// byte to an actual block size in bytes (spec §3).
var blockSizes = [5]int{256, 512, 1024, 2048, 4096}

func blockSizeCode(size int) (int, bool) {
	for code, sz := range blockSizes {
		if sz == size {
			return code, true
		}
	}
	return 0, false
}

// Volume is a mounted FAT filesystem: the memory-mapped FAT table plus
// the metadata decoded from its superblock. The data region lives in
// the same mapping directly after the FAT entries.
type Volume struct {
	mu sync.Mutex

	file *os.File
	data []byte // the full mmap: FAT entries followed by the data region

	blocksInFAT   int // entry 0 high byte
	blockSize     int // decoded from entry 0 low byte
	fatSizeBytes  int // blocksInFAT * blockSize
	numFATEntries int // fatSizeBytes / 2

	// Global open-file table, initialized on mount (spec §3 "Open-file
	// table (global)").
	Files *OpenFileTable
}

// Mkfs creates a new host file and formats it as an empty FAT volume
// per spec §4.1. blocksInFAT must be in [1,32] and blockSizeCode in
// [0,4].
func Mkfs(path string, blocksInFAT int, blockSizeCode int) error {
	if blocksInFAT < 1 || blocksInFAT > 32 {
		return perrors.New(perrors.InvalidArg)
	}
	if blockSizeCode < 0 || blockSizeCode > 4 {
		return perrors.New(perrors.InvalidArg)
	}
	blockSize := blockSizes[blockSizeCode]

	fatSize := blockSize * blocksInFAT
	numEntries := fatSize / 2
	dataRegionSize := blockSize * (numEntries - 1)
	if blockSize == 4096 && blocksInFAT == 32 {
		// The 16-bit chain pointer can't address a block index beyond
		// 0xFFFE (0xFFFF is END-OF-CHAIN), so the largest configuration
		// must shrink the data region by one block (spec §4.1, §8
		// boundary behavior).
		dataRegionSize = blockSize * (numEntries - 2)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return perrors.Wrap(perrors.HostError, err)
	}
	defer f.Close()

	fat := make([]uint16, numEntries)
	fat[0] = uint16(blocksInFAT)<<8 | uint16(blockSizeCode)
	fat[1] = EndOfChain // root directory chain starts empty-but-allocated

	buf := make([]byte, fatSize)
	for i, v := range fat {
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	}
	if _, err := f.Write(buf); err != nil {
		return perrors.Wrap(perrors.HostError, err)
	}
	if err := f.Truncate(int64(fatSize + dataRegionSize)); err != nil {
		return perrors.Wrap(perrors.HostError, err)
	}
	return nil
}

// Mount opens path read-write, decodes the superblock, and maps the
// whole FAT region (FAT table + data region) shared read-write. The
// global open-file table is initialized with slots 0/1/2 reserved for
// stdin/stdout/stderr, per spec §4.1/§3.
func Mount(path string) (*Volume, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	if err != nil {
		return nil, perrors.Wrap(perrors.HostError, err)
	}

	header := make([]byte, 2)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return nil, perrors.Wrap(perrors.HostError, err)
	}
	blocksInFAT := int(header[1])
	code := int(header[0])
	if blocksInFAT < 1 || blocksInFAT > 32 || code < 0 || code > 4 {
		f.Close()
		return nil, perrors.New(perrors.HostError)
	}
	blockSize := blockSizes[code]
	fatSize := blockSize * blocksInFAT

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, perrors.Wrap(perrors.HostError, err)
	}
	if info.Size() < int64(fatSize) {
		f.Close()
		return nil, perrors.New(perrors.HostError)
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, perrors.Wrap(perrors.HostError, err)
	}

	v := &Volume{
		file:          f,
		data:          mapped,
		blocksInFAT:   blocksInFAT,
		blockSize:     blockSize,
		fatSizeBytes:  fatSize,
		numFATEntries: fatSize / 2,
	}
	v.Files = newOpenFileTable()
	return v, nil
}

// Unmount flushes and releases the mapping and closes the host file.
func (v *Volume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := unix.Msync(v.data, unix.MS_SYNC); err != nil {
		return perrors.Wrap(perrors.HostError, err)
	}
	if err := unix.Munmap(v.data); err != nil {
		return perrors.Wrap(perrors.HostError, err)
	}
	return v.file.Close()
}

// BlockSize returns the configured block size in bytes.
func (v *Volume) BlockSize() int { return v.blockSize }

// BlocksInFAT returns the number of blocks the FAT table occupies.
func (v *Volume) BlocksInFAT() int { return v.blocksInFAT }

// NumFATEntries returns the total number of FAT entries (= number of
// addressable data blocks + 2 reserved entries).
func (v *Volume) NumFATEntries() int { return v.numFATEntries }

// fatEntry reads FAT entry i (little-endian uint16) directly from the
// mapping. Caller must hold v.mu.
func (v *Volume) fatEntry(i int) uint16 {
	off := 2 * i
	return uint16(v.data[off]) | uint16(v.data[off+1])<<8
}

func (v *Volume) setFATEntry(i int, val uint16) {
	off := 2 * i
	v.data[off] = byte(val)
	v.data[off+1] = byte(val >> 8)
}

// sync msyncs the whole mapping, matching spec §4.1's requirement that
// every FAT mutation be followed by a full sync.
func (v *Volume) sync() error {
	if err := unix.Msync(v.data, unix.MS_SYNC); err != nil {
		return perrors.Wrap(perrors.HostError, err)
	}
	return nil
}

// blockOffset returns the byte offset of block index i (1-based) in
// the mapping.
func (v *Volume) blockOffset(i int) int {
	return v.fatSizeBytes + (i-1)*v.blockSize
}

// readBlock copies the whole block i into dst, which must be at least
// BlockSize() bytes.
func (v *Volume) readBlock(i int, dst []byte) {
	off := v.blockOffset(i)
	copy(dst, v.data[off:off+v.blockSize])
}

// writeBlock overwrites block i's bytes [at, at+len(src)) from src.
func (v *Volume) writeBlock(i int, at int, src []byte) {
	off := v.blockOffset(i) + at
	copy(v.data[off:off+len(src)], src)
}

// AllocateBlock scans from index 2 for the first free entry, marks it
// end-of-chain, zeroes its data (so a later lseek-past-end gap reads
// back deterministically as zero, per the Open Question resolution in
// SPEC_FULL.md §D.2), and syncs. Index 0xFFFF (END-OF-CHAIN) is never
// handed out.
func (v *Volume) AllocateBlock() (int, error) {
	for i := 2; i < v.numFATEntries && i < int(EndOfChain); i++ {
		if v.fatEntry(i) == Free {
			v.setFATEntry(i, EndOfChain)
			off := v.blockOffset(i)
			clear(v.data[off : off+v.blockSize])
			if err := v.sync(); err != nil {
				return 0, err
			}
			return i, nil
		}
	}
	return NoSpace, perrors.New(perrors.IOError)
}

// ExtendChain links last -> next in the FAT and syncs.
func (v *Volume) ExtendChain(last, next int) error {
	v.setFATEntry(last, uint16(next))
	return v.sync()
}

// TruncateChainFrom frees every block in the chain starting at index,
// leaving the entry immediately before it (if any) untouched — callers
// are expected to have already set that predecessor's entry to
// EndOfChain before calling this.
func (v *Volume) TruncateChainFrom(index int) error {
	cur := index
	for cur != int(EndOfChain) && cur != 0 {
		next := v.fatEntry(cur)
		v.setFATEntry(cur, Free)
		if err := v.sync(); err != nil {
			return err
		}
		if next == EndOfChain {
			break
		}
		cur = int(next)
	}
	return nil
}

// ChainLength walks the chain from first and returns how many blocks
// it holds. Used by tests asserting the "no cycle" invariant (spec §8).
func (v *Volume) ChainLength(first int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	cur := first
	for cur != 0 && cur != int(EndOfChain) && n <= v.numFATEntries {
		n++
		cur = int(v.fatEntry(cur))
	}
	return n
}
