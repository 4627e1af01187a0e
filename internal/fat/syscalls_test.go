package fat

import (
	"path/filepath"
	"testing"
)

func mountTemp(t *testing.T) *Volume {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vol.fs")
	if err := Mkfs(path, 2, 0); err != nil {
		t.Fatalf("Mkfs: %v", err)
	}
	v, err := Mount(path)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(func() { v.Unmount() })
	return v
}

func TestTouchCreatesEntry(t *testing.T) {
	v := mountTemp(t)
	if err := v.Touch("a.txt"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	e, _, ok := v.Lookup("a.txt")
	if !ok {
		t.Fatal("a.txt not found after Touch")
	}
	if e.Perm != PermReadWrite {
		t.Errorf("new file perm = %d, want %d", e.Perm, PermReadWrite)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	v := mountTemp(t)
	fd, err := v.Open("f.txt", ModeWrite)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	data := []byte("hello, pennos")
	n, err := v.Write(fd, data)
	if err != nil || n != len(data) {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if err := v.Close(fd); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rfd, err := v.Open("f.txt", ModeRead)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	got, err := v.Read(rfd, 1024)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("round trip: got %q want %q", got, data)
	}
}

func TestWriteSpanningMultipleBlocks(t *testing.T) {
	v := mountTemp(t)
	fd, err := v.Open("big.txt", ModeWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data := make([]byte, v.BlockSize()*3+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if _, err := v.Write(fd, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	v.Close(fd)

	rfd, _ := v.Open("big.txt", ModeRead)
	got, err := v.Read(rfd, len(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("got %d bytes, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, got[i], data[i])
		}
	}
}

func TestWriteShrinkTruncatesChain(t *testing.T) {
	v := mountTemp(t)
	fd, _ := v.Open("s.txt", ModeWrite)
	big := make([]byte, v.BlockSize()*2)
	v.Write(fd, big)
	v.Close(fd)

	fd2, err := v.Open("s.txt", ModeWrite)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	small := []byte("short")
	if _, err := v.Write(fd2, small); err != nil {
		t.Fatalf("Write: %v", err)
	}
	v.Close(fd2)

	e, _, ok := v.Lookup("s.txt")
	if !ok {
		t.Fatal("s.txt missing")
	}
	if int(e.Size) != len(small) {
		t.Errorf("size after shrink = %d, want %d", e.Size, len(small))
	}
	if n := v.ChainLength(int(e.FirstBlock)); n != 1 {
		t.Errorf("chain length after shrink = %d blocks, want 1", n)
	}
}

func TestChmodTransitions(t *testing.T) {
	v := mountTemp(t)
	v.Touch("c.txt")

	if err := v.Chmod("c.txt", BitWrite, '-'); err != nil {
		t.Fatalf("Chmod -w: %v", err)
	}
	perm, err := v.Findperm("c.txt")
	if err != nil {
		t.Fatalf("Findperm: %v", err)
	}
	if perm != PermRead {
		t.Errorf("perm after -w = %d, want %d", perm, PermRead)
	}

	if err := v.Chmod("c.txt", BitRead, '-'); err == nil {
		// read-only file can still drop R (no X set), should succeed
		perm, _ = v.Findperm("c.txt")
		if perm != PermNone {
			t.Errorf("perm after -r = %d, want %d", perm, PermNone)
		}
	} else {
		t.Fatalf("Chmod -r: %v", err)
	}
}

func TestChmodRejectsUnreachableState(t *testing.T) {
	v := mountTemp(t)
	v.Touch("d.txt")
	v.Chmod("d.txt", BitExec, '+') // PermReadWriteExec
	if err := v.Chmod("d.txt", BitRead, '-'); err == nil {
		t.Error("expected rejection removing R while X still set")
	}
}

func TestUnlinkThenReuseSlot(t *testing.T) {
	v := mountTemp(t)
	v.Touch("e.txt")
	if err := v.Unlink("e.txt"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, _, ok := v.Lookup("e.txt"); ok {
		t.Error("e.txt still visible after Unlink")
	}
	if err := v.Touch("f.txt"); err != nil {
		t.Fatalf("Touch after unlink: %v", err)
	}
}

func TestMvRenames(t *testing.T) {
	v := mountTemp(t)
	v.Touch("old.txt")
	if err := v.Mv("old.txt", "new.txt"); err != nil {
		t.Fatalf("Mv: %v", err)
	}
	if _, _, ok := v.Lookup("old.txt"); ok {
		t.Error("old.txt still present after Mv")
	}
	if _, _, ok := v.Lookup("new.txt"); !ok {
		t.Error("new.txt missing after Mv")
	}
}

func TestLseekPastEndZeroFills(t *testing.T) {
	v := mountTemp(t)
	fd, _ := v.Open("g.txt", ModeWrite)
	v.Write(fd, []byte("ab"))
	if _, err := v.Lseek(fd, 10, SeekSet); err != nil {
		t.Fatalf("Lseek: %v", err)
	}
	v.Write(fd, []byte("z"))
	v.Close(fd)

	rfd, _ := v.Open("g.txt", ModeRead)
	got, err := v.Read(rfd, 64)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 11 {
		t.Fatalf("got len %d, want 11", len(got))
	}
	for i := 2; i < 10; i++ {
		if got[i] != 0 {
			t.Errorf("gap byte %d = %d, want 0", i, got[i])
		}
	}
	if got[10] != 'z' {
		t.Errorf("last byte = %q, want 'z'", got[10])
	}
}

func TestOpenWriteConflict(t *testing.T) {
	v := mountTemp(t)
	v.Touch("h.txt")
	fd, err := v.Open("h.txt", ModeWrite)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer v.Close(fd)
	if _, err := v.Open("h.txt", ModeWrite); err == nil {
		t.Error("expected conflicting-open rejection")
	}
}
