package diskonion

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

func newTestVolume(t *testing.T, passphrase []byte) (absfs.File, *VolumeFS) {
	t.Helper()
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatal(err)
	}
	f, err := fs.Create("/disk.onion")
	if err != nil {
		t.Fatal(err)
	}
	size := int64(testNBlocks+1) * BlockLength
	if err := CreateVolume(f, size, passphrase, BuildOptions{}); err != nil {
		t.Fatal(err)
	}
	vol, err := Mount(f, passphrase, MountOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return f, vol
}

func TestMountWrongPassphraseFails(t *testing.T) {
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatal(err)
	}
	f, err := fs.Create("/disk.onion")
	if err != nil {
		t.Fatal(err)
	}
	size := int64(testNBlocks+1) * BlockLength
	if err := CreateVolume(f, size, []byte("correct"), BuildOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := Mount(f, []byte("incorrect"), MountOptions{}); err == nil {
		t.Fatal("expected Mount to fail with the wrong passphrase")
	}
}

func TestDataViewReadWriteRoundTrip(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	data, err := vol.Open(DataPath)
	if err != nil {
		t.Fatal(err)
	}
	payload := bytes.Repeat([]byte("X"), 1000)
	if _, err := data.WriteAt(payload, 0); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, len(payload))
	if _, err := data.ReadAt(got, 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("read back data does not match what was written")
	}
}

func TestDataViewPartialWritePreservesNeighbors(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	data, err := vol.Open(DataPath)
	if err != nil {
		t.Fatal(err)
	}
	full := bytes.Repeat([]byte("A"), SectorLength)
	if _, err := data.WriteAt(full, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := data.WriteAt([]byte("BB"), 10); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, SectorLength)
	if _, err := data.ReadAt(got, 0); err != nil {
		t.Fatal(err)
	}
	want := bytes.Repeat([]byte("A"), SectorLength)
	copy(want[10:12], "BB")
	if !bytes.Equal(got, want) {
		t.Fatal("partial write corrupted neighboring bytes")
	}
}

func TestKeystreamWriteDoesNotDisturbData(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	data, err := vol.Open(DataPath)
	if err != nil {
		t.Fatal(err)
	}
	payload := bytes.Repeat([]byte("D"), SectorLength*2)
	if _, err := data.WriteAt(payload, 0); err != nil {
		t.Fatal(err)
	}

	ks, err := vol.Open(KeystreamPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ks.WriteAt(bytes.Repeat([]byte{0xAB}, KSBlkLen*2), 0); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, len(payload))
	if _, err := data.ReadAt(got, 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("writing the keystream view altered the data view's contents")
	}
}

func TestKeystreamViewReadWriteRoundTrip(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	ks, err := vol.Open(KeystreamPath)
	if err != nil {
		t.Fatal(err)
	}
	payload := bytes.Repeat([]byte{0x42}, KSBlkLen*testNBlocks)
	if _, err := ks.WriteAt(payload, 0); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(payload))
	if _, err := ks.ReadAt(got, 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("keystream round trip mismatch")
	}
}

func TestDataWriteRerandomizesIVButKeepsKeystream(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	iv1, _, err := vol.img.ReadBlock(0)
	if err != nil {
		t.Fatal(err)
	}
	ks1, err := DecodeKeystream(iv1)
	if err != nil {
		t.Fatal(err)
	}

	data, err := vol.Open(DataPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := data.WriteAt([]byte("hello"), 0); err != nil {
		t.Fatal(err)
	}

	iv2, _, err := vol.img.ReadBlock(0)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(iv1, iv2) {
		t.Fatal("data write should rerandomize the block's iv")
	}
	ks2, err := DecodeKeystream(iv2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ks1, ks2) {
		t.Fatal("data write should preserve the block's keystream slot")
	}
}

func TestStatReportsViewSizes(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	info, err := vol.Stat(DataPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(testNBlocks)*SectorLength {
		t.Fatalf("/data size = %d, want %d", info.Size(), int64(testNBlocks)*SectorLength)
	}

	info, err = vol.Stat(KeystreamPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(testNBlocks)*KSBlkLen {
		t.Fatalf("/keystream size = %d, want %d", info.Size(), int64(testNBlocks)*KSBlkLen)
	}
}

func TestOpenUnknownPathFails(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	if _, err := vol.Open("/nonexistent"); err == nil {
		t.Fatal("expected error opening an unknown path")
	}
}

func TestStatRootIsDirectory(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	info, err := vol.Stat("/")
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected root to stat as a directory")
	}
	if info.Mode().Perm() != 0700 {
		t.Fatalf("root mode = %v, want 0700", info.Mode().Perm())
	}
}

func TestOpenRootYieldsIsDirectory(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	if _, err := vol.Open("/"); !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("Open(\"/\") = %v, want ErrIsDirectory", err)
	}
	if _, err := vol.Create("/"); !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("Create(\"/\") = %v, want ErrIsDirectory", err)
	}
}

func TestReaddirListsBothViews(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	entries, err := vol.Readdir()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("Readdir returned %d entries, want 2", len(entries))
	}
	names := map[string]bool{entries[0].Name(): true, entries[1].Name(): true}
	if !names["data"] || !names["keystream"] {
		t.Fatalf("Readdir entries = %v, want data and keystream", names)
	}
}

func TestOpenFileRejectsCreateAndTruncate(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	if _, err := vol.OpenFile(DataPath, os.O_RDWR|os.O_CREATE, 0666); !errors.Is(err, ErrReadOnlyView) {
		t.Fatalf("O_CREATE open = %v, want ErrReadOnlyView", err)
	}
	if _, err := vol.OpenFile(DataPath, os.O_RDWR|os.O_TRUNC, 0); !errors.Is(err, ErrReadOnlyView) {
		t.Fatalf("O_TRUNC open = %v, want ErrReadOnlyView", err)
	}
}

func TestOpenFileRejectsSync(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	if _, err := vol.OpenFile(KeystreamPath, os.O_RDWR|os.O_SYNC, 0); !errors.Is(err, ErrUnsupportedFlags) {
		t.Fatalf("O_SYNC open = %v, want ErrUnsupportedFlags", err)
	}
}

func TestViewFilesRejectReaddir(t *testing.T) {
	_, vol := newTestVolume(t, []byte("hunter2"))
	defer vol.Close()

	data, err := vol.Open(DataPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := data.Readdir(-1); !errors.Is(err, ErrBadFile) {
		t.Fatalf("data.Readdir = %v, want ErrBadFile", err)
	}
	if _, err := data.Readdirnames(-1); !errors.Is(err, ErrBadFile) {
		t.Fatalf("data.Readdirnames = %v, want ErrBadFile", err)
	}
}
