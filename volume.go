package diskonion

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/absfs/absfs"
)

// Volume path names. A mounted image presents exactly two files at its
// root: the plaintext data view and the keystream view.
const (
	DataPath      = "/data"
	KeystreamPath = "/keystream"
)

// VolumeFS implements absfs.FileSystem over a single onion volume image,
// presenting DataPath and KeystreamPath as the only two entries. It holds
// no directory tree: every path is normalized and compared against the
// two fixed names.
type VolumeFS struct {
	img     *Image
	header  *Header
	rng     *RNG
	diag    io.Writer
	release func() error
}

// Mount opens f as an existing onion volume, decrypts and validates its
// header under passphrase, and returns a VolumeFS serving its two views.
// Mount acquires f's advisory mount-exclusivity lock for the lifetime of
// the returned VolumeFS; call Close to release it.
func Mount(f absfs.File, passphrase []byte, opts MountOptions) (*VolumeFS, error) {
	release, err := LockExclusive(f)
	if err != nil {
		return nil, err
	}

	img, err := OpenImage(f)
	if err != nil {
		release()
		return nil, err
	}

	iv, ciphertext, err := img.ReadHeaderBlock()
	if err != nil {
		release()
		return nil, err
	}

	headerKey := NormalizePassphrase(opts.stretcher().Stretch(passphrase), headerKeyLength)
	plainHeader, err := DecryptSector(headerKey, iv, ciphertext)
	if err != nil {
		release()
		return nil, &CorruptionError{Message: "header decryption failed (wrong passphrase or corrupt image)", Err: err}
	}

	header, err := ParseHeader(plainHeader)
	if err != nil {
		release()
		return nil, err
	}

	rng := opts.RNG
	if rng == nil {
		rng, err = NewRNG()
		if err != nil {
			release()
			return nil, err
		}
	}

	vfs := &VolumeFS{
		img:     img,
		header:  header,
		rng:     rng,
		diag:    opts.Diagnostics,
		release: release,
	}

	if vfs.diag != nil && img.NBlocks() > uint64(header.BlobLength) {
		fmt.Fprintf(vfs.diag, "diskonion: volume has %d data blocks but only %d distinct per-block keys; block keys repeat with period %d\n",
			img.NBlocks(), header.BlobLength, header.BlobLength)
	}

	return vfs, nil
}

// Close releases the volume's advisory mount-exclusivity lock. It does not
// close the underlying file.
func (v *VolumeFS) Close() error {
	if v.release == nil {
		return nil
	}
	return v.release()
}

func normalizeName(name string) string {
	return "/" + strings.Trim(name, "/")
}

// openView resolves name to one of the two fixed views, ErrIsDirectory for
// the root, or ErrNoEntry.
func (v *VolumeFS) openView(name string) (absfs.File, error) {
	switch normalizeName(name) {
	case "/":
		return nil, ErrIsDirectory
	case DataPath:
		return newDataFile(v), nil
	case KeystreamPath:
		return newKeystreamFile(v), nil
	default:
		return nil, ErrNoEntry
	}
}

func (v *VolumeFS) Separator() uint8     { return '/' }
func (v *VolumeFS) ListSeparator() uint8 { return ':' }

func (v *VolumeFS) Chdir(dir string) error {
	if normalizeName(dir) == "/" {
		return nil
	}
	return ErrNotImplemented
}

func (v *VolumeFS) Getwd() (string, error) { return "/", nil }
func (v *VolumeFS) TempDir() string        { return "/" }

func (v *VolumeFS) Open(name string) (absfs.File, error) {
	return v.OpenFile(name, os.O_RDONLY, 0)
}

func (v *VolumeFS) Create(name string) (absfs.File, error) {
	return v.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile resolves name per openView, first rejecting flag combinations
// the two fixed views don't support: O_CREAT/O_TRUNC, since both views
// always exist already and are sized by the volume's geometry, and
// O_SYNC, which this façade has no per-write durability story for.
func (v *VolumeFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	if normalizeName(name) == "/" {
		return nil, ErrIsDirectory
	}
	if flag&(os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, ErrReadOnlyView
	}
	if flag&os.O_SYNC != 0 {
		return nil, ErrUnsupportedFlags
	}
	return v.openView(name)
}

func (v *VolumeFS) Mkdir(name string, perm os.FileMode) error    { return ErrNotImplemented }
func (v *VolumeFS) MkdirAll(name string, perm os.FileMode) error { return ErrNotImplemented }
func (v *VolumeFS) Remove(name string) error                     { return ErrNotImplemented }
func (v *VolumeFS) RemoveAll(path string) error                  { return ErrNotImplemented }
func (v *VolumeFS) Rename(oldpath, newpath string) error         { return ErrNotImplemented }
func (v *VolumeFS) Chmod(name string, mode os.FileMode) error    { return nil }
func (v *VolumeFS) Chown(name string, uid, gid int) error        { return nil }
func (v *VolumeFS) Chtimes(name string, atime, mtime time.Time) error {
	return nil
}
func (v *VolumeFS) Truncate(name string, size int64) error { return ErrNotImplemented }

func (v *VolumeFS) Stat(name string) (os.FileInfo, error) {
	switch normalizeName(name) {
	case "/":
		return &viewInfo{name: "/", isDir: true}, nil
	case DataPath:
		return &viewInfo{name: DataPath, size: int64(v.img.NBlocks()) * SectorLength}, nil
	case KeystreamPath:
		return &viewInfo{name: KeystreamPath, size: int64(v.img.NBlocks()) * KSBlkLen}, nil
	default:
		return nil, ErrNoEntry
	}
}

// Readdir lists the root directory's two entries. A FUSE-style bridge
// calls this directly to serve readdir(2), since opening the root itself
// always fails with ErrIsDirectory — the same split the original
// onionmount.c makes between onion_getattr/onion_readdir (which work on
// the root) and onion_open (which doesn't).
func (v *VolumeFS) Readdir() ([]os.FileInfo, error) {
	dataInfo, err := v.Stat(DataPath)
	if err != nil {
		return nil, err
	}
	ksInfo, err := v.Stat(KeystreamPath)
	if err != nil {
		return nil, err
	}
	return []os.FileInfo{dataInfo, ksInfo}, nil
}

// viewInfo is a minimal os.FileInfo for the root directory and the two
// fixed views.
type viewInfo struct {
	name  string
	size  int64
	isDir bool
}

func (fi *viewInfo) Name() string {
	if fi.name == "/" {
		return "/"
	}
	return strings.TrimPrefix(fi.name, "/")
}

func (fi *viewInfo) Size() int64 { return fi.size }

func (fi *viewInfo) Mode() os.FileMode {
	if fi.isDir {
		return os.ModeDir | 0700
	}
	return 0600
}

func (fi *viewInfo) ModTime() time.Time { return time.Time{} }
func (fi *viewInfo) IsDir() bool        { return fi.isDir }
func (fi *viewInfo) Sys() any           { return nil }
