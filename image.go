package diskonion

import (
	"sync"

	"github.com/absfs/absfs"
	"golang.org/x/sys/unix"
)

// fder is implemented by absfs.File backends (notably *os.File) that expose
// a real file descriptor. Backends without one — an in-memory filesystem
// used in tests — simply can't be advisory-locked; LockExclusive treats
// that as a no-op rather than an error, since the property under test
// there is the onion algebra, not OS-level mount exclusivity.
type fder interface {
	Fd() uintptr
}

// LockExclusive takes a non-blocking exclusive advisory lock on f's
// underlying descriptor, per the scheme's mount-exclusivity requirement.
// It returns a release function to call at teardown.
func LockExclusive(f absfs.File) (func() error, error) {
	fd, ok := f.(fder)
	if !ok {
		return func() error { return nil }, nil
	}
	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return nil, &LockError{Message: "image is already mounted", Err: err}
	}
	return func() error {
		return unix.Flock(int(fd.Fd()), unix.LOCK_UN)
	}, nil
}

// Image is a block-indexed pread/pwrite view of an onion volume's
// underlying file, behind a single reader-writer lock covering the whole
// image. This replaces the original scheme's mmap'd region: a
// block-indexed read/write cache is an explicitly sanctioned equivalent
// provided reads and writes under the exclusive lock are atomic from the
// perspective of other requests, which holding the lock for the full
// block walk of a request guarantees here.
type Image struct {
	f    absfs.File
	mu   sync.RWMutex
	nblk uint64
}

// OpenImage wraps f as an Image, validating the on-disk size invariant
// (a positive multiple of BlockLength, at least two blocks).
func OpenImage(f absfs.File) (*Image, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if err := ValidateImageSize(info.Size()); err != nil {
		return nil, err
	}
	return &Image{
		f:    f,
		nblk: uint64(info.Size())/BlockLength - 1,
	}, nil
}

// NBlocks returns the number of data blocks (excluding the header block).
func (img *Image) NBlocks() uint64 { return img.nblk }

// RLock/RUnlock/Lock/Unlock expose the image-wide reader-writer lock. A
// caller must hold the appropriate lock for the full block walk of one
// request, per the concurrency model: one reader-writer lock, shared for
// reads, exclusive for writes, released on every return path.
func (img *Image) RLock()   { img.mu.RLock() }
func (img *Image) RUnlock() { img.mu.RUnlock() }
func (img *Image) Lock()    { img.mu.Lock() }
func (img *Image) Unlock()  { img.mu.Unlock() }

// blockOffset returns the byte offset of data block blk (0-based, after
// the header block).
func blockOffset(blk uint64) int64 {
	return int64(blk+1) * BlockLength
}

// ReadBlock reads data block blk's IV and ciphertext. Caller must hold at
// least a read lock.
func (img *Image) ReadBlock(blk uint64) (iv, ciphertext []byte, err error) {
	buf := make([]byte, BlockLength)
	if _, err := readAtFull(img.f, buf, blockOffset(blk)); err != nil {
		return nil, nil, &CorruptionError{Offset: blockOffset(blk), Message: "short read of block", Err: err}
	}
	return buf[:IVLength], buf[IVLength:], nil
}

// WriteBlock writes data block blk's IV and ciphertext. Caller must hold
// the write lock.
func (img *Image) WriteBlock(blk uint64, iv, ciphertext []byte) error {
	if len(iv) != IVLength || len(ciphertext) != SectorLength {
		return &ValidationError{Field: "block", Message: "iv/ciphertext have the wrong length"}
	}
	buf := make([]byte, BlockLength)
	copy(buf, iv)
	copy(buf[IVLength:], ciphertext)
	if _, err := img.f.WriteAt(buf, blockOffset(blk)); err != nil {
		return &CorruptionError{Offset: blockOffset(blk), Message: "short write of block", Err: err}
	}
	return nil
}

// ReadHeaderBlock reads block 0's IV and ciphertext.
func (img *Image) ReadHeaderBlock() (iv, ciphertext []byte, err error) {
	buf := make([]byte, BlockLength)
	if _, err := readAtFull(img.f, buf, 0); err != nil {
		return nil, nil, &CorruptionError{Message: "short read of header block", Err: err}
	}
	return buf[:IVLength], buf[IVLength:], nil
}

// WriteHeaderBlock writes block 0's IV and ciphertext.
func (img *Image) WriteHeaderBlock(iv, ciphertext []byte) error {
	if len(iv) != IVLength || len(ciphertext) != SectorLength {
		return &ValidationError{Field: "header block", Message: "iv/ciphertext have the wrong length"}
	}
	buf := make([]byte, BlockLength)
	copy(buf, iv)
	copy(buf[IVLength:], ciphertext)
	if _, err := img.f.WriteAt(buf, 0); err != nil {
		return &CorruptionError{Message: "short write of header block", Err: err}
	}
	return nil
}

func readAtFull(f absfs.File, buf []byte, off int64) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.ReadAt(buf[total:], off+int64(total))
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, &CorruptionError{Offset: off, Message: "read stalled"}
		}
	}
	return total, nil
}
