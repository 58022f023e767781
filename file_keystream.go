package diskonion

import (
	"io"
	"os"
)

// keystreamFile is the absfs.File serving the keystream view: KSBlkLen
// bytes per block, decoded from (and, on write, re-encoded into) each
// block's IV. Reading requires no key — DecodeKeystream needs only the
// IV — so the keystream view is unaffected by DeriveKey's declared key
// length. Writing preserves the block's sector plaintext exactly: the
// block is decrypted under its current IV, then re-encrypted unchanged
// under the freshly encoded IV, so a /data reader sees no change from a
// /keystream write.
type keystreamFile struct {
	v      *VolumeFS
	offset int64
}

func newKeystreamFile(v *VolumeFS) *keystreamFile { return &keystreamFile{v: v} }

func (f *keystreamFile) Name() string { return KeystreamPath }

func (f *keystreamFile) size() int64 { return int64(f.v.img.NBlocks()) * KSBlkLen }

func (f *keystreamFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *keystreamFile) ReadAt(p []byte, off int64) (int, error) {
	if err := ValidateOffset(off, "offset"); err != nil {
		return 0, err
	}
	if off >= f.size() {
		return 0, io.EOF
	}
	v := f.v
	v.img.RLock()
	defer v.img.RUnlock()

	total := 0
	for total < len(p) && off+int64(total) < f.size() {
		blk := uint64(off+int64(total)) / KSBlkLen
		within := int((off + int64(total)) % KSBlkLen)

		iv, _, err := v.img.ReadBlock(blk)
		if err != nil {
			return total, err
		}
		ks, err := DecodeKeystream(iv)
		if err != nil {
			return total, err
		}
		n := copy(p[total:], ks[within:])
		total += n
	}
	var err error
	if total < len(p) {
		err = io.EOF
	}
	return total, err
}

func (f *keystreamFile) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *keystreamFile) WriteAt(p []byte, off int64) (int, error) {
	if err := ValidateOffset(off, "offset"); err != nil {
		return 0, err
	}
	v := f.v
	v.img.Lock()
	defer v.img.Unlock()

	total := 0
	for total < len(p) {
		curOff := off + int64(total)
		blk := uint64(curOff) / KSBlkLen
		if blk >= v.img.NBlocks() {
			break
		}
		within := int(curOff % KSBlkLen)

		oldIV, ciphertext, err := v.img.ReadBlock(blk)
		if err != nil {
			return total, err
		}
		ks, err := DecodeKeystream(oldIV)
		if err != nil {
			return total, err
		}
		n := copy(ks[within:], p[total:])

		key, err := DeriveKey(v.header.Blob, int(v.header.KeyLength), int(v.header.Stride), blk)
		if err != nil {
			return total, err
		}
		plaintext, err := DecryptSector(key, oldIV, ciphertext)
		if err != nil {
			return total, err
		}

		r, err := v.rng.Slot()
		if err != nil {
			return total, err
		}
		newIV, err := EncodeKeystream(ks, r)
		if err != nil {
			return total, err
		}
		newCiphertext, err := EncryptSector(key, newIV, plaintext)
		if err != nil {
			return total, err
		}
		if err := v.img.WriteBlock(blk, newIV, newCiphertext); err != nil {
			return total, err
		}
		total += n
	}
	var err error
	if total < len(p) {
		err = io.ErrShortWrite
	}
	return total, err
}

func (f *keystreamFile) WriteString(s string) (int, error) { return f.Write([]byte(s)) }

func (f *keystreamFile) Seek(offset int64, whence int) (int64, error) {
	var newOff int64
	switch whence {
	case io.SeekStart:
		newOff = offset
	case io.SeekCurrent:
		newOff = f.offset + offset
	case io.SeekEnd:
		newOff = f.size() + offset
	default:
		return 0, &ValidationError{Field: "whence", Value: whence, Message: "invalid whence"}
	}
	if newOff < 0 {
		return 0, &ValidationError{Field: "offset", Value: newOff, Message: "resulting offset cannot be negative"}
	}
	f.offset = newOff
	return newOff, nil
}

func (f *keystreamFile) Close() error { return nil }
func (f *keystreamFile) Sync() error  { return nil }

func (f *keystreamFile) Stat() (os.FileInfo, error) {
	return &viewInfo{name: KeystreamPath, size: f.size()}, nil
}

func (f *keystreamFile) Readdir(n int) ([]os.FileInfo, error) { return nil, ErrBadFile }
func (f *keystreamFile) Readdirnames(n int) ([]string, error) { return nil, ErrBadFile }
func (f *keystreamFile) Truncate(size int64) error            { return ErrNotImplemented }
