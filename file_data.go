package diskonion

import (
	"io"
	"os"
)

// dataFile is the absfs.File serving the plaintext data view. Reads and
// writes walk the image one block at a time; a write always re-randomizes
// its block's IV before re-encrypting, which changes the block's stored IV
// and ciphertext without disturbing the keystream slot the IV carries
// (RerandomizeIV preserves the pairwise XOR).
type dataFile struct {
	v      *VolumeFS
	offset int64
}

func newDataFile(v *VolumeFS) *dataFile { return &dataFile{v: v} }

func (f *dataFile) Name() string { return DataPath }

func (f *dataFile) size() int64 { return int64(f.v.img.NBlocks()) * SectorLength }

func (f *dataFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *dataFile) ReadAt(p []byte, off int64) (int, error) {
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
		blk := uint64(off+int64(total)) / SectorLength
		within := int((off + int64(total)) % SectorLength)

		plaintext, err := v.readSectorPlaintext(blk)
		if err != nil {
			return total, err
		}
		n := copy(p[total:], plaintext[within:])
		total += n
	}
	var err error
	if total < len(p) {
		err = io.EOF
	}
	return total, err
}

func (f *dataFile) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *dataFile) WriteAt(p []byte, off int64) (int, error) {
	if err := ValidateOffset(off, "offset"); err != nil {
		return 0, err
	}
	v := f.v
	v.img.Lock()
	defer v.img.Unlock()

	total := 0
	for total < len(p) {
		curOff := off + int64(total)
		blk := uint64(curOff) / SectorLength
		if blk >= v.img.NBlocks() {
			break
		}
		within := int(curOff % SectorLength)

		plaintext, err := v.readSectorPlaintext(blk)
		if err != nil {
			return total, err
		}
		n := copy(plaintext[within:], p[total:])
		if err := v.rewriteDataBlock(blk, plaintext); err != nil {
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

func (f *dataFile) WriteString(s string) (int, error) { return f.Write([]byte(s)) }

func (f *dataFile) Seek(offset int64, whence int) (int64, error) {
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

func (f *dataFile) Close() error { return nil }
func (f *dataFile) Sync() error  { return nil }

func (f *dataFile) Stat() (os.FileInfo, error) {
	return &viewInfo{name: DataPath, size: f.size()}, nil
}

func (f *dataFile) Readdir(n int) ([]os.FileInfo, error) { return nil, ErrBadFile }
func (f *dataFile) Readdirnames(n int) ([]string, error) { return nil, ErrBadFile }
func (f *dataFile) Truncate(size int64) error            { return ErrNotImplemented }

// readSectorPlaintext decrypts block blk's stored sector under its current
// IV and the key derived for blk. Caller must hold img's lock.
func (v *VolumeFS) readSectorPlaintext(blk uint64) ([]byte, error) {
	iv, ciphertext, err := v.img.ReadBlock(blk)
	if err != nil {
		return nil, err
	}
	key, err := DeriveKey(v.header.Blob, int(v.header.KeyLength), int(v.header.Stride), blk)
	if err != nil {
		return nil, err
	}
	return DecryptSector(key, iv, ciphertext)
}

// rewriteDataBlock re-encrypts plaintext for block blk under a
// re-randomized IV (preserving the block's keystream slot) and writes it.
// Caller must hold img's write lock.
func (v *VolumeFS) rewriteDataBlock(blk uint64, plaintext []byte) error {
	oldIV, _, err := v.img.ReadBlock(blk)
	if err != nil {
		return err
	}
	h, err := v.rng.Slot()
	if err != nil {
		return err
	}
	newIV, err := RerandomizeIV(oldIV, h)
	if err != nil {
		return err
	}
	key, err := DeriveKey(v.header.Blob, int(v.header.KeyLength), int(v.header.Stride), blk)
	if err != nil {
		return err
	}
	ciphertext, err := EncryptSector(key, newIV, plaintext)
	if err != nil {
		return err
	}
	return v.img.WriteBlock(blk, newIV, ciphertext)
}
