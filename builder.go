package diskonion

import (
	"fmt"
	"io"

	"github.com/absfs/absfs"
)

// progressBlockEvery matches the original volume-builder's progress
// cadence: one dot per 1024 data blocks written.
const progressBlockEvery = 1024

// CreateVolume formats f as a new onion volume of exactly size bytes
// (a multiple of BlockLength, at least two blocks), encrypted under
// passphrase, and configured by opts. f is truncated/extended to size
// first; any existing contents are discarded.
//
// The header block is always encrypted with a fixed KeyLengthHigh-byte
// key derived from passphrase, independent of the sector-key blob's own
// key length: the declared key length governs only per-data-block
// derivation, since it cannot be trusted before the header itself has
// been decrypted.
func CreateVolume(f absfs.File, size int64, passphrase []byte, opts BuildOptions) error {
	if err := ValidateImageSize(size); err != nil {
		return err
	}
	nblk := uint64(size)/BlockLength - 1

	rng := opts.RNG
	if rng == nil {
		r, err := NewRNG(WithProgress(opts.Progress))
		if err != nil {
			return err
		}
		rng = r
	}

	blobLen := opts.blobLength()
	stride := opts.stride()
	if err := ValidateStride(stride, blobLen); err != nil {
		return err
	}

	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("diskonion: truncate image: %w", err)
	}

	blob, err := rng.KeyData(blobLen)
	if err != nil {
		return err
	}
	if opts.Progress != nil {
		io.WriteString(opts.Progress, "\n")
	}

	keyLen := opts.keyLength()
	if err := ValidateKeyLength(keyLen); err != nil {
		return err
	}

	header := &Header{
		BlockLength: BlockLength,
		KeyLength:   uint32(keyLen),
		BlobLength:  uint32(blobLen),
		Stride:      uint32(stride),
		Blob:        blob,
	}
	fillerLen := SectorLength - headerBlobOff - len(blob)
	filler, err := rng.KeyData(maxInt(fillerLen, 1))
	if err != nil {
		return err
	}
	filler = filler[:fillerLen]
	plainHeader, err := header.MarshalSector(filler)
	if err != nil {
		return err
	}

	headerKey := NormalizePassphrase(opts.stretcher().Stretch(passphrase), headerKeyLength)
	headerIV, err := rng.IV()
	if err != nil {
		return err
	}
	headerCiphertext, err := EncryptSector(headerKey, headerIV, plainHeader)
	if err != nil {
		return err
	}

	img, err := OpenImage(f)
	if err != nil {
		return err
	}
	if err := img.WriteHeaderBlock(headerIV, headerCiphertext); err != nil {
		return err
	}

	plaintext := make([]byte, SectorLength)
	const batchSize = progressBlockEvery
	for start := uint64(0); start < nblk; start += batchSize {
		end := start + batchSize
		if end > nblk {
			end = nblk
		}
		jobs := make([]*blockJob, end-start)
		for i := range jobs {
			jobs[i] = &blockJob{index: start + uint64(i)}
		}
		if err := generateBlocks(opts.Parallel, jobs, blob, keyLen, stride, plaintext, rng); err != nil {
			return err
		}
		for _, j := range jobs {
			if err := img.WriteBlock(j.index, j.iv, j.ciphertext); err != nil {
				return err
			}
		}
		if opts.Progress != nil {
			io.WriteString(opts.Progress, ".")
		}
	}
	if opts.Progress != nil {
		io.WriteString(opts.Progress, "\n")
	}

	return f.Sync()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
