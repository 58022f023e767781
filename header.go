package diskonion

import (
	"fmt"
)

// Block and sector geometry. These are normative: every on-disk image uses
// exactly these sizes regardless of header contents.
const (
	BlockLength  = 512
	IVLength     = 16 // the cipher's block size
	KSBlkLen     = IVLength / 2
	SectorLength = BlockLength - IVLength // 496

	KeyLengthLow  = 16
	KeyLengthMed  = 24
	KeyLengthHigh = 32

	// DefaultSectorKeyLength and DefaultSectorKeyStride are the parameters
	// mkonion uses for newly created volumes.
	DefaultSectorKeyLength = SectorLength - 0x10 // 480
	DefaultSectorKeyStride = 13

	headerBlockLenOff = 0x00
	headerKeyLenOff   = 0x04
	headerBlobLenOff  = 0x08
	headerStrideOff   = 0x0C
	headerBlobOff     = 0x10

	// headerKeyLength is the key size used to encrypt and decrypt the
	// header block itself. It is fixed regardless of the key length the
	// header declares for data-block derivation, since that field cannot
	// be trusted until the header has already been decrypted.
	headerKeyLength = KeyLengthHigh
)

// Header is the parsed content of a volume's header sector (the plaintext
// of block 0).
type Header struct {
	BlockLength uint32
	KeyLength   uint32
	BlobLength  uint32
	Stride      uint32
	Blob        []byte
}

// MarshalSector renders h into a SectorLength-byte plaintext sector, using
// filler for the unused remainder after the blob. len(filler) must equal
// SectorLength - headerBlobOff - len(h.Blob).
func (h *Header) MarshalSector(filler []byte) ([]byte, error) {
	if int(h.BlobLength) != len(h.Blob) {
		return nil, fmt.Errorf("diskonion: header blob length %d does not match blob of %d bytes", h.BlobLength, len(h.Blob))
	}
	need := SectorLength - headerBlobOff - len(h.Blob)
	if need < 0 {
		return nil, fmt.Errorf("diskonion: sector-key blob of %d bytes does not fit in the header sector", len(h.Blob))
	}
	if len(filler) != need {
		return nil, fmt.Errorf("diskonion: header filler must be %d bytes, got %d", need, len(filler))
	}

	sector := make([]byte, SectorLength)
	PutUint32BE(sector[headerBlockLenOff:], h.BlockLength)
	PutUint32BE(sector[headerKeyLenOff:], h.KeyLength)
	PutUint32BE(sector[headerBlobLenOff:], h.BlobLength)
	PutUint32BE(sector[headerStrideOff:], h.Stride)
	copy(sector[headerBlobOff:], h.Blob)
	copy(sector[headerBlobOff+len(h.Blob):], filler)
	return sector, nil
}

// ParseHeader decodes and validates a SectorLength-byte plaintext header
// sector. A non-nil error means the sector is not a valid header — callers
// mounting a volume MUST treat this identically to a wrong passphrase (the
// declared block length check is the scheme's only authentication signal).
func ParseHeader(sector []byte) (*Header, error) {
	if len(sector) != SectorLength {
		return nil, fmt.Errorf("diskonion: header sector must be %d bytes, got %d", SectorLength, len(sector))
	}

	h := &Header{
		BlockLength: Uint32BE(sector[headerBlockLenOff:]),
		KeyLength:   Uint32BE(sector[headerKeyLenOff:]),
		BlobLength:  Uint32BE(sector[headerBlobLenOff:]),
		Stride:      Uint32BE(sector[headerStrideOff:]),
	}

	if h.BlockLength != BlockLength {
		return nil, &CorruptionError{Message: fmt.Sprintf("declared block length %d != %d", h.BlockLength, BlockLength)}
	}
	if err := ValidateKeyLength(int(h.KeyLength)); err != nil {
		return nil, &CorruptionError{Message: "invalid declared key length", Err: err}
	}
	if h.BlobLength <= h.KeyLength {
		return nil, &CorruptionError{Message: fmt.Sprintf("sector-key blob length %d must exceed key length %d", h.BlobLength, h.KeyLength)}
	}
	end := headerBlobOff + int(h.BlobLength)
	if end > SectorLength {
		return nil, &CorruptionError{Message: fmt.Sprintf("sector-key blob of %d bytes does not fit in the header sector", h.BlobLength)}
	}
	if err := ValidateStride(int(h.Stride), int(h.BlobLength)); err != nil {
		return nil, &CorruptionError{Message: "stride not coprime to sector-key blob length", Err: err}
	}

	h.Blob = append([]byte(nil), sector[headerBlobOff:end]...)
	return h, nil
}
