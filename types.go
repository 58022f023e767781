package diskonion

import "io"

// BuildOptions configures CreateVolume (the volume builder, mkonion's
// core). The zero value is usable: it builds a volume with the default
// sector-key geometry, a raw (unstretched) passphrase, and no parallel
// block generation.
type BuildOptions struct {
	// BlobLength and Stride override the sector-key blob geometry.
	// Zero means DefaultSectorKeyLength / DefaultSectorKeyStride.
	BlobLength int
	Stride     int

	// KeyLength is the declared per-data-block key length (stored in the
	// header and used by DeriveKey for every data block). The header
	// block itself is always encrypted with a fixed KeyLengthHigh-byte
	// key regardless of this setting. Zero means KeyLengthHigh.
	KeyLength int

	// Stretcher transforms the passphrase before it is normalized into
	// the header's AES key. Nil means RawStretcher{}, the format's default.
	Stretcher KeyStretcher

	// RNG supplies entropy. Nil means a fresh NewRNG() writing progress
	// dots to Progress.
	RNG *RNG

	// Progress receives '.' bytes during key generation and one per
	// 1024 blocks written. Nil disables progress reporting.
	Progress io.Writer

	// Parallel controls whether the per-block derive+encrypt loop runs
	// across a worker pool.
	Parallel ParallelConfig
}

func (o BuildOptions) blobLength() int {
	if o.BlobLength > 0 {
		return o.BlobLength
	}
	return DefaultSectorKeyLength
}

func (o BuildOptions) stride() int {
	if o.Stride > 0 {
		return o.Stride
	}
	return DefaultSectorKeyStride
}

func (o BuildOptions) stretcher() KeyStretcher {
	if o.Stretcher != nil {
		return o.Stretcher
	}
	return RawStretcher{}
}

func (o BuildOptions) keyLength() int {
	if o.KeyLength > 0 {
		return o.KeyLength
	}
	return KeyLengthHigh
}

// MountOptions configures Mount (the volume server, onionmount's core).
type MountOptions struct {
	// Stretcher must match whatever stretcher built the volume's current
	// header passphrase. Nil means RawStretcher{}.
	Stretcher KeyStretcher

	// RNG supplies entropy for write-path IV re-randomization. Nil means
	// a fresh NewRNG() with no progress reporting.
	RNG *RNG

	// Diagnostics, if non-nil, receives one-line mount-time diagnostics
	// (e.g. when nblk exceeds the sector-key blob length).
	Diagnostics io.Writer
}

func (o MountOptions) stretcher() KeyStretcher {
	if o.Stretcher != nil {
		return o.Stretcher
	}
	return RawStretcher{}
}
