package diskonion

import (
	"crypto/rand"
	"errors"
	"io"
)

// ErrNilReader is returned when an RNG option is configured with a nil
// io.Reader.
var ErrNilReader = errors.New("diskonion: entropy source cannot be nil")

// RNG supplies the two entropy sources the scheme needs: a strong,
// possibly-blocking source for long-lived key material, and a fast,
// non-blocking source for IVs and IV re-randomization. Both fields default
// to crypto/rand.Reader and are overridable — mirroring the injectable
// io.Reader pattern used for testing determinism — but production code
// must never replace Strong with a deterministic stream.
type RNG struct {
	Strong io.Reader
	Fast   io.Reader

	// Progress, if non-nil, receives one '.' byte for every 128 bytes
	// consumed from Strong, matching the progress-dot convention for
	// long-running key-material generation.
	Progress io.Writer
}

// RNGOption configures an RNG built by NewRNG.
type RNGOption func(*RNG) error

// WithStrongReader overrides the strong entropy source.
func WithStrongReader(r io.Reader) RNGOption {
	return func(g *RNG) error {
		if r == nil {
			return ErrNilReader
		}
		g.Strong = r
		return nil
	}
}

// WithFastReader overrides the non-blocking entropy source.
func WithFastReader(r io.Reader) RNGOption {
	return func(g *RNG) error {
		if r == nil {
			return ErrNilReader
		}
		g.Fast = r
		return nil
	}
}

// WithProgress sets where strong-read progress dots are written. Pass nil
// to disable progress reporting.
func WithProgress(w io.Writer) RNGOption {
	return func(g *RNG) error {
		g.Progress = w
		return nil
	}
}

// NewRNG builds an RNG backed by crypto/rand.Reader for both sources,
// applying opts in order.
func NewRNG(opts ...RNGOption) (*RNG, error) {
	g := &RNG{Strong: rand.Reader, Fast: rand.Reader}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

const progressDotEvery = 128

// KeyData draws n bytes of long-lived key material from the strong source,
// reporting one progress dot per 128 bytes consumed if Progress is set.
func (g *RNG) KeyData(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("diskonion: key data length must be positive")
	}
	buf := make([]byte, n)
	read := 0
	dots := 0
	for read < n {
		chunk := n - read
		if g.Progress != nil && chunk > progressDotEvery {
			chunk = progressDotEvery
		}
		got, err := io.ReadFull(g.Strong, buf[read:read+chunk])
		read += got
		if err != nil {
			return nil, &CryptoError{Operation: "generate key data", Err: err}
		}
		if g.Progress != nil {
			for read > dots<<7 {
				g.Progress.Write([]byte{'.'})
				dots++
			}
		}
	}
	return buf, nil
}

// IV draws a fresh, uniformly random IVLength-byte initialization vector
// from the non-blocking source.
func (g *RNG) IV() ([]byte, error) {
	buf := make([]byte, IVLength)
	if _, err := io.ReadFull(g.Fast, buf); err != nil {
		return nil, &CryptoError{Operation: "generate iv", Err: err}
	}
	return buf, nil
}

// Slot draws a fresh KSBlkLen-byte random value from the non-blocking
// source, used both to encode a keystream into a new IV and to
// re-randomize an IV's keystream-preserving half.
func (g *RNG) Slot() ([]byte, error) {
	buf := make([]byte, KSBlkLen)
	if _, err := io.ReadFull(g.Fast, buf); err != nil {
		return nil, &CryptoError{Operation: "generate keystream slot", Err: err}
	}
	return buf, nil
}
