package diskonion

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// NormalizePassphrase zero-pads or truncates pass to exactly keyLen bytes,
// the scheme's raw-key convention (design note: the passphrase IS the AES
// key, never run through a KDF by default).
func NormalizePassphrase(pass []byte, keyLen int) []byte {
	key := make([]byte, keyLen)
	copy(key, pass)
	return key
}

// KeyStretcher optionally transforms a passphrase before it reaches
// NormalizePassphrase. The default, RawStretcher, is the identity
// transform the on-disk format requires; PBKDF2Stretcher and
// Argon2idStretcher are an opt-in mode this package permits but the format
// does not require. Salts for the optional stretchers must never be
// written to the image: a volume's on-disk bytes don't record which mode
// produced its header key, so raw- and stretched-mode volumes are
// indistinguishable on disk.
type KeyStretcher interface {
	Stretch(passphrase []byte) []byte
}

// RawStretcher is the identity stretcher — the on-disk format's default.
type RawStretcher struct{}

// Stretch returns passphrase unchanged.
func (RawStretcher) Stretch(passphrase []byte) []byte { return passphrase }

// HashName selects the hash function PBKDF2Stretcher runs underneath.
type HashName uint8

const (
	SHA256 HashName = iota
	SHA512
)

func (h HashName) newHash() (func() hash.Hash, error) {
	switch h {
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("diskonion: unsupported hash function %d", h)
	}
}

// PBKDF2Stretcher stretches a passphrase with PBKDF2 before it is handed
// to NormalizePassphrase.
type PBKDF2Stretcher struct {
	Salt       []byte
	Iterations int
	KeyLen     int
	Hash       HashName
}

// Stretch runs PBKDF2 over passphrase with the stretcher's parameters.
func (s PBKDF2Stretcher) Stretch(passphrase []byte) []byte {
	h, err := s.Hash.newHash()
	if err != nil {
		h = sha256.New
	}
	iterations := s.Iterations
	if iterations == 0 {
		iterations = 100000
	}
	keyLen := s.KeyLen
	if keyLen == 0 {
		keyLen = KeyLengthHigh
	}
	return pbkdf2.Key(passphrase, s.Salt, iterations, keyLen, h)
}

// Argon2idStretcher stretches a passphrase with Argon2id before it is
// handed to NormalizePassphrase.
type Argon2idStretcher struct {
	Salt        []byte
	Time        uint32
	Memory      uint32 // KiB
	Parallelism uint8
	KeyLen      uint32
}

// Stretch runs Argon2id over passphrase with the stretcher's parameters.
func (s Argon2idStretcher) Stretch(passphrase []byte) []byte {
	t, m, p, k := s.Time, s.Memory, s.Parallelism, s.KeyLen
	if t == 0 {
		t = 3
	}
	if m == 0 {
		m = 64 * 1024
	}
	if p == 0 {
		p = 4
	}
	if k == 0 {
		k = KeyLengthHigh
	}
	return argon2.IDKey(passphrase, s.Salt, t, m, p, k)
}
