package diskonion

import (
	"bytes"
	"testing"
)

func TestNormalizePassphrasePadsAndTruncates(t *testing.T) {
	got := NormalizePassphrase([]byte("short"), KeyLengthHigh)
	if len(got) != KeyLengthHigh {
		t.Fatalf("length = %d, want %d", len(got), KeyLengthHigh)
	}
	if !bytes.Equal(got[:5], []byte("short")) {
		t.Fatal("expected passphrase bytes preserved at the start")
	}
	for _, b := range got[5:] {
		if b != 0 {
			t.Fatal("expected zero padding after the passphrase bytes")
		}
	}

	long := bytes.Repeat([]byte("x"), KeyLengthHigh+10)
	got = NormalizePassphrase(long, KeyLengthHigh)
	if !bytes.Equal(got, long[:KeyLengthHigh]) {
		t.Fatal("expected truncation to keyLen bytes")
	}
}

func TestRawStretcherIsIdentity(t *testing.T) {
	in := []byte("a passphrase")
	if got := (RawStretcher{}).Stretch(in); !bytes.Equal(got, in) {
		t.Fatal("RawStretcher must return the passphrase unchanged")
	}
}

func TestPBKDF2StretcherDeterministic(t *testing.T) {
	s := PBKDF2Stretcher{Salt: []byte("fixed-salt"), Iterations: 10, KeyLen: KeyLengthHigh}
	a := s.Stretch([]byte("hunter2"))
	b := s.Stretch([]byte("hunter2"))
	if !bytes.Equal(a, b) {
		t.Fatal("PBKDF2Stretcher must be deterministic for the same inputs")
	}
	if len(a) != KeyLengthHigh {
		t.Fatalf("length = %d, want %d", len(a), KeyLengthHigh)
	}
}

func TestPBKDF2StretcherSaltChangesOutput(t *testing.T) {
	a := PBKDF2Stretcher{Salt: []byte("salt-a"), Iterations: 10}.Stretch([]byte("hunter2"))
	b := PBKDF2Stretcher{Salt: []byte("salt-b"), Iterations: 10}.Stretch([]byte("hunter2"))
	if bytes.Equal(a, b) {
		t.Fatal("different salts should produce different stretched keys")
	}
}

func TestArgon2idStretcherDeterministic(t *testing.T) {
	s := Argon2idStretcher{Salt: []byte("fixed-salt"), Time: 1, Memory: 8 * 1024, Parallelism: 1}
	a := s.Stretch([]byte("hunter2"))
	b := s.Stretch([]byte("hunter2"))
	if !bytes.Equal(a, b) {
		t.Fatal("Argon2idStretcher must be deterministic for the same inputs")
	}
	if len(a) != KeyLengthHigh {
		t.Fatalf("length = %d, want %d", len(a), KeyLengthHigh)
	}
}
