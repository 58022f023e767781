package diskonion

import (
	"bytes"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	blob := make([]byte, DefaultSectorKeyLength)
	for i := range blob {
		blob[i] = byte(i)
	}
	k1, err := DeriveKey(blob, KeyLengthHigh, DefaultSectorKeyStride, 5)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := DeriveKey(blob, KeyLengthHigh, DefaultSectorKeyStride, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("DeriveKey is not deterministic for the same index")
	}
}

func TestDeriveKeyWraps(t *testing.T) {
	blob := make([]byte, DefaultSectorKeyLength)
	for i := range blob {
		blob[i] = byte(i)
	}
	k1, err := DeriveKey(blob, KeyLengthHigh, DefaultSectorKeyStride, 3)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := DeriveKey(blob, KeyLengthHigh, DefaultSectorKeyStride, 3+uint64(len(blob)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("DeriveKey should cycle with period len(blob)")
	}
}

func TestDeriveKeyDistinctIndices(t *testing.T) {
	blob := make([]byte, DefaultSectorKeyLength)
	for i := range blob {
		blob[i] = byte(i)
	}
	k1, _ := DeriveKey(blob, KeyLengthHigh, DefaultSectorKeyStride, 1)
	k2, _ := DeriveKey(blob, KeyLengthHigh, DefaultSectorKeyStride, 2)
	if bytes.Equal(k1, k2) {
		t.Fatal("expected different indices to derive different keys")
	}
}

func TestValidateStride(t *testing.T) {
	if err := ValidateStride(DefaultSectorKeyStride, DefaultSectorKeyLength); err != nil {
		t.Fatalf("default stride/blob length should be coprime: %v", err)
	}
	if err := ValidateStride(2, 480); err == nil {
		t.Fatal("expected error for stride sharing a factor with blob length")
	}
	if err := ValidateStride(0, 480); err == nil {
		t.Fatal("expected error for non-positive stride")
	}
}

func TestDeriveKeyRejectsOversizeKey(t *testing.T) {
	blob := make([]byte, 10)
	if _, err := DeriveKey(blob, 20, 3, 0); err == nil {
		t.Fatal("expected error when key length exceeds blob length")
	}
}
