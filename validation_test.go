package diskonion

import "testing"

func TestValidateKeyLength(t *testing.T) {
	for _, n := range []int{KeyLengthLow, KeyLengthMed, KeyLengthHigh} {
		if err := ValidateKeyLength(n); err != nil {
			t.Errorf("ValidateKeyLength(%d) = %v, want nil", n, err)
		}
	}
	for _, n := range []int{0, 8, 15, 17, 33} {
		if err := ValidateKeyLength(n); err == nil {
			t.Errorf("ValidateKeyLength(%d) = nil, want error", n)
		}
	}
}

func TestValidateImageSize(t *testing.T) {
	cases := []struct {
		size    int64
		wantErr bool
	}{
		{0, true},
		{-512, true},
		{100, true},
		{BlockLength, true},
		{2 * BlockLength, false},
		{3 * BlockLength, false},
	}
	for _, c := range cases {
		err := ValidateImageSize(c.size)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateImageSize(%d) = %v, wantErr %v", c.size, err, c.wantErr)
		}
	}
}

func TestValidateOffset(t *testing.T) {
	if err := ValidateOffset(-1, "offset"); err == nil {
		t.Error("expected error for negative offset")
	}
	if err := ValidateOffset(0, "offset"); err != nil {
		t.Errorf("ValidateOffset(0) = %v, want nil", err)
	}
}

func TestValidateBuffer(t *testing.T) {
	if err := ValidateBuffer(nil, "buf"); err == nil {
		t.Error("expected error for nil buffer")
	}
	if err := ValidateBuffer([]byte{}, "buf"); err != nil {
		t.Errorf("ValidateBuffer(empty) = %v, want nil", err)
	}
}
