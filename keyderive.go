package diskonion

import "fmt"

// DeriveKey computes the per-block key carved out of blob by a stride-walk:
// starting offset R = (stride * (index mod len(blob))) mod len(blob), then
// key[j] = blob[(R+j) mod len(blob)] for j in [0, keyLen). The result is
// deterministic and cyclic with period len(blob) when gcd(stride,
// len(blob)) == 1, so indices beyond len(blob) intentionally alias back to
// an earlier derived key.
func DeriveKey(blob []byte, keyLen int, stride int, index uint64) ([]byte, error) {
	if len(blob) == 0 {
		return nil, &ValidationError{Field: "blob", Message: "sector-key blob cannot be empty"}
	}
	if keyLen <= 0 || keyLen > len(blob) {
		return nil, &ValidationError{Field: "keyLen", Value: keyLen, Message: "key length must be positive and at most the blob length"}
	}

	blobLen := len(blob)
	r := int((stride * int(index%uint64(blobLen))) % blobLen)
	key := make([]byte, keyLen)
	for j := 0; j < keyLen; j++ {
		key[j] = blob[(r+j)%blobLen]
	}
	return key, nil
}

// ValidateStride reports whether stride is coprime to blobLen, which is
// required for DeriveKey to produce blobLen distinct starting offsets
// before cycling.
func ValidateStride(stride, blobLen int) error {
	if stride <= 0 {
		return &ValidationError{Field: "stride", Value: stride, Message: "stride must be positive"}
	}
	if blobLen <= 0 {
		return &ValidationError{Field: "blobLen", Value: blobLen, Message: "blob length must be positive"}
	}
	if g := gcd(stride, blobLen); g != 1 {
		return &ValidationError{Field: "stride", Value: stride, Message: fmt.Sprintf("stride is not coprime to blob length %d (gcd=%d)", blobLen, g)}
	}
	return nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
