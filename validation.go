package diskonion

import "fmt"

// Input validation helpers, in the defensive-programming style used
// throughout the package: every exported entry point that accepts caller
// data validates it before touching key material or the image.

// ValidateKeyLength checks that n is one of the three AES key sizes the
// scheme supports.
func ValidateKeyLength(n int) error {
	switch n {
	case KeyLengthLow, KeyLengthMed, KeyLengthHigh:
		return nil
	default:
		return &ValidationError{
			Field:   "key_length",
			Value:   n,
			Message: fmt.Sprintf("key length must be %d, %d, or %d bytes", KeyLengthLow, KeyLengthMed, KeyLengthHigh),
		}
	}
}

// ValidateImageSize checks that size is a positive multiple of
// BlockLength and large enough to hold a header block plus at least one
// data block.
func ValidateImageSize(size int64) error {
	if size <= 0 {
		return &ValidationError{Field: "size", Value: size, Message: "image size must be positive"}
	}
	if size%BlockLength != 0 {
		return &ValidationError{Field: "size", Value: size, Message: fmt.Sprintf("image size must be a multiple of %d", BlockLength)}
	}
	if size < 2*BlockLength {
		return &ValidationError{Field: "size", Value: size, Message: fmt.Sprintf("image size must be at least %d bytes (one header block plus one data block)", 2*BlockLength)}
	}
	return nil
}

// ValidateOffset checks that a read/write offset into a virtual file view
// is non-negative.
func ValidateOffset(offset int64, name string) error {
	if offset < 0 {
		return &ValidationError{Field: name, Value: offset, Message: "offset cannot be negative"}
	}
	return nil
}

// ValidateBuffer checks that buf is non-nil.
func ValidateBuffer(buf []byte, name string) error {
	if buf == nil {
		return &ValidationError{Field: name, Message: "buffer cannot be nil"}
	}
	return nil
}
