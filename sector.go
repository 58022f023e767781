package diskonion

import (
	"crypto/aes"
	"crypto/cipher"
)

// EncryptSector encrypts a SectorLength-byte plaintext sector under key and
// iv using AES-CBC with no padding (SectorLength is exactly 31 AES blocks).
// The encryption is confidentiality-only: altering any ciphertext byte
// alters only that sector's plaintext on decryption (the 16-byte block it
// belongs to, and the same byte of the following block), by design.
// iv is consumed non-destructively; callers may read it again afterwards.
func EncryptSector(key, iv, plaintext []byte) ([]byte, error) {
	block, err := newAESBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVLength {
		return nil, &ValidationError{Field: "iv", Value: len(iv), Message: "iv must be IVLength bytes"}
	}
	if len(plaintext) != SectorLength {
		return nil, &ValidationError{Field: "plaintext", Value: len(plaintext), Message: "sector plaintext must be SectorLength bytes"}
	}

	ivCopy := append([]byte(nil), iv...)
	mode := cipher.NewCBCEncrypter(block, ivCopy)
	ciphertext := make([]byte, SectorLength)
	mode.CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

// DecryptSector is the inverse of EncryptSector.
func DecryptSector(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := newAESBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVLength {
		return nil, &ValidationError{Field: "iv", Value: len(iv), Message: "iv must be IVLength bytes"}
	}
	if len(ciphertext) != SectorLength {
		return nil, &ValidationError{Field: "ciphertext", Value: len(ciphertext), Message: "sector ciphertext must be SectorLength bytes"}
	}

	ivCopy := append([]byte(nil), iv...)
	mode := cipher.NewCBCDecrypter(block, ivCopy)
	plaintext := make([]byte, SectorLength)
	mode.CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

func newAESBlock(key []byte) (cipher.Block, error) {
	if err := ValidateKeyLength(len(key)); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &CryptoError{Operation: "aes key schedule", Err: err}
	}
	return block, nil
}
