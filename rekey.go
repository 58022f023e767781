package diskonion

import "github.com/absfs/absfs"

// ChangePassphrase re-encrypts an onion volume's header block under
// newPassphrase, leaving the rest of the image — and the header's
// contents — untouched. It fails closed: the header is decrypted and
// validated under oldPassphrase first, and nothing is written if that
// fails.
func ChangePassphrase(f absfs.File, oldPassphrase, newPassphrase []byte, oldStretcher, newStretcher KeyStretcher) error {
	if oldStretcher == nil {
		oldStretcher = RawStretcher{}
	}
	if newStretcher == nil {
		newStretcher = RawStretcher{}
	}

	release, err := LockExclusive(f)
	if err != nil {
		return err
	}
	defer release()

	img, err := OpenImage(f)
	if err != nil {
		return err
	}

	iv, ciphertext, err := img.ReadHeaderBlock()
	if err != nil {
		return err
	}

	oldKey := NormalizePassphrase(oldStretcher.Stretch(oldPassphrase), headerKeyLength)
	plainHeader, err := DecryptSector(oldKey, iv, ciphertext)
	if err != nil {
		return &CorruptionError{Message: "header decryption failed (wrong passphrase or corrupt image)", Err: err}
	}
	if _, err := ParseHeader(plainHeader); err != nil {
		return err
	}

	rng, err := NewRNG()
	if err != nil {
		return err
	}
	newIV, err := rng.IV()
	if err != nil {
		return err
	}
	newKey := NormalizePassphrase(newStretcher.Stretch(newPassphrase), headerKeyLength)
	newCiphertext, err := EncryptSector(newKey, newIV, plainHeader)
	if err != nil {
		return err
	}

	if err := img.WriteHeaderBlock(newIV, newCiphertext); err != nil {
		return err
	}
	return f.Sync()
}
