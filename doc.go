// Package diskonion implements a layered, deniable block-level disk
// encryption scheme: an "onion volume".
//
// # Overview
//
// An onion volume is a single flat image file divided into fixed
// 512-byte blocks. Block 0 is a header, encrypted under a passphrase
// with a fixed 32-byte key; the remaining blocks hold data, each
// encrypted with AES-CBC under a key derived from the header's
// sector-key blob by a stride walk, and an IV that doubles as a carrier
// for an independent 8-byte keystream slot.
//
// Mounting a volume presents two views, reachable through VolumeFS:
//
//	/data        the plaintext of every data block's 496-byte sector
//	/keystream   the keystream slot decoded from every block's IV
//
// The two views are algebraically independent: decoding the keystream
// requires no key, and writing to one view never changes what the other
// reads, aside from each block's stored IV bytes themselves. A second,
// inner onion volume's passphrase-derived keystream can therefore be
// hidden inside an outer volume's /keystream view: an observer holding
// only the outer passphrase sees a volume whose IVs look uniformly
// random, with no way to tell whether they carry a second volume's
// payload.
//
// # Basic Usage
//
//	f, _ := diskonion.OpenImageFile("disk.onion", true)
//	err := diskonion.CreateVolume(f, 64*1024*1024, []byte("hunter2"), diskonion.BuildOptions{})
//
//	f, _ = diskonion.OpenImageFile("disk.onion", false)
//	vol, err := diskonion.Mount(f, []byte("hunter2"), diskonion.MountOptions{})
//	defer vol.Close()
//
//	data, _ := vol.Open("/data")
//	data.WriteAt([]byte("hello"), 0)
//
// # Cipher
//
// Each data block is AES-CBC encrypted, confidentiality-only: there is
// no authentication tag anywhere in the format, by design. A flipped
// ciphertext bit garbles the corresponding 16-byte plaintext block and
// flips the same bit in the next one, within that sector only; it is
// never detected as corruption, because detecting it
// would give away that the block was tampered with, undermining the
// deniability the scheme exists to provide. The only signal a mount
// operation has that a passphrase is wrong is a malformed header — which
// is indistinguishable, by design, from genuine corruption.
//
// # Key Derivation
//
// Each data block's key is carved out of the header's sector-key blob
// by a stride walk: starting at offset (stride * (index mod bloblen))
// mod bloblen, take key_length consecutive bytes, wrapping around the
// blob. The blob is longer than any individual key, so distinct blocks
// get distinct, overlapping key windows; once the image holds more
// blocks than the blob is long, per-block keys necessarily repeat.
//
// # Deniability
//
// Nothing in an onion volume's on-disk bytes distinguishes "freshly
// formatted," "holds a plaintext partition," or "conceals an inner
// onion volume in its keystream." A data-view write always draws a
// fresh random value and re-randomizes its block's IV before
// re-encrypting, which changes the block's ciphertext on every write
// without disturbing whatever keystream slot the IV happens to carry —
// so ordinary use of the outer volume continuously refreshes the inner
// volume's hiding cover.
package diskonion
