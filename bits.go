package diskonion

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PutUint32BE encodes v into the first 4 bytes of buf, big-endian.
func PutUint32BE(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

// Uint32BE decodes a big-endian u32 from the first 4 bytes of buf.
func Uint32BE(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

// ReadFull reads exactly len(buf) bytes from r, looping over short reads.
// On success it returns len(buf); on a short read before EOF, or on any
// other error, it returns the number of bytes actually copied and the
// error that stopped it.
func ReadFull(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF {
		err = fmt.Errorf("diskonion: short read: got %d of %d bytes: %w", n, len(buf), io.ErrUnexpectedEOF)
	}
	return n, err
}

// WriteFull writes all of buf to w, looping over short writes.
func WriteFull(w io.Writer, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return total, fmt.Errorf("diskonion: short write: wrote %d of %d bytes: %w", total, len(buf), err)
		}
		if n == 0 {
			return total, fmt.Errorf("diskonion: write stalled after %d of %d bytes", total, len(buf))
		}
	}
	return total, nil
}
