package diskonion

import (
	"os"

	"github.com/absfs/absfs"
)

// OpenImageFile opens path as the backing store for CreateVolume, Mount,
// or ChangePassphrase. *os.File already satisfies absfs.File and exposes
// Fd(), so no wrapper type is needed; this only centralizes the flag
// choice each command needs (mkonion creates or truncates, onionmount
// opens an existing image for read-write).
func OpenImageFile(path string, create bool) (absfs.File, error) {
	flag := os.O_RDWR
	if create {
		flag |= os.O_CREATE | os.O_TRUNC
	}
	return os.OpenFile(path, flag, 0600)
}
