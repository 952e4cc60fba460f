package fsutil

import (
	"io/fs"
	"os"
)

const modeBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// copyMetadata copies permission bits and immutability flags from src to
// dst. Flags are only copied from regular files. Ownership is not copied.
func copyMetadata(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode()&modeBits); err != nil {
		return err
	}
	// Opening a FIFO or device to read its flags can block.
	if !info.Mode().IsRegular() {
		return nil
	}
	return copyFlags(src, dst)
}
