//go:build linux

package fsutil

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// From linux/fs.h.
const (
	fsImmutableFl = 0x00000010
	fsAppendFl    = 0x00000020
)

// copyFlags carries the immutable and append-only inode attributes over.
func copyFlags(src, dst string) error {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()

	srcFlags, err := unix.IoctlGetUint32(int(sf.Fd()), unix.FS_IOC_GETFLAGS)
	if err != nil {
		if unsupportedFlags(err) {
			return nil
		}
		return err
	}
	want := srcFlags & (fsImmutableFl | fsAppendFl)
	if want == 0 {
		return nil
	}

	df, err := os.Open(dst)
	if err != nil {
		return err
	}
	defer df.Close()

	dstFlags, err := unix.IoctlGetUint32(int(df.Fd()), unix.FS_IOC_GETFLAGS)
	if err != nil {
		return err
	}
	return unix.IoctlSetPointerInt(int(df.Fd()), unix.FS_IOC_SETFLAGS, int(dstFlags|want))
}

func unsupportedFlags(err error) bool {
	return errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.EINVAL)
}
