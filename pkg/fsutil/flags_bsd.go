//go:build darwin || freebsd

package fsutil

import "golang.org/x/sys/unix"

// copyFlags mirrors chflags(2) file flags such as uchg and uappnd.
func copyFlags(src, dst string) error {
	var st unix.Stat_t
	if err := unix.Stat(src, &st); err != nil {
		return err
	}
	if st.Flags == 0 {
		return nil
	}
	return unix.Chflags(dst, int(st.Flags))
}
