//go:build !linux && !darwin && !freebsd

package fsutil

func copyFlags(src, dst string) error {
	return nil
}
