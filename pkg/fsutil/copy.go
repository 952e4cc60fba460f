package fsutil

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Copy copies the bytes of src to dst, then copies permission bits and the
// modification time. Metadata failures are logged, not returned.
func (w *Writer) Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy open src: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("copy create dst: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("copy close dst: %w", err)
	}

	if err := copyStat(src, dst); err != nil {
		w.log().Debug("copystat failed", map[string]any{
			"path":  dst,
			"error": err.Error(),
		})
	}
	return nil
}

// copyStat copies mode bits and mtime. A zero atime leaves it untouched.
func copyStat(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode()&modeBits); err != nil {
		return err
	}
	return os.Chtimes(dst, time.Time{}, info.ModTime())
}

// CopyFile copies src to dst with a default Writer.
func CopyFile(src, dst string) error {
	return NewWriter().Copy(src, dst)
}
