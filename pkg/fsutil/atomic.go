// Package fsutil provides all-or-nothing file writes and syncing helpers.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/jvs-project/vfsroot/pkg/errclass"
	"github.com/jvs-project/vfsroot/pkg/logging"
	"github.com/jvs-project/vfsroot/pkg/metrics"
)

// Mode selects how the temporary file handle is exposed to the write body.
type Mode int

const (
	// ModeText rejects bytes that are not valid UTF-8.
	ModeText Mode = iota
	// ModeBinary passes bytes through unchanged.
	ModeBinary
)

func (m Mode) String() string {
	if m == ModeText {
		return "text"
	}
	return "binary"
}

// Writer replaces files atomically through a staging directory created
// next to the destination.
type Writer struct {
	logger          *logging.Logger
	metrics         *metrics.Registry
	replacingRename bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets the logger used for non-fatal cleanup and metadata failures.
func WithLogger(l *logging.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// WithMetrics records every write into r.
func WithMetrics(r *metrics.Registry) WriterOption {
	return func(w *Writer) { w.metrics = r }
}

// WithReplacingRename overrides the platform rename capability.
func WithReplacingRename(supported bool) WriterOption {
	return func(w *Writer) { w.replacingRename = supported }
}

// NewWriter creates a Writer for the current platform.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{replacingRename: SupportsReplacingRename}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) log() *logging.Logger {
	if w.logger != nil {
		return w.logger
	}
	return logging.Global()
}

// WriteAtomically stages a new version of path and hands its handle to body.
// The handle is only valid while body runs. If body returns an error (or
// panics) the staging directory is removed, the destination is left as it
// was, and the error is returned unchanged. Otherwise the data is synced to
// disk and renamed over the destination. Links pointing at the old file are
// not updated.
func (w *Writer) WriteAtomically(path string, mode Mode, body func(io.Writer) error) (err error) {
	start := time.Now()
	committed, rolledBack := false, false
	defer func() {
		w.metrics.RecordWrite(committed, rolledBack, time.Since(start))
	}()

	dest, err := followLink(path)
	if err != nil {
		return err
	}
	dir, name := filepath.Dir(dest), filepath.Base(dest)

	stagingDir, err := os.MkdirTemp(dir, name+"*")
	if err != nil {
		return fmt.Errorf("atomic write create staging dir: %w", err)
	}
	tmpPath := filepath.Join(stagingDir, name)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		w.discard(stagingDir, err)
		rolledBack = true
		return fmt.Errorf("atomic write create tmp: %w", err)
	}

	defer func() {
		if committed {
			return
		}
		f.Close()
		w.discard(stagingDir, err)
		rolledBack = true
	}()

	var out io.Writer = f
	var text *textWriter
	if mode == ModeText {
		text = &textWriter{tw: transform.NewWriter(f, encoding.UTF8Validator)}
		out = text
	}

	if err = body(out); err != nil {
		return err
	}
	if text != nil {
		if err = text.Close(); err != nil {
			return err
		}
	}

	// Durability boundary: nothing below can leave a partial destination.
	if err = f.Sync(); err != nil {
		return fmt.Errorf("atomic write fsync: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("atomic write close: %w", err)
	}

	if merr := copyMetadata(dest, tmpPath); merr != nil {
		w.log().Debug("atomic write: metadata not copied", map[string]any{
			"path":  dest,
			"error": merr.Error(),
		})
	}

	if !w.replacingRename {
		// The only window in which the destination does not exist.
		if rerr := os.Remove(dest); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			err = fmt.Errorf("atomic write remove existing: %w", rerr)
			return err
		}
	}

	if err = os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("atomic write rename: %w", err)
	}
	committed = true

	if rerr := os.RemoveAll(stagingDir); rerr != nil {
		w.log().Warn("atomic write: staging dir not removed", map[string]any{
			"staging": stagingDir,
			"error":   rerr.Error(),
		})
	}
	if serr := FsyncDir(dir); serr != nil {
		w.log().Debug("atomic write: parent dir not synced", map[string]any{
			"dir":   dir,
			"error": serr.Error(),
		})
	}
	return nil
}

// discard removes the staging directory after a failed write. A failure
// here is logged so it never replaces cause.
func (w *Writer) discard(stagingDir string, cause error) {
	if err := os.RemoveAll(stagingDir); err != nil {
		fields := map[string]any{"staging": stagingDir}
		if cause != nil {
			fields["cause"] = cause.Error()
		}
		w.log().ErrorErr("atomic write: rollback cleanup failed", err, fields)
	}
}

// followLink resolves path once if it is itself a symbolic link, so the write
// lands on the link target instead of replacing the link.
func followLink(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return path, nil
	}
	target, err := os.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("atomic write readlink: %w", err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, nil
}

// textWriter validates UTF-8 on the way to the temporary file. Validation
// failures surface as encoding errors, file errors pass through.
type textWriter struct {
	tw *transform.Writer
}

func (t *textWriter) Write(p []byte) (int, error) {
	n, err := t.tw.Write(p)
	return n, t.classify(err)
}

func (t *textWriter) Close() error {
	return t.classify(t.tw.Close())
}

func (t *textWriter) classify(err error) error {
	if err == nil {
		return nil
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}
	return errclass.ErrEncoding.WithMessage("text content is not valid UTF-8").WithCause(err)
}

// AtomicWrite replaces path with data using a default Writer.
func AtomicWrite(path string, data []byte) error {
	return NewWriter().WriteAtomically(path, ModeBinary, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// FsyncDir fsyncs a directory to ensure rename visibility is durable.
func FsyncDir(dirPath string) error {
	d, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("fsync dir open: %w", err)
	}
	defer d.Close()
	return d.Sync()
}
