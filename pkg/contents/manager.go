// Package contents exposes files under a root directory to untrusted
// callers. Paths are resolved through pkg/pathutil, writes go through the
// atomic writer in pkg/fsutil, and permission failures are reported as
// forbidden using the caller's virtual path.
package contents

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/jvs-project/vfsroot/pkg/errclass"
	"github.com/jvs-project/vfsroot/pkg/fsutil"
	"github.com/jvs-project/vfsroot/pkg/logging"
	"github.com/jvs-project/vfsroot/pkg/metrics"
	"github.com/jvs-project/vfsroot/pkg/notebook"
	"github.com/jvs-project/vfsroot/pkg/pathutil"
)

// FileManager is the filesystem surface shared by the contents and
// checkpoint services.
type FileManager interface {
	OSPath(virtualPath string) (string, error)
	Open(realPath string) (io.ReadCloser, error)
	AtomicWriting(realPath string, mode fsutil.Mode, body func(io.Writer) error) error
	Copy(src, dst string) error
	ReadDocument(realPath string) (*notebook.Notebook, error)
	WriteDocument(realPath string, nb *notebook.Notebook) error
	ReadFile(realPath string, format Format) (string, Format, error)
	WriteFile(realPath, content string, format Format) error
}

// Manager implements FileManager for one root directory.
type Manager struct {
	resolver *pathutil.Resolver
	writer   *fsutil.Writer
	codec    notebook.Codec
	logger   *logging.Logger
	metrics  *metrics.Registry
}

var _ FileManager = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithCodec replaces the notebook codec.
func WithCodec(c notebook.Codec) Option {
	return func(m *Manager) { m.codec = c }
}

// WithWriter replaces the atomic writer.
func WithWriter(w *fsutil.Writer) Option {
	return func(m *Manager) { m.writer = w }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics records forbidden and out-of-root outcomes, and atomic writes
// when no writer is supplied.
func WithMetrics(r *metrics.Registry) Option {
	return func(m *Manager) { m.metrics = r }
}

// NewManager creates a Manager rooted at resolver.Root().
func NewManager(resolver *pathutil.Resolver, opts ...Option) *Manager {
	m := &Manager{
		resolver: resolver,
		codec:    notebook.JSONCodec{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.Global()
	}
	if m.writer == nil {
		m.writer = fsutil.NewWriter(fsutil.WithLogger(m.logger), fsutil.WithMetrics(m.metrics))
	}
	return m
}

// Root returns the absolute root directory.
func (m *Manager) Root() string {
	return m.resolver.Root()
}

// OSPath resolves a virtual path to a real path inside the root.
func (m *Manager) OSPath(virtualPath string) (string, error) {
	p, err := m.resolver.Resolve(virtualPath)
	if errors.Is(err, errclass.ErrOutOfRoot) {
		m.metrics.RecordOutOfRoot()
	}
	return p, err
}

// VirtualPath maps a real path back to the form callers know.
func (m *Manager) VirtualPath(realPath string) string {
	return m.resolver.ToVirtual(realPath)
}

// Guard runs fn and turns permission failures into ErrForbidden naming the
// virtual path. When realPath is empty the path is taken from the error.
// Every other error is returned unchanged.
func (m *Manager) Guard(realPath string, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, fs.ErrPermission) {
		return err
	}

	virtual := "unknown file"
	path := realPath
	if path != "" || failedPath(err, &path) {
		virtual = m.resolver.ToVirtual(path)
	}
	m.metrics.RecordForbidden()
	m.logger.Debug("permission denied", map[string]any{
		"path":  virtual,
		"error": err.Error(),
	})
	return errclass.ErrForbidden.WithMessagef("Permission denied: %s", virtual)
}

func failedPath(err error, out *string) bool {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Path != "" {
		*out = pathErr.Path
		return true
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && linkErr.New != "" {
		*out = linkErr.New
		return true
	}
	return false
}

// Open opens realPath for reading. The caller closes the reader.
func (m *Manager) Open(realPath string) (io.ReadCloser, error) {
	var f *os.File
	err := m.Guard(realPath, func() error {
		var err error
		f, err = os.Open(realPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// AtomicWriting replaces realPath with what body writes, all or nothing.
func (m *Manager) AtomicWriting(realPath string, mode fsutil.Mode, body func(io.Writer) error) error {
	return m.Guard(realPath, func() error {
		return m.writer.WriteAtomically(realPath, mode, body)
	})
}

// Copy copies src to dst. Metadata that cannot be copied is only logged.
func (m *Manager) Copy(src, dst string) error {
	return m.Guard("", func() error {
		return m.writer.Copy(src, dst)
	})
}
