package contents

import (
	"encoding/base64"
	"errors"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/jvs-project/vfsroot/pkg/errclass"
	"github.com/jvs-project/vfsroot/pkg/fsutil"
	"github.com/jvs-project/vfsroot/pkg/notebook"
)

// Format is the representation of generic file content.
type Format string

const (
	// FormatAuto tries text and falls back to base64.
	FormatAuto   Format = ""
	FormatText   Format = "text"
	FormatBase64 Format = "base64"
)

// ParseFormat accepts "", "auto", "text" and "base64".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "auto":
		return FormatAuto, nil
	case string(FormatText), string(FormatBase64):
		return Format(s), nil
	default:
		return "", errclass.ErrBadFormat.WithMessagef("unknown format %q", s)
	}
}

// ReadDocument parses the notebook at realPath. Content that is not valid
// UTF-8 or that the codec rejects is reported as ErrUnreadableDocument.
func (m *Manager) ReadDocument(realPath string) (*notebook.Notebook, error) {
	var nb *notebook.Notebook
	err := m.Guard(realPath, func() error {
		f, err := os.Open(realPath)
		if err != nil {
			return err
		}
		defer f.Close()

		nb, err = m.codec.Decode(transform.NewReader(f, encoding.UTF8Validator))
		if err != nil {
			return errclass.ErrUnreadableDocument.
				WithMessagef("Unreadable Notebook: %s %v", m.VirtualPath(realPath), err).
				WithCause(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nb, nil
}

// WriteDocument atomically replaces realPath with the encoded notebook.
func (m *Manager) WriteDocument(realPath string, nb *notebook.Notebook) error {
	return m.AtomicWriting(realPath, fsutil.ModeText, func(w io.Writer) error {
		return m.codec.Encode(w, nb)
	})
}

// ReadFile reads a generic file. With FormatAuto the content is returned as
// text when it is valid UTF-8 and as base64 otherwise.
func (m *Manager) ReadFile(realPath string, format Format) (string, Format, error) {
	if format != FormatAuto && format != FormatText && format != FormatBase64 {
		return "", "", errclass.ErrBadFormat.WithMessagef("unknown format %q", format)
	}
	virtual := m.VirtualPath(realPath)

	var raw []byte
	err := m.Guard(realPath, func() error {
		info, err := os.Stat(realPath)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
			return errclass.ErrNotAFile.WithMessagef("Cannot read non-file %s", virtual)
		}
		if err != nil {
			return err
		}
		raw, err = os.ReadFile(realPath)
		return err
	})
	if err != nil {
		return "", "", err
	}

	if format != FormatBase64 {
		if utf8.Valid(raw) {
			return string(raw), FormatText, nil
		}
		if format == FormatText {
			return "", "", errclass.ErrNotUTF8.WithMessagef("%s is not UTF-8 encoded", virtual)
		}
	}
	return base64.StdEncoding.EncodeToString(raw), FormatBase64, nil
}

// WriteFile atomically writes generic content. The format is checked before
// anything on disk is touched.
func (m *Manager) WriteFile(realPath, content string, format Format) error {
	var data []byte
	switch format {
	case FormatText:
		if !utf8.ValidString(content) {
			return errclass.ErrEncoding.WithMessagef("Encoding error saving %s: content is not valid UTF-8",
				m.VirtualPath(realPath))
		}
		data = []byte(content)
	case FormatBase64:
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return errclass.ErrEncoding.
				WithMessagef("Encoding error saving %s: %v", m.VirtualPath(realPath), err).
				WithCause(err)
		}
		data = decoded
	default:
		return errclass.ErrBadFormat.WithMessage("Must specify format of file contents as 'text' or 'base64'")
	}

	return m.AtomicWriting(realPath, fsutil.ModeBinary, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
