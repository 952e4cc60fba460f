// Package notebook reads and writes nbformat-4 notebook documents.
//
// The atomic write and access checks live in pkg/contents; this package
// only turns a byte stream into a Notebook and back.
package notebook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jvs-project/vfsroot/pkg/jsonutil"
)

// Current format version written by New.
const (
	FormatMajor = 4
	FormatMinor = 5
)

// Cell types.
const (
	CellCode     = "code"
	CellMarkdown = "markdown"
	CellRaw      = "raw"
)

// Notebook is an nbformat-4 document.
type Notebook struct {
	Cells         []Cell         `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

// New returns an empty notebook at the current format version.
func New() *Notebook {
	return &Notebook{
		Cells:         []Cell{},
		Metadata:      map[string]any{},
		NBFormat:      FormatMajor,
		NBFormatMinor: FormatMinor,
	}
}

// Cell is a single notebook cell. Outputs and ExecutionCount are only
// meaningful for code cells and are kept as raw JSON.
type Cell struct {
	ID             string                     `json:"id,omitempty"`
	CellType       string                     `json:"cell_type"`
	Metadata       map[string]any             `json:"metadata"`
	Source         Source                     `json:"source"`
	Attachments    map[string]json.RawMessage `json:"attachments,omitempty"`
	Outputs        []json.RawMessage          `json:"outputs,omitempty"`
	ExecutionCount json.RawMessage            `json:"execution_count,omitempty"`
}

// MarshalJSON always emits outputs and execution_count for code cells,
// which nbformat requires even when empty.
func (c Cell) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"cell_type": c.CellType,
		"metadata":  orEmpty(c.Metadata),
		"source":    c.Source,
	}
	if c.ID != "" {
		m["id"] = c.ID
	}
	if len(c.Attachments) > 0 {
		m["attachments"] = c.Attachments
	}
	if c.CellType == CellCode {
		outputs := c.Outputs
		if outputs == nil {
			outputs = []json.RawMessage{}
		}
		m["outputs"] = outputs
		if len(c.ExecutionCount) == 0 {
			m["execution_count"] = nil
		} else {
			m["execution_count"] = c.ExecutionCount
		}
	}
	return json.Marshal(m)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Source is multi-line cell text. On disk it may be a string or a list of
// lines; it is always written as a list of lines.
type Source string

func (s *Source) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Source(str)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("source must be a string or list of strings: %w", err)
	}
	*s = Source(strings.Join(lines, ""))
	return nil
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(splitLines(string(s)))
}

// splitLines splits after each newline, keeping it.
func splitLines(s string) []string {
	lines := []string{}
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

// Codec turns a byte stream into a Notebook and back.
type Codec interface {
	Decode(r io.Reader) (*Notebook, error)
	Encode(w io.Writer, nb *Notebook) error
}

// JSONCodec is the on-disk .ipynb format.
type JSONCodec struct{}

// Decode parses and validates a notebook.
func (JSONCodec) Decode(r io.Reader) (*Notebook, error) {
	var nb Notebook
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&nb); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	if nb.Metadata == nil {
		nb.Metadata = map[string]any{}
	}
	if nb.Cells == nil {
		nb.Cells = []Cell{}
	}
	return &nb, nil
}

// Encode writes nb with sorted keys, one-space indentation and a trailing
// newline.
func (JSONCodec) Encode(w io.Writer, nb *Notebook) error {
	if nb == nil {
		return fmt.Errorf("encode notebook: nil notebook")
	}
	data, err := jsonutil.CanonicalIndent(nb, " ")
	if err != nil {
		return fmt.Errorf("encode notebook: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// Validate checks the format version and cell types.
func (nb *Notebook) Validate() error {
	if nb.NBFormat < FormatMajor {
		return fmt.Errorf("unsupported nbformat %d (need %d or later)", nb.NBFormat, FormatMajor)
	}
	for i, c := range nb.Cells {
		switch c.CellType {
		case CellCode, CellMarkdown, CellRaw:
		default:
			return fmt.Errorf("cell %d: unknown cell_type %q", i, c.CellType)
		}
	}
	return nil
}
