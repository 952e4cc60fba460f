// Package pathutil maps virtual (API-level) paths onto the real filesystem
// while keeping every result inside a configured root directory.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jvs-project/vfsroot/pkg/errclass"
)

// Resolve maps virtualPath onto root and verifies the result stays inside
// root after normalization. Only the lexical path is checked; symlinks in
// intermediate directories are not followed.
func Resolve(root, virtualPath string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	parts := []string{absRoot}
	for _, seg := range strings.Split(virtualPath, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	osPath := filepath.Join(parts...)

	absPath, err := filepath.Abs(osPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", virtualPath, err)
	}
	if !within(absRoot, absPath) {
		return "", errclass.ErrOutOfRoot.WithMessagef("%s is outside root contents directory", virtualPath)
	}
	return osPath, nil
}

// within reports whether path equals root or lies below it. The trailing
// separator keeps /root2 from matching /root.
func within(root, path string) bool {
	return strings.HasPrefix(withSep(path), withSep(root))
}

func withSep(p string) string {
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return p
	}
	return p + string(filepath.Separator)
}

// ToVirtual converts a real path back into a slash-separated path relative
// to root. Paths outside root collapse to their base name so that error
// messages never expose the server's directory layout.
func ToVirtual(root, realPath string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.Base(realPath)
	}
	absPath, err := filepath.Abs(realPath)
	if err != nil || !within(absRoot, absPath) {
		return filepath.Base(realPath)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// Resolver binds a root directory once for the lifetime of the process.
type Resolver struct {
	root string
}

// NewResolver validates that root exists and is a directory.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps a virtual path onto the root.
func (r *Resolver) Resolve(virtualPath string) (string, error) {
	return Resolve(r.root, virtualPath)
}

// ToVirtual maps a real path back to its virtual form.
func (r *Resolver) ToVirtual(realPath string) string {
	return ToVirtual(r.root, realPath)
}
