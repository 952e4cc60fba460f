//go:build !windows

package fsutil

// SupportsReplacingRename reports whether rename(2) atomically replaces an
// existing destination on this platform.
const SupportsReplacingRename = true
