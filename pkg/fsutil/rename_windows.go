//go:build windows

package fsutil

// SupportsReplacingRename is false on Windows: the destination is removed
// before the rename, leaving a short window in which no file exists.
const SupportsReplacingRename = false
