package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/vfsroot/pkg/errclass"
	"github.com/jvs-project/vfsroot/pkg/logging"
)

func createTestRootCmd() *cobra.Command {
	return newRootCmd()
}

func executeCommand(root *cobra.Command, stdin string, args ...string) (stdout string, err error) {
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), err
}

// setupRoot creates a content root and returns it with the flags that point
// the CLI at it and at a config file that does not exist.
func setupRoot(t *testing.T) (string, []string) {
	dir := t.TempDir()
	root := filepath.Join(dir, "contents")
	require.NoError(t, os.Mkdir(root, 0o755))

	prev := logging.Global()
	t.Cleanup(func() { logging.SetGlobal(prev) })

	return root, []string{
		"--root", root,
		"--config", filepath.Join(dir, "missing.yaml"),
		"--log-level", "error",
	}
}

func run(t *testing.T, stdin string, flags []string, args ...string) (string, error) {
	t.Helper()
	return executeCommand(createTestRootCmd(), stdin, append(flags, args...)...)
}

func TestRootCommand_Help(t *testing.T) {
	stdout, err := executeCommand(createTestRootCmd(), "", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "virtual paths")
	for _, sub := range []string{"resolve", "read", "write", "read-notebook", "write-notebook", "cp", "metrics"} {
		assert.Contains(t, stdout, sub)
	}
}

func TestResolveCommand(t *testing.T) {
	root, flags := setupRoot(t)

	stdout, err := run(t, "", flags, "resolve", "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b.txt"), strings.TrimSpace(stdout))
}

func TestResolveCommand_JSON(t *testing.T) {
	root, flags := setupRoot(t)

	stdout, err := run(t, "", flags, "--json", "resolve", "x.txt")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "x.txt", got["path"])
	assert.Equal(t, filepath.Join(root, "x.txt"), got["real_path"])
}

func TestResolveCommand_OutOfRoot(t *testing.T) {
	_, flags := setupRoot(t)

	_, err := run(t, "", flags, "resolve", "../escape.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrOutOfRoot)
}

func TestWriteThenRead_Text(t *testing.T) {
	root, flags := setupRoot(t)

	stdout, err := run(t, "hello\n", flags, "write", "notes.txt")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote notes.txt")

	data, err := os.ReadFile(filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	stdout, err = run(t, "", flags, "read", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", stdout)
}

func TestWriteThenRead_Base64(t *testing.T) {
	root, flags := setupRoot(t)
	raw := []byte{0xff, 0x00, 0xfe}
	encoded := base64.StdEncoding.EncodeToString(raw)

	_, err := run(t, encoded, flags, "write", "--format", "base64", "blob.bin")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "blob.bin"))
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	stdout, err := run(t, "", flags, "--json", "read", "blob.bin")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "base64", got["format"])
	assert.Equal(t, encoded, got["content"])
}

func TestWriteCommand_FromFile(t *testing.T) {
	root, flags := setupRoot(t)
	src := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(src, []byte("from file"), 0o644))

	_, err := run(t, "", flags, "write", "--from", src, "out.txt")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from file", string(data))
}

func TestWriteCommand_BadFormat(t *testing.T) {
	root, flags := setupRoot(t)

	_, err := run(t, "data", flags, "write", "--format", "hex", "out.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrBadFormat)

	_, statErr := os.Stat(filepath.Join(root, "out.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadCommand_TextHintOnBinary(t *testing.T) {
	root, flags := setupRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte{0xff, 0xfe}, 0o644))

	_, err := run(t, "", flags, "read", "--format", "text", "blob.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrNotUTF8)
}

func TestReadCommand_Directory(t *testing.T) {
	root, flags := setupRoot(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	_, err := run(t, "", flags, "read", "sub")
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrNotAFile)
}

const sampleNotebook = `{
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": "# Title"},
  {"cell_type": "code", "metadata": {}, "source": ["x = 1\n", "x"], "outputs": [], "execution_count": null}
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func TestNotebookCommands(t *testing.T) {
	root, flags := setupRoot(t)

	stdout, err := run(t, sampleNotebook, flags, "write-notebook", "nb.ipynb")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 cells")

	_, err = os.Stat(filepath.Join(root, "nb.ipynb"))
	require.NoError(t, err)

	stdout, err = run(t, "", flags, "read-notebook", "nb.ipynb")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Format: 4.5")
	assert.Contains(t, stdout, "Cells: 2 (code 1, markdown 1, raw 0)")
}

func TestWriteNotebookCommand_InvalidInput(t *testing.T) {
	root, flags := setupRoot(t)

	_, err := run(t, "not json", flags, "write-notebook", "nb.ipynb")
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrUnreadableDocument)

	_, statErr := os.Stat(filepath.Join(root, "nb.ipynb"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadNotebookCommand_Unreadable(t *testing.T) {
	root, flags := setupRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.ipynb"), []byte("{"), 0o644))

	_, err := run(t, "", flags, "read-notebook", "bad.ipynb")
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrUnreadableDocument)
	assert.Contains(t, err.Error(), "bad.ipynb")
	assert.NotContains(t, err.Error(), root)
}

func TestCopyCommand(t *testing.T) {
	root, flags := setupRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("copy me"), 0o640))

	stdout, err := run(t, "", flags, "cp", "a.txt", "b.txt")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Copied a.txt to b.txt")

	data, err := os.ReadFile(filepath.Join(root, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "copy me", string(data))
}

func TestCopyCommand_DestinationOutOfRoot(t *testing.T) {
	root, flags := setupRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	_, err := run(t, "", flags, "cp", "a.txt", "../../b.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrOutOfRoot)
}

func TestMissingRoot(t *testing.T) {
	dir := t.TempDir()
	prev := logging.Global()
	t.Cleanup(func() { logging.SetGlobal(prev) })

	_, err := executeCommand(createTestRootCmd(), "",
		"--root", filepath.Join(dir, "nope"),
		"--config", filepath.Join(dir, "missing.yaml"),
		"resolve", "a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content root")
}

func TestConfigFileRoot(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "from-config")
	require.NoError(t, os.Mkdir(root, 0o755))
	cfgPath := filepath.Join(dir, "vfsroot.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("root_dir: "+root+"\nlogging:\n  level: error\n  format: text\n"), 0o644))

	prev := logging.Global()
	t.Cleanup(func() { logging.SetGlobal(prev) })

	stdout, err := executeCommand(createTestRootCmd(), "", "--config", cfgPath, "resolve", "f.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "f.txt"), strings.TrimSpace(stdout))
}

func TestInvalidLogLevel(t *testing.T) {
	_, flags := setupRoot(t)
	flags[len(flags)-1] = "loud"

	_, err := run(t, "", flags, "resolve", "a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestMetricsCommand_HelpScopesCounters(t *testing.T) {
	stdout, err := executeCommand(createTestRootCmd(), "", "metrics", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "vfsroot_atomic_write_total")
	assert.Contains(t, stdout, "Counters only reflect operations performed by the process")
	assert.Contains(t, stdout, "metrics.Default()")
}
