package world

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestListFilesSkipsHiddenAndVendored(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":                 "package main",
		"internal/util.go":        "package internal",
		".git/config":             "ref",
		".scout/index.db":         "blob",
		"node_modules/x/pkg.js":   "junk",
		".github/workflows/x.yml": "on: push",
	})

	ws, err := NewWorkspace(root)
	require.NoError(t, err)
	defer ws.Close()

	files, err := ws.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{".github/workflows/x.yml", "internal/util.go", "main.go"}, files)
}

func TestReadFileRejectsEscapes(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	_, err = ws.ReadFile(context.Background(), "../outside.txt")
	assert.ErrorContains(t, err, "escapes the workspace")

	_, err = ws.ReadFile(context.Background(), "/etc/passwd")
	assert.ErrorContains(t, err, "escapes the workspace")
}

func TestReadFileTruncatesLargeFiles(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, maxFileBytes+100)
	for i := range big {
		big[i] = 'x'
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), big, 0o644))

	ws, err := NewWorkspace(root)
	require.NoError(t, err)
	defer ws.Close()

	content, err := ws.ReadFile(context.Background(), "big.txt")
	require.NoError(t, err)
	assert.Contains(t, content, "(truncated)")
	assert.Less(t, len(content), len(big))
}

func TestSnapshotReadsAllFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go": "package a",
		"b.go": "package b",
	})

	ws, err := NewWorkspace(root)
	require.NoError(t, err)
	defer ws.Close()

	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.go": "package a", "b.go": "package b"}, snap)
}
