package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestQueryWithoutBuildErrors(t *testing.T) {
	ix := newTestIndex(t)

	_, err := ix.Query(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestBuildAndKeywordQuery(t *testing.T) {
	ix := newTestIndex(t)

	files := map[string]string{
		"auth/login.go":  "func Login(user, pass string) error {\n\treturn checkCredentials(user, pass)\n}",
		"billing/pay.go": "func Charge(amount int) error {\n\treturn gateway.Charge(amount)\n}",
	}
	n, err := ix.Build(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out, err := ix.Query(context.Background(), "login credentials", 5)
	require.NoError(t, err)
	assert.Contains(t, out, "auth/login.go")
	assert.Contains(t, out, "checkCredentials")
	assert.NotContains(t, out, "billing/pay.go")
}

func TestRebuildReplacesPreviousContents(t *testing.T) {
	ix := newTestIndex(t)

	_, err := ix.Build(context.Background(), map[string]string{"old.go": "legacy handler"})
	require.NoError(t, err)

	_, err = ix.Build(context.Background(), map[string]string{"new.go": "fresh handler"})
	require.NoError(t, err)

	out, err := ix.Query(context.Background(), "handler", 5)
	require.NoError(t, err)
	assert.Contains(t, out, "new.go")
	assert.NotContains(t, out, "old.go")
}

func TestStaleNoteAppearsAfterMarkStale(t *testing.T) {
	ix := newTestIndex(t)

	_, err := ix.Build(context.Background(), map[string]string{"a.go": "package a"})
	require.NoError(t, err)

	ix.MarkStale()
	out, err := ix.Query(context.Background(), "package", 5)
	require.NoError(t, err)
	assert.Contains(t, out, "stale")

	// A rebuild clears the flag.
	_, err = ix.Build(context.Background(), map[string]string{"a.go": "package a"})
	require.NoError(t, err)
	out, err = ix.Query(context.Background(), "package", 5)
	require.NoError(t, err)
	assert.NotContains(t, out, "stale")
}

func TestChunkFileOverlappingWindows(t *testing.T) {
	var lines string
	for i := 0; i < 130; i++ {
		lines += "line\n"
	}
	chunks := chunkFile("big.go", lines)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, chunkLines, chunks[0].EndLine)
	// Windows advance by chunkLines - chunkOverlap.
	assert.Equal(t, chunkLines-chunkOverlap+1, chunks[1].StartLine)
	last := chunks[len(chunks)-1]
	assert.Equal(t, 131, last.EndLine)
}

func TestChunkFileSkipsBlankWindows(t *testing.T) {
	assert.Empty(t, chunkFile("empty.go", "\n\n\n"))
}
