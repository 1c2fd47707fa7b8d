package sysfs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteStringRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node")
	ctx := context.Background()

	require.NoError(t, WriteString(ctx, path, "hello"))
	got, err := ReadString(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestReadStringTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node")
	require.NoError(t, WriteString(context.Background(), path, "  42  \n"))

	got, err := ReadString(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestReadIntRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node")
	require.NoError(t, WriteInt(context.Background(), path, 255))

	got, err := ReadInt(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, int64(255), got)
}

func TestReadIntRejectsNonInteger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node")
	require.NoError(t, WriteString(context.Background(), path, "not-a-number"))

	_, err := ReadInt(context.Background(), path)
	assert.Error(t, err)
}

func TestReadStringMissingFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	_, err := ReadString(context.Background(), path)
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node")
	assert.False(t, Exists(path))

	require.NoError(t, WriteString(context.Background(), path, "x"))
	assert.True(t, Exists(path))
}
