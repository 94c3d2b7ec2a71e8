// pkg/source/source_test.go
package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSourceReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.txt")
	require.NoError(t, os.WriteFile(path, []byte("|H|Customer_Name\r\n|D|Alex\n"), 0o644))

	src := NewFileSource(path)
	assert.Equal(t, path, src.Name())

	lines, err := src.ReadLines(context.Background())
	require.NoError(t, err)

	// Scanner strips both \n and \r\n endings
	require.Len(t, lines, 2)
	assert.Equal(t, Line{Number: 1, Text: "|H|Customer_Name"}, lines[0])
	assert.Equal(t, Line{Number: 2, Text: "|D|Alex"}, lines[1])
}

func TestFileSourceReadLines_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.txt"))

	_, err := src.ReadLines(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open source file")
}

func TestFileSourceReadLines_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.txt")
	require.NoError(t, os.WriteFile(path, []byte("|H|Customer_Name\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSource(path).ReadLines(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
