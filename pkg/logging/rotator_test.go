package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "silk.log")
	rf := NewRotatingFile(logPath, 1024, 3)

	data := []byte("启动完成\n")
	for i := 0; i < 10; i++ {
		n, err := rf.Write(data)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)
	}
	require.NoError(t, rf.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(string(data), 10), string(content))
	assert.NoFileExists(t, logPath+".1")
}

func TestRotatingFile_KeepsMaxBackups(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "silk.log")
	rf := NewRotatingFile(logPath, 20, 2)

	for i := 0; i < 6; i++ {
		_, err := rf.Write([]byte(strings.Repeat("x", 15) + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, rf.Close())

	assert.FileExists(t, logPath)
	assert.FileExists(t, logPath+".1")
	assert.FileExists(t, logPath+".2")
	assert.NoFileExists(t, logPath+".3")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRotatingFile_NoBackups(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "silk.log")
	rf := NewRotatingFile(logPath, 10, 0)

	_, err := rf.Write([]byte("first line\n"))
	require.NoError(t, err)
	_, err = rf.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, rf.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
