package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSaveAndRemove(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := m.Save(strings.NewReader("jpeg-bytes"), "Church.jpg")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	// No leftover partial file
	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))

	m.Remove(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine
	m.Remove(path)
	m.Remove("")
}

func TestManagerFlattensSlashes(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	path := m.PathFor("a/b/../../etc/passwd.jpg")
	assert.Equal(t, dir, filepath.Dir(path))
	assert.NotContains(t, filepath.Base(path), "/")
}

func TestManagerSaveOverwrites(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = m.Save(strings.NewReader("old"), "A.jpg")
	require.NoError(t, err)
	path, err := m.Save(strings.NewReader("new"), "A.jpg")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestManagerEphemeralDir(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	info, err := os.Stat(m.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, m.Close())
	_, err = os.Stat(m.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestManagerExplicitDirSurvivesClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
