package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilfredor/addwikigeolocation/pkg/commons"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
)

func floatPtr(f float64) *float64 {
	return &f
}

func sampleState() *ScanState {
	state := NewScanState()
	state.AddNeedsExif(commons.UploadInfo{
		Title:     "Church.jpg",
		HasCoords: true,
		Lat:       floatPtr(59.91),
		Lon:       floatPtr(10.75),
		URL:       "https://upload.example/Church.jpg",
	})
	state.AddNeedsTemplate("Bridge.jpg")
	state.Continue = map[string]string{"lecontinue": "20240101000000|123", "continue": "-||"}
	return state
}

func TestStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gps_scan.json")
	store := NewStore(path, logger.NewNop())

	require.NoError(t, store.Save(sampleState()))

	loaded, err := store.Load()
	require.NoError(t, err)

	require.Len(t, loaded.NeedsExif, 1)
	assert.Equal(t, "Church.jpg", loaded.NeedsExif[0].Title)
	assert.True(t, loaded.NeedsExif[0].HasCoords)
	require.NotNil(t, loaded.NeedsExif[0].Lat)
	assert.InDelta(t, 59.91, *loaded.NeedsExif[0].Lat, 1e-9)
	assert.Equal(t, []string{"Bridge.jpg"}, loaded.NeedsTemplate)
	assert.Equal(t, "20240101000000|123", loaded.Continue["lecontinue"])
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"), logger.NewNop())

	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.NeedsExif)
	assert.Empty(t, state.NeedsTemplate)
	assert.Nil(t, state.Continue)
}

func TestStoreLoadCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"truncated json", []byte("{not json")},
		{"empty file", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "gps_scan.json")
			require.NoError(t, os.WriteFile(path, tt.content, 0644))

			store := NewStore(path, logger.NewNop())
			state, err := store.Load()
			require.NoError(t, err)
			assert.Empty(t, state.NeedsExif)
			assert.Empty(t, state.NeedsTemplate)
			assert.Nil(t, state.Continue)

			// The broken file must have been moved aside, not destroyed
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			var backups []string
			for _, e := range entries {
				if e.Name() != "gps_scan.json" {
					backups = append(backups, e.Name())
				}
			}
			require.Len(t, backups, 1)
			assert.Contains(t, backups[0], "gps_scan.json.corrupt.")

			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestStoreLoadIgnoresCrashedSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gps_scan.json")
	store := NewStore(path, logger.NewNop())

	require.NoError(t, store.Save(sampleState()))

	// A crash mid-save leaves a half-written temp file beside the
	// checkpoint, never over it
	stray := filepath.Join(dir, "gps_scan.json.tmp-123456")
	require.NoError(t, os.WriteFile(stray, []byte(`{"needs_exif": [{"ti`), 0644))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.NeedsExif, 1)
	assert.Equal(t, "Church.jpg", loaded.NeedsExif[0].Title)
	assert.Equal(t, []string{"Bridge.jpg"}, loaded.NeedsTemplate)

	// The stray temp file did not get quarantined or promoted
	_, err = os.Stat(stray)
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestStoreSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gps_scan.json")
	store := NewStore(path, logger.NewNop())

	require.NoError(t, store.Save(sampleState()))

	second := NewScanState()
	second.AddNeedsTemplate("Other.jpg")
	require.NoError(t, store.Save(second))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.NeedsExif)
	assert.Equal(t, []string{"Other.jpg"}, loaded.NeedsTemplate)

	// No stray temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "gps_scan.json", entries[0].Name())
}

func TestStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gps_scan.json")
	store := NewStore(path, logger.NewNop())

	require.NoError(t, store.Save(NewScanState()))
	assert.True(t, store.Exists())

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())

	// Deleting a missing file is not an error
	require.NoError(t, store.Delete())
}

func TestScanStateDedup(t *testing.T) {
	state := NewScanState()

	assert.True(t, state.AddNeedsExif(commons.UploadInfo{Title: "A.jpg", HasCoords: true}))
	assert.False(t, state.AddNeedsExif(commons.UploadInfo{Title: "A.jpg", HasCoords: true}))
	assert.Len(t, state.NeedsExif, 1)

	assert.True(t, state.AddNeedsTemplate("B.jpg"))
	assert.False(t, state.AddNeedsTemplate("B.jpg"))
	assert.Len(t, state.NeedsTemplate, 1)

	seen := state.SeenTitles()
	assert.True(t, seen["A.jpg"])
	assert.True(t, seen["B.jpg"])
	assert.False(t, seen["C.jpg"])
}

func TestScanStateRemoveNeedsExif(t *testing.T) {
	state := NewScanState()
	state.AddNeedsExif(commons.UploadInfo{Title: "A.jpg", HasCoords: true})
	state.AddNeedsExif(commons.UploadInfo{Title: "B.jpg", HasCoords: true})

	assert.True(t, state.RemoveNeedsExif("A.jpg"))
	assert.False(t, state.RemoveNeedsExif("A.jpg"))
	require.Len(t, state.NeedsExif, 1)
	assert.Equal(t, "B.jpg", state.NeedsExif[0].Title)
}

func TestScanStateDropStaleEntries(t *testing.T) {
	state := NewScanState()
	state.AddNeedsExif(commons.UploadInfo{Title: "Fresh.jpg", HasCoords: true})
	state.AddNeedsExif(commons.UploadInfo{Title: "Stale.jpg", HasCoords: false})

	assert.Equal(t, 1, state.DropStaleEntries())
	require.Len(t, state.NeedsExif, 1)
	assert.Equal(t, "Fresh.jpg", state.NeedsExif[0].Title)
}

func TestScanStateScanComplete(t *testing.T) {
	state := NewScanState()
	assert.False(t, state.ScanComplete())

	state.AddNeedsExif(commons.UploadInfo{Title: "A.jpg", HasCoords: true})
	assert.False(t, state.ScanComplete())

	state.AddNeedsTemplate("B.jpg")
	assert.True(t, state.ScanComplete())

	state.Continue = map[string]string{"lecontinue": "x"}
	assert.False(t, state.ScanComplete())
}
