package processor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilfredor/addwikigeolocation/pkg/checkpoint"
	"github.com/wilfredor/addwikigeolocation/pkg/commons"
	"github.com/wilfredor/addwikigeolocation/pkg/errors"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
	"github.com/wilfredor/addwikigeolocation/pkg/ratelimit"
)

// fakeAction records applied titles and fails on request
type fakeAction struct {
	applied []string
	failOn  map[string]error
}

func (a *fakeAction) Apply(u commons.UploadInfo) error {
	if err, ok := a.failOn[u.Title]; ok {
		return err
	}
	a.applied = append(a.applied, u.Title)
	return nil
}

func floatPtr(f float64) *float64 {
	return &f
}

func queued(titles ...string) *checkpoint.ScanState {
	state := checkpoint.NewScanState()
	for _, title := range titles {
		state.AddNeedsExif(commons.UploadInfo{
			Title:     title,
			HasCoords: true,
			Lat:       floatPtr(40.4),
			Lon:       floatPtr(-3.7),
		})
	}
	return state
}

func newTestProcessor(t *testing.T, action Action, maxEdits int) (*Processor, *checkpoint.Store) {
	t.Helper()
	store := checkpoint.NewStore(filepath.Join(t.TempDir(), "state.json"), logger.NewNop())

	pacer := ratelimit.NewPacer(1000, 0)
	p := New(action, store, pacer, maxEdits, logger.NewNop())
	// Keep queue order for deterministic assertions
	p.shuffle = func(n int, swap func(i, j int)) {}
	return p, store
}

func TestProcessorDrainsQueue(t *testing.T) {
	action := &fakeAction{}
	p, store := newTestProcessor(t, action, 0)
	state := queued("A.jpg", "B.jpg", "C.jpg")

	report, err := p.Run(state)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Updated)
	assert.Equal(t, 0, report.Remaining)
	assert.Equal(t, []string{"A.jpg", "B.jpg", "C.jpg"}, action.applied)
	assert.Empty(t, state.NeedsExif)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.NeedsExif)
}

func TestProcessorHonorsEditBudget(t *testing.T) {
	action := &fakeAction{}
	p, _ := newTestProcessor(t, action, 1)
	state := queued("A.jpg", "B.jpg", "C.jpg", "D.jpg", "E.jpg")

	report, err := p.Run(state)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 4, report.Remaining)
	assert.Len(t, state.NeedsExif, 4)
}

func TestProcessorRevalidatesEntries(t *testing.T) {
	action := &fakeAction{}
	p, _ := newTestProcessor(t, action, 0)

	state := checkpoint.NewScanState()
	// Gained GPS EXIF since it was queued
	state.AddNeedsExif(commons.UploadInfo{
		Title: "Gained.jpg", HasCoords: true, HasExifGPS: true,
		Lat: floatPtr(1), Lon: floatPtr(2),
	})
	// Lost its usable coordinates
	state.AddNeedsExif(commons.UploadInfo{Title: "Lost.jpg", HasCoords: true})
	// Out-of-range coordinates
	state.AddNeedsExif(commons.UploadInfo{
		Title: "Bogus.jpg", HasCoords: true,
		Lat: floatPtr(91), Lon: floatPtr(0),
	})
	state.AddNeedsExif(commons.UploadInfo{
		Title: "Good.jpg", HasCoords: true,
		Lat: floatPtr(1), Lon: floatPtr(2),
	})

	report, err := p.Run(state)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.SkippedHasGPS)
	assert.Equal(t, 2, report.SkippedNoGPS)
	assert.Equal(t, []string{"Good.jpg"}, action.applied)
	assert.Empty(t, state.NeedsExif)
}

func TestProcessorRetiresFailedItems(t *testing.T) {
	action := &fakeAction{
		failOn: map[string]error{
			"Bad.jpg": errors.New(errors.ErrorTypeProcessing, "broken jpeg", 0),
		},
	}
	p, _ := newTestProcessor(t, action, 0)
	state := queued("Bad.jpg", "Good.jpg")

	report, err := p.Run(state)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Updated)
	// The failed item is retired too: a rescan re-queues it if it
	// still qualifies
	assert.Empty(t, state.NeedsExif)
}

func TestProcessorStopsOnAuthError(t *testing.T) {
	action := &fakeAction{
		failOn: map[string]error{
			"A.jpg": errors.New(errors.ErrorTypeAuth, "session expired", 401),
		},
	}
	p, _ := newTestProcessor(t, action, 0)
	state := queued("A.jpg", "B.jpg")

	report, err := p.Run(state)
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Equal(t, 0, report.Updated)
	// Nothing was retired for the aborted item
	assert.Len(t, state.NeedsExif, 2)
}

func TestProcessorShufflesQueue(t *testing.T) {
	action := &fakeAction{}
	store := checkpoint.NewStore(filepath.Join(t.TempDir(), "state.json"), logger.NewNop())
	p := New(action, store, ratelimit.NewPacer(1000, 0), 0, logger.NewNop())

	var shuffled int
	p.shuffle = func(n int, swap func(i, j int)) {
		shuffled = n
		// Reverse deterministically
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	}

	state := queued("A.jpg", "B.jpg", "C.jpg")
	_, err := p.Run(state)
	require.NoError(t, err)

	assert.Equal(t, 3, shuffled)
	assert.Equal(t, []string{"C.jpg", "B.jpg", "A.jpg"}, action.applied)
}

func TestProcessorPacesOnlyMutations(t *testing.T) {
	action := &fakeAction{}
	store := checkpoint.NewStore(filepath.Join(t.TempDir(), "state.json"), logger.NewNop())

	pacer := ratelimit.NewPacer(1000, 0)
	p := New(action, store, pacer, 0, logger.NewNop())
	p.shuffle = func(n int, swap func(i, j int)) {}

	state := checkpoint.NewScanState()
	state.AddNeedsExif(commons.UploadInfo{Title: "Skip.jpg", HasCoords: true, HasExifGPS: true})
	state.AddNeedsExif(commons.UploadInfo{
		Title: "Edit.jpg", HasCoords: true,
		Lat: floatPtr(1), Lon: floatPtr(2),
	})

	_, err := p.Run(state)
	require.NoError(t, err)

	// Only the real edit consumed rate budget
	assert.Equal(t, 1, pacer.Window().Len())
}
