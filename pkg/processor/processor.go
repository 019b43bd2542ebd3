package processor

import (
	"math/rand"
	"time"

	"github.com/wilfredor/addwikigeolocation/pkg/checkpoint"
	"github.com/wilfredor/addwikigeolocation/pkg/commons"
	"github.com/wilfredor/addwikigeolocation/pkg/errors"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
	"github.com/wilfredor/addwikigeolocation/pkg/ratelimit"
)

// Action performs the mutation for one queued file
type Action interface {
	Apply(u commons.UploadInfo) error
}

// Report summarizes one processing run
type Report struct {
	Updated       int
	SkippedHasGPS int
	SkippedNoGPS  int
	Errors        int
	Remaining     int
}

// Processor drains the needs-EXIF queue: shuffle, re-validate each
// entry against its stored flags, apply the action, and retire the
// entry. The checkpoint is saved after every item so the queue only
// ever shrinks, never replays a finished edit.
type Processor struct {
	action   Action
	store    *checkpoint.Store
	pacer    *ratelimit.Pacer
	maxEdits int
	logger   logger.Logger

	shuffle func(n int, swap func(i, j int))
}

// New creates a Processor. maxEdits <= 0 means no budget.
func New(action Action, store *checkpoint.Store, pacer *ratelimit.Pacer, maxEdits int, log logger.Logger) *Processor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Processor{
		action:   action,
		store:    store,
		pacer:    pacer,
		maxEdits: maxEdits,
		logger:   log,
		shuffle:  rand.Shuffle,
	}
}

// Run processes queued entries until the queue is empty or the edit
// budget is spent. Items left over stay queued for the next run.
func (p *Processor) Run(state *checkpoint.ScanState) (Report, error) {
	var report Report

	pending := make([]commons.UploadInfo, len(state.NeedsExif))
	copy(pending, state.NeedsExif)
	p.shuffle(len(pending), func(i, j int) {
		pending[i], pending[j] = pending[j], pending[i]
	})

	p.logger.InfoWithFields("processing queue", map[string]interface{}{
		"queued":    len(pending),
		"max_edits": p.maxEdits,
	})

	start := time.Now()

	for _, item := range pending {
		if p.maxEdits > 0 && report.Updated >= p.maxEdits {
			p.logger.InfoWithFields("edit budget reached", map[string]interface{}{
				"updated": report.Updated,
			})
			break
		}

		// Re-validate against the flags captured at scan time. Entries
		// that no longer need the edit are retired without touching
		// the wiki and without consuming rate budget.
		if item.HasExifGPS {
			report.SkippedHasGPS++
			if err := p.retire(state, item.Title); err != nil {
				return report, err
			}
			continue
		}
		if !commons.ValidCoordinates(item.Lat, item.Lon) {
			report.SkippedNoGPS++
			if err := p.retire(state, item.Title); err != nil {
				return report, err
			}
			continue
		}

		if err := p.action.Apply(item); err != nil {
			if errors.IsAuth(err) {
				return report, err
			}
			report.Errors++
			p.logger.WithError(err).WithField("title", item.Title).Error("edit failed")
		} else {
			report.Updated++
			p.logger.WithField("title", item.Title).Info("geotag written")
		}

		// Retire the entry either way. A failed edit is not replayed
		// blindly on the next run; a rescan re-queues it if the file
		// still qualifies.
		if err := p.retire(state, item.Title); err != nil {
			return report, err
		}

		p.pacer.Pause()
	}

	report.Remaining = len(state.NeedsExif)

	p.logger.InfoWithFields("processing finished", map[string]interface{}{
		"updated":         report.Updated,
		"skipped_has_gps": report.SkippedHasGPS,
		"skipped_no_gps":  report.SkippedNoGPS,
		"errors":          report.Errors,
		"remaining":       report.Remaining,
		"elapsed":         time.Since(start).Round(time.Second).String(),
	})
	return report, nil
}

// retire removes a title from the queue and persists immediately. A
// save failure here is fatal: continuing would risk replaying the edit.
func (p *Processor) retire(state *checkpoint.ScanState, title string) error {
	state.RemoveNeedsExif(title)
	if err := p.store.Save(state); err != nil {
		p.logger.WithError(err).Error("checkpoint save failed, stopping")
		return err
	}
	return nil
}
