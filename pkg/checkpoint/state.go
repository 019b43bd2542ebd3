package checkpoint

import (
	"github.com/wilfredor/addwikigeolocation/pkg/commons"
)

// ScanState is the durable crawl/queue aggregate. It is the sole unit
// of persistence: every mutation is followed by a full atomic save so a
// crash never loses more than the page or item in flight.
type ScanState struct {
	// NeedsExif holds files with page coordinates but no GPS EXIF tag,
	// ordered as discovered. No duplicate titles.
	NeedsExif []commons.UploadInfo `json:"needs_exif"`

	// NeedsTemplate holds titles of files with GPS EXIF but no page
	// coordinates. They need a location template edit, which a
	// different tool performs.
	NeedsTemplate []string `json:"needs_template"`

	// Continue is the opaque listing continuation. nil means the crawl
	// is complete or has not started.
	Continue map[string]string `json:"scan_continue,omitempty"`
}

// NewScanState returns an empty state
func NewScanState() *ScanState {
	return &ScanState{}
}

// SeenTitles returns the set of titles already routed to either queue
func (s *ScanState) SeenTitles() map[string]bool {
	seen := make(map[string]bool, len(s.NeedsExif)+len(s.NeedsTemplate))
	for _, u := range s.NeedsExif {
		seen[u.Title] = true
	}
	for _, t := range s.NeedsTemplate {
		seen[t] = true
	}
	return seen
}

// AddNeedsExif appends a file to the EXIF queue unless its title is
// already queued
func (s *ScanState) AddNeedsExif(u commons.UploadInfo) bool {
	for _, existing := range s.NeedsExif {
		if existing.Title == u.Title {
			return false
		}
	}
	s.NeedsExif = append(s.NeedsExif, u)
	return true
}

// AddNeedsTemplate records a title in the template queue unless already present
func (s *ScanState) AddNeedsTemplate(title string) bool {
	for _, existing := range s.NeedsTemplate {
		if existing == title {
			return false
		}
	}
	s.NeedsTemplate = append(s.NeedsTemplate, title)
	return true
}

// RemoveNeedsExif retires a title from the EXIF queue. Returns whether
// anything was removed.
func (s *ScanState) RemoveNeedsExif(title string) bool {
	for i, u := range s.NeedsExif {
		if u.Title == title {
			s.NeedsExif = append(s.NeedsExif[:i], s.NeedsExif[i+1:]...)
			return true
		}
	}
	return false
}

// DropStaleEntries removes queued entries that no longer carry
// coordinates. Queued records can go stale between sessions when the
// file page changes underneath the queue.
func (s *ScanState) DropStaleEntries() int {
	kept := s.NeedsExif[:0]
	dropped := 0
	for _, u := range s.NeedsExif {
		if u.HasCoords {
			kept = append(kept, u)
		} else {
			dropped++
		}
	}
	s.NeedsExif = kept
	return dropped
}

// ScanComplete reports whether a previous crawl finished: both queues
// were populated and no continuation is pending
func (s *ScanState) ScanComplete() bool {
	return len(s.NeedsExif) > 0 && len(s.NeedsTemplate) > 0 && s.Continue == nil
}
