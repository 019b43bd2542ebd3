package scanner

import (
	"strings"
	"time"

	"github.com/wilfredor/addwikigeolocation/pkg/checkpoint"
	"github.com/wilfredor/addwikigeolocation/pkg/commons"
	"github.com/wilfredor/addwikigeolocation/pkg/errors"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
)

// Gateway is the slice of the Commons client the scanner needs
type Gateway interface {
	ListUploads(username string, cont map[string]string) ([]string, map[string]string, error)
	ListCategoryMembers(category string, cont map[string]string) ([]commons.CategoryMember, map[string]string, error)
	FetchPagesBatch(titles []string) ([]commons.UploadInfo, error)
}

// Options configures a scan
type Options struct {
	// AuthorFilter keeps only files whose author contains this string
	// (case-insensitive). Empty disables the filter.
	AuthorFilter string
	// BatchSize is the number of titles per detail fetch, capped at
	// the API's limit
	BatchSize int
	// PagePause is the pause between listing pages
	PagePause time.Duration
}

// Scanner crawls a listing scope, classifies every new file, and grows
// the durable work queues. The checkpoint is saved after each fully
// processed page, before the next one is fetched, so a crash or a
// transient fetch error never loses completed pages.
type Scanner struct {
	gateway Gateway
	store   *checkpoint.Store
	opts    Options
	logger  logger.Logger

	pause func(time.Duration)
}

// New creates a Scanner
func New(gateway Gateway, store *checkpoint.Store, opts Options, log logger.Logger) *Scanner {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BatchSize <= 0 || opts.BatchSize > commons.MaxBatchTitles {
		opts.BatchSize = commons.MaxBatchTitles
	}
	return &Scanner{
		gateway: gateway,
		store:   store,
		opts:    opts,
		logger:  log,
		pause:   time.Sleep,
	}
}

// ScanUserUploads crawls a user's upload log, resuming from the
// state's continuation when present
func (s *Scanner) ScanUserUploads(username string, state *checkpoint.ScanState) error {
	dropped := state.DropStaleEntries()
	if dropped > 0 {
		s.logger.WarnWithFields("dropped stale queue entries without coordinates", map[string]interface{}{
			"dropped": dropped,
		})
	}
	if state.ScanComplete() {
		s.logger.Info("previous scan already complete, skipping crawl")
		return nil
	}

	s.logger.InfoWithFields("scanning uploads", map[string]interface{}{
		"username": username,
		"resuming": state.Continue != nil,
		"queued":   len(state.NeedsExif),
		"flagged":  len(state.NeedsTemplate),
	})

	seen := state.SeenTitles()
	pages := 0

	for {
		titles, next, err := s.gateway.ListUploads(username, state.Continue)
		if err != nil {
			if errors.IsAuth(err) {
				s.logger.WithError(err).Error("listing rejected, aborting scan")
				return err
			}
			s.logger.WithError(err).WithField("pages_done", pages).Warn("scan pass aborted, checkpoint holds completed pages")
			return err
		}

		fresh := make([]string, 0, len(titles))
		for _, title := range titles {
			if !seen[title] {
				fresh = append(fresh, title)
				seen[title] = true
			}
		}

		if err := s.classifyAndRoute(fresh, state); err != nil {
			return err
		}

		state.Continue = next
		if err := s.store.Save(state); err != nil {
			return err
		}
		pages++

		if next == nil || len(titles) == 0 {
			break
		}
		s.pause(s.opts.PagePause)
	}

	s.logger.InfoWithFields("scan complete", map[string]interface{}{
		"username":       username,
		"pages":          pages,
		"needs_exif":     len(state.NeedsExif),
		"needs_template": len(state.NeedsTemplate),
	})
	return nil
}

// categoryItem is one pending node of the category walk
type categoryItem struct {
	name  string
	depth int
}

// ScanCategory walks a category subtree breadth-first down to
// maxDepth, classifying every file encountered. The walk itself keeps
// an explicit queue of (category, depth) pairs; recursion would make
// the depth limit awkward and the stack unbounded. Category walks do
// not persist a continuation: dedup against the queues makes a
// restarted walk cheap.
func (s *Scanner) ScanCategory(category string, maxDepth int, state *checkpoint.ScanState) error {
	dropped := state.DropStaleEntries()
	if dropped > 0 {
		s.logger.WarnWithFields("dropped stale queue entries without coordinates", map[string]interface{}{
			"dropped": dropped,
		})
	}

	s.logger.InfoWithFields("scanning category", map[string]interface{}{
		"category":  category,
		"max_depth": maxDepth,
	})

	seen := state.SeenTitles()
	visited := map[string]bool{category: true}
	queue := []categoryItem{{name: category, depth: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		var cont map[string]string
		for {
			members, next, err := s.gateway.ListCategoryMembers(item.name, cont)
			if err != nil {
				if errors.IsAuth(err) {
					s.logger.WithError(err).Error("listing rejected, aborting scan")
				}
				return err
			}

			var fresh []string
			for _, m := range members {
				switch {
				case m.IsCategory():
					if item.depth+1 <= maxDepth && !visited[m.Title] {
						visited[m.Title] = true
						queue = append(queue, categoryItem{name: m.Title, depth: item.depth + 1})
					}
				case m.IsFile():
					title := commons.StripFilePrefix(m.Title)
					if !seen[title] {
						seen[title] = true
						fresh = append(fresh, title)
					}
				}
			}

			if err := s.classifyAndRoute(fresh, state); err != nil {
				return err
			}
			if err := s.store.Save(state); err != nil {
				return err
			}

			if next == nil || len(members) == 0 {
				break
			}
			cont = next
			s.pause(s.opts.PagePause)
		}
	}

	s.logger.InfoWithFields("category scan complete", map[string]interface{}{
		"category":       category,
		"needs_exif":     len(state.NeedsExif),
		"needs_template": len(state.NeedsTemplate),
	})
	return nil
}

// ScanTitles classifies an explicit list of titles, replacing the
// current queues. Used for file-list runs where the operator names the
// exact candidates.
func (s *Scanner) ScanTitles(titles []string, state *checkpoint.ScanState) error {
	state.NeedsExif = nil
	state.NeedsTemplate = nil
	state.Continue = nil

	unique := make([]string, 0, len(titles))
	seen := make(map[string]bool, len(titles))
	for _, title := range titles {
		title = commons.StripFilePrefix(title)
		if title != "" && !seen[title] {
			seen[title] = true
			unique = append(unique, title)
		}
	}

	if err := s.classifyAndRoute(unique, state); err != nil {
		return err
	}
	return s.store.Save(state)
}

// classifyAndRoute fetches details for titles in batches and routes
// each file to its queue
func (s *Scanner) classifyAndRoute(titles []string, state *checkpoint.ScanState) error {
	for start := 0; start < len(titles); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(titles) {
			end = len(titles)
		}

		infos, err := s.gateway.FetchPagesBatch(titles[start:end])
		if err != nil {
			return err
		}

		for _, info := range infos {
			s.route(info, state)
		}
	}
	return nil
}

// route applies the classification trichotomy: files needing an EXIF
// edit, files needing a location template, and files that are either
// fully consistent or unresolvable, which are dropped.
func (s *Scanner) route(u commons.UploadInfo, state *checkpoint.ScanState) {
	if !s.eligible(u) {
		return
	}

	switch {
	case u.NeedsExifGPS():
		if state.AddNeedsExif(u) {
			s.logger.DebugWithFields("queued for EXIF edit", map[string]interface{}{
				"title": u.Title,
			})
		}
	case u.NeedsLocationTemplate():
		state.AddNeedsTemplate(u.Title)
	default:
		// Both signals present (already consistent) or neither
		// (unresolvable from current data). Dropped.
	}
}

// eligible applies the exclusion filters: JPEG only, no redirects,
// optional author substring match
func (s *Scanner) eligible(u commons.UploadInfo) bool {
	if u.Redirect {
		return false
	}
	if !commons.IsJPEG(u.Title) {
		return false
	}
	if s.opts.AuthorFilter != "" && u.Author != "" &&
		!strings.Contains(strings.ToLower(u.Author), strings.ToLower(s.opts.AuthorFilter)) {
		return false
	}
	return true
}
