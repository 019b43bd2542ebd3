package geotag

import (
	"io"

	"github.com/wilfredor/addwikigeolocation/pkg/commons"
	"github.com/wilfredor/addwikigeolocation/pkg/errors"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
	"github.com/wilfredor/addwikigeolocation/pkg/storage"
)

// Client is the slice of the Commons client the action needs
type Client interface {
	Download(fileURL string) (io.ReadCloser, error)
	UploadFile(title, path string) error
}

// Action downloads a file, writes the page coordinates into its EXIF
// GPS block, and optionally re-uploads it. Applying it twice with the
// same coordinates yields the same file, so at-least-once delivery is
// safe.
type Action struct {
	client Client
	files  *storage.Manager
	upload bool
	logger logger.Logger
}

// NewAction creates the real mutation action
func NewAction(client Client, files *storage.Manager, upload bool, log logger.Logger) *Action {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Action{client: client, files: files, upload: upload, logger: log}
}

// Apply performs the edit for one file
func (a *Action) Apply(u commons.UploadInfo) error {
	if !commons.ValidCoordinates(u.Lat, u.Lon) {
		return errors.Newf(errors.ErrorTypeProcessing, 0, "invalid coordinates for %s", u.Title)
	}
	if u.URL == "" {
		return errors.Newf(errors.ErrorTypeProcessing, 0, "no download URL for %s", u.Title)
	}

	body, err := a.client.Download(u.URL)
	if err != nil {
		return err
	}
	path, err := a.files.Save(body, u.Title)
	body.Close()
	if err != nil {
		return err
	}
	defer a.files.Remove(path)

	if err := WriteGPS(path, *u.Lat, *u.Lon); err != nil {
		return err
	}

	a.logger.DebugWithFields("wrote GPS EXIF", map[string]interface{}{
		"title": u.Title,
		"lat":   *u.Lat,
		"lon":   *u.Lon,
	})

	if a.upload {
		if err := a.client.UploadFile(u.Title, path); err != nil {
			return err
		}
	}
	return nil
}

// DryRunAction previews what the real action would do without touching
// anything remote or local
type DryRunAction struct {
	logger logger.Logger
}

// NewDryRunAction creates the preview action
func NewDryRunAction(log logger.Logger) *DryRunAction {
	if log == nil {
		log = logger.GetLogger()
	}
	return &DryRunAction{logger: log}
}

// Apply logs the edit that would have happened
func (a *DryRunAction) Apply(u commons.UploadInfo) error {
	fields := map[string]interface{}{
		"title": u.Title,
	}
	if u.Lat != nil && u.Lon != nil {
		fields["lat"] = *u.Lat
		fields["lon"] = *u.Lon
	}
	a.logger.InfoWithFields("dry run: would write GPS EXIF", fields)
	return nil
}
