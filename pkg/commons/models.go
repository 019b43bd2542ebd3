package commons

import (
	"strconv"
	"strings"
)

// UploadInfo describes one candidate file: a Commons upload together
// with the two location signals that drive classification. A file is
// eligible for an EXIF edit when the page carries coordinates but the
// file itself has no GPS tag.
type UploadInfo struct {
	Title      string   `json:"title"`
	HasCoords  bool     `json:"has_coords"`
	HasExifGPS bool     `json:"has_exif_gps"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	URL        string   `json:"url,omitempty"`
	Author     string   `json:"author,omitempty"`

	// Redirect marks redirect pages, which are never edited
	Redirect bool `json:"-"`
}

// NeedsExifGPS reports whether the file should receive a GPS EXIF tag
func (u UploadInfo) NeedsExifGPS() bool {
	return u.HasCoords && !u.HasExifGPS
}

// NeedsLocationTemplate reports whether the file page should receive a
// location template instead (handled by a separate tool)
func (u UploadInfo) NeedsLocationTemplate() bool {
	return u.HasExifGPS && !u.HasCoords
}

// ValidCoordinates reports whether lat/lon are both present and within
// the WGS84 range
func ValidCoordinates(lat, lon *float64) bool {
	return lat != nil && lon != nil &&
		*lat >= -90 && *lat <= 90 &&
		*lon >= -180 && *lon <= 180
}

// IsJPEG reports whether the title names a JPEG file
func IsJPEG(title string) bool {
	lower := strings.ToLower(title)
	return strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg")
}

// StripFilePrefix removes the File: namespace prefix from a title
func StripFilePrefix(title string) string {
	return strings.TrimPrefix(title, "File:")
}

// CategoryMember is one entry of a category listing
type CategoryMember struct {
	Title     string `json:"title"`
	Namespace int    `json:"ns"`
}

// MediaWiki namespace numbers
const (
	NamespaceFile     = 6
	NamespaceCategory = 14
)

// IsFile reports whether the member is a file page
func (m CategoryMember) IsFile() bool {
	return m.Namespace == NamespaceFile
}

// IsCategory reports whether the member is a subcategory
func (m CategoryMember) IsCategory() bool {
	return m.Namespace == NamespaceCategory
}

// API response shapes, formatversion=2.

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type apiResponse struct {
	Error    *apiError         `json:"error"`
	Continue map[string]string `json:"continue"`
	Query    *queryResult      `json:"query"`
}

type queryResult struct {
	Tokens          map[string]string `json:"tokens"`
	LogEvents       []logEvent        `json:"logevents"`
	CategoryMembers []CategoryMember  `json:"categorymembers"`
	Pages           []pageResult      `json:"pages"`
}

type logEvent struct {
	Title string `json:"title"`
}

type pageResult struct {
	Title       string       `json:"title"`
	Missing     bool         `json:"missing"`
	Redirect    bool         `json:"redirect"`
	Coordinates []coordinate `json:"coordinates"`
	ImageInfo   []imageInfo  `json:"imageinfo"`
}

type coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type imageInfo struct {
	URL         string              `json:"url"`
	Metadata    []metadataField     `json:"metadata"`
	ExtMetadata map[string]extValue `json:"extmetadata"`
}

type metadataField struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

type extValue struct {
	Value interface{} `json:"value"`
}

type loginResponse struct {
	Login struct {
		Result string `json:"result"`
		Reason string `json:"reason"`
	} `json:"login"`
}

type uploadResponse struct {
	Error  *apiError `json:"error"`
	Upload struct {
		Result string `json:"result"`
	} `json:"upload"`
}

// metadataFloat extracts a named numeric field from an imageinfo
// metadata block. EXIF values arrive as strings or numbers depending
// on the tag.
func metadataFloat(name string, fields []metadataField) (float64, bool) {
	for _, f := range fields {
		if f.Name != name {
			continue
		}
		switch v := f.Value.(type) {
		case float64:
			return v, true
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return 0, false
			}
			return parsed, true
		}
	}
	return 0, false
}

// hasMetadataGPS reports whether the metadata block already carries a
// usable GPS position
func hasMetadataGPS(fields []metadataField) bool {
	_, hasLat := metadataFloat("GPSLatitude", fields)
	_, hasLon := metadataFloat("GPSLongitude", fields)
	return hasLat && hasLon
}

// extString extracts a string field from extmetadata
func extString(key string, ext map[string]extValue) string {
	v, ok := ext[key]
	if !ok {
		return ""
	}
	if s, ok := v.Value.(string); ok {
		return s
	}
	return ""
}

// toUploadInfo converts an API page result into an UploadInfo
func (p pageResult) toUploadInfo() UploadInfo {
	info := UploadInfo{
		Title:    StripFilePrefix(p.Title),
		Redirect: p.Redirect,
	}

	if len(p.Coordinates) > 0 {
		lat := p.Coordinates[0].Lat
		lon := p.Coordinates[0].Lon
		info.HasCoords = true
		info.Lat = &lat
		info.Lon = &lon
	}

	if len(p.ImageInfo) > 0 {
		ii := p.ImageInfo[0]
		info.URL = ii.URL
		info.HasExifGPS = hasMetadataGPS(ii.Metadata)
		info.Author = extString("Artist", ii.ExtMetadata)
	}

	return info
}
