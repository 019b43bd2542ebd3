package geotag

import (
	"bytes"
	"os"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"

	"github.com/wilfredor/addwikigeolocation/pkg/errors"
)

// DMS is a coordinate in degrees/minutes/seconds form, as GPS EXIF
// rationals expect it
type DMS struct {
	Degrees int
	Minutes int
	Seconds float64
}

// DecimalToDMS converts decimal degrees to DMS. Minutes and seconds
// are always non-negative; the sign lives on Degrees, matching the
// hemisphere reference convention. Seconds are clamped to [0, 60] to
// guard against float drift at the edges.
func DecimalToDMS(deg float64) DMS {
	neg := deg < 0
	if neg {
		deg = -deg
	}

	degrees := int(deg)
	minutes := int((deg - float64(degrees)) * 60)
	seconds := (deg - float64(degrees) - float64(minutes)/60) * 3600

	if seconds < 0 {
		seconds = 0
	}
	if seconds > 60 {
		seconds = 60
	}
	if neg {
		degrees = -degrees
	}

	return DMS{Degrees: degrees, Minutes: minutes, Seconds: seconds}
}

// rationals converts a DMS into the three EXIF rationals. Sign is
// carried by the hemisphere reference, so components are absolute.
func (d DMS) rationals() []exifcommon.Rational {
	abs := func(v int) uint32 {
		if v < 0 {
			return uint32(-v)
		}
		return uint32(v)
	}
	return []exifcommon.Rational{
		{Numerator: abs(d.Degrees), Denominator: 1},
		{Numerator: abs(d.Minutes), Denominator: 1},
		{Numerator: uint32(d.Seconds * 100), Denominator: 100},
	}
}

// WriteGPS rewrites the JPEG at path with its EXIF GPS IFD set to
// lat/lon. Existing EXIF data is preserved; an image without EXIF gets
// a fresh block. Writing the same coordinates twice is a no-op in
// effect, which keeps the edit safe to repeat.
func WriteGPS(path string, lat, lon float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to read %s: %v", path, err)
	}

	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseBytes(data)
	if err != nil {
		return errors.Newf(errors.ErrorTypeProcessing, 0, "failed to parse JPEG %s: %v", path, err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		rootIb, err = newEmptyExifBuilder()
		if err != nil {
			return err
		}
	}

	gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		return errors.Newf(errors.ErrorTypeProcessing, 0, "failed to open GPS IFD: %v", err)
	}

	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef = "S"
	}
	if lon < 0 {
		lonRef = "W"
	}

	tags := []struct {
		name  string
		value interface{}
	}{
		{"GPSLatitudeRef", latRef},
		{"GPSLatitude", DecimalToDMS(lat).rationals()},
		{"GPSLongitudeRef", lonRef},
		{"GPSLongitude", DecimalToDMS(lon).rationals()},
	}
	for _, tag := range tags {
		if err := gpsIb.SetStandardWithName(tag.name, tag.value); err != nil {
			return errors.Newf(errors.ErrorTypeProcessing, 0, "failed to set %s: %v", tag.name, err)
		}
	}

	if err := sl.SetExif(rootIb); err != nil {
		return errors.Newf(errors.ErrorTypeProcessing, 0, "failed to attach EXIF block: %v", err)
	}

	buf := new(bytes.Buffer)
	if err := sl.Write(buf); err != nil {
		return errors.Newf(errors.ErrorTypeProcessing, 0, "failed to serialize JPEG: %v", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to write %s: %v", path, err)
	}
	return nil
}

// newEmptyExifBuilder creates a root IFD builder for images that carry
// no EXIF block yet
func newEmptyExifBuilder() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeProcessing, 0, "failed to build IFD mapping: %v", err)
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}
