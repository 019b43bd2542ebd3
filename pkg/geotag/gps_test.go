package geotag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/wilfredor/addwikigeolocation/pkg/commons"
)

func TestDecimalToDMS(t *testing.T) {
	tests := []struct {
		name    string
		deg     float64
		degrees int
		minutes int
		seconds float64
	}{
		{"zero", 0, 0, 0, 0},
		{"whole degrees", 59, 59, 0, 0},
		{"half degree", 10.5, 10, 30, 0},
		{"oslo latitude", 59.9139, 59, 54, 50.04},
		{"negative longitude", -3.7038, -3, 42, 13.68},
		{"small negative", -0.1278, 0, 7, 40.08},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dms := DecimalToDMS(tt.deg)
			assert.Equal(t, tt.degrees, dms.Degrees)
			assert.Equal(t, tt.minutes, dms.Minutes)
			assert.InDelta(t, tt.seconds, dms.Seconds, 0.01)
		})
	}
}

func TestDMSRationals(t *testing.T) {
	dms := DMS{Degrees: -3, Minutes: 42, Seconds: 13.68}
	rats := dms.rationals()

	require.Len(t, rats, 3)
	assert.Equal(t, exifcommon.Rational{Numerator: 3, Denominator: 1}, rats[0])
	assert.Equal(t, exifcommon.Rational{Numerator: 42, Denominator: 1}, rats[1])
	assert.Equal(t, uint32(1368), rats[2].Numerator)
	assert.Equal(t, uint32(100), rats[2].Denominator)
}

func TestDMSRoundTrip(t *testing.T) {
	for _, deg := range []float64{59.9139, 10.7522, -3.7038, -77.0428, 0.0001} {
		dms := DecimalToDMS(deg)

		abs := deg
		if abs < 0 {
			abs = -abs
		}
		absDegrees := dms.Degrees
		if absDegrees < 0 {
			absDegrees = -absDegrees
		}

		back := float64(absDegrees) + float64(dms.Minutes)/60 + dms.Seconds/3600
		assert.InDelta(t, abs, back, 1e-6, "degrees %v", deg)
	}
}

func TestValidCoordinates(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.True(t, commons.ValidCoordinates(f(0), f(0)))
	assert.True(t, commons.ValidCoordinates(f(-90), f(180)))
	assert.True(t, commons.ValidCoordinates(f(90), f(-180)))

	assert.False(t, commons.ValidCoordinates(nil, f(0)))
	assert.False(t, commons.ValidCoordinates(f(0), nil))
	assert.False(t, commons.ValidCoordinates(f(90.1), f(0)))
	assert.False(t, commons.ValidCoordinates(f(0), f(-180.5)))
}
