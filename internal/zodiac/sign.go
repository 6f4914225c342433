// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zodiac

import (
	"math"

	"github.com/pdiddy/natal-engine/pkg/types"
)

const (
	fullCircle = 360.0
	signWidth  = 30.0
)

// EclipticLongitude maps right ascension (hours) onto the 360° circle as
// (ra/24)*360. This ignores the obliquity of the ecliptic: it is only the
// true ecliptic longitude when obliquity is zero. Charts produced by earlier
// releases depend on it, so it must not be replaced by a proper transform.
func EclipticLongitude(raHours float64) float64 {
	return (raHours / 24.0) * fullCircle
}

// FromLongitude places an ecliptic longitude into a sign and an offset in
// [0, 30). Longitudes outside [0, 360) wrap, so 360 maps to Aries 0.
func FromLongitude(lon float64) types.ZodiacPosition {
	lon = math.Mod(lon, fullCircle)
	if lon < 0 {
		lon += fullCircle
	}
	deg := math.Mod(lon, signWidth)
	// lon-deg is a multiple of 30; rounding keeps the index consistent with
	// deg even when lon/30 lands a hair under an integer.
	idx := int(math.Round((lon-deg)/signWidth)) % types.SignCount
	return types.ZodiacPosition{Sign: types.Sign(idx), Degrees: deg}
}

// FromRightAscension converts right ascension in hours to a zodiac position.
func FromRightAscension(raHours float64) types.ZodiacPosition {
	return FromLongitude(EclipticLongitude(raHours))
}
