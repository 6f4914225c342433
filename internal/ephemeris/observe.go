// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/pdiddy/natal-engine/pkg/types"
)

// Observe returns the apparent position of bodyID seen from observer at the
// UTC instant at. Right ascension and declination are topocentric, referred
// to the true equator and equinox of date; altitude and azimuth come from
// go-satellite's look angles.
func (h *Handle) Observe(ctx context.Context, bodyID string, at time.Time, observer types.ObserverLocation) (types.ApparentObservation, error) {
	if err := ctx.Err(); err != nil {
		return types.ApparentObservation{}, err
	}
	b, ok := h.bodies[bodyID]
	if !ok {
		return types.ApparentObservation{}, fmt.Errorf("body %q not in ephemeris %s", bodyID, h.source)
	}

	jdUT := julianDate(at)
	eci := h.geocentric(b, jdUT+h.deltaT).vector().scale(auKm)
	target := satellite.Vector3{X: eci.X, Y: eci.Y, Z: eci.Z}

	site := satellite.LatLong{
		Latitude:  observer.Latitude * deg2rad,
		Longitude: observer.Longitude * deg2rad,
	}
	obs := satellite.LLAToECI(site, 0, jdUT)
	topo := eci.sub(vec3{X: obs.X, Y: obs.Y, Z: obs.Z})

	look := satellite.ECIToLookAngles(target, site, 0, jdUT)
	az := math.Mod(look.Az*rad2deg, 360)
	if az < 0 {
		az += 360
	}

	return types.ApparentObservation{
		Altitude:       look.El * rad2deg,
		Azimuth:        az,
		RightAscension: rightAscensionHours(topo),
		Declination:    declinationDeg(topo),
	}, nil
}

// julianDate converts a UTC time to a Julian date at second precision.
func julianDate(t time.Time) float64 {
	t = t.UTC()
	y, mo, d := t.Date()
	hh, mm, ss := t.Clock()
	return satellite.JDay(y, int(mo), d, hh, mm, ss)
}
