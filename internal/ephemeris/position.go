// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ephemeris

import (
	"math"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/elliptic"
	"github.com/soniakeys/meeus/v3/kepler"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/planetelements"
	"github.com/soniakeys/meeus/v3/pluto"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

const (
	deg2rad       = math.Pi / 180
	rad2deg       = 180 / math.Pi
	secondsPerDay = 86400.0
	auKm          = 149597870.7
	// lightDayAU is the distance light travels in one day, in au.
	lightDayAU = 173.1446326846693
)

// lightTimeIterations is enough for sub-second convergence out to Pluto.
const lightTimeIterations = 2

// equatorial is a geocentric position referred to the true equator and
// equinox of date. Dist is in au.
type equatorial struct {
	RA   unit.RA
	Dec  unit.Angle
	Dist float64
}

// heliocentricFunc returns an ecliptic position of date relative to the Sun.
type heliocentricFunc func(jde float64) (l, b unit.Angle, r float64)

// geocentric returns the apparent geocentric position of b at jde (TT).
func (h *Handle) geocentric(b *Body, jde float64) equatorial {
	switch b.Model {
	case ModelSolar:
		α, δ := solar.ApparentEquatorial(jde)
		return equatorial{RA: α, Dec: δ, Dist: solar.Radius(base.J2000Century(jde))}
	case ModelLunar:
		λ, β, Δ := moonposition.Position(jde)
		return apparent(λ, β, Δ/auKm, jde)
	case ModelPluto:
		return h.fromHeliocentric(jde, plutoOfDate)
	}
	if h.vsop != nil {
		return h.vsop.position(b.planet, jde)
	}
	p := b.planet.mean
	return h.fromHeliocentric(jde, func(jde float64) (unit.Angle, unit.Angle, float64) {
		return meanHeliocentric(p, jde)
	})
}

// fromHeliocentric returns the geocentric position of body, with the body
// taken at the light-time-retarded instant.
func (h *Handle) fromHeliocentric(jde float64, body heliocentricFunc) equatorial {
	earth := rect(h.earth(jde))
	g := rect(body(jde)).sub(earth)
	for i := 0; i < lightTimeIterations; i++ {
		g = rect(body(jde - g.norm()/lightDayAU)).sub(earth)
	}
	r := g.norm()
	λ := unit.Angle(math.Atan2(g.Y, g.X))
	β := unit.Angle(math.Asin(g.Z / r))
	return apparent(λ, β, r, jde)
}

// earth returns the heliocentric ecliptic position of the Earth of date.
func (h *Handle) earth(jde float64) (l, b unit.Angle, r float64) {
	if h.vsop != nil {
		return h.vsop.earth.Position(jde)
	}
	T := base.J2000Century(jde)
	s, _ := solar.True(T)
	return s + math.Pi, 0, solar.Radius(T)
}

// meanHeliocentric solves the Keplerian orbit given by planet p's mean
// elements of date.
func meanHeliocentric(p int, jde float64) (l, b unit.Angle, r float64) {
	var el planetelements.Elements
	planetelements.Mean(p, jde, &el)

	m := math.Mod((el.Lon - el.Peri).Rad(), 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	E := kepler.Kepler3(el.Ecc, unit.Angle(m))
	ν := kepler.True(E, el.Ecc)
	r = kepler.Radius(E, el.Ecc, el.Axis)

	su, cu := math.Sincos((ν + el.Peri - el.Node).Rad())
	si, ci := math.Sincos(el.Inc.Rad())
	sn, cn := math.Sincos(el.Node.Rad())
	x := cn*cu - sn*su*ci
	y := sn*cu + cn*su*ci
	z := su * si
	return unit.Angle(math.Atan2(y, x)), unit.Angle(math.Asin(z)), r
}

// plutoOfDate returns Pluto's heliocentric position precessed from J2000 to
// the equinox of jde.
func plutoOfDate(jde float64) (l, b unit.Angle, r float64) {
	l, b, r = pluto.Heliocentric(jde)
	ecl := &coord.Ecliptic{Lon: l, Lat: b}
	precess.NewEclipticPrecessor(2000, base.JDEToJulianYear(jde)).Precess(ecl, ecl)
	return ecl.Lon, ecl.Lat, r
}

// apparent adds nutation in longitude to a geometric ecliptic position of
// date and converts it with the true obliquity.
func apparent(λ, β unit.Angle, dist, jde float64) equatorial {
	Δψ, Δε := nutation.Nutation(jde)
	sε, cε := math.Sincos((nutation.MeanObliquity(jde) + Δε).Rad())
	α, δ := coord.EclToEq(λ+Δψ, β, sε, cε)
	return equatorial{RA: α, Dec: δ, Dist: dist}
}

func (v *vsopSet) position(p planet, jde float64) equatorial {
	vp := v.planets[p.vsop]
	α, δ := elliptic.Position(vp, v.earth, jde)
	dist := rect(vp.Position(jde)).sub(rect(v.earth.Position(jde))).norm()
	return equatorial{RA: α, Dec: δ, Dist: dist}
}

type vec3 struct{ X, Y, Z float64 }

func (v vec3) sub(o vec3) vec3      { return vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v vec3) scale(k float64) vec3 { return vec3{v.X * k, v.Y * k, v.Z * k} }
func (v vec3) norm() float64        { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

func spherical(lon, lat, r float64) vec3 {
	so, co := math.Sincos(lon)
	sa, ca := math.Sincos(lat)
	return vec3{X: r * ca * co, Y: r * ca * so, Z: r * sa}
}

func rect(l, b unit.Angle, r float64) vec3 { return spherical(l.Rad(), b.Rad(), r) }

// vector returns e as a geocentric equatorial vector in au.
func (e equatorial) vector() vec3 { return spherical(e.RA.Rad(), e.Dec.Rad(), e.Dist) }

// rightAscensionHours returns the right ascension of an equatorial vector in
// [0, 24).
func rightAscensionHours(v vec3) float64 {
	ra := math.Atan2(v.Y, v.X) * rad2deg / 15
	ra = math.Mod(ra, 24)
	if ra < 0 {
		ra += 24
	}
	if ra >= 24 {
		ra = 0
	}
	return ra
}

func declinationDeg(v vec3) float64 {
	r := v.norm()
	if r == 0 {
		return 0
	}
	return math.Asin(v.Z/r) * rad2deg
}
