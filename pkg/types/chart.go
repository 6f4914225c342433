// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for natal-engine.
// The chart model (ObservationInstant, ObserverLocation, ApparentObservation,
// ZodiacPosition, BodyResult, ResultSet) is produced by internal/zodiac and
// consumed by the report, mail, store, and server packages.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Sign is a zodiac sign index in canonical order, Aries (0) through Pisces (11).
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

// SignCount is the number of 30° sectors on the ecliptic.
const SignCount = 12

var signNames = [SignCount]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// String returns the English sign name, or "Sign(n)" for out-of-range values.
func (s Sign) String() string {
	if s < 0 || int(s) >= SignCount {
		return fmt.Sprintf("Sign(%d)", int(s))
	}
	return signNames[s]
}

// Valid reports whether s is one of the twelve canonical signs.
func (s Sign) Valid() bool {
	return s >= 0 && int(s) < SignCount
}

// ParseSign resolves an English sign name, case-insensitively.
func ParseSign(name string) (Sign, error) {
	for i, n := range signNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Sign(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sign %q", name)
}

// MarshalText encodes the sign by name so JSON and YAML output is readable.
func (s Sign) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid sign %d", int(s))
	}
	return []byte(signNames[s]), nil
}

// UnmarshalText accepts an English sign name.
func (s *Sign) UnmarshalText(b []byte) error {
	v, err := ParseSign(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ObserverLocation is a geodetic position in degrees (WGS84).
type ObserverLocation struct {
	// Latitude in degrees, north positive, within [-90, 90].
	Latitude float64 `json:"latitude" yaml:"latitude"`

	// Longitude in degrees, east positive, within [-180, 180].
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// ApparentObservation is one body as seen from an observer at an instant.
type ApparentObservation struct {
	// Altitude is degrees above the horizon.
	Altitude float64 `json:"altitude" yaml:"altitude"`

	// Azimuth is degrees east of north, within [0, 360).
	Azimuth float64 `json:"azimuth" yaml:"azimuth"`

	// RightAscension is in hours, within [0, 24).
	RightAscension float64 `json:"right_ascension" yaml:"right_ascension"`

	// Declination is in degrees.
	Declination float64 `json:"declination" yaml:"declination"`
}

// ZodiacPosition names a point on the ecliptic by sign and offset into it.
type ZodiacPosition struct {
	Sign    Sign    `json:"sign" yaml:"sign"`
	Degrees float64 `json:"degrees" yaml:"degrees"`
}

// Longitude returns the ecliptic longitude the position was derived from.
func (z ZodiacPosition) Longitude() float64 {
	return float64(z.Sign)*30 + z.Degrees
}

// BodyResult pairs a catalog body with its observation and zodiac placement.
type BodyResult struct {
	Key         string              `json:"body" yaml:"body"`
	Observation ApparentObservation `json:"observation" yaml:"observation"`
	Zodiac      ZodiacPosition      `json:"zodiac" yaml:"zodiac"`
}

// ResultSet is the complete, catalog-ordered output of one computation.
type ResultSet struct {
	// Instant is the observation time in UTC.
	Instant time.Time `json:"instant" yaml:"instant"`

	Location ObserverLocation `json:"location" yaml:"location"`

	Bodies []BodyResult `json:"bodies" yaml:"bodies"`
}

// Len returns the number of bodies in the set.
func (r ResultSet) Len() int { return len(r.Bodies) }

// Lookup returns the result for a catalog key.
func (r ResultSet) Lookup(key string) (BodyResult, bool) {
	for _, b := range r.Bodies {
		if b.Key == key {
			return b, true
		}
	}
	return BodyResult{}, false
}
