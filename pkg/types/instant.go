// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// CivilTime is a calendar date and wall-clock time with second precision and
// no zone attached.
type CivilTime struct {
	Year   int        `json:"year" yaml:"year"`
	Month  time.Month `json:"month" yaml:"month"`
	Day    int        `json:"day" yaml:"day"`
	Hour   int        `json:"hour" yaml:"hour"`
	Minute int        `json:"minute" yaml:"minute"`
	Second int        `json:"second" yaml:"second"`
}

// Validate rejects out-of-range fields instead of normalizing them, so
// February 31 is an error rather than March 3.
func (c CivilTime) Validate() error {
	if c.Month < time.January || c.Month > time.December {
		return fmt.Errorf("month %d out of range", int(c.Month))
	}
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("hour %d out of range", c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("minute %d out of range", c.Minute)
	}
	if c.Second < 0 || c.Second > 59 {
		return fmt.Errorf("second %d out of range", c.Second)
	}
	if c.Day < 1 {
		return fmt.Errorf("day %d out of range", c.Day)
	}
	t := time.Date(c.Year, c.Month, c.Day, 0, 0, 0, 0, time.UTC)
	if t.Day() != c.Day || t.Month() != c.Month {
		return fmt.Errorf("day %d does not exist in %s %d", c.Day, c.Month, c.Year)
	}
	return nil
}

func (c CivilTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d",
		c.Year, int(c.Month), c.Day, c.Hour, c.Minute, c.Second)
}

// ObservationInstant is a civil timestamp qualified by a zone. A nil Zone
// marks a naive instant, which the engine refuses to interpret.
type ObservationInstant struct {
	Civil CivilTime
	Zone  *time.Location
}

// InstantOf returns a qualified instant for t, truncated to whole seconds.
func InstantOf(t time.Time) ObservationInstant {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return ObservationInstant{
		Civil: CivilTime{Year: y, Month: mo, Day: d, Hour: h, Minute: mi, Second: s},
		Zone:  t.Location(),
	}
}

// Qualified reports whether the instant carries zone information.
func (o ObservationInstant) Qualified() bool { return o.Zone != nil }

// UTC validates the instant and converts it to a UTC time.
func (o ObservationInstant) UTC() (time.Time, error) {
	if o.Zone == nil {
		return time.Time{}, fmt.Errorf("instant %s has no zone", o.Civil)
	}
	if err := o.Civil.Validate(); err != nil {
		return time.Time{}, err
	}
	c := o.Civil
	return time.Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second, 0, o.Zone).UTC(), nil
}

func (o ObservationInstant) String() string {
	if o.Zone == nil {
		return o.Civil.String() + " (naive)"
	}
	return o.Civil.String() + " " + o.Zone.String()
}

const naiveLayout = "2006-01-02T15:04:05"

// ParseInstant parses an RFC 3339 timestamp. A timestamp without an offset
// ("1994-04-18T04:00:00") parses into a naive instant; the caller decides
// whether to attach a zone. Calendar fields are checked for range but not
// normalized.
func ParseInstant(s string) (ObservationInstant, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return InstantOf(t), nil
	}
	var c CivilTime
	var month int
	n, err := fmt.Sscanf(s, "%4d-%2d-%2dT%2d:%2d:%2d", &c.Year, &month, &c.Day, &c.Hour, &c.Minute, &c.Second)
	if err != nil || n != 6 || len(s) != len(naiveLayout) {
		return ObservationInstant{}, fmt.Errorf("parsing instant %q: expected RFC 3339", s)
	}
	c.Month = time.Month(month)
	if err := c.Validate(); err != nil {
		return ObservationInstant{}, fmt.Errorf("parsing instant %q: %w", s, err)
	}
	return ObservationInstant{Civil: c}, nil
}
