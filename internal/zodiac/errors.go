// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zodiac

import "fmt"

// ValidationError reports a malformed instant or out-of-range observer
// coordinate. It is raised before the ephemeris is consulted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EphemerisLoadError reports an ephemeris data source that could not be
// opened or parsed. Retrying without intervention cannot succeed.
type EphemerisLoadError struct {
	Path string
	Err  error
}

func (e *EphemerisLoadError) Error() string {
	return fmt.Sprintf("loading ephemeris %s: %v", e.Path, e.Err)
}

func (e *EphemerisLoadError) Unwrap() error { return e.Err }

// ObservationError reports a single body that could not be observed. The
// whole computation fails with it; no partial result set is returned.
type ObservationError struct {
	Body       string
	ProviderID string
	Err        error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("observing %s (%s): %v", e.Body, e.ProviderID, e.Err)
}

func (e *ObservationError) Unwrap() error { return e.Err }
