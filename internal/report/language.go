// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"strings"

	"github.com/pdiddy/natal-engine/pkg/types"
)

// Language holds the localized strings used in a report.
type Language struct {
	Code string

	bodies map[string]string
	signs  [types.SignCount]string

	positionsFor string
	location     string
	latitude     string
	longitude    string
	sign         string
	degrees      string
	in           string
	at           string
}

var english = Language{
	Code: "en",
	bodies: map[string]string{
		"sun": "sun", "moon": "moon", "mercury": "mercury", "venus": "venus",
		"mars": "mars", "jupiter": "jupiter", "saturn": "saturn",
		"uranus": "uranus", "neptune": "neptune", "pluto": "pluto",
	},
	signs: [types.SignCount]string{
		"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
		"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
	},
	positionsFor: "Planetary positions for",
	location:     "Location",
	latitude:     "Latitude",
	longitude:    "Longitude",
	sign:         "Sign",
	degrees:      "Degrees",
	in:           "in",
	at:           "at",
}

var spanish = Language{
	Code: "es",
	bodies: map[string]string{
		"sun": "sol", "moon": "luna", "mercury": "mercurio", "venus": "venus",
		"mars": "marte", "jupiter": "jupiter", "saturn": "saturno",
		"uranus": "urano", "neptune": "neptuno", "pluto": "pluton",
	},
	signs: [types.SignCount]string{
		"Aries", "Tauro", "Géminis", "Cáncer", "Leo", "Virgo",
		"Libra", "Escorpio", "Sagitario", "Capricornio", "Acuario", "Piscis",
	},
	positionsFor: "Posiciones planetarias para",
	location:     "Ubicación",
	latitude:     "Latitud",
	longitude:    "Longitud",
	sign:         "Signo",
	degrees:      "Grados",
	in:           "en",
	at:           "a",
}

// LookupLanguage returns the language for code. An empty code means English.
func LookupLanguage(code string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "en":
		return english, nil
	case "es":
		return spanish, nil
	}
	return Language{}, fmt.Errorf("unsupported report language %q (want en or es)", code)
}

// Body returns the localized, capitalized display name of a catalog key.
// Unknown keys are capitalized as given.
func (l Language) Body(key string) string {
	name, ok := l.bodies[key]
	if !ok {
		name = key
	}
	return capitalize(name)
}

// Sign returns the localized sign name.
func (l Language) Sign(s types.Sign) string {
	if !s.Valid() {
		return s.String()
	}
	return l.signs[s]
}

// Line formats one body as a single summary line, e.g.
// "Sun: in Aries at 28.73°".
func (l Language) Line(b types.BodyResult) string {
	return fmt.Sprintf("%s: %s %s %s %.2f°", l.Body(b.Key), l.in, l.Sign(b.Zodiac.Sign), l.at, b.Zodiac.Degrees)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
