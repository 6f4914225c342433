// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a computed chart as text, YAML, or JSON and writes
// it to disk. Rendering happens fully in memory; files are replaced
// atomically so a reader never sees a partial report.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/natal-engine/pkg/types"
)

const (
	filePrefix = "planetary_positions_"
	dividerLen = 50

	// DefaultOutDir is used when ReportConfig.OutDir is empty.
	DefaultOutDir = "reports"
)

// Chart is a computed result set plus the person it was computed for.
type Chart struct {
	FirstName string
	Email     string
	Positions types.ResultSet
}

// Document is the structured form of a report used for YAML and JSON.
type Document struct {
	FirstName string                 `json:"first_name" yaml:"first_name"`
	Email     string                 `json:"email,omitempty" yaml:"email,omitempty"`
	Language  string                 `json:"language" yaml:"language"`
	Instant   time.Time              `json:"instant" yaml:"instant"`
	Location  types.ObserverLocation `json:"location" yaml:"location"`
	Bodies    []DocumentBody         `json:"bodies" yaml:"bodies"`
}

// DocumentBody is one body in a Document. Sign is the localized name.
type DocumentBody struct {
	Body           string  `json:"body" yaml:"body"`
	Name           string  `json:"name" yaml:"name"`
	Sign           string  `json:"sign" yaml:"sign"`
	Degrees        float64 `json:"degrees" yaml:"degrees"`
	Altitude       float64 `json:"altitude" yaml:"altitude"`
	Azimuth        float64 `json:"azimuth" yaml:"azimuth"`
	RightAscension float64 `json:"right_ascension" yaml:"right_ascension"`
	Declination    float64 `json:"declination" yaml:"declination"`
}

// NewDocument builds the structured form of c in lang.
func NewDocument(c Chart, lang Language) Document {
	doc := Document{
		FirstName: c.FirstName,
		Email:     c.Email,
		Language:  lang.Code,
		Instant:   c.Positions.Instant,
		Location:  c.Positions.Location,
		Bodies:    make([]DocumentBody, len(c.Positions.Bodies)),
	}
	for i, b := range c.Positions.Bodies {
		doc.Bodies[i] = DocumentBody{
			Body:           b.Key,
			Name:           lang.Body(b.Key),
			Sign:           lang.Sign(b.Zodiac.Sign),
			Degrees:        b.Zodiac.Degrees,
			Altitude:       b.Observation.Altitude,
			Azimuth:        b.Observation.Azimuth,
			RightAscension: b.Observation.RightAscension,
			Declination:    b.Observation.Declination,
		}
	}
	return doc
}

// ParseFormat validates a format name. Empty means text.
func ParseFormat(s string) (types.ReportFormat, error) {
	switch f := types.ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return types.FormatText, nil
	case types.FormatText, types.FormatYAML, types.FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported report format %q (want text, yaml, or json)", s)
}

// Extension returns the file extension for format, without the dot.
func Extension(format types.ReportFormat) string {
	switch format {
	case types.FormatYAML:
		return "yaml"
	case types.FormatJSON:
		return "json"
	}
	return "txt"
}

// Filename returns the report file name for a person, e.g.
// "planetary_positions_ana.txt".
func Filename(firstName string, format types.ReportFormat) string {
	name := strings.ToLower(strings.TrimSpace(firstName))
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
	name = strings.ReplaceAll(name, " ", "_")
	return filePrefix + name + "." + Extension(format)
}

// Render writes c to w in the given format and language.
func Render(w io.Writer, c Chart, format types.ReportFormat, lang Language) error {
	switch format {
	case types.FormatText, "":
		_, err := io.WriteString(w, renderText(c, lang))
		return err
	case types.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(c, lang)); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case types.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(NewDocument(c, lang)); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported report format %q", format)
}

func renderText(c Chart, lang Language) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Birth Chart for %s\n", c.FirstName)
	if c.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", c.Email)
	}
	fmt.Fprintf(&b, "%s %s\n", lang.positionsFor, c.Positions.Instant.Format("2006-01-02 15:04:05-07:00"))
	fmt.Fprintf(&b, "%s: %s %s, %s %s\n", lang.location,
		lang.latitude, formatCoord(c.Positions.Location.Latitude),
		lang.longitude, formatCoord(c.Positions.Location.Longitude))
	b.WriteString(strings.Repeat("-", dividerLen))
	b.WriteString("\n\n")

	for _, body := range c.Positions.Bodies {
		fmt.Fprintf(&b, "%s:\n", lang.Body(body.Key))
		fmt.Fprintf(&b, "  %s: %s\n", lang.sign, lang.Sign(body.Zodiac.Sign))
		fmt.Fprintf(&b, "  %s: %.2f°\n", lang.degrees, body.Zodiac.Degrees)
		b.WriteString("\n")
	}
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Write renders c per cfg and atomically writes it to cfg.OutDir. It
// returns the path written.
func Write(c Chart, cfg types.ReportConfig) (string, error) {
	if strings.TrimSpace(c.FirstName) == "" {
		return "", fmt.Errorf("report needs a first name")
	}
	format, err := ParseFormat(string(cfg.Format))
	if err != nil {
		return "", err
	}
	lang, err := LookupLanguage(cfg.Language)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Render(&buf, c, format, lang); err != nil {
		return "", err
	}

	dir := cfg.OutDir
	if dir == "" {
		dir = DefaultOutDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := filepath.Join(dir, Filename(c.FirstName, format))
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing report: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting report permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
