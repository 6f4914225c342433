// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ephemeris provides body positions for the zodiac engine.
//
// A YAML body table names the position model behind each body identifier:
// the solar theory for the Sun, the truncated ELP-2000/82 series for the
// Moon, mean elements of date for the planets (or full VSOP87 when a
// VSOP87 directory is configured), and the Pluto periodic terms. The
// computations come from github.com/soniakeys/meeus. Load parses and
// validates the table once; the returned Handle is read-only and safe for
// concurrent Observe calls.
package ephemeris

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/soniakeys/meeus/v3/planetelements"
	pp "github.com/soniakeys/meeus/v3/planetposition"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/natal-engine/internal/zodiac"
)

//go:embed data/bodies.yaml
var defaultData []byte

// DefaultSource names the embedded body table in errors and logs.
const DefaultSource = "embedded:bodies.yaml"

// Model selects the theory a body's position is computed with.
type Model string

const (
	ModelSolar  Model = "solar"
	ModelLunar  Model = "lunar"
	ModelPlanet Model = "planet"
	ModelPluto  Model = "pluto"
)

// planet pairs the two meeus identifiers of a major planet.
type planet struct {
	mean int // planetelements constant
	vsop int // planetposition constant
}

var planets = map[string]planet{
	"mercury": {mean: planetelements.Mercury, vsop: pp.Mercury},
	"venus":   {mean: planetelements.Venus, vsop: pp.Venus},
	"mars":    {mean: planetelements.Mars, vsop: pp.Mars},
	"jupiter": {mean: planetelements.Jupiter, vsop: pp.Jupiter},
	"saturn":  {mean: planetelements.Saturn, vsop: pp.Saturn},
	"uranus":  {mean: planetelements.Uranus, vsop: pp.Uranus},
	"neptune": {mean: planetelements.Neptune, vsop: pp.Neptune},
}

// Body is one entry of the body table.
type Body struct {
	ID     string `yaml:"id"`
	Model  Model  `yaml:"model"`
	Planet string `yaml:"planet,omitempty"`

	planet planet
}

// File is the on-disk layout of a body table.
type File struct {
	Name          string  `yaml:"name"`
	DeltaTSeconds float64 `yaml:"delta_t_seconds"`
	// VSOP87Dir holds the VSOP87B.* files. Relative paths are resolved
	// against the table's directory. Empty uses mean elements.
	VSOP87Dir string `yaml:"vsop87_dir,omitempty"`
	Bodies    []Body `yaml:"bodies"`
}

// Handle is a loaded, validated body table.
type Handle struct {
	source string
	name   string
	deltaT float64 // days
	bodies map[string]*Body
	vsop   *vsopSet
}

// Load reads and validates the body table at path. An empty path loads
// the embedded default. Failures are *zodiac.EphemerisLoadError.
func Load(path string) (*Handle, error) {
	if path == "" {
		return LoadDefault()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &zodiac.EphemerisLoadError{Path: path, Err: err}
	}
	return parse(path, filepath.Dir(path), data)
}

// LoadDefault parses the embedded body table.
func LoadDefault() (*Handle, error) {
	return Parse(DefaultSource, defaultData)
}

// Parse builds a Handle from raw YAML; source is used in error messages.
// A relative vsop87_dir is resolved against the working directory.
func Parse(source string, data []byte) (*Handle, error) {
	return parse(source, ".", data)
}

func parse(source, baseDir string, data []byte) (*Handle, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &zodiac.EphemerisLoadError{Path: source, Err: fmt.Errorf("parsing YAML: %w", err)}
	}
	h, err := build(source, baseDir, f)
	if err != nil {
		return nil, &zodiac.EphemerisLoadError{Path: source, Err: err}
	}
	return h, nil
}

func build(source, baseDir string, f File) (*Handle, error) {
	if len(f.Bodies) == 0 {
		return nil, errors.New("no bodies defined")
	}
	if math.IsNaN(f.DeltaTSeconds) || math.Abs(f.DeltaTSeconds) > secondsPerDay {
		return nil, fmt.Errorf("delta_t_seconds %v out of range", f.DeltaTSeconds)
	}

	h := &Handle{
		source: source,
		name:   f.Name,
		deltaT: f.DeltaTSeconds / secondsPerDay,
		bodies: make(map[string]*Body, len(f.Bodies)),
	}
	for i := range f.Bodies {
		b := f.Bodies[i]
		if b.ID == "" {
			return nil, fmt.Errorf("body %d has no id", i)
		}
		if _, dup := h.bodies[b.ID]; dup {
			return nil, fmt.Errorf("duplicate body %q", b.ID)
		}
		switch b.Model {
		case ModelSolar, ModelLunar, ModelPluto:
		case ModelPlanet:
			p, ok := planets[b.Planet]
			if !ok {
				return nil, fmt.Errorf("body %q: unknown planet %q", b.ID, b.Planet)
			}
			b.planet = p
		default:
			return nil, fmt.Errorf("body %q: unknown model %q", b.ID, b.Model)
		}
		h.bodies[b.ID] = &b
	}

	if f.VSOP87Dir != "" {
		dir := f.VSOP87Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		v, err := loadVSOP87(dir, h.bodies)
		if err != nil {
			return nil, err
		}
		h.vsop = v
	}
	return h, nil
}

// vsopSet holds the VSOP87 series a handle computes planets with.
type vsopSet struct {
	earth   *pp.V87Planet
	planets map[int]*pp.V87Planet
}

func loadVSOP87(dir string, bodies map[string]*Body) (*vsopSet, error) {
	earth, err := pp.LoadPlanetPath(pp.Earth, dir)
	if err != nil {
		return nil, fmt.Errorf("loading VSOP87 earth from %s: %w", dir, err)
	}
	v := &vsopSet{earth: earth, planets: make(map[int]*pp.V87Planet)}
	for _, b := range bodies {
		if b.Model != ModelPlanet {
			continue
		}
		if _, ok := v.planets[b.planet.vsop]; ok {
			continue
		}
		p, err := pp.LoadPlanetPath(b.planet.vsop, dir)
		if err != nil {
			return nil, fmt.Errorf("loading VSOP87 %s from %s: %w", b.Planet, dir, err)
		}
		v.planets[b.planet.vsop] = p
	}
	return v, nil
}

// Source returns the path or embedded name the handle was loaded from.
func (h *Handle) Source() string { return h.source }

// Name returns the table's declared name.
func (h *Handle) Name() string { return h.name }

// Theory describes how planets are computed: "VSOP87" or "mean elements".
func (h *Handle) Theory() string {
	if h.vsop != nil {
		return "VSOP87"
	}
	return "mean elements"
}

// Bodies returns the body identifiers, sorted.
func (h *Handle) Bodies() []string {
	ids := make([]string, 0, len(h.bodies))
	for id := range h.bodies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether the table contains a body for id.
func (h *Handle) Has(id string) bool {
	_, ok := h.bodies[id]
	return ok
}

var (
	sharedMu sync.Mutex
	shared   = map[string]*Handle{}
)

// Shared returns a process-wide handle for path, loading it on first use.
// Failed loads are not cached.
func Shared(path string) (*Handle, error) {
	key := path
	if key == "" {
		key = DefaultSource
	}
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if h, ok := shared[key]; ok {
		return h, nil
	}
	h, err := Load(path)
	if err != nil {
		return nil, err
	}
	shared[key] = h
	return h, nil
}
