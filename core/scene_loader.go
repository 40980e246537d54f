package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/globe-kernel/model"
)

// SceneFormat selects the encoding of a scene file.
type SceneFormat int

const (
	SceneJSON SceneFormat = iota
	SceneYAML
	SceneTOML
)

// DefaultGranularityDeg is used when neither the scene nor a curve sets one.
const DefaultGranularityDeg = 5.0

// EllipsoidRef names the shape a scene is evaluated on: either a preset
// resolved through a ShapeResolver or explicit radii. SemiMinorAxis, when
// set, replaces the z radius of whichever shape was chosen.
type EllipsoidRef struct {
	Preset        string
	Radii         *[3]float64
	SemiMinorAxis *float64
}

// CurveSpec is one curve to sample. Granularity is in radians.
type CurveSpec struct {
	ID          string
	From, To    model.Geodetic2D
	Granularity float64
}

// NormalSpec is one surface position whose normals and tangent frame are
// reported.
type NormalSpec struct {
	ID string
	At model.Geodetic3D
}

// SatelliteSpec is one TLE-propagated object.
type SatelliteSpec struct {
	ID           string
	Line1, Line2 string
}

// Scene is a parsed scene description.
type Scene struct {
	Shape      EllipsoidRef
	Curves     []CurveSpec
	Normals    []NormalSpec
	Satellites []SatelliteSpec
}

// File shapes; unexported so they can evolve independently of Scene.
type sceneFile struct {
	Ellipsoid      ellipsoidFile   `json:"ellipsoid" yaml:"ellipsoid" toml:"ellipsoid"`
	GranularityDeg float64         `json:"granularity_deg" yaml:"granularity_deg" toml:"granularity_deg"`
	Curves         []curveFile     `json:"curves" yaml:"curves" toml:"curves"`
	Normals        []normalFile    `json:"normals" yaml:"normals" toml:"normals"`
	Satellites     []satelliteFile `json:"satellites" yaml:"satellites" toml:"satellites"`
}

type ellipsoidFile struct {
	Preset        string      `json:"preset" yaml:"preset" toml:"preset"`
	Radii         *[3]float64 `json:"radii" yaml:"radii" toml:"radii"`
	SemiMinorAxis *float64    `json:"semi_minor_axis" yaml:"semi_minor_axis" toml:"semi_minor_axis"`
}

type positionFile struct {
	LonDeg float64 `json:"lon_deg" yaml:"lon_deg" toml:"lon_deg"`
	LatDeg float64 `json:"lat_deg" yaml:"lat_deg" toml:"lat_deg"`
	Height float64 `json:"height" yaml:"height" toml:"height"`
}

type curveFile struct {
	ID             string       `json:"id" yaml:"id" toml:"id"`
	From           positionFile `json:"from" yaml:"from" toml:"from"`
	To             positionFile `json:"to" yaml:"to" toml:"to"`
	GranularityDeg float64      `json:"granularity_deg" yaml:"granularity_deg" toml:"granularity_deg"`
}

type normalFile struct {
	ID string       `json:"id" yaml:"id" toml:"id"`
	At positionFile `json:"at" yaml:"at" toml:"at"`
}

type satelliteFile struct {
	ID   string `json:"id" yaml:"id" toml:"id"`
	TLE1 string `json:"tle1" yaml:"tle1" toml:"tle1"`
	TLE2 string `json:"tle2" yaml:"tle2" toml:"tle2"`
}

// LoadScene decodes a scene from r and checks its structure: ids must be
// present and unique per section, and an ellipsoid must be named. Numeric
// validation of radii and coordinates happens in EvaluateScene.
func LoadScene(r io.Reader, format SceneFormat) (*Scene, error) {
	var payload sceneFile
	switch format {
	case SceneYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("LoadScene: yaml decode failed: %w", err)
		}
	case SceneTOML:
		if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&payload); err != nil {
			return nil, fmt.Errorf("LoadScene: toml decode failed: %w", err)
		}
	default:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("LoadScene: json decode failed: %w", err)
		}
	}

	if payload.Ellipsoid.Preset == "" && payload.Ellipsoid.Radii == nil {
		return nil, fmt.Errorf("LoadScene: ellipsoid needs a preset or radii")
	}
	if payload.GranularityDeg < 0 {
		return nil, fmt.Errorf("LoadScene: negative granularity_deg %v", payload.GranularityDeg)
	}
	defaultGranularity := payload.GranularityDeg
	if defaultGranularity == 0 {
		defaultGranularity = DefaultGranularityDeg
	}

	scene := &Scene{
		Shape: EllipsoidRef{
			Preset:        strings.ToLower(strings.TrimSpace(payload.Ellipsoid.Preset)),
			Radii:         payload.Ellipsoid.Radii,
			SemiMinorAxis: payload.Ellipsoid.SemiMinorAxis,
		},
		Curves:     make([]CurveSpec, 0, len(payload.Curves)),
		Normals:    make([]NormalSpec, 0, len(payload.Normals)),
		Satellites: make([]SatelliteSpec, 0, len(payload.Satellites)),
	}

	seen := make(map[string]bool)
	for _, c := range payload.Curves {
		if err := checkID("curve", c.ID, seen); err != nil {
			return nil, err
		}
		g := c.GranularityDeg
		if g == 0 {
			g = defaultGranularity
		}
		scene.Curves = append(scene.Curves, CurveSpec{
			ID:          c.ID,
			From:        model.Geodetic2DFromDegrees(c.From.LonDeg, c.From.LatDeg),
			To:          model.Geodetic2DFromDegrees(c.To.LonDeg, c.To.LatDeg),
			Granularity: mgl64.DegToRad(g),
		})
	}

	seen = make(map[string]bool)
	for _, n := range payload.Normals {
		if err := checkID("normal", n.ID, seen); err != nil {
			return nil, err
		}
		scene.Normals = append(scene.Normals, NormalSpec{
			ID: n.ID,
			At: model.Geodetic3DFromDegrees(n.At.LonDeg, n.At.LatDeg, n.At.Height),
		})
	}

	seen = make(map[string]bool)
	for _, s := range payload.Satellites {
		if err := checkID("satellite", s.ID, seen); err != nil {
			return nil, err
		}
		scene.Satellites = append(scene.Satellites, SatelliteSpec{ID: s.ID, Line1: s.TLE1, Line2: s.TLE2})
	}

	return scene, nil
}

// LoadSceneFile opens path and picks the format from its extension; anything
// other than .yaml/.yml/.toml is read as JSON.
func LoadSceneFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadSceneFile: %w", err)
	}
	defer f.Close()

	scene, err := LoadScene(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scene, nil
}

// FormatFromPath maps a file extension to a SceneFormat.
func FormatFromPath(path string) SceneFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SceneYAML
	case ".toml":
		return SceneTOML
	default:
		return SceneJSON
	}
}

func checkID(kind, id string, seen map[string]bool) error {
	if id == "" {
		return fmt.Errorf("LoadScene: %s with empty id", kind)
	}
	if seen[id] {
		return fmt.Errorf("LoadScene: duplicate %s id %q", kind, id)
	}
	seen[id] = true
	return nil
}
