package core

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const curvesSceneJSON = `{
  "ellipsoid": {"preset": "Scaled-WGS84", "semi_minor_axis": 0.7},
  "granularity_deg": 5,
  "curves": [
    {"id": "demo", "from": {"lon_deg": 40, "lat_deg": 40}, "to": {"lon_deg": 120, "lat_deg": -30}},
    {"id": "fine", "from": {"lon_deg": 0, "lat_deg": 0}, "to": {"lon_deg": 90, "lat_deg": 0}, "granularity_deg": 1}
  ],
  "normals": [
    {"id": "p45", "at": {"lon_deg": 0, "lat_deg": 45}}
  ]
}`

const normalsSceneYAML = `
ellipsoid:
  radii: [1, 1, 0.7]
normals:
  - id: p45
    at: {lon_deg: 0, lat_deg: 45, height: 0.1}
satellites:
  - id: iss
    tle1: "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
    tle2: "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
`

func TestLoadScene_JSON(t *testing.T) {
	scene, err := LoadScene(strings.NewReader(curvesSceneJSON), SceneJSON)
	if err != nil {
		t.Fatalf("LoadScene error: %v", err)
	}

	if scene.Shape.Preset != PresetScaledWgs84 {
		t.Fatalf("preset = %q, want %q", scene.Shape.Preset, PresetScaledWgs84)
	}
	if scene.Shape.SemiMinorAxis == nil || *scene.Shape.SemiMinorAxis != 0.7 {
		t.Fatalf("semi-minor axis = %v, want 0.7", scene.Shape.SemiMinorAxis)
	}
	if len(scene.Curves) != 2 || len(scene.Normals) != 1 || len(scene.Satellites) != 0 {
		t.Fatalf("got %d curves, %d normals, %d satellites; want 2, 1, 0",
			len(scene.Curves), len(scene.Normals), len(scene.Satellites))
	}

	demo := scene.Curves[0]
	if math.Abs(demo.Granularity-mgl64.DegToRad(5)) > 1e-15 {
		t.Fatalf("scene default granularity not applied: %v", demo.Granularity)
	}
	if math.Abs(demo.From.Longitude-mgl64.DegToRad(40)) > 1e-15 || math.Abs(demo.To.Latitude-mgl64.DegToRad(-30)) > 1e-15 {
		t.Fatalf("curve endpoints not converted to radians: %+v", demo)
	}
	if fine := scene.Curves[1]; math.Abs(fine.Granularity-mgl64.DegToRad(1)) > 1e-15 {
		t.Fatalf("per-curve granularity not applied: %v", fine.Granularity)
	}
}

func TestLoadScene_YAML(t *testing.T) {
	scene, err := LoadScene(strings.NewReader(normalsSceneYAML), SceneYAML)
	if err != nil {
		t.Fatalf("LoadScene error: %v", err)
	}
	if scene.Shape.Radii == nil || *scene.Shape.Radii != [3]float64{1, 1, 0.7} {
		t.Fatalf("radii = %v, want [1 1 0.7]", scene.Shape.Radii)
	}
	if len(scene.Normals) != 1 || scene.Normals[0].At.Height != 0.1 {
		t.Fatalf("normals = %+v", scene.Normals)
	}
	if len(scene.Satellites) != 1 || scene.Satellites[0].ID != "iss" {
		t.Fatalf("satellites = %+v", scene.Satellites)
	}
}

func TestLoadScene_StructuralErrors(t *testing.T) {
	cases := map[string]string{
		"no ellipsoid":     `{"curves": []}`,
		"empty curve id":   `{"ellipsoid": {"preset": "wgs84"}, "curves": [{"id": ""}]}`,
		"duplicate normal": `{"ellipsoid": {"preset": "wgs84"}, "normals": [{"id": "a"}, {"id": "a"}]}`,
		"negative default": `{"ellipsoid": {"preset": "wgs84"}, "granularity_deg": -1}`,
		"unknown field":    `{"ellipsoid": {"preset": "wgs84"}, "camera": {}}`,
		"bad json":         `{"ellipsoid": `,
	}
	for name, body := range cases {
		if _, err := LoadScene(strings.NewReader(body), SceneJSON); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadSceneFile_PicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "normals.yml")
	if err := os.WriteFile(yamlPath, []byte(normalsSceneYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSceneFile(yamlPath); err != nil {
		t.Fatalf("LoadSceneFile(yaml) error: %v", err)
	}

	jsonPath := filepath.Join(dir, "curves.json")
	if err := os.WriteFile(jsonPath, []byte(curvesSceneJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSceneFile(jsonPath); err != nil {
		t.Fatalf("LoadSceneFile(json) error: %v", err)
	}

	if _, err := LoadSceneFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

const triaxialSceneTOML = `
granularity_deg = 2.5

[ellipsoid]
radii = [3.0, 2.0, 1.0]

[[curves]]
id = "skew"
from = { lon_deg = 10.0, lat_deg = 20.0 }
to = { lon_deg = 100.0, lat_deg = -15.0 }
`

func TestLoadScene_TOML(t *testing.T) {
	scene, err := LoadScene(strings.NewReader(triaxialSceneTOML), SceneTOML)
	if err != nil {
		t.Fatalf("LoadScene error: %v", err)
	}
	if scene.Shape.Radii == nil || *scene.Shape.Radii != [3]float64{3, 2, 1} {
		t.Fatalf("radii = %v, want [3 2 1]", scene.Shape.Radii)
	}
	if len(scene.Curves) != 1 || math.Abs(scene.Curves[0].Granularity-mgl64.DegToRad(2.5)) > 1e-15 {
		t.Fatalf("curves = %+v", scene.Curves)
	}

	if _, err := LoadScene(strings.NewReader("[camera]\nfov = 1.0\n"), SceneTOML); err == nil {
		t.Fatalf("expected unknown table to fail")
	}
	if got := FormatFromPath("shapes/Triaxial.TOML"); got != SceneTOML {
		t.Fatalf("FormatFromPath = %v, want SceneTOML", got)
	}
}

func TestLoadScene_YAMLRejectsUnknownFields(t *testing.T) {
	cases := map[string]string{
		"misspelled key": "ellipsoid:\n  preset: wgs84\ngranularity_degs: 5\n",
		"nested key":     "ellipsoid:\n  preset: wgs84\n  flattening: 0.003\n",
	}
	for name, body := range cases {
		if _, err := LoadScene(strings.NewReader(body), SceneYAML); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
