package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/globe-kernel/model"
)

func TestEvaluateScene_Curves(t *testing.T) {
	scene, err := LoadScene(strings.NewReader(curvesSceneJSON), SceneJSON)
	require.NoError(t, err)

	res, err := EvaluateScene(scene, nil, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, mgl64.Vec3{1, 1, 0.7}, res.Ellipsoid.Radii)
	assert.Equal(t, 0.7, res.Ellipsoid.MinimumRadius)
	assert.Equal(t, mgl64.Vec3{1, 1, 0.7}, res.Shape().Radii())

	require.Len(t, res.Curves, 2)
	fine := res.Curves[1]
	assert.Len(t, fine.Points, 91)
	assert.Len(t, fine.Geodetic, 91)
	assert.InDelta(t, mgl64.DegToRad(90), fine.Geodetic[90].Longitude, 1e-12)
	assert.Equal(t, res.PointCount(), len(res.Curves[0].Points)+91)

	demo := res.Curves[0]
	assert.InDelta(t, 0, demo.PlaneXAxis.Dot(demo.PlaneYAxis), 1e-12)
	assert.InDelta(t, 1, demo.PlaneXAxis.Len(), 1e-12)

	require.Len(t, res.Normals, 1)
	n := res.Normals[0]
	assert.InDelta(t, 1, n.GeodeticNormal.Len(), 1e-12)
	assert.Greater(t, n.DivergenceDeg, 5.0)
	assert.InDelta(t, 0, n.East.Dot(n.GeodeticNormal), 1e-12)
}

func TestEvaluateScene_SatellitesAndYAMLRadii(t *testing.T) {
	scene, err := LoadScene(strings.NewReader(normalsSceneYAML), SceneYAML)
	require.NoError(t, err)
	scene.Shape = EllipsoidRef{Preset: PresetWgs84}

	at := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	res, err := EvaluateScene(scene, PresetResolver, at)
	require.NoError(t, err)

	require.Len(t, res.Satellites, 1)
	sat := res.Satellites[0]
	assert.Greater(t, sat.SubPoint.Height, 300e3)
	assert.Less(t, sat.SubPoint.Height, 500e3)
	assert.Greater(t, sat.Position.Len(), Wgs84EquatorialRadius)
}

func TestEvaluateScene_Errors(t *testing.T) {
	_, err := EvaluateScene(nil, nil, time.Time{})
	assert.Error(t, err)

	_, err = EvaluateScene(&Scene{Shape: EllipsoidRef{Preset: "mars"}}, nil, time.Time{})
	assert.ErrorIs(t, err, ErrUnknownEllipsoid)

	zero := 0.0
	_, err = EvaluateScene(&Scene{Shape: EllipsoidRef{Preset: PresetWgs84, SemiMinorAxis: &zero}}, nil, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidRadii)

	antipodal := &Scene{
		Shape: EllipsoidRef{Preset: PresetUnitSphere},
		Curves: []CurveSpec{{
			ID:          "through-centre",
			From:        model.Geodetic2DFromDegrees(0, 0),
			To:          model.Geodetic2DFromDegrees(180, 0),
			Granularity: 0.1,
		}},
	}
	_, err = EvaluateScene(antipodal, nil, time.Time{})
	assert.ErrorIs(t, err, ErrAntipodalEndpoints)
	assert.Contains(t, err.Error(), "through-centre")

	badLat := &Scene{
		Shape:   EllipsoidRef{Preset: PresetUnitSphere},
		Normals: []NormalSpec{{ID: "n", At: model.Geodetic2DFromDegrees(0, 100).WithHeight(0)}},
	}
	_, err = EvaluateScene(badLat, nil, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	badTLE := &Scene{
		Shape:      EllipsoidRef{Preset: PresetWgs84},
		Satellites: []SatelliteSpec{{ID: "junk", Line1: "1", Line2: "2"}},
	}
	_, err = EvaluateScene(badTLE, nil, time.Time{})
	assert.Error(t, err)
}

func TestResolveShape(t *testing.T) {
	custom := ResolverFunc(func(name string) (Ellipsoid, bool) {
		if name == "moon" {
			return MustEllipsoid(1737400, 1737400, 1737400), true
		}
		return Ellipsoid{}, false
	})

	e, err := ResolveShape(EllipsoidRef{Preset: "moon"}, custom)
	require.NoError(t, err)
	assert.True(t, e.IsSphere())

	radii := [3]float64{3, 2, 1}
	e, err = ResolveShape(EllipsoidRef{Preset: "moon", Radii: &radii}, custom)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{3, 2, 1}, e.Radii())

	_, err = ResolveShape(EllipsoidRef{Preset: PresetWgs84}, custom)
	assert.True(t, errors.Is(err, ErrUnknownEllipsoid))

	assert.Equal(t, []string{PresetScaledWgs84, PresetUnitSphere, PresetWgs84}, PresetNames())
}
