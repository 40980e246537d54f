package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-kernel/model"
)

// Names of the built-in shapes.
const (
	PresetWgs84       = "wgs84"
	PresetScaledWgs84 = "scaled-wgs84"
	PresetUnitSphere  = "unit-sphere"
)

var presets = map[string]func() Ellipsoid{
	PresetWgs84:       Wgs84,
	PresetScaledWgs84: ScaledWgs84,
	PresetUnitSphere:  UnitSphere,
}

// Preset returns a built-in shape by name.
func Preset(name string) (Ellipsoid, bool) {
	fn, ok := presets[name]
	if !ok {
		return Ellipsoid{}, false
	}
	return fn(), true
}

// PresetNames lists the built-in shape names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShapeResolver looks up named ellipsoids.
type ShapeResolver interface {
	Ellipsoid(name string) (Ellipsoid, bool)
}

// ResolverFunc adapts a function to ShapeResolver.
type ResolverFunc func(name string) (Ellipsoid, bool)

func (f ResolverFunc) Ellipsoid(name string) (Ellipsoid, bool) { return f(name) }

// PresetResolver resolves only the built-in shapes.
var PresetResolver ShapeResolver = ResolverFunc(Preset)

// ResolveShape turns a reference into a concrete ellipsoid. Explicit radii
// win over a preset name.
func ResolveShape(ref EllipsoidRef, resolver ShapeResolver) (Ellipsoid, error) {
	var (
		e   Ellipsoid
		err error
	)
	switch {
	case ref.Radii != nil:
		e, err = NewEllipsoidFromRadii(mgl64.Vec3(*ref.Radii))
		if err != nil {
			return Ellipsoid{}, err
		}
	default:
		if resolver == nil {
			resolver = PresetResolver
		}
		var ok bool
		e, ok = resolver.Ellipsoid(ref.Preset)
		if !ok {
			return Ellipsoid{}, fmt.Errorf("%q: %w", ref.Preset, ErrUnknownEllipsoid)
		}
	}

	if ref.SemiMinorAxis != nil {
		r := e.Radii()
		return NewEllipsoid(r[0], r[1], *ref.SemiMinorAxis)
	}
	return e, nil
}

// EllipsoidSummary describes the shape a scene was evaluated on.
type EllipsoidSummary struct {
	Radii         mgl64.Vec3 `json:"radii"`
	MinimumRadius float64    `json:"minimum_radius"`
	MaximumRadius float64    `json:"maximum_radius"`
}

// CurveResult is a sampled curve plus the reference plane it lies in.
type CurveResult struct {
	ID          string             `json:"id"`
	Granularity float64            `json:"granularity"`
	Points      []mgl64.Vec3       `json:"points"`
	Geodetic    []model.Geodetic3D `json:"geodetic"`
	PlaneXAxis  mgl64.Vec3         `json:"plane_x_axis"`
	PlaneYAxis  mgl64.Vec3         `json:"plane_y_axis"`
}

// NormalResult compares the geodetic and geocentric normals at one position.
type NormalResult struct {
	ID             string           `json:"id"`
	At             model.Geodetic3D `json:"at"`
	Point          mgl64.Vec3       `json:"point"`
	GeodeticNormal mgl64.Vec3       `json:"geodetic_normal"`
	CentricNormal  mgl64.Vec3       `json:"centric_normal"`
	East           mgl64.Vec3       `json:"east"`
	North          mgl64.Vec3       `json:"north"`
	// DivergenceDeg is the angle between the two normals.
	DivergenceDeg float64 `json:"divergence_deg"`
}

// SatelliteResult is a satellite's position at the evaluation time.
type SatelliteResult struct {
	ID       string           `json:"id"`
	Position mgl64.Vec3       `json:"position"`
	SubPoint model.Geodetic3D `json:"sub_point"`
}

// SceneResult is everything EvaluateScene computed.
type SceneResult struct {
	Ellipsoid  EllipsoidSummary  `json:"ellipsoid"`
	Curves     []CurveResult     `json:"curves"`
	Normals    []NormalResult    `json:"normals"`
	Satellites []SatelliteResult `json:"satellites"`

	shape Ellipsoid
}

// Shape returns the ellipsoid the result was computed on.
func (r *SceneResult) Shape() Ellipsoid { return r.shape }

// PointCount is the total number of curve samples.
func (r *SceneResult) PointCount() int {
	n := 0
	for _, c := range r.Curves {
		n += len(c.Points)
	}
	return n
}

// EvaluateScene computes every curve, normal and satellite of scene. The
// shape is resolved through resolver (nil means presets only); satellites are
// propagated to at.
func EvaluateScene(scene *Scene, resolver ShapeResolver, at time.Time) (*SceneResult, error) {
	if scene == nil {
		return nil, fmt.Errorf("EvaluateScene: scene is nil")
	}
	e, err := ResolveShape(scene.Shape, resolver)
	if err != nil {
		return nil, fmt.Errorf("EvaluateScene: %w", err)
	}

	res := &SceneResult{
		Ellipsoid: EllipsoidSummary{
			Radii:         e.Radii(),
			MinimumRadius: e.MinimumRadius(),
			MaximumRadius: e.MaximumRadius(),
		},
		Curves:     make([]CurveResult, 0, len(scene.Curves)),
		Normals:    make([]NormalResult, 0, len(scene.Normals)),
		Satellites: make([]SatelliteResult, 0, len(scene.Satellites)),
		shape:      e,
	}

	for _, c := range scene.Curves {
		cr, err := evaluateCurve(e, c)
		if err != nil {
			return nil, fmt.Errorf("EvaluateScene: curve %q: %w", c.ID, err)
		}
		res.Curves = append(res.Curves, cr)
	}

	for _, n := range scene.Normals {
		if err := n.At.Validate(); err != nil {
			return nil, fmt.Errorf("EvaluateScene: normal %q: %w: %v", n.ID, ErrInvalidCoordinate, err)
		}
		p := e.ToVector3D(n.At)
		detic := e.GeodeticSurfaceNormal(p)
		centric := CentricSurfaceNormal(p)
		east, north, _ := e.EastNorthUp(p)
		res.Normals = append(res.Normals, NormalResult{
			ID:             n.ID,
			At:             n.At.Canonical(),
			Point:          p,
			GeodeticNormal: detic,
			CentricNormal:  centric,
			East:           east,
			North:          north,
			DivergenceDeg:  mgl64.RadToDeg(AngleBetween(detic, centric)),
		})
	}

	for _, s := range scene.Satellites {
		track, err := NewOrbitalTrack(s.Line1, s.Line2)
		if err != nil {
			return nil, fmt.Errorf("EvaluateScene: satellite %q: %w", s.ID, err)
		}
		pos := track.PositionAt(at)
		sub, err := e.ToGeodetic3D(pos)
		if err != nil {
			return nil, fmt.Errorf("EvaluateScene: satellite %q: %w", s.ID, err)
		}
		res.Satellites = append(res.Satellites, SatelliteResult{ID: s.ID, Position: pos, SubPoint: sub})
	}

	return res, nil
}

func evaluateCurve(e Ellipsoid, c CurveSpec) (CurveResult, error) {
	for _, g := range []model.Geodetic2D{c.From, c.To} {
		if err := g.Validate(); err != nil {
			return CurveResult{}, fmt.Errorf("%w: %v", ErrInvalidCoordinate, err)
		}
	}
	p := e.SurfacePoint(c.From)
	q := e.SurfacePoint(c.To)

	points, err := e.ComputeCurve(p, q, c.Granularity)
	if err != nil {
		return CurveResult{}, err
	}
	geodetic := make([]model.Geodetic3D, 0, len(points))
	for _, pt := range points {
		g, err := e.ToGeodetic3D(pt)
		if err != nil {
			return CurveResult{}, err
		}
		geodetic = append(geodetic, g)
	}

	cr := CurveResult{
		ID:          c.ID,
		Granularity: c.Granularity,
		Points:      points,
		Geodetic:    geodetic,
	}
	// Coincident endpoints have no plane; the curve itself is still valid.
	if x, y, err := CurvePlane(p, q); err == nil {
		cr.PlaneXAxis, cr.PlaneYAxis = x, y
	}
	return cr, nil
}
