package core

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Endpoints closer than this (radians, seen from the centre) are treated
	// as coincident.
	coincidentAngle = 1e-12
	// Cross products below this fraction of |p||q| mark antipodal endpoints.
	antipodalRatio = 1e-12
	// Absorbs rounding when the arc is an exact multiple of the granularity.
	sampleCountSlack = 1e-12
)

// ComputeCurve samples the arc from p to q cut by the plane through the
// centre, p and q. Consecutive samples are at most granularity radians apart
// as seen from the centre. The first element is p and the last is q; the
// interior samples lie on the surface.
//
// Coincident endpoints yield the two-point curve [p, q]. Antipodal endpoints
// leave the plane undefined and are rejected with ErrAntipodalEndpoints.
func (e Ellipsoid) ComputeCurve(p, q mgl64.Vec3, granularity float64) ([]mgl64.Vec3, error) {
	if !(granularity > 0) || math.IsInf(granularity, 0) {
		return nil, fmt.Errorf("ComputeCurve granularity %v: %w", granularity, ErrInvalidGranularity)
	}
	if p.LenSqr() == 0 || q.LenSqr() == 0 {
		return nil, ErrDegenerateCurve
	}

	cross := p.Cross(q)
	crossLen := cross.Len()
	total := math.Atan2(crossLen, p.Dot(q))

	if total < coincidentAngle {
		return []mgl64.Vec3{p, q}, nil
	}
	if crossLen <= antipodalRatio*p.Len()*q.Len() {
		return nil, fmt.Errorf("ComputeCurve(%v, %v): %w", p, q, ErrAntipodalEndpoints)
	}

	n := CurveSampleCount(total, granularity)
	axis := cross.Mul(1 / crossLen)
	step := total / float64(n-1)

	positions := make([]mgl64.Vec3, 0, n)
	positions = append(positions, p)
	for i := 1; i < n-1; i++ {
		rotated := mgl64.QuatRotate(float64(i)*step, axis).Rotate(p)
		onSurface, err := e.ScaleToGeocentricSurface(rotated)
		if err != nil {
			return nil, err
		}
		positions = append(positions, onSurface)
	}
	positions = append(positions, q)
	return positions, nil
}

// CurveSampleCount is the number of samples ComputeCurve emits for an arc of
// angle total radians at the given granularity. Always at least 2.
func CurveSampleCount(total, granularity float64) int {
	if total <= 0 || granularity <= 0 {
		return 2
	}
	segments := math.Ceil(total/granularity - sampleCountSlack)
	if segments < 1 {
		segments = 1
	}
	return int(segments) + 1
}

// CurvePlane returns an orthonormal basis of the plane through the centre, p
// and q: xAxis points at p and yAxis lies towards q.
func CurvePlane(p, q mgl64.Vec3) (xAxis, yAxis mgl64.Vec3, err error) {
	if p.LenSqr() == 0 || q.LenSqr() == 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, ErrDegenerateCurve
	}
	normal := p.Cross(q)
	if normal.Len() <= antipodalRatio*p.Len()*q.Len() {
		return mgl64.Vec3{}, mgl64.Vec3{}, fmt.Errorf("CurvePlane(%v, %v): %w", p, q, ErrAntipodalEndpoints)
	}
	return p.Normalize(), normal.Cross(p).Normalize(), nil
}
