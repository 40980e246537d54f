package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AngleBetween returns the angle between a and b as seen from the origin,
// in radians. atan2 keeps it accurate near 0 and π.
func AngleBetween(a, b mgl64.Vec3) float64 {
	return math.Atan2(a.Cross(b).Len(), a.Dot(b))
}

// HasLineOfSight checks whether the straight segment between p1 and p2 stays
// outside the ellipsoid. Touching the surface counts as blocked.
//
// The test runs in the frame where the ellipsoid is the unit sphere; the
// scaling is affine, so segments map to segments.
func (e Ellipsoid) HasLineOfSight(p1, p2 mgl64.Vec3) bool {
	s1 := mulComponents(p1, e.oneOverRadii)
	s2 := mulComponents(p2, e.oneOverRadii)

	v := s2.Sub(s1)
	a := v.Dot(v)
	if a == 0 {
		// Same point: visible only if it is outside.
		return s1.Dot(s1) > 1
	}

	// Closest point on the segment to the centre; t* minimises |s1 + t v|^2.
	t := mgl64.Clamp(-s1.Dot(v)/a, 0, 1)
	closest := s1.Add(v.Mul(t))
	return closest.Dot(closest) > 1
}

// ElevationDegrees returns the elevation angle of target as seen from
// observer, in degrees. 0° = horizon of the geodetic tangent plane,
// 90° = along the geodetic normal.
func (e Ellipsoid) ElevationDegrees(observer, target mgl64.Vec3) float64 {
	v := target.Sub(observer)
	vNorm := v.Len()
	if vNorm == 0 || observer.LenSqr() == 0 {
		return 90
	}
	zenith := e.GeodeticSurfaceNormal(observer)

	cosGamma := mgl64.Clamp(v.Dot(zenith)/vNorm, -1, 1)
	return 90.0 - mgl64.RadToDeg(math.Acos(cosGamma))
}
