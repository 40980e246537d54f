package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-kernel/model"
)

// WGS84 semi-axes in metres.
const (
	Wgs84EquatorialRadius = 6378137.0
	Wgs84PolarRadius      = 6356752.314245
)

var (
	ErrInvalidRadii       = errors.New("ellipsoid radii must be positive and finite")
	ErrAtCenter           = errors.New("point is at the ellipsoid centre")
	ErrNoConvergence      = errors.New("surface projection did not converge")
	ErrInvalidCoordinate  = errors.New("invalid geodetic coordinate")
	ErrUnknownEllipsoid   = errors.New("unknown ellipsoid")
	ErrInvalidGranularity = errors.New("granularity must be positive and finite")
	ErrDegenerateCurve    = errors.New("curve endpoint at the ellipsoid centre")
	ErrAntipodalEndpoints = errors.New("curve endpoints are antipodal; plane is undefined")
)

// Newton iteration for ScaleToGeodeticSurface stops when the implicit surface
// function is within this tolerance, or after maxSurfaceIterations steps.
// Bisection runs until the bracket cannot shrink.
const (
	surfaceTolerance     = 1e-10
	maxSurfaceIterations = 100
	maxBisectIterations  = 2000
)

// Ellipsoid is an immutable, centred, axis-aligned triaxial ellipsoid.
// The zero value is not usable; construct with NewEllipsoid or a preset.
type Ellipsoid struct {
	radii               mgl64.Vec3
	radiiSquared        mgl64.Vec3
	radiiToTheFourth    mgl64.Vec3
	oneOverRadii        mgl64.Vec3
	oneOverRadiiSquared mgl64.Vec3
	minimumRadius       float64
	maximumRadius       float64
}

// NewEllipsoid validates the three semi-axes and caches derived values.
func NewEllipsoid(x, y, z float64) (Ellipsoid, error) {
	for _, r := range []float64{x, y, z} {
		if !(r > 0) || math.IsInf(r, 0) {
			return Ellipsoid{}, fmt.Errorf("NewEllipsoid(%v, %v, %v): %w", x, y, z, ErrInvalidRadii)
		}
	}
	r := mgl64.Vec3{x, y, z}
	return Ellipsoid{
		radii:               r,
		radiiSquared:        mgl64.Vec3{x * x, y * y, z * z},
		radiiToTheFourth:    mgl64.Vec3{x * x * x * x, y * y * y * y, z * z * z * z},
		oneOverRadii:        mgl64.Vec3{1 / x, 1 / y, 1 / z},
		oneOverRadiiSquared: mgl64.Vec3{1 / (x * x), 1 / (y * y), 1 / (z * z)},
		minimumRadius:       math.Min(x, math.Min(y, z)),
		maximumRadius:       math.Max(x, math.Max(y, z)),
	}, nil
}

// NewEllipsoidFromRadii is NewEllipsoid for a radii vector.
func NewEllipsoidFromRadii(radii mgl64.Vec3) (Ellipsoid, error) {
	return NewEllipsoid(radii[0], radii[1], radii[2])
}

// MustEllipsoid panics if the radii are invalid. Meant for constants.
func MustEllipsoid(x, y, z float64) Ellipsoid {
	e, err := NewEllipsoid(x, y, z)
	if err != nil {
		panic(err)
	}
	return e
}

// Wgs84 returns the WGS84 ellipsoid in metres.
func Wgs84() Ellipsoid {
	return MustEllipsoid(Wgs84EquatorialRadius, Wgs84EquatorialRadius, Wgs84PolarRadius)
}

// ScaledWgs84 returns WGS84 scaled so that the equatorial radius is 1.
func ScaledWgs84() Ellipsoid {
	return MustEllipsoid(1, 1, Wgs84PolarRadius/Wgs84EquatorialRadius)
}

// UnitSphere returns the sphere of radius 1.
func UnitSphere() Ellipsoid {
	return MustEllipsoid(1, 1, 1)
}

func (e Ellipsoid) Radii() mgl64.Vec3               { return e.radii }
func (e Ellipsoid) RadiiSquared() mgl64.Vec3        { return e.radiiSquared }
func (e Ellipsoid) OneOverRadiiSquared() mgl64.Vec3 { return e.oneOverRadiiSquared }
func (e Ellipsoid) MinimumRadius() float64          { return e.minimumRadius }
func (e Ellipsoid) MaximumRadius() float64          { return e.maximumRadius }

// IsSphere reports whether all three radii are equal.
func (e Ellipsoid) IsSphere() bool {
	return e.radii[0] == e.radii[1] && e.radii[1] == e.radii[2]
}

func (e Ellipsoid) String() string {
	return fmt.Sprintf("Ellipsoid(%g, %g, %g)", e.radii[0], e.radii[1], e.radii[2])
}

// CentricSurfaceNormal is the direction from the centre through p.
func CentricSurfaceNormal(p mgl64.Vec3) mgl64.Vec3 {
	return p.Normalize()
}

// GeodeticSurfaceNormal returns the outward unit normal of the tangent plane
// through the surface point p.
func (e Ellipsoid) GeodeticSurfaceNormal(p mgl64.Vec3) mgl64.Vec3 {
	return mulComponents(p, e.oneOverRadiiSquared).Normalize()
}

// GeodeticSurfaceNormalAt returns the normal for a geodetic position. It does
// not depend on the shape: geodetic latitude is defined by the normal.
func (e Ellipsoid) GeodeticSurfaceNormalAt(g model.Geodetic3D) mgl64.Vec3 {
	cosLat := math.Cos(g.Latitude)
	return mgl64.Vec3{
		cosLat * math.Cos(g.Longitude),
		cosLat * math.Sin(g.Longitude),
		math.Sin(g.Latitude),
	}
}

// ToVector3D converts a geodetic position to a Cartesian point.
func (e Ellipsoid) ToVector3D(g model.Geodetic3D) mgl64.Vec3 {
	n := e.GeodeticSurfaceNormalAt(g)
	k := mulComponents(e.radiiSquared, n)
	gamma := math.Sqrt(n.Dot(k))
	surface := k.Mul(1 / gamma)
	return surface.Add(n.Mul(g.Height))
}

// SurfacePoint converts a longitude/latitude pair to a point on the surface.
func (e Ellipsoid) SurfacePoint(g model.Geodetic2D) mgl64.Vec3 {
	return e.ToVector3D(g.WithHeight(0))
}

// ScaleToGeocentricSurface scales p along its own direction onto the surface.
func (e Ellipsoid) ScaleToGeocentricSurface(p mgl64.Vec3) (mgl64.Vec3, error) {
	s := p[0]*p[0]*e.oneOverRadiiSquared[0] +
		p[1]*p[1]*e.oneOverRadiiSquared[1] +
		p[2]*p[2]*e.oneOverRadiiSquared[2]
	if s == 0 {
		return mgl64.Vec3{}, ErrAtCenter
	}
	return p.Mul(1 / math.Sqrt(s)), nil
}

// ScaleToGeodeticSurface projects p onto the surface along the geodetic
// normal through the projected point.
//
// Points near the centre (tens of kilometres for WGS84) have more than one
// foot. The one returned lies on the shortest axis side that p has a
// component along, so a point just above the centre of WGS84 maps to the
// north pole region. Newton's method on the scale factor handles ordinary
// points and bisection takes over when it fails or lands on another root.
func (e Ellipsoid) ScaleToGeodeticSurface(p mgl64.Vec3) (mgl64.Vec3, error) {
	if p.LenSqr() == 0 {
		return mgl64.Vec3{}, ErrAtCenter
	}
	lo := e.alphaLowerBound(p)
	if alpha, ok := e.newtonAlpha(p); ok && alpha > lo {
		return e.footAt(p, alpha), nil
	}
	alpha, err := e.bisectAlpha(p, lo)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("ScaleToGeodeticSurface(%v): %w", p, err)
	}
	return e.footAt(p, alpha), nil
}

// surfaceFunc is the implicit surface function at the point p/(1+alpha/r²).
func (e Ellipsoid) surfaceFunc(p mgl64.Vec3, alpha float64) float64 {
	s := -1.0
	for i := range p {
		if p[i] == 0 {
			continue
		}
		d := 1 + alpha*e.oneOverRadiiSquared[i]
		s += p[i] * p[i] / (e.radiiSquared[i] * d * d)
	}
	return s
}

// footAt is p/(1+alpha/r²). Zero components stay zero.
func (e Ellipsoid) footAt(p mgl64.Vec3, alpha float64) mgl64.Vec3 {
	var s mgl64.Vec3
	for i := range p {
		if p[i] != 0 {
			s[i] = p[i] / (1 + alpha*e.oneOverRadiiSquared[i])
		}
	}
	return s
}

// alphaLowerBound is -r² for the smallest radius whose axis p has a
// component along. Above it the surface function is strictly decreasing.
func (e Ellipsoid) alphaLowerBound(p mgl64.Vec3) float64 {
	lo := math.Inf(-1)
	for i := range p {
		if p[i] != 0 && -e.radiiSquared[i] > lo {
			lo = -e.radiiSquared[i]
		}
	}
	return lo
}

func (e Ellipsoid) newtonAlpha(p mgl64.Vec3) (float64, bool) {
	inv2 := e.oneOverRadiiSquared
	beta := 1 / math.Sqrt(p[0]*p[0]*inv2[0]+p[1]*p[1]*inv2[1]+p[2]*p[2]*inv2[2])
	n := mulComponents(p.Mul(beta), inv2).Len()
	alpha := (1 - beta) * (p.Len() / n)

	x2, y2, z2 := p[0]*p[0], p[1]*p[1], p[2]*p[2]
	s, dSdA := 0.0, 1.0

	for i := 0; i < maxSurfaceIterations; i++ {
		alpha -= s / dSdA

		da := 1 + alpha*inv2[0]
		db := 1 + alpha*inv2[1]
		dc := 1 + alpha*inv2[2]
		da2, db2, dc2 := da*da, db*db, dc*dc

		s = x2/(e.radiiSquared[0]*da2) + y2/(e.radiiSquared[1]*db2) + z2/(e.radiiSquared[2]*dc2) - 1
		if math.Abs(s) <= surfaceTolerance {
			return alpha, true
		}
		dSdA = -2 * (x2/(e.radiiToTheFourth[0]*da2*da) +
			y2/(e.radiiToTheFourth[1]*db2*db) +
			z2/(e.radiiToTheFourth[2]*dc2*dc))
	}
	return 0, false
}

// bisectAlpha finds the root of the surface function in (lo, hi]. The
// function tends to +Inf at lo and is negative at hi = |p|·maxRadius.
func (e Ellipsoid) bisectAlpha(p mgl64.Vec3, lo float64) (float64, error) {
	hi := math.Max(p.Len()*e.maximumRadius, 1)
	if e.surfaceFunc(p, hi) > 0 {
		return 0, ErrNoConvergence
	}
	for i := 0; i < maxBisectIterations; i++ {
		mid := lo + (hi-lo)/2
		if mid <= lo || mid >= hi {
			break
		}
		switch f := e.surfaceFunc(p, mid); {
		case f == 0:
			return mid, nil
		case f > 0:
			lo = mid
		default:
			hi = mid
		}
	}
	return hi, nil
}

// ToGeodetic2D returns the longitude and geodetic latitude of p.
func (e Ellipsoid) ToGeodetic2D(p mgl64.Vec3) (model.Geodetic2D, error) {
	s, err := e.ScaleToGeodeticSurface(p)
	if err != nil {
		return model.Geodetic2D{}, err
	}
	return e.surfaceToGeodetic2D(s), nil
}

// ToGeodetic3D returns the geodetic position of p including its height above
// (positive) or below (negative) the surface.
func (e Ellipsoid) ToGeodetic3D(p mgl64.Vec3) (model.Geodetic3D, error) {
	s, err := e.ScaleToGeodeticSurface(p)
	if err != nil {
		return model.Geodetic3D{}, err
	}
	h := p.Sub(s)
	height := h.Len()
	if h.Dot(p) < 0 {
		height = -height
	}
	return e.surfaceToGeodetic2D(s).WithHeight(height), nil
}

func (e Ellipsoid) surfaceToGeodetic2D(s mgl64.Vec3) model.Geodetic2D {
	n := e.GeodeticSurfaceNormal(s)
	return model.Geodetic2D{
		Longitude: math.Atan2(n[1], n[0]),
		Latitude:  math.Atan2(n[2], math.Hypot(n[0], n[1])),
	}
}

// Intersections returns the distances along the normalised direction at which
// the ray from origin meets the surface, ascending. Negative distances lie
// behind the origin. A miss returns nil.
func (e Ellipsoid) Intersections(origin, direction mgl64.Vec3) []float64 {
	d := direction.Normalize()
	inv2 := e.oneOverRadiiSquared

	a := d[0]*d[0]*inv2[0] + d[1]*d[1]*inv2[1] + d[2]*d[2]*inv2[2]
	b := 2 * (origin[0]*d[0]*inv2[0] + origin[1]*d[1]*inv2[1] + origin[2]*d[2]*inv2[2])
	c := origin[0]*origin[0]*inv2[0] + origin[1]*origin[1]*inv2[1] + origin[2]*origin[2]*inv2[2] - 1

	disc := b*b - 4*a*c
	switch {
	case disc < 0 || math.IsNaN(disc):
		return nil
	case disc == 0:
		return []float64{-0.5 * b / a}
	}

	// Numerically stable quadratic roots.
	sign := -1.0
	if b > 0 {
		sign = 1.0
	}
	t := -0.5 * (b + sign*math.Sqrt(disc))
	r1, r2 := t/a, c/t
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	return []float64{r1, r2}
}

// EastNorthUp returns the local tangent frame at the surface point p. At the
// poles, where east is undefined, east is taken as +Y.
func (e Ellipsoid) EastNorthUp(p mgl64.Vec3) (east, north, up mgl64.Vec3) {
	up = e.GeodeticSurfaceNormal(p)
	east = mgl64.Vec3{0, 0, 1}.Cross(up)
	if east.Len() < 1e-12 {
		east = mgl64.Vec3{0, 1, 0}
	} else {
		east = east.Normalize()
	}
	north = up.Cross(east).Normalize()
	return east, north, up
}

func mulComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
