package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/globe-kernel/model"
)

func TestHasLineOfSight_NoObstruction(t *testing.T) {
	// Two satellites high and on the same side of Earth, separated in Y.
	// The segment between them stays at x = 8000 km, well outside Earth.
	e := Wgs84()
	posA := mgl64.Vec3{8e6, 0, 0}
	posB := mgl64.Vec3{8e6, 1e6, 0}

	if !e.HasLineOfSight(posA, posB) {
		t.Errorf("expected LoS between two high satellites on same side of Earth")
	}
}

func TestHasLineOfSight_Obstructed(t *testing.T) {
	// Two points on opposite sides: the chord passes through the Earth.
	e := Wgs84()
	posA := mgl64.Vec3{7e6, 0, 0}
	posB := mgl64.Vec3{-7e6, 0, 0}

	if e.HasLineOfSight(posA, posB) {
		t.Errorf("expected LoS to be blocked by Earth")
	}
}

func TestHasLineOfSight_OverThePoleDependsOnFlattening(t *testing.T) {
	// The chord's closest approach is 6370 km above the north pole: inside a
	// sphere of equatorial radius, outside WGS84.
	posA := mgl64.Vec3{-1e6, 0, 6.37e6}
	posB := mgl64.Vec3{1e6, 0, 6.37e6}

	if !Wgs84().HasLineOfSight(posA, posB) {
		t.Errorf("expected LoS over the flattened pole")
	}
	sphere := MustEllipsoid(Wgs84EquatorialRadius, Wgs84EquatorialRadius, Wgs84EquatorialRadius)
	if sphere.HasLineOfSight(posA, posB) {
		t.Errorf("expected LoS to be blocked by the sphere")
	}
}

func TestHasLineOfSight_SamePoint(t *testing.T) {
	e := UnitSphere()
	if !e.HasLineOfSight(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{2, 0, 0}) {
		t.Errorf("a point outside the ellipsoid should see itself")
	}
	if e.HasLineOfSight(mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{0.5, 0, 0}) {
		t.Errorf("a point inside the ellipsoid should be blocked")
	}
}

func TestElevationDegrees(t *testing.T) {
	e := Wgs84()
	observer := mgl64.Vec3{Wgs84EquatorialRadius, 0, 0}

	cases := []struct {
		name   string
		target mgl64.Vec3
		want   float64
	}{
		{"overhead", mgl64.Vec3{Wgs84EquatorialRadius + 1000, 0, 0}, 90},
		{"horizon", mgl64.Vec3{Wgs84EquatorialRadius, 1000, 0}, 0},
		{"below", mgl64.Vec3{Wgs84EquatorialRadius - 1000, 0, 0}, -90},
		{"same point", observer, 90},
	}
	for _, tc := range cases {
		if got := e.ElevationDegrees(observer, tc.target); math.Abs(got-tc.want) > 1e-5 {
			t.Errorf("%s: ElevationDegrees = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestElevationDegrees_UsesGeodeticZenith(t *testing.T) {
	e := Wgs84()
	g := model.Geodetic3DFromDegrees(10, 45, 0)
	observer := e.ToVector3D(g)
	target := e.ToVector3D(model.Geodetic3DFromDegrees(10, 45, 5000))

	if got := e.ElevationDegrees(observer, target); math.Abs(got-90) > 1e-5 {
		t.Fatalf("ElevationDegrees along the geodetic normal = %v, want 90", got)
	}

	// Straight up along the geocentric direction is visibly off zenith.
	centric := observer.Add(CentricSurfaceNormal(observer).Mul(5000))
	if got := e.ElevationDegrees(observer, centric); got > 89.9 {
		t.Fatalf("ElevationDegrees along the geocentric normal = %v, want < 89.9", got)
	}
}
