package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/globe-kernel/model"
)

// PositionSource yields an Earth-fixed Cartesian position for a given time.
type PositionSource interface {
	PositionAt(t time.Time) mgl64.Vec3
}

// StaticSite is a fixed geodetic location on an ellipsoid.
type StaticSite struct {
	position mgl64.Vec3
}

// NewStaticSite places a site at g on e.
func NewStaticSite(e Ellipsoid, g model.Geodetic3D) StaticSite {
	return StaticSite{position: e.ToVector3D(g)}
}

// PositionAt ignores t.
func (s StaticSite) PositionAt(time.Time) mgl64.Vec3 { return s.position }

// OrbitalTrack propagates a TLE with SGP4 and reports Earth-fixed positions.
// go-satellite works in kilometres; positions are returned in metres.
type OrbitalTrack struct {
	sat satellite.Satellite
}

// NewOrbitalTrack parses a two-line element set.
func NewOrbitalTrack(line1, line2 string) (*OrbitalTrack, error) {
	line1, line2 = strings.TrimSpace(line1), strings.TrimSpace(line2)
	if len(line1) < 69 || len(line2) < 69 || line1[0] != '1' || line2[0] != '2' {
		return nil, fmt.Errorf("NewOrbitalTrack: malformed TLE")
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalTrack{sat: sat}, nil
}

// PositionAt propagates the satellite to t and rotates it into the
// Earth-fixed frame.
func (o *OrbitalTrack) PositionAt(t time.Time) mgl64.Vec3 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	const kmToM = 1000.0
	return mgl64.Vec3{posECEF.X * kmToM, posECEF.Y * kmToM, posECEF.Z * kmToM}
}

// SubPoint returns the geodetic position of src at t relative to e.
func SubPoint(e Ellipsoid, src PositionSource, t time.Time) (model.Geodetic3D, error) {
	return e.ToGeodetic3D(src.PositionAt(t))
}

// GroundTrack samples count sub-points starting at start, step apart.
func GroundTrack(e Ellipsoid, src PositionSource, start time.Time, step time.Duration, count int) ([]model.Geodetic3D, error) {
	if count < 0 {
		return nil, fmt.Errorf("GroundTrack: negative count %d", count)
	}
	track := make([]model.Geodetic3D, 0, count)
	for i := 0; i < count; i++ {
		g, err := SubPoint(e, src, start.Add(time.Duration(i)*step))
		if err != nil {
			return nil, fmt.Errorf("GroundTrack sample %d: %w", i, err)
		}
		track = append(track, g)
	}
	return track, nil
}
