package model

import (
	"fmt"
	"math"
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// Geodetic2D is a longitude/latitude pair in radians.
type Geodetic2D struct {
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
}

// Geodetic3D is a longitude/latitude pair in radians plus a height above the
// ellipsoid surface, in the same unit as the ellipsoid radii.
type Geodetic3D struct {
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Height    float64 `json:"height" yaml:"height"`
}

// Geodetic2DFromDegrees builds a Geodetic2D from degrees.
func Geodetic2DFromDegrees(lonDeg, latDeg float64) Geodetic2D {
	return Geodetic2D{Longitude: lonDeg * degToRad, Latitude: latDeg * degToRad}
}

// Geodetic3DFromDegrees builds a Geodetic3D from degrees and a height.
func Geodetic3DFromDegrees(lonDeg, latDeg, height float64) Geodetic3D {
	return Geodetic3D{Longitude: lonDeg * degToRad, Latitude: latDeg * degToRad, Height: height}
}

// WithHeight lifts g to three dimensions.
func (g Geodetic2D) WithHeight(h float64) Geodetic3D {
	return Geodetic3D{Longitude: g.Longitude, Latitude: g.Latitude, Height: h}
}

// Surface drops the height.
func (g Geodetic3D) Surface() Geodetic2D {
	return Geodetic2D{Longitude: g.Longitude, Latitude: g.Latitude}
}

// Canonical wraps the longitude into [-π, π).
func (g Geodetic2D) Canonical() Geodetic2D {
	g.Longitude = WrapLongitude(g.Longitude)
	return g
}

// Canonical wraps the longitude into [-π, π).
func (g Geodetic3D) Canonical() Geodetic3D {
	g.Longitude = WrapLongitude(g.Longitude)
	return g
}

// Validate rejects non-finite components and latitudes outside [-π/2, π/2].
func (g Geodetic2D) Validate() error {
	return validate(g.Longitude, g.Latitude, 0)
}

// Validate rejects non-finite components and latitudes outside [-π/2, π/2].
func (g Geodetic3D) Validate() error {
	return validate(g.Longitude, g.Latitude, g.Height)
}

// Degrees returns longitude and latitude in degrees.
func (g Geodetic2D) Degrees() (lonDeg, latDeg float64) {
	return g.Longitude * radToDeg, g.Latitude * radToDeg
}

// Degrees returns longitude and latitude in degrees.
func (g Geodetic3D) Degrees() (lonDeg, latDeg float64) {
	return g.Longitude * radToDeg, g.Latitude * radToDeg
}

// ApproxEqual compares the angles of both values with tolerance eps (radians).
// Longitudes are compared on the circle, so -π and π are equal.
func (g Geodetic2D) ApproxEqual(other Geodetic2D, eps float64) bool {
	return angleClose(g.Longitude, other.Longitude, eps) &&
		math.Abs(g.Latitude-other.Latitude) <= eps
}

// ApproxEqual compares angles with angleEps (radians) and heights with heightEps.
func (g Geodetic3D) ApproxEqual(other Geodetic3D, angleEps, heightEps float64) bool {
	return g.Surface().ApproxEqual(other.Surface(), angleEps) &&
		math.Abs(g.Height-other.Height) <= heightEps
}

func (g Geodetic2D) String() string {
	lon, lat := g.Degrees()
	return fmt.Sprintf("(%.6f°, %.6f°)", lon, lat)
}

func (g Geodetic3D) String() string {
	lon, lat := g.Degrees()
	return fmt.Sprintf("(%.6f°, %.6f°, %.3f)", lon, lat, g.Height)
}

// WrapLongitude maps any finite angle into [-π, π).
func WrapLongitude(lon float64) float64 {
	w := math.Mod(lon+math.Pi, 2*math.Pi)
	if w < 0 {
		w += 2 * math.Pi
	}
	return w - math.Pi
}

func validate(lon, lat, h float64) error {
	for _, v := range []float64{lon, lat, h} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite geodetic component in (%v, %v, %v)", lon, lat, h)
		}
	}
	if lat < -math.Pi/2 || lat > math.Pi/2 {
		return fmt.Errorf("latitude %v outside [-π/2, π/2]", lat)
	}
	return nil
}

func angleClose(a, b, eps float64) bool {
	return math.Abs(WrapLongitude(a-b)) <= eps
}
