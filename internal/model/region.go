package model

import "math"

const earthRadiusMeters = 6371000

// Bounds is a lat/lng rectangle.
type Bounds struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// Region is a named search area for candidate discovery.
type Region struct {
	Name   string `json:"name" yaml:"name"`
	Bounds Bounds `json:"bounds" yaml:"bounds"`
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() (lat, lng float64) {
	return (b.North + b.South) / 2, (b.East + b.West) / 2
}

// RadiusMeters returns half the diagonal of the bounds, for providers
// that take a center-plus-radius search area.
func (b Bounds) RadiusMeters() float64 {
	lat1 := b.South * math.Pi / 180
	lat2 := b.North * math.Pi / 180
	dlat := lat2 - lat1
	dlng := (b.East - b.West) * math.Pi / 180
	x := earthRadiusMeters * dlat
	y := earthRadiusMeters * math.Cos(lat1) * dlng
	return math.Sqrt(x*x+y*y) / 2
}
