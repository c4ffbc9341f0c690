package models

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// MaxS2Level is the finest s2 cell level.
const MaxS2Level = 30

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Cell returns a grid key rounding both coordinates to the given number of decimals.
func (l Location) Cell(precision int) string {
	if precision < 0 {
		precision = 0
	}
	return fmt.Sprintf("geo:%.*f,%.*f", precision, l.Lat, precision, l.Lng)
}

// S2Cell returns the token of the s2 cell at level containing l.
func (l Location) S2Cell(level int) string {
	if level < 0 {
		level = 0
	}
	if level > MaxS2Level {
		level = MaxS2Level
	}
	id := s2.CellIDFromLatLng(s2.LatLngFromDegrees(l.Lat, l.Lng)).Parent(level)
	return "s2:" + id.ToToken()
}
