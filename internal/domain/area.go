package domain

import (
	"fmt"
	"strings"
)

// Region is a coarse geographic grouping of catalog areas.
type Region string

const (
	RegionNorth   Region = "North"
	RegionSouth   Region = "South"
	RegionEast    Region = "East"
	RegionWest    Region = "West"
	RegionCentral Region = "Central"
)

// AllRegions lists every region in declaration order.
var AllRegions = []Region{RegionNorth, RegionSouth, RegionEast, RegionWest, RegionCentral}

// FilterAll is the filter label that matches every region.
const FilterAll = "All"

// ParseRegion parses a user-supplied filter value. Empty and "All" (in any
// case) yield the zero Region, which matches every area.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, FilterAll) {
		return "", nil
	}
	for _, r := range AllRegions {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// Matches reports whether an area in region r passes filter f.
func (f Region) Matches(r Region) bool {
	return f == "" || f == r
}

// AreaRecord is a named high-concentration area shown on the overlay.
type AreaRecord struct {
	Name          string     `json:"name"`
	Coordinate    Coordinate `json:"coordinate"`
	Concentration float64    `json:"concentration"` // µg/m³
	Region        Region     `json:"region"`
}

// HeatPoint is a weighted point for the heat-map overlay.
type HeatPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Weight    float64 `json:"weight"`
}

// HeatWeight maps an area concentration to an overlay intensity.
func HeatWeight(concentration float64) float64 {
	return concentration / 200 * 2
}
