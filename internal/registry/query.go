package registry

import (
	"slices"

	"github.com/ki-SH-an/NO2-predictor/internal/domain"
)

// QueryAreas returns the areas in filter's region (all areas for the zero
// Region) sorted by descending concentration. Equal concentrations keep
// catalog order. The result is a fresh slice the caller may modify.
func (c *Catalog) QueryAreas(filter domain.Region) []domain.AreaRecord {
	out := make([]domain.AreaRecord, 0, len(c.areas))
	for _, a := range c.areas {
		if filter.Matches(a.Region) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.AreaRecord) int {
		switch {
		case a.Concentration > b.Concentration:
			return -1
		case a.Concentration < b.Concentration:
			return 1
		default:
			return 0
		}
	})
	return out
}

// HeatPoints returns overlay points for the same set QueryAreas would return.
func (c *Catalog) HeatPoints(filter domain.Region) []domain.HeatPoint {
	areas := c.QueryAreas(filter)
	points := make([]domain.HeatPoint, len(areas))
	for i, a := range areas {
		points[i] = domain.HeatPoint{
			Latitude:  a.Coordinate.Latitude,
			Longitude: a.Coordinate.Longitude,
			Weight:    domain.HeatWeight(a.Concentration),
		}
	}
	return points
}

// FilterOption is one entry of the region filter control.
type FilterOption struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Regions returns the filter choices offered to users: "All" followed by
// every region that has at least one area.
func (c *Catalog) Regions() []FilterOption {
	opts := []FilterOption{{Label: domain.FilterAll, Count: len(c.areas)}}
	for _, r := range domain.AllRegions {
		n := 0
		for _, a := range c.areas {
			if a.Region == r {
				n++
			}
		}
		if n > 0 {
			opts = append(opts, FilterOption{Label: string(r), Count: n})
		}
	}
	return opts
}
