// Package geojson renders catalog areas as a GeoJSON FeatureCollection for
// map overlays.
package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/twpayne/go-geom"
	geomjson "github.com/twpayne/go-geom/encoding/geojson"
)

// Region marker colours used by the overlay.
var regionColors = map[domain.Region]string{
	domain.RegionNorth: "#ef4444",
	domain.RegionSouth: "#22c55e",
	domain.RegionEast:  "#eab308",
}

const defaultColor = "#a855f7"

// RegionColor returns the marker colour for r.
func RegionColor(r domain.Region) string {
	if c, ok := regionColors[r]; ok {
		return c
	}
	return defaultColor
}

// FeatureCollection converts areas to point features. Coordinates are in
// GeoJSON order (longitude, latitude).
func FeatureCollection(areas []domain.AreaRecord) *geomjson.FeatureCollection {
	fc := &geomjson.FeatureCollection{Features: make([]*geomjson.Feature, 0, len(areas))}
	for _, a := range areas {
		fc.Features = append(fc.Features, &geomjson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{a.Coordinate.Longitude, a.Coordinate.Latitude}),
			Properties: map[string]interface{}{
				"name":          a.Name,
				"region":        string(a.Region),
				"concentration": a.Concentration,
				"weight":        domain.HeatWeight(a.Concentration),
				"color":         RegionColor(a.Region),
			},
		})
	}
	return fc
}

// Marshal encodes areas as GeoJSON.
func Marshal(areas []domain.AreaRecord) ([]byte, error) {
	data, err := json.Marshal(FeatureCollection(areas))
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}
