// Package registry holds the static catalog of high-NO₂ areas and the
// filter/sort query used by the map overlay and the area list.
package registry

import (
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
)

func area(name string, lat, lng, conc float64, region domain.Region) domain.AreaRecord {
	return domain.AreaRecord{
		Name:          name,
		Coordinate:    domain.Coordinate{Latitude: lat, Longitude: lng},
		Concentration: conc,
		Region:        region,
	}
}

// defaultAreas is the built-in catalog in declaration order. Ties in the
// sorted query keep this order.
var defaultAreas = []domain.AreaRecord{
	// North
	area("Delhi NCR", 28.6139, 77.2090, 162.4, domain.RegionNorth),
	area("Faridabad", 28.4089, 77.3178, 157.8, domain.RegionNorth),
	area("Ghaziabad", 28.6692, 77.4538, 155.3, domain.RegionNorth),
	area("Noida", 28.5355, 77.3910, 153.7, domain.RegionNorth),
	area("Gurugram", 28.4595, 77.0266, 151.2, domain.RegionNorth),
	area("Meerut", 28.9845, 77.7064, 144.8, domain.RegionNorth),
	area("Kanpur", 26.4499, 80.3319, 141.2, domain.RegionNorth),
	area("Agra", 27.1767, 78.0081, 138.5, domain.RegionNorth),
	area("Lucknow", 26.8467, 80.9462, 135.9, domain.RegionNorth),
	area("Amritsar", 31.6340, 74.8723, 119.7, domain.RegionNorth),

	// South
	area("Bengaluru", 12.9716, 77.5946, 128.5, domain.RegionSouth),
	area("Chennai", 13.0827, 80.2707, 135.2, domain.RegionSouth),
	area("Hyderabad", 17.3850, 78.4867, 131.8, domain.RegionSouth),
	area("Kochi", 9.9312, 76.2673, 115.6, domain.RegionSouth),
	area("Coimbatore", 11.0168, 76.9558, 118.9, domain.RegionSouth),
	area("Visakhapatnam", 17.6868, 83.2185, 122.4, domain.RegionSouth),
	area("Mysuru", 12.2958, 76.6394, 110.5, domain.RegionSouth),

	// East
	area("Patna", 25.5941, 85.1376, 133.2, domain.RegionEast),
	area("Muzaffarpur", 26.1197, 85.3910, 129.8, domain.RegionEast),
	area("Kolkata", 22.5726, 88.3639, 127.9, domain.RegionEast),

	// West
	area("Mumbai", 19.0760, 72.8777, 126.8, domain.RegionWest),
	area("Pune", 18.5204, 73.8567, 121.5, domain.RegionWest),
	area("Ahmedabad", 23.0225, 72.5714, 129.7, domain.RegionWest),
	area("Jodhpur", 26.2389, 73.0243, 122.3, domain.RegionWest),
}

// Catalog is an immutable set of area records. It is safe for concurrent use.
type Catalog struct {
	areas []domain.AreaRecord
}

// New returns a catalog over a copy of areas.
func New(areas []domain.AreaRecord) *Catalog {
	return &Catalog{areas: append([]domain.AreaRecord(nil), areas...)}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(defaultAreas)
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.areas)
}
