// Package trend produces the illustrative monthly NO₂ history shown next to
// a prediction. The series is synthetic: it is derived from the coordinate
// with a seasonal wave, a yearly drift and uniform noise, and carries no
// measured data.
package trend

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ki-SH-an/NO2-predictor/internal/domain"
)

const (
	FirstYear = 2019
	LastYear  = 2024

	seasonalAmplitude = 0.2
	yearlyDrift       = 0.05
	noiseAmplitude    = 0.1
)

// Point is one month of the series.
type Point struct {
	Label         string  `json:"label"` // "Jan 2019"
	Year          int     `json:"year"`
	Month         int     `json:"month"` // 1-12
	Raw           float64 `json:"raw"`
	Concentration float64 `json:"concentration"` // Raw scaled to µg/m³
}

// Series is the synthetic history for one coordinate.
type Series struct {
	Coordinate domain.Coordinate `json:"coordinate"`
	Points     []Point           `json:"points"`
}

// Generator builds series from a random source. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a generator drawing noise from src. A nil src uses a
// randomly seeded PCG source.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rng: rand.New(src)}
}

// Generate returns one point per month from January FirstYear through
// December LastYear.
func (g *Generator) Generate(c domain.Coordinate) Series {
	base := (math.Abs(c.Latitude) + math.Abs(c.Longitude)) / 100
	points := make([]Point, 0, (LastYear-FirstYear+1)*12)

	g.mu.Lock()
	defer g.mu.Unlock()

	for yearIdx, year := 0, FirstYear; year <= LastYear; yearIdx, year = yearIdx+1, year+1 {
		for monthIdx := 0; monthIdx < 12; monthIdx++ {
			raw := base +
				math.Sin(float64(monthIdx)/12*2*math.Pi)*seasonalAmplitude +
				float64(yearIdx)*yearlyDrift +
				g.rng.Float64()*noiseAmplitude
			month := time.Month(monthIdx + 1)
			points = append(points, Point{
				Label:         fmt.Sprintf("%s %d", month.String()[:3], year),
				Year:          year,
				Month:         int(month),
				Raw:           raw,
				Concentration: raw * domain.ConcentrationScale,
			})
		}
	}
	return Series{Coordinate: c, Points: points}
}
