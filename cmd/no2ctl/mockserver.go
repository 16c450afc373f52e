package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/registry"
	"github.com/spf13/cobra"
)

const (
	earthRadiusKm = 6371.0
	// backgroundNO2 is the raw value returned far from every catalog area.
	backgroundNO2 = 0.00004
	influenceKm   = 150.0
)

func newMockServerCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mockserver",
		Short: "Serve a local stand-in for the prediction service",
		Long: `Serves GET / and POST /predict with the same contract as the real
prediction service. Values are interpolated from the area catalog so that
clicks near a listed city return roughly that city's concentration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := &http.Server{
				Addr:              addr,
				Handler:           newMockPredictionHandler(registry.Default()),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			a.logger.Info("mock prediction service listening", "addr", addr)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5000", "listen address")
	return cmd
}

func newMockPredictionHandler(catalog *registry.Catalog) http.Handler {
	areas := catalog.QueryAreas("")
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "NO2 Prediction API is running!")
	})

	mux.HandleFunc("POST /predict", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Latitude == nil || body.Longitude == nil {
			writeMockJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing latitude or longitude"})
			return
		}
		c := domain.Coordinate{Latitude: *body.Latitude, Longitude: *body.Longitude}
		writeMockJSON(w, http.StatusOK, map[string]float64{"NO2_prediction": interpolate(areas, c)})
	})

	return mux
}

// interpolate blends catalog concentrations by inverse squared distance.
// Areas farther than influenceKm are ignored, so the value drops straight to
// backgroundNO2 once no area is within that radius.
func interpolate(areas []domain.AreaRecord, c domain.Coordinate) float64 {
	var weighted, total float64
	for _, a := range areas {
		d := haversineKm(c, a.Coordinate)
		if d < 0.5 {
			return a.Concentration / domain.ConcentrationScale
		}
		if d > influenceKm {
			continue
		}
		w := 1 / (d * d)
		weighted += w * a.Concentration
		total += w
	}
	if total == 0 {
		return backgroundNO2
	}
	return weighted / total / domain.ConcentrationScale
}

func haversineKm(a, b domain.Coordinate) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(b.Latitude - a.Latitude)
	dLng := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func writeMockJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort mock response
}
