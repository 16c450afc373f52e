package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ki-SH-an/NO2-predictor/internal/adapter/chart"
	"github.com/ki-SH-an/NO2-predictor/internal/adapter/geojson"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/selection"
)

const (
	maxSelectionBody     = 1 << 10
	msgMissingCoordinate = "Missing latitude or longitude"
)

type selectRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r selectRequest) coordinate() (domain.Coordinate, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}, true
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectionBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	coord, ok := req.coordinate()
	if !ok {
		writeError(w, http.StatusBadRequest, msgMissingCoordinate)
		return
	}
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many selections, slow down")
		return
	}

	state, err := s.selector.Select(coord)
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, selection.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		s.logger.Error("select failed", "error", err)
		writeError(w, http.StatusInternalServerError, "selection failed")
	default:
		writeJSON(w, http.StatusAccepted, state)
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.selector.Current())
}

func regionParam(r *http.Request) (domain.Region, error) {
	return domain.ParseRegion(r.URL.Query().Get("region"))
}

func (s *Server) handleAreas(w http.ResponseWriter, r *http.Request) {
	region, err := regionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.QueryAreas(region))
}

func (s *Server) handleAreasGeoJSON(w http.ResponseWriter, r *http.Request) {
	region, err := regionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := geojson.Marshal(s.catalog.QueryAreas(region))
	if err != nil {
		s.logger.Error("encode areas", "error", err)
		writeError(w, http.StatusInternalServerError, "encode areas")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	region, err := regionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.HeatPoints(region))
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Regions())
}

func coordinateParams(r *http.Request) (domain.Coordinate, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid lat %q", q.Get("lat"))
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid lng %q", q.Get("lng"))
	}
	c := domain.Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return domain.Coordinate{}, err
	}
	return c, nil
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	c, err := coordinateParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.trend.Generate(c))
}

func (s *Server) handleTrendPNG(w http.ResponseWriter, r *http.Request) {
	c, err := coordinateParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderTrend(&buf, s.trend.Generate(c)); err != nil {
		s.logger.Error("render trend", "error", err)
		writeError(w, http.StatusInternalServerError, "render trend")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
