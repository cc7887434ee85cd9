package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/analysis"
	"github.com/varunrout/energy-market-tracker/internal/market"
)

const dateLayout = "2006-01-02"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"version": "1.0",
	}
	if s.metrics != nil {
		if snapshot, err := s.metrics.Snapshot(); err == nil {
			body["metrics"] = snapshot
		}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, body)
}

// handlePrices returns the day-ahead series for ?date= (default: tomorrow).
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "price sources not configured")
		return
	}

	date := time.Now().UTC().AddDate(0, 0, 1)
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	series, err := s.provider.DayAheadPrices(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// handlePriceHistory returns stored prices for ?from=&to= (default: last 7 days).
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	points, ok := s.storedRange(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points, "count": len(points)})
}

func (s *Server) handleVolatility(w http.ResponseWriter, r *http.Request) {
	points, ok := s.storedRange(w, r)
	if !ok {
		return
	}

	window := s.analysis.VolatilityWindow
	if v := r.URL.Query().Get("window"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "window must be a positive integer")
			return
		}
		window = parsed
	}

	vol, err := analysis.Volatility(points, window)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"window": window, "points": vol})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	points, ok := s.storedRange(w, r)
	if !ok {
		return
	}

	threshold := s.analysis.AnomalyZScore
	if v := r.URL.Query().Get("zscore"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "zscore must be positive")
			return
		}
		threshold = parsed
	}

	scored := analysis.DetectAnomalies(points, threshold)
	flagged := 0
	for _, p := range scored {
		if p.IsAnomaly {
			flagged++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"zscore":  threshold,
		"points":  scored,
		"flagged": flagged,
	})
}

func (s *Server) handleSeasonal(w http.ResponseWriter, r *http.Request) {
	points, ok := s.storedRange(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysis.SeasonalPatterns(points))
}

func (s *Server) handlePeakOffPeak(w http.ResponseWriter, r *http.Request) {
	points, ok := s.storedRange(w, r)
	if !ok {
		return
	}

	ratio, err := analysis.PeakOffPeakRatio(points, s.analysis.PeakHourStart, s.analysis.PeakHourEnd)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"peak_hours": [2]int{s.analysis.PeakHourStart, s.analysis.PeakHourEnd},
		"ratio":      ratio,
	})
}

// storedRange parses ?from=&to= and loads the stored points. It writes the
// error response itself and reports false when the handler should stop.
func (s *Server) storedRange(w http.ResponseWriter, r *http.Request) ([]market.PricePoint, bool) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "price store not configured")
		return nil, false
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -7)

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return nil, false
		}
		from = parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return nil, false
		}
		to = parsed
	}
	if !from.Before(to) {
		writeError(w, http.StatusBadRequest, "from must precede to")
		return nil, false
	}

	points, err := s.store.PricesBetween(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return points, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, status, map[string]any{"statusCode": status, "message": msg})
}
