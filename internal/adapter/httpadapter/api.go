package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/collision-dashboard/internal/dashboard"
	"github.com/couchcryptid/collision-dashboard/internal/dataset"
	"github.com/couchcryptid/collision-dashboard/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// Query parameter names.
const (
	paramRows       = "rows"
	paramMinInjured = "min_injured"
	paramHour       = "hour"
	paramCategory   = "category"
	paramRaw        = "raw"
	paramTopN       = "n"
)

type tiersResponse struct {
	Tiers           []int             `json:"tiers"`
	DefaultRowLimit int               `json:"default_row_limit"`
	MinInjured      [2]int            `json:"min_injured_range"`
	DefaultInjured  int               `json:"default_min_injured"`
	Hours           [2]int            `json:"hour_range"`
	Categories      []domain.Category `json:"categories"`
	DefaultTopN     int               `json:"default_top_n"`
}

type cacheResponse struct {
	Entries []dataset.Entry `json:"entries"`
}

type invalidateResponse struct {
	Invalidated int `json:"invalidated"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTiers(w http.ResponseWriter, _ *http.Request) {
	defaults := s.dash.DefaultParams()
	sharedobs.WriteJSON(w, http.StatusOK, tiersResponse{
		Tiers:           s.dash.Tiers(),
		DefaultRowLimit: defaults.RowLimit,
		MinInjured:      [2]int{dashboard.MinInjuredLow, dashboard.MinInjuredHigh},
		DefaultInjured:  defaults.MinInjured,
		Hours:           [2]int{domain.MinHour, domain.MaxHour},
		Categories:      domain.Categories(),
		DefaultTopN:     defaults.TopN,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.dash.Build(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleInjuries(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.dash.InjuryMap(r.Context(), p.RowLimit, p.MinInjured)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleDensity(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.dash.DensityMap(r.Context(), p.RowLimit, p.Hour)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.dash.Histogram(r.Context(), p.RowLimit, p.Hour)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleStreets(w http.ResponseWriter, r *http.Request) {
	p, err := s.params(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.dash.TopStreets(r.Context(), p.RowLimit, p.Category, p.TopN)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleCacheEntries(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, cacheResponse{Entries: s.cache.Entries()})
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, invalidateResponse{Invalidated: s.cache.Invalidate()})
}

// params reads the dashboard controls from the query string. Absent values
// fall back to the page defaults.
func (s *Server) params(q url.Values) (dashboard.Params, error) {
	p := s.dash.DefaultParams()

	var err error
	if p.RowLimit, err = intParam(q, paramRows, p.RowLimit); err != nil {
		return p, err
	}
	if p.MinInjured, err = intParam(q, paramMinInjured, p.MinInjured); err != nil {
		return p, err
	}
	if p.Hour, err = intParam(q, paramHour, p.Hour); err != nil {
		return p, err
	}
	if p.TopN, err = intParam(q, paramTopN, p.TopN); err != nil {
		return p, err
	}
	if v := q.Get(paramCategory); v != "" {
		if p.Category, err = domain.ParseCategory(v); err != nil {
			return p, err
		}
	}
	if v := q.Get(paramRaw); v != "" {
		if p.ShowRaw, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("%w: %s must be a boolean, got %q", domain.ErrInvalidParameter, paramRaw, v)
		}
	}
	return p, nil
}

func intParam(q url.Values, name string, fallback int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidParameter, name, v)
	}
	return n, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: err.Error()})
}
