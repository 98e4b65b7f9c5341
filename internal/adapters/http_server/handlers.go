// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
)

type Handlers struct {
	Dashboard *app.DashboardService
	Analysis  *app.AnalysisService
	Places    *app.PlacesService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type envelope struct {
	Status     string            `json:"status"`
	DataSource domain.Provenance `json:"dataSource,omitempty"`
	Data       any               `json:"data"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/reviews", h.listReviews)
		r.Get("/properties", h.listProperties)
		r.With(CacheControl("public, max-age=60")).Get("/public/properties/{slug}", h.publicProperty)

		r.Group(func(r chi.Router) {
			r.Use(CacheControl("no-store"))
			r.Post("/reviews/{id}/approve", h.moderate(domain.DecisionApprove))
			r.Post("/reviews/{id}/reject", h.moderate(domain.DecisionReject))
		})

		r.Post("/analysis", h.batchAnalysis)
		r.Post("/analysis/properties/{name}", h.analyzeProperty)
		r.Get("/analysis/status", h.analysisStatus)
		r.Delete("/analysis/cache", h.clearAnalysisCache)

		r.Get("/places/search", h.searchPlaces)
		r.Get("/places/{placeID}/reviews", h.placeReviews)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses. Anything unrecognised
// is an upstream failure.
func writeError(w http.ResponseWriter, err error) {
	var pe *domain.PreconditionError
	switch {
	case errors.As(err, &pe) && errors.Is(err, domain.ErrInsufficientData):
		writeProblem(w, http.StatusUnprocessableEntity, "Insufficient Data", err.Error())
	case errors.As(err, &pe) && errors.Is(err, domain.ErrAlreadyInProgress):
		w.Header().Set("Retry-After", "5")
		writeProblem(w, http.StatusConflict, "Analysis In Progress", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		writeProblem(w, http.StatusServiceUnavailable, "Not Configured", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", "2")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", err.Error())
	default:
		log.Error().Err(err).Msg("upstream failure")
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", err.Error())
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable answers GETs with a weak ETag and honours If-None-Match.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, prov, err := h.Dashboard.Reviews(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, envelope{
		Status:     "success",
		DataSource: prov,
		Data: map[string]any{
			"reviews": reviews,
			"total":   len(reviews),
		},
	})
}

func filterCriteria(q url.Values) (domain.FilterCriteria, error) {
	c := domain.FilterCriteria{
		Search:   q.Get("search"),
		Channel:  q.Get("channel"),
		Category: q.Get("category"),
		Time:     q.Get("time"),
	}
	if rs := q.Get("rating"); rs != "" {
		n, err := strconv.Atoi(rs)
		if err != nil || n < 1 || n > 5 {
			return c, errors.New("rating must be an integer between 1 and 5")
		}
		c.Rating = n
	}
	return c, nil
}

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	c, err := filterCriteria(r.URL.Query())
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	props, prov, err := h.Dashboard.Properties(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, envelope{
		Status:     "success",
		DataSource: prov,
		Data: map[string]any{
			"properties": props,
			"total":      len(props),
		},
	})
}

func (h *Handlers) moderate(d domain.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
			return
		}
		p, err := h.Dashboard.Moderate(r.Context(), id, d)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Status: "success", Data: p})
	}
}

func (h *Handlers) publicProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Dashboard.PublicProperty(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, envelope{Status: "success", Data: p})
}

type batchRequest struct {
	PropertyNames []string `json:"propertyNames"`
	ForceRefresh  bool     `json:"forceRefresh"`
}

func (h *Handlers) batchAnalysis(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}

	props, _, err := h.Dashboard.Properties(r.Context(), domain.FilterCriteria{})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(req.PropertyNames) > 0 {
		want := make(map[string]bool, len(req.PropertyNames))
		for _, n := range req.PropertyNames {
			want[n] = true
		}
		kept := props[:0]
		for _, p := range props {
			if want[p.Name] {
				kept = append(kept, p)
			}
		}
		props = kept
	}

	var analyses []domain.PropertyAnalysis
	if req.ForceRefresh {
		for _, p := range props {
			a, err := h.Analysis.AnalyzeProperty(r.Context(), p.Name, p.Reviews, true)
			if err != nil {
				log.Warn().Err(err).Str("property", p.Name).Msg("forced analysis skipped")
				continue
			}
			analyses = append(analyses, a)
		}
	} else {
		analyses = h.Analysis.BatchAnalyze(r.Context(), props)
	}
	if analyses == nil {
		analyses = []domain.PropertyAnalysis{}
	}
	writeJSON(w, http.StatusOK, envelope{
		Status: "success",
		Data: map[string]any{
			"analyses": analyses,
			"total":    len(analyses),
		},
	})
}

func (h *Handlers) findProperty(r *http.Request, name string) (domain.PropertyStatistics, error) {
	props, _, err := h.Dashboard.Properties(r.Context(), domain.FilterCriteria{})
	if err != nil {
		return domain.PropertyStatistics{}, err
	}
	for _, p := range props {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.PropertyStatistics{}, fmt.Errorf("property %q: %w", name, domain.ErrNotFound)
}

func (h *Handlers) analyzeProperty(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid property", "property name is required")
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	p, err := h.findProperty(r, name)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.Analysis.AnalyzeProperty(r.Context(), p.Name, p.Reviews, force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: a})
}

func (h *Handlers) analysisStatus(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("property"))
	if name == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid property", "property query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: h.Analysis.Status(name)})
}

func (h *Handlers) clearAnalysisCache(w http.ResponseWriter, r *http.Request) {
	h.Analysis.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) placeReviews(w http.ResponseWriter, r *http.Request) {
	if h.Places == nil {
		writeError(w, domain.ErrNotConfigured)
		return
	}
	out, prov, err := h.Places.Reviews(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, envelope{Status: "success", DataSource: prov, Data: out})
}

func (h *Handlers) searchPlaces(w http.ResponseWriter, r *http.Request) {
	if h.Places == nil {
		writeError(w, domain.ErrNotConfigured)
		return
	}
	out, prov, err := h.Places.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, envelope{Status: "success", DataSource: prov, Data: out})
}
