package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"patdash/internal/log"
	"patdash/internal/source"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", s.page()); err != nil {
		s.requestLogger(r).Failure(r.Context(), "Index template execution failed", log.OpRender, err,
			log.FieldTemplate, "index.html")
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

// handleOverview renders the metrics, chart and grid partial.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	snap, err := s.load(r.Context(), false)
	if err != nil {
		s.requestLogger(r).Failure(r.Context(), "Overview load failed", log.OpFetch, err)
	}
	s.renderOverview(w, r, newOverview(snap, err))
}

// handleRefresh drops the cached grid and re-renders the overview.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ip := extractClientIP(r)
	if !s.limiter.allow(ip) {
		s.requestLogger(r).WarnContext(r.Context(), "Refresh rate limit exceeded", log.FieldClientIP, ip)
		w.Header().Set("Retry-After", "60")
		http.Error(w, "Muitas atualizações. Tente novamente em instantes.", http.StatusTooManyRequests)
		return
	}
	snap, err := s.load(r.Context(), true)
	if err != nil {
		s.requestLogger(r).Failure(r.Context(), "Manual refresh failed", log.OpRefresh, err)
	} else {
		s.requestLogger(r).InfoContext(r.Context(), "Manual refresh completed",
			log.FieldProfile, snap.Profile.Name,
			log.FieldRecords, snap.Table.Len())
	}
	s.renderOverview(w, r, newOverview(snap, err))
}

func (s *Server) renderOverview(w http.ResponseWriter, r *http.Request, v overviewView) {
	v.RefreshSeconds = int(s.interval / time.Second)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		msg := v.Error
		if msg == "" {
			msg = v.Warning
		}
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">` + template.HTMLEscapeString(msg) + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "overview.html", v); err != nil {
		s.requestLogger(r).Failure(r.Context(), "Overview template execution failed", log.OpRender, err,
			log.FieldTemplate, "overview.html")
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Erro ao montar o painel</div></section>`))
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	snap, err := s.load(r.Context(), false)
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newRecordsResponse(snap))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.load(r.Context(), false)
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newSummaryResponse(snap))
}

// writeLoadError maps a fetch failure to 502 and anything else to 500.
func (s *Server) writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	s.requestLogger(r).Failure(r.Context(), "API load failed", log.OpFetch, err)
	var fe *source.FetchError
	if errors.As(err, &fe) {
		s.writeJSON(w, r, http.StatusBadGateway, errorResponse{Error: msgFetchFailed, Detail: fe.Err.Error()})
		return
	}
	s.writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: msgInternal})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.requestLogger(r).Failure(r.Context(), "JSON encode failed", log.OpEncode, err)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once templates are loaded and the spreadsheet
// can be read. The check goes through the cached pipeline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if snap, err := s.dash.Load(ctx); err != nil {
		checks["spreadsheet"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["spreadsheet"] = "ok"
		checks["records"] = strconv.Itoa(snap.Table.Len())
	}

	s.writeJSON(w, r, code, map[string]any{
		"status":  status,
		"profile": s.dash.Profile().Name,
		"checks":  checks,
	})
}
