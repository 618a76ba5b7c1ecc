package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"patdash/internal/core"
	"patdash/internal/extract"
	"patdash/internal/log"
	"patdash/internal/services"
	"patdash/internal/source"
)

func patGrid() core.Grid {
	return core.NewGrid([][]any{
		{"RELATÓRIO PAT"},
		{"AGOSTO"},
		{"PRIMEIRA QUINZENA"},
		{"Vagas", "PCD", "Empresas", "Atendidos", "Contratados"},
		{"10", "2", "5", "40", "4"},
		{"SEGUNDA QUINZENA"},
		{"10", "", "3", "31", "3"},
	})
}

type fakeDash struct {
	*services.DashboardService
	refreshes atomic.Int32
}

func (f *fakeDash) Refresh(ctx context.Context) (services.Snapshot, error) {
	f.refreshes.Add(1)
	return f.DashboardService.Refresh(ctx)
}

func newDash(t *testing.T, fetch source.FetcherFunc) *fakeDash {
	t.Helper()
	p, err := extract.NewRegistry().Get(extract.DefaultProfile)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	return &fakeDash{DashboardService: services.NewDashboardService(fetch, p)}
}

func okFetch(ctx context.Context) (core.Grid, error) { return patGrid(), nil }

func failFetch(ctx context.Context) (core.Grid, error) {
	return nil, errors.New("dial tcp: i/o timeout")
}

func emptyFetch(ctx context.Context) (core.Grid, error) {
	return core.NewGrid([][]any{{"AGOSTO"}, {"sem dados"}}), nil
}

func newTestServer(t *testing.T, d Dashboard, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: &bytes.Buffer{}})
	}
	srv := NewServer(":0", d, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "203.0.113.7:4000"
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, newDash(t, okFetch), Options{RefreshInterval: 90 * time.Second})

	rr := do(srv, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"PAT Jacareí - Dashboard de Monitoramento", "every 90s", `hx-get="/ui/overview"`, "quinzena"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("Content-Security-Policy") == "" {
		t.Errorf("security headers missing: %v", rr.Header())
	}
	if rr.Header().Get(log.RequestIDHeader) == "" {
		t.Errorf("request id header missing")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	if rr := do(srv, http.MethodGet, "/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/static/app.css"); rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
}

func TestOverview(t *testing.T) {
	tests := []struct {
		name    string
		fetch   source.FetcherFunc
		want    []string
		notWant []string
	}{
		{
			name:  "metrics chart and grid",
			fetch: okFetch,
			want: []string{
				"Total de Vagas", "20",
				"Total de Contratados", "7",
				"Taxa de Colocação", "35.0%",
				"Contratações por Mês e Quinzena", "Agosto",
				"<th>Mês</th>", "<th>Quinzena</th>", "<th>Vagas</th>", "<th>Contratados</th>",
				"1ª", "2ª",
			},
			notWant: []string{msgFetchFailed, "Verifique se os nomes"},
		},
		{
			name:    "fetch failure shows connectivity message",
			fetch:   failFetch,
			want:    []string{msgFetchFailed, "i/o timeout"},
			notWant: []string{"Total de Vagas"},
		},
		{
			name:    "no sections shows warning",
			fetch:   emptyFetch,
			want:    []string{"Verifique se os nomes dos meses estão na Coluna A."},
			notWant: []string{"Total de Vagas", msgFetchFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, newDash(t, tt.fetch), Options{})
			rr := do(srv, http.MethodGet, "/ui/overview")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			body := rr.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("body missing %q\n%s", w, body)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(body, w) {
					t.Errorf("body must not contain %q", w)
				}
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	d := newDash(t, okFetch)
	srv := newTestServer(t, d, Options{RefreshesPerMinute: 2})

	if rr := do(srv, http.MethodGet, "/refresh"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /refresh status=%d", rr.Code)
	}

	for i := 0; i < 2; i++ {
		rr := do(srv, http.MethodPost, "/refresh")
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Total de Vagas") {
			t.Fatalf("refresh %d status=%d", i, rr.Code)
		}
	}
	if got := d.refreshes.Load(); got != 2 {
		t.Fatalf("refreshes=%d want 2", got)
	}

	rr := do(srv, http.MethodPost, "/refresh")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third refresh status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After missing")
	}
}

func TestAPIRecords(t *testing.T) {
	srv := newTestServer(t, newDash(t, okFetch), Options{})
	rr := do(srv, http.MethodGet, "/api/records")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var got struct {
		Profile string           `json:"profile"`
		Fields  []string         `json:"fields"`
		Records []map[string]any `json:"records"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Profile != "quinzena" || strings.Join(got.Fields, ",") != "vagas,pcd,contratados" {
		t.Fatalf("header = %q %v", got.Profile, got.Fields)
	}
	if len(got.Records) != 2 {
		t.Fatalf("records=%d want 2", len(got.Records))
	}
	first, second := got.Records[0], got.Records[1]
	if first["mes"] != "Agosto" || first["quinzena"] != "1ª" || first["vagas"] != 10.0 || first["contratados"] != 4.0 {
		t.Errorf("first record = %v", first)
	}
	if second["quinzena"] != "2ª" {
		t.Errorf("second fortnight = %v", second["quinzena"])
	}
	if v, ok := second["pcd"]; !ok || v != nil {
		t.Errorf("empty pcd must be JSON null, got %v (present=%v)", v, ok)
	}
}

func TestAPISummary(t *testing.T) {
	srv := newTestServer(t, newDash(t, okFetch), Options{})
	rr := do(srv, http.MethodGet, "/api/summary")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got summaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Records != 2 || got.Empty {
		t.Fatalf("records=%d empty=%v", got.Records, got.Empty)
	}
	if got.Rate == nil || *got.Rate != 35 {
		t.Fatalf("rate=%v want 35", got.Rate)
	}
	if len(got.Chart) != 2 || got.Chart[0].Value == nil || *got.Chart[0].Value != 4 {
		t.Fatalf("chart=%+v", got.Chart)
	}
}

func TestAPIFetchErrorIsBadGateway(t *testing.T) {
	srv := newTestServer(t, newDash(t, failFetch), Options{})
	for _, path := range []string{"/api/records", "/api/summary"} {
		rr := do(srv, http.MethodGet, path)
		if rr.Code != http.StatusBadGateway {
			t.Fatalf("%s status=%d want 502", path, rr.Code)
		}
		var e errorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if e.Error != msgFetchFailed {
			t.Fatalf("error=%q", e.Error)
		}
	}

	if rr := do(srv, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d want 503", rr.Code)
	}
}

func TestTemplateParseErrorPath(t *testing.T) {
	srv := newTestServer(t, newDash(t, okFetch), Options{Templates: fstest.MapFS{}})

	if rr := do(srv, http.MethodGet, "/"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing templates, got %d", rr.Code)
	}

	rr := do(srv, http.MethodGet, "/ui/overview")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "placeholder") {
		t.Fatalf("overview fallback status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") || rl.allow("a") {
		t.Fatalf("limit of 2 not enforced")
	}
	if !rl.allow("b") {
		t.Fatalf("clients must be independent")
	}

	now = now.Add(time.Minute)
	if !rl.allow("a") {
		t.Fatalf("window did not reset")
	}

	now = now.Add(5 * time.Minute)
	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Fatalf("removed=%d want 2", removed)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.7:1234", "", "203.0.113.7"},
		{"untrusted peer ignores header", "203.0.113.7:1234", "198.51.100.1", "203.0.113.7"},
		{"trusted proxy uses first hop", "10.0.0.2:1234", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"trusted proxy with junk header", "127.0.0.1:1234", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}
