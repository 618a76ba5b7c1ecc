package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"patdash/internal/extract"
	"patdash/internal/log"
	"patdash/internal/services"
	appweb "patdash/web"
)

// Dashboard is the pipeline the handlers render.
type Dashboard interface {
	Load(ctx context.Context) (services.Snapshot, error)
	Refresh(ctx context.Context) (services.Snapshot, error)
	Profile() extract.Profile
}

// Options tune the server. Zero values pick the defaults.
type Options struct {
	// RefreshInterval drives the page's auto-reload of the overview.
	RefreshInterval    time.Duration
	// LoadTimeout bounds a single pipeline run inside a request.
	LoadTimeout        time.Duration
	// RefreshesPerMinute limits manual refreshes per client.
	RefreshesPerMinute int

	Logger *log.Logger

	// Templates and Static override the embedded web assets.
	Templates fs.FS
	Static    fs.FS
}

type Server struct {
	http.Server
	templates   *template.Template
	dash        Dashboard
	logger      *log.Logger
	limiter     *rateLimiter
	interval    time.Duration
	loadTimeout time.Duration
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, dash Dashboard, opts Options) *Server {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 2 * time.Minute
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 25 * time.Second
	}
	if opts.RefreshesPerMinute <= 0 {
		opts.RefreshesPerMinute = 6
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		dash:        dash,
		logger:      logger,
		limiter:     newRateLimiter(opts.RefreshesPerMinute, time.Minute),
		interval:    opts.RefreshInterval,
		loadTimeout: opts.LoadTimeout,
		started:     time.Now(),
	}

	templatesFS := opts.Templates
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	t, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err, log.FieldErrorType, log.ErrorTypeTemplate)
	} else {
		s.templates = t
	}

	staticFS := opts.Static
	if staticFS == nil {
		staticFS = appweb.StaticFS
	}
	if sub, err := fs.Sub(staticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/overview", s.handleOverview)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.Handler = log.Middleware(logger)(withSecurityHeaders(mux))
	return s
}

// Shutdown stops the rate limiter sweeper and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://unpkg.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; " +
	"connect-src 'self'; " +
	"object-src 'none'; " +
	"frame-ancestors 'none'; " +
	"base-uri 'self'; " +
	"form-action 'self'"

// withSecurityHeaders sets the browser hardening headers on every response.
func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		next.ServeHTTP(w, r)
	})
}

// load runs the pipeline with the per-request timeout.
func (s *Server) load(ctx context.Context, refresh bool) (services.Snapshot, error) {
	cctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()
	if refresh {
		return s.dash.Refresh(cctx)
	}
	return s.dash.Load(cctx)
}

func (s *Server) requestLogger(r *http.Request) *log.Logger {
	l := log.FromContext(r.Context())
	if l.Component() == "unknown" {
		return s.logger
	}
	return l
}
