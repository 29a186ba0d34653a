// Package webui serves the HTML form for downloading and transcribing videos.
package webui

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/anatolykoptev/go_transcribe/internal/toolutil"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Options configures a Server.
type Options struct {
	RateLimitRPS   float64 // per client IP, 0 disables limiting
	RateLimitBurst int
	Summaries      bool // show the summarize checkbox
	Metrics        func() string
	SecureCookies  bool
	// TrustedProxies lists the IPs or CIDRs of reverse proxies whose
	// X-Forwarded-For header identifies the client. Empty means the header
	// is ignored.
	TrustedProxies []string
}

// Server is the web form front end of a toolutil.Service.
type Server struct {
	svc     toolutil.Service
	opts    Options
	tmpl    *template.Template
	limiter *ipLimiter
	trusted []netip.Prefix
	handler http.Handler
}

// New builds a Server. It fails if the embedded templates do not parse or a
// trusted proxy entry is malformed.
func New(svc toolutil.Service, opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	trusted, err := parseProxies(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}
	s := &Server{svc: svc, opts: opts, tmpl: tmpl, trusted: trusted}
	if opts.RateLimitRPS > 0 {
		s.limiter = newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleAction)
	mux.HandleFunc("GET /artifacts/{id}", s.handleArtifact)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.handler = logRequests(s.rateLimit(s.withSession(mux)))
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("web ui listening", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web ui shutdown: %w", err)
	}
	return nil
}
