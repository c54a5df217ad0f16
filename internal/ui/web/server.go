// Package web serves the dashboard to browsers: a static page, a stateless
// JSON endpoint and one WebSocket session per open tab.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"coin_tracker/internal/domain"
	"coin_tracker/internal/infra"
	"coin_tracker/internal/render"
	"coin_tracker/internal/service"
)

//go:embed static/index.html
var staticFS embed.FS

var indexTmpl = template.Must(template.ParseFS(staticFS, "static/index.html"))

// Options configures a Server.
type Options struct {
	Feed           *service.Feed
	Formatter      *render.Formatter
	Prefs          domain.PreferenceStore // optional
	Icons          *infra.IconDownloader  // optional local icon cache
	Metrics        *infra.Metrics
	PageSize       int
	Theme          render.Mode
	Owner          string
	AllowedOrigins []string
}

// Server is the web front-end.
type Server struct {
	feed     *service.Feed
	format   *render.Formatter
	prefs    domain.PreferenceStore
	icons    *infra.IconDownloader
	metrics  *infra.Metrics
	pageSize int
	theme    render.Mode
	owner    string
	origins  []string

	registry *prometheus.Registry
	upgrader websocket.Upgrader
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = infra.GlobalMetrics
	}
	if opts.Formatter == nil {
		opts.Formatter = render.NewFormatter("en-US", "$")
	}
	if !domain.IsValidPageSize(opts.PageSize) {
		opts.PageSize = domain.DefaultPageSize
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(infra.NewCollector(opts.Metrics))

	s := &Server{
		feed:     opts.Feed,
		format:   opts.Formatter,
		prefs:    opts.Prefs,
		icons:    opts.Icons,
		metrics:  opts.Metrics,
		pageSize: opts.PageSize,
		theme:    opts.Theme,
		owner:    opts.Owner,
		origins:  opts.AllowedOrigins,
		registry: registry,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/markets", s.handleMarkets)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	if s.icons != nil {
		mux.Handle("GET /icons/", http.StripPrefix("/icons/", http.FileServer(http.Dir(s.icons.BasePath()))))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown http server", slog.Any("error", err))
		}
	}()

	slog.Info("Starting HTTP server", slog.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// currentTheme returns the persisted theme, falling back to the configured one.
func (s *Server) currentTheme() render.Mode {
	if s.prefs != nil {
		if prefs, err := s.prefs.LoadConfigMap(); err == nil {
			if v, ok := prefs[domain.PrefTheme]; ok {
				return render.ParseMode(v)
			}
		}
	}
	return s.theme
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	theme := s.currentTheme()
	data := struct {
		Owner   string
		Year    int
		Palette render.Palette
	}{
		Owner:   s.owner,
		Year:    time.Now().Year(),
		Palette: render.PaletteFor(theme),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		slog.Error("Failed to render index", slog.Any("error", err))
	}
}

// pagePayload is the JSON shape shared by /api/markets and WebSocket pushes.
type pagePayload struct {
	Rows      []render.Row      `json:"rows"`
	Query     domain.QueryState `json:"query"`
	Total     int               `json:"total"`
	Filtered  int               `json:"filtered"`
	PageCount int               `json:"page_count"`
	Range     string            `json:"range"`
	UpdatedAt time.Time         `json:"updated_at"`
	Updated   string            `json:"updated"`
	Error     string            `json:"error,omitempty"`
}

func (s *Server) buildPayload(view service.PageView, updatedAt time.Time, lastErr error) pagePayload {
	rows := s.format.Rows(view.Rows)
	if s.icons != nil {
		for i := range rows {
			if s.icons.HasIcon(rows[i].ID) {
				if path, err := s.icons.IconPath(rows[i].ID); err == nil {
					rows[i].Icon = "/icons/" + filepath.Base(path)
				}
			}
		}
	}
	p := pagePayload{
		Rows:      rows,
		Query:     view.Query,
		Total:     view.Total,
		Filtered:  view.Filtered,
		PageCount: view.PageCount,
		Range:     view.RangeLabel(),
		UpdatedAt: updatedAt,
		Updated:   render.UpdatedAgo(updatedAt, time.Now()),
	}
	if lastErr != nil {
		p.Error = "Could not load market data"
	}
	return p
}

func (s *Server) snapshot() ([]domain.CoinRecord, time.Time, error) {
	if s.feed == nil {
		return []domain.CoinRecord{}, time.Time{}, nil
	}
	return s.feed.Snapshot()
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := domain.QueryState{Search: params.Get("search"), PageSize: s.pageSize}

	if v := params.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 0 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		q.Page = page
	}
	if v := params.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || !domain.IsValidPageSize(size) {
			writeError(w, http.StatusBadRequest, domain.ErrInvalidPageSize.Error())
			return
		}
		q.PageSize = size
	}

	records, at, lastErr := s.snapshot()
	writeJSON(w, http.StatusOK, s.buildPayload(service.Derive(records, q), at, lastErr))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to write response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
