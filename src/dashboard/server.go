package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"FlightsDashboard/src/config"
	"FlightsDashboard/src/datasource/file"
	"FlightsDashboard/src/export"
	"FlightsDashboard/src/storage"
)

//go:embed templates/index.html
var templateFS embed.FS

//go:embed pages.yaml
var DefaultPages []byte

// Server 仪表盘 HTTP 服务
type Server struct {
	cfg    *config.Config
	dcfg   *config.DataConfig
	cache  *file.DatasetCache
	logger *storage.Logger
	pages  *config.Pages
	tmpl   *template.Template
	env    *envSource
	server *http.Server

	startTime time.Time
}

// NewServer wires the dashboard onto a dataset cache.
func NewServer(cfg *config.Config, dcfg *config.DataConfig, cache *file.DatasetCache,
	logger *storage.Logger, pages *config.Pages) (*Server, error) {
	for _, s := range pages.Sections {
		if _, ok := LookupChart(s.Chart); !ok {
			return nil, fmt.Errorf("pages: unknown chart %q", s.Chart)
		}
	}

	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"cell": cellString,
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Server{
		cfg:       cfg,
		dcfg:      dcfg,
		cache:     cache,
		logger:    logger,
		pages:     pages,
		tmpl:      tmpl,
		env:       &envSource{cache: cache, dcfg: dcfg, logger: logger},
		startTime: time.Now(),
	}, nil
}

// Env returns the prepared dataset, reloading it when the inputs changed.
func (s *Server) Env() (*Env, error) {
	return s.env.get()
}

// Reload invalidates the dataset cache; the next request reloads from disk.
func (s *Server) Reload(reason string) {
	s.cache.Invalidate()
	s.logger.Info("dataset invalidated: " + reason)
}

// Build runs one chart. A panic inside the build is returned as that chart's error.
func (s *Server) Build(name string, p Params) (res *Result, err error) {
	entry, ok := LookupChart(name)
	if !ok {
		return nil, fmt.Errorf("chart %q not known", name)
	}

	env, err := s.Env()
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("chart %s failed: %v", name, r)
		}
		if err != nil && !errors.Is(err, ErrBadParam) {
			s.logger.Error(fmt.Sprintf("chart %s: %v", name, err))
		}
	}()

	res, err = entry.Build(env, p)
	if err != nil {
		return nil, err
	}
	res.Name = name
	if res.Title == "" {
		res.Title = entry.Title
	}
	return res, nil
}

// Report builds every page section into a PDF report. Failed charts appear as an
// error note in their section.
func (s *Server) Report(p Params) (export.Report, []export.Table) {
	rep := export.Report{Title: s.pages.Title, Intro: s.pages.Intro}
	var tables []export.Table
	for _, sec := range s.pages.Sections {
		out := export.Section{Heading: sec.Heading, Text: sec.Text}
		res, err := s.Build(sec.Chart, p)
		if err != nil {
			out.Err = err
			rep.Sections = append(rep.Sections, out)
			continue
		}
		if out.Heading == "" {
			out.Heading = res.Title
		}
		if res.Figure != nil {
			if png, err := res.Figure.PNG(); err == nil {
				out.Image = png
			} else {
				s.logger.Error(fmt.Sprintf("chart %s: %v", sec.Chart, err))
			}
		}
		if len(res.Tables) > 0 {
			out.Table = &res.Tables[0]
		}
		rep.Sections = append(rep.Sections, out)
		tables = append(tables, res.Tables...)
	}
	return rep, tables
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /logs", s.handleLogs)

	mux.HandleFunc("GET /api/charts", s.handleChartList)
	mux.HandleFunc("GET /api/charts/{name}", s.handleChart)
	mux.HandleFunc("GET /api/charts/{name}/image", s.handleChartImage)
	mux.HandleFunc("GET /api/charts/{name}/export", s.handleChartExport)
	mux.HandleFunc("GET /api/columns", s.handleColumns)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("POST /api/reload", s.handleReload)

	return s.logMiddleware(mux)
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout),
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Infof("HTTP server listening on %s", s.cfg.Server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps /logs streaming through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		if r.URL.Path == "/logs" {
			return
		}
		s.logger.Debug(fmt.Sprintf("%s %s %d %v", r.Method, r.URL.RequestURI(), rec.status, time.Since(start)))
	})
}
