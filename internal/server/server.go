package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/nao1215/deepvision/internal/database"
	"github.com/nao1215/deepvision/internal/pipeline"
	"github.com/nao1215/deepvision/internal/report"
	"github.com/nao1215/deepvision/internal/tool"
)

// Defaults for the HTTP server.
const (
	DefaultMaxUploadSize  = 32 << 20
	DefaultRequestTimeout = 2 * time.Minute
	DefaultMaxConnections = 64

	// ShutdownTimeout bounds how long in-flight requests may finish after
	// the server is asked to stop.
	ShutdownTimeout = 10 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// Analyzer analyzes one upload. *pipeline.Engine implements it.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, data []byte) (*report.Document, error)
}

// History reads stored analyses. *database.AnalysisDB implements it.
type History interface {
	Get(ctx context.Context, id string) (*report.Document, error)
	List(ctx context.Context, opts database.ListOptions) ([]database.AnalysisSummary, error)
}

// ToolLister reports the registered tools. *tool.Registry implements it.
type ToolLister interface {
	Availability(ctx context.Context) []tool.Availability
}

var (
	_ Analyzer   = (*pipeline.Engine)(nil)
	_ History    = (*database.AnalysisDB)(nil)
	_ ToolLister = (*tool.Registry)(nil)
)

// Server is the HTTP transport of the analysis pipeline.
type Server struct {
	analyzer       Analyzer
	history        History
	tools          ToolLister
	events         http.Handler
	artifactDir    string
	artifactPrefix string
	maxUpload      int64
	requestTimeout time.Duration
	maxConns       int
	version        string
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the /api/analyses endpoints.
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithTools enables /api/tools.
func WithTools(t ToolLister) Option {
	return func(s *Server) {
		s.tools = t
	}
}

// WithEvents serves h, usually an *event.Hub, at /ws.
func WithEvents(h http.Handler) Option {
	return func(s *Server) {
		s.events = h
	}
}

// WithArtifacts serves the files under dir at prefix.
func WithArtifacts(dir, prefix string) Option {
	return func(s *Server) {
		s.artifactDir = dir
		s.artifactPrefix = prefix
	}
}

// WithMaxUploadSize limits request bodies of /api/analyze.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithRequestTimeout bounds one analysis.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithMaxConnections limits concurrent connections.
func WithMaxConnections(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server for analyzer.
func New(analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer:       analyzer,
		maxUpload:      DefaultMaxUploadSize,
		requestTimeout: DefaultRequestTimeout,
		maxConns:       DefaultMaxConnections,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	mux.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)
	mux.HandleFunc("GET /api/tools", s.handleTools)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.events != nil {
		mux.Handle("GET /ws", s.events)
	}
	if s.artifactDir != "" && s.artifactPrefix != "" {
		mux.Handle("GET "+s.artifactPrefix+"/", artifactHandler(s.artifactDir, s.artifactPrefix))
	}
	return s.recoverPanics(s.logRequests(mux))
}

// ListenAndServe listens on addr and serves until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. At most the configured number
// of connections are accepted at once; further clients wait in the
// listen backlog.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		// Uploads and analyses are bounded by MaxBytesReader and the
		// request timeout; the write timeout leaves room to send the report.
		WriteTimeout: s.requestTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(netutil.LimitListener(ln, s.maxConns))
	}()
	s.logger.Info("listening", "addr", ln.Addr().String(), "max_connections", s.maxConns)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
