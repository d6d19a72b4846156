package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-socialgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-socialgraph/pkg/health"
	"github.com/dd0wney/cluso-socialgraph/pkg/logging"
	"github.com/dd0wney/cluso-socialgraph/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Options configures the HTTP server
type Options struct {
	Listen       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string   // empty disables bearer authentication
	CORSOrigins  []string // empty disables cross-origin access
	RateLimit    *middleware.RateLimitConfig
}

// Deps are the collaborators of the server. Reports is required.
type Deps struct {
	Reports *ReportHolder
	Runs    RunLister
	Metrics *metrics.Registry
	Health  *health.Checker
	Logger  logging.Logger
}

// Server serves /graphql, /metrics, /healthz and /readyz
type Server struct {
	opts    Options
	logger  logging.Logger
	handler http.Handler
	limiter *middleware.RateLimiter
}

// NewServer builds the route table and middleware chain
func NewServer(opts Options, deps Deps) (*Server, error) {
	if deps.Reports == nil {
		return nil, errors.New("api: report holder is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Health == nil {
		deps.Health = health.NewChecker()
		deps.Health.RegisterReadinessCheck("report", health.ReportCheck(deps.Reports.RunID))
		deps.Health.RegisterLivenessCheck("memory", health.MemoryCheck(0))
	}

	schema, err := NewSchema(deps.Reports, deps.Runs)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:   opts,
		logger: deps.Logger.With(logging.Component("api")),
	}

	graphqlChain := []middleware.Middleware{
		middleware.CORS(corsConfig(opts.CORSOrigins)),
		middleware.BodySizeLimit(middleware.DefaultMaxBodyBytes),
	}
	if opts.RateLimit != nil {
		s.limiter = middleware.NewRateLimiter(opts.RateLimit)
		graphqlChain = append(graphqlChain, middleware.RateLimit(s.limiter, middleware.ClientIP))
	}
	if opts.JWTSecret != "" {
		issuer, err := middleware.NewTokenIssuer(opts.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("api: %w", err)
		}
		graphqlChain = append(graphqlChain, middleware.RequireBearer(issuer))
	}

	observe := middleware.Metrics(deps.Metrics)

	mux := http.NewServeMux()
	mux.Handle("/graphql", observe(middleware.Chain(NewHandler(schema), graphqlChain...)))
	mux.Handle("GET /metrics", metricsHandler(deps.Metrics))
	mux.Handle("GET /healthz", observe(deps.Health.LivenessHandler()))
	mux.Handle("GET /readyz", observe(deps.Health.ReadinessHandler()))

	s.handler = middleware.Chain(mux,
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.SecurityHeaders(),
	)
	return s, nil
}

func corsConfig(origins []string) *middleware.CORSConfig {
	if len(origins) == 0 {
		return nil
	}
	config := middleware.DefaultCORSConfig()
	config.AllowedOrigins = origins
	return config
}

func metricsHandler(reg *metrics.Registry) http.Handler {
	if reg == nil {
		return http.NotFoundHandler()
	}
	promHandler := reg.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.UpdateUptime()
		promHandler.ServeHTTP(w, r)
	})
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       2 * s.opts.WriteTimeout,
	}
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("query server listening", logging.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("query server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on Options.Listen and calls Serve
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Close releases background resources
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
