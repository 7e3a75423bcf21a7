package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

// SessionCookie names the cookie carrying the view session id.
const SessionCookie = "bilancio_session"

// Options configure a Server. Zero values fall back to defaults.
type Options struct {
	// Ready reports whether the backing store can serve requests.
	Ready func(ctx context.Context) error
	// RateLimitPerMinute bounds mutating requests per client.
	RateLimitPerMinute int
	// BlockSuspicious answers requests that look like probing with 403
	// instead of only logging them.
	BlockSuspicious bool
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	Logger        *applog.Logger
}

type Server struct {
	http.Server

	svc      *services.TransactionService
	sessions *services.Sessions
	ready    func(ctx context.Context) error
	logger   *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	secureCookies bool
	started       time.Time
	shutdownOnce  sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.TransactionService, sessions *services.Sessions, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = ratelimit.DefaultConfig().Limit
	}

	detector := security.NewDetector()
	s := &Server{
		svc:           svc,
		sessions:      sessions,
		ready:         opts.Ready,
		logger:        logger.WithComponent(applog.ComponentHTTP),
		limiter:       ratelimit.NewLimiter(ratelimit.PerMinute(opts.RateLimitPerMinute)),
		detector:      detector,
		tracer:        trace.NewMiddleware(logger, detector.ExtractClientIP),
		secureCookies: opts.SecureCookies,
		started:       time.Now(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.BlockSuspicious),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(blockSuspicious bool) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError(allowedMethods(r)).Write(w)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.Handle("/transactions", limited(http.HandlerFunc(s.handleCreateTransaction))).Methods(http.MethodPost)
	api.Handle("/transactions/{id}", limited(http.HandlerFunc(s.handleDeleteTransaction))).Methods(http.MethodDelete)
	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/charts/line", s.handleLineChart).Methods(http.MethodGet)
	api.HandleFunc("/charts/pie", s.handlePieChart).Methods(http.MethodGet)

	// The tracer wraps everything else so rejections are logged too.
	var h http.Handler = r
	h = s.detector.Middleware(blockSuspicious)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// allowedMethods lists the methods routed for r's path.
func allowedMethods(r *http.Request) string {
	switch {
	case r.URL.Path == "/api/transactions":
		return "GET, POST"
	case strings.HasPrefix(r.URL.Path, "/api/transactions/"):
		return "DELETE"
	default:
		return "GET"
	}
}

// session returns the caller's session, issuing a cookie when the caller had
// none or an expired one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *services.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	newID, sess := s.sessions.Get(id)
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Session started", applog.FieldSessionID, newID)
	}
	return sess
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "HTTP server shutting down", applog.FieldOperation, applog.OpShutdown)
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
