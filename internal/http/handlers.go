package http

import (
	"context"
	"net/http"
	"time"

	applog "bilancio/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the store and reports cache and session counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]any{}

	switch {
	case s.ready == nil:
		checks["store"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
			checks["store"] = "failed: " + err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	limits := s.limiter.GetMetrics()
	detections := s.detector.GetMetrics()
	requests := s.tracer.GetMetrics()
	views := s.svc.CacheStats()
	metrics := map[string]any{
		"cached_views":          views.Size,
		"view_cache_hits":       views.Hits,
		"view_cache_misses":     views.Misses,
		"sessions":              s.sessions.Len(),
		"invalidations":         s.svc.Epoch(),
		"requests_total":        requests.TotalRequests,
		"avg_response_micros":   requests.AverageResponseTime,
		"rate_limited":          limits.TotalHits,
		"rate_limit_clients":    limits.ClientCount,
		"suspicious_requests":   detections.SuspiciousRequests,
		"invalid_forwarded_ips": detections.InvalidIPAttempts,
	}
	NewJSONResponse().Status(code).Body(map[string]any{
		"status":  status,
		"checks":  checks,
		"metrics": metrics,
	}).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories(r.Context())
	if err != nil {
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"categories": toCategoriesJSON(cats)}).Write(w)
}
