package httpadapter

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/styleseek/fashion-recommender/internal/observability/metrics"
)

// trafficControlMiddleware stacks the rate limiter and the backpressure
// gate. Health and metrics probes bypass both.
func trafficControlMiddleware(next http.Handler, cfg TrafficConfig, m *metrics.HTTPServerMetrics) http.Handler {
	gated := next
	applied := false
	if cfg.MaxInFlight > 0 {
		gated = backpressureMiddleware(gated, cfg.MaxInFlight, 50*time.Millisecond)
		applied = true
	}
	if cfg.RateLimitRPS > 0 {
		gated = rateLimitMiddleware(gated, cfg.RateLimitRPS, cfg.RateLimitBurst, m)
		applied = true
	}
	if !applied {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		gated.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(next http.Handler, rps float64, burst int, m *metrics.HTTPServerMetrics) http.Handler {
	if burst <= 0 {
		burst = int(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			if m != nil {
				m.RecordRateLimited(serviceName, r.URL.Path)
			}
			w.Header().Set("Retry-After", "1")
			writeEnvelope(w, http.StatusTooManyRequests, "请求过于频繁，请稍后再试", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware bounds concurrent requests with a semaphore.
// A request that cannot acquire a slot within wait is shed with 503.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration) http.Handler {
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			writeEnvelope(w, http.StatusServiceUnavailable, "服务繁忙，请稍后再试", nil)
		case <-r.Context().Done():
			writeEnvelope(w, http.StatusServiceUnavailable, "服务繁忙，请稍后再试", nil)
		}
	})
}
