package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	recommendTotal      *prometheus.CounterVec
	recommendDuration   *prometheus.HistogramVec
	recommendedProducts *prometheus.HistogramVec
	offTopicTotal       *prometheus.CounterVec
	fallbackTotal       *prometheus.CounterVec
	emptyResultTotal    *prometheus.CounterVec
	rateLimitedTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fr",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fr",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fr",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recommendTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fr",
			Subsystem: "recommend",
			Name:      "requests_total",
			Help:      "Total completed recommendation traversals.",
		},
		[]string{"service", "endpoint"},
	)
	recommendDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fr",
			Subsystem: "recommend",
			Name:      "duration_seconds",
			Help:      "Recommendation pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	recommendedProducts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fr",
			Subsystem: "recommend",
			Name:      "products",
			Help:      "Distribution of recommended products per traversal.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service", "endpoint"},
	)
	offTopicTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fr",
			Subsystem: "recommend",
			Name:      "off_topic_total",
			Help:      "Total queries classified outside the fashion domain.",
		},
		[]string{"service", "endpoint"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fr",
			Subsystem: "recommend",
			Name:      "fallback_total",
			Help:      "Total traversals that invoked the keyword fallback ranker.",
		},
		[]string{"service", "endpoint"},
	)
	emptyResultTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fr",
			Subsystem: "recommend",
			Name:      "empty_result_total",
			Help:      "Total on-topic traversals that ended with no products.",
		},
		[]string{"service", "endpoint"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fr",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by the rate limiter.",
		},
		[]string{"service", "path"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		recommendTotal,
		recommendDuration,
		recommendedProducts,
		offTopicTotal,
		fallbackTotal,
		emptyResultTotal,
		rateLimitedTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		recommendTotal:      recommendTotal,
		recommendDuration:   recommendDuration,
		recommendedProducts: recommendedProducts,
		offTopicTotal:       offTopicTotal,
		fallbackTotal:       fallbackTotal,
		emptyResultTotal:    emptyResultTotal,
		rateLimitedTotal:    rateLimitedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordRecommendation captures one completed traversal: product count,
// domain verdict, and whether the keyword fallback fired.
func (m *HTTPServerMetrics) RecordRecommendation(
	service, endpoint string,
	productCount int,
	onTopic, fallbackUsed bool,
	duration time.Duration,
) {
	m.recommendTotal.WithLabelValues(service, endpoint).Inc()
	m.recommendDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	m.recommendedProducts.WithLabelValues(service, endpoint).Observe(float64(productCount))

	if !onTopic {
		m.offTopicTotal.WithLabelValues(service, endpoint).Inc()
		return
	}
	if fallbackUsed {
		m.fallbackTotal.WithLabelValues(service, endpoint).Inc()
	}
	if productCount == 0 {
		m.emptyResultTotal.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordRateLimited(service, path string) {
	m.rateLimitedTotal.WithLabelValues(service, path).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
