package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/styleseek/fashion-recommender/internal/core/ports"
	"github.com/styleseek/fashion-recommender/internal/observability/metrics"
)

const serviceName = "recommender-api"

// TrafficConfig bounds inbound request volume before it reaches the
// pipeline. Zero values disable the respective gate.
type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	recommendUC ports.Recommender
	ingestUC    ports.CatalogIngestor
	repo        ports.ProductRepository
	metrics     *metrics.HTTPServerMetrics
	logger      *slog.Logger
	traffic     TrafficConfig
}

func NewRouter(
	recommendUC ports.Recommender,
	ingestUC ports.CatalogIngestor,
	repo ports.ProductRepository,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	traffic TrafficConfig,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		recommendUC: recommendUC,
		ingestUC:    ingestUC,
		repo:        repo,
		metrics:     m,
		logger:      logger,
		traffic:     traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/recommend", rt.recommend)
	mux.HandleFunc("/v1/catalog", rt.uploadCatalog)
	mux.HandleFunc("/v1/products/", rt.getProductByID)

	var handler http.Handler = mux
	handler = trafficControlMiddleware(handler, rt.traffic, rt.metrics)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// envelope is the fixed response shape of the recommendation API:
// code mirrors the HTTP status, data is null on failure.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (rt *Router) recommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeEnvelope(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "请求参数错误：question不能为空", nil)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeEnvelope(w, http.StatusBadRequest, "请求参数错误：question不能为空", nil)
		return
	}

	start := time.Now()
	rec, err := rt.recommendUC.Recommend(r.Context(), req.Question)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.logger.Error("recommend_failed",
			"request_id", requestIDFromContext(r.Context()),
			"status", status,
			"error", err,
		)
		if status == http.StatusBadRequest {
			writeEnvelope(w, status, "请求参数错误：question不能为空", nil)
			return
		}
		writeEnvelope(w, status, "服务器内部错误: "+err.Error(), nil)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRecommendation(
			serviceName, "/recommend",
			len(rec.ProductIDs), rec.OnTopic, rec.FallbackUsed,
			time.Since(start),
		)
	}

	if len(rec.ProductIDs) == 0 {
		writeEnvelope(w, http.StatusNotFound, "没有找到相关推荐结果", nil)
		return
	}

	writeEnvelope(w, http.StatusOK, "成功", map[string]any{
		"answer":  rec.Answer,
		"indexes": rec.ProductIDs,
	})
}

func (rt *Router) uploadCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeEnvelope(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, "multipart field 'file' is required", nil)
		return
	}
	defer file.Close()

	imported, err := rt.ingestUC.Import(r.Context(), fileHeader.Filename, file)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.logger.Error("catalog_import_failed",
			"request_id", requestIDFromContext(r.Context()),
			"filename", fileHeader.Filename,
			"error", err,
		)
		writeEnvelope(w, status, err.Error(), nil)
		return
	}

	writeEnvelope(w, http.StatusAccepted, "成功", map[string]any{
		"imported": imported,
	})
}

func (rt *Router) getProductByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeEnvelope(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/products/")
	if id == "" {
		writeEnvelope(w, http.StatusBadRequest, "product id is required", nil)
		return
	}

	product, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeEnvelope(w, mapErrorToHTTPStatus(err), err.Error(), nil)
		return
	}
	writeEnvelope(w, http.StatusOK, "成功", product)
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{
		Code:    status,
		Message: message,
		Data:    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
