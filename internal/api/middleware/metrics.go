// metrics.go — Prometheus HTTP метрики для Catalog Module.
// Регистрирует метрики: cm_http_requests_total, cm_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Catalog Module",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Catalog Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath сводит динамические сегменты пути к шаблонам, чтобы
// кардинальность лейбла path оставалась ограниченной:
// UUID ассета → {id}, произвольный путь папки → {path}, код этапа → {stage}.
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/", "/login", "/dashboard",
		"/api/v1/auth/login",
		"/api/v1/auth/claims",
		"/api/v1/assets",
		"/api/v1/assets/filter",
		"/api/v1/assets/publish",
		"/api/v1/upload",
		"/api/v1/files",
		"/api/v1/files/upload",
		"/api/v1/files/delete",
		"/api/v1/folders",
		"/api/v1/folder-categories",
		"/api/v1/cache/clear",
		"/api/v1/cache/stats",
		"/api/v1/cache/cleanup":
		return path
	}

	// Ассеты адресуются UUID: /api/v1/assets/{id}
	const assetsPrefix = "/api/v1/assets/"
	if rest, ok := strings.CutPrefix(path, assetsPrefix); ok {
		if _, err := uuid.Parse(rest); err == nil {
			return assetsPrefix + "{id}"
		}
	}

	// Путь папки произвольной глубины: /api/v1/folders/{path}
	const foldersPrefix = "/api/v1/folders/"
	if strings.HasPrefix(path, foldersPrefix) {
		return foldersPrefix + "{path}"
	}

	// Код этапа курса: /api/v1/folder-categories/{stage}
	const categoriesPrefix = "/api/v1/folder-categories/"
	if strings.HasPrefix(path, categoriesPrefix) {
		return categoriesPrefix + "{stage}"
	}

	// Статика страниц
	if strings.HasPrefix(path, "/static/") {
		return "/static/{file}"
	}

	return path
}
