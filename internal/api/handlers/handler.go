// handler.go — основной обработчик API Catalog Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/edustore/catalog-module/internal/api/errors"
	"github.com/bigkaa/edustore/catalog-module/internal/assetfs"
	"github.com/bigkaa/edustore/catalog-module/internal/service"
	"github.com/bigkaa/edustore/catalog-module/internal/storclient"
)

// multipartMemoryLimit — порог буферизации multipart-форм в памяти.
// Части крупнее порога net/http спулит во временные файлы.
const multipartMemoryLimit = 32 << 20

// APIHandler — основной обработчик API Catalog Module.
type APIHandler struct {
	health  *HealthHandler
	auth    *service.AuthService
	assets  *service.AssetService
	uploads *assetfs.Store
	folders *service.Folders
	cache   *service.ListingCache
	storage *storclient.Client
	// category — категория (bucket) хранилища по умолчанию
	category       string
	maxUploadSize  int64
	maxPublishSize int64
	logger         *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	auth *service.AuthService,
	assets *service.AssetService,
	uploads *assetfs.Store,
	folders *service.Folders,
	cache *service.ListingCache,
	storage *storclient.Client,
	category string,
	maxUploadSize int64,
	maxPublishSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:         health,
		auth:           auth,
		assets:         assets,
		uploads:        uploads,
		folders:        folders,
		cache:          cache,
		storage:        storage,
		category:       category,
		maxUploadSize:  maxUploadSize,
		maxPublishSize: maxPublishSize,
		logger:         logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writePrettyJSON записывает JSON-ответ с отступами.
// Эндпоинты ассетов отдают читаемый JSON: их ответы просматривают вручную.
func writePrettyJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		apierrors.InternalError(w, "Ошибка сериализации ответа")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeListingError отвечает на ошибку работы с листингом хранилища.
// Текст ошибки уходит только в лог: клиент получает одинаковый
// повторяемый ответ независимо от причины сбоя.
func (h *APIHandler) writeListingError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("Ошибка листинга хранилища", slog.String("operation", op), slog.String("error", err.Error()))
	if errors.Is(err, service.ErrUpstreamUnavailable) || errors.Is(err, service.ErrUpstreamParse) {
		apierrors.StorageUnavailable(w, "Хранилище файлов временно недоступно, повторите запрос позже")
		return
	}
	apierrors.InternalError(w, "Внутренняя ошибка сервера")
}
