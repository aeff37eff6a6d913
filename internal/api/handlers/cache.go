// cache.go — обработчики /api/v1/cache endpoints.
// Административное управление кэшем листингов хранилища.
// Тексты сообщений входят в контракт и проверяются дашбордом.
package handlers

import "net/http"

// cacheMessageResponse — ответ операций clear и cleanup.
type cacheMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// cacheStats — счётчики записей кэша.
type cacheStats struct {
	TotalEntries   int `json:"total_entries"`
	ExpiredEntries int `json:"expired_entries"`
	ActiveEntries  int `json:"active_entries"`
}

// cacheStatsResponse — ответ GET /api/v1/cache/stats.
type cacheStatsResponse struct {
	Success bool       `json:"success"`
	Stats   cacheStats `json:"stats"`
}

// ClearCache — POST /api/v1/cache/clear.
// Полностью очищает кэш листингов.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.InvalidateAll()
	writeJSON(w, http.StatusOK, cacheMessageResponse{
		Success: true,
		Message: "All cache cleared successfully",
	})
}

// CacheStats — GET /api/v1/cache/stats.
// Возвращает счётчики записей кэша: всего, истёкших, активных.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	total, expired := h.cache.Stats()
	writeJSON(w, http.StatusOK, cacheStatsResponse{
		Success: true,
		Stats: cacheStats{
			TotalEntries:   total,
			ExpiredEntries: expired,
			ActiveEntries:  total - expired,
		},
	})
}

// CleanupCache — POST /api/v1/cache/cleanup.
// Удаляет истёкшие записи кэша, не трогая активные.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) CleanupCache(w http.ResponseWriter, r *http.Request) {
	removed := h.cache.SweepExpired()
	h.logger.Info("Истёкшие записи кэша удалены вручную", "removed", removed)
	writeJSON(w, http.StatusOK, cacheMessageResponse{
		Success: true,
		Message: "Expired cache entries cleaned up",
	})
}
