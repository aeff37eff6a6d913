// folders.go — обработчики /api/v1/folders endpoints.
// Обозреватель папок хранилища поверх кэшированного листинга.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetRootFolders — GET /api/v1/folders.
// Возвращает папки корневого уровня (учебные программы).
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) GetRootFolders(w http.ResponseWriter, r *http.Request) {
	h.folderContents(w, r, "")
}

// GetFolderContents — GET /api/v1/folders/*.
// Возвращает содержимое папки по пути обозревателя.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) GetFolderContents(w http.ResponseWriter, r *http.Request) {
	h.folderContents(w, r, chi.URLParam(r, "*"))
}

// folderContents отдаёт содержимое папки folderPath из кэшированного листинга.
func (h *APIHandler) folderContents(w http.ResponseWriter, r *http.Request, folderPath string) {
	contents, err := h.folders.Contents(r.Context(), folderPath)
	if err != nil {
		h.writeListingError(w, "содержимое папки", err)
		return
	}
	writeJSON(w, http.StatusOK, contents)
}
