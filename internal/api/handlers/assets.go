// assets.go — обработчики /api/v1/assets и /api/v1/upload endpoints.
// CRUD ассетов учебных материалов и промежуточная загрузка изображений.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/edustore/catalog-module/internal/api/errors"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
	"github.com/bigkaa/edustore/catalog-module/internal/repository"
	"github.com/bigkaa/edustore/catalog-module/internal/service"
)

// createAssetRequest — тело POST /api/v1/assets.
type createAssetRequest struct {
	Curriculum   string                `json:"curriculum"`
	Month        string                `json:"month"`
	Covers       []string              `json:"covers"`
	Subtitles    []model.SubtitleEntry `json:"subtitles"`
	YouTubeLinks []model.YouTubeLink   `json:"youtube_links"`
}

// updateAssetRequest — тело PUT /api/v1/assets/{id}.
// nil-поле означает «не менять».
type updateAssetRequest struct {
	Covers       *[]string              `json:"covers"`
	Subtitles    *[]model.SubtitleEntry `json:"subtitles"`
	YouTubeLinks *[]model.YouTubeLink   `json:"youtube_links"`
}

// assetListResponse — ответ GET /api/v1/assets.
type assetListResponse struct {
	Assets     []*model.Asset `json:"assets"`
	TotalCount int            `json:"total_count"`
}

// filteredAssetsResponse — ответ GET /api/v1/assets/filter.
// Поля curriculum и month повторяют применённые фильтры (null — не задан).
type filteredAssetsResponse struct {
	Curriculum *string        `json:"curriculum"`
	Month      *string        `json:"month"`
	Assets     []*model.Asset `json:"assets"`
	TotalFound int            `json:"total_found"`
}

// CreateAsset — POST /api/v1/assets.
// Создаёт ассет: book_id определяется по карте проектов, промежуточные
// файлы переносятся в папку ассета. Дубль (curriculum, month) → 409.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	asset, err := h.assets.Create(r.Context(), service.CreateAssetParams{
		Curriculum:   req.Curriculum,
		Month:        req.Month,
		Covers:       req.Covers,
		Subtitles:    req.Subtitles,
		YouTubeLinks: req.YouTubeLinks,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConflict):
			apierrors.Conflict(w, err.Error())
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		default:
			h.logger.Error("Ошибка создания ассета",
				"curriculum", req.Curriculum, "month", req.Month, "error", err)
			apierrors.InternalError(w, "Ошибка создания ассета")
		}
		return
	}

	writePrettyJSON(w, http.StatusCreated, asset)
}

// ListAssets — GET /api/v1/assets.
// Возвращает все ассеты.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения списка ассетов", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка ассетов")
		return
	}
	if assets == nil {
		assets = []*model.Asset{}
	}

	writePrettyJSON(w, http.StatusOK, assetListResponse{
		Assets:     assets,
		TotalCount: len(assets),
	})
}

// FilterAssets — GET /api/v1/assets/filter?curriculum=&month=&book_id=.
// Возвращает ассеты по переданным фильтрам; пустой параметр не фильтрует.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) FilterAssets(w http.ResponseWriter, r *http.Request) {
	var filters repository.AssetFilters
	resp := filteredAssetsResponse{Assets: []*model.Asset{}}

	if v := r.URL.Query().Get("curriculum"); v != "" {
		filters.Curriculum = &v
		resp.Curriculum = &v
	}
	if v := r.URL.Query().Get("month"); v != "" {
		filters.Month = &v
		resp.Month = &v
	}
	if v := r.URL.Query().Get("book_id"); v != "" {
		filters.BookID = &v
	}

	assets, err := h.assets.Filter(r.Context(), filters)
	if err != nil {
		h.logger.Error("Ошибка фильтрации ассетов", "error", err)
		apierrors.InternalError(w, "Ошибка фильтрации ассетов")
		return
	}
	if assets != nil {
		resp.Assets = assets
	}
	resp.TotalFound = len(resp.Assets)

	writePrettyJSON(w, http.StatusOK, resp)
}

// GetAsset — GET /api/v1/assets/{id}.
// Возвращает ассет по UUID.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asset, err := h.assets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Ассет с id "+id+" не найден")
			return
		}
		h.logger.Error("Ошибка получения ассета", "asset_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения ассета")
		return
	}

	writePrettyJSON(w, http.StatusOK, asset)
}

// UpdateAsset — PUT /api/v1/assets/{id}.
// Частично обновляет ассет: заменяются только переданные поля.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	asset, err := h.assets.Update(r.Context(), id, service.UpdateAssetParams{
		Covers:       req.Covers,
		Subtitles:    req.Subtitles,
		YouTubeLinks: req.YouTubeLinks,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Ассет с id "+id+" не найден")
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		default:
			h.logger.Error("Ошибка обновления ассета", "asset_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка обновления ассета")
		}
		return
	}

	writePrettyJSON(w, http.StatusOK, asset)
}

// DeleteAsset — DELETE /api/v1/assets/{id}.
// Удаляет ассет и его папку с файлами. 204 при успехе, 404 если нет.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.assets.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Ассет с id "+id+" не найден")
			return
		}
		h.logger.Error("Ошибка удаления ассета", "asset_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка удаления ассета")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// allowedUploadTypes — допустимые Content-Type промежуточных загрузок.
// Через /api/v1/upload загружаются только изображения (обложки, миниатюры).
var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// stagedUploadResponse — ответ POST /api/v1/upload.
type stagedUploadResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
	FileType string `json:"file_type"`
	Message  string `json:"message"`
}

// UploadStagedFile — POST /api/v1/upload.
// Сохраняет изображение в промежуточную папку. Итоговое место файла
// (cover или thumbnail конкретного ассета) определяется позже,
// при создании или обновлении ассета.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) UploadStagedFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле file обязательно")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedUploadTypes[contentType] {
		apierrors.ValidationError(w, "Тип файла "+contentType+" не поддерживается")
		return
	}

	safe, err := h.uploads.SaveStagedUpload(header.Filename, file)
	if err != nil {
		h.logger.Error("Ошибка сохранения промежуточного файла",
			"filename", header.Filename, "error", err)
		apierrors.InternalError(w, "Ошибка сохранения файла")
		return
	}

	writeJSON(w, http.StatusOK, stagedUploadResponse{
		Success:  true,
		FilePath: h.uploads.StagedWebPath(safe),
		FileType: contentType,
		Message:  "File uploaded successfully",
	})
}
