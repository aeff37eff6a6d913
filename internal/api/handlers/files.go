// files.go — обработчики файловых операций с удалённым хранилищем.
// Листинг отдаётся из кэша, загрузка и удаление транслируются в Storage API
// с инвалидацией кэша после успешной записи.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	apierrors "github.com/bigkaa/edustore/catalog-module/internal/api/errors"
	"github.com/bigkaa/edustore/catalog-module/internal/storclient"
)

// listedFile — запись листинга в ответе GET /api/v1/files.
// Форма повторяет ответ Storage API: клиенты листинга не замечают кэш.
type listedFile struct {
	Key          string   `json:"key"`
	Size         int64    `json:"size"`
	LastModified string   `json:"last_modified,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	OriginalFile string   `json:"original_file,omitempty"`
	Subtitle     []string `json:"subtitle,omitempty"`
}

// fileListResponse — ответ GET /api/v1/files.
type fileListResponse struct {
	Files []listedFile `json:"files"`
	Total int          `json:"total"`
}

// uploadFileResponse — ответ POST /api/v1/files/upload.
type uploadFileResponse struct {
	Success  bool                      `json:"success"`
	Message  string                    `json:"message"`
	FilePath string                    `json:"file_path"`
	Filename string                    `json:"filename"`
	Uploaded []storclient.UploadedFile `json:"uploaded"`
}

// deleteFileRequest — тело POST /api/v1/files/delete.
type deleteFileRequest struct {
	Key string `json:"key"`
}

// deleteFileResponse — ответ POST /api/v1/files/delete.
type deleteFileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ListFiles — GET /api/v1/files?category=.
// Возвращает листинг категории хранилища из кэша.
// Пустой параметр category — категория по умолчанию.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = h.category
	}

	snap, err := h.cache.GetAll(r.Context(), category)
	if err != nil {
		h.writeListingError(w, "список файлов", err)
		return
	}

	files := make([]listedFile, len(snap.Records))
	for i, rec := range snap.Records {
		files[i] = listedFile{
			Key:          rec.Key,
			Size:         rec.Size,
			LastModified: rec.ModifiedAt,
			CreatedAt:    rec.CreatedAt,
			OriginalFile: rec.OriginalFilename,
			Subtitle:     rec.SubtitleRefs,
		}
	}

	writeJSON(w, http.StatusOK, fileListResponse{Files: files, Total: len(files)})
}

// UploadFile — POST /api/v1/files/upload.
// Транслирует multipart-загрузку одного файла в Storage API.
// Поле full_path задаёт полный путь файла в хранилище; каталог для
// загрузки — часть до последнего «/» включительно. После успешной
// загрузки кэш листинга инвалидируется.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPublishSize)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	fullPath := r.FormValue("full_path")
	if fullPath == "" {
		apierrors.ValidationError(w, "Поле full_path обязательно")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле file обязательно")
		return
	}
	defer file.Close()

	// Каталог назначения: часть full_path до последнего «/» включительно.
	basePath := ""
	if i := strings.LastIndex(fullPath, "/"); i >= 0 {
		basePath = fullPath[:i+1]
	}

	uploaded, err := h.storage.UploadFiles(r.Context(), h.category, basePath,
		[]storclient.UploadFile{{Name: header.Filename, Reader: file}})
	if err != nil {
		h.writeStorageError(w, "загрузка файла", err)
		return
	}

	h.cache.Invalidate(basePath)
	h.logger.Info("Файл загружен в хранилище",
		"full_path", fullPath, "filename", header.Filename)

	writeJSON(w, http.StatusOK, uploadFileResponse{
		Success:  true,
		Message:  "File uploaded successfully",
		FilePath: fullPath,
		Filename: header.Filename,
		Uploaded: uploaded,
	})
}

// DeleteFile — POST /api/v1/files/delete.
// Удаляет объект из хранилища по ключу и инвалидирует кэш листинга.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	var req deleteFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}
	if req.Key == "" {
		apierrors.ValidationError(w, "Поле key обязательно")
		return
	}

	deleted, err := h.storage.DeleteFile(r.Context(), h.category, req.Key)
	if err != nil {
		h.writeStorageError(w, "удаление файла", err)
		return
	}
	if !deleted {
		apierrors.NotFound(w, "Объект "+req.Key+" не найден в хранилище")
		return
	}

	h.cache.Invalidate(req.Key)
	h.logger.Info("Объект удалён из хранилища", "key", req.Key)

	writeJSON(w, http.StatusOK, deleteFileResponse{
		Success: true,
		Message: "Item deleted successfully",
	})
}

// publishResponse — ответ POST /api/v1/assets/publish.
// Сообщения видит корейский дашборд, поэтому текст — корейский,
// как в остальном пользовательском интерфейсе каталога.
type publishResponse struct {
	Success       bool    `json:"success"`
	AssetID       *string `json:"asset_id"`
	Message       string  `json:"message"`
	CoverImageURL *string `json:"cover_image_url"`
	VideoURL      *string `json:"video_url"`
}

// hasVideoExt сообщает, является ли имя файла видео-файлом публикации.
func hasVideoExt(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".mp4") ||
		strings.HasSuffix(lower, ".mov") ||
		strings.HasSuffix(lower, ".avi")
}

// hasImageExt сообщает, является ли имя файла изображением обложки.
func hasImageExt(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".png") ||
		strings.HasSuffix(lower, ".jpg") ||
		strings.HasSuffix(lower, ".jpeg")
}

// PublishAsset — POST /api/v1/assets/publish.
// Публикует материалы учебника в хранилище: переименовывает файлы
// в "{title}{ext}", добавляет subtitle.json из поля subtitles и
// загружает всё в папку "{book_id}/{title}/". Видео-файл обязателен.
// Доступ: HEAD_OFFICE, REGIONAL_MANAGER.
func (h *APIHandler) PublishAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPublishSize)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	bookID := r.FormValue("book_id")
	title := r.FormValue("title")
	subtitles := r.FormValue("subtitles")

	if bookID == "" || title == "" {
		writeJSON(w, http.StatusBadRequest, publishResponse{
			Success: false,
			Message: "필수 필드 누락: 교재 ID, 제목",
		})
		return
	}

	// Файлы публикации переименовываются в "{title}{ext}".
	var files []storclient.UploadFile
	hasVideo := false
	for _, field := range []string{"cover_image", "video_file"} {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		defer file.Close()

		renamed := title + path.Ext(header.Filename)
		if hasVideoExt(renamed) {
			hasVideo = true
		}
		files = append(files, storclient.UploadFile{Name: renamed, Reader: file})
	}

	if !hasVideo {
		writeJSON(w, http.StatusBadRequest, publishResponse{
			Success: false,
			Message: "비디오 파일이 필요합니다",
		})
		return
	}

	if subtitles != "" {
		files = append(files, storclient.UploadFile{
			Name:   "subtitle.json",
			Reader: strings.NewReader(subtitles),
		})
	}

	fullPath := bookID + "/" + title + "/"
	uploaded, err := h.storage.UploadFiles(r.Context(), h.category, fullPath, files)
	if err != nil {
		h.writeStorageError(w, "публикация ассета", err)
		return
	}

	h.cache.Invalidate(fullPath)
	h.logger.Info("Материалы учебника опубликованы",
		"book_id", bookID, "title", title, "files", len(uploaded))

	resp := publishResponse{
		Success: true,
		Message: "에셋이 성공적으로 생성되었습니다",
	}
	assetID := bookID + "_" + title
	resp.AssetID = &assetID
	for _, up := range uploaded {
		switch {
		case resp.CoverImageURL == nil && hasImageExt(up.File):
			u := h.storageFileURL(up.File)
			resp.CoverImageURL = &u
		case resp.VideoURL == nil && hasVideoExt(up.File):
			u := h.storageFileURL(up.File)
			resp.VideoURL = &u
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// storageFileURL строит прямую ссылку на файл хранилища по ключу.
func (h *APIHandler) storageFileURL(key string) string {
	return fmt.Sprintf("%s/file?key=%s", h.storage.BaseURL(), url.QueryEscape(key))
}

// writeStorageError отвечает на ошибку операции записи в хранилище.
// Текст ошибки уходит только в лог.
func (h *APIHandler) writeStorageError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("Ошибка операции с хранилищем", "operation", op, "error", err.Error())
	if errors.Is(err, storclient.ErrUnavailable) || errors.Is(err, storclient.ErrBadResponse) {
		apierrors.StorageUnavailable(w, "Хранилище файлов временно недоступно, повторите запрос позже")
		return
	}
	apierrors.InternalError(w, "Внутренняя ошибка сервера")
}
