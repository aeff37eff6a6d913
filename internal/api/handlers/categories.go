// categories.go — обработчики /api/v1/folder-categories endpoints.
// Статический справочник курсов и ступеней образовательного каталога.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/catalog"
)

// categoryResponse — одна ступень справочника в ответе API.
type categoryResponse struct {
	CourseName string `json:"course_name"`
	StageName  string `json:"stage_name"`
	StageCode  string `json:"stage_code"`
	CourseType string `json:"course_type"`
}

// categoryListData — данные ответа GET /api/v1/folder-categories.
type categoryListData struct {
	Categories []categoryResponse `json:"categories"`
}

// categoriesResponse — обёртка ответов справочника.
type categoriesResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// categoryNotFound — ответ на неизвестный код ступени.
// Текст error входит в контракт.
type categoryNotFound struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// mapCategory конвертирует запись справочника в ответ API.
func mapCategory(c catalog.StageCategory) categoryResponse {
	return categoryResponse{
		CourseName: c.CourseName,
		StageName:  c.StageName,
		StageCode:  c.StageCode,
		CourseType: catalog.CourseType(c.CourseName),
	}
}

// GetFolderCategories — GET /api/v1/folder-categories.
// Возвращает справочник ступеней; с ?group_by_course=true — сгруппированный
// по курсам вид.
// Доступ: любой аутентифицированный сотрудник.
func (h *APIHandler) GetFolderCategories(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("group_by_course") == "true" {
		writeJSON(w, http.StatusOK, categoriesResponse{
			Success: true,
			Data:    catalog.GroupByCourse(),
		})
		return
	}

	all := catalog.AllCategories()
	categories := make([]categoryResponse, len(all))
	for i, c := range all {
		categories[i] = mapCategory(c)
	}

	writeJSON(w, http.StatusOK, categoriesResponse{
		Success: true,
		Data:    categoryListData{Categories: categories},
	})
}

// GetCategoryByStageCode — GET /api/v1/folder-categories/{stageCode}.
// Возвращает ступень по коду или 404 с текстом "Stage code not found".
// Доступ: любой аутентифицированный сотрудник.
func (h *APIHandler) GetCategoryByStageCode(w http.ResponseWriter, r *http.Request) {
	stageCode := chi.URLParam(r, "stageCode")

	category, ok := catalog.ByStageCode(stageCode)
	if !ok {
		writeJSON(w, http.StatusNotFound, categoryNotFound{
			Success: false,
			Error:   "Stage code not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, categoriesResponse{
		Success: true,
		Data:    mapCategory(category),
	})
}
