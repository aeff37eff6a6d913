// Пакет pages — HTML-страницы дашборда Catalog Module.
// Страницы встроены в бинарник и самодостаточны: данные подтягивают
// из API скриптами, серверного рендеринга нет.
package pages

import (
	"embed"
	"fmt"
	"net/http"

	uimiddleware "github.com/bigkaa/edustore/catalog-module/internal/ui/middleware"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageHandler — обработчики страниц дашборда.
type PageHandler struct {
	pageAuth  *uimiddleware.PageAuth
	login     []byte
	dashboard []byte
	assets    []byte
}

// NewPageHandler создаёт обработчики страниц, читая встроенные шаблоны.
func NewPageHandler(pageAuth *uimiddleware.PageAuth) (*PageHandler, error) {
	h := &PageHandler{pageAuth: pageAuth}

	pages := []struct {
		name string
		dst  *[]byte
	}{
		{"login.html", &h.login},
		{"dashboard-main.html", &h.dashboard},
		{"dashboard-asset.html", &h.assets},
	}
	for _, p := range pages {
		data, err := templatesFS.ReadFile("templates/" + p.name)
		if err != nil {
			return nil, fmt.Errorf("чтение страницы %s: %w", p.name, err)
		}
		*p.dst = data
	}

	return h, nil
}

// HandleIndex — GET /.
// Аутентифицированного пользователя уводит на дашборд, остальных
// на страницу входа.
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if h.pageAuth.Authenticated(r) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// HandleLogin — GET /login.
// Действующая сессия сразу уводит на дашборд, форма входа не нужна.
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.pageAuth.Authenticated(r) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.servePage(w, h.login)
}

// HandleDashboard — GET /dashboard.
// Гейт по роли вешает сервер через PageAuth.RequireAdmin.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, h.dashboard)
}

// HandleAssetManagement — GET /dashboard/assets.
// Гейт по роли вешает сервер через PageAuth.RequireAdmin.
func (h *PageHandler) HandleAssetManagement(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, h.assets)
}

func (h *PageHandler) servePage(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
