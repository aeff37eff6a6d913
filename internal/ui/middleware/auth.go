// Пакет middleware — HTTP middleware страниц дашборда.
// auth.go — проверка токена из cookie с redirect на страницу входа.
// В отличие от API middleware, неаутентифицированный запрос получает
// не 401, а redirect: страницы открывают из браузера.
package middleware

import (
	"log/slog"
	"net/http"

	apimw "github.com/bigkaa/edustore/catalog-module/internal/api/middleware"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/rbac"
)

// loginPath — страница входа, на которую уводятся все отказы.
const loginPath = "/login"

// PageAuth — middleware аутентификации страниц дашборда.
// Токен берётся из cookie auth_token (та же сессия, что и у API).
type PageAuth struct {
	validator apimw.TokenValidator
	logger    *slog.Logger
}

// NewPageAuth создаёт middleware страниц дашборда.
func NewPageAuth(validator apimw.TokenValidator, logger *slog.Logger) *PageAuth {
	return &PageAuth{
		validator: validator,
		logger:    logger.With(slog.String("component", "page_auth")),
	}
}

// RequireAdmin пропускает на страницу только сотрудников
// административного контура. Отсутствие токена, невалидный токен
// или недостаточная роль — redirect на /login.
func (pa *PageAuth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := apimw.ExtractToken(r)
		if token == "" {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}

		claims, err := pa.validator.ValidateToken(token)
		if err != nil {
			pa.logger.Debug("Невалидный токен на странице дашборда",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}

		if !rbac.CanAccessAdmin(claims.Role) {
			pa.logger.Info("Отказ в доступе к странице дашборда",
				slog.String("username", claims.Username),
				slog.String("role", claims.Role),
				slog.String("path", r.URL.Path),
			)
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Authenticated сообщает, несёт ли запрос валидный токен.
// Используется страницей входа: аутентифицированного пользователя
// незачем держать на форме.
func (pa *PageAuth) Authenticated(r *http.Request) bool {
	token := apimw.ExtractToken(r)
	if token == "" {
		return false
	}
	_, err := pa.validator.ValidateToken(token)
	return err == nil
}
