// auth.go — JWT middleware для аутентификации и авторизации Catalog Module.
// Токены self-issued (HS256), выдаются сервисом аутентификации после
// проверки учётных данных. Токен принимается из заголовка Authorization
// (Bearer) или из cookie auth_token — так страницы и API используют
// одну сессию.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/edustore/catalog-module/internal/api/errors"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/rbac"
	"github.com/bigkaa/edustore/catalog-module/internal/service"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyClaims — извлечённые claims в контексте запроса.
const ContextKeyClaims contextKey = "jwt_claims"

// TokenValidator проверяет self-issued токен и возвращает claims.
// Реализуется service.AuthService.
type TokenValidator interface {
	ValidateToken(token string) (*service.Claims, error)
}

// JWTAuth — middleware аутентификации по self-issued HS256-токену.
type JWTAuth struct {
	validator TokenValidator
	logger    *slog.Logger
}

// NewJWTAuth создаёт JWT middleware.
func NewJWTAuth(validator TokenValidator, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		validator: validator,
		logger:    logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает токен (Bearer или cookie), валидирует подпись и срок
// действия, помещает claims в контекст запроса.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				apierrors.Unauthorized(w, "Требуется аутентификация")
				return
			}

			claims, err := j.validator.ValidateToken(token)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken извлекает токен из запроса: сначала заголовок
// Authorization (Bearer), затем cookie auth_token.
// Возвращает пустую строку, если токена нет.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1]
		}
	}

	if cookie, err := r.Cookie("auth_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

// --- RBAC middleware ---

// RequireAdmin пропускает только роли административного контура
// (HEAD_OFFICE, REGIONAL_MANAGER). Должен стоять ПОСЛЕ Middleware().
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
			return
		}

		if !rbac.CanAccessAdmin(claims.Role) {
			apierrors.Forbidden(w, "Недостаточно прав: требуется роль HEAD_OFFICE или REGIONAL_MANAGER")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireDirector пропускает только роль DIRECTOR.
// Должен стоять ПОСЛЕ Middleware().
func RequireDirector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
			return
		}

		if !rbac.CanAccessDirector(claims.Role) {
			apierrors.Forbidden(w, "Недостаточно прав: требуется роль DIRECTOR")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- Context helpers ---

// ClaimsFromContext извлекает claims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *service.Claims {
	claims, _ := ctx.Value(ContextKeyClaims).(*service.Claims)
	return claims
}
