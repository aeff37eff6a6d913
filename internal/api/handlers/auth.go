// auth.go — обработчики /api/v1/auth endpoints.
// Вход по учётным данным сотрудника и просмотр claims текущего токена.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/edustore/catalog-module/internal/api/errors"
	"github.com/bigkaa/edustore/catalog-module/internal/api/middleware"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
	"github.com/bigkaa/edustore/catalog-module/internal/service"
)

// loginRequest — тело запроса входа.
type loginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// loginSuccess — ответ на успешный вход.
type loginSuccess struct {
	Success bool             `json:"success"`
	User    *model.StaffUser `json:"user"`
	Token   string           `json:"token"`
}

// loginError — ответ на неуспешный вход.
// Форму читает страница входа, текст сообщения входит в контракт.
type loginError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// claimsResponse — claims текущего токена.
type claimsResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
}

// Login — POST /api/v1/auth/login.
// Принимает учётные данные в JSON или в HTML-форме, проверяет их через
// сервис аутентификации и выпускает self-issued токен. Токен уходит
// клиенту и в cookie: auth_token (HttpOnly) для запросов,
// auth_status — читаемый из JavaScript маркер для страниц.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	account, password, err := readCredentials(r)
	if err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}
	if account == "" || password == "" {
		apierrors.ValidationError(w, "Поля account и password обязательны")
		return
	}

	user, err := h.auth.Authenticate(r.Context(), account, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, loginError{Success: false, Message: "Invalid credentials"})
			return
		}
		h.logger.Error("Ошибка аутентификации", "account", account, "error", err)
		apierrors.AuthUnavailable(w, "Сервис аутентификации временно недоступен")
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		h.logger.Error("Ошибка выпуска токена", "account", account, "error", err)
		apierrors.InternalError(w, "Ошибка выпуска токена")
		return
	}

	maxAge := int(h.auth.TokenTTL().Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_status",
		Value:    "authenticated",
		Path:     "/",
		MaxAge:   maxAge,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginSuccess{Success: true, User: user, Token: token})
}

// readCredentials извлекает account и password из JSON-тела
// или HTML-формы по Content-Type запроса.
func readCredentials(r *http.Request) (account, password string, err error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", "", err
		}
		return req.Account, req.Password, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	return r.PostFormValue("account"), r.PostFormValue("password"), nil
}

// GetClaims — GET /api/v1/auth/claims.
// Возвращает claims текущего токена.
// Доступ: любой аутентифицированный сотрудник.
func (h *APIHandler) GetClaims(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	resp := claimsResponse{
		Username: claims.Username,
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		resp.Iat = claims.IssuedAt.Unix()
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout — POST /api/v1/auth/logout.
// Затирает auth cookie. Сам токен остаётся валидным до истечения срока:
// отзыва self-issued токенов нет.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_status",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
