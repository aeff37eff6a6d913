// auth.go — сервис аутентификации сотрудников.
// Учётные данные проверяются либо по встроенным dev-учёткам (режим
// разработки), либо через корпоративный login API (POST /api/applogin).
// После успешной проверки выпускается собственный HS256-токен.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
)

// Claims — полезная нагрузка self-issued токена сотрудника.
type Claims struct {
	// Username — логин сотрудника
	Username string `json:"username"`
	// Role — роль (HEAD_OFFICE, REGIONAL_MANAGER, DIRECTOR)
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// DevAccount — встроенная учётная запись режима разработки.
type DevAccount struct {
	// User — данные сотрудника, выдаваемые при совпадении
	User model.StaffUser
	// Password — пароль учётной записи
	Password string
}

// loginRequest — тело запроса к корпоративному login API.
type loginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// authInfo — блок auth в ответе login API.
// Поля в ответе именуются в PascalCase.
type authInfo struct {
	AccountID     int    `json:"AccountID"`
	AccountTypeID int    `json:"AccountTypeID"`
	AgencyID      int    `json:"AgencyID"`
	AcademyID     int    `json:"AcademyID"`
	Account       string `json:"Account"`
	State         int    `json:"State"`
}

// loginResponse — ответ login API. auth == null — неверные учётные данные.
type loginResponse struct {
	Auth *authInfo `json:"auth"`
}

// AuthService — проверка учётных данных и выпуск HS256-токенов.
type AuthService struct {
	secret      []byte
	tokenTTL    time.Duration
	apiURL      string
	devAccounts []DevAccount
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
// apiURL — адрес корпоративного login API (пустой в режиме разработки).
// devAccounts — встроенные учётные записи (пусто вне режима разработки).
// httpClient — клиент запросов к login API (nil — клиент по умолчанию).
func NewAuthService(secret string, tokenTTL time.Duration, apiURL string, devAccounts []DevAccount, httpClient *http.Client, logger *slog.Logger) *AuthService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &AuthService{
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		apiURL:      strings.TrimRight(apiURL, "/"),
		devAccounts: devAccounts,
		httpClient:  httpClient,
		logger:      logger.With(slog.String("component", "auth_service")),
	}
}

// Authenticate проверяет учётные данные сотрудника.
// Сначала сверяет с dev-учётками, затем обращается к login API.
// Неверные учётные данные — ErrInvalidCredentials, недоступность
// login API — ErrAuthUnavailable.
func (s *AuthService) Authenticate(ctx context.Context, account, password string) (*model.StaffUser, error) {
	if user := s.matchDevAccount(account, password); user != nil {
		s.logger.InfoContext(ctx, "Вход по dev-учётке",
			slog.String("account", user.Account),
			slog.String("role", user.Role),
		)
		return user, nil
	}

	if s.apiURL == "" {
		return nil, fmt.Errorf("%w: учётная запись %s", ErrInvalidCredentials, account)
	}

	return s.loginUpstream(ctx, account, password)
}

// matchDevAccount ищет совпадение среди встроенных учётных записей.
func (s *AuthService) matchDevAccount(account, password string) *model.StaffUser {
	for _, acc := range s.devAccounts {
		if acc.User.Account == account && acc.Password == password {
			user := acc.User
			return &user
		}
	}
	return nil
}

// loginUpstream проверяет учётные данные через корпоративный login API.
// POST /api/applogin {account, password} → {auth: {...} | null}.
// Неуспешный статус и auth == null означают неверные учётные данные.
func (s *AuthService) loginUpstream(ctx context.Context, account, password string) (*model.StaffUser, error) {
	payload, err := json.Marshal(loginRequest{Account: account, Password: password})
	if err != nil {
		return nil, fmt.Errorf("сериализация запроса входа: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/api/applogin", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("создание запроса входа: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос к login API: %v: %w", err, ErrAuthUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: login API вернул статус %d", ErrInvalidCredentials, resp.StatusCode)
	}

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, fmt.Errorf("декодирование ответа login API: %v: %w", err, ErrAuthUnavailable)
	}

	if loginResp.Auth == nil {
		return nil, fmt.Errorf("%w: учётная запись %s", ErrInvalidCredentials, account)
	}

	info := loginResp.Auth
	user := &model.StaffUser{
		AccountID: info.AccountID,
		Account:   info.Account,
		Role:      model.RoleForAccountType(info.AccountTypeID),
		AgencyID:  info.AgencyID,
		AcademyID: info.AcademyID,
		IsActive:  info.State == 1,
	}

	s.logger.InfoContext(ctx, "Вход через login API",
		slog.String("account", user.Account),
		slog.String("role", user.Role),
	)

	return user, nil
}

// IssueToken выпускает HS256-токен для сотрудника.
// Claims: username, role, exp, iat.
func (s *AuthService) IssueToken(user *model.StaffUser) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: user.Account,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("подпись токена: %w", err)
	}

	return signed, nil
}

// ValidateToken проверяет подпись и срок действия токена, возвращает claims.
// Допускается только HS256.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("проверка токена: %w", err)
	}

	return claims, nil
}

// TokenTTL возвращает срок жизни выдаваемых токенов.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
