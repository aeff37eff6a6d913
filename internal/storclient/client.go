// Пакет storclient — HTTP-клиент Storage API (удалённое файловое хранилище).
// Поддерживает TLS с кастомным CA (CM_STORAGE_CA_CERT_PATH).
// Операции: ListFiles (GET /all-file) с прозрачным обходом пагинации,
// UploadFiles (POST /upload, multipart), DeleteFile (POST /delete-file).
package storclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
)

var (
	// ErrUnavailable — хранилище недоступно (сеть, таймаут, неуспешный статус).
	ErrUnavailable = errors.New("хранилище недоступно")
	// ErrBadResponse — внешняя форма ответа хранилища не разбирается.
	ErrBadResponse = errors.New("некорректный ответ хранилища")
)

// TokenProvider — функция, возвращающая Bearer-токен для запросов к хранилищу.
// Может быть nil, если хранилище не требует авторизации.
type TokenProvider func(ctx context.Context) (string, error)

// storedFile — запись листинга в ответе хранилища.
// Все поля, кроме key, опциональны: их отсутствие даёт значения по умолчанию.
type storedFile struct {
	Key          string   `json:"key"`
	Size         int64    `json:"size"`
	LastModified string   `json:"last_modified"`
	CreatedAt    string   `json:"created_at"`
	OriginalFile string   `json:"original_file"`
	Subtitle     []string `json:"subtitle"`
}

// listResponse — ответ GET /all-file. Записи разбираются по одной,
// чтобы битая запись не срывала весь листинг.
type listResponse struct {
	Files  []json.RawMessage `json:"files"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// UploadFile — один файл для загрузки в хранилище.
type UploadFile struct {
	// Name — имя файла в multipart-части
	Name string
	// Reader — содержимое файла
	Reader io.Reader
}

// UploadedFile — результат загрузки одного файла (ответ POST /upload).
type UploadedFile struct {
	File         string   `json:"file"`
	OriginalFile string   `json:"original_file"`
	Size         int64    `json:"size"`
	Subtitle     []string `json:"subtitle"`
	Converted    bool     `json:"converted"`
}

// uploadResponse — ответ POST /upload.
type uploadResponse struct {
	Uploaded []UploadedFile `json:"uploaded"`
}

// deleteRequest — тело POST /delete-file.
type deleteRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// deleteResponse — ответ POST /delete-file.
type deleteResponse struct {
	Key    string `json:"key"`
	Result bool   `json:"result"`
}

// Client — HTTP-клиент Storage API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	pageSize      int
	tokenProvider TokenProvider
	logger        *slog.Logger
}

// New создаёт клиент Storage API.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
// timeout ограничивает каждый HTTP-запрос, включая фоновые обновления листинга.
func New(baseURL, caCertPath string, timeout time.Duration, pageSize int, tokenProvider TokenProvider, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата хранилища: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат хранилища добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    httpClient,
		pageSize:      pageSize,
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "stor_client")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// BaseURL возвращает нормализованный адрес хранилища.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListFiles возвращает полный листинг категории, прозрачно обходя пагинацию.
// Пустая category запрашивает все ключи хранилища.
// GET /all-file?bucket=&limit=&offset=
func (c *Client) ListFiles(ctx context.Context, category string) ([]model.ObjectRecord, error) {
	var records []model.ObjectRecord
	offset := 0

	for {
		page, err := c.listPage(ctx, category, c.pageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Files {
			var f storedFile
			if err := json.Unmarshal(raw, &f); err != nil {
				// Битая запись не срывает листинг целиком.
				c.logger.Warn("запись листинга пропущена",
					slog.String("category", category),
					slog.String("error", err.Error()),
				)
				continue
			}
			records = append(records, model.ObjectRecord{
				Key:              f.Key,
				Size:             f.Size,
				ModifiedAt:       f.LastModified,
				CreatedAt:        f.CreatedAt,
				OriginalFilename: f.OriginalFile,
				SubtitleRefs:     f.Subtitle,
				Category:         category,
			})
		}

		if len(page.Files) < c.pageSize {
			break
		}
		offset += len(page.Files)
	}

	return records, nil
}

// listPage запрашивает одну страницу листинга.
func (c *Client) listPage(ctx context.Context, category string, limit, offset int) (*listResponse, error) {
	reqURL := fmt.Sprintf("%s/all-file?bucket=%s&limit=%d&offset=%d",
		c.baseURL, url.QueryEscape(category), limit, offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса листинга: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос листинга %q (offset %d): %v: %w", category, offset, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("листинг %q: статус %d: %s: %w", category, resp.StatusCode, string(body), ErrUnavailable)
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("декодирование листинга %q: %v: %w", category, err, ErrBadResponse)
	}

	return &page, nil
}

// UploadFiles загружает файлы в хранилище.
// POST /upload — multipart с текстовыми полями bucket и fullpath
// и повторяющимися частями file. Тело стримится через io.Pipe,
// чтобы не держать крупные файлы в памяти.
func (c *Client) UploadFiles(ctx context.Context, category, fullPath string, files []UploadFile) ([]UploadedFile, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadBody(mw, category, fullPath, files)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		return nil, fmt.Errorf("создание запроса загрузки: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("загрузка в %q: %v: %w", category, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("загрузка в %q: статус %d: %s: %w", category, resp.StatusCode, string(body), ErrUnavailable)
	}

	var upResp uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upResp); err != nil {
		return nil, fmt.Errorf("декодирование ответа загрузки: %v: %w", err, ErrBadResponse)
	}

	return upResp.Uploaded, nil
}

// writeUploadBody пишет multipart-тело запроса загрузки.
func writeUploadBody(mw *multipart.Writer, category, fullPath string, files []UploadFile) error {
	if err := mw.WriteField("bucket", category); err != nil {
		return fmt.Errorf("поле bucket: %w", err)
	}
	if err := mw.WriteField("fullpath", fullPath); err != nil {
		return fmt.Errorf("поле fullpath: %w", err)
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("file", f.Name)
		if err != nil {
			return fmt.Errorf("часть file %q: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return fmt.Errorf("копирование %q: %w", f.Name, err)
		}
	}
	return nil
}

// DeleteFile удаляет объект из хранилища.
// POST /delete-file {bucket, key} → {key, result}.
func (c *Client) DeleteFile(ctx context.Context, category, key string) (bool, error) {
	payload, err := json.Marshal(deleteRequest{Bucket: category, Key: key})
	if err != nil {
		return false, fmt.Errorf("сериализация запроса удаления: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/delete-file", bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("создание запроса удаления: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("удаление %q: %v: %w", key, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("удаление %q: статус %d: %s: %w", key, resp.StatusCode, string(body), ErrUnavailable)
	}

	var delResp deleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&delResp); err != nil {
		return false, fmt.Errorf("декодирование ответа удаления: %v: %w", err, ErrBadResponse)
	}

	return delResp.Result, nil
}

// authorize добавляет Bearer-токен в запрос, если настроен tokenProvider.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokenProvider == nil {
		return nil
	}
	token, err := c.tokenProvider(ctx)
	if err != nil {
		return fmt.Errorf("получение токена хранилища: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// ReadinessChecker — проверка доступности Storage API для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	healthURL string
	client    *http.Client
}

// NewReadinessChecker создаёт checker доступности Storage API.
// Переиспользует HTTP-клиент основного клиента (его TLS-конфигурацию),
// но с собственным коротким таймаутом readiness-проверки.
func (c *Client) NewReadinessChecker(timeout time.Duration) *ReadinessChecker {
	client := &http.Client{
		Timeout:   timeout,
		Transport: c.httpClient.Transport,
	}
	return &ReadinessChecker{
		healthURL: c.baseURL + "/health",
		client:    client,
	}
}

const statusFail = "fail"

// CheckReady проверяет доступность health endpoint хранилища.
func (r *ReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, r.healthURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("Storage API недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("Storage API вернул статус %d", resp.StatusCode)
	}
	return "ok", "хранилище доступно"
}
