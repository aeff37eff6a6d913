// Пакет config — загрузка и валидация конфигурации Catalog Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// DevAccount — встроенная учётная запись для режима разработки.
type DevAccount struct {
	// Логин учётной записи
	Account string
	// Пароль учётной записи
	Password string
	// Роль (HEAD_OFFICE, REGIONAL_MANAGER, DIRECTOR)
	Role string
	// Идентификатор учётной записи
	AccountID int
	// Идентификатор агентства
	AgencyID int
	// Идентификатор академии
	AcademyID int
	// Активна ли учётная запись
	IsActive bool
}

// Config содержит все параметры конфигурации Catalog Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Хранилище файлов (Storage API) ---

	// URL Storage API (например, https://r2-api.reengki.com)
	StorageURL string
	// Категория (bucket) по умолчанию для листинга и загрузки
	StorageBucket string
	// Статический Bearer-токен Storage API (опционально)
	StorageToken string
	// Таймаут запросов к Storage API
	StorageTimeout time.Duration
	// Размер страницы при постраничном обходе листинга
	StoragePageSize int
	// Путь к CA-сертификату для TLS-соединений с хранилищем (опционально)
	StorageCACertPath string

	// --- Кэш листинга ---

	// TTL снапшота листинга
	ListingCacheTTL time.Duration
	// Доля TTL, после которой запускается фоновое обновление (0 < x < 1)
	ListingRefreshThreshold float64
	// Таймаут полного обхода листинга (включая фоновые обновления)
	ListingFetchTimeout time.Duration
	// Интервал фоновой очистки просроченных снапшотов
	CacheSweepInterval time.Duration

	// --- Аутентификация ---

	// Секрет подписи HS256-токенов
	JWTSecret string
	// Срок жизни выданного токена
	TokenTTL time.Duration
	// URL корпоративного login API
	AuthAPIURL string
	// Режим разработки: встроенные учётные записи вместо login API
	DevMode bool
	// Встроенные учётные записи (заполняется только в DevMode)
	DevAccounts []DevAccount

	// --- Каталог ассетов ---

	// Корень локального дерева ассетов
	AssetRoot string
	// Путь к карте проектов project_list.yaml
	ProjectListPath string
	// Максимальный размер staged-загрузки (байт)
	MaxUploadSize int64
	// Максимальный размер публикации ассета (байт)
	MaxPublishSize int64

	// --- Мониторинг ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("CM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}
	if cfg.Port < 8040 || cfg.Port > 8049 {
		return nil, fmt.Errorf("CM_PORT: значение %d вне допустимого диапазона 8040-8049", cfg.Port)
	}

	// CM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CM_LOG_LEVEL: %w", err)
	}

	// CM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// CM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("CM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// CM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("CM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CM_DB_PORT: %w", err)
	}

	// CM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("CM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// CM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("CM_DB_USER")
	if err != nil {
		return nil, err
	}

	// CM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("CM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// CM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("CM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Хранилище файлов ---

	// CM_STORAGE_URL — обязательный
	cfg.StorageURL, err = getEnvRequired("CM_STORAGE_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.StorageURL = strings.TrimRight(cfg.StorageURL, "/")

	// CM_STORAGE_BUCKET — категория по умолчанию (по умолчанию "assets")
	cfg.StorageBucket = getEnvDefault("CM_STORAGE_BUCKET", "assets")

	// CM_STORAGE_TOKEN — статический токен (опционально)
	cfg.StorageToken = getEnvDefault("CM_STORAGE_TOKEN", "")

	// CM_STORAGE_TIMEOUT — таймаут запросов к хранилищу (по умолчанию 30s)
	cfg.StorageTimeout, err = getEnvDuration("CM_STORAGE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_STORAGE_TIMEOUT: %w", err)
	}

	// CM_STORAGE_PAGE_SIZE — размер страницы листинга (по умолчанию 1000)
	cfg.StoragePageSize, err = getEnvInt("CM_STORAGE_PAGE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("CM_STORAGE_PAGE_SIZE: %w", err)
	}
	if cfg.StoragePageSize < 1 || cfg.StoragePageSize > 10000 {
		return nil, fmt.Errorf("CM_STORAGE_PAGE_SIZE: значение %d вне допустимого диапазона 1-10000", cfg.StoragePageSize)
	}

	// CM_STORAGE_CA_CERT_PATH — путь к CA-сертификату (опционально)
	cfg.StorageCACertPath = getEnvDefault("CM_STORAGE_CA_CERT_PATH", "")

	// --- Кэш листинга ---

	// CM_LISTING_CACHE_TTL — TTL снапшота (по умолчанию 30m)
	cfg.ListingCacheTTL, err = getEnvDuration("CM_LISTING_CACHE_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_LISTING_CACHE_TTL: %w", err)
	}
	if cfg.ListingCacheTTL <= 0 {
		return nil, fmt.Errorf("CM_LISTING_CACHE_TTL: значение должно быть положительным")
	}

	// CM_LISTING_REFRESH_THRESHOLD — порог фонового обновления (по умолчанию 0.8)
	cfg.ListingRefreshThreshold, err = getEnvFloat("CM_LISTING_REFRESH_THRESHOLD", 0.8)
	if err != nil {
		return nil, fmt.Errorf("CM_LISTING_REFRESH_THRESHOLD: %w", err)
	}
	if cfg.ListingRefreshThreshold <= 0 || cfg.ListingRefreshThreshold >= 1 {
		return nil, fmt.Errorf("CM_LISTING_REFRESH_THRESHOLD: значение %v вне допустимого диапазона (0, 1)", cfg.ListingRefreshThreshold)
	}

	// CM_LISTING_FETCH_TIMEOUT — таймаут полного обхода листинга (по умолчанию 2m)
	cfg.ListingFetchTimeout, err = getEnvDuration("CM_LISTING_FETCH_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_LISTING_FETCH_TIMEOUT: %w", err)
	}

	// CM_CACHE_SWEEP_INTERVAL — интервал очистки (по умолчанию 10m)
	cfg.CacheSweepInterval, err = getEnvDuration("CM_CACHE_SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_CACHE_SWEEP_INTERVAL: %w", err)
	}

	// --- Аутентификация ---

	// CM_JWT_SECRET — обязательный
	cfg.JWTSecret, err = getEnvRequired("CM_JWT_SECRET")
	if err != nil {
		return nil, err
	}

	// CM_TOKEN_TTL — срок жизни токена (по умолчанию 24h)
	cfg.TokenTTL, err = getEnvDuration("CM_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("CM_TOKEN_TTL: %w", err)
	}

	// CM_DEV_MODE — режим разработки (по умолчанию false)
	cfg.DevMode, err = getEnvBool("CM_DEV_MODE", false)
	if err != nil {
		return nil, fmt.Errorf("CM_DEV_MODE: %w", err)
	}

	if cfg.DevMode {
		cfg.DevAccounts, err = loadDevAccounts()
		if err != nil {
			return nil, err
		}
	} else {
		// CM_AUTH_API_URL — обязательный вне режима разработки
		cfg.AuthAPIURL, err = getEnvRequired("CM_AUTH_API_URL")
		if err != nil {
			return nil, err
		}
		cfg.AuthAPIURL = strings.TrimRight(cfg.AuthAPIURL, "/")
	}

	// --- Каталог ассетов ---

	// CM_ASSET_ROOT — корень локального дерева ассетов (по умолчанию "asset").
	// Корень одновременно служит URL-префиксом раздачи файлов,
	// поэтому допускается только имя каталога без разделителей.
	cfg.AssetRoot = getEnvDefault("CM_ASSET_ROOT", "asset")
	if cfg.AssetRoot == "" || strings.ContainsAny(cfg.AssetRoot, `/\`) {
		return nil, fmt.Errorf("CM_ASSET_ROOT: значение %q должно быть именем каталога без разделителей", cfg.AssetRoot)
	}

	// CM_PROJECT_LIST_PATH — карта проектов (по умолчанию "project_list.yaml")
	cfg.ProjectListPath = getEnvDefault("CM_PROJECT_LIST_PATH", "project_list.yaml")

	// CM_MAX_UPLOAD_SIZE — лимит staged-загрузки (по умолчанию 10 МиБ)
	cfg.MaxUploadSize, err = getEnvInt64("CM_MAX_UPLOAD_SIZE", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("CM_MAX_UPLOAD_SIZE: %w", err)
	}

	// CM_MAX_PUBLISH_SIZE — лимит публикации ассета (по умолчанию 2 ГиБ)
	cfg.MaxPublishSize, err = getEnvInt64("CM_MAX_PUBLISH_SIZE", 2<<30)
	if err != nil {
		return nil, fmt.Errorf("CM_MAX_PUBLISH_SIZE: %w", err)
	}

	// --- Мониторинг ---

	// CM_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию "edustore")
	cfg.DephealthGroup = getEnvDefault("CM_DEPHEALTH_GROUP", "edustore")

	// CM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("CM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// CM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadDevAccounts собирает встроенные учётные записи режима разработки.
// Каждое поле переопределяется переменной окружения.
func loadDevAccounts() ([]DevAccount, error) {
	defaults := []struct {
		prefix    string
		account   string
		password  string
		role      string
		accountID int
	}{
		{"CM_DEV_ADMIN", "admin", "admin123", "HEAD_OFFICE", 1},
		{"CM_DEV_DIRECTOR", "director", "director123", "DIRECTOR", 2},
		{"CM_DEV_REGIONAL", "regional", "regional123", "REGIONAL_MANAGER", 3},
	}

	accounts := make([]DevAccount, 0, len(defaults))
	for _, d := range defaults {
		acc := DevAccount{
			Account:  getEnvDefault(d.prefix+"_ACCOUNT", d.account),
			Password: getEnvDefault(d.prefix+"_PASSWORD", d.password),
			Role:     getEnvDefault(d.prefix+"_ROLE", d.role),
		}
		var err error
		acc.AccountID, err = getEnvInt(d.prefix+"_ACCOUNT_ID", d.accountID)
		if err != nil {
			return nil, fmt.Errorf("%s_ACCOUNT_ID: %w", d.prefix, err)
		}
		acc.AgencyID, err = getEnvInt(d.prefix+"_AGENCY_ID", d.accountID)
		if err != nil {
			return nil, fmt.Errorf("%s_AGENCY_ID: %w", d.prefix, err)
		}
		acc.AcademyID, err = getEnvInt(d.prefix+"_ACADEMY_ID", d.accountID)
		if err != nil {
			return nil, fmt.Errorf("%s_ACADEMY_ID: %w", d.prefix, err)
		}
		acc.IsActive, err = getEnvBool(d.prefix+"_IS_ACTIVE", true)
		if err != nil {
			return nil, fmt.Errorf("%s_IS_ACTIVE: %w", d.prefix, err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL.
// Нужен topologymetrics: host и port зависимости извлекаются из URL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// StagingDir возвращает каталог staged-загрузок внутри корня ассетов.
func (c *Config) StagingDir() string {
	return filepath.Join(c.AssetRoot, "uploads")
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает 64-битное целое из переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvFloat возвращает число с плавающей точкой из переменной окружения
// или значение по умолчанию.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное число: %q", val)
	}
	return f, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (используйте true или false)", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
