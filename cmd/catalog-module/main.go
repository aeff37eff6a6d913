// Точка входа Catalog Module — модуль каталога учебных материалов.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт клиент Storage API и кэш листингов, собирает сервисный слой
// и API handlers, запускает фоновые задачи (уборка кэша, topologymetrics),
// HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/edustore/catalog-module/internal/api/handlers"
	"github.com/bigkaa/edustore/catalog-module/internal/api/middleware"
	"github.com/bigkaa/edustore/catalog-module/internal/assetfs"
	"github.com/bigkaa/edustore/catalog-module/internal/config"
	"github.com/bigkaa/edustore/catalog-module/internal/database"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/catalog"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
	"github.com/bigkaa/edustore/catalog-module/internal/repository"
	"github.com/bigkaa/edustore/catalog-module/internal/server"
	"github.com/bigkaa/edustore/catalog-module/internal/service"
	"github.com/bigkaa/edustore/catalog-module/internal/storclient"
	uimiddleware "github.com/bigkaa/edustore/catalog-module/internal/ui/middleware"
	"github.com/bigkaa/edustore/catalog-module/internal/ui/pages"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Catalog Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("CM_DEPHEALTH_GROUP") == "" {
		logger.Warn("CM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент Storage API
	var tokenProvider storclient.TokenProvider
	if cfg.StorageToken != "" {
		token := cfg.StorageToken
		tokenProvider = func(ctx context.Context) (string, error) {
			return token, nil
		}
	}

	storClient, err := storclient.New(
		cfg.StorageURL,
		cfg.StorageCACertPath,
		cfg.StorageTimeout,
		cfg.StoragePageSize,
		tokenProvider,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания клиента Storage API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент Storage API создан",
		slog.String("url", cfg.StorageURL),
		slog.String("bucket", cfg.StorageBucket),
	)

	// 6. Кэш листингов хранилища, обозреватель папок и фоновая уборка
	listingCache := service.NewListingCache(
		storClient,
		cfg.ListingCacheTTL,
		cfg.ListingRefreshThreshold,
		cfg.ListingFetchTimeout,
		logger,
	)
	folders := service.NewFolders(listingCache, cfg.StorageBucket, cfg.StorageURL, logger)

	sweeper := service.NewCacheSweeper(listingCache, cfg.CacheSweepInterval, logger)
	sweeper.Start(ctx)

	// 7. Локальное дерево ассетов и карта проектов
	assetStore := assetfs.New(cfg.AssetRoot, logger)

	projects, err := catalog.LoadProjectMap(cfg.ProjectListPath)
	if err != nil {
		logger.Error("Ошибка загрузки карты проектов",
			slog.String("path", cfg.ProjectListPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// 8. Repositories
	assetRepo := repository.NewAssetRepository(pool)

	// 9. Services
	assetsSvc := service.NewAssetService(assetRepo, assetStore, projects, logger)

	devAccounts := make([]service.DevAccount, 0, len(cfg.DevAccounts))
	for _, acc := range cfg.DevAccounts {
		devAccounts = append(devAccounts, service.DevAccount{
			User: model.StaffUser{
				AccountID: acc.AccountID,
				Account:   acc.Account,
				Role:      acc.Role,
				AgencyID:  acc.AgencyID,
				AcademyID: acc.AcademyID,
				IsActive:  acc.IsActive,
			},
			Password: acc.Password,
		})
	}
	authSvc := service.NewAuthService(
		cfg.JWTSecret,
		cfg.TokenTTL,
		cfg.AuthAPIURL,
		devAccounts,
		nil, // стандартный HTTP-клиент
		logger,
	)
	if cfg.DevMode {
		logger.Warn("Режим разработки: вход по встроенным учётным записям",
			slog.Int("accounts", len(devAccounts)),
		)
	}

	// 10. Readiness checkers (PostgreSQL + Storage API)
	pgChecker := database.NewReadinessChecker(pool)
	storChecker := storClient.NewReadinessChecker(cfg.StorageTimeout)
	healthHandler := handlers.NewHealthHandler(pgChecker, storChecker)

	// 11. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		authSvc,
		assetsSvc,
		assetStore,
		folders,
		listingCache,
		storClient,
		cfg.StorageBucket,
		cfg.MaxUploadSize,
		cfg.MaxPublishSize,
		logger,
	)

	// 12. JWT middleware и страницы дашборда
	jwtAuth := middleware.NewJWTAuth(authSvc, logger)
	pageAuth := uimiddleware.NewPageAuth(authSvc, logger)

	uiPages, err := pages.NewPageHandler(pageAuth)
	if err != nil {
		logger.Error("Ошибка инициализации страниц дашборда", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. topologymetrics — мониторинг зависимостей (PostgreSQL + Storage API)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"catalog-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.StorageURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 14. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, pageAuth, uiPages)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 15. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthErr == nil {
		dephealthSvc.Stop()
	}
	sweeper.Stop()

	logger.Info("Catalog Module остановлен")
}
