// Пакет server — HTTP-сервер Catalog Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/edustore/catalog-module/internal/api/handlers"
	"github.com/bigkaa/edustore/catalog-module/internal/api/middleware"
	"github.com/bigkaa/edustore/catalog-module/internal/config"
	uimiddleware "github.com/bigkaa/edustore/catalog-module/internal/ui/middleware"
	"github.com/bigkaa/edustore/catalog-module/internal/ui/pages"
	"github.com/bigkaa/edustore/catalog-module/internal/ui/static"
)

// Server — HTTP-сервер Catalog Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
// Маршруты разбиты на три контура: публичный (вход, статика, probes),
// аутентифицированный (сессионные операции, справочник) и
// административный (ассеты, файлы хранилища, кэш, страницы дашборда).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	api *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	pageAuth *uimiddleware.PageAuth,
	ui *pages.PageHandler,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// --- Публичный контур ---

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)
	router.Get("/metrics", api.GetMetrics)

	router.Get("/", ui.HandleIndex)
	router.Get("/login", ui.HandleLogin)
	router.Post("/api/v1/auth/login", api.Login)

	// Встроенная статика страниц (CSS, JS)
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	// Локальное дерево ассетов: staged-загрузки и файлы ассетов
	// отдаются напрямую с диска, как и карта проектов.
	router.Handle("/"+cfg.AssetRoot+"/*", http.StripPrefix("/"+cfg.AssetRoot+"/",
		http.FileServer(http.Dir(cfg.AssetRoot))))
	router.Get("/project_list.yaml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, cfg.ProjectListPath)
	})

	// --- Аутентифицированный контур (любая действующая роль) ---

	router.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware())

		r.Get("/api/v1/auth/claims", api.GetClaims)
		r.Post("/api/v1/auth/logout", api.Logout)

		r.Get("/api/v1/folder-categories", api.GetFolderCategories)
		r.Get("/api/v1/folder-categories/{stageCode}", api.GetCategoryByStageCode)

		// --- Административный контур API ---

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/api/v1/assets", api.CreateAsset)
			r.Get("/api/v1/assets", api.ListAssets)
			r.Get("/api/v1/assets/filter", api.FilterAssets)
			r.Post("/api/v1/assets/publish", api.PublishAsset)
			r.Get("/api/v1/assets/{id}", api.GetAsset)
			r.Put("/api/v1/assets/{id}", api.UpdateAsset)
			r.Delete("/api/v1/assets/{id}", api.DeleteAsset)

			r.Post("/api/v1/upload", api.UploadStagedFile)

			r.Get("/api/v1/files", api.ListFiles)
			r.Post("/api/v1/files/upload", api.UploadFile)
			r.Post("/api/v1/files/delete", api.DeleteFile)

			r.Get("/api/v1/folders", api.GetRootFolders)
			r.Get("/api/v1/folders/*", api.GetFolderContents)

			r.Post("/api/v1/cache/clear", api.ClearCache)
			r.Get("/api/v1/cache/stats", api.CacheStats)
			r.Post("/api/v1/cache/cleanup", api.CleanupCache)
		})
	})

	// --- Страницы дашборда (redirect на /login вместо 401) ---

	router.Group(func(r chi.Router) {
		r.Use(pageAuth.RequireAdmin)

		r.Get("/dashboard", ui.HandleDashboard)
		r.Get("/dashboard/assets", ui.HandleAssetManagement)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
