// assets.go — сервис ассетов учебных материалов.
// CRUD поверх PostgreSQL, локального дерева файлов ассетов и карты
// проектов; горячие чтения обслуживает LRU-кэш с TTL
// (hashicorp/golang-lru/v2/expirable).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/edustore/catalog-module/internal/assetfs"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/catalog"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
	"github.com/bigkaa/edustore/catalog-module/internal/repository"
)

// Параметры LRU-кэша ассетов.
const (
	assetCacheSize = 512
	assetCacheTTL  = 10 * time.Minute
)

// Prometheus-метрики кэша ассетов.
var (
	assetCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_asset_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш ассетов.",
	})
	assetCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_asset_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша ассетов.",
	})
)

// AssetService — сервис ассетов учебных материалов.
type AssetService struct {
	repo     repository.AssetRepository
	files    *assetfs.Store
	projects *catalog.ProjectMap
	cache    *expirable.LRU[string, *model.Asset]
	logger   *slog.Logger
}

// NewAssetService создаёт сервис ассетов.
func NewAssetService(
	repo repository.AssetRepository,
	files *assetfs.Store,
	projects *catalog.ProjectMap,
	logger *slog.Logger,
) *AssetService {
	return &AssetService{
		repo:     repo,
		files:    files,
		projects: projects,
		cache:    expirable.NewLRU[string, *model.Asset](assetCacheSize, nil, assetCacheTTL),
		logger:   logger.With(slog.String("component", "asset_service")),
	}
}

// CreateAssetParams — параметры создания ассета.
type CreateAssetParams struct {
	Curriculum   string
	Month        string
	Covers       []string
	Subtitles    []model.SubtitleEntry
	YouTubeLinks []model.YouTubeLink
}

// UpdateAssetParams — параметры частичного обновления ассета.
// nil-поле означает «не менять».
type UpdateAssetParams struct {
	Covers       *[]string
	Subtitles    *[]model.SubtitleEntry
	YouTubeLinks *[]model.YouTubeLink
}

// Create создаёт ассет: определяет book_id по карте проектов, переносит
// промежуточные файлы в папку ассета, пишет файлы метаданных и сохраняет
// запись в БД.
func (s *AssetService) Create(ctx context.Context, p CreateAssetParams) (*model.Asset, error) {
	if p.Curriculum == "" || p.Month == "" {
		return nil, fmt.Errorf("%w: curriculum и month обязательны", ErrValidation)
	}

	// Проверка существования до файловых операций: при конфликте
	// промежуточные файлы остаются на месте.
	if _, err := s.repo.GetByCurriculumMonth(ctx, p.Curriculum, p.Month); err == nil {
		return nil, fmt.Errorf("%w: ассет %s - %s уже существует", ErrConflict, p.Curriculum, p.Month)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("проверка существования ассета: %w", err)
	}

	bookID, err := s.projects.BookID(p.Curriculum, p.Month)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	movedCovers, err := s.files.MoveStagedFiles(p.Covers, p.Curriculum, p.Month, "cover")
	if err != nil {
		return nil, fmt.Errorf("перенос обложек: %w", err)
	}

	youtubeLinks := s.moveThumbnails(p.YouTubeLinks, p.Curriculum, p.Month)

	asset := &model.Asset{
		ID:           uuid.New().String(),
		Curriculum:   p.Curriculum,
		Month:        p.Month,
		BookID:       bookID,
		Covers:       movedCovers,
		Subtitles:    p.Subtitles,
		YouTubeLinks: youtubeLinks,
	}

	if err := s.files.CreateAssetFolders(p.Curriculum, p.Month); err != nil {
		return nil, fmt.Errorf("создание папок ассета: %w", err)
	}
	if err := s.files.WriteMetadata(asset); err != nil {
		return nil, fmt.Errorf("запись метаданных ассета: %w", err)
	}

	if err := s.repo.Create(ctx, asset); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: ассет %s - %s уже существует", ErrConflict, p.Curriculum, p.Month)
		}
		return nil, fmt.Errorf("сохранение ассета: %w", err)
	}

	s.cache.Add(asset.ID, asset)
	s.logger.InfoContext(ctx, "Ассет создан",
		slog.String("asset_id", asset.ID),
		slog.String("curriculum", asset.Curriculum),
		slog.String("month", asset.Month),
	)
	return asset, nil
}

// moveThumbnails переносит промежуточные миниатюры YouTube-ссылок в папку
// ассета. Ошибка переноса отдельной миниатюры не срывает операцию:
// ссылка сохраняет прежний путь.
func (s *AssetService) moveThumbnails(links []model.YouTubeLink, curriculum, month string) []model.YouTubeLink {
	moved := make([]model.YouTubeLink, 0, len(links))
	for _, link := range links {
		thumbnail, err := s.files.MoveStagedFile(link.ThumbnailFile, curriculum, month, "thumbnail")
		if err != nil {
			s.logger.Warn("Перенос миниатюры не удался, путь оставлен прежним",
				slog.String("thumbnail", link.ThumbnailFile),
				slog.String("error", err.Error()),
			)
			thumbnail = link.ThumbnailFile
		}
		link.ThumbnailFile = thumbnail
		moved = append(moved, link)
	}
	return moved
}

// GetByID возвращает ассет по UUID, используя LRU-кэш.
func (s *AssetService) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	if asset, ok := s.cache.Get(id); ok {
		assetCacheHitsTotal.Inc()
		return asset, nil
	}
	assetCacheMissesTotal.Inc()

	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение ассета: %w", err)
	}

	s.cache.Add(id, asset)
	return asset, nil
}

// List возвращает все ассеты.
func (s *AssetService) List(ctx context.Context) ([]*model.Asset, error) {
	assets, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("список ассетов: %w", err)
	}
	return assets, nil
}

// Filter возвращает ассеты по фильтрам (учебная программа, месяц, учебник).
func (s *AssetService) Filter(ctx context.Context, filters repository.AssetFilters) ([]*model.Asset, error) {
	assets, err := s.repo.Filter(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("фильтрация ассетов: %w", err)
	}
	return assets, nil
}

// Update частично обновляет ассет: заменяет переданные поля, переносит
// новые промежуточные файлы, переписывает файлы метаданных и сохраняет
// запись в БД.
func (s *AssetService) Update(ctx context.Context, id string, p UpdateAssetParams) (*model.Asset, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение ассета для обновления: %w", err)
	}

	if p.Covers != nil {
		if err := s.applyCoverUpdate(asset, *p.Covers); err != nil {
			return nil, err
		}
	}
	if p.Subtitles != nil {
		asset.Subtitles = *p.Subtitles
	}
	if p.YouTubeLinks != nil {
		asset.YouTubeLinks = s.moveThumbnails(*p.YouTubeLinks, asset.Curriculum, asset.Month)
	}

	if err := s.files.CreateAssetFolders(asset.Curriculum, asset.Month); err != nil {
		return nil, fmt.Errorf("создание папок ассета: %w", err)
	}
	if err := s.files.WriteMetadata(asset); err != nil {
		return nil, fmt.Errorf("запись метаданных ассета: %w", err)
	}

	if err := s.repo.Update(ctx, asset); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление ассета: %w", err)
	}

	s.cache.Remove(id)
	s.logger.InfoContext(ctx, "Ассет обновлён",
		slog.String("asset_id", id),
		slog.String("curriculum", asset.Curriculum),
		slog.String("month", asset.Month),
	)
	return asset, nil
}

// applyCoverUpdate обновляет обложки ассета. Когда в промежуточной папке
// лежат новые файлы, а у ассета уже есть обложки, содержимое существующих
// файлов заменяется по порядку с сохранением имён (и список обложек не
// меняется). Иначе переданные пути переносятся как новые обложки.
func (s *AssetService) applyCoverUpdate(asset *model.Asset, covers []string) error {
	staged, err := s.files.StagedFileNames()
	if err != nil {
		return fmt.Errorf("чтение промежуточной папки: %w", err)
	}

	switch {
	case len(staged) > 0 && len(asset.Covers) > 0:
		if err := s.files.ReplaceCovers(asset.Curriculum, asset.Month, asset.Covers); err != nil {
			return fmt.Errorf("замена обложек: %w", err)
		}
		s.logger.Info("Существующие обложки заменены загруженными файлами",
			slog.String("asset_id", asset.ID),
		)
	case len(staged) > 0:
		moved, err := s.files.MoveStagedFiles(covers, asset.Curriculum, asset.Month, "cover")
		if err != nil {
			return fmt.Errorf("перенос обложек: %w", err)
		}
		asset.Covers = moved
	default:
		asset.Covers = covers
	}
	return nil
}

// Delete удаляет ассет и его папку с файлами.
// Ошибка удаления папки не срывает операцию.
func (s *AssetService) Delete(ctx context.Context, id string) error {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("получение ассета для удаления: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление ассета: %w", err)
	}

	if err := s.files.DeleteAssetFolder(asset.Curriculum, asset.Month); err != nil {
		s.logger.Warn("Папку ассета удалить не удалось",
			slog.String("asset_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.cache.Remove(id)
	s.logger.InfoContext(ctx, "Ассет удалён",
		slog.String("asset_id", id),
		slog.String("curriculum", asset.Curriculum),
		slog.String("month", asset.Month),
	)
	return nil
}
