package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
)

// Перечень колонок таблицы assets для SELECT-запросов.
const assetColumns = `id, curriculum, month, book_id, covers, subtitles, youtube_links,
		created_at, updated_at`

// AssetRepository — интерфейс CRUD для таблицы assets.
type AssetRepository interface {
	// Create создаёт новый ассет.
	Create(ctx context.Context, a *model.Asset) error
	// GetByID возвращает ассет по UUID.
	GetByID(ctx context.Context, id string) (*model.Asset, error)
	// GetByCurriculumMonth возвращает ассет пары (программа, месяц).
	GetByCurriculumMonth(ctx context.Context, curriculum, month string) (*model.Asset, error)
	// List возвращает все ассеты.
	List(ctx context.Context) ([]*model.Asset, error)
	// Filter возвращает ассеты по заданным фильтрам.
	Filter(ctx context.Context, filters AssetFilters) ([]*model.Asset, error)
	// Update обновляет изменяемые поля ассета.
	Update(ctx context.Context, a *model.Asset) error
	// Delete удаляет ассет по UUID.
	Delete(ctx context.Context, id string) error
}

// AssetFilters — фильтры для выборки ассетов.
type AssetFilters struct {
	Curriculum *string
	Month      *string
	BookID     *string
}

// assetRepo — реализация AssetRepository.
type assetRepo struct {
	db DBTX
}

// NewAssetRepository создаёт репозиторий ассетов.
func NewAssetRepository(db DBTX) AssetRepository {
	return &assetRepo{db: db}
}

func (r *assetRepo) Create(ctx context.Context, a *model.Asset) error {
	query := `
		INSERT INTO assets (id, curriculum, month, book_id, covers, subtitles, youtube_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.Curriculum, a.Month, a.BookID, a.Covers, a.Subtitles, a.YouTubeLinks,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ассет для этой программы и месяца уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания ассета: %w", err)
	}
	return nil
}

func (r *assetRepo) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1`, assetColumns)

	a, err := scanAsset(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ассета: %w", err)
	}
	return a, nil
}

func (r *assetRepo) GetByCurriculumMonth(ctx context.Context, curriculum, month string) (*model.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE curriculum = $1 AND month = $2`, assetColumns)

	a, err := scanAsset(r.db.QueryRow(ctx, query, curriculum, month))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ассета программы: %w", err)
	}
	return a, nil
}

func (r *assetRepo) List(ctx context.Context) ([]*model.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets ORDER BY created_at DESC`, assetColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка ассетов: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

// buildAssetWhere строит WHERE-условие и аргументы для фильтрации ассетов.
func buildAssetWhere(filters AssetFilters) (string, []any) {
	var conditions []string
	var args []any
	argNum := 1

	if filters.Curriculum != nil {
		conditions = append(conditions, fmt.Sprintf("curriculum = $%d", argNum))
		args = append(args, *filters.Curriculum)
		argNum++
	}
	if filters.Month != nil {
		conditions = append(conditions, fmt.Sprintf("month = $%d", argNum))
		args = append(args, *filters.Month)
		argNum++
	}
	if filters.BookID != nil {
		conditions = append(conditions, fmt.Sprintf("book_id = $%d", argNum))
		args = append(args, *filters.BookID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func (r *assetRepo) Filter(ctx context.Context, filters AssetFilters) ([]*model.Asset, error) {
	where, args := buildAssetWhere(filters)

	query := fmt.Sprintf(`SELECT %s FROM assets %s ORDER BY created_at DESC`, assetColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка фильтрации ассетов: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

func (r *assetRepo) Update(ctx context.Context, a *model.Asset) error {
	query := `
		UPDATE assets
		SET book_id = $2, covers = $3, subtitles = $4, youtube_links = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.BookID, a.Covers, a.Subtitles, a.YouTubeLinks,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления ассета: %w", err)
	}
	return nil
}

func (r *assetRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления ассета: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanAsset читает одну строку ассета.
func scanAsset(row pgx.Row) (*model.Asset, error) {
	a := &model.Asset{}
	err := row.Scan(
		&a.ID, &a.Curriculum, &a.Month, &a.BookID, &a.Covers, &a.Subtitles, &a.YouTubeLinks,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// collectAssets читает все строки результата.
func collectAssets(rows pgx.Rows) ([]*model.Asset, error) {
	var result []*model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования ассета: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
