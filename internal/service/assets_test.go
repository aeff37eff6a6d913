package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bigkaa/edustore/catalog-module/internal/assetfs"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/catalog"
	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
	"github.com/bigkaa/edustore/catalog-module/internal/repository"
)

// --- Mock repository ---

// mockAssetRepo — мок AssetRepository для unit-тестов.
type mockAssetRepo struct {
	createFn               func(ctx context.Context, a *model.Asset) error
	getByIDFn              func(ctx context.Context, id string) (*model.Asset, error)
	getByCurriculumMonthFn func(ctx context.Context, curriculum, month string) (*model.Asset, error)
	listFn                 func(ctx context.Context) ([]*model.Asset, error)
	filterFn               func(ctx context.Context, filters repository.AssetFilters) ([]*model.Asset, error)
	updateFn               func(ctx context.Context, a *model.Asset) error
	deleteFn               func(ctx context.Context, id string) error
}

func (m *mockAssetRepo) Create(ctx context.Context, a *model.Asset) error {
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	return nil
}

func (m *mockAssetRepo) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockAssetRepo) GetByCurriculumMonth(ctx context.Context, curriculum, month string) (*model.Asset, error) {
	if m.getByCurriculumMonthFn != nil {
		return m.getByCurriculumMonthFn(ctx, curriculum, month)
	}
	return nil, repository.ErrNotFound
}

func (m *mockAssetRepo) List(ctx context.Context) ([]*model.Asset, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockAssetRepo) Filter(ctx context.Context, filters repository.AssetFilters) ([]*model.Asset, error) {
	if m.filterFn != nil {
		return m.filterFn(ctx, filters)
	}
	return nil, nil
}

func (m *mockAssetRepo) Update(ctx context.Context, a *model.Asset) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, a)
	}
	return nil
}

func (m *mockAssetRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// testProjectMap пишет временный project_list.yaml и загружает карту.
func testProjectMap(t *testing.T) *catalog.ProjectMap {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project_list.yaml")
	content := `G1:
  month_01: BK101
  month_02: BK102
EX2:
  month_01: BK201
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	pm, err := catalog.LoadProjectMap(path)
	if err != nil {
		t.Fatalf("LoadProjectMap вернул ошибку: %v", err)
	}
	return pm
}

// newTestAssetService собирает сервис с моком репозитория и временным
// деревом файлов.
func newTestAssetService(t *testing.T, repo repository.AssetRepository) (*AssetService, *assetfs.Store) {
	t.Helper()
	files := assetfs.New(t.TempDir(), testLogger())
	svc := NewAssetService(repo, files, testProjectMap(t), testLogger())
	return svc, files
}

// stageAssetFile кладёт файл в промежуточную папку сервиса.
func stageAssetFile(t *testing.T, files *assetfs.Store, name, content string) string {
	t.Helper()
	safe, err := files.SaveStagedUpload(name, strings.NewReader(content))
	if err != nil {
		t.Fatalf("SaveStagedUpload вернул ошибку: %v", err)
	}
	return safe
}

// --- Тесты AssetService ---

func TestAssetService_Create(t *testing.T) {
	var created *model.Asset
	repo := &mockAssetRepo{
		createFn: func(_ context.Context, a *model.Asset) error {
			created = a
			return nil
		},
	}
	svc, files := newTestAssetService(t, repo)

	cover := stageAssetFile(t, files, "cover.png", "обложка")
	thumb := stageAssetFile(t, files, "thumb.png", "миниатюра")

	asset, err := svc.Create(context.Background(), CreateAssetParams{
		Curriculum: "G1",
		Month:      "January",
		Covers:     []string{"cover/" + cover},
		Subtitles: []model.SubtitleEntry{
			{PageNum: 1, SentenceNum: 1, Text: "Hello"},
		},
		YouTubeLinks: []model.YouTubeLink{
			{ThumbnailFile: "thumbnail/" + thumb, YouTubeURL: "https://youtu.be/x"},
		},
	})
	if err != nil {
		t.Fatalf("Create вернул ошибку: %v", err)
	}

	if created == nil {
		t.Fatal("репозиторий не получил ассет")
	}
	if asset.ID == "" {
		t.Error("ID не назначен")
	}
	if asset.BookID != "BK101" {
		t.Errorf("BookID = %q, ожидался BK101 (January -> month_01)", asset.BookID)
	}
	if len(asset.Covers) != 1 || asset.Covers[0] != "cover/"+cover {
		t.Errorf("Covers = %v, ожидался перенесённый путь", asset.Covers)
	}
	if asset.YouTubeLinks[0].ThumbnailFile != "thumbnail/"+thumb {
		t.Errorf("ThumbnailFile = %q, ожидался перенесённый путь", asset.YouTubeLinks[0].ThumbnailFile)
	}

	// Файлы действительно перенесены и метаданные записаны.
	assetDir := files.AssetDir("G1", "January")
	if _, err := os.Stat(filepath.Join(assetDir, "cover", cover)); err != nil {
		t.Errorf("обложка не перенесена: %v", err)
	}
	if _, err := os.Stat(filepath.Join(assetDir, "thumbnail", thumb)); err != nil {
		t.Errorf("миниатюра не перенесена: %v", err)
	}
	for _, meta := range []string{"data.json", "subtitle.json", filepath.Join("youtube", "youtube_links.json")} {
		if _, err := os.Stat(filepath.Join(assetDir, meta)); err != nil {
			t.Errorf("файл метаданных %s не записан: %v", meta, err)
		}
	}
}

func TestAssetService_Create_Conflict(t *testing.T) {
	repo := &mockAssetRepo{
		getByCurriculumMonthFn: func(_ context.Context, curriculum, month string) (*model.Asset, error) {
			return &model.Asset{ID: "existing", Curriculum: curriculum, Month: month}, nil
		},
		createFn: func(_ context.Context, _ *model.Asset) error {
			t.Error("Create репозитория не должен вызываться при конфликте")
			return nil
		},
	}
	svc, _ := newTestAssetService(t, repo)

	_, err := svc.Create(context.Background(), CreateAssetParams{Curriculum: "G1", Month: "January"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Create = %v, ожидался ErrConflict", err)
	}
}

func TestAssetService_Create_UnknownBook(t *testing.T) {
	svc, _ := newTestAssetService(t, &mockAssetRepo{})

	_, err := svc.Create(context.Background(), CreateAssetParams{Curriculum: "ZZ", Month: "January"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Create = %v, ожидался ErrValidation", err)
	}
}

func TestAssetService_Create_MissingFields(t *testing.T) {
	svc, _ := newTestAssetService(t, &mockAssetRepo{})

	_, err := svc.Create(context.Background(), CreateAssetParams{Month: "January"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Create без curriculum = %v, ожидался ErrValidation", err)
	}
}

func TestAssetService_GetByID_CachesResult(t *testing.T) {
	var calls atomic.Int32
	repo := &mockAssetRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Asset, error) {
			calls.Add(1)
			return &model.Asset{ID: id, Curriculum: "G1", Month: "January"}, nil
		},
	}
	svc, _ := newTestAssetService(t, repo)

	if _, err := svc.GetByID(context.Background(), "asset-1"); err != nil {
		t.Fatalf("GetByID вернул ошибку: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), "asset-1"); err != nil {
		t.Fatalf("повторный GetByID вернул ошибку: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("обращений к репозиторию: %d, ожидалось 1 (второе чтение из кэша)", got)
	}
}

func TestAssetService_GetByID_NotFound(t *testing.T) {
	svc, _ := newTestAssetService(t, &mockAssetRepo{})

	_, err := svc.GetByID(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID = %v, ожидался ErrNotFound", err)
	}
}

func TestAssetService_Update_Subtitles(t *testing.T) {
	stored := &model.Asset{
		ID:         "asset-1",
		Curriculum: "G1",
		Month:      "January",
		BookID:     "BK101",
		Covers:     []string{"cover/main.png"},
	}
	var updated *model.Asset
	repo := &mockAssetRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Asset, error) {
			a := *stored
			return &a, nil
		},
		updateFn: func(_ context.Context, a *model.Asset) error {
			updated = a
			return nil
		},
	}
	svc, _ := newTestAssetService(t, repo)

	subs := []model.SubtitleEntry{{PageNum: 2, SentenceNum: 1, Text: "New text"}}
	asset, err := svc.Update(context.Background(), "asset-1", UpdateAssetParams{Subtitles: &subs})
	if err != nil {
		t.Fatalf("Update вернул ошибку: %v", err)
	}

	if updated == nil {
		t.Fatal("репозиторий не получил обновление")
	}
	if len(asset.Subtitles) != 1 || asset.Subtitles[0].Text != "New text" {
		t.Errorf("Subtitles = %v, ожидалась новая запись", asset.Subtitles)
	}
	if len(asset.Covers) != 1 || asset.Covers[0] != "cover/main.png" {
		t.Errorf("Covers = %v, не должны меняться", asset.Covers)
	}
}

func TestAssetService_Update_ReplacesExistingCovers(t *testing.T) {
	stored := &model.Asset{
		ID:         "asset-1",
		Curriculum: "G1",
		Month:      "January",
		Covers:     []string{"cover/main.png"},
	}
	var updated *model.Asset
	repo := &mockAssetRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Asset, error) {
			a := *stored
			return &a, nil
		},
		updateFn: func(_ context.Context, a *model.Asset) error {
			updated = a
			return nil
		},
	}
	svc, files := newTestAssetService(t, repo)

	// Существующая обложка на диске.
	coverDir := filepath.Join(files.AssetDir("G1", "January"), "cover")
	if err := os.MkdirAll(coverDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(coverDir, "main.png"), []byte("старая"), 0o644); err != nil {
		t.Fatal(err)
	}
	stageAssetFile(t, files, "new.png", "новая")

	covers := []string{"cover/ignored.png"}
	_, err := svc.Update(context.Background(), "asset-1", UpdateAssetParams{Covers: &covers})
	if err != nil {
		t.Fatalf("Update вернул ошибку: %v", err)
	}

	// Список обложек сохранён, содержимое файла заменено.
	if len(updated.Covers) != 1 || updated.Covers[0] != "cover/main.png" {
		t.Errorf("Covers = %v, ожидался прежний список", updated.Covers)
	}
	data, err := os.ReadFile(filepath.Join(coverDir, "main.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "новая" {
		t.Errorf("обложка = %q, содержимое не заменено", data)
	}
}

func TestAssetService_Update_MovesNewCovers(t *testing.T) {
	stored := &model.Asset{
		ID:         "asset-1",
		Curriculum: "G1",
		Month:      "January",
	}
	var updated *model.Asset
	repo := &mockAssetRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Asset, error) {
			a := *stored
			return &a, nil
		},
		updateFn: func(_ context.Context, a *model.Asset) error {
			updated = a
			return nil
		},
	}
	svc, files := newTestAssetService(t, repo)

	name := stageAssetFile(t, files, "fresh.png", "обложка")

	covers := []string{"cover/" + name}
	_, err := svc.Update(context.Background(), "asset-1", UpdateAssetParams{Covers: &covers})
	if err != nil {
		t.Fatalf("Update вернул ошибку: %v", err)
	}

	if len(updated.Covers) != 1 || updated.Covers[0] != "cover/"+name {
		t.Errorf("Covers = %v, ожидался перенесённый путь", updated.Covers)
	}
	if _, err := os.Stat(filepath.Join(files.AssetDir("G1", "January"), "cover", name)); err != nil {
		t.Errorf("обложка не перенесена: %v", err)
	}
}

func TestAssetService_Update_SetsCoversDirectly(t *testing.T) {
	stored := &model.Asset{
		ID:         "asset-1",
		Curriculum: "G1",
		Month:      "January",
		Covers:     []string{"cover/old.png"},
	}
	var updated *model.Asset
	repo := &mockAssetRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Asset, error) {
			a := *stored
			return &a, nil
		},
		updateFn: func(_ context.Context, a *model.Asset) error {
			updated = a
			return nil
		},
	}
	svc, _ := newTestAssetService(t, repo)

	covers := []string{"cover/renamed.png"}
	_, err := svc.Update(context.Background(), "asset-1", UpdateAssetParams{Covers: &covers})
	if err != nil {
		t.Fatalf("Update вернул ошибку: %v", err)
	}

	// Промежуточная папка пуста — пути применяются как есть.
	if len(updated.Covers) != 1 || updated.Covers[0] != "cover/renamed.png" {
		t.Errorf("Covers = %v, ожидался переданный список", updated.Covers)
	}
}

func TestAssetService_Update_InvalidatesCache(t *testing.T) {
	var calls atomic.Int32
	repo := &mockAssetRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Asset, error) {
			calls.Add(1)
			return &model.Asset{ID: id, Curriculum: "G1", Month: "January"}, nil
		},
	}
	svc, _ := newTestAssetService(t, repo)

	if _, err := svc.GetByID(context.Background(), "asset-1"); err != nil {
		t.Fatalf("GetByID вернул ошибку: %v", err)
	}

	subs := []model.SubtitleEntry{}
	if _, err := svc.Update(context.Background(), "asset-1", UpdateAssetParams{Subtitles: &subs}); err != nil {
		t.Fatalf("Update вернул ошибку: %v", err)
	}

	before := calls.Load()
	if _, err := svc.GetByID(context.Background(), "asset-1"); err != nil {
		t.Fatalf("GetByID после Update вернул ошибку: %v", err)
	}
	if calls.Load() != before+1 {
		t.Error("после Update чтение должно идти в репозиторий, а не в кэш")
	}
}

func TestAssetService_Update_NotFound(t *testing.T) {
	svc, _ := newTestAssetService(t, &mockAssetRepo{})

	subs := []model.SubtitleEntry{}
	_, err := svc.Update(context.Background(), "absent", UpdateAssetParams{Subtitles: &subs})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update = %v, ожидался ErrNotFound", err)
	}
}

func TestAssetService_Delete(t *testing.T) {
	stored := &model.Asset{ID: "asset-1", Curriculum: "G1", Month: "January"}
	var deletedID string
	repo := &mockAssetRepo{
		getByIDFn: func(_ context.Context, id string) (*model.Asset, error) {
			a := *stored
			return &a, nil
		},
		deleteFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc, files := newTestAssetService(t, repo)

	if err := files.CreateAssetFolders("G1", "January"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(context.Background(), "asset-1"); err != nil {
		t.Fatalf("Delete вернул ошибку: %v", err)
	}
	if deletedID != "asset-1" {
		t.Errorf("репозиторий удалил %q, ожидался asset-1", deletedID)
	}
	if _, err := os.Stat(files.AssetDir("G1", "January")); !os.IsNotExist(err) {
		t.Error("папка ассета не удалена")
	}
}

func TestAssetService_Delete_NotFound(t *testing.T) {
	svc, _ := newTestAssetService(t, &mockAssetRepo{})

	err := svc.Delete(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete = %v, ожидался ErrNotFound", err)
	}
}
