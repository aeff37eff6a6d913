package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
)

// Типы элементов содержимого папки.
const (
	ItemTypeFolder = "folder"
	ItemTypeFile   = "file"
)

// FolderItem - элемент содержимого папки: вложенная папка или файл.
// Поля-указатели сериализуются в null, когда значение неприменимо.
type FolderItem struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	ItemType      string  `json:"item_type"`
	Size          *int64  `json:"size"`
	FileType      *string `json:"file_type"`
	URL           *string `json:"url"`
	ModifiedAt    *string `json:"modified_at"`
	ChildrenCount *int    `json:"children_count"`
}

// Breadcrumb - звено навигационной цепочки.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FolderContents - содержимое папки для обозревателя файлов.
type FolderContents struct {
	CurrentPath string       `json:"current_path"`
	Items       []FolderItem `json:"items"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
}

// Folders строит дерево папок поверх кэшированного листинга хранилища.
// Сам листинг плоский (ключи вида "G1/January/cover.png"), иерархия
// восстанавливается разбором ключей.
type Folders struct {
	cache      *ListingCache
	category   string
	storageURL string
	logger     *slog.Logger
}

// NewFolders создаёт обозреватель папок.
// storageURL - база для прямых ссылок на файлы хранилища.
func NewFolders(cache *ListingCache, category, storageURL string, logger *slog.Logger) *Folders {
	return &Folders{
		cache:      cache,
		category:   category,
		storageURL: strings.TrimRight(storageURL, "/"),
		logger:     logger.With(slog.String("component", "folders")),
	}
}

// ListChildren возвращает имена вложенных папок первого уровня
// для заданного префикса. Пустой префикс означает корень. У префикса
// срезается не более одного завершающего слэша. Ключи, равные префиксу,
// ключи без дальнейшей вложенности (файлы этого уровня) и пустые
// сегменты (двойные слэши) вложенных папок не образуют.
// Результат без дубликатов, отсортирован лексикографически.
func ListChildren(records []model.ObjectRecord, prefix string) []string {
	prefix = strings.TrimSuffix(prefix, "/")

	seen := make(map[string]struct{})
	for _, rec := range records {
		remainder := rec.Key
		if prefix != "" {
			if !strings.HasPrefix(rec.Key, prefix+"/") {
				continue
			}
			remainder = rec.Key[len(prefix)+1:]
		}
		name, _, found := strings.Cut(remainder, "/")
		if !found {
			// Файл этого уровня, папки не образует.
			continue
		}
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}

	children := make([]string, 0, len(seen))
	for name := range seen {
		children = append(children, name)
	}
	sort.Strings(children)
	return children
}

// directFiles возвращает записи-файлы, лежащие непосредственно в папке
// prefix (без рекурсии по вложенным папкам).
func directFiles(records []model.ObjectRecord, prefix string) []model.ObjectRecord {
	prefix = strings.TrimSuffix(prefix, "/")

	var files []model.ObjectRecord
	for _, rec := range records {
		remainder := rec.Key
		if prefix != "" {
			if !strings.HasPrefix(rec.Key, prefix+"/") {
				continue
			}
			remainder = rec.Key[len(prefix)+1:]
		}
		if remainder == "" || strings.Contains(remainder, "/") {
			continue
		}
		files = append(files, rec)
	}
	return files
}

// countChildren считает различимые элементы первого уровня внутри папки:
// вложенные папки и файлы вместе.
func countChildren(records []model.ObjectRecord, prefix string) int {
	return len(ListChildren(records, prefix)) + len(directFiles(records, prefix))
}

// Children возвращает имена вложенных папок для префикса,
// используя кэшированный листинг.
func (f *Folders) Children(ctx context.Context, prefix string) ([]string, error) {
	snap, err := f.cache.GetAll(ctx, f.category)
	if err != nil {
		return nil, fmt.Errorf("листинг для структуры папок: %w", err)
	}
	return ListChildren(snap.Records, prefix), nil
}

// Contents строит содержимое папки по пути обозревателя.
// Уровни 0 и 1 (корень и учебная программа) показывают только папки,
// глубже показываются файлы папки со ссылками на хранилище.
func (f *Folders) Contents(ctx context.Context, folderPath string) (*FolderContents, error) {
	normalized := strings.Trim(folderPath, "/")
	f.logger.DebugContext(ctx, "строим содержимое папки", slog.String("path", normalized))

	snap, err := f.cache.GetAll(ctx, f.category)
	if err != nil {
		return nil, fmt.Errorf("листинг для содержимого папки %q: %w", normalized, err)
	}

	contents := &FolderContents{
		CurrentPath: normalized,
		Items:       []FolderItem{},
		Breadcrumbs: buildBreadcrumbs(normalized),
	}

	depth := 0
	if normalized != "" {
		depth = len(strings.Split(normalized, "/"))
	}

	if depth < 2 {
		for _, name := range ListChildren(snap.Records, normalized) {
			childPath := name
			if normalized != "" {
				childPath = normalized + "/" + name
			}
			count := countChildren(snap.Records, childPath)
			contents.Items = append(contents.Items, FolderItem{
				Name:          name,
				Path:          childPath,
				ItemType:      ItemTypeFolder,
				ChildrenCount: &count,
			})
		}
		return contents, nil
	}

	files := directFiles(snap.Records, normalized)
	for _, rec := range files {
		name := rec.Key[strings.LastIndex(rec.Key, "/")+1:]
		size := rec.Size
		fileType := fileTypeByName(name)
		fileURL := fmt.Sprintf("%s/file?key=%s", f.storageURL, url.QueryEscape(rec.Key))
		item := FolderItem{
			Name:     name,
			Path:     rec.Key,
			ItemType: ItemTypeFile,
			Size:     &size,
			FileType: &fileType,
			URL:      &fileURL,
		}
		if rec.ModifiedAt != "" {
			modified := rec.ModifiedAt
			item.ModifiedAt = &modified
		}
		contents.Items = append(contents.Items, item)
	}
	sort.Slice(contents.Items, func(i, j int) bool {
		return contents.Items[i].Name < contents.Items[j].Name
	})
	return contents, nil
}

// fileTypeByName определяет тип файла по расширению имени.
func fileTypeByName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".png"), strings.HasSuffix(lower, ".jpg"),
		strings.HasSuffix(lower, ".jpeg"), strings.HasSuffix(lower, ".gif"),
		strings.HasSuffix(lower, ".webp"):
		return "image"
	case strings.HasSuffix(lower, ".mp4"), strings.HasSuffix(lower, ".mov"),
		strings.HasSuffix(lower, ".avi"), strings.HasSuffix(lower, ".mkv"),
		strings.HasSuffix(lower, ".webm"):
		return "video"
	case strings.HasSuffix(lower, ".pdf"):
		return "pdf"
	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".json"),
		strings.HasSuffix(lower, ".xml"), strings.HasSuffix(lower, ".csv"):
		return "text"
	default:
		return "other"
	}
}

// buildBreadcrumbs собирает навигационную цепочку: Home плюс накопительные
// части пути.
func buildBreadcrumbs(normalized string) []Breadcrumb {
	breadcrumbs := []Breadcrumb{{Name: "Home", Path: ""}}
	if normalized == "" {
		return breadcrumbs
	}
	current := ""
	for _, part := range strings.Split(normalized, "/") {
		if current != "" {
			current += "/"
		}
		current += part
		breadcrumbs = append(breadcrumbs, Breadcrumb{Name: part, Path: current})
	}
	return breadcrumbs
}
