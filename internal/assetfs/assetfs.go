// Пакет assetfs управляет локальным деревом файлов ассетов:
// промежуточной папкой загрузок и папками ассетов с файлами метаданных.
//
// Структура дерева (корень задаётся CM_ASSET_ROOT):
//
//	<root>/uploads/                     - промежуточные загрузки
//	<root>/<curriculum>/<month>/        - папка ассета
//	    cover/  subtitle/  thumbnail/  youtube/
//	    data.json  subtitle.json  youtube/youtube_links.json
package assetfs

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
)

// Store — операции над локальным деревом ассетов.
type Store struct {
	root   string
	logger *slog.Logger
}

// New создаёт хранилище ассетов с корнем root.
func New(root string, logger *slog.Logger) *Store {
	return &Store{
		root:   root,
		logger: logger.With(slog.String("component", "assetfs")),
	}
}

// StagingDir возвращает путь промежуточной папки загрузок.
func (s *Store) StagingDir() string {
	return filepath.Join(s.root, "uploads")
}

// AssetDir возвращает путь папки ассета.
func (s *Store) AssetDir(curriculum, month string) string {
	return filepath.Join(s.root, curriculum, month)
}

// StagedWebPath возвращает путь промежуточного файла для клиента.
func (s *Store) StagedWebPath(name string) string {
	return "/" + filepath.ToSlash(filepath.Join(s.root, "uploads", name))
}

// SaveStagedUpload сохраняет файл в промежуточную папку под безопасным
// именем с префиксом-меткой времени и возвращает это имя.
func (s *Store) SaveStagedUpload(name string, r io.Reader) (string, error) {
	dir := s.StagingDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("создание папки загрузок: %w", err)
	}

	safe := sanitizeFilename(name)
	fullPath := filepath.Join(dir, safe)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("создание файла загрузки: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("запись файла загрузки: %w", err)
	}

	s.logger.Info("Файл сохранён в промежуточную папку", slog.String("path", fullPath))
	return safe, nil
}

// sanitizeFilename заменяет небезопасные символы имени файла на '_'
// и добавляет префикс-метку времени против конфликтов имён.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return fmt.Sprintf("%d_%s", time.Now().Unix(), b.String())
}

// StagedFileNames возвращает имена файлов промежуточной папки,
// отсортированные по имени. Метка времени в префиксе имён даёт
// порядок загрузки. Отсутствие папки — пустой результат.
func (s *Store) StagedFileNames() ([]string, error) {
	entries, err := os.ReadDir(s.StagingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("чтение папки загрузок: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReplaceCovers заменяет содержимое существующих файлов обложек файлами
// из промежуточной папки, сохраняя прежние имена. Промежуточные файлы
// сопоставляются обложкам по порядку загрузки; использованные удаляются,
// лишние остаются в промежуточной папке.
func (s *Store) ReplaceCovers(curriculum, month string, existingCovers []string) error {
	staged, err := s.StagedFileNames()
	if err != nil {
		return err
	}
	if len(staged) == 0 {
		return nil
	}

	targetDir := filepath.Join(s.root, curriculum, month, "cover")
	for i, cover := range existingCovers {
		if i >= len(staged) {
			break
		}
		src := filepath.Join(s.StagingDir(), staged[i])
		name := cover[strings.LastIndex(cover, "/")+1:]
		dst := filepath.Join(targetDir, name)

		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("замена обложки %s: %w", name, err)
		}
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("удаление промежуточного файла %s: %w", staged[i], err)
		}
		s.logger.Info("Обложка заменена загруженным файлом", slog.String("path", dst))
	}
	return nil
}

// MoveStagedFiles переносит промежуточные файлы в подпапку ассета.
// Возвращает новые относительные пути в порядке исходных.
func (s *Store) MoveStagedFiles(paths []string, curriculum, month, subfolder string) ([]string, error) {
	moved := make([]string, 0, len(paths))
	for _, p := range paths {
		mp, err := s.MoveStagedFile(p, curriculum, month, subfolder)
		if err != nil {
			return nil, err
		}
		moved = append(moved, mp)
	}
	return moved, nil
}

// MoveStagedFile переносит один промежуточный файл в подпапку ассета
// и возвращает относительный путь "<subfolder>/<имя>". Пути, не
// указывающие на промежуточную загрузку (префиксы cover/ и thumbnail/),
// и пути без исходного файла возвращаются без изменений: такие записи
// уже ссылаются на лежащий в папке ассета файл.
func (s *Store) MoveStagedFile(filePath, curriculum, month, subfolder string) (string, error) {
	if !strings.HasPrefix(filePath, "cover/") && !strings.HasPrefix(filePath, "thumbnail/") {
		return filePath, nil
	}

	name := filePath[strings.LastIndex(filePath, "/")+1:]
	src := filepath.Join(s.StagingDir(), name)
	if _, err := os.Stat(src); err != nil {
		return filePath, nil
	}

	targetDir := filepath.Join(s.root, curriculum, month, subfolder)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("создание папки %s: %w", subfolder, err)
	}

	dst := filepath.Join(targetDir, name)
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("перенос файла %s: %w", name, err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("удаление промежуточного файла %s: %w", name, err)
	}

	s.logger.Info("Промежуточный файл перенесён в папку ассета",
		slog.String("src", src),
		slog.String("dst", dst),
	)
	return subfolder + "/" + name, nil
}

// copyFile копирует файл целиком, затирая существующий приёмник.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CreateAssetFolders создаёт структуру папок ассета.
func (s *Store) CreateAssetFolders(curriculum, month string) error {
	base := s.AssetDir(curriculum, month)
	for _, sub := range []string{"cover", "subtitle", "thumbnail", "youtube"} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0o755); err != nil {
			return fmt.Errorf("создание структуры папок ассета: %w", err)
		}
	}
	s.logger.Info("Структура папок ассета создана", slog.String("path", base))
	return nil
}

// assetData — содержимое data.json в папке ассета.
type assetData struct {
	Project  string                `json:"project"`
	Month    string                `json:"month"`
	Cover    []string              `json:"cover"`
	Subtitle []model.SubtitleEntry `json:"subtitle"`
}

// WriteMetadata записывает файлы метаданных ассета: data.json,
// subtitle.json и youtube/youtube_links.json.
func (s *Store) WriteMetadata(asset *model.Asset) error {
	base := s.AssetDir(asset.Curriculum, asset.Month)

	data := assetData{
		Project:  asset.Curriculum,
		Month:    asset.Month,
		Cover:    asset.Covers,
		Subtitle: asset.Subtitles,
	}
	if err := writePrettyJSON(filepath.Join(base, "data.json"), data); err != nil {
		return fmt.Errorf("запись data.json: %w", err)
	}
	if err := writePrettyJSON(filepath.Join(base, "subtitle.json"), asset.Subtitles); err != nil {
		return fmt.Errorf("запись subtitle.json: %w", err)
	}
	if err := writePrettyJSON(filepath.Join(base, "youtube", "youtube_links.json"), asset.YouTubeLinks); err != nil {
		return fmt.Errorf("запись youtube_links.json: %w", err)
	}

	s.logger.Info("Файлы метаданных ассета записаны",
		slog.String("curriculum", asset.Curriculum),
		slog.String("month", asset.Month),
	)
	return nil
}

// writePrettyJSON сериализует значение с отступами и пишет файл целиком.
func writePrettyJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DeleteAssetFolder удаляет папку ассета со всем содержимым.
// Отсутствующая папка не считается ошибкой.
func (s *Store) DeleteAssetFolder(curriculum, month string) error {
	base := s.AssetDir(curriculum, month)
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		s.logger.Warn("Папка ассета для удаления не найдена", slog.String("path", base))
		return nil
	}
	if err := os.RemoveAll(base); err != nil {
		return fmt.Errorf("удаление папки ассета: %w", err)
	}
	s.logger.Info("Папка ассета удалена", slog.String("path", base))
	return nil
}
