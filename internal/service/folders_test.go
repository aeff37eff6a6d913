package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/bigkaa/edustore/catalog-module/internal/domain/model"
)

func TestListChildren(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		prefix string
		want   []string
	}{
		{
			name:   "вложенные папки одного уровня",
			keys:   []string{"A/B/x.png", "A/B/y.png", "A/C/z.mp4", "A/file.txt"},
			prefix: "A",
			want:   []string{"B", "C"},
		},
		{
			name:   "корень по пустому префиксу",
			keys:   []string{"curr1/jan/x.png", "curr2/feb/y.png", "curr1/mar/z.png"},
			prefix: "",
			want:   []string{"curr1", "curr2"},
		},
		{
			name:   "завершающий слэш срезается",
			keys:   []string{"A/B/x.png", "A/C/y.png"},
			prefix: "A/",
			want:   []string{"B", "C"},
		},
		{
			name:   "срезается только один слэш",
			keys:   []string{"A//B/x.png"},
			prefix: "A//",
			want:   []string{"B"},
		},
		{
			name:   "файлы уровня папок не образуют",
			keys:   []string{"A/f1.txt", "A/f2.txt"},
			prefix: "A",
			want:   []string{},
		},
		{
			name:   "файлы корня папок не образуют",
			keys:   []string{"file.txt", "curr1/x.png"},
			prefix: "",
			want:   []string{"curr1"},
		},
		{
			name:   "ключ равный префиксу не учитывается",
			keys:   []string{"A", "A/B/x.png"},
			prefix: "A",
			want:   []string{"B"},
		},
		{
			name:   "пустой сегмент пропускается",
			keys:   []string{"A//x.png", "A//B/y.png", "A/C/z.png"},
			prefix: "A",
			want:   []string{"C"},
		},
		{
			name:   "дубликаты схлопываются",
			keys:   []string{"A/B/x.png", "A/B/y.png", "A/B/z.png"},
			prefix: "A",
			want:   []string{"B"},
		},
		{
			name:   "результат отсортирован",
			keys:   []string{"A/zeta/x", "A/alpha/y", "A/mid/z"},
			prefix: "A",
			want:   []string{"alpha", "mid", "zeta"},
		},
		{
			name:   "глубокий префикс",
			keys:   []string{"A/B/C/d.png", "A/B/e.png"},
			prefix: "A/B",
			want:   []string{"C"},
		},
		{
			name:   "посторонний префикс",
			keys:   []string{"A/B/x.png"},
			prefix: "Z",
			want:   []string{},
		},
		{
			name:   "пустой листинг",
			keys:   nil,
			prefix: "",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ListChildren(recordsFor(tt.keys...), tt.prefix)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ListChildren(%q) = %v, ожидалось %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestFileTypeByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"cover.png", "image"},
		{"photo.JPG", "image"},
		{"pic.jpeg", "image"},
		{"anim.gif", "image"},
		{"art.webp", "image"},
		{"lesson.mp4", "video"},
		{"clip.MOV", "video"},
		{"old.avi", "video"},
		{"film.mkv", "video"},
		{"web.webm", "video"},
		{"book.pdf", "pdf"},
		{"notes.txt", "text"},
		{"subtitle.json", "text"},
		{"feed.xml", "text"},
		{"table.csv", "text"},
		{"archive.zip", "other"},
		{"noextension", "other"},
	}
	for _, tt := range tests {
		if got := fileTypeByName(tt.name); got != tt.want {
			t.Errorf("fileTypeByName(%q) = %q, ожидалось %q", tt.name, got, tt.want)
		}
	}
}

// newTestFolders создаёт обозреватель поверх кэша с фиксированным листингом.
func newTestFolders(t *testing.T, records []model.ObjectRecord) *Folders {
	t.Helper()
	fetcher := &mockLister{
		listFn: func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
			return records, nil
		},
	}
	cache := newTestCache(t, fetcher, time.Minute, 0.8)
	return NewFolders(cache, "assets", "https://storage.example.com/", testLogger())
}

func TestFolders_Contents_Root(t *testing.T) {
	folders := newTestFolders(t, recordsFor(
		"G1/January/a.png",
		"G1/February/b.png",
		"EX2/March/c.mp4",
	))

	contents, err := folders.Contents(context.Background(), "")
	if err != nil {
		t.Fatalf("Contents вернул ошибку: %v", err)
	}

	if contents.CurrentPath != "" {
		t.Errorf("CurrentPath = %q, ожидался пустой", contents.CurrentPath)
	}
	if len(contents.Items) != 2 {
		t.Fatalf("элементов: %d, ожидалось 2", len(contents.Items))
	}

	first := contents.Items[0]
	if first.Name != "EX2" || first.Path != "EX2" || first.ItemType != ItemTypeFolder {
		t.Errorf("первый элемент = %+v, ожидалась папка EX2", first)
	}
	if first.ChildrenCount == nil || *first.ChildrenCount != 1 {
		t.Errorf("ChildrenCount EX2 = %v, ожидался 1", first.ChildrenCount)
	}
	if first.Size != nil || first.URL != nil || first.FileType != nil {
		t.Error("у папки не должно быть size, url и file_type")
	}

	second := contents.Items[1]
	if second.Name != "G1" {
		t.Errorf("второй элемент = %q, ожидался G1", second.Name)
	}
	if second.ChildrenCount == nil || *second.ChildrenCount != 2 {
		t.Errorf("ChildrenCount G1 = %v, ожидался 2", second.ChildrenCount)
	}

	wantCrumbs := []Breadcrumb{{Name: "Home", Path: ""}}
	if !reflect.DeepEqual(contents.Breadcrumbs, wantCrumbs) {
		t.Errorf("Breadcrumbs = %v, ожидалось %v", contents.Breadcrumbs, wantCrumbs)
	}
}

func TestFolders_Contents_CurriculumLevel(t *testing.T) {
	folders := newTestFolders(t, recordsFor(
		"G1/January/a.png",
		"G1/January/b.png",
		"G1/February/c.png",
		"EX2/March/d.mp4",
	))

	contents, err := folders.Contents(context.Background(), "/G1/")
	if err != nil {
		t.Fatalf("Contents вернул ошибку: %v", err)
	}

	if contents.CurrentPath != "G1" {
		t.Errorf("CurrentPath = %q, ожидался G1", contents.CurrentPath)
	}
	if len(contents.Items) != 2 {
		t.Fatalf("элементов: %d, ожидалось 2", len(contents.Items))
	}
	if contents.Items[0].Name != "February" || contents.Items[0].Path != "G1/February" {
		t.Errorf("первый элемент = %+v, ожидалась папка G1/February", contents.Items[0])
	}
	if contents.Items[1].Name != "January" {
		t.Errorf("второй элемент = %q, ожидался January", contents.Items[1].Name)
	}
	if contents.Items[1].ChildrenCount == nil || *contents.Items[1].ChildrenCount != 2 {
		t.Errorf("ChildrenCount January = %v, ожидался 2", contents.Items[1].ChildrenCount)
	}

	wantCrumbs := []Breadcrumb{{Name: "Home", Path: ""}, {Name: "G1", Path: "G1"}}
	if !reflect.DeepEqual(contents.Breadcrumbs, wantCrumbs) {
		t.Errorf("Breadcrumbs = %v, ожидалось %v", contents.Breadcrumbs, wantCrumbs)
	}
}

func TestFolders_Contents_FilesLevel(t *testing.T) {
	records := []model.ObjectRecord{
		{Key: "G1/January/video lesson.mp4", Size: 2048, ModifiedAt: "2025-03-01T10:00:00Z"},
		{Key: "G1/January/cover.png", Size: 512},
		{Key: "G1/January/nested/deep.png", Size: 1},
		{Key: "G1/February/other.png", Size: 7},
	}
	folders := newTestFolders(t, records)

	contents, err := folders.Contents(context.Background(), "G1/January/")
	if err != nil {
		t.Fatalf("Contents вернул ошибку: %v", err)
	}

	if contents.CurrentPath != "G1/January" {
		t.Errorf("CurrentPath = %q, ожидался G1/January", contents.CurrentPath)
	}
	if len(contents.Items) != 2 {
		t.Fatalf("элементов: %d, ожидалось 2 (вложенные и чужие файлы исключены)", len(contents.Items))
	}

	cover := contents.Items[0]
	if cover.Name != "cover.png" || cover.ItemType != ItemTypeFile {
		t.Errorf("первый элемент = %+v, ожидался файл cover.png", cover)
	}
	if cover.Path != "G1/January/cover.png" {
		t.Errorf("Path = %q, ожидался полный ключ", cover.Path)
	}
	if cover.Size == nil || *cover.Size != 512 {
		t.Errorf("Size = %v, ожидался 512", cover.Size)
	}
	if cover.FileType == nil || *cover.FileType != "image" {
		t.Errorf("FileType = %v, ожидался image", cover.FileType)
	}
	if cover.ModifiedAt != nil {
		t.Errorf("ModifiedAt = %v, ожидался nil при отсутствии даты", cover.ModifiedAt)
	}

	video := contents.Items[1]
	if video.Name != "video lesson.mp4" {
		t.Errorf("второй элемент = %q, ожидался video lesson.mp4", video.Name)
	}
	wantURL := fmt.Sprintf("https://storage.example.com/file?key=%s",
		url.QueryEscape("G1/January/video lesson.mp4"))
	if video.URL == nil || *video.URL != wantURL {
		t.Errorf("URL = %v, ожидался %q", video.URL, wantURL)
	}
	if video.ModifiedAt == nil || *video.ModifiedAt != "2025-03-01T10:00:00Z" {
		t.Errorf("ModifiedAt = %v, ожидался 2025-03-01T10:00:00Z", video.ModifiedAt)
	}

	wantCrumbs := []Breadcrumb{
		{Name: "Home", Path: ""},
		{Name: "G1", Path: "G1"},
		{Name: "January", Path: "G1/January"},
	}
	if !reflect.DeepEqual(contents.Breadcrumbs, wantCrumbs) {
		t.Errorf("Breadcrumbs = %v, ожидалось %v", contents.Breadcrumbs, wantCrumbs)
	}
}

func TestFolders_Contents_EmptyFolder(t *testing.T) {
	folders := newTestFolders(t, recordsFor("G1/January/a.png"))

	contents, err := folders.Contents(context.Background(), "G1/March")
	if err != nil {
		t.Fatalf("Contents вернул ошибку: %v", err)
	}
	if len(contents.Items) != 0 {
		t.Errorf("элементов: %d, ожидался пустой список", len(contents.Items))
	}
}

func TestFolders_Contents_UpstreamError(t *testing.T) {
	fetcher := &mockLister{
		listFn: func(ctx context.Context, category string) ([]model.ObjectRecord, error) {
			return nil, errors.New("connection refused")
		},
	}
	cache := newTestCache(t, fetcher, time.Minute, 0.8)
	folders := NewFolders(cache, "assets", "https://storage.example.com", testLogger())

	_, err := folders.Contents(context.Background(), "")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("ошибка %v не является ErrUpstreamUnavailable", err)
	}
}

func TestFolders_Children(t *testing.T) {
	folders := newTestFolders(t, recordsFor(
		"G1/January/a.png",
		"G1/February/b.png",
	))

	children, err := folders.Children(context.Background(), "G1")
	if err != nil {
		t.Fatalf("Children вернул ошибку: %v", err)
	}
	want := []string{"February", "January"}
	if !reflect.DeepEqual(children, want) {
		t.Errorf("Children = %v, ожидалось %v", children, want)
	}
}
