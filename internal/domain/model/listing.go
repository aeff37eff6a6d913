// Пакет model — доменные модели Catalog Module.
package model

import "time"

// ObjectRecord — один файл в удалённом хранилище.
// Формируется из ответа Storage API, в БД не хранится.
type ObjectRecord struct {
	// Key — путь объекта внутри категории (разделитель "/"), уникален в категории
	Key string
	// Size — размер в байтах, 0 если хранилище не вернуло размер
	Size int64
	// ModifiedAt — время последнего изменения (строка хранилища, может быть пустой)
	ModifiedAt string
	// CreatedAt — время создания (может быть пустым)
	CreatedAt string
	// OriginalFilename — исходное имя файла при загрузке (может быть пустым)
	OriginalFilename string
	// SubtitleRefs — ключи связанных файлов субтитров (может быть пустым)
	SubtitleRefs []string
	// Category — категория (bucket), которой принадлежит объект
	Category string
}

// ListingSnapshot — неизменяемый снапшот полного листинга одной категории.
// Обновление создаёт новый снапшот, который целиком заменяет старый.
type ListingSnapshot struct {
	// Category — категория листинга
	Category string
	// Records — записи в порядке, возвращённом хранилищем
	Records []ObjectRecord
	// CreatedAt — момент получения снапшота
	CreatedAt time.Time
	// TTL — срок жизни снапшота
	TTL time.Duration
}

// Expired сообщает, истёк ли срок жизни снапшота на момент now.
func (s *ListingSnapshot) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > s.TTL
}

// Age возвращает возраст снапшота на момент now.
func (s *ListingSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
