package model

import "time"

// SubtitleEntry — одна строка субтитров ассета.
type SubtitleEntry struct {
	// PageNum — номер страницы книги
	PageNum int `json:"page_num"`
	// SentenceNum — номер предложения на странице
	SentenceNum int `json:"sentence_num"`
	// Text — текст субтитра
	Text string `json:"text"`
}

// YouTubeLink — связанное видео ассета.
type YouTubeLink struct {
	// ThumbnailFile — путь к файлу превью внутри папки ассета
	ThumbnailFile string `json:"thumbnail_file"`
	// YouTubeURL — адрес видео
	YouTubeURL string `json:"youtube_url"`
	// Title — название видео (может отсутствовать)
	Title *string `json:"title,omitempty"`
}

// Asset — запись каталога учебных материалов.
// Хранится в таблице assets, списки — в JSONB-колонках.
type Asset struct {
	// ID — UUID записи
	ID string `json:"id"`
	// Curriculum — учебный курс (например, G1)
	Curriculum string `json:"curriculum"`
	// Month — месяц курса (January..December)
	Month string `json:"month"`
	// BookID — идентификатор книги из карты проектов
	BookID string `json:"book_id"`
	// Covers — пути обложек внутри папки ассета
	Covers []string `json:"covers"`
	// Subtitles — субтитры книги
	Subtitles []SubtitleEntry `json:"subtitles"`
	// YouTubeLinks — связанные видео
	YouTubeLinks []YouTubeLink `json:"youtube_links"`
	// CreatedAt — время создания записи
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updated_at"`
}
