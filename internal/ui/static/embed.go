// Пакет static — встроенные статические ресурсы страниц дашборда.
// CSS и JS встраиваются в бинарник через //go:embed и раздаются
// по /static/*.
package static

import (
	"embed"
	"net/http"
)

// content — встроенная файловая система статических ресурсов.
//
//go:embed css/*.css js/*.js
var content embed.FS

// FileSystem возвращает http.FileSystem для обработки запросов
// к /static/*. Файлы доступны по путям вида /static/css/style.css,
// /static/js/common.js.
func FileSystem() http.FileSystem {
	return http.FS(content)
}
