package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectMap — карта проектов из project_list.yaml:
// учебный курс → {month_01..month_12 → book_id}.
type ProjectMap struct {
	curricula map[string]map[string]string
}

// LoadProjectMap читает и разбирает project_list.yaml по указанному пути.
func LoadProjectMap(path string) (*ProjectMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение карты проектов: %w", err)
	}

	curricula := make(map[string]map[string]string)
	if err := yaml.Unmarshal(data, &curricula); err != nil {
		return nil, fmt.Errorf("разбор карты проектов: %w", err)
	}

	return &ProjectMap{curricula: curricula}, nil
}

// BookID возвращает идентификатор книги для пары (curriculum, month).
// Название курса сопоставляется без учёта регистра, месяц — по имени
// (January..December, допустимы трёхбуквенные сокращения).
func (m *ProjectMap) BookID(curriculum, month string) (string, error) {
	monthKey := fmt.Sprintf("month_%02d", MonthNumber(month))
	for name, months := range m.curricula {
		if !strings.EqualFold(name, curriculum) {
			continue
		}
		if bookID, ok := months[monthKey]; ok {
			return bookID, nil
		}
	}
	return "", fmt.Errorf("book_id не найден для %s - %s", curriculum, month)
}

// MonthNumber преобразует название месяца в номер 1-12.
// Неизвестное название трактуется как январь.
func MonthNumber(monthName string) int {
	switch monthName {
	case "Jan", "January":
		return 1
	case "Feb", "February":
		return 2
	case "Mar", "March":
		return 3
	case "Apr", "April":
		return 4
	case "May":
		return 5
	case "Jun", "June":
		return 6
	case "Jul", "July":
		return 7
	case "Aug", "August":
		return 8
	case "Sep", "September":
		return 9
	case "Oct", "October":
		return 10
	case "Nov", "November":
		return 11
	case "Dec", "December":
		return 12
	default:
		return 1
	}
}
