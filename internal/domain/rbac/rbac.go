// Пакет rbac — логика доступа по ролям сотрудников.
// Роль приходит из корпоративного login API (по типу учётной записи)
// и переносится в self-issued токен без локальных дополнений.
package rbac

// Роли сотрудников.
const (
	RoleHeadOffice      = "HEAD_OFFICE"
	RoleRegionalManager = "REGIONAL_MANAGER"
	RoleDirector        = "DIRECTOR"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий в административном контуре.
var roleWeight = map[string]int{
	RoleDirector:        1,
	RoleRegionalManager: 2,
	RoleHeadOffice:      3,
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// CanAccessAdmin сообщает, даёт ли роль доступ к административному контуру
// (управление ассетами, файловые операции, кэш).
func CanAccessAdmin(role string) bool {
	return role == RoleHeadOffice || role == RoleRegionalManager
}

// CanAccessDirector сообщает, даёт ли роль доступ к контуру директора.
func CanAccessDirector(role string) bool {
	return role == RoleDirector
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	wa := roleWeight[a]
	wb := roleWeight[b]
	if wa >= wb {
		return a
	}
	return b
}
