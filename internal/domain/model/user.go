package model

// Account type identifiers корпоративного login API.
const (
	AccountTypeHeadOffice      = 1
	AccountTypeRegionalManager = 2
	AccountTypeDirector        = 3
)

// StaffUser — аутентифицированный сотрудник.
// В БД не хранится — формируется из ответа login API или dev-учётки.
type StaffUser struct {
	// AccountID — идентификатор учётной записи
	AccountID int `json:"account_id"`
	// Account — логин
	Account string `json:"account"`
	// Role — роль (HEAD_OFFICE, REGIONAL_MANAGER, DIRECTOR)
	Role string `json:"role"`
	// AgencyID — идентификатор агентства
	AgencyID int `json:"agency_id"`
	// AcademyID — идентификатор академии
	AcademyID int `json:"academy_id"`
	// IsActive — активна ли учётная запись
	IsActive bool `json:"is_active"`
}

// RoleForAccountType возвращает роль по типу учётной записи login API.
func RoleForAccountType(accountTypeID int) string {
	switch accountTypeID {
	case AccountTypeHeadOffice:
		return "HEAD_OFFICE"
	case AccountTypeRegionalManager:
		return "REGIONAL_MANAGER"
	case AccountTypeDirector:
		return "DIRECTOR"
	default:
		return "UNKNOWN"
	}
}
