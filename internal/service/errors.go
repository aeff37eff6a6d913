// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUpstreamUnavailable — хранилище файлов недоступно
	// (сеть, таймаут или неуспешный статус ответа).
	ErrUpstreamUnavailable = errors.New("хранилище файлов недоступно")
	// ErrUpstreamParse — ответ хранилища имеет неожиданную форму.
	ErrUpstreamParse = errors.New("некорректный ответ хранилища")
	// ErrAuthUnavailable — login API недоступен.
	ErrAuthUnavailable = errors.New("сервис аутентификации недоступен")
	// ErrInvalidCredentials — неверный логин или пароль.
	ErrInvalidCredentials = errors.New("неверный логин или пароль")
)
