package model

import (
	"errors"
	"fmt"
)

// Категории ошибок, по которым обработчики выбирают HTTP статус
var (
	ErrValidation     = errors.New("некорректные данные")
	ErrUnauthorized   = errors.New("пользователь не авторизован")
	ErrForbidden      = errors.New("доступ запрещён")
	ErrNotFound       = errors.New("не найдено")
	ErrConflict       = errors.New("операция недопустима в текущем состоянии")
	ErrAlreadyExists  = errors.New("уже существует")
	ErrQuotaExceeded  = errors.New("исчерпан лимит бесплатных подписей")
	ErrNotImplemented = errors.New("не реализовано")
	ErrRateLimited    = errors.New("слишком много запросов")
)

// DomainError : ошибка с сообщением, которое безопасно отдавать клиенту
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// Errorf : создаёт DomainError нужной категории
func Errorf(kind error, format string, args ...any) error {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
