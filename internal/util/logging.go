package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"signature-web-server/internal/model"
	"signature-web-server/internal/model/requestresponse"

	"go.uber.org/zap"
)

// InitLogger : production пресет для env=production, иначе development.
// Логгер становится глобальным (zap.L())
func InitLogger(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации логгера: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}

// LogError : пишет ошибку в лог и оборачивает её сообщением, сохраняя цепочку для errors.Is
func LogError(message string, err error) error {
	zap.L().Error(message, zap.Error(err))
	return fmt.Errorf("%s: %w", message, err)
}

func HandleError(w http.ResponseWriter, message string, statusCode int) {
	HandleErrorCode(w, http.StatusText(statusCode), message, statusCode)
}

// HandleErrorCode : JSON ответ об ошибке с машинным кодом error
func HandleErrorCode(w http.ResponseWriter, code, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(requestresponse.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    statusCode,
	}); err != nil {
		zap.L().Warn("ошибка кодирования ответа", zap.Error(err))
	}
}

type errorMapping struct {
	kind    error
	code    string
	status  int
	message string
}

var errorMappings = []errorMapping{
	{model.ErrValidation, "validation_error", http.StatusBadRequest, "некорректные данные запроса"},
	{model.ErrUnauthorized, "unauthorized", http.StatusUnauthorized, "пользователь не авторизован"},
	{model.ErrQuotaExceeded, "quota_exceeded", http.StatusForbidden, "исчерпан лимит бесплатных подписей"},
	{model.ErrForbidden, "forbidden", http.StatusForbidden, "доступ запрещён"},
	{model.ErrNotFound, "not_found", http.StatusNotFound, "не найдено"},
	{model.ErrAlreadyExists, "already_exists", http.StatusConflict, "уже существует"},
	{model.ErrConflict, "conflict", http.StatusConflict, "операция недопустима в текущем состоянии"},
	{model.ErrRateLimited, "rate_limited", http.StatusTooManyRequests, "слишком много запросов, попробуйте позже"},
	{model.ErrNotImplemented, "not_implemented", http.StatusNotImplemented, "операция пока не поддерживается"},
}

func findMapping(err error) (errorMapping, bool) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.kind) {
			return mapping, true
		}
	}
	return errorMapping{}, false
}

// WriteServiceError : ошибки категорий model.Err* отдаются со своим статусом,
// текст внутренних ошибок клиенту не передаётся
func WriteServiceError(w http.ResponseWriter, err error) {
	if mapping, ok := findMapping(err); ok {
		message := mapping.message
		var domainErr *model.DomainError
		if errors.As(err, &domainErr) {
			message = domainErr.Message
		}
		HandleErrorCode(w, mapping.code, message, mapping.status)
		return
	}

	zap.L().Error("внутренняя ошибка сервера", zap.Error(err))
	HandleErrorCode(w, "internal_error", "внутренняя ошибка сервера", http.StatusInternalServerError)
}
