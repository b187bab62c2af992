package model

import (
	"strconv"
	"strings"
)

// SettingFreeDocumentsLimit : ключ настройки с лимитом бесплатных подписей
const SettingFreeDocumentsLimit = "free_documents_limit"

type Setting struct {
	ID    int64  `db:"id" json:"id"`
	Key   string `db:"setting_key" json:"key"`
	Value string `db:"setting_value" json:"value"`
}

// ValidateSetting : известные ключи проверяются, остальные принимаются как есть
func ValidateSetting(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return Errorf(ErrValidation, "ключ настройки не указан")
	}
	if key == SettingFreeDocumentsLimit {
		limit, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || limit < 0 {
			return Errorf(ErrValidation, "%s должен быть неотрицательным целым числом", key)
		}
	}
	return nil
}
