package repository

import (
	"context"
	"fmt"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"

	"github.com/jmoiron/sqlx"
)

type SettingsRepository struct {
	*config.Database
}

func NewSettingsRepository(database *config.Database) *SettingsRepository {
	return &SettingsRepository{database}
}

func (r *SettingsRepository) Get(ctx context.Context, exec sqlx.ExtContext, key string) (*model.Setting, error) {
	query := `SELECT id, setting_key, setting_value FROM settings WHERE setting_key = $1`

	var setting model.Setting
	if err := sqlx.GetContext(ctx, exec, &setting, query, key); err != nil {
		return nil, translateError(fmt.Sprintf("[SettingsRepo] настройка %s не найдена", key), err)
	}
	return &setting, nil
}

func (r *SettingsRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]model.Setting, error) {
	settings := []model.Setting{}
	query := `SELECT id, setting_key, setting_value FROM settings ORDER BY setting_key`
	if err := sqlx.SelectContext(ctx, exec, &settings, query); err != nil {
		return nil, util.LogError("[SettingsRepo] не удалось получить настройки", err)
	}
	return settings, nil
}

// Upsert : создаёт настройку или перезаписывает значение существующей
func (r *SettingsRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, key, value string) (*model.Setting, error) {
	query := `
		INSERT INTO settings (setting_key, setting_value) VALUES ($1, $2)
		ON CONFLICT (setting_key) DO UPDATE SET setting_value = EXCLUDED.setting_value
		RETURNING id, setting_key, setting_value
	`

	var setting model.Setting
	if err := sqlx.GetContext(ctx, exec, &setting, query, key, value); err != nil {
		return nil, util.LogError("[SettingsRepo] не удалось сохранить настройку", err)
	}
	return &setting, nil
}
