package service

import (
	"context"
	"fmt"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"strings"
)

type SettingsService struct {
	tx       ports.Transactor
	settings ports.SettingsRepository
}

func NewSettingsService(tx ports.Transactor, settings ports.SettingsRepository) *SettingsService {
	return &SettingsService{tx: tx, settings: settings}
}

func (s *SettingsService) List(ctx context.Context, actor model.Actor) ([]model.Setting, error) {
	if !actor.IsAdmin {
		return nil, model.Errorf(model.ErrForbidden, "настройки доступны только администратору")
	}
	return s.settings.List(ctx, s.tx.Executor())
}

// Update : значение применяется сразу, квота читает настройки при каждом решении
func (s *SettingsService) Update(ctx context.Context, actor model.Actor, key, value string) (*model.Setting, error) {
	if !actor.IsAdmin {
		return nil, model.Errorf(model.ErrForbidden, "настройки доступны только администратору")
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if err := model.ValidateSetting(key, value); err != nil {
		return nil, err
	}

	setting, err := s.settings.Upsert(ctx, s.tx.Executor(), key, value)
	if err != nil {
		return nil, fmt.Errorf("[SettingsService] не удалось сохранить настройку %s: %w", key, err)
	}
	return setting, nil
}
