package service

import (
	"context"
	"errors"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// QuotaPolicy : лимит бесплатных подписей. Читается из settings при каждом решении
type QuotaPolicy struct {
	settings     ports.SettingsRepository
	defaultLimit int
}

func NewQuotaPolicy(settings ports.SettingsRepository, cfg *config.QuotaConfig) *QuotaPolicy {
	return &QuotaPolicy{settings: settings, defaultLimit: cfg.FreeDocumentsLimit}
}

// Limit : значение free_documents_limit, при отсутствии или мусоре в settings значение из конфига
func (p *QuotaPolicy) Limit(ctx context.Context, exec sqlx.ExtContext) (int, error) {
	setting, err := p.settings.Get(ctx, exec, model.SettingFreeDocumentsLimit)
	if errors.Is(err, model.ErrNotFound) {
		return p.defaultLimit, nil
	} else if err != nil {
		return 0, err
	}

	limit, err := strconv.Atoi(strings.TrimSpace(setting.Value))
	if err != nil || limit < 0 {
		zap.L().Warn("некорректное значение настройки, используется лимит из конфига",
			zap.String("key", setting.Key), zap.String("value", setting.Value))
		return p.defaultLimit, nil
	}
	return limit, nil
}

// CanSignDocument : администраторы без ограничений
func (p *QuotaPolicy) CanSignDocument(ctx context.Context, exec sqlx.ExtContext, user *model.User) (bool, int, error) {
	limit, err := p.Limit(ctx, exec)
	if err != nil {
		return false, 0, err
	}
	return user.CanSignDocument(limit), limit, nil
}
