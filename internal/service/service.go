package service

import (
	"context"
	"errors"
	"fmt"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// auditor : запись в журнал либо в транзакции вызывающего, либо отдельным запросом
type auditor struct {
	repo ports.AuditRepository
	tx   ports.Transactor
}

// record : запись в рамках exec, ошибка прерывает бизнес-операцию
func (a auditor) record(ctx context.Context, exec sqlx.ExtContext, entry *model.AuditLog) error {
	if err := a.repo.Append(ctx, exec, entry); err != nil {
		return fmt.Errorf("[Audit] не удалось записать %s: %w", entry.ActionType, err)
	}
	return nil
}

// recordBestEffort : для чтений и отказов, ошибка журнала только логируется
func (a auditor) recordBestEffort(ctx context.Context, entry *model.AuditLog) {
	if err := a.repo.Append(ctx, a.tx.Executor(), entry); err != nil {
		zap.L().Warn("не удалось записать событие аудита",
			zap.String("action", string(entry.ActionType)), zap.Error(err))
	}
}

// authorize : владелец или администратор. Отказ пишется в журнал как access_denied
func (a auditor) authorize(ctx context.Context, actor model.Actor, document *model.Document, operation string) error {
	if actor.CanAccess(document.OwnerUUID) {
		return nil
	}
	a.recordBestEffort(ctx, model.NewAuditLog(model.ActionAccessDenied, actor.UserUUID, document.UUID, operation, actor.IP))
	return model.Errorf(model.ErrForbidden, "нет доступа к документу")
}

// notFound : ошибка репозитория ErrNotFound превращается в сообщение для клиента
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.Errorf(model.ErrNotFound, format, args...)
	}
	return err
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func pagination(page, perPage, defaultPerPage, maxPerPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// issueTokens : пара токенов и сохранение refresh токена с привязкой к User-Agent и IP
func issueTokens(
	ctx context.Context,
	jwtService ports.JWTServiceInterface,
	jwtRepository ports.JWTRepositoryInterface,
	user *model.User,
	userAgent, ipAddress string,
) (*model.TokensPair, error) {
	tokens, refreshToken, err := jwtService.GenerateAccessRefreshTokens(user.UUID, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации токенов: %w", err)
	}

	refreshToken.UserAgent = userAgent
	refreshToken.IpAddress = ipAddress

	if err := jwtRepository.SaveRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("ошибка сохранения refresh токена: %w", err)
	}
	return tokens, nil
}

func invalidateDocument(ctx context.Context, cache ports.CacheRepository, documentUUID string) {
	if err := cache.DeleteDocument(ctx, documentUUID); err != nil {
		zap.L().Warn("не удалось сбросить кэш документа", zap.String("document", documentUUID), zap.Error(err))
	}
}

// deleteArtifact : удаление файла не зависит от отмены запроса, ошибка только логируется
func deleteArtifact(ctx context.Context, artifacts ports.ArtifactStorage, key string) {
	if err := artifacts.Delete(context.WithoutCancel(ctx), key); err != nil {
		zap.L().Warn("не удалось удалить файл из хранилища", zap.String("key", key), zap.Error(err))
	}
}
