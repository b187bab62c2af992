package ports

import (
	"context"
	"signature-web-server/internal/model"

	"github.com/jmoiron/sqlx"
)

type SettingsRepository interface {
	Get(ctx context.Context, exec sqlx.ExtContext, key string) (*model.Setting, error)
	List(ctx context.Context, exec sqlx.ExtContext) ([]model.Setting, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, key, value string) (*model.Setting, error)
}

type SettingsService interface {
	List(ctx context.Context, actor model.Actor) ([]model.Setting, error)
	Update(ctx context.Context, actor model.Actor, key, value string) (*model.Setting, error)
}
