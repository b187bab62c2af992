package ports

import (
	"context"
	"signature-web-server/internal/model"

	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	CreateUser(ctx context.Context, exec sqlx.ExtContext, user *model.User) (*model.User, error)
	FindByUUID(ctx context.Context, exec sqlx.ExtContext, uuid string) (*model.User, error)
	FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*model.User, error)
	FindByOAuthID(ctx context.Context, exec sqlx.ExtContext, oauthID string) (*model.User, error)
	UpdateEmail(ctx context.Context, exec sqlx.ExtContext, uuid, email string) error
	UpdatePassword(ctx context.Context, exec sqlx.ExtContext, uuid, newPasswordHash string) error
	LinkOAuth(ctx context.Context, exec sqlx.ExtContext, uuid, oauthID string) error
	IncrementSignedCount(ctx context.Context, exec sqlx.ExtContext, uuid string, limit int) (bool, error)
	ListUsers(ctx context.Context, exec sqlx.ExtContext, cursor string, limit int) ([]*model.User, string, error)
}

type UserService interface {
	Register(ctx context.Context, email, password, userAgent, ipAddress string) (*model.AuthResult, error)
	GetProfile(ctx context.Context, actor model.Actor) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, actor model.Actor, update model.ProfileUpdate) (*model.UserProfile, error)
	ForgotPassword(ctx context.Context, email, ipAddress string) error
	ListUsers(ctx context.Context, actor model.Actor, cursor string, limit int) ([]*model.User, string, error)
}
