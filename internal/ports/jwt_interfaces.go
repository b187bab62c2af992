package ports

import (
	"context"
	"signature-web-server/internal/model"
	"signature-web-server/internal/security"
)

type JWTRepositoryInterface interface {
	FindByUUID(ctx context.Context, uuid string) (*model.RefreshToken, error)
	MarkRefreshTokenUsedByUUID(ctx context.Context, uuid string) error
	SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error
}

type JWTServiceInterface interface {
	GenerateAccessRefreshTokens(userUUID string, isAdmin bool) (*model.TokensPair, *model.RefreshToken, error)
	ValidateJWT(tokenString string) (*security.Claims, error)
}
