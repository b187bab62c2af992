package ports

import (
	"context"
	"signature-web-server/internal/model"
)

type AuthenticationService interface {
	Login(ctx context.Context, email, password, userAgent, ipAddress string) (*model.AuthResult, error)
	OAuthLogin(ctx context.Context, accessToken, userAgent, ipAddress string) (*model.AuthResult, error)
	RefreshToken(ctx context.Context, userAgent, ipAddress, accessToken, refreshToken string) (*model.TokensPair, error)
	Logout(ctx context.Context, actor model.Actor, refreshTokenUUID string) error
}

// OAuthVerifier : проверяет access токен провайдера и возвращает профиль
type OAuthVerifier interface {
	Verify(ctx context.Context, accessToken string) (*model.OAuthProfile, error)
}
