package service

import (
	"context"
	"errors"
	"fmt"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/security"
	"signature-web-server/internal/util"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthenticationService struct {
	tx                  ports.Transactor
	jwtRepoInterface    ports.JWTRepositoryInterface
	jwtServiceInterface ports.JWTServiceInterface
	userRepository      ports.UserRepository
	oauthVerifier       ports.OAuthVerifier
	securityNotifier    ports.SecurityNotifier
	audit               auditor
}

func NewAuthenticationService(
	tx ports.Transactor,
	repo ports.JWTRepositoryInterface,
	service ports.JWTServiceInterface,
	userRepository ports.UserRepository,
	auditRepository ports.AuditRepository,
	oauthVerifier ports.OAuthVerifier,
	securityNotifier ports.SecurityNotifier,
) *AuthenticationService {
	return &AuthenticationService{
		tx:                  tx,
		jwtRepoInterface:    repo,
		jwtServiceInterface: service,
		userRepository:      userRepository,
		oauthVerifier:       oauthVerifier,
		securityNotifier:    securityNotifier,
		audit:               auditor{repo: auditRepository, tx: tx},
	}
}

var errInvalidCredentials = model.Errorf(model.ErrUnauthorized, "неверный email или пароль")

// Login : неудачная попытка пишется в журнал как login_failed вместе с email
func (s *AuthenticationService) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*model.AuthResult, error) {
	email = util.SanitizeEmail(email)

	user, err := s.userRepository.FindByEmail(ctx, s.tx.Executor(), email)
	if errors.Is(err, model.ErrNotFound) {
		s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionLoginFailed, "", "", "email="+email, ipAddress))
		return nil, errInvalidCredentials
	} else if err != nil {
		return nil, err
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionLoginFailed, user.UUID, "", "email="+email, ipAddress))
		return nil, errInvalidCredentials
	}

	tokens, err := issueTokens(ctx, s.jwtServiceInterface, s.jwtRepoInterface, user, userAgent, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] %w", err)
	}

	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionUserLogin, user.UUID, "", "", ipAddress))
	return &model.AuthResult{User: user, Tokens: tokens}, nil
}

// OAuthLogin : вход через Google. Новый email создаёт пользователя,
// существующий аккаунт без OAuth привязывается к профилю провайдера
func (s *AuthenticationService) OAuthLogin(ctx context.Context, accessToken, userAgent, ipAddress string) (*model.AuthResult, error) {
	profile, err := s.oauthVerifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	user, err := s.userRepository.FindByOAuthID(ctx, exec, profile.Subject)
	if errors.Is(err, model.ErrNotFound) {
		user, err = s.linkOrCreate(ctx, exec, profile, ipAddress)
	}
	if err != nil {
		return nil, err
	}

	if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionUserLoginOAuth, user.UUID, "", "", ipAddress)); err != nil {
		return nil, err
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[AuthService] ошибка коммита транзакции", err)
	}

	tokens, err := issueTokens(ctx, s.jwtServiceInterface, s.jwtRepoInterface, user, userAgent, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] %w", err)
	}
	return &model.AuthResult{User: user, Tokens: tokens}, nil
}

func (s *AuthenticationService) linkOrCreate(ctx context.Context, exec sqlx.ExtContext, profile *model.OAuthProfile, ipAddress string) (*model.User, error) {
	user, err := s.userRepository.FindByEmail(ctx, exec, profile.Email)
	if errors.Is(err, model.ErrNotFound) {
		created, err := s.userRepository.CreateUser(ctx, exec, &model.User{
			UUID:          uuid.NewString(),
			Email:         profile.Email,
			OAuthID:       &profile.Subject,
			EmailVerified: true,
		})
		if err != nil {
			return nil, err
		}
		entry := model.NewAuditLog(model.ActionUserRegisteredOAuth, created.UUID, "", "provider=google", ipAddress)
		if err := s.audit.record(ctx, exec, entry); err != nil {
			return nil, err
		}
		return created, nil
	} else if err != nil {
		return nil, err
	}

	if user.OAuthID != nil && *user.OAuthID != profile.Subject {
		return nil, model.Errorf(model.ErrConflict, "аккаунт уже привязан к другому профилю Google")
	}
	if err := s.userRepository.LinkOAuth(ctx, exec, user.UUID, profile.Subject); err != nil {
		return nil, err
	}
	return s.userRepository.FindByUUID(ctx, exec, user.UUID)
}

// RefreshToken обновляет пару токенов.
//  1. Обновить можно только той парой, которая была выдана вместе.
//  2. Смена User-Agent запрещает обновление и завершает сессию.
//  3. Обновление с нового IP разрешено, но отправляет уведомление на webhook.
func (s *AuthenticationService) RefreshToken(ctx context.Context, userAgent, ipAddress, accessToken, refreshToken string) (*model.TokensPair, error) {
	invalid := model.Errorf(model.ErrUnauthorized, "невалидный токен")

	claims, err := s.jwtServiceInterface.ValidateJWT(accessToken)
	if err != nil {
		zap.L().Debug("не удалось провалидировать токен", zap.Error(err))
		return nil, invalid
	}

	refreshTokenUUID := claims.RefreshTokenUUID
	userUUID := claims.UserUUID

	storedRefreshToken, err := s.jwtRepoInterface.FindByUUID(ctx, refreshTokenUUID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, invalid
	} else if err != nil {
		return nil, err
	}
	if storedRefreshToken.Used {
		zap.L().Info("refresh токен уже использован", zap.String("token", refreshTokenUUID))
		return nil, invalid
	}
	if time.Now().UTC().After(storedRefreshToken.ExpireAt) {
		zap.L().Info("refresh токен просрочен", zap.String("token", refreshTokenUUID))
		return nil, invalid
	}

	if storedRefreshToken.UserAgent != userAgent {
		if err := s.jwtRepoInterface.MarkRefreshTokenUsedByUUID(ctx, refreshTokenUUID); err != nil {
			zap.L().Warn("не удалось пометить токен использованным", zap.Error(err))
		}
		zap.L().Warn("попытка обновления токена с другого User-Agent", zap.String("token", refreshTokenUUID))
		return nil, invalid
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedRefreshToken.TokenHash), []byte(refreshToken)); err != nil {
		return nil, invalid
	}

	if storedRefreshToken.IpAddress != ipAddress {
		s.notifyNewIP(ctx, userUUID, ipAddress, storedRefreshToken.IpAddress)
	}

	if err := s.jwtRepoInterface.MarkRefreshTokenUsedByUUID(ctx, refreshTokenUUID); errors.Is(err, model.ErrNotFound) {
		return nil, invalid
	} else if err != nil {
		return nil, err
	}

	user, err := s.userRepository.FindByUUID(ctx, s.tx.Executor(), userUUID)
	if err != nil {
		return nil, notFound(err, "пользователь не найден")
	}

	tokensPair, err := issueTokens(ctx, s.jwtServiceInterface, s.jwtRepoInterface, user, userAgent, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] %w", err)
	}

	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionTokenRefreshed, userUUID, "", "", ipAddress))
	return tokensPair, nil
}

func (s *AuthenticationService) notifyNewIP(ctx context.Context, userUUID, newIP, oldIP string) {
	if s.securityNotifier == nil {
		return
	}
	zap.L().Info("обновление токена с нового IP, отправка webhook", zap.String("user", userUUID))
	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.securityNotifier.NotifyNewIP(notifyCtx, userUUID, newIP, oldIP); err != nil {
			zap.L().Warn("ошибка отправки webhook", zap.Error(err))
		}
	}()
}

// Logout : помечает refresh токен использованным, access токен перестаёт приниматься
func (s *AuthenticationService) Logout(ctx context.Context, actor model.Actor, refreshTokenUUID string) error {
	err := s.jwtRepoInterface.MarkRefreshTokenUsedByUUID(ctx, refreshTokenUUID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Errorf(model.ErrUnauthorized, "сессия уже завершена")
	} else if err != nil {
		return err
	}

	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionUserLogout, actor.UserUUID, "", "", actor.IP))
	return nil
}
