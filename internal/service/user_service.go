package service

import (
	"context"
	"errors"
	"fmt"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/security"
	"signature-web-server/internal/util"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	tx             ports.Transactor
	userRepository ports.UserRepository
	jwtService     ports.JWTServiceInterface
	jwtRepository  ports.JWTRepositoryInterface
	quota          *QuotaPolicy
	audit          auditor
}

func NewUserService(
	tx ports.Transactor,
	userRepository ports.UserRepository,
	jwtService ports.JWTServiceInterface,
	jwtRepository ports.JWTRepositoryInterface,
	auditRepository ports.AuditRepository,
	quota *QuotaPolicy,
) *UserService {
	return &UserService{
		tx:             tx,
		userRepository: userRepository,
		jwtService:     jwtService,
		jwtRepository:  jwtRepository,
		quota:          quota,
		audit:          auditor{repo: auditRepository, tx: tx},
	}
}

// Register : регистрация по email и паролю, сразу выдаёт пару токенов
func (s *UserService) Register(ctx context.Context, email, password, userAgent, ipAddress string) (*model.AuthResult, error) {
	email = util.SanitizeEmail(email)
	if !util.ValidateEmail(email) {
		return nil, model.Errorf(model.ErrValidation, "некорректный email")
	}
	if !util.ValidatePassword(password) {
		return nil, model.Errorf(model.ErrValidation, "пароль должен содержать минимум 8 символов, заглавную и строчную буквы и цифру")
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[UserService] не удалось создать хэш пароля: %w", err)
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	user, err := s.userRepository.CreateUser(ctx, exec, &model.User{
		UUID:         uuid.NewString(),
		Email:        email,
		PasswordHash: &hash,
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		return nil, model.Errorf(model.ErrAlreadyExists, "пользователь с таким email уже зарегистрирован")
	} else if err != nil {
		return nil, fmt.Errorf("[UserService] ошибка создания пользователя: %w", err)
	}

	if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionUserRegistered, user.UUID, "", "", ipAddress)); err != nil {
		return nil, err
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[UserService] ошибка коммита транзакции", err)
	}

	tokens, err := issueTokens(ctx, s.jwtService, s.jwtRepository, user, userAgent, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("[UserService] %w", err)
	}

	zap.L().Info("пользователь зарегистрирован", zap.String("user", user.UUID))
	return &model.AuthResult{User: user, Tokens: tokens}, nil
}

func (s *UserService) GetProfile(ctx context.Context, actor model.Actor) (*model.UserProfile, error) {
	exec := s.tx.Executor()
	user, err := s.userRepository.FindByUUID(ctx, exec, actor.UserUUID)
	if err != nil {
		return nil, notFound(err, "пользователь не найден")
	}
	return s.profile(ctx, user)
}

func (s *UserService) profile(ctx context.Context, user *model.User) (*model.UserProfile, error) {
	canSign, limit, err := s.quota.CanSignDocument(ctx, s.tx.Executor(), user)
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{User: user, CanSignDocument: canSign, FreeDocumentsLimit: limit}, nil
}

// UpdateProfile : смена email сбрасывает подтверждение, смена пароля перехэширует его
func (s *UserService) UpdateProfile(ctx context.Context, actor model.Actor, update model.ProfileUpdate) (*model.UserProfile, error) {
	if update.Email == nil && update.Password == nil {
		return nil, model.Errorf(model.ErrValidation, "нет полей для обновления")
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	user, err := s.userRepository.FindByUUID(ctx, exec, actor.UserUUID)
	if err != nil {
		return nil, notFound(err, "пользователь не найден")
	}

	var changed []string

	if update.Email != nil {
		email := util.SanitizeEmail(*update.Email)
		if !util.ValidateEmail(email) {
			return nil, model.Errorf(model.ErrValidation, "некорректный email")
		}
		if email != user.Email {
			err := s.userRepository.UpdateEmail(ctx, exec, user.UUID, email)
			if errors.Is(err, model.ErrAlreadyExists) {
				return nil, model.Errorf(model.ErrAlreadyExists, "email уже используется")
			} else if err != nil {
				return nil, err
			}
			changed = append(changed, "email")
		}
	}

	if update.Password != nil {
		if !util.ValidatePassword(*update.Password) {
			return nil, model.Errorf(model.ErrValidation, "пароль должен содержать минимум 8 символов, заглавную и строчную буквы и цифру")
		}
		hash, err := security.HashPassword(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("[UserService] не удалось создать хэш пароля: %w", err)
		}
		if err := s.userRepository.UpdatePassword(ctx, exec, user.UUID, hash); err != nil {
			return nil, err
		}
		changed = append(changed, "password")
	}

	if len(changed) > 0 {
		details := "changed=" + strings.Join(changed, ",")
		if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionProfileUpdated, user.UUID, "", details, actor.IP)); err != nil {
			return nil, err
		}
	}

	updated, err := s.userRepository.FindByUUID(ctx, exec, user.UUID)
	if err != nil {
		return nil, err
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[UserService] ошибка коммита транзакции", err)
	}

	return s.profile(ctx, updated)
}

// ForgotPassword : всегда успешно, чтобы не раскрывать наличие аккаунта.
// Токен сброса пока только логируется
func (s *UserService) ForgotPassword(ctx context.Context, email, ipAddress string) error {
	email = util.SanitizeEmail(email)
	if !util.ValidateEmail(email) {
		return model.Errorf(model.ErrValidation, "некорректный email")
	}

	user, err := s.userRepository.FindByEmail(ctx, s.tx.Executor(), email)
	if errors.Is(err, model.ErrNotFound) {
		zap.L().Debug("сброс пароля для неизвестного email")
		return nil
	} else if err != nil {
		return err
	}

	token, err := util.GenerateRandomToken(32)
	if err != nil {
		return err
	}
	// TODO: отправлять токен письмом, когда появится воркер доставки уведомлений
	zap.L().Debug("токен сброса пароля сгенерирован", zap.String("user", user.UUID), zap.String("token", token))

	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionPasswordResetRequested, user.UUID, "", "", ipAddress))
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, actor model.Actor, cursor string, limit int) ([]*model.User, string, error) {
	if !actor.IsAdmin {
		return nil, "", model.Errorf(model.ErrForbidden, "список пользователей доступен только администратору")
	}
	_, limit = pagination(1, limit, 20, 100)

	return s.userRepository.ListUsers(ctx, s.tx.Executor(), cursor, limit)
}
