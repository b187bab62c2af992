package repository

import (
	"context"
	"fmt"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"time"

	"github.com/jmoiron/sqlx"
)

const userColumns = `uuid, email, password_hash, oauth_id, email_verified, free_documents_signed, is_admin, created_at, updated_at`

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// CreateUser : сохраняет нового пользователя
func (r *UserRepository) CreateUser(ctx context.Context, exec sqlx.ExtContext, user *model.User) (*model.User, error) {
	query := `
	INSERT INTO users (uuid, email, password_hash, oauth_id, email_verified, is_admin)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + userColumns

	createdUser := &model.User{}
	err := sqlx.GetContext(ctx, exec, createdUser, query,
		user.UUID, user.Email, user.PasswordHash, user.OAuthID, user.EmailVerified, user.IsAdmin)
	if err != nil {
		return nil, translateError("[UserRepo] ошибка вставки пользователя в БД", err)
	}

	return createdUser, nil
}

// FindByUUID : ищет пользователя по UUID
func (r *UserRepository) FindByUUID(ctx context.Context, exec sqlx.ExtContext, uuid string) (*model.User, error) {
	return r.findOne(ctx, exec, "uuid", uuid)
}

// FindByEmail : ищет пользователя по email (email хранится в нижнем регистре)
func (r *UserRepository) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*model.User, error) {
	return r.findOne(ctx, exec, "email", util.SanitizeEmail(email))
}

func (r *UserRepository) FindByOAuthID(ctx context.Context, exec sqlx.ExtContext, oauthID string) (*model.User, error) {
	return r.findOne(ctx, exec, "oauth_id", oauthID)
}

func (r *UserRepository) findOne(ctx context.Context, exec sqlx.ExtContext, column, value string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column)
	var user model.User
	if err := sqlx.GetContext(ctx, exec, &user, query, value); err != nil {
		return nil, translateError("[UserRepo] не удалось найти пользователя по "+column, err)
	}
	return &user, nil
}

// UpdateEmail : меняет email и сбрасывает подтверждение
func (r *UserRepository) UpdateEmail(ctx context.Context, exec sqlx.ExtContext, uuid, email string) error {
	query := `UPDATE users SET email = $2, email_verified = FALSE, updated_at = NOW() WHERE uuid = $1`
	return r.execOne(ctx, exec, "[UserRepo] не удалось обновить email", query, uuid, email)
}

// UpdatePassword : меняет пароль пользователя
func (r *UserRepository) UpdatePassword(ctx context.Context, exec sqlx.ExtContext, uuid, newPasswordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE uuid = $1`
	return r.execOne(ctx, exec, "[UserRepo] не удалось обновить пароль", query, uuid, newPasswordHash)
}

// LinkOAuth : привязывает OAuth аккаунт, email провайдера считается подтверждённым
func (r *UserRepository) LinkOAuth(ctx context.Context, exec sqlx.ExtContext, uuid, oauthID string) error {
	query := `UPDATE users SET oauth_id = $2, email_verified = TRUE, updated_at = NOW() WHERE uuid = $1`
	return r.execOne(ctx, exec, "[UserRepo] не удалось привязать OAuth", query, uuid, oauthID)
}

// IncrementSignedCount : увеличивает счётчик подписей, если лимит позволяет.
// Возвращает false, если лимит исчерпан к моменту записи
func (r *UserRepository) IncrementSignedCount(ctx context.Context, exec sqlx.ExtContext, uuid string, limit int) (bool, error) {
	query := `
		UPDATE users
		SET free_documents_signed = free_documents_signed + 1, updated_at = NOW()
		WHERE uuid = $1 AND (is_admin OR free_documents_signed < $2)
	`
	result, err := exec.ExecContext(ctx, query, uuid, limit)
	if err != nil {
		return false, util.LogError("[UserRepo] не удалось увеличить счётчик подписей", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, util.LogError("[UserRepo] не удалось проверить обновление счётчика", err)
	}
	return rows == 1, nil
}

func (r *UserRepository) execOne(ctx context.Context, exec sqlx.ExtContext, message, query string, args ...interface{}) error {
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(message, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return util.LogError(message, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", message, model.ErrNotFound)
	}
	return nil
}

// ListUsers : вывод списка пользователей с cursor-based пагинацией
func (r *UserRepository) ListUsers(ctx context.Context, exec sqlx.ExtContext, cursor string, limit int) ([]*model.User, string, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE created_at > $1
        ORDER BY created_at ASC, uuid ASC
        LIMIT $2
    `

	var cursorTime time.Time
	var err error

	if cursor != "" {
		cursorTime, err = time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", model.Errorf(model.ErrValidation, "некорректный курсор: %q", cursor)
		}
	}

	var users []*model.User
	err = sqlx.SelectContext(ctx, exec, &users, query, cursorTime, limit+1) // +1 для проверки наличия следующей страницы
	if err != nil {
		return nil, "", util.LogError("[UserRepo] не удалось получить список пользователей", err)
	}

	var nextCursor string
	if len(users) > limit {
		users = users[:limit]
		nextCursor = users[len(users)-1].CreatedAt.Format(time.RFC3339Nano)
	}

	return users, nextCursor, nil
}
