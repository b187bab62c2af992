package requestresponse

import (
	"signature-web-server/internal/model"
	"time"
)

// RegisterRequest : тело запроса регистрации
type RegisterRequest struct {
	Email    string `json:"email" example:"signer@example.com"`
	Password string `json:"password" example:"StrongPass123"`
}

// ErrorResponse : стандартная структура ошибки
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message" example:"некорректные данные запроса"`
	Code    int    `json:"code" example:"400"`
}

// UserResponse : пользователь без чувствительных полей
type UserResponse struct {
	UUID                string `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Email               string `json:"email" example:"user@example.com"`
	EmailVerified       bool   `json:"email_verified" example:"false"`
	FreeDocumentsSigned int    `json:"free_documents_signed" example:"2"`
	IsAdmin             bool   `json:"is_admin" example:"false"`
	CreatedAt           string `json:"created_at" example:"2025-08-23T12:34:56Z"`
}

func UserResponseFromModel(user *model.User) UserResponse {
	return UserResponse{
		UUID:                user.UUID,
		Email:               user.Email,
		EmailVerified:       user.EmailVerified,
		FreeDocumentsSigned: user.FreeDocumentsSigned,
		IsAdmin:             user.IsAdmin,
		CreatedAt:           formatTime(user.CreatedAt),
	}
}

// AuthResponse : ответ регистрации и входа
type AuthResponse struct {
	Data struct {
		User         UserResponse `json:"user"`
		AccessToken  string       `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
		RefreshToken string       `json:"refresh_token" example:"sfuqwejqjoiu93e29"`
	} `json:"data"`
}

func AuthResponseFromModel(result *model.AuthResult) AuthResponse {
	var resp AuthResponse
	resp.Data.User = UserResponseFromModel(result.User)
	resp.Data.AccessToken = result.Tokens.AccessToken
	resp.Data.RefreshToken = result.Tokens.RefreshToken
	return resp
}

// ProfileResponse : профиль и остаток бесплатной квоты
type ProfileResponse struct {
	Data struct {
		User               UserResponse `json:"user"`
		CanSignDocument    bool         `json:"can_sign_document" example:"true"`
		FreeDocumentsLimit int          `json:"free_documents_limit" example:"5"`
	} `json:"data"`
}

func ProfileResponseFromModel(profile *model.UserProfile) ProfileResponse {
	var resp ProfileResponse
	resp.Data.User = UserResponseFromModel(profile.User)
	resp.Data.CanSignDocument = profile.CanSignDocument
	resp.Data.FreeDocumentsLimit = profile.FreeDocumentsLimit
	return resp
}

// UpdateProfileRequest : незаданные поля не меняются
type UpdateProfileRequest struct {
	Email    *string `json:"email,omitempty" example:"new@example.com"`
	Password *string `json:"password,omitempty" example:"NewStrongPass1"`
}

// ListUsersResponse : успешный ответ
type ListUsersResponse struct {
	Data struct {
		Users      []UserResponse `json:"users"`
		NextCursor string         `json:"next_cursor,omitempty"`
	} `json:"data"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := formatTime(*t)
	return &value
}
