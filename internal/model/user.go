package model

import "time"

type User struct {
	UUID                string    `db:"uuid" json:"id"`
	Email               string    `db:"email" json:"email"`
	PasswordHash        *string   `db:"password_hash" json:"-"`
	OAuthID             *string   `db:"oauth_id" json:"-"`
	EmailVerified       bool      `db:"email_verified" json:"email_verified"`
	FreeDocumentsSigned int       `db:"free_documents_signed" json:"free_documents_signed"`
	IsAdmin             bool      `db:"is_admin" json:"is_admin"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// CanSignDocument : администраторы без ограничений, остальные до limit подписей
func (u *User) CanSignDocument(limit int) bool {
	if u.IsAdmin {
		return true
	}
	return u.FreeDocumentsSigned < limit
}

// HasCredentials : после регистрации у пользователя есть пароль, OAuth id или оба
func (u *User) HasCredentials() bool {
	return (u.PasswordHash != nil && *u.PasswordHash != "") || (u.OAuthID != nil && *u.OAuthID != "")
}

// Actor : кто выполняет операцию. Передаётся в сервисы явно
type Actor struct {
	UserUUID  string
	IsAdmin   bool
	IP        string
	UserAgent string
}

// CanAccess : владелец документа или администратор
func (a Actor) CanAccess(ownerUUID string) bool {
	return a.IsAdmin || a.UserUUID == ownerUUID
}

// OAuthProfile : данные, полученные от OAuth провайдера
type OAuthProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// ProfileUpdate : частичное обновление профиля
type ProfileUpdate struct {
	Email    *string
	Password *string
}

// AuthResult : пользователь и выданная ему пара токенов
type AuthResult struct {
	User   *User
	Tokens *TokensPair
}

// UserProfile : пользователь и состояние его бесплатной квоты
type UserProfile struct {
	User               *User
	CanSignDocument    bool
	FreeDocumentsLimit int
}
