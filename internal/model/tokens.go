package model

import "time"

// RefreshToken : хранится только bcrypt хэш, сам токен отдаётся клиенту один раз
type RefreshToken struct {
	UUID      string    `db:"uuid"`
	UserUUID  string    `db:"user_uuid"`
	TokenHash string    `db:"token_hash"`
	ExpireAt  time.Time `db:"expire_at"`
	Used      bool      `db:"used"`
	UserAgent string    `db:"user_agent"`
	IpAddress string    `db:"ip_address"`
	CreatedAt time.Time `db:"created_at"`
}

// TokensPair содержит пару access и refresh токенов
// swagger:model
type TokensPair struct {
	// Access токен (JWT)
	// example: eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// Refresh токен (для получения новой пары)
	// example: vcSi0369y1I62wOpxZFpgZ...
	RefreshToken string `json:"refresh_token"`
}
