package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
)

// GoogleVerifier : проверяет access токен Google через userinfo endpoint
type GoogleVerifier struct {
	client      *http.Client
	userInfoURL string
}

func NewGoogleVerifier(cfg *config.OAuthConfig) *GoogleVerifier {
	return &GoogleVerifier{
		client:      &http.Client{Timeout: cfg.Timeout.Duration},
		userInfoURL: cfg.GoogleUserInfoURL,
	}
}

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (*model.OAuthProfile, error) {
	if accessToken == "" {
		return nil, model.Errorf(model.ErrValidation, "access_token обязателен")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, util.LogError("[GoogleVerifier] ошибка создания запроса", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, util.LogError("[GoogleVerifier] ошибка запроса к Google", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, model.Errorf(model.ErrUnauthorized, "токен Google недействителен")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("[GoogleVerifier] неожиданный статус %d: %s", resp.StatusCode, body)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, util.LogError("[GoogleVerifier] ошибка разбора ответа", err)
	}
	if info.Subject == "" || info.Email == "" {
		return nil, model.Errorf(model.ErrUnauthorized, "Google не вернул email пользователя")
	}

	return &model.OAuthProfile{
		Subject:       info.Subject,
		Email:         util.SanitizeEmail(info.Email),
		EmailVerified: info.EmailVerified,
	}, nil
}
