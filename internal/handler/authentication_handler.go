package handler

import (
	"net/http"
	"signature-web-server/internal/model"
	"signature-web-server/internal/model/requestresponse"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/security"
	"signature-web-server/internal/util"
	"strings"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
}

func NewAuthenticationHandler(authenticationService ports.AuthenticationService) *AuthenticationHandler {
	return &AuthenticationHandler{authenticationService}
}

// Login godoc
// @Summary Аутентификация пользователя
// @Description Получение пары токенов по email и паролю. Неудачная попытка пишется в журнал аудита
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.AuthResponse "Успешная аутентификация"
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или пустые поля"
// @Failure 401 {object} requestresponse.ErrorResponse "Неверный email или пароль"
// @Failure 429 {object} requestresponse.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		util.WriteServiceError(w, model.Errorf(model.ErrValidation, "email и password обязательны"))
		return
	}

	result, err := h.AuthenticationService.Login(r.Context(), req.Email, req.Password, r.UserAgent(), security.ClientIP(r))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.AuthResponseFromModel(result))
}

// GoogleLogin godoc
// @Summary Вход через Google
// @Description Проверяет access токен Google, создаёт или связывает аккаунт и выдаёт пару токенов
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.GoogleLoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.AuthResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse "Токен Google не принят"
// @Failure 409 {object} requestresponse.ErrorResponse "Email уже связан с другим Google аккаунтом"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/google [post]
func (h *AuthenticationHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.GoogleLoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	if strings.TrimSpace(req.AccessToken) == "" {
		util.WriteServiceError(w, model.Errorf(model.ErrValidation, "access_token обязателен"))
		return
	}

	result, err := h.AuthenticationService.OAuthLogin(r.Context(), req.AccessToken, r.UserAgent(), security.ClientIP(r))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.AuthResponseFromModel(result))
}

// GetCurrentUser godoc
// @Summary UUID текущего пользователя
// @Description Возвращает UUID и роль пользователя из access токена
// @Tags Authentication
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthenticationHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.WriteServiceError(w, model.Errorf(model.ErrUnauthorized, "пользователь не авторизован"))
		return
	}

	resp := requestresponse.CurrentUserResponse{}
	resp.Response.UserUUID = claims.UserUUID
	resp.Response.IsAdmin = claims.IsAdmin

	writeJSON(w, http.StatusOK, resp)
}

// RefreshToken godoc
// @Summary Обновление пары токенов
// @Description Обновляет access и refresh токены. Refresh токен одноразовый, смена User-Agent завершает сессию
// @Tags Authentication
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body requestresponse.RefreshTokenRequest true "Refresh токен"
// @Success 200 {object} requestresponse.RefreshTokenResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/refresh [post]
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	accessToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	var req requestresponse.RefreshTokenRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}
	if req.RefreshToken == "" {
		util.WriteServiceError(w, model.Errorf(model.ErrValidation, "refresh_token обязателен"))
		return
	}

	tokens, err := h.AuthenticationService.RefreshToken(r.Context(), r.UserAgent(), security.ClientIP(r), accessToken, req.RefreshToken)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	resp := requestresponse.RefreshTokenResponse{}
	resp.Response.AccessToken = tokens.AccessToken
	resp.Response.RefreshToken = tokens.RefreshToken

	writeJSON(w, http.StatusOK, resp)
}

// Logout godoc
// @Summary Завершение сессии
// @Description Помечает refresh токен текущей сессии использованным
// @Tags Authentication
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		util.WriteServiceError(w, model.Errorf(model.ErrUnauthorized, "пользователь не авторизован"))
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	if err := h.AuthenticationService.Logout(r.Context(), actor, claims.RefreshTokenUUID); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SuccessResponse{Message: "сессия завершена"})
}
