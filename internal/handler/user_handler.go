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

type UserHandler struct {
	ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService}
}

// RegisterUser godoc
// @Summary Регистрация нового пользователя
// @Description Создаёт аккаунт и сразу выдаёт пару токенов
// @Tags Users
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "Данные для регистрации"
// @Success 201 {object} requestresponse.AuthResponse "Пользователь зарегистрирован"
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный email или слабый пароль"
// @Failure 409 {object} requestresponse.ErrorResponse "Email уже зарегистрирован"
// @Failure 429 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/register [post]
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	result, err := h.UserService.Register(r.Context(), req.Email, req.Password, r.UserAgent(), security.ClientIP(r))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, requestresponse.AuthResponseFromModel(result))
}

// ForgotPassword godoc
// @Summary Запрос на сброс пароля
// @Description Всегда отвечает 200, чтобы не раскрывать наличие аккаунта
// @Tags Users
// @Accept json
// @Produce json
// @Param body body requestresponse.ForgotPasswordRequest true "Email"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/forgot-password [post]
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	if err := h.UserService.ForgotPassword(r.Context(), req.Email, security.ClientIP(r)); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SuccessResponse{
		Message: "если аккаунт существует, инструкции отправлены на email",
	})
}

// GetProfile godoc
// @Summary Профиль текущего пользователя
// @Description Данные пользователя и состояние бесплатной квоты подписей
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} requestresponse.ProfileResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	profile, err := h.UserService.GetProfile(r.Context(), actor)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.ProfileResponseFromModel(profile))
}

// UpdateProfile godoc
// @Summary Обновление профиля
// @Description Меняет email и/или пароль текущего пользователя
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body requestresponse.UpdateProfileRequest true "Новые значения"
// @Success 200 {object} requestresponse.ProfileResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Email занят"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/profile [put]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req requestresponse.UpdateProfileRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	profile, err := h.UserService.UpdateProfile(r.Context(), actor, model.ProfileUpdate{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.ProfileResponseFromModel(profile))
}

// ListUsers godoc
// @Summary Список пользователей
// @Description Курсорная пагинация по дате создания, только для администратора
// @Tags Users
// @Produce json
// @Security ApiKeyAuth
// @Param cursor query string false "Курсор следующей страницы"
// @Param limit query int false "Размер страницы" default(20)
// @Success 200 {object} requestresponse.ListUsersResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	users, nextCursor, err := h.UserService.ListUsers(r.Context(), actor, strings.TrimSpace(r.URL.Query().Get("cursor")), limit)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	var resp requestresponse.ListUsersResponse
	resp.Data.Users = make([]requestresponse.UserResponse, 0, len(users))
	for _, user := range users {
		resp.Data.Users = append(resp.Data.Users, requestresponse.UserResponseFromModel(user))
	}
	resp.Data.NextCursor = nextCursor

	writeJSON(w, http.StatusOK, resp)
}
