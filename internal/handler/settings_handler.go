package handler

import (
	"net/http"
	"signature-web-server/internal/model/requestresponse"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/util"

	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	ports.SettingsService
}

func NewSettingsHandler(settingsService ports.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService}
}

// ListSettings godoc
// @Summary Настройки сервиса
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} requestresponse.SettingsResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/admin/settings [get]
func (h *SettingsHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	settings, err := h.SettingsService.List(r.Context(), actor)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SettingsResponse{Settings: settings})
}

// UpdateSetting godoc
// @Summary Изменение настройки
// @Description free_documents_limit должен быть неотрицательным целым числом. Новое значение действует сразу
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param key path string true "Ключ настройки"
// @Param body body requestresponse.UpdateSettingRequest true "Новое значение"
// @Success 200 {object} requestresponse.SettingEnvelope
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/admin/settings/{key} [put]
func (h *SettingsHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req requestresponse.UpdateSettingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	setting, err := h.SettingsService.Update(r.Context(), actor, chi.URLParam(r, "key"), req.Value)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SettingEnvelope{Setting: setting})
}
