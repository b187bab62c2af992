package handler

import (
	"net/http"
	"signature-web-server/internal/model"
	"signature-web-server/internal/model/requestresponse"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/security"
	"signature-web-server/internal/util"

	"github.com/go-chi/chi/v5"
)

type SignatureHandler struct {
	signatures   ports.SignatureService
	verification ports.VerificationService
}

func NewSignatureHandler(signatures ports.SignatureService, verification ports.VerificationService) *SignatureHandler {
	return &SignatureHandler{signatures: signatures, verification: verification}
}

// CreateSignatureRequest godoc
// @Summary Запрос подписи
// @Description Создаёт запрос подписи для подписанта и переводит документ в pending. Уведомление уходит в очередь
// @Tags Signatures
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID документа"
// @Param body body requestresponse.CreateSignatureRequest true "Подписант и вид подписи"
// @Success 201 {object} requestresponse.SignatureRequestEnvelope
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный email или вид подписи"
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Документ уже подписан"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id}/signature-requests [post]
func (h *SignatureHandler) CreateSignatureRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req requestresponse.CreateSignatureRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	created, err := h.signatures.Create(r.Context(), actor, chi.URLParam(r, "id"), req.SignerEmail, req.SignatureType)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, requestresponse.SignatureRequestEnvelope{
		Message:          "запрос подписи создан",
		SignatureRequest: requestresponse.SignatureRequestResponseFromModel(created),
	})
}

// ListSignatureRequests godoc
// @Summary Запросы подписи документа
// @Tags Signatures
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID документа"
// @Success 200 {object} requestresponse.ListSignatureRequestsResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id}/signature-requests [get]
func (h *SignatureHandler) ListSignatureRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	requests, err := h.signatures.ListForDocument(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.ListSignatureRequestsResponse{
		SignatureRequests: requestresponse.SignatureRequestResponsesFromModel(requests),
	})
}

// GetSignatureRequest godoc
// @Summary Запрос подписи для подписанта
// @Description Публичный доступ по UUID запроса: запрос и краткие данные документа
// @Tags Signatures
// @Produce json
// @Param id path string true "UUID запроса подписи"
// @Success 200 {object} requestresponse.PublicSignatureRequestResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/signature-requests/{id} [get]
func (h *SignatureHandler) GetSignatureRequest(w http.ResponseWriter, r *http.Request) {
	item, err := h.signatures.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.PublicSignatureRequestResponseFromModel(item))
}

// Sign godoc
// @Summary Подписание документа
// @Description Переводит запрос из pending в signed, сохраняет подписанный файл и его хэш. Повторная подпись даёт 409
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "UUID запроса подписи"
// @Param body body requestresponse.SignRequest false "Геолокация и биометрия"
// @Success 200 {object} requestresponse.SignResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse "Исчерпан лимит бесплатных подписей"
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Запрос уже не в статусе pending"
// @Failure 429 {object} requestresponse.ErrorResponse
// @Failure 501 {object} requestresponse.ErrorResponse "Цифровая подпись не поддерживается"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/signature-requests/{id}/sign [post]
func (h *SignatureHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.SignRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	result, err := h.signatures.Sign(r.Context(), chi.URLParam(r, "id"), model.SignInput{
		Geolocation:   req.Geolocation,
		BiometricData: req.BiometricData,
	}, security.ClientIP(r))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SignResponseFromModel(result))
}

// ResendSignatureRequest godoc
// @Summary Повторная отправка запроса
// @Tags Signatures
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID запроса подписи"
// @Success 200 {object} requestresponse.SignatureRequestEnvelope
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Запрос не в статусе pending"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/signature-requests/{id}/resend [post]
func (h *SignatureHandler) ResendSignatureRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	resent, err := h.signatures.Resend(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SignatureRequestEnvelope{
		Message:          "запрос подписи отправлен повторно",
		SignatureRequest: requestresponse.SignatureRequestResponseFromModel(resent),
	})
}

// CancelSignatureRequest godoc
// @Summary Отмена запроса подписи
// @Description Переводит запрос в rejected. Если у документа не осталось активных запросов, он возвращается в uploaded
// @Tags Signatures
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID запроса подписи"
// @Success 200 {object} requestresponse.SignatureRequestEnvelope
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Запрос не в статусе pending"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/signature-requests/{id}/cancel [post]
func (h *SignatureHandler) CancelSignatureRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	cancelled, err := h.signatures.Cancel(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SignatureRequestEnvelope{
		Message:          "запрос подписи отменён",
		SignatureRequest: requestresponse.SignatureRequestResponseFromModel(cancelled),
	})
}

// VerifyDocument godoc
// @Summary Проверка подписанного документа
// @Description Публичная проверка: хэш файла пересчитывается и сравнивается с сохранённым
// @Tags Verification
// @Produce json
// @Param id path string true "UUID документа"
// @Success 200 {object} requestresponse.VerificationResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Документ ещё не подписан"
// @Failure 429 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id}/verify [get]
func (h *SignatureHandler) VerifyDocument(w http.ResponseWriter, r *http.Request) {
	verification, err := h.verification.Verify(r.Context(), chi.URLParam(r, "id"), security.ClientIP(r))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.VerificationResponseFromModel(verification))
}
