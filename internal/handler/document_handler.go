package handler

import (
	"errors"
	"io"
	"net/http"
	"signature-web-server/internal/model"
	"signature-web-server/internal/model/requestresponse"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/util"
	"strings"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead : запас на заголовки multipart сверх размера файла
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	ports.DocumentService
	maxUploadBytes int64
}

func NewDocumentHandler(documentService ports.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{documentService, maxUploadBytes}
}

// UploadDocument godoc
// @Summary Загрузка документа
// @Description Принимает PDF, DOC или DOCX в поле file (multipart/form-data). Тип проверяется по содержимому
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "Файл документа"
// @Success 201 {object} requestresponse.UploadDocumentResponse
// @Failure 400 {object} requestresponse.ErrorResponse "Недопустимый тип, пустой файл или превышен размер"
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents [post]
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	reader, err := r.MultipartReader()
	if err != nil {
		util.WriteServiceError(w, model.Errorf(model.ErrValidation, "ожидается multipart/form-data"))
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			util.WriteServiceError(w, model.Errorf(model.ErrValidation, "файл не передан"))
			return
		}
		if err != nil {
			util.WriteServiceError(w, uploadReadError(err))
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		document, err := h.DocumentService.Upload(r.Context(), actor, model.UploadInput{
			Filename: part.FileName(),
			Content:  part,
		})
		_ = part.Close()
		if err != nil {
			util.WriteServiceError(w, uploadReadError(err))
			return
		}

		writeJSON(w, http.StatusCreated, requestresponse.UploadDocumentResponse{
			Message: "документ загружен",
			Data:    requestresponse.DocumentResponseFromModel(document),
		})
		return
	}
}

func uploadReadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return model.Errorf(model.ErrValidation, "файл превышает допустимый размер")
	}
	return err
}

// ListDocuments godoc
// @Summary Список документов
// @Description Документы текущего пользователя, новые первыми. Администратор с all=true видит все документы
// @Tags Documents
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "Статус" Enums(uploaded, pending, signed, rejected)
// @Param search query string false "Подстрока имени файла"
// @Param page query int false "Страница" default(1)
// @Param per_page query int false "Размер страницы" default(20)
// @Param all query bool false "Все документы (только администратор)"
// @Success 200 {object} requestresponse.ListDocumentsResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents [get]
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	page, err := queryInt(r, "page")
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}
	perPage, err := queryInt(r, "per_page")
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	query := r.URL.Query()
	result, err := h.DocumentService.List(r.Context(), actor, model.DocumentListFilter{
		Status:  model.DocumentStatus(strings.TrimSpace(query.Get("status"))),
		Search:  query.Get("search"),
		All:     query.Get("all") == "true",
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.ListDocumentsResponseFromModel(result))
}

// GetDocument godoc
// @Summary Получение документа
// @Description Метаданные документа и разметка полей. Доступно владельцу и администратору
// @Tags Documents
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID документа"
// @Success 200 {object} requestresponse.GetDocumentResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	details, err := h.DocumentService.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	var resp requestresponse.GetDocumentResponse
	resp.Data.Document = requestresponse.DocumentResponseFromModel(details.Document)
	resp.Data.Fields = requestresponse.FieldResponsesFromModel(details.Fields)

	writeJSON(w, http.StatusOK, resp)
}

// ReplaceFields godoc
// @Summary Разметка полей документа
// @Description Полностью заменяет поля подписи, даты, ФИО и флажков. Подписанный документ менять нельзя
// @Tags Documents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID документа"
// @Param body body requestresponse.ReplaceFieldsRequest true "Новая разметка"
// @Success 200 {object} requestresponse.FieldsResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Документ уже подписан"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id}/fields [put]
func (h *DocumentHandler) ReplaceFields(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req requestresponse.ReplaceFieldsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	fields := make([]model.DocumentField, 0, len(req.Fields))
	for _, field := range req.Fields {
		fields = append(fields, field.ToModel())
	}

	saved, err := h.DocumentService.ReplaceFields(r.Context(), actor, chi.URLParam(r, "id"), fields)
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	var resp requestresponse.FieldsResponse
	resp.Data.Fields = requestresponse.FieldResponsesFromModel(saved)

	writeJSON(w, http.StatusOK, resp)
}

// DownloadDocument godoc
// @Summary Скачивание документа
// @Description Отдаёт подписанный файл, если он есть, иначе оригинал
// @Tags Documents
// @Produce application/octet-stream
// @Security ApiKeyAuth
// @Param id path string true "UUID документа"
// @Success 200 {file} file
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse "Документ или файл не найден"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id}/download [get]
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	artifact, err := h.DocumentService.Download(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeArtifact(w, artifact, "attachment")
}

// PreviewDocument godoc
// @Summary Просмотр оригинала
// @Description Отдаёт исходный файл для отображения в браузере
// @Tags Documents
// @Produce application/pdf
// @Security ApiKeyAuth
// @Param id path string true "UUID документа"
// @Success 200 {file} file
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id}/preview [get]
func (h *DocumentHandler) PreviewDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	artifact, err := h.DocumentService.Preview(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeArtifact(w, artifact, "inline")
}

// DeleteDocument godoc
// @Summary Удаление документа
// @Description Удаляет неподписанный документ вместе с полями, запросами подписи и файлами
// @Tags Documents
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "UUID документа"
// @Success 200 {object} requestresponse.SuccessResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse "Подписанный документ удалить нельзя"
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	if err := h.DocumentService.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		util.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestresponse.SuccessResponse{Message: "документ удалён"})
}
