package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"signature-web-server/internal/model"
	"signature-web-server/internal/security"
	"signature-web-server/internal/util"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("ошибка кодирования ответа", zap.Error(err))
	}
}

// maxJSONBodyBytes : предел тела JSON запроса, включая публичные маршруты
const maxJSONBodyBytes = 64 << 10

// decodeJSON : пустое тело допустимо только при allowEmpty
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	case errors.As(err, &tooLarge):
		return model.Errorf(model.ErrValidation, "тело запроса превышает %d байт", tooLarge.Limit)
	default:
		return model.Errorf(model.ErrValidation, "некорректный JSON")
	}
}

// actorFrom : пишет 401 и возвращает false, если в контексте нет claims
func actorFrom(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, err := security.ActorFromRequest(r)
	if err != nil {
		util.WriteServiceError(w, model.Errorf(model.ErrUnauthorized, "пользователь не авторизован"))
		return model.Actor{}, false
	}
	return actor, true
}

// queryInt : отсутствующий параметр даёт 0
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.Errorf(model.ErrValidation, "параметр %s должен быть целым числом", name)
	}
	return value, nil
}

// queryTime : RFC 3339 или дата YYYY-MM-DD (полночь UTC)
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, model.Errorf(model.ErrValidation, "некорректная дата в параметре %s", name)
}

func contentDisposition(disposition, filename string) string {
	if value := mime.FormatMediaType(disposition, map[string]string{"filename": filename}); value != "" {
		return value
	}
	return disposition
}

// writeArtifact : отдаёт файл документа и закрывает его
func writeArtifact(w http.ResponseWriter, artifact *model.Artifact, disposition string) {
	defer artifact.Body.Close()

	w.Header().Set("Content-Type", artifact.MimeType)
	w.Header().Set("Content-Disposition", contentDisposition(disposition, artifact.Filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, artifact.Body); err != nil {
		zap.L().Warn("ошибка передачи файла клиенту", zap.String("filename", artifact.Filename), zap.Error(err))
	}
}
