package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"signature-web-server/internal/model"
	"signature-web-server/internal/model/requestresponse"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("signer@example.com"))
	assert.False(t, ValidateEmail("signer@"))
	assert.False(t, ValidateEmail(""))
	assert.Equal(t, "signer@example.com", SanitizeEmail("  Signer@Example.COM "))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("Str0ngPass"))
	assert.False(t, ValidatePassword("Sh0rt"))
	assert.False(t, ValidatePassword("alllowercase1"))
	assert.False(t, ValidatePassword("NoDigitsHere"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"contract.pdf":          "contract.pdf",
		"../../etc/passwd":      "passwd",
		"My Contract (v2).docx": "My_Contract_v2_.docx",
		"...":                   "document",
		`C:\Users\me\deal.pdf`:  "deal.pdf",
	}
	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, expected, SanitizeFilename(input))
		})
	}

	base, ext := SplitExtension("Deal.PDF")
	assert.Equal(t, "Deal", base)
	assert.Equal(t, "pdf", ext)
}

func TestGenerateRandomToken(t *testing.T) {
	token, err := GenerateRandomToken(8)
	require.NoError(t, err)
	assert.Len(t, token, 8)

	other, err := GenerateRandomToken(8)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "quota",
			err:         fmt.Errorf("[SignatureService] подпись: %w", model.Errorf(model.ErrQuotaExceeded, "лимит 5 подписей исчерпан")),
			wantStatus:  http.StatusForbidden,
			wantCode:    "quota_exceeded",
			wantMessage: "лимит 5 подписей исчерпан",
		},
		{
			name:        "plain sentinel",
			err:         fmt.Errorf("обёртка: %w", model.ErrNotFound),
			wantStatus:  http.StatusNotFound,
			wantCode:    "not_found",
			wantMessage: "не найдено",
		},
		{
			name:        "not implemented",
			err:         model.Errorf(model.ErrNotImplemented, "цифровая подпись недоступна"),
			wantStatus:  http.StatusNotImplemented,
			wantCode:    "not_implemented",
			wantMessage: "цифровая подпись недоступна",
		},
		{
			name:        "internal text is hidden",
			err:         fmt.Errorf("pq: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "internal_error",
			wantMessage: "внутренняя ошибка сервера",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body requestresponse.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, tt.wantStatus, body.Code)
		})
	}
}

func TestFindMapping(t *testing.T) {
	for _, expected := range errorMappings {
		mapping, ok := findMapping(fmt.Errorf("обёртка: %w", expected.kind))
		require.True(t, ok, expected.code)
		assert.Equal(t, expected.code, mapping.code)
	}

	_, ok := findMapping(errors.New("соединение разорвано"))
	assert.False(t, ok)
}
