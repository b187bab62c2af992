package model_test

import (
	"errors"
	"signature-web-server/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_CanSignDocument(t *testing.T) {
	tests := []struct {
		name   string
		user   model.User
		limit  int
		expect bool
	}{
		{name: "under limit", user: model.User{FreeDocumentsSigned: 4}, limit: 5, expect: true},
		{name: "at limit", user: model.User{FreeDocumentsSigned: 5}, limit: 5, expect: false},
		{name: "admin over limit", user: model.User{FreeDocumentsSigned: 50, IsAdmin: true}, limit: 5, expect: true},
		{name: "zero limit", user: model.User{}, limit: 0, expect: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.user.CanSignDocument(tt.limit))
		})
	}
}

func TestParseSignatureKind(t *testing.T) {
	kind, err := model.ParseSignatureKind("")
	require.NoError(t, err)
	assert.Equal(t, model.SignatureElectronic, kind)

	kind, err = model.ParseSignatureKind(" Digital ")
	require.NoError(t, err)
	assert.Equal(t, model.SignatureDigital, kind)

	_, err = model.ParseSignatureKind("qualified")
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestDocumentField_Validate(t *testing.T) {
	negative := -1.0
	tests := []struct {
		name    string
		field   model.DocumentField
		wantErr bool
	}{
		{name: "valid", field: model.DocumentField{FieldType: model.FieldSignature, PageNumber: 1}},
		{name: "unknown type", field: model.DocumentField{FieldType: "stamp", PageNumber: 1}, wantErr: true},
		{name: "page zero", field: model.DocumentField{FieldType: model.FieldDate}, wantErr: true},
		{name: "negative x", field: model.DocumentField{FieldType: model.FieldDate, PageNumber: 1, X: -2}, wantErr: true},
		{name: "negative width", field: model.DocumentField{FieldType: model.FieldCheckbox, PageNumber: 2, Width: &negative}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseAuditAction(t *testing.T) {
	action, err := model.ParseAuditAction("")
	require.NoError(t, err)
	assert.Nil(t, action)

	action, err = model.ParseAuditAction("document_signed_electronic")
	require.NoError(t, err)
	assert.Equal(t, model.ActionDocumentSignedElectronic, *action)
	assert.Equal(t, model.CategorySignature, action.Category())

	_, err = model.ParseAuditAction("document_teleported")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDocument_CurrentPathAndHash(t *testing.T) {
	doc := model.Document{OriginalPath: "users/u/a.pdf", OriginalSha256: "orig"}
	assert.Equal(t, "users/u/a.pdf", doc.CurrentPath())
	assert.Equal(t, "orig", doc.CurrentHash())

	signed, hash := "users/u/a_signed.pdf", "signed"
	doc.SignedPath, doc.Sha256Hash = &signed, &hash
	assert.Equal(t, signed, doc.CurrentPath())
	assert.Equal(t, hash, doc.CurrentHash())
}

func TestDomainError_Unwrap(t *testing.T) {
	err := model.Errorf(model.ErrConflict, "запрос уже подписан")
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, "запрос уже подписан", err.Error())

	var domainErr *model.DomainError
	assert.True(t, errors.As(err, &domainErr))
}

func TestValidateSetting(t *testing.T) {
	assert.NoError(t, model.ValidateSetting(model.SettingFreeDocumentsLimit, "10"))
	assert.ErrorIs(t, model.ValidateSetting(model.SettingFreeDocumentsLimit, "-1"), model.ErrValidation)
	assert.ErrorIs(t, model.ValidateSetting(model.SettingFreeDocumentsLimit, "many"), model.ErrValidation)
	assert.ErrorIs(t, model.ValidateSetting(" ", "x"), model.ErrValidation)
	assert.NoError(t, model.ValidateSetting("support_email", "help@example.com"))
}
