package service_test

import (
	"context"
	"io"
	"signature-web-server/internal/model"
	srv "signature-web-server/internal/service"
	"signature-web-server/internal/signing"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const signedKey = "users/owner-1/contract-0000aaaa_signed_1111bbbb.pdf"

type verificationDeps struct {
	documents *MockDocumentRepository
	requests  *MockSignatureRepository
	audit     *MockAuditRepository
}

func newVerificationService(t *testing.T) (*srv.VerificationService, *verificationDeps, *model.Document) {
	return newVerificationServiceWith(t, strings.NewReader("%PDF-1.7 signed artifact"))
}

func newVerificationServiceWith(t *testing.T, artifact io.Reader) (*srv.VerificationService, *verificationDeps, *model.Document) {
	local, _ := newLocalStorage(t)
	stored, err := local.Save(context.Background(), signedKey, artifact)
	require.NoError(t, err)

	deps := &verificationDeps{
		documents: new(MockDocumentRepository),
		requests:  new(MockSignatureRepository),
		audit:     new(MockAuditRepository),
	}
	key := stored.Key
	hash := stored.Sha256
	document := &model.Document{
		UUID:       "doc-1",
		OwnerUUID:  "owner-1",
		SignedPath: &key,
		Sha256Hash: &hash,
		Status:     model.DocumentSigned,
	}

	service := srv.NewVerificationService(newStubTx(), deps.documents, deps.requests, deps.audit, local, newMetrics())
	t.Cleanup(func() {
		deps.documents.AssertExpectations(t)
		deps.requests.AssertExpectations(t)
		deps.audit.AssertExpectations(t)
	})
	return service, deps, document
}

func (d *verificationDeps) expectPayload(document *model.Document, times int) {
	d.documents.On("GetByUUID", mock.Anything, mock.Anything, "doc-1").Return(document, nil).Times(times)
	d.requests.On("ListSignedByDocument", mock.Anything, mock.Anything, "doc-1").
		Return([]model.SignatureRequest{{UUID: "req-1", Status: model.RequestSigned}}, nil).Times(times)
	d.audit.On("ListByDocument", mock.Anything, mock.Anything, "doc-1").
		Return([]model.AuditLog{{UUID: "log-1", ActionType: model.ActionDocumentSignedElectronic}}, nil).Times(times)
	d.audit.On("Append", mock.Anything, mock.Anything, auditAction(model.ActionVerificationAccessed)).Return(nil).Times(times)
}

func TestVerificationService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("intact file verified twice", func(t *testing.T) {
		service, deps, document := newVerificationService(t)
		deps.expectPayload(document, 2)

		first, err := service.Verify(ctx, "doc-1", "198.51.100.1")
		require.NoError(t, err)
		second, err := service.Verify(ctx, "doc-1", "198.51.100.1")
		require.NoError(t, err)

		assert.True(t, first.FileIntegrity)
		assert.Equal(t, *document.Sha256Hash, *first.CurrentHash)
		assert.Equal(t, first.FileIntegrity, second.FileIntegrity)
		assert.Equal(t, first.Signatures, second.Signatures)
		assert.Len(t, first.AuditTrail, 1)
		assert.False(t, first.VerificationTimestamp.IsZero())
		assert.Empty(t, first.Manifests)
	})

	t.Run("manifests listed in signing order", func(t *testing.T) {
		signer := signing.NewElectronicSigner()
		signedAt := time.Date(2025, 8, 23, 12, 0, 0, 0, time.UTC)
		var artifact io.Reader = strings.NewReader("%PDF-1.7 original")
		for _, email := range []string{"bob@example.com", "carol@example.com"} {
			var err error
			artifact, err = signer.Sign(ctx, artifact, model.SignatureManifest{
				DocumentUUID:  "doc-1",
				SignerEmail:   email,
				SignatureType: model.SignatureElectronic,
				SignedAt:      signedAt,
			})
			require.NoError(t, err)
		}

		service, deps, document := newVerificationServiceWith(t, artifact)
		deps.expectPayload(document, 1)

		result, err := service.Verify(ctx, "doc-1", "198.51.100.1")
		require.NoError(t, err)
		assert.True(t, result.FileIntegrity)
		require.Len(t, result.Manifests, 2)
		assert.Equal(t, "bob@example.com", result.Manifests[0].SignerEmail)
		assert.Equal(t, "carol@example.com", result.Manifests[1].SignerEmail)
		assert.True(t, signedAt.Equal(result.Manifests[0].SignedAt))
	})

	t.Run("broken manifest keeps integrity result", func(t *testing.T) {
		service, deps, document := newVerificationServiceWith(t, strings.NewReader("%PDF-1.7\n%%E-SIGNATURE-BEGIN\n{\"signer_email\""))
		deps.expectPayload(document, 1)

		result, err := service.Verify(ctx, "doc-1", "198.51.100.1")
		require.NoError(t, err)
		assert.True(t, result.FileIntegrity)
		assert.Empty(t, result.Manifests)
	})

	t.Run("tampered file", func(t *testing.T) {
		service, deps, document := newVerificationService(t)
		wrong := strings.Repeat("0", 64)
		document.Sha256Hash = &wrong
		deps.expectPayload(document, 1)

		result, err := service.Verify(ctx, "doc-1", "198.51.100.1")
		require.NoError(t, err)
		assert.False(t, result.FileIntegrity)
		require.NotNil(t, result.CurrentHash)
		assert.NotEqual(t, wrong, *result.CurrentHash)
	})

	t.Run("missing file", func(t *testing.T) {
		service, deps, document := newVerificationService(t)
		missing := "users/owner-1/gone.pdf"
		document.SignedPath = &missing
		deps.expectPayload(document, 1)

		result, err := service.Verify(ctx, "doc-1", "198.51.100.1")
		require.NoError(t, err)
		assert.False(t, result.FileIntegrity)
		assert.Nil(t, result.CurrentHash)
		assert.Nil(t, result.Manifests)
	})

	t.Run("not signed yet", func(t *testing.T) {
		service, deps, _ := newVerificationService(t)
		deps.documents.On("GetByUUID", mock.Anything, mock.Anything, "doc-2").
			Return(&model.Document{UUID: "doc-2", Status: model.DocumentPending}, nil).Once()

		_, err := service.Verify(ctx, "doc-2", "198.51.100.1")
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("unknown document", func(t *testing.T) {
		service, deps, _ := newVerificationService(t)
		deps.documents.On("GetByUUID", mock.Anything, mock.Anything, "doc-404").Return(nil, model.ErrNotFound).Once()

		_, err := service.Verify(ctx, "doc-404", "198.51.100.1")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
