package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	srv "signature-web-server/internal/service"
	"signature-web-server/internal/storage"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type documentDeps struct {
	tx        *stubTx
	documents *MockDocumentRepository
	fields    *MockFieldRepository
	audit     *MockAuditRepository
	cache     *MockCacheRepository
}

func newDocumentService(artifacts ports.ArtifactStorage, maxBytes int64) (*srv.DocumentService, *documentDeps) {
	deps := &documentDeps{
		tx:        newStubTx(),
		documents: new(MockDocumentRepository),
		fields:    new(MockFieldRepository),
		audit:     new(MockAuditRepository),
		cache:     new(MockCacheRepository),
	}
	service := srv.NewDocumentService(deps.tx, deps.documents, deps.fields, deps.audit, artifacts, deps.cache, newMetrics(), maxBytes)
	return service, deps
}

func (d *documentDeps) assert(t *testing.T) {
	d.documents.AssertExpectations(t)
	d.fields.AssertExpectations(t)
	d.audit.AssertExpectations(t)
	d.cache.AssertExpectations(t)
}

func newLocalStorage(t *testing.T) (*storage.LocalStorage, string) {
	t.Helper()
	root := t.TempDir()
	local, err := storage.NewLocalStorage(root)
	require.NoError(t, err)
	return local, root
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	count := 0
	require.NoError(t, filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err == nil && !entry.IsDir() {
			count++
		}
		return err
	}))
	return count
}

func pdfContent(size int) []byte {
	return append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), size)...)
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserUUID: "owner-1", IP: "10.0.0.1"}

	t.Run("pdf stored and recorded", func(t *testing.T) {
		local, root := newLocalStorage(t)
		service, deps := newDocumentService(local, 1<<20)
		content := pdfContent(5000)

		deps.documents.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
			return d.OwnerUUID == "owner-1" && d.Status == model.DocumentUploaded && d.SignedPath == nil
		})).Return(nil).Once()
		deps.audit.On("Append", mock.Anything, mock.Anything, auditAction(model.ActionDocumentUploaded)).Return(nil).Once()

		document, err := service.Upload(ctx, actor, model.UploadInput{Filename: "C:\\docs\\Contract.PDF", Content: bytes.NewReader(content)})
		require.NoError(t, err)
		assert.Equal(t, "Contract.PDF", document.Filename)
		assert.Equal(t, "application/pdf", document.MimeType)
		assert.Equal(t, int64(len(content)), document.SizeBytes)
		assert.Regexp(t, `^users/owner-1/Contract-[0-9a-f]{8}\.pdf$`, document.OriginalPath)
		assert.Len(t, document.OriginalSha256, 64)
		assert.Equal(t, 1, countFiles(t, root))

		body, err := local.Open(ctx, document.OriginalPath)
		require.NoError(t, err)
		defer body.Close()
		stored, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, content, stored)
		deps.assert(t)
	})

	t.Run("docx detected as zip accepted", func(t *testing.T) {
		local, _ := newLocalStorage(t)
		service, deps := newDocumentService(local, 1<<20)
		content := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0}, 200)...)

		deps.documents.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		deps.audit.On("Append", mock.Anything, mock.Anything, auditAction(model.ActionDocumentUploaded)).Return(nil).Once()

		_, err := service.Upload(ctx, actor, model.UploadInput{Filename: "offer.docx", Content: bytes.NewReader(content)})
		require.NoError(t, err)
		deps.assert(t)
	})

	rejected := []struct {
		name     string
		filename string
		content  []byte
	}{
		{name: "extension not allowed", filename: "notes.txt", content: []byte("plain text")},
		{name: "content does not match extension", filename: "fake.pdf", content: []byte("just some text, not a pdf")},
		{name: "empty file", filename: "empty.pdf", content: nil},
		{name: "too large", filename: "big.pdf", content: pdfContent(4096)},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			local, root := newLocalStorage(t)
			service, deps := newDocumentService(local, 1024)

			_, err := service.Upload(ctx, actor, model.UploadInput{Filename: tt.filename, Content: bytes.NewReader(tt.content)})
			assert.ErrorIs(t, err, model.ErrValidation)
			assert.Zero(t, countFiles(t, root))
			deps.assert(t)
		})
	}

	t.Run("failed insert removes file", func(t *testing.T) {
		local, root := newLocalStorage(t)
		service, deps := newDocumentService(local, 1<<20)

		deps.documents.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, err := service.Upload(ctx, actor, model.UploadInput{Filename: "a.pdf", Content: bytes.NewReader(pdfContent(10))})
		assert.Error(t, err)
		assert.Zero(t, countFiles(t, root))
		assert.Zero(t, deps.tx.Commits())
		deps.assert(t)
	})
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()
	service, deps := newDocumentService(new(MockStorage), 1024)

	deps.documents.On("List", mock.Anything, mock.Anything, model.DocumentListFilter{
		OwnerUUID: "owner-1",
		All:       false,
		Status:    model.DocumentSigned,
		Search:    "contract",
		Page:      1,
		PerPage:   100,
	}).Return([]model.Document{{UUID: "doc-1"}}, 101, nil).Once()

	page, err := service.List(ctx, model.Actor{UserUUID: "owner-1"}, model.DocumentListFilter{
		All:     true,
		Status:  model.DocumentSigned,
		Search:  " contract ",
		PerPage: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, 101, page.Total)

	_, err = service.List(ctx, model.Actor{UserUUID: "owner-1"}, model.DocumentListFilter{Status: "archived"})
	assert.ErrorIs(t, err, model.ErrValidation)
	deps.assert(t)
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()
	document := &model.Document{UUID: "doc-1", OwnerUUID: "owner-1"}

	t.Run("cache miss loads and caches", func(t *testing.T) {
		service, deps := newDocumentService(new(MockStorage), 1024)
		deps.cache.On("GetDocument", mock.Anything, "doc-1").Return(nil, nil).Once()
		deps.documents.On("GetByUUID", mock.Anything, mock.Anything, "doc-1").Return(document, nil).Once()
		deps.cache.On("SetDocument", mock.Anything, document).Return(nil).Once()
		deps.fields.On("ListByDocument", mock.Anything, mock.Anything, "doc-1").
			Return([]model.DocumentField{{UUID: "f-1"}}, nil).Once()
		deps.audit.On("Append", mock.Anything, mock.Anything, auditAction(model.ActionDocumentAccessed)).Return(nil).Once()

		details, err := service.Get(ctx, model.Actor{UserUUID: "owner-1"}, "doc-1")
		require.NoError(t, err)
		assert.Len(t, details.Fields, 1)
		deps.assert(t)
	})

	t.Run("foreign document denied", func(t *testing.T) {
		service, deps := newDocumentService(new(MockStorage), 1024)
		deps.cache.On("GetDocument", mock.Anything, "doc-1").Return(document, nil).Once()
		deps.audit.On("Append", mock.Anything, mock.Anything, mock.MatchedBy(func(entry *model.AuditLog) bool {
			return entry.ActionType == model.ActionAccessDenied && *entry.DocumentUUID == "doc-1" && *entry.UserUUID == "intruder"
		})).Return(nil).Once()

		_, err := service.Get(ctx, model.Actor{UserUUID: "intruder"}, "doc-1")
		assert.ErrorIs(t, err, model.ErrForbidden)
		deps.assert(t)
	})

	t.Run("missing document", func(t *testing.T) {
		service, deps := newDocumentService(new(MockStorage), 1024)
		deps.cache.On("GetDocument", mock.Anything, "doc-9").Return(nil, errors.New("redis down")).Once()
		deps.documents.On("GetByUUID", mock.Anything, mock.Anything, "doc-9").Return(nil, model.ErrNotFound).Once()

		_, err := service.Get(ctx, model.Actor{UserUUID: "owner-1"}, "doc-9")
		assert.ErrorIs(t, err, model.ErrNotFound)
		deps.assert(t)
	})
}

func TestDocumentService_ReplaceFields(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserUUID: "owner-1"}
	fields := func() []model.DocumentField {
		return []model.DocumentField{
			{FieldType: model.FieldSignature, PageNumber: 1, X: 10, Y: 20},
			{FieldType: model.FieldDate, PageNumber: 2, X: 0, Y: 0},
		}
	}

	t.Run("replaces all", func(t *testing.T) {
		service, deps := newDocumentService(new(MockStorage), 1024)
		deps.documents.On("GetByUUIDForUpdate", mock.Anything, mock.Anything, "doc-1").
			Return(&model.Document{UUID: "doc-1", OwnerUUID: "owner-1", Status: model.DocumentUploaded}, nil).Once()
		deps.fields.On("ReplaceAll", mock.Anything, mock.Anything, "doc-1", mock.MatchedBy(func(f []model.DocumentField) bool {
			return len(f) == 2 && f[0].UUID != "" && f[0].DocumentUUID == "doc-1"
		})).Return(nil).Once()
		deps.audit.On("Append", mock.Anything, mock.Anything, auditAction(model.ActionDocumentFieldsUpdated)).Return(nil).Once()
		deps.cache.On("DeleteDocument", mock.Anything, "doc-1").Return(nil).Once()

		saved, err := service.ReplaceFields(ctx, actor, "doc-1", fields())
		require.NoError(t, err)
		assert.Len(t, saved, 2)
		assert.Equal(t, 1, deps.tx.Commits())
		deps.assert(t)
	})

	t.Run("signed document", func(t *testing.T) {
		service, deps := newDocumentService(new(MockStorage), 1024)
		deps.documents.On("GetByUUIDForUpdate", mock.Anything, mock.Anything, "doc-1").
			Return(&model.Document{UUID: "doc-1", OwnerUUID: "owner-1", Status: model.DocumentSigned}, nil).Once()

		_, err := service.ReplaceFields(ctx, actor, "doc-1", fields())
		assert.ErrorIs(t, err, model.ErrConflict)
		deps.assert(t)
	})

	t.Run("invalid field", func(t *testing.T) {
		service, deps := newDocumentService(new(MockStorage), 1024)
		bad := []model.DocumentField{{FieldType: model.FieldCheckbox, PageNumber: 0}}

		_, err := service.ReplaceFields(ctx, actor, "doc-1", bad)
		assert.ErrorIs(t, err, model.ErrValidation)
		deps.assert(t)
	})
}

func TestDocumentService_Download(t *testing.T) {
	ctx := context.Background()
	signedPath := "users/owner-1/contract-0000aaaa_signed_1111bbbb.pdf"
	signedHash := strings.Repeat("b", 64)

	t.Run("signed version preferred", func(t *testing.T) {
		artifacts := new(MockStorage)
		service, deps := newDocumentService(artifacts, 1024)
		deps.documents.On("GetByUUID", mock.Anything, mock.Anything, "doc-1").Return(&model.Document{
			UUID: "doc-1", OwnerUUID: "owner-1", Filename: "contract.pdf", MimeType: "application/pdf",
			OriginalPath: "users/owner-1/contract-0000aaaa.pdf", SignedPath: &signedPath, Sha256Hash: &signedHash,
			Status: model.DocumentSigned,
		}, nil).Once()
		artifacts.On("Open", mock.Anything, signedPath).Return(io.NopCloser(strings.NewReader("signed")), nil).Once()
		deps.audit.On("Append", mock.Anything, mock.Anything, auditAction(model.ActionDocumentDownloaded)).Return(nil).Once()

		artifact, err := service.Download(ctx, model.Actor{UserUUID: "owner-1"}, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "contract_signed.pdf", artifact.Filename)
		artifacts.AssertExpectations(t)
		deps.assert(t)
	})

	t.Run("preview returns original", func(t *testing.T) {
		artifacts := new(MockStorage)
		service, deps := newDocumentService(artifacts, 1024)
		deps.documents.On("GetByUUID", mock.Anything, mock.Anything, "doc-1").Return(&model.Document{
			UUID: "doc-1", OwnerUUID: "owner-1", Filename: "contract.pdf",
			OriginalPath: "users/owner-1/contract-0000aaaa.pdf", SignedPath: &signedPath,
		}, nil).Once()
		artifacts.On("Open", mock.Anything, "users/owner-1/contract-0000aaaa.pdf").
			Return(nil, model.ErrNotFound).Once()

		_, err := service.Preview(ctx, model.Actor{UserUUID: "admin", IsAdmin: true}, "doc-1")
		assert.ErrorIs(t, err, model.ErrNotFound)
		artifacts.AssertExpectations(t)
		deps.assert(t)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserUUID: "owner-1"}

	t.Run("signed document kept", func(t *testing.T) {
		service, deps := newDocumentService(new(MockStorage), 1024)
		deps.documents.On("GetByUUIDForUpdate", mock.Anything, mock.Anything, "doc-1").
			Return(&model.Document{UUID: "doc-1", OwnerUUID: "owner-1", Status: model.DocumentSigned}, nil).Once()

		assert.ErrorIs(t, service.Delete(ctx, actor, "doc-1"), model.ErrConflict)
		deps.assert(t)
	})

	t.Run("row and file removed", func(t *testing.T) {
		artifacts := new(MockStorage)
		service, deps := newDocumentService(artifacts, 1024)
		deps.documents.On("GetByUUIDForUpdate", mock.Anything, mock.Anything, "doc-1").Return(&model.Document{
			UUID: "doc-1", OwnerUUID: "owner-1", Filename: "a.pdf", OriginalPath: "users/owner-1/a.pdf", Status: model.DocumentPending,
		}, nil).Once()
		deps.audit.On("Append", mock.Anything, mock.Anything, mock.MatchedBy(func(entry *model.AuditLog) bool {
			return entry.ActionType == model.ActionDocumentDeleted && *entry.Details == "document_id=doc-1 filename=a.pdf"
		})).Return(nil).Once()
		deps.documents.On("Delete", mock.Anything, mock.Anything, "doc-1").Return(nil).Once()
		deps.cache.On("DeleteDocument", mock.Anything, "doc-1").Return(nil).Once()
		artifacts.On("Delete", mock.Anything, "users/owner-1/a.pdf").Return(nil).Once()

		require.NoError(t, service.Delete(ctx, actor, "doc-1"))
		assert.Equal(t, 1, deps.tx.Commits())
		artifacts.AssertExpectations(t)
		deps.assert(t)
	})
}
