package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"signature-web-server/internal/model"
	"signature-web-server/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

// serve : прогоняет запрос через chi, чтобы работали URL параметры
func serve(method, pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.MethodFunc(method, pattern, handler)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func withClaims(req *http.Request, userUUID string, isAdmin bool) *http.Request {
	claims := &security.Claims{UserUUID: userUUID, RefreshTokenUUID: "refresh-1", IsAdmin: isAdmin}
	return req.WithContext(context.WithValue(req.Context(), security.UserContextKey, claims))
}

type MockAuthenticationService struct {
	mock.Mock
}

func (m *MockAuthenticationService) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*model.AuthResult, error) {
	args := m.Called(ctx, email, password, userAgent, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthResult), args.Error(1)
}

func (m *MockAuthenticationService) OAuthLogin(ctx context.Context, accessToken, userAgent, ipAddress string) (*model.AuthResult, error) {
	args := m.Called(ctx, accessToken, userAgent, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthResult), args.Error(1)
}

func (m *MockAuthenticationService) RefreshToken(ctx context.Context, userAgent, ipAddress, accessToken, refreshToken string) (*model.TokensPair, error) {
	args := m.Called(ctx, userAgent, ipAddress, accessToken, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokensPair), args.Error(1)
}

func (m *MockAuthenticationService) Logout(ctx context.Context, actor model.Actor, refreshTokenUUID string) error {
	args := m.Called(ctx, actor, refreshTokenUUID)
	return args.Error(0)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, email, password, userAgent, ipAddress string) (*model.AuthResult, error) {
	args := m.Called(ctx, email, password, userAgent, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthResult), args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, actor model.Actor) (*model.UserProfile, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, actor model.Actor, update model.ProfileUpdate) (*model.UserProfile, error) {
	args := m.Called(ctx, actor, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockUserService) ForgotPassword(ctx context.Context, email, ipAddress string) error {
	args := m.Called(ctx, email, ipAddress)
	return args.Error(0)
}

func (m *MockUserService) ListUsers(ctx context.Context, actor model.Actor, cursor string, limit int) ([]*model.User, string, error) {
	args := m.Called(ctx, actor, cursor, limit)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]*model.User), args.String(1), args.Error(2)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, actor model.Actor, input model.UploadInput) (*model.Document, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, actor model.Actor, filter model.DocumentListFilter) (*model.DocumentPage, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentPage), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, actor model.Actor, documentUUID string) (*model.DocumentDetails, error) {
	args := m.Called(ctx, actor, documentUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentDetails), args.Error(1)
}

func (m *MockDocumentService) ReplaceFields(ctx context.Context, actor model.Actor, documentUUID string, fields []model.DocumentField) ([]model.DocumentField, error) {
	args := m.Called(ctx, actor, documentUUID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentField), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, actor model.Actor, documentUUID string) (*model.Artifact, error) {
	args := m.Called(ctx, actor, documentUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockDocumentService) Preview(ctx context.Context, actor model.Actor, documentUUID string) (*model.Artifact, error) {
	args := m.Called(ctx, actor, documentUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, actor model.Actor, documentUUID string) error {
	args := m.Called(ctx, actor, documentUUID)
	return args.Error(0)
}

type MockSignatureService struct {
	mock.Mock
}

func (m *MockSignatureService) Create(ctx context.Context, actor model.Actor, documentUUID, signerEmail, signatureType string) (*model.SignatureRequest, error) {
	args := m.Called(ctx, actor, documentUUID, signerEmail, signatureType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureRequest), args.Error(1)
}

func (m *MockSignatureService) Get(ctx context.Context, requestUUID string) (*model.RequestWithDocument, error) {
	args := m.Called(ctx, requestUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RequestWithDocument), args.Error(1)
}

func (m *MockSignatureService) ListForDocument(ctx context.Context, actor model.Actor, documentUUID string) ([]model.SignatureRequest, error) {
	args := m.Called(ctx, actor, documentUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SignatureRequest), args.Error(1)
}

func (m *MockSignatureService) Sign(ctx context.Context, requestUUID string, input model.SignInput, ipAddress string) (*model.SignResult, error) {
	args := m.Called(ctx, requestUUID, input, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignResult), args.Error(1)
}

func (m *MockSignatureService) Resend(ctx context.Context, actor model.Actor, requestUUID string) (*model.SignatureRequest, error) {
	args := m.Called(ctx, actor, requestUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureRequest), args.Error(1)
}

func (m *MockSignatureService) Cancel(ctx context.Context, actor model.Actor, requestUUID string) (*model.SignatureRequest, error) {
	args := m.Called(ctx, actor, requestUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureRequest), args.Error(1)
}

type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Verify(ctx context.Context, documentUUID, ipAddress string) (*model.Verification, error) {
	args := m.Called(ctx, documentUUID, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Verification), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) ListLogs(ctx context.Context, actor model.Actor, filter model.AuditFilter, page, perPage int) (*model.AuditPage, error) {
	args := m.Called(ctx, actor, filter, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditPage), args.Error(1)
}

func (m *MockAuditService) GetLog(ctx context.Context, actor model.Actor, logUUID string) (*model.AuditLog, error) {
	args := m.Called(ctx, actor, logUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditLog), args.Error(1)
}

func (m *MockAuditService) Stats(ctx context.Context, actor model.Actor, days int) (*model.AuditStats, error) {
	args := m.Called(ctx, actor, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditStats), args.Error(1)
}

// Export : пишет в w первое значение из Return(content, err)
func (m *MockAuditService) Export(ctx context.Context, actor model.Actor, filter model.AuditFilter, w io.Writer) error {
	args := m.Called(ctx, actor, filter)
	if content := args.String(0); content != "" {
		_, _ = io.WriteString(w, content)
	}
	return args.Error(1)
}

func (m *MockAuditService) Timeline(ctx context.Context, actor model.Actor, documentUUID string) ([]model.TimelineEntry, error) {
	args := m.Called(ctx, actor, documentUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TimelineEntry), args.Error(1)
}

func (m *MockAuditService) IntegrityCheck(ctx context.Context, actor model.Actor, documentUUIDs []string) (*model.IntegrityReport, error) {
	args := m.Called(ctx, actor, documentUUIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IntegrityReport), args.Error(1)
}

type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) List(ctx context.Context, actor model.Actor) ([]model.Setting, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Setting), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, actor model.Actor, key, value string) (*model.Setting, error) {
	args := m.Called(ctx, actor, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Setting), args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
