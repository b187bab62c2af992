package service_test

import (
	"context"
	"io"
	"signature-web-server/config"
	"signature-web-server/internal/metrics"
	"signature-web-server/internal/model"
	"signature-web-server/internal/security"
	srv "signature-web-server/internal/service"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
)

// stubTx : транзакции без базы, считает коммиты
type stubTx struct {
	mu      sync.Mutex
	exec    sqlx.ExtContext
	commits int
}

func newStubTx() *stubTx {
	return &stubTx{exec: &sqlx.DB{}}
}

func (t *stubTx) Executor() sqlx.ExtContext {
	return t.exec
}

func (t *stubTx) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	return t.exec, func() error { return nil }, func() error {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.commits++
		return nil
	}, nil
}

func (t *stubTx) BeginReadOnlyTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	return t.BeginTX(ctx)
}

func (t *stubTx) Commits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commits
}

func newMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func newQuota(settings *MockSettingsRepository, limit int) *srv.QuotaPolicy {
	return srv.NewQuotaPolicy(settings, &config.QuotaConfig{FreeDocumentsLimit: limit})
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, exec sqlx.ExtContext, user *model.User) (*model.User, error) {
	args := m.Called(ctx, exec, user)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByUUID(ctx context.Context, exec sqlx.ExtContext, uuid string) (*model.User, error) {
	args := m.Called(ctx, exec, uuid)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, exec sqlx.ExtContext, email string) (*model.User, error) {
	args := m.Called(ctx, exec, email)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByOAuthID(ctx context.Context, exec sqlx.ExtContext, oauthID string) (*model.User, error) {
	args := m.Called(ctx, exec, oauthID)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, exec sqlx.ExtContext, uuid, email string) error {
	return m.Called(ctx, exec, uuid, email).Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, exec sqlx.ExtContext, uuid, newPasswordHash string) error {
	return m.Called(ctx, exec, uuid, newPasswordHash).Error(0)
}

func (m *MockUserRepository) LinkOAuth(ctx context.Context, exec sqlx.ExtContext, uuid, oauthID string) error {
	return m.Called(ctx, exec, uuid, oauthID).Error(0)
}

func (m *MockUserRepository) IncrementSignedCount(ctx context.Context, exec sqlx.ExtContext, uuid string, limit int) (bool, error) {
	args := m.Called(ctx, exec, uuid, limit)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context, exec sqlx.ExtContext, cursor string, limit int) ([]*model.User, string, error) {
	args := m.Called(ctx, exec, cursor, limit)
	if u := args.Get(0); u != nil {
		return u.([]*model.User), args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateAccessRefreshTokens(userUUID string, isAdmin bool) (*model.TokensPair, *model.RefreshToken, error) {
	args := m.Called(userUUID, isAdmin)
	var pair *model.TokensPair
	var token *model.RefreshToken
	if v := args.Get(0); v != nil {
		pair = v.(*model.TokensPair)
	}
	if v := args.Get(1); v != nil {
		token = v.(*model.RefreshToken)
	}
	return pair, token, args.Error(2)
}

func (m *MockJWTService) ValidateJWT(tokenString string) (*security.Claims, error) {
	args := m.Called(tokenString)
	if c := args.Get(0); c != nil {
		return c.(*security.Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockJWTRepo struct {
	mock.Mock
}

func (m *MockJWTRepo) FindByUUID(ctx context.Context, uuid string) (*model.RefreshToken, error) {
	args := m.Called(ctx, uuid)
	if t := args.Get(0); t != nil {
		return t.(*model.RefreshToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockJWTRepo) MarkRefreshTokenUsedByUUID(ctx context.Context, uuid string) error {
	return m.Called(ctx, uuid).Error(0)
}

func (m *MockJWTRepo) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, exec sqlx.ExtContext, entry *model.AuditLog) error {
	return m.Called(ctx, exec, entry).Error(0)
}

func (m *MockAuditRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, logUUID string) (*model.AuditLog, error) {
	args := m.Called(ctx, exec, logUUID)
	if l := args.Get(0); l != nil {
		return l.(*model.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) List(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, filter model.AuditFilter, limit, offset int) ([]model.AuditLog, int, error) {
	args := m.Called(ctx, exec, scope, filter, limit, offset)
	if l := args.Get(0); l != nil {
		return l.([]model.AuditLog), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *MockAuditRepository) ListAll(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, filter model.AuditFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, exec, scope, filter)
	if l := args.Get(0); l != nil {
		return l.([]model.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.AuditLog, error) {
	args := m.Called(ctx, exec, documentUUID)
	if l := args.Get(0); l != nil {
		return l.([]model.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) ListByScopeSince(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, since time.Time) ([]model.AuditLog, error) {
	args := m.Called(ctx, exec, scope, since)
	if l := args.Get(0); l != nil {
		return l.([]model.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// auditAction : матчер записи журнала по типу действия
func auditAction(action model.AuditAction) interface{} {
	return mock.MatchedBy(func(entry *model.AuditLog) bool {
		return entry.ActionType == action
	})
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error {
	return m.Called(ctx, exec, document).Error(0)
}

func (m *MockDocumentRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error) {
	args := m.Called(ctx, exec, documentUUID)
	if d := args.Get(0); d != nil {
		return d.(*model.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) GetByUUIDForUpdate(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error) {
	args := m.Called(ctx, exec, documentUUID)
	if d := args.Get(0); d != nil {
		return d.(*model.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, exec sqlx.ExtContext, filter model.DocumentListFilter) ([]model.Document, int, error) {
	args := m.Called(ctx, exec, filter)
	if d := args.Get(0); d != nil {
		return d.([]model.Document), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *MockDocumentRepository) ListByScope(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope) ([]model.Document, error) {
	args := m.Called(ctx, exec, scope)
	if d := args.Get(0); d != nil {
		return d.([]model.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) ListSignedByScope(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, documentUUIDs []string) ([]model.Document, error) {
	args := m.Called(ctx, exec, scope, documentUUIDs)
	if d := args.Get(0); d != nil {
		return d.([]model.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, documentUUID string, status model.DocumentStatus) error {
	return m.Called(ctx, exec, documentUUID, status).Error(0)
}

func (m *MockDocumentRepository) MarkSigned(ctx context.Context, exec sqlx.ExtContext, documentUUID, signedPath, sha256Hash string) error {
	return m.Called(ctx, exec, documentUUID, signedPath, sha256Hash).Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, documentUUID string) error {
	return m.Called(ctx, exec, documentUUID).Error(0)
}

type MockFieldRepository struct {
	mock.Mock
}

func (m *MockFieldRepository) ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.DocumentField, error) {
	args := m.Called(ctx, exec, documentUUID)
	if f := args.Get(0); f != nil {
		return f.([]model.DocumentField), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFieldRepository) ReplaceAll(ctx context.Context, exec sqlx.ExtContext, documentUUID string, fields []model.DocumentField) error {
	return m.Called(ctx, exec, documentUUID, fields).Error(0)
}

type MockSignatureRepository struct {
	mock.Mock
}

func (m *MockSignatureRepository) Create(ctx context.Context, exec sqlx.ExtContext, request *model.SignatureRequest) error {
	return m.Called(ctx, exec, request).Error(0)
}

func (m *MockSignatureRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (*model.SignatureRequest, error) {
	args := m.Called(ctx, exec, requestUUID)
	if r := args.Get(0); r != nil {
		return r.(*model.SignatureRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSignatureRepository) GetByUUIDForUpdate(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (*model.SignatureRequest, error) {
	args := m.Called(ctx, exec, requestUUID)
	if r := args.Get(0); r != nil {
		return r.(*model.SignatureRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSignatureRepository) ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.SignatureRequest, error) {
	args := m.Called(ctx, exec, documentUUID)
	if r := args.Get(0); r != nil {
		return r.([]model.SignatureRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSignatureRepository) ListSignedByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.SignatureRequest, error) {
	args := m.Called(ctx, exec, documentUUID)
	if r := args.Get(0); r != nil {
		return r.([]model.SignatureRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSignatureRepository) ListByScopeSince(ctx context.Context, exec sqlx.ExtContext, scope model.AuditScope, since time.Time) ([]model.SignatureRequest, error) {
	args := m.Called(ctx, exec, scope, since)
	if r := args.Get(0); r != nil {
		return r.([]model.SignatureRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSignatureRepository) MarkSigned(ctx context.Context, exec sqlx.ExtContext, requestUUID string, version int, fields model.SignedFields) (bool, error) {
	args := m.Called(ctx, exec, requestUUID, version, fields)
	return args.Bool(0), args.Error(1)
}

func (m *MockSignatureRepository) MarkRejected(ctx context.Context, exec sqlx.ExtContext, requestUUID string) (bool, error) {
	args := m.Called(ctx, exec, requestUUID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSignatureRepository) TouchSentAt(ctx context.Context, exec sqlx.ExtContext, requestUUID string, sentAt time.Time) (bool, error) {
	args := m.Called(ctx, exec, requestUUID, sentAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockSignatureRepository) CountByStatus(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (map[model.RequestStatus]int, error) {
	args := m.Called(ctx, exec, documentUUID)
	if c := args.Get(0); c != nil {
		return c.(map[model.RequestStatus]int), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, exec sqlx.ExtContext, key string) (*model.Setting, error) {
	args := m.Called(ctx, exec, key)
	if s := args.Get(0); s != nil {
		return s.(*model.Setting), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]model.Setting, error) {
	args := m.Called(ctx, exec)
	if s := args.Get(0); s != nil {
		return s.([]model.Setting), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, key, value string) (*model.Setting, error) {
	args := m.Called(ctx, exec, key, value)
	if s := args.Get(0); s != nil {
		return s.(*model.Setting), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetDocument(ctx context.Context, document *model.Document) error {
	return m.Called(ctx, document).Error(0)
}

func (m *MockCacheRepository) GetDocument(ctx context.Context, uuid string) (*model.Document, error) {
	args := m.Called(ctx, uuid)
	if d := args.Get(0); d != nil {
		return d.(*model.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheRepository) DeleteDocument(ctx context.Context, uuid string) error {
	return m.Called(ctx, uuid).Error(0)
}

type MockOAuthVerifier struct {
	mock.Mock
}

func (m *MockOAuthVerifier) Verify(ctx context.Context, accessToken string) (*model.OAuthProfile, error) {
	args := m.Called(ctx, accessToken)
	if p := args.Get(0); p != nil {
		return p.(*model.OAuthProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(ctx context.Context, key string, content io.Reader) (*model.StoredObject, error) {
	args := m.Called(ctx, key, content)
	if o := args.Get(0); o != nil {
		return o.(*model.StoredObject), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if r := args.Get(0); r != nil {
		return r.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// chanQueue : очередь уведомлений в памяти, Enqueue вызывается из горутины
type chanQueue struct {
	ch chan model.Notification
}

func newChanQueue() *chanQueue {
	return &chanQueue{ch: make(chan model.Notification, 8)}
}

func (q *chanQueue) Enqueue(ctx context.Context, notification model.Notification) error {
	q.ch <- notification
	return nil
}

// chanNotifier : фиксирует уведомления о новом IP
type chanNotifier struct {
	ch chan [3]string
}

func (n *chanNotifier) NotifyNewIP(ctx context.Context, userUUID, newIP, oldIP string) error {
	n.ch <- [3]string{userUUID, newIP, oldIP}
	return nil
}
