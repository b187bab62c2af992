package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"signature-web-server/internal/metrics"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/storage"
	"signature-web-server/internal/util"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SignatureService struct {
	tx        ports.Transactor
	documents ports.DocumentRepository
	requests  ports.SignatureRepository
	users     ports.UserRepository
	storage   ports.ArtifactStorage
	signer    ports.Signer
	stamper   ports.TimeStamper
	quota     *QuotaPolicy
	queue     ports.NotificationQueue
	cache     ports.CacheRepository
	metrics   *metrics.Metrics
	audit     auditor
	baseURL   string
	now       func() time.Time
}

// SignatureDeps : зависимости SignatureService
type SignatureDeps struct {
	Tx        ports.Transactor
	Documents ports.DocumentRepository
	Requests  ports.SignatureRepository
	Users     ports.UserRepository
	Audit     ports.AuditRepository
	Storage   ports.ArtifactStorage
	Signer    ports.Signer
	Stamper   ports.TimeStamper
	Quota     *QuotaPolicy
	Queue     ports.NotificationQueue
	Cache     ports.CacheRepository
	Metrics   *metrics.Metrics
	BaseURL   string
}

func NewSignatureService(deps SignatureDeps) *SignatureService {
	return &SignatureService{
		tx:        deps.Tx,
		documents: deps.Documents,
		requests:  deps.Requests,
		users:     deps.Users,
		storage:   deps.Storage,
		signer:    deps.Signer,
		stamper:   deps.Stamper,
		quota:     deps.Quota,
		queue:     deps.Queue,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		audit:     auditor{repo: deps.Audit, tx: deps.Tx},
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create : новый запрос переводит документ в pending.
// Уведомление подписанту ставится в очередь после коммита
func (s *SignatureService) Create(ctx context.Context, actor model.Actor, documentUUID, signerEmail, signatureType string) (*model.SignatureRequest, error) {
	signerEmail = util.SanitizeEmail(signerEmail)
	if !util.ValidateEmail(signerEmail) {
		return nil, model.Errorf(model.ErrValidation, "некорректный email подписанта")
	}
	kind, err := model.ParseSignatureKind(signatureType)
	if err != nil {
		return nil, err
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	document, err := s.documents.GetByUUIDForUpdate(ctx, exec, documentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	if err := s.audit.authorize(ctx, actor, document, "create_signature_request"); err != nil {
		return nil, err
	}
	if document.IsSigned() {
		return nil, model.Errorf(model.ErrConflict, "документ уже подписан")
	}

	request := &model.SignatureRequest{
		UUID:          uuid.NewString(),
		DocumentUUID:  document.UUID,
		SignerEmail:   signerEmail,
		SignatureType: kind,
	}
	if err := s.requests.Create(ctx, exec, request); err != nil {
		return nil, err
	}
	if err := s.documents.UpdateStatus(ctx, exec, document.UUID, model.DocumentPending); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("request_id=%s signer=%s type=%s", request.UUID, signerEmail, kind)
	if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionSignatureRequestCreated, actor.UserUUID, document.UUID, details, actor.IP)); err != nil {
		return nil, err
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[SignatureService] ошибка коммита транзакции", err)
	}

	invalidateDocument(ctx, s.cache, document.UUID)
	s.metrics.IncRequestCreated(string(kind))
	s.notify(ctx, "signature_request", request, document)
	return request, nil
}

// Get : публичное чтение запроса по ссылке из уведомления
func (s *SignatureService) Get(ctx context.Context, requestUUID string) (*model.RequestWithDocument, error) {
	request, err := s.requests.GetByUUID(ctx, s.tx.Executor(), requestUUID)
	if err != nil {
		return nil, notFound(err, "запрос на подпись не найден")
	}
	document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), request.DocumentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	return &model.RequestWithDocument{Request: request, Document: document}, nil
}

func (s *SignatureService) ListForDocument(ctx context.Context, actor model.Actor, documentUUID string) ([]model.SignatureRequest, error) {
	document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), documentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	if err := s.audit.authorize(ctx, actor, document, "list_signature_requests"); err != nil {
		return nil, err
	}
	return s.requests.ListByDocument(ctx, s.tx.Executor(), document.UUID)
}

// Sign : подписание по публичной ссылке.
//  1. Проверки вне транзакции: статус запроса, квота подписанта, вид подписи.
//  2. Метка времени и подписанный файл создаются до транзакции.
//  3. В транзакции документ и запрос блокируются, запрос переходит в signed
//     только если его версия не изменилась. Иначе новый файл удаляется.
func (s *SignatureService) Sign(ctx context.Context, requestUUID string, input model.SignInput, ipAddress string) (*model.SignResult, error) {
	request, err := s.requests.GetByUUID(ctx, s.tx.Executor(), requestUUID)
	if err != nil {
		return nil, notFound(err, "запрос на подпись не найден")
	}

	fail := func(reason string, err error) error {
		details := fmt.Sprintf("request_id=%s reason=%s", request.UUID, reason)
		s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionSignatureAttemptFailed, "", request.DocumentUUID, details, ipAddress))
		s.metrics.IncSignatureFailed(reason)
		return err
	}

	if !request.IsPending() {
		return nil, fail("not_pending", model.Errorf(model.ErrConflict, "запрос на подпись уже обработан"))
	}

	document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), request.DocumentUUID)
	if err != nil {
		return nil, fail("document_missing", notFound(err, "документ не найден"))
	}

	signer, err := s.users.FindByEmail(ctx, s.tx.Executor(), request.SignerEmail)
	if errors.Is(err, model.ErrNotFound) {
		signer = nil
	} else if err != nil {
		return nil, err
	}

	limit := 0
	if signer != nil {
		var allowed bool
		allowed, limit, err = s.quota.CanSignDocument(ctx, s.tx.Executor(), signer)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fail("quota_exceeded", model.Errorf(model.ErrQuotaExceeded,
				"исчерпан лимит бесплатных подписей (%d)", limit))
		}
	}

	if request.SignatureType != model.SignatureElectronic {
		return nil, fail("not_implemented", model.Errorf(model.ErrNotImplemented,
			"подпись типа %s пока не поддерживается", request.SignatureType))
	}

	previousHash := document.CurrentHash()
	digest, err := hex.DecodeString(previousHash)
	if err != nil {
		return nil, fail("bad_hash", fmt.Errorf("[SignatureService] некорректный хэш документа %s: %w", document.UUID, err))
	}

	token, err := s.stamper.StampTime(ctx, digest)
	if err != nil {
		return nil, fail("timestamp", fmt.Errorf("[SignatureService] не удалось получить метку времени: %w", err))
	}

	signedAt := s.now()
	stored, err := s.writeSignedArtifact(ctx, document, model.SignatureManifest{
		RequestUUID:    request.UUID,
		DocumentUUID:   document.UUID,
		SignerEmail:    request.SignerEmail,
		SignatureType:  request.SignatureType,
		SignedAt:       signedAt,
		IPAddress:      ipAddress,
		Geolocation:    input.Geolocation,
		PreviousSha256: previousHash,
		Timestamp:      token,
	})
	if err != nil {
		return nil, fail("storage", err)
	}

	committed := false
	defer func() {
		if !committed {
			deleteArtifact(ctx, s.storage, stored.Key)
		}
	}()

	fields := model.SignedFields{
		SignedAt:       signedAt,
		IPAddress:      ipAddress,
		Geolocation:    input.Geolocation,
		BiometricData:  input.BiometricData,
		TimestampToken: &token.Token,
	}
	signed, err := s.commitSignature(ctx, request.UUID, document.UUID, previousHash, signer, limit, stored, fields)
	if err != nil {
		if errors.Is(err, model.ErrConflict) || errors.Is(err, model.ErrQuotaExceeded) {
			return nil, fail("state_changed", err)
		}
		return nil, err
	}
	committed = true

	invalidateDocument(ctx, s.cache, document.UUID)
	if document.SignedPath != nil && *document.SignedPath != stored.Key {
		deleteArtifact(ctx, s.storage, *document.SignedPath)
	}
	s.metrics.IncSignatureCompleted(string(request.SignatureType))
	zap.L().Info("документ подписан", zap.String("document", document.UUID), zap.String("request", request.UUID))

	return &model.SignResult{
		Request:         signed.request,
		Document:        signed.document,
		VerificationURL: fmt.Sprintf("%s/api/documents/%s/verify", s.baseURL, document.UUID),
	}, nil
}

func (s *SignatureService) writeSignedArtifact(ctx context.Context, document *model.Document, manifest model.SignatureManifest) (*model.StoredObject, error) {
	source, err := s.storage.Open(ctx, document.CurrentPath())
	if err != nil {
		return nil, fmt.Errorf("[SignatureService] не удалось открыть файл документа: %w", err)
	}
	defer source.Close()

	artifact, err := s.signer.Sign(ctx, source, manifest)
	if err != nil {
		return nil, err
	}

	key, err := storage.SignedKey(document.OriginalPath)
	if err != nil {
		return nil, err
	}
	stored, err := s.storage.Save(ctx, key, artifact)
	if err != nil {
		return nil, fmt.Errorf("[SignatureService] не удалось сохранить подписанный файл: %w", err)
	}
	return stored, nil
}

type signedState struct {
	request  *model.SignatureRequest
	document *model.Document
}

func (s *SignatureService) commitSignature(
	ctx context.Context,
	requestUUID, documentUUID, previousHash string,
	signer *model.User,
	limit int,
	stored *model.StoredObject,
	fields model.SignedFields,
) (*signedState, error) {
	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	// порядок блокировок как в Cancel: документ, затем запрос
	document, err := s.documents.GetByUUIDForUpdate(ctx, exec, documentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	request, err := s.requests.GetByUUIDForUpdate(ctx, exec, requestUUID)
	if err != nil {
		return nil, notFound(err, "запрос на подпись не найден")
	}
	if document.CurrentHash() != previousHash {
		return nil, model.Errorf(model.ErrConflict, "документ изменился во время подписания, повторите попытку")
	}
	if !request.IsPending() {
		return nil, model.Errorf(model.ErrConflict, "запрос на подпись уже обработан")
	}

	ok, err := s.requests.MarkSigned(ctx, exec, request.UUID, request.Version, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.Errorf(model.ErrConflict, "запрос на подпись уже обработан")
	}

	if err := s.documents.MarkSigned(ctx, exec, document.UUID, stored.Key, stored.Sha256); err != nil {
		return nil, err
	}

	userUUID := ""
	if signer != nil {
		userUUID = signer.UUID
		if !signer.IsAdmin {
			ok, err := s.users.IncrementSignedCount(ctx, exec, signer.UUID, limit)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, model.Errorf(model.ErrQuotaExceeded, "исчерпан лимит бесплатных подписей (%d)", limit)
			}
		}
	}

	details := fmt.Sprintf("request_id=%s signer=%s sha256=%s", request.UUID, request.SignerEmail, stored.Sha256)
	if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionDocumentSignedElectronic, userUUID, document.UUID, details, fields.IPAddress)); err != nil {
		return nil, err
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[SignatureService] ошибка коммита транзакции", err)
	}

	request.Status = model.RequestSigned
	request.Version++
	request.SignedAt = &fields.SignedAt
	request.IPAddress = &fields.IPAddress
	request.Geolocation = fields.Geolocation
	request.BiometricData = fields.BiometricData
	request.TimestampToken = fields.TimestampToken

	document.Status = model.DocumentSigned
	document.SignedPath = &stored.Key
	document.Sha256Hash = &stored.Sha256
	return &signedState{request: request, document: document}, nil
}

// Resend : обновляет время отправки и повторно ставит уведомление в очередь
func (s *SignatureService) Resend(ctx context.Context, actor model.Actor, requestUUID string) (*model.SignatureRequest, error) {
	request, document, err := s.authorizedRequest(ctx, actor, requestUUID, "resend_signature_request")
	if err != nil {
		return nil, err
	}
	if !request.IsPending() {
		return nil, model.Errorf(model.ErrConflict, "повторно отправить можно только ожидающий запрос")
	}

	sentAt := s.now()
	ok, err := s.requests.TouchSentAt(ctx, s.tx.Executor(), request.UUID, sentAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.Errorf(model.ErrConflict, "повторно отправить можно только ожидающий запрос")
	}
	request.SentAt = sentAt

	details := fmt.Sprintf("request_id=%s signer=%s", request.UUID, request.SignerEmail)
	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionSignatureRequestResent, actor.UserUUID, document.UUID, details, actor.IP))
	s.notify(ctx, "signature_request_reminder", request, document)
	return request, nil
}

// Cancel : запрос отклоняется. Если других ожидающих и подписанных запросов нет,
// документ возвращается в uploaded
func (s *SignatureService) Cancel(ctx context.Context, actor model.Actor, requestUUID string) (*model.SignatureRequest, error) {
	preview, err := s.requests.GetByUUID(ctx, s.tx.Executor(), requestUUID)
	if err != nil {
		return nil, notFound(err, "запрос на подпись не найден")
	}

	exec, rollback, commit, err := s.tx.BeginTX(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	document, err := s.documents.GetByUUIDForUpdate(ctx, exec, preview.DocumentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	if err := s.audit.authorize(ctx, actor, document, "cancel_signature_request"); err != nil {
		return nil, err
	}

	request, err := s.requests.GetByUUIDForUpdate(ctx, exec, requestUUID)
	if err != nil {
		return nil, notFound(err, "запрос на подпись не найден")
	}
	if !request.IsPending() {
		return nil, model.Errorf(model.ErrConflict, "отменить можно только ожидающий запрос")
	}
	ok, err := s.requests.MarkRejected(ctx, exec, request.UUID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.Errorf(model.ErrConflict, "отменить можно только ожидающий запрос")
	}
	request.Status = model.RequestRejected

	counts, err := s.requests.CountByStatus(ctx, exec, document.UUID)
	if err != nil {
		return nil, err
	}
	if counts[model.RequestPending] == 0 && counts[model.RequestSigned] == 0 {
		if err := s.documents.UpdateStatus(ctx, exec, document.UUID, model.DocumentUploaded); err != nil {
			return nil, err
		}
	}

	details := fmt.Sprintf("request_id=%s signer=%s", request.UUID, request.SignerEmail)
	if err := s.audit.record(ctx, exec, model.NewAuditLog(model.ActionSignatureRequestCancelled, actor.UserUUID, document.UUID, details, actor.IP)); err != nil {
		return nil, err
	}

	if err := commit(); err != nil {
		return nil, util.LogError("[SignatureService] ошибка коммита транзакции", err)
	}

	invalidateDocument(ctx, s.cache, document.UUID)
	return request, nil
}

func (s *SignatureService) authorizedRequest(ctx context.Context, actor model.Actor, requestUUID, operation string) (*model.SignatureRequest, *model.Document, error) {
	request, err := s.requests.GetByUUID(ctx, s.tx.Executor(), requestUUID)
	if err != nil {
		return nil, nil, notFound(err, "запрос на подпись не найден")
	}
	document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), request.DocumentUUID)
	if err != nil {
		return nil, nil, notFound(err, "документ не найден")
	}
	if err := s.audit.authorize(ctx, actor, document, operation); err != nil {
		return nil, nil, err
	}
	return request, document, nil
}

// notify : постановка в очередь не блокирует ответ, ошибка только логируется
func (s *SignatureService) notify(ctx context.Context, kind string, request *model.SignatureRequest, document *model.Document) {
	if s.queue == nil {
		return
	}
	notification := model.Notification{
		Kind:         kind,
		RequestUUID:  request.UUID,
		DocumentUUID: document.UUID,
		SignerEmail:  request.SignerEmail,
		Filename:     document.Filename,
		SignURL:      fmt.Sprintf("%s/sign/%s", s.baseURL, request.UUID),
		CreatedAt:    s.now(),
	}

	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.queue.Enqueue(notifyCtx, notification); err != nil {
			zap.L().Warn("не удалось поставить уведомление в очередь",
				zap.String("request", notification.RequestUUID), zap.Error(err))
		}
	}()
}
