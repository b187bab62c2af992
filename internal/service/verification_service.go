package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"signature-web-server/internal/metrics"
	"signature-web-server/internal/model"
	"signature-web-server/internal/ports"
	"signature-web-server/internal/signing"
	"time"

	"go.uber.org/zap"
)

// VerificationService : публичная проверка, не меняет состояние кроме записи в журнал
type VerificationService struct {
	tx        ports.Transactor
	documents ports.DocumentRepository
	requests  ports.SignatureRepository
	auditRepo ports.AuditRepository
	storage   ports.ArtifactStorage
	metrics   *metrics.Metrics
	audit     auditor
	now       func() time.Time
}

func NewVerificationService(
	tx ports.Transactor,
	documents ports.DocumentRepository,
	requests ports.SignatureRepository,
	auditRepository ports.AuditRepository,
	artifactStorage ports.ArtifactStorage,
	m *metrics.Metrics,
) *VerificationService {
	return &VerificationService{
		tx:        tx,
		documents: documents,
		requests:  requests,
		auditRepo: auditRepository,
		storage:   artifactStorage,
		metrics:   m,
		audit:     auditor{repo: auditRepository, tx: tx},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Verify : пересчитывает sha256 подписанного файла и сравнивает с сохранённым,
// перечисляет блоки подписи, найденные в файле.
// Отсутствующий или нечитаемый файл даёт FileIntegrity = false, а не ошибку
func (s *VerificationService) Verify(ctx context.Context, documentUUID, ipAddress string) (*model.Verification, error) {
	document, err := s.documents.GetByUUID(ctx, s.tx.Executor(), documentUUID)
	if err != nil {
		return nil, notFound(err, "документ не найден")
	}
	if !document.IsSigned() || document.SignedPath == nil || document.Sha256Hash == nil {
		return nil, model.Errorf(model.ErrConflict, "документ ещё не подписан")
	}

	verification := &model.Verification{Document: document}

	artifact, err := readArtifact(ctx, s.storage, *document.SignedPath)
	if err != nil {
		zap.L().Warn("не удалось прочитать подписанный файл", zap.String("document", document.UUID), zap.Error(err))
	} else {
		sum := sha256.Sum256(artifact)
		currentHash := hex.EncodeToString(sum[:])
		verification.CurrentHash = &currentHash
		verification.FileIntegrity = currentHash == *document.Sha256Hash

		if verification.Manifests, err = signing.ExtractManifests(artifact); err != nil {
			zap.L().Warn("повреждён блок подписи в файле", zap.String("document", document.UUID), zap.Error(err))
		}
	}

	if verification.Signatures, err = s.requests.ListSignedByDocument(ctx, s.tx.Executor(), document.UUID); err != nil {
		return nil, err
	}
	if verification.AuditTrail, err = s.auditRepo.ListByDocument(ctx, s.tx.Executor(), document.UUID); err != nil {
		return nil, err
	}
	verification.VerificationTimestamp = s.now()

	details := fmt.Sprintf("file_integrity=%t", verification.FileIntegrity)
	s.audit.recordBestEffort(ctx, model.NewAuditLog(model.ActionVerificationAccessed, "", document.UUID, details, ipAddress))
	s.metrics.IncVerification(verification.FileIntegrity)
	return verification, nil
}

// readArtifact : файл целиком, размер ограничен лимитом загрузки
func readArtifact(ctx context.Context, artifacts ports.ArtifactStorage, key string) ([]byte, error) {
	body, err := artifacts.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// hashArtifact : sha256 файла из хранилища потоком
func hashArtifact(ctx context.Context, artifacts ports.ArtifactStorage, key string) (string, error) {
	body, err := artifacts.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, body); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
