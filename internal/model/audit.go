package model

import (
	"sort"
	"time"
)

// AuditAction : закрытый список действий журнала аудита
type AuditAction string

const (
	ActionUserRegistered            AuditAction = "user_registered"
	ActionUserRegisteredOAuth       AuditAction = "user_registered_oauth"
	ActionUserLogin                 AuditAction = "user_login"
	ActionUserLoginOAuth            AuditAction = "user_login_oauth"
	ActionLoginFailed               AuditAction = "login_failed"
	ActionUserLogout                AuditAction = "user_logout"
	ActionTokenRefreshed            AuditAction = "token_refreshed"
	ActionProfileUpdated            AuditAction = "profile_updated"
	ActionPasswordResetRequested    AuditAction = "password_reset_requested"
	ActionDocumentUploaded          AuditAction = "document_uploaded"
	ActionDocumentAccessed          AuditAction = "document_accessed"
	ActionDocumentDownloaded        AuditAction = "document_downloaded"
	ActionDocumentPreviewed         AuditAction = "document_previewed"
	ActionDocumentDeleted           AuditAction = "document_deleted"
	ActionDocumentFieldsUpdated     AuditAction = "document_fields_updated"
	ActionSignatureRequestCreated   AuditAction = "signature_request_created"
	ActionSignatureRequestResent    AuditAction = "signature_request_resent"
	ActionSignatureRequestCancelled AuditAction = "signature_request_cancelled"
	ActionDocumentSignedElectronic  AuditAction = "document_signed_electronic"
	ActionSignatureAttemptFailed    AuditAction = "signature_attempt_failed"
	ActionVerificationAccessed      AuditAction = "document_verification_accessed"
	ActionIntegrityCheckPerformed   AuditAction = "integrity_check_performed"
	ActionAccessDenied              AuditAction = "access_denied"
)

type AuditCategory string

const (
	CategoryAuthentication AuditCategory = "authentication"
	CategoryProfile        AuditCategory = "profile"
	CategoryDocument       AuditCategory = "document"
	CategorySignature      AuditCategory = "signature"
	CategoryVerification   AuditCategory = "verification"
	CategorySecurity       AuditCategory = "security"
)

var auditCategories = map[AuditAction]AuditCategory{
	ActionUserRegistered:            CategoryAuthentication,
	ActionUserRegisteredOAuth:       CategoryAuthentication,
	ActionUserLogin:                 CategoryAuthentication,
	ActionUserLoginOAuth:            CategoryAuthentication,
	ActionLoginFailed:               CategorySecurity,
	ActionUserLogout:                CategoryAuthentication,
	ActionTokenRefreshed:            CategoryAuthentication,
	ActionProfileUpdated:            CategoryProfile,
	ActionPasswordResetRequested:    CategoryProfile,
	ActionDocumentUploaded:          CategoryDocument,
	ActionDocumentAccessed:          CategoryDocument,
	ActionDocumentDownloaded:        CategoryDocument,
	ActionDocumentPreviewed:         CategoryDocument,
	ActionDocumentDeleted:           CategoryDocument,
	ActionDocumentFieldsUpdated:     CategoryDocument,
	ActionSignatureRequestCreated:   CategorySignature,
	ActionSignatureRequestResent:    CategorySignature,
	ActionSignatureRequestCancelled: CategorySignature,
	ActionDocumentSignedElectronic:  CategorySignature,
	ActionSignatureAttemptFailed:    CategorySecurity,
	ActionVerificationAccessed:      CategoryVerification,
	ActionIntegrityCheckPerformed:   CategoryVerification,
	ActionAccessDenied:              CategorySecurity,
}

func (a AuditAction) Valid() bool {
	_, ok := auditCategories[a]
	return ok
}

func (a AuditAction) Category() AuditCategory {
	return auditCategories[a]
}

// AuditActions : все действия в стабильном порядке
func AuditActions() []AuditAction {
	actions := make([]AuditAction, 0, len(auditCategories))
	for action := range auditCategories {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// ParseAuditAction : пустая строка означает отсутствие фильтра
func ParseAuditAction(value string) (*AuditAction, error) {
	if value == "" {
		return nil, nil
	}
	action := AuditAction(value)
	if !action.Valid() {
		return nil, Errorf(ErrValidation, "неизвестный тип действия: %q", value)
	}
	return &action, nil
}

// AuditLog : неизменяемая запись журнала
type AuditLog struct {
	UUID         string      `db:"uuid" json:"id"`
	DocumentUUID *string     `db:"document_uuid" json:"document_id"`
	UserUUID     *string     `db:"user_uuid" json:"user_id"`
	ActionType   AuditAction `db:"action_type" json:"action_type"`
	Details      *string     `db:"details" json:"details"`
	IPAddress    *string     `db:"ip_address" json:"ip_address"`
	Timestamp    time.Time   `db:"timestamp" json:"timestamp"`
}

// NewAuditLog : пустые строки превращаются в NULL
func NewAuditLog(action AuditAction, userUUID, documentUUID, details, ip string) *AuditLog {
	return &AuditLog{
		ActionType:   action,
		UserUUID:     nullable(userUUID),
		DocumentUUID: nullable(documentUUID),
		Details:      nullable(details),
		IPAddress:    nullable(ip),
	}
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// AuditScope : пустой UserUUID при All = true означает весь журнал
type AuditScope struct {
	UserUUID string
	All      bool
}

func ScopeFor(actor Actor) AuditScope {
	return AuditScope{UserUUID: actor.UserUUID, All: actor.IsAdmin}
}

type AuditFilter struct {
	ActionType   *AuditAction
	DocumentUUID string
	Start        *time.Time
	End          *time.Time
}

type AuditPage struct {
	Logs    []AuditLog
	Total   int
	Page    int
	PerPage int
	Pages   int
}

// DailyActivity : количество записей за календарный день (UTC)
type DailyActivity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AuditStats struct {
	PeriodDays                 int             `json:"period_days"`
	TotalLogs                  int             `json:"total_logs"`
	TotalDocuments             int             `json:"total_documents"`
	DocumentsUploaded          int             `json:"documents_uploaded"`
	DocumentsSigned            int             `json:"documents_signed"`
	SignatureRequestsSent      int             `json:"signature_requests_sent"`
	SignatureRequestsCompleted int             `json:"signature_requests_completed"`
	ActionTypes                map[string]int  `json:"action_types"`
	DailyActivity              []DailyActivity `json:"daily_activity"`
}

type TimelineEntryType string

const (
	TimelineAuditLog           TimelineEntryType = "audit_log"
	TimelineSignatureRequest   TimelineEntryType = "signature_request"
	TimelineSignatureCompleted TimelineEntryType = "signature_completed"
)

type TimelineEntry struct {
	Type      TimelineEntryType `json:"type"`
	Timestamp *time.Time        `json:"timestamp"`
	Action    string            `json:"action"`
	Details   string            `json:"details,omitempty"`
	UserUUID  *string           `json:"user_id,omitempty"`
	IPAddress *string           `json:"ip_address,omitempty"`
	Data      any               `json:"data,omitempty"`
}

type IntegrityStatus string

const (
	IntegrityValid   IntegrityStatus = "valid"
	IntegrityInvalid IntegrityStatus = "invalid"
	IntegrityMissing IntegrityStatus = "missing"
	IntegrityError   IntegrityStatus = "error"
)

type IntegrityResult struct {
	DocumentUUID   string          `json:"document_id"`
	Filename       string          `json:"filename"`
	Status         IntegrityStatus `json:"status"`
	StoredHash     *string         `json:"stored_hash"`
	CurrentHash    *string         `json:"current_hash"`
	IntegrityValid bool            `json:"integrity_valid"`
	FileExists     bool            `json:"file_exists"`
	Error          string          `json:"error,omitempty"`
}

type IntegritySummary struct {
	TotalChecked int `json:"total_checked"`
	Valid        int `json:"valid"`
	Invalid      int `json:"invalid"`
	MissingFiles int `json:"missing_files"`
}

type IntegrityReport struct {
	Results []IntegrityResult `json:"results"`
	Summary IntegritySummary  `json:"summary"`
}

// Verification : публичный результат проверки подписанного документа
type Verification struct {
	Document              *Document
	Signatures            []SignatureRequest
	AuditTrail            []AuditLog
	FileIntegrity         bool
	CurrentHash           *string
	Manifests             []SignatureManifest
	VerificationTimestamp time.Time
}
