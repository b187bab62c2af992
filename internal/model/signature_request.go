package model

import (
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestSigned   RequestStatus = "signed"
	RequestRejected RequestStatus = "rejected"
)

// SignatureKind : закрытый набор видов подписи.
// SignatureDigital принимается как корректное значение, но подписание им не реализовано
type SignatureKind string

const (
	SignatureElectronic SignatureKind = "electronic"
	SignatureDigital    SignatureKind = "digital"
)

// ParseSignatureKind : пустое значение означает electronic
func ParseSignatureKind(value string) (SignatureKind, error) {
	switch SignatureKind(strings.ToLower(strings.TrimSpace(value))) {
	case "", SignatureElectronic:
		return SignatureElectronic, nil
	case SignatureDigital:
		return SignatureDigital, nil
	}
	return "", Errorf(ErrValidation, "неизвестный тип подписи: %q", value)
}

// SignatureRequest : запрос на подпись документа одним подписантом.
// SignedAt и IPAddress заполнены тогда и только тогда, когда Status = signed
type SignatureRequest struct {
	UUID           string        `db:"uuid" json:"id"`
	DocumentUUID   string        `db:"document_uuid" json:"document_id"`
	SignerEmail    string        `db:"signer_email" json:"signer_email"`
	Status         RequestStatus `db:"status" json:"status"`
	SignatureType  SignatureKind `db:"signature_type" json:"signature_type"`
	SentAt         time.Time     `db:"sent_at" json:"sent_at"`
	SignedAt       *time.Time    `db:"signed_at" json:"signed_at,omitempty"`
	IPAddress      *string       `db:"ip_address" json:"ip_address,omitempty"`
	Geolocation    *string       `db:"geolocation" json:"geolocation,omitempty"`
	BiometricData  *string       `db:"biometric_data_placeholder" json:"biometric_data,omitempty"`
	TimestampToken *string       `db:"timestamp_token" json:"timestamp_token,omitempty"`
	Version        int           `db:"version" json:"-"`
}

func (r *SignatureRequest) IsPending() bool {
	return r.Status == RequestPending
}

// SignInput : данные, которые подписант передаёт при подписании
type SignInput struct {
	Geolocation   *string
	BiometricData *string
}

// SignedFields : значения, которые записываются в запрос при переходе pending -> signed
type SignedFields struct {
	SignedAt       time.Time
	IPAddress      string
	Geolocation    *string
	BiometricData  *string
	TimestampToken *string
}

// SignResult : подписанный запрос и ссылка на проверку документа
type SignResult struct {
	Request         *SignatureRequest
	Document        *Document
	VerificationURL string
}

// RequestWithDocument : запрос и краткие данные документа (публичное чтение)
type RequestWithDocument struct {
	Request  *SignatureRequest
	Document *Document
}

// Notification : задание на уведомление подписанта, доставляется внешним воркером
type Notification struct {
	Kind         string    `json:"kind"`
	RequestUUID  string    `json:"request_id"`
	DocumentUUID string    `json:"document_id"`
	SignerEmail  string    `json:"signer_email"`
	Filename     string    `json:"filename"`
	SignURL      string    `json:"sign_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// TimestampToken : метка времени, выданная для дайджеста подписываемого файла
type TimestampToken struct {
	Token     string    `json:"token"`
	Authority string    `json:"authority"`
	IssuedAt  time.Time `json:"issued_at"`
}

// SignatureManifest : сведения о подписи, которые дописываются в подписанный файл
type SignatureManifest struct {
	RequestUUID    string          `json:"request_id"`
	DocumentUUID   string          `json:"document_id"`
	SignerEmail    string          `json:"signer_email"`
	SignatureType  SignatureKind   `json:"signature_type"`
	SignedAt       time.Time       `json:"signed_at"`
	IPAddress      string          `json:"ip_address"`
	Geolocation    *string         `json:"geolocation,omitempty"`
	PreviousSha256 string          `json:"previous_sha256"`
	Timestamp      *TimestampToken `json:"timestamp,omitempty"`
}
