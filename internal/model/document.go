package model

import (
	"io"
	"time"
)

type DocumentStatus string

const (
	DocumentUploaded DocumentStatus = "uploaded"
	DocumentPending  DocumentStatus = "pending"
	DocumentSigned   DocumentStatus = "signed"
	DocumentRejected DocumentStatus = "rejected"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentUploaded, DocumentPending, DocumentSigned, DocumentRejected:
		return true
	}
	return false
}

// Document : метаданные загруженного файла.
// SignedPath и Sha256Hash заполняются только вместе, при подписании
type Document struct {
	UUID           string         `db:"uuid" json:"uuid"`
	OwnerUUID      string         `db:"owner_uuid" json:"owner_uuid"`
	Filename       string         `db:"filename" json:"filename"`
	MimeType       string         `db:"mime_type" json:"mime_type"`
	SizeBytes      int64          `db:"size_bytes" json:"size_bytes"`
	OriginalPath   string         `db:"original_path" json:"original_path"`
	OriginalSha256 string         `db:"original_sha256" json:"original_sha256"`
	SignedPath     *string        `db:"signed_path" json:"signed_path,omitempty"`
	Sha256Hash     *string        `db:"sha256_hash" json:"sha256_hash,omitempty"`
	Status         DocumentStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

func (d *Document) IsSigned() bool {
	return d.Status == DocumentSigned
}

// CurrentPath : подписанный файл, если он есть, иначе оригинал
func (d *Document) CurrentPath() string {
	if d.SignedPath != nil && *d.SignedPath != "" {
		return *d.SignedPath
	}
	return d.OriginalPath
}

// CurrentHash : хэш файла, возвращаемого CurrentPath
func (d *Document) CurrentHash() string {
	if d.Sha256Hash != nil && *d.Sha256Hash != "" {
		return *d.Sha256Hash
	}
	return d.OriginalSha256
}

type FieldType string

const (
	FieldSignature FieldType = "signature"
	FieldDate      FieldType = "date"
	FieldFullName  FieldType = "full_name"
	FieldCheckbox  FieldType = "checkbox"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldSignature, FieldDate, FieldFullName, FieldCheckbox:
		return true
	}
	return false
}

type DocumentField struct {
	UUID         string    `db:"uuid" json:"id"`
	DocumentUUID string    `db:"document_uuid" json:"document_id"`
	FieldType    FieldType `db:"field_type" json:"field_type"`
	PageNumber   int       `db:"page_number" json:"page_number"`
	X            float64   `db:"x_coord" json:"x_coord"`
	Y            float64   `db:"y_coord" json:"y_coord"`
	Width        *float64  `db:"width" json:"width,omitempty"`
	Height       *float64  `db:"height" json:"height,omitempty"`
}

// Validate : тип из закрытого списка, страница с 1, координаты и размеры неотрицательные
func (f *DocumentField) Validate() error {
	if !f.FieldType.Valid() {
		return Errorf(ErrValidation, "неизвестный тип поля: %q", f.FieldType)
	}
	if f.PageNumber < 1 {
		return Errorf(ErrValidation, "номер страницы должен начинаться с 1")
	}
	if f.X < 0 || f.Y < 0 {
		return Errorf(ErrValidation, "координаты поля не могут быть отрицательными")
	}
	if (f.Width != nil && *f.Width < 0) || (f.Height != nil && *f.Height < 0) {
		return Errorf(ErrValidation, "размеры поля не могут быть отрицательными")
	}
	return nil
}

// DocumentListFilter : фильтр списка документов
type DocumentListFilter struct {
	OwnerUUID string
	All       bool
	Status    DocumentStatus
	Search    string
	Page      int
	PerPage   int
}

type DocumentPage struct {
	Documents []Document
	Total     int
	Page      int
	PerPage   int
	Pages     int
}

// DocumentDetails : документ вместе с разметкой полей
type DocumentDetails struct {
	Document *Document
	Fields   []DocumentField
}

// StoredObject : результат записи файла в хранилище
type StoredObject struct {
	Key       string
	SizeBytes int64
	Sha256    string
}

// UploadInput : входные данные загрузки
type UploadInput struct {
	Filename string
	Content  io.Reader
}

// Artifact : открытый файл документа для выдачи клиенту
type Artifact struct {
	Filename string
	MimeType string
	Body     io.ReadCloser
}

func Pages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
