package requestresponse

import (
	"signature-web-server/internal/model"
)

// DocumentResponse : описывает документ для JSON-ответа, ключи хранилища наружу не отдаются
type DocumentResponse struct {
	UUID       string  `json:"id" example:"9f1c2d3e-4b5a-6789-0abc-def123456789"`
	OwnerUUID  string  `json:"user_id" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	Filename   string  `json:"filename" example:"contract.pdf"`
	MimeType   string  `json:"mime_type" example:"application/pdf"`
	SizeBytes  int64   `json:"size_bytes" example:"48213"`
	Status     string  `json:"status" example:"uploaded"`
	Sha256Hash *string `json:"sha256_hash" example:"9b74c9897bac770ffc029102a200c5de"`
	CreatedAt  string  `json:"created_at" example:"2025-08-23T12:34:56Z"`
	UpdatedAt  string  `json:"updated_at" example:"2025-08-23T12:34:56Z"`
}

// DocumentResponseFromModel : конвертирует model.Document в DocumentResponse
func DocumentResponseFromModel(doc *model.Document) DocumentResponse {
	return DocumentResponse{
		UUID:       doc.UUID,
		OwnerUUID:  doc.OwnerUUID,
		Filename:   doc.Filename,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		Status:     string(doc.Status),
		Sha256Hash: doc.Sha256Hash,
		CreatedAt:  formatTime(doc.CreatedAt),
		UpdatedAt:  formatTime(doc.UpdatedAt),
	}
}

// DocumentSummary : краткие данные документа для публичных ответов
type DocumentSummary struct {
	UUID     string `json:"id" example:"9f1c2d3e-4b5a-6789-0abc-def123456789"`
	Filename string `json:"filename" example:"contract.pdf"`
	Status   string `json:"status" example:"pending"`
}

func DocumentSummaryFromModel(doc *model.Document) DocumentSummary {
	return DocumentSummary{UUID: doc.UUID, Filename: doc.Filename, Status: string(doc.Status)}
}

// UploadDocumentResponse : ответ на загрузку документа
type UploadDocumentResponse struct {
	Message string           `json:"message" example:"документ загружен"`
	Data    DocumentResponse `json:"data"`
}

// GetDocumentResponse : документ вместе с разметкой полей
type GetDocumentResponse struct {
	Data struct {
		Document DocumentResponse `json:"document"`
		Fields   []FieldResponse  `json:"fields"`
	} `json:"data"`
}

// ListDocumentsResponse : ответ API со списком документов
type ListDocumentsResponse struct {
	Data struct {
		Documents []DocumentResponse `json:"documents"`
	} `json:"data"`
	Total   int `json:"total" example:"42"`
	Page    int `json:"page" example:"1"`
	PerPage int `json:"per_page" example:"20"`
	Pages   int `json:"pages" example:"3"`
}

func ListDocumentsResponseFromModel(page *model.DocumentPage) ListDocumentsResponse {
	resp := ListDocumentsResponse{Total: page.Total, Page: page.Page, PerPage: page.PerPage, Pages: page.Pages}
	resp.Data.Documents = make([]DocumentResponse, 0, len(page.Documents))
	for i := range page.Documents {
		resp.Data.Documents = append(resp.Data.Documents, DocumentResponseFromModel(&page.Documents[i]))
	}
	return resp
}

// FieldRequest : поле разметки во входящем запросе
type FieldRequest struct {
	FieldType  string   `json:"field_type" example:"signature"`
	PageNumber int      `json:"page_number" example:"1"`
	X          float64  `json:"x_coord" example:"120.5"`
	Y          float64  `json:"y_coord" example:"640"`
	Width      *float64 `json:"width,omitempty" example:"180"`
	Height     *float64 `json:"height,omitempty" example:"40"`
}

func (f FieldRequest) ToModel() model.DocumentField {
	return model.DocumentField{
		FieldType:  model.FieldType(f.FieldType),
		PageNumber: f.PageNumber,
		X:          f.X,
		Y:          f.Y,
		Width:      f.Width,
		Height:     f.Height,
	}
}

// ReplaceFieldsRequest : новая разметка целиком заменяет старую
type ReplaceFieldsRequest struct {
	Fields []FieldRequest `json:"fields"`
}

type FieldResponse struct {
	UUID       string   `json:"id" example:"0b7f8c3a-1d2e-4f5a-9b8c-7d6e5f4a3b2c"`
	FieldType  string   `json:"field_type" example:"signature"`
	PageNumber int      `json:"page_number" example:"1"`
	X          float64  `json:"x_coord" example:"120.5"`
	Y          float64  `json:"y_coord" example:"640"`
	Width      *float64 `json:"width,omitempty" example:"180"`
	Height     *float64 `json:"height,omitempty" example:"40"`
}

func FieldResponsesFromModel(fields []model.DocumentField) []FieldResponse {
	resp := make([]FieldResponse, 0, len(fields))
	for _, field := range fields {
		resp = append(resp, FieldResponse{
			UUID:       field.UUID,
			FieldType:  string(field.FieldType),
			PageNumber: field.PageNumber,
			X:          field.X,
			Y:          field.Y,
			Width:      field.Width,
			Height:     field.Height,
		})
	}
	return resp
}

// FieldsResponse : ответ на замену разметки
type FieldsResponse struct {
	Data struct {
		Fields []FieldResponse `json:"fields"`
	} `json:"data"`
}

// VerificationResponse : публичный результат проверки документа
type VerificationResponse struct {
	Document struct {
		UUID       string  `json:"id" example:"9f1c2d3e-4b5a-6789-0abc-def123456789"`
		Filename   string  `json:"filename" example:"contract.pdf"`
		Status     string  `json:"status" example:"signed"`
		Sha256Hash *string `json:"sha256_hash" example:"9b74c9897bac770ffc029102a200c5de"`
		CreatedAt  string  `json:"created_at" example:"2025-08-23T12:34:56Z"`
		UpdatedAt  string  `json:"updated_at" example:"2025-08-23T12:40:00Z"`
	} `json:"document"`
	Signatures            []SignatureRequestResponse `json:"signatures"`
	AuditTrail            []AuditLogResponse         `json:"audit_trail"`
	FileIntegrity         bool                       `json:"file_integrity" example:"true"`
	CurrentHash           *string                    `json:"current_hash" example:"9b74c9897bac770ffc029102a200c5de"`
	SignatureManifests    []model.SignatureManifest  `json:"signature_manifests"`
	VerificationTimestamp string                     `json:"verification_timestamp" example:"2025-08-23T12:45:00Z"`
}

func VerificationResponseFromModel(v *model.Verification) VerificationResponse {
	var resp VerificationResponse
	resp.Document.UUID = v.Document.UUID
	resp.Document.Filename = v.Document.Filename
	resp.Document.Status = string(v.Document.Status)
	resp.Document.Sha256Hash = v.Document.Sha256Hash
	resp.Document.CreatedAt = formatTime(v.Document.CreatedAt)
	resp.Document.UpdatedAt = formatTime(v.Document.UpdatedAt)
	resp.Signatures = SignatureRequestResponsesFromModel(v.Signatures)
	resp.AuditTrail = AuditLogResponsesFromModel(v.AuditTrail)
	resp.FileIntegrity = v.FileIntegrity
	resp.CurrentHash = v.CurrentHash
	resp.SignatureManifests = v.Manifests
	if resp.SignatureManifests == nil {
		resp.SignatureManifests = []model.SignatureManifest{}
	}
	resp.VerificationTimestamp = formatTime(v.VerificationTimestamp)
	return resp
}

// SuccessResponse : стандартный ответ успешного выполнения операции
type SuccessResponse struct {
	Message string `json:"message" example:"Операция выполнена успешно"`
}
