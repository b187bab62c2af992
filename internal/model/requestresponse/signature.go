package requestresponse

import "signature-web-server/internal/model"

// CreateSignatureRequest : тело запроса на создание запроса подписи
type CreateSignatureRequest struct {
	SignerEmail   string `json:"signer_email" example:"signer@example.com"`
	SignatureType string `json:"signature_type" example:"electronic"`
}

// SignRequest : данные подписанта, оба поля необязательны
type SignRequest struct {
	Geolocation   *string `json:"geolocation,omitempty" example:"-23.5505,-46.6333"`
	BiometricData *string `json:"biometric_data,omitempty"`
}

// SignatureRequestResponse : запрос подписи для JSON-ответа
type SignatureRequestResponse struct {
	UUID           string  `json:"id" example:"5d4c3b2a-1f0e-4d9c-8b7a-6f5e4d3c2b1a"`
	DocumentUUID   string  `json:"document_id" example:"9f1c2d3e-4b5a-6789-0abc-def123456789"`
	SignerEmail    string  `json:"signer_email" example:"signer@example.com"`
	Status         string  `json:"status" example:"pending"`
	SignatureType  string  `json:"signature_type" example:"electronic"`
	SentAt         string  `json:"sent_at" example:"2025-08-23T12:34:56Z"`
	SignedAt       *string `json:"signed_at" example:"2025-08-23T12:40:00Z"`
	IPAddress      *string `json:"ip_address" example:"203.0.113.9"`
	Geolocation    *string `json:"geolocation" example:"-23.5505,-46.6333"`
	TimestampToken *string `json:"timestamp_token,omitempty"`
}

func SignatureRequestResponseFromModel(req *model.SignatureRequest) SignatureRequestResponse {
	return SignatureRequestResponse{
		UUID:           req.UUID,
		DocumentUUID:   req.DocumentUUID,
		SignerEmail:    req.SignerEmail,
		Status:         string(req.Status),
		SignatureType:  string(req.SignatureType),
		SentAt:         formatTime(req.SentAt),
		SignedAt:       formatTimePtr(req.SignedAt),
		IPAddress:      req.IPAddress,
		Geolocation:    req.Geolocation,
		TimestampToken: req.TimestampToken,
	}
}

func SignatureRequestResponsesFromModel(reqs []model.SignatureRequest) []SignatureRequestResponse {
	resp := make([]SignatureRequestResponse, 0, len(reqs))
	for i := range reqs {
		resp = append(resp, SignatureRequestResponseFromModel(&reqs[i]))
	}
	return resp
}

// SignatureRequestEnvelope : ответ с одним запросом подписи
type SignatureRequestEnvelope struct {
	Message          string                   `json:"message,omitempty" example:"запрос подписи создан"`
	SignatureRequest SignatureRequestResponse `json:"signature_request"`
}

// PublicSignatureRequestResponse : запрос и краткие данные документа, без авторизации
type PublicSignatureRequestResponse struct {
	SignatureRequest SignatureRequestResponse `json:"signature_request"`
	Document         DocumentSummary          `json:"document"`
}

func PublicSignatureRequestResponseFromModel(item *model.RequestWithDocument) PublicSignatureRequestResponse {
	return PublicSignatureRequestResponse{
		SignatureRequest: SignatureRequestResponseFromModel(item.Request),
		Document:         DocumentSummaryFromModel(item.Document),
	}
}

// ListSignatureRequestsResponse : запросы подписи документа
type ListSignatureRequestsResponse struct {
	SignatureRequests []SignatureRequestResponse `json:"signature_requests"`
}

// SignResponse : подписанный запрос и ссылка на проверку
type SignResponse struct {
	Message          string                   `json:"message" example:"документ подписан"`
	SignatureRequest SignatureRequestResponse `json:"signature_request"`
	Document         DocumentSummary          `json:"document"`
	VerificationURL  string                   `json:"verification_url" example:"http://localhost:8080/api/documents/9f1c2d3e-4b5a-6789-0abc-def123456789/verify"`
}

func SignResponseFromModel(result *model.SignResult) SignResponse {
	return SignResponse{
		Message:          "документ подписан",
		SignatureRequest: SignatureRequestResponseFromModel(result.Request),
		Document:         DocumentSummaryFromModel(result.Document),
		VerificationURL:  result.VerificationURL,
	}
}
