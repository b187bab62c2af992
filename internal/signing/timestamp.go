package signing

import (
	"bytes"
	"context"
	"encoding/asn1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"strconv"
	"strings"
	"time"
)

const localAuthority = "local-clock"

// LocalTimeStamper : метка от часов сервера, используется без настроенного TSA
type LocalTimeStamper struct {
	now func() time.Time
}

func NewLocalTimeStamper() *LocalTimeStamper {
	return &LocalTimeStamper{now: time.Now}
}

func (s *LocalTimeStamper) StampTime(ctx context.Context, digest []byte) (*model.TimestampToken, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("[LocalTimeStamper] ожидается sha256 дайджест, получено %d байт", len(digest))
	}
	issuedAt := s.now().UTC()
	return &model.TimestampToken{
		Token:     hex.EncodeToString(digest) + "@" + issuedAt.Format(time.RFC3339Nano),
		Authority: localAuthority,
		IssuedAt:  issuedAt,
	}, nil
}

var oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

type messageImprint struct {
	HashAlgorithm algorithmIdentifier
	HashedMessage []byte
}

type timeStampReq struct {
	Version        int
	MessageImprint messageImprint
	ReqPolicy      asn1.ObjectIdentifier `asn1:"optional"`
	CertReq        bool                  `asn1:"optional"`
}

// TSATimeStamper : RFC 3161 запрос к внешнему TSA. Ответ хранится как base64 DER
type TSATimeStamper struct {
	client    *http.Client
	url       string
	policyOID asn1.ObjectIdentifier
	now       func() time.Time
}

func NewTSATimeStamper(cfg *config.TimestampConfig) (*TSATimeStamper, error) {
	stamper := &TSATimeStamper{
		client: &http.Client{Timeout: cfg.Timeout.Duration},
		url:    cfg.TSAURL,
		now:    time.Now,
	}
	if cfg.PolicyOID != "" {
		oid, err := parseOID(cfg.PolicyOID)
		if err != nil {
			return nil, err
		}
		stamper.policyOID = oid
	}
	return stamper, nil
}

func (s *TSATimeStamper) StampTime(ctx context.Context, digest []byte) (*model.TimestampToken, error) {
	request, err := buildTimeStampRequest(digest, s.policyOID)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(request))
	if err != nil {
		return nil, util.LogError("[TSATimeStamper] ошибка формирования запроса", err)
	}
	httpReq.Header.Set("Content-Type", "application/timestamp-query")
	httpReq.Header.Set("Accept", "application/timestamp-reply")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, util.LogError("[TSATimeStamper] TSA недоступен", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, util.LogError("[TSATimeStamper] ошибка чтения ответа TSA", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("[TSATimeStamper] TSA ответил статусом %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("[TSATimeStamper] пустой ответ TSA")
	}

	return &model.TimestampToken{
		Token:     base64.StdEncoding.EncodeToString(body),
		Authority: s.url,
		IssuedAt:  s.now().UTC(),
	}, nil
}

func buildTimeStampRequest(digest []byte, policy asn1.ObjectIdentifier) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("[TSATimeStamper] ожидается sha256 дайджест, получено %d байт", len(digest))
	}
	req := timeStampReq{
		Version: 1,
		MessageImprint: messageImprint{
			HashAlgorithm: algorithmIdentifier{
				Algorithm:  oidSHA256,
				Parameters: asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagNull},
			},
			HashedMessage: digest,
		},
		ReqPolicy: policy,
		CertReq:   true,
	}
	return asn1.Marshal(req)
}

func parseOID(value string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(strings.TrimSpace(value), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("некорректный policy_oid: %q", value)
	}
	oid := make(asn1.ObjectIdentifier, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("некорректный policy_oid: %q", value)
		}
		oid = append(oid, n)
	}
	return oid, nil
}
