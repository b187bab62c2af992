package signing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElectronicSigner_AppendsManifest(t *testing.T) {
	signer := NewElectronicSigner()
	source := []byte("%PDF-1.4 original body")

	first := model.SignatureManifest{
		RequestUUID:   "req-1",
		DocumentUUID:  "doc-1",
		SignerEmail:   "a@example.com",
		SignatureType: model.SignatureElectronic,
		SignedAt:      time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		IPAddress:     "203.0.113.9",
	}
	out, err := signer.Sign(context.Background(), bytes.NewReader(source), first)
	require.NoError(t, err)
	once, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(once, source))

	second := first
	second.RequestUUID = "req-2"
	out, err = signer.Sign(context.Background(), bytes.NewReader(once), second)
	require.NoError(t, err)
	twice, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(twice, once))

	manifests, err := ExtractManifests(twice)
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.Equal(t, "req-1", manifests[0].RequestUUID)
	assert.Equal(t, "req-2", manifests[1].RequestUUID)
	assert.Equal(t, first.SignedAt, manifests[0].SignedAt)
}

func TestElectronicSigner_RejectsDigital(t *testing.T) {
	_, err := NewElectronicSigner().Sign(context.Background(), strings.NewReader("x"),
		model.SignatureManifest{SignatureType: model.SignatureDigital})
	assert.ErrorIs(t, err, model.ErrNotImplemented)
}

func TestExtractManifests_Broken(t *testing.T) {
	_, err := ExtractManifests([]byte("body" + manifestBegin + "{not json"))
	assert.ErrorIs(t, err, model.ErrValidation)

	manifests, err := ExtractManifests([]byte("plain file"))
	require.NoError(t, err)
	assert.Empty(t, manifests)
}

func TestLocalTimeStamper(t *testing.T) {
	stamper := NewLocalTimeStamper()
	fixed := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	stamper.now = func() time.Time { return fixed }

	digest := sha256.Sum256([]byte("doc"))
	token, err := stamper.StampTime(context.Background(), digest[:])
	require.NoError(t, err)
	assert.Equal(t, localAuthority, token.Authority)
	assert.Equal(t, fixed, token.IssuedAt)
	assert.Contains(t, token.Token, "@2025-05-06T07:08:09Z")

	_, err = stamper.StampTime(context.Background(), []byte("short"))
	assert.Error(t, err)
}

func TestTSATimeStamper(t *testing.T) {
	digest := sha256.Sum256([]byte("doc"))
	reply := []byte{0x30, 0x03, 0x02, 0x01, 0x00}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/timestamp-query", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)

		var req timeStampReq
		_, err := asn1.Unmarshal(body, &req)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, digest[:], req.MessageImprint.HashedMessage)
		assert.True(t, req.MessageImprint.HashAlgorithm.Algorithm.Equal(oidSHA256))
		assert.True(t, req.ReqPolicy.Equal(asn1.ObjectIdentifier{1, 2, 3, 4}))
		_, _ = w.Write(reply)
	}))
	defer server.Close()

	stamper, err := NewTSATimeStamper(&config.TimestampConfig{
		TSAURL:    server.URL,
		PolicyOID: "1.2.3.4",
		Timeout:   config.Duration{Duration: time.Second},
	})
	require.NoError(t, err)

	token, err := stamper.StampTime(context.Background(), digest[:])
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(reply), token.Token)
	assert.Equal(t, server.URL, token.Authority)
}

func TestTSATimeStamper_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	stamper, err := NewTSATimeStamper(&config.TimestampConfig{TSAURL: server.URL, Timeout: config.Duration{Duration: time.Second}})
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("doc"))
	_, err = stamper.StampTime(context.Background(), digest[:])
	assert.Error(t, err)

	_, err = NewTSATimeStamper(&config.TimestampConfig{PolicyOID: "1.x"})
	assert.Error(t, err)
}
