package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"signature-web-server/internal/model"
)

const (
	manifestBegin = "\n%%E-SIGNATURE-BEGIN\n"
	manifestEnd   = "\n%%E-SIGNATURE-END\n"
)

// ElectronicSigner : подписанный артефакт это исходные байты и дописанный после них
// JSON блок с данными подписи. Байты исходного файла не меняются
type ElectronicSigner struct{}

func NewElectronicSigner() *ElectronicSigner {
	return &ElectronicSigner{}
}

func (s *ElectronicSigner) Sign(ctx context.Context, source io.Reader, manifest model.SignatureManifest) (io.Reader, error) {
	if manifest.SignatureType != model.SignatureElectronic {
		return nil, model.Errorf(model.ErrNotImplemented, "подпись типа %s не поддерживается", manifest.SignatureType)
	}

	block, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("[ElectronicSigner] ошибка сериализации манифеста: %w", err)
	}

	var trailer bytes.Buffer
	trailer.WriteString(manifestBegin)
	trailer.Write(block)
	trailer.WriteString(manifestEnd)

	return io.MultiReader(source, &trailer), nil
}

// ExtractManifests : все блоки подписи, дописанные к файлу, в порядке подписания
func ExtractManifests(artifact []byte) ([]model.SignatureManifest, error) {
	var manifests []model.SignatureManifest
	rest := artifact
	for {
		start := bytes.Index(rest, []byte(manifestBegin))
		if start < 0 {
			return manifests, nil
		}
		rest = rest[start+len(manifestBegin):]
		end := bytes.Index(rest, []byte(manifestEnd))
		if end < 0 {
			return nil, model.Errorf(model.ErrValidation, "незакрытый блок подписи")
		}

		var manifest model.SignatureManifest
		if err := json.Unmarshal(rest[:end], &manifest); err != nil {
			return nil, model.Errorf(model.ErrValidation, "повреждённый блок подписи: %v", err)
		}
		manifests = append(manifests, manifest)
		rest = rest[end+len(manifestEnd):]
	}
}
