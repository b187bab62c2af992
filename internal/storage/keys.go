package storage

import (
	"fmt"
	"signature-web-server/internal/util"
	"strings"
)

// AllowedExtensions : форматы, которые принимаются на загрузку
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"doc":  {},
	"docx": {},
}

// OriginalKey : users/<owner>/<имя>-<8 hex>.<ext>
func OriginalKey(ownerUUID, filename string) (string, error) {
	base, ext := util.SplitExtension(util.SanitizeFilename(filename))
	suffix, err := util.GenerateRandomToken(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("users/%s/%s-%s.%s", ownerUUID, base, suffix, ext), nil
}

// SignedKey : ключ подписанной версии рядом с оригиналом, новый при каждом подписании
func SignedKey(originalKey string) (string, error) {
	dot := strings.LastIndex(originalKey, ".")
	slash := strings.LastIndex(originalKey, "/")
	base, ext := originalKey, ""
	if dot > slash {
		base, ext = originalKey[:dot], originalKey[dot:]
	}

	suffix, err := util.GenerateRandomToken(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_signed_%s%s", base, suffix, ext), nil
}
