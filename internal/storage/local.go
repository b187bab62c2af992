package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"strings"

	"go.uber.org/zap"
)

// LocalStorage : файлы на диске под rootDir. Запись атомарна: временный файл и rename
type LocalStorage struct {
	rootDir string
}

func NewLocalStorage(rootDir string) (*LocalStorage, error) {
	absolute, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("некорректный каталог хранилища %q: %w", rootDir, err)
	}
	if err := os.MkdirAll(absolute, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог хранилища: %w", err)
	}

	zap.L().Info("локальное хранилище готово", zap.String("root", absolute))
	return &LocalStorage{rootDir: absolute}, nil
}

// Save : sha256 считается во время записи
func (s *LocalStorage) Save(ctx context.Context, key string, content io.Reader) (*model.StoredObject, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, util.LogError("[LocalStorage] не удалось создать каталог", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return nil, util.LogError("[LocalStorage] не удалось создать временный файл", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hash), contextReader{ctx: ctx, r: content})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("[LocalStorage] ошибка записи %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, util.LogError("[LocalStorage] не удалось сохранить файл", err)
	}

	return &model.StoredObject{Key: key, SizeBytes: size, Sha256: hex.EncodeToString(hash.Sum(nil))}, nil
}

func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[LocalStorage] файл %s: %w", key, model.ErrNotFound)
	} else if err != nil {
		return nil, util.LogError("[LocalStorage] не удалось открыть файл", err)
	}
	return file, nil
}

// Delete : отсутствие файла не ошибка
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return util.LogError("[LocalStorage] не удалось удалить файл", err)
	}
	return nil
}

// resolve : ключ не может выйти за пределы rootDir
func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) {
		return "", model.Errorf(model.ErrValidation, "некорректный ключ хранилища: %q", key)
	}
	path := filepath.Join(s.rootDir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.rootDir+string(filepath.Separator)) {
		return "", model.Errorf(model.ErrValidation, "некорректный ключ хранилища: %q", key)
	}
	return path, nil
}

// contextReader : прерывает копирование при отмене контекста
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
