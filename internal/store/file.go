package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 토큰을 0600 파일에 저장
type FileStore struct {
	path string
}

// NewFileStore 생성자
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path 저장 경로
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", wrap("load", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) Save(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return wrap("save", err)
	}
	return wrap("save", os.WriteFile(s.path, []byte(token), 0o600))
}

func (s *FileStore) Clear(_ context.Context) error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return wrap("clear", err)
}
