package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalUploader grava arquivos num diretório servido em /static.
type LocalUploader struct {
	dir    string
	prefix string
}

// NewLocalUploader cria o uploader; prefix é o caminho público do diretório
// (ex.: /static).
func NewLocalUploader(dir, prefix string) (*LocalUploader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: diretório obrigatório")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: criar diretório: %w", err)
	}
	return &LocalUploader{dir: dir, prefix: "/" + strings.Trim(prefix, "/")}, nil
}

func (u *LocalUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	key, err := cleanKey(input.Key)
	if err != nil {
		return nil, err
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: corpo vazio")
	}

	target := filepath.Join(u.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("storage: criar diretório: %w", err)
	}
	if err := os.WriteFile(target, input.Body, 0o644); err != nil {
		return nil, fmt.Errorf("storage: gravar arquivo: %w", err)
	}
	return &UploadResult{URL: path.Join(u.prefix, key), Key: key}, nil
}

// Delete ignora URLs que não pertencem a este diretório.
func (u *LocalUploader) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, u.prefix+"/") {
		return nil
	}
	key, err := cleanKey(strings.TrimPrefix(url, u.prefix+"/"))
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(u.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remover arquivo: %w", err)
	}
	return nil
}

// cleanKey recusa chaves vazias ou que escapem do diretório base.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("storage: chave do objeto obrigatória")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: chave inválida")
	}
	return cleaned, nil
}
