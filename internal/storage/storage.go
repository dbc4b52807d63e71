package storage

import (
	"context"
	"errors"
)

// ErrNotConfigured indica que nenhum backend de armazenamento foi configurado.
var ErrNotConfigured = errors.New("storage: uploader não configurado")

// UploadInput representa uma operação de upload simples.
type UploadInput struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// UploadResult descreve o artefato persistido.
type UploadResult struct {
	URL string
	Key string
}

// Uploader define comportamento básico para armazenar blobs.
// Delete recebe a URL devolvida por Upload.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
	Delete(ctx context.Context, url string) error
}
