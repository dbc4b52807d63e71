package storage

import "context"

// NoopUploader devolve erro indicando que não há backend configurado.
type NoopUploader struct{}

// Upload sempre retorna erro, sinalizando que o recurso não está disponível.
func (NoopUploader) Upload(context.Context, UploadInput) (*UploadResult, error) {
	return nil, ErrNotConfigured
}

func (NoopUploader) Delete(context.Context, string) error { return nil }
