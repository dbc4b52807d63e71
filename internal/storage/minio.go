package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig descreve o bucket S3/MinIO usado para capas.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL é a base pública dos objetos; vazio usa endpoint/bucket.
	PublicURL string
}

func (c MinioConfig) validate() error {
	switch {
	case strings.TrimSpace(c.Endpoint) == "":
		return errors.New("storage: MINIO_ENDPOINT obrigatório")
	case strings.TrimSpace(c.Bucket) == "":
		return errors.New("storage: MINIO_BUCKET obrigatório")
	case c.AccessKey == "" || c.SecretKey == "":
		return errors.New("storage: credenciais MinIO obrigatórias")
	}
	return nil
}

// MinioUploader implementa Uploader sobre MinIO ou qualquer S3 compatível.
type MinioUploader struct {
	client *minio.Client
	bucket string
	base   string
}

// NewMinioUploader conecta e garante que o bucket existe.
func NewMinioUploader(ctx context.Context, cfg MinioConfig) (*MinioUploader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: cliente minio: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: verificar bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: criar bucket: %w", err)
		}
	}

	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinioUploader{client: client, bucket: cfg.Bucket, base: base}, nil
}

func (u *MinioUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	key, err := cleanKey(input.Key)
	if err != nil {
		return nil, err
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: corpo vazio")
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(input.Body), int64(len(input.Body)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: input.CacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: enviar objeto: %w", err)
	}
	return &UploadResult{URL: u.base + "/" + key, Key: key}, nil
}

// Delete ignora URLs de outro bucket.
func (u *MinioUploader) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, u.base+"/") {
		return nil
	}
	key := strings.TrimPrefix(url, u.base+"/")
	if err := u.client.RemoveObject(ctx, u.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: remover objeto: %w", err)
	}
	return nil
}
