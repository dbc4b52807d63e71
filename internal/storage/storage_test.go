package storage

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalUploaderUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	u, err := NewLocalUploader(dir, "static")
	if err != nil {
		t.Fatalf("NewLocalUploader: %v", err)
	}

	res, err := u.Upload(context.Background(), UploadInput{Key: "uploads/capas/obra_1.png", Body: []byte("png")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.URL != "/static/uploads/capas/obra_1.png" {
		t.Fatalf("url inesperada: %s", res.URL)
	}
	if _, err := os.Stat(filepath.Join(dir, "uploads", "capas", "obra_1.png")); err != nil {
		t.Fatalf("arquivo não gravado: %v", err)
	}

	if err := u.Delete(context.Background(), res.URL); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "uploads", "capas", "obra_1.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("arquivo deveria ter sido removido: %v", err)
	}

	if err := u.Delete(context.Background(), "https://outro.host/capa.png"); err != nil {
		t.Fatalf("url externa deveria ser ignorada: %v", err)
	}
}

func TestLocalUploaderRejectsTraversal(t *testing.T) {
	u, err := NewLocalUploader(t.TempDir(), "/static")
	if err != nil {
		t.Fatalf("NewLocalUploader: %v", err)
	}
	for _, key := range []string{"", "../fora.png", "a/../../fora.png"} {
		if _, err := u.Upload(context.Background(), UploadInput{Key: key, Body: []byte("x")}); err == nil {
			t.Fatalf("chave %q deveria falhar", key)
		}
	}
}

func TestExtensaoImagem(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"capa.JPG", ".jpg", false},
		{"capa.jpeg", ".jpeg", false},
		{"capa.png", ".png", false},
		{"capa.webp", ".webp", false},
		{"capa.gif", "", true},
		{"capa", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtensaoImagem(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrArquivoInvalido) {
					t.Fatalf("esperava ErrArquivoInvalido, veio %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %q err %v", got, err)
			}
		})
	}
}

func multipartRequest(t *testing.T, field, filename string, body []byte) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(body)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}
	return req
}

func TestReadMultipartFileLimit(t *testing.T) {
	req := multipartRequest(t, "file", "capa.png", bytes.Repeat([]byte("a"), 2048))

	header, err := FirstFile(req.MultipartForm, "file")
	if err != nil {
		t.Fatalf("FirstFile: %v", err)
	}
	if _, _, err := ReadMultipartFile(header, 1024); !errors.Is(err, ErrArquivoInvalido) {
		t.Fatalf("esperava arquivo grande demais, veio %v", err)
	}

	data, ct, err := ReadMultipartFile(header, 4096)
	if err != nil {
		t.Fatalf("ReadMultipartFile: %v", err)
	}
	if len(data) != 2048 || ct != "image/png" {
		t.Fatalf("len %d ct %s", len(data), ct)
	}

	if _, err := FirstFile(req.MultipartForm, "outro"); !errors.Is(err, ErrArquivoInvalido) {
		t.Fatalf("campo ausente deveria falhar: %v", err)
	}
}
