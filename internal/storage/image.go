package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxImagemBytes é o tamanho máximo aceito para capas.
const MaxImagemBytes int64 = 5 << 20

var extensoesImagem = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ErrArquivoInvalido cobre arquivo ausente, grande demais ou com extensão recusada.
var ErrArquivoInvalido = errors.New("arquivo inválido")

// ExtensaoImagem devolve a extensão normalizada quando é uma imagem aceita.
func ExtensaoImagem(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := extensoesImagem[ext]; !ok {
		return "", fmt.Errorf("%w: extensão não permitida, use jpg, jpeg, png ou webp", ErrArquivoInvalido)
	}
	return ext, nil
}

// FirstFile devolve o primeiro arquivo do campo informado.
func FirstFile(form *multipart.Form, field string) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, fmt.Errorf("%w: arquivo ausente", ErrArquivoInvalido)
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: arquivo ausente", ErrArquivoInvalido)
	}
	return files[0], nil
}

// ReadMultipartFile lê até limit bytes e detecta o content type quando ausente.
func ReadMultipartFile(header *multipart.FileHeader, limit int64) ([]byte, string, error) {
	if header.Size > limit {
		return nil, "", fmt.Errorf("%w: arquivo excede %d MB", ErrArquivoInvalido, limit>>20)
	}
	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("falha ao abrir arquivo: %w", err)
	}
	defer file.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(file, limit+1)); err != nil {
		return nil, "", fmt.Errorf("falha ao ler arquivo: %w", err)
	}
	if int64(buf.Len()) > limit {
		return nil, "", fmt.Errorf("%w: arquivo excede %d MB", ErrArquivoInvalido, limit>>20)
	}
	if buf.Len() == 0 {
		return nil, "", fmt.Errorf("%w: arquivo vazio", ErrArquivoInvalido)
	}

	contentType := header.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" || contentType == "application/octet-stream" {
		if ct, ok := extensoesImagem[strings.ToLower(filepath.Ext(header.Filename))]; ok {
			contentType = ct
		} else {
			contentType = http.DetectContentType(buf.Bytes())
		}
	}
	return buf.Bytes(), contentType, nil
}
