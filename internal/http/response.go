package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// maxCorpoJSON limita os corpos JSON lidos pelas rotas de autenticação.
const maxCorpoJSON = 64 << 10

// envelope é o formato de toda resposta: data preenchido no sucesso e
// error preenchido na falha, nunca os dois.
type envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Debug().Err(err).Int("status", status).Msg("falha ao escrever resposta")
	}
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Data: data})
}

// WriteError escreve envelope de erro.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	writeEnvelope(w, status, envelope{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}

// decodeJSON lê um único objeto JSON do corpo. Corpo vazio só é aceito
// quando opcional for verdadeiro.
func decodeJSON(r *http.Request, dst any, opcional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCorpoJSON))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && opcional {
			return nil
		}
		return fmt.Errorf("JSON inválido: %w", err)
	}
	return nil
}
