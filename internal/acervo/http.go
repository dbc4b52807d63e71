package acervo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/veridian/biblioteca/internal/storage"
)

// Handler expõe o acervo via HTTP.
type Handler struct {
	service    *Service
	storage    storage.Uploader
	maxUpload  int64
	writeGuard func(http.Handler) http.Handler
}

type HandlerOption func(*Handler)

// WithUploader define onde as capas são gravadas.
func WithUploader(u storage.Uploader, maxBytes int64) HandlerOption {
	return func(h *Handler) {
		if u != nil {
			h.storage = u
		}
		if maxBytes > 0 {
			h.maxUpload = maxBytes
		}
	}
}

// WithWriteGuard protege as rotas de escrita (POST/PUT/DELETE).
func WithWriteGuard(mw func(http.Handler) http.Handler) HandlerOption {
	return func(h *Handler) { h.writeGuard = mw }
}

func NewHandler(service *Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:   service,
		storage:   storage.NoopUploader{},
		maxUpload: storage.MaxImagemBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/categorias", h.handleListCategorias)
	r.Get("/categorias/{id}", h.handleGetCategoria)
	r.Get("/obras", h.handleListObras)
	r.Get("/obras/{id}", h.handleGetObra)
	r.Get("/obras/{id}/exemplares", h.handleListExemplaresDaObra)
	r.Get("/exemplares", h.handleListExemplares)
	r.Get("/exemplares/{id}", h.handleGetExemplar)
	r.Get("/emprestimos", h.handleListEmprestimos)
	r.Get("/emprestimos/{id}", h.handleGetEmprestimo)
	r.Get("/usuarios", h.handleListUsuarios)
	r.Get("/usuarios/{id}", h.handleGetUsuario)
	r.Get("/usuarios/{id}/dependencias", h.handleDependencias)
	r.Get("/administradores", h.handleListAdministradores)
	r.Get("/administradores/{id}", h.handleGetAdministrador)
	r.Get("/reservas", h.handleListReservas)
	r.Get("/reservas/{id}", h.handleGetReserva)

	r.Group(func(r chi.Router) {
		if h.writeGuard != nil {
			r.Use(h.writeGuard)
		}

		r.Post("/categorias", h.handleCriarCategoria)
		r.Put("/categorias/{id}", h.handleAtualizarCategoria)
		r.Delete("/categorias/{id}", h.handleRemoverCategoria)

		r.Post("/obras", h.handleCriarObra)
		r.Put("/obras/{id}", h.handleAtualizarObra)
		r.Delete("/obras/{id}", h.handleRemoverObra)
		r.Post("/obras/{id}/capa", h.handleUploadCapa)

		r.Post("/exemplares", h.handleCriarExemplar)
		r.Put("/exemplares/{id}", h.handleAtualizarExemplar)
		r.Delete("/exemplares/{id}", h.handleRemoverExemplar)

		r.Post("/emprestimos", h.handleCriarEmprestimo)
		r.Put("/emprestimos/{id}", h.handleAtualizarEmprestimo)
		r.Delete("/emprestimos/{id}", h.handleRemoverEmprestimo)
		r.Post("/emprestimos/{id}/devolver", h.handleDevolver)
		r.Post("/emprestimos/{id}/renovar", h.handleRenovar)

		r.Post("/usuarios", h.handleCriarUsuario)
		r.Put("/usuarios/{id}", h.handleAtualizarUsuario)
		r.Delete("/usuarios/{id}", h.handleRemoverUsuario)

		r.Post("/administradores", h.handleCriarAdministrador)
		r.Put("/administradores/{id}", h.handleAtualizarAdministrador)
		r.Delete("/administradores/{id}", h.handleRemoverAdministrador)

		r.Post("/reservas", h.handleCriarReserva)
		r.Put("/reservas/{id}", h.handleAtualizarReserva)
		r.Delete("/reservas/{id}", h.handleRemoverReserva)
	})
}

func parseIDParam(w http.ResponseWriter, r *http.Request, entidade string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", entidade+" inválido", nil)
		return uuid.Nil, false
	}
	return id, true
}

// parseUUIDQuery lê um filtro opcional da query string.
func parseUUIDQuery(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New(name + " inválido")
	}
	return &id, nil
}

func parsePaginacao(r *http.Request) (Paginacao, error) {
	var p Paginacao
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, errors.New("limit inválido")
		}
		p.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errors.New("offset inválido")
		}
		p.Offset = n
	}
	return p, nil
}

// maxCorpoJSON limita o corpo das requisições JSON do acervo.
const maxCorpoJSON = 1 << 20

// decodeJSON aceita corpo vazio apenas quando allowEmpty é verdadeiro.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxCorpoJSON)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	msg := "payload inválido"
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		writeError(w, http.StatusRequestEntityTooLarge, "VALIDATION", "payload excede o limite de 1MB", nil)
		return false
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
	case errors.As(err, &typeErr):
		msg = "payload inválido: campo " + typeErr.Field
	default:
		msg = "payload inválido: " + err.Error()
	}
	writeError(w, http.StatusBadRequest, "VALIDATION", msg, nil)
	return false
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", Message(err), nil)
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusBadRequest, "CONFLICT", Message(err), nil)
	case errors.Is(err, ErrInvalidState):
		writeError(w, http.StatusBadRequest, "INVALID_STATE", Message(err), nil)
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION", Message(err), nil)
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("acervo handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

func logRequest(ctx context.Context, label string, start time.Time) {
	logger := log.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &log.Logger
	}
	reqID := chimiddleware.GetReqID(ctx)
	logger.Info().Str("request_id", reqID).Str("label", label).Dur("duration", time.Since(start)).Msg("acervo_request")
}

type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any            `json:"data"`
	Error *errorResponse `json:"error"`
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: payload, Error: nil})
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Data: nil, Error: &errorResponse{Code: code, Message: message, Details: details}})
}
