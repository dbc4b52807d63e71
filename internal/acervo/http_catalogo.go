package acervo

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veridian/biblioteca/internal/storage"
)

func (h *Handler) handleListCategorias(w http.ResponseWriter, r *http.Request) {
	p, err := parsePaginacao(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	categorias, err := h.service.ListCategorias(r.Context(), p)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categorias": categorias})
}

func (h *Handler) handleGetCategoria(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "categoria")
	if !ok {
		return
	}
	c, err := h.service.GetCategoria(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categoria": c})
}

func (h *Handler) handleCriarCategoria(w http.ResponseWriter, r *http.Request) {
	var in CategoriaInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	c, err := h.service.CriarCategoria(r.Context(), in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"categoria": c})
}

func (h *Handler) handleAtualizarCategoria(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "categoria")
	if !ok {
		return
	}
	var in CategoriaUpdate
	if !decodeJSON(w, r, &in, false) {
		return
	}
	c, err := h.service.AtualizarCategoria(r.Context(), id, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categoria": c})
}

func (h *Handler) handleRemoverCategoria(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "categoria")
	if !ok {
		return
	}
	if err := h.service.RemoverCategoria(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListObras(w http.ResponseWriter, r *http.Request) {
	p, err := parsePaginacao(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	categoriaID, err := parseUUIDQuery(r, "categoriaId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	obras, err := h.service.ListObras(r.Context(), FiltroObras{
		CategoriaID: categoriaID,
		Busca:       strings.TrimSpace(r.URL.Query().Get("busca")),
		Paginacao:   p,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"obras": obras})
}

func (h *Handler) handleGetObra(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "obra")
	if !ok {
		return
	}
	o, err := h.service.GetObra(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"obra": o})
}

func (h *Handler) handleCriarObra(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	var in ObraInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	o, err := h.service.CriarObra(ctx, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	logRequest(ctx, "POST /obras", start)
	writeJSON(w, http.StatusCreated, map[string]any{"obra": o})
}

func (h *Handler) handleAtualizarObra(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "obra")
	if !ok {
		return
	}
	var in ObraUpdate
	if !decodeJSON(w, r, &in, false) {
		return
	}
	o, err := h.service.AtualizarObra(r.Context(), id, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"obra": o})
}

func (h *Handler) handleRemoverObra(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseIDParam(w, r, "obra")
	if !ok {
		return
	}
	o, err := h.service.RemoverObra(ctx, id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	h.descartarCapa(r, o.Capa)
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadCapa recebe multipart com o campo "file" e grava a capa.
func (h *Handler) handleUploadCapa(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id, ok := parseIDParam(w, r, "obra")
	if !ok {
		return
	}

	if _, ok := h.storage.(storage.NoopUploader); ok {
		writeError(w, http.StatusServiceUnavailable, "INTERNAL", "armazenamento indisponível", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", fmt.Sprintf("arquivo excede %d MB ou form inválido", h.maxUpload>>20), nil)
		return
	}

	header, err := storage.FirstFile(r.MultipartForm, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	ext, err := storage.ExtensaoImagem(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	data, contentType, err := storage.ReadMultipartFile(header, h.maxUpload)
	if err != nil {
		if errors.Is(err, storage.ErrArquivoInvalido) {
			writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		writeInternalError(w, err)
		return
	}

	if _, err := h.service.GetObra(ctx, id); err != nil {
		handleDomainError(w, err)
		return
	}

	key := fmt.Sprintf("uploads/capas/obra_%s_%d%s", id, h.service.agora().Unix(), ext)
	result, err := h.storage.Upload(ctx, storage.UploadInput{
		Key:          key,
		Body:         data,
		ContentType:  contentType,
		CacheControl: "public,max-age=31536000,immutable",
	})
	if err != nil {
		log.Error().Err(err).Str("obra_id", id.String()).Msg("falha ao enviar capa")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível enviar capa", nil)
		return
	}

	o, anterior, err := h.service.DefinirCapa(ctx, id, result.URL)
	if err != nil {
		h.descartarCapa(r, &result.URL)
		handleDomainError(w, err)
		return
	}
	h.descartarCapa(r, anterior)

	logRequest(ctx, "POST /obras/capa", start)
	writeJSON(w, http.StatusOK, map[string]any{"obra": o})
}

func (h *Handler) descartarCapa(r *http.Request, url *string) {
	if url == nil || *url == "" {
		return
	}
	if err := h.storage.Delete(r.Context(), *url); err != nil {
		log.Warn().Err(err).Str("capa", *url).Msg("falha ao remover capa antiga")
	}
}

func (h *Handler) handleListExemplaresDaObra(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "obra")
	if !ok {
		return
	}
	p, err := parsePaginacao(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	exemplares, err := h.service.ListExemplares(r.Context(), FiltroExemplares{ObraID: &id, Paginacao: p})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exemplares": exemplares})
}

func (h *Handler) handleListExemplares(w http.ResponseWriter, r *http.Request) {
	p, err := parsePaginacao(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	obraID, err := parseUUIDQuery(r, "obraId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	exemplares, err := h.service.ListExemplares(r.Context(), FiltroExemplares{
		ObraID:    obraID,
		Status:    StatusExemplar(r.URL.Query().Get("status")),
		Paginacao: p,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exemplares": exemplares})
}

func (h *Handler) handleGetExemplar(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "exemplar")
	if !ok {
		return
	}
	ex, err := h.service.GetExemplar(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exemplar": ex})
}

func (h *Handler) handleCriarExemplar(w http.ResponseWriter, r *http.Request) {
	var in ExemplarInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	ex, err := h.service.CriarExemplar(r.Context(), in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"exemplar": ex})
}

func (h *Handler) handleAtualizarExemplar(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "exemplar")
	if !ok {
		return
	}
	var in ExemplarUpdate
	if !decodeJSON(w, r, &in, false) {
		return
	}
	ex, err := h.service.AtualizarExemplar(r.Context(), id, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exemplar": ex})
}

func (h *Handler) handleRemoverExemplar(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "exemplar")
	if !ok {
		return
	}
	if err := h.service.RemoverExemplar(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
