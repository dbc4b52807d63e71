package acervo

import (
	"net/http"
	"time"
)

func (h *Handler) handleListUsuarios(w http.ResponseWriter, r *http.Request) {
	p, err := parsePaginacao(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	usuarios, err := h.service.ListUsuarios(r.Context(), FiltroUsuarios{
		Status:    StatusUsuario(r.URL.Query().Get("status")),
		Role:      RoleUsuario(r.URL.Query().Get("role")),
		Paginacao: p,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usuarios": usuarios})
}

func (h *Handler) handleGetUsuario(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "usuário")
	if !ok {
		return
	}
	u, err := h.service.GetUsuario(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usuario": u})
}

func (h *Handler) handleCriarUsuario(w http.ResponseWriter, r *http.Request) {
	var in UsuarioInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	u, err := h.service.CriarUsuario(r.Context(), in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"usuario": u})
}

func (h *Handler) handleAtualizarUsuario(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "usuário")
	if !ok {
		return
	}
	var in UsuarioUpdate
	if !decodeJSON(w, r, &in, false) {
		return
	}
	u, err := h.service.AtualizarUsuario(r.Context(), id, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usuario": u})
}

// handleDependencias permite ao cliente confirmar a remoção em cascata.
func (h *Handler) handleDependencias(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "usuário")
	if !ok {
		return
	}
	deps, err := h.service.Dependencias(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dependencias": deps})
}

func (h *Handler) handleRemoverUsuario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id, ok := parseIDParam(w, r, "usuário")
	if !ok {
		return
	}
	if _, err := h.service.RemoverUsuario(ctx, id); err != nil {
		handleDomainError(w, err)
		return
	}
	logRequest(ctx, "DELETE /usuarios", start)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAdministradores(w http.ResponseWriter, r *http.Request) {
	p, err := parsePaginacao(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	admins, err := h.service.ListAdministradores(r.Context(), p)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"administradores": admins})
}

func (h *Handler) handleGetAdministrador(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "administrador")
	if !ok {
		return
	}
	a, err := h.service.GetAdministrador(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"administrador": a})
}

func (h *Handler) handleCriarAdministrador(w http.ResponseWriter, r *http.Request) {
	var in AdministradorInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	a, err := h.service.CriarAdministrador(r.Context(), in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"administrador": a})
}

func (h *Handler) handleAtualizarAdministrador(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "administrador")
	if !ok {
		return
	}
	var in AdministradorUpdate
	if !decodeJSON(w, r, &in, false) {
		return
	}
	a, err := h.service.AtualizarAdministrador(r.Context(), id, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"administrador": a})
}

func (h *Handler) handleRemoverAdministrador(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "administrador")
	if !ok {
		return
	}
	if err := h.service.RemoverAdministrador(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
