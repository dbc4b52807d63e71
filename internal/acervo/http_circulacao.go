package acervo

import (
	"net/http"
	"time"
)

func (h *Handler) handleListEmprestimos(w http.ResponseWriter, r *http.Request) {
	p, err := parsePaginacao(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	usuarioID, err := parseUUIDQuery(r, "usuarioId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	obraID, err := parseUUIDQuery(r, "obraId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	emprestimos, err := h.service.ListEmprestimos(r.Context(), FiltroEmprestimos{
		UsuarioID: usuarioID,
		ObraID:    obraID,
		Status:    StatusEmprestimo(r.URL.Query().Get("status")),
		Paginacao: p,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"emprestimos": emprestimos})
}

func (h *Handler) handleGetEmprestimo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "empréstimo")
	if !ok {
		return
	}
	e, err := h.service.GetEmprestimo(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"emprestimo": e})
}

func (h *Handler) handleCriarEmprestimo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	var in EmprestimoInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	e, err := h.service.CriarEmprestimo(ctx, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	logRequest(ctx, "POST /emprestimos", start)
	writeJSON(w, http.StatusCreated, map[string]any{"emprestimo": e})
}

func (h *Handler) handleAtualizarEmprestimo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id, ok := parseIDParam(w, r, "empréstimo")
	if !ok {
		return
	}
	var in EmprestimoUpdate
	if !decodeJSON(w, r, &in, false) {
		return
	}
	e, err := h.service.AtualizarEmprestimo(ctx, id, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	logRequest(ctx, "PUT /emprestimos", start)
	writeJSON(w, http.StatusOK, map[string]any{"emprestimo": e})
}

func (h *Handler) handleDevolver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id, ok := parseIDParam(w, r, "empréstimo")
	if !ok {
		return
	}
	var payload struct {
		DataDevolucao *Data `json:"dataDevolucao"`
	}
	if !decodeJSON(w, r, &payload, true) {
		return
	}
	e, err := h.service.Devolver(ctx, id, payload.DataDevolucao)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	logRequest(ctx, "POST /emprestimos/devolver", start)
	writeJSON(w, http.StatusOK, map[string]any{"emprestimo": e})
}

func (h *Handler) handleRenovar(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "empréstimo")
	if !ok {
		return
	}
	e, err := h.service.Renovar(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"emprestimo": e})
}

func (h *Handler) handleRemoverEmprestimo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "empréstimo")
	if !ok {
		return
	}
	if err := h.service.RemoverEmprestimo(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListReservas(w http.ResponseWriter, r *http.Request) {
	p, err := parsePaginacao(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	usuarioID, err := parseUUIDQuery(r, "usuarioId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	obraID, err := parseUUIDQuery(r, "obraId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	reservas, err := h.service.ListReservas(r.Context(), FiltroReservas{
		UsuarioID: usuarioID,
		ObraID:    obraID,
		Status:    StatusReserva(r.URL.Query().Get("status")),
		Paginacao: p,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservas": reservas})
}

func (h *Handler) handleGetReserva(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "reserva")
	if !ok {
		return
	}
	res, err := h.service.GetReserva(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reserva": res})
}

func (h *Handler) handleCriarReserva(w http.ResponseWriter, r *http.Request) {
	var in ReservaInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	res, err := h.service.CriarReserva(r.Context(), in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"reserva": res})
}

func (h *Handler) handleAtualizarReserva(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "reserva")
	if !ok {
		return
	}
	var in ReservaUpdate
	if !decodeJSON(w, r, &in, false) {
		return
	}
	res, err := h.service.AtualizarReserva(r.Context(), id, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reserva": res})
}

func (h *Handler) handleRemoverReserva(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "reserva")
	if !ok {
		return
	}
	if err := h.service.RemoverReserva(r.Context(), id); err != nil {
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
