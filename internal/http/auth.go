package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/veridian/biblioteca/internal/http/middleware"
	"github.com/veridian/biblioteca/internal/service"
)

const refreshCookieName = "biblioteca_refresh"

// Login autentica por CPF e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CPF   string `json:"cpf"`
		Senha string `json:"senha"`
	}

	if err := decodeJSON(r, &payload, false); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.CPF) == "" || strings.TrimSpace(payload.Senha) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cpf e senha são obrigatórios", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.CPF, payload.Senha)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Refresh troca o refresh token por um par novo.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := getRefreshFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			h.clearRefreshCookie(w)
			WriteError(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
			return
		}
		log.Error().Err(err).Msg("erro ao renovar sessão")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao renovar sessão", nil)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Logout revoga refresh token atual.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := getRefreshFromRequest(r); err == nil {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			log.Warn().Err(err).Msg("falha ao revogar refresh")
		}
	}

	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout realizado com sucesso"})
}

// Me retorna o usuário autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.authService.Me(r.Context(), httpmiddleware.GetSubject(r.Context()))
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"usuario": u,
		"roles":   httpmiddleware.GetRoles(r.Context()),
	})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	default:
		log.Error().Err(err).Msg("erro ao autenticar")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
	}
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, result *service.LoginResult) {
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"usuario":       result.Usuario,
	})
}

// getRefreshFromRequest aceita o cookie ou {"refresh_token": "..."} no corpo.
func getRefreshFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if r.Body != nil {
		if err := decodeJSON(r, &payload, true); err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(payload.RefreshToken) != "" {
		return strings.TrimSpace(payload.RefreshToken), nil
	}
	return "", errors.New("refresh ausente")
}

func (h *Handler) cookie(value string) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: sameSite,
	}
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := h.cookie(token)
	c.Expires = expires
	http.SetCookie(w, c)
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	c := h.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}
