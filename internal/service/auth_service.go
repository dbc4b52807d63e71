package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/veridian/biblioteca/internal/acervo"
	"github.com/veridian/biblioteca/internal/auth"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("CPF ou senha incorretos")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

type usuarioSource interface {
	Autenticar(ctx context.Context, cpf, senha string) (acervo.Usuario, error)
	GetUsuario(ctx context.Context, id uuid.UUID) (acervo.Usuario, error)
}

type sessionStore interface {
	Create(ctx context.Context, usuarioID uuid.UUID) (string, time.Time, error)
	Consume(ctx context.Context, raw string) (uuid.UUID, error)
	Revoke(ctx context.Context, raw string) error
}

// AuthService concentra login por CPF e a rotação das sessões.
type AuthService struct {
	usuarios usuarioSource
	sessions sessionStore
	jwt      *auth.JWTManager
}

// NewAuthService cria novo serviço.
func NewAuthService(usuarios usuarioSource, sessions sessionStore, jwtMgr *auth.JWTManager) *AuthService {
	return &AuthService{usuarios: usuarios, sessions: sessions, jwt: jwtMgr}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	RefreshExpiry time.Time
	Usuario       acervo.Usuario
}

// Login autentica pelo CPF e abre uma sessão.
func (s *AuthService) Login(ctx context.Context, cpf, senha string) (*LoginResult, error) {
	if strings.TrimSpace(cpf) == "" || senha == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.usuarios.Autenticar(ctx, cpf, senha)
	if errors.Is(err, acervo.ErrCredenciaisInvalidas) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	return s.emitir(ctx, u)
}

// Refresh consome o refresh token e devolve um par novo. O token antigo
// deixa de valer mesmo que a emissão falhe depois.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*LoginResult, error) {
	id, err := s.sessions.Consume(ctx, raw)
	if errors.Is(err, auth.ErrInvalidRefresh) {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}

	u, err := s.usuarios.GetUsuario(ctx, id)
	if errors.Is(err, acervo.ErrNotFound) {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if u.Status != acervo.UsuarioAtivo {
		return nil, ErrRefreshInvalid
	}

	return s.emitir(ctx, u)
}

// Logout revoga o refresh token informado.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	return s.sessions.Revoke(ctx, raw)
}

// Me carrega o usuário do subject do token.
func (s *AuthService) Me(ctx context.Context, subject string) (acervo.Usuario, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return acervo.Usuario{}, ErrInvalidCredentials
	}
	u, err := s.usuarios.GetUsuario(ctx, id)
	if errors.Is(err, acervo.ErrNotFound) {
		return acervo.Usuario{}, ErrInvalidCredentials
	}
	return u, err
}

func (s *AuthService) emitir(ctx context.Context, u acervo.Usuario) (*LoginResult, error) {
	access, jti, err := s.jwt.GenerateAccessToken(u.ID.String(), rolesDe(u))
	if err != nil {
		return nil, fmt.Errorf("gerar access token: %w", err)
	}

	refresh, expira, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("usuario_id", u.ID.String()).Str("jti", jti).Msg("sessão emitida")

	return &LoginResult{
		AccessToken:   access,
		RefreshToken:  refresh,
		RefreshExpiry: expira,
		Usuario:       u,
	}, nil
}

// rolesDe mapeia a role do usuário para os papéis do token. Admin também
// recebe "user" para passar pelas rotas de leitura protegidas.
func rolesDe(u acervo.Usuario) []string {
	if u.Role == acervo.RoleAdmin {
		return []string{string(acervo.RoleAdmin), string(acervo.RoleUser)}
	}
	return []string{string(acervo.RoleUser)}
}
