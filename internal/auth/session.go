package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore guarda os refresh tokens no redis, indexados pelo hash.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore cria o store com o TTL dos refresh tokens.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// TTL devolve a validade de cada sessão.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Create abre uma sessão e devolve o token cru, que nunca é persistido.
func (s *SessionStore) Create(ctx context.Context, usuarioID uuid.UUID) (string, time.Time, error) {
	raw, hashed, err := GenerateRefreshToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("gerar refresh: %w", err)
	}
	if err := s.client.Set(ctx, RefreshRedisKey(hashed), usuarioID.String(), s.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("gravar sessão: %w", err)
	}
	return raw, time.Now().Add(s.ttl), nil
}

// Consume lê e apaga a sessão numa única operação, de modo que cada
// refresh token só pode ser usado uma vez.
func (s *SessionStore) Consume(ctx context.Context, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, ErrInvalidRefresh
	}
	val, err := s.client.GetDel(ctx, RefreshRedisKey(HashRefreshToken(raw))).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrInvalidRefresh
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("ler sessão: %w", err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrInvalidRefresh
	}
	return id, nil
}

// Revoke apaga a sessão. Token desconhecido não é erro.
func (s *SessionStore) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return s.client.Del(ctx, RefreshRedisKey(HashRefreshToken(raw))).Err()
}
