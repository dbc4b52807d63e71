package acervo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheTTL              = 60 * time.Second
	chaveVersaoCategorias = "acervo:categorias:versao"
)

// chaveCategorias inclui a versão corrente; invalidar é só incrementá-la.
func (s *Service) chaveCategorias(ctx context.Context, p Paginacao) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	versao, err := s.cache.Get(ctx, chaveVersaoCategorias).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("cache: versão de categorias indisponível")
		return "", false
	}
	return fmt.Sprintf("acervo:categorias:v%d:%d:%d", versao, p.Limit, p.Offset), true
}

func (s *Service) lerCache(ctx context.Context, key string, dst any) bool {
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) gravarCache(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, key, payload, cacheTTL).Err()
}

func (s *Service) invalidarCategorias(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, chaveVersaoCategorias).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("cache: falha ao invalidar categorias")
	}
}
