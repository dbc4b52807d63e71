package acervo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/veridian/biblioteca/internal/auth"
	"github.com/veridian/biblioteca/internal/events"
	"github.com/veridian/biblioteca/internal/util"
)

// Config reúne as regras de prazo da circulação.
type Config struct {
	PrazoEmprestimoDias int
	MaxRenovacoes       int
	ValidadeReservaDias int
	Location            *time.Location
}

func (c Config) withDefaults() Config {
	if c.PrazoEmprestimoDias <= 0 {
		c.PrazoEmprestimoDias = 14
	}
	if c.MaxRenovacoes < 0 {
		c.MaxRenovacoes = 0
	}
	if c.ValidadeReservaDias <= 0 {
		c.ValidadeReservaDias = 7
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// Service concentra as regras do acervo: disponibilidade de exemplares,
// ciclo de vida dos empréstimos e remoção de usuários.
type Service struct {
	store     Store
	cfg       Config
	cache     *redis.Client
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() uuid.UUID
	hash      func(string) (string, error)
	verify    func(string, string) (bool, error)
}

type Option func(*Service)

// WithCache habilita cache de leitura em redis para categorias.
func WithCache(client *redis.Client) Option {
	return func(s *Service) { s.cache = client }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock troca o relógio usado para "hoje".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPasswordHasher troca o par hash/verify de senhas.
func WithPasswordHasher(hash func(string) (string, error), verify func(string, string) (bool, error)) Option {
	return func(s *Service) {
		s.hash = hash
		s.verify = verify
	}
}

func NewService(store Store, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:     store,
		cfg:       cfg.withDefaults(),
		publisher: events.NoopPublisher{},
		logger:    log.With().Str("component", "acervo").Logger(),
		now:       util.Now,
		newID:     util.NewID,
		hash:      auth.Hash,
		verify:    auth.Verify,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hoje devolve a data civil corrente no fuso configurado.
func (s *Service) Hoje() Data {
	return NovaData(s.now().In(s.cfg.Location))
}

func (s *Service) agora() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) publish(ctx context.Context, tipo, entidade string, dados any) {
	evento := events.Evento{Tipo: tipo, Ocorreu: s.agora(), Entidade: entidade, Dados: dados}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evento); err != nil {
		s.logger.Warn().Err(err).Str("evento", tipo).Msg("falha ao publicar evento")
	}
}

// Categorias

type CategoriaInput struct {
	Nome      string  `json:"nome"`
	Descricao *string `json:"descricao"`
}

type CategoriaUpdate struct {
	Nome      *string `json:"nome"`
	Descricao *string `json:"descricao"`
}

func validarNomeCategoria(nome string) error {
	if err := util.ValidateLength(nome, "nome", 2, 100); err != nil {
		return validation("%s", err.Error())
	}
	return nil
}

func (s *Service) ListCategorias(ctx context.Context, p Paginacao) ([]Categoria, error) {
	p = p.normalizar()

	var categorias []Categoria
	key, cacheable := s.chaveCategorias(ctx, p)
	if cacheable && s.lerCache(ctx, key, &categorias) {
		return categorias, nil
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		categorias, err = q.ListCategorias(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.gravarCache(ctx, key, categorias)
	}
	return categorias, nil
}

func (s *Service) GetCategoria(ctx context.Context, id uuid.UUID) (Categoria, error) {
	var c Categoria
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		c, err = q.GetCategoria(ctx, id)
		return asNotFound(err, "Categoria não encontrada")
	})
	return c, err
}

func (s *Service) CriarCategoria(ctx context.Context, in CategoriaInput) (Categoria, error) {
	if err := validarNomeCategoria(in.Nome); err != nil {
		return Categoria{}, err
	}

	c := Categoria{
		ID:        s.newID(),
		Nome:      trimmed(in.Nome),
		Descricao: in.Descricao,
		CriadoEm:  s.agora(),
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if _, err := q.GetCategoriaByNome(ctx, c.Nome); err == nil {
			return conflict("Categoria com este nome já existe")
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return asConflict(q.InsertCategoria(ctx, c), "Categoria com este nome já existe")
	})
	if err != nil {
		return Categoria{}, err
	}

	s.invalidarCategorias(ctx)
	return c, nil
}

func (s *Service) AtualizarCategoria(ctx context.Context, id uuid.UUID, in CategoriaUpdate) (Categoria, error) {
	if in.Nome != nil {
		if err := validarNomeCategoria(*in.Nome); err != nil {
			return Categoria{}, err
		}
	}

	var c Categoria
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		c, err = q.GetCategoria(ctx, id)
		if err != nil {
			return asNotFound(err, "Categoria não encontrada")
		}

		if in.Nome != nil && trimmed(*in.Nome) != c.Nome {
			nome := trimmed(*in.Nome)
			if outra, err := q.GetCategoriaByNome(ctx, nome); err == nil && outra.ID != c.ID {
				return conflict("Categoria com este nome já existe")
			} else if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			c.Nome = nome
		}
		if in.Descricao != nil {
			c.Descricao = in.Descricao
		}

		return asConflict(q.UpdateCategoria(ctx, c), "Categoria com este nome já existe")
	})
	if err != nil {
		return Categoria{}, err
	}

	s.invalidarCategorias(ctx)
	return c, nil
}

// RemoverCategoria recusa a remoção enquanto houver obras vinculadas.
func (s *Service) RemoverCategoria(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if _, err := q.GetCategoria(ctx, id); err != nil {
			return asNotFound(err, "Categoria não encontrada")
		}
		n, err := q.CountObrasByCategoria(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return conflict("Categoria possui obras vinculadas")
		}
		err = asNotFound(q.DeleteCategoria(ctx, id), "Categoria não encontrada")
		return asConflict(err, "Categoria possui obras vinculadas")
	})
	if err != nil {
		return err
	}

	s.invalidarCategorias(ctx)
	return nil
}
