package acervo

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// maxExemplaresPorObra mantém o sufixo sequencial com três dígitos.
const maxExemplaresPorObra = 999

type ObraInput struct {
	Titulo          string    `json:"titulo"`
	Autor           string    `json:"autor"`
	ISBN            string    `json:"isbn"`
	CategoriaID     uuid.UUID `json:"categoriaId"`
	Editora         *string   `json:"editora"`
	AnoPublicacao   *int      `json:"anoPublicacao"`
	Descricao       *string   `json:"descricao"`
	Capa            *string   `json:"capa"`
	TotalExemplares int       `json:"totalExemplares"`
}

// ObraUpdate não aceita contadores: eles são sempre recalculados.
type ObraUpdate struct {
	Titulo        *string    `json:"titulo"`
	Autor         *string    `json:"autor"`
	ISBN          *string    `json:"isbn"`
	CategoriaID   *uuid.UUID `json:"categoriaId"`
	Editora       *string    `json:"editora"`
	AnoPublicacao *int       `json:"anoPublicacao"`
	Descricao     *string    `json:"descricao"`
	Capa          *string    `json:"capa"`
}

func (in ObraInput) validate() error {
	if err := checkLength(in.Titulo, "titulo", 1, 300); err != nil {
		return err
	}
	if err := checkLength(in.Autor, "autor", 1, 200); err != nil {
		return err
	}
	if err := checkLength(in.ISBN, "isbn", 10, 17); err != nil {
		return err
	}
	if in.CategoriaID == uuid.Nil {
		return validation("categoriaId obrigatório")
	}
	if err := checkOptionalLength(in.Editora, "editora", 200); err != nil {
		return err
	}
	if err := checkAno(in.AnoPublicacao); err != nil {
		return err
	}
	if in.TotalExemplares < 0 || in.TotalExemplares > maxExemplaresPorObra {
		return validation("totalExemplares deve estar entre 0 e %d", maxExemplaresPorObra)
	}
	return nil
}

func (in ObraUpdate) validate() error {
	if in.Titulo != nil {
		if err := checkLength(*in.Titulo, "titulo", 1, 300); err != nil {
			return err
		}
	}
	if in.Autor != nil {
		if err := checkLength(*in.Autor, "autor", 1, 200); err != nil {
			return err
		}
	}
	if in.ISBN != nil {
		if err := checkLength(*in.ISBN, "isbn", 10, 17); err != nil {
			return err
		}
	}
	if err := checkOptionalLength(in.Editora, "editora", 200); err != nil {
		return err
	}
	return checkAno(in.AnoPublicacao)
}

func (s *Service) ListObras(ctx context.Context, f FiltroObras) ([]Obra, error) {
	f.Paginacao = f.Paginacao.normalizar()
	var obras []Obra
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		obras, err = q.ListObras(ctx, f)
		return err
	})
	return obras, err
}

func (s *Service) GetObra(ctx context.Context, id uuid.UUID) (Obra, error) {
	var o Obra
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		o, err = q.GetObra(ctx, id)
		return asNotFound(err, "Obra não encontrada")
	})
	return o, err
}

// CriarObra cadastra a obra e gera totalExemplares exemplares disponíveis.
// Os contadores da obra saem da recontagem, nunca do payload.
func (s *Service) CriarObra(ctx context.Context, in ObraInput) (Obra, error) {
	if err := in.validate(); err != nil {
		return Obra{}, err
	}

	now := s.agora()
	obra := Obra{
		ID:            s.newID(),
		Titulo:        trimmed(in.Titulo),
		Autor:         trimmed(in.Autor),
		ISBN:          trimmed(in.ISBN),
		CategoriaID:   in.CategoriaID,
		Editora:       opcional(in.Editora),
		AnoPublicacao: in.AnoPublicacao,
		Descricao:     opcional(in.Descricao),
		Capa:          opcional(in.Capa),
		CriadoEm:      now,
		AtualizadoEm:  now,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if _, err := q.GetCategoria(ctx, obra.CategoriaID); err != nil {
			return asNotFound(err, "Categoria não encontrada")
		}
		if _, err := q.GetObraByISBN(ctx, obra.ISBN); err == nil {
			return conflict("ISBN já cadastrado")
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := q.InsertObra(ctx, obra); err != nil {
			return asConflict(err, "ISBN já cadastrado")
		}

		for i := 1; i <= in.TotalExemplares; i++ {
			ex := Exemplar{
				ID:           s.newID(),
				ObraID:       obra.ID,
				Codigo:       CodigoExemplar(obra.ID, i),
				Status:       ExemplarDisponivel,
				CriadoEm:     now,
				AtualizadoEm: now,
			}
			if err := q.InsertExemplar(ctx, ex); err != nil {
				return asConflict(err, "Código de exemplar já existe")
			}
		}

		var err error
		obra, err = q.RecontarExemplares(ctx, obra.ID)
		return err
	})
	if err != nil {
		return Obra{}, err
	}

	s.logger.Info().Str("obra_id", obra.ID.String()).Int("exemplares", obra.TotalExemplares).Msg("obra cadastrada")
	return obra, nil
}

func (s *Service) AtualizarObra(ctx context.Context, id uuid.UUID, in ObraUpdate) (Obra, error) {
	if err := in.validate(); err != nil {
		return Obra{}, err
	}

	var obra Obra
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		obra, err = q.LockObra(ctx, id)
		if err != nil {
			return asNotFound(err, "Obra não encontrada")
		}

		if in.ISBN != nil && trimmed(*in.ISBN) != obra.ISBN {
			isbn := trimmed(*in.ISBN)
			if outra, err := q.GetObraByISBN(ctx, isbn); err == nil && outra.ID != obra.ID {
				return conflict("ISBN já cadastrado")
			} else if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			obra.ISBN = isbn
		}
		if in.CategoriaID != nil && *in.CategoriaID != obra.CategoriaID {
			if _, err := q.GetCategoria(ctx, *in.CategoriaID); err != nil {
				return asNotFound(err, "Categoria não encontrada")
			}
			obra.CategoriaID = *in.CategoriaID
		}
		if in.Titulo != nil {
			obra.Titulo = trimmed(*in.Titulo)
		}
		if in.Autor != nil {
			obra.Autor = trimmed(*in.Autor)
		}
		if in.Editora != nil {
			obra.Editora = opcional(in.Editora)
		}
		if in.AnoPublicacao != nil {
			obra.AnoPublicacao = in.AnoPublicacao
		}
		if in.Descricao != nil {
			obra.Descricao = opcional(in.Descricao)
		}
		if in.Capa != nil {
			obra.Capa = opcional(in.Capa)
		}
		obra.AtualizadoEm = s.agora()

		return asConflict(q.UpdateObra(ctx, obra), "ISBN já cadastrado")
	})
	if err != nil {
		return Obra{}, err
	}
	return obra, nil
}

// RemoverObra apaga a obra com exemplares, empréstimos e reservas.
// Devolve a obra removida para que a capa possa ser descartada.
func (s *Service) RemoverObra(ctx context.Context, id uuid.UUID) (Obra, error) {
	var obra Obra
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		obra, err = q.LockObra(ctx, id)
		if err != nil {
			return asNotFound(err, "Obra não encontrada")
		}
		return asNotFound(q.DeleteObra(ctx, id), "Obra não encontrada")
	})
	if err != nil {
		return Obra{}, err
	}
	return obra, nil
}

// DefinirCapa grava o caminho da nova capa e devolve o anterior, se houver.
func (s *Service) DefinirCapa(ctx context.Context, id uuid.UUID, caminho string) (Obra, *string, error) {
	var (
		obra     Obra
		anterior *string
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		obra, err = q.LockObra(ctx, id)
		if err != nil {
			return asNotFound(err, "Obra não encontrada")
		}
		anterior = obra.Capa
		obra.Capa = &caminho
		obra.AtualizadoEm = s.agora()
		return asNotFound(q.UpdateObra(ctx, obra), "Obra não encontrada")
	})
	if err != nil {
		return Obra{}, nil, err
	}
	return obra, anterior, nil
}
