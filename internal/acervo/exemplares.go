package acervo

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
)

type ExemplarInput struct {
	ObraID      uuid.UUID      `json:"obraId"`
	Codigo      string         `json:"codigo"`
	Status      StatusExemplar `json:"status"`
	Localizacao *string        `json:"localizacao"`
}

type ExemplarUpdate struct {
	ObraID      *uuid.UUID      `json:"obraId"`
	Codigo      *string         `json:"codigo"`
	Status      *StatusExemplar `json:"status"`
	Localizacao *string         `json:"localizacao"`
}

func (in *ExemplarInput) validate() error {
	if in.ObraID == uuid.Nil {
		return validation("obraId obrigatório")
	}
	if err := checkLength(in.Codigo, "codigo", 1, 50); err != nil {
		return err
	}
	if in.Status == "" {
		in.Status = ExemplarDisponivel
	}
	if !in.Status.Valid() {
		return validation("status inválido: %s", in.Status)
	}
	return checkOptionalLength(in.Localizacao, "localizacao", 100)
}

func (in ExemplarUpdate) validate() error {
	if in.Codigo != nil {
		if err := checkLength(*in.Codigo, "codigo", 1, 50); err != nil {
			return err
		}
	}
	if in.Status != nil && !in.Status.Valid() {
		return validation("status inválido: %s", *in.Status)
	}
	return checkOptionalLength(in.Localizacao, "localizacao", 100)
}

// lockObras trava as obras em ordem estável de id para evitar deadlock
// entre transações que mexem em duas obras.
func lockObras(ctx context.Context, q Queries, ids ...uuid.UUID) error {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].String() < unique[j].String() })

	for _, id := range unique {
		if _, err := q.LockObra(ctx, id); err != nil {
			return asNotFound(err, "Obra não encontrada")
		}
	}
	return nil
}

// recontar recalcula os contadores das obras afetadas dentro da transação.
func recontar(ctx context.Context, q Queries, ids ...uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := q.RecontarExemplares(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// checarMudancaStatus impede que um exemplar com empréstimo em aberto
// saia de "emprestado" por edição direta; a devolução é o único caminho.
func checarMudancaStatus(atual, novo StatusExemplar, emprestimosAbertos int) error {
	if atual == novo {
		return nil
	}
	switch atual {
	case ExemplarEmprestado:
		if emprestimosAbertos > 0 {
			return invalidState("Exemplar possui empréstimo em aberto; registre a devolução")
		}
	case ExemplarDisponivel, ExemplarReservado, ExemplarManutencao:
	default:
		return validation("status inválido: %s", atual)
	}
	return nil
}

func (s *Service) ListExemplares(ctx context.Context, f FiltroExemplares) ([]Exemplar, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validation("status inválido: %s", f.Status)
	}
	f.Paginacao = f.Paginacao.normalizar()
	var exemplares []Exemplar
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if f.ObraID != nil {
			if _, err := q.GetObra(ctx, *f.ObraID); err != nil {
				return asNotFound(err, "Obra não encontrada")
			}
		}
		var err error
		exemplares, err = q.ListExemplares(ctx, f)
		return err
	})
	return exemplares, err
}

func (s *Service) GetExemplar(ctx context.Context, id uuid.UUID) (Exemplar, error) {
	var ex Exemplar
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		ex, err = q.GetExemplar(ctx, id)
		return asNotFound(err, "Exemplar não encontrado")
	})
	return ex, err
}

// CriarExemplar adiciona uma cópia e recalcula os contadores da obra.
func (s *Service) CriarExemplar(ctx context.Context, in ExemplarInput) (Exemplar, error) {
	if err := in.validate(); err != nil {
		return Exemplar{}, err
	}

	now := s.agora()
	ex := Exemplar{
		ID:           s.newID(),
		ObraID:       in.ObraID,
		Codigo:       trimmed(in.Codigo),
		Status:       in.Status,
		Localizacao:  opcional(in.Localizacao),
		CriadoEm:     now,
		AtualizadoEm: now,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if err := lockObras(ctx, q, ex.ObraID); err != nil {
			return err
		}
		if _, err := q.GetExemplarByCodigo(ctx, ex.Codigo); err == nil {
			return conflict("Código de exemplar já existe")
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := q.InsertExemplar(ctx, ex); err != nil {
			return asConflict(err, "Código de exemplar já existe")
		}
		return recontar(ctx, q, ex.ObraID)
	})
	if err != nil {
		return Exemplar{}, err
	}
	return ex, nil
}

// AtualizarExemplar aplica edição parcial; troca de status ou de obra
// recalcula os contadores de todas as obras envolvidas.
func (s *Service) AtualizarExemplar(ctx context.Context, id uuid.UUID, in ExemplarUpdate) (Exemplar, error) {
	if err := in.validate(); err != nil {
		return Exemplar{}, err
	}

	var ex Exemplar
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		atual, err := q.GetExemplar(ctx, id)
		if err != nil {
			return asNotFound(err, "Exemplar não encontrado")
		}

		obras := []uuid.UUID{atual.ObraID}
		if in.ObraID != nil && *in.ObraID != atual.ObraID {
			obras = append(obras, *in.ObraID)
		}
		if err := lockObras(ctx, q, obras...); err != nil {
			return err
		}

		ex, err = q.LockExemplar(ctx, id)
		if err != nil {
			return asNotFound(err, "Exemplar não encontrado")
		}
		anterior := ex.ObraID

		novoStatus := ex.Status
		if in.Status != nil {
			novoStatus = *in.Status
		}
		mudaObra := in.ObraID != nil && *in.ObraID != ex.ObraID
		if novoStatus != ex.Status || mudaObra {
			abertos, err := q.CountEmprestimosAbertos(ctx, ex.ID)
			if err != nil {
				return err
			}
			if mudaObra && abertos > 0 {
				return invalidState("Exemplar possui empréstimo em aberto; registre a devolução")
			}
			if err := checarMudancaStatus(ex.Status, novoStatus, abertos); err != nil {
				return err
			}
		}

		if in.Codigo != nil && trimmed(*in.Codigo) != ex.Codigo {
			codigo := trimmed(*in.Codigo)
			if outro, err := q.GetExemplarByCodigo(ctx, codigo); err == nil && outro.ID != ex.ID {
				return conflict("Código de exemplar já existe")
			} else if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			ex.Codigo = codigo
		}
		if mudaObra {
			ex.ObraID = *in.ObraID
		}
		if in.Localizacao != nil {
			ex.Localizacao = opcional(in.Localizacao)
		}
		ex.Status = novoStatus
		ex.AtualizadoEm = s.agora()

		if err := q.UpdateExemplar(ctx, ex); err != nil {
			return asConflict(asNotFound(err, "Exemplar não encontrado"), "Código de exemplar já existe")
		}
		return recontar(ctx, q, anterior, ex.ObraID)
	})
	if err != nil {
		return Exemplar{}, err
	}
	return ex, nil
}

// RemoverExemplar apaga a cópia (e, por cascata, seus empréstimos) e
// recalcula os contadores da obra.
func (s *Service) RemoverExemplar(ctx context.Context, id uuid.UUID) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		ex, err := q.GetExemplar(ctx, id)
		if err != nil {
			return asNotFound(err, "Exemplar não encontrado")
		}
		if err := lockObras(ctx, q, ex.ObraID); err != nil {
			return err
		}
		if err := q.DeleteExemplar(ctx, id); err != nil {
			return asNotFound(err, "Exemplar não encontrado")
		}
		return recontar(ctx, q, ex.ObraID)
	})
}
