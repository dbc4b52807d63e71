package acervo

import (
	"context"

	"github.com/google/uuid"

	"github.com/veridian/biblioteca/internal/events"
)

type EmprestimoInput struct {
	UsuarioID             uuid.UUID        `json:"usuarioId"`
	ExemplarID            uuid.UUID        `json:"exemplarId"`
	ObraID                uuid.UUID        `json:"obraId"`
	DataEmprestimo        *Data            `json:"dataEmprestimo"`
	DataPrevistaDevolucao *Data            `json:"dataPrevistaDevolucao"`
	Status                StatusEmprestimo `json:"status"`
}

// EmprestimoUpdate informar dataDevolucao registra a devolução.
type EmprestimoUpdate struct {
	DataPrevistaDevolucao *Data             `json:"dataPrevistaDevolucao"`
	DataDevolucao         *Data             `json:"dataDevolucao"`
	Status                *StatusEmprestimo `json:"status"`
	Renovacoes            *int              `json:"renovacoes"`
}

func (in EmprestimoInput) validate() error {
	if in.UsuarioID == uuid.Nil {
		return validation("usuarioId obrigatório")
	}
	if in.ExemplarID == uuid.Nil {
		return validation("exemplarId obrigatório")
	}
	switch in.Status {
	case "", EmprestimoAtivo, EmprestimoAtrasado:
	case EmprestimoDevolvido:
		return validation("empréstimo não pode ser criado como devolvido")
	default:
		return validation("status inválido: %s", in.Status)
	}
	return nil
}

func (in EmprestimoUpdate) validate() error {
	if in.Status != nil && !in.Status.Valid() {
		return validation("status inválido: %s", *in.Status)
	}
	if in.Status != nil && *in.Status == EmprestimoDevolvido && in.DataDevolucao == nil {
		return validation("dataDevolucao obrigatória para status devolvido")
	}
	if in.Renovacoes != nil && *in.Renovacoes < 0 {
		return validation("renovacoes não pode ser negativo")
	}
	return nil
}

// varrerAtrasados aplica a transição ativo -> atrasado antes de qualquer leitura.
func (s *Service) varrerAtrasados(ctx context.Context, q Queries) error {
	n, err := q.MarcarAtrasados(ctx, s.Hoje())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info().Int64("quantidade", n).Msg("empréstimos marcados como atrasados")
	}
	return nil
}

func (s *Service) ListEmprestimos(ctx context.Context, f FiltroEmprestimos) ([]Emprestimo, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validation("status inválido: %s", f.Status)
	}
	f.Paginacao = f.Paginacao.normalizar()
	var emprestimos []Emprestimo
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if err := s.varrerAtrasados(ctx, q); err != nil {
			return err
		}
		var err error
		emprestimos, err = q.ListEmprestimos(ctx, f)
		return err
	})
	return emprestimos, err
}

func (s *Service) GetEmprestimo(ctx context.Context, id uuid.UUID) (Emprestimo, error) {
	var e Emprestimo
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if err := s.varrerAtrasados(ctx, q); err != nil {
			return err
		}
		var err error
		e, err = q.GetEmprestimo(ctx, id)
		return asNotFound(err, "Empréstimo não encontrado")
	})
	return e, err
}

// AtualizarAtrasados executa a varredura fora de uma leitura; usado pelo monitor.
func (s *Service) AtualizarAtrasados(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		n, err = q.MarcarAtrasados(ctx, s.Hoje())
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publish(ctx, events.EmprestimosAtrasados, "emprestimo", map[string]int64{"quantidade": n})
	}
	return n, nil
}

// CriarEmprestimo empresta um exemplar disponível a um usuário ativo.
// A obra é travada antes do exemplar, e o exemplar antes da checagem de
// disponibilidade, para que dois pedidos pela última cópia não passem juntos.
func (s *Service) CriarEmprestimo(ctx context.Context, in EmprestimoInput) (Emprestimo, error) {
	if err := in.validate(); err != nil {
		return Emprestimo{}, err
	}

	hoje := s.Hoje()
	dataEmprestimo := hoje
	if in.DataEmprestimo != nil {
		dataEmprestimo = *in.DataEmprestimo
	}
	prevista := dataEmprestimo.AddDias(s.cfg.PrazoEmprestimoDias)
	if in.DataPrevistaDevolucao != nil {
		prevista = *in.DataPrevistaDevolucao
	}
	if prevista.Before(dataEmprestimo) {
		return Emprestimo{}, validation("dataPrevistaDevolucao não pode ser anterior a dataEmprestimo")
	}
	status := in.Status
	if status == "" {
		status = EmprestimoAtivo
	}

	now := s.agora()
	emp := Emprestimo{
		ID:                    s.newID(),
		UsuarioID:             in.UsuarioID,
		ExemplarID:            in.ExemplarID,
		DataEmprestimo:        dataEmprestimo,
		DataPrevistaDevolucao: prevista,
		Status:                status,
		CriadoEm:              now,
		AtualizadoEm:          now,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		usuario, err := q.GetUsuario(ctx, in.UsuarioID)
		if err != nil {
			return asNotFound(err, "Usuário não encontrado")
		}
		if usuario.Status != UsuarioAtivo {
			return invalidState("Usuário está inativo ou suspenso")
		}

		ex, err := q.GetExemplar(ctx, in.ExemplarID)
		if err != nil {
			return asNotFound(err, "Exemplar não encontrado")
		}
		if err := lockObras(ctx, q, ex.ObraID); err != nil {
			return err
		}
		ex, err = q.LockExemplar(ctx, in.ExemplarID)
		if err != nil {
			return asNotFound(err, "Exemplar não encontrado")
		}
		if ex.Status != ExemplarDisponivel {
			return invalidState("Exemplar não está disponível")
		}

		if in.ObraID != uuid.Nil && in.ObraID != ex.ObraID {
			if _, err := q.GetObra(ctx, in.ObraID); err != nil {
				return asNotFound(err, "Obra não encontrada")
			}
			return validation("Exemplar não pertence à obra informada")
		}
		emp.ObraID = ex.ObraID

		if err := q.InsertEmprestimo(ctx, emp); err != nil {
			return err
		}
		ex.Status = ExemplarEmprestado
		ex.AtualizadoEm = now
		if err := q.UpdateExemplar(ctx, ex); err != nil {
			return err
		}
		return recontar(ctx, q, ex.ObraID)
	})
	if err != nil {
		return Emprestimo{}, err
	}

	s.logger.Info().
		Str("emprestimo_id", emp.ID.String()).
		Str("exemplar_id", emp.ExemplarID.String()).
		Str("usuario_id", emp.UsuarioID.String()).
		Msg("empréstimo registrado")
	s.publish(ctx, events.EmprestimoCriado, "emprestimo", emp)
	return emp, nil
}

// AtualizarEmprestimo grava os campos informados. Informar dataDevolucao
// encerra o empréstimo: status devolvido, exemplar disponível e contadores
// da obra recalculados, tudo na mesma transação.
func (s *Service) AtualizarEmprestimo(ctx context.Context, id uuid.UUID, in EmprestimoUpdate) (Emprestimo, error) {
	if err := in.validate(); err != nil {
		return Emprestimo{}, err
	}

	var (
		emp      Emprestimo
		devolveu bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		emp, err = q.LockEmprestimo(ctx, id)
		if err != nil {
			return asNotFound(err, "Empréstimo não encontrado")
		}

		switch emp.Status {
		case EmprestimoDevolvido:
			if in.DataDevolucao != nil {
				return invalidState("Empréstimo já foi devolvido")
			}
			if in.Status != nil && *in.Status != EmprestimoDevolvido {
				return invalidState("Empréstimo devolvido não pode ser reaberto")
			}
		case EmprestimoAtivo, EmprestimoAtrasado:
		default:
			return invalidState("status de empréstimo desconhecido")
		}

		if in.DataPrevistaDevolucao != nil {
			if in.DataPrevistaDevolucao.Before(emp.DataEmprestimo) {
				return validation("dataPrevistaDevolucao não pode ser anterior a dataEmprestimo")
			}
			emp.DataPrevistaDevolucao = *in.DataPrevistaDevolucao
		}
		if in.Renovacoes != nil {
			emp.Renovacoes = *in.Renovacoes
		}
		if in.Status != nil {
			emp.Status = *in.Status
		}
		emp.AtualizadoEm = s.agora()

		if in.DataDevolucao == nil {
			return asNotFound(q.UpdateEmprestimo(ctx, emp), "Empréstimo não encontrado")
		}

		if in.DataDevolucao.Before(emp.DataEmprestimo) {
			return validation("dataDevolucao não pode ser anterior a dataEmprestimo")
		}
		devolucao := *in.DataDevolucao
		emp.DataDevolucao = &devolucao
		emp.Status = EmprestimoDevolvido
		devolveu = true

		if err := lockObras(ctx, q, emp.ObraID); err != nil {
			return err
		}
		ex, err := q.LockExemplar(ctx, emp.ExemplarID)
		if err != nil {
			return asNotFound(err, "Exemplar não encontrado")
		}
		if err := q.UpdateEmprestimo(ctx, emp); err != nil {
			return asNotFound(err, "Empréstimo não encontrado")
		}
		ex.Status = ExemplarDisponivel
		ex.AtualizadoEm = emp.AtualizadoEm
		if err := q.UpdateExemplar(ctx, ex); err != nil {
			return err
		}
		return recontar(ctx, q, ex.ObraID)
	})
	if err != nil {
		return Emprestimo{}, err
	}

	if devolveu {
		s.logger.Info().Str("emprestimo_id", emp.ID.String()).Msg("devolução registrada")
		s.publish(ctx, events.EmprestimoDevolvido, "emprestimo", emp)
	}
	return emp, nil
}

// Devolver registra a devolução na data informada ou hoje.
func (s *Service) Devolver(ctx context.Context, id uuid.UUID, data *Data) (Emprestimo, error) {
	d := s.Hoje()
	if data != nil {
		d = *data
	}
	return s.AtualizarEmprestimo(ctx, id, EmprestimoUpdate{DataDevolucao: &d})
}

// Renovar estende o prazo a partir do maior entre hoje e o prazo atual.
func (s *Service) Renovar(ctx context.Context, id uuid.UUID) (Emprestimo, error) {
	var emp Emprestimo
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		emp, err = q.LockEmprestimo(ctx, id)
		if err != nil {
			return asNotFound(err, "Empréstimo não encontrado")
		}
		if !emp.Status.Aberto() {
			return invalidState("Empréstimo já foi devolvido")
		}
		if s.cfg.MaxRenovacoes > 0 && emp.Renovacoes >= s.cfg.MaxRenovacoes {
			return invalidState("Limite de renovações atingido")
		}

		base := s.Hoje()
		if emp.DataPrevistaDevolucao.After(base) {
			base = emp.DataPrevistaDevolucao
		}
		emp.DataPrevistaDevolucao = base.AddDias(s.cfg.PrazoEmprestimoDias)
		emp.Renovacoes++
		emp.Status = EmprestimoAtivo
		emp.AtualizadoEm = s.agora()
		return asNotFound(q.UpdateEmprestimo(ctx, emp), "Empréstimo não encontrado")
	})
	if err != nil {
		return Emprestimo{}, err
	}

	s.publish(ctx, events.EmprestimoRenovado, "emprestimo", emp)
	return emp, nil
}

// RemoverEmprestimo apaga apenas o registro: exemplar e contadores da obra
// ficam como estavam.
func (s *Service) RemoverEmprestimo(ctx context.Context, id uuid.UUID) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		return asNotFound(q.DeleteEmprestimo(ctx, id), "Empréstimo não encontrado")
	})
}
