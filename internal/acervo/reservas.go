package acervo

import (
	"context"

	"github.com/google/uuid"
)

type ReservaInput struct {
	UsuarioID     uuid.UUID `json:"usuarioId"`
	ObraID        uuid.UUID `json:"obraId"`
	DataReserva   *Data     `json:"dataReserva"`
	DataExpiracao *Data     `json:"dataExpiracao"`
}

type ReservaUpdate struct {
	Status        *StatusReserva `json:"status"`
	DataExpiracao *Data          `json:"dataExpiracao"`
}

// transicaoReserva: só reservas ativas mudam de status.
func transicaoReserva(atual, novo StatusReserva) error {
	if atual == novo {
		return nil
	}
	switch atual {
	case ReservaAtiva:
		return nil
	case ReservaCancelada, ReservaConcluida:
		return invalidState("Reserva já encerrada")
	}
	return validation("status inválido: %s", atual)
}

func (s *Service) ListReservas(ctx context.Context, f FiltroReservas) ([]Reserva, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validation("status inválido: %s", f.Status)
	}
	f.Paginacao = f.Paginacao.normalizar()
	var reservas []Reserva
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		reservas, err = q.ListReservas(ctx, f)
		return err
	})
	return reservas, err
}

func (s *Service) GetReserva(ctx context.Context, id uuid.UUID) (Reserva, error) {
	var r Reserva
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		r, err = q.GetReserva(ctx, id)
		return asNotFound(err, "Reserva não encontrada")
	})
	return r, err
}

func (s *Service) CriarReserva(ctx context.Context, in ReservaInput) (Reserva, error) {
	if in.UsuarioID == uuid.Nil {
		return Reserva{}, validation("usuarioId obrigatório")
	}
	if in.ObraID == uuid.Nil {
		return Reserva{}, validation("obraId obrigatório")
	}
	dataReserva := s.Hoje()
	if in.DataReserva != nil {
		dataReserva = *in.DataReserva
	}
	expiracao := dataReserva.AddDias(s.cfg.ValidadeReservaDias)
	if in.DataExpiracao != nil {
		expiracao = *in.DataExpiracao
	}
	if expiracao.Before(dataReserva) {
		return Reserva{}, validation("dataExpiracao não pode ser anterior a dataReserva")
	}

	now := s.agora()
	r := Reserva{
		ID:            s.newID(),
		UsuarioID:     in.UsuarioID,
		ObraID:        in.ObraID,
		DataReserva:   dataReserva,
		DataExpiracao: expiracao,
		Status:        ReservaAtiva,
		CriadoEm:      now,
		AtualizadoEm:  now,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if _, err := q.GetUsuario(ctx, in.UsuarioID); err != nil {
			return asNotFound(err, "Usuário não encontrado")
		}
		if _, err := q.GetObra(ctx, in.ObraID); err != nil {
			return asNotFound(err, "Obra não encontrada")
		}
		return q.InsertReserva(ctx, r)
	})
	if err != nil {
		return Reserva{}, err
	}
	return r, nil
}

func (s *Service) AtualizarReserva(ctx context.Context, id uuid.UUID, in ReservaUpdate) (Reserva, error) {
	if in.Status != nil && !in.Status.Valid() {
		return Reserva{}, validation("status inválido: %s", *in.Status)
	}
	var r Reserva
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		r, err = q.GetReserva(ctx, id)
		if err != nil {
			return asNotFound(err, "Reserva não encontrada")
		}
		if in.Status != nil {
			if err := transicaoReserva(r.Status, *in.Status); err != nil {
				return err
			}
			r.Status = *in.Status
		}
		if in.DataExpiracao != nil {
			if in.DataExpiracao.Before(r.DataReserva) {
				return validation("dataExpiracao não pode ser anterior a dataReserva")
			}
			r.DataExpiracao = *in.DataExpiracao
		}
		r.AtualizadoEm = s.agora()
		return asNotFound(q.UpdateReserva(ctx, r), "Reserva não encontrada")
	})
	if err != nil {
		return Reserva{}, err
	}
	return r, nil
}

func (s *Service) RemoverReserva(ctx context.Context, id uuid.UUID) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		return asNotFound(q.DeleteReserva(ctx, id), "Reserva não encontrada")
	})
}
