package acervo

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

const (
	nivelBasico = 1
	nivelTotal  = 3
)

type AdministradorInput struct {
	UsuarioID   uuid.UUID `json:"usuarioId"`
	NivelAcesso *int      `json:"nivelAcesso"`
}

type AdministradorUpdate struct {
	NivelAcesso *int `json:"nivelAcesso"`
}

func validarNivel(n int) error {
	if n < nivelBasico || n > nivelTotal {
		return validation("nivelAcesso deve estar entre %d e %d", nivelBasico, nivelTotal)
	}
	return nil
}

func (s *Service) ListAdministradores(ctx context.Context, p Paginacao) ([]Administrador, error) {
	p = p.normalizar()
	var admins []Administrador
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		admins, err = q.ListAdministradores(ctx, p)
		return err
	})
	return admins, err
}

func (s *Service) GetAdministrador(ctx context.Context, id uuid.UUID) (Administrador, error) {
	var a Administrador
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		a, err = q.GetAdministrador(ctx, id)
		return asNotFound(err, "Administrador não encontrado")
	})
	return a, err
}

// CriarAdministrador exige usuário existente com role admin e sem registro prévio.
func (s *Service) CriarAdministrador(ctx context.Context, in AdministradorInput) (Administrador, error) {
	if in.UsuarioID == uuid.Nil {
		return Administrador{}, validation("usuarioId obrigatório")
	}
	nivel := nivelBasico
	if in.NivelAcesso != nil {
		nivel = *in.NivelAcesso
	}
	if err := validarNivel(nivel); err != nil {
		return Administrador{}, err
	}

	a := Administrador{
		ID:          s.newID(),
		UsuarioID:   in.UsuarioID,
		NivelAcesso: nivel,
		CriadoEm:    s.agora(),
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		u, err := q.GetUsuario(ctx, in.UsuarioID)
		if err != nil {
			return asNotFound(err, "Usuário não encontrado")
		}
		switch u.Role {
		case RoleAdmin:
		case RoleUser:
			return invalidState("Usuário precisa ter role 'admin'")
		default:
			return invalidState("Usuário precisa ter role 'admin'")
		}
		if _, err := q.GetAdministradorByUsuario(ctx, u.ID); err == nil {
			return invalidState("Usuário já é administrador")
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := q.InsertAdministrador(ctx, a); err != nil {
			if errors.Is(err, ErrConflict) {
				return invalidState("Usuário já é administrador")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Administrador{}, err
	}
	return a, nil
}

func (s *Service) AtualizarAdministrador(ctx context.Context, id uuid.UUID, in AdministradorUpdate) (Administrador, error) {
	if in.NivelAcesso != nil {
		if err := validarNivel(*in.NivelAcesso); err != nil {
			return Administrador{}, err
		}
	}
	var a Administrador
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		a, err = q.GetAdministrador(ctx, id)
		if err != nil {
			return asNotFound(err, "Administrador não encontrado")
		}
		if in.NivelAcesso != nil {
			a.NivelAcesso = *in.NivelAcesso
		}
		return asNotFound(q.UpdateAdministrador(ctx, a), "Administrador não encontrado")
	})
	if err != nil {
		return Administrador{}, err
	}
	return a, nil
}

// RemoverAdministrador apaga só o registro; o usuário permanece.
func (s *Service) RemoverAdministrador(ctx context.Context, id uuid.UUID) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		return asNotFound(q.DeleteAdministrador(ctx, id), "Administrador não encontrado")
	})
}
