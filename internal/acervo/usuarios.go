package acervo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/veridian/biblioteca/internal/auth"
	"github.com/veridian/biblioteca/internal/events"
	"github.com/veridian/biblioteca/internal/util"
)

type UsuarioInput struct {
	Nome         string        `json:"nome"`
	CPF          string        `json:"cpf"`
	Email        string        `json:"email"`
	Senha        string        `json:"senha"`
	Telefone     *string       `json:"telefone"`
	Endereco     *string       `json:"endereco"`
	DataCadastro *Data         `json:"dataCadastro"`
	Status       StatusUsuario `json:"status"`
	Role         RoleUsuario   `json:"role"`
}

// UsuarioUpdate não permite trocar o CPF.
type UsuarioUpdate struct {
	Nome     *string        `json:"nome"`
	Email    *string        `json:"email"`
	Senha    *string        `json:"senha"`
	Telefone *string        `json:"telefone"`
	Endereco *string        `json:"endereco"`
	Status   *StatusUsuario `json:"status"`
	Role     *RoleUsuario   `json:"role"`
}

func normalizarEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in *UsuarioInput) validate() error {
	if err := checkLength(in.Nome, "nome", 3, 200); err != nil {
		return err
	}
	in.CPF = strings.TrimSpace(in.CPF)
	if err := util.ValidateCPF(in.CPF); err != nil {
		return validation("%s", err.Error())
	}
	if err := util.ValidateEmail(in.Email); err != nil {
		return validation("%s", err.Error())
	}
	if err := util.ValidatePassword(in.Senha); err != nil {
		return validation("%s", err.Error())
	}
	if in.Status == "" {
		in.Status = UsuarioAtivo
	}
	if !in.Status.Valid() {
		return validation("status inválido: %s", in.Status)
	}
	if in.Role == "" {
		in.Role = RoleUser
	}
	if !in.Role.Valid() {
		return validation("role inválida: %s", in.Role)
	}
	if err := checkOptionalLength(in.Telefone, "telefone", 20); err != nil {
		return err
	}
	return checkOptionalLength(in.Endereco, "endereco", 300)
}

func (in UsuarioUpdate) validate() error {
	if in.Nome != nil {
		if err := checkLength(*in.Nome, "nome", 3, 200); err != nil {
			return err
		}
	}
	if in.Email != nil {
		if err := util.ValidateEmail(*in.Email); err != nil {
			return validation("%s", err.Error())
		}
	}
	if in.Senha != nil {
		if err := util.ValidatePassword(*in.Senha); err != nil {
			return validation("%s", err.Error())
		}
	}
	if in.Status != nil && !in.Status.Valid() {
		return validation("status inválido: %s", *in.Status)
	}
	if in.Role != nil && !in.Role.Valid() {
		return validation("role inválida: %s", *in.Role)
	}
	if err := checkOptionalLength(in.Telefone, "telefone", 20); err != nil {
		return err
	}
	return checkOptionalLength(in.Endereco, "endereco", 300)
}

// checarUnicidade confere CPF e email antes da escrita; o índice único do
// banco continua sendo a garantia final.
func checarUnicidade(ctx context.Context, q Queries, id uuid.UUID, cpf, email string) error {
	if cpf != "" {
		if outro, err := q.GetUsuarioByCPF(ctx, cpf); err == nil && outro.ID != id {
			return conflict("CPF já cadastrado")
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if email != "" {
		if outro, err := q.GetUsuarioByEmail(ctx, email); err == nil && outro.ID != id {
			return conflict("Email já cadastrado")
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Service) novoUsuario(in UsuarioInput) (Usuario, error) {
	hash, err := s.hash(in.Senha)
	if err != nil {
		return Usuario{}, fmt.Errorf("hash de senha: %w", err)
	}
	dataCadastro := s.Hoje()
	if in.DataCadastro != nil {
		dataCadastro = *in.DataCadastro
	}
	now := s.agora()
	return Usuario{
		ID:           s.newID(),
		Nome:         trimmed(in.Nome),
		CPF:          in.CPF,
		Email:        normalizarEmail(in.Email),
		SenhaHash:    hash,
		Telefone:     opcional(in.Telefone),
		Endereco:     opcional(in.Endereco),
		DataCadastro: dataCadastro,
		Status:       in.Status,
		Role:         in.Role,
		CriadoEm:     now,
		AtualizadoEm: now,
	}, nil
}

func inserirUsuario(ctx context.Context, q Queries, u Usuario) error {
	if err := checarUnicidade(ctx, q, u.ID, u.CPF, u.Email); err != nil {
		return err
	}
	return asConflict(q.InsertUsuario(ctx, u), "CPF ou email já cadastrado")
}

func (s *Service) ListUsuarios(ctx context.Context, f FiltroUsuarios) ([]Usuario, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validation("status inválido: %s", f.Status)
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, validation("role inválida: %s", f.Role)
	}
	f.Paginacao = f.Paginacao.normalizar()
	var usuarios []Usuario
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		usuarios, err = q.ListUsuarios(ctx, f)
		return err
	})
	return usuarios, err
}

func (s *Service) GetUsuario(ctx context.Context, id uuid.UUID) (Usuario, error) {
	var u Usuario
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		u, err = q.GetUsuario(ctx, id)
		return asNotFound(err, "Usuário não encontrado")
	})
	return u, err
}

// CriarUsuario grava o usuário com a senha já transformada em hash; o hash
// é calculado antes de abrir a transação.
func (s *Service) CriarUsuario(ctx context.Context, in UsuarioInput) (Usuario, error) {
	if err := in.validate(); err != nil {
		return Usuario{}, err
	}
	u, err := s.novoUsuario(in)
	if err != nil {
		return Usuario{}, err
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		return inserirUsuario(ctx, q, u)
	})
	if err != nil {
		return Usuario{}, err
	}
	return u, nil
}

func (s *Service) AtualizarUsuario(ctx context.Context, id uuid.UUID, in UsuarioUpdate) (Usuario, error) {
	if err := in.validate(); err != nil {
		return Usuario{}, err
	}

	var novoHash string
	if in.Senha != nil {
		h, err := s.hash(*in.Senha)
		if err != nil {
			return Usuario{}, fmt.Errorf("hash de senha: %w", err)
		}
		novoHash = h
	}

	var u Usuario
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		u, err = q.GetUsuario(ctx, id)
		if err != nil {
			return asNotFound(err, "Usuário não encontrado")
		}

		if in.Email != nil && normalizarEmail(*in.Email) != u.Email {
			email := normalizarEmail(*in.Email)
			if err := checarUnicidade(ctx, q, u.ID, "", email); err != nil {
				return err
			}
			u.Email = email
		}
		if in.Role != nil && *in.Role != u.Role {
			switch *in.Role {
			case RoleUser:
				if _, err := q.GetAdministradorByUsuario(ctx, u.ID); err == nil {
					return invalidState("Remova o registro de administrador antes de alterar a role")
				} else if !errors.Is(err, ErrNotFound) {
					return err
				}
			case RoleAdmin:
			}
			u.Role = *in.Role
		}
		if in.Nome != nil {
			u.Nome = trimmed(*in.Nome)
		}
		if in.Telefone != nil {
			u.Telefone = opcional(in.Telefone)
		}
		if in.Endereco != nil {
			u.Endereco = opcional(in.Endereco)
		}
		if in.Status != nil {
			u.Status = *in.Status
		}
		if novoHash != "" {
			u.SenhaHash = novoHash
		}
		u.AtualizadoEm = s.agora()

		return asConflict(asNotFound(q.UpdateUsuario(ctx, u), "Usuário não encontrado"), "Email já cadastrado")
	})
	if err != nil {
		return Usuario{}, err
	}
	return u, nil
}

// Dependencias informa o que a remoção do usuário vai apagar junto.
func (s *Service) Dependencias(ctx context.Context, id uuid.UUID) (Dependencias, error) {
	var deps Dependencias
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if _, err := q.GetUsuario(ctx, id); err != nil {
			return asNotFound(err, "Usuário não encontrado")
		}
		var err error
		deps, err = q.ContarDependencias(ctx, id)
		return err
	})
	return deps, err
}

// RemoverUsuario apaga empréstimos, reservas, registro de administrador e o
// próprio usuário numa única transação. Exemplares de empréstimos em aberto
// não são liberados.
func (s *Service) RemoverUsuario(ctx context.Context, id uuid.UUID) (RemocaoUsuario, error) {
	var r RemocaoUsuario
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if _, err := q.GetUsuario(ctx, id); err != nil {
			return asNotFound(err, "Usuário não encontrado")
		}

		var err error
		if r.Emprestimos, err = q.DeleteEmprestimosByUsuario(ctx, id); err != nil {
			return fmt.Errorf("remover empréstimos: %w", err)
		}
		if r.Reservas, err = q.DeleteReservasByUsuario(ctx, id); err != nil {
			return fmt.Errorf("remover reservas: %w", err)
		}
		if r.Administrador, err = q.DeleteAdministradorByUsuario(ctx, id); err != nil {
			return fmt.Errorf("remover administrador: %w", err)
		}
		return asNotFound(q.DeleteUsuario(ctx, id), "Usuário não encontrado")
	})
	if err != nil {
		return RemocaoUsuario{}, err
	}

	s.logger.Info().
		Str("usuario_id", id.String()).
		Int64("emprestimos", r.Emprestimos).
		Int64("reservas", r.Reservas).
		Int64("administrador", r.Administrador).
		Msg("usuário removido")
	s.publish(ctx, events.UsuarioRemovido, "usuario", map[string]any{"id": id, "removidos": r})
	return r, nil
}

// Autenticar confere CPF e senha. Qualquer falha devolve
// ErrCredenciaisInvalidas para não revelar qual parte errou.
func (s *Service) Autenticar(ctx context.Context, cpf, senha string) (Usuario, error) {
	cpf = util.OnlyDigits(cpf)
	var u Usuario
	err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		var err error
		u, err = q.GetUsuarioByCPF(ctx, cpf)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Usuario{}, ErrCredenciaisInvalidas
	}
	if err != nil {
		return Usuario{}, err
	}

	ok, err := s.verify(senha, u.SenhaHash)
	if err != nil {
		s.logger.Warn().Err(err).Str("usuario_id", u.ID.String()).Msg("hash de senha ilegível")
		return Usuario{}, ErrCredenciaisInvalidas
	}
	if !ok || u.Status != UsuarioAtivo {
		return Usuario{}, ErrCredenciaisInvalidas
	}
	if antigo, err := auth.NeedsRehash(u.SenhaHash); err == nil && antigo {
		s.logger.Info().Str("usuario_id", u.ID.String()).Msg("hash de senha com parâmetros antigos")
	}
	return u, nil
}

// CriarUsuarioAdministrador cria o usuário com role admin e o registro de
// administrador na mesma transação.
func (s *Service) CriarUsuarioAdministrador(ctx context.Context, in UsuarioInput, nivel int) (Usuario, Administrador, error) {
	in.Role = RoleAdmin
	if err := in.validate(); err != nil {
		return Usuario{}, Administrador{}, err
	}
	if err := validarNivel(nivel); err != nil {
		return Usuario{}, Administrador{}, err
	}
	u, err := s.novoUsuario(in)
	if err != nil {
		return Usuario{}, Administrador{}, err
	}
	adm := Administrador{
		ID:          s.newID(),
		UsuarioID:   u.ID,
		NivelAcesso: nivel,
		CriadoEm:    u.CriadoEm,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
		if err := inserirUsuario(ctx, q, u); err != nil {
			return err
		}
		return asConflict(q.InsertAdministrador(ctx, adm), "Usuário já é administrador")
	})
	if err != nil {
		return Usuario{}, Administrador{}, err
	}
	return u, adm, nil
}
