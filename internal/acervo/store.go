package acervo

import (
	"context"

	"github.com/google/uuid"
)

const (
	limitePadrao = 100
	limiteMaximo = 500
)

// Store abre uma unidade de trabalho por requisição.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}

// Paginacao limita listagens; Limit zero usa o padrão.
type Paginacao struct {
	Limit  int
	Offset int
}

func (p Paginacao) normalizar() Paginacao {
	if p.Limit <= 0 {
		p.Limit = limitePadrao
	}
	if p.Limit > limiteMaximo {
		p.Limit = limiteMaximo
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type FiltroObras struct {
	CategoriaID *uuid.UUID
	Busca       string
	Paginacao
}

type FiltroExemplares struct {
	ObraID *uuid.UUID
	Status StatusExemplar
	Paginacao
}

type FiltroEmprestimos struct {
	UsuarioID *uuid.UUID
	ObraID    *uuid.UUID
	Status    StatusEmprestimo
	Paginacao
}

type FiltroUsuarios struct {
	Status StatusUsuario
	Role   RoleUsuario
	Paginacao
}

type FiltroReservas struct {
	UsuarioID *uuid.UUID
	ObraID    *uuid.UUID
	Status    StatusReserva
	Paginacao
}

// Queries são as operações de linha disponíveis dentro de uma transação.
// Update e Delete devolvem ErrNotFound quando nenhuma linha é afetada;
// Insert e Update devolvem ErrConflict em violação de unicidade.
type Queries interface {
	ListCategorias(ctx context.Context, p Paginacao) ([]Categoria, error)
	GetCategoria(ctx context.Context, id uuid.UUID) (Categoria, error)
	GetCategoriaByNome(ctx context.Context, nome string) (Categoria, error)
	InsertCategoria(ctx context.Context, c Categoria) error
	UpdateCategoria(ctx context.Context, c Categoria) error
	DeleteCategoria(ctx context.Context, id uuid.UUID) error
	CountObrasByCategoria(ctx context.Context, id uuid.UUID) (int, error)

	ListObras(ctx context.Context, f FiltroObras) ([]Obra, error)
	GetObra(ctx context.Context, id uuid.UUID) (Obra, error)
	LockObra(ctx context.Context, id uuid.UUID) (Obra, error)
	GetObraByISBN(ctx context.Context, isbn string) (Obra, error)
	InsertObra(ctx context.Context, o Obra) error
	UpdateObra(ctx context.Context, o Obra) error
	DeleteObra(ctx context.Context, id uuid.UUID) error
	RecontarExemplares(ctx context.Context, obraID uuid.UUID) (Obra, error)

	ListExemplares(ctx context.Context, f FiltroExemplares) ([]Exemplar, error)
	GetExemplar(ctx context.Context, id uuid.UUID) (Exemplar, error)
	LockExemplar(ctx context.Context, id uuid.UUID) (Exemplar, error)
	GetExemplarByCodigo(ctx context.Context, codigo string) (Exemplar, error)
	InsertExemplar(ctx context.Context, e Exemplar) error
	UpdateExemplar(ctx context.Context, e Exemplar) error
	DeleteExemplar(ctx context.Context, id uuid.UUID) error

	ListUsuarios(ctx context.Context, f FiltroUsuarios) ([]Usuario, error)
	GetUsuario(ctx context.Context, id uuid.UUID) (Usuario, error)
	GetUsuarioByCPF(ctx context.Context, cpf string) (Usuario, error)
	GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error)
	InsertUsuario(ctx context.Context, u Usuario) error
	UpdateUsuario(ctx context.Context, u Usuario) error
	DeleteUsuario(ctx context.Context, id uuid.UUID) error
	ContarDependencias(ctx context.Context, usuarioID uuid.UUID) (Dependencias, error)
	DeleteEmprestimosByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error)
	DeleteReservasByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error)
	DeleteAdministradorByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error)

	ListAdministradores(ctx context.Context, p Paginacao) ([]Administrador, error)
	GetAdministrador(ctx context.Context, id uuid.UUID) (Administrador, error)
	GetAdministradorByUsuario(ctx context.Context, usuarioID uuid.UUID) (Administrador, error)
	InsertAdministrador(ctx context.Context, a Administrador) error
	UpdateAdministrador(ctx context.Context, a Administrador) error
	DeleteAdministrador(ctx context.Context, id uuid.UUID) error

	ListEmprestimos(ctx context.Context, f FiltroEmprestimos) ([]Emprestimo, error)
	GetEmprestimo(ctx context.Context, id uuid.UUID) (Emprestimo, error)
	LockEmprestimo(ctx context.Context, id uuid.UUID) (Emprestimo, error)
	CountEmprestimosAbertos(ctx context.Context, exemplarID uuid.UUID) (int, error)
	InsertEmprestimo(ctx context.Context, e Emprestimo) error
	UpdateEmprestimo(ctx context.Context, e Emprestimo) error
	DeleteEmprestimo(ctx context.Context, id uuid.UUID) error
	MarcarAtrasados(ctx context.Context, hoje Data) (int64, error)

	ListReservas(ctx context.Context, f FiltroReservas) ([]Reserva, error)
	GetReserva(ctx context.Context, id uuid.UUID) (Reserva, error)
	InsertReserva(ctx context.Context, r Reserva) error
	UpdateReserva(ctx context.Context, r Reserva) error
	DeleteReserva(ctx context.Context, id uuid.UUID) error
}
