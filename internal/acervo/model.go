package acervo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const layoutData = "2006-01-02"

// Data é uma data civil, sem horário nem fuso, trafegada como YYYY-MM-DD.
type Data struct {
	Ano int
	Mes time.Month
	Dia int
}

// NovaData extrai a data civil do instante no fuso do próprio instante.
func NovaData(t time.Time) Data {
	y, m, d := t.Date()
	return Data{Ano: y, Mes: m, Dia: d}
}

// ParseData interpreta YYYY-MM-DD.
func ParseData(s string) (Data, error) {
	t, err := time.Parse(layoutData, strings.TrimSpace(s))
	if err != nil {
		return Data{}, fmt.Errorf("data inválida %q, use AAAA-MM-DD", s)
	}
	return NovaData(t), nil
}

func (d Data) Time() time.Time {
	return time.Date(d.Ano, d.Mes, d.Dia, 0, 0, 0, 0, time.UTC)
}

func (d Data) IsZero() bool { return d == Data{} }

func (d Data) Before(o Data) bool { return d.Time().Before(o.Time()) }

func (d Data) After(o Data) bool { return d.Time().After(o.Time()) }

func (d Data) AddDias(n int) Data { return NovaData(d.Time().AddDate(0, 0, n)) }

func (d Data) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Ano, int(d.Mes), d.Dia)
}

// MarshalJSON grava a data zero como null.
func (d Data) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Data) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*d = Data{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("data deve ser texto no formato AAAA-MM-DD")
	}
	parsed, err := ParseData(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// StatusExemplar indica a situação física de um exemplar.
type StatusExemplar string

const (
	ExemplarDisponivel StatusExemplar = "disponivel"
	ExemplarEmprestado StatusExemplar = "emprestado"
	ExemplarReservado  StatusExemplar = "reservado"
	ExemplarManutencao StatusExemplar = "manutencao"
)

func (s StatusExemplar) Valid() bool {
	switch s {
	case ExemplarDisponivel, ExemplarEmprestado, ExemplarReservado, ExemplarManutencao:
		return true
	}
	return false
}

// StatusEmprestimo segue ativo -> atrasado -> devolvido; devolvido é terminal.
type StatusEmprestimo string

const (
	EmprestimoAtivo     StatusEmprestimo = "ativo"
	EmprestimoAtrasado  StatusEmprestimo = "atrasado"
	EmprestimoDevolvido StatusEmprestimo = "devolvido"
)

func (s StatusEmprestimo) Valid() bool {
	switch s {
	case EmprestimoAtivo, EmprestimoAtrasado, EmprestimoDevolvido:
		return true
	}
	return false
}

// Aberto indica empréstimo ainda em posse do usuário.
func (s StatusEmprestimo) Aberto() bool {
	switch s {
	case EmprestimoAtivo, EmprestimoAtrasado:
		return true
	case EmprestimoDevolvido:
		return false
	}
	return false
}

type StatusUsuario string

const (
	UsuarioAtivo    StatusUsuario = "ativo"
	UsuarioInativo  StatusUsuario = "inativo"
	UsuarioSuspenso StatusUsuario = "suspenso"
)

func (s StatusUsuario) Valid() bool {
	switch s {
	case UsuarioAtivo, UsuarioInativo, UsuarioSuspenso:
		return true
	}
	return false
}

type RoleUsuario string

const (
	RoleUser  RoleUsuario = "user"
	RoleAdmin RoleUsuario = "admin"
)

func (r RoleUsuario) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

type StatusReserva string

const (
	ReservaAtiva     StatusReserva = "ativa"
	ReservaCancelada StatusReserva = "cancelada"
	ReservaConcluida StatusReserva = "concluida"
)

func (s StatusReserva) Valid() bool {
	switch s {
	case ReservaAtiva, ReservaCancelada, ReservaConcluida:
		return true
	}
	return false
}

type Categoria struct {
	ID        uuid.UUID `json:"id"`
	Nome      string    `json:"nome"`
	Descricao *string   `json:"descricao"`
	CriadoEm  time.Time `json:"criadoEm"`
}

// Obra é a entrada de catálogo; os contadores refletem seus exemplares.
type Obra struct {
	ID                    uuid.UUID `json:"id"`
	Titulo                string    `json:"titulo"`
	Autor                 string    `json:"autor"`
	ISBN                  string    `json:"isbn"`
	CategoriaID           uuid.UUID `json:"categoriaId"`
	Editora               *string   `json:"editora"`
	AnoPublicacao         *int      `json:"anoPublicacao"`
	Descricao             *string   `json:"descricao"`
	Capa                  *string   `json:"capa"`
	TotalExemplares       int       `json:"totalExemplares"`
	ExemplaresDisponiveis int       `json:"exemplaresDisponiveis"`
	CriadoEm              time.Time `json:"criadoEm"`
	AtualizadoEm          time.Time `json:"atualizadoEm"`
}

type Exemplar struct {
	ID           uuid.UUID      `json:"id"`
	ObraID       uuid.UUID      `json:"obraId"`
	Codigo       string         `json:"codigo"`
	Status       StatusExemplar `json:"status"`
	Localizacao  *string        `json:"localizacao"`
	CriadoEm     time.Time      `json:"criadoEm"`
	AtualizadoEm time.Time      `json:"atualizadoEm"`
}

type Emprestimo struct {
	ID                    uuid.UUID        `json:"id"`
	UsuarioID             uuid.UUID        `json:"usuarioId"`
	ExemplarID            uuid.UUID        `json:"exemplarId"`
	ObraID                uuid.UUID        `json:"obraId"`
	DataEmprestimo        Data             `json:"dataEmprestimo"`
	DataPrevistaDevolucao Data             `json:"dataPrevistaDevolucao"`
	DataDevolucao         *Data            `json:"dataDevolucao"`
	Status                StatusEmprestimo `json:"status"`
	Renovacoes            int              `json:"renovacoes"`
	CriadoEm              time.Time        `json:"criadoEm"`
	AtualizadoEm          time.Time        `json:"atualizadoEm"`
}

// Vencido indica empréstimo ativo, sem devolução, com prazo anterior a hoje.
func (e Emprestimo) Vencido(hoje Data) bool {
	return e.Status == EmprestimoAtivo && e.DataDevolucao == nil && e.DataPrevistaDevolucao.Before(hoje)
}

// Usuario representa leitor ou bibliotecário; SenhaHash nunca é serializado.
type Usuario struct {
	ID           uuid.UUID     `json:"id"`
	Nome         string        `json:"nome"`
	CPF          string        `json:"cpf"`
	Email        string        `json:"email"`
	SenhaHash    string        `json:"-"`
	Telefone     *string       `json:"telefone"`
	Endereco     *string       `json:"endereco"`
	DataCadastro Data          `json:"dataCadastro"`
	Status       StatusUsuario `json:"status"`
	Role         RoleUsuario   `json:"role"`
	CriadoEm     time.Time     `json:"criadoEm"`
	AtualizadoEm time.Time     `json:"atualizadoEm"`
}

type Administrador struct {
	ID          uuid.UUID `json:"id"`
	UsuarioID   uuid.UUID `json:"usuarioId"`
	NivelAcesso int       `json:"nivelAcesso"`
	CriadoEm    time.Time `json:"criadoEm"`
}

type Reserva struct {
	ID            uuid.UUID     `json:"id"`
	UsuarioID     uuid.UUID     `json:"usuarioId"`
	ObraID        uuid.UUID     `json:"obraId"`
	DataReserva   Data          `json:"dataReserva"`
	DataExpiracao Data          `json:"dataExpiracao"`
	Status        StatusReserva `json:"status"`
	CriadoEm      time.Time     `json:"criadoEm"`
	AtualizadoEm  time.Time     `json:"atualizadoEm"`
}

// Dependencias resume o que será removido junto com um usuário.
type Dependencias struct {
	Emprestimos   int  `json:"emprestimos"`
	Reservas      int  `json:"reservas"`
	Administrador bool `json:"administrador"`
}

// RemocaoUsuario informa quantas linhas a cascata removeu.
type RemocaoUsuario struct {
	Emprestimos   int64 `json:"emprestimos"`
	Reservas      int64 `json:"reservas"`
	Administrador int64 `json:"administrador"`
}

// CodigoExemplar gera o código padrão do n-ésimo exemplar (base 1) de uma obra.
func CodigoExemplar(obraID uuid.UUID, seq int) string {
	return fmt.Sprintf("%s-%03d", obraID.String()[:8], seq)
}
