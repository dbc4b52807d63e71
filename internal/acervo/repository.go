package acervo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/veridian/biblioteca/internal/db"
)

const dbTimeout = 3 * time.Second

// Repository implementa Store sobre PostgreSQL.
type Repository struct {
	db     *pgxpool.Pool
	tracer trace.Tracer
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, tracer: otel.Tracer("biblioteca/acervo")}
}

// WithTx abre uma transação read committed por unidade de trabalho.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	ctx, span := r.tracer.Start(ctx, "acervo.tx")
	defer span.End()

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgQueries{tx: tx})
	})
	if err != nil {
		var de *DomainError
		if errors.As(err, &de) {
			span.SetAttributes(attribute.String("acervo.erro", de.Kind.Error()))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	return err
}

type pgQueries struct {
	tx pgx.Tx
}

type scanner interface {
	Scan(dest ...any) error
}

// translate converte erros do driver nos sentinelas do pacote.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.IsUniqueViolation(err, ""):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func (q *pgQueries) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := q.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// execOne exige exatamente uma linha afetada.
func (q *pgQueries) execOne(ctx context.Context, sql string, args ...any) error {
	n, err := q.exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func pgDate(d Data) pgtype.Date {
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func pgDatePtr(d *Data) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgDate(*d)
}

func fromPgDate(d pgtype.Date) Data {
	return NovaData(d.Time)
}

func fromPgDatePtr(d pgtype.Date) *Data {
	if !d.Valid {
		return nil
	}
	v := NovaData(d.Time)
	return &v
}

// Categorias

const categoriaCols = `id, nome, descricao, criado_em`

func scanCategoria(row scanner) (Categoria, error) {
	var c Categoria
	err := row.Scan(&c.ID, &c.Nome, &c.Descricao, &c.CriadoEm)
	return c, translate(err)
}

func (q *pgQueries) ListCategorias(ctx context.Context, p Paginacao) ([]Categoria, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.tx.Query(ctx, `SELECT `+categoriaCols+` FROM categorias ORDER BY nome LIMIT $1 OFFSET $2`, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categorias := []Categoria{}
	for rows.Next() {
		c, err := scanCategoria(rows)
		if err != nil {
			return nil, err
		}
		categorias = append(categorias, c)
	}
	return categorias, rows.Err()
}

func (q *pgQueries) GetCategoria(ctx context.Context, id uuid.UUID) (Categoria, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanCategoria(q.tx.QueryRow(ctx, `SELECT `+categoriaCols+` FROM categorias WHERE id = $1`, id))
}

func (q *pgQueries) GetCategoriaByNome(ctx context.Context, nome string) (Categoria, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanCategoria(q.tx.QueryRow(ctx, `SELECT `+categoriaCols+` FROM categorias WHERE nome = $1`, nome))
}

func (q *pgQueries) InsertCategoria(ctx context.Context, c Categoria) error {
	_, err := q.exec(ctx, `
		INSERT INTO categorias (id, nome, descricao, criado_em)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Nome, c.Descricao, c.CriadoEm)
	return err
}

func (q *pgQueries) UpdateCategoria(ctx context.Context, c Categoria) error {
	return q.execOne(ctx, `UPDATE categorias SET nome = $2, descricao = $3 WHERE id = $1`, c.ID, c.Nome, c.Descricao)
}

func (q *pgQueries) DeleteCategoria(ctx context.Context, id uuid.UUID) error {
	return q.execOne(ctx, `DELETE FROM categorias WHERE id = $1`, id)
}

func (q *pgQueries) CountObrasByCategoria(ctx context.Context, id uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	err := q.tx.QueryRow(ctx, `SELECT count(*) FROM obras WHERE categoria_id = $1`, id).Scan(&n)
	return n, err
}

// Obras

const obraCols = `id, titulo, autor, isbn, categoria_id, editora, ano_publicacao, descricao, capa,
	total_exemplares, exemplares_disponiveis, criado_em, atualizado_em`

func scanObra(row scanner) (Obra, error) {
	var o Obra
	err := row.Scan(
		&o.ID, &o.Titulo, &o.Autor, &o.ISBN, &o.CategoriaID, &o.Editora, &o.AnoPublicacao,
		&o.Descricao, &o.Capa, &o.TotalExemplares, &o.ExemplaresDisponiveis, &o.CriadoEm, &o.AtualizadoEm,
	)
	return o, translate(err)
}

func (q *pgQueries) ListObras(ctx context.Context, f FiltroObras) ([]Obra, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.tx.Query(ctx, `
		SELECT `+obraCols+`
		FROM obras
		WHERE ($1::uuid IS NULL OR categoria_id = $1)
		  AND ($2::text = '' OR titulo ILIKE '%' || $2 || '%' OR autor ILIKE '%' || $2 || '%' OR isbn ILIKE '%' || $2 || '%')
		ORDER BY titulo, id
		LIMIT $3 OFFSET $4
	`, f.CategoriaID, f.Busca, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	obras := []Obra{}
	for rows.Next() {
		o, err := scanObra(rows)
		if err != nil {
			return nil, err
		}
		obras = append(obras, o)
	}
	return obras, rows.Err()
}

func (q *pgQueries) GetObra(ctx context.Context, id uuid.UUID) (Obra, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanObra(q.tx.QueryRow(ctx, `SELECT `+obraCols+` FROM obras WHERE id = $1`, id))
}

func (q *pgQueries) LockObra(ctx context.Context, id uuid.UUID) (Obra, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanObra(q.tx.QueryRow(ctx, `SELECT `+obraCols+` FROM obras WHERE id = $1 FOR UPDATE`, id))
}

func (q *pgQueries) GetObraByISBN(ctx context.Context, isbn string) (Obra, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanObra(q.tx.QueryRow(ctx, `SELECT `+obraCols+` FROM obras WHERE isbn = $1`, isbn))
}

func (q *pgQueries) InsertObra(ctx context.Context, o Obra) error {
	_, err := q.exec(ctx, `
		INSERT INTO obras (id, titulo, autor, isbn, categoria_id, editora, ano_publicacao, descricao, capa,
			total_exemplares, exemplares_disponiveis, criado_em, atualizado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $11)
	`, o.ID, o.Titulo, o.Autor, o.ISBN, o.CategoriaID, o.Editora, o.AnoPublicacao, o.Descricao, o.Capa,
		o.CriadoEm, o.AtualizadoEm)
	return err
}

// UpdateObra não grava contadores; eles só mudam por RecontarExemplares.
func (q *pgQueries) UpdateObra(ctx context.Context, o Obra) error {
	return q.execOne(ctx, `
		UPDATE obras
		SET titulo = $2, autor = $3, isbn = $4, categoria_id = $5, editora = $6,
			ano_publicacao = $7, descricao = $8, capa = $9, atualizado_em = $10
		WHERE id = $1
	`, o.ID, o.Titulo, o.Autor, o.ISBN, o.CategoriaID, o.Editora, o.AnoPublicacao, o.Descricao, o.Capa, o.AtualizadoEm)
}

func (q *pgQueries) DeleteObra(ctx context.Context, id uuid.UUID) error {
	return q.execOne(ctx, `DELETE FROM obras WHERE id = $1`, id)
}

func (q *pgQueries) RecontarExemplares(ctx context.Context, obraID uuid.UUID) (Obra, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanObra(q.tx.QueryRow(ctx, `
		UPDATE obras o
		SET total_exemplares = c.total, exemplares_disponiveis = c.disponiveis
		FROM (
			SELECT count(*) AS total,
			       count(*) FILTER (WHERE status = 'disponivel') AS disponiveis
			FROM exemplares
			WHERE obra_id = $1
		) c
		WHERE o.id = $1
		RETURNING o.id, o.titulo, o.autor, o.isbn, o.categoria_id, o.editora, o.ano_publicacao, o.descricao, o.capa,
			o.total_exemplares, o.exemplares_disponiveis, o.criado_em, o.atualizado_em
	`, obraID))
}

// Exemplares

const exemplarCols = `id, obra_id, codigo, status, localizacao, criado_em, atualizado_em`

func scanExemplar(row scanner) (Exemplar, error) {
	var e Exemplar
	err := row.Scan(&e.ID, &e.ObraID, &e.Codigo, &e.Status, &e.Localizacao, &e.CriadoEm, &e.AtualizadoEm)
	return e, translate(err)
}

func (q *pgQueries) ListExemplares(ctx context.Context, f FiltroExemplares) ([]Exemplar, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.tx.Query(ctx, `
		SELECT `+exemplarCols+`
		FROM exemplares
		WHERE ($1::uuid IS NULL OR obra_id = $1)
		  AND ($2::text = '' OR status = $2)
		ORDER BY codigo
		LIMIT $3 OFFSET $4
	`, f.ObraID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exemplares := []Exemplar{}
	for rows.Next() {
		e, err := scanExemplar(rows)
		if err != nil {
			return nil, err
		}
		exemplares = append(exemplares, e)
	}
	return exemplares, rows.Err()
}

func (q *pgQueries) GetExemplar(ctx context.Context, id uuid.UUID) (Exemplar, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanExemplar(q.tx.QueryRow(ctx, `SELECT `+exemplarCols+` FROM exemplares WHERE id = $1`, id))
}

func (q *pgQueries) LockExemplar(ctx context.Context, id uuid.UUID) (Exemplar, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanExemplar(q.tx.QueryRow(ctx, `SELECT `+exemplarCols+` FROM exemplares WHERE id = $1 FOR UPDATE`, id))
}

func (q *pgQueries) GetExemplarByCodigo(ctx context.Context, codigo string) (Exemplar, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanExemplar(q.tx.QueryRow(ctx, `SELECT `+exemplarCols+` FROM exemplares WHERE codigo = $1`, codigo))
}

func (q *pgQueries) InsertExemplar(ctx context.Context, e Exemplar) error {
	_, err := q.exec(ctx, `
		INSERT INTO exemplares (id, obra_id, codigo, status, localizacao, criado_em, atualizado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.ObraID, e.Codigo, string(e.Status), e.Localizacao, e.CriadoEm, e.AtualizadoEm)
	return err
}

func (q *pgQueries) UpdateExemplar(ctx context.Context, e Exemplar) error {
	return q.execOne(ctx, `
		UPDATE exemplares
		SET obra_id = $2, codigo = $3, status = $4, localizacao = $5, atualizado_em = $6
		WHERE id = $1
	`, e.ID, e.ObraID, e.Codigo, string(e.Status), e.Localizacao, e.AtualizadoEm)
}

func (q *pgQueries) DeleteExemplar(ctx context.Context, id uuid.UUID) error {
	return q.execOne(ctx, `DELETE FROM exemplares WHERE id = $1`, id)
}

// Usuarios

const usuarioCols = `id, nome, cpf, email, senha_hash, telefone, endereco, data_cadastro, status, role,
	criado_em, atualizado_em`

func scanUsuario(row scanner) (Usuario, error) {
	var (
		u            Usuario
		dataCadastro pgtype.Date
	)
	err := row.Scan(
		&u.ID, &u.Nome, &u.CPF, &u.Email, &u.SenhaHash, &u.Telefone, &u.Endereco, &dataCadastro,
		&u.Status, &u.Role, &u.CriadoEm, &u.AtualizadoEm,
	)
	if err != nil {
		return Usuario{}, translate(err)
	}
	u.DataCadastro = fromPgDate(dataCadastro)
	return u, nil
}

func (q *pgQueries) ListUsuarios(ctx context.Context, f FiltroUsuarios) ([]Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.tx.Query(ctx, `
		SELECT `+usuarioCols+`
		FROM usuarios
		WHERE ($1::text = '' OR status = $1)
		  AND ($2::text = '' OR role = $2)
		ORDER BY nome, id
		LIMIT $3 OFFSET $4
	`, string(f.Status), string(f.Role), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usuarios := []Usuario{}
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, u)
	}
	return usuarios, rows.Err()
}

func (q *pgQueries) GetUsuario(ctx context.Context, id uuid.UUID) (Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanUsuario(q.tx.QueryRow(ctx, `SELECT `+usuarioCols+` FROM usuarios WHERE id = $1`, id))
}

func (q *pgQueries) GetUsuarioByCPF(ctx context.Context, cpf string) (Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanUsuario(q.tx.QueryRow(ctx, `SELECT `+usuarioCols+` FROM usuarios WHERE cpf = $1`, cpf))
}

func (q *pgQueries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanUsuario(q.tx.QueryRow(ctx, `SELECT `+usuarioCols+` FROM usuarios WHERE email = $1`, email))
}

func (q *pgQueries) InsertUsuario(ctx context.Context, u Usuario) error {
	_, err := q.exec(ctx, `
		INSERT INTO usuarios (id, nome, cpf, email, senha_hash, telefone, endereco, data_cadastro, status, role,
			criado_em, atualizado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, u.ID, u.Nome, u.CPF, u.Email, u.SenhaHash, u.Telefone, u.Endereco, pgDate(u.DataCadastro),
		string(u.Status), string(u.Role), u.CriadoEm, u.AtualizadoEm)
	return err
}

func (q *pgQueries) UpdateUsuario(ctx context.Context, u Usuario) error {
	return q.execOne(ctx, `
		UPDATE usuarios
		SET nome = $2, email = $3, senha_hash = $4, telefone = $5, endereco = $6,
			status = $7, role = $8, atualizado_em = $9
		WHERE id = $1
	`, u.ID, u.Nome, u.Email, u.SenhaHash, u.Telefone, u.Endereco, string(u.Status), string(u.Role), u.AtualizadoEm)
}

func (q *pgQueries) DeleteUsuario(ctx context.Context, id uuid.UUID) error {
	return q.execOne(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
}

func (q *pgQueries) ContarDependencias(ctx context.Context, usuarioID uuid.UUID) (Dependencias, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var d Dependencias
	err := q.tx.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM emprestimos WHERE usuario_id = $1),
			(SELECT count(*) FROM reservas WHERE usuario_id = $1),
			EXISTS (SELECT 1 FROM administradores WHERE usuario_id = $1)
	`, usuarioID).Scan(&d.Emprestimos, &d.Reservas, &d.Administrador)
	return d, err
}

func (q *pgQueries) DeleteEmprestimosByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error) {
	return q.exec(ctx, `DELETE FROM emprestimos WHERE usuario_id = $1`, usuarioID)
}

func (q *pgQueries) DeleteReservasByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error) {
	return q.exec(ctx, `DELETE FROM reservas WHERE usuario_id = $1`, usuarioID)
}

func (q *pgQueries) DeleteAdministradorByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error) {
	return q.exec(ctx, `DELETE FROM administradores WHERE usuario_id = $1`, usuarioID)
}

// Administradores

const administradorCols = `id, usuario_id, nivel_acesso, criado_em`

func scanAdministrador(row scanner) (Administrador, error) {
	var a Administrador
	err := row.Scan(&a.ID, &a.UsuarioID, &a.NivelAcesso, &a.CriadoEm)
	return a, translate(err)
}

func (q *pgQueries) ListAdministradores(ctx context.Context, p Paginacao) ([]Administrador, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.tx.Query(ctx, `
		SELECT `+administradorCols+`
		FROM administradores
		ORDER BY criado_em, id
		LIMIT $1 OFFSET $2
	`, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []Administrador{}
	for rows.Next() {
		a, err := scanAdministrador(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (q *pgQueries) GetAdministrador(ctx context.Context, id uuid.UUID) (Administrador, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanAdministrador(q.tx.QueryRow(ctx, `SELECT `+administradorCols+` FROM administradores WHERE id = $1`, id))
}

func (q *pgQueries) GetAdministradorByUsuario(ctx context.Context, usuarioID uuid.UUID) (Administrador, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanAdministrador(q.tx.QueryRow(ctx, `SELECT `+administradorCols+` FROM administradores WHERE usuario_id = $1`, usuarioID))
}

func (q *pgQueries) InsertAdministrador(ctx context.Context, a Administrador) error {
	_, err := q.exec(ctx, `
		INSERT INTO administradores (id, usuario_id, nivel_acesso, criado_em)
		VALUES ($1, $2, $3, $4)
	`, a.ID, a.UsuarioID, a.NivelAcesso, a.CriadoEm)
	return err
}

func (q *pgQueries) UpdateAdministrador(ctx context.Context, a Administrador) error {
	return q.execOne(ctx, `UPDATE administradores SET nivel_acesso = $2 WHERE id = $1`, a.ID, a.NivelAcesso)
}

func (q *pgQueries) DeleteAdministrador(ctx context.Context, id uuid.UUID) error {
	return q.execOne(ctx, `DELETE FROM administradores WHERE id = $1`, id)
}

// Emprestimos

const emprestimoCols = `id, usuario_id, exemplar_id, obra_id, data_emprestimo, data_prevista_devolucao,
	data_devolucao, status, renovacoes, criado_em, atualizado_em`

func scanEmprestimo(row scanner) (Emprestimo, error) {
	var (
		e                               Emprestimo
		emprestimo, prevista, devolucao pgtype.Date
	)
	err := row.Scan(
		&e.ID, &e.UsuarioID, &e.ExemplarID, &e.ObraID, &emprestimo, &prevista, &devolucao,
		&e.Status, &e.Renovacoes, &e.CriadoEm, &e.AtualizadoEm,
	)
	if err != nil {
		return Emprestimo{}, translate(err)
	}
	e.DataEmprestimo = fromPgDate(emprestimo)
	e.DataPrevistaDevolucao = fromPgDate(prevista)
	e.DataDevolucao = fromPgDatePtr(devolucao)
	return e, nil
}

func (q *pgQueries) ListEmprestimos(ctx context.Context, f FiltroEmprestimos) ([]Emprestimo, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.tx.Query(ctx, `
		SELECT `+emprestimoCols+`
		FROM emprestimos
		WHERE ($1::uuid IS NULL OR usuario_id = $1)
		  AND ($2::uuid IS NULL OR obra_id = $2)
		  AND ($3::text = '' OR status = $3)
		ORDER BY data_emprestimo DESC, criado_em DESC
		LIMIT $4 OFFSET $5
	`, f.UsuarioID, f.ObraID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emprestimos := []Emprestimo{}
	for rows.Next() {
		e, err := scanEmprestimo(rows)
		if err != nil {
			return nil, err
		}
		emprestimos = append(emprestimos, e)
	}
	return emprestimos, rows.Err()
}

func (q *pgQueries) GetEmprestimo(ctx context.Context, id uuid.UUID) (Emprestimo, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanEmprestimo(q.tx.QueryRow(ctx, `SELECT `+emprestimoCols+` FROM emprestimos WHERE id = $1`, id))
}

func (q *pgQueries) LockEmprestimo(ctx context.Context, id uuid.UUID) (Emprestimo, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanEmprestimo(q.tx.QueryRow(ctx, `SELECT `+emprestimoCols+` FROM emprestimos WHERE id = $1 FOR UPDATE`, id))
}

func (q *pgQueries) CountEmprestimosAbertos(ctx context.Context, exemplarID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	err := q.tx.QueryRow(ctx, `
		SELECT count(*) FROM emprestimos
		WHERE exemplar_id = $1 AND status IN ('ativo', 'atrasado')
	`, exemplarID).Scan(&n)
	return n, err
}

func (q *pgQueries) InsertEmprestimo(ctx context.Context, e Emprestimo) error {
	_, err := q.exec(ctx, `
		INSERT INTO emprestimos (id, usuario_id, exemplar_id, obra_id, data_emprestimo, data_prevista_devolucao,
			data_devolucao, status, renovacoes, criado_em, atualizado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.UsuarioID, e.ExemplarID, e.ObraID, pgDate(e.DataEmprestimo), pgDate(e.DataPrevistaDevolucao),
		pgDatePtr(e.DataDevolucao), string(e.Status), e.Renovacoes, e.CriadoEm, e.AtualizadoEm)
	return err
}

func (q *pgQueries) UpdateEmprestimo(ctx context.Context, e Emprestimo) error {
	return q.execOne(ctx, `
		UPDATE emprestimos
		SET data_prevista_devolucao = $2, data_devolucao = $3, status = $4, renovacoes = $5, atualizado_em = $6
		WHERE id = $1
	`, e.ID, pgDate(e.DataPrevistaDevolucao), pgDatePtr(e.DataDevolucao), string(e.Status), e.Renovacoes, e.AtualizadoEm)
}

func (q *pgQueries) DeleteEmprestimo(ctx context.Context, id uuid.UUID) error {
	return q.execOne(ctx, `DELETE FROM emprestimos WHERE id = $1`, id)
}

func (q *pgQueries) MarcarAtrasados(ctx context.Context, hoje Data) (int64, error) {
	return q.exec(ctx, `
		UPDATE emprestimos
		SET status = 'atrasado', atualizado_em = now()
		WHERE status = 'ativo' AND data_devolucao IS NULL AND data_prevista_devolucao < $1
	`, pgDate(hoje))
}

// Reservas

const reservaCols = `id, usuario_id, obra_id, data_reserva, data_expiracao, status, criado_em, atualizado_em`

func scanReserva(row scanner) (Reserva, error) {
	var (
		r                  Reserva
		reserva, expiracao pgtype.Date
	)
	err := row.Scan(&r.ID, &r.UsuarioID, &r.ObraID, &reserva, &expiracao, &r.Status, &r.CriadoEm, &r.AtualizadoEm)
	if err != nil {
		return Reserva{}, translate(err)
	}
	r.DataReserva = fromPgDate(reserva)
	r.DataExpiracao = fromPgDate(expiracao)
	return r, nil
}

func (q *pgQueries) ListReservas(ctx context.Context, f FiltroReservas) ([]Reserva, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.tx.Query(ctx, `
		SELECT `+reservaCols+`
		FROM reservas
		WHERE ($1::uuid IS NULL OR usuario_id = $1)
		  AND ($2::uuid IS NULL OR obra_id = $2)
		  AND ($3::text = '' OR status = $3)
		ORDER BY data_reserva DESC, criado_em DESC
		LIMIT $4 OFFSET $5
	`, f.UsuarioID, f.ObraID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservas := []Reserva{}
	for rows.Next() {
		r, err := scanReserva(rows)
		if err != nil {
			return nil, err
		}
		reservas = append(reservas, r)
	}
	return reservas, rows.Err()
}

func (q *pgQueries) GetReserva(ctx context.Context, id uuid.UUID) (Reserva, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return scanReserva(q.tx.QueryRow(ctx, `SELECT `+reservaCols+` FROM reservas WHERE id = $1`, id))
}

func (q *pgQueries) InsertReserva(ctx context.Context, r Reserva) error {
	_, err := q.exec(ctx, `
		INSERT INTO reservas (id, usuario_id, obra_id, data_reserva, data_expiracao, status, criado_em, atualizado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.UsuarioID, r.ObraID, pgDate(r.DataReserva), pgDate(r.DataExpiracao), string(r.Status),
		r.CriadoEm, r.AtualizadoEm)
	return err
}

func (q *pgQueries) UpdateReserva(ctx context.Context, r Reserva) error {
	return q.execOne(ctx, `
		UPDATE reservas SET data_expiracao = $2, status = $3, atualizado_em = $4 WHERE id = $1
	`, r.ID, pgDate(r.DataExpiracao), string(r.Status), r.AtualizadoEm)
}

func (q *pgQueries) DeleteReserva(ctx context.Context, id uuid.UUID) error {
	return q.execOne(ctx, `DELETE FROM reservas WHERE id = $1`, id)
}
