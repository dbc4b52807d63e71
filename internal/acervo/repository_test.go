package acervo

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian/biblioteca/internal/db"
	"github.com/veridian/biblioteca/internal/events"
)

// newPostgresService usa TEST_DB_DSN; o schema é recriado a cada teste.
func newPostgresService(t *testing.T) *Service {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN não definido")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn, db.PoolOptions{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.RecreateSchema(ctx, pool))

	return NewService(NewRepository(pool), Config{},
		WithLogger(zerolog.Nop()),
		WithPublisher(&events.Recorder{}),
		WithPasswordHasher(fakeHash, fakeVerify),
	)
}

func TestRepositoryCicloCompleto(t *testing.T) {
	svc := newPostgresService(t)
	ctx := context.Background()

	cat, err := svc.CriarCategoria(ctx, CategoriaInput{Nome: "Ficção"})
	require.NoError(t, err)
	obra, err := svc.CriarObra(ctx, ObraInput{Titulo: "1984", Autor: "George Orwell", ISBN: "978-0451524935", CategoriaID: cat.ID, TotalExemplares: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, obra.ExemplaresDisponiveis)

	u, err := svc.CriarUsuario(ctx, UsuarioInput{Nome: "Leitor", CPF: cpfsValidos[0], Email: "leitor@biblioteca.test", Senha: "segredo123"})
	require.NoError(t, err)

	exemplares, err := svc.ListExemplares(ctx, FiltroExemplares{ObraID: &obra.ID})
	require.NoError(t, err)
	require.Len(t, exemplares, 2)

	emp, err := svc.CriarEmprestimo(ctx, EmprestimoInput{
		UsuarioID:             u.ID,
		ExemplarID:            exemplares[0].ID,
		DataEmprestimo:        dia("2020-01-01"),
		DataPrevistaDevolucao: dia("2020-01-15"),
	})
	require.NoError(t, err)

	got, err := svc.GetEmprestimo(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, EmprestimoAtrasado, got.Status)
	assert.Equal(t, "2020-01-15", got.DataPrevistaDevolucao.String())

	obra, err = svc.GetObra(ctx, obra.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, obra.ExemplaresDisponiveis)

	_, err = svc.CriarUsuario(ctx, UsuarioInput{Nome: "Outro", CPF: cpfsValidos[0], Email: "outro@biblioteca.test", Senha: "segredo123"})
	require.ErrorIs(t, err, ErrConflict)

	deps, err := svc.Dependencias(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, Dependencias{Emprestimos: 1}, deps)

	removidos, err := svc.RemoverUsuario(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removidos.Emprestimos)

	err = svc.RemoverCategoria(ctx, cat.ID)
	require.ErrorIs(t, err, ErrConflict)
}

func TestRepositoryUltimoExemplarConcorrente(t *testing.T) {
	svc := newPostgresService(t)
	ctx := context.Background()

	cat, err := svc.CriarCategoria(ctx, CategoriaInput{Nome: "Ficção"})
	require.NoError(t, err)
	obra, err := svc.CriarObra(ctx, ObraInput{Titulo: "1984", Autor: "George Orwell", ISBN: "978-0451524935", CategoriaID: cat.ID, TotalExemplares: 1})
	require.NoError(t, err)
	exemplares, err := svc.ListExemplares(ctx, FiltroExemplares{ObraID: &obra.ID})
	require.NoError(t, err)

	const leitores = 4
	pedidos := make([]EmprestimoInput, 0, leitores)
	for i := 0; i < leitores; i++ {
		u, err := svc.CriarUsuario(ctx, UsuarioInput{Nome: "Leitor", CPF: cpfsValidos[i], Email: cpfsValidos[i] + "@biblioteca.test", Senha: "segredo123"})
		require.NoError(t, err)
		pedidos = append(pedidos, EmprestimoInput{UsuarioID: u.ID, ExemplarID: exemplares[0].ID})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sucessos int
		recusas  int
	)
	for _, in := range pedidos {
		wg.Add(1)
		go func(in EmprestimoInput) {
			defer wg.Done()
			_, err := svc.CriarEmprestimo(ctx, in)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				sucessos++
			} else if assert.ErrorIs(t, err, ErrInvalidState) {
				recusas++
			}
		}(in)
	}
	wg.Wait()

	assert.Equal(t, 1, sucessos)
	assert.Equal(t, leitores-1, recusas)

	obra, err = svc.GetObra(ctx, obra.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, obra.ExemplaresDisponiveis)
}
