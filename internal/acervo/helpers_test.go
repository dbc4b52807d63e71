package acervo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/veridian/biblioteca/internal/events"
)

// CPFs com dígitos verificadores válidos.
var cpfsValidos = []string{
	"52998224725",
	"11144477735",
	"39825979194",
	"90748337806",
	"87623286030",
	"12904047980",
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AddDias(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

func fakeHash(s string) (string, error) { return "hash:" + s, nil }

func fakeVerify(senha, hash string) (bool, error) { return hash == "hash:"+senha, nil }

type testEnv struct {
	store *memStore
	svc   *Service
	rec   *events.Recorder
	clock *fakeClock
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	env := &testEnv{
		store: newMemStore(),
		rec:   &events.Recorder{},
		clock: &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	}
	env.svc = NewService(env.store, cfg,
		WithClock(env.clock.Now),
		WithPublisher(env.rec),
		WithLogger(zerolog.Nop()),
		WithPasswordHasher(fakeHash, fakeVerify),
	)
	return env
}

func (e *testEnv) categoria(t *testing.T, nome string) Categoria {
	t.Helper()
	c, err := e.svc.CriarCategoria(context.Background(), CategoriaInput{Nome: nome})
	require.NoError(t, err)
	return c
}

func (e *testEnv) obra(t *testing.T, categoriaID uuid.UUID, isbn string, total int) Obra {
	t.Helper()
	o, err := e.svc.CriarObra(context.Background(), ObraInput{
		Titulo:          "Obra " + isbn,
		Autor:           "Autor",
		ISBN:            isbn,
		CategoriaID:     categoriaID,
		TotalExemplares: total,
	})
	require.NoError(t, err)
	return o
}

func (e *testEnv) usuario(t *testing.T, idx int) Usuario {
	t.Helper()
	u, err := e.svc.CriarUsuario(context.Background(), UsuarioInput{
		Nome:  "Leitor " + cpfsValidos[idx],
		CPF:   cpfsValidos[idx],
		Email: "leitor" + cpfsValidos[idx] + "@biblioteca.test",
		Senha: "segredo123",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) exemplares(t *testing.T, obraID uuid.UUID) []Exemplar {
	t.Helper()
	list, err := e.svc.ListExemplares(context.Background(), FiltroExemplares{ObraID: &obraID})
	require.NoError(t, err)
	return list
}

// checarInvariante confere contadores de todas as obras contra os exemplares.
func checarInvariante(t require.TestingT, st *memState) {
	for _, o := range st.obras {
		total, disp := 0, 0
		for _, ex := range st.exemplares {
			if ex.ObraID != o.ID {
				continue
			}
			total++
			if ex.Status == ExemplarDisponivel {
				disp++
			}
		}
		require.Equal(t, total, o.TotalExemplares, "total de %s", o.ISBN)
		require.Equal(t, disp, o.ExemplaresDisponiveis, "disponíveis de %s", o.ISBN)
	}
}

func dia(s string) *Data {
	d, err := ParseData(s)
	if err != nil {
		panic(err)
	}
	return &d
}
