package acervo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var errFalhaInjetada = errors.New("falha injetada")

type memState struct {
	categorias  map[uuid.UUID]Categoria
	obras       map[uuid.UUID]Obra
	exemplares  map[uuid.UUID]Exemplar
	usuarios    map[uuid.UUID]Usuario
	admins      map[uuid.UUID]Administrador
	emprestimos map[uuid.UUID]Emprestimo
	reservas    map[uuid.UUID]Reserva
}

func newMemState() *memState {
	return &memState{
		categorias:  map[uuid.UUID]Categoria{},
		obras:       map[uuid.UUID]Obra{},
		exemplares:  map[uuid.UUID]Exemplar{},
		usuarios:    map[uuid.UUID]Usuario{},
		admins:      map[uuid.UUID]Administrador{},
		emprestimos: map[uuid.UUID]Emprestimo{},
		reservas:    map[uuid.UUID]Reserva{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		categorias:  cloneMap(s.categorias),
		obras:       cloneMap(s.obras),
		exemplares:  cloneMap(s.exemplares),
		usuarios:    cloneMap(s.usuarios),
		admins:      cloneMap(s.admins),
		emprestimos: cloneMap(s.emprestimos),
		reservas:    cloneMap(s.reservas),
	}
}

// memStore serializa transações inteiras e descarta a cópia de trabalho em
// caso de erro, imitando o rollback do banco.
type memStore struct {
	mu     sync.Mutex
	state  *memState
	failOn map[string]bool
	txs    int
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failOn: map[string]bool{}}
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txs++
	work := m.state.clone()
	if err := fn(ctx, &memQueries{st: work, failOn: m.failOn}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// snapshot devolve uma cópia do estado confirmado.
func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

type memQueries struct {
	st     *memState
	failOn map[string]bool
}

func (q *memQueries) fail(op string) error {
	if q.failOn[op] {
		return errFalhaInjetada
	}
	return nil
}

func paginar[T any](items []T, p Paginacao) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

// Categorias

func (q *memQueries) ListCategorias(ctx context.Context, p Paginacao) ([]Categoria, error) {
	out := []Categoria{}
	for _, c := range q.st.categorias {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return paginar(out, p), nil
}

func (q *memQueries) GetCategoria(ctx context.Context, id uuid.UUID) (Categoria, error) {
	c, ok := q.st.categorias[id]
	if !ok {
		return Categoria{}, ErrNotFound
	}
	return c, nil
}

func (q *memQueries) GetCategoriaByNome(ctx context.Context, nome string) (Categoria, error) {
	for _, c := range q.st.categorias {
		if c.Nome == nome {
			return c, nil
		}
	}
	return Categoria{}, ErrNotFound
}

func (q *memQueries) InsertCategoria(ctx context.Context, c Categoria) error {
	if _, err := q.GetCategoriaByNome(ctx, c.Nome); err == nil {
		return ErrConflict
	}
	q.st.categorias[c.ID] = c
	return nil
}

func (q *memQueries) UpdateCategoria(ctx context.Context, c Categoria) error {
	if _, ok := q.st.categorias[c.ID]; !ok {
		return ErrNotFound
	}
	if outra, err := q.GetCategoriaByNome(ctx, c.Nome); err == nil && outra.ID != c.ID {
		return ErrConflict
	}
	q.st.categorias[c.ID] = c
	return nil
}

func (q *memQueries) DeleteCategoria(ctx context.Context, id uuid.UUID) error {
	if _, ok := q.st.categorias[id]; !ok {
		return ErrNotFound
	}
	for _, o := range q.st.obras {
		if o.CategoriaID == id {
			return ErrConflict
		}
	}
	delete(q.st.categorias, id)
	return nil
}

func (q *memQueries) CountObrasByCategoria(ctx context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, o := range q.st.obras {
		if o.CategoriaID == id {
			n++
		}
	}
	return n, nil
}

// Obras

func (q *memQueries) ListObras(ctx context.Context, f FiltroObras) ([]Obra, error) {
	out := []Obra{}
	busca := strings.ToLower(f.Busca)
	for _, o := range q.st.obras {
		if f.CategoriaID != nil && o.CategoriaID != *f.CategoriaID {
			continue
		}
		if busca != "" &&
			!strings.Contains(strings.ToLower(o.Titulo), busca) &&
			!strings.Contains(strings.ToLower(o.Autor), busca) &&
			!strings.Contains(strings.ToLower(o.ISBN), busca) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Titulo < out[j].Titulo })
	return paginar(out, f.Paginacao), nil
}

func (q *memQueries) GetObra(ctx context.Context, id uuid.UUID) (Obra, error) {
	o, ok := q.st.obras[id]
	if !ok {
		return Obra{}, ErrNotFound
	}
	return o, nil
}

func (q *memQueries) LockObra(ctx context.Context, id uuid.UUID) (Obra, error) {
	return q.GetObra(ctx, id)
}

func (q *memQueries) GetObraByISBN(ctx context.Context, isbn string) (Obra, error) {
	for _, o := range q.st.obras {
		if o.ISBN == isbn {
			return o, nil
		}
	}
	return Obra{}, ErrNotFound
}

func (q *memQueries) InsertObra(ctx context.Context, o Obra) error {
	if _, ok := q.st.categorias[o.CategoriaID]; !ok {
		return ErrConflict
	}
	if _, err := q.GetObraByISBN(ctx, o.ISBN); err == nil {
		return ErrConflict
	}
	o.TotalExemplares, o.ExemplaresDisponiveis = 0, 0
	q.st.obras[o.ID] = o
	return nil
}

func (q *memQueries) UpdateObra(ctx context.Context, o Obra) error {
	atual, ok := q.st.obras[o.ID]
	if !ok {
		return ErrNotFound
	}
	if outra, err := q.GetObraByISBN(ctx, o.ISBN); err == nil && outra.ID != o.ID {
		return ErrConflict
	}
	o.TotalExemplares, o.ExemplaresDisponiveis = atual.TotalExemplares, atual.ExemplaresDisponiveis
	q.st.obras[o.ID] = o
	return nil
}

func (q *memQueries) DeleteObra(ctx context.Context, id uuid.UUID) error {
	if _, ok := q.st.obras[id]; !ok {
		return ErrNotFound
	}
	for exID, ex := range q.st.exemplares {
		if ex.ObraID == id {
			delete(q.st.exemplares, exID)
		}
	}
	for empID, e := range q.st.emprestimos {
		if e.ObraID == id {
			delete(q.st.emprestimos, empID)
		}
	}
	for resID, r := range q.st.reservas {
		if r.ObraID == id {
			delete(q.st.reservas, resID)
		}
	}
	delete(q.st.obras, id)
	return nil
}

func (q *memQueries) RecontarExemplares(ctx context.Context, obraID uuid.UUID) (Obra, error) {
	o, ok := q.st.obras[obraID]
	if !ok {
		return Obra{}, ErrNotFound
	}
	o.TotalExemplares, o.ExemplaresDisponiveis = 0, 0
	for _, ex := range q.st.exemplares {
		if ex.ObraID != obraID {
			continue
		}
		o.TotalExemplares++
		if ex.Status == ExemplarDisponivel {
			o.ExemplaresDisponiveis++
		}
	}
	q.st.obras[obraID] = o
	return o, nil
}

// Exemplares

func (q *memQueries) ListExemplares(ctx context.Context, f FiltroExemplares) ([]Exemplar, error) {
	out := []Exemplar{}
	for _, ex := range q.st.exemplares {
		if f.ObraID != nil && ex.ObraID != *f.ObraID {
			continue
		}
		if f.Status != "" && ex.Status != f.Status {
			continue
		}
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codigo < out[j].Codigo })
	return paginar(out, f.Paginacao), nil
}

func (q *memQueries) GetExemplar(ctx context.Context, id uuid.UUID) (Exemplar, error) {
	ex, ok := q.st.exemplares[id]
	if !ok {
		return Exemplar{}, ErrNotFound
	}
	return ex, nil
}

func (q *memQueries) LockExemplar(ctx context.Context, id uuid.UUID) (Exemplar, error) {
	return q.GetExemplar(ctx, id)
}

func (q *memQueries) GetExemplarByCodigo(ctx context.Context, codigo string) (Exemplar, error) {
	for _, ex := range q.st.exemplares {
		if ex.Codigo == codigo {
			return ex, nil
		}
	}
	return Exemplar{}, ErrNotFound
}

func (q *memQueries) InsertExemplar(ctx context.Context, e Exemplar) error {
	if _, ok := q.st.obras[e.ObraID]; !ok {
		return ErrConflict
	}
	if _, err := q.GetExemplarByCodigo(ctx, e.Codigo); err == nil {
		return ErrConflict
	}
	q.st.exemplares[e.ID] = e
	return nil
}

func (q *memQueries) UpdateExemplar(ctx context.Context, e Exemplar) error {
	if _, ok := q.st.exemplares[e.ID]; !ok {
		return ErrNotFound
	}
	if outro, err := q.GetExemplarByCodigo(ctx, e.Codigo); err == nil && outro.ID != e.ID {
		return ErrConflict
	}
	q.st.exemplares[e.ID] = e
	return nil
}

func (q *memQueries) DeleteExemplar(ctx context.Context, id uuid.UUID) error {
	if _, ok := q.st.exemplares[id]; !ok {
		return ErrNotFound
	}
	for empID, e := range q.st.emprestimos {
		if e.ExemplarID == id {
			delete(q.st.emprestimos, empID)
		}
	}
	delete(q.st.exemplares, id)
	return nil
}

// Usuarios

func (q *memQueries) ListUsuarios(ctx context.Context, f FiltroUsuarios) ([]Usuario, error) {
	out := []Usuario{}
	for _, u := range q.st.usuarios {
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return paginar(out, f.Paginacao), nil
}

func (q *memQueries) GetUsuario(ctx context.Context, id uuid.UUID) (Usuario, error) {
	u, ok := q.st.usuarios[id]
	if !ok {
		return Usuario{}, ErrNotFound
	}
	return u, nil
}

func (q *memQueries) GetUsuarioByCPF(ctx context.Context, cpf string) (Usuario, error) {
	for _, u := range q.st.usuarios {
		if u.CPF == cpf {
			return u, nil
		}
	}
	return Usuario{}, ErrNotFound
}

func (q *memQueries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	for _, u := range q.st.usuarios {
		if u.Email == email {
			return u, nil
		}
	}
	return Usuario{}, ErrNotFound
}

func (q *memQueries) InsertUsuario(ctx context.Context, u Usuario) error {
	if _, err := q.GetUsuarioByCPF(ctx, u.CPF); err == nil {
		return ErrConflict
	}
	if _, err := q.GetUsuarioByEmail(ctx, u.Email); err == nil {
		return ErrConflict
	}
	q.st.usuarios[u.ID] = u
	return nil
}

func (q *memQueries) UpdateUsuario(ctx context.Context, u Usuario) error {
	if _, ok := q.st.usuarios[u.ID]; !ok {
		return ErrNotFound
	}
	if outro, err := q.GetUsuarioByEmail(ctx, u.Email); err == nil && outro.ID != u.ID {
		return ErrConflict
	}
	q.st.usuarios[u.ID] = u
	return nil
}

func (q *memQueries) DeleteUsuario(ctx context.Context, id uuid.UUID) error {
	if err := q.fail("DeleteUsuario"); err != nil {
		return err
	}
	if _, ok := q.st.usuarios[id]; !ok {
		return ErrNotFound
	}
	q.DeleteEmprestimosByUsuario(ctx, id)
	q.DeleteReservasByUsuario(ctx, id)
	q.DeleteAdministradorByUsuario(ctx, id)
	delete(q.st.usuarios, id)
	return nil
}

func (q *memQueries) ContarDependencias(ctx context.Context, usuarioID uuid.UUID) (Dependencias, error) {
	var d Dependencias
	for _, e := range q.st.emprestimos {
		if e.UsuarioID == usuarioID {
			d.Emprestimos++
		}
	}
	for _, r := range q.st.reservas {
		if r.UsuarioID == usuarioID {
			d.Reservas++
		}
	}
	for _, a := range q.st.admins {
		if a.UsuarioID == usuarioID {
			d.Administrador = true
		}
	}
	return d, nil
}

func (q *memQueries) DeleteEmprestimosByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error) {
	if err := q.fail("DeleteEmprestimosByUsuario"); err != nil {
		return 0, err
	}
	var n int64
	for id, e := range q.st.emprestimos {
		if e.UsuarioID == usuarioID {
			delete(q.st.emprestimos, id)
			n++
		}
	}
	return n, nil
}

func (q *memQueries) DeleteReservasByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error) {
	if err := q.fail("DeleteReservasByUsuario"); err != nil {
		return 0, err
	}
	var n int64
	for id, r := range q.st.reservas {
		if r.UsuarioID == usuarioID {
			delete(q.st.reservas, id)
			n++
		}
	}
	return n, nil
}

func (q *memQueries) DeleteAdministradorByUsuario(ctx context.Context, usuarioID uuid.UUID) (int64, error) {
	if err := q.fail("DeleteAdministradorByUsuario"); err != nil {
		return 0, err
	}
	var n int64
	for id, a := range q.st.admins {
		if a.UsuarioID == usuarioID {
			delete(q.st.admins, id)
			n++
		}
	}
	return n, nil
}

// Administradores

func (q *memQueries) ListAdministradores(ctx context.Context, p Paginacao) ([]Administrador, error) {
	out := []Administrador{}
	for _, a := range q.st.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return paginar(out, p), nil
}

func (q *memQueries) GetAdministrador(ctx context.Context, id uuid.UUID) (Administrador, error) {
	a, ok := q.st.admins[id]
	if !ok {
		return Administrador{}, ErrNotFound
	}
	return a, nil
}

func (q *memQueries) GetAdministradorByUsuario(ctx context.Context, usuarioID uuid.UUID) (Administrador, error) {
	for _, a := range q.st.admins {
		if a.UsuarioID == usuarioID {
			return a, nil
		}
	}
	return Administrador{}, ErrNotFound
}

func (q *memQueries) InsertAdministrador(ctx context.Context, a Administrador) error {
	if _, ok := q.st.usuarios[a.UsuarioID]; !ok {
		return ErrConflict
	}
	if _, err := q.GetAdministradorByUsuario(ctx, a.UsuarioID); err == nil {
		return ErrConflict
	}
	q.st.admins[a.ID] = a
	return nil
}

func (q *memQueries) UpdateAdministrador(ctx context.Context, a Administrador) error {
	if _, ok := q.st.admins[a.ID]; !ok {
		return ErrNotFound
	}
	q.st.admins[a.ID] = a
	return nil
}

func (q *memQueries) DeleteAdministrador(ctx context.Context, id uuid.UUID) error {
	if _, ok := q.st.admins[id]; !ok {
		return ErrNotFound
	}
	delete(q.st.admins, id)
	return nil
}

// Emprestimos

func (q *memQueries) ListEmprestimos(ctx context.Context, f FiltroEmprestimos) ([]Emprestimo, error) {
	out := []Emprestimo{}
	for _, e := range q.st.emprestimos {
		if f.UsuarioID != nil && e.UsuarioID != *f.UsuarioID {
			continue
		}
		if f.ObraID != nil && e.ObraID != *f.ObraID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CriadoEm.Before(out[j].CriadoEm) })
	return paginar(out, f.Paginacao), nil
}

func (q *memQueries) GetEmprestimo(ctx context.Context, id uuid.UUID) (Emprestimo, error) {
	e, ok := q.st.emprestimos[id]
	if !ok {
		return Emprestimo{}, ErrNotFound
	}
	return e, nil
}

func (q *memQueries) LockEmprestimo(ctx context.Context, id uuid.UUID) (Emprestimo, error) {
	return q.GetEmprestimo(ctx, id)
}

func (q *memQueries) CountEmprestimosAbertos(ctx context.Context, exemplarID uuid.UUID) (int, error) {
	n := 0
	for _, e := range q.st.emprestimos {
		if e.ExemplarID == exemplarID && e.Status.Aberto() {
			n++
		}
	}
	return n, nil
}

func (q *memQueries) InsertEmprestimo(ctx context.Context, e Emprestimo) error {
	if err := q.fail("InsertEmprestimo"); err != nil {
		return err
	}
	_, okU := q.st.usuarios[e.UsuarioID]
	_, okE := q.st.exemplares[e.ExemplarID]
	_, okO := q.st.obras[e.ObraID]
	if !okU || !okE || !okO {
		return ErrConflict
	}
	q.st.emprestimos[e.ID] = e
	return nil
}

func (q *memQueries) UpdateEmprestimo(ctx context.Context, e Emprestimo) error {
	if _, ok := q.st.emprestimos[e.ID]; !ok {
		return ErrNotFound
	}
	q.st.emprestimos[e.ID] = e
	return nil
}

func (q *memQueries) DeleteEmprestimo(ctx context.Context, id uuid.UUID) error {
	if _, ok := q.st.emprestimos[id]; !ok {
		return ErrNotFound
	}
	delete(q.st.emprestimos, id)
	return nil
}

func (q *memQueries) MarcarAtrasados(ctx context.Context, hoje Data) (int64, error) {
	var n int64
	for id, e := range q.st.emprestimos {
		if e.Vencido(hoje) {
			e.Status = EmprestimoAtrasado
			q.st.emprestimos[id] = e
			n++
		}
	}
	return n, nil
}

// Reservas

func (q *memQueries) ListReservas(ctx context.Context, f FiltroReservas) ([]Reserva, error) {
	out := []Reserva{}
	for _, r := range q.st.reservas {
		if f.UsuarioID != nil && r.UsuarioID != *f.UsuarioID {
			continue
		}
		if f.ObraID != nil && r.ObraID != *f.ObraID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CriadoEm.Before(out[j].CriadoEm) })
	return paginar(out, f.Paginacao), nil
}

func (q *memQueries) GetReserva(ctx context.Context, id uuid.UUID) (Reserva, error) {
	r, ok := q.st.reservas[id]
	if !ok {
		return Reserva{}, ErrNotFound
	}
	return r, nil
}

func (q *memQueries) InsertReserva(ctx context.Context, r Reserva) error {
	_, okU := q.st.usuarios[r.UsuarioID]
	_, okO := q.st.obras[r.ObraID]
	if !okU || !okO {
		return ErrConflict
	}
	q.st.reservas[r.ID] = r
	return nil
}

func (q *memQueries) UpdateReserva(ctx context.Context, r Reserva) error {
	if _, ok := q.st.reservas[r.ID]; !ok {
		return ErrNotFound
	}
	q.st.reservas[r.ID] = r
	return nil
}

func (q *memQueries) DeleteReserva(ctx context.Context, id uuid.UUID) error {
	if _, ok := q.st.reservas[id]; !ok {
		return ErrNotFound
	}
	delete(q.st.reservas, id)
	return nil
}
