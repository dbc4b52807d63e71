package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu       sync.Mutex
	retornos []int64
	err      error
	chamadas int
}

func (f *fakeSweeper) AtualizarAtrasados(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chamadas++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.retornos) == 0 {
		return 0, nil
	}
	n := f.retornos[0]
	f.retornos = f.retornos[1:]
	return n, nil
}

type slackFake struct {
	mu     sync.Mutex
	textos []string
}

func newSlackFake(t *testing.T) (*slackFake, string) {
	t.Helper()
	fake := &slackFake{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fake.mu.Lock()
		fake.textos = append(fake.textos, body.Text)
		fake.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

func (f *slackFake) recebidos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.textos...)
}

func TestRunOnceNotificaComThrottle(t *testing.T) {
	slack, url := newSlackFake(t)
	sweeper := &fakeSweeper{retornos: []int64{0, 3, 2}}
	svc := NewService(sweeper, Config{Interval: time.Minute}, zerolog.Nop(), NewSlackNotifier(url))
	agora := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return agora }
	ctx := context.Background()

	n, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, slack.recebidos(), "sem atrasos não há alerta")

	n, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.Len(t, slack.recebidos(), 1)
	assert.True(t, strings.Contains(slack.recebidos()[0], "3 empréstimo(s)"))

	agora = agora.Add(5 * time.Minute)
	_, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, slack.recebidos(), 1, "alerta dentro da janela é suprimido")

	r := svc.Resumo()
	assert.True(t, r.Ativo)
	assert.EqualValues(t, 2, r.UltimoAtualizado)
	assert.EqualValues(t, 5, r.TotalAtualizado)
	assert.Nil(t, r.UltimoErro)
}

func TestRunOnceRegistraErro(t *testing.T) {
	svc := NewService(&fakeSweeper{err: errors.New("banco fora")}, Config{}, zerolog.Nop(), nil)

	_, err := svc.RunOnce(context.Background())
	require.Error(t, err)

	r := svc.Resumo()
	assert.False(t, r.Ativo)
	require.NotNil(t, r.UltimoErro)
	assert.Equal(t, "banco fora", *r.UltimoErro)
}

func TestRunDesligadoRetornaNaHora(t *testing.T) {
	sweeper := &fakeSweeper{}
	svc := NewService(sweeper, Config{}, zerolog.Nop(), nil)
	require.NoError(t, svc.Run(context.Background()))
	assert.Zero(t, sweeper.chamadas)
}

func TestRunParaComContexto(t *testing.T) {
	sweeper := &fakeSweeper{}
	svc := NewService(sweeper, Config{Interval: 10 * time.Millisecond}, zerolog.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	assert.Eventually(t, func() bool {
		sweeper.mu.Lock()
		defer sweeper.mu.Unlock()
		return sweeper.chamadas >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run não encerrou após cancelamento")
	}
}

func TestSlackNotifierSemURL(t *testing.T) {
	assert.Nil(t, NewSlackNotifier(""))
}

func TestMontarPayloadSlack(t *testing.T) {
	agora := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	simples := montarPayload(AlertMessage{Text: "ok"}, agora)
	assert.Equal(t, ":information_source: ok", simples.Text)
	assert.Empty(t, simples.Attachments)

	p := montarPayload(AlertMessage{
		Title:    "Falha",
		Text:     "banco fora",
		Severity: SeveridadeCritica,
		Campos:   []Campo{{Nome: "tentativas", Valor: "3"}},
	}, agora)
	assert.Equal(t, ":rotating_light: *Falha*\nbanco fora", p.Text)
	require.Len(t, p.Attachments, 1)
	assert.Equal(t, "danger", p.Attachments[0].Color)
	assert.Equal(t, agora.Unix(), p.Attachments[0].TS)
	assert.Equal(t, []slackField{{Title: "tentativas", Value: "3", Short: true}}, p.Attachments[0].Fields)
}
