// Package monitor roda a varredura periódica de empréstimos vencidos e
// avisa a equipe quando algum passa a atrasado.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper é a operação de varredura do acervo.
type Sweeper interface {
	AtualizarAtrasados(ctx context.Context) (int64, error)
}

// Config controla o intervalo da varredura e o intervalo mínimo entre alertas.
type Config struct {
	Interval      time.Duration
	AlertThrottle time.Duration
}

// Resumo descreve a última execução.
type Resumo struct {
	Ativo            bool       `json:"ativo"`
	Intervalo        string     `json:"intervalo"`
	UltimaExecucao   *time.Time `json:"ultimaExecucao"`
	UltimoAtualizado int64      `json:"ultimoAtualizado"`
	TotalAtualizado  int64      `json:"totalAtualizado"`
	UltimoErro       *string    `json:"ultimoErro"`
}

// Service executa a varredura em loop.
type Service struct {
	sweeper  Sweeper
	cfg      Config
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time

	mu           sync.Mutex
	resumo       Resumo
	ultimoAlerta time.Time
}

func NewService(sweeper Sweeper, cfg Config, logger zerolog.Logger, notifier Notifier) *Service {
	if cfg.AlertThrottle <= 0 {
		cfg.AlertThrottle = 30 * time.Minute
	}
	return &Service{
		sweeper:  sweeper,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		resumo: Resumo{
			Ativo:     cfg.Interval > 0,
			Intervalo: cfg.Interval.String(),
		},
	}
}

// Enabled indica se o loop periódico está configurado.
func (s *Service) Enabled() bool { return s.cfg.Interval > 0 }

// Run bloqueia até o contexto ser cancelado. Sem intervalo configurado
// retorna imediatamente.
func (s *Service) Run(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("monitor: loop iniciado")

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("monitor: primeira execução falhou")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("monitor: loop encerrado")
			return nil
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("monitor: execução periódica falhou")
			}
		}
	}
}

// RunOnce executa uma varredura e devolve quantos empréstimos viraram atrasados.
func (s *Service) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.sweeper.AtualizarAtrasados(ctx)
	agora := s.now()

	s.mu.Lock()
	s.resumo.UltimaExecucao = &agora
	if err != nil {
		msg := err.Error()
		s.resumo.UltimoErro = &msg
		s.mu.Unlock()
		return 0, fmt.Errorf("varrer atrasados: %w", err)
	}
	s.resumo.UltimoErro = nil
	s.resumo.UltimoAtualizado = n
	s.resumo.TotalAtualizado += n
	total := s.resumo.TotalAtualizado
	alertar := n > 0 && s.notifier != nil && agora.Sub(s.ultimoAlerta) >= s.cfg.AlertThrottle
	if alertar {
		s.ultimoAlerta = agora
	}
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info().Int64("atualizados", n).Msg("monitor: empréstimos marcados como atrasados")
	}
	if alertar {
		msg := AlertMessage{
			Title:    "Empréstimos atrasados",
			Text:     fmt.Sprintf("%d empréstimo(s) passaram do prazo de devolução.", n),
			Severity: SeveridadeAviso,
			Campos: []Campo{
				{Nome: "Nesta varredura", Valor: fmt.Sprint(n)},
				{Nome: "Total desde o início", Valor: fmt.Sprint(total)},
			},
		}
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.Error().Err(err).Msg("monitor: falha ao enviar alerta")
		}
	}
	return n, nil
}

// Resumo devolve uma cópia do estado da última varredura.
func (s *Service) Resumo() Resumo {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.resumo
	return r
}
