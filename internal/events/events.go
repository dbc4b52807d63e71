// Package events publica eventos de domínio depois do commit.
package events

import (
	"context"
	"time"
)

const (
	EmprestimoCriado     = "emprestimo.criado"
	EmprestimoDevolvido  = "emprestimo.devolvido"
	EmprestimoRenovado   = "emprestimo.renovado"
	UsuarioRemovido      = "usuario.removido"
	EmprestimosAtrasados = "emprestimos.atrasados"
)

// Evento é o envelope serializado para a fila.
type Evento struct {
	Tipo     string    `json:"tipo"`
	Ocorreu  time.Time `json:"ocorreu"`
	Entidade string    `json:"entidade,omitempty"`
	Dados    any       `json:"dados"`
}

// Publisher entrega eventos para consumidores externos.
type Publisher interface {
	Publish(ctx context.Context, evento Evento) error
}

// NoopPublisher descarta eventos quando não há broker configurado.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Evento) error { return nil }
