package events

import (
	"context"
	"sync"
)

// Recorder guarda eventos em memória; útil em testes e no modo sem broker.
type Recorder struct {
	mu      sync.Mutex
	eventos []Evento
}

func (r *Recorder) Publish(_ context.Context, evento Evento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventos = append(r.eventos, evento)
	return nil
}

// Tipos devolve, em ordem, os tipos publicados.
func (r *Recorder) Tipos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.eventos))
	for _, e := range r.eventos {
		out = append(out, e.Tipo)
	}
	return out
}

// Eventos devolve uma cópia do que foi publicado.
func (r *Recorder) Eventos() []Evento {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Evento, len(r.eventos))
	copy(out, r.eventos)
	return out
}
