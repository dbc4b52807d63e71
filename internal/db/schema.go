package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// tabelas em ordem reversa de dependência, usada ao recriar o banco.
var tabelas = []string{"reservas", "emprestimos", "exemplares", "obras", "administradores", "usuarios", "categorias"}

// ApplySchema cria tabelas e índices ausentes; seguro para rodar mais de uma vez.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("aplicar schema: %w", err)
	}
	return nil
}

// RecreateSchema remove todas as tabelas do sistema e aplica o schema novamente.
func RecreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return WithTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		for _, tabela := range tabelas {
			if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+tabela+" CASCADE"); err != nil {
				return fmt.Errorf("drop %s: %w", tabela, err)
			}
		}
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("aplicar schema: %w", err)
		}
		return nil
	})
}

// Tables devolve os nomes das tabelas gerenciadas.
func Tables() []string {
	out := make([]string, len(tabelas))
	copy(out, tabelas)
	return out
}
