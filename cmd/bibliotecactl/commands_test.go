package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian/biblioteca/internal/auth"
)

var errSemBanco = errors.New("sem banco no teste")

func newTestApp(stdin string, senhas ...string) (*app, *bytes.Buffer, *int) {
	out := &bytes.Buffer{}
	conexoes := 0
	a := &app{
		in:  strings.NewReader(stdin),
		out: out,
		connect: func(context.Context) (*pgxpool.Pool, error) {
			conexoes++
			return nil, errSemBanco
		},
		readPassword: func(string) (string, error) {
			if len(senhas) == 0 {
				return "", errors.New("sem senha")
			}
			s := senhas[0]
			senhas = senhas[1:]
			return s, nil
		},
	}
	return a, out, &conexoes
}

func execute(a *app, args ...string) error {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(context.Background())
}

func TestHashpass(t *testing.T) {
	a, out, conexoes := newTestApp("")
	require.NoError(t, execute(a, "hashpass", "segredo123"))

	hash := strings.TrimSpace(out.String())
	ok, err := auth.Verify("segredo123", hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, *conexoes)
}

func TestSchemaRecriarExigeConfirmacao(t *testing.T) {
	a, _, conexoes := newTestApp("")
	err := execute(a, "schema", "recriar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--confirmar")
	assert.Zero(t, *conexoes, "não conecta sem confirmação")

	err = execute(a, "schema", "recriar", "--confirmar")
	assert.ErrorIs(t, err, errSemBanco)
	assert.Equal(t, 1, *conexoes)
}

func TestCriarAdminLeEntradaEConfereSenha(t *testing.T) {
	a, out, conexoes := newTestApp("Maria\n52998224725\nmaria@biblioteca.test\n", "segredo123", "outra")
	err := execute(a, "criar-admin")
	require.EqualError(t, err, "as senhas não conferem")
	assert.Contains(t, out.String(), "Nome: ")
	assert.Contains(t, out.String(), "Email: ")
	assert.Zero(t, *conexoes)

	a, out, conexoes = newTestApp("", "segredo123", "segredo123")
	err = execute(a, "criar-admin", "--nome", "Maria", "--cpf", "52998224725", "--email", "maria@biblioteca.test")
	assert.ErrorIs(t, err, errSemBanco)
	assert.NotContains(t, out.String(), "Nome: ", "flags dispensam o prompt")
	assert.Equal(t, 1, *conexoes)
}

func TestSeedArquivoInexistente(t *testing.T) {
	a, _, conexoes := newTestApp("")
	err := execute(a, "seed", "--arquivo", "/nao/existe.yaml")
	require.Error(t, err)
	assert.Zero(t, *conexoes)
}
