package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veridian/biblioteca/internal/acervo"
	"github.com/veridian/biblioteca/internal/auth"
	"github.com/veridian/biblioteca/internal/db"
)

type app struct {
	in           io.Reader
	out          io.Writer
	connect      func(ctx context.Context) (*pgxpool.Pool, error)
	readPassword func(prompt string) (string, error)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "bibliotecactl",
		Short:        "Ferramentas administrativas da biblioteca",
		SilenceUsage: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)

	root.AddCommand(
		newSchemaCmd(a),
		newSeedCmd(a),
		newCriarAdminCmd(a),
		newHashpassCmd(a),
	)
	return root
}

func newSchemaCmd(a *app) *cobra.Command {
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Gerencia as tabelas do banco",
	}

	schema.AddCommand(&cobra.Command{
		Use:   "aplicar",
		Short: "Cria tabelas e índices ausentes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.ApplySchema(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema aplicado")
			return nil
		},
	})

	var confirmar bool
	recriar := &cobra.Command{
		Use:   "recriar",
		Short: "Apaga todas as tabelas e recria o schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmar {
				return errors.New("operação destrutiva: repita com --confirmar")
			}
			pool, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.RecreateSchema(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tabelas recriadas: %s\n", strings.Join(db.Tables(), ", "))
			return nil
		},
	}
	recriar.Flags().BoolVar(&confirmar, "confirmar", false, "confirma a remoção de todos os dados")
	schema.AddCommand(recriar)

	return schema
}

func newSeedCmd(a *app) *cobra.Command {
	var arquivo string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Carrega categorias e obras de exemplo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := acervo.SeedPadrao
			if arquivo != "" {
				raw, err := os.ReadFile(arquivo)
				if err != nil {
					return fmt.Errorf("ler %s: %w", arquivo, err)
				}
				data = raw
			}

			pool, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newAcervo(pool)
			res, err := svc.Seed(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "categorias: %d novas, %d existentes\n", res.Categorias, res.CategoriasExistentes)
			fmt.Fprintf(cmd.OutOrStdout(), "obras: %d novas (%d exemplares), %d existentes\n", res.Obras, res.Exemplares, res.ObrasExistentes)
			return nil
		},
	}
	cmd.Flags().StringVar(&arquivo, "arquivo", "", "YAML alternativo ao seed embutido")
	return cmd
}

type adminInput struct {
	nome  string
	cpf   string
	email string
	nivel int
}

func newCriarAdminCmd(a *app) *cobra.Command {
	var in adminInput
	cmd := &cobra.Command{
		Use:   "criar-admin",
		Short: "Cria um usuário administrador",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			var err error
			if in.nome, err = prompt(reader, out, "Nome: ", in.nome); err != nil {
				return err
			}
			if in.cpf, err = prompt(reader, out, "CPF: ", in.cpf); err != nil {
				return err
			}
			if in.email, err = prompt(reader, out, "Email: ", in.email); err != nil {
				return err
			}

			senha, err := a.readPassword("Senha: ")
			if err != nil {
				return fmt.Errorf("ler senha: %w", err)
			}
			confirmacao, err := a.readPassword("Confirme a senha: ")
			if err != nil {
				return fmt.Errorf("ler senha: %w", err)
			}
			if senha != confirmacao {
				return errors.New("as senhas não conferem")
			}

			pool, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newAcervo(pool)
			u, adm, err := svc.CriarUsuarioAdministrador(cmd.Context(), acervo.UsuarioInput{
				Nome:  in.nome,
				CPF:   in.cpf,
				Email: in.email,
				Senha: senha,
			}, in.nivel)
			if err != nil {
				return errors.New(acervo.Message(err))
			}
			fmt.Fprintf(out, "administrador criado: usuario=%s administrador=%s nivel=%d\n", u.ID, adm.ID, adm.NivelAcesso)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.nome, "nome", "", "nome completo")
	cmd.Flags().StringVar(&in.cpf, "cpf", "", "CPF (somente dígitos ou formatado)")
	cmd.Flags().StringVar(&in.email, "email", "", "email")
	cmd.Flags().IntVar(&in.nivel, "nivel", 1, "nível de acesso (1 a 3)")
	return cmd
}

func newHashpassCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hashpass <senha>",
		Short: "Imprime o hash argon2id de uma senha",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.Hash(args[0])
			if err != nil {
				return fmt.Errorf("hash: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newAcervo(pool *pgxpool.Pool) *acervo.Service {
	return acervo.NewService(acervo.NewRepository(pool), acervo.Config{},
		acervo.WithLogger(log.With().Str("component", "bibliotecactl").Logger()),
	)
}

// prompt devolve o valor já informado por flag ou lê uma linha da entrada.
func prompt(r *bufio.Reader, w io.Writer, label, atual string) (string, error) {
	if strings.TrimSpace(atual) != "" {
		return strings.TrimSpace(atual), nil
	}
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("ler %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}
