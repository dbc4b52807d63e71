package acervo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var SeedPadrao []byte

type seedCategoria struct {
	Nome      string  `yaml:"nome"`
	Descricao *string `yaml:"descricao"`
}

type seedObra struct {
	Titulo          string  `yaml:"titulo"`
	Autor           string  `yaml:"autor"`
	ISBN            string  `yaml:"isbn"`
	Categoria       string  `yaml:"categoria"`
	Editora         *string `yaml:"editora"`
	AnoPublicacao   *int    `yaml:"anoPublicacao"`
	Descricao       *string `yaml:"descricao"`
	TotalExemplares int     `yaml:"totalExemplares"`
}

type seedArquivo struct {
	Categorias []seedCategoria `yaml:"categorias"`
	Obras      []seedObra      `yaml:"obras"`
}

// SeedResultado conta o que foi criado e o que já existia.
type SeedResultado struct {
	Categorias           int
	Obras                int
	Exemplares           int
	CategoriasExistentes int
	ObrasExistentes      int
}

// Seed carrega categorias e obras de um YAML pelo próprio serviço, de modo
// que os exemplares saem das mesmas regras da API. Nomes e ISBNs já
// cadastrados são ignorados.
func (s *Service) Seed(ctx context.Context, data []byte) (SeedResultado, error) {
	var arquivo seedArquivo
	if err := yaml.Unmarshal(data, &arquivo); err != nil {
		return SeedResultado{}, fmt.Errorf("seed: yaml inválido: %w", err)
	}

	var res SeedResultado
	for _, c := range arquivo.Categorias {
		_, err := s.CriarCategoria(ctx, CategoriaInput{Nome: c.Nome, Descricao: c.Descricao})
		switch {
		case err == nil:
			res.Categorias++
		case errors.Is(err, ErrConflict):
			res.CategoriasExistentes++
		default:
			return res, fmt.Errorf("seed: categoria %q: %w", c.Nome, err)
		}
	}

	for _, o := range arquivo.Obras {
		var categoria Categoria
		err := s.store.WithTx(ctx, func(ctx context.Context, q Queries) error {
			var err error
			categoria, err = q.GetCategoriaByNome(ctx, o.Categoria)
			return asNotFound(err, "Categoria não encontrada: "+o.Categoria)
		})
		if err != nil {
			return res, fmt.Errorf("seed: obra %q: %w", o.Titulo, err)
		}

		obra, err := s.CriarObra(ctx, ObraInput{
			Titulo:          o.Titulo,
			Autor:           o.Autor,
			ISBN:            o.ISBN,
			CategoriaID:     categoria.ID,
			Editora:         o.Editora,
			AnoPublicacao:   o.AnoPublicacao,
			Descricao:       o.Descricao,
			TotalExemplares: o.TotalExemplares,
		})
		switch {
		case err == nil:
			res.Obras++
			res.Exemplares += obra.TotalExemplares
		case errors.Is(err, ErrConflict):
			res.ObrasExistentes++
		default:
			return res, fmt.Errorf("seed: obra %q: %w", o.Titulo, err)
		}
	}
	return res, nil
}
