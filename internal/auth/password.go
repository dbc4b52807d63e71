package auth

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
)

// ParametrosSenha são os custos do argon2id para hashes novos. Cada hash
// carrega os próprios parâmetros, então mudar estes valores não invalida
// senhas já gravadas.
var ParametrosSenha = argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera o hash argon2id da senha.
func Hash(senha string) (string, error) {
	p := ParametrosSenha
	return argon2id.CreateHash(senha, &p)
}

// Verify compara a senha com um hash argon2id.
func Verify(senha, hash string) (bool, error) {
	if hash == "" {
		return false, errors.New("hash de senha vazio")
	}
	ok, err := argon2id.ComparePasswordAndHash(senha, hash)
	if err != nil {
		return false, fmt.Errorf("hash de senha inválido: %w", err)
	}
	return ok, nil
}

// NeedsRehash indica que o hash foi gerado com parâmetros diferentes dos atuais.
func NeedsRehash(hash string) (bool, error) {
	p, _, _, err := argon2id.DecodeHash(hash)
	if err != nil {
		return false, fmt.Errorf("hash de senha inválido: %w", err)
	}
	atual := ParametrosSenha
	return p.Memory != atual.Memory ||
		p.Iterations != atual.Iterations ||
		p.Parallelism != atual.Parallelism ||
		p.KeyLength != atual.KeyLength, nil
}
