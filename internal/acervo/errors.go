package acervo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")

	// ErrConflict indica valor duplicado em campo único.
	ErrConflict = errors.New("registro duplicado")

	// ErrInvalidState indica operação incompatível com o estado atual.
	ErrInvalidState = errors.New("estado inválido")

	// ErrValidation indica campo malformado ou fora dos limites.
	ErrValidation = errors.New("dados inválidos")

	// ErrCredenciaisInvalidas cobre CPF desconhecido, senha errada e usuário não ativo.
	ErrCredenciaisInvalidas = errors.New("CPF ou senha incorretos")
)

// DomainError carrega a mensagem exibida ao cliente e a categoria do erro.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Kind }

func notFound(msg string) error { return &DomainError{Kind: ErrNotFound, Message: msg} }

func conflict(msg string) error { return &DomainError{Kind: ErrConflict, Message: msg} }

func invalidState(msg string) error { return &DomainError{Kind: ErrInvalidState, Message: msg} }

func validation(format string, args ...any) error {
	return &DomainError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// asNotFound troca ErrNotFound genérico pela mensagem da entidade.
func asNotFound(err error, msg string) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return notFound(msg)
	}
	return err
}

// asConflict trata ErrConflict vindo do banco quando a checagem prévia perdeu a corrida.
func asConflict(err error, msg string) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, ErrConflict) {
		return conflict(msg)
	}
	return err
}

// Message devolve a mensagem amigável de um erro de domínio.
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
