package util

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email inválido")
	}
	return nil
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < 6 {
		return errors.New("senha deve ter pelo menos 6 caracteres")
	}
	if n > 100 {
		return errors.New("senha deve ter no máximo 100 caracteres")
	}
	return nil
}

// ValidateLength confere limites em caracteres (não bytes).
func ValidateLength(value, field string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min {
		if min <= 1 {
			return errors.New(field + " obrigatório")
		}
		return errors.New(field + " muito curto")
	}
	if max > 0 && n > max {
		return errors.New(field + " muito longo")
	}
	return nil
}

// OnlyDigits remove pontuação de documentos como CPF.
func OnlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCPF confere tamanho e dígitos verificadores.
func ValidateCPF(cpf string) error {
	if len(cpf) != 11 || OnlyDigits(cpf) != cpf {
		return errors.New("CPF deve conter exatamente 11 dígitos")
	}

	repetido := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			repetido = false
			break
		}
	}
	if repetido {
		return errors.New("CPF inválido")
	}

	digits := make([]int, 11)
	for i := range cpf {
		digits[i] = int(cpf[i] - '0')
	}

	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += digits[i] * (n + 1 - i)
		}
		dv := (sum * 10) % 11
		if dv == 10 {
			dv = 0
		}
		if dv != digits[n] {
			return errors.New("CPF inválido")
		}
	}
	return nil
}
