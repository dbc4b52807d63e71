package acervo

import (
	"strings"

	"github.com/veridian/biblioteca/internal/util"
)

func trimmed(s string) string { return strings.TrimSpace(s) }

// opcional normaliza texto opcional: vazio vira nil.
func opcional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func checkLength(value, field string, min, max int) error {
	if err := util.ValidateLength(value, field, min, max); err != nil {
		return validation("%s", err.Error())
	}
	return nil
}

func checkOptionalLength(value *string, field string, max int) error {
	if value == nil {
		return nil
	}
	return checkLength(*value, field, 0, max)
}

func checkAno(ano *int) error {
	if ano == nil {
		return nil
	}
	if *ano < 1000 || *ano > 9999 {
		return validation("anoPublicacao deve estar entre 1000 e 9999")
	}
	return nil
}
