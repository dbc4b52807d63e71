package util

import "time"

// Now devolve o instante atual em UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// LoadLocation carrega o fuso configurado, caindo para UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
