package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	corsMetodos   = "GET, POST, PUT, DELETE, OPTIONS"
	corsCabecalho = "Authorization, Content-Type, X-Requested-With"
	// o front lê Retry-After nos 429 e X-Request-Id nos relatos de erro
	corsExpostos = "Retry-After, X-Request-Id"
	corsMaxAge   = "600"
)

// politicaCORS é a lista ALLOW_ORIGINS já interpretada.
type politicaCORS struct {
	exatas   map[string]struct{}
	sufixos  []string // ".dominio", vindos de "*.dominio"
	qualquer bool
}

func novaPoliticaCORS(origens []string) politicaCORS {
	p := politicaCORS{exatas: make(map[string]struct{}, len(origens))}
	for _, o := range origens {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case o == "*":
			p.qualquer = true
		case strings.HasPrefix(o, "*."):
			p.sufixos = append(p.sufixos, strings.ToLower(o[1:]))
		default:
			p.exatas[o] = struct{}{}
		}
	}
	return p
}

// listada indica origem cadastrada, exata ou subdomínio de um curinga.
// O domínio raiz do curinga não conta.
func (p politicaCORS) listada(origem string) bool {
	if _, ok := p.exatas[origem]; ok {
		return true
	}
	if len(p.sufixos) == 0 {
		return false
	}
	u, err := url.Parse(origem)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suf := range p.sufixos {
		if strings.HasSuffix(host, suf) && host != suf[1:] {
			return true
		}
	}
	return false
}

// CORS aplica ALLOW_ORIGINS. Origens listadas recebem credenciais; "*"
// libera as demais sem credenciais, o que impede o cookie de refresh.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	p := novaPoliticaCORS(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origem := r.Header.Get("Origin")
			h := w.Header()
			if origem != "" {
				h.Add("Vary", "Origin")
				permitida := true
				switch {
				case p.listada(origem):
					h.Set("Access-Control-Allow-Origin", origem)
					h.Set("Access-Control-Allow-Credentials", "true")
				case p.qualquer:
					h.Set("Access-Control-Allow-Origin", "*")
				default:
					permitida = false
				}
				if permitida {
					h.Set("Access-Control-Allow-Headers", corsCabecalho)
					h.Set("Access-Control-Allow-Methods", corsMetodos)
					h.Set("Access-Control-Expose-Headers", corsExpostos)
					h.Set("Access-Control-Max-Age", corsMaxAge)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
