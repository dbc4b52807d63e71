package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// chaves sem requisição há mais que isso são descartadas
	limiterMaxIdade = 10 * time.Minute
	// intervalo mínimo entre duas limpezas do mapa
	limiterLimpeza = time.Minute
)

// RateLimiter mantém um token bucket por chave (IP ou usuário).
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu          sync.Mutex
	buckets     map[string]*bucket
	ultimaVarre time.Time
}

type bucket struct {
	limiter *rate.Limiter
	visto   time.Time
}

// NewRateLimiter cria o limitador com taxa e rajada por chave.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(reqPerSec),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// reservar consome uma ficha da chave. Devolve zero quando a requisição
// pode seguir ou a espera até a próxima ficha.
func (r *RateLimiter) reservar(key string) time.Duration {
	agora := r.now()

	r.mu.Lock()
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.visto = agora
	if agora.Sub(r.ultimaVarre) >= limiterLimpeza {
		r.varrer(agora)
	}
	r.mu.Unlock()

	res := b.limiter.ReserveN(agora, 1)
	if !res.OK() {
		return time.Second
	}
	espera := res.DelayFrom(agora)
	if espera > 0 {
		res.CancelAt(agora)
	}
	return espera
}

// varrer exige r.mu.
func (r *RateLimiter) varrer(agora time.Time) {
	for k, b := range r.buckets {
		if agora.Sub(b.visto) > limiterMaxIdade {
			delete(r.buckets, k)
		}
	}
	r.ultimaVarre = agora
}

func (r *RateLimiter) tamanho() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

// LimitByKey aplica o limite pela chave de keyFunc. Requisições sem chave passam.
func (r *RateLimiter) LimitByKey(next http.Handler, keyFunc func(*http.Request) (string, bool)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		key, ok := keyFunc(req)
		if !ok || key == "" {
			next.ServeHTTP(w, req)
			return
		}

		if espera := r.reservar(key); espera > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(espera.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT", "Limite de requisições excedido")
			return
		}

		next.ServeHTTP(w, req)
	})
}

// IPRateLimit usa o IP do cliente como chave.
func IPRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return limiter.LimitByKey(next, func(r *http.Request) (string, bool) {
			return realIPFromRequest(r), true
		})
	}
}

// UserRateLimit usa o subject do token; depende de Auth antes na cadeia.
func UserRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return limiter.LimitByKey(next, func(r *http.Request) (string, bool) {
			subject := GetSubject(r.Context())
			return subject, subject != ""
		})
	}
}

func realIPFromRequest(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		primeiro, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(primeiro); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
