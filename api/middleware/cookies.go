package middleware

import (
	"net/http"
	"sync"

	"github.com/angelmondragon/cartd/internal/cartstore"
)

// hookWriter runs before once, right before the response header goes out.
type hookWriter struct {
	http.ResponseWriter
	once   sync.Once
	before func()
}

func (w *hookWriter) fire() {
	w.once.Do(w.before)
}

func (w *hookWriter) WriteHeader(code int) {
	w.fire()
	w.ResponseWriter.WriteHeader(code)
}

func (w *hookWriter) Write(b []byte) (int, error) {
	w.fire()
	return w.ResponseWriter.Write(b)
}

func (w *hookWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Cookies attaches a request-scoped cookie jar and writes its queued cookies
// before the response header is sent.
func Cookies() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jar := cartstore.NewCookieJar(r)
			hw := &hookWriter{ResponseWriter: w}
			hw.before = func() { jar.Flush(hw.ResponseWriter) }

			next.ServeHTTP(hw, r.WithContext(cartstore.WithCookieJar(r.Context(), jar)))
			hw.fire()
		})
	}
}
