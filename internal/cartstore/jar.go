package cartstore

import (
	"context"
	"net/http"
	"sync"
)

// CookieJar collects the cookies a request reads and the ones its response will set.
// Reads see queued writes, so a cart saved earlier in the request reads back.
type CookieJar struct {
	mu       sync.Mutex
	incoming map[string]string
	queued   map[string]*http.Cookie
	order    []string
}

// NewCookieJar snapshots the request's cookies.
func NewCookieJar(r *http.Request) *CookieJar {
	jar := &CookieJar{
		incoming: map[string]string{},
		queued:   map[string]*http.Cookie{},
	}
	if r != nil {
		for _, c := range r.Cookies() {
			jar.incoming[c.Name] = c.Value
		}
	}
	return jar
}

// Get returns the value of name, preferring a queued write. A queued deletion hides
// the incoming value.
func (j *CookieJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.queued[name]; ok {
		if c.MaxAge < 0 {
			return "", false
		}
		return c.Value, true
	}
	v, ok := j.incoming[name]
	return v, ok
}

// Queue schedules cookie to be set on the response, replacing any earlier write.
func (j *CookieJar) Queue(cookie *http.Cookie) {
	if cookie == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.queued[cookie.Name]; !ok {
		j.order = append(j.order, cookie.Name)
	}
	j.queued[cookie.Name] = cookie
}

// Expire schedules the deletion of name.
func (j *CookieJar) Expire(name, path string) {
	j.Queue(&http.Cookie{Name: name, Value: "", Path: path, MaxAge: -1, HttpOnly: true})
}

// Flush writes the queued cookies as Set-Cookie headers and empties the queue.
func (j *CookieJar) Flush(w http.ResponseWriter) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, name := range j.order {
		http.SetCookie(w, j.queued[name])
	}
	for name, c := range j.queued {
		if c.MaxAge < 0 {
			delete(j.incoming, name)
		} else {
			j.incoming[name] = c.Value
		}
	}
	j.queued = map[string]*http.Cookie{}
	j.order = nil
}

type jarKey struct{}

// WithCookieJar stores the jar on the context.
func WithCookieJar(ctx context.Context, jar *CookieJar) context.Context {
	return context.WithValue(ctx, jarKey{}, jar)
}

// CookieJarFromContext returns the request's jar, or nil.
func CookieJarFromContext(ctx context.Context) *CookieJar {
	if ctx == nil {
		return nil
	}
	jar, _ := ctx.Value(jarKey{}).(*CookieJar)
	return jar
}
