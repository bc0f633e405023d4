package session

import (
	"context"
	"net/http"
	"sync"
)

type jarKey struct{}

// Jar carries one browser request's cookies and the response they are
// written to. Token writes are visible to later reads in the same request.
type Jar struct {
	mu       sync.Mutex
	req      *http.Request
	w        http.ResponseWriter
	token    string
	pending  bool
	redirect string
}

func NewJar(r *http.Request, w http.ResponseWriter) *Jar {
	return &Jar{req: r, w: w}
}

func WithJar(ctx context.Context, jar *Jar) context.Context {
	return context.WithValue(ctx, jarKey{}, jar)
}

// JarFrom returns the jar attached to ctx, or nil outside a browser request.
func JarFrom(ctx context.Context) *Jar {
	jar, _ := ctx.Value(jarKey{}).(*Jar)
	return jar
}

// Redirect is the path the API client asked to navigate to, if any.
func (j *Jar) Redirect() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.redirect
}

func (j *Jar) path() string {
	if j.req == nil || j.req.URL == nil {
		return ""
	}
	return j.req.URL.Path
}

func (j *Jar) cookie(name string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.pending {
		return j.token
	}
	if j.req == nil {
		return ""
	}
	c, err := j.req.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (j *Jar) set(c *http.Cookie, token string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.token, j.pending = token, true
	if j.w != nil {
		http.SetCookie(j.w, c)
	}
}

func (j *Jar) expire(c *http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w != nil {
		http.SetCookie(j.w, c)
	}
}

func (j *Jar) navigate(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.redirect = path
}
