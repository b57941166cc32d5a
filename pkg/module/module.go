package module

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/JaimeStill/osenchi/pkg/middleware"
)

// ErrInvalidPrefix indicates a module prefix that is not a single path segment.
var ErrInvalidPrefix = errors.New("invalid module prefix")

// Module serves one path prefix through its own middleware stack. The prefix
// is stripped before the inner handler sees the request.
type Module struct {
	prefix string
	inner  http.Handler
	stack  middleware.System

	once    sync.Once
	handler http.Handler
}

// New creates a Module mounted at prefix, a single segment such as "/api".
// An invalid prefix panics with ErrInvalidPrefix; configuration should check
// it first with ValidatePrefix.
func New(prefix string, inner http.Handler) *Module {
	if err := ValidatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{
		prefix: prefix,
		inner:  inner,
		stack:  middleware.New(),
	}
}

// ValidatePrefix reports whether prefix is one leading-slash path segment.
func ValidatePrefix(prefix string) error {
	segment, ok := strings.CutPrefix(prefix, "/")
	switch {
	case !ok:
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPrefix, prefix)
	case segment == "":
		return fmt.Errorf("%w: %q names no segment", ErrInvalidPrefix, prefix)
	case strings.Contains(segment, "/"):
		return fmt.Errorf("%w: %q has more than one segment", ErrInvalidPrefix, prefix)
	}
	return nil
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends middleware. The stack is composed on the first request, so Use
// must be called before the module serves traffic.
func (m *Module) Use(mws ...func(http.Handler) http.Handler) {
	m.stack.Use(mws...)
}

func (m *Module) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	m.once.Do(func() {
		m.handler = m.stack.Apply(m.inner)
	})

	path := strings.TrimPrefix(req.URL.Path, m.prefix)
	if path == "" {
		path = "/"
	}
	m.handler.ServeHTTP(w, cloneRequest(req, path))
}

// cloneRequest copies req with a new path, leaving the caller's request intact.
func cloneRequest(req *http.Request, path string) *http.Request {
	out := req.Clone(req.Context())
	out.URL = new(url.URL)
	*out.URL = *req.URL
	out.URL.Path = path
	out.URL.RawPath = ""
	return out
}
