// Package httpclient keeps named outbound clients so every verification call
// reuses the same connection pool instead of dialing per request.
package httpclient

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/berkan-cetinkaya/recaptcha/internal/verifier"
)

// DefaultName is the client name used for siteverify calls.
const DefaultName = "recaptcha_HttpClient"

// Option customizes a client when it is first created.
type Option func(*resty.Client)

// WithTimeout sets a per-request timeout. Clients have none by default.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// WithTransport replaces the base round tripper. It is still wrapped by otelhttp.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *resty.Client) {
		c.SetTransport(otelhttp.NewTransport(rt))
	}
}

// WithHeader adds a header sent on every request of the client.
func WithHeader(key, value string) Option {
	return func(c *resty.Client) {
		c.SetHeader(key, value)
	}
}

type Factory struct {
	mu      sync.Mutex
	clients map[string]*resty.Client
	opts    []Option
}

func NewFactory(opts ...Option) *Factory {
	return &Factory{
		clients: make(map[string]*resty.Client),
		opts:    opts,
	}
}

// Client returns the client registered under name, creating it on first use.
func (f *Factory) Client(name string) *resty.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[name]; ok {
		return c
	}
	c := newClient(f.opts)
	f.clients[name] = c
	return c
}

// Len reports how many named clients exist.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func newClient(opts []Option) *resty.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	c := resty.New().
		SetTransport(otelhttp.NewTransport(base)).
		SetHeader(verifier.AcceptsHeader, verifier.AcceptsJSON)
	for _, opt := range opts {
		opt(c)
	}
	return c
}
