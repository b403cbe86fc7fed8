package recaptcha

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/berkan-cetinkaya/recaptcha/internal/httpclient"
)

// ClientOption customizes the pooled siteverify client of a Registry.
type ClientOption = httpclient.Option

// ClientTimeout bounds every siteverify request made through the registry.
func ClientTimeout(d time.Duration) ClientOption {
	return httpclient.WithTimeout(d)
}

// ClientTransport sets the base round tripper of the pooled client.
func ClientTransport(rt http.RoundTripper) ClientOption {
	return httpclient.WithTransport(rt)
}

// Registry wires v2/v3 services to one shared outbound client. Registration is
// idempotent per registry: adding a version twice returns the first service.
type Registry struct {
	logger  *zap.Logger
	clients *httpclient.Factory

	mu sync.Mutex
	v2 *ServiceV2
	v3 *ServiceV3
}

func NewRegistry(logger *zap.Logger, opts ...ClientOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		clients: httpclient.NewFactory(opts...),
	}
}

// AddV2 validates settings and registers the v2 service.
func (r *Registry) AddV2(settings SettingsV2, opts ...Option) (*ServiceV2, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.v2 != nil {
		r.logger.Debug("reCAPTCHA v2 already registered")
		return r.v2, nil
	}
	svc, err := NewServiceV2(settings, r.serviceOptions(opts)...)
	if err != nil {
		return nil, err
	}
	r.v2 = svc
	r.logger.Info("reCAPTCHA v2 registered", zap.Bool("enabled", svc.settings.Enabled), zap.String("api_url", svc.settings.APIURL))
	return svc, nil
}

// AddV3 validates settings and registers the v3 service.
func (r *Registry) AddV3(settings SettingsV3, opts ...Option) (*ServiceV3, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.v3 != nil {
		r.logger.Debug("reCAPTCHA v3 already registered")
		return r.v3, nil
	}
	svc, err := NewServiceV3(settings, r.serviceOptions(opts)...)
	if err != nil {
		return nil, err
	}
	r.v3 = svc
	r.logger.Info("reCAPTCHA v3 registered", zap.Bool("enabled", svc.settings.Enabled), zap.String("api_url", svc.settings.APIURL))
	return svc, nil
}

// AddConfig registers every version present in cfg.
func (r *Registry) AddConfig(cfg Config) error {
	if cfg.V2 != nil {
		if _, err := r.AddV2(*cfg.V2); err != nil {
			return err
		}
	}
	if cfg.V3 != nil {
		if _, err := r.AddV3(*cfg.V3); err != nil {
			return err
		}
	}
	return nil
}

// V2 returns the registered v2 service or nil.
func (r *Registry) V2() *ServiceV2 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v2
}

// V3 returns the registered v3 service or nil.
func (r *Registry) V3() *ServiceV3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v3
}

// InjectSettings is InjectSettings for whatever versions are registered.
func (r *Registry) InjectSettings() func(http.Handler) http.Handler {
	var (
		v2 *SettingsV2
		v3 *SettingsV3
	)
	if svc := r.V2(); svc != nil {
		s := svc.Settings()
		v2 = &s
	}
	if svc := r.V3(); svc != nil {
		s := svc.Settings()
		v3 = &s
	}
	return InjectSettings(v2, v3)
}

func (r *Registry) serviceOptions(opts []Option) []Option {
	base := []Option{
		WithLogger(r.logger),
		WithHTTPClient(r.clients.Client(httpclient.DefaultName)),
	}
	return append(base, opts...)
}
