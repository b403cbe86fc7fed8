package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/berkan-cetinkaya/recaptcha/internal/policy"
)

// Verifier is what Middleware gates requests on. ServiceV2 and ServiceV3 implement it.
type Verifier interface {
	Verify(ctx context.Context, src TokenSource) (bool, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, src TokenSource) (bool, error)

func (f VerifierFunc) Verify(ctx context.Context, src TokenSource) (bool, error) {
	return f(ctx, src)
}

// VerificationResult is handed to the FailureHandler when a request is rejected.
type VerificationResult struct {
	Success    bool     `json:"success"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	ErrorCodes []string `json:"error_codes,omitempty"`
}

// Failure statuses.
const (
	StatusTokenMissing       = "token_missing"
	StatusVerificationFailed = "verification_failed"
	StatusVerifyError        = "verify_error"
	StatusServiceError       = "service_error"
	StatusPolicyError        = "policy_error"
	StatusActionMismatch     = "action_mismatch"
	StatusRequestError       = "request_error"
)

type FailureHandler func(http.ResponseWriter, *http.Request, VerificationResult)

type middlewareConfig struct {
	failureHandler FailureHandler
	timeout        time.Duration
	logger         *zap.Logger
}

type MiddlewareOption func(*middlewareConfig)

func WithFailureHandler(handler FailureHandler) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if handler != nil {
			cfg.failureHandler = handler
		}
	}
}

// WithTimeout bounds each verification. No bound is applied by default.
func WithTimeout(d time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.timeout = d
	}
}

func WithMiddlewareLogger(logger *zap.Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Middleware lets a request through only when v verifies it.
func Middleware(v Verifier, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		failureHandler: JSONFailureHandler(http.StatusBadRequest),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if cfg.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
				defer cancel()
			}

			src := FromRequest(r)
			passed, err := v.Verify(ctx, src)
			if err != nil {
				cfg.logger.Warn("captcha verification error", zap.String("path", r.URL.Path), zap.Error(err))
				cfg.failureHandler(w, r, errorResult(err))
				return
			}
			if !passed {
				if src.Token() == "" {
					cfg.failureHandler(w, r, VerificationResult{
						Status:  StatusTokenMissing,
						Message: "missing captcha token",
					})
					return
				}
				cfg.failureHandler(w, r, VerificationResult{
					Status:  StatusVerificationFailed,
					Message: "captcha verification failed",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type (
	// Policy is the v3 verification policy for one action.
	Policy = policy.Policy
	// PolicyStore maps actions to policies.
	PolicyStore = policy.Store
)

// UsePolicyDefault as a passing score defers to the settings default.
const UsePolicyDefault = policy.UseDefault

// NewPolicyStore builds an in-memory store; unknown actions get def.
func NewPolicyStore(def Policy, actions map[string]Policy) *PolicyStore {
	return policy.NewStore(def, actions)
}

// PolicySource yields the current per-action policy store.
type PolicySource interface {
	Current() (*PolicyStore, error)
}

type staticPolicies struct {
	store *PolicyStore
}

func (s staticPolicies) Current() (*PolicyStore, error) {
	return s.store, nil
}

// StaticPolicies serves a fixed store.
func StaticPolicies(store *PolicyStore) PolicySource {
	return staticPolicies{store: store}
}

// NewPolicyLoader returns a PolicySource backed by a YAML file that is reloaded when it changes.
func NewPolicyLoader(path string) PolicySource {
	return policy.NewLoader(path)
}

type policyError struct {
	err error
}

func (e *policyError) Error() string {
	return fmt.Sprintf("failed to load policy: %v", e.err)
}

func (e *policyError) Unwrap() error {
	return e.err
}

// ActionMiddleware gates a v3 endpoint using the passing score configured for
// action. Tokens issued for any other action are rejected.
func ActionMiddleware(svc *ServiceV3, policies PolicySource, action string, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	return Middleware(VerifierFunc(func(ctx context.Context, src TokenSource) (bool, error) {
		store, err := policies.Current()
		if err != nil {
			return false, &policyError{err: err}
		}
		p, _ := store.PolicyFor(action)
		return svc.VerifyAction(ctx, src, action, p.PassingScore)
	}), opts...)
}

func errorResult(err error) VerificationResult {
	var (
		verifyErr  *VerifyError
		serviceErr *ServiceError
		policyErr  *policyError
		actionErr  *ActionMismatchError
	)
	switch {
	case errors.As(err, &verifyErr):
		return VerificationResult{
			Status:     StatusVerifyError,
			Message:    verifyErr.Error(),
			ErrorCodes: verifyErr.Codes(),
		}
	case errors.As(err, &serviceErr):
		return VerificationResult{
			Status:  StatusServiceError,
			Message: "captcha provider returned an unreadable response",
		}
	case errors.As(err, &actionErr):
		return VerificationResult{
			Status:  StatusActionMismatch,
			Message: actionErr.Error(),
		}
	case errors.As(err, &policyErr):
		return VerificationResult{
			Status:  StatusPolicyError,
			Message: policyErr.Error(),
		}
	default:
		return VerificationResult{
			Status:  StatusRequestError,
			Message: fmt.Sprintf("verify error: %v", err),
		}
	}
}

func JSONFailureHandler(status int) FailureHandler {
	return func(w http.ResponseWriter, _ *http.Request, result VerificationResult) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(result)
	}
}

type injectedKey struct{}

type injected struct {
	siteKeyV2 string
	themeV2   Theme
	sizeV2    Size
	siteKeyV3 string
}

// InjectSettings stores the public v2/v3 settings on the request context for
// templates. Either settings may be nil.
func InjectSettings(v2 *SettingsV2, v3 *SettingsV3) func(http.Handler) http.Handler {
	var values injected
	if v2 != nil {
		values.siteKeyV2 = v2.SiteKey
		values.themeV2 = v2.Theme
		values.sizeV2 = v2.Size
	}
	if v3 != nil {
		values.siteKeyV3 = v3.SiteKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), injectedKey{}, values)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func injectedFrom(ctx context.Context) injected {
	v, _ := ctx.Value(injectedKey{}).(injected)
	return v
}

func SiteKeyV2(ctx context.Context) string { return injectedFrom(ctx).siteKeyV2 }
func ThemeV2(ctx context.Context) Theme    { return injectedFrom(ctx).themeV2 }
func SizeV2(ctx context.Context) Size      { return injectedFrom(ctx).sizeV2 }
func SiteKeyV3(ctx context.Context) string { return injectedFrom(ctx).siteKeyV3 }
