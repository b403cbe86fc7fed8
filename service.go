package recaptcha

import (
	"context"
	"errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/berkan-cetinkaya/recaptcha/internal/verifier"
)

type (
	// VerifyRequest is the record posted to siteverify.
	VerifyRequest = verifier.VerifyRequest
	// VerifyResponse is the parsed siteverify reply.
	VerifyResponse = verifier.VerifyResponse
	// SiteVerifier performs the siteverify exchange. A nil response with a nil
	// error means no usable answer was received.
	SiteVerifier = verifier.Verifier
)

// Outcome is the result delivered by the asynchronous verify calls.
type Outcome struct {
	Passed bool
	Err    error
}

// Option configures a ServiceV2 or ServiceV3.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger       *zap.Logger
	httpClient   *resty.Client
	siteVerifier SiteVerifier
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient sets the pooled client used for siteverify calls.
func WithHTTPClient(client *resty.Client) Option {
	return func(o *serviceOptions) {
		o.httpClient = client
	}
}

// WithSiteVerifier replaces the siteverify exchange entirely.
func WithSiteVerifier(v SiteVerifier) Option {
	return func(o *serviceOptions) {
		o.siteVerifier = v
	}
}

func buildSiteVerify(apiURL string, opts []Option) siteVerify {
	o := serviceOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	client := o.siteVerifier
	if client == nil {
		client = verifier.NewGoogle(apiURL, o.httpClient, o.logger)
	}
	return siteVerify{client: client, logger: o.logger}
}

// siteVerify holds what v2 and v3 share: token extraction, request building and
// the HTTP exchange. Each version supplies its own decision function.
type siteVerify struct {
	client SiteVerifier
	logger *zap.Logger
}

func (h siteVerify) token(src TokenSource) string {
	if src == nil {
		return ""
	}
	return src.Token()
}

func (h siteVerify) run(ctx context.Context, enabled bool, secret string, src TokenSource, decide func(*VerifyResponse) bool) (bool, error) {
	if !enabled {
		h.logger.Info("Skip attempt to verify reCAPTCHA because it is disabled via settings")
		return true, nil
	}
	h.logger.Info("Attempt to verify reCAPTCHA")

	token := h.token(src)
	if token == "" {
		h.logger.Warn("Attempt to verify reCAPTCHA failed", zap.String("reason", "token missing"))
		return false, nil
	}

	req := verifier.NewRequest(secret, token, src.RemoteIP())
	h.logger.Debug("Verify reCAPTCHA request data", zap.String("remoteip", req.RemoteIP))

	res, err := h.client.Verify(ctx, req)
	if err != nil {
		var decodeErr *verifier.DecodeError
		if errors.As(err, &decodeErr) {
			return false, &ServiceError{Err: err}
		}
		return false, err
	}
	if res == nil {
		h.logger.Warn("Attempt to verify reCAPTCHA failed", zap.String("reason", "no response"))
		return false, nil
	}
	h.logger.Debug("Verify reCAPTCHA response data",
		zap.Bool("success", res.Success),
		zap.Float64("score", res.Score),
		zap.String("action", res.Action),
		zap.String("hostname", res.Hostname),
		zap.Strings("error_codes", res.ErrorCodes))

	if res.HasErrors() {
		h.logger.Debug("Verify reCAPTCHA contains response errors")
		return false, &VerifyError{Response: res}
	}
	return decide(res), nil
}

// async runs fn on its own goroutine. The blocking calls receive from this
// channel, so both forms share one code path.
func async(fn func() (bool, error)) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		passed, err := fn()
		ch <- Outcome{Passed: passed, Err: err}
	}()
	return ch
}

func await(ch <-chan Outcome) (bool, error) {
	out := <-ch
	return out.Passed, out.Err
}
