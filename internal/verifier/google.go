package verifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	// DefaultAPIURL is the siteverify base used when settings leave api_url empty.
	DefaultAPIURL = "https://www.google.com/recaptcha/api/"
	// TurnstileAPIURL speaks the same siteverify protocol.
	TurnstileAPIURL = "https://challenges.cloudflare.com/turnstile/v0/"

	// AcceptsHeader is sent on every siteverify request regardless of the client.
	AcceptsHeader = "Accepts"
	AcceptsJSON   = "application/json"

	verifyPath = "siteverify"
)

// Field names are matched exactly; only the json tags above act as aliases.
var responseJSON = jsoniter.Config{
	EscapeHTML:             true,
	ValidateJsonRawMessage: true,
	CaseSensitive:          true,
}.Froze()

// DecodeError is returned when a 2xx siteverify body does not match VerifyResponse.
type DecodeError struct {
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("google decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Google posts VerifyRequests to {apiURL}siteverify over a shared resty client.
type Google struct {
	Endpoint string
	Client   *resty.Client
	Logger   *zap.Logger
}

// NewGoogle builds a siteverify client. apiURL falls back to DefaultAPIURL.
func NewGoogle(apiURL string, client *resty.Client, logger *zap.Logger) *Google {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	if client == nil {
		client = resty.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Google{
		Endpoint: apiURL + verifyPath,
		Client:   client,
		Logger:   logger,
	}
}

func (g *Google) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	resp, err := g.Client.R().
		SetContext(ctx).
		SetHeader(AcceptsHeader, AcceptsJSON).
		SetFormDataFromValues(req.Form()).
		Post(g.Endpoint)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		g.Logger.Warn("siteverify request failed", zap.String("endpoint", g.Endpoint), zap.Error(err))
		return nil, nil
	}
	if !resp.IsSuccess() {
		g.Logger.Warn("siteverify returned non-success status",
			zap.String("endpoint", g.Endpoint),
			zap.Int("status", resp.StatusCode()))
		return nil, nil
	}

	body := resp.Body()
	var out VerifyResponse
	if err := responseJSON.Unmarshal(body, &out); err != nil {
		g.Logger.Error("Error in attempt to parse siteverify response", zap.Error(err))
		return nil, &DecodeError{Body: body, Err: err}
	}
	return &out, nil
}
