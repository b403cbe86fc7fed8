package verifier

import (
	"context"
	"net/url"
	"time"
)

// Known siteverify error codes.
const (
	CodeMissingInputSecret   = "missing-input-secret"
	CodeInvalidInputSecret   = "invalid-input-secret"
	CodeMissingInputResponse = "missing-input-response"
	CodeInvalidInputResponse = "invalid-input-response"
	CodeBadRequest           = "bad-request"
	CodeTimeoutOrDuplicate   = "timeout-or-duplicate"
)

// VerifyRequest is the outbound siteverify record. Built fresh per attempt.
type VerifyRequest struct {
	Secret   string
	Response string
	RemoteIP string
}

// NewRequest builds a VerifyRequest from a secret, the user token and the caller IP.
func NewRequest(secret, token, remoteIP string) VerifyRequest {
	return VerifyRequest{
		Secret:   secret,
		Response: token,
		RemoteIP: remoteIP,
	}
}

// Form returns the form fields posted to siteverify. remoteip is always sent,
// empty when the caller IP is unknown.
func (r VerifyRequest) Form() url.Values {
	return url.Values{
		"secret":   {r.Secret},
		"response": {r.Response},
		"remoteip": {r.RemoteIP},
	}
}

// VerifyResponse is the provider reply. Score and Action are only meaningful for v3.
type VerifyResponse struct {
	Success            bool       `json:"success"`
	Score              float64    `json:"score"`
	Action             string     `json:"action"`
	ChallengeTimestamp *time.Time `json:"challenge_ts,omitempty"`
	Hostname           string     `json:"hostname"`
	APKPackageName     string     `json:"apk_package_name,omitempty"`
	ErrorCodes         []string   `json:"error-codes,omitempty"`
}

// HasErrors reports whether the provider returned any error code.
func (r *VerifyResponse) HasErrors() bool {
	return r != nil && len(r.ErrorCodes) > 0
}

// Verifier is the siteverify exchange. A nil response with a nil error means
// the provider gave no usable answer (transport failure or non-2xx status).
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
}
