package recaptcha

import (
	"net"
	"net/http"
	"strings"
)

// TokenField is the form field the reCAPTCHA widget posts the token in.
const TokenField = "g-recaptcha-response"

// TokenSource yields the submitted token and the caller IP for one request.
// Empty strings mean "not present"; neither accessor fails.
type TokenSource interface {
	Token() string
	RemoteIP() string
}

type requestSource struct {
	r *http.Request
}

// FromRequest reads the token from the posted form and the IP from RemoteAddr.
func FromRequest(r *http.Request) TokenSource {
	return requestSource{r: r}
}

func (s requestSource) Token() string {
	if s.r == nil {
		return ""
	}
	return s.r.PostFormValue(TokenField)
}

func (s requestSource) RemoteIP() string {
	if s.r == nil {
		return ""
	}
	addr := strings.TrimSpace(s.r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	if net.ParseIP(addr) != nil {
		return addr
	}
	return ""
}

type staticSource struct {
	token    string
	remoteIP string
}

// NewTokenSource wraps a token and IP obtained outside net/http.
func NewTokenSource(token, remoteIP string) TokenSource {
	return staticSource{token: token, remoteIP: remoteIP}
}

func (s staticSource) Token() string    { return s.token }
func (s staticSource) RemoteIP() string { return s.remoteIP }
