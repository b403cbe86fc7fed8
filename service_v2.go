package recaptcha

import (
	"context"
)

// ServiceV2 verifies reCAPTCHA v2 tokens: a token passes when siteverify reports success.
type ServiceV2 struct {
	settings SettingsV2
	sv       siteVerify
}

// NewServiceV2 validates settings and returns a service safe for concurrent use.
func NewServiceV2(settings SettingsV2, opts ...Option) (*ServiceV2, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	sv := buildSiteVerify(settings.APIURL, opts)
	if !settings.Enabled {
		sv.logger.Warn("reCAPTCHA v2 is disabled; every verification will pass")
	}
	return &ServiceV2{settings: settings, sv: sv}, nil
}

// Settings returns the validated settings.
func (s *ServiceV2) Settings() SettingsV2 {
	return s.settings
}

// Token returns the submitted token, or an empty string.
func (s *ServiceV2) Token(src TokenSource) string {
	return s.sv.token(src)
}

// VerifyAsync starts a verification and delivers its outcome on the returned channel.
func (s *ServiceV2) VerifyAsync(ctx context.Context, src TokenSource) <-chan Outcome {
	return async(func() (bool, error) {
		return s.sv.run(ctx, s.settings.Enabled, s.settings.SecretKey, src, decideV2)
	})
}

// Verify blocks until VerifyAsync completes.
func (s *ServiceV2) Verify(ctx context.Context, src TokenSource) (bool, error) {
	return await(s.VerifyAsync(ctx, src))
}

func decideV2(res *VerifyResponse) bool {
	return res.Success
}
