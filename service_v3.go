package recaptcha

import (
	"context"

	"go.uber.org/zap"
)

// ServiceV3 verifies reCAPTCHA v3 tokens against a passing score.
type ServiceV3 struct {
	settings SettingsV3
	sv       siteVerify
}

// NewServiceV3 validates settings and returns a service safe for concurrent use.
func NewServiceV3(settings SettingsV3, opts ...Option) (*ServiceV3, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	sv := buildSiteVerify(settings.APIURL, opts)
	if !settings.Enabled {
		sv.logger.Warn("reCAPTCHA v3 is disabled; every verification will pass")
	}
	return &ServiceV3{settings: settings, sv: sv}, nil
}

// Settings returns the validated settings.
func (s *ServiceV3) Settings() SettingsV3 {
	return s.settings
}

// Token returns the submitted token, or an empty string.
func (s *ServiceV3) Token(src TokenSource) string {
	return s.sv.token(src)
}

// VerifyAsync verifies against the settings' default passing score.
func (s *ServiceV3) VerifyAsync(ctx context.Context, src TokenSource) <-chan Outcome {
	return s.VerifyScoreAsync(ctx, src, s.settings.DefaultPassingScore)
}

// Verify blocks until VerifyAsync completes.
func (s *ServiceV3) Verify(ctx context.Context, src TokenSource) (bool, error) {
	return await(s.VerifyAsync(ctx, src))
}

// VerifyScoreAsync verifies against passing. A negative passing uses the
// settings default, and a negative default uses DefaultPassingScore.
func (s *ServiceV3) VerifyScoreAsync(ctx context.Context, src TokenSource, passing float64) <-chan Outcome {
	return async(func() (bool, error) {
		passing := s.PassingScore(passing)
		return s.sv.run(ctx, s.settings.Enabled, s.settings.SecretKey, src, func(res *VerifyResponse) bool {
			return s.decide(res, passing)
		})
	})
}

// VerifyScore blocks until VerifyScoreAsync completes.
func (s *ServiceV3) VerifyScore(ctx context.Context, src TokenSource, passing float64) (bool, error) {
	return await(s.VerifyScoreAsync(ctx, src, passing))
}

// VerifyActionAsync is VerifyScoreAsync that also requires the token to have
// been issued for action. A successful response for another action fails with
// *ActionMismatchError. An empty action skips the check.
func (s *ServiceV3) VerifyActionAsync(ctx context.Context, src TokenSource, action string, passing float64) <-chan Outcome {
	return async(func() (bool, error) {
		passing := s.PassingScore(passing)
		var mismatch *ActionMismatchError
		ok, err := s.sv.run(ctx, s.settings.Enabled, s.settings.SecretKey, src, func(res *VerifyResponse) bool {
			if res.Success && action != "" && res.Action != action {
				s.sv.logger.Debug("Verify reCAPTCHA successful, but for another action",
					zap.String("expected", action), zap.String("action", res.Action))
				mismatch = &ActionMismatchError{Expected: action, Got: res.Action}
				return false
			}
			return s.decide(res, passing)
		})
		if err == nil && mismatch != nil {
			return false, mismatch
		}
		return ok, err
	})
}

// VerifyAction blocks until VerifyActionAsync completes.
func (s *ServiceV3) VerifyAction(ctx context.Context, src TokenSource, action string, passing float64) (bool, error) {
	return await(s.VerifyActionAsync(ctx, src, action, passing))
}

// PassingScore resolves the threshold applied for an explicit passing score.
func (s *ServiceV3) PassingScore(passing float64) float64 {
	if passing < 0 {
		passing = s.settings.DefaultPassingScore
		if passing < 0 {
			passing = DefaultPassingScore
		}
	}
	return passing
}

func (s *ServiceV3) decide(res *VerifyResponse, passing float64) bool {
	if !res.Success {
		s.sv.logger.Debug("Verify reCAPTCHA unsuccessful")
		return false
	}
	if res.Score >= passing {
		s.sv.logger.Debug("Verify reCAPTCHA successful, and passed",
			zap.Float64("score", res.Score), zap.Float64("passing_score", passing))
		return true
	}
	s.sv.logger.Debug("Verify reCAPTCHA successful, but did NOT pass",
		zap.Float64("score", res.Score), zap.Float64("passing_score", passing))
	return false
}
