package recaptcha

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/berkan-cetinkaya/recaptcha/internal/verifier"
)

const (
	DefaultLibURL = "https://www.google.com/recaptcha/api.js"
	DefaultAPIURL = verifier.DefaultAPIURL
	// TurnstileAPIURL can be used as api_url; Cloudflare speaks the same siteverify protocol.
	TurnstileAPIURL = verifier.TurnstileAPIURL
	// DefaultPassingScore applies when neither the call nor the settings give a usable score.
	DefaultPassingScore = 0.6
)

// Theme of the v2 widget.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Size of the v2 widget.
type Size string

const (
	SizeNormal  Size = "normal"
	SizeCompact Size = "compact"
)

// SettingsV2 configures reCAPTCHA v2. Call Validate once before sharing it.
//
// Start from DefaultSettingsV2 rather than a struct literal: the zero Enabled
// is false, and a disabled service passes every token.
type SettingsV2 struct {
	Enabled   bool   `mapstructure:"enabled"`
	LibURL    string `mapstructure:"lib_url"    validate:"omitempty,uri"`
	APIURL    string `mapstructure:"api_url"    validate:"omitempty,url"`
	SiteKey   string `mapstructure:"site_key"   validate:"required_if=Enabled true"`
	SecretKey string `mapstructure:"secret_key" validate:"required_if=Enabled true"`
	Theme     Theme  `mapstructure:"theme"      validate:"omitempty,oneof=light dark"`
	Size      Size   `mapstructure:"size"       validate:"omitempty,oneof=normal compact"`
}

// SettingsV3 configures reCAPTCHA v3. Call Validate once before sharing it.
//
// Start from DefaultSettingsV3 rather than a struct literal: the zero Enabled
// is false, which passes every token, and the zero DefaultPassingScore accepts
// any score. Set DefaultPassingScore negative to fall back to 0.6.
type SettingsV3 struct {
	Enabled             bool    `mapstructure:"enabled"`
	LibURL              string  `mapstructure:"lib_url"               validate:"omitempty,uri"`
	APIURL              string  `mapstructure:"api_url"               validate:"omitempty,url"`
	SiteKey             string  `mapstructure:"site_key"              validate:"required_if=Enabled true"`
	SecretKey           string  `mapstructure:"secret_key"            validate:"required_if=Enabled true"`
	DefaultPassingScore float64 `mapstructure:"default_passing_score" validate:"lte=1"`
}

// DefaultSettingsV2 returns enabled v2 settings with Google's URLs; keys are left empty.
func DefaultSettingsV2() SettingsV2 {
	return SettingsV2{
		Enabled: true,
		LibURL:  DefaultLibURL,
		APIURL:  DefaultAPIURL,
	}
}

// DefaultSettingsV3 returns enabled v3 settings with Google's URLs and a 0.6 passing score.
func DefaultSettingsV3() SettingsV3 {
	return SettingsV3{
		Enabled:             true,
		LibURL:              DefaultLibURL,
		APIURL:              DefaultAPIURL,
		DefaultPassingScore: DefaultPassingScore,
	}
}

// Validate trims keys, checks the settings and fills in default URLs.
// The API URL always ends with a trailing slash afterwards.
func (s *SettingsV2) Validate() error {
	s.SiteKey = strings.TrimSpace(s.SiteKey)
	s.SecretKey = strings.TrimSpace(s.SecretKey)
	s.LibURL = strings.TrimSpace(s.LibURL)
	s.APIURL = strings.TrimSpace(s.APIURL)
	if err := validate.Struct(s); err != nil {
		return newConfigurationError(err)
	}
	s.LibURL, s.APIURL = normalizeURLs(s.LibURL, s.APIURL)
	return nil
}

// Validate trims keys, checks the settings and fills in default URLs.
// The API URL always ends with a trailing slash afterwards.
func (s *SettingsV3) Validate() error {
	s.SiteKey = strings.TrimSpace(s.SiteKey)
	s.SecretKey = strings.TrimSpace(s.SecretKey)
	s.LibURL = strings.TrimSpace(s.LibURL)
	s.APIURL = strings.TrimSpace(s.APIURL)
	if err := validate.Struct(s); err != nil {
		return newConfigurationError(err)
	}
	s.LibURL, s.APIURL = normalizeURLs(s.LibURL, s.APIURL)
	return nil
}

func normalizeURLs(libURL, apiURL string) (string, string) {
	if libURL == "" {
		libURL = DefaultLibURL
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return libURL, apiURL
}

var validate = newValidator()

// Validation errors name fields by their mapstructure key, as written in config files.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
