package recaptcha

import (
	"html/template"

	"github.com/berkan-cetinkaya/recaptcha/internal/markup"
)

type ButtonType = markup.ButtonType

const (
	ButtonTypeButton = markup.ButtonTypeButton
	ButtonTypeReset  = markup.ButtonTypeReset
	ButtonTypeSubmit = markup.ButtonTypeSubmit
)

// ScriptOptions tune the library script tag. LibURL overrides the settings.
type ScriptOptions struct {
	LibURL   string
	Explicit bool
	Callback string
}

// WidgetOptions tune the v2 widget. Empty values fall back to the settings.
type WidgetOptions struct {
	SiteKey         string
	Theme           Theme
	Size            Size
	TabIndex        *int
	Callback        string
	ExpiredCallback string
	ErrorCallback   string
	Class           string
}

// ButtonOptions tune the submit button. Empty values fall back to the settings
// and the defaults (action "submit", callback "onGReCaptchaV3Submit", type button).
type ButtonOptions struct {
	SiteKey  string
	Action   string
	Callback string
	Type     ButtonType
	Class    string
	Label    string
}

func (s SettingsV2) ScriptTag(opts ScriptOptions) template.HTML {
	return scriptTag(s.Enabled, s.LibURL, opts)
}

func (s SettingsV3) ScriptTag(opts ScriptOptions) template.HTML {
	return scriptTag(s.Enabled, s.LibURL, opts)
}

// WidgetTag renders the v2 checkbox widget.
func (s SettingsV2) WidgetTag(opts WidgetOptions) template.HTML {
	theme, size := opts.Theme, opts.Size
	if theme == "" {
		theme = s.Theme
	}
	if size == "" {
		size = s.Size
	}
	return markup.Widget{
		Enabled:         s.Enabled,
		SiteKey:         firstNonEmpty(opts.SiteKey, s.SiteKey),
		Theme:           string(theme),
		Size:            string(size),
		TabIndex:        opts.TabIndex,
		Callback:        opts.Callback,
		ExpiredCallback: opts.ExpiredCallback,
		ErrorCallback:   opts.ErrorCallback,
		Class:           opts.Class,
	}.Render()
}

// SubmitButtonTag renders an invisible v2 submit button.
func (s SettingsV2) SubmitButtonTag(opts ButtonOptions) template.HTML {
	return submitButtonTag(s.Enabled, s.SiteKey, opts)
}

// SubmitButtonTag renders a v3 submit button.
func (s SettingsV3) SubmitButtonTag(opts ButtonOptions) template.HTML {
	return submitButtonTag(s.Enabled, s.SiteKey, opts)
}

func scriptTag(enabled bool, libURL string, opts ScriptOptions) template.HTML {
	return markup.Script{
		Enabled:  enabled,
		LibURL:   firstNonEmpty(opts.LibURL, libURL, DefaultLibURL),
		Explicit: opts.Explicit,
		Callback: opts.Callback,
	}.Render()
}

func submitButtonTag(enabled bool, siteKey string, opts ButtonOptions) template.HTML {
	return markup.SubmitButton{
		Enabled:  enabled,
		SiteKey:  firstNonEmpty(opts.SiteKey, siteKey),
		Action:   opts.Action,
		Callback: opts.Callback,
		Type:     opts.Type,
		Class:    opts.Class,
		Label:    opts.Label,
	}.Render()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
