// Package markup renders the reCAPTCHA script tag, v2 widget and v3 submit button.
package markup

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"
)

const (
	// ClassName is always the first class of widgets and buttons.
	ClassName = "g-recaptcha"
	// DefaultExplicitCallback is the onload callback used in explicit render mode.
	DefaultExplicitCallback = "onloadCallback"
	DefaultAction           = "submit"
	DefaultButtonCallback   = "onGReCaptchaV3Submit"
	// UnknownSiteKey is rendered when no site key is configured.
	UnknownSiteKey = "?"
)

type ButtonType string

const (
	ButtonTypeButton ButtonType = "button"
	ButtonTypeReset  ButtonType = "reset"
	ButtonTypeSubmit ButtonType = "submit"
)

// Script describes the library script tag.
type Script struct {
	Enabled bool
	LibURL  string
	// Explicit switches to explicit rendering with Callback (or DefaultExplicitCallback).
	Explicit bool
	Callback string
}

// Render returns nothing when disabled.
func (s Script) Render() template.HTML {
	if !s.Enabled {
		return ""
	}
	src := s.LibURL
	switch {
	case strings.TrimSpace(s.Callback) != "":
		src = ExplicitURL(src, s.Callback)
	case s.Explicit:
		src = ExplicitURL(src, DefaultExplicitCallback)
	}

	var a attrs
	a.set("type", "text/javascript")
	a.set("src", src)
	a.flag("async")
	a.flag("defer")
	return element("script", a, "")
}

// ExplicitURL sets onload=<callback> and render=explicit in the query of libURL,
// keeping other parameters in place. The callback is query-escaped.
func ExplicitURL(libURL, callback string) string {
	callback = url.QueryEscape(callback)
	base, query, hasQuery := strings.Cut(libURL, "?")
	if !hasQuery || query == "" {
		return base + "?onload=" + callback + "&render=explicit"
	}

	needed := []struct{ key, value string }{
		{"onload", callback},
		{"render", "explicit"},
	}
	seen := make([]bool, len(needed))
	items := strings.Split(query, "&")
	for i, item := range items {
		key, _, _ := strings.Cut(item, "=")
		for j, n := range needed {
			if strings.EqualFold(key, n.key) {
				items[i] = n.key + "=" + n.value
				seen[j] = true
				break
			}
		}
	}
	for j, n := range needed {
		if !seen[j] {
			items = append(items, n.key+"="+n.value)
		}
	}
	return base + "?" + strings.Join(items, "&")
}

// Widget describes the v2 checkbox widget div.
type Widget struct {
	Enabled         bool
	SiteKey         string
	Theme           string
	Size            string
	TabIndex        *int
	Callback        string
	ExpiredCallback string
	ErrorCallback   string
	Class           string
}

// Render falls back to a plain div when disabled.
func (w Widget) Render() template.HTML {
	var a attrs
	if !w.Enabled {
		a.setIf("class", strings.TrimSpace(w.Class))
		return element("div", a, "")
	}
	siteKey := strings.TrimSpace(w.SiteKey)
	if siteKey == "" {
		siteKey = UnknownSiteKey
	}
	a.set("class", MergeClasses(ClassName, w.Class))
	a.set("data-sitekey", siteKey)
	a.setIf("data-theme", strings.ToLower(w.Theme))
	a.setIf("data-size", strings.ToLower(w.Size))
	if w.TabIndex != nil {
		a.set("data-tabindex", strconv.Itoa(*w.TabIndex))
	}
	a.setIf("data-callback", strings.TrimSpace(w.Callback))
	a.setIf("data-expired-callback", strings.TrimSpace(w.ExpiredCallback))
	a.setIf("data-error-callback", strings.TrimSpace(w.ErrorCallback))
	return element("div", a, "")
}

// SubmitButton describes the v3 (or invisible v2) submit button.
type SubmitButton struct {
	Enabled  bool
	SiteKey  string
	Action   string
	Callback string
	Type     ButtonType
	Class    string
	Label    string
}

// Render falls back to a plain button when disabled.
func (b SubmitButton) Render() template.HTML {
	btnType := b.Type
	if btnType == "" {
		btnType = ButtonTypeButton
	}

	var a attrs
	if !b.Enabled {
		a.setIf("class", strings.TrimSpace(b.Class))
		a.set("type", string(btnType))
		return element("button", a, b.Label)
	}

	action := strings.TrimSpace(b.Action)
	if action == "" {
		action = DefaultAction
	}
	callback := strings.TrimSpace(b.Callback)
	if callback == "" {
		callback = DefaultButtonCallback
	}
	a.set("class", MergeClasses(ClassName, b.Class))
	a.set("data-action", action)
	a.set("data-callback", callback)
	a.set("data-sitekey", strings.TrimSpace(b.SiteKey))
	a.set("type", string(btnType))
	return element("button", a, b.Label)
}

// MergeClasses appends extra classes to the defaults.
func MergeClasses(defaults, extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return defaults
	}
	return defaults + " " + extra
}

type attr struct {
	name      string
	value     string
	minimized bool
}

type attrs []attr

func (a *attrs) set(name, value string) {
	*a = append(*a, attr{name: name, value: value})
}

func (a *attrs) setIf(name, value string) {
	if value != "" {
		a.set(name, value)
	}
}

func (a *attrs) flag(name string) {
	*a = append(*a, attr{name: name, minimized: true})
}

func element(name string, a attrs, body string) template.HTML {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(name)
	for _, at := range a {
		b.WriteString(" ")
		b.WriteString(at.name)
		if at.minimized {
			continue
		}
		b.WriteString(`="`)
		b.WriteString(template.HTMLEscapeString(at.value))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(template.HTMLEscapeString(body))
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">")
	return template.HTML(b.String()) //nolint:gosec // attribute values are escaped above
}
