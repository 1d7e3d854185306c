// Package captcha detects and resolves captcha challenges during
// browsing sessions.
package captcha

import (
	"fmt"

	. "github.com/lmercat/webpilot/internal/logging"
)

// Challenge families.
const (
	FamilySlider    = "slider-puzzle"
	FamilyRecaptcha = "recaptcha-v2"
	FamilyHcaptcha  = "hcaptcha"
	FamilyText      = "text"
	FamilyImage     = "image"
)

// Challenge is a detected captcha on the current page.
type Challenge struct {
	Family   string `json:"family"`
	Selector string `json:"selector"`
	SiteKey  string `json:"site_key,omitempty"`
}

// Prober answers selector-presence questions about a page. The live
// implementation wraps a browser session; tests use fakes.
type Prober interface {
	Has(selector string) (bool, error)
}

// signature maps a DOM selector to the challenge family it indicates.
// Order matters: more specific widgets are checked before the generic
// image/text fallbacks.
type signature struct {
	selector string
	family   string
}

var signatures = []signature{
	{".captcha_verify_container", FamilySlider},
	{".captcha-verify-container", FamilySlider},
	{"[class*='slider'][class*='captcha']", FamilySlider},
	{".secsdk-captcha-drag-icon", FamilySlider},
	{"iframe[src*='recaptcha']", FamilyRecaptcha},
	{".g-recaptcha", FamilyRecaptcha},
	{"iframe[src*='hcaptcha']", FamilyHcaptcha},
	{".h-captcha", FamilyHcaptcha},
	{"input[name*='captcha']", FamilyText},
	{"input[id*='captcha']", FamilyText},
	{"img[src*='captcha']", FamilyImage},
}

// Detect probes the page for known challenge markers and returns the
// first match, or nil when the page shows no captcha.
func Detect(p Prober) (*Challenge, error) {
	for _, sig := range signatures {
		present, err := p.Has(sig.selector)
		if err != nil {
			return nil, fmt.Errorf("probing %q: %w", sig.selector, err)
		}
		if present {
			L_info("captcha: detected", "family", sig.family, "selector", sig.selector)
			return &Challenge{Family: sig.family, Selector: sig.selector}, nil
		}
	}
	return nil, nil
}

// successSelectors mark a completed verification in the DOM.
var successSelectors = []string{
	".captcha_verify_success",
	".captcha-verify-success",
	".verify-success",
}

// Cleared reports whether the page shows a success marker or no longer
// shows the challenge that was detected.
func Cleared(p Prober, ch *Challenge) (bool, error) {
	for _, sel := range successSelectors {
		ok, err := p.Has(sel)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	still, err := p.Has(ch.Selector)
	if err != nil {
		return false, err
	}
	return !still, nil
}
