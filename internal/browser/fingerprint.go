package browser

import (
	"math/rand"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// userAgents is the pool of desktop identities a session can assume.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// timezones a browser with an en-US locale would plausibly run in. A
// locale/timezone mismatch is a fingerprinting tell, so the pool stays
// coherent with the Accept-Language the session sends.
var timezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
}

// Fingerprint is the browser identity a session presents to sites.
type Fingerprint struct {
	UserAgent      string
	AcceptLanguage string
	Platform       string
	Timezone       string
	Width          int
	Height         int
}

// NewFingerprint picks a coherent identity from the pool. The platform
// string is derived from the chosen user agent and the timezone from
// the locale, so the pieces never contradict each other.
func NewFingerprint(rng *rand.Rand, width, height int) Fingerprint {
	ua := userAgents[rng.Intn(len(userAgents))]
	platform := "Win32"
	switch {
	case strings.Contains(ua, "Macintosh"):
		platform = "MacIntel"
	case strings.Contains(ua, "X11; Linux"):
		platform = "Linux x86_64"
	}
	return Fingerprint{
		UserAgent:      ua,
		AcceptLanguage: "en-US,en;q=0.9",
		Platform:       platform,
		Timezone:       timezones[rng.Intn(len(timezones))],
		Width:          width,
		Height:         height,
	}
}

// evasionJS patches the automation tells that stealth mode alone does
// not cover: webdriver flag, empty plugin list, missing chrome runtime
// object, and the permissions query quirk headless Chrome exposes.
const evasionJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
	Object.defineProperty(navigator, 'plugins', {
		get: () => [
			{ name: 'Chrome PDF Plugin' },
			{ name: 'Chrome PDF Viewer' },
			{ name: 'Native Client' },
		],
	});
	window.chrome = window.chrome || { runtime: {} };
	const origQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
	window.navigator.permissions.query = (params) =>
		params.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: origQuery(params);
}`

// Apply installs the fingerprint on a page: user agent override,
// request headers, timezone pin, and the evasion script injected
// before any site script runs.
func (f Fingerprint) Apply(page *rod.Page) error {
	err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      f.UserAgent,
		AcceptLanguage: f.AcceptLanguage,
		Platform:       f.Platform,
	})
	if err != nil {
		return err
	}

	if _, err := page.SetExtraHeaders([]string{
		"Accept-Language", f.AcceptLanguage,
	}); err != nil {
		return err
	}

	if f.Timezone != "" {
		err = proto.EmulationSetTimezoneOverride{TimezoneID: f.Timezone}.Call(page)
		if err != nil {
			return err
		}
	}

	_, err = page.EvalOnNewDocument(evasionJS)
	return err
}
