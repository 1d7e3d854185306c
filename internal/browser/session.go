package browser

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	readability "github.com/go-shiori/go-readability"

	"github.com/lmercat/webpilot/internal/config"
	. "github.com/lmercat/webpilot/internal/logging"
	"github.com/lmercat/webpilot/internal/motion"
)

// Session is one live browser with a single active page. All pointer
// interaction goes through the motion planner so input timing looks
// human rather than scripted.
type Session struct {
	ID        string
	browser   *rod.Browser
	page      *rod.Page
	launcher  *launcher.Launcher
	cfg       config.BrowserConfig
	fp        Fingerprint
	rng       *rand.Rand
	createdAt time.Time

	// last known pointer position, origin of the next movement
	pointer motion.Point
}

// Page exposes the underlying rod page for subsystems that drive the
// page directly, like captcha resolution.
func (s *Session) Page() *rod.Page { return s.page }

// Rand exposes the session rng so gestures across subsystems share one
// source of variation.
func (s *Session) Rand() *rand.Rand { return s.rng }

func (s *Session) close() {
	if s.browser != nil {
		s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

// MoveTo glides the pointer to the target along an eased, jittered path.
func (s *Session) MoveTo(target motion.Point) error {
	for _, pt := range motion.Path(s.rng, s.pointer, target) {
		if err := s.page.Mouse.MoveTo(proto.Point{X: pt.X, Y: pt.Y}); err != nil {
			return fmt.Errorf("mouse move: %w", err)
		}
		time.Sleep(motion.StepDelay(s.rng))
	}
	s.pointer = target
	return nil
}

// Wander visits a few random points on screen. Called before deliberate
// actions so the pointer history is not a single straight line.
func (s *Session) Wander() {
	for _, pt := range motion.WanderTargets(s.rng, s.fp.Width, s.fp.Height) {
		if err := s.MoveTo(pt); err != nil {
			return
		}
		time.Sleep(time.Duration(100+s.rng.Intn(300)) * time.Millisecond)
	}
}

// elementPoint resolves a selector to a clickable page coordinate.
func (s *Session) elementPoint(selector string) (*rod.Element, motion.Point, error) {
	el, err := s.page.Element(selector)
	if err != nil {
		return nil, motion.Point{}, fmt.Errorf("element %q: %w", selector, err)
	}
	if err := el.ScrollIntoView(); err != nil {
		L_warn("browser: scroll into view failed", "selector", selector, "error", err)
	}
	shape, err := el.Shape()
	if err != nil {
		return nil, motion.Point{}, fmt.Errorf("element shape %q: %w", selector, err)
	}
	pt := shape.OnePointInside()
	if pt == nil {
		return nil, motion.Point{}, fmt.Errorf("element %q has no visible area", selector)
	}
	return el, motion.Point{X: pt.X, Y: pt.Y}, nil
}

// Click moves the pointer to the element and clicks it. Falls back to
// rod's element click when the coordinate path fails.
func (s *Session) Click(selector string) error {
	el, pt, err := s.elementPoint(selector)
	if err != nil {
		return err
	}
	if err := s.MoveTo(pt); err != nil {
		L_debug("browser: pointer path failed, using direct click", "error", err)
		return el.Click(proto.InputMouseButtonLeft, 1)
	}
	time.Sleep(time.Duration(30+s.rng.Intn(120)) * time.Millisecond)
	if err := s.page.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("mouse down: %w", err)
	}
	time.Sleep(time.Duration(40+s.rng.Intn(80)) * time.Millisecond)
	if err := s.page.Mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("mouse up: %w", err)
	}
	s.page.WaitStable(time.Second)
	L_debug("browser: clicked", "session", s.ID, "selector", selector)
	return nil
}

// Type focuses the element and enters text one rune at a time with
// uneven keystroke timing.
func (s *Session) Type(selector, text string) error {
	if err := s.Click(selector); err != nil {
		return err
	}
	for _, r := range text {
		if err := s.page.InsertText(string(r)); err != nil {
			return fmt.Errorf("typing: %w", err)
		}
		delay := time.Duration(40+s.rng.Intn(110)) * time.Millisecond
		if s.rng.Intn(12) == 0 {
			// occasional thinking pause mid-word
			delay += time.Duration(200+s.rng.Intn(500)) * time.Millisecond
		}
		time.Sleep(delay)
	}
	L_debug("browser: typed", "session", s.ID, "selector", selector, "chars", len(text))
	return nil
}

// Press sends a named key to the page.
func (s *Session) Press(key string) error {
	keyMap := map[string]input.Key{
		"Enter":     input.Enter,
		"Tab":       input.Tab,
		"Escape":    input.Escape,
		"Backspace": input.Backspace,
		"ArrowUp":   input.ArrowUp,
		"ArrowDown": input.ArrowDown,
		"PageDown":  input.PageDown,
		"PageUp":    input.PageUp,
		"Space":     input.Space,
	}
	if k, ok := keyMap[key]; ok {
		return s.page.Keyboard.Press(k)
	}
	if len(key) == 1 {
		return s.page.Keyboard.Type(input.Key(rune(key[0])))
	}
	return fmt.Errorf("unknown key %q", key)
}

// Scroll moves the page by deltaY pixels in uneven wheel bursts.
func (s *Session) Scroll(deltaY float64) error {
	for _, burst := range motion.ScrollPlan(s.rng, deltaY) {
		if err := s.page.Mouse.Scroll(0, burst.DeltaY, 1); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		time.Sleep(burst.Pause)
	}
	L_debug("browser: scrolled", "session", s.ID, "delta", deltaY)
	return nil
}

// Screenshot captures the page as PNG.
func (s *Session) Screenshot(fullPage bool) ([]byte, error) {
	req := &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	}
	data, err := s.page.Screenshot(fullPage, req)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return data, nil
}

// PageInfo returns the page's current url and title.
func (s *Session) PageInfo() (pageURL, title string, err error) {
	info, err := s.page.Info()
	if err != nil {
		return "", "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, info.Title, nil
}

// PageText extracts the readable article text from the current page,
// stripped of navigation and boilerplate.
func (s *Session) PageText() (string, error) {
	pageURL, _, err := s.PageInfo()
	if err != nil {
		return "", err
	}
	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return "", fmt.Errorf("extracting readable text: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// VideoInfo describes a piece of video content found on the page.
// Kind is "video" for a media element, "embed" for a platform iframe,
// or "script" for an mp4 URL dug out of inline script text.
type VideoInfo struct {
	Source   string  `json:"source"`
	Kind     string  `json:"kind"`
	Poster   string  `json:"poster,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

const findVideosJS = `() => {
	const out = [];
	const seen = new Set();
	const add = (source, kind, extra) => {
		if (!source || seen.has(source)) return;
		seen.add(source);
		out.push(Object.assign({ source, kind }, extra || {}));
	};
	for (const v of document.querySelectorAll('video')) {
		let src = v.currentSrc || v.src || '';
		if (!src) {
			const s = v.querySelector('source');
			if (s) src = s.src || '';
		}
		add(src, 'video', { poster: v.poster || '', duration: v.duration || 0 });
	}
	const embedHosts = /youtube\.com\/embed|youtube-nocookie\.com\/embed|player\.vimeo\.com\/video|dailymotion\.com\/embed/;
	for (const f of document.querySelectorAll('iframe[src]')) {
		if (embedHosts.test(f.src)) add(f.src, 'embed');
	}
	const mp4 = /https?:(?:\\\/\\\/|\/\/)[^"'\s]+?\.mp4[^"'\s]*/g;
	for (const s of document.querySelectorAll('script')) {
		for (const m of (s.textContent || '').matchAll(mp4)) {
			add(m[0].replace(/\\\//g, '/'), 'script');
		}
	}
	return JSON.stringify(out);
}`

// FindVideos lists the video content on the current page: media
// elements, platform iframes, and mp4 URLs embedded in script text.
func (s *Session) FindVideos() ([]VideoInfo, error) {
	result, err := s.page.Eval(findVideosJS)
	if err != nil {
		return nil, fmt.Errorf("finding videos: %w", err)
	}
	var videos []VideoInfo
	if err := json.Unmarshal([]byte(result.Value.Str()), &videos); err != nil {
		return nil, fmt.Errorf("parsing video list: %w", err)
	}
	return videos, nil
}

// Eval runs JavaScript on the page and returns the result rendered as
// a string.
func (s *Session) Eval(code string) (string, error) {
	result, err := s.page.Eval(code)
	if err != nil {
		return "", fmt.Errorf("javascript error: %w", err)
	}
	if result == nil || result.Value.Nil() {
		return "", nil
	}
	return result.Value.String(), nil
}

// Has reports whether the page currently contains a visible element
// matching the selector.
func (s *Session) Has(selector string) (bool, error) {
	has, el, err := s.page.Has(selector)
	if err != nil || !has {
		return false, err
	}
	visible, err := el.Visible()
	if err != nil {
		return false, nil
	}
	return visible, nil
}

// WaitVisible blocks until the selector is visible or the timeout hits.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	el, err := s.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element %q not visible: %w", selector, err)
	}
	return nil
}

// SetConsentCookies pre-seeds the cookies common consent banners check,
// so fewer overlays block the page after navigation.
func (s *Session) SetConsentCookies(domain string) error {
	cookies := []*proto.NetworkCookieParam{
		{Name: "CONSENT", Value: "YES+", Domain: domain, Path: "/"},
		{Name: "cookieconsent_status", Value: "dismiss", Domain: domain, Path: "/"},
		{Name: "euconsent-v2", Value: "accepted", Domain: domain, Path: "/"},
	}
	if err := s.page.SetCookies(cookies); err != nil {
		return fmt.Errorf("setting consent cookies: %w", err)
	}
	return nil
}
