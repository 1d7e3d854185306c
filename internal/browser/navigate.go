package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	. "github.com/lmercat/webpilot/internal/logging"
	"github.com/lmercat/webpilot/internal/motion"
)

// blockMarkers are title/body fragments of common anti-bot interstitials.
var blockMarkers = []string{
	"just a moment",
	"access denied",
	"attention required",
	"verify you are human",
	"checking your browser",
	"请稍候",
}

// NavResult reports where a navigation ended up.
type NavResult struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Attempts int    `json:"attempts"`
}

// Verifier inspects the landed page as the last stage of navigation
// verification. A non-nil error fails the attempt and navigation
// retries like it does for block pages. Callers plug captcha handling
// in here.
type Verifier func(ctx context.Context) error

// Navigate loads the url with retries. Each attempt wanders the
// pointer first, then navigates, waits for load, dwells like a reader,
// and verifies the landing page is real content: not a block
// interstitial, the landmark selector present when one is given, and
// the verifier passing when one is given. landmark, when non-empty, is
// a selector that must be present for the attempt to count as
// success — pages that render a shell without the expected content
// retry like blocked ones do. Failed attempts back off with
// increasing delay.
func (s *Session) Navigate(ctx context.Context, rawURL, landmark string, verify Verifier) (*NavResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	if err := s.SetConsentCookies(u.Hostname()); err != nil {
		L_debug("browser: consent cookies not set", "error", err)
	}

	retries := s.cfg.NavRetries
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * 2 * time.Second
			L_info("browser: retrying navigation",
				"session", s.ID, "url", rawURL, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		s.Wander()

		if err := s.page.Context(ctx).Navigate(rawURL); err != nil {
			lastErr = fmt.Errorf("navigate: %w", err)
			continue
		}
		if err := s.page.Context(ctx).WaitLoad(); err != nil {
			lastErr = fmt.Errorf("waiting for load: %w", err)
			continue
		}

		time.Sleep(motion.DwellPause(s.rng))

		landedURL, title, err := s.PageInfo()
		if err != nil {
			lastErr = err
			continue
		}
		if blocked, marker := s.looksBlocked(title); blocked {
			lastErr = fmt.Errorf("landed on block page (%q)", marker)
			L_warn("browser: navigation blocked",
				"session", s.ID, "url", rawURL, "marker", marker, "attempt", attempt)
			continue
		}
		if landmark != "" {
			present, lerr := s.Has(landmark)
			if lerr != nil || !present {
				lastErr = fmt.Errorf("landmark %q not found", landmark)
				L_warn("browser: landmark missing",
					"session", s.ID, "url", rawURL, "landmark", landmark, "attempt", attempt)
				continue
			}
		}
		if verify != nil {
			if verr := verify(ctx); verr != nil {
				lastErr = verr
				L_warn("browser: page verification failed",
					"session", s.ID, "url", rawURL, "attempt", attempt, "error", verr)
				continue
			}
		}

		L_info("browser: navigated",
			"session", s.ID, "url", landedURL, "title", title, "attempt", attempt)
		return &NavResult{URL: landedURL, Title: title, Attempts: attempt}, nil
	}
	return nil, fmt.Errorf("navigation to %s failed after %d attempts: %w", rawURL, retries, lastErr)
}

// looksBlocked checks the title and visible body text against known
// interstitial markers.
func (s *Session) looksBlocked(title string) (bool, string) {
	lower := strings.ToLower(title)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true, m
		}
	}
	body, err := s.Eval(`() => (document.body ? document.body.innerText.slice(0, 2000) : '')`)
	if err != nil {
		return false, ""
	}
	lower = strings.ToLower(body)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true, m
		}
	}
	return false, ""
}
