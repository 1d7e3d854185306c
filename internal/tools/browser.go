package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lmercat/webpilot/internal/artifacts"
	"github.com/lmercat/webpilot/internal/browser"
	"github.com/lmercat/webpilot/internal/captcha"
	"github.com/lmercat/webpilot/internal/types"
)

// BrowserDeps bundles what the browser-facing tools need: the session
// store, the artifact store for captured media, and the captcha
// resolver.
type BrowserDeps struct {
	Store     *browser.SessionStore
	Artifacts *artifacts.Store
	Resolver  *captcha.Resolver
}

// challengeSolver is the slice of the captcha resolver that navigation
// verification needs. Tests substitute a fake.
type challengeSolver interface {
	DetectOnPage(sess *browser.Session) (*captcha.Challenge, error)
	Resolve(ctx context.Context, sess *browser.Session, ch *captcha.Challenge) error
}

// captchaVerifier makes landing verification fail while a challenge
// sits on the page: probe, attempt to clear, and pass only once the
// page is challenge-free. An unresolved challenge fails the whole
// navigation, so the agent sees it as a failed tool turn.
func captchaVerifier(solver challengeSolver, sess *browser.Session) browser.Verifier {
	return func(ctx context.Context) error {
		ch, err := solver.DetectOnPage(sess)
		if err != nil || ch == nil {
			// a failed probe is treated as no challenge
			return nil
		}
		if err := solver.Resolve(ctx, sess, ch); err != nil {
			return fmt.Errorf("%s challenge not cleared: %w", ch.Family, err)
		}
		return nil
	}
}

// session resolves the run's browser session from the context.
func (d *BrowserDeps) session(ctx context.Context) (*browser.Session, error) {
	id := SessionFromContext(ctx)
	if id == "" {
		return nil, fmt.Errorf("no browser session bound to this run")
	}
	return d.Store.Get(id)
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// NavigateTool loads a url with retry and block-page detection.
type NavigateTool struct{ Deps *BrowserDeps }

func (t *NavigateTool) Name() string { return "navigate" }

func (t *NavigateTool) Description() string {
	return "Navigate the browser to a URL. Retries on failures and anti-bot block pages, and reports the final URL and page title."
}

func (t *NavigateTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"url": map[string]any{
			"type":        "string",
			"description": "Absolute http(s) URL to load",
		},
		"wait_for": map[string]any{
			"type":        "string",
			"description": "Optional CSS selector that must be present for navigation to count as successful, e.g. video",
		},
	}, "url")
}

func (t *NavigateTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		URL     string `json:"url"`
		WaitFor string `json:"wait_for"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if params.URL == "" {
		return nil, fmt.Errorf("url is required")
	}

	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	// a captcha straight after landing is common on protected sites
	result, err := sess.Navigate(ctx, params.URL, params.WaitFor, captchaVerifier(t.Deps.Resolver, sess))
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(result)
	return types.JSONResult(string(payload)), nil
}

// ClickTool clicks an element with human pointer motion.
type ClickTool struct{ Deps *BrowserDeps }

func (t *ClickTool) Name() string { return "click" }

func (t *ClickTool) Description() string {
	return "Click an element identified by CSS selector. The pointer glides to the element before clicking."
}

func (t *ClickTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"selector": map[string]any{
			"type":        "string",
			"description": "CSS selector of the element to click",
		},
	}, "selector")
}

func (t *ClickTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		Selector string `json:"selector"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Selector == "" {
		return nil, fmt.Errorf("selector is required")
	}
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.Click(params.Selector); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("Clicked: %s", params.Selector)), nil
}

// TypeTool types text into a field with human keystroke timing.
type TypeTool struct{ Deps *BrowserDeps }

func (t *TypeTool) Name() string { return "type_text" }

func (t *TypeTool) Description() string {
	return "Type text into an input identified by CSS selector, one keystroke at a time."
}

func (t *TypeTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"selector": map[string]any{
			"type":        "string",
			"description": "CSS selector of the input",
		},
		"text": map[string]any{
			"type":        "string",
			"description": "Text to type",
		},
	}, "selector", "text")
}

func (t *TypeTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		Selector string `json:"selector"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Selector == "" || params.Text == "" {
		return nil, fmt.Errorf("selector and text are required")
	}
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.Type(params.Selector, params.Text); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("Typed %d characters into %s", len(params.Text), params.Selector)), nil
}

// PressKeyTool sends a named key to the page.
type PressKeyTool struct{ Deps *BrowserDeps }

func (t *PressKeyTool) Name() string { return "press_key" }

func (t *PressKeyTool) Description() string {
	return "Press a keyboard key such as Enter, Tab, Escape or ArrowDown."
}

func (t *PressKeyTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"key": map[string]any{
			"type":        "string",
			"description": "Key name (Enter, Tab, Escape, ArrowDown, ...)",
		},
	}, "key")
}

func (t *PressKeyTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.Press(params.Key); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("Pressed: %s", params.Key)), nil
}

// ScrollTool scrolls the page in uneven wheel bursts.
type ScrollTool struct{ Deps *BrowserDeps }

func (t *ScrollTool) Name() string { return "scroll" }

func (t *ScrollTool) Description() string {
	return "Scroll the page vertically by a pixel amount. Positive scrolls down, negative scrolls up."
}

func (t *ScrollTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"delta_y": map[string]any{
			"type":        "number",
			"description": "Pixels to scroll; positive is down",
		},
	}, "delta_y")
}

func (t *ScrollTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		DeltaY float64 `json:"delta_y"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.Scroll(params.DeltaY); err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("Scrolled %.0f pixels", params.DeltaY)), nil
}

// ScreenshotTool captures the page into the artifact store.
type ScreenshotTool struct{ Deps *BrowserDeps }

func (t *ScreenshotTool) Name() string { return "screenshot" }

func (t *ScreenshotTool) Description() string {
	return "Capture a screenshot of the current page and store it as an artifact. Returns the artifact reference."
}

func (t *ScreenshotTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"full_page": map[string]any{
			"type":        "boolean",
			"description": "Capture the full scrollable page instead of the viewport",
		},
	})
}

func (t *ScreenshotTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		FullPage bool `json:"full_page"`
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	data, err := sess.Screenshot(params.FullPage)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("screenshot-%s-%s.png",
		time.Now().Format("150405"), uuid.NewString()[:6])
	art, err := t.Deps.Artifacts.Write(sess.ID, name, data)
	if err != nil {
		return nil, err
	}
	return types.ImageRefResult(art.Ref, art.MimeType, "screenshot"), nil
}

// PageInfoTool reports where the browser currently is.
type PageInfoTool struct{ Deps *BrowserDeps }

func (t *PageInfoTool) Name() string { return "page_info" }

func (t *PageInfoTool) Description() string {
	return "Report the current page URL and title."
}

func (t *PageInfoTool) Schema() map[string]any {
	return objectSchema(map[string]any{})
}

func (t *PageInfoTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	pageURL, title, err := sess.PageInfo()
	if err != nil {
		return nil, err
	}
	payload, _ := json.Marshal(map[string]string{"url": pageURL, "title": title})
	return types.JSONResult(string(payload)), nil
}

// PageTextTool extracts readable article text.
type PageTextTool struct{ Deps *BrowserDeps }

func (t *PageTextTool) Name() string { return "page_text" }

func (t *PageTextTool) Description() string {
	return "Extract the readable text of the current page, stripped of navigation and boilerplate."
}

func (t *PageTextTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"max_length": map[string]any{
			"type":        "integer",
			"description": "Truncate the text to this many characters (default 8000)",
		},
	})
}

func (t *PageTextTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		MaxLength int `json:"max_length"`
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if params.MaxLength <= 0 {
		params.MaxLength = 8000
	}
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	text, err := sess.PageText()
	if err != nil {
		return nil, err
	}
	if len(text) > params.MaxLength {
		text = text[:params.MaxLength] + "\n[truncated]"
	}
	return types.TextResult(text), nil
}

// SolveCaptchaTool detects and clears a captcha on demand.
type SolveCaptchaTool struct{ Deps *BrowserDeps }

func (t *SolveCaptchaTool) Name() string { return "solve_captcha" }

func (t *SolveCaptchaTool) Description() string {
	return "Detect any captcha on the current page and attempt to solve it."
}

func (t *SolveCaptchaTool) Schema() map[string]any {
	return objectSchema(map[string]any{})
}

func (t *SolveCaptchaTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	ch, err := t.Deps.Resolver.DetectOnPage(sess)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return types.TextResult("No captcha detected on the current page."), nil
	}
	if err := t.Deps.Resolver.Resolve(ctx, sess, ch); err != nil {
		return nil, fmt.Errorf("solving %s captcha: %w", ch.Family, err)
	}
	return types.TextResult(fmt.Sprintf("Solved %s captcha.", ch.Family)), nil
}
