package tools

import (
	"context"
	"fmt"

	"github.com/lmercat/webpilot/internal/artifacts"
	"github.com/lmercat/webpilot/internal/browser"
	"github.com/lmercat/webpilot/internal/captcha"
)

// BrowserAffecting names the tools that change what the page shows.
// Results from these get the "current page" annotation.
var BrowserAffecting = []string{
	"navigate", "click", "type_text", "press_key", "scroll", "solve_captcha",
}

// BrowserPageReporter builds a PageReporter over the session store.
func BrowserPageReporter(store *browser.SessionStore) PageReporter {
	return func(ctx context.Context) (string, string, error) {
		id := SessionFromContext(ctx)
		if id == "" {
			return "", "", fmt.Errorf("no session bound to this run")
		}
		sess, err := store.Get(id)
		if err != nil {
			return "", "", err
		}
		return sess.PageInfo()
	}
}

// RegisterDefaults wires the standard tool set into the registry.
func RegisterDefaults(r *Registry, store *browser.SessionStore, arts *artifacts.Store, resolver *captcha.Resolver) {
	deps := &BrowserDeps{
		Store:     store,
		Artifacts: arts,
		Resolver:  resolver,
	}

	r.Register(&NavigateTool{Deps: deps})
	r.Register(&ClickTool{Deps: deps})
	r.Register(&TypeTool{Deps: deps})
	r.Register(&PressKeyTool{Deps: deps})
	r.Register(&ScrollTool{Deps: deps})
	r.Register(&ScreenshotTool{Deps: deps})
	r.Register(&PageInfoTool{Deps: deps})
	r.Register(&PageTextTool{Deps: deps})
	r.Register(&SolveCaptchaTool{Deps: deps})
	r.Register(&FindVideosTool{Deps: deps})
	r.Register(&DownloadVideoTool{Deps: deps})
	r.Register(&WriteFileTool{Artifacts: arts})
	r.Register(&ListArtifactsTool{Artifacts: arts})
}
