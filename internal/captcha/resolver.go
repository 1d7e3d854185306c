package captcha

import (
	"context"
	"fmt"

	"github.com/lmercat/webpilot/internal/browser"
	"github.com/lmercat/webpilot/internal/config"
	. "github.com/lmercat/webpilot/internal/logging"
)

// Resolver routes a detected challenge to the right solving strategy.
type Resolver struct {
	svc         *ServiceClient
	ocr         OCR
	maxAttempts int
}

// NewResolver builds a resolver from config. The service client and
// OCR are optional; strategies degrade when they are absent.
func NewResolver(cfg config.CaptchaConfig) *Resolver {
	var svc *ServiceClient
	if cfg.ServiceURL != "" && cfg.ServiceAPIKey != "" {
		svc = NewServiceClient(cfg.ServiceURL, cfg.ServiceAPIKey)
	}
	return &Resolver{
		svc:         svc,
		ocr:         NewTesseractOCR(cfg.TesseractPath),
		maxAttempts: cfg.MaxAttempts,
	}
}

// DetectOnPage probes the session's current page.
func (r *Resolver) DetectOnPage(sess *browser.Session) (*Challenge, error) {
	return Detect(NewSessionProber(sess))
}

// Resolve attempts to clear the challenge on the session's page.
func (r *Resolver) Resolve(ctx context.Context, sess *browser.Session, ch *Challenge) error {
	L_info("captcha: resolving", "family", ch.Family, "session", sess.ID)
	switch ch.Family {
	case FamilySlider:
		return SolveSlider(ctx, sess, ch, r.maxAttempts)
	case FamilyRecaptcha, FamilyHcaptcha:
		return SolveTokenChallenge(ctx, sess, ch, r.svc)
	case FamilyText, FamilyImage:
		return SolveTextImage(ctx, sess, ch, r.ocr, r.svc, r.maxAttempts)
	default:
		return fmt.Errorf("no strategy for challenge family %q", ch.Family)
	}
}
