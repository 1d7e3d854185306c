package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lmercat/webpilot/internal/browser"
	"github.com/lmercat/webpilot/internal/captcha"
)

type fakeSolver struct {
	ch         *captcha.Challenge
	detectErr  error
	resolveErr error
	resolved   int
}

func (f *fakeSolver) DetectOnPage(*browser.Session) (*captcha.Challenge, error) {
	return f.ch, f.detectErr
}

func (f *fakeSolver) Resolve(context.Context, *browser.Session, *captcha.Challenge) error {
	f.resolved++
	return f.resolveErr
}

func TestCaptchaVerifierCleanPage(t *testing.T) {
	solver := &fakeSolver{}
	if err := captchaVerifier(solver, nil)(context.Background()); err != nil {
		t.Errorf("clean page must verify, got %v", err)
	}
	if solver.resolved != 0 {
		t.Error("nothing to resolve on a clean page")
	}
}

func TestCaptchaVerifierClearsChallenge(t *testing.T) {
	solver := &fakeSolver{ch: &captcha.Challenge{Family: captcha.FamilySlider}}
	if err := captchaVerifier(solver, nil)(context.Background()); err != nil {
		t.Errorf("cleared challenge must verify, got %v", err)
	}
	if solver.resolved != 1 {
		t.Errorf("resolve calls = %d, want 1", solver.resolved)
	}
}

func TestCaptchaVerifierUnresolvedChallengeFails(t *testing.T) {
	solver := &fakeSolver{
		ch:         &captcha.Challenge{Family: captcha.FamilyRecaptcha},
		resolveErr: fmt.Errorf("no solving service configured"),
	}
	err := captchaVerifier(solver, nil)(context.Background())
	if err == nil {
		t.Fatal("unresolved challenge must fail verification")
	}
	if !strings.Contains(err.Error(), captcha.FamilyRecaptcha) {
		t.Errorf("error should name the challenge family: %v", err)
	}
}

func TestCaptchaVerifierProbeErrorIgnored(t *testing.T) {
	solver := &fakeSolver{detectErr: fmt.Errorf("page detached")}
	if err := captchaVerifier(solver, nil)(context.Background()); err != nil {
		t.Errorf("probe failure must not fail verification, got %v", err)
	}
}
