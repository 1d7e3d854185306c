package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/lmercat/webpilot/internal/browser"
	. "github.com/lmercat/webpilot/internal/logging"
)

// answerInputSelectors locate the field the recognized text goes into.
var answerInputSelectors = []string{
	"input[name*='captcha']",
	"input[id*='captcha']",
	"input[placeholder*='captcha' i]",
}

// submitSelectors locate the button that submits the answer.
var submitSelectors = []string{
	"button[type='submit']",
	"input[type='submit']",
	"button[class*='captcha']",
}

// SolveTextImage resolves text and image captchas: screenshot the
// challenge image, recognize its text locally with OCR (or via the
// service when OCR fails), type the answer, and submit. Retries up to
// maxAttempts because distorted glyphs misread often.
func SolveTextImage(ctx context.Context, sess *browser.Session, ch *Challenge, ocr OCR, svc *ServiceClient, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	prober := NewSessionProber(sess)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		img, imgB64, err := challengeImage(sess)
		if err != nil {
			return err
		}

		text, err := recognize(ctx, img, imgB64, ocr, svc)
		if err != nil {
			L_warn("captcha: recognition failed", "attempt", attempt, "error", err)
			continue
		}
		L_info("captcha: recognized text", "attempt", attempt, "chars", len(text))

		inputSel := firstPresent(sess, answerInputSelectors)
		if inputSel == "" {
			return fmt.Errorf("captcha answer input not found")
		}
		if err := sess.Type(inputSel, text); err != nil {
			return fmt.Errorf("entering captcha answer: %w", err)
		}

		if submitSel := firstPresent(sess, submitSelectors); submitSel != "" {
			if err := sess.Click(submitSel); err != nil {
				return fmt.Errorf("submitting captcha answer: %w", err)
			}
		} else {
			if err := sess.Press("Enter"); err != nil {
				return err
			}
		}

		time.Sleep(2 * time.Second)
		cleared, err := Cleared(prober, ch)
		if err != nil {
			return err
		}
		if cleared {
			L_info("captcha: text challenge solved", "attempt", attempt)
			return nil
		}
		L_warn("captcha: answer rejected", "attempt", attempt)
	}
	return fmt.Errorf("text captcha not solved after %d attempts", maxAttempts)
}

// challengeImage screenshots the captcha image element and decodes it.
func challengeImage(sess *browser.Session) (image.Image, string, error) {
	el, err := sess.Page().Element("img[src*='captcha']")
	if err != nil {
		return nil, "", fmt.Errorf("captcha image not found: %w", err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, "", fmt.Errorf("capturing captcha image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding captcha image: %w", err)
	}
	return img, base64.StdEncoding.EncodeToString(data), nil
}

func recognize(ctx context.Context, img image.Image, imgB64 string, ocr OCR, svc *ServiceClient) (string, error) {
	if ocr != nil {
		text, err := ocr.Recognize(ctx, img)
		if err == nil && len(strings.TrimSpace(text)) >= 3 {
			return strings.TrimSpace(text), nil
		}
		if err != nil {
			L_debug("captcha: local ocr failed", "error", err)
		}
	}
	if svc.Configured() {
		return svc.SolveImage(ctx, imgB64)
	}
	return "", fmt.Errorf("no recognizer produced an answer")
}

func firstPresent(sess *browser.Session, selectors []string) string {
	for _, sel := range selectors {
		if ok, _ := sess.Has(sel); ok {
			return sel
		}
	}
	return ""
}
