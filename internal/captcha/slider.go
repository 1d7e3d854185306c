package captcha

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/lmercat/webpilot/internal/browser"
	. "github.com/lmercat/webpilot/internal/logging"
	"github.com/lmercat/webpilot/internal/motion"
)

// dragHandleSelectors locate the draggable knob of slider puzzles.
var dragHandleSelectors = []string{
	".secsdk-captcha-drag-icon",
	".captcha_verify_slide--slidebar .secsdk-captcha-drag-icon",
	"[class*='drag'][class*='icon']",
	".slider-btn",
}

// DragStep is one intermediate position of a planned drag gesture.
type DragStep struct {
	X     float64
	Y     float64
	Pause time.Duration
}

// PlanDrag builds a horizontal drag trajectory of the given offset
// using cubic easing with slight vertical wobble. Steps and timing
// vary per call so repeated attempts never replay the same gesture.
func PlanDrag(rng *rand.Rand, startX, startY, offset float64) []DragStep {
	steps := 15 + rng.Intn(16)
	plan := make([]DragStep, 0, steps)
	for i := 1; i <= steps; i++ {
		p := motion.EaseCubic(float64(i) / float64(steps))
		x := startX + offset*p
		y := startY + (rng.Float64()-0.5)*6
		if i == steps {
			y = startY
		}
		plan = append(plan, DragStep{
			X:     x,
			Y:     y,
			Pause: time.Duration(8+rng.Intn(22)) * time.Millisecond,
		})
	}
	return plan
}

// DragOffset picks how far to pull the slider when the puzzle gap
// position is unknown.
func DragOffset(rng *rand.Rand) float64 {
	return 200 + rng.Float64()*100
}

// SolveSlider attempts the slider puzzle up to maxAttempts times. Each
// attempt grabs the drag handle, pulls it along a fresh eased path,
// releases, then checks whether the page cleared the challenge.
func SolveSlider(ctx context.Context, sess *browser.Session, ch *Challenge, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	page := sess.Page()
	rng := sess.Rand()
	prober := NewSessionProber(sess)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var handleSel string
		for _, sel := range dragHandleSelectors {
			if ok, _ := sess.Has(sel); ok {
				handleSel = sel
				break
			}
		}
		if handleSel == "" {
			return fmt.Errorf("slider drag handle not found")
		}

		el, err := page.Element(handleSel)
		if err != nil {
			return fmt.Errorf("locating drag handle: %w", err)
		}
		shape, err := el.Shape()
		if err != nil {
			return fmt.Errorf("drag handle shape: %w", err)
		}
		start := shape.OnePointInside()
		if start == nil {
			return fmt.Errorf("drag handle not visible")
		}

		if err := sess.MoveTo(motion.Point{X: start.X, Y: start.Y}); err != nil {
			return err
		}
		time.Sleep(time.Duration(150+rng.Intn(350)) * time.Millisecond)

		if err := page.Mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("press drag handle: %w", err)
		}

		offset := DragOffset(rng)
		for _, step := range PlanDrag(rng, start.X, start.Y, offset) {
			if err := page.Mouse.MoveTo(proto.Point{X: step.X, Y: step.Y}); err != nil {
				page.Mouse.Up(proto.InputMouseButtonLeft, 1)
				return fmt.Errorf("drag move: %w", err)
			}
			time.Sleep(step.Pause)
		}

		time.Sleep(time.Duration(100+rng.Intn(250)) * time.Millisecond)
		if err := page.Mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("release drag handle: %w", err)
		}

		time.Sleep(2 * time.Second)
		cleared, err := Cleared(prober, ch)
		if err != nil {
			L_warn("captcha: slider verify check failed", "error", err)
		}
		if cleared {
			L_info("captcha: slider solved", "attempt", attempt, "offset", offset)
			return nil
		}
		L_warn("captcha: slider attempt failed", "attempt", attempt, "offset", offset)
	}
	return fmt.Errorf("slider captcha not solved after %d attempts", maxAttempts)
}

// SessionProber adapts a browser session to the Prober interface.
type SessionProber struct {
	sess *browser.Session
}

func NewSessionProber(sess *browser.Session) *SessionProber {
	return &SessionProber{sess: sess}
}

func (p *SessionProber) Has(selector string) (bool, error) {
	return p.sess.Has(selector)
}
