package captcha

import (
	"math"
	"math/rand"
	"testing"
)

func TestPlanDrag(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		const startX, startY = 100.0, 400.0
		offset := DragOffset(rng)
		if offset < 200 || offset > 300 {
			t.Fatalf("offset = %f, want within [200, 300]", offset)
		}

		plan := PlanDrag(rng, startX, startY, offset)
		if len(plan) < 15 || len(plan) > 30 {
			t.Fatalf("steps = %d, want within [15, 30]", len(plan))
		}

		last := plan[len(plan)-1]
		if math.Abs(last.X-(startX+offset)) > 0.001 {
			t.Errorf("final x = %f, want %f", last.X, startX+offset)
		}
		if last.Y != startY {
			t.Errorf("final y = %f, want %f", last.Y, startY)
		}

		prev := startX
		for j, step := range plan {
			if step.X < prev-0.001 {
				t.Fatalf("step %d moved backwards: %f after %f", j, step.X, prev)
			}
			if math.Abs(step.Y-startY) > 3.001 {
				t.Errorf("step %d wobble %f exceeds 3px", j, step.Y-startY)
			}
			if step.Pause <= 0 {
				t.Errorf("step %d has no pause", j)
			}
			prev = step.X
		}
	}
}

func TestPlanDragVariesBetweenCalls(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := PlanDrag(rng, 0, 0, 250)
	b := PlanDrag(rng, 0, 0, 250)

	if len(a) == len(b) {
		same := true
		for i := range a {
			if a[i] != b[i] {
				same = false
				break
			}
		}
		if same {
			t.Error("two drag plans are identical; gesture would replay")
		}
	}
}
