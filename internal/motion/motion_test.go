package motion

import (
	"math"
	"math/rand"
	"testing"
)

func TestEaseEndpoints(t *testing.T) {
	eases := map[string]func(float64) float64{
		"cosine": EaseCosine,
		"cubic":  EaseCubic,
	}
	for name, ease := range eases {
		if got := ease(0); math.Abs(got) > 1e-9 {
			t.Errorf("%s(0) = %f, want 0", name, got)
		}
		if got := ease(1); math.Abs(got-1) > 1e-9 {
			t.Errorf("%s(1) = %f, want 1", name, got)
		}
		if got := ease(0.5); math.Abs(got-0.5) > 1e-9 {
			t.Errorf("%s(0.5) = %f, want 0.5", name, got)
		}
	}
}

func TestEaseMonotonic(t *testing.T) {
	for name, ease := range map[string]func(float64) float64{
		"cosine": EaseCosine,
		"cubic":  EaseCubic,
	} {
		prev := -1.0
		for p := 0.0; p <= 1.0; p += 0.01 {
			v := ease(p)
			if v < prev {
				t.Fatalf("%s not monotonic at p=%f", name, p)
			}
			prev = v
		}
	}
}

func TestStepsFor(t *testing.T) {
	tests := []struct {
		distance float64
		min, max int
	}{
		{0, 8, 8},
		{100, 8, 8},
		{500, 20, 20},
		{10000, 60, 60},
	}
	for _, tt := range tests {
		got := StepsFor(tt.distance)
		if got < tt.min || got > tt.max {
			t.Errorf("StepsFor(%f) = %d, want within [%d, %d]", tt.distance, got, tt.min, tt.max)
		}
	}
}

func TestPathEndsAtTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := Point{X: 10, Y: 20}
	b := Point{X: 800, Y: 600}

	path := Path(rng, a, b)
	if len(path) == 0 {
		t.Fatal("empty path")
	}
	last := path[len(path)-1]
	if last != b {
		t.Errorf("final point = %+v, want %+v", last, b)
	}
	for i, pt := range path {
		if pt.X < a.X-5 || pt.X > b.X+5 || pt.Y < a.Y-5 || pt.Y > b.Y+5 {
			t.Errorf("point %d strays far off the segment: %+v", i, pt)
		}
	}
}

func TestScrollPlanSums(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, total := range []float64{1000, -750, 50} {
		plan := ScrollPlan(rng, total)
		sum := 0.0
		for _, b := range plan {
			if total > 0 && b.DeltaY <= 0 {
				t.Errorf("downward scroll has non-positive burst %f", b.DeltaY)
			}
			if total < 0 && b.DeltaY >= 0 {
				t.Errorf("upward scroll has non-negative burst %f", b.DeltaY)
			}
			sum += b.DeltaY
		}
		if math.Abs(sum-total) > 0.001 {
			t.Errorf("ScrollPlan(%f) sums to %f", total, sum)
		}
	}
}

func TestWanderTargetsWithinViewport(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 20; i++ {
		pts := WanderTargets(rng, 1920, 1080)
		if len(pts) < 2 || len(pts) > 4 {
			t.Fatalf("targets = %d, want 2..4", len(pts))
		}
		for _, pt := range pts {
			if pt.X < 0 || pt.X > 1920 || pt.Y < 0 || pt.Y > 1080 {
				t.Errorf("target outside viewport: %+v", pt)
			}
		}
	}
}
