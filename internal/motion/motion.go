// Package motion generates human-plausible pointer trajectories and
// idle behavior timings. All functions are pure so callers can test
// planned movement without a live browser.
package motion

import (
	"math"
	"math/rand"
	"time"
)

// Point is a page coordinate.
type Point struct {
	X float64
	Y float64
}

// EaseCosine maps progress p in [0,1] onto a smooth start/stop curve.
func EaseCosine(p float64) float64 {
	return 0.5 - 0.5*math.Cos(math.Pi*p)
}

// EaseCubic is a cubic ease-in-out: slow start, fast middle, slow end.
// Used for drag gestures where the hesitation at both ends matters.
func EaseCubic(p float64) float64 {
	if p < 0.5 {
		return 4 * p * p * p
	}
	q := p - 1
	return 1 + 4*q*q*q
}

// StepsFor returns how many intermediate points a movement over the
// given pixel distance should use. Longer movements get more steps.
func StepsFor(distance float64) int {
	steps := int(distance / 25)
	if steps < 8 {
		steps = 8
	}
	if steps > 60 {
		steps = 60
	}
	return steps
}

// Path produces a pointer trajectory from a to b using cosine easing
// with small perpendicular jitter. The final point is exactly b.
func Path(rng *rand.Rand, a, b Point) []Point {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := math.Hypot(dx, dy)
	steps := StepsFor(dist)

	pts := make([]Point, 0, steps)
	for i := 1; i <= steps; i++ {
		p := EaseCosine(float64(i) / float64(steps))
		x := a.X + dx*p
		y := a.Y + dy*p
		if i < steps {
			x += (rng.Float64() - 0.5) * 3
			y += (rng.Float64() - 0.5) * 3
		}
		pts = append(pts, Point{X: x, Y: y})
	}
	pts[len(pts)-1] = b
	return pts
}

// StepDelay returns the pause between pointer steps.
func StepDelay(rng *rand.Rand) time.Duration {
	return time.Duration(5+rng.Intn(15)) * time.Millisecond
}

// DwellPause returns a reading pause, used after navigation and before
// interacting with newly visible content.
func DwellPause(rng *rand.Rand) time.Duration {
	return time.Duration(800+rng.Intn(1700)) * time.Millisecond
}

// ScrollBurst describes one wheel movement in a scroll sequence.
type ScrollBurst struct {
	DeltaY float64
	Pause  time.Duration
}

// ScrollPlan breaks a total scroll distance into bursts of uneven size
// with pauses between them, the way a person works a wheel or trackpad.
func ScrollPlan(rng *rand.Rand, total float64) []ScrollBurst {
	var bursts []ScrollBurst
	remaining := math.Abs(total)
	sign := 1.0
	if total < 0 {
		sign = -1
	}
	for remaining > 0 {
		step := 80 + rng.Float64()*160
		if step > remaining {
			step = remaining
		}
		remaining -= step
		bursts = append(bursts, ScrollBurst{
			DeltaY: sign * step,
			Pause:  time.Duration(60+rng.Intn(240)) * time.Millisecond,
		})
	}
	return bursts
}

// WanderTargets picks a few random on-screen points to visit before a
// deliberate action, within the given viewport.
func WanderTargets(rng *rand.Rand, width, height int) []Point {
	n := 2 + rng.Intn(3)
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{
			X: 50 + rng.Float64()*float64(width-100),
			Y: 50 + rng.Float64()*float64(height-100),
		}
	}
	return pts
}
