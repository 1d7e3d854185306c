package browser

import (
	"math/rand"
	"strings"
	"testing"
)

func TestNewFingerprintCoherent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		fp := NewFingerprint(rng, 1920, 1080)

		want := "Win32"
		switch {
		case strings.Contains(fp.UserAgent, "Macintosh"):
			want = "MacIntel"
		case strings.Contains(fp.UserAgent, "X11; Linux"):
			want = "Linux x86_64"
		}
		if fp.Platform != want {
			t.Errorf("platform = %q, want %q for ua %q", fp.Platform, want, fp.UserAgent)
		}

		if fp.AcceptLanguage != "en-US,en;q=0.9" {
			t.Errorf("accept-language = %q", fp.AcceptLanguage)
		}

		// the timezone must stay coherent with the en-US locale
		tzOK := false
		for _, tz := range timezones {
			if fp.Timezone == tz {
				tzOK = true
				break
			}
		}
		if !tzOK {
			t.Errorf("timezone = %q, not in the locale-coherent pool", fp.Timezone)
		}

		if fp.Width != 1920 || fp.Height != 1080 {
			t.Errorf("viewport = %dx%d, want 1920x1080", fp.Width, fp.Height)
		}
	}
}
