// Package browser manages stealth browser sessions and the page
// primitives the agent tools are built on.
package browser

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"

	"github.com/lmercat/webpilot/internal/config"
	. "github.com/lmercat/webpilot/internal/logging"
)

// cleanupStaleLocks removes Chrome lock files left behind by crashed
// sessions. Chrome refuses to start if SingletonLock exists.
func cleanupStaleLocks(profileDir string) {
	for _, name := range []string{"SingletonLock", "SingletonCookie", "SingletonSocket"} {
		path := filepath.Join(profileDir, name)
		if _, err := os.Stat(path); err == nil {
			if err := os.Remove(path); err != nil {
				L_warn("browser: failed to remove stale lock file", "file", path, "error", err)
			} else {
				L_info("browser: removed stale lock file", "file", path)
			}
		}
	}
}

// SessionStore creates and tracks browser sessions by id. Each session
// owns its own browser process and profile directory.
type SessionStore struct {
	cfg     config.BrowserConfig
	dataDir string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore builds a store. dataDir holds per-session profiles.
func NewSessionStore(cfg config.BrowserConfig, dataDir string) *SessionStore {
	return &SessionStore{
		cfg:      cfg,
		dataDir:  dataDir,
		sessions: make(map[string]*Session),
	}
}

// Create launches a new stealth browser session with a fresh
// fingerprint and returns it. The session id is a short uuid prefix.
func (s *SessionStore) Create() (*Session, error) {
	id := uuid.NewString()[:8]

	profileDir := filepath.Join(s.dataDir, "profiles", id)
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating profile dir: %w", err)
	}
	cleanupStaleLocks(profileDir)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	fp := NewFingerprint(rng, s.cfg.WindowWidth, s.cfg.WindowHeight)

	l := launcher.New().
		UserDataDir(profileDir).
		Headless(s.cfg.Headless).
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", fp.Width, fp.Height)).
		NoSandbox(true)

	if s.cfg.ChromePath != "" {
		l = l.Bin(s.cfg.ChromePath)
	}
	if s.cfg.ProxyURL != "" {
		l = l.Proxy(s.cfg.ProxyURL)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("creating stealth page: %w", err)
	}

	if err := fp.Apply(page); err != nil {
		browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("applying fingerprint: %w", err)
	}

	sess := &Session{
		ID:        id,
		browser:   browser,
		page:      page,
		launcher:  l,
		cfg:       s.cfg,
		fp:        fp,
		rng:       rng,
		createdAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	L_info("browser: session created",
		"session", id,
		"headless", s.cfg.Headless,
		"user_agent", fp.UserAgent)
	return sess, nil
}

// Get returns the session with the given id, or an error if it does
// not exist or was already destroyed.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no browser session %q", id)
	}
	return sess, nil
}

// Destroy closes the session's browser and removes it from the store.
// Destroying an unknown id is a no-op.
func (s *SessionStore) Destroy(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	sess.close()
	L_info("browser: session destroyed", "session", id)
}

// DestroyAll closes every session. Used on shutdown.
func (s *SessionStore) DestroyAll() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
		L_debug("browser: session closed", "session", sess.ID)
	}
}
