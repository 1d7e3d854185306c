// Package artifacts stores files produced during a session —
// screenshots, downloads, extracted media — under stable
// artifact:// references the agent can hand back to the caller.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	. "github.com/lmercat/webpilot/internal/logging"
)

// Store writes session artifacts under root/<session>/<name>.
type Store struct {
	root string
}

// Artifact describes a stored file.
type Artifact struct {
	Ref      string `json:"ref"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// NewStore builds a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Ref formats the stable reference for a session artifact.
func Ref(sessionID, name string) string {
	return fmt.Sprintf("artifact://%s/%s", sessionID, name)
}

// ParseRef splits an artifact:// reference into session and name.
func ParseRef(ref string) (sessionID, name string, err error) {
	rest, ok := strings.CutPrefix(ref, "artifact://")
	if !ok {
		return "", "", fmt.Errorf("not an artifact reference: %q", ref)
	}
	sessionID, name, ok = strings.Cut(rest, "/")
	if !ok || sessionID == "" || name == "" {
		return "", "", fmt.Errorf("malformed artifact reference: %q", ref)
	}
	return sessionID, name, nil
}

// sanitize rejects names that would escape the session directory.
func sanitize(name string) (string, error) {
	clean := filepath.Base(filepath.Clean(name))
	if clean == "." || clean == ".." || clean == "" || clean != name {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return clean, nil
}

// Write stores data as a named artifact for the session.
func (s *Store) Write(sessionID, name string, data []byte) (*Artifact, error) {
	clean, err := sanitize(name)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	path := filepath.Join(dir, clean)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing artifact: %w", err)
	}

	mime := mimetype.Detect(data)
	a := &Artifact{
		Ref:      Ref(sessionID, clean),
		Name:     clean,
		Path:     path,
		MimeType: mime.String(),
		Size:     int64(len(data)),
	}
	L_debug("artifacts: stored", "ref", a.Ref, "mime", a.MimeType, "bytes", a.Size)
	return a, nil
}

// Read loads an artifact by reference.
func (s *Store) Read(ref string) ([]byte, *Artifact, error) {
	sessionID, name, err := ParseRef(ref)
	if err != nil {
		return nil, nil, err
	}
	clean, err := sanitize(name)
	if err != nil {
		return nil, nil, err
	}
	path := filepath.Join(s.root, sessionID, clean)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading artifact %s: %w", ref, err)
	}
	mime := mimetype.Detect(data)
	return data, &Artifact{
		Ref:      ref,
		Name:     clean,
		Path:     path,
		MimeType: mime.String(),
		Size:     int64(len(data)),
	}, nil
}

// List returns a session's artifacts sorted by name.
func (s *Store) List(sessionID string) ([]*Artifact, error) {
	dir := filepath.Join(s.root, sessionID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	var out []*Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, e.Name())
		mime, err := mimetype.DetectFile(path)
		mimeStr := "application/octet-stream"
		if err == nil {
			mimeStr = mime.String()
		}
		out = append(out, &Artifact{
			Ref:      Ref(sessionID, e.Name()),
			Name:     e.Name(),
			Path:     path,
			MimeType: mimeStr,
			Size:     info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Purge removes every artifact for the session.
func (s *Store) Purge(sessionID string) error {
	return os.RemoveAll(filepath.Join(s.root, sessionID))
}
