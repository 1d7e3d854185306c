package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	. "github.com/lmercat/webpilot/internal/logging"
	"github.com/lmercat/webpilot/internal/types"
)

// maxVideoBytes caps a single download.
const maxVideoBytes = 256 << 20

// FindVideosTool lists the video content on the current page.
type FindVideosTool struct{ Deps *BrowserDeps }

func (t *FindVideosTool) Name() string { return "find_videos" }

func (t *FindVideosTool) Description() string {
	return "List the videos on the current page: video elements, platform embeds and script-embedded mp4 URLs."
}

func (t *FindVideosTool) Schema() map[string]any {
	return objectSchema(map[string]any{})
}

func (t *FindVideosTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	videos, err := sess.FindVideos()
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return types.TextResult("No videos found on the current page."), nil
	}
	payload, err := json.Marshal(videos)
	if err != nil {
		return nil, fmt.Errorf("encoding video list: %w", err)
	}
	return types.JSONResult(string(payload)), nil
}

// DownloadVideoTool fetches a video into the artifact store, through
// yt-dlp when it is installed and falling back to a direct HTTP
// download otherwise.
type DownloadVideoTool struct {
	Deps *BrowserDeps

	// HTTPClient is overridable in tests.
	HTTPClient *http.Client

	// LookPath locates the yt-dlp binary; overridable in tests.
	LookPath func(file string) (string, error)
}

func (t *DownloadVideoTool) Name() string { return "download_video" }

func (t *DownloadVideoTool) Description() string {
	return "Download a video by URL into the session's artifact store. Handles platform pages via yt-dlp when installed, direct file URLs otherwise. Returns the artifact reference."
}

func (t *DownloadVideoTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"url": map[string]any{
			"type":        "string",
			"description": "Video or platform page URL, usually from find_videos",
		},
	}, "url")
}

func (t *DownloadVideoTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	u, err := url.Parse(params.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid video url %q", params.URL)
	}

	sess, err := t.Deps.session(ctx)
	if err != nil {
		return nil, err
	}
	// keep the download indistinguishable from the page that found it
	referer, _, _ := sess.PageInfo()

	lookPath := t.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if bin, lerr := lookPath("yt-dlp"); lerr == nil {
		name, data, derr := downloadWithYtdlp(ctx, bin, params.URL, referer)
		if derr == nil {
			return t.store(sess.ID, name, data)
		}
		L_debug("tools: yt-dlp failed, falling back to direct download",
			"url", params.URL, "error", derr)
	}

	data, err := t.fetchDirect(ctx, params.URL, referer)
	if err != nil {
		return nil, err
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = fmt.Sprintf("video-%s.mp4", uuid.NewString()[:6])
	}
	return t.store(sess.ID, name, data)
}

// fetchDirect downloads the url over plain HTTP with the referer set.
func (t *DownloadVideoTool) fetchDirect(ctx context.Context, rawURL, referer string) ([]byte, error) {
	client := t.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading video: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVideoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading video body: %w", err)
	}
	if len(data) > maxVideoBytes {
		return nil, fmt.Errorf("video exceeds %d byte limit", maxVideoBytes)
	}
	return data, nil
}

func (t *DownloadVideoTool) store(sessionID, name string, data []byte) (*types.ToolResult, error) {
	art, err := t.Deps.Artifacts.Write(sessionID, name, data)
	if err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("Downloaded %s (%d bytes, %s) as %s",
		art.Name, art.Size, art.MimeType, art.Ref)), nil
}

// ytdlpArgs builds the yt-dlp invocation writing into dest, an output
// template like dir/video.%(ext)s.
func ytdlpArgs(rawURL, dest, referer string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "best[ext=mp4]/best",
		"-o", dest,
	}
	if referer != "" {
		args = append(args, "--referer", referer)
	}
	return append(args, rawURL)
}

// downloadWithYtdlp runs yt-dlp into a scratch directory and returns
// the produced file.
func downloadWithYtdlp(ctx context.Context, bin, rawURL, referer string) (string, []byte, error) {
	tmp, err := os.MkdirTemp("", "webpilot-ytdlp-")
	if err != nil {
		return "", nil, err
	}
	defer os.RemoveAll(tmp)

	dest := filepath.Join(tmp, "video.%(ext)s")
	cmd := exec.CommandContext(ctx, bin, ytdlpArgs(rawURL, dest, referer)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", nil, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(string(out)))
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		return "", nil, err
	}
	if len(entries) == 0 {
		return "", nil, fmt.Errorf("yt-dlp produced no file")
	}
	name := entries[0].Name()
	data, err := os.ReadFile(filepath.Join(tmp, name))
	if err != nil {
		return "", nil, err
	}
	if len(data) > maxVideoBytes {
		return "", nil, fmt.Errorf("video exceeds %d byte limit", maxVideoBytes)
	}
	return name, data, nil
}
