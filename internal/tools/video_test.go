package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestYtdlpArgs(t *testing.T) {
	args := ytdlpArgs("https://example.com/watch?v=abc", "/tmp/x/video.%(ext)s", "https://example.com/page")

	if args[len(args)-1] != "https://example.com/watch?v=abc" {
		t.Errorf("url must come last, got %v", args)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"--no-playlist", "-o /tmp/x/video.%(ext)s", "--referer https://example.com/page"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}

	// no referer flag when the page is unknown
	joined = strings.Join(ytdlpArgs("https://example.com/v.mp4", "/tmp/x/video.%(ext)s", ""), " ")
	if strings.Contains(joined, "--referer") {
		t.Errorf("unexpected referer flag: %s", joined)
	}
}

func TestFetchDirectSendsReferer(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte("fake video bytes"))
	}))
	defer srv.Close()

	tool := &DownloadVideoTool{HTTPClient: srv.Client()}
	data, err := tool.fetchDirect(context.Background(), srv.URL+"/v.mp4", "https://example.com/page")
	if err != nil {
		t.Fatalf("fetchDirect: %v", err)
	}
	if string(data) != "fake video bytes" {
		t.Errorf("body = %q", data)
	}
	if gotReferer != "https://example.com/page" {
		t.Errorf("referer = %q", gotReferer)
	}
}

func TestFetchDirectRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer srv.Close()

	tool := &DownloadVideoTool{HTTPClient: srv.Client()}
	if _, err := tool.fetchDirect(context.Background(), srv.URL+"/v.mp4", ""); err == nil {
		t.Fatal("expected an error for a 403 response")
	}
}
