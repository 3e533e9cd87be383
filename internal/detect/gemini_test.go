package detect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFrame(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame_0001.jpg")
	if err := os.WriteFile(path, []byte("\xff\xd8fakejpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func candidateReply(text string) string {
	reply := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
	b, _ := json.Marshal(reply)
	return string(b)
}

func newTestDetector(serverURL string) *GeminiDetector {
	return NewGemini(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Logger:  quietLogger(),
	})
}

func TestDetectRegions_FencedJSON(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Errorf("unexpected request shape: %+v", req)
		}
		if req.Contents[0].Parts[1].InlineData == nil ||
			req.Contents[0].Parts[1].InlineData.MimeType != "image/jpeg" {
			t.Error("missing inline jpeg data")
		}

		io.WriteString(w, candidateReply("```json\n[{\"x\":0.1,\"y\":0.2,\"w\":0.3,\"h\":0.4}]\n```"))
	}))
	defer srv.Close()

	d := newTestDetector(srv.URL)
	regions, err := d.DetectRegions(context.Background(), writeFrame(t))
	if err != nil {
		t.Fatalf("DetectRegions() error = %v", err)
	}

	if gotPath != "/v1beta/models/"+DefaultModel+":generateContent" {
		t.Errorf("path = %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %s", gotKey)
	}
	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(regions))
	}
	r := regions[0]
	if r.X != 0.1 || r.Y != 0.2 || r.W != 0.3 || r.H != 0.4 {
		t.Errorf("region = %+v", r)
	}
}

func TestDetectRegions_MalformedReplyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, candidateReply("I see a person near the left edge of the frame."))
	}))
	defer srv.Close()

	d := newTestDetector(srv.URL)
	regions, err := d.DetectRegions(context.Background(), writeFrame(t))
	if err != nil {
		t.Fatalf("DetectRegions() error = %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("regions = %v, want none for prose reply", regions)
	}
}

func TestDetectRegions_InvalidBoxesDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, candidateReply(
			`[{"x":-0.5,"y":0,"w":2,"h":1},{"x":0.2,"y":0.2,"w":0.1,"h":0.1}]`))
	}))
	defer srv.Close()

	d := newTestDetector(srv.URL)
	regions, err := d.DetectRegions(context.Background(), writeFrame(t))
	if err != nil {
		t.Fatalf("DetectRegions() error = %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1 after dropping out-of-range box", len(regions))
	}
}

func TestDetectRegions_CapsRegions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		boxes := `[{"x":0.1,"y":0.1,"w":0.1,"h":0.1},{"x":0.2,"y":0.2,"w":0.1,"h":0.1},` +
			`{"x":0.3,"y":0.3,"w":0.1,"h":0.1},{"x":0.4,"y":0.4,"w":0.1,"h":0.1}]`
		io.WriteString(w, candidateReply(boxes))
	}))
	defer srv.Close()

	d := NewGemini(GeminiConfig{
		APIKey:     "k",
		BaseURL:    srv.URL,
		MaxRegions: 2,
		Logger:     quietLogger(),
	})
	regions, err := d.DetectRegions(context.Background(), writeFrame(t))
	if err != nil {
		t.Fatalf("DetectRegions() error = %v", err)
	}
	if len(regions) != 2 {
		t.Errorf("regions = %d, want 2 (capped)", len(regions))
	}
}

func TestDetectRegions_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := newTestDetector(srv.URL)
	_, err := d.DetectRegions(context.Background(), writeFrame(t))

	apiErr := &APIError{}
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if !apiErr.IsRetryable() {
		t.Error("5xx should be retryable")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("APIError should unwrap to ErrUnavailable")
	}
}

func TestDetectRegions_ClientErrorNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	d := newTestDetector(srv.URL)
	_, err := d.DetectRegions(context.Background(), writeFrame(t))

	apiErr := &APIError{}
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.IsRetryable() {
		t.Error("4xx should not be retryable")
	}
}

func TestDetectRegions_MissingFrame(t *testing.T) {
	d := newTestDetector("http://127.0.0.1:1")
	if _, err := d.DetectRegions(context.Background(), "/does/not/exist.jpg"); err == nil {
		t.Error("expected error for missing frame file")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		io.WriteString(w, `{"name":"models/gemini-1.5-flash"}`)
	}))
	defer srv.Close()

	d := newTestDetector(srv.URL)
	if err := d.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestStubDetector(t *testing.T) {
	s := NewStub(quietLogger())
	regions, err := s.DetectRegions(context.Background(), "any.jpg")
	if err != nil {
		t.Fatalf("DetectRegions() error = %v", err)
	}
	if regions != nil {
		t.Errorf("regions = %v, want nil", regions)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare", `[{"x":0}]`, `[{"x":0}]`},
		{"fence with tag", "```json\n[1,2]\n```", "[1,2]"},
		{"fence no tag", "```\n[1,2]\n```", "[1,2]"},
		{"inline fence", "```[1,2]```", "[1,2]"},
		{"whitespace", "  \n[1]\n ", "[1]"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.input); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
