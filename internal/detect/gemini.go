package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/adcanvas/adapt-agent/internal/roi"
)

const (
	// DefaultBaseURL is the public Gemini REST endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultModel balances detection quality against per-frame latency.
	DefaultModel = "gemini-1.5-flash"

	maxErrorBodyBytes = 2 * 1024
)

// regionPrompt asks for machine-parseable output only. Gemini still wraps the
// answer in markdown fences often enough that the parser strips them.
const regionPrompt = `Identify the most important visual regions in this video frame: faces, people, products, logos, and on-screen text. Respond with ONLY a JSON array of bounding boxes, each as {"x":0.1,"y":0.2,"w":0.3,"h":0.4} with coordinates normalized to [0,1] relative to the frame. Return at most %d boxes ordered by importance. Return [] if nothing stands out.`

// GeminiConfig configures the vision detector. Zero values fall back to the
// public endpoint, default model, 60s timeout, and slog.Default.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRegions int
	Timeout    time.Duration
	Logger     *slog.Logger
}

// GeminiDetector calls the Gemini generateContent REST API with an inline
// JPEG frame and parses normalized bounding boxes from the reply.
type GeminiDetector struct {
	apiKey     string
	model      string
	baseURL    string
	maxRegions int
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGemini(cfg GeminiConfig) *GeminiDetector {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRegions <= 0 {
		cfg.MaxRegions = roi.DefaultMaxRegionsPerFrame
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GeminiDetector{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRegions: cfg.MaxRegions,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// DetectRegions sends one frame image and returns the validated, capped
// bounding boxes. A reply the model garbles is treated as "nothing detected"
// rather than a failure; transport and HTTP errors surface so the caller can
// decide whether the whole detection pass is usable.
func (d *GeminiDetector) DetectRegions(ctx context.Context, framePath string) ([]roi.Region, error) {
	frame, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	payload := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{
		{Text: fmt.Sprintf(regionPrompt, d.maxRegions)},
		{InlineData: &geminiInlineData{
			MimeType: "image/jpeg",
			Data:     base64.StdEncoding.EncodeToString(frame),
		}},
	}}}}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal detection request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", d.baseURL, d.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode detection response: %w", err)
	}

	text := firstCandidateText(decoded)
	regions := parseRegions(text, d.maxRegions)
	d.logger.Debug("frame regions detected",
		"frame", framePath,
		"regions", len(regions),
	)
	return regions, nil
}

// Ping verifies the endpoint accepts the configured key by listing the model.
func (d *GeminiDetector) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1beta/models/%s", d.baseURL, d.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}
	return nil
}

func firstCandidateText(r geminiResponse) string {
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

// parseRegions extracts a JSON array of boxes from model text, tolerating
// markdown fencing. Malformed text or out-of-range boxes yield an empty
// result, never an error, so one bad reply cannot fail a detection pass.
func parseRegions(text string, maxRegions int) []roi.Region {
	text = stripFences(text)
	if text == "" {
		return nil
	}

	var raw []roi.Region
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}

	var regions []roi.Region
	for _, r := range raw {
		if !r.Valid() {
			continue
		}
		regions = append(regions, r)
		if len(regions) >= maxRegions {
			break
		}
	}
	return regions
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.HasPrefix(s, "[") {
		// drop the language tag line, e.g. "json"
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
