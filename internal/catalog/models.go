package catalog

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Asset is a registered source video with its probed properties.
type Asset struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	Path          string    `json:"path"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Duration      float64   `json:"duration"`
	FrameRate     float64   `json:"frame_rate"`
	VideoCodec    string    `json:"video_codec"`
	AudioCodec    string    `json:"audio_codec"`
	PixelFormat   string    `json:"pixel_format"`
	SizeBytes     int64     `json:"size_bytes"`
	ThumbnailPath string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// CustomFormat is an ad-hoc target the built-in profile catalog does not
// cover. FPS 0 preserves the source frame rate.
type CustomFormat struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps,omitempty"`
}

// AdaptationParams describes how one source is adapted across target formats.
// The params travel with the job as a JSON blob.
type AdaptationParams struct {
	FormatKeys      []string       `json:"format_keys"`
	CustomFormats   []CustomFormat `json:"custom_formats,omitempty"`
	Mode            string         `json:"mode"`
	BlurBackground  bool           `json:"blur_background,omitempty"`
	LegibilityBoost bool           `json:"legibility_boost,omitempty"`
	AIGuidedCrop    bool           `json:"ai_guided_crop,omitempty"`
}

// AdaptationJob is one batch adaptation of an asset. Progress is 0-100 across
// the whole batch; Error is set only for failed jobs.
type AdaptationJob struct {
	ID        string           `json:"id"`
	AssetID   string           `json:"asset_id"`
	Status    string           `json:"status"`
	Params    AdaptationParams `json:"params"`
	Progress  int              `json:"progress"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Rendition is one finished output of a job for one target format.
type Rendition struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	FormatKey string    `json:"format_key"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	FPS       int       `json:"fps"`
	Path      string    `json:"-"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// VideoExtensions lists the container formats accepted for upload and inbox
// ingestion.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
}

func NewID() string {
	return uuid.NewString()
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}
