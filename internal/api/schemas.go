package api

import (
	"time"

	"github.com/adcanvas/adapt-agent/internal/catalog"
	"github.com/adcanvas/adapt-agent/internal/format"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State           string        `json:"state"`
	LastError       string        `json:"last_error,omitempty"`
	AssetsCount     int           `json:"assets_count"`
	RenditionsCount int           `json:"renditions_count"`
	JobsRunning     int           `json:"jobs_running"`
	ActiveJob       *JobResponse  `json:"active_job,omitempty"`
	Backend         *BackendState `json:"backend,omitempty"`
	Detector        string        `json:"detector"`
}

type BackendState struct {
	FFmpegAvailable  bool   `json:"ffmpeg_available"`
	FFprobeAvailable bool   `json:"ffprobe_available"`
	Version          string `json:"version,omitempty"`
}

type FormatResponse struct {
	Key         string `json:"key"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FPS         int    `json:"fps"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type FormatsResponse struct {
	Formats []FormatResponse `json:"formats"`
}

type AssetResponse struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Duration    float64 `json:"duration"`
	FrameRate   float64 `json:"frame_rate"`
	VideoCodec  string  `json:"video_codec"`
	AudioCodec  string  `json:"audio_codec,omitempty"`
	PixelFormat string  `json:"pixel_format"`
	SizeBytes   int64   `json:"size_bytes"`
	CreatedAt   string  `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

type CreateAdaptationRequest struct {
	AssetID         string                 `json:"asset_id"`
	FormatKeys      []string               `json:"format_keys,omitempty"`
	CustomFormats   []catalog.CustomFormat `json:"custom_formats,omitempty"`
	Mode            string                 `json:"mode"`
	BlurBackground  bool                   `json:"blur_background,omitempty"`
	LegibilityBoost bool                   `json:"legibility_boost,omitempty"`
	AIGuidedCrop    bool                   `json:"ai_guided_crop,omitempty"`
}

type CreateAdaptationResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID        string `json:"id"`
	AssetID   string `json:"asset_id"`
	Status    string `json:"status"`
	Mode      string `json:"mode"`
	Targets   int    `json:"targets"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type RenditionResponse struct {
	ID        string `json:"id"`
	JobID     string `json:"job_id"`
	FormatKey string `json:"format_key"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	FPS       int    `json:"fps"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

type RenditionsResponse struct {
	Renditions []RenditionResponse `json:"renditions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func FormatToResponse(p format.Profile) FormatResponse {
	return FormatResponse{
		Key:         p.Key,
		Width:       p.Width,
		Height:      p.Height,
		FPS:         p.FPS,
		Description: p.Description,
		Category:    p.Category,
	}
}

func AssetToResponse(a *catalog.Asset) AssetResponse {
	return AssetResponse{
		ID:          a.ID,
		Filename:    a.Filename,
		Width:       a.Width,
		Height:      a.Height,
		Duration:    a.Duration,
		FrameRate:   a.FrameRate,
		VideoCodec:  a.VideoCodec,
		AudioCodec:  a.AudioCodec,
		PixelFormat: a.PixelFormat,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func JobToResponse(j *catalog.AdaptationJob) JobResponse {
	return JobResponse{
		ID:        j.ID,
		AssetID:   j.AssetID,
		Status:    j.Status,
		Mode:      j.Params.Mode,
		Targets:   len(j.Params.FormatKeys) + len(j.Params.CustomFormats),
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}

func RenditionToResponse(r *catalog.Rendition) RenditionResponse {
	return RenditionResponse{
		ID:        r.ID,
		JobID:     r.JobID,
		FormatKey: r.FormatKey,
		Width:     r.Width,
		Height:    r.Height,
		FPS:       r.FPS,
		SizeBytes: r.SizeBytes,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}
