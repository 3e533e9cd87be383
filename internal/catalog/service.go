package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adcanvas/adapt-agent/internal/archive"
	"github.com/adcanvas/adapt-agent/internal/detect"
	"github.com/adcanvas/adapt-agent/internal/ffmpeg"
	"github.com/adcanvas/adapt-agent/internal/format"
	"github.com/adcanvas/adapt-agent/internal/plan"
	"github.com/adcanvas/adapt-agent/internal/roi"
)

// thumbnailOffsetSeconds is where the asset thumbnail is grabbed. One second
// in skips black lead-in frames on most campaign masters.
const thumbnailOffsetSeconds = 1.0

// MediaBackend is the slice of the ffmpeg client the service needs. Tests
// substitute a fake so no binaries are spawned.
type MediaBackend interface {
	Probe(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	Execute(ctx context.Context, g *plan.Graph, srcPath, dstPath string) error
	ExtractFrames(ctx context.Context, srcPath, dir string, sampleFPS float64) ([]string, error)
	Thumbnail(ctx context.Context, srcPath, dstPath string, offsetSeconds float64) error
	PreviewClip(ctx context.Context, srcPath, dstPath string, seconds int, duration float64) error
}

// Options tunes the adaptation workflow.
type Options struct {
	OutputDir     string
	TempDir       string
	ROISampleFPS  float64
	ROIMaxFrames  int
	ROIMaxRegions int
}

// Service owns the asset and adaptation lifecycle: registration and probing,
// job creation and validation, and the batch execution that produces
// renditions and the download archive.
type Service struct {
	repo     Repository
	backend  MediaBackend
	detector detect.Detector
	opts     Options
	logger   *slog.Logger
}

func NewService(repo Repository, backend MediaBackend, detector detect.Detector, opts Options, logger *slog.Logger) *Service {
	if opts.ROISampleFPS <= 0 {
		opts.ROISampleFPS = 0.5
	}
	if opts.ROIMaxFrames <= 0 {
		opts.ROIMaxFrames = 10
	}
	if opts.ROIMaxRegions <= 0 {
		opts.ROIMaxRegions = roi.DefaultMaxRegionsPerFrame
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, backend: backend, detector: detector, opts: opts, logger: logger}
}

// RegisterAsset probes a video already on disk and records it in the catalog.
// Registering the same path twice returns the existing asset.
func (s *Service) RegisterAsset(ctx context.Context, path string) (*Asset, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	existing, err := s.repo.GetAssetByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	info, err := s.backend.Probe(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filepath.Base(absPath), err)
	}

	asset := &Asset{
		ID:          NewID(),
		Filename:    filepath.Base(absPath),
		Path:        absPath,
		Width:       info.Width,
		Height:      info.Height,
		Duration:    info.Duration,
		FrameRate:   info.FrameRate,
		VideoCodec:  info.VideoCodec,
		AudioCodec:  info.AudioCodec,
		PixelFormat: info.PixelFormat,
		SizeBytes:   info.Size,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	// A missing thumbnail is cosmetic, never fatal.
	thumbPath := filepath.Join(s.opts.TempDir, "thumbs", asset.ID+".jpg")
	offset := thumbnailOffsetSeconds
	if info.Duration > 0 && info.Duration < 2*thumbnailOffsetSeconds {
		offset = info.Duration / 2
	}
	if err := s.backend.Thumbnail(ctx, absPath, thumbPath, offset); err != nil {
		s.logger.Warn("thumbnail generation failed", "asset_id", asset.ID, "error", err)
	} else {
		asset.ThumbnailPath = thumbPath
		if err := s.repo.UpdateAssetThumbnail(ctx, asset.ID, thumbPath); err != nil {
			s.logger.Warn("thumbnail path not recorded", "asset_id", asset.ID, "error", err)
		}
	}

	s.logger.Info("asset registered",
		"asset_id", asset.ID,
		"filename", asset.Filename,
		"geometry", fmt.Sprintf("%dx%d", asset.Width, asset.Height),
		"duration_s", asset.Duration,
	)
	return asset, nil
}

func (s *Service) Asset(ctx context.Context, id string) (*Asset, error) {
	return s.repo.GetAsset(ctx, id)
}

func (s *Service) Assets(ctx context.Context) ([]*Asset, error) {
	return s.repo.ListAssets(ctx)
}

func (s *Service) CountAssets(ctx context.Context) (int, error) {
	return s.repo.CountAssets(ctx)
}

func (s *Service) CountRenditions(ctx context.Context) (int, error) {
	return s.repo.CountRenditions(ctx)
}

// previewSeconds is the length of the QA preview clip cut from mid-source.
const previewSeconds = 3

// AssetPreview returns the path to a short mid-source preview clip, rendering
// it on first request and caching it under the temp dir afterwards.
func (s *Service) AssetPreview(ctx context.Context, id string) (string, error) {
	asset, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return "", err
	}
	if asset == nil {
		return "", fmt.Errorf("asset not found")
	}

	previewPath := filepath.Join(s.opts.TempDir, "previews", asset.ID+".mp4")
	if _, err := os.Stat(previewPath); err == nil {
		return previewPath, nil
	}

	if err := s.backend.PreviewClip(ctx, asset.Path, previewPath, previewSeconds, asset.Duration); err != nil {
		return "", fmt.Errorf("preview render: %w", err)
	}
	return previewPath, nil
}

// CreateAdaptation validates the request up front and enqueues a job. The
// fail-fast checks keep garbage out of the queue so the runner only ever sees
// executable work.
func (s *Service) CreateAdaptation(ctx context.Context, assetID string, params AdaptationParams) (*AdaptationJob, error) {
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("asset not found")
	}

	if params.Mode != string(plan.ModeFit) && params.Mode != string(plan.ModeFill) {
		return nil, fmt.Errorf("%w: %q", plan.ErrUnsupportedMode, params.Mode)
	}
	if len(params.FormatKeys) == 0 && len(params.CustomFormats) == 0 {
		return nil, fmt.Errorf("at least one target format is required")
	}
	if _, err := resolveTargets(params); err != nil {
		return nil, err
	}

	now := time.Now()
	job := &AdaptationJob{
		ID:        NewID(),
		AssetID:   assetID,
		Status:    JobStatusQueued,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("adaptation queued",
		"job_id", job.ID,
		"asset_id", assetID,
		"mode", params.Mode,
		"targets", len(params.FormatKeys)+len(params.CustomFormats),
	)
	return job, nil
}

func (s *Service) Job(ctx context.Context, id string) (*AdaptationJob, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) Jobs(ctx context.Context, limit int) ([]*AdaptationJob, error) {
	return s.repo.ListJobs(ctx, limit)
}

func (s *Service) Rendition(ctx context.Context, id string) (*Rendition, error) {
	return s.repo.GetRendition(ctx, id)
}

func (s *Service) JobRenditions(ctx context.Context, jobID string) ([]*Rendition, error) {
	return s.repo.ListRenditionsByJob(ctx, jobID)
}

// ArchivePath returns where the batch zip for a completed job lives. The file
// exists only after the job produced at least one rendition.
func (s *Service) ArchivePath(asset *Asset, job *AdaptationJob) string {
	return filepath.Join(s.opts.OutputDir, job.ID, ArchiveFilename(asset.Filename))
}

// resolveTargets expands format keys and custom formats into profiles.
func resolveTargets(params AdaptationParams) ([]format.Profile, error) {
	var targets []format.Profile
	for _, key := range params.FormatKeys {
		p, ok := format.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("unknown format key %q", key)
		}
		targets = append(targets, p)
	}
	for _, c := range params.CustomFormats {
		if c.Width <= 0 || c.Height <= 0 {
			return nil, fmt.Errorf("%w: %dx%d", plan.ErrInvalidGeometry, c.Width, c.Height)
		}
		targets = append(targets, format.Custom(c.Width, c.Height, c.FPS))
	}
	return targets, nil
}

// ExecuteAdaptation runs one queued job end to end: optional ROI detection,
// one encode per target format, and the batch archive. A format that fails
// does not sink the batch; the job fails only when every target fails.
func (s *Service) ExecuteAdaptation(ctx context.Context, jobID string) error {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job not found")
	}
	asset, err := s.repo.GetAsset(ctx, job.AssetID)
	if err != nil {
		return err
	}
	if asset == nil {
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, "asset not found")
		return fmt.Errorf("asset not found")
	}

	if err := s.repo.UpdateJobStatus(ctx, jobID, JobStatusRunning, ""); err != nil {
		return err
	}
	log := s.logger.With("job_id", jobID, "asset_id", asset.ID)

	targets, err := resolveTargets(job.Params)
	if err != nil {
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, err.Error())
		return err
	}

	var cropCenter *roi.Center
	if job.Params.AIGuidedCrop && job.Params.Mode == string(plan.ModeFill) {
		cropCenter = s.detectCropCenter(ctx, log, jobID, asset)
	}

	jobDir := filepath.Join(s.opts.OutputDir, jobID)
	var (
		succeeded []string
		failures  []string
	)

	for i, target := range targets {
		req := plan.Request{
			SourceWidth:     asset.Width,
			SourceHeight:    asset.Height,
			SourceFPS:       asset.FrameRate,
			TargetW:         target.Width,
			TargetH:         target.Height,
			TargetFPS:       target.FPS,
			Mode:            plan.Mode(job.Params.Mode),
			BlurBackground:  job.Params.BlurBackground,
			LegibilityBoost: job.Params.LegibilityBoost,
			CropCenter:      cropCenter,
		}

		if err := s.renderTarget(ctx, jobID, jobDir, asset, target, req); err != nil {
			log.Warn("target failed", "format", target.Key, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", target.Key, err))
		} else {
			succeeded = append(succeeded,
				filepath.Join(jobDir, RenditionFilename(asset.Filename, target.Key)))
		}

		progress := (i + 1) * 100 / len(targets)
		if err := s.repo.UpdateJobProgress(ctx, jobID, progress); err != nil {
			log.Warn("progress not recorded", "error", err)
		}
	}

	if len(succeeded) == 0 {
		msg := strings.Join(failures, "; ")
		s.repo.UpdateJobStatus(ctx, jobID, JobStatusFailed, msg)
		return fmt.Errorf("all targets failed: %s", msg)
	}

	archivePath := filepath.Join(jobDir, ArchiveFilename(asset.Filename))
	if n, err := archive.WriteZip(archivePath, succeeded); err != nil {
		log.Warn("batch archive failed", "error", err)
	} else {
		log.Info("batch archive written", "entries", n, "path", filepath.Base(archivePath))
	}

	errMsg := ""
	if len(failures) > 0 {
		errMsg = "partial: " + strings.Join(failures, "; ")
	}
	if err := s.repo.UpdateJobStatus(ctx, jobID, JobStatusCompleted, errMsg); err != nil {
		return err
	}

	log.Info("adaptation completed",
		"renditions", len(succeeded),
		"failed_targets", len(failures),
	)
	return nil
}

// renderTarget plans and encodes one rendition, recording it on success.
func (s *Service) renderTarget(ctx context.Context, jobID, jobDir string, asset *Asset, target format.Profile, req plan.Request) error {
	g, err := plan.Build(req)
	if err != nil {
		return err
	}

	dstPath := filepath.Join(jobDir, RenditionFilename(asset.Filename, target.Key))
	if err := s.backend.Execute(ctx, g, asset.Path, dstPath); err != nil {
		return err
	}

	var size int64
	if info, err := os.Stat(dstPath); err == nil {
		size = info.Size()
	}

	return s.repo.CreateRendition(ctx, &Rendition{
		ID:        NewID(),
		JobID:     jobID,
		FormatKey: target.Key,
		Width:     target.Width,
		Height:    target.Height,
		FPS:       target.FPS,
		Path:      dstPath,
		SizeBytes: size,
		CreatedAt: time.Now(),
	})
}

// detectCropCenter samples frames and asks the detector where the action is.
// Every failure path returns nil, which downstream means a centered crop; a
// flaky detector must never fail an otherwise executable job.
func (s *Service) detectCropCenter(ctx context.Context, log *slog.Logger, jobID string, asset *Asset) *roi.Center {
	if s.detector == nil {
		return nil
	}

	framesDir := filepath.Join(s.opts.TempDir, "frames", jobID)
	defer os.RemoveAll(framesDir)

	frames, err := s.backend.ExtractFrames(ctx, asset.Path, framesDir, s.opts.ROISampleFPS)
	if err != nil {
		log.Warn("frame sampling failed, using centered crop", "error", err)
		return nil
	}
	if len(frames) > s.opts.ROIMaxFrames {
		frames = frames[:s.opts.ROIMaxFrames]
	}

	var frameRegions [][]roi.Region
	for _, frame := range frames {
		regions, err := s.detector.DetectRegions(ctx, frame)
		if err != nil {
			if errors.Is(err, detect.ErrUnavailable) {
				log.Warn("detector unavailable, using centered crop", "error", err)
				return nil
			}
			log.Warn("frame detection failed", "frame", filepath.Base(frame), "error", err)
			continue
		}
		if len(regions) > 0 {
			frameRegions = append(frameRegions, regions)
		}
	}

	center, ok := roi.SuggestCropCenter(frameRegions, s.opts.ROIMaxRegions)
	if !ok {
		log.Info("no salient regions found, using centered crop")
		return nil
	}

	log.Info("crop center suggested",
		"cx", fmt.Sprintf("%.3f", center.CX),
		"cy", fmt.Sprintf("%.3f", center.CY),
		"frames_used", len(frameRegions),
	)
	return &center
}
