package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adcanvas/adapt-agent/internal/plan"
)

// Config holds the client's binary paths and timeouts.
type Config struct {
	FFmpegPath  string // empty = "ffmpeg" from PATH
	FFprobePath string // empty = "ffprobe" from PATH
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Client executes planned filter graphs and probe/extraction helpers against
// the ffmpeg binaries.
type Client struct {
	cfg    Config
	runner CommandRunner
}

func New(cfg Config) *Client {
	return NewWithRunner(cfg, ExecCommandRunner{})
}

// NewWithRunner injects a CommandRunner; tests use it to avoid spawning real
// processes.
func NewWithRunner(cfg Config, runner CommandRunner) *Client {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{cfg: cfg, runner: runner}
}

// Execute runs the planned graph against srcPath and writes dstPath. A
// non-zero ffmpeg exit surfaces as *ExecError with the stderr tail. The
// configured timeout bounds the whole encode.
func (c *Client) Execute(ctx context.Context, g *plan.Graph, srcPath, dstPath string) error {
	if g == nil || g.StageCount() == 0 {
		return plan.ErrEmptyPipeline
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	args := []string{"-y", "-hide_banner", "-i", srcPath}
	flag, value := Serialize(g)
	args = append(args, flag, value)
	args = append(args,
		"-c:v", g.VideoCodec,
		"-c:a", g.AudioCodec,
		"-pix_fmt", g.PixelFormat,
		"-preset", g.Preset,
		"-movflags", g.MovFlags,
	)
	if g.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%d", g.FPS))
	}
	args = append(args, dstPath)

	c.cfg.Logger.Info("executing filter pipeline",
		"filter_flag", flag,
		"filter", value,
		"output", filepath.Base(dstPath),
	)

	return c.run(ctx, c.cfg.FFmpegPath, args...)
}

// ExtractFrames samples srcPath at sampleFPS frames per second into dir as
// JPEGs and returns the frame paths in order.
func (c *Client) ExtractFrames(ctx context.Context, srcPath, dir string, sampleFPS float64) ([]string, error) {
	if sampleFPS <= 0 {
		return nil, fmt.Errorf("sample fps must be positive, got %g", sampleFPS)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create frames dir: %w", err)
	}

	pattern := filepath.Join(dir, "frame_%04d.jpg")
	err := c.run(ctx, c.cfg.FFmpegPath,
		"-y", "-hide_banner",
		"-i", srcPath,
		"-vf", fmt.Sprintf("fps=%g", sampleFPS),
		"-f", "image2",
		pattern,
	)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list frames dir: %w", err)
	}
	var frames []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jpg") {
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(frames)

	c.cfg.Logger.Info("extracted frames", "count", len(frames), "sample_fps", sampleFPS)
	return frames, nil
}

// Thumbnail grabs a single frame at offsetSeconds into dstPath.
func (c *Client) Thumbnail(ctx context.Context, srcPath, dstPath string, offsetSeconds float64) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}
	return c.run(ctx, c.cfg.FFmpegPath,
		"-y", "-hide_banner",
		"-ss", fmt.Sprintf("%.3f", offsetSeconds),
		"-i", srcPath,
		"-frames:v", "1",
		"-f", "image2",
		dstPath,
	)
}

// PreviewClip cuts a short clip from the middle of the source for QA preview.
// duration is the source's total duration in seconds.
func (c *Client) PreviewClip(ctx context.Context, srcPath, dstPath string, seconds int, duration float64) error {
	if seconds <= 0 {
		seconds = 3
	}
	start := duration/2 - float64(seconds)/2
	if start < 1 {
		start = 1
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}
	return c.run(ctx, c.cfg.FFmpegPath,
		"-y", "-hide_banner",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%d", seconds),
		"-i", srcPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "medium",
		"-movflags", "+faststart",
		dstPath,
	)
}

// run executes one bounded subprocess and maps failure to *ExecError.
func (c *Client) run(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	output, err := c.runner.Run(ctx, name, args...)
	elapsed := time.Since(start)

	if err != nil {
		execErr := execErr(err, output)
		c.cfg.Logger.Warn("backend command failed",
			"binary", filepath.Base(name),
			"exit_code", execErr.ExitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", tail([]byte(execErr.Stderr), 512),
		)
		return execErr
	}

	c.cfg.Logger.Debug("backend command succeeded",
		"binary", filepath.Base(name),
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}
