package ffmpeg

import (
	"context"
	"os/exec"
	"strings"
)

// Capabilities reports whether the media backend binaries are usable.
type Capabilities struct {
	FFmpegAvailable  bool   `json:"ffmpeg_available"`
	FFprobeAvailable bool   `json:"ffprobe_available"`
	Version          string `json:"version,omitempty"`
}

// Ready reports whether both binaries were found.
func (c Capabilities) Ready() bool {
	return c.FFmpegAvailable && c.FFprobeAvailable
}

// Doctor probes binary availability and the ffmpeg version string. It never
// returns an error; missing binaries are reported in the result so the agent
// can start degraded and surface the state over /status.
func (c *Client) Doctor(ctx context.Context) Capabilities {
	caps := Capabilities{}

	if _, err := exec.LookPath(c.cfg.FFprobePath); err == nil {
		caps.FFprobeAvailable = true
	}

	if _, err := exec.LookPath(c.cfg.FFmpegPath); err != nil {
		return caps
	}
	caps.FFmpegAvailable = true

	output, err := c.runner.Run(ctx, c.cfg.FFmpegPath, "-version")
	if err != nil {
		return caps
	}
	line, _, _ := strings.Cut(string(output), "\n")
	caps.Version = strings.TrimSpace(line)
	return caps
}
