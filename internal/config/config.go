// Package config provides configuration management for the adapt agent.
// Configuration is loaded from environment variables with sensible defaults;
// a .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort           = 8787
	DefaultLogLevel       = "info"
	DefaultDataDir        = ".adapt-agent"
	DefaultMaxUploadMB    = 500
	DefaultFFmpegTimeoutS = 900
	DefaultDetectTimeoutS = 60
	DefaultDetectModel    = "gemini-1.5-flash"
	DefaultROISampleFPS   = 0.5
	DefaultROIMaxFrames   = 10
	DefaultROIMaxRegions  = 3

	// Environment variable names
	EnvPort        = "ADAPT_PORT"
	EnvLogLevel    = "ADAPT_LOG_LEVEL"
	EnvDataDir     = "ADAPT_DATA_DIR"
	EnvHeadless    = "ADAPT_HEADLESS"
	EnvInboxDir    = "ADAPT_INBOX_DIR"
	EnvMaxUploadMB = "ADAPT_MAX_UPLOAD_MB"

	EnvFFmpegPath     = "ADAPT_FFMPEG_PATH"
	EnvFFprobePath    = "ADAPT_FFPROBE_PATH"
	EnvFFmpegTimeoutS = "ADAPT_FFMPEG_TIMEOUT_S"

	EnvDetectAPIKey   = "GEMINI_API_KEY"
	EnvDetectModel    = "GEMINI_MODEL"
	EnvDetectBaseURL  = "GEMINI_BASE_URL"
	EnvDetectTimeoutS = "ADAPT_DETECT_TIMEOUT_S"

	EnvROISampleFPS  = "ADAPT_ROI_SAMPLE_FPS"
	EnvROIMaxFrames  = "ADAPT_ROI_MAX_FRAMES"
	EnvROIMaxRegions = "ADAPT_ROI_MAX_REGIONS"

	// Database filename
	DBFilename = "adapt.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	UploadDir() string
	OutputDir() string
	TempDir() string
	InboxDir() string
	Headless() bool
	MaxUploadBytes() int64

	FFmpegPath() string
	FFprobePath() string
	FFmpegTimeout() time.Duration

	DetectAPIKey() string
	DetectModel() string
	DetectBaseURL() string
	DetectTimeout() time.Duration

	ROISampleFPS() float64
	ROIMaxFrames() int
	ROIMaxRegions() int
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port        int
	logLevel    string
	dataDir     string
	inboxDir    string
	headless    bool
	maxUploadMB int

	ffmpegPath     string
	ffprobePath    string
	ffmpegTimeoutS int

	detectAPIKey   string
	detectModel    string
	detectBaseURL  string
	detectTimeoutS int

	roiSampleFPS  float64
	roiMaxFrames  int
	roiMaxRegions int
}

// New creates an EnvConfig with defaults and environment variable overrides.
// A missing .env file is not an error.
func New() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		maxUploadMB:    DefaultMaxUploadMB,
		ffmpegTimeoutS: DefaultFFmpegTimeoutS,
		detectModel:    DefaultDetectModel,
		detectTimeoutS: DefaultDetectTimeoutS,
		roiSampleFPS:   DefaultROISampleFPS,
		roiMaxFrames:   DefaultROIMaxFrames,
		roiMaxRegions:  DefaultROIMaxRegions,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	cfg.inboxDir = os.Getenv(EnvInboxDir)
	cfg.headless = boolEnv(EnvHeadless)

	if mb := os.Getenv(EnvMaxUploadMB); mb != "" {
		n, err := strconv.Atoi(mb)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvMaxUploadMB)
		}
		cfg.maxUploadMB = n
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)
	if ts := os.Getenv(EnvFFmpegTimeoutS); ts != "" {
		n, err := strconv.Atoi(ts)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvFFmpegTimeoutS)
		}
		cfg.ffmpegTimeoutS = n
	}

	cfg.detectAPIKey = os.Getenv(EnvDetectAPIKey)
	if m := os.Getenv(EnvDetectModel); m != "" {
		cfg.detectModel = m
	}
	cfg.detectBaseURL = os.Getenv(EnvDetectBaseURL)
	if ts := os.Getenv(EnvDetectTimeoutS); ts != "" {
		n, err := strconv.Atoi(ts)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvDetectTimeoutS)
		}
		cfg.detectTimeoutS = n
	}

	if fps := os.Getenv(EnvROISampleFPS); fps != "" {
		f, err := strconv.ParseFloat(fps, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number", EnvROISampleFPS)
		}
		cfg.roiSampleFPS = f
	}
	if mf := os.Getenv(EnvROIMaxFrames); mf != "" {
		n, err := strconv.Atoi(mf)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvROIMaxFrames)
		}
		cfg.roiMaxFrames = n
	}
	if mr := os.Getenv(EnvROIMaxRegions); mr != "" {
		n, err := strconv.Atoi(mr)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvROIMaxRegions)
		}
		cfg.roiMaxRegions = n
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int { return c.port }

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string { return c.logLevel }

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string { return c.dataDir }

// DBPath returns the full path to the SQLite catalog file
func (c *EnvConfig) DBPath() string { return filepath.Join(c.dataDir, DBFilename) }

// UploadDir returns where uploaded source files are stored
func (c *EnvConfig) UploadDir() string { return filepath.Join(c.dataDir, "uploads") }

// OutputDir returns where finished renditions and archives land
func (c *EnvConfig) OutputDir() string { return filepath.Join(c.dataDir, "outputs") }

// TempDir returns the scratch space for frame extraction
func (c *EnvConfig) TempDir() string { return filepath.Join(c.dataDir, "tmp") }

// InboxDir returns the watched drop folder, empty when watching is disabled
func (c *EnvConfig) InboxDir() string { return c.inboxDir }

// Headless reports whether the tray UI is suppressed
func (c *EnvConfig) Headless() bool { return c.headless }

// MaxUploadBytes returns the upload size cap in bytes
func (c *EnvConfig) MaxUploadBytes() int64 { return int64(c.maxUploadMB) * 1024 * 1024 }

func (c *EnvConfig) FFmpegPath() string  { return c.ffmpegPath }
func (c *EnvConfig) FFprobePath() string { return c.ffprobePath }

func (c *EnvConfig) FFmpegTimeout() time.Duration {
	return time.Duration(c.ffmpegTimeoutS) * time.Second
}

func (c *EnvConfig) DetectAPIKey() string  { return c.detectAPIKey }
func (c *EnvConfig) DetectModel() string   { return c.detectModel }
func (c *EnvConfig) DetectBaseURL() string { return c.detectBaseURL }

func (c *EnvConfig) DetectTimeout() time.Duration {
	return time.Duration(c.detectTimeoutS) * time.Second
}

func (c *EnvConfig) ROISampleFPS() float64 { return c.roiSampleFPS }
func (c *EnvConfig) ROIMaxFrames() int     { return c.roiMaxFrames }
func (c *EnvConfig) ROIMaxRegions() int    { return c.roiMaxRegions }

func boolEnv(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	}
	return false
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
