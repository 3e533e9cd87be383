package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/adcanvas/adapt-agent/internal/api"
	"github.com/adcanvas/adapt-agent/internal/catalog"
	"github.com/adcanvas/adapt-agent/internal/config"
	"github.com/adcanvas/adapt-agent/internal/db"
	"github.com/adcanvas/adapt-agent/internal/detect"
	"github.com/adcanvas/adapt-agent/internal/ffmpeg"
	"github.com/adcanvas/adapt-agent/internal/logging"
	"github.com/adcanvas/adapt-agent/internal/ui"
	"github.com/adcanvas/adapt-agent/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.UploadDir(), cfg.OutputDir(), cfg.TempDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting adapt agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                    ADAPT AGENT v%-7s                    ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	media := ffmpeg.New(ffmpeg.Config{
		FFmpegPath:  cfg.FFmpegPath(),
		FFprobePath: cfg.FFprobePath(),
		Timeout:     cfg.FFmpegTimeout(),
		Logger:      logger,
	})

	doctorCtx, doctorCancel := context.WithTimeout(context.Background(), 15*time.Second)
	caps := media.Doctor(doctorCtx)
	doctorCancel()
	if !caps.FFmpegAvailable {
		logger.Warn("ffmpeg not found, adaptations will fail until it is installed", "path", cfg.FFmpegPath())
	} else {
		logger.Info("media backend ready",
			"ffmpeg", caps.Version,
			"ffprobe_available", caps.FFprobeAvailable,
		)
	}

	var detector detect.Detector
	detectorName := "stub"
	if cfg.DetectAPIKey() != "" {
		gemini := detect.NewGemini(detect.GeminiConfig{
			APIKey:     cfg.DetectAPIKey(),
			Model:      cfg.DetectModel(),
			BaseURL:    cfg.DetectBaseURL(),
			MaxRegions: cfg.ROIMaxRegions(),
			Timeout:    cfg.DetectTimeout(),
			Logger:     logger,
		})

		pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.DetectTimeout())
		if err := gemini.Ping(pingCtx); err != nil {
			logger.Warn("detector unreachable, crop hints will fall back to centered until it recovers", "error", err)
		} else {
			logger.Info("region detector enabled", "model", cfg.DetectModel())
		}
		pingCancel()

		detector = gemini
		detectorName = "gemini"
	} else {
		detector = detect.NewStub(logger)
		logger.Info("no detector API key set, crop hints fall back to centered")
	}

	svc := catalog.NewService(repo, media, detector, catalog.Options{
		OutputDir:     cfg.OutputDir(),
		TempDir:       cfg.TempDir(),
		ROISampleFPS:  cfg.ROISampleFPS(),
		ROIMaxFrames:  cfg.ROIMaxFrames(),
		ROIMaxRegions: cfg.ROIMaxRegions(),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := catalog.NewRunner(svc, repo, logger)
	go runner.Start(ctx)

	if cfg.InboxDir() != "" {
		inbox := watcher.NewInboxWatcher(cfg.InboxDir(), svc, logger)
		go func() {
			if err := inbox.Watch(ctx); err != nil {
				logger.Error("inbox watcher stopped", "error", err)
			}
		}()
		logger.Info("watching inbox directory", "dir", logging.SanitizePath(cfg.InboxDir()))
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		UploadDir:      cfg.UploadDir(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Service:        svc,
		Repository:     repo,
		Runner:         runner,
		Capabilities:   &caps,
		DetectorName:   detectorName,
		Logger:         logger,
		StartTime:      startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Runner: runner,
			Logger: logger,
			OnOpenOutputs: func() error {
				return openFolder(cfg.OutputDir())
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}

// openFolder opens the given directory in the platform file manager.
func openFolder(dir string) error {
	var cmd *exec.Cmd
	switch {
	case fileExists("/usr/bin/open"):
		cmd = exec.Command("/usr/bin/open", dir)
	case fileExists("/usr/bin/xdg-open"):
		cmd = exec.Command("/usr/bin/xdg-open", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	return cmd.Start()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
