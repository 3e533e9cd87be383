package detect

import (
	"context"
	"log/slog"

	"github.com/adcanvas/adapt-agent/internal/roi"
)

// StubDetector is used when no API key is configured. It never finds
// anything, so guided crops quietly become centered crops.
type StubDetector struct {
	logger *slog.Logger
}

func NewStub(logger *slog.Logger) *StubDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubDetector{logger: logger}
}

func (s *StubDetector) DetectRegions(_ context.Context, framePath string) ([]roi.Region, error) {
	s.logger.Debug("stub detector: no regions", "frame", framePath)
	return nil, nil
}
