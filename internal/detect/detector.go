// Package detect finds regions of interest in sampled frames. The production
// detector calls the Gemini vision API; a stub satisfies the same interface
// when no API key is configured so adaptation degrades to centered crops
// instead of failing.
package detect

import (
	"context"
	"errors"
	"fmt"

	"github.com/adcanvas/adapt-agent/internal/roi"
)

// ErrUnavailable marks a detector that cannot be reached. Callers treat it as
// a soft failure and fall back to geometric-center cropping.
var ErrUnavailable = errors.New("detector unavailable")

// APIError is a non-2xx response from the detection endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("detection request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors and rate limiting. Client errors
// are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func (e *APIError) Unwrap() error {
	return ErrUnavailable
}

// Detector finds the salient regions of a single frame image. An empty slice
// with a nil error is a valid answer: nothing notable in the frame.
type Detector interface {
	DetectRegions(ctx context.Context, framePath string) ([]roi.Region, error)
}
