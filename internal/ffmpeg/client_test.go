package ffmpeg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adcanvas/adapt-agent/internal/plan"
)

// fakeRunner records invocations and returns canned output per call.
type fakeRunner struct {
	calls  [][]string
	output []byte
	err    error
	hook   func(name string, args []string)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.hook != nil {
		f.hook(name, args)
	}
	return f.output, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(runner CommandRunner) *Client {
	return NewWithRunner(Config{Logger: quietLogger()}, runner)
}

func hasArgPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestExecute_BuildsArgs(t *testing.T) {
	runner := &fakeRunner{}
	c := testClient(runner)

	g, err := plan.Build(plan.Request{TargetW: 1920, TargetH: 1080, Mode: plan.ModeFit, TargetFPS: 25})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	dst := filepath.Join(t.TempDir(), "out", "rendition.mp4")
	if err := c.Execute(context.Background(), g, "/tmp/in.mp4", dst); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("runner calls = %d, want 1", len(runner.calls))
	}
	call := runner.calls[0]
	if call[0] != "ffmpeg" {
		t.Errorf("binary = %s, want ffmpeg", call[0])
	}
	args := call[1:]
	for _, pair := range [][2]string{
		{"-i", "/tmp/in.mp4"},
		{"-c:v", "libx264"},
		{"-c:a", "aac"},
		{"-pix_fmt", "yuv420p"},
		{"-preset", "fast"},
		{"-movflags", "+faststart"},
		{"-r", "25"},
	} {
		if !hasArgPair(args, pair[0], pair[1]) {
			t.Errorf("args missing %s %s: %v", pair[0], pair[1], args)
		}
	}
	if args[len(args)-1] != dst {
		t.Errorf("last arg = %s, want destination path", args[len(args)-1])
	}

	// single unlabeled chain goes through -vf
	found := false
	for _, a := range args {
		if a == "-vf" {
			found = true
		}
		if a == "-filter_complex" {
			t.Error("unexpected -filter_complex for single-chain graph")
		}
	}
	if !found {
		t.Error("args missing -vf")
	}
}

func TestExecute_NoFPSFlagWhenZero(t *testing.T) {
	runner := &fakeRunner{}
	c := testClient(runner)

	g, err := plan.Build(plan.Request{TargetW: 720, TargetH: 360, Mode: plan.ModeFill})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	dst := filepath.Join(t.TempDir(), "out.mp4")
	if err := c.Execute(context.Background(), g, "in.mp4", dst); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, a := range runner.calls[0] {
		if a == "-r" {
			t.Error("unexpected -r flag when FPS is 0")
		}
	}
}

func TestExecute_EmptyGraph(t *testing.T) {
	c := testClient(&fakeRunner{})
	err := c.Execute(context.Background(), &plan.Graph{}, "in.mp4", "out.mp4")
	if !errors.Is(err, plan.ErrEmptyPipeline) {
		t.Errorf("error = %v, want ErrEmptyPipeline", err)
	}
	err = c.Execute(context.Background(), nil, "in.mp4", "out.mp4")
	if !errors.Is(err, plan.ErrEmptyPipeline) {
		t.Errorf("nil graph error = %v, want ErrEmptyPipeline", err)
	}
}

func TestExecute_MapsFailureToExecError(t *testing.T) {
	runner := &fakeRunner{
		output: []byte("in.mp4: Invalid data found when processing input\n"),
		err:    errors.New("exit status 1"),
	}
	c := testClient(runner)

	g, err := plan.Build(plan.Request{TargetW: 1920, TargetH: 1080, Mode: plan.ModeFit})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	execErr := &ExecError{}
	err = c.Execute(context.Background(), g, "in.mp4", filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %T, want *ExecError", err)
	}
	if !strings.Contains(execErr.Stderr, "Invalid data found") {
		t.Errorf("Stderr = %q, want diagnostic tail", execErr.Stderr)
	}
	if execErr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 for non-ExitError failure", execErr.ExitCode)
	}
}

func TestExtractFrames(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		hook: func(_ string, _ []string) {
			// simulate ffmpeg dropping frames into the output dir
			for _, name := range []string{"frame_0002.jpg", "frame_0001.jpg", "notes.txt"} {
				os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
			}
		},
	}
	c := testClient(runner)

	frames, err := c.ExtractFrames(context.Background(), "in.mp4", dir, 0.5)
	if err != nil {
		t.Fatalf("ExtractFrames() error = %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2 (non-jpg excluded)", len(frames))
	}
	if filepath.Base(frames[0]) != "frame_0001.jpg" || filepath.Base(frames[1]) != "frame_0002.jpg" {
		t.Errorf("frames not sorted: %v", frames)
	}

	args := runner.calls[0][1:]
	if !hasArgPair(args, "-vf", "fps=0.5") {
		t.Errorf("args missing -vf fps=0.5: %v", args)
	}
}

func TestExtractFrames_RejectsBadRate(t *testing.T) {
	c := testClient(&fakeRunner{})
	if _, err := c.ExtractFrames(context.Background(), "in.mp4", t.TempDir(), 0); err == nil {
		t.Error("expected error for zero sample fps")
	}
}

func TestTail(t *testing.T) {
	short := []byte("short output")
	if got := tail(short, 1024); got != "short output" {
		t.Errorf("tail(short) = %q", got)
	}
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	got := tail(long, 10)
	if got != "..."+strings.Repeat("a", 10) {
		t.Errorf("tail(long) = %q", got)
	}
}

func TestNewWithRunner_Defaults(t *testing.T) {
	c := NewWithRunner(Config{}, &fakeRunner{})
	if c.cfg.FFmpegPath != "ffmpeg" || c.cfg.FFprobePath != "ffprobe" {
		t.Errorf("paths = %s/%s, want ffmpeg/ffprobe", c.cfg.FFmpegPath, c.cfg.FFprobePath)
	}
	if c.cfg.Timeout != 15*time.Minute {
		t.Errorf("timeout = %v, want 15m", c.cfg.Timeout)
	}
	if c.cfg.Logger == nil {
		t.Error("logger not defaulted")
	}
}
