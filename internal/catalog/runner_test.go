package catalog

import (
	"context"
	"testing"
	"time"
)

func setupRunnerTest(t *testing.T, backend *fakeBackend) (*Runner, *Service, Repository) {
	t.Helper()
	svc, repo := newTestService(t, backend, nil)
	runner := NewRunner(svc, repo, testLogger())
	runner.pollInterval = 20 * time.Millisecond
	return runner, svc, repo
}

func waitForStatus(t *testing.T, repo Repository, jobID, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			job, _ := repo.GetJob(context.Background(), jobID)
			t.Fatalf("job never reached %s, last status %q", want, job.Status)
		case <-time.After(10 * time.Millisecond):
			job, err := repo.GetJob(context.Background(), jobID)
			if err != nil {
				t.Fatalf("GetJob() error = %v", err)
			}
			if job != nil && job.Status == want {
				return
			}
		}
	}
}

func TestRunner_ProcessesQueuedJob(t *testing.T) {
	backend := &fakeBackend{}
	runner, svc, repo := setupRunnerTest(t, backend)
	asset := registerTestAsset(t, svc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := svc.CreateAdaptation(ctx, asset.ID, AdaptationParams{
		Mode:       "fit",
		FormatKeys: []string{"LED_16_9"},
	})
	if err != nil {
		t.Fatalf("CreateAdaptation() error = %v", err)
	}

	go runner.Start(ctx)
	waitForStatus(t, repo, job.ID, JobStatusCompleted)
}

func TestRunner_PauseBlocksProcessing(t *testing.T) {
	backend := &fakeBackend{}
	runner, svc, repo := setupRunnerTest(t, backend)
	asset := registerTestAsset(t, svc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner.Pause()
	go runner.Start(ctx)

	job, _ := svc.CreateAdaptation(ctx, asset.ID, AdaptationParams{
		Mode:       "fit",
		FormatKeys: []string{"LED_16_9"},
	})

	time.Sleep(100 * time.Millisecond)
	got, _ := repo.GetJob(ctx, job.ID)
	if got.Status != JobStatusQueued {
		t.Fatalf("paused runner processed job, status = %s", got.Status)
	}

	runner.Resume()
	waitForStatus(t, repo, job.ID, JobStatusCompleted)
}

func TestRunner_StartTwiceIsNoop(t *testing.T) {
	runner, _, _ := setupRunnerTest(t, &fakeBackend{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runner.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	if !runner.IsRunning() {
		t.Fatal("runner not running")
	}

	done := make(chan struct{})
	go func() {
		runner.Start(ctx) // second start returns immediately
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("second Start() did not return")
	}
}

func TestRunner_PauseState(t *testing.T) {
	runner, _, _ := setupRunnerTest(t, &fakeBackend{})

	if runner.IsPaused() {
		t.Error("runner paused before Pause()")
	}
	runner.Pause()
	if !runner.IsPaused() {
		t.Error("IsPaused() = false after Pause()")
	}
	runner.Resume()
	if runner.IsPaused() {
		t.Error("IsPaused() = true after Resume()")
	}
}
