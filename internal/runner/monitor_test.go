package runner

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMonitorEmitsFramesWhileRunning(t *testing.T) {
	r := NewSampleRunner(nil, nil)
	r.isRunning.Store(true)
	r.totalSamples.Store(10)
	defer r.isRunning.Store(false)

	var mu sync.Mutex
	var frames []ProgressFrame
	broadcast := func(v any) error {
		frame, ok := v.(ProgressFrame)
		if !ok {
			t.Errorf("Broadcast payload has type %T, want ProgressFrame", v)
			return nil
		}
		mu.Lock()
		frames = append(frames, frame)
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := NewMonitor(r, broadcast, 5*time.Millisecond)
	go m.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if len(frames) == 0 {
		t.Fatal("Expected at least one progress frame while a batch is active")
	}
	if frames[0].Type != "progress" {
		t.Errorf("Frame type = %q, want \"progress\"", frames[0].Type)
	}
	if frames[0].Progress.TotalSamples != 10 {
		t.Errorf("TotalSamples = %d, want 10", frames[0].Progress.TotalSamples)
	}
}

func TestMonitorSilentWhenIdle(t *testing.T) {
	r := NewSampleRunner(nil, nil)

	var mu sync.Mutex
	count := 0
	broadcast := func(any) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := NewMonitor(r, broadcast, 5*time.Millisecond)
	go m.Run(ctx)

	time.Sleep(40 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("Idle monitor emitted %d frames, want 0", count)
	}
}
