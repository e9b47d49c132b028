package runner

import (
	"context"
	"log"
	"time"
)

// Monitor periodically pushes batch progress frames to a broadcast sink (the
// WebSocket hub's BroadcastJSON in production) while a batch is active. It
// stays silent when the runner is idle.
type Monitor struct {
	runner    *SampleRunner
	broadcast func(v any) error
	interval  time.Duration
}

// ProgressFrame is the wire payload streamed to subscribed clients.
type ProgressFrame struct {
	Type     string   `json:"type"` // always "progress"
	Progress Progress `json:"progress"`
}

func NewMonitor(r *SampleRunner, broadcast func(v any) error, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{runner: r, broadcast: broadcast, interval: interval}
}

// Run blocks until ctx is cancelled, emitting one frame per tick while a
// batch is running plus a final frame when it finishes.
func (m *Monitor) Run(ctx context.Context) {
	log.Println("Starting batch progress monitor...")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	wasRunning := false
	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping batch progress monitor...")
			return
		case <-ticker.C:
			progress := m.runner.GetProgress()
			if !progress.IsRunning && !wasRunning {
				continue
			}
			wasRunning = progress.IsRunning

			if err := m.broadcast(ProgressFrame{Type: "progress", Progress: progress}); err != nil {
				log.Printf("[Monitor] Failed to broadcast progress frame: %v", err)
			}
		}
	}
}
