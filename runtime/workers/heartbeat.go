package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically logs the server's own resource usage so an
// operator tailing the logs can spot leaks or runaway CPU without an
// external monitoring stack.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	sessions func() int
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration, sessions func() int) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, interval: interval, sessions: sessions}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Heartbeat",
				"pid", os.Getpid(),
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"sessions", w.sessions(),
			)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
