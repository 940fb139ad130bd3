package workers

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ConnectionCounter reports the live realtime connections.
type ConnectionCounter interface {
	Connections() int
}

// Health is the latest sample served by GET /api/health.
type Health struct {
	Connections   int       `json:"connections"`
	RSS           uint64    `json:"rss"`
	CPU           float64   `json:"cpu"`
	MemoryPercent float32   `json:"memoryPercent"`
	SampledAt     time.Time `json:"sampledAt"`
}

// HealthWorker samples the server process at a fixed interval.
// Readers never wait on the sampler: Snapshot returns the last published value.
type HealthWorker struct {
	log      *slog.Logger
	counter  ConnectionCounter
	interval time.Duration
	latest   atomic.Pointer[Health]
}

func NewHealthWorker(log *slog.Logger, counter ConnectionCounter, interval time.Duration) *HealthWorker {
	w := &HealthWorker{log: log, counter: counter, interval: interval}
	w.latest.Store(&Health{})
	return w
}

func (w *HealthWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	w.sample(p)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

// Snapshot returns the last sample with a live connection count.
func (w *HealthWorker) Snapshot() Health {
	h := *w.latest.Load()
	h.Connections = w.counter.Connections()
	return h
}

func (w *HealthWorker) sample(p *process.Process) {
	h := Health{Connections: w.counter.Connections(), SampledAt: time.Now().UTC()}

	if mem, err := p.MemoryInfo(); err != nil {
		w.log.Error("Error while finding process ram usage", "err", err)
	} else {
		h.RSS = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
	} else {
		h.CPU = cpu
	}
	if ram, err := p.MemoryPercent(); err != nil {
		w.log.Debug("Error while finding process ram percent", "err", err)
	} else {
		h.MemoryPercent = ram
	}

	w.latest.Store(&h)
}
