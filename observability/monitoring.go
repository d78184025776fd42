package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// PresenceCounter is satisfied by the presence registry.
type PresenceCounter interface {
	Online() int
	Connections() int
}

// MonitoringStats is the process snapshot served on /healthz.
type MonitoringStats struct {
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	Uptime      string    `json:"uptime"`
	Online      int       `json:"online_users"`
	Connections int       `json:"connections"`
	Goroutines  int       `json:"goroutines"`
	AllocMemMb  uint64    `json:"alloc_mem_mb"`
	NumGC       uint32    `json:"num_gc"`
	RSSBytes    uint64    `json:"rss_bytes"`
	CPUPercent  float64   `json:"cpu_percent"`
}

// MonitoringManager refreshes a MonitoringStats snapshot on a ticker.
type MonitoringManager struct {
	log       *slog.Logger
	presence  PresenceCounter
	interval  time.Duration
	startedAt time.Time

	mu          sync.RWMutex
	latestStats MonitoringStats
}

func NewMonitoringManager(log *slog.Logger, presence PresenceCounter, interval time.Duration) *MonitoringManager {
	now := time.Now()
	return &MonitoringManager{
		log:         log,
		presence:    presence,
		interval:    interval,
		startedAt:   now,
		latestStats: MonitoringStats{Status: "starting", StartedAt: now},
	}
}

// Run refreshes the snapshot until ctx is done. It satisfies contract.Worker.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	mm.updateStats(p)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			mm.updateStats(p)
		}
	}
}

func (mm *MonitoringManager) updateStats(p *process.Process) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := MonitoringStats{
		Status:      "ok",
		StartedAt:   mm.startedAt,
		Uptime:      time.Since(mm.startedAt).Round(time.Second).String(),
		Online:      mm.presence.Online(),
		Connections: mm.presence.Connections(),
		Goroutines:  runtime.NumGoroutine(),
		AllocMemMb:  m.Alloc / 1024 / 1024,
		NumGC:       m.NumGC,
	}
	if memInfo, err := p.MemoryInfo(); err == nil {
		stats.RSSBytes = memInfo.RSS
	} else {
		mm.log.Debug("Failed to collect memory info", "error", err)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}

	mm.mu.Lock()
	mm.latestStats = stats
	mm.mu.Unlock()

	mm.log.Debug("Stats updated", "online", stats.Online, "connections", stats.Connections, "mem_mb", stats.AllocMemMb)
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
