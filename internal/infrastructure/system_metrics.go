package infrastructure

import (
	"runtime"
	"time"
)

// SystemStats is a snapshot of the Go runtime
type SystemStats struct {
	GoRoutines    int           `json:"goroutines"`
	MemoryUsage   uint64        `json:"memory_usage_bytes"`
	MemorySystem  uint64        `json:"memory_system_bytes"`
	GCCount       uint32        `json:"gc_count"`
	LastGCPause   time.Duration `json:"last_gc_pause_ns"`
	CPUCount      int           `json:"cpu_count"`
	ProcessUptime time.Duration `json:"uptime_ns"`
	Timestamp     time.Time     `json:"timestamp"`
}

// CollectSystemStats reads the current runtime statistics
func CollectSystemStats(startTime time.Time) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemStats{
		GoRoutines:    runtime.NumGoroutine(),
		MemoryUsage:   memStats.Alloc,
		MemorySystem:  memStats.Sys,
		GCCount:       memStats.NumGC,
		LastGCPause:   time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
		CPUCount:      runtime.NumCPU(),
		ProcessUptime: time.Since(startTime),
		Timestamp:     time.Now(),
	}
}

// FormatStats renders the snapshot for health responses
func (stats *SystemStats) FormatStats() map[string]interface{} {
	return map[string]interface{}{
		"goroutines":      stats.GoRoutines,
		"memory_usage_mb": float64(stats.MemoryUsage) / 1024 / 1024,
		"memory_sys_mb":   float64(stats.MemorySystem) / 1024 / 1024,
		"gc_count":        stats.GCCount,
		"last_gc_pause":   stats.LastGCPause.String(),
		"cpu_count":       stats.CPUCount,
		"uptime":          stats.ProcessUptime.Round(time.Second).String(),
	}
}
