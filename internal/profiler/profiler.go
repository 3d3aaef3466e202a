// Package profiler tracks frame rate and memory statistics for performance
// monitoring, the way the teacher's engine/profiler package did for its own
// render loop, adapted here to sit behind internal/orchestrator's
// EnableProfiler/DisableProfiler toggle and to fold in the GPU-side
// occluder/cull timings and surviving-instance count internal/orchestrator
// derives from FrameTimings/FrameStats, instead of logging the teacher's
// generic FPS/memory line in isolation.
package profiler

import (
	"log"
	"runtime"
	"time"
)

// GPUStats is the per-frame GPU-side sample Tick folds into its log line.
// Valid is false when the caller had no timestamp/instance readback to
// report, in which case Tick logs the host-side line alone.
type GPUStats struct {
	OccluderTicks      uint64
	CullTicks          uint64
	SurvivingInstances uint32
	Valid              bool
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// New creates a new Profiler with default settings.
// Update interval defaults to 1 second.
func New() *Profiler {
	return &Profiler{
		frameCount:     0,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
}

// Tick should be called once per frame to track frame timing, passing the
// frame's GPU sample (or a zero GPUStats when none is available). Logs
// performance statistics when the update interval has elapsed. Statistics
// always include FPS, heap usage, allocation rate, and GC count/pause times;
// when gpu.Valid, the same line also reports occluder/cull GPU duration and
// the instance count that survived culling.
func (p *Profiler) Tick(gpu GPUStats) bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed >= p.updateInterval {
		fps := float64(p.frameCount) / elapsed.Seconds()

		runtime.ReadMemStats(&p.memStats)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024

		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				pause := p.memStats.PauseNs[i%256] / 1000
				if pause > maxPauseUs {
					maxPauseUs = pause
				}
			}
		}

		if gpu.Valid {
			log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB | occluder: %d ticks | cull: %d ticks | surviving instances: %d",
				fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB,
				gpu.OccluderTicks, gpu.CullTicks, gpu.SurvivingInstances)
		} else {
			log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
				fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)
		}

		p.frameCount = 0
		p.lastTime = currentTime
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
		return true
	}

	return false
}
