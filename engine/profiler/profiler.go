package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
)

// Report is one interval of profiling data.
type Report struct {
	Frames   int
	Elapsed  time.Duration
	FPS      float64
	HeapMB   float64
	SysMB    float64
	AllocMBs float64
	GCCount  uint32
	// MaxPauseUs is the longest GC pause of the interval in microseconds.
	MaxPauseUs uint64

	// Stats sums the render statistics of the interval; PerFrame averages them.
	Stats    sorter.Stats
	PerFrame sorter.Stats
}

// Profiler tracks frame rate, render statistics and memory at a fixed interval.
type Profiler struct {
	logger         log.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	stats          sorter.Stats
	last           Report
	now            func() time.Time
}

// NewProfiler creates a Profiler reporting every interval. Intervals <= 0 default
// to one second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		logger:         log.New("profiler"),
		lastTime:       time.Now(),
		updateInterval: interval,
		now:            time.Now,
	}
}

// Tick should be called once per frame with the frame's render statistics. When
// the interval has elapsed the accumulated report is logged at Info level.
//
// Parameters:
//   - frame: the statistics of the frame just rendered
//
// Returns:
//   - bool: true if a report was produced this tick
func (p *Profiler) Tick(frame sorter.Stats) bool {
	p.frameCount++
	p.stats.Add(frame)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		Frames:   p.frameCount,
		Elapsed:  elapsed,
		FPS:      float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:   float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:    float64(p.memStats.Sys) / 1024 / 1024,
		AllocMBs: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:  p.memStats.NumGC,
		Stats:    p.stats,
		PerFrame: divide(p.stats, p.frameCount),
	}

	// PauseNs is a circular buffer of the last 256 pauses
	gcCount := p.memStats.NumGC
	start := p.lastGCCount
	if gcCount-start > 256 {
		start = gcCount - 256
	}
	for i := start; i < gcCount; i++ {
		r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.logger.Infof("FPS: %.2f | draws/frame: %d | tris/frame: %d | states/frame: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max: %d µs)",
		r.FPS, r.PerFrame.DrawCalls, r.PerFrame.Triangles, r.PerFrame.StateChanges,
		r.HeapMB, r.AllocMBs, r.GCCount, r.MaxPauseUs)

	p.last = r
	p.frameCount = 0
	p.stats = sorter.Stats{}
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent report.
//
// Returns:
//   - Report: the report, zero before the first interval elapsed
func (p *Profiler) Last() Report {
	return p.last
}

func divide(s sorter.Stats, n int) sorter.Stats {
	if n <= 0 {
		return s
	}
	return sorter.Stats{
		Items:            s.Items / n,
		Culled:           s.Culled / n,
		OcclusionSkipped: s.OcclusionSkipped / n,
		ShaderBinds:      s.ShaderBinds / n,
		MaterialBinds:    s.MaterialBinds / n,
		MeshBinds:        s.MeshBinds / n,
		StateChanges:     s.StateChanges / n,
		DrawCalls:        s.DrawCalls / n,
		Triangles:        s.Triangles / n,
		TransformBlocks:  s.TransformBlocks / n,
	}
}
