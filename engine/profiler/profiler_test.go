package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
)

func TestTickReportsPerInterval(t *testing.T) {
	p := NewProfiler(time.Second)
	start := time.Unix(1000, 0)
	p.lastTime = start

	frame := sorter.Stats{DrawCalls: 10, Triangles: 300, StateChanges: 4}
	specs := []struct {
		at     time.Duration
		report bool
	}{
		{100 * time.Millisecond, false},
		{500 * time.Millisecond, false},
		{1000 * time.Millisecond, true},
		{1100 * time.Millisecond, false},
	}
	for i, spec := range specs {
		p.now = func() time.Time { return start.Add(spec.at) }
		if got := p.Tick(frame); got != spec.report {
			t.Errorf("[spec %d] Tick at %v reported %t, want %t", i, spec.at, got, spec.report)
		}
	}

	r := p.Last()
	if r.Frames != 3 || r.Stats.DrawCalls != 30 || r.PerFrame.Triangles != 300 {
		t.Errorf("report = %d frames, %d draws, %d tris/frame; want 3/30/300", r.Frames, r.Stats.DrawCalls, r.PerFrame.Triangles)
	}
	if r.FPS != 3 {
		t.Errorf("FPS = %v, want 3", r.FPS)
	}
}
