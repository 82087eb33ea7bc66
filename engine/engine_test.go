package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-sg/engine/scene"
)

// fakeRenderer records the scenes it was asked to render. Methods the engine never
// calls are left to the nil embedded interface.
type fakeRenderer struct {
	renderer.Renderer

	rendered []string
	targets  []*renderer.RenderTarget
	fail     map[string]error
	created  int
}

func (f *fakeRenderer) NewRenderTarget(rt texture.RenderTexture) *renderer.RenderTarget {
	f.created++
	return &renderer.RenderTarget{Texture: rt}
}

func (f *fakeRenderer) RenderTarget(ctx context.Context, sc scene.Scene, t *renderer.RenderTarget) (sorter.Stats, error) {
	f.rendered = append(f.rendered, sc.Name())
	f.targets = append(f.targets, t)
	return sorter.Stats{DrawCalls: 2, Triangles: 12}, f.fail[sc.Name()]
}

func (f *fakeRenderer) Resize(width, height int) {}

func newTestScenes(t *testing.T, names ...string) []scene.Scene {
	out := make([]scene.Scene, len(names))
	for i, n := range names {
		out[i] = scene.NewScene(n, scene.WithPrepWorkers(1))
		t.Cleanup(out[i].Close)
	}
	return out
}

func TestRenderFrameOrdersScenes(t *testing.T) {
	r := &fakeRenderer{fail: map[string]error{}}
	s := newTestScenes(t, "overlay", "world", "sky")
	e := NewEngine(WithRenderer(r), WithScene(10, s[0]), WithScene(0, s[1]))
	e.AddScene(-5, s[2])

	stats, err := e.RenderFrame(context.Background())
	if err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	want := []string{"sky", "world", "overlay"}
	for i, name := range want {
		if i >= len(r.rendered) || r.rendered[i] != name {
			t.Fatalf("render order = %v, want %v", r.rendered, want)
		}
	}
	if stats.DrawCalls != 6 || stats.Triangles != 36 {
		t.Errorf("stats = %+v, want 6 draws and 36 triangles", stats)
	}

	if _, err := e.RenderFrame(context.Background()); err != nil {
		t.Fatalf("second RenderFrame: %v", err)
	}
	if r.created != 3 {
		t.Errorf("created %d targets over two frames, want 3", r.created)
	}
	if r.targets[0] != r.targets[3] {
		t.Errorf("a scene's target changed between frames")
	}
	if e.Frames() != 2 {
		t.Errorf("Frames = %d, want 2", e.Frames())
	}

	e.RemoveScene(0)
	r.rendered = nil
	if _, err := e.RenderFrame(context.Background()); err != nil {
		t.Fatalf("RenderFrame after removal: %v", err)
	}
	if len(r.rendered) != 2 {
		t.Errorf("rendered %v after removing a scene", r.rendered)
	}
}

func TestRenderFrameKeepsRenderingAfterError(t *testing.T) {
	errFence := errors.New("fence")
	r := &fakeRenderer{fail: map[string]error{"a": errFence}}
	s := newTestScenes(t, "a", "b")
	e := NewEngine(WithRenderer(r), WithScene(0, s[0]), WithScene(1, s[1]))

	_, err := e.RenderFrame(context.Background())
	if !errors.Is(err, errFence) {
		t.Errorf("err = %v, want the wrapped fence error", err)
	}
	if len(r.rendered) != 2 {
		t.Errorf("rendered %v, want both scenes", r.rendered)
	}
}

func TestRunStops(t *testing.T) {
	r := &fakeRenderer{fail: map[string]error{}}
	s := newTestScenes(t, "only")
	e := NewEngine(WithRenderer(r), WithScene(0, s[0]))

	var callbacks int
	e.SetRenderCallback(func(dt float32, stats sorter.Stats) {
		callbacks++
		if stats.DrawCalls != 2 {
			t.Errorf("callback stats = %+v", stats)
		}
	})
	if err := e.Run(context.Background(), 5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Frames() != 5 || callbacks != 5 {
		t.Errorf("rendered %d frames with %d callbacks, want 5/5", e.Frames(), callbacks)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e2 := NewEngine(WithRenderer(r), WithScene(0, s[0]))
	if err := e2.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Run with a cancelled context = %v, want context.Canceled", err)
	}

	if err := NewEngine().Run(context.Background(), 1); !errors.Is(err, ErrNoRenderer) {
		t.Errorf("Run without renderer = %v, want ErrNoRenderer", err)
	}
}
