package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
)

func TestBuildDemoScene(t *testing.T) {
	specs := []struct {
		objects     int
		transparent float64
		wantGlass   bool
	}{
		{10, 0, false},
		{50, 1, true},
		{2000, 0.5, true},
	}
	for i, spec := range specs {
		sc, err := buildDemoScene(demoOptions{
			objects:     spec.objects,
			meshes:      3,
			templates:   []string{"A", "B"},
			transparent: spec.transparent,
			seed:        int64(i),
			aspect:      1,
		})
		if err != nil {
			t.Errorf("[spec %d] %v", i, err)
			continue
		}
		if sc.Count() != spec.objects {
			t.Errorf("[spec %d] %d objects, want %d", i, sc.Count(), spec.objects)
		}
		if sc.Camera() == nil {
			t.Errorf("[spec %d] no camera", i)
		}

		glass := false
		for _, obj := range sc.Roots() {
			glass = glass || isGlass(obj)
		}
		if glass != spec.wantGlass {
			t.Errorf("[spec %d] transparent objects present = %t, want %t", i, glass, spec.wantGlass)
		}
		sc.Close()
	}

	if _, err := buildDemoScene(demoOptions{objects: 1, meshes: 1}); err == nil {
		t.Errorf("a scene without shader templates was built")
	}
}

func isGlass(obj game_object.GameObject) bool {
	rd := obj.RenderData()
	if rd == nil {
		return false
	}
	for _, p := range rd.Passes() {
		if p.Material().Transparent() {
			return true
		}
	}
	return false
}

func TestEvaluateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normal.mx")
	if err := os.WriteFile(path, []byte("model; left_mvp"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := evaluateFile(&buf, path, mgl32.Translate3D(1, 2, 3)); err != nil {
		t.Fatalf("evaluateFile: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"output0", "output1", "3.0000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "output2") {
		t.Errorf("printed an unwritten output:\n%s", out)
	}

	if err := os.WriteFile(path, []byte("model *"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := evaluateFile(&buf, path, mgl32.Ident4()); err == nil {
		t.Errorf("a malformed program evaluated")
	}
}

func TestStatsTableFooter(t *testing.T) {
	specs := []struct {
		frames     []sorter.Stats
		wantFooter bool
	}{
		{[]sorter.Stats{{DrawCalls: 3}}, false},
		{[]sorter.Stats{{DrawCalls: 3}, {DrawCalls: 4}}, true},
	}
	for i, spec := range specs {
		var buf bytes.Buffer
		writeStatsTable(&buf, spec.frames)
		out := buf.String()
		if !strings.Contains(out, "draws") {
			t.Errorf("[spec %d] header missing:\n%s", i, out)
		}
		if strings.Contains(out, "TOTAL") != spec.wantFooter {
			t.Errorf("[spec %d] footer present = %t, want %t:\n%s", i, !spec.wantFooter, spec.wantFooter, out)
		}
	}
}
