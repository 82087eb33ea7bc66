package game_object

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

func TestUpdateWorldPropagatesTransforms(t *testing.T) {
	cube := model.NewCube(2)
	parent := NewGameObject(WithName("parent"), WithPosition(10, 0, 0), WithRenderData(render_data.NewRenderData(cube)))
	lamp := light.NewLight(light.LightTypePoint)
	child := NewGameObject(WithName("child"), WithPosition(0, 5, 0), WithScale(2, 2, 2),
		WithRenderData(render_data.NewRenderData(cube)), WithLight(lamp))
	parent.AddChild(child)

	parent.UpdateWorld(mgl32.Ident4())

	if p := child.WorldMatrix().Col(3); p.X() != 10 || p.Y() != 5 {
		t.Fatalf("expected the child at (10, 5, 0); got %v", p)
	}
	if b := child.WorldBounds(); b.Min.X() != 8 || b.Max.X() != 12 || b.Min.Y() != 3 || b.Max.Y() != 7 {
		t.Fatalf("unexpected child bounds %v", b)
	}
	tree := parent.TreeBounds()
	if tree.Min.Y() != -1 || tree.Max.Y() != 7 {
		t.Fatalf("expected the tree bounds to enclose both cubes; got %v", tree)
	}
	if lp := lamp.Position(); lp.X() != 10 || lp.Y() != 5 {
		t.Fatalf("expected the attached light to follow the child; got %v", lp)
	}
	if child.RenderData().Owner().Name() != "child" {
		t.Fatal("expected the object to own its render data")
	}
}

func TestReparenting(t *testing.T) {
	a, b, c := NewGameObject(), NewGameObject(), NewGameObject()
	a.AddChild(c)
	b.AddChild(c)
	if len(a.Children()) != 0 || len(b.Children()) != 1 || c.Parent() != b {
		t.Fatal("expected AddChild to move the child between parents")
	}
	if !b.RemoveChild(c) || c.Parent() != nil || b.RemoveChild(c) {
		t.Fatal("expected the child to be removed exactly once")
	}
}

func TestOcclusionState(t *testing.T) {
	o := NewGameObject()
	if !o.OcclusionVisible() {
		t.Fatal("expected objects to start visible")
	}
	o.SetOcclusionQuery(7)
	if h, pending := o.OcclusionQuery(); h != 7 || !pending {
		t.Fatalf("expected query 7 in flight; got %d %t", h, pending)
	}
	o.ResolveOcclusionQuery(false)
	if _, pending := o.OcclusionQuery(); pending || o.OcclusionVisible() {
		t.Fatal("expected a resolved hidden query")
	}
}
