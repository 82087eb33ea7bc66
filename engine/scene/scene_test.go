package scene

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

func TestPrepareComputesEveryRoot(t *testing.T) {
	s := NewScene("prep", WithPrepWorkers(3))
	defer s.Close()

	cube := model.NewCube(1)
	var roots []game_object.GameObject
	for i := 0; i < 20; i++ {
		r := game_object.NewGameObject(game_object.WithPosition(float32(i), 0, 0),
			game_object.WithRenderData(render_data.NewRenderData(cube)))
		r.AddChild(game_object.NewGameObject(game_object.WithPosition(0, 1, 0)))
		roots = append(roots, r)
		s.Add(r)
	}
	s.Prepare()

	for index, r := range roots {
		if x := r.WorldMatrix().Col(3).X(); x != float32(index) {
			t.Errorf("[spec %d] expected world x %d; got %f", index, index, x)
		}
		if y := r.Children()[0].WorldMatrix().Col(3).Y(); y != 1 {
			t.Errorf("[spec %d] expected child world y 1; got %f", index, y)
		}
	}
	if s.Count() != 40 {
		t.Fatalf("expected 40 objects; got %d", s.Count())
	}
}

func TestColliderLock(t *testing.T) {
	s := NewScene("colliders", WithPrepWorkers(1))
	defer s.Close()

	if err := s.LockColliders(context.Background()); err != nil {
		t.Fatal(err)
	}
	obj := game_object.NewGameObject(game_object.WithCollider(true))
	s.Pick(obj)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.LockColliders(ctx); !errors.Is(err, ErrCollidersBusy) {
		t.Fatalf("expected ErrCollidersBusy while held; got %v", err)
	}
	if got := s.VisibleColliders(); len(got) != 1 || got[0] != obj {
		t.Fatalf("expected the picked object; got %d colliders", len(got))
	}
	s.ClearVisibleColliders()
	s.UnlockColliders()

	if len(s.VisibleColliders()) != 0 {
		t.Fatal("expected the pick list to be cleared")
	}
}

func TestAttachedLightsRegister(t *testing.T) {
	l := light.NewLight(light.LightTypeSpot)
	obj := game_object.NewGameObject(game_object.WithLight(l))
	s := NewScene("lights", WithPrepWorkers(1), WithObjects(obj))
	defer s.Close()

	if len(s.Lights().Lights()) != 1 {
		t.Fatal("expected the attached light to be registered")
	}
	s.Remove(obj)
	if len(s.Lights().Lights()) != 0 {
		t.Fatal("expected removing the object to unregister its light")
	}
}
