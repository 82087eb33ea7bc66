package scene

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
	trylock "github.com/subchen/go-trylock/v2"

	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/log"
)

// ErrCollidersBusy is returned by LockColliders when the lock could not be taken
// before the context ended.
var ErrCollidersBusy = errors.New("scene: collider lock busy")

// Scene is the root of the object hierarchy plus the scene-wide state the renderer
// consumes: the main camera, the light manager and the pick list of visible
// colliders.
//
// Objects are authored from any goroutine. The renderer reads the hierarchy on the
// render thread; the collider list is the only state both sides write and is guarded
// by the collider lock.
type Scene interface {
	// Name returns the scene name.
	Name() string

	// Camera returns the main camera.
	Camera() camera.Camera

	// SetCamera replaces the main camera.
	SetCamera(cam camera.Camera)

	// Add attaches a root object.
	//
	// Parameters:
	//   - obj: the object
	Add(obj game_object.GameObject)

	// Remove detaches a root object.
	//
	// Parameters:
	//   - obj: the object
	//
	// Returns:
	//   - bool: true if obj was a root of this scene
	Remove(obj game_object.GameObject) bool

	// Roots returns the root objects in insertion order.
	//
	// Returns:
	//   - []game_object.GameObject: a copy of the root list
	Roots() []game_object.GameObject

	// Count returns the number of objects in the hierarchy, enabled or not.
	//
	// Returns:
	//   - int: the object count
	Count() int

	// Lights returns the light manager.
	//
	// Returns:
	//   - light.Manager: the light manager
	Lights() light.Manager

	// AddLight registers a light with the light manager.
	AddLight(l light.Light)

	// Prepare computes world matrices and bounds for the whole hierarchy. Root
	// subtrees are independent, so they are processed on the worker pool.
	Prepare()

	// LockColliders takes the collider lock, giving up when ctx ends.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: ErrCollidersBusy if the lock was not acquired
	LockColliders(ctx context.Context) error

	// UnlockColliders releases the collider lock.
	UnlockColliders()

	// Pick records a visible pickable object once per clear. The caller holds the
	// collider lock.
	//
	// Parameters:
	//   - obj: the visible object
	Pick(obj game_object.GameObject)

	// VisibleColliders returns the objects picked since the last clear.
	//
	// Returns:
	//   - []game_object.GameObject: a copy of the pick list
	VisibleColliders() []game_object.GameObject

	// ClearVisibleColliders empties the pick list. The caller holds the collider lock.
	ClearVisibleColliders()

	// Close stops the worker pool.
	Close()
}

type scene struct {
	mu *sync.RWMutex

	name  string
	cam   camera.Camera
	roots []game_object.GameObject
	lm    light.Manager

	colliderLock     trylock.TryLocker
	visibleColliders []game_object.GameObject
	picked           map[uint64]struct{}

	prepPool    worker.DynamicWorkerPool
	prepWorkers int
	logger      log.Logger
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the scene name
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:           &sync.RWMutex{},
		name:         name,
		lm:           light.NewManager(),
		colliderLock: trylock.New(),
		picked:       make(map[uint64]struct{}),
		prepWorkers:  max(runtime.NumCPU()-1, 1),
		logger:       log.New("scene"),
	}
	for _, option := range options {
		option(s)
	}
	// the pool is created after options so WithPrepWorkers can override the default
	s.prepPool = worker.NewDynamicWorkerPool(s.prepWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Add(obj game_object.GameObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = append(s.roots, obj)
	if l := obj.Light(); l != nil {
		s.lm.AddLight(l)
	}
}

func (s *scene) Remove(obj game_object.GameObject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.roots {
		if r == obj {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			if l := obj.Light(); l != nil {
				s.lm.RemoveLight(l)
			}
			return true
		}
	}
	return false
}

func (s *scene) Roots() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]game_object.GameObject, len(s.roots))
	copy(out, s.roots)
	return out
}

func (s *scene) Count() int {
	n := 0
	var walk func(o game_object.GameObject)
	walk = func(o game_object.GameObject) {
		n++
		for _, c := range o.Children() {
			walk(c)
		}
	}
	for _, r := range s.Roots() {
		walk(r)
	}
	return n
}

func (s *scene) Lights() light.Manager {
	return s.lm
}

func (s *scene) AddLight(l light.Light) {
	s.lm.AddLight(l)
}

func (s *scene) Prepare() {
	roots := s.Roots()
	if cam := s.Camera(); cam != nil {
		cam.Update()
	}

	// A WaitGroup gives a per-frame barrier; pool.Wait blocks until workers idle out.
	var wg sync.WaitGroup
	for i, r := range roots {
		if !r.Enabled() {
			continue
		}
		wg.Add(1)
		root := r
		s.prepPool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				root.UpdateWorld(mgl32.Ident4())
				return nil, nil
			},
		})
	}
	wg.Wait()
	s.logger.Debugf("prepared %d root subtrees", len(roots))
}

func (s *scene) LockColliders(ctx context.Context) error {
	if !s.colliderLock.TryLock(ctx) {
		return ErrCollidersBusy
	}
	return nil
}

func (s *scene) UnlockColliders() {
	s.colliderLock.Unlock()
}

func (s *scene) Pick(obj game_object.GameObject) {
	if _, ok := s.picked[obj.ID()]; ok {
		return
	}
	s.picked[obj.ID()] = struct{}{}
	s.visibleColliders = append(s.visibleColliders, obj)
}

func (s *scene) VisibleColliders() []game_object.GameObject {
	out := make([]game_object.GameObject, len(s.visibleColliders))
	copy(out, s.visibleColliders)
	return out
}

func (s *scene) ClearVisibleColliders() {
	clear(s.visibleColliders)
	s.visibleColliders = s.visibleColliders[:0]
	clear(s.picked)
}

func (s *scene) Close() {
	s.prepPool.Stop()
}
