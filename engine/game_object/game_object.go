package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

type gameObject struct {
	mu *sync.RWMutex

	id            uint64
	name          string
	enabled       atomic.Bool
	collider      bool
	renderData    render_data.RenderData
	attachedLight light.Light

	parent   GameObject
	children []GameObject

	position mgl32.Vec3
	rotation mgl32.Vec3
	scale    mgl32.Vec3

	world       mgl32.Mat4
	worldBounds common.AABB // own mesh bounds only
	treeBounds  common.AABB // own bounds joined with every enabled descendant

	// occlusion query state, touched only by the render thread
	query        uint32
	queryPending bool
	visible      bool
}

// GameObject is a node of the scene hierarchy. It carries a local transform, an
// optional render data, an optional attached light and the per-object culling state
// the renderer keeps between frames.
//
// World matrices and bounds are computed by Scene.Prepare, not on every setter.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Name returns the object name. It makes GameObject a render_data.Owner.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Enabled returns whether this object and its subtree are rendered.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled enables or disables the object.
	SetEnabled(enabled bool)

	// HasCollider reports whether visible instances of this object are pickable.
	HasCollider() bool

	// SetCollider toggles pickability.
	SetCollider(enabled bool)

	// RenderData returns the drawable attached to this object, or nil.
	//
	// Returns:
	//   - render_data.RenderData: the render data or nil
	RenderData() render_data.RenderData

	// SetRenderData attaches a drawable and makes this object its owner.
	//
	// Parameters:
	//   - rd: the render data
	SetRenderData(rd render_data.RenderData)

	// Light returns the attached light, or nil.
	Light() light.Light

	// SetLight attaches a light that follows this object's world position.
	SetLight(l light.Light)

	// Parent returns the parent object, or nil for roots.
	Parent() GameObject

	// Children returns the child objects.
	//
	// Returns:
	//   - []GameObject: a copy of the child list
	Children() []GameObject

	// AddChild re-parents child under this object.
	//
	// Parameters:
	//   - child: the child object
	AddChild(child GameObject)

	// RemoveChild detaches a child.
	//
	// Parameters:
	//   - child: the child object
	//
	// Returns:
	//   - bool: true if child was attached
	RemoveChild(child GameObject) bool

	// Position returns the local translation.
	Position() mgl32.Vec3

	// Rotation returns the local euler rotation in radians.
	Rotation() mgl32.Vec3

	// Scale returns the local scale.
	Scale() mgl32.Vec3

	// SetPosition sets the local translation.
	SetPosition(x, y, z float32)

	// SetRotation sets the local euler rotation in radians.
	SetRotation(rx, ry, rz float32)

	// SetScale sets the local scale.
	SetScale(sx, sy, sz float32)

	// LocalMatrix returns the TRS matrix of the local transform.
	//
	// Returns:
	//   - mgl32.Mat4: the local matrix
	LocalMatrix() mgl32.Mat4

	// UpdateWorld recomputes the world matrix and bounds of this subtree.
	//
	// Parameters:
	//   - parentWorld: the parent's world matrix, identity for roots
	UpdateWorld(parentWorld mgl32.Mat4)

	// WorldMatrix returns the world matrix computed by the last UpdateWorld.
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix
	WorldMatrix() mgl32.Mat4

	// WorldBounds returns the world-space bounds of this object's own mesh.
	//
	// Returns:
	//   - common.AABB: the bounds, invalid without a mesh
	WorldBounds() common.AABB

	// TreeBounds returns the world-space bounds of the object and its enabled
	// descendants.
	//
	// Returns:
	//   - common.AABB: the bounds, invalid for an empty subtree
	TreeBounds() common.AABB

	// OcclusionQuery returns the in-flight occlusion query handle.
	//
	// Returns:
	//   - uint32: the query handle
	//   - bool: true if a query is in flight
	OcclusionQuery() (uint32, bool)

	// SetOcclusionQuery records an issued query.
	SetOcclusionQuery(handle uint32)

	// ResolveOcclusionQuery stores the query result and clears the in-flight handle.
	//
	// Parameters:
	//   - visible: true if any sample passed
	ResolveOcclusionQuery(visible bool)

	// OcclusionVisible returns the result of the last resolved occlusion query.
	// Objects are visible until a query says otherwise.
	OcclusionVisible() bool
}

var _ GameObject = &gameObject{}
var _ render_data.Owner = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:          &sync.RWMutex{},
		id:          common.NextID(),
		scale:       mgl32.Vec3{1, 1, 1},
		world:       mgl32.Ident4(),
		worldBounds: common.EmptyAABB(),
		treeBounds:  common.EmptyAABB(),
		visible:     true,
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	if obj.renderData != nil {
		obj.renderData.SetOwner(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) HasCollider() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collider
}

func (g *gameObject) SetCollider(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.collider = enabled
}

func (g *gameObject) RenderData() render_data.RenderData {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.renderData
}

func (g *gameObject) SetRenderData(rd render_data.RenderData) {
	g.mu.Lock()
	g.renderData = rd
	g.mu.Unlock()
	if rd != nil {
		rd.SetOwner(g)
	}
}

func (g *gameObject) Light() light.Light {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.attachedLight
}

func (g *gameObject) SetLight(l light.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachedLight = l
}

func (g *gameObject) Parent() GameObject {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.parent
}

func (g *gameObject) Children() []GameObject {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]GameObject, len(g.children))
	copy(out, g.children)
	return out
}

func (g *gameObject) AddChild(child GameObject) {
	if p := child.Parent(); p != nil {
		p.RemoveChild(child)
	}
	g.mu.Lock()
	g.children = append(g.children, child)
	g.mu.Unlock()
	if c, ok := child.(*gameObject); ok {
		c.mu.Lock()
		c.parent = g
		c.mu.Unlock()
	}
}

func (g *gameObject) RemoveChild(child GameObject) bool {
	g.mu.Lock()
	found := false
	for i, c := range g.children {
		if c == child {
			g.children = append(g.children[:i], g.children[i+1:]...)
			found = true
			break
		}
	}
	g.mu.Unlock()
	if c, ok := child.(*gameObject); ok && found {
		c.mu.Lock()
		c.parent = nil
		c.mu.Unlock()
	}
	return found
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.position
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotation
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scale
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = mgl32.Vec3{x, y, z}
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = mgl32.Vec3{rx, ry, rz}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = mgl32.Vec3{sx, sy, sz}
}

func (g *gameObject) LocalMatrix() mgl32.Mat4 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return common.BuildModelMatrix(g.position, g.rotation, g.scale)
}

func (g *gameObject) UpdateWorld(parentWorld mgl32.Mat4) {
	world := parentWorld.Mul4(g.LocalMatrix())

	bounds := common.EmptyAABB()
	if rd := g.RenderData(); rd != nil && rd.Mesh() != nil {
		bounds = rd.Mesh().BoundingBox().Transform(world)
	}
	tree := bounds
	for _, c := range g.Children() {
		if !c.Enabled() {
			continue
		}
		c.UpdateWorld(world)
		tree = tree.Union(c.TreeBounds())
	}

	g.mu.Lock()
	g.world = world
	g.worldBounds = bounds
	g.treeBounds = tree
	l := g.attachedLight
	g.mu.Unlock()

	if l != nil {
		p := world.Col(3)
		l.SetPosition(p.X(), p.Y(), p.Z())
	}
}

func (g *gameObject) WorldMatrix() mgl32.Mat4 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.world
}

func (g *gameObject) WorldBounds() common.AABB {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.worldBounds
}

func (g *gameObject) TreeBounds() common.AABB {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.treeBounds
}

func (g *gameObject) OcclusionQuery() (uint32, bool) {
	return g.query, g.queryPending
}

func (g *gameObject) SetOcclusionQuery(handle uint32) {
	g.query = handle
	g.queryPending = true
}

func (g *gameObject) ResolveOcclusionQuery(visible bool) {
	g.query = 0
	g.queryPending = false
	g.visible = visible
}

func (g *gameObject) OcclusionVisible() bool {
	return g.visible
}
