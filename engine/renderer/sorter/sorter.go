package sorter

import (
	"context"
	"errors"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/matrix_calc"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/uniform_block"
)

// DefaultMaxMatricesPerBlock is the transform block capacity used unless configured.
const DefaultMaxMatricesPerBlock = 60

// policy is the part of a sorter that differs between the main and shadow
// configurations.
type policy interface {
	modes(p render_data.RenderPass) render_data.RenderModes
	isValid(s *sorter, rs *RenderState, r *Renderable) bool
	validate(s *sorter, r *Renderable)
	selectShader(s *sorter, r *Renderable) shader.Shader
	picks() bool
}

// sorter is the implementation of the Sorter interface.
type sorter struct {
	dev     Device
	shaders shader.Manager
	policy  policy
	logger  log.Logger

	keys      []SortKey
	compares  []compareFunc
	multiview bool

	maxMatrices    int
	arenaBlockSize int
	arena          *Arena
	pool           uniform_block.TransformBlockPool
	occlusion      OcclusionCuller

	root       Renderable
	pending    []*Renderable
	seq        int
	count      int
	descriptor string
	stats      Stats

	inputs  matrix_calc.Inputs
	outputs matrix_calc.Outputs
}

// Sorter turns the visible objects of one view into a merge tree of draws and issues
// them with the fewest state changes.
//
// A frame runs Cull (or Add), Validate, Sort and Render, then Clear. Renderables and
// the tree are only valid until Clear. A sorter belongs to one render target and is
// only used from the render thread.
type Sorter interface {
	// Cull walks the scene hierarchy against the view frustum and adds every visible
	// object. On stereo cameras the scene colliders are locked for the walk.
	//
	// Parameters:
	//   - ctx: bounds the wait for the collider lock
	//   - rs: the view
	//
	// Returns:
	//   - error: scene.ErrCollidersBusy if the lock could not be taken
	Cull(ctx context.Context, rs *RenderState) error

	// Add expands a visible object into one renderable per render pass.
	//
	// Parameters:
	//   - rs: the view, used for the camera distance
	//   - obj: the object
	Add(rs *RenderState, obj game_object.GameObject)

	// AddRenderData expands render data drawn with a model matrix at a distance.
	//
	// Parameters:
	//   - rd: the render data
	//   - modelMatrix: the world matrix
	//   - distance: the distance from the camera
	AddRenderData(rd render_data.RenderData, modelMatrix mgl32.Mat4, distance float32)

	// Validate updates the lights and marks passes whose shader variant is stale.
	// Transparent materials on geometry-order passes are promoted to the transparent
	// order.
	//
	// Parameters:
	//   - rs: the view
	Validate(rs *RenderState)

	// Sort selects a shader for every valid renderable and merges it into the tree.
	//
	// Parameters:
	//   - rs: the view
	Sort(rs *RenderState)

	// Render computes matrices and issues every renderable in tree order.
	//
	// Parameters:
	//   - rs: the view
	//
	// Returns:
	//   - error: transform block upload errors, which abort the frame
	Render(rs *RenderState) error

	// Frame runs Cull, Validate, Sort and Render, then Clear.
	//
	// Parameters:
	//   - ctx: bounds the wait for the collider lock
	//   - rs: the view
	//
	// Returns:
	//   - Stats: the frame statistics
	//   - error: any frame-level error
	Frame(ctx context.Context, rs *RenderState) (Stats, error)

	// Clear releases every renderable and resets the statistics. Arena blocks and
	// transform blocks are kept for the next frame.
	Clear()

	// Traverse visits every leaf in tree order until fn returns false.
	Traverse(fn func(r *Renderable) bool)

	// Dump writes the merge tree as an indented outline.
	Dump(w io.Writer) error

	// Stats returns the statistics of the current frame.
	Stats() Stats

	// Keys returns the sort key tuple.
	Keys() []SortKey

	// Count returns the number of renderables merged into the tree.
	Count() int

	// Arena returns the renderable arena.
	Arena() *Arena

	// Pool returns the transform block pool.
	Pool() uniform_block.TransformBlockPool
}

var _ Sorter = &sorter{}

// NewMainSorter creates the sorter of a camera render target.
//
// Parameters:
//   - dev: the device draws are issued to
//   - shaders: the shader registry
//   - opts: variadic list of SorterBuilderOption functions
//
// Returns:
//   - Sorter: the sorter
func NewMainSorter(dev Device, shaders shader.Manager, opts ...SorterBuilderOption) Sorter {
	return newSorter(dev, shaders, mainPolicy{}, DefaultSortKeys, opts)
}

func newSorter(dev Device, shaders shader.Manager, p policy, keys []SortKey, opts []SorterBuilderOption) *sorter {
	s := &sorter{
		dev:            dev,
		shaders:        shaders,
		policy:         p,
		logger:         log.New("sorter"),
		keys:           keys,
		maxMatrices:    DefaultMaxMatricesPerBlock,
		arenaBlockSize: DefaultArenaBlockSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.keys) > MaxSortKeys {
		s.logger.Warningf("%d sort keys exceed the maximum of %d, extra keys ignored", len(s.keys), MaxSortKeys)
		s.keys = s.keys[:MaxSortKeys]
	}
	s.compares = make([]compareFunc, len(s.keys))
	for i, k := range s.keys {
		s.compares[i] = compareFuncs[k]
	}
	s.arena = NewArena(s.arenaBlockSize)
	s.pool = uniform_block.NewTransformBlockPool(s.maxMatrices, dev.UpdateTransformBlock)
	s.root.listHead = true
	return s
}

func (s *sorter) Cull(ctx context.Context, rs *RenderState) error {
	if rs.Scene == nil {
		return nil
	}
	if s.policy.picks() {
		if err := rs.Scene.LockColliders(ctx); err != nil {
			return err
		}
		defer rs.Scene.UnlockColliders()
		// the right eye of a side-by-side stereo frame adds to the left eye's picks
		if !rs.RightEye {
			rs.Scene.ClearVisibleColliders()
		}
	}
	masks := make([]uint8, len(rs.frustums))
	for i := range masks {
		masks[i] = common.AllPlanes
	}
	for _, root := range rs.Scene.Roots() {
		s.cullObject(rs, root, masks)
	}
	return nil
}

// cullObject tests an object and its subtree against every eye frustum. Each eye
// carries its own plane mask; planes an ancestor is fully inside are not retested.
func (s *sorter) cullObject(rs *RenderState, obj game_object.GameObject, masks []uint8) {
	if !obj.Enabled() {
		return
	}
	childMasks := make([]uint8, len(masks))
	visible := len(masks) == 0
	for i := range rs.frustums {
		res, m := rs.frustums[i].CullAABB(obj.TreeBounds(), masks[i])
		if res != common.CullOutside {
			visible = true
		}
		childMasks[i] = m
	}
	if !visible {
		s.stats.Culled++
		return
	}

	if rd := obj.RenderData(); rd != nil && s.ownVisible(rs, obj, childMasks) {
		if s.occlusion != nil && !s.occlusion.Admit(rs, obj) {
			s.stats.OcclusionSkipped++
		} else {
			s.Add(rs, obj)
			if s.policy.picks() && obj.HasCollider() {
				rs.Scene.Pick(obj)
			}
		}
	}
	for _, child := range obj.Children() {
		s.cullObject(rs, child, childMasks)
	}
}

// ownVisible tests the object's own bounds; its subtree bounds already passed.
func (s *sorter) ownVisible(rs *RenderState, obj game_object.GameObject, masks []uint8) bool {
	bounds := obj.WorldBounds()
	if !bounds.Valid() {
		return false
	}
	if len(rs.frustums) == 0 {
		return true
	}
	for i := range rs.frustums {
		if res, _ := rs.frustums[i].CullAABB(bounds, masks[i]); res != common.CullOutside {
			return true
		}
	}
	s.stats.Culled++
	return false
}

func (s *sorter) Add(rs *RenderState, obj game_object.GameObject) {
	rd := obj.RenderData()
	if rd == nil {
		return
	}
	s.AddRenderData(rd, obj.WorldMatrix(), common.Distance(rs.Position, obj.WorldBounds().Center()))
}

func (s *sorter) AddRenderData(rd render_data.RenderData, modelMatrix mgl32.Mat4, distance float32) {
	mesh := rd.Mesh()
	for _, p := range rd.Passes() {
		r := s.arena.Alloc()
		r.RenderData = rd
		r.Pass = p
		r.Material = p.Material()
		r.Mesh = mesh
		r.Modes = s.policy.modes(p)
		r.Distance = distance
		r.Model = modelMatrix
		r.seq = s.seq
		s.seq++
		s.pending = append(s.pending, r)
	}
}

func (s *sorter) Validate(rs *RenderState) {
	s.descriptor = ""
	if rs.Lights != nil {
		rs.Lights.UpdateLights()
		s.descriptor = rs.Lights.Descriptor()
	}
	for _, r := range s.pending {
		r.valid = s.policy.isValid(s, rs, r)
		if r.valid {
			s.policy.validate(s, r)
		}
	}
}

// renderMaskAllows reports whether the data, the pass and the view share an eye.
func renderMaskAllows(rs *RenderState, r *Renderable) bool {
	return r.RenderData.RenderMask()&r.Modes.RenderMask()&rs.RenderMask != 0
}

func (s *sorter) Sort(rs *RenderState) {
	for _, r := range s.pending {
		if !r.valid {
			continue
		}
		sh := s.policy.selectShader(s, r)
		if sh == nil {
			r.valid = false
			continue
		}
		r.Shader = sh
		s.merge(r)
		s.count++
		s.stats.Items++
	}
}

// merge inserts r into the tree below the root.
func (s *sorter) merge(r *Renderable) {
	if s.hasKey(KeyRenderOrder) {
		applyRenderOrder(r)
	}
	s.mergeLevel(&s.root.nextLevel, r, 0)
}

func (s *sorter) hasKey(k SortKey) bool {
	for _, key := range s.keys {
		if key == k {
			return true
		}
	}
	return false
}

// skipLevel reports whether level is the distance key of an opaque bucket. Distance
// only partitions once render order has separated transparent items.
func (s *sorter) skipLevel(r *Renderable, level int) bool {
	if s.keys[level] != KeyDistance || r.Modes.IsTransparent() {
		return false
	}
	for _, k := range s.keys[:level] {
		if k == KeyRenderOrder {
			return true
		}
	}
	return false
}

// mergeLevel inserts r into the peer list at *link ordered by the key of level.
// Equal peers on a non-terminal level become buckets and r descends into them;
// equal peers on the terminal level keep insertion order.
func (s *sorter) mergeLevel(link **Renderable, r *Renderable, level int) {
	for level < len(s.keys) && s.skipLevel(r, level) {
		level++
	}
	if level == len(s.keys) {
		for *link != nil {
			link = &(*link).nextSibling
		}
		*link = r
		return
	}

	cmp := s.compares[level]
	terminal := level == len(s.keys)-1
	for ; *link != nil; link = &(*link).nextSibling {
		c := cmp(r, *link)
		if c < 0 {
			break
		}
		if c == 0 && !terminal {
			bucket := *link
			if !bucket.listHead {
				bucket = s.addListHead(link, level)
			}
			s.mergeLevel(&bucket.nextLevel, r, level+1)
			return
		}
	}
	r.nextSibling = *link
	*link = r
}

// addListHead replaces the leaf at *link with a synthetic bucket carrying the same
// keys, and moves the leaf to the head of the bucket's child list.
func (s *sorter) addListHead(link **Renderable, level int) *Renderable {
	leaf := *link
	bucket := s.arena.Alloc()
	*bucket = *leaf
	bucket.listHead = true
	bucket.level = level
	bucket.nextLevel = leaf
	bucket.nextSibling = leaf.nextSibling
	leaf.nextSibling = nil
	*link = bucket
	return bucket
}

func (s *sorter) Traverse(fn func(r *Renderable) bool) {
	traverse(s.root.nextLevel, fn)
}

func traverse(head *Renderable, fn func(r *Renderable) bool) bool {
	for n := head; n != nil; n = n.nextSibling {
		if n.listHead {
			if !traverse(n.nextLevel, fn) {
				return false
			}
			continue
		}
		if !fn(n) {
			return false
		}
	}
	return true
}

func (s *sorter) Render(rs *RenderState) error {
	s.pool.Reset(rs.RightEye, uint32(rs.RenderMask))
	rs.baseInputs(&s.inputs)

	var frameErr error
	s.Traverse(func(r *Renderable) bool {
		if err := s.prepareMatrices(rs, r); err != nil {
			frameErr = err
			return false
		}
		return true
	})
	if frameErr != nil {
		return frameErr
	}
	if err := s.pool.FlushCurrent(); err != nil {
		return err
	}
	s.stats.TransformBlocks = s.pool.InUse()

	s.issue(rs)
	return nil
}

// prepareMatrices computes the per-draw matrices of r and stores them in a transform
// block or, for loose-uniform shaders, on the renderable. Evaluation failures and
// programs larger than a block invalidate the shader and skip the draw; only upload
// errors are returned.
func (s *sorter) prepareMatrices(rs *RenderState, r *Renderable) error {
	sh := r.Shader
	if !sh.IsValid() {
		r.skip = true
		return nil
	}
	itemInputs(&s.inputs, r.Model)

	n := sh.OutputMatrixCount(s.multiview)
	if !sh.UsesMatrixUniforms() && n > s.pool.MaxMatrices() {
		s.logger.Warningf("shader %q: %d matrices exceed the block capacity %d", sh.Signature(), n, s.pool.MaxMatrices())
		sh.Invalidate()
		r.skip = true
		return nil
	}
	if mc := sh.MatrixCalc(); mc != nil {
		if err := mc.Calculate(&s.inputs, &s.outputs); err != nil {
			s.logger.Warningf("shader %q: %v", sh.Signature(), err)
			sh.Invalidate()
			r.skip = true
			return nil
		}
	} else if s.multiview {
		s.outputs[0] = s.inputs[matrix_calc.LeftMVP]
		s.outputs[1] = s.inputs[matrix_calc.RightMVP]
	} else if rs.RightEye {
		s.outputs[0] = s.inputs[matrix_calc.RightMVP]
	} else {
		s.outputs[0] = s.inputs[matrix_calc.LeftMVP]
	}

	if sh.UsesMatrixUniforms() {
		r.Matrices = append(r.Matrices[:0], s.outputs[:n]...)
		return nil
	}
	block, offset, err := s.pool.Alloc(n)
	if err != nil {
		return err
	}
	if err := block.SetMatrices(offset, s.outputs[:n]...); err != nil {
		return err
	}
	r.Block = block
	r.MatrixOffset = offset
	return nil
}

// issue draws every prepared leaf, binding shader, material, transform block, mesh
// and render state only when they differ from the previous draw.
func (s *sorter) issue(rs *RenderState) {
	var (
		lastShader   shader.Shader
		lastMaterial material.Material
		lastMesh     model.Mesh
		lastBlock    *uniform_block.TransformBlock
		lastModes    *render_data.RenderModes
	)
	s.Traverse(func(r *Renderable) bool {
		if r.skip {
			return true
		}
		sh := r.Shader
		if !sh.IsValid() {
			return true
		}
		shaderChanged := sh != lastShader
		if shaderChanged {
			if err := s.dev.UseShader(sh); err != nil {
				s.logger.Warningf("shader %q: %v", sh.Signature(), err)
				sh.Invalidate()
				lastShader = nil
				return true
			}
			s.stats.ShaderBinds++
			lastShader = sh
			lastBlock = nil
		}

		if shaderChanged || r.Material != lastMaterial {
			if !s.bindMaterial(rs, sh, r.Material) {
				lastMaterial = nil
				return true
			}
			lastMaterial = r.Material
		}

		if sh.UsesMatrixUniforms() {
			s.dev.SetMatrixUniforms(sh, r.Matrices)
		} else if r.Block != lastBlock {
			s.dev.BindTransformBlock(r.Block, sh)
			lastBlock = r.Block
		}

		if r.Mesh != lastMesh {
			if err := s.dev.BindMesh(r.Mesh); err != nil {
				s.logger.Debugf("mesh %q: %v", r.Mesh.Name(), err)
				lastMesh = nil
				return true
			}
			s.stats.MeshBinds++
			lastMesh = r.Mesh
		}

		if lastModes == nil || *lastModes != r.Modes {
			if lastModes != nil {
				s.dev.RestoreRenderStates(lastModes)
			}
			s.dev.SetRenderStates(&r.Modes)
			s.stats.StateChanges++
			lastModes = &r.Modes
		}

		if err := s.dev.Draw(r, sh); err != nil {
			s.logger.Debugf("draw %v: %v", r, err)
			return true
		}
		s.stats.DrawCalls++
		s.stats.Triangles += r.Mesh.TriangleCount()
		return true
	})
	if lastModes != nil {
		s.dev.RestoreRenderStates(lastModes)
	}
}

// bindMaterial binds a material and, for lit shaders, the lights after its textures.
// It reports false when the draw must be skipped.
func (s *sorter) bindMaterial(rs *RenderState, sh shader.Shader, m material.Material) bool {
	unit := 0
	if m != nil {
		if err := m.CheckTextures(); err != nil {
			if errors.Is(err, material.ErrTexturesNotReady) {
				s.logger.Debugf("material %q: %v", m.Name(), err)
			} else {
				s.logger.Warningf("material %q: %v", m.Name(), err)
			}
			return false
		}
		var err error
		if unit, err = s.dev.BindMaterial(sh, m); err != nil {
			s.logger.Warningf("material %q: %v", m.Name(), err)
			return false
		}
		s.stats.MaterialBinds++
	}
	if sh.UsesLights() && rs.Lights != nil {
		rs.Lights.BindLights(s.dev, sh, unit)
	}
	return true
}

func (s *sorter) Frame(ctx context.Context, rs *RenderState) (Stats, error) {
	defer s.Clear()
	if err := s.Cull(ctx, rs); err != nil {
		return s.stats, err
	}
	s.Validate(rs)
	s.Sort(rs)
	err := s.Render(rs)
	return s.stats, err
}

func (s *sorter) Clear() {
	s.arena.Clear()
	clear(s.pending)
	s.pending = s.pending[:0]
	s.root.nextLevel = nil
	s.seq = 0
	s.count = 0
	s.stats = Stats{}
}

func (s *sorter) Stats() Stats {
	return s.stats
}

func (s *sorter) Keys() []SortKey {
	return s.keys
}

func (s *sorter) Count() int {
	return s.count
}

func (s *sorter) Arena() *Arena {
	return s.arena
}

func (s *sorter) Pool() uniform_block.TransformBlockPool {
	return s.pool
}
