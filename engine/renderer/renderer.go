package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-sg/engine/scene"
)

// pingPong is the pair of offscreen targets post effects alternate between.
type pingPong struct {
	a, b          *RenderTarget
	width, height int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger log.Logger

	backendType RendererBackendType
	backend     RendererBackend
	shaders     shader.Manager

	// Pre-creation config collected from builder options
	sortKeys         []sorter.SortKey
	maxMatrices      int
	multiview        bool
	stencil          bool
	invalidateShadow bool
	fenceTimeout     time.Duration
	occlusion        bool
	generator        shader.Generator
	glContext        GLContext
	executor         CommandExecutor
	width, height    int

	shadowTargets map[uint64]*RenderTarget
	pingPongs     map[uint64]*pingPong
	quad          model.Mesh
}

// Renderer draws scenes through a backend. Each RenderTarget call renders the scene's
// camera: the shadow maps of every shadow-casting light, the main pass, and the
// camera's post effects.
//
// A Renderer is driven from the render thread only.
type Renderer interface {
	// BackendType returns the type of the backend.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Backend returns the backend the renderer drives.
	//
	// Returns:
	//   - RendererBackend: the backend
	Backend() RendererBackend

	// Shaders returns the shader registry of the renderer.
	//
	// Returns:
	//   - shader.Manager: the registry
	Shaders() shader.Manager

	// Resize configures the size of the external framebuffer.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// NewRenderTarget creates a render target with a fresh main sorter.
	//
	// Parameters:
	//   - rt: the destination texture, nil for the external framebuffer
	//
	// Returns:
	//   - *RenderTarget: the target
	NewRenderTarget(rt texture.RenderTexture) *RenderTarget

	// RenderTarget renders one frame of the scene's camera into t.
	//
	// Per-draw failures degrade single draws and are only logged. Backend failures,
	// such as a fence timeout, drop the frame and are returned.
	//
	// Parameters:
	//   - ctx: bounds fence waits and collider locking
	//   - sc: the scene
	//   - t: the destination
	//
	// Returns:
	//   - sorter.Stats: the statistics of every pass of the frame
	//   - error: any frame-level error
	RenderTarget(ctx context.Context, sc scene.Scene, t *RenderTarget) (sorter.Stats, error)

	// ReadPixels reads back the color of a render texture.
	//
	// Parameters:
	//   - rt: the render texture
	//
	// Returns:
	//   - []byte: RGBA8 rows
	//   - error: any readback error
	ReadPixels(rt texture.RenderTexture) ([]byte, error)

	// Release frees every GPU object of the renderer.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer over the given backend type. The GL backend needs
// WithGLContext and the WGPU backend needs WithWGPUDevice.
//
// Parameters:
//   - backendType: the backend to drive
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the renderer
//   - error: ErrUnsupportedBackend for unknown or unconfigured backends
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:               &sync.Mutex{},
		logger:           log.New("renderer"),
		backendType:      backendType,
		maxMatrices:      sorter.DefaultMaxMatricesPerBlock,
		invalidateShadow: true,
		fenceTimeout:     DefaultFenceTimeout,
		shadowTargets:    make(map[uint64]*RenderTarget),
		pingPongs:        make(map[uint64]*pingPong),
		quad:             model.NewFullScreenQuad(),
	}
	for _, opt := range options {
		opt(r)
	}

	gen := r.generator
	switch backendType {
	case BackendTypeGL:
		if r.glContext == nil {
			return nil, fmt.Errorf("%w: %v needs a GL context", ErrUnsupportedBackend, backendType)
		}
		r.backend = newGLRendererBackend(r.glContext, r.maxMatrices, r.stencil, r.invalidateShadow, r.occlusion)
		if gen == nil {
			gen = GLGenerator(r.maxMatrices)
		}
	case BackendTypeWGPU:
		if r.executor == nil {
			return nil, fmt.Errorf("%w: %v needs a device", ErrUnsupportedBackend, backendType)
		}
		if r.multiview {
			return nil, fmt.Errorf("%w: %v has no multiview support", ErrUnsupportedBackend, backendType)
		}
		if r.occlusion {
			r.logger.Notice("occlusion culling needs the gl backend; disabled")
		}
		r.backend = newWGPURendererBackend(r.executor, r.maxMatrices, r.stencil, r.invalidateShadow, r.fenceTimeout)
		if gen == nil {
			gen = WGPUGenerator(r.maxMatrices)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedBackend, backendType)
	}

	r.shaders = shader.NewManager(gen)
	if err := r.backend.Init(r.shaders); err != nil {
		return nil, fmt.Errorf("initializing %v backend: %w", backendType, err)
	}
	r.backend.Resize(r.width, r.height)
	r.logger.Debugf("%v renderer ready, %d matrices per block, multiview %v", backendType, r.maxMatrices, r.multiview)
	return r, nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Shaders() shader.Manager {
	return r.shaders
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	r.backend.Resize(width, height)
}

func (r *renderer) sorterOptions(multiview bool) []sorter.SorterBuilderOption {
	opts := []sorter.SorterBuilderOption{
		sorter.WithMaxMatricesPerBlock(r.maxMatrices),
		sorter.WithMultiview(multiview),
	}
	return opts
}

func (r *renderer) NewRenderTarget(rt texture.RenderTexture) *RenderTarget {
	opts := r.sorterOptions(r.multiview)
	if len(r.sortKeys) > 0 {
		opts = append(opts, sorter.WithKeys(r.sortKeys...))
	}
	if oc := r.backend.OcclusionCuller(); oc != nil {
		opts = append(opts, sorter.WithOcclusionCuller(oc))
	}
	return &RenderTarget{
		Texture: rt,
		Sorter:  sorter.NewMainSorter(r.backend, r.shaders, opts...),
	}
}

func (r *renderer) RenderTarget(ctx context.Context, sc scene.Scene, t *RenderTarget) (sorter.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total sorter.Stats
	cam := sc.Camera()
	if cam == nil {
		return total, fmt.Errorf("scene %q has no camera", sc.Name())
	}
	sc.Prepare()

	st, err := r.renderShadows(ctx, sc, cam)
	total.Add(st)
	if err != nil {
		return total, err
	}

	effects := cam.PostEffects()
	dst := t
	var pp *pingPong
	if len(effects) > 0 {
		pp = r.pingPong(t)
		dst = pp.a
	}

	st, err = r.renderMain(ctx, sc, cam, t.Sorter, dst)
	total.Add(st)
	if err != nil {
		return total, err
	}
	if pp == nil {
		return total, nil
	}

	src := pp.a
	for i, fx := range effects {
		next := t
		if i < len(effects)-1 {
			next = pp.b
			if src == pp.b {
				next = pp.a
			}
		}
		st, err = r.renderPostEffect(ctx, fx, src, next)
		total.Add(st)
		if err != nil {
			return total, err
		}
		src = next
	}
	return total, nil
}

// eyeViewports splits the target between the eyes the camera renders. Multiview
// renders both eyes in one pass; otherwise stereo cameras render the eyes side by side.
func (r *renderer) eyeViewports(mask render_data.RenderMask, width, height int) ([]render_data.RenderMask, [][4]int) {
	if mask != render_data.RenderMaskBoth || r.multiview {
		return []render_data.RenderMask{mask}, [][4]int{{0, 0, width, height}}
	}
	half := width / 2
	return []render_data.RenderMask{render_data.RenderMaskLeft, render_data.RenderMaskRight},
		[][4]int{{0, 0, half, height}, {half, 0, width - half, height}}
}

func (r *renderer) renderMain(ctx context.Context, sc scene.Scene, cam camera.Camera, s sorter.Sorter, dst *RenderTarget) (sorter.Stats, error) {
	var total sorter.Stats
	if err := r.backend.BeginTarget(ctx, dst); err != nil {
		return total, err
	}
	r.backend.ClearBuffers(cam)

	w, h := dst.Size(r.width, r.height)
	masks, viewports := r.eyeViewports(cam.RenderMask(), w, h)
	for i, mask := range masks {
		if len(masks) > 1 {
			vp := viewports[i]
			r.backend.SetViewport(vp[0], vp[1], vp[2], vp[3])
		}
		st, err := s.Frame(ctx, sorter.NewRenderState(sc, cam, mask))
		total.Add(st)
		if err != nil {
			return total, errors.Join(err, r.backend.EndTarget(dst))
		}
	}
	return total, r.backend.EndTarget(dst)
}

func (r *renderer) shadowTarget(l light.Light, sm *light.ShadowMap) *RenderTarget {
	t, ok := r.shadowTargets[l.ID()]
	if ok && t.Texture == sm.Texture {
		return t
	}
	t = &RenderTarget{
		Texture: sm.Texture,
		Sorter:  sorter.NewShadowSorter(r.backend, r.shaders, r.sorterOptions(false)...),
		Shadow:  true,
	}
	r.shadowTargets[l.ID()] = t
	return t
}

// renderShadows refreshes the light descriptor and renders the shadow map of every
// enabled shadow-casting light.
func (r *renderer) renderShadows(ctx context.Context, sc scene.Scene, cam camera.Camera) (sorter.Stats, error) {
	var total sorter.Stats
	lights := sc.Lights()
	if !lights.UpdateLights() {
		return total, nil
	}
	for _, l := range lights.ShadowCasters() {
		if !l.Enabled() {
			continue
		}
		sm := light.UpdateShadowCamera(l, cam.Position())
		if sm == nil || sm.Texture == nil {
			continue
		}
		t := r.shadowTarget(l, sm)
		if err := r.backend.BeginTarget(ctx, t); err != nil {
			return total, err
		}
		r.backend.ClearBuffers(nil)
		r.backend.SetFaceCulling(render_data.CullFront)
		st, err := t.Sorter.Frame(ctx, sorter.NewShadowRenderState(sc, sm))
		total.Add(st)
		if err != nil {
			return total, errors.Join(err, r.backend.EndTarget(t))
		}
		if err := r.backend.EndTarget(t); err != nil {
			return total, err
		}
		r.logger.Debugf("shadow map of light %d: %d draws", l.ID(), st.DrawCalls)
	}
	return total, nil
}

// pingPong returns the post-effect targets of t, reallocating them when t changed size.
func (r *renderer) pingPong(t *RenderTarget) *pingPong {
	w, h := t.Size(r.width, r.height)
	pp, ok := r.pingPongs[t.ID()]
	if ok && pp.width == w && pp.height == h {
		return pp
	}
	target := func(name string) *RenderTarget {
		return &RenderTarget{
			Texture: texture.NewRenderTexture(uint32(w), uint32(h),
				texture.WithRenderTextureName(name),
				texture.WithStencil(r.stencil),
			),
		}
	}
	pp = &pingPong{a: target("pingpong_a"), b: target("pingpong_b"), width: w, height: h}
	r.pingPongs[t.ID()] = pp
	return pp
}

// renderPostEffect draws a full-screen quad with the effect's material into dst,
// sampling src as u_source. Effects whose shader is unavailable degrade to a plain
// copy.
func (r *renderer) renderPostEffect(ctx context.Context, fx render_data.RenderPass, src, dst *RenderTarget) (sorter.Stats, error) {
	var st sorter.Stats
	if err := r.backend.WaitTarget(ctx, src); err != nil {
		return st, err
	}
	if err := r.backend.BeginTarget(ctx, dst); err != nil {
		return st, err
	}
	r.backend.ClearBuffers(nil)

	sh, err := r.shaders.SelectShader(fx.ShaderTemplate(), false, "", false)
	if err == nil {
		err = r.backend.UseShader(sh)
	}
	if err != nil {
		r.logger.Warningf("post effect %q: %v, copying instead", fx.ShaderTemplate(), err)
		if sh = r.shaders.FindShader(TemplateBlit); sh == nil {
			return st, errors.Join(err, r.backend.EndTarget(dst))
		}
		if err := r.backend.UseShader(sh); err != nil {
			return st, errors.Join(err, r.backend.EndTarget(dst))
		}
	}
	st.ShaderBinds++

	// the source texture follows the material's textures
	unit := 0
	if mat := fx.Material(); mat != nil {
		if unit, err = r.backend.BindMaterial(sh, mat); err != nil {
			r.logger.Debugf("post effect %q material: %v", fx.ShaderTemplate(), err)
		}
		st.MaterialBinds++
	}
	r.backend.BindTexture(sh, SourceTextureName, unit, src.Texture)

	if err := r.backend.BindMesh(r.quad); err != nil {
		return st, errors.Join(err, r.backend.EndTarget(dst))
	}
	st.MeshBinds++

	modes := fx.Modes()
	modes.SetDepthTest(false)
	modes.SetDepthMask(false)
	modes.SetAlphaBlend(false)
	modes.SetCullFace(render_data.CullNone)
	r.backend.SetRenderStates(&modes)
	st.StateChanges++

	item := &sorter.Renderable{Mesh: r.quad, Material: fx.Material(), Modes: modes, Shader: sh}
	if err := r.backend.Draw(item, sh); err != nil {
		r.logger.Debugf("post effect %q draw: %v", fx.ShaderTemplate(), err)
	} else {
		st.DrawCalls++
		st.Triangles += r.quad.TriangleCount()
	}
	r.backend.RestoreRenderStates(&modes)
	return st, r.backend.EndTarget(dst)
}

func (r *renderer) ReadPixels(rt texture.RenderTexture) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.ReadPixels(rt)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Release()
	clear(r.shadowTargets)
	clear(r.pingPongs)
}
