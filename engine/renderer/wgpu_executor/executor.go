// Package wgpu_executor replays the recording backend's command buffers on a WebGPU
// device. Pipelines are keyed by shader and folded render modes, bind group layouts
// come from reflecting the WGSL module, and per-draw buffers live in rings rewound
// at every submission.
package wgpu_executor

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/subchen/go-trylock/v2"

	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

// ErrDeviceBusy is returned by ReadPixels when a submission holds the device past the
// readback timeout.
var ErrDeviceBusy = errors.New("device busy")

const defaultReadbackTimeout = time.Second

// deviceLock serialises device access; readback gives up after a timeout.
type deviceLock interface {
	Lock()
	Unlock()
	TryLockTimeout(timeout time.Duration) bool
}

type executorImpl struct {
	logger log.Logger
	mu     deviceLock

	surfaceDescriptor *wgpu.SurfaceDescriptor
	forceFallback     bool
	presentMode       wgpu.PresentMode
	readbackTimeout   time.Duration

	instance      *wgpu.Instance
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surface       *wgpu.Surface
	surfaceFormat wgpu.TextureFormat

	shaders   map[int]*compiledShader
	pipelines map[pipelineKey]*wgpu.RenderPipeline
	meshes    map[uint64]*gpuMesh
	textures  map[uint64]*gpuTexture
	targets   map[uint64]*gpuTarget
	external  *gpuTarget

	// blocks keep the last upload of each transform block; unchanged blocks are not
	// recorded again.
	blocks map[int]*pendingBuffer

	rings   map[string][]ringSlot
	ringUse map[string]int

	sampler        *wgpu.Sampler
	compareSampler *wgpu.Sampler
	white          *gpuTexture

	// retired holds releases deferred until the current submission is encoded.
	retired []func()
}

var _ renderer.CommandExecutor = &executorImpl{}

// NewExecutor requests an adapter and device and prepares the shared samplers.
//
// Parameters:
//   - opts: builder options
//
// Returns:
//   - renderer.CommandExecutor: the executor
//   - error: when no adapter or device is available
func NewExecutor(opts ...ExecutorBuilderOption) (renderer.CommandExecutor, error) {
	e := &executorImpl{
		logger:          log.New("wgpu"),
		mu:              trylock.New(),
		presentMode:     wgpu.PresentModeImmediate,
		readbackTimeout: defaultReadbackTimeout,
		surfaceFormat:   colorFormat,
		shaders:         make(map[int]*compiledShader),
		pipelines:       make(map[pipelineKey]*wgpu.RenderPipeline),
		meshes:          make(map[uint64]*gpuMesh),
		textures:        make(map[uint64]*gpuTexture),
		targets:         make(map[uint64]*gpuTarget),
		blocks:          make(map[int]*pendingBuffer),
		rings:           make(map[string][]ringSlot),
		ringUse:         make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.instance = wgpu.CreateInstance(nil)
	if e.surfaceDescriptor != nil {
		e.surface = e.instance.CreateSurface(e.surfaceDescriptor)
	}
	adapter, err := e.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: e.forceFallback,
		CompatibleSurface:    e.surface,
	})
	if err != nil {
		e.Release()
		return nil, fmt.Errorf("requesting adapter: %w", err)
	}
	e.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-sg device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		e.Release()
		return nil, fmt.Errorf("requesting device: %w", err)
	}
	e.device = device
	e.queue = device.GetQueue()

	if e.surface != nil {
		e.surfaceFormat = e.surface.GetCapabilities(adapter).Formats[0]
	}
	if err := e.createDefaults(); err != nil {
		e.Release()
		return nil, err
	}
	e.logger.Infof("device ready (surface: %t, format %v)", e.surface != nil, e.surfaceFormat)
	return e, nil
}

func (e *executorImpl) createDefaults() error {
	var err error
	e.sampler, err = e.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "linear sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}
	e.compareSampler, err = e.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "shadow sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
		Compare:       wgpu.CompareFunctionLess,
	})
	if err != nil {
		return err
	}
	e.white, err = e.createTexture("white", 1, 1, 1, 1, colorFormat, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return err
	}
	e.writeTexture(e.white.tex, []byte{0xFF, 0xFF, 0xFF, 0xFF}, 1, 1)
	return nil
}

// Compile creates the shader module and its bind group layouts. A shader that
// compiled before is rebuilt, which is how edited sources reach the device.
func (e *executorImpl) Compile(s shader.Shader) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.compile(s)
	return err
}

func (e *executorImpl) compile(s shader.Shader) (*compiledShader, error) {
	src := s.Source()
	code := src.Vertex
	if src.Fragment != "" {
		code += "\n" + src.Fragment
	}
	r, err := reflect(code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Signature(), err)
	}
	module, err := e.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Signature(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: code,
		},
	})
	if err != nil {
		return nil, err
	}

	cs := &compiledShader{label: s.Signature(), module: module, reflect: r}
	if err := e.createLayouts(cs); err != nil {
		cs.release()
		return nil, err
	}
	if old, ok := e.shaders[s.ID()]; ok {
		e.dropPipelines(s.ID())
		old.release()
	}
	e.shaders[s.ID()] = cs
	e.logger.Debugf("compiled %s (%d groups)", cs.label, len(cs.layouts))
	return cs, nil
}

func (e *executorImpl) dropPipelines(shaderID int) {
	for k, p := range e.pipelines {
		if k.shader == shaderID {
			p.Release()
			delete(e.pipelines, k)
		}
	}
}

// pendingBuffer is CPU data uploaded on the first draw that binds it, sized to what
// that draw's shader declares.
type pendingBuffer struct {
	data []byte
	buf  *wgpu.Buffer
	size uint64
}

func (e *executorImpl) upload(name string, p *pendingBuffer, minSize uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	if p.buf != nil && p.size >= minSize {
		return p.buf, nil
	}
	buf, err := e.writeRing(name, p.data, minSize, usage)
	if err != nil {
		return nil, err
	}
	p.buf, p.size = buf, max(uint64(len(p.data)), minSize)
	return buf, nil
}

// passState is what earlier commands of a buffer left bound for later draws.
type passState struct {
	baseCull render_data.CullFace
	material material.Material
	params   *pendingBuffer
	lights   *pendingBuffer
	textures map[string]texture.Texture
}

// frame is the attachment set one command buffer renders into.
type frame struct {
	target  *gpuTarget
	color   *wgpu.TextureView
	resolve *wgpu.TextureView

	surfaceTexture *wgpu.Texture
	surfaceView    *wgpu.TextureView
}

func (f *frame) release() {
	if f.surfaceView != nil {
		f.surfaceView.Release()
	}
	if f.surfaceTexture != nil {
		f.surfaceTexture.Release()
	}
}

func (e *executorImpl) beginFrame(cb *renderer.CommandBuffer) (*frame, error) {
	if rt := cb.Target.Texture; rt != nil {
		t, err := e.renderTarget(rt)
		if err != nil {
			return nil, err
		}
		f := &frame{target: t, color: t.attachment}
		if t.msaa != nil {
			f.color, f.resolve = t.msaa.view, t.attachment
		}
		return f, nil
	}

	t, err := e.externalTarget(uint32(cb.Width), uint32(cb.Height))
	if err != nil {
		return nil, err
	}
	f := &frame{target: t, color: t.attachment}
	if e.surface != nil {
		st, err := e.surface.GetCurrentTexture()
		if err != nil {
			return nil, fmt.Errorf("acquiring surface texture: %w", err)
		}
		view, err := st.CreateView(nil)
		if err != nil {
			st.Release()
			return nil, err
		}
		f.surfaceTexture, f.surfaceView, f.color = st, view, view
	}
	return f, nil
}

// firstClear returns the clear recorded before the first draw, which becomes the
// pass load operations.
func firstClear(cb *renderer.CommandBuffer) (renderer.ClearOp, bool) {
	for _, c := range cb.Commands {
		switch c.Kind {
		case renderer.CmdClear:
			return c.Clear, true
		case renderer.CmdDraw:
			return renderer.ClearOp{}, false
		}
	}
	return renderer.ClearOp{}, false
}

// passDescriptor maps the buffer's clear onto load operations. Invalidated color
// attachments are discarded instead of stored.
func passDescriptor(cb *renderer.CommandBuffer, f *frame) *wgpu.RenderPassDescriptor {
	op, _ := firstClear(cb)
	desc := &wgpu.RenderPassDescriptor{}
	if f.color != nil {
		att := wgpu.RenderPassColorAttachment{
			View:          f.color,
			ResolveTarget: f.resolve,
			LoadOp:        wgpu.LoadOpLoad,
			StoreOp:       wgpu.StoreOpStore,
		}
		if op.Color {
			c := op.ColorValue
			att.LoadOp = wgpu.LoadOpClear
			att.ClearValue = wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
		}
		if f.resolve != nil || cb.InvalidateAttachments {
			att.StoreOp = wgpu.StoreOpDiscard
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{att}
	}
	if d := f.target.depth; d != nil {
		ds := &wgpu.RenderPassDepthStencilAttachment{
			View:            d.view,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
		if op.Depth {
			ds.DepthLoadOp = wgpu.LoadOpClear
		}
		if f.target.format.depth == depthStencilFormat {
			ds.StencilLoadOp = wgpu.LoadOpLoad
			ds.StencilStoreOp = wgpu.StoreOpStore
			if op.Stencil {
				ds.StencilLoadOp = wgpu.LoadOpClear
			}
		}
		desc.DepthStencilAttachment = ds
	}
	return desc
}

// Execute encodes one render pass for the buffer and submits it.
func (e *executorImpl) Execute(cb *renderer.CommandBuffer) (renderer.Fence, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flushRetired()
	clear(e.ringUse)

	f, err := e.beginFrame(cb)
	if err != nil {
		return nil, err
	}
	defer f.release()

	encoder, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(passDescriptor(cb, f))

	st := &passState{
		baseCull: render_data.CullBack,
		textures: make(map[string]texture.Texture),
	}
	clears := 0
	for i := range cb.Commands {
		c := &cb.Commands[i]
		switch c.Kind {
		case renderer.CmdClear:
			if clears++; clears > 1 {
				e.logger.Debugf("target %d: clear after the pass began ignored", cb.Target.ID())
			}
		case renderer.CmdViewport:
			x, y, w, h := c.Viewport[0], c.Viewport[1], c.Viewport[2], c.Viewport[3]
			pass.SetViewport(float32(x), float32(cb.Height-y-h), float32(w), float32(h), 0, 1)
		case renderer.CmdFaceCulling:
			st.baseCull = c.Cull
		case renderer.CmdUseShader:
			if _, ok := e.shaders[c.Shader.ID()]; !ok {
				if _, err := e.compile(c.Shader); err != nil {
					return nil, e.abort(pass, err)
				}
			}
		case renderer.CmdBindMaterial:
			params := material.ParamsOf(c.Material)
			st.material = c.Material
			st.params = &pendingBuffer{data: params.Marshal()}
		case renderer.CmdBindTexture:
			st.textures[c.Name] = c.Texture
		case renderer.CmdBindLightBuffer:
			st.lights = &pendingBuffer{data: c.Data}
		case renderer.CmdBindMesh:
			if _, err := e.mesh(c.Mesh); err != nil {
				return nil, e.abort(pass, err)
			}
		case renderer.CmdUploadBlock:
			e.blocks[c.Block] = &pendingBuffer{data: c.Data}
		case renderer.CmdDraw:
			if err := e.draw(pass, st, c, f.target.format); err != nil {
				return nil, e.abort(pass, err)
			}
		case renderer.CmdSetModes, renderer.CmdRestoreModes, renderer.CmdBindBlock, renderer.CmdSetUniform:
			// Draws carry their own modes and block index; WGSL has no loose uniforms.
		}
	}
	pass.End()

	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	defer commands.Release()

	fence := &submissionFence{device: e.device}
	e.queue.Submit(commands)
	e.queue.OnSubmittedWorkDone(func(wgpu.QueueWorkDoneStatus) {
		fence.done.Store(true)
	})
	if f.surfaceTexture != nil {
		e.surface.Present()
	}
	return fence, nil
}

// abort ends a pass that failed midway so the encoder can be dropped.
func (e *executorImpl) abort(pass *wgpu.RenderPassEncoder, err error) error {
	pass.End()
	return err
}

func (e *executorImpl) flushRetired() {
	for _, release := range e.retired {
		release()
	}
	e.retired = e.retired[:0]
}

func (e *executorImpl) draw(pass *wgpu.RenderPassEncoder, st *passState, c *renderer.Command, target targetFormat) error {
	cs, ok := e.shaders[c.Shader.ID()]
	if !ok {
		var err error
		if cs, err = e.compile(c.Shader); err != nil {
			return err
		}
	}
	key := newPipelineKey(c.Shader.ID(), &c.Modes, st.baseCull, target)
	p, err := e.pipeline(cs, &c.Modes, key)
	if err != nil {
		return err
	}
	pass.SetPipeline(p)

	for g := range cs.layouts {
		bg, err := e.bindGroup(cs, uint32(g), st, c)
		if err != nil {
			return fmt.Errorf("%s group %d: %w", cs.label, g, err)
		}
		pass.SetBindGroup(uint32(g), bg, nil)
		e.retired = append(e.retired, bg.Release)
	}
	if c.Modes.StencilTest() {
		pass.SetStencilReference(uint32(c.Modes.StencilRef()))
	}

	gm, err := e.mesh(c.Mesh)
	if err != nil {
		return err
	}
	pass.SetVertexBuffer(0, gm.vertex, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(gm.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(c.IndexCount, 1, 0, 0, c.FirstInstance)
	return nil
}

// bindGroup resolves every binding of a group against the pass state. Buffers follow
// the group convention of the recording backend; textures match by variable name.
func (e *executorImpl) bindGroup(cs *compiledShader, g uint32, st *passState, c *renderer.Command) (*wgpu.BindGroup, error) {
	bindings := cs.reflect.groups[g]
	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
	for _, b := range bindings {
		entry := wgpu.BindGroupEntry{Binding: b.entry.Binding}
		switch {
		case b.entry.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			buf, err := e.buffer(g, b, st, c)
			if err != nil {
				return nil, err
			}
			entry.Buffer, entry.Offset, entry.Size = buf, 0, wgpu.WholeSize
		case b.entry.Sampler.Type == wgpu.SamplerBindingTypeComparison:
			entry.Sampler = e.compareSampler
		case b.entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			entry.Sampler = e.sampler
		case b.entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			view, err := e.boundTexture(b, st)
			if err != nil {
				return nil, err
			}
			entry.TextureView = view
		}
		entries = append(entries, entry)
	}
	return e.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s group %d", cs.label, g),
		Layout:  cs.layouts[g],
		Entries: entries,
	})
}

func (e *executorImpl) buffer(g uint32, b binding, st *passState, c *renderer.Command) (*wgpu.Buffer, error) {
	usage := wgpu.BufferUsageUniform
	if b.entry.Buffer.Type != wgpu.BufferBindingTypeUniform {
		usage = wgpu.BufferUsageStorage
	}
	minSize := b.entry.Buffer.MinBindingSize

	var p *pendingBuffer
	name := b.name
	switch {
	case g == renderer.WGPUGroupTransform && c.Block >= 0:
		p, name = e.blocks[c.Block], fmt.Sprintf("block/%d", c.Block)
	case g == renderer.WGPUGroupMaterial:
		p = st.params
	case g == renderer.WGPUGroupLights:
		p = st.lights
	}
	if p == nil {
		p = &pendingBuffer{}
		name = "zero/" + name
	}
	return e.upload(name, p, minSize, usage)
}

func (e *executorImpl) boundTexture(b binding, st *passState) (*wgpu.TextureView, error) {
	depth := b.entry.Texture.SampleType == wgpu.TextureSampleTypeDepth
	names := []string{b.name, strings.TrimPrefix(b.name, "u_"), "u_" + b.name}
	for _, n := range names {
		if t, ok := st.textures[n]; ok && t != nil {
			return e.texture(t, depth)
		}
	}
	if st.material != nil {
		for _, n := range names {
			if t := st.material.Texture(n); t != nil {
				return e.texture(t, depth)
			}
		}
	}
	e.logger.Debugf("texture %s unbound, sampling white", b.name)
	return e.white.view, nil
}

// submissionFence is signaled from the queue's work-done callback, which the device
// only delivers while polled.
type submissionFence struct {
	device *wgpu.Device
	done   atomic.Bool
}

func (f *submissionFence) Signaled() bool {
	if f.done.Load() {
		return true
	}
	f.device.Poll(false, nil)
	return f.done.Load()
}

// ReadPixels copies the resolved color of a render texture into RGBA8 rows ordered
// bottom row first, matching glReadPixels.
func (e *executorImpl) ReadPixels(rt texture.RenderTexture) ([]byte, error) {
	if !e.mu.TryLockTimeout(e.readbackTimeout) {
		return nil, fmt.Errorf("reading %q: %w", rt.Name(), ErrDeviceBusy)
	}
	defer e.mu.Unlock()

	t, ok := e.targets[rt.ID()]
	if !ok || t.color == nil {
		return nil, fmt.Errorf("render texture %q has no color attachment on the device", rt.Name())
	}
	w, h := t.width, t.height
	rowBytes := w * 4
	stride := uint32(alignUp(256, uint64(rowBytes)))
	size := uint64(stride) * uint64(h)

	buf, err := e.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: rt.Name() + " readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer buf.Release()

	encoder, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: t.color.tex, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyBuffer{Buffer: buf, Layout: wgpu.TextureDataLayout{BytesPerRow: stride, RowsPerImage: h}},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	defer commands.Release()
	e.queue.Submit(commands)

	var status wgpu.BufferMapAsyncStatus
	mapped := false
	buf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status, mapped = s, true
	})
	for !mapped {
		e.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("mapping readback of %q: status %v", rt.Name(), status)
	}
	defer buf.Unmap()

	src := buf.GetMappedRange(0, uint(size))
	px := make([]byte, int(rowBytes)*int(h))
	for row := uint32(0); row < h; row++ {
		from := src[row*stride : row*stride+rowBytes]
		copy(px[(h-1-row)*rowBytes:], from)
	}
	return px, nil
}

// Release frees every device object and finally the device itself.
func (e *executorImpl) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushRetired()

	for k, p := range e.pipelines {
		p.Release()
		delete(e.pipelines, k)
	}
	for id, cs := range e.shaders {
		cs.release()
		delete(e.shaders, id)
	}
	for id, m := range e.meshes {
		m.release()
		delete(e.meshes, id)
	}
	for id, t := range e.textures {
		t.release()
		delete(e.textures, id)
	}
	for id, t := range e.targets {
		t.release()
		delete(e.targets, id)
	}
	if e.external != nil {
		e.external.release()
		e.external = nil
	}
	for name, slots := range e.rings {
		for _, s := range slots {
			if s.buf != nil {
				s.buf.Release()
			}
		}
		delete(e.rings, name)
	}
	e.white.release()
	e.white = nil
	for _, s := range []*wgpu.Sampler{e.sampler, e.compareSampler} {
		if s != nil {
			s.Release()
		}
	}
	e.sampler, e.compareSampler = nil, nil

	if e.queue != nil {
		e.queue.Release()
	}
	if e.device != nil {
		e.device.Release()
	}
	if e.adapter != nil {
		e.adapter.Release()
	}
	if e.surface != nil {
		e.surface.Release()
	}
	if e.instance != nil {
		e.instance.Release()
	}
	e.queue, e.device, e.adapter, e.surface, e.instance = nil, nil, nil, nil, nil
}
