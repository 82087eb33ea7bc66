package wgpu_executor

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

const (
	colorFormat        = wgpu.TextureFormatRGBA8Unorm
	depthFormat        = wgpu.TextureFormatDepth32Float
	depthStencilFormat = wgpu.TextureFormatDepth24PlusStencil8
)

type gpuMesh struct {
	vertex  *wgpu.Buffer
	index   *wgpu.Buffer
	version uint64
}

func (m *gpuMesh) release() {
	m.vertex.Release()
	m.index.Release()
}

type gpuTexture struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

func (t *gpuTexture) release() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.view.Release()
	}
	t.tex.Release()
}

// gpuTarget holds the attachments of an offscreen render texture. Multisampled
// targets render into msaa and resolve into color, which is what later passes sample.
type gpuTarget struct {
	width, height uint32
	format        targetFormat

	color *gpuTexture
	msaa  *gpuTexture
	depth *gpuTexture

	// attachment renders into layer 0; sampled covers every layer.
	attachment *wgpu.TextureView
	sampled    *wgpu.TextureView
}

func (t *gpuTarget) release() {
	for _, v := range []*wgpu.TextureView{t.attachment, t.sampled} {
		if v != nil {
			v.Release()
		}
	}
	t.color.release()
	t.msaa.release()
	t.depth.release()
}

// paddedBytes returns data grown to at least size bytes and to a multiple of four,
// the granularity of queue writes.
func paddedBytes(data []byte, size uint64) []byte {
	n := alignUp(4, max(uint64(len(data)), size, 4))
	if uint64(len(data)) == n {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

// ringSlot is one buffer of a ring, grown when a larger write arrives.
type ringSlot struct {
	buf  *wgpu.Buffer
	size uint64
}

// writeRing copies data into the next free buffer of a named ring. Queue writes all
// land before the submission executes, so every write inside one command buffer
// needs its own buffer; rings are rewound at the start of each Execute.
func (e *executorImpl) writeRing(name string, data []byte, minSize uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	data = paddedBytes(data, minSize)
	size := uint64(len(data))

	idx := e.ringUse[name]
	e.ringUse[name] = idx + 1
	slots := e.rings[name]
	if idx == len(slots) {
		slots = append(slots, ringSlot{})
		e.rings[name] = slots
	}
	slot := &slots[idx]
	if slot.buf == nil || slot.size < size {
		if slot.buf != nil {
			slot.buf.Release()
		}
		buf, err := e.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("%s #%d", name, idx),
			Size:  size,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("ring %s: %w", name, err)
		}
		slot.buf, slot.size = buf, size
	}
	e.queue.WriteBuffer(slot.buf, 0, data)
	return slot.buf, nil
}

// mesh uploads a mesh on first use and again whenever its geometry version changes.
func (e *executorImpl) mesh(m model.Mesh) (*gpuMesh, error) {
	if gm, ok := e.meshes[m.ID()]; ok && gm.version == m.Version() {
		return gm, nil
	}
	vertices, indices := m.VertexData(), m.IndexData()
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("mesh %q has no geometry", m.Name())
	}

	create := func(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
		data = paddedBytes(data, 0)
		buf, err := e.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: m.Name() + " " + label,
			Size:  uint64(len(data)),
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		e.queue.WriteBuffer(buf, 0, data)
		return buf, nil
	}
	vb, err := create("vertices", vertices, wgpu.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	ib, err := create("indices", indices, wgpu.BufferUsageIndex)
	if err != nil {
		vb.Release()
		return nil, err
	}

	if old, ok := e.meshes[m.ID()]; ok {
		e.retired = append(e.retired, old.release)
	}
	gm := &gpuMesh{vertex: vb, index: ib, version: m.Version()}
	e.meshes[m.ID()] = gm
	return gm, nil
}

// createTexture allocates a single-level 2D texture.
func (e *executorImpl) createTexture(label string, w, h, layers, samples uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*gpuTexture, error) {
	tex, err := e.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              w,
			Height:             h,
			DepthOrArrayLayers: max(layers, 1),
		},
		MipLevelCount: 1,
		SampleCount:   max(samples, 1),
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &gpuTexture{tex: tex, view: view}, nil
}

// texture returns the view a material or effect samples. Render textures resolve to
// their target's sampled view and plain textures upload their pending pixels. A
// texture with nothing to show samples as opaque white.
func (e *executorImpl) texture(t texture.Texture, depth bool) (*wgpu.TextureView, error) {
	if rt, ok := t.(texture.RenderTexture); ok {
		target, ok := e.targets[rt.ID()]
		if !ok {
			return e.white.view, nil
		}
		if depth || target.color == nil {
			return target.depth.view, nil
		}
		return target.sampled, nil
	}

	if staging := t.TakeStaging(); staging != nil {
		gt, err := e.createTexture(t.Name(), staging.Width, staging.Height, 1, 1, colorFormat,
			wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", t.Name(), err)
		}
		e.writeTexture(gt.tex, staging.Pixels, staging.Width, staging.Height)
		if old, ok := e.textures[t.ID()]; ok {
			e.retired = append(e.retired, old.release)
		}
		e.textures[t.ID()] = gt
		t.MarkUploaded()
	}
	if gt, ok := e.textures[t.ID()]; ok {
		return gt.view, nil
	}
	return e.white.view, nil
}

func (e *executorImpl) writeTexture(tex *wgpu.Texture, pixels []byte, w, h uint32) {
	e.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

// renderTarget returns the attachments of a render texture, reallocating them when the
// texture was resized.
func (e *executorImpl) renderTarget(rt texture.RenderTexture) (*gpuTarget, error) {
	w, h := rt.Size()
	if t, ok := e.targets[rt.ID()]; ok {
		if t.width == w && t.height == h {
			return t, nil
		}
		e.retired = append(e.retired, t.release)
		delete(e.targets, rt.ID())
	}

	samples := uint32(max(rt.Samples(), 1))
	layers := uint32(max(rt.Layers(), 1))
	t := &gpuTarget{width: w, height: h, format: targetFormat{samples: samples}}
	fail := func(err error) (*gpuTarget, error) {
		t.release()
		return nil, fmt.Errorf("render texture %q: %w", rt.Name(), err)
	}

	var err error
	if !rt.DepthOnly() {
		t.format.color = colorFormat
		t.color, err = e.createTexture(rt.Name()+" color", w, h, layers, 1, colorFormat,
			wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc)
		if err != nil {
			return fail(err)
		}
		if samples > 1 {
			t.msaa, err = e.createTexture(rt.Name()+" msaa", w, h, 1, samples, colorFormat, wgpu.TextureUsageRenderAttachment)
			if err != nil {
				return fail(err)
			}
		}
	}
	if rt.HasDepth() || rt.DepthOnly() {
		t.format.depth = depthFormat
		if rt.HasStencil() {
			t.format.depth = depthStencilFormat
		}
		usage := wgpu.TextureUsageRenderAttachment
		if samples == 1 {
			usage |= wgpu.TextureUsageTextureBinding
		}
		t.depth, err = e.createTexture(rt.Name()+" depth", w, h, 1, samples, t.format.depth, usage)
		if err != nil {
			return fail(err)
		}
	}

	if t.color != nil {
		t.attachment, err = t.color.tex.CreateView(&wgpu.TextureViewDescriptor{
			Format:          colorFormat,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			return fail(err)
		}
		dim := wgpu.TextureViewDimension2D
		if layers > 1 {
			dim = wgpu.TextureViewDimension2DArray
		}
		t.sampled, err = t.color.tex.CreateView(&wgpu.TextureViewDescriptor{
			Format:          colorFormat,
			Dimension:       dim,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: layers,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			return fail(err)
		}
	}

	e.targets[rt.ID()] = t
	e.logger.Debugf("allocated render texture %q %dx%d (samples %d, layers %d)", rt.Name(), w, h, samples, layers)
	return t, nil
}

// externalTarget returns the depth attachment of the external framebuffer and, when
// headless, its offscreen color texture.
func (e *executorImpl) externalTarget(w, h uint32) (*gpuTarget, error) {
	if t := e.external; t != nil && t.width == w && t.height == h {
		return t, nil
	}
	if e.external != nil {
		e.retired = append(e.retired, e.external.release)
		e.external = nil
	}

	t := &gpuTarget{width: w, height: h, format: targetFormat{color: e.surfaceFormat, depth: depthStencilFormat, samples: 1}}
	var err error
	t.depth, err = e.createTexture("external depth", w, h, 1, 1, depthStencilFormat, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return nil, err
	}
	if e.surface == nil {
		t.color, err = e.createTexture("external color", w, h, 1, 1, colorFormat,
			wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageCopySrc)
		if err != nil {
			t.release()
			return nil, err
		}
		t.attachment = t.color.view
		t.color.view = nil
	} else {
		e.configureSurface(w, h)
	}
	e.external = t
	return t, nil
}

// configureSurface applies the surface format and present mode at a new size.
func (e *executorImpl) configureSurface(w, h uint32) {
	caps := e.surface.GetCapabilities(e.adapter)
	e.surface.Configure(e.adapter, e.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      e.surfaceFormat,
		Width:       w,
		Height:      h,
		PresentMode: e.presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})
	e.logger.Infof("surface configured %dx%d", w, h)
}
