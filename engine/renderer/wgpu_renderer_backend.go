package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/uniform_block"
)

// wgpuRendererBackendImpl is the command-recording backend. Device calls append
// commands to the bound target's CommandBuffer; EndTarget hands the buffer to the
// executor and keeps the returned fence on the target.
type wgpuRendererBackendImpl struct {
	exec   CommandExecutor
	logger log.Logger

	shaders          shader.Manager
	maxMatrices      int
	stencil          bool
	invalidateShadow bool
	fenceTimeout     time.Duration

	width, height int

	compiled map[int]error
	current  *CommandBuffer
}

var _ RendererBackend = &wgpuRendererBackendImpl{}
var _ light.BufferBinder = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(exec CommandExecutor, maxMatrices int, stencil, invalidateShadow bool, fenceTimeout time.Duration) *wgpuRendererBackendImpl {
	return &wgpuRendererBackendImpl{
		exec:             exec,
		logger:           log.New("renderer"),
		maxMatrices:      maxMatrices,
		stencil:          stencil,
		invalidateShadow: invalidateShadow,
		fenceTimeout:     fenceTimeout,
		compiled:         make(map[int]error),
	}
}

func (b *wgpuRendererBackendImpl) Init(shaders shader.Manager) error {
	b.shaders = shaders
	sources, err := wgpuBuiltinSources(b.maxMatrices)
	if err != nil {
		return err
	}
	return registerBuiltins(shaders, sources)
}

func (b *wgpuRendererBackendImpl) Resize(width, height int) {
	b.width, b.height = width, height
}

func (b *wgpuRendererBackendImpl) record(c Command) {
	if b.current == nil {
		b.logger.Debugf("%v recorded outside a target", c.Kind)
		return
	}
	b.current.add(c)
}

func (b *wgpuRendererBackendImpl) UseShader(s shader.Shader) error {
	err, ok := b.compiled[s.ID()]
	if !ok {
		src := s.Source()
		switch {
		case src.Language != shader.LanguageWGSL:
			err = fmt.Errorf("%w: %s is not WGSL", shader.ErrShaderNotReady, s.Signature())
		case src.UsesMatrixUniforms:
			err = fmt.Errorf("%w: %s takes loose matrix uniforms", shader.ErrShaderNotReady, s.Signature())
		default:
			if cerr := b.exec.Compile(s); cerr != nil {
				err = fmt.Errorf("%w: compiling %s: %w", shader.ErrShaderNotReady, s.Signature(), cerr)
			}
		}
		b.compiled[s.ID()] = err
	}
	if err != nil {
		return err
	}
	b.record(Command{Kind: CmdUseShader, Shader: s})
	return nil
}

func (b *wgpuRendererBackendImpl) SetUniform(s shader.Shader, name string, value any) {
	b.record(Command{Kind: CmdSetUniform, Shader: s, Name: name, Value: value})
}

func (b *wgpuRendererBackendImpl) BindTexture(s shader.Shader, name string, unit int, tex texture.Texture) {
	b.record(Command{Kind: CmdBindTexture, Shader: s, Name: name, Unit: unit, Texture: tex})
}

func (b *wgpuRendererBackendImpl) BindLightBuffer(s shader.Shader, data []byte) {
	b.record(Command{Kind: CmdBindLightBuffer, Shader: s, Data: append([]byte(nil), data...)})
}

func (b *wgpuRendererBackendImpl) BindMaterial(s shader.Shader, m material.Material) (int, error) {
	if m == nil {
		return 0, nil
	}
	b.record(Command{Kind: CmdBindMaterial, Shader: s, Material: m})
	return len(m.TextureNames()), nil
}

func (b *wgpuRendererBackendImpl) BindMesh(m model.Mesh) error {
	if m.IndexCount() == 0 {
		return fmt.Errorf("mesh %q has no indices", m.Name())
	}
	b.record(Command{Kind: CmdBindMesh, Mesh: m})
	return nil
}

func (b *wgpuRendererBackendImpl) UpdateTransformBlock(blk *uniform_block.TransformBlock) error {
	b.record(Command{Kind: CmdUploadBlock, Block: blk.Index(), Data: append([]byte(nil), blk.Data()...)})
	blk.ClearDirty()
	return nil
}

func (b *wgpuRendererBackendImpl) BindTransformBlock(blk *uniform_block.TransformBlock, s shader.Shader) {
	b.record(Command{Kind: CmdBindBlock, Block: blk.Index(), Shader: s})
}

// SetMatrixUniforms is unreachable: UseShader rejects loose-uniform shaders.
func (b *wgpuRendererBackendImpl) SetMatrixUniforms(s shader.Shader, ms []mgl32.Mat4) {
	b.logger.Debugf("shader %d: loose matrix uniforms dropped", s.ID())
}

func (b *wgpuRendererBackendImpl) SetRenderStates(m *render_data.RenderModes) {
	b.record(Command{Kind: CmdSetModes, Modes: *m})
}

func (b *wgpuRendererBackendImpl) RestoreRenderStates(m *render_data.RenderModes) {
	b.record(Command{Kind: CmdRestoreModes})
}

func (b *wgpuRendererBackendImpl) Draw(r *sorter.Renderable, s shader.Shader) error {
	if b.current == nil {
		return ErrNoTarget
	}
	c := Command{
		Kind:       CmdDraw,
		Shader:     s,
		Mesh:       r.Mesh,
		Modes:      r.Modes,
		IndexCount: uint32(r.Mesh.IndexCount()),
		Block:      -1,
	}
	if r.Block != nil {
		c.Block = r.Block.Index()
		c.FirstInstance = uint32(r.MatrixOffset)
	}
	b.record(c)
	return nil
}

func (b *wgpuRendererBackendImpl) BeginTarget(ctx context.Context, t *RenderTarget) error {
	if err := b.WaitTarget(ctx, t); err != nil {
		return err
	}
	w, h := t.Size(b.width, b.height)
	b.current = &CommandBuffer{Target: t, Width: w, Height: h}
	b.record(Command{Kind: CmdViewport, Viewport: [4]int{0, 0, w, h}})
	return nil
}

// WaitTarget blocks until the previous submission into t completed.
func (b *wgpuRendererBackendImpl) WaitTarget(ctx context.Context, t *RenderTarget) error {
	if err := waitFence(ctx, t.fence, b.fenceTimeout); err != nil {
		b.logger.Errorf("target %d: %v", t.ID(), err)
		return err
	}
	t.fence = nil
	return nil
}

func (b *wgpuRendererBackendImpl) ClearBuffers(cam camera.Camera) {
	op := ClearOp{Depth: true, Stencil: b.stencil}
	if cam != nil {
		if c := cam.BackgroundColor(); c.Valid() {
			op.Color = true
			op.ColorValue = c
		}
	}
	b.record(Command{Kind: CmdClear, Clear: op})
}

func (b *wgpuRendererBackendImpl) SetViewport(x, y, width, height int) {
	b.record(Command{Kind: CmdViewport, Viewport: [4]int{x, y, width, height}})
}

func (b *wgpuRendererBackendImpl) SetFaceCulling(mode render_data.CullFace) {
	b.record(Command{Kind: CmdFaceCulling, Cull: mode})
}

func (b *wgpuRendererBackendImpl) EndTarget(t *RenderTarget) error {
	cb := b.current
	b.current = nil
	if cb == nil || cb.Target != t {
		return ErrNoTarget
	}
	cb.InvalidateAttachments = t.Shadow && b.invalidateShadow

	fence, err := b.exec.Execute(cb)
	if err != nil {
		return fmt.Errorf("submitting target %d: %w", t.ID(), err)
	}
	t.fence = fence
	return nil
}

func (b *wgpuRendererBackendImpl) OcclusionCuller() sorter.OcclusionCuller {
	return nil
}

func (b *wgpuRendererBackendImpl) ReadPixels(rt texture.RenderTexture) ([]byte, error) {
	return b.exec.ReadPixels(rt)
}

func (b *wgpuRendererBackendImpl) Release() {
	b.exec.Release()
}
