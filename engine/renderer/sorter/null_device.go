package sorter

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/uniform_block"
)

// NullDevice is a Device that issues nothing. It records every call so headless
// tools and tests can inspect the command stream.
type NullDevice struct {
	Calls    []string
	Draws    []*Renderable
	Uploads  int
	Uniforms map[string]any

	// FailShaders makes UseShader fail for the listed shader IDs.
	FailShaders map[int]bool

	// Record controls whether Calls is filled; Draws and Uploads are always kept.
	Record bool
}

var _ Device = &NullDevice{}

// NewNullDevice creates a recording null device.
//
// Returns:
//   - *NullDevice: the device
func NewNullDevice() *NullDevice {
	return &NullDevice{
		Uniforms:    make(map[string]any),
		FailShaders: make(map[int]bool),
		Record:      true,
	}
}

func (d *NullDevice) record(format string, args ...any) {
	if d.Record {
		d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
	}
}

// Reset drops everything recorded so far.
func (d *NullDevice) Reset() {
	d.Calls = d.Calls[:0]
	d.Draws = d.Draws[:0]
	d.Uploads = 0
	clear(d.Uniforms)
}

func (d *NullDevice) SetUniform(s shader.Shader, name string, value any) {
	d.Uniforms[name] = value
	d.record("uniform %s", name)
}

func (d *NullDevice) BindTexture(s shader.Shader, name string, unit int, tex texture.Texture) {
	d.record("texture %s %d", name, unit)
}

func (d *NullDevice) UseShader(s shader.Shader) error {
	if d.FailShaders[s.ID()] {
		return fmt.Errorf("%w: %s does not compile", shader.ErrShaderNotReady, s.Signature())
	}
	d.record("shader %d", s.ID())
	return nil
}

func (d *NullDevice) BindMaterial(s shader.Shader, m material.Material) (int, error) {
	if m == nil {
		return 0, nil
	}
	d.record("material %d", m.ID())
	return len(m.TextureNames()), nil
}

func (d *NullDevice) BindMesh(m model.Mesh) error {
	d.record("mesh %d", m.ID())
	return nil
}

func (d *NullDevice) UpdateTransformBlock(b *uniform_block.TransformBlock) error {
	d.Uploads++
	d.record("upload block %d", b.Index())
	return nil
}

func (d *NullDevice) BindTransformBlock(b *uniform_block.TransformBlock, s shader.Shader) {
	d.record("block %d", b.Index())
}

func (d *NullDevice) SetMatrixUniforms(s shader.Shader, ms []mgl32.Mat4) {
	d.record("matrices %d", len(ms))
}

func (d *NullDevice) SetRenderStates(m *render_data.RenderModes) {
	d.record("set states %#x", m.RenderFlags())
}

func (d *NullDevice) RestoreRenderStates(m *render_data.RenderModes) {
	d.record("restore states %#x", m.RenderFlags())
}

func (d *NullDevice) Draw(r *Renderable, s shader.Shader) error {
	d.Draws = append(d.Draws, r)
	d.record("draw %d", r.seq)
	return nil
}
