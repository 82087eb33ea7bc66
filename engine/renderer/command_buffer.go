package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

// CommandKind identifies a recorded command.
type CommandKind int

const (
	CmdClear CommandKind = iota
	CmdViewport
	CmdFaceCulling
	CmdUseShader
	CmdSetModes
	CmdRestoreModes
	CmdBindMaterial
	CmdBindTexture
	CmdSetUniform
	CmdBindLightBuffer
	CmdBindMesh
	CmdUploadBlock
	CmdBindBlock
	CmdDraw
)

var commandNames = map[CommandKind]string{
	CmdClear:           "clear",
	CmdViewport:        "viewport",
	CmdFaceCulling:     "face-culling",
	CmdUseShader:       "use-shader",
	CmdSetModes:        "set-modes",
	CmdRestoreModes:    "restore-modes",
	CmdBindMaterial:    "bind-material",
	CmdBindTexture:     "bind-texture",
	CmdSetUniform:      "set-uniform",
	CmdBindLightBuffer: "bind-light-buffer",
	CmdBindMesh:        "bind-mesh",
	CmdUploadBlock:     "upload-block",
	CmdBindBlock:       "bind-block",
	CmdDraw:            "draw",
}

func (k CommandKind) String() string {
	if n, ok := commandNames[k]; ok {
		return n
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// ClearOp lists the attachments a clear command resets.
type ClearOp struct {
	Color      bool
	ColorValue common.Color
	Depth      bool
	Stencil    bool
}

// Command is one recorded operation. Only the fields of its Kind are set.
type Command struct {
	Kind CommandKind

	Shader   shader.Shader
	Modes    render_data.RenderModes
	Cull     render_data.CullFace
	Mesh     model.Mesh
	Material material.Material
	Texture  texture.Texture

	// Name is the uniform or sampler name, Unit its texture unit.
	Name  string
	Unit  int
	Value any

	// Data is an owned copy of uploaded bytes: a transform block or the light buffer.
	Data  []byte
	Block int

	// FirstInstance carries the draw's matrix offset inside the bound transform block.
	FirstInstance uint32
	IndexCount    uint32

	Clear    ClearOp
	Viewport [4]int
}

// CommandBuffer is the recording of one render target's pass.
type CommandBuffer struct {
	Target   *RenderTarget
	Width    int
	Height   int
	Commands []Command

	// InvalidateAttachments discards the attachments later passes do not sample.
	InvalidateAttachments bool
}

func (cb *CommandBuffer) add(c Command) {
	cb.Commands = append(cb.Commands, c)
}

// Count returns how many commands of a kind were recorded.
//
// Parameters:
//   - kind: the command kind
//
// Returns:
//   - int: the count
func (cb *CommandBuffer) Count(kind CommandKind) int {
	n := 0
	for _, c := range cb.Commands {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// CommandExecutor replays recorded command buffers on a GPU device. The
// wgpu_executor package implements it over WebGPU.
type CommandExecutor interface {
	// Compile builds the GPU module of a shader so failures surface at UseShader.
	//
	// Parameters:
	//   - s: the shader, whose source is WGSL
	//
	// Returns:
	//   - error: any compile error
	Compile(s shader.Shader) error

	// Execute encodes and submits a command buffer.
	//
	// Parameters:
	//   - cb: the recording
	//
	// Returns:
	//   - Fence: signaled once the GPU finished the submission
	//   - error: any encoding or submission error
	Execute(cb *CommandBuffer) (Fence, error)

	// ReadPixels copies the color of a render texture back to the CPU.
	//
	// Parameters:
	//   - rt: the render texture
	//
	// Returns:
	//   - []byte: RGBA8 rows
	//   - error: any readback error
	ReadPixels(rt texture.RenderTexture) ([]byte, error)

	// Release frees every GPU object the executor created.
	Release()
}
