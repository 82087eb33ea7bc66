package renderer

import "github.com/Carmen-Shannon/oxy-sg/engine/render_data"

// OpenGL enum values used by the raster backend. They match the values of
// github.com/go-gl/gl so a GLContext can pass them straight through.
const (
	glDepthTest              uint32 = 0x0B71
	glCullFace               uint32 = 0x0B44
	glBlend                  uint32 = 0x0BE2
	glPolygonOffsetFill      uint32 = 0x8037
	glStencilTest            uint32 = 0x0B90
	glSampleAlphaToCoverage  uint32 = 0x809E
	glSampleCoverage         uint32 = 0x80A0
	glFront                  uint32 = 0x0404
	glBack                   uint32 = 0x0405
	glCW                     uint32 = 0x0900
	glCCW                    uint32 = 0x0901
	glColorBufferBit         uint32 = 0x4000
	glDepthBufferBit         uint32 = 0x0100
	glStencilBufferBit       uint32 = 0x0400
	glUniformBuffer          uint32 = 0x8A11
	glTexture2D              uint32 = 0x0DE1
	glTexture0               uint32 = 0x84C0
	glAnySamplesPassed       uint32 = 0x8C2F
	glColorAttachment0       uint32 = 0x8CE0
	glDynamicDraw            uint32 = 0x88E8
	glStaticDraw             uint32 = 0x88E4
	glArrayBuffer            uint32 = 0x8892
	glElementArrayBuffer     uint32 = 0x8893
	glInvalidUniformLocation int32  = -1
)

// capabilities tracked by the state cache, in the order they are restored
var glCaps = []uint32{
	glDepthTest,
	glCullFace,
	glBlend,
	glPolygonOffsetFill,
	glStencilTest,
	glSampleAlphaToCoverage,
	glSampleCoverage,
}

var glCompareFuncs = [...]uint32{
	render_data.CompareNever:    0x0200,
	render_data.CompareLess:     0x0201,
	render_data.CompareEqual:    0x0202,
	render_data.CompareLEqual:   0x0203,
	render_data.CompareGreater:  0x0204,
	render_data.CompareNotEqual: 0x0205,
	render_data.CompareGEqual:   0x0206,
	render_data.CompareAlways:   0x0207,
}

var glBlendFuncs = [...]uint32{
	render_data.BlendZero:             0,
	render_data.BlendOne:              1,
	render_data.BlendSrcColor:         0x0300,
	render_data.BlendOneMinusSrcColor: 0x0301,
	render_data.BlendSrcAlpha:         0x0302,
	render_data.BlendOneMinusSrcAlpha: 0x0303,
	render_data.BlendDstAlpha:         0x0304,
	render_data.BlendOneMinusDstAlpha: 0x0305,
	render_data.BlendDstColor:         0x0306,
	render_data.BlendOneMinusDstColor: 0x0307,
}

var glStencilOps = [...]uint32{
	render_data.StencilKeep:     0x1E00,
	render_data.StencilZero:     0,
	render_data.StencilReplace:  0x1E01,
	render_data.StencilIncr:     0x1E02,
	render_data.StencilIncrWrap: 0x8507,
	render_data.StencilDecr:     0x1E03,
	render_data.StencilDecrWrap: 0x8508,
	render_data.StencilInvert:   0x150A,
}

var glDrawModes = [...]uint32{
	render_data.DrawPoints:        0,
	render_data.DrawLines:         1,
	render_data.DrawLineLoop:      2,
	render_data.DrawLineStrip:     3,
	render_data.DrawTriangles:     4,
	render_data.DrawTriangleStrip: 5,
	render_data.DrawTriangleFan:   6,
}
