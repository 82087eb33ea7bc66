package render_data

// RenderOrder partitions draws into buckets that are issued in ascending order.
type RenderOrder int

const (
	RenderOrderStencil     RenderOrder = -1000
	RenderOrderBackground  RenderOrder = 1000
	RenderOrderGeometry    RenderOrder = 2000
	RenderOrderTransparent RenderOrder = 3000
	RenderOrderOverlay     RenderOrder = 4000
)

// RenderMask selects the eyes an item renders into.
type RenderMask uint8

const (
	RenderMaskLeft  RenderMask = 1 << iota
	RenderMaskRight RenderMask = 1 << iota
	RenderMaskBoth             = RenderMaskLeft | RenderMaskRight
)

// CullFace selects which polygon faces are discarded.
type CullFace uint8

const (
	CullBack CullFace = iota
	CullFront
	CullNone
)

// DrawMode is the primitive topology of a draw.
type DrawMode uint8

const (
	DrawPoints DrawMode = iota
	DrawLines
	DrawLineStrip
	DrawLineLoop
	DrawTriangles
	DrawTriangleStrip
	DrawTriangleFan
)

// BlendFunc is a source or destination blend factor.
type BlendFunc uint8

const (
	BlendZero BlendFunc = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendDstColor
	BlendOneMinusDstColor
)

// CompareFunc is a depth or stencil comparison.
type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLEqual
	CompareGreater
	CompareNotEqual
	CompareGEqual
	CompareAlways
)

// StencilOp is the action taken on the stencil buffer.
type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncr
	StencilIncrWrap
	StencilDecr
	StencilDecrWrap
	StencilInvert
)

// bit positions of the RenderFlags digest
const (
	flagUseLights = 1 << iota
	flagUseLightmap
	flagCastShadows
	flagAlphaBlend
	flagAlphaToCoverage
	flagInvertCoverageMask
	flagDepthTest
	flagDepthMask
	flagOffset
	flagStencilTest

	shiftCullFace    = 10 // 2 bits
	shiftDrawMode    = 12 // 3 bits
	shiftSrcBlend    = 15 // 4 bits
	shiftDstBlend    = 19 // 4 bits
	shiftRenderMask  = 23 // 2 bits
	shiftStencilFunc = 25 // 3 bits
	shiftStencilFail = 28 // 3 bits
	shiftDepthFail   = 31 // 3 bits
	shiftStencilPass = 34 // 3 bits
	shiftRenderOrder = 40 // 24 bits, biased
	renderOrderBias  = 1 << 23
)

// RenderModes holds the fixed-function state and shader feature toggles of one
// render pass. It is a plain value; copy it freely.
type RenderModes struct {
	useLights          bool
	useLightmap        bool
	castShadows        bool
	alphaBlend         bool
	alphaToCoverage    bool
	invertCoverageMask bool
	depthTest          bool
	depthMask          bool
	offset             bool
	stencilTest        bool

	cullFace    CullFace
	drawMode    DrawMode
	renderOrder RenderOrder
	renderMask  RenderMask

	sourceBlendFunc BlendFunc
	destBlendFunc   BlendFunc

	stencilFunc     CompareFunc
	stencilRef      int32
	stencilFuncMask uint32
	stencilMask     uint32
	stencilFail     StencilOp
	depthFail       StencilOp
	stencilPass     StencilOp

	offsetFactor   float32
	offsetUnits    float32
	sampleCoverage float32
}

// DefaultRenderModes returns the modes of a freshly authored pass: opaque geometry,
// depth tested and written, back faces culled, premultiplied blending, lit and
// shadow casting, visible to both eyes.
//
// Returns:
//   - RenderModes: the default modes
func DefaultRenderModes() RenderModes {
	return RenderModes{
		useLights:       true,
		castShadows:     true,
		alphaBlend:      true,
		depthTest:       true,
		depthMask:       true,
		cullFace:        CullBack,
		drawMode:        DrawTriangles,
		renderOrder:     RenderOrderGeometry,
		renderMask:      RenderMaskBoth,
		sourceBlendFunc: BlendOne,
		destBlendFunc:   BlendOneMinusSrcAlpha,
		stencilFunc:     CompareAlways,
		stencilFuncMask: 0xFF,
		stencilMask:     0xFF,
		sampleCoverage:  1,
	}
}

// RenderFlags packs every boolean and small enum into a 64-bit digest. Two modes with
// equal flags render identically apart from stencil reference/masks, polygon offset
// amounts and sample coverage.
//
// Returns:
//   - uint64: the digest
func (m *RenderModes) RenderFlags() uint64 {
	var f uint64
	for bit, on := range [...]bool{
		m.useLights, m.useLightmap, m.castShadows, m.alphaBlend, m.alphaToCoverage,
		m.invertCoverageMask, m.depthTest, m.depthMask, m.offset, m.stencilTest,
	} {
		if on {
			f |= 1 << uint(bit)
		}
	}
	f |= uint64(m.cullFace&0x3) << shiftCullFace
	f |= uint64(m.drawMode&0x7) << shiftDrawMode
	f |= uint64(m.sourceBlendFunc&0xF) << shiftSrcBlend
	f |= uint64(m.destBlendFunc&0xF) << shiftDstBlend
	f |= uint64(m.renderMask&0x3) << shiftRenderMask
	f |= uint64(m.stencilFunc&0x7) << shiftStencilFunc
	f |= uint64(m.stencilFail&0x7) << shiftStencilFail
	f |= uint64(m.depthFail&0x7) << shiftDepthFail
	f |= uint64(m.stencilPass&0x7) << shiftStencilPass
	f |= uint64(uint32(int32(m.renderOrder)+renderOrderBias)&0xFFFFFF) << shiftRenderOrder
	return f
}

func (m *RenderModes) UseLights() bool { return m.useLights }
func (m *RenderModes) UseLightmap() bool { return m.useLightmap }
func (m *RenderModes) CastShadows() bool { return m.castShadows }
func (m *RenderModes) AlphaBlend() bool { return m.alphaBlend }
func (m *RenderModes) AlphaToCoverage() bool { return m.alphaToCoverage }
func (m *RenderModes) InvertCoverageMask() bool { return m.invertCoverageMask }
func (m *RenderModes) DepthTest() bool { return m.depthTest }
func (m *RenderModes) DepthMask() bool { return m.depthMask }
func (m *RenderModes) Offset() bool { return m.offset }
func (m *RenderModes) StencilTest() bool { return m.stencilTest }
func (m *RenderModes) CullFace() CullFace { return m.cullFace }
func (m *RenderModes) DrawMode() DrawMode { return m.drawMode }
func (m *RenderModes) RenderOrder() RenderOrder { return m.renderOrder }
func (m *RenderModes) RenderMask() RenderMask { return m.renderMask }
func (m *RenderModes) SourceBlendFunc() BlendFunc { return m.sourceBlendFunc }
func (m *RenderModes) DestBlendFunc() BlendFunc { return m.destBlendFunc }
func (m *RenderModes) StencilFunc() CompareFunc { return m.stencilFunc }
func (m *RenderModes) StencilRef() int32 { return m.stencilRef }
func (m *RenderModes) StencilFuncMask() uint32 { return m.stencilFuncMask }
func (m *RenderModes) StencilMask() uint32 { return m.stencilMask }
func (m *RenderModes) OffsetFactor() float32 { return m.offsetFactor }
func (m *RenderModes) OffsetUnits() float32 { return m.offsetUnits }
func (m *RenderModes) SampleCoverage() float32 { return m.sampleCoverage }

// StencilOps returns the stencil-fail, depth-fail and pass operations.
func (m *RenderModes) StencilOps() (StencilOp, StencilOp, StencilOp) {
	return m.stencilFail, m.depthFail, m.stencilPass
}

// SetUseLights toggles lighting. Lighting is part of the shader variant, so the
// return value tells the caller whether the owning pass must be marked dirty.
//
// Parameters:
//   - enable: true to light the pass
//
// Returns:
//   - bool: true if the value changed
func (m *RenderModes) SetUseLights(enable bool) bool {
	changed := m.useLights != enable
	m.useLights = enable
	return changed
}

// SetUseLightmap toggles lightmap sampling.
//
// Parameters:
//   - enable: true to sample the lightmap
//
// Returns:
//   - bool: true if the value changed
func (m *RenderModes) SetUseLightmap(enable bool) bool {
	changed := m.useLightmap != enable
	m.useLightmap = enable
	return changed
}

// SetCastShadows toggles shadow casting.
//
// Parameters:
//   - enable: true to render into shadow maps
//
// Returns:
//   - bool: true if the value changed
func (m *RenderModes) SetCastShadows(enable bool) bool {
	changed := m.castShadows != enable
	m.castShadows = enable
	return changed
}

func (m *RenderModes) SetAlphaBlend(enable bool) { m.alphaBlend = enable }
func (m *RenderModes) SetAlphaToCoverage(enable bool) { m.alphaToCoverage = enable }
func (m *RenderModes) SetInvertCoverageMask(enable bool) { m.invertCoverageMask = enable }
func (m *RenderModes) SetDepthTest(enable bool) { m.depthTest = enable }
func (m *RenderModes) SetDepthMask(enable bool) { m.depthMask = enable }
func (m *RenderModes) SetCullFace(face CullFace) { m.cullFace = face }
func (m *RenderModes) SetDrawMode(mode DrawMode) { m.drawMode = mode }
func (m *RenderModes) SetRenderOrder(order RenderOrder) { m.renderOrder = order }
func (m *RenderModes) SetRenderMask(mask RenderMask) { m.renderMask = mask }
func (m *RenderModes) SetSampleCoverage(v float32) { m.sampleCoverage = v }

// SetBlendFunc sets the source and destination blend factors.
func (m *RenderModes) SetBlendFunc(src, dst BlendFunc) {
	m.sourceBlendFunc = src
	m.destBlendFunc = dst
}

// SetOffset enables polygon offset with the given factor and units, or disables it.
func (m *RenderModes) SetOffset(enable bool, factor, units float32) {
	m.offset = enable
	m.offsetFactor = factor
	m.offsetUnits = units
}

// SetStencilTest enables or disables the stencil test.
func (m *RenderModes) SetStencilTest(enable bool) {
	m.stencilTest = enable
}

// SetStencilFunc sets the stencil comparison, reference value and comparison mask.
func (m *RenderModes) SetStencilFunc(fn CompareFunc, ref int32, mask uint32) {
	m.stencilFunc = fn
	m.stencilRef = ref
	m.stencilFuncMask = mask
}

// SetStencilOp sets the stencil-fail, depth-fail and pass operations.
func (m *RenderModes) SetStencilOp(sfail, dpfail, dppass StencilOp) {
	m.stencilFail = sfail
	m.depthFail = dpfail
	m.stencilPass = dppass
}

// SetStencilMask sets the stencil write mask.
func (m *RenderModes) SetStencilMask(mask uint32) {
	m.stencilMask = mask
}

// IsTransparent reports whether the render order falls in the painter's-order range.
func (m *RenderModes) IsTransparent() bool {
	return m.renderOrder >= RenderOrderTransparent
}
