package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
)

// ShadowMapResolution is the default width and height in texels of shadow depth
// textures. WithShadowResolution overrides it per light.
const ShadowMapResolution uint32 = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units)
// used for the directional light shadow frustum.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the near plane of light cameras.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the far plane of directional light cameras. Spot lights use
// their range instead.
const DefaultShadowFar float32 = 200.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001

// ShadowMap is the per-light shadow state: the depth render texture the shadow pass
// renders into and the light camera used for that pass.
type ShadowMap struct {
	Texture    texture.RenderTexture
	View       mgl32.Mat4
	Projection mgl32.Mat4

	// HalfExtent bounds the orthographic box of directional lights.
	HalfExtent float32
}

// ViewProj returns the light-space view-projection matrix sampled by lit shaders.
//
// Returns:
//   - mgl32.Mat4: projection * view
func (s *ShadowMap) ViewProj() mgl32.Mat4 {
	return s.Projection.Mul4(s.View)
}

// UpdateShadowCamera recomputes the light camera of a shadow-casting light. The
// directional light camera is an orthographic box of the shadow map's HalfExtent
// around center; the spot light camera is a perspective frustum covering the outer cone.
//
// Parameters:
//   - l: the light
//   - center: the world-space point directional shadows are centered on
//
// Returns:
//   - *ShadowMap: the updated shadow map, or nil if the light casts no shadows
func UpdateShadowCamera(l Light, center mgl32.Vec3) *ShadowMap {
	if !l.CastsShadows() {
		return nil
	}
	sm := l.ShadowMap()
	dir := l.Direction()
	up := mgl32.Vec3{0, 1, 0}
	// an up vector parallel to the light breaks the look-at basis
	if absF32(dir.Y()) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}

	switch l.Type() {
	case LightTypeDirectional:
		eye := center.Sub(dir.Mul(DefaultShadowFar * 0.5))
		sm.View = mgl32.LookAtV(eye, center, up)
		h := sm.HalfExtent
		sm.Projection = mgl32.Ortho(-h, h, -h, h, DefaultShadowNear, DefaultShadowFar)
	case LightTypeSpot:
		pos := l.Position()
		sm.View = mgl32.LookAtV(pos, pos.Add(dir), up)
		fov := 2 * float32(math.Acos(float64(l.OuterCone())))
		sm.Projection = mgl32.Perspective(fov, 1, DefaultShadowNear, l.Range())
	}
	return sm
}

// absF32 returns the absolute value of a float32.
func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
