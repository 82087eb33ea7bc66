package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LightBuilderOption configures a Light during NewLight.
type LightBuilderOption func(*lightImpl)

// WithPosition sets the world-space position. Directional lights ignore it.
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = mgl32.Vec3{x, y, z}
	}
}

// WithDirection sets the direction the light points along, normalized. Point lights
// ignore it.
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalize3(x, y, z)
	}
}

// WithColor sets the linear RGB color uploaded as u_<class>[i].color.
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = mgl32.Vec3{r, g, b}
	}
}

// WithIntensity sets the scalar multiplier applied to the color.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange sets the attenuation distance of point and spot lights. A spot light's
// shadow camera uses it as its far plane.
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightRange = lightRange
	}
}

// WithSpotCone sets the inner and outer cone half-angles of a spot light.
//
// Parameters:
//   - innerDeg: inner half-angle in degrees, full intensity inside it
//   - outerDeg: outer half-angle in degrees, zero intensity outside it
//
// Returns:
//   - LightBuilderOption: the option, storing both angles as cosines
func WithSpotCone(innerDeg, outerDeg float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.innerCone = cosDeg(innerDeg)
		l.outerCone = cosDeg(outerDeg)
	}
}

// WithEnabled sets whether the light takes part in the light descriptor. Lights are
// enabled by default.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// WithCastsShadows makes a directional or spot light render a shadow map each frame.
// Point lights ignore it.
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.castsShadows = castsShadows
	}
}

// WithShadowResolution sets the width and height in texels of the light's depth
// texture. It only takes effect before the shadow map is first created.
//
// Parameters:
//   - texels: the texture size, clamped to at least 1
//
// Returns:
//   - LightBuilderOption: the option
func WithShadowResolution(texels uint32) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadowResolution = max(texels, 1)
	}
}

// WithShadowExtent sets the half-extent in world units of a directional light's
// orthographic shadow box. Non-positive values keep the default.
func WithShadowExtent(halfExtent float32) LightBuilderOption {
	return func(l *lightImpl) {
		if halfExtent > 0 {
			l.shadowExtent = halfExtent
		}
	}
}

// normalize3 returns the unit vector of (x, y, z), or zero for a zero vector.
func normalize3(x, y, z float32) mgl32.Vec3 {
	v := mgl32.Vec3{x, y, z}
	if v.Len() == 0 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}

func cosDeg(deg float32) float32 {
	return float32(math.Cos(float64(deg) * math.Pi / 180.0))
}
