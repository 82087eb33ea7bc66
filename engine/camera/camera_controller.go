package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the camera's positional state. The camera reads position and
// target from its controller whenever it updates its matrices.
//
// The controller orbits a target on spherical coordinates (radius, azimuth,
// elevation). Demo scenes and headless renders drive it programmatically; there is
// no input binding.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: the target
	Target() mgl32.Vec3

	// SetTarget sets the orbit pivot and recomputes the position.
	//
	// Parameters:
	//   - target: the world-space pivot
	SetTarget(target mgl32.Vec3)

	// Orbit rotates the camera around the target. Elevation is clamped so the camera
	// never crosses the poles.
	//
	// Parameters:
	//   - dAzimuth: horizontal rotation in radians
	//   - dElevation: vertical rotation in radians
	Orbit(dAzimuth, dElevation float32)

	// Radius returns the current orbit radius (distance from target).
	//
	// Returns:
	//   - float32: the radius
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the controller's bounds.
	//
	// Parameters:
	//   - radius: the new distance from the target
	SetRadius(radius float32)
}
