package labaux

import (
	"github.com/LT-Kerrigan/LabRender/glrender"
	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// OrbitCamera looks at Target from Distance along the direction given by
// Yaw and Pitch in radians. Mouse drags rotate and scrolling zooms.
type OrbitCamera struct {
	Target      ms3.Vec
	Yaw         float32
	Pitch       float32
	Distance    float32
	MinDistance float32
	MaxDistance float32
	FOV         float32 // Vertical field of view in radians.
	Near, Far   float32
}

const (
	orbitSensitivity = 0.005
	maxPitch         = math.Pi/2 - 0.01
)

// NewOrbitCamera configures a camera from cfg. With no configured distance
// the camera frames bounds.
func NewOrbitCamera(cfg CameraConfig, bounds ms3.Box) OrbitCamera {
	const deg = math.Pi / 180
	diag := ms3.Norm(ms3.Sub(bounds.Max, bounds.Min))
	if diag == 0 {
		diag = 1
	}
	cam := OrbitCamera{
		Target:      ms3.Vec{X: cfg.Target[0], Y: cfg.Target[1], Z: cfg.Target[2]},
		Yaw:         cfg.Yaw * deg,
		Distance:    cfg.Distance,
		MinDistance: diag * 1e-5,
		MaxDistance: diag * 10,
		FOV:         cfg.FOV * deg,
		Near:        cfg.Near,
		Far:         cfg.Far,
	}
	if cam.Target == (ms3.Vec{}) {
		cam.Target = ms3.Scale(0.5, ms3.Add(bounds.Min, bounds.Max))
	}
	if cam.Distance <= 0 {
		cam.Distance = diag
	}
	cam.MaxDistance = max(cam.MaxDistance, cam.Distance)
	cam.Pitch = max(-maxPitch, min(maxPitch, cfg.Pitch*deg))
	return cam
}

// Rotate orbits by a cursor displacement in pixels. Pitch is clamped short of the poles.
func (c *OrbitCamera) Rotate(dx, dy float32) {
	c.Yaw += dx * orbitSensitivity
	c.Pitch -= dy * orbitSensitivity
	c.Pitch = max(-maxPitch, min(maxPitch, c.Pitch))
}

// Zoom moves the camera toward the target for positive scroll offsets.
func (c *OrbitCamera) Zoom(yoff float32) {
	c.Distance -= yoff * (c.Distance*0.1 + 0.01)
	c.Distance = max(c.MinDistance, min(c.MaxDistance, c.Distance))
}

// Eye returns the camera position.
func (c *OrbitCamera) Eye() ms3.Vec {
	sp, cp := math.Sincos(c.Pitch)
	sy, cy := math.Sincos(c.Yaw)
	dir := ms3.Vec{X: cp * sy, Y: sp, Z: cp * cy}
	return ms3.Sub(c.Target, ms3.Scale(c.Distance, dir))
}

// View returns the view matrix.
func (c *OrbitCamera) View() ms3.Mat4 {
	return glrender.LookAtMat4(c.Eye(), c.Target, ms3.Vec{Y: 1})
}

// Projection returns the perspective projection for a viewport of the given aspect ratio.
func (c *OrbitCamera) Projection(aspect float32) ms3.Mat4 {
	return glrender.PerspectiveMat4(c.FOV, aspect, c.Near, c.Far)
}
