package glrender

import (
	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// ViewMatrices is the transform state for drawing one drawable.
// Matrices follow the column-vector convention: a point p is transformed as M*p.
type ViewMatrices struct {
	Model               ms3.Mat4
	View                ms3.Mat4
	Projection          ms3.Mat4
	ModelView           ms3.Mat4
	ModelViewProjection ms3.Mat4
	// ViewRect is the viewport as x, y, width, height in pixels.
	ViewRect [4]float32
}

// NewViewMatrices derives the combined matrices from model, view and projection.
func NewViewMatrices(model, view, projection ms3.Mat4, viewRect [4]float32) ViewMatrices {
	mv := ms3.MulMat4(view, model)
	return ViewMatrices{
		Model:               model,
		View:                view,
		Projection:          projection,
		ModelView:           mv,
		ModelViewProjection: ms3.MulMat4(projection, mv),
		ViewRect:            viewRect,
	}
}

// ViewProjection returns Projection*View.
func (vm ViewMatrices) ViewProjection() ms3.Mat4 { return ms3.MulMat4(vm.Projection, vm.View) }

// SkyModelView returns the model-view and model-view-projection matrices
// for sky geometry: translation is removed so the sky stays centered on the viewer.
func (vm ViewMatrices) SkyModelView() (mv, mvp ms3.Mat4) {
	mv = StripTranslation(vm.ModelView)
	return mv, ms3.MulMat4(vm.Projection, mv)
}

// StripTranslation returns m with its translation column zeroed.
func StripTranslation(m ms3.Mat4) ms3.Mat4 {
	a := m.Array()
	a[3], a[7], a[11] = 0, 0, 0
	return ms3.NewMat4(a[:])
}

// Jacobian returns the inverse-transpose of model with translation removed,
// the matrix that carries normals under non-uniform scale. A singular model
// matrix yields the identity.
func Jacobian(model ms3.Mat4) ms3.Mat4 {
	m := StripTranslation(model)
	if math.Abs(m.Determinant()) < 1e-12 {
		return ms3.IdentityMat4()
	}
	return m.Inverse().Transpose()
}

// PerspectiveMat4 returns a right-handed OpenGL projection with vertical
// field of view fovy in radians, mapping depth to [-1,1].
func PerspectiveMat4(fovy, aspect, near, far float32) ms3.Mat4 {
	f := 1 / math.Tan(fovy/2)
	nf := 1 / (near - far)
	return ms3.NewMat4([]float32{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, 2 * far * near * nf,
		0, 0, -1, 0,
	})
}

// LookAtMat4 returns a view matrix for a camera at eye looking at target.
func LookAtMat4(eye, target, up ms3.Vec) ms3.Mat4 {
	f := ms3.Unit(ms3.Sub(target, eye))
	s := ms3.Unit(ms3.Cross(f, up))
	u := ms3.Cross(s, f)
	return ms3.NewMat4([]float32{
		s.X, s.Y, s.Z, -ms3.Dot(s, eye),
		u.X, u.Y, u.Z, -ms3.Dot(u, eye),
		-f.X, -f.Y, -f.Z, ms3.Dot(f, eye),
		0, 0, 0, 1,
	})
}

// TranslationMat4 returns a matrix translating by t.
func TranslationMat4(t ms3.Vec) ms3.Mat4 {
	return ms3.NewMat4([]float32{
		1, 0, 0, t.X,
		0, 1, 0, t.Y,
		0, 0, 1, t.Z,
		0, 0, 0, 1,
	})
}
