package labrender

import (
	"testing"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var primitiveCases = []struct {
	name string
	gen  func() Geometry
}{
	{"sphere", func() Geometry { return NewSphere(1, 16, 8, false) }},
	{"sphere-uvw", func() Geometry { return NewSphere(2.5, 7, 5, true) }},
	{"sphere-sector", func() Geometry { return NewSphereSector(1, 12, 6, 0.3, math.Pi, 0.2, math.Pi/2, false) }},
	{"sphere-degenerate", func() Geometry { return NewSphere(1, 0, -4, false) }},
	{"box", func() Geometry { return NewBox(1, 2, 3, 2, 3, 4, false, false) }},
	{"box-insideout", func() Geometry { return NewBox(1, 2, 3, 2, 3, 4, true, false) }},
	{"box-uvw", func() Geometry { return NewBox(1, 1, 1, 1, 1, 1, false, true) }},
	{"box-degenerate", func() Geometry { return NewBox(1, 1, 1, 0, -1, 0, false, false) }},
	{"skybox", NewSkyBox},
	{"plane", func() Geometry { return NewPlane(2, 3, 4, 5) }},
	{"plane-degenerate", func() Geometry { return NewPlane(1, 1, 0, 0) }},
	{"cylinder", func() Geometry { return NewCylinder(1, 1, 2, 16, 2, false) }},
	{"cone", func() Geometry { return NewCylinder(0, 1.5, 2, 12, 3, false) }},
	{"frustum-open", func() Geometry { return NewCylinder(0.5, 1, 1, 8, 1, true) }},
	{"cylinder-degenerate", func() Geometry { return NewCylinder(1, 2, 0, 1, 0, false) }},
	{"icosahedron", func() Geometry { return NewIcosahedron(3) }},
	{"quad", NewFullScreenQuad},
}

func TestPrimitivesDeterministic(t *testing.T) {
	for _, tc := range primitiveCases {
		assert.Equal(t, tc.gen(), tc.gen(), tc.name)
	}
}

func TestPrimitivesValid(t *testing.T) {
	for _, tc := range primitiveCases {
		g := tc.gen()
		require.NoError(t, g.Validate(), tc.name)
		assert.True(t, g.Layout.Has(AttrPosition), tc.name)
		assert.NotZero(t, g.NumTriangles(), tc.name)
		for i, v := range g.Vertices {
			assert.True(t, boxNear(g.Bounds, v.Position), "%s: vertex %d %v outside %v", tc.name, i, v.Position, g.Bounds)
		}
	}
}

// TestPrimitivesWinding checks every non-degenerate triangle is counter-clockwise
// when viewed from the side its vertex normals point to.
func TestPrimitivesWinding(t *testing.T) {
	for _, tc := range primitiveCases {
		g := tc.gen()
		if !g.Layout.Has(AttrNormal) {
			continue
		}
		for i := 0; i < g.NumTriangles(); i++ {
			tri := g.Triangle(i)
			face := ms3.Cross(ms3.Sub(tri[1].Position, tri[0].Position), ms3.Sub(tri[2].Position, tri[0].Position))
			if ms3.Norm(face) < 1e-6 {
				continue // Collapsed at a pole.
			}
			n := ms3.Add(ms3.Add(tri[0].Normal, tri[1].Normal), tri[2].Normal)
			if !assert.Greater(t, ms3.Dot(face, n), float32(0), "%s: triangle %d wound against its normals", tc.name, i) {
				break
			}
		}
	}
}

func TestQuadWinding(t *testing.T) {
	g := NewFullScreenQuad()
	for i := 0; i < g.NumTriangles(); i++ {
		tri := g.Triangle(i)
		face := ms3.Cross(ms3.Sub(tri[1].Position, tri[0].Position), ms3.Sub(tri[2].Position, tri[0].Position))
		assert.Greater(t, face.Z, float32(0))
	}
}

func TestSphereCounts(t *testing.T) {
	g := NewSphere(1, 16, 8, false)
	assert.Equal(t, (16+1)*(8+1), g.NumVertices())
	assert.Len(t, g.Indices, 16*8*6)
	assert.Equal(t, AttrPosition|AttrNormal|AttrTexCoord, g.Layout)
	for _, v := range g.Vertices {
		assert.InDelta(t, 1, ms3.Norm(v.Position), 1e-5)
	}

	g = NewSphere(1, 1, 1, true)
	assert.Equal(t, (3+1)*(2+1), g.NumVertices(), "segments clamp to 3x2")
	assert.Equal(t, AttrPosition|AttrNormal|AttrTexCoord3, g.Layout)
	for _, v := range g.Vertices {
		assert.Equal(t, v.Normal, v.UVW)
	}

	g = NewSphere(4, 8, 4, false)
	assert.Equal(t, float32(4), g.Bounds.Max.X)
	assert.Equal(t, float32(-4), g.Bounds.Min.Y)
}

func TestFullScreenQuad(t *testing.T) {
	g := NewFullScreenQuad()
	assert.Equal(t, 6, g.NumVertices())
	assert.False(t, g.Indexed())
	assert.Equal(t, 2, g.NumTriangles())
	var area float32
	for i := 0; i < g.NumTriangles(); i++ {
		tri := g.Triangle(i)
		face := ms3.Cross(ms3.Sub(tri[1].Position, tri[0].Position), ms3.Sub(tri[2].Position, tri[0].Position))
		area += ms3.Norm(face) / 2
		for _, v := range tri {
			assert.Equal(t, float32(1), math.Abs(v.Position.X))
			assert.Equal(t, float32(1), math.Abs(v.Position.Y))
		}
	}
	assert.InDelta(t, 4, area, 1e-6, "two triangles must cover [-1,1]²")
}

func TestIcosahedron(t *testing.T) {
	for _, r := range []float32{0.5, 1, 7.25} {
		g := NewIcosahedron(r)
		assert.Equal(t, 12, g.NumVertices())
		assert.Len(t, g.Indices, 60)
		for _, v := range g.Vertices {
			assert.InDelta(t, r, ms3.Norm(v.Position), float64(1e-5*r))
		}
	}
}

func TestBoxInsideOutNormalsOpposite(t *testing.T) {
	const segs = 3
	outside := NewBox(1, 2, 3, segs, segs, segs, false, false)
	inside := NewBox(1, 2, 3, segs, segs, segs, true, false)
	require.Equal(t, outside.NumVertices(), inside.NumVertices())
	require.Equal(t, outside.Indices, inside.Indices, "winding must not change")
	assert.Equal(t, AttrPosition|AttrNormal, inside.Layout)
	perFace := (segs + 1) * (segs + 1)
	for face := 0; face < 6; face++ {
		// The inside-out face with the opposite slot lies where the outside face lies.
		opposite := face ^ 1
		for j := 0; j < perFace; j++ {
			vo := outside.Vertices[face*perFace+j]
			vi := inside.Vertices[opposite*perFace+j]
			assert.Equal(t, vo.Position, vi.Position, "face %d vertex %d", face, j)
			assert.Equal(t, ms3.Scale(-1, vo.Normal), vi.Normal, "face %d vertex %d", face, j)
		}
	}
	for _, v := range inside.Vertices {
		assert.Less(t, ms3.Dot(v.Position, v.Normal), float32(0), "inside-out normals point inward")
	}
	for _, v := range outside.Vertices {
		assert.Greater(t, ms3.Dot(v.Position, v.Normal), float32(0))
	}
}

func TestBoxCounts(t *testing.T) {
	g := NewBox(1, 1, 1, 2, 3, 4, false, false)
	// Faces: ±Y sweep XZ, ±X sweep YZ, ±Z sweep XY.
	wantVerts := 2 * ((2+1)*(4+1) + (3+1)*(4+1) + (2+1)*(3+1))
	wantIdx := 6 * 2 * (2*4 + 3*4 + 2*3)
	assert.Equal(t, wantVerts, g.NumVertices())
	assert.Len(t, g.Indices, wantIdx)

	g = NewBox(2, 4, 8, 1, 1, 1, false, true)
	for _, v := range g.Vertices {
		assert.Equal(t, float32(1), max(math.Abs(v.UVW.X), math.Abs(v.UVW.Y), math.Abs(v.UVW.Z)))
	}
}

func TestPlane(t *testing.T) {
	g := NewPlane(2, 3, 4, 5)
	assert.Equal(t, 5*6, g.NumVertices())
	assert.Equal(t, ms3.Box{Min: ms3.Vec{X: -2, Z: -3}, Max: ms3.Vec{X: 2, Z: 3}}, g.Bounds)
	for _, v := range g.Vertices {
		assert.Zero(t, v.Position.Y)
		assert.Equal(t, ms3.Vec{Y: 1}, v.Normal)
	}
}

func TestCylinderCaps(t *testing.T) {
	const radial, hsegs = 10, 2
	side := (radial + 1) * (hsegs + 1)
	sideIdx := 6 * radial * hsegs
	capIdx := 3 * (radial - 2)

	open := NewCylinder(1, 1, 2, radial, hsegs, true)
	assert.Equal(t, side, open.NumVertices())
	assert.Len(t, open.Indices, sideIdx)

	closed := NewCylinder(1, 1, 2, radial, hsegs, false)
	assert.Equal(t, side+2*radial, closed.NumVertices())
	assert.Len(t, closed.Indices, sideIdx+2*capIdx)
	var up, down int
	for _, v := range closed.Vertices[side:] {
		switch v.Normal {
		case ms3.Vec{Y: 1}:
			up++
			assert.Equal(t, float32(1), v.Position.Y)
		case ms3.Vec{Y: -1}:
			down++
			assert.Equal(t, float32(-1), v.Position.Y)
		}
	}
	assert.Equal(t, radial, up)
	assert.Equal(t, radial, down)

	cone := NewCylinder(0, 1, 2, radial, hsegs, false)
	assert.Len(t, cone.Indices, sideIdx+capIdx, "zero radius end has no cap")

	flat := NewCylinder(1, 1, 0, radial, hsegs, true)
	assert.Greater(t, flat.Bounds.Max.Y, float32(0), "height clamped above zero")

	wide := NewCylinder(0.5, 2, 1, radial, hsegs, true)
	assert.Equal(t, float32(2), wide.Bounds.Max.X)
}

func TestLayout(t *testing.T) {
	l := AttrPosition | AttrNormal | AttrTexCoord | AttrColor | AttrTexCoord3
	assert.Equal(t, "PNTC3", l.String())
	assert.Equal(t, "P3", (AttrTexCoord3 | AttrPosition).String())
	assert.Equal(t, 3+3+2+4+3, l.Stride())
	sems := (AttrPosition | AttrTexCoord).Semantics()
	require.Len(t, sems, 2)
	assert.Equal(t, "a_position", sems[0].Name)
	assert.Equal(t, 0, sems[0].Location)
	assert.Equal(t, "a_uv", sems[1].Name)
	assert.Equal(t, 1, sems[1].Location)
}

func TestInterleaved(t *testing.T) {
	g := NewFullScreenQuad()
	g.SetColor([4]float32{1, 0.5, 0.25, 1})
	assert.True(t, g.Layout.Has(AttrColor))
	data := g.AppendInterleaved(nil)
	require.Len(t, data, g.NumVertices()*g.Stride())
	// P(3) T(2) C(4) for the first vertex.
	assert.Equal(t, []float32{-1, -1, 0, 0, 0, 1, 0.5, 0.25, 1}, data[:9])
}

func TestValidate(t *testing.T) {
	g := NewIcosahedron(1)
	g.Indices[7] = 12
	assert.Error(t, g.Validate())
	g = NewIcosahedron(1)
	g.Indices = g.Indices[:len(g.Indices)-1]
	assert.Error(t, g.Validate())
	g = NewIcosahedron(1)
	g.Layout = AttrNormal
	assert.Error(t, g.Validate())
}

func boxNear(b ms3.Box, p ms3.Vec) bool {
	const tol = 1e-5
	return p.X >= b.Min.X-tol && p.Y >= b.Min.Y-tol && p.Z >= b.Min.Z-tol &&
		p.X <= b.Max.X+tol && p.Y <= b.Max.Y+tol && p.Z <= b.Max.Z+tol
}
