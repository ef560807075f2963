package labrender

import (
	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const epsilon = 1e-5

// NewSphere returns a UV sphere of the given radius centered at the origin.
// widthSegments is raised to at least 3 and heightSegments to at least 2.
// When uvw is set vertices carry their unit direction as a cube map
// coordinate instead of a 2D texture coordinate.
func NewSphere(radius float32, widthSegments, heightSegments int, uvw bool) Geometry {
	return NewSphereSector(radius, widthSegments, heightSegments, 0, 2*math.Pi, 0, math.Pi, uvw)
}

// NewSphereSector returns the part of a UV sphere swept by azimuth
// [phiStart, phiStart+phiLength] and polar angle [thetaStart, thetaStart+thetaLength].
// Theta is measured from +Y. Lengths are expected to be positive.
func NewSphereSector(radius float32, widthSegments, heightSegments int, phiStart, phiLength, thetaStart, thetaLength float32, uvw bool) Geometry {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)
	g := Geometry{
		Layout:   AttrPosition | AttrNormal | AttrTexCoord,
		Vertices: make([]Vertex, 0, (widthSegments+1)*(heightSegments+1)),
		Indices:  make([]uint32, 0, 6*widthSegments*heightSegments),
		Bounds:   ms3.Box{Min: ms3.Vec{X: -radius, Y: -radius, Z: -radius}, Max: ms3.Vec{X: radius, Y: radius, Z: radius}},
	}
	if uvw {
		g.Layout = AttrPosition | AttrNormal | AttrTexCoord3
	}
	// d/dphi x d/dtheta points toward the center.
	g.appendGrid(widthSegments, heightSegments, true, func(u, v float32) Vertex {
		sinPhi, cosPhi := math.Sincos(phiStart + u*phiLength)
		sinTheta, cosTheta := math.Sincos(thetaStart + v*thetaLength)
		dir := ms3.Vec{X: -cosPhi * sinTheta, Y: cosTheta, Z: sinPhi * sinTheta}
		vert := Vertex{Position: ms3.Scale(radius, dir), Normal: dir}
		if uvw {
			vert.UVW = dir
		} else {
			vert.UV = ms2.Vec{X: u, Y: 1 - v}
		}
		return vert
	})
	return g
}

// boxFace is one side of a box: its normal axis and the two tangent axes
// the face grid is swept over.
type boxFace struct {
	n    int
	sign float32
	u, v int
	// flip is set when u×v points against the face normal.
	flip bool
}

// Face order is +Y -Y +X -X +Z -Z. Opposite faces are adjacent and share tangent axes.
var boxFaces = [6]boxFace{
	{n: 1, sign: 1, u: 0, v: 2, flip: true},
	{n: 1, sign: -1, u: 0, v: 2},
	{n: 0, sign: 1, u: 1, v: 2},
	{n: 0, sign: -1, u: 1, v: 2, flip: true},
	{n: 2, sign: 1, u: 0, v: 1},
	{n: 2, sign: -1, u: 0, v: 1, flip: true},
}

// NewBox returns an axis aligned box with the given half extents and per-axis
// segment counts, each raised to at least 1. Faces are emitted in the order
// +Y, -Y, +X, -X, +Z, -Z.
//
// When insideOut is set each face is placed on the opposite side of the box
// keeping its normal and winding, so all normals point into the box and
// triangles face the interior. Inside-out boxes without uvw carry no texture coordinate.
// When uvw is set vertices carry their position divided by the half extents
// as a cube map coordinate.
func NewBox(xHalf, yHalf, zHalf float32, xSegments, ySegments, zSegments int, insideOut, uvw bool) Geometry {
	half := [3]float32{xHalf, yHalf, zHalf}
	segs := [3]int{max(xSegments, 1), max(ySegments, 1), max(zSegments, 1)}
	g := Geometry{
		Bounds: ms3.Box{Min: ms3.Vec{X: -xHalf, Y: -yHalf, Z: -zHalf}, Max: ms3.Vec{X: xHalf, Y: yHalf, Z: zHalf}},
	}
	switch {
	case uvw:
		g.Layout = AttrPosition | AttrNormal | AttrTexCoord3
	case insideOut:
		g.Layout = AttrPosition | AttrNormal
	default:
		g.Layout = AttrPosition | AttrNormal | AttrTexCoord
	}
	for _, f := range boxFaces {
		side := f.sign
		if insideOut {
			side = -side
		}
		g.appendGrid(segs[f.u], segs[f.v], f.flip, func(u, v float32) Vertex {
			var p, n [3]float32
			p[f.n] = side * half[f.n]
			p[f.u] = (2*u - 1) * half[f.u]
			p[f.v] = (2*v - 1) * half[f.v]
			n[f.n] = f.sign
			vert := Vertex{Position: vec(p), Normal: vec(n)}
			switch {
			case uvw:
				vert.UVW = ms3.Vec{X: safeDiv(p[0], half[0]), Y: safeDiv(p[1], half[1]), Z: safeDiv(p[2], half[2])}
			case !insideOut:
				vert.UV = ms2.Vec{X: u, Y: 1 - v}
			}
			return vert
		})
	}
	return g
}

// NewSkyBox returns a unit inside-out box suitable for drawing with the sky role.
func NewSkyBox() Geometry {
	return NewBox(0.5, 0.5, 0.5, 1, 1, 1, true, false)
}

// NewPlane returns a grid on the XZ plane facing +Y with the given half extents.
func NewPlane(xHalf, zHalf float32, xSegments, zSegments int) Geometry {
	xSegments = max(xSegments, 1)
	zSegments = max(zSegments, 1)
	g := Geometry{
		Layout:   AttrPosition | AttrNormal | AttrTexCoord,
		Vertices: make([]Vertex, 0, (xSegments+1)*(zSegments+1)),
		Indices:  make([]uint32, 0, 6*xSegments*zSegments),
		Bounds:   ms3.Box{Min: ms3.Vec{X: -xHalf, Z: -zHalf}, Max: ms3.Vec{X: xHalf, Z: zHalf}},
	}
	g.appendGrid(xSegments, zSegments, true, func(u, v float32) Vertex {
		return Vertex{
			Position: ms3.Vec{X: (2*u - 1) * xHalf, Z: (2*v - 1) * zHalf},
			Normal:   ms3.Vec{Y: 1},
			UV:       ms2.Vec{X: u, Y: 1 - v},
		}
	})
	return g
}

// NewCylinder returns a Y-up cylinder or truncated cone centered at the origin.
// radialSegments is raised to at least 3 and heightSegments to at least 1.
// Caps are generated for each end with a non-zero radius unless openEnded is set.
func NewCylinder(radiusTop, radiusBottom, height float32, radialSegments, heightSegments int, openEnded bool) Geometry {
	radialSegments = max(radialSegments, 3)
	heightSegments = max(heightSegments, 1)
	height = max(height, epsilon)
	r := max(radiusTop, radiusBottom)
	g := Geometry{
		Layout: AttrPosition | AttrNormal | AttrTexCoord,
		Bounds: ms3.Box{Min: ms3.Vec{X: -r, Y: -height / 2, Z: -r}, Max: ms3.Vec{X: r, Y: height / 2, Z: r}},
	}
	slope := (radiusBottom - radiusTop) / height
	g.appendGrid(radialSegments, heightSegments, true, func(u, v float32) Vertex {
		sin, cos := math.Sincos(u * 2 * math.Pi)
		radius := radiusTop + v*(radiusBottom-radiusTop)
		return Vertex{
			Position: ms3.Vec{X: radius * sin, Y: height/2 - v*height, Z: radius * cos},
			Normal:   ms3.Unit(ms3.Vec{X: sin, Y: slope, Z: cos}),
			UV:       ms2.Vec{X: u, Y: 1 - v},
		}
	})
	if !openEnded {
		if radiusTop > epsilon {
			g.appendCap(radiusTop, height/2, 1, radialSegments)
		}
		if radiusBottom > epsilon {
			g.appendCap(radiusBottom, -height/2, -1, radialSegments)
		}
	}
	return g
}

// appendCap appends a disc of segs ring vertices triangulated as a fan from
// the first ring vertex. ny is the cap normal's Y component, +1 or -1.
func (g *Geometry) appendCap(radius, y, ny float32, segs int) {
	base := uint32(len(g.Vertices))
	for i := 0; i < segs; i++ {
		sin, cos := math.Sincos(float32(i) / float32(segs) * 2 * math.Pi)
		g.Vertices = append(g.Vertices, Vertex{
			Position: ms3.Vec{X: radius * sin, Y: y, Z: radius * cos},
			Normal:   ms3.Vec{Y: ny},
			UV:       ms2.Vec{X: 0.5 + 0.5*sin, Y: 0.5 + 0.5*cos},
		})
	}
	for i := uint32(1); i < uint32(segs)-1; i++ {
		if ny > 0 {
			g.Indices = append(g.Indices, base, base+i, base+i+1)
		} else {
			g.Indices = append(g.Indices, base, base+i+1, base+i)
		}
	}
}

const (
	icoX = 0.525731112119133606
	icoZ = 0.850650808352039932
)

var icoVertices = [12]ms3.Vec{
	{X: -icoX, Z: icoZ}, {X: icoX, Z: icoZ}, {X: -icoX, Z: -icoZ}, {X: icoX, Z: -icoZ},
	{Y: icoZ, Z: icoX}, {Y: icoZ, Z: -icoX}, {Y: -icoZ, Z: icoX}, {Y: -icoZ, Z: -icoX},
	{X: icoZ, Y: icoX}, {X: -icoZ, Y: icoX}, {X: icoZ, Y: -icoX}, {X: -icoZ, Y: -icoX},
}

// Listed clockwise seen from outside.
var icoTriangles = [20][3]uint32{
	{0, 4, 1}, {0, 9, 4}, {9, 5, 4}, {4, 5, 8}, {4, 8, 1},
	{8, 10, 1}, {8, 3, 10}, {5, 3, 8}, {5, 2, 3}, {2, 7, 3},
	{7, 10, 3}, {7, 6, 10}, {7, 11, 6}, {11, 0, 6}, {0, 1, 6},
	{6, 1, 10}, {9, 0, 11}, {9, 11, 2}, {9, 2, 5}, {7, 2, 11},
}

// NewIcosahedron returns a regular icosahedron with all 12 vertices at
// distance radius from the origin. Vertices are shared between faces and
// carry their unit direction as normal.
func NewIcosahedron(radius float32) Geometry {
	g := Geometry{
		Layout:   AttrPosition | AttrNormal,
		Vertices: make([]Vertex, len(icoVertices)),
		Indices:  make([]uint32, 0, 3*len(icoTriangles)),
		Bounds:   ms3.Box{Min: ms3.Vec{X: -radius, Y: -radius, Z: -radius}, Max: ms3.Vec{X: radius, Y: radius, Z: radius}},
	}
	for i, v := range icoVertices {
		g.Vertices[i] = Vertex{Position: ms3.Scale(radius, v), Normal: v}
	}
	for _, tri := range icoTriangles {
		g.Indices = append(g.Indices, tri[0], tri[2], tri[1])
	}
	return g
}

// NewFullScreenQuad returns two triangles covering [-1,1]² at z=0 with
// texture coordinates spanning [0,1]². Vertices are not indexed.
func NewFullScreenQuad() Geometry {
	corners := [4]Vertex{
		{Position: ms3.Vec{X: -1, Y: -1}, UV: ms2.Vec{X: 0, Y: 0}},
		{Position: ms3.Vec{X: 1, Y: -1}, UV: ms2.Vec{X: 1, Y: 0}},
		{Position: ms3.Vec{X: 1, Y: 1}, UV: ms2.Vec{X: 1, Y: 1}},
		{Position: ms3.Vec{X: -1, Y: 1}, UV: ms2.Vec{X: 0, Y: 1}},
	}
	g := Geometry{
		Layout:   AttrPosition | AttrTexCoord,
		Vertices: make([]Vertex, 0, 6),
		Bounds:   ms3.Box{Min: ms3.Vec{X: -1, Y: -1}, Max: ms3.Vec{X: 1, Y: 1}},
	}
	for _, i := range [6]int{0, 1, 2, 0, 2, 3} {
		g.Vertices = append(g.Vertices, corners[i])
	}
	return g
}

// appendGrid appends a (us+1)×(vs+1) row-major vertex grid sampled at
// u,v in [0,1] and two triangles per grid cell, all split along the same
// diagonal. flip must be set when ∂p/∂u × ∂p/∂v points against the desired
// front face direction.
func (g *Geometry) appendGrid(us, vs int, flip bool, vertex func(u, v float32) Vertex) {
	base := uint32(len(g.Vertices))
	for y := 0; y <= vs; y++ {
		v := float32(y) / float32(vs)
		for x := 0; x <= us; x++ {
			g.Vertices = append(g.Vertices, vertex(float32(x)/float32(us), v))
		}
	}
	row := uint32(us + 1)
	for y := 0; y < vs; y++ {
		for x := 0; x < us; x++ {
			a := base + uint32(y)*row + uint32(x)
			b := a + 1
			c := a + row
			d := c + 1
			if flip {
				g.Indices = append(g.Indices, a, c, b, b, c, d)
			} else {
				g.Indices = append(g.Indices, a, b, c, b, d, c)
			}
		}
	}
}

func vec(a [3]float32) ms3.Vec { return ms3.Vec{X: a[0], Y: a[1], Z: a[2]} }

func safeDiv(a, b float32) float32 {
	if b == 0 {
		return 0
	}
	return a / b
}
