// Package labrender holds mesh geometry buffers and the generators for
// parametric primitives. Shader synthesis lives in [glbuild] and the draw
// path in glrender.
package labrender

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/LT-Kerrigan/LabRender/glbuild"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Layout is the set of vertex attributes present in a vertex buffer.
// Bits are ordered canonically: position, normal, texcoord, color, 3D texcoord.
type Layout uint8

const (
	AttrPosition  Layout = 1 << iota // a_position vec3
	AttrNormal                       // a_normal vec3
	AttrTexCoord                     // a_uv vec2
	AttrColor                        // a_color vec4
	AttrTexCoord3                    // a_uvw vec3, cube map direction
	attrLimit
)

var attrInfo = [...]struct {
	letter byte
	name   string
	typ    glbuild.Type
}{
	{'P', "a_position", glbuild.TypeVec3},
	{'N', "a_normal", glbuild.TypeVec3},
	{'T', "a_uv", glbuild.TypeVec2},
	{'C', "a_color", glbuild.TypeVec4},
	{'3', "a_uvw", glbuild.TypeVec3},
}

// Has reports whether all attributes in attrs are present in l.
func (l Layout) Has(attrs Layout) bool { return l&attrs == attrs }

// AppendFlags appends one letter per present attribute in canonical order, i.e. "PNTC3".
func (l Layout) AppendFlags(b []byte) []byte {
	for i := range attrInfo {
		if l&(1<<i) != 0 {
			b = append(b, attrInfo[i].letter)
		}
	}
	return b
}

func (l Layout) String() string {
	if l == 0 {
		return "none"
	}
	var buf [len(attrInfo)]byte
	return string(l.AppendFlags(buf[:0]))
}

// NumAttributes returns how many attributes are present.
func (l Layout) NumAttributes() int { return bits.OnesCount8(uint8(l & (attrLimit - 1))) }

// Semantics returns one attribute descriptor per present attribute with
// locations assigned consecutively in canonical order.
func (l Layout) Semantics() []glbuild.Semantic {
	sems := make([]glbuild.Semantic, 0, l.NumAttributes())
	for i := range attrInfo {
		if l&(1<<i) == 0 {
			continue
		}
		sems = append(sems, glbuild.Semantic{
			Name:     attrInfo[i].name,
			Type:     attrInfo[i].typ,
			Location: len(sems),
		})
	}
	return sems
}

// Stride returns the number of float32 values per interleaved vertex.
func (l Layout) Stride() int {
	n := 0
	for i := range attrInfo {
		if l&(1<<i) != 0 {
			n += attrInfo[i].typ.Components()
		}
	}
	return n
}

// Vertex holds every attribute a generator may produce.
// Only the fields named by the owning [Geometry]'s layout are meaningful.
type Vertex struct {
	Position ms3.Vec
	Normal   ms3.Vec
	UV       ms2.Vec
	Color    [4]float32
	UVW      ms3.Vec
}

// Geometry is an immutable mesh part: vertices, optional triangle indices
// and the local axis aligned bounds. Triangles wind counter-clockwise when
// viewed from the side their normals point to.
type Geometry struct {
	Layout   Layout
	Vertices []Vertex
	// Indices are triangle list indices into Vertices. When empty Vertices
	// is drawn directly as a triangle list.
	Indices []uint32
	Bounds  ms3.Box
}

// NumVertices returns the number of vertices.
func (g *Geometry) NumVertices() int { return len(g.Vertices) }

// Indexed reports whether the geometry is drawn through its index buffer.
func (g *Geometry) Indexed() bool { return len(g.Indices) > 0 }

// NumElements returns the number of vertices submitted per draw.
func (g *Geometry) NumElements() int {
	if g.Indexed() {
		return len(g.Indices)
	}
	return len(g.Vertices)
}

// Triangle returns the vertices of the i'th triangle.
func (g *Geometry) Triangle(i int) [3]Vertex {
	if g.Indexed() {
		idx := g.Indices[3*i : 3*i+3]
		return [3]Vertex{g.Vertices[idx[0]], g.Vertices[idx[1]], g.Vertices[idx[2]]}
	}
	return [3]Vertex(g.Vertices[3*i : 3*i+3])
}

// NumTriangles returns the number of triangles.
func (g *Geometry) NumTriangles() int { return g.NumElements() / 3 }

// Validate checks every index references an existing vertex and that
// elements form whole triangles.
func (g *Geometry) Validate() error {
	if g.NumElements()%3 != 0 {
		return fmt.Errorf("element count %d not a multiple of 3", g.NumElements())
	}
	n := uint32(len(g.Vertices))
	for i, idx := range g.Indices {
		if idx >= n {
			return fmt.Errorf("index %d at %d out of range for %d vertices", idx, i, n)
		}
	}
	if len(g.Vertices) > 0 && !g.Layout.Has(AttrPosition) {
		return errors.New("vertices without position attribute")
	}
	return nil
}

// SetColor assigns c to every vertex and adds [AttrColor] to the layout.
func (g *Geometry) SetColor(c [4]float32) {
	for i := range g.Vertices {
		g.Vertices[i].Color = c
	}
	g.Layout |= AttrColor
}

// Stride returns the number of float32 values per interleaved vertex.
func (g *Geometry) Stride() int { return g.Layout.Stride() }

// AttributeSemantics returns the vertex attribute descriptors matching [Geometry.AppendInterleaved].
func (g *Geometry) AttributeSemantics() []glbuild.Semantic { return g.Layout.Semantics() }

// AppendInterleaved appends the vertex stream in upload order: for each
// vertex the present attributes in canonical order.
func (g *Geometry) AppendInterleaved(dst []float32) []float32 {
	l := g.Layout
	for _, v := range g.Vertices {
		if l&AttrPosition != 0 {
			dst = append(dst, v.Position.X, v.Position.Y, v.Position.Z)
		}
		if l&AttrNormal != 0 {
			dst = append(dst, v.Normal.X, v.Normal.Y, v.Normal.Z)
		}
		if l&AttrTexCoord != 0 {
			dst = append(dst, v.UV.X, v.UV.Y)
		}
		if l&AttrColor != 0 {
			dst = append(dst, v.Color[:]...)
		}
		if l&AttrTexCoord3 != 0 {
			dst = append(dst, v.UVW.X, v.UVW.Y, v.UVW.Z)
		}
	}
	return dst
}
