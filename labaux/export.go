package labaux

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/soypat/geometry/ms3"
)

// AppendTriangles appends the triangles of g with vertex positions transformed by m.
func AppendTriangles(dst []ms3.Triangle, g *labrender.Geometry, m ms3.Mat4) []ms3.Triangle {
	for i := 0; i < g.NumTriangles(); i++ {
		tri := g.Triangle(i)
		dst = append(dst, ms3.Triangle{
			m.MulPosition(tri[0].Position),
			m.MulPosition(tri[1].Position),
			m.MulPosition(tri[2].Position),
		})
	}
	return dst
}

const stlHeaderSize = 80

// WriteBinarySTL writes triangles as a binary STL file. Facet normals are
// computed from the counter-clockwise winding.
func WriteBinarySTL(w io.Writer, triangles []ms3.Triangle) (n int, err error) {
	if uint64(len(triangles)) > math.MaxUint32 {
		return 0, errors.New("too many triangles for STL")
	}
	var buf [stlHeaderSize + 4]byte
	copy(buf[:], "LabRender binary STL")
	binary.LittleEndian.PutUint32(buf[stlHeaderSize:], uint32(len(triangles)))
	ngot, err := w.Write(buf[:])
	n += ngot
	if err != nil {
		return n, err
	}
	var facet [50]byte
	for _, t := range triangles {
		nrm := ms3.Unit(ms3.Cross(ms3.Sub(t[1], t[0]), ms3.Sub(t[2], t[0])))
		putVec(facet[0:], nrm)
		putVec(facet[12:], t[0])
		putVec(facet[24:], t[1])
		putVec(facet[36:], t[2])
		// Attribute byte count, unused.
		binary.LittleEndian.PutUint16(facet[48:], 0)
		ngot, err = w.Write(facet[:])
		n += ngot
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func putVec(b []byte, v ms3.Vec) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v.Z))
}

// ReadBinarySTL reads triangles written by [WriteBinarySTL]. Stored normals are discarded.
func ReadBinarySTL(r io.Reader) ([]ms3.Triangle, error) {
	var hdr [stlHeaderSize + 4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("reading STL header: %w", err)
	}
	count := binary.LittleEndian.Uint32(hdr[stlHeaderSize:])
	tris := make([]ms3.Triangle, 0, min(count, 1<<20))
	var facet [50]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, facet[:]); err != nil {
			return tris, fmt.Errorf("reading STL facet %d: %w", i, err)
		}
		tris = append(tris, ms3.Triangle{getVec(facet[12:]), getVec(facet[24:]), getVec(facet[36:])})
	}
	return tris, nil
}

func getVec(b []byte) ms3.Vec {
	return ms3.Vec{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

// WriteOBJ writes g as a Wavefront OBJ object named name. Positions are
// transformed by m. Normals and texture coordinates are written when
// the layout carries them; normals are rotated by the upper 3x3 of m.
func WriteOBJ(w io.Writer, name string, g *labrender.Geometry, m ms3.Mat4) error {
	bw := bufio.NewWriter(w)
	origin := m.MulPosition(ms3.Vec{})
	hasN := g.Layout.Has(labrender.AttrNormal)
	hasT := g.Layout.Has(labrender.AttrTexCoord)
	var b []byte
	b = append(b, "o "...)
	b = append(b, name...)
	b = append(b, '\n')
	for _, v := range g.Vertices {
		b = appendOBJVec(b, "v", m.MulPosition(v.Position))
		if hasN {
			nrm := ms3.Unit(ms3.Sub(m.MulPosition(v.Normal), origin))
			b = appendOBJVec(b, "vn", nrm)
		}
		if hasT {
			b = append(b, "vt "...)
			b = strconv.AppendFloat(b, float64(v.UV.X), 'g', -1, 32)
			b = append(b, ' ')
			b = strconv.AppendFloat(b, float64(v.UV.Y), 'g', -1, 32)
			b = append(b, '\n')
		}
		if len(b) > 4096 {
			if _, err := bw.Write(b); err != nil {
				return err
			}
			b = b[:0]
		}
	}
	for i := 0; i < g.NumTriangles(); i++ {
		b = append(b, 'f')
		for k := 0; k < 3; k++ {
			idx := 3*i + k
			if g.Indexed() {
				idx = int(g.Indices[idx])
			}
			b = append(b, ' ')
			b = appendOBJIndex(b, idx+1, hasT, hasN)
		}
		b = append(b, '\n')
		if len(b) > 4096 {
			if _, err := bw.Write(b); err != nil {
				return err
			}
			b = b[:0]
		}
	}
	if _, err := bw.Write(b); err != nil {
		return err
	}
	return bw.Flush()
}

func appendOBJVec(b []byte, prefix string, v ms3.Vec) []byte {
	b = append(b, prefix...)
	for _, c := range [3]float32{v.X, v.Y, v.Z} {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, float64(c), 'g', -1, 32)
	}
	return append(b, '\n')
}

func appendOBJIndex(b []byte, i int, hasT, hasN bool) []byte {
	b = strconv.AppendInt(b, int64(i), 10)
	switch {
	case hasT && hasN:
		b = append(b, '/')
		b = strconv.AppendInt(b, int64(i), 10)
		b = append(b, '/')
		b = strconv.AppendInt(b, int64(i), 10)
	case hasT:
		b = append(b, '/')
		b = strconv.AppendInt(b, int64(i), 10)
	case hasN:
		b = append(b, "//"...)
		b = strconv.AppendInt(b, int64(i), 10)
	}
	return b
}
