//go:build !tinygo && cgo

package glbackend

import (
	"errors"
	"fmt"
	"image"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glbuild"
	"github.com/LT-Kerrigan/LabRender/glrender"
	"github.com/anthonynsimon/bild/clone"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/v4.1-core/glgl"
)

var depthFuncs = [...]uint32{
	glrender.DepthLess:         gl.LESS,
	glrender.DepthLessEqual:    gl.LEQUAL,
	glrender.DepthNever:        gl.NEVER,
	glrender.DepthEqual:        gl.EQUAL,
	glrender.DepthGreater:      gl.GREATER,
	glrender.DepthNotEqual:     gl.NOTEQUAL,
	glrender.DepthGreaterEqual: gl.GEQUAL,
	glrender.DepthAlways:       gl.ALWAYS,
}

// Device draws with the GL context current on the calling goroutine.
type Device struct {
	uploads int
}

// NewDevice returns a device and sets the default depth state on the
// current context. A context must be current, see InitWindow.
func NewDevice() *Device {
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(glrender.DefaultDepthWrite)
	gl.DepthRange(float64(glrender.DefaultDepthRange[0]), float64(glrender.DefaultDepthRange[1]))
	gl.DepthFunc(depthFuncs[glrender.DefaultDepthFunc])
	return &Device{}
}

// Uploads returns how many geometries the device has uploaded.
func (d *Device) Uploads() int { return d.uploads }

// BeginFrame sets the viewport and clears color and depth.
func (d *Device) BeginFrame(width, height int, clearColor [4]float32) {
	gl.Viewport(0, 0, int32(width), int32(height))
	gl.ClearColor(clearColor[0], clearColor[1], clearColor[2], clearColor[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// LinkProgram compiles and links src. The returned error carries the GL info log.
func (d *Device) LinkProgram(src glbuild.ProgramSource) (glbuild.Program, error) {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   src.Vertex + "\x00",
		Fragment: src.Fragment + "\x00",
	})
	if err != nil {
		return nil, err
	}
	labrender.Logger().Debug("linked program", "name", src.Name, "id", prog.ID())
	return &Program{prog: prog, locs: make(map[string]int32)}, nil
}

func (d *Device) SetDepthWrite(enabled bool) { gl.DepthMask(enabled) }

func (d *Device) SetDepthRange(near, far float32) { gl.DepthRange(float64(near), float64(far)) }

func (d *Device) SetDepthFunc(fn glrender.DepthFunc) {
	if int(fn) >= len(depthFuncs) {
		fn = glrender.DefaultDepthFunc
	}
	gl.DepthFunc(depthFuncs[fn])
}

func (d *Device) SetCullFace(enabled bool) {
	if enabled {
		gl.Enable(gl.CULL_FACE)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
}

// Upload copies g into a new vertex array object with an interleaved vertex
// buffer and, when indexed, an element buffer.
func (d *Device) Upload(g *labrender.Geometry) (glrender.VertexArray, error) {
	if g.NumVertices() == 0 {
		return nil, errors.New("glbackend: upload of empty geometry")
	}
	data := g.AppendInterleaved(make([]float32, 0, g.NumVertices()*g.Stride()))
	ptrs, stride := attribPointers(g.Layout)

	va := &vertexArray{count: int32(g.NumElements()), indexed: g.Indexed()}
	gl.GenVertexArrays(1, &va.vao)
	gl.BindVertexArray(va.vao)
	defer gl.BindVertexArray(0)

	gl.GenBuffers(1, &va.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(data), gl.Ptr(data), gl.STATIC_DRAW)
	for _, p := range ptrs {
		gl.EnableVertexAttribArray(p.location)
		gl.VertexAttribPointer(p.location, p.size, gl.FLOAT, false, stride, gl.PtrOffset(p.offset))
	}
	if va.indexed {
		gl.GenBuffers(1, &va.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, 4*len(g.Indices), gl.Ptr(g.Indices), gl.STATIC_DRAW)
	}
	if va.vao == 0 || va.vbo == 0 {
		va.Delete()
		return nil, glErrOrMessage("zero id creating vertex array")
	}
	if err := glgl.Err(); err != nil {
		va.Delete()
		return nil, fmt.Errorf("uploading %s geometry: %w", g.Layout, err)
	}
	d.uploads++
	labrender.Logger().Debug("uploaded geometry", "layout", g.Layout.String(), "vertices", g.NumVertices(), "elements", va.count)
	return va, nil
}

type vertexArray struct {
	vao, vbo, ebo uint32
	count         int32
	indexed       bool
}

func (va *vertexArray) Draw() {
	gl.BindVertexArray(va.vao)
	if va.indexed {
		gl.DrawElements(gl.TRIANGLES, va.count, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, va.count)
	}
	gl.BindVertexArray(0)
}

func (va *vertexArray) Delete() {
	if va.ebo != 0 {
		gl.DeleteBuffers(1, &va.ebo)
	}
	if va.vbo != 0 {
		gl.DeleteBuffers(1, &va.vbo)
	}
	if va.vao != 0 {
		gl.DeleteVertexArrays(1, &va.vao)
	}
	*va = vertexArray{}
}

// Program is a linked GL program with a uniform location cache.
// Setting a uniform the program does not declare or use is a no-op.
type Program struct {
	prog glgl.Program
	locs map[string]int32
}

var _ glbuild.Program = (*Program)(nil)

func (p *Program) Bind()   { p.prog.Bind() }
func (p *Program) Unbind() { p.prog.Unbind() }
func (p *Program) Delete() { p.prog.Delete() }

func (p *Program) location(name string) int32 {
	if loc, ok := p.locs[name]; ok {
		return loc
	}
	loc, err := p.prog.UniformLocation(name + "\x00")
	if err != nil {
		// Unused uniforms are optimized out by the driver.
		loc = -1
	}
	p.locs[name] = loc
	return loc
}

// SetMat4 uploads m. ms3 matrices are row major so GL transposes on upload.
func (p *Program) SetMat4(name string, m ms3.Mat4) {
	if loc := p.location(name); loc >= 0 {
		arr := m.Array()
		gl.UniformMatrix4fv(loc, 1, true, &arr[0])
	}
}

func (p *Program) SetVec4(name string, v [4]float32) {
	if loc := p.location(name); loc >= 0 {
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	}
}

func (p *Program) SetFloat(name string, v float32) {
	if loc := p.location(name); loc >= 0 {
		gl.Uniform1f(loc, v)
	}
}

func (p *Program) SetInt(name string, v int32) {
	if loc := p.location(name); loc >= 0 {
		gl.Uniform1i(loc, v)
	}
}

// Texture is a 2D or cube map GL texture.
type Texture struct {
	id     uint32
	target uint32
}

var _ glrender.Texture = (*Texture)(nil)

// Bind binds the texture to the given texture unit.
func (t *Texture) Bind(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(t.target, t.id)
}

func (t *Texture) Delete() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

// NewTexture2D uploads img as an RGBA8 mipmapped texture. Row 0 of img is
// the first row uploaded, so images are usually flipped beforehand.
func NewTexture2D(img image.Image) (*Texture, error) {
	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	if b.Empty() {
		return nil, errors.New("glbackend: empty texture image")
	}
	t := &Texture{target: gl.TEXTURE_2D}
	gl.GenTextures(1, &t.id)
	if t.id == 0 {
		return nil, glErrOrMessage("zero id creating 2D texture")
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := glgl.Err(); err != nil {
		t.Delete()
		return nil, err
	}
	return t, nil
}

// NewTextureCube uploads six square faces indexed by [CubeFace]. Faces are
// stored with red and blue swapped; the default sky shader samples with a
// bgra swizzle which swaps them back.
func NewTextureCube(faces [6]image.Image) (*Texture, error) {
	size, err := checkCubeFaces(faces)
	if err != nil {
		return nil, err
	}
	t := &Texture{target: gl.TEXTURE_CUBE_MAP}
	gl.GenTextures(1, &t.id)
	if t.id == 0 {
		return nil, glErrOrMessage("zero id creating cube map texture")
	}
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, t.id)
	for i, img := range faces {
		rgba := clone.AsRGBA(img)
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(i), 0, gl.RGBA8, int32(size), int32(size), 0, gl.BGRA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
	if err := glgl.Err(); err != nil {
		t.Delete()
		return nil, err
	}
	return t, nil
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
