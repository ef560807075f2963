package glrender

import (
	"errors"
	"fmt"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glbuild"
	"github.com/soypat/geometry/ms3"
)

// VertexArray is geometry uploaded to the GPU.
type VertexArray interface {
	Draw()
	Delete()
}

// Device is the GPU capability the draw path needs.
type Device interface {
	glbuild.Linker
	DepthState
	// Upload copies g into GPU buffers. g has at least one vertex.
	Upload(g *labrender.Geometry) (VertexArray, error)
	SetCullFace(enabled bool)
}

// FrameContext carries per-frame state through a draw traversal.
type FrameContext struct {
	Device   Device
	Selector *Selector
	View     ViewMatrices

	textureUnit int
}

// NewFrameContext returns a context drawing on dev whose selector shares cache.
func NewFrameContext(dev Device, cache *Cache) *FrameContext {
	return &FrameContext{Device: dev, Selector: NewSelector(cache, dev)}
}

// BeginFrame resets per-frame counters. Call once before each frame.
func (fc *FrameContext) BeginFrame() { fc.textureUnit = 0 }

// MaxTextureUnits is the number of texture units handed out per frame,
// the minimum GL_MAX_TEXTURE_IMAGE_UNITS of an OpenGL 4.1 context.
const MaxTextureUnits = 16

// NextTextureUnit reserves a texture unit for the rest of the frame.
// Past [MaxTextureUnits] textured draws in one frame units are reused from 0.
func (fc *FrameContext) NextTextureUnit() int {
	u := fc.textureUnit
	fc.textureUnit = (fc.textureUnit + 1) % MaxTextureUnits
	return u
}

// Drawable is anything a [DrawList] can hold.
type Drawable interface {
	Update(t float64)
	Draw(target RenderTarget, fc *FrameContext) error
	LocalBounds() ms3.Box
}

var (
	_ Drawable = (*Part)(nil)
	_ Drawable = (*Model)(nil)
)

// Part is one drawable mesh part: a single geometry, the material it is
// drawn with and, once resolved, the shader shared with the cache.
//
// The shader is resolved on the first draw and reused afterwards. Changing
// the role, material or target later has no effect until [Part.Invalidate] is called.
type Part struct {
	Name     string
	geom     labrender.Geometry
	role     Role
	material Material
	shader   *glbuild.Shader
	vao      VertexArray
}

// NewPart returns an unresolved mesh part drawing g.
func NewPart(name string, g labrender.Geometry) *Part {
	return &Part{Name: name, geom: g}
}

// Geometry returns the part's geometry. It must not be modified.
func (p *Part) Geometry() *labrender.Geometry { return &p.geom }

// Role returns the shading role, [RoleMesh] by default.
func (p *Part) Role() Role { return p.role }

// SetRole sets the shading role used when the part is resolved.
func (p *Part) SetRole(r Role) { p.role = r }

// Material returns the material or nil when drawn with defaults.
func (p *Part) Material() Material { return p.material }

// SetMaterial sets the material. A nil material draws with defaults.
func (p *Part) SetMaterial(m Material) { p.material = m }

// Shader returns the resolved shader or nil before the first successful draw.
func (p *Part) Shader() *glbuild.Shader { return p.shader }

// Resolved reports whether the part has a shader.
func (p *Part) Resolved() bool { return p.shader != nil }

// Invalidate drops the resolved shader so the next draw resolves again.
// Cached programs are not affected.
func (p *Part) Invalidate() { p.shader = nil }

// LocalBounds returns the geometry bounds.
func (p *Part) LocalBounds() ms3.Box { return p.geom.Bounds }

// Update is a no-op for static geometry.
func (p *Part) Update(t float64) {}

// Release frees the part's vertex array. The shader belongs to the cache and is kept.
func (p *Part) Release() {
	if p.vao != nil {
		p.vao.Delete()
		p.vao = nil
	}
}

// Draw draws the part into target using fc.View for transforms. Material
// depth overrides are in effect for this call only and are restored on
// every return path. Face culling is disabled.
func (p *Part) Draw(target RenderTarget, fc *FrameContext) error {
	if p.shader == nil {
		sh, err := fc.Selector.Resolve(p, target)
		if err != nil {
			return fmt.Errorf("part %q: %w", p.Name, err)
		}
		p.shader = sh
	}
	dev := fc.Device
	prog := p.shader.Program
	prog.Bind()
	defer prog.Unbind()
	p.setAutomatics(prog, &fc.View)
	if mat := p.material; mat != nil {
		if tex, ok := mat.Texture(PropBaseColor); ok {
			unit := fc.NextTextureUnit()
			tex.Bind(unit)
			prog.SetInt("u_texture", int32(unit))
		}
		if off, ok := mat.Float(PropOffset); ok {
			prog.SetFloat("u_offset", off)
		}
	}
	restore := DepthOverrideOf(p.material).Apply(dev)
	defer restore()
	dev.SetCullFace(false)

	if p.geom.NumVertices() == 0 {
		return nil
	}
	if p.vao == nil {
		vao, err := dev.Upload(&p.geom)
		if err != nil {
			return fmt.Errorf("part %q: uploading geometry: %w", p.Name, err)
		}
		p.vao = vao
	}
	p.vao.Draw()
	return nil
}

func (p *Part) setAutomatics(prog glbuild.Program, vm *ViewMatrices) {
	mv, mvp := vm.ModelView, vm.ModelViewProjection
	if p.role == RoleSky {
		mv, mvp = vm.SkyModelView()
	}
	for _, u := range p.shader.Automatics {
		switch u.Automatic {
		case glbuild.AutoModel:
			prog.SetMat4(u.Name, vm.Model)
		case glbuild.AutoView:
			prog.SetMat4(u.Name, vm.View)
		case glbuild.AutoProjection:
			prog.SetMat4(u.Name, vm.Projection)
		case glbuild.AutoModelView:
			prog.SetMat4(u.Name, mv)
		case glbuild.AutoModelViewProjection:
			prog.SetMat4(u.Name, mvp)
		case glbuild.AutoViewProjection:
			prog.SetMat4(u.Name, vm.ViewProjection())
		case glbuild.AutoJacobian:
			prog.SetMat4(u.Name, Jacobian(vm.Model))
		case glbuild.AutoViewRect:
			prog.SetVec4(u.Name, vm.ViewRect)
		}
	}
}

// Model is an ordered collection of parts sharing one transform.
type Model struct {
	Name  string
	parts []*Part
}

// AddPart appends p.
func (m *Model) AddPart(p *Part) { m.parts = append(m.parts, p) }

// Parts returns the model's parts in draw order.
func (m *Model) Parts() []*Part { return m.parts }

func (m *Model) Update(t float64) {
	for _, p := range m.parts {
		p.Update(t)
	}
}

// Draw draws every part in order. A failing part does not stop the others;
// all failures are returned joined.
func (m *Model) Draw(target RenderTarget, fc *FrameContext) error {
	var errs []error
	for _, p := range m.parts {
		if err := p.Draw(target, fc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LocalBounds returns the union of the parts' bounds, or the zero box for an empty model.
func (m *Model) LocalBounds() ms3.Box {
	if len(m.parts) == 0 {
		return ms3.Box{}
	}
	bb := m.parts[0].LocalBounds()
	for _, p := range m.parts[1:] {
		bb = unionBox(bb, p.LocalBounds())
	}
	return bb
}

// Release frees the vertex arrays of all parts.
func (m *Model) Release() {
	for _, p := range m.parts {
		p.Release()
	}
}

// DrawList is the ordered set of drawables and the camera state for one frame.
type DrawList struct {
	View       ms3.Mat4
	Projection ms3.Mat4
	ViewRect   [4]float32
	items      []drawItem
}

type drawItem struct {
	d         Drawable
	transform ms3.Mat4
}

// Add appends d drawn with the model transform.
func (dl *DrawList) Add(d Drawable, transform ms3.Mat4) {
	dl.items = append(dl.items, drawItem{d: d, transform: transform})
}

// Len returns the number of drawables.
func (dl *DrawList) Len() int { return len(dl.items) }

// Reset removes all drawables keeping the camera state.
func (dl *DrawList) Reset() { dl.items = dl.items[:0] }

func (dl *DrawList) Update(t float64) {
	for _, it := range dl.items {
		it.d.Update(t)
	}
}

// Draw begins a frame on fc and draws each drawable in order.
func (dl *DrawList) Draw(target RenderTarget, fc *FrameContext) error {
	fc.BeginFrame()
	var errs []error
	for _, it := range dl.items {
		fc.View = NewViewMatrices(it.transform, dl.View, dl.Projection, dl.ViewRect)
		if err := it.d.Draw(target, fc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bounds returns the union of the drawables' bounds in world space.
func (dl *DrawList) Bounds() ms3.Box {
	var bb ms3.Box
	for i, it := range dl.items {
		wb := it.transform.MulBox(it.d.LocalBounds())
		if i == 0 {
			bb = wb
		} else {
			bb = unionBox(bb, wb)
		}
	}
	return bb
}

// unionBox encloses a and b. Unlike [ms3.Box.Union] flat boxes
// such as planes still contribute their extent.
func unionBox(a, b ms3.Box) ms3.Box {
	return ms3.Box{Min: ms3.MinElem(a.Min, b.Min), Max: ms3.MaxElem(a.Max, b.Max)}
}
