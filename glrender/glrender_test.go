package glrender

import (
	"errors"
	"slices"
	"strings"
	"testing"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glbuild"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	links   int
	fail    error
	uploads int
	draws   int
	sources []glbuild.ProgramSource

	depthWrite bool
	depthRange [2]float32
	depthFunc  DepthFunc
	cull       bool

	// State observed while the last draw call executed.
	drawWrite bool
	drawFunc  DepthFunc
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{depthWrite: true, depthRange: DefaultDepthRange, cull: true}
}

func (d *fakeDevice) LinkProgram(src glbuild.ProgramSource) (glbuild.Program, error) {
	d.links++
	if d.fail != nil {
		return nil, d.fail
	}
	d.sources = append(d.sources, src)
	return &fakeProgram{mats: make(map[string]ms3.Mat4), ints: make(map[string]int32)}, nil
}

func (d *fakeDevice) Upload(g *labrender.Geometry) (VertexArray, error) {
	d.uploads++
	return &fakeVAO{dev: d}, nil
}

func (d *fakeDevice) SetDepthWrite(enabled bool)      { d.depthWrite = enabled }
func (d *fakeDevice) SetDepthRange(near, far float32) { d.depthRange = [2]float32{near, far} }
func (d *fakeDevice) SetDepthFunc(fn DepthFunc)       { d.depthFunc = fn }
func (d *fakeDevice) SetCullFace(enabled bool)        { d.cull = enabled }

type fakeVAO struct{ dev *fakeDevice }

func (v *fakeVAO) Draw() {
	v.dev.draws++
	v.dev.drawWrite = v.dev.depthWrite
	v.dev.drawFunc = v.dev.depthFunc
}
func (v *fakeVAO) Delete() {}

type fakeProgram struct {
	bound bool
	mats  map[string]ms3.Mat4
	ints  map[string]int32
	vec4  [4]float32
}

func (p *fakeProgram) Bind()                             { p.bound = true }
func (p *fakeProgram) Unbind()                           { p.bound = false }
func (p *fakeProgram) SetMat4(name string, m ms3.Mat4)   { p.mats[name] = m }
func (p *fakeProgram) SetVec4(name string, v [4]float32) { p.vec4 = v }
func (p *fakeProgram) SetFloat(string, float32)          {}
func (p *fakeProgram) SetInt(name string, v int32)       { p.ints[name] = v }
func (p *fakeProgram) Delete()                           {}

type fakeTexture struct{ units []int }

func (t *fakeTexture) Bind(unit int) { t.units = append(t.units, unit) }

func newFrame(dev *fakeDevice) *FrameContext {
	fc := NewFrameContext(dev, NewCache())
	fc.View = NewViewMatrices(ms3.IdentityMat4(), ms3.IdentityMat4(), ms3.IdentityMat4(), [4]float32{0, 0, 640, 480})
	return fc
}

func TestSelectorBuildsOncePerVariant(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	a := NewPart("a", labrender.NewSphere(1, 8, 4, false))
	b := NewPart("b", labrender.NewBox(1, 1, 1, 1, 1, 1, false, false))

	require.NoError(t, a.Draw(DefaultTarget, fc))
	require.NoError(t, b.Draw(DefaultTarget, fc))
	require.NoError(t, a.Draw(DefaultTarget, fc))
	assert.Equal(t, 1, dev.links, "sphere and box share the PNT forward variant")
	assert.Equal(t, 1, fc.Selector.Builds())
	assert.Same(t, a.Shader(), b.Shader())
	assert.Equal(t, []string{"mesh//PNT"}, fc.Selector.Cache.Keys())
	assert.Equal(t, 3, dev.draws)
	assert.Equal(t, 2, dev.uploads, "geometry uploads once per part")

	sh1, err := fc.Selector.Resolve(a, DefaultTarget)
	require.NoError(t, err)
	sh2, err := fc.Selector.Resolve(b, DefaultTarget)
	require.NoError(t, err)
	assert.Same(t, sh1, sh2)
	assert.Equal(t, 1, dev.links)

	_, err = fc.Selector.Resolve(a, GBufferTarget)
	require.NoError(t, err)
	assert.Equal(t, 2, dev.links, "deferred target is a distinct variant")
	assert.Equal(t, 2, fc.Selector.Cache.Len())
}

func TestSelectorNoPosition(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	g := labrender.NewIcosahedron(1)
	g.Layout = labrender.AttrNormal
	p := NewPart("nopos", g)
	err := p.Draw(DefaultTarget, fc)
	require.ErrorIs(t, err, ErrNoPosition)
	assert.False(t, p.Resolved())
	assert.Zero(t, fc.Selector.Cache.Len())
	assert.Zero(t, dev.links)
	assert.Zero(t, dev.draws)
}

func TestSelectorCompileErrorNotCached(t *testing.T) {
	dev := newFakeDevice()
	dev.fail = errors.New("link failed")
	fc := newFrame(dev)
	p := NewPart("p", labrender.NewPlane(1, 1, 1, 1))
	err := p.Draw(DefaultTarget, fc)
	var ce *glbuild.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "mesh//PNT", ce.Source.Name)
	assert.Contains(t, err.Error(), "void main()")
	assert.Zero(t, fc.Selector.Cache.Len())
	assert.Zero(t, fc.Selector.Builds())

	dev.fail = nil
	require.NoError(t, p.Draw(DefaultTarget, fc))
	assert.Equal(t, 1, fc.Selector.Cache.Len())
}

func TestDeferredTargetsWithDifferentOutputs(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	p := NewPart("p", labrender.NewSphere(1, 8, 4, false))
	albedo := RenderTarget{Name: "albedo", Attachments: []glbuild.Attachment{{Name: "o_albedo", Type: glbuild.TypeVec4}}}

	gb, err := fc.Selector.Resolve(p, GBufferTarget)
	require.NoError(t, err)
	al, err := fc.Selector.Resolve(p, albedo)
	require.NoError(t, err)
	assert.NotSame(t, gb, al)
	assert.Equal(t, 2, dev.links)
	assert.Equal(t, "mesh/D/PNT", gb.Name)
	assert.True(t, strings.HasPrefix(al.Name, "mesh/D/PNT/o"), al.Name)
	assert.Contains(t, al.Source.Fragment, "o_albedo")
	assert.NotContains(t, gb.Source.Fragment, "o_albedo")

	// Same attachments under another target name share the variant.
	again := RenderTarget{Name: "albedo2", Attachments: slices.Clone(albedo.Attachments)}
	sh, err := fc.Selector.Resolve(p, again)
	require.NoError(t, err)
	assert.Same(t, al, sh)

	// Attachment type is part of the outputs.
	albedo.Attachments[0].Type = glbuild.TypeVec3
	sh, err = fc.Selector.Resolve(p, albedo)
	require.NoError(t, err)
	assert.NotEqual(t, al.Name, sh.Name)
	assert.Equal(t, 3, dev.links)
}

func TestVariantNames(t *testing.T) {
	tex := &fakeTexture{}
	var textured ShaderMaterial
	textured.SetBaseColor(tex)
	var custom ShaderMaterial
	custom.SetShaderSource("void main() { gl_Position = vec4(0.0); }", "")

	pnt := labrender.AttrPosition | labrender.AttrNormal | labrender.AttrTexCoord
	for _, tc := range []struct {
		layout labrender.Layout
		mat    Material
		role   Role
		target RenderTarget
		want   string
	}{
		{pnt, nil, RoleMesh, DefaultTarget, "mesh//PNT"},
		{pnt, &textured, RoleMesh, GBufferTarget, "mesh/Dt/PNT"},
		{labrender.AttrPosition | labrender.AttrNormal, nil, RoleSky, DefaultTarget, "sky/S/PN"},
		{pnt | labrender.AttrColor | labrender.AttrTexCoord3, nil, RoleMesh, DefaultTarget, "mesh//PNTC3"},
		{pnt, &ShaderMaterial{}, RoleMesh, DefaultTarget, "mesh//PNT"},
	} {
		assert.Equal(t, tc.want, Key(tc.layout, tc.mat, tc.role, tc.target).String())
	}

	k := Key(pnt, &custom, RoleCustom, DefaultTarget)
	name := k.String()
	assert.True(t, strings.HasPrefix(name, "custom//PNT/v"), name)
	assert.NotContains(t, name, "/f")
	assert.Equal(t, name, Key(pnt, &custom, RoleCustom, DefaultTarget).String())

	var other ShaderMaterial
	other.SetShaderSource("void main() { gl_Position = vec4(1.0); }", "")
	assert.NotEqual(t, name, Key(pnt, &other, RoleCustom, DefaultTarget).String())
}

func TestCustomSourceUsed(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	const fsBody = "void main() { o_color = vec4(1.0, 0.0, 0.0, 1.0); }"
	var mat ShaderMaterial
	mat.SetShaderSource("", fsBody)
	p := NewPart("red", labrender.NewSphere(1, 4, 4, false))
	p.SetRole(RoleCustom)
	p.SetMaterial(&mat)
	require.NoError(t, p.Draw(DefaultTarget, fc))
	require.Len(t, dev.sources, 1)
	assert.True(t, strings.HasSuffix(dev.sources[0].Fragment, fsBody+"\n"))
	assert.Contains(t, dev.sources[0].Vertex, DefaultVertexBody(Features{Role: RoleCustom, Layout: p.Geometry().Layout}))
	assert.Contains(t, p.Shader().Name, "/f")
}

func TestDepthOverrideRestoredOnEmptyGeometry(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	var mat ShaderMaterial
	mat.SetDepthWrite(false)
	mat.SetDepthRange(0.9, 1)
	mat.SetDepthFunc(DepthLessEqual)
	empty := labrender.Geometry{Layout: labrender.AttrPosition}
	p := NewPart("empty", empty)
	p.SetMaterial(&mat)
	require.NoError(t, p.Draw(DefaultTarget, fc))
	assert.Zero(t, dev.draws)
	assert.Zero(t, dev.uploads)
	assert.True(t, dev.depthWrite)
	assert.Equal(t, DefaultDepthRange, dev.depthRange)
	assert.Equal(t, DepthLess, dev.depthFunc)
	assert.False(t, dev.cull)
}

func TestDepthOverrideActiveDuringDraw(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	var mat ShaderMaterial
	mat.SetDepthWrite(false)
	mat.SetDepthFunc(DepthAlways)
	p := NewPart("sky", labrender.NewSkyBox())
	p.SetRole(RoleSky)
	p.SetMaterial(&mat)
	require.NoError(t, p.Draw(DefaultTarget, fc))
	assert.Equal(t, 1, dev.draws)
	assert.False(t, dev.drawWrite)
	assert.Equal(t, DepthAlways, dev.drawFunc)
	assert.True(t, dev.depthWrite)
	assert.Equal(t, DepthLess, dev.depthFunc)
	assert.False(t, p.Shader().Program.(*fakeProgram).bound, "program unbound after draw")
}

func TestParseDepthFunc(t *testing.T) {
	for _, name := range []string{"less", "lequal", "never", "equal", "greater", "notequal", "gequal", "always"} {
		fn, ok := ParseDepthFunc(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, fn.String())
	}
	fn, ok := ParseDepthFunc("sometimes")
	assert.False(t, ok)
	assert.Equal(t, DepthLess, fn)
	assert.False(t, DepthOverrideOf(nil).Active())
}

func TestDefaultBodies(t *testing.T) {
	pn := labrender.AttrPosition | labrender.AttrNormal
	sky := DefaultVertexBody(Features{Role: RoleSky, Layout: pn})
	assert.Contains(t, sky, "vert.v_uvw = normalize(a_position.xyz);")
	assert.NotContains(t, sky, "v_uv =")

	mesh := DefaultVertexBody(Features{Role: RoleMesh, Layout: pn | labrender.AttrTexCoord | labrender.AttrColor})
	assert.Contains(t, mesh, "u_modelViewProj * pos")
	assert.Contains(t, mesh, "u_jacobian * vec4(a_normal, 0.0)")
	assert.Contains(t, mesh, "vert.v_uv = a_uv;")
	assert.Contains(t, mesh, "vert.v_color = a_color;")

	flat := DefaultVertexBody(Features{Role: RoleMesh, Layout: labrender.AttrPosition})
	assert.NotContains(t, flat, "a_normal")

	fwd := DefaultFragmentBody(Features{Role: RoleMesh, Layout: pn})
	assert.Contains(t, fwd, "clamp(dot(normalize(vec3(0.0, -1.0, 1.0)), vert.v_normal), 0.0, 1.0)")
	assert.Contains(t, fwd, "o_color = vec4(1.0, 1.0, 1.0, 1.0) * ndotl;")

	skyFwd := DefaultFragmentBody(Features{Role: RoleSky, Layout: pn, Texture: true})
	assert.Contains(t, skyFwd, "float ndotl = 1.0;")
	assert.Contains(t, skyFwd, "texture(u_texture, vert.v_uvw).bgra")

	def := DefaultFragmentBody(Features{Role: RoleMesh, Layout: pn | labrender.AttrTexCoord | labrender.AttrColor, Deferred: true, Texture: true})
	assert.Contains(t, def, "o_normalTexture = vec4(vert.v_normal, 1.0);")
	assert.Contains(t, def, "o_positionTexture = vert.v_pos;")
	assert.Contains(t, def, "o_diffuseTexture = texture(u_texture, vert.v_uv) * vert.v_color;")
	assert.NotContains(t, def, "ndotl")

	assert.Panics(t, func() { DefaultVertexBody(Features{Role: Role(9)}) })
}

func TestGeneratedSourceDeclaresWhatBodiesUse(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	p := NewPart("sky", labrender.NewSkyBox())
	p.SetRole(RoleSky)
	require.NoError(t, p.Draw(GBufferTarget, fc))
	src := dev.sources[0]
	assert.Contains(t, src.Vertex, "   vec3 v_uvw;\n")
	assert.Contains(t, src.Vertex, "uniform samplerCube u_texture;\n")
	assert.Contains(t, src.Fragment, "layout(location = 2) out vec4 o_normalTexture;\n")
	assert.NotContains(t, src.Fragment, "o_color")
	assert.Equal(t, "sky/DS/PN", p.Shader().Name)
}

func TestTextureUnitsPerFrame(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	tex := &fakeTexture{}
	var mat ShaderMaterial
	mat.SetBaseColor(tex)
	var model Model
	for i := 0; i < 2; i++ {
		p := NewPart("p", labrender.NewPlane(1, 1, 1, 1))
		p.SetMaterial(&mat)
		model.AddPart(p)
	}
	dl := DrawList{View: ms3.IdentityMat4(), Projection: ms3.IdentityMat4()}
	dl.Add(&model, ms3.IdentityMat4())
	require.NoError(t, dl.Draw(DefaultTarget, fc))
	require.NoError(t, dl.Draw(DefaultTarget, fc))
	assert.Equal(t, []int{0, 1, 0, 1}, tex.units)
	prog := model.Parts()[1].Shader().Program.(*fakeProgram)
	assert.Equal(t, int32(1), prog.ints["u_texture"])
	assert.Equal(t, "mesh/t/PNT", model.Parts()[0].Shader().Name)
}

func TestInvalidate(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	p := NewPart("p", labrender.NewSphere(1, 3, 2, false))
	require.NoError(t, p.Draw(DefaultTarget, fc))
	first := p.Shader()
	require.NoError(t, p.Draw(GBufferTarget, fc))
	assert.Same(t, first, p.Shader(), "resolution is kept across target changes")
	p.Invalidate()
	require.NoError(t, p.Draw(GBufferTarget, fc))
	assert.NotSame(t, first, p.Shader())
	assert.Equal(t, "mesh/D/PNT", p.Shader().Name)
}

func TestModelDrawJoinsErrors(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	bad := labrender.NewPlane(1, 1, 1, 1)
	bad.Layout = labrender.AttrNormal
	var m Model
	m.AddPart(NewPart("bad", bad))
	m.AddPart(NewPart("good", labrender.NewPlane(1, 1, 1, 1)))
	err := m.Draw(DefaultTarget, fc)
	require.ErrorIs(t, err, ErrNoPosition)
	assert.Equal(t, 1, dev.draws, "good part still drawn")
}

func TestModelBounds(t *testing.T) {
	var m Model
	assert.Equal(t, ms3.Box{}, m.LocalBounds())
	m.AddPart(NewPart("a", labrender.NewBox(1, 1, 1, 1, 1, 1, false, false)))
	m.AddPart(NewPart("b", labrender.NewPlane(3, 0.5, 1, 1)))
	want := ms3.Box{Min: ms3.Vec{X: -3, Y: -1, Z: -1}, Max: ms3.Vec{X: 3, Y: 1, Z: 1}}
	assert.Equal(t, want, m.LocalBounds())

	// A flat part first still contributes its extent.
	var flat Model
	flat.AddPart(NewPart("plane", labrender.NewPlane(3, 3, 1, 1)))
	flat.AddPart(NewPart("box", labrender.NewBox(1, 1, 1, 1, 1, 1, false, false)))
	want = ms3.Box{Min: ms3.Vec{X: -3, Y: -1, Z: -3}, Max: ms3.Vec{X: 3, Y: 1, Z: 3}}
	assert.Equal(t, want, flat.LocalBounds())
}

func TestDrawListBoundsFlatParts(t *testing.T) {
	var dl DrawList
	dl.Add(NewPart("quad", labrender.NewFullScreenQuad()), ms3.IdentityMat4())
	dl.Add(NewPart("ico", labrender.NewIcosahedron(0.5)), ms3.IdentityMat4())
	bb := dl.Bounds()
	assert.InDelta(t, -1, bb.Min.X, 1e-6)
	assert.InDelta(t, 1, bb.Max.X, 1e-6)
	assert.InDelta(t, -1, bb.Min.Y, 1e-6)
	assert.InDelta(t, 1, bb.Max.Y, 1e-6)
	assert.InDelta(t, -0.5, bb.Min.Z, 1e-6)
	assert.InDelta(t, 0.5, bb.Max.Z, 1e-6)

	var planes DrawList
	planes.Add(NewPart("a", labrender.NewPlane(1, 1, 1, 1)), ms3.IdentityMat4())
	planes.Add(NewPart("b", labrender.NewPlane(1, 1, 1, 1)), TranslationMat4(ms3.Vec{X: 4, Y: 2}))
	bb = planes.Bounds()
	assert.Equal(t, ms3.Vec{X: -1, Y: 0, Z: -1}, bb.Min)
	assert.Equal(t, ms3.Vec{X: 5, Y: 2, Z: 1}, bb.Max)
}

func TestTextureUnitsWrap(t *testing.T) {
	fc := newFrame(newFakeDevice())
	for i := 0; i < MaxTextureUnits; i++ {
		assert.Equal(t, i, fc.NextTextureUnit())
	}
	assert.Equal(t, 0, fc.NextTextureUnit())
	fc.BeginFrame()
	assert.Equal(t, 0, fc.NextTextureUnit())
}

func TestDrawListModelMatrices(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	p := NewPart("p", labrender.NewIcosahedron(1))
	dl := DrawList{View: ms3.IdentityMat4(), Projection: ms3.IdentityMat4(), ViewRect: [4]float32{0, 0, 800, 600}}
	moved := TranslationMat4(ms3.Vec{X: 5})
	dl.Add(p, moved)
	require.NoError(t, dl.Draw(DefaultTarget, fc))
	prog := p.Shader().Program.(*fakeProgram)
	assert.Equal(t, moved.Array(), prog.mats["u_model"].Array())
	assert.Equal(t, moved.Array(), prog.mats["u_modelViewProj"].Array())
	assert.Equal(t, ms3.IdentityMat4().Array(), prog.mats["u_jacobian"].Array())
	assert.Equal(t, [4]float32{0, 0, 800, 600}, prog.vec4)
}

func TestSkyStripsTranslation(t *testing.T) {
	dev := newFakeDevice()
	fc := newFrame(dev)
	p := NewPart("sky", labrender.NewSkyBox())
	p.SetRole(RoleSky)
	dl := DrawList{View: TranslationMat4(ms3.Vec{X: 1, Y: 2, Z: 3}), Projection: ms3.IdentityMat4()}
	dl.Add(p, ms3.IdentityMat4())
	require.NoError(t, dl.Draw(DefaultTarget, fc))
	prog := p.Shader().Program.(*fakeProgram)
	arr := prog.mats["u_modelViewProj"].Array()
	assert.Zero(t, arr[3])
	assert.Zero(t, arr[7])
	assert.Zero(t, arr[11])
	assert.Equal(t, float32(1), prog.mats["u_view"].Array()[3], "view keeps translation")
}

func TestJacobian(t *testing.T) {
	model := ms3.MulMat4(TranslationMat4(ms3.Vec{X: 4, Y: -2, Z: 7}), ms3.ScalingMat4(ms3.Vec{X: 2, Y: 4, Z: 0.5}))
	got := Jacobian(model).Array()
	want := ms3.ScalingMat4(ms3.Vec{X: 0.5, Y: 0.25, Z: 2}).Array()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "element %d", i)
	}
	singular := ms3.ScalingMat4(ms3.Vec{X: 1, Y: 0, Z: 1})
	assert.Equal(t, ms3.IdentityMat4().Array(), Jacobian(singular).Array())
}
