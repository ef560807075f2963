package glrender

import (
	"errors"
	"fmt"
	"sync/atomic"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glbuild"
)

// ErrNoPosition is returned when resolving a shader for geometry without a
// position attribute. Such parts cannot be drawn.
var ErrNoPosition = errors.New("glrender: geometry has no position attribute")

// Selector computes the variant a part needs and returns it from the cache,
// building it through Linker on first use.
type Selector struct {
	Cache  *Cache
	Linker glbuild.Linker

	builds atomic.Int64
}

// NewSelector returns a selector building into cache with l.
func NewSelector(cache *Cache, l glbuild.Linker) *Selector {
	return &Selector{Cache: cache, Linker: l}
}

// Builds returns how many variants this selector has linked successfully.
func (s *Selector) Builds() int { return int(s.builds.Load()) }

// Key returns the variant key for drawing geometry with layout under the
// given material, role and target. mat may be nil.
func Key(layout labrender.Layout, mat Material, role Role, target RenderTarget) VariantKey {
	k := VariantKey{Features: Features{
		Role:     role,
		Layout:   layout,
		Deferred: target.Deferred(),
	}, OutputsHash: target.outputsHash()}
	if mat == nil {
		return k
	}
	_, k.Texture = mat.Texture(PropBaseColor)
	if vs, ok := mat.Text(PropVertexShader); ok && vs != "" {
		k.CustomVertex, k.VertexHash = true, glbuild.HashSource(vs)
	}
	if fs, ok := mat.Text(PropFragmentShader); ok && fs != "" {
		k.CustomFragment, k.FragmentHash = true, glbuild.HashSource(fs)
	}
	return k
}

// Resolve returns the shader for part drawn into target. Geometry without
// a position attribute fails with [ErrNoPosition]. A failed build returns a
// [*glbuild.CompileError] and leaves the cache untouched.
func (s *Selector) Resolve(part *Part, target RenderTarget) (*glbuild.Shader, error) {
	return s.resolve(part.geom.Layout, part.material, part.role, target)
}

func (s *Selector) resolve(layout labrender.Layout, mat Material, role Role, target RenderTarget) (*glbuild.Shader, error) {
	if !layout.Has(labrender.AttrPosition) {
		return nil, fmt.Errorf("%w: layout %s", ErrNoPosition, layout)
	}
	key := Key(layout, mat, role, target)
	name := key.String()
	if sh := s.Cache.Shader(name); sh != nil {
		return sh, nil
	}

	vsBody := DefaultVertexBody(key.Features)
	fsBody := DefaultFragmentBody(key.Features)
	if key.CustomVertex {
		vsBody, _ = mat.Text(PropVertexShader)
	}
	if key.CustomFragment {
		fsBody, _ = mat.Text(PropFragmentShader)
	}
	var b glbuild.Builder
	b.SetOutputs(target.Attachments)
	b.SetAttributes(layout.Semantics()...)
	b.SetVaryings(varyings(key.Features)...)
	b.SetUniforms(uniforms(key.Features)...)
	sh, err := b.MakeShader(s.Linker, name, vsBody, fsBody)
	if err != nil {
		labrender.Logger().Error("shader variant build failed", "variant", name, "err", err)
		return nil, err
	}
	s.Cache.Add(name, sh)
	s.builds.Add(1)
	labrender.Logger().Debug("built shader variant", "variant", name, "automatics", len(sh.Automatics))
	return sh, nil
}

func varyings(f Features) []glbuild.Semantic {
	v := []glbuild.Semantic{
		{Name: "v_pos", Type: glbuild.TypeVec4, Location: 0},
		{Name: "v_normal", Type: glbuild.TypeVec3, Location: 1},
		{Name: "v_uv", Type: glbuild.TypeVec2, Location: 2},
	}
	if f.cube() {
		v[2] = glbuild.Semantic{Name: "v_uvw", Type: glbuild.TypeVec3, Location: 2}
	}
	if f.Layout.Has(labrender.AttrColor) {
		v = append(v, glbuild.Semantic{Name: "v_color", Type: glbuild.TypeVec4, Location: 3})
	}
	return v
}

func uniforms(f Features) []glbuild.Semantic {
	sampler := glbuild.TypeSampler2D
	if f.cube() {
		sampler = glbuild.TypeSamplerCube
	}
	return []glbuild.Semantic{
		{Name: "u_model", Type: glbuild.TypeMat4, Location: 0, Automatic: glbuild.AutoModel},
		{Name: "u_view", Type: glbuild.TypeMat4, Location: 1, Automatic: glbuild.AutoView},
		{Name: "u_modelView", Type: glbuild.TypeMat4, Location: 2, Automatic: glbuild.AutoModelView},
		{Name: "u_modelViewProj", Type: glbuild.TypeMat4, Location: 3, Automatic: glbuild.AutoModelViewProjection},
		{Name: "u_viewRect", Type: glbuild.TypeVec4, Location: 4, Automatic: glbuild.AutoViewRect},
		{Name: "u_viewProj", Type: glbuild.TypeMat4, Location: 5, Automatic: glbuild.AutoViewProjection},
		{Name: "u_texture", Type: sampler, Location: 6},
		{Name: "u_offset", Type: glbuild.TypeFloat, Location: 7},
		{Name: "u_jacobian", Type: glbuild.TypeMat4, Location: 8, Automatic: glbuild.AutoJacobian},
	}
}

// unlitNormal faces the light so geometry without normals is fully lit.
const unlitNormal = "normalize(vec3(0.0, -1.0, 1.0))"

// DefaultVertexBody returns the vertex stage body for f. It transforms the
// position by u_modelViewProj and the normal by u_jacobian and forwards
// whichever texture coordinate and color the layout carries.
func DefaultVertexBody(f Features) string {
	b := make([]byte, 0, 512)
	b = append(b, "void main() {\n"+
		"    vec4 pos = vec4(a_position, 1.0);\n"+
		"    vec4 newPos = u_modelViewProj * pos;\n"+
		"    gl_Position = newPos;\n"+
		"    vert.v_pos = newPos;\n"...)
	if f.Layout.Has(labrender.AttrNormal) {
		b = append(b, "    vert.v_normal = (u_jacobian * vec4(a_normal, 0.0)).xyz;\n"...)
	} else {
		b = append(b, "    vert.v_normal = "+unlitNormal+";\n"...)
	}
	switch f.Role {
	case RoleSky:
		b = append(b, "    vert.v_uvw = normalize(a_position.xyz);\n"...)
	case RoleMesh, RoleCustom:
		switch {
		case f.Layout.Has(labrender.AttrTexCoord3):
			b = append(b, "    vert.v_uvw = a_uvw;\n"...)
		case f.Layout.Has(labrender.AttrTexCoord):
			b = append(b, "    vert.v_uv = a_uv;\n"...)
		default:
			b = append(b, "    vert.v_uv = vec2(0.0);\n"...)
		}
	default:
		panic("glrender: unknown role " + f.Role.String())
	}
	if f.Layout.Has(labrender.AttrColor) {
		b = append(b, "    vert.v_color = a_color;\n"...)
	}
	b = append(b, "}\n"...)
	return string(b)
}

// DefaultFragmentBody returns the fragment stage body for f. Deferred
// targets receive normal, position and color in separate attachments.
// Forward targets receive a single color lit by a fixed directional light,
// or fully lit for the sky role.
func DefaultFragmentBody(f Features) string {
	b := make([]byte, 0, 512)
	b = append(b, "void main() {\n"...)
	out := "o_color"
	if f.Deferred {
		out = "o_diffuseTexture"
		b = append(b, "    o_normalTexture = vec4(vert.v_normal, 1.0);\n"+
			"    o_positionTexture = vert.v_pos;\n"...)
	} else {
		switch f.Role {
		case RoleSky:
			b = append(b, "    float ndotl = 1.0;\n"...)
		case RoleMesh, RoleCustom:
			b = append(b, "    float ndotl = clamp(dot(normalize(vec3(0.0, -1.0, 1.0)), vert.v_normal), 0.0, 1.0);\n"...)
		default:
			panic("glrender: unknown role " + f.Role.String())
		}
	}
	hasColor := f.Layout.Has(labrender.AttrColor)
	var color string
	switch {
	case f.Texture && f.cube():
		color = "texture(u_texture, vert.v_uvw).bgra"
	case f.Texture && hasColor:
		color = "texture(u_texture, vert.v_uv) * vert.v_color"
	case f.Texture:
		color = "texture(u_texture, vert.v_uv)"
	case hasColor:
		color = "vert.v_color"
	default:
		color = "vec4(1.0, 1.0, 1.0, 1.0)"
	}
	b = append(b, "    "+out+" = "+color...)
	if !f.Deferred {
		b = append(b, " * ndotl"...)
	}
	b = append(b, ";\n}\n"...)
	return string(b)
}
