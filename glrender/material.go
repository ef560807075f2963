package glrender

import (
	"strconv"

	labrender "github.com/LT-Kerrigan/LabRender"
)

// Material property names queried by the draw path.
const (
	PropBaseColor      = "baseColor"      // Texture bound to u_texture.
	PropDepthWrite     = "depthWrite"     // Float, depth writes enabled when > 0.
	PropDepthRange     = "depthRange"     // Range mapped to the depth range.
	PropDepthFunc      = "depthFunc"      // Text, one of the DepthFunc names.
	PropOffset         = "offset"         // Float uploaded to u_offset.
	PropVertexShader   = "vertexShader"   // Text, custom vertex body.
	PropFragmentShader = "fragmentShader" // Text, custom fragment body.
)

// Texture is a GPU texture that can be bound to a texture unit.
type Texture interface {
	Bind(unit int)
}

// Material answers named property lookups. Each method reports false when
// the property is not set or holds a value of another kind.
type Material interface {
	Texture(prop string) (Texture, bool)
	Float(prop string) (float32, bool)
	Range(prop string) ([2]float32, bool)
	Text(prop string) (string, bool)
}

// ShaderMaterial is a map backed [Material]. The zero value is an empty material.
type ShaderMaterial struct {
	textures map[string]Texture
	floats   map[string]float32
	ranges   map[string][2]float32
	texts    map[string]string
}

var _ Material = (*ShaderMaterial)(nil)

func (m *ShaderMaterial) Texture(prop string) (Texture, bool) {
	t, ok := m.textures[prop]
	return t, ok && t != nil
}

func (m *ShaderMaterial) Float(prop string) (float32, bool) {
	v, ok := m.floats[prop]
	return v, ok
}

func (m *ShaderMaterial) Range(prop string) ([2]float32, bool) {
	v, ok := m.ranges[prop]
	return v, ok
}

func (m *ShaderMaterial) Text(prop string) (string, bool) {
	v, ok := m.texts[prop]
	return v, ok
}

// SetTexture sets a texture property. A nil texture unsets it.
func (m *ShaderMaterial) SetTexture(prop string, t Texture) {
	if t == nil {
		delete(m.textures, prop)
		return
	}
	if m.textures == nil {
		m.textures = make(map[string]Texture)
	}
	m.textures[prop] = t
}

func (m *ShaderMaterial) SetFloat(prop string, v float32) {
	if m.floats == nil {
		m.floats = make(map[string]float32)
	}
	m.floats[prop] = v
}

func (m *ShaderMaterial) SetRange(prop string, lo, hi float32) {
	if m.ranges == nil {
		m.ranges = make(map[string][2]float32)
	}
	m.ranges[prop] = [2]float32{lo, hi}
}

// SetText sets a text property. An empty string unsets it.
func (m *ShaderMaterial) SetText(prop, v string) {
	if v == "" {
		delete(m.texts, prop)
		return
	}
	if m.texts == nil {
		m.texts = make(map[string]string)
	}
	m.texts[prop] = v
}

// SetBaseColor sets the base color texture.
func (m *ShaderMaterial) SetBaseColor(t Texture) { m.SetTexture(PropBaseColor, t) }

// SetDepthWrite overrides depth writes while parts using m are drawn.
func (m *ShaderMaterial) SetDepthWrite(enabled bool) {
	var v float32
	if enabled {
		v = 1
	}
	m.SetFloat(PropDepthWrite, v)
}

// SetDepthRange overrides the depth range while parts using m are drawn.
func (m *ShaderMaterial) SetDepthRange(near, far float32) { m.SetRange(PropDepthRange, near, far) }

// SetDepthFunc overrides the depth comparison while parts using m are drawn.
func (m *ShaderMaterial) SetDepthFunc(fn DepthFunc) { m.SetText(PropDepthFunc, fn.String()) }

// SetShaderSource sets custom shader bodies. Either may be empty in which
// case the default body for that stage is generated.
func (m *ShaderMaterial) SetShaderSource(vertexBody, fragmentBody string) {
	m.SetText(PropVertexShader, vertexBody)
	m.SetText(PropFragmentShader, fragmentBody)
}

// DepthFunc is a depth buffer comparison function.
type DepthFunc uint8

const (
	DepthLess DepthFunc = iota
	DepthLessEqual
	DepthNever
	DepthEqual
	DepthGreater
	DepthNotEqual
	DepthGreaterEqual
	DepthAlways
)

var depthFuncNames = [...]string{
	DepthLess:         "less",
	DepthLessEqual:    "lequal",
	DepthNever:        "never",
	DepthEqual:        "equal",
	DepthGreater:      "greater",
	DepthNotEqual:     "notequal",
	DepthGreaterEqual: "gequal",
	DepthAlways:       "always",
}

func (fn DepthFunc) String() string {
	if int(fn) < len(depthFuncNames) {
		return depthFuncNames[fn]
	}
	return "DepthFunc(" + strconv.Itoa(int(fn)) + ")"
}

// ParseDepthFunc parses a depth function name. Unknown names yield
// [DepthLess] and false.
func ParseDepthFunc(s string) (DepthFunc, bool) {
	for i, name := range depthFuncNames {
		if name == s {
			return DepthFunc(i), true
		}
	}
	return DepthLess, false
}

// Default depth state restored after every overridden draw.
const (
	DefaultDepthWrite = true
	DefaultDepthFunc  = DepthLess
)

// DefaultDepthRange is the depth range restored after every overridden draw.
var DefaultDepthRange = [2]float32{0, 1}

// DepthState is the subset of GPU state a material may override.
type DepthState interface {
	SetDepthWrite(enabled bool)
	SetDepthRange(near, far float32)
	SetDepthFunc(fn DepthFunc)
}

// DepthOverride is the depth state a material requests for one draw.
type DepthOverride struct {
	HasWrite bool
	Write    bool
	HasRange bool
	Range    [2]float32
	HasFunc  bool
	Func     DepthFunc
}

// DepthOverrideOf reads the depth overrides set on m. A nil material has none.
func DepthOverrideOf(m Material) (o DepthOverride) {
	if m == nil {
		return o
	}
	if v, ok := m.Float(PropDepthWrite); ok {
		o.HasWrite, o.Write = true, v > 0
	}
	if r, ok := m.Range(PropDepthRange); ok {
		o.HasRange, o.Range = true, r
	}
	if s, ok := m.Text(PropDepthFunc); ok {
		var known bool
		o.HasFunc = true
		o.Func, known = ParseDepthFunc(s)
		if !known {
			labrender.Logger().Warn("unknown depth function, using less", "depthFunc", s)
		}
	}
	return o
}

// Active reports whether any state is overridden.
func (o DepthOverride) Active() bool { return o.HasWrite || o.HasRange || o.HasFunc }

// Apply sets the overridden state on ds and returns a function that restores
// each overridden value to its default. The returned function must be called
// exactly once when the draw completes, typically with defer.
func (o DepthOverride) Apply(ds DepthState) (restore func()) {
	if o.HasWrite {
		ds.SetDepthWrite(o.Write)
	}
	if o.HasRange {
		ds.SetDepthRange(o.Range[0], o.Range[1])
	}
	if o.HasFunc {
		ds.SetDepthFunc(o.Func)
	}
	return func() {
		if o.HasWrite {
			ds.SetDepthWrite(DefaultDepthWrite)
		}
		if o.HasRange {
			ds.SetDepthRange(DefaultDepthRange[0], DefaultDepthRange[1])
		}
		if o.HasFunc {
			ds.SetDepthFunc(DefaultDepthFunc)
		}
	}
}
