package glbuild

import (
	"slices"
	"strconv"
	"strings"
)

// Type is the GLSL data type of a shader-visible value.
type Type uint8

const (
	TypeUndefined Type = iota
	TypeFloat
	TypeVec2
	TypeVec3
	TypeVec4
	TypeInt
	TypeIVec2
	TypeIVec3
	TypeIVec4
	TypeUint
	TypeBool
	TypeMat2
	TypeMat3
	TypeMat4
	TypeSampler2D
	TypeSampler3D
	TypeSamplerCube
	TypeSampler2DShadow
	typeCount
)

var typeNames = [typeCount]string{
	TypeUndefined:       "undefined",
	TypeFloat:           "float",
	TypeVec2:            "vec2",
	TypeVec3:            "vec3",
	TypeVec4:            "vec4",
	TypeInt:             "int",
	TypeIVec2:           "ivec2",
	TypeIVec3:           "ivec3",
	TypeIVec4:           "ivec4",
	TypeUint:            "uint",
	TypeBool:            "bool",
	TypeMat2:            "mat2",
	TypeMat3:            "mat3",
	TypeMat4:            "mat4",
	TypeSampler2D:       "sampler2D",
	TypeSampler3D:       "sampler3D",
	TypeSamplerCube:     "samplerCube",
	TypeSampler2DShadow: "sampler2DShadow",
}

// String returns the GLSL type name.
func (t Type) String() string {
	if t >= typeCount {
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
	return typeNames[t]
}

// TypeNamed returns the type whose GLSL name is name.
func TypeNamed(name string) (Type, bool) {
	for i := TypeFloat; i < typeCount; i++ {
		if typeNames[i] == name {
			return i, true
		}
	}
	return TypeUndefined, false
}

// Components returns the number of scalar elements in a value of type t.
// Samplers count as a single integer texture unit.
func (t Type) Components() int {
	switch t {
	case TypeFloat, TypeInt, TypeUint, TypeBool:
		return 1
	case TypeVec2, TypeIVec2:
		return 2
	case TypeVec3, TypeIVec3:
		return 3
	case TypeVec4, TypeIVec4, TypeMat2:
		return 4
	case TypeMat3:
		return 9
	case TypeMat4:
		return 16
	}
	if t.IsSampler() {
		return 1
	}
	return 0
}

// Size returns the tightly packed size in bytes of a value of type t.
func (t Type) Size() int { return 4 * t.Components() }

// IsSampler reports whether t is an opaque texture sampler type.
func (t Type) IsSampler() bool { return t >= TypeSampler2D && t < typeCount }

// Automatic names a uniform that the draw path fills in every frame
// from the current view state rather than from a material.
type Automatic uint8

const (
	AutoNone Automatic = iota
	AutoModel
	AutoView
	AutoProjection
	AutoModelView
	AutoModelViewProjection
	AutoViewProjection
	AutoJacobian
	AutoViewRect
)

func (a Automatic) String() string {
	switch a {
	case AutoNone:
		return "none"
	case AutoModel:
		return "model"
	case AutoView:
		return "view"
	case AutoProjection:
		return "projection"
	case AutoModelView:
		return "modelView"
	case AutoModelViewProjection:
		return "modelViewProjection"
	case AutoViewProjection:
		return "viewProjection"
	case AutoJacobian:
		return "jacobian"
	case AutoViewRect:
		return "viewRect"
	}
	return "Automatic(" + strconv.Itoa(int(a)) + ")"
}

// Semantic describes a single shader input or output: an attribute, uniform,
// varying or fragment output. Semantic is a plain value and safe to copy.
type Semantic struct {
	Name      string
	Type      Type
	Location  int
	Automatic Automatic
}

// AppendAttributeDecl appends a vertex attribute declaration of the form
//
//	layout(location = N) in T name;
func (s Semantic) AppendAttributeDecl(b []byte) []byte {
	b = appendLocation(b, s.Location)
	b = append(b, " in "...)
	return s.appendTypeName(b)
}

// AppendOutputDecl appends a fragment output declaration of the form
//
//	layout(location = N) out T name;
func (s Semantic) AppendOutputDecl(b []byte) []byte {
	b = appendLocation(b, s.Location)
	b = append(b, " out "...)
	return s.appendTypeName(b)
}

// AppendUniformDecl appends "uniform T name;".
func (s Semantic) AppendUniformDecl(b []byte) []byte {
	b = append(b, "uniform "...)
	return s.appendTypeName(b)
}

// AppendMemberDecl appends an interface block member declaration.
func (s Semantic) AppendMemberDecl(b []byte) []byte {
	b = append(b, "   "...)
	return s.appendTypeName(b)
}

func (s Semantic) appendTypeName(b []byte) []byte {
	b = append(b, s.Type.String()...)
	b = append(b, ' ')
	b = append(b, s.Name...)
	b = append(b, ";\n"...)
	return b
}

func appendLocation(b []byte, loc int) []byte {
	b = append(b, "layout(location = "...)
	b = strconv.AppendInt(b, int64(loc), 10)
	return append(b, ')')
}

// Semantics is an ordered set of [Semantic] values keyed by name.
// Iteration order is always ascending by name so that two sets holding the
// same descriptors produce identical declarations regardless of insertion order.
// The zero value is an empty set ready to use.
type Semantics struct {
	list []Semantic
}

// NewSemantics returns a set holding sems. Later duplicates replace earlier ones.
func NewSemantics(sems ...Semantic) Semantics {
	var s Semantics
	for i := range sems {
		s.Add(sems[i])
	}
	return s
}

// Add inserts sem, replacing any descriptor with the same name.
func (s *Semantics) Add(sem Semantic) {
	i, found := slices.BinarySearchFunc(s.list, sem.Name, cmpSemanticName)
	if found {
		s.list[i] = sem
		return
	}
	s.list = slices.Insert(s.list, i, sem)
}

// Lookup returns the descriptor named name.
func (s Semantics) Lookup(name string) (Semantic, bool) {
	i, found := slices.BinarySearchFunc(s.list, name, cmpSemanticName)
	if !found {
		return Semantic{}, false
	}
	return s.list[i], true
}

// Len returns the number of descriptors in the set.
func (s Semantics) Len() int { return len(s.list) }

// At returns the i'th descriptor in name order.
func (s Semantics) At(i int) Semantic { return s.list[i] }

// AppendTo appends the set's descriptors in name order to dst.
func (s Semantics) AppendTo(dst []Semantic) []Semantic { return append(dst, s.list...) }

// Clone returns a copy of s that does not share storage with it.
func (s Semantics) Clone() Semantics { return Semantics{list: slices.Clone(s.list)} }

// Reset empties the set retaining allocated storage.
func (s *Semantics) Reset() { s.list = s.list[:0] }

func cmpSemanticName(s Semantic, name string) int { return strings.Compare(s.Name, name) }
