// Package glbuild generates GLSL 4.1 vertex and fragment shader source from
// sets of [Semantic] descriptors and links the result through a [Linker].
package glbuild

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// Preamble is written at the start of every generated shader stage.
const Preamble = "#version 410\n" +
	"#extension GL_ARB_explicit_attrib_location: enable\n" +
	"#extension GL_ARB_separate_shader_objects: enable\n" +
	"#define texture2D texture\n"

// DefaultOutput is the fragment output declared when a render target has no attachments.
var DefaultOutput = Semantic{Name: "o_color", Type: TypeVec4, Location: 0}

// Attachment describes one color output of a render target.
// Its index within the target's attachment list is its output location.
type Attachment struct {
	Name string
	Type Type
}

// ProgramSource holds the complete source text of both stages of a program.
type ProgramSource struct {
	Name     string
	Vertex   string
	Fragment string
}

// Program is a linked GPU program. Uniform setters silently ignore names the
// program does not use since drivers are free to strip unreferenced uniforms.
type Program interface {
	Bind()
	Unbind()
	// SetMat4 uploads m. The array is in row-major order as returned by [ms3.Mat4.Array].
	SetMat4(name string, m ms3.Mat4)
	SetVec4(name string, v [4]float32)
	SetFloat(name string, v float32)
	SetInt(name string, v int32)
	Delete()
}

// Linker compiles and links program source into a [Program].
type Linker interface {
	LinkProgram(src ProgramSource) (Program, error)
}

// Shader is a compiled program plus the automatic uniforms it must receive every frame.
type Shader struct {
	Name       string
	Source     ProgramSource
	Automatics []Semantic
	Program    Program
}

// CompileError is returned by [Builder.MakeShader] when linking fails.
// Its message carries the backend diagnostic followed by both generated stages.
type CompileError struct {
	Source ProgramSource
	Err    error
}

func (ce *CompileError) Error() string {
	return fmt.Sprintf("glbuild: building %q: %v\n--- vertex ---\n%s\n--- fragment ---\n%s",
		ce.Source.Name, ce.Err, ce.Source.Vertex, ce.Source.Fragment)
}

func (ce *CompileError) Unwrap() error { return ce.Err }

// Builder accumulates attribute, uniform, varying and output descriptors and
// generates shader stages from them. The zero value is ready to use.
type Builder struct {
	attributes Semantics
	uniforms   Semantics
	varyings   Semantics
	outputs    Semantics
	buf        []byte
}

// Reset clears all descriptor sets.
func (b *Builder) Reset() {
	b.attributes.Reset()
	b.uniforms.Reset()
	b.varyings.Reset()
	b.outputs.Reset()
}

// SetOutputs declares one fragment output per attachment. With no attachments
// a single [DefaultOutput] is declared.
func (b *Builder) SetOutputs(attachments []Attachment) {
	if len(attachments) == 0 {
		b.outputs.Add(DefaultOutput)
		return
	}
	for i, a := range attachments {
		b.outputs.Add(Semantic{Name: a.Name, Type: a.Type, Location: i})
	}
}

// SetAttributes adds vertex attribute descriptors.
func (b *Builder) SetAttributes(attrs ...Semantic) {
	for i := range attrs {
		b.attributes.Add(attrs[i])
	}
}

// SetUniforms adds uniform descriptors shared by both stages.
func (b *Builder) SetUniforms(uniforms ...Semantic) {
	for i := range uniforms {
		b.uniforms.Add(uniforms[i])
	}
}

// SetVaryings adds inter-stage values. They are declared as members of the
// Vert interface block, addressed in bodies as vert.<name>.
func (b *Builder) SetVaryings(varyings ...Semantic) {
	for i := range varyings {
		b.varyings.Add(varyings[i])
	}
}

// AppendVertexSource appends the vertex stage with body appended verbatim.
func (b *Builder) AppendVertexSource(dst []byte, body string) []byte {
	dst = append(dst, Preamble...)
	for i := 0; i < b.attributes.Len(); i++ {
		dst = b.attributes.At(i).AppendAttributeDecl(dst)
	}
	dst = appendUniforms(dst, b.uniforms)
	if b.varyings.Len() > 0 {
		dst = append(dst, "out Vert {\n"...)
		dst = appendMembers(dst, b.varyings)
		dst = append(dst, "} vert;\n"...)
	}
	dst = append(dst, body...)
	dst = append(dst, '\n')
	return dst
}

// AppendFragmentSource appends the fragment stage with body appended verbatim.
func (b *Builder) AppendFragmentSource(dst []byte, body string) []byte {
	dst = append(dst, Preamble...)
	for i := 0; i < b.outputs.Len(); i++ {
		dst = b.outputs.At(i).AppendOutputDecl(dst)
	}
	dst = appendUniforms(dst, b.uniforms)
	if b.varyings.Len() > 0 {
		dst = append(dst, "\nin Vert {\n"...)
		dst = appendMembers(dst, b.varyings)
		dst = append(dst, "} vert;\n"...)
	}
	dst = append(dst, body...)
	dst = append(dst, '\n')
	return dst
}

// VertexSource returns the generated vertex stage.
func (b *Builder) VertexSource(body string) string {
	b.buf = b.AppendVertexSource(b.buf[:0], body)
	return string(b.buf)
}

// FragmentSource returns the generated fragment stage.
func (b *Builder) FragmentSource(body string) string {
	b.buf = b.AppendFragmentSource(b.buf[:0], body)
	return string(b.buf)
}

// MakeShader generates both stages and links them with l. On failure the
// returned error is a [*CompileError] and no program is returned.
func (b *Builder) MakeShader(l Linker, name, vertexBody, fragmentBody string) (*Shader, error) {
	if l == nil {
		return nil, errors.New("glbuild: nil linker")
	}
	src := ProgramSource{
		Name:     name,
		Vertex:   b.VertexSource(vertexBody),
		Fragment: b.FragmentSource(fragmentBody),
	}
	prog, err := l.LinkProgram(src)
	if err != nil {
		return nil, &CompileError{Source: src, Err: err}
	}
	var autos []Semantic
	for i := 0; i < b.uniforms.Len(); i++ {
		if u := b.uniforms.At(i); u.Automatic != AutoNone {
			autos = append(autos, u)
		}
	}
	return &Shader{Name: name, Source: src, Automatics: autos, Program: prog}, nil
}

func appendUniforms(dst []byte, uniforms Semantics) []byte {
	for i := 0; i < uniforms.Len(); i++ {
		dst = uniforms.At(i).AppendUniformDecl(dst)
	}
	return dst
}

func appendMembers(dst []byte, members Semantics) []byte {
	for i := 0; i < members.Len(); i++ {
		dst = members.At(i).AppendMemberDecl(dst)
	}
	return dst
}

// HashSource returns a content hash of shader source text.
// Equal text always hashes to the same value across processes.
func HashSource(src string) uint64 {
	return hash([]byte(src), uint64(len(src)))
}

// HashAttachments returns a content hash of the output declarations
// generated for attachments. Order, names and types all contribute.
func HashAttachments(attachments []Attachment) uint64 {
	var b []byte
	for _, a := range attachments {
		b = append(b, a.Type.String()...)
		b = append(b, ' ')
		b = append(b, a.Name...)
		b = append(b, ';')
	}
	return hash(b, uint64(len(attachments)))
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = mix(x)
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = mix(x)
	}
	return x
}

func mix(x uint64) uint64 {
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
