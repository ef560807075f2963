// Package glrender selects, builds and caches shader variants for mesh parts
// and drives the per-part draw path.
package glrender

import (
	"slices"
	"strconv"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glbuild"
)

// RenderTarget describes where a draw writes its fragments. A target with
// attachments is a deferred G-buffer; a target without is forward shaded
// into the default framebuffer.
type RenderTarget struct {
	Name        string
	Attachments []glbuild.Attachment
}

// Deferred reports whether the target is shaded in deferred mode.
func (rt RenderTarget) Deferred() bool { return len(rt.Attachments) > 0 }

// outputsHash returns the attachment hash that tells rt's generated
// outputs apart, or 0 for forward targets and the default G-buffer layout.
func (rt RenderTarget) outputsHash() uint64 {
	if !rt.Deferred() || slices.Equal(rt.Attachments, GBufferTarget.Attachments) {
		return 0
	}
	h := glbuild.HashAttachments(rt.Attachments)
	if h == 0 {
		h = 1
	}
	return h
}

// DefaultTarget is the window framebuffer.
var DefaultTarget = RenderTarget{Name: "default"}

// GBufferTarget is the G-buffer layout written by the default deferred fragment body.
var GBufferTarget = RenderTarget{
	Name: "gbuffer",
	Attachments: []glbuild.Attachment{
		{Name: "o_diffuseTexture", Type: glbuild.TypeVec4},
		{Name: "o_positionTexture", Type: glbuild.TypeVec4},
		{Name: "o_normalTexture", Type: glbuild.TypeVec4},
	},
}

// Role selects the family of default shader a part is drawn with.
type Role uint8

const (
	RoleMesh Role = iota
	RoleSky
	RoleCustom
)

func (r Role) String() string {
	switch r {
	case RoleMesh:
		return "mesh"
	case RoleSky:
		return "sky"
	case RoleCustom:
		return "custom"
	}
	return "Role(" + strconv.Itoa(int(r)) + ")"
}

// Features is the set of independent inputs that decide the default shader
// bodies for a part.
type Features struct {
	Role     Role
	Layout   labrender.Layout
	Deferred bool
	// Texture is set when the material binds a base color texture.
	Texture bool
}

// cube reports whether the part samples with a 3D direction instead of a 2D texcoord.
func (f Features) cube() bool {
	return f.Role == RoleSky || f.Layout.Has(labrender.AttrTexCoord3)
}

// VariantKey identifies a shader variant. Equal keys always generate
// identical source and distinct keys whose source differs never collide.
type VariantKey struct {
	Features
	CustomVertex   bool
	CustomFragment bool
	VertexHash     uint64
	FragmentHash   uint64
	// OutputsHash is set for deferred targets whose attachments differ
	// from [GBufferTarget], which would otherwise share its outputs.
	OutputsHash uint64
}

// AppendName appends the variant identifier, for example "mesh/Dt/PNT" or
// "custom/S/PN3/v1f4a/f9c0". A deferred target other than [GBufferTarget]
// adds its attachment hash as in "mesh/D/PNT/o3k2".
func (k VariantKey) AppendName(b []byte) []byte {
	b = append(b, k.Role.String()...)
	b = append(b, '/')
	if k.Deferred {
		b = append(b, 'D')
	}
	if k.Texture {
		b = append(b, 't')
	}
	if k.Role == RoleSky {
		b = append(b, 'S')
	}
	b = append(b, '/')
	b = k.Layout.AppendFlags(b)
	if k.OutputsHash != 0 {
		b = append(b, "/o"...)
		b = strconv.AppendUint(b, k.OutputsHash, 32)
	}
	if k.CustomVertex {
		b = append(b, "/v"...)
		b = strconv.AppendUint(b, k.VertexHash, 32)
	}
	if k.CustomFragment {
		b = append(b, "/f"...)
		b = strconv.AppendUint(b, k.FragmentHash, 32)
	}
	return b
}

func (k VariantKey) String() string {
	return string(k.AppendName(make([]byte, 0, 32)))
}
