//go:build tinygo || !cgo

package glbackend

import (
	"image"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glbuild"
	"github.com/LT-Kerrigan/LabRender/glrender"
)

type Device struct{}

func NewDevice() *Device { return &Device{} }

func (d *Device) Uploads() int { return 0 }

func (d *Device) BeginFrame(width, height int, clearColor [4]float32) {}

func (d *Device) LinkProgram(src glbuild.ProgramSource) (glbuild.Program, error) {
	return nil, ErrNoCGO
}

func (d *Device) SetDepthWrite(enabled bool)         {}
func (d *Device) SetDepthRange(near, far float32)    {}
func (d *Device) SetDepthFunc(fn glrender.DepthFunc) {}
func (d *Device) SetCullFace(enabled bool)           {}

func (d *Device) Upload(g *labrender.Geometry) (glrender.VertexArray, error) {
	return nil, ErrNoCGO
}

type Texture struct{}

func (t *Texture) Bind(unit int) {}
func (t *Texture) Delete()       {}

func NewTexture2D(img image.Image) (*Texture, error) {
	return nil, ErrNoCGO
}

func NewTextureCube(faces [6]image.Image) (*Texture, error) {
	if _, err := checkCubeFaces(faces); err != nil {
		return nil, err
	}
	return nil, ErrNoCGO
}
