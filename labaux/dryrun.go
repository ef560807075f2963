package labaux

import (
	"sync"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glbuild"
	"github.com/LT-Kerrigan/LabRender/glrender"
	"github.com/soypat/geometry/ms3"
)

// DryRunDevice is a [glrender.Device] that records generated programs and
// draw calls without a GPU. It is used to dump shader variants and to test
// scenes headless.
type DryRunDevice struct {
	mu      sync.Mutex
	sources []glbuild.ProgramSource
	draws   int
	uploads int
}

var _ glrender.Device = (*DryRunDevice)(nil)

// LinkProgram records src and returns a program that accepts any uniform.
func (d *DryRunDevice) LinkProgram(src glbuild.ProgramSource) (glbuild.Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sources = append(d.sources, src)
	return dryProgram{}, nil
}

// Sources returns the linked programs in link order.
func (d *DryRunDevice) Sources() []glbuild.ProgramSource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]glbuild.ProgramSource(nil), d.sources...)
}

// Draws returns the number of draw calls issued.
func (d *DryRunDevice) Draws() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draws
}

// Uploads returns the number of geometries uploaded.
func (d *DryRunDevice) Uploads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploads
}

func (d *DryRunDevice) Upload(g *labrender.Geometry) (glrender.VertexArray, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.uploads++
	d.mu.Unlock()
	return dryVertexArray{d}, nil
}

func (d *DryRunDevice) SetDepthWrite(bool)              {}
func (d *DryRunDevice) SetDepthRange(near, far float32) {}
func (d *DryRunDevice) SetDepthFunc(glrender.DepthFunc) {}
func (d *DryRunDevice) SetCullFace(bool)                {}

type dryVertexArray struct{ d *DryRunDevice }

func (va dryVertexArray) Draw() {
	va.d.mu.Lock()
	va.d.draws++
	va.d.mu.Unlock()
}

func (va dryVertexArray) Delete() {}

type dryProgram struct{}

func (dryProgram) Bind()                      {}
func (dryProgram) Unbind()                    {}
func (dryProgram) Delete()                    {}
func (dryProgram) SetMat4(string, ms3.Mat4)   {}
func (dryProgram) SetVec4(string, [4]float32) {}
func (dryProgram) SetFloat(string, float32)   {}
func (dryProgram) SetInt(string, int32)       {}

// DryRunTexture stands in for a GPU texture so that textured variants are selected.
type DryRunTexture struct{}

func (DryRunTexture) Bind(unit int) {}
