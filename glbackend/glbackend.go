// Package glbackend implements the glrender device on top of OpenGL 4.1 core
// through go-gl and glgl. All methods must be called from the goroutine
// owning the current GL context. Builds without CGo get a stub whose
// operations fail with [ErrNoCGO].
package glbackend

import (
	"errors"
	"image"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glrender"
)

// ErrNoCGO is returned by every GPU operation in builds without CGo.
var ErrNoCGO = errors.New("glbackend: OpenGL rendering requires CGo and is not supported on TinyGo")

var _ glrender.Device = (*Device)(nil)

// WindowConfig configures the window created by InitWindow.
type WindowConfig struct {
	Title     string
	Width     int
	Height    int
	Resizable bool
	// SwapInterval is passed to glfw.SwapInterval. 1 enables vsync.
	SwapInterval int
}

// CubeFace indexes the six images of a cube map texture in OpenGL order.
type CubeFace int

const (
	CubePosX CubeFace = iota
	CubeNegX
	CubePosY
	CubeNegY
	CubePosZ
	CubeNegZ
)

// attribPointer describes one interleaved vertex attribute.
type attribPointer struct {
	location uint32
	size     int32 // Number of float32 components.
	offset   int   // Byte offset into the vertex.
}

// attribPointers returns the attribute pointers for the interleaved layout
// produced by [labrender.Geometry.AppendInterleaved] and the vertex stride in bytes.
func attribPointers(l labrender.Layout) (ptrs []attribPointer, stride int32) {
	offset := 0
	for _, sem := range l.Semantics() {
		ptrs = append(ptrs, attribPointer{
			location: uint32(sem.Location),
			size:     int32(sem.Type.Components()),
			offset:   offset,
		})
		offset += sem.Type.Size()
	}
	return ptrs, int32(offset)
}

// checkCubeFaces validates cube map images are square and of equal size
// and returns the face edge length.
func checkCubeFaces(faces [6]image.Image) (int, error) {
	var size int
	for i, img := range faces {
		if img == nil {
			return 0, errors.New("glbackend: nil cube map face")
		}
		b := img.Bounds()
		if b.Dx() != b.Dy() {
			return 0, errors.New("glbackend: cube map face not square")
		}
		if i == 0 {
			size = b.Dx()
		} else if b.Dx() != size {
			return 0, errors.New("glbackend: cube map faces differ in size")
		}
	}
	if size == 0 {
		return 0, errors.New("glbackend: empty cube map face")
	}
	return size, nil
}
