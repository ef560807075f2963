//go:build !tinygo && cgo

package glbackend

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// InitWindow creates a window with an OpenGL 4.1 core context and makes the
// context current on the calling goroutine, which is locked to its OS thread.
// terminate destroys the window and must be called from the same goroutine.
func InitWindow(cfg WindowConfig) (window *glfw.Window, terminate func(), err error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		runtime.UnlockOSThread()
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	resizable := glfw.False
	if cfg.Resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	window, err = glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		runtime.UnlockOSThread()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(cfg.SwapInterval)

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		runtime.UnlockOSThread()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	terminate = func() {
		window.Destroy()
		glfw.Terminate()
		runtime.UnlockOSThread()
	}
	return window, terminate, nil
}
