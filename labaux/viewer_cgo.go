//go:build !tinygo && cgo

package labaux

import (
	"image"

	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glbackend"
	"github.com/LT-Kerrigan/LabRender/glrender"
	"github.com/go-gl/glfw/v3.3/glfw"
)

func ui(scene SceneConfig, cfg UIConfig) error {
	wc := scene.Window
	swap := 0
	if wc.VSync {
		swap = 1
	}
	window, term, err := glbackend.InitWindow(glbackend.WindowConfig{
		Title:        wc.Title,
		Width:        wc.Width,
		Height:       wc.Height,
		Resizable:    wc.Resizable,
		SwapInterval: swap,
	})
	if err != nil {
		return err
	}
	defer term()
	dev := glbackend.NewDevice()

	sc, err := BuildScene(scene, AssembleOptions{
		Workers:        cfg.Workers,
		MaxTextureSize: cfg.MaxTextureSize,
		NewTexture: func(img image.Image) (glrender.Texture, error) {
			return glbackend.NewTexture2D(img)
		},
		NewCubeTexture: func(faces [6]image.Image) (glrender.Texture, error) {
			return glbackend.NewTextureCube(faces)
		},
	})
	if sc == nil {
		return err
	} else if err != nil {
		labrender.Logger().Error("scene assembled with errors", "err", err)
	}
	defer sc.Release()

	cam := NewOrbitCamera(scene.Camera, sc.Bounds())
	var (
		lastMouseX     float64
		lastMouseY     float64
		firstMouseMove = true
		isMousePressed = false
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		cam.Rotate(float32(xpos-lastMouseX), float32(ypos-lastMouseY))
		lastMouseX = xpos
		lastMouseY = ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		cam.Zoom(float32(yoff))
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		case glfw.Release:
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	fc := glrender.NewFrameContext(dev, glrender.NewCache())
	dl := sc.DrawList()
	ctx := cfg.Context
	var lastErr string
	start := glfw.GetTime()
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetFramebufferSize()
		if width == 0 || height == 0 {
			glfw.WaitEvents()
			continue
		}
		dev.BeginFrame(width, height, wc.Clear)
		dl.View = cam.View()
		dl.Projection = cam.Projection(float32(width) / float32(height))
		dl.ViewRect = [4]float32{0, 0, float32(width), float32(height)}
		dl.Update(glfw.GetTime() - start)
		err = dl.Draw(sc.Target, fc)
		if err != nil && err.Error() != lastErr {
			// Unresolvable parts fail every frame, report each distinct failure once.
			lastErr = err.Error()
			labrender.Logger().Error("drawing scene", "err", err)
		}
		window.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}
