package labaux

import "context"

// UIConfig configures the interactive viewer.
type UIConfig struct {
	// Context cancels the render loop when done. May be nil.
	Context        context.Context
	Workers        int
	MaxTextureSize int
}

// UI opens a window and draws scene until the window is closed or the
// context is done. Dragging with the left mouse button orbits the camera
// and scrolling zooms. UI must be called from the main goroutine and
// requires CGo.
func UI(scene SceneConfig, cfg UIConfig) error {
	return ui(scene, cfg)
}
