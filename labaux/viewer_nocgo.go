//go:build tinygo || !cgo

package labaux

import "github.com/LT-Kerrigan/LabRender/glbackend"

func ui(scene SceneConfig, cfg UIConfig) error {
	return glbackend.ErrNoCGO
}
