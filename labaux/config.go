package labaux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/LT-Kerrigan/LabRender/glrender"
	"github.com/pelletier/go-toml/v2"
)

// SceneConfig describes a scene: the window, an orbit camera and the models to draw.
type SceneConfig struct {
	Window WindowConfig  `toml:"window"`
	Camera CameraConfig  `toml:"camera"`
	// Target is "default" for forward shading or "gbuffer" for deferred.
	Target string        `toml:"target"`
	Models []ModelConfig `toml:"model"`
}

type WindowConfig struct {
	Title     string     `toml:"title"`
	Width     int        `toml:"width"`
	Height    int        `toml:"height"`
	Resizable bool       `toml:"resizable"`
	VSync     bool       `toml:"vsync"`
	Clear     [4]float32 `toml:"clear"`
}

// CameraConfig configures the orbit camera. A zero Distance frames the scene bounds.
type CameraConfig struct {
	FOV      float32    `toml:"fov"` // Vertical field of view in degrees.
	Near     float32    `toml:"near"`
	Far      float32    `toml:"far"`
	Distance float32    `toml:"distance"`
	Yaw      float32    `toml:"yaw"`   // Degrees.
	Pitch    float32    `toml:"pitch"` // Degrees.
	Target   [3]float32 `toml:"target"`
}

type ModelConfig struct {
	Name     string       `toml:"name"`
	Position [3]float32   `toml:"position"`
	Scale    [3]float32   `toml:"scale"`
	Parts    []PartConfig `toml:"part"`
}

// PartConfig selects a generator and its parameters plus the material the
// part is drawn with. File paths are relative to the scene file.
type PartConfig struct {
	Name  string `toml:"name"`
	Shape string `toml:"shape"` // sphere, box, skybox, plane, cylinder, icosahedron or quad.
	Role  string `toml:"role"`  // mesh, sky or custom.

	Radius       float32    `toml:"radius"`
	RadiusTop    float32    `toml:"radius_top"`
	RadiusBottom float32    `toml:"radius_bottom"`
	Height       float32    `toml:"height"`
	HalfSize     [3]float32 `toml:"half_size"`
	Segments     [3]int     `toml:"segments"`
	OpenEnded    bool       `toml:"open_ended"`
	InsideOut    bool       `toml:"inside_out"`
	UVW          bool       `toml:"uvw"`

	// Color sets a per vertex color. With Gradient set the color blends
	// from Color at the bottom of the part to Gradient at the top.
	Color    []float32 `toml:"color"`
	Gradient []float32 `toml:"gradient"`

	Texture        string    `toml:"texture"`
	CubeMap        []string  `toml:"cube_map"`
	VertexShader   string    `toml:"vertex_shader"`
	FragmentShader string    `toml:"fragment_shader"`
	DepthWrite     *bool     `toml:"depth_write"`
	DepthRange     []float32 `toml:"depth_range"`
	DepthFunc      string    `toml:"depth_func"`
	Offset         *float32  `toml:"offset"`
}

var shapes = map[string]bool{
	"sphere": true, "box": true, "skybox": true, "plane": true,
	"cylinder": true, "icosahedron": true, "quad": true,
}

// LoadSceneConfig reads and validates the TOML scene file at path.
// Relative file paths in parts are resolved against the file's directory.
func LoadSceneConfig(path string) (SceneConfig, error) {
	fp, err := os.Open(path)
	if err != nil {
		return SceneConfig{}, err
	}
	defer fp.Close()
	cfg, err := DecodeSceneConfig(fp)
	if err != nil {
		return SceneConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// DecodeSceneConfig decodes a TOML scene, applies defaults and validates it.
// Unknown keys are an error.
func DecodeSceneConfig(r io.Reader) (cfg SceneConfig, err error) {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err = dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, errors.New(strict.String())
		}
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, cfg.Validate()
}

func (cfg *SceneConfig) setDefaults() {
	w := &cfg.Window
	if w.Title == "" {
		w.Title = "LabRender"
	}
	if w.Width <= 0 {
		w.Width = 1280
	}
	if w.Height <= 0 {
		w.Height = 720
	}
	if w.Clear == ([4]float32{}) {
		w.Clear = [4]float32{0.1, 0.1, 0.12, 1}
	}
	c := &cfg.Camera
	if c.FOV <= 0 {
		c.FOV = 60
	}
	if c.Near <= 0 {
		c.Near = 0.1
	}
	if c.Far <= c.Near {
		c.Far = max(1000, 100*c.Near)
	}
	if cfg.Target == "" {
		cfg.Target = glrender.DefaultTarget.Name
	}
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if m.Scale == ([3]float32{}) {
			m.Scale = [3]float32{1, 1, 1}
		}
		for j := range m.Parts {
			m.Parts[j].setDefaults()
		}
	}
}

func (pc *PartConfig) setDefaults() {
	if pc.Role == "" {
		pc.Role = glrender.RoleMesh.String()
		if pc.Shape == "skybox" {
			pc.Role = glrender.RoleSky.String()
		}
	}
	if pc.Radius <= 0 {
		pc.Radius = 1
	}
	if pc.Height <= 0 {
		pc.Height = 1
	}
	if pc.HalfSize == ([3]float32{}) {
		pc.HalfSize = [3]float32{0.5, 0.5, 0.5}
	}
	def := [3]int{1, 1, 1}
	switch pc.Shape {
	case "sphere":
		def = [3]int{32, 16, 0}
	case "cylinder":
		def = [3]int{32, 1, 0}
	}
	for i, s := range pc.Segments {
		if s <= 0 {
			pc.Segments[i] = def[i]
		}
	}
}

// Validate reports every invalid field at once.
func (cfg *SceneConfig) Validate() error {
	var errs []error
	if _, err := renderTarget(cfg.Target); err != nil {
		errs = append(errs, err)
	}
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if len(m.Parts) == 0 {
			errs = append(errs, fmt.Errorf("model %d %q has no parts", i, m.Name))
		}
		for j := range m.Parts {
			if err := m.Parts[j].validate(); err != nil {
				errs = append(errs, fmt.Errorf("model %q part %d: %w", m.Name, j, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (pc *PartConfig) validate() error {
	var errs []error
	if !shapes[pc.Shape] {
		errs = append(errs, fmt.Errorf("unknown shape %q", pc.Shape))
	}
	if _, err := parseRole(pc.Role); err != nil {
		errs = append(errs, err)
	}
	if n := len(pc.Color); n != 0 && n != 3 && n != 4 {
		errs = append(errs, fmt.Errorf("color needs 3 or 4 components, got %d", n))
	}
	if n := len(pc.Gradient); n != 0 && n != 3 && n != 4 {
		errs = append(errs, fmt.Errorf("gradient needs 3 or 4 components, got %d", n))
	}
	if len(pc.Gradient) > 0 && len(pc.Color) == 0 {
		errs = append(errs, errors.New("gradient set without color"))
	}
	if n := len(pc.CubeMap); n != 0 && n != 6 {
		errs = append(errs, fmt.Errorf("cube_map needs 6 faces, got %d", n))
	}
	if pc.Texture != "" && len(pc.CubeMap) > 0 {
		errs = append(errs, errors.New("texture and cube_map are exclusive"))
	}
	if n := len(pc.DepthRange); n != 0 && n != 2 {
		errs = append(errs, fmt.Errorf("depth_range needs 2 values, got %d", n))
	}
	if pc.DepthFunc != "" {
		if _, ok := glrender.ParseDepthFunc(pc.DepthFunc); !ok {
			errs = append(errs, fmt.Errorf("unknown depth_func %q", pc.DepthFunc))
		}
	}
	return errors.Join(errs...)
}

func (cfg *SceneConfig) resolvePaths(dir string) {
	join := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	for i := range cfg.Models {
		for j := range cfg.Models[i].Parts {
			pc := &cfg.Models[i].Parts[j]
			join(&pc.Texture)
			join(&pc.VertexShader)
			join(&pc.FragmentShader)
			for k := range pc.CubeMap {
				join(&pc.CubeMap[k])
			}
		}
	}
}

func parseRole(s string) (glrender.Role, error) {
	for _, r := range []glrender.Role{glrender.RoleMesh, glrender.RoleSky, glrender.RoleCustom} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func renderTarget(name string) (glrender.RenderTarget, error) {
	switch name {
	case glrender.DefaultTarget.Name:
		return glrender.DefaultTarget, nil
	case glrender.GBufferTarget.Name:
		return glrender.GBufferTarget, nil
	}
	return glrender.RenderTarget{}, fmt.Errorf("unknown target %q", name)
}
