// Package labaux assembles labrender scenes from configuration files and
// provides the tooling around the core packages: texture loading, mesh
// export, a headless device and an interactive viewer.
package labaux

import (
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	labrender "github.com/LT-Kerrigan/LabRender"
	"github.com/LT-Kerrigan/LabRender/glrender"
	"github.com/soypat/geometry/ms3"
)

// BuildGeometry runs the generator pc names and applies its vertex colors.
func BuildGeometry(pc PartConfig) (g labrender.Geometry, err error) {
	seg := pc.Segments
	switch pc.Shape {
	case "sphere":
		g = labrender.NewSphere(pc.Radius, seg[0], seg[1], pc.UVW)
	case "box":
		h := pc.HalfSize
		g = labrender.NewBox(h[0], h[1], h[2], seg[0], seg[1], seg[2], pc.InsideOut, pc.UVW)
	case "skybox":
		g = labrender.NewSkyBox()
	case "plane":
		g = labrender.NewPlane(pc.HalfSize[0], pc.HalfSize[2], seg[0], seg[1])
	case "cylinder":
		top, bottom := pc.RadiusTop, pc.RadiusBottom
		if top == 0 && bottom == 0 {
			top, bottom = pc.Radius, pc.Radius
		}
		g = labrender.NewCylinder(top, bottom, pc.Height, seg[0], seg[1], pc.OpenEnded)
	case "icosahedron":
		g = labrender.NewIcosahedron(pc.Radius)
	case "quad":
		g = labrender.NewFullScreenQuad()
	default:
		return g, fmt.Errorf("unknown shape %q", pc.Shape)
	}
	switch {
	case len(pc.Gradient) > 0:
		ApplyGradient(&g, configColor(pc.Color), configColor(pc.Gradient))
	case len(pc.Color) > 0:
		g.SetColor(configColor(pc.Color))
	}
	return g, nil
}

// AssembleOptions configures [BuildScene].
type AssembleOptions struct {
	// Pool runs the part jobs. It is not stopped by BuildScene and may be
	// shared across calls. When nil a package pool with one worker per CPU
	// is created on first use and reused afterwards.
	Pool worker.DynamicWorkerPool
	// Workers limits how many parts are generated and decoded at once.
	// Zero uses the number of CPUs.
	Workers int
	// MaxTextureSize downscales larger texture images. Zero keeps their size.
	MaxTextureSize int
	// NewTexture and NewCubeTexture upload decoded images. They are called
	// on the goroutine calling BuildScene. When nil textures are skipped
	// with a warning.
	NewTexture     func(img image.Image) (glrender.Texture, error)
	NewCubeTexture func(faces [6]image.Image) (glrender.Texture, error)
}

// Scene is an assembled scene ready to be drawn.
type Scene struct {
	Config     SceneConfig
	Target     glrender.RenderTarget
	Models     []*glrender.Model
	Transforms []ms3.Mat4
}

// partJob is the CPU side work for one part, done on the worker pool.
type partJob struct {
	model, part int
	cfg         PartConfig

	geom     labrender.Geometry
	vsBody   string
	fsBody   string
	img      image.Image
	cubeImgs [6]image.Image
	err      error
}

func (job *partJob) run(maxTexSize int) {
	job.geom, job.err = BuildGeometry(job.cfg)
	if job.err != nil {
		return
	}
	job.vsBody = loadShaderOverride(job.cfg.VertexShader)
	job.fsBody = loadShaderOverride(job.cfg.FragmentShader)
	switch {
	case job.cfg.Texture != "":
		job.img, job.err = LoadImage(job.cfg.Texture, ImageOptions{FlipV: true, MaxSize: maxTexSize})
	case len(job.cfg.CubeMap) > 0:
		job.cubeImgs, job.err = LoadCubeFaces(job.cfg.CubeMap, maxTexSize)
	}
}

// loadShaderOverride reads a shader body file. A missing or unreadable file
// is logged and yields the empty string so the default body is generated.
func loadShaderOverride(path string) string {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		labrender.Logger().Warn("shader override not loaded, using default body", "path", path, "err", err)
		return ""
	}
	return string(b)
}

var sharedPool struct {
	once sync.Once
	pool worker.DynamicWorkerPool
}

// assemblyPool returns the package pool used when [AssembleOptions.Pool] is nil.
// Its workers live for the rest of the process.
func assemblyPool() worker.DynamicWorkerPool {
	sharedPool.once.Do(func() {
		n := runtime.NumCPU()
		sharedPool.pool = worker.NewDynamicWorkerPool(n, 4*n, time.Second)
	})
	return sharedPool.pool
}

// BuildScene generates every part of cfg in parallel on a worker pool and
// assembles the models in configuration order. Failures of individual
// parts are joined into the returned error and those parts are left out.
func BuildScene(cfg SceneConfig, opts AssembleOptions) (*Scene, error) {
	target, err := renderTarget(cfg.Target)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	var jobs []*partJob
	for i := range cfg.Models {
		for j := range cfg.Models[i].Parts {
			jobs = append(jobs, &partJob{model: i, part: j, cfg: cfg.Models[i].Parts[j]})
		}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := opts.Pool
	if pool == nil {
		pool = assemblyPool()
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for id, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer func() {
					<-sem
					wg.Done()
				}()
				job.run(opts.MaxTextureSize)
				return nil, nil
			},
		})
	}
	wg.Wait()

	scene := &Scene{Config: cfg, Target: target}
	for _, mc := range cfg.Models {
		scene.Models = append(scene.Models, &glrender.Model{Name: mc.Name})
		scene.Transforms = append(scene.Transforms, modelTransform(mc))
	}
	var errs []error
	for _, job := range jobs {
		mc := &cfg.Models[job.model]
		if job.err != nil {
			errs = append(errs, fmt.Errorf("model %q part %d: %w", mc.Name, job.part, job.err))
			continue
		}
		part, err := job.assemble(opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("model %q part %d: %w", mc.Name, job.part, err))
			continue
		}
		scene.Models[job.model].AddPart(part)
	}
	labrender.Logger().Info("assembled scene", "models", len(scene.Models), "parts", len(jobs), "failed", len(errs), "elapsed", time.Since(start))
	return scene, errors.Join(errs...)
}

// assemble creates the part and its material. Textures are uploaded here.
func (job *partJob) assemble(opts AssembleOptions) (*glrender.Part, error) {
	pc := &job.cfg
	name := pc.Name
	if name == "" {
		name = pc.Shape
	}
	part := glrender.NewPart(name, job.geom)
	role, err := parseRole(pc.Role)
	if err != nil {
		return nil, err
	}
	part.SetRole(role)

	var mat glrender.ShaderMaterial
	mat.SetShaderSource(job.vsBody, job.fsBody)
	if pc.DepthWrite != nil {
		mat.SetDepthWrite(*pc.DepthWrite)
	}
	if len(pc.DepthRange) == 2 {
		mat.SetDepthRange(pc.DepthRange[0], pc.DepthRange[1])
	}
	if pc.DepthFunc != "" {
		mat.SetText(glrender.PropDepthFunc, pc.DepthFunc)
	}
	if pc.Offset != nil {
		mat.SetFloat(glrender.PropOffset, *pc.Offset)
	}
	switch {
	case job.img != nil && opts.NewTexture != nil:
		tex, err := opts.NewTexture(job.img)
		if err != nil {
			return nil, fmt.Errorf("uploading texture %s: %w", pc.Texture, err)
		}
		mat.SetBaseColor(tex)
	case job.cubeImgs[0] != nil && opts.NewCubeTexture != nil:
		tex, err := opts.NewCubeTexture(job.cubeImgs)
		if err != nil {
			return nil, fmt.Errorf("uploading cube map: %w", err)
		}
		mat.SetBaseColor(tex)
	case job.img != nil || job.cubeImgs[0] != nil:
		labrender.Logger().Warn("no texture uploader, drawing untextured", "part", name)
	}
	part.SetMaterial(&mat)
	return part, nil
}

func modelTransform(mc ModelConfig) ms3.Mat4 {
	p, s := mc.Position, mc.Scale
	return ms3.MulMat4(
		glrender.TranslationMat4(ms3.Vec{X: p[0], Y: p[1], Z: p[2]}),
		ms3.ScalingMat4(ms3.Vec{X: s[0], Y: s[1], Z: s[2]}),
	)
}

// DrawList returns a draw list holding every model with its transform.
// The camera state is left for the caller to set.
func (s *Scene) DrawList() *glrender.DrawList {
	dl := new(glrender.DrawList)
	for i, m := range s.Models {
		dl.Add(m, s.Transforms[i])
	}
	return dl
}

// Bounds returns the world space bounds of the mesh role parts. Sky parts
// follow the camera and are left out.
func (s *Scene) Bounds() ms3.Box {
	var dl glrender.DrawList
	for i, m := range s.Models {
		for _, p := range m.Parts() {
			if p.Role() != glrender.RoleSky {
				dl.Add(p, s.Transforms[i])
			}
		}
	}
	return dl.Bounds()
}

// Triangles returns the world space triangles of the mesh role parts, as
// written by [WriteBinarySTL].
func (s *Scene) Triangles() []ms3.Triangle {
	var tris []ms3.Triangle
	for i, m := range s.Models {
		for _, p := range m.Parts() {
			if p.Role() != glrender.RoleSky {
				tris = AppendTriangles(tris, p.Geometry(), s.Transforms[i])
			}
		}
	}
	return tris
}

// Release frees GPU vertex arrays of all models.
func (s *Scene) Release() {
	for _, m := range s.Models {
		m.Release()
	}
}
