// Package lightprobe implements the light-probe baking pipeline: capturing
// scene radiance into cubemaps, filtering it into prefiltered glossy
// reflection probes and diffuse irradiance volumes, and refreshing those
// incrementally under a one-bake-unit-per-frame budget.
package lightprobe

import (
	"log"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/lumen-engine/lumen-go/common"
	"github.com/lumen-engine/lumen-go/engine/probe"
)

// IrradianceFormat selects the irradiance representation baked into the
// atlas. Each representation occupies a different fixed texel footprint per
// cell and is chosen once at pipeline construction; the shading shaders must
// be built for the same representation.
type IrradianceFormat int

const (
	// IrradianceHL2 stores three half-life-2 style basis colors in a 3x2
	// cell. The default: cheapest to evaluate.
	IrradianceHL2 IrradianceFormat = iota

	// IrradianceSHL2 stores L2 spherical-harmonics coefficients in a 3x3
	// cell. Needs a signed texture format.
	IrradianceSHL2

	// IrradianceCubemap stores a tiny cubemap cross in an 8x8 cell.
	IrradianceCubemap
)

// CellSize returns the atlas footprint of one irradiance cell.
//
// Returns:
//   - int: cell width in texels
//   - int: cell height in texels
func (f IrradianceFormat) CellSize() (int, int) {
	switch f {
	case IrradianceSHL2:
		return 3, 3
	case IrradianceCubemap:
		return 8, 8
	default:
		return 3, 2
	}
}

// atlasFormat returns the texture format the irradiance atlas needs for this
// representation. Spherical harmonics hold signed coefficients.
func (f IrradianceFormat) atlasFormat() TextureFormat {
	if f == IrradianceSHL2 {
		return FormatRGBA16F
	}
	return FormatR11G11B10F
}

// ProbesInfo is the per-scene-layer probe bookkeeping: the ordered slot
// arrays (slot 0 reserved for the implicit world probe), the registered vs.
// shippable counts, the bounce counter, and the scratch filter parameters
// recomputed before every filter draw. A single ProbesInfo exists per
// pipeline and is only mutated on the render thread.
type ProbesInfo struct {
	// ProbesCube and ProbesGrid are the ordered slot arrays. Slot 0 is the
	// implicit world entry and holds no Probe; live probes occupy
	// [1, NumCube) and [1, NumGrid).
	ProbesCube [MaxProbe]probe.Probe
	ProbesGrid [MaxGrid]probe.Probe

	// NumCube and NumGrid count the slots registered this frame, including
	// the world slot.
	NumCube int
	NumGrid int

	// NumRenderCube and NumRenderGrid count the probes currently shippable
	// for shading. They trail the registered counts while bakes are pending
	// and are also lowered temporarily to hide probes during grid captures.
	NumRenderCube int
	NumRenderGrid int

	// UpdatedBounce is the global multi-bounce progress in [0, maxBounce].
	UpdatedBounce int

	// Scratch filter parameters, recomputed per filter invocation and
	// uploaded as uniform state for the filtering pass.
	Roughness   float32
	SamplesCt   float32
	InvSamples  float32
	LodFactor   float32
	LodMax      float32
	TexelSize   float32
	PaddingSize float32
	Layer       int32
	SHRes       int32

	// CubeData and GridData are the GPU-aligned shading records mirrored
	// into the uniform buffers at frame end.
	CubeData [MaxProbe]GPUCubeProbe
	GridData [MaxGrid]GPUGrid

	// Lattices caches the world-space lattice basis per grid slot.
	Lattices [MaxGrid]probe.GridLattice
}

// pipelineImpl is the implementation of the Pipeline interface.
type pipelineImpl struct {
	backend  Backend
	passes   PassProvider
	viewport ViewportContext

	requestRedraw func()

	irradianceFormat IrradianceFormat

	info *ProbesInfo
	pool *resourcePool

	hammersley Texture
	probeUBO   UniformBuffer
	gridUBO    UniformBuffer

	updateWorld       bool
	worldReadyToShade bool

	state State

	transformPool    worker.DynamicWorkerPool
	transformWorkers int

	initialized bool
}

// Pipeline is the light-probe baking pipeline for one scene layer. The
// expected per-frame call sequence is:
//
//	BeginFrame -> Register (per probe object) -> EndFrame -> Step
//
// BeginFrame resets the per-frame registration lists, EndFrame sizes the GPU
// pools and uploads shading data, and Step performs at most one unit of bake
// work (the world, one grid cell, or one cube probe), requesting a redraw
// when more work remains.
type Pipeline interface {
	// Init allocates the process-lifetime GPU resources: the capture render
	// targets, the Hammersley sample texture, and the shading uniform
	// buffers. Idempotent.
	//
	// Returns:
	//   - error: an error if any allocation fails
	Init() error

	// Teardown releases every GPU resource the pipeline owns. Transform
	// workers idle out on their own. The pipeline must not be used
	// afterwards.
	Teardown()

	// BeginFrame starts a new registration frame: counts reset to the world
	// slots and the slot arrays are cleared.
	BeginFrame()

	// Register adds a probe to this frame's slot arrays, classifying it by
	// kind. Registration is best-effort: registering beyond capacity logs a
	// diagnostic and drops the probe for this frame. A probe whose owner
	// changed since the last frame, or any probe while a world refresh is
	// pending, is marked for re-bake.
	//
	// Parameters:
	//   - p: the probe to register
	Register(p probe.Probe)

	// EndFrame completes registration: (re)allocates the probe pool and
	// irradiance targets as needed, recomputes every live probe's shading
	// transforms, and uploads the shading uniform buffers.
	//
	// Returns:
	//   - error: an error if pool allocation fails
	EndFrame() error

	// Step performs at most one unit of bake work, in strict priority order:
	// world refresh, then one irradiance-grid cell per bounce sweep, then one
	// cube probe. Work is skipped entirely while the viewport is being
	// interacted with; skipped work resumes on a later frame.
	//
	// Returns:
	//   - bool: true if a bake unit was performed this call
	Step() bool

	// MarkWorldDirty schedules a world-probe refresh. World lighting feeds
	// every other bake, so this also re-dirties all dependent probes at the
	// next registration.
	MarkWorldDirty()

	// WorldReadyToShade reports whether the world probe has completed at
	// least one bake since the pool was last reallocated.
	//
	// Returns:
	//   - bool: true once the world probe is shippable
	WorldReadyToShade() bool

	// State returns the scheduler's current state.
	//
	// Returns:
	//   - State: the state machine position
	State() State

	// Info returns the pipeline's probe bookkeeping. Shading integration
	// reads counts and GPU records from it; callers must not mutate it.
	//
	// Returns:
	//   - *ProbesInfo: the live bookkeeping block
	Info() *ProbesInfo
}

var _ Pipeline = &pipelineImpl{}

// NewPipeline creates a new light-probe Pipeline on the given backend and
// render-pass provider. Both are required and NewPipeline panics if either is
// nil. Call Init before the first frame.
//
// Parameters:
//   - backend: the GPU capability implementation (must not be nil)
//   - passes: the render-pass provider (must not be nil)
//   - options: functional options to further configure the pipeline
//
// Returns:
//   - Pipeline: the newly created pipeline
func NewPipeline(backend Backend, passes PassProvider, options ...PipelineBuilderOption) Pipeline {
	if backend == nil {
		panic("lightprobe: NewPipeline requires a non-nil Backend")
	}
	if passes == nil {
		panic("lightprobe: NewPipeline requires a non-nil PassProvider")
	}

	p := &pipelineImpl{
		backend:          backend,
		passes:           passes,
		irradianceFormat: IrradianceHL2,
		info:             &ProbesInfo{},
		state:            State{Kind: StateWorldDirty},
		updateWorld:      true,
		transformWorkers: max(runtime.NumCPU()-1, 1),
	}
	p.pool = newResourcePool(backend, p.irradianceFormat)

	for _, option := range options {
		option(p)
	}
	// The pool caches the irradiance format, so rebuild it if an option
	// changed the representation.
	p.pool.irradianceFormat = p.irradianceFormat

	p.transformPool = worker.NewDynamicWorkerPool(p.transformWorkers, 256, 1*time.Second)

	return p
}

func (p *pipelineImpl) Init() error {
	if p.initialized {
		return nil
	}

	if err := p.pool.EnsureCaptureTargets(); err != nil {
		return err
	}

	points := common.HammersleyPoints(HammersleySize)
	tex, err := p.backend.CreateTexture1D(HammersleySize, FormatRG16F, common.SliceToBytes(points))
	if err != nil {
		return err
	}
	p.hammersley = tex

	var cube GPUCubeProbe
	p.probeUBO, err = p.backend.CreateUniformBuffer(cube.Size() * MaxProbe)
	if err != nil {
		return err
	}
	var grid GPUGrid
	p.gridUBO, err = p.backend.CreateUniformBuffer(grid.Size() * MaxGrid)
	if err != nil {
		return err
	}

	p.initialized = true
	return nil
}

func (p *pipelineImpl) Teardown() {
	p.pool.Release()
	p.backend.ReleaseTexture(p.hammersley)
	p.hammersley = nil
	if p.probeUBO != nil {
		p.probeUBO.Release()
		p.probeUBO = nil
	}
	if p.gridUBO != nil {
		p.gridUBO.Release()
		p.gridUBO = nil
	}
	p.initialized = false
}

func (p *pipelineImpl) BeginFrame() {
	info := p.info
	info.NumCube = 1 // at least one for the world
	info.NumGrid = 1
	for i := range info.ProbesCube {
		info.ProbesCube[i] = nil
	}
	for i := range info.ProbesGrid {
		info.ProbesGrid[i] = nil
	}
}

func (p *pipelineImpl) EndFrame() error {
	info := p.info

	if err := p.pool.EnsureProbePool(info.NumCube); err != nil {
		return err
	}
	if p.pool.probePoolReset {
		// Structural change: every cached filtering result is gone, so the
		// world and every cube probe must re-bake before shading resumes.
		p.pool.probePoolReset = false
		p.updateWorld = true
		p.worldReadyToShade = false
		info.NumRenderCube = 0
		for i := 1; i < info.NumCube; i++ {
			st := info.ProbesCube[i].State()
			st.NeedUpdate = true
			st.ReadyToShade = false
			st.ProbeID = 0
		}
	}

	if err := p.pool.EnsureIrradianceTargets(); err != nil {
		return err
	}
	if p.pool.irradianceReset {
		p.pool.irradianceReset = false
		info.NumRenderGrid = 0
		info.UpdatedBounce = 0
		for i := 1; i < info.NumGrid; i++ {
			st := info.ProbesGrid[i].State()
			st.NeedUpdate = true
			st.UpdatedCells = 0
		}
	}

	p.updateTransforms()

	p.backend.UploadUniform(p.probeUBO, common.SliceToBytes(info.CubeData[:info.NumCube]))
	p.backend.UploadUniform(p.gridUBO, common.SliceToBytes(info.GridData[:info.NumGrid]))
	return nil
}

func (p *pipelineImpl) MarkWorldDirty() {
	p.updateWorld = true
}

func (p *pipelineImpl) WorldReadyToShade() bool {
	return p.worldReadyToShade
}

func (p *pipelineImpl) State() State {
	return p.state
}

func (p *pipelineImpl) Info() *ProbesInfo {
	return p.info
}

// redraw requests another frame so the scheduler can resume. Nil-safe so the
// pipeline can run headless (tests, offline bakes).
func (p *pipelineImpl) redraw() {
	if p.requestRedraw != nil {
		p.requestRedraw()
	}
}

// warnf logs a pipeline diagnostic. Probe failures are never fatal; they
// surface as log lines and visual fallbacks only.
func warnf(format string, args ...any) {
	log.Printf("[LightProbes] "+format, args...)
}
