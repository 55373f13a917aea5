package lightprobe

import (
	"testing"

	"github.com/lumen-engine/lumen-go/common"
	"github.com/lumen-engine/lumen-go/engine/probe"
)

func TestRegisterClassifiesProbes(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(2, 3, 4))
	cube := probe.NewProbe(probe.ProbeTypeCube)

	frame(t, p, grid, cube)

	info := p.Info()
	if info.NumCube != 2 || info.NumGrid != 2 {
		t.Fatalf("counts = %d/%d, want 2/2 (world slot plus one each)", info.NumCube, info.NumGrid)
	}
	if info.ProbesCube[1] != cube || info.ProbesGrid[1] != grid {
		t.Error("probes not placed in their slot arrays")
	}
	if got := grid.State().NumCell; got != 24 {
		t.Errorf("grid NumCell = %d, want 24", got)
	}

	// Registration is per frame: the next frame starts from the world slots.
	frame(t, p, cube)
	if info.NumCube != 2 || info.NumGrid != 1 {
		t.Errorf("counts = %d/%d after re-registration, want 2/1", info.NumCube, info.NumGrid)
	}
}

func TestRegisterBeyondCapacityDropsProbe(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	p.BeginFrame()
	for i := 1; i < MaxProbe; i++ {
		p.Register(probe.NewProbe(probe.ProbeTypeCube))
	}
	info := p.Info()
	if info.NumCube != MaxProbe {
		t.Fatalf("NumCube = %d, want %d", info.NumCube, MaxProbe)
	}

	// One more than the pool holds: dropped, not fatal.
	p.Register(probe.NewProbe(probe.ProbeTypeCube))
	if info.NumCube != MaxProbe {
		t.Errorf("NumCube = %d after overflow, want %d", info.NumCube, MaxProbe)
	}
}

func TestCubeShadingRecord(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	cube := probe.NewProbe(probe.ProbeTypeCube,
		probe.WithPosition(2, 0, 0),
		probe.WithFalloff(probe.FalloffElipsoid, 2.5, 0.25),
	)

	frame(t, p, cube)

	data := p.Info().CubeData[1]
	vecApprox(t, "position", data.Position, [3]float32{2, 0, 0}, 1e-6)
	approx(t, "attenuation fac", data.AttenuationFac, 4.0, 1e-5)
	if data.AttenuationType != int32(probe.FalloffElipsoid) {
		t.Errorf("attenuation type = %d, want ellipsoid", data.AttenuationType)
	}

	// The attenuation matrix maps world space into the unit influence
	// volume: the probe center lands at the origin, a point one falloff
	// distance away lands on the unit sphere.
	center := common.TransformPoint(data.AttenuationMat[:], 2, 0, 0)
	vecApprox(t, "center", center, [3]float32{0, 0, 0}, 1e-5)
	edge := common.TransformPoint(data.AttenuationMat[:], 4.5, 0, 0)
	vecApprox(t, "edge", edge, [3]float32{1, 0, 0}, 1e-5)

	// Without custom parallax the parallax volume tracks the influence one.
	if data.ParallaxType != data.AttenuationType {
		t.Errorf("parallax type = %d, want %d", data.ParallaxType, data.AttenuationType)
	}
	pEdge := common.TransformPoint(data.ParallaxMat[:], 4.5, 0, 0)
	vecApprox(t, "parallax edge", pEdge, [3]float32{1, 0, 0}, 1e-5)
}

func TestCubeCustomParallaxRecord(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	cube := probe.NewProbe(probe.ProbeTypeCube,
		probe.WithFalloff(probe.FalloffElipsoid, 2.0, 0.5),
		probe.WithCustomParallax(probe.FalloffBox, 4.0),
	)

	frame(t, p, cube)

	data := p.Info().CubeData[1]
	if data.ParallaxType != int32(probe.FalloffBox) {
		t.Errorf("parallax type = %d, want box", data.ParallaxType)
	}
	// The parallax volume uses its own distance: 4 world units to the face.
	face := common.TransformPoint(data.ParallaxMat[:], 4, 0, 0)
	vecApprox(t, "parallax face", face, [3]float32{1, 0, 0}, 1e-5)
}

func TestGridShadingRecord(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid,
		probe.WithResolution(2, 2, 2),
		probe.WithFalloff(probe.FalloffElipsoid, 2.5, 0.25),
	)

	frame(t, p, grid)

	data := p.Info().GridData[1]
	if data.Offset != 1 {
		t.Errorf("atlas offset = %d, want 1 (cell 0 is the world's)", data.Offset)
	}
	approx(t, "attenuation bias", data.AttenuationBias, 4.0, 1e-5)
	approx(t, "attenuation scale", data.AttenuationScale, 4.0/2.5, 1e-5)
	if data.Resolution != [3]int32{2, 2, 2} {
		t.Errorf("resolution = %v, want 2x2x2", data.Resolution)
	}

	// Identity placement: the local [-1,1] volume holds 2 cells per axis,
	// centered half a cell in from each end.
	vecApprox(t, "corner", data.Corner, [3]float32{-0.5, -0.5, -0.5}, 1e-6)
	vecApprox(t, "increment x", data.IncrementX, [3]float32{1, 0, 0}, 1e-6)
	vecApprox(t, "increment y", data.IncrementY, [3]float32{0, 1, 0}, 1e-6)
	vecApprox(t, "increment z", data.IncrementZ, [3]float32{0, 0, 1}, 1e-6)

	// The grid matrix maps world space back into the cell range.
	local := common.TransformPoint(data.Mat[:], 1, 1, 1)
	vecApprox(t, "world to cell range", local, [3]float32{1, 1, 1}, 1e-5)
}

func TestGridOffsetsAreSequential(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	gridA := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(2, 2, 2))
	gridB := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(3, 1, 1))
	gridC := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(1, 1, 1))

	frame(t, p, gridA, gridB, gridC)

	info := p.Info()
	if got := info.GridData[1].Offset; got != 1 {
		t.Errorf("grid A offset = %d, want 1", got)
	}
	if got := info.GridData[2].Offset; got != 9 {
		t.Errorf("grid B offset = %d, want 9", got)
	}
	if got := info.GridData[3].Offset; got != 12 {
		t.Errorf("grid C offset = %d, want 12", got)
	}
}

func TestUniformUploadsCoverRegisteredProbes(t *testing.T) {
	p, backend, _ := newTestPipeline(t)

	cube := probe.NewProbe(probe.ProbeTypeCube)
	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(1, 1, 1))

	frame(t, p, cube, grid)

	if len(backend.buffers) != 2 {
		t.Fatalf("uniform buffers = %d, want 2", len(backend.buffers))
	}
	var cubeRec GPUCubeProbe
	var gridRec GPUGrid
	if got, want := len(backend.buffers[0].data), 2*cubeRec.Size(); got != want {
		t.Errorf("cube upload = %d bytes, want %d (world + 1 probe)", got, want)
	}
	if got, want := len(backend.buffers[1].data), 2*gridRec.Size(); got != want {
		t.Errorf("grid upload = %d bytes, want %d (world + 1 grid)", got, want)
	}
}

func TestProbePoolReallocation(t *testing.T) {
	p, backend, _ := newTestPipeline(t)

	cubeA := probe.NewProbe(probe.ProbeTypeCube)

	stepUntilIdle(t, p, 100, cubeA)
	if len(backend.arrayTexes) != 1 {
		t.Fatalf("probe pool allocations = %d, want 1", len(backend.arrayTexes))
	}
	if got := backend.arrayTexes[0].layers; got != 2 {
		t.Errorf("pool layers = %d, want 2 (world + 1 probe)", got)
	}

	// A stable probe count never reallocates.
	for i := 0; i < 3; i++ {
		frame(t, p, cubeA)
	}
	if len(backend.arrayTexes) != 1 {
		t.Errorf("pool reallocated with a stable probe count")
	}

	// Adding a probe resizes the array. Every filtered layer is lost, so
	// the world and all reflection probes fall back to re-bake.
	cubeB := probe.NewProbe(probe.ProbeTypeCube)
	frame(t, p, cubeA, cubeB)

	if len(backend.arrayTexes) != 2 {
		t.Fatalf("probe pool allocations = %d, want 2", len(backend.arrayTexes))
	}
	if !backend.arrayTexes[0].released {
		t.Error("old probe pool not released")
	}
	if got := backend.arrayTexes[1].layers; got != 3 {
		t.Errorf("pool layers = %d, want 3", got)
	}

	if p.WorldReadyToShade() {
		t.Error("world still marked shippable after pool reallocation")
	}
	info := p.Info()
	if info.NumRenderCube != 0 {
		t.Errorf("NumRenderCube = %d after reallocation, want 0", info.NumRenderCube)
	}
	if st := cubeA.State(); !st.NeedUpdate || st.ReadyToShade {
		t.Error("existing probe not re-flagged after pool reallocation")
	}

	// Convergence restores everything: world first, then both probes.
	if !p.Step() {
		t.Fatal("expected world re-bake after reallocation")
	}
	if p.State().Kind != StateWorldDirty {
		t.Errorf("state = %v, want %v", p.State().Kind, StateWorldDirty)
	}
	stepUntilIdle(t, p, 100, cubeA, cubeB)
	if info.NumRenderCube != 3 {
		t.Errorf("NumRenderCube = %d after convergence, want 3", info.NumRenderCube)
	}
}

func TestIrradianceAtlasesAllocatedOnce(t *testing.T) {
	p, backend, _ := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(1, 1, 1))
	stepUntilIdle(t, p, 100, grid)

	count := func() int {
		n := 0
		for _, tex := range backend.textures {
			if tex.label == "tex2d" {
				n++
			}
		}
		return n
	}
	if got := count(); got != 2 {
		t.Fatalf("irradiance atlases = %d, want 2 (ping-pong pair)", got)
	}

	// Grids share the fixed-size atlases; adding one changes nothing.
	grid2 := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(2, 2, 2))
	frame(t, p, grid, grid2)
	if got := count(); got != 2 {
		t.Errorf("irradiance atlases = %d after adding a grid, want 2", got)
	}
}
