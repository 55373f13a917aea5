package lightprobe

import (
	"testing"

	"github.com/lumen-engine/lumen-go/engine/probe"
)

func TestWorldBakesFirst(t *testing.T) {
	p, backend, passes := newTestPipeline(t)

	frame(t, p)
	if !p.Step() {
		t.Fatal("expected the first step to bake the world")
	}

	if got := passes.count("worldBackground"); got != 1 {
		t.Errorf("world background passes = %d, want 1", got)
	}
	if got := len(backend.glossyDraws()); got != 7 {
		t.Errorf("glossy filter draws = %d, want 7", got)
	}
	if got := len(backend.diffuseDraws()); got != 2 {
		t.Errorf("diffuse filter draws = %d, want 2 (one per atlas)", got)
	}

	info := p.Info()
	if info.NumRenderCube != 1 || info.NumRenderGrid != 1 {
		t.Errorf("render counts = %d/%d, want 1/1", info.NumRenderCube, info.NumRenderGrid)
	}
	if !p.WorldReadyToShade() {
		t.Error("world not ready to shade after its bake")
	}
	if p.State().Kind != StateWorldDirty {
		t.Errorf("state = %v, want %v", p.State().Kind, StateWorldDirty)
	}

	// The world's diffuse cell must land in both ping-pong atlases so world
	// lighting survives every later swap.
	diffuse := backend.diffuseDraws()
	if diffuse[0].target == diffuse[1].target {
		t.Error("both world diffuse draws hit the same atlas")
	}

	frame(t, p)
	if p.Step() {
		t.Error("expected no work after the world bake of an empty scene")
	}
	if p.State().Kind != StateIdle {
		t.Errorf("state = %v, want %v", p.State().Kind, StateIdle)
	}
}

func TestOneBakeUnitPerStep(t *testing.T) {
	p, backend, _ := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(2, 2, 2))
	cube := probe.NewProbe(probe.ProbeTypeCube)

	frame(t, p, grid, cube)
	if !p.Step() {
		t.Fatal("expected world bake")
	}

	// Every subsequent step bakes exactly one unit: one grid cell or one
	// cube probe, never more.
	for i := 0; ; i++ {
		before := len(backend.draws)
		frame(t, p, grid, cube)
		if !p.Step() {
			break
		}
		diffuseDelta := 0
		glossyDelta := 0
		for _, d := range backend.draws[before:] {
			switch d.kind {
			case FilterDiffuse:
				diffuseDelta++
			case FilterGlossy:
				glossyDelta++
			}
		}
		if diffuseDelta > 0 && glossyDelta > 0 {
			t.Fatalf("step %d baked a grid cell and a cube probe together", i)
		}
		if diffuseDelta > 1 {
			t.Fatalf("step %d baked %d grid cells, want at most 1", i, diffuseDelta)
		}
		if i > 100 {
			t.Fatal("bake did not converge")
		}
	}
}

func TestGridBounceSweepCount(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(2, 2, 2))

	baked := stepUntilIdle(t, p, 100, grid)

	// 1 world bake + 8 cells x 3 bounces.
	if want := 1 + 8*maxBounce; baked != want {
		t.Errorf("bake units = %d, want %d", baked, want)
	}
	if got := p.Info().UpdatedBounce; got != maxBounce {
		t.Errorf("UpdatedBounce = %d, want %d", got, maxBounce)
	}
	if st := grid.State(); st.NeedUpdate {
		t.Error("grid still flagged for update after convergence")
	}
	if p.State().Kind != StateIdle {
		t.Errorf("state = %v, want %v", p.State().Kind, StateIdle)
	}
}

func TestCubeSweepAfterGrids(t *testing.T) {
	p, backend, _ := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(1, 1, 1))
	cubeA := probe.NewProbe(probe.ProbeTypeCube, probe.WithPosition(1, 0, 0))
	cubeB := probe.NewProbe(probe.ProbeTypeCube, probe.WithPosition(-1, 0, 0))

	baked := stepUntilIdle(t, p, 100, grid, cubeA, cubeB)

	// 1 world + 1 cell x 3 bounces + 2 cubes.
	if want := 1 + maxBounce + 2; baked != want {
		t.Errorf("bake units = %d, want %d", baked, want)
	}

	// The cube sweep runs strictly after every bounce: the last two bake
	// units must be glossy filters into layers 1 and 2.
	glossy := backend.glossyDraws()
	if len(glossy) < 21 {
		t.Fatalf("glossy draws = %d, want at least 21 (world + 2 cubes)", len(glossy))
	}
	lastLayers := []int32{glossy[len(glossy)-8].params.Layer, glossy[len(glossy)-1].params.Layer}
	if lastLayers[0] != 1 || lastLayers[1] != 2 {
		t.Errorf("cube sweep layers = %v, want [1 2]", lastLayers)
	}

	info := p.Info()
	if info.NumRenderCube != 3 {
		t.Errorf("NumRenderCube = %d, want 3", info.NumRenderCube)
	}
	if !cubeA.State().ReadyToShade || !cubeB.State().ReadyToShade {
		t.Error("cube probes not ready to shade after convergence")
	}
	if cubeA.State().ProbeID != 1 || cubeB.State().ProbeID != 2 {
		t.Errorf("probe ids = %d/%d, want 1/2", cubeA.State().ProbeID, cubeB.State().ProbeID)
	}
}

func TestNavigationDefersProbeWork(t *testing.T) {
	vp := &fakeViewportContext{}
	p, _, passes := newTestPipeline(t, WithViewportContext(vp))

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(2, 2, 2))

	// The world ignores navigation entirely.
	vp.navigating = true
	frame(t, p, grid)
	if !p.Step() {
		t.Fatal("world bake must not be deferred for navigation")
	}
	if got := passes.count("worldBackground"); got != 1 {
		t.Errorf("world background passes = %d, want 1", got)
	}

	// Grid work waits out the interaction without losing its cursor.
	for i := 0; i < 3; i++ {
		frame(t, p, grid)
		if p.Step() {
			t.Fatal("grid bake ran during navigation")
		}
	}
	if st := grid.State(); st.UpdatedCells != 0 || !st.NeedUpdate {
		t.Errorf("grid cursor moved during navigation: cells=%d need=%v", st.UpdatedCells, st.NeedUpdate)
	}

	vp.navigating = false
	frame(t, p, grid)
	if !p.Step() {
		t.Fatal("grid bake did not resume after navigation ended")
	}
	if grid.State().UpdatedCells != 1 {
		t.Errorf("UpdatedCells = %d, want 1", grid.State().UpdatedCells)
	}

	// Animation playback defers the same way.
	vp.playing = true
	frame(t, p, grid)
	if p.Step() {
		t.Error("grid bake ran during animation playback")
	}
	vp.playing = false
}

func TestProbesHiddenDuringFirstBounceCapture(t *testing.T) {
	p, _, passes := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(1, 1, 1))
	cube := probe.NewProbe(probe.ProbeTypeCube)

	info := p.Info()
	type counts struct{ cube, grid, bounce int }
	var seen []counts
	passes.onDraw = func(method string, _ *PassContext) {
		if method == "opaque" {
			seen = append(seen, counts{cube: info.NumRenderCube, grid: info.NumRenderGrid, bounce: info.UpdatedBounce})
		}
	}

	stepUntilIdle(t, p, 100, grid, cube)

	if len(seen) == 0 {
		t.Fatal("no opaque passes recorded")
	}
	for _, c := range seen {
		// Grid-cell captures hide every reflection probe, and on the first
		// bounce the grids too. Cube captures run after the bounce sweep and
		// hide nothing.
		if c.bounce < maxBounce {
			if c.cube != 0 {
				t.Errorf("grid capture saw %d reflection probes, want 0", c.cube)
			}
			if c.bounce == 0 && c.grid != 0 {
				t.Errorf("first-bounce capture saw %d grids, want 0", c.grid)
			}
			if c.bounce > 0 && c.grid == 0 {
				t.Errorf("bounce %d capture saw no grids", c.bounce)
			}
		} else if c.cube == 0 {
			t.Error("cube capture saw no shippable reflection probes")
		}
	}

	// Hidden counts never leak out of the capture.
	if info.NumRenderCube != 2 || info.NumRenderGrid != 2 {
		t.Errorf("render counts = %d/%d after convergence, want 2/2", info.NumRenderCube, info.NumRenderGrid)
	}
}

func TestWorldRefreshRestartsEverything(t *testing.T) {
	p, _, passes := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(1, 1, 1))
	cube := probe.NewProbe(probe.ProbeTypeCube)

	first := stepUntilIdle(t, p, 100, grid, cube)

	p.MarkWorldDirty()
	frame(t, p, grid, cube)
	if !grid.State().NeedUpdate || !cube.State().NeedUpdate {
		t.Error("probes not re-flagged by a pending world refresh")
	}
	if p.Info().UpdatedBounce != 0 {
		t.Errorf("UpdatedBounce = %d after world refresh, want 0", p.Info().UpdatedBounce)
	}

	if !p.Step() {
		t.Fatal("expected the world to re-bake")
	}
	if got := passes.count("worldBackground"); got != 2 {
		t.Errorf("world background passes = %d, want 2", got)
	}

	// The full sweep repeats, minus the unit already performed above.
	again := stepUntilIdle(t, p, 100, grid, cube) + 1
	if again != first {
		t.Errorf("re-bake units = %d, want %d", again, first)
	}
}

func TestDirtyProbeRestartsBounceSweep(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	grid := probe.NewProbe(probe.ProbeTypeGrid, probe.WithResolution(1, 1, 1))

	stepUntilIdle(t, p, 100, grid)

	// Moving the grid re-bakes it and restarts the global bounce counter,
	// since later bounces were computed against its old contents.
	grid.SetTransform(grid.Transform())
	if !grid.Dirty() {
		t.Fatal("SetTransform did not mark the probe dirty")
	}

	frame(t, p, grid)
	if grid.Dirty() {
		t.Error("registration did not consume the dirty flag")
	}
	if !grid.State().NeedUpdate {
		t.Error("dirty probe not flagged for update")
	}
	if p.Info().UpdatedBounce != 0 {
		t.Errorf("UpdatedBounce = %d, want 0", p.Info().UpdatedBounce)
	}

	if baked := stepUntilIdle(t, p, 100, grid); baked+0 == 0 {
		t.Error("no re-bake happened for the dirty probe")
	}
}
