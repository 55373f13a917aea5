package lightprobe

// maxBounce is the number of indirect diffuse bounces baked into the grids.
const maxBounce = 3

// StateKind identifies where the bake scheduler is in its refresh cycle.
type StateKind int

const (
	// StateWorldDirty means a world refresh is pending or was just performed.
	StateWorldDirty StateKind = iota

	// StateBounceSweeping means grid cells are being baked bounce by bounce.
	StateBounceSweeping

	// StateCubeSweeping means reflection probes are being refiltered, which
	// only starts once every bounce sweep has completed.
	StateCubeSweeping

	// StateIdle means no bake work remains.
	StateIdle
)

// String returns a short lowercase name for the state kind, used in
// diagnostics and monitoring output.
func (k StateKind) String() string {
	switch k {
	case StateWorldDirty:
		return "world"
	case StateBounceSweeping:
		return "bounce"
	case StateCubeSweeping:
		return "cube"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// State is the scheduler's externally visible position in the refresh cycle.
type State struct {
	Kind StateKind
}

func (p *pipelineImpl) Step() bool {
	info := p.info

	// The world feeds every other bake, so it always goes first and is never
	// deferred for viewport interaction.
	if p.updateWorld {
		p.state = State{Kind: StateWorldDirty}

		p.captureWorld()
		p.glossyFilterProbe(0)
		p.diffuseFilterProbe(0)

		// Bake the world cell into the other atlas too, so world lighting is
		// available while the irradiance grids catch up.
		p.pool.SwapIrradiance()
		p.diffuseFilterProbe(0)

		p.updateWorld = false

		if !p.worldReadyToShade {
			p.worldReadyToShade = true
			info.NumRenderCube = 1
			info.NumRenderGrid = 1
		}

		p.redraw()
		return true
	}

	// Only compute probes while the viewport is idle; deferred work resumes
	// on a later frame.
	if p.viewport != nil && (p.viewport.Navigating() || p.viewport.AnimationPlaying()) {
		return false
	}

	// Reflection probes depend on diffuse lighting, so grids bake first.
	for info.UpdatedBounce < maxBounce {
		info.NumRenderGrid = info.NumGrid

		for i := 1; i < info.NumGrid; i++ {
			pr := info.ProbesGrid[i]
			st := pr.State()
			if !st.NeedUpdate {
				continue
			}
			p.state = State{Kind: StateBounceSweeping}

			cellID := st.UpdatedCells

			p.pool.SwapIrradiance()

			// Hide all reflection probes while capturing, and on the first
			// bounce the grids too, so the capture only sees light from the
			// previous bounce.
			tmpNumRenderGrid := info.NumRenderGrid
			tmpNumRenderCube := info.NumRenderCube
			info.NumRenderCube = 0
			if info.UpdatedBounce == 0 {
				info.NumRenderGrid = 0
			}

			pos := info.Lattices[i].CellLocation(cellID)
			p.captureScene(pos, pr.ClipNear(), pr.ClipFar())
			p.diffuseFilterProbe(int(info.GridData[i].Offset) + cellID)

			// Restore
			info.NumRenderGrid = tmpNumRenderGrid
			info.NumRenderCube = tmpNumRenderCube

			// Swap back so the freshly baked cell is immediately visible.
			p.pool.SwapIrradiance()

			st.UpdatedCells++
			if st.UpdatedCells >= st.NumCell {
				st.NeedUpdate = false
			}

			// Only one bake unit per frame.
			p.redraw()
			return true
		}

		info.UpdatedBounce++
		info.NumRenderGrid = info.NumGrid

		if info.UpdatedBounce < maxBounce {
			// Retag all grids to rebake against the bounce just completed.
			for i := 1; i < info.NumGrid; i++ {
				st := info.ProbesGrid[i].State()
				st.NeedUpdate = true
				st.UpdatedCells = 0
			}
			p.pool.SwapIrradiance()
		}
	}

	for i := 1; i < info.NumCube; i++ {
		pr := info.ProbesCube[i]
		st := pr.State()
		if !st.NeedUpdate {
			continue
		}
		p.state = State{Kind: StateCubeSweeping}

		m := pr.Transform()
		p.captureScene([3]float32{m[12], m[13], m[14]}, pr.ClipNear(), pr.ClipFar())
		p.glossyFilterProbe(i)

		st.NeedUpdate = false
		st.ProbeID = i

		if !st.ReadyToShade {
			info.NumRenderCube++
			st.ReadyToShade = true
		}

		// Only one bake unit per frame.
		p.redraw()
		return true
	}

	p.state = State{Kind: StateIdle}
	return false
}
