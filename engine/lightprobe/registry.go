package lightprobe

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/lumen-engine/lumen-go/common"
	"github.com/lumen-engine/lumen-go/engine/probe"
)

func (p *pipelineImpl) Register(pr probe.Probe) {
	info := p.info

	if (pr.Type() == probe.ProbeTypeCube && info.NumCube >= MaxProbe) ||
		(pr.Type() == probe.ProbeTypeGrid && info.NumGrid >= MaxGrid) {
		warnf("too many probes in the scene, dropping one")
		return
	}

	st := pr.State()
	st.NumCell = int(pr.Resolution()[0]) * int(pr.Resolution()[1]) * int(pr.Resolution()[2])

	// A moved or edited probe restarts its own bake; any invalidation also
	// restarts the global bounce sweep since bounces build on each other.
	if pr.Dirty() {
		st.Invalidate()
		info.UpdatedBounce = 0
		pr.ClearDirty()
	}
	if p.updateWorld {
		st.Invalidate()
		info.UpdatedBounce = 0
	}

	if pr.Type() == probe.ProbeTypeCube {
		info.ProbesCube[info.NumCube] = pr
		info.NumCube++
	} else {
		info.ProbesGrid[info.NumGrid] = pr
		info.NumGrid++
	}
}

// updateTransforms recomputes the shading records for every registered probe.
// Each probe is independent, so records are computed on the transform worker
// pool with a frame barrier; grid atlas offsets are serial since each grid's
// offset depends on the cell counts of the grids before it.
func (p *pipelineImpl) updateTransforms() {
	info := p.info

	var wg sync.WaitGroup
	taskID := 0

	for i := 1; i < info.NumCube; i++ {
		pr := info.ProbesCube[i]
		data := &info.CubeData[i]
		wg.Add(1)
		taskID++
		p.transformPool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				cubeProbeData(pr, data)
				return nil, nil
			},
		})
	}

	offset := int32(1) // slot 0 is the world's single irradiance cell
	for i := 1; i < info.NumGrid; i++ {
		pr := info.ProbesGrid[i]
		data := &info.GridData[i]
		lattice := &info.Lattices[i]

		data.Offset = offset
		offset += int32(pr.State().NumCell)

		wg.Add(1)
		taskID++
		p.transformPool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				gridProbeData(pr, data, lattice)
				return nil, nil
			},
		})
	}

	wg.Wait()
}

// cubeProbeData fills a reflection probe's shading record: world position,
// attenuation and parallax shapes as inverse world-to-unit matrices.
func cubeProbeData(pr probe.Probe, data *GPUCubeProbe) {
	m := pr.Transform()
	data.Position = [3]float32{m[12], m[13], m[14]}

	data.AttenuationType = int32(pr.FalloffType())
	data.AttenuationFac = 1.0 / max(1e-8, pr.Falloff())

	var scale, tmp [16]float32
	common.ScaleUniform(scale[:], pr.FalloffDistance())
	common.Mul4(tmp[:], m[:], scale[:])
	common.Invert4(data.AttenuationMat[:], tmp[:])

	dist := pr.FalloffDistance()
	data.ParallaxType = int32(pr.FalloffType())
	if pr.CustomParallax() {
		data.ParallaxType = int32(pr.ParallaxType())
		dist = pr.ParallaxDistance()
	}
	common.ScaleUniform(scale[:], dist)
	common.Mul4(tmp[:], m[:], scale[:])
	common.Invert4(data.ParallaxMat[:], tmp[:])
}

// gridProbeData fills an irradiance grid's shading record and caches its
// world-space lattice basis for cell placement during baking.
func gridProbeData(pr probe.Probe, data *GPUGrid, lattice *probe.GridLattice) {
	m := pr.Transform()

	fac := float32(1.0) / max(1e-8, pr.Falloff())
	data.AttenuationScale = fac / max(1e-8, pr.FalloffDistance())
	data.AttenuationBias = fac

	// World space to [-1,1] cell range.
	common.Invert4(data.Mat[:], m[:])

	*lattice = probe.ComputeLattice(m, pr.Resolution())
	data.Resolution = lattice.Resolution
	data.Corner = lattice.Corner
	data.IncrementX = lattice.IncrementX
	data.IncrementY = lattice.IncrementY
	data.IncrementZ = lattice.IncrementZ
}
