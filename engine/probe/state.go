package probe

// EngineState is the engine-private bake state carried by every probe. It is
// owned by the probe and opaque to the registry; only the refresh scheduler
// mutates it. Cursors are never rolled back: a deferred bake resumes on a
// later frame with state intact.
type EngineState struct {
	// NeedUpdate is set when the probe must be re-baked, either because its
	// owner changed or because the world probe was refreshed.
	NeedUpdate bool

	// UpdatedCells is the bake cursor for grid probes: the number of lattice
	// cells already baked during the current bounce sweep.
	UpdatedCells int

	// ProbeID is the probe's storage-slot index once its bake has landed,
	// i.e. the pool layer (cube) recorded for shading.
	ProbeID int

	// ReadyToShade is set the first time the probe's bake completes; until
	// then shading passes must not sample it.
	ReadyToShade bool

	// NumCell is the total lattice cell count (nx*ny*nz) for grid probes.
	NumCell int
}

// Invalidate marks the probe for a full re-bake and resets its cursors.
// Called when the owning object changed or when world lighting moved under it.
func (s *EngineState) Invalidate() {
	s.NeedUpdate = true
	s.UpdatedCells = 0
	s.ProbeID = 0
}
