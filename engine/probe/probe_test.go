package probe

import "testing"

func TestNewProbeDefaults(t *testing.T) {
	p := NewProbe(ProbeTypeCube)

	if p.Type() != ProbeTypeCube {
		t.Errorf("type = %v, want cube", p.Type())
	}
	if !p.Dirty() {
		t.Error("a new probe must start dirty so it gets baked")
	}
	if p.FalloffType() != FalloffElipsoid {
		t.Errorf("falloff type = %v, want ellipsoid", p.FalloffType())
	}
	if p.FalloffDistance() != 2.5 || p.Falloff() != 0.25 {
		t.Errorf("falloff = %v/%v, want 2.5/0.25", p.FalloffDistance(), p.Falloff())
	}
	if p.ClipNear() != 0.8 || p.ClipFar() != 40.0 {
		t.Errorf("clip range = %v/%v, want 0.8/40", p.ClipNear(), p.ClipFar())
	}
	if p.CustomParallax() {
		t.Error("custom parallax enabled by default")
	}

	m := p.Transform()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 || m[12] != 0 {
		t.Errorf("transform not identity: %v", m)
	}
}

func TestNewProbeOptions(t *testing.T) {
	p := NewProbe(ProbeTypeGrid,
		WithPosition(1, 2, 3),
		WithResolution(2, 3, 4),
		WithFalloff(FalloffBox, 5, 0.5),
		WithClipRange(0.1, 200),
		WithCustomParallax(FalloffBox, 8),
	)

	if p.Position() != [3]float32{1, 2, 3} {
		t.Errorf("position = %v, want [1 2 3]", p.Position())
	}
	if p.Resolution() != [3]int32{2, 3, 4} {
		t.Errorf("resolution = %v, want [2 3 4]", p.Resolution())
	}
	if p.FalloffType() != FalloffBox || p.FalloffDistance() != 5 || p.Falloff() != 0.5 {
		t.Error("falloff options not applied")
	}
	if p.ClipNear() != 0.1 || p.ClipFar() != 200 {
		t.Error("clip range option not applied")
	}
	if !p.CustomParallax() || p.ParallaxType() != FalloffBox || p.ParallaxDistance() != 8 {
		t.Error("parallax options not applied")
	}
	if p.State().NumCell != 24 {
		t.Errorf("NumCell = %d, want 24", p.State().NumCell)
	}
}

func TestSettersMarkDirty(t *testing.T) {
	p := NewProbe(ProbeTypeCube)
	p.ClearDirty()

	checks := []struct {
		name string
		mut  func()
	}{
		{"SetTransform", func() { p.SetTransform(p.Transform()) }},
		{"SetFalloffDistance", func() { p.SetFalloffDistance(3) }},
		{"SetFalloff", func() { p.SetFalloff(0.5) }},
		{"SetClipRange", func() { p.SetClipRange(0.5, 80) }},
	}
	for _, c := range checks {
		p.ClearDirty()
		c.mut()
		if !p.Dirty() {
			t.Errorf("%s did not mark the probe dirty", c.name)
		}
	}

	// Display-only toggles never force a re-bake.
	p.ClearDirty()
	p.SetShowData(true)
	if p.Dirty() {
		t.Error("SetShowData marked the probe dirty")
	}
}

func TestInvalidateResetsCursors(t *testing.T) {
	st := &EngineState{
		NeedUpdate:   false,
		UpdatedCells: 7,
		ProbeID:      3,
		ReadyToShade: true,
		NumCell:      8,
	}
	st.Invalidate()

	if !st.NeedUpdate {
		t.Error("NeedUpdate not set")
	}
	if st.UpdatedCells != 0 || st.ProbeID != 0 {
		t.Errorf("cursors = %d/%d, want 0/0", st.UpdatedCells, st.ProbeID)
	}
	// Shade readiness survives: the stale data keeps displaying until the
	// re-bake lands.
	if !st.ReadyToShade {
		t.Error("ReadyToShade cleared by Invalidate")
	}
	if st.NumCell != 8 {
		t.Errorf("NumCell = %d, want 8", st.NumCell)
	}
}
