package common

import "math"

// RadicalInverse computes the base-2 Van der Corput radical inverse of i by
// bit reversal. Together with i/n it forms the Hammersley low-discrepancy
// sequence used for importance sampling.
// From http://holger.dammertz.org/stuff/notes_HammersleyOnHemisphere.html
//
// Parameters:
//   - i: the sample index
//
// Returns:
//   - float32: the radical inverse in [0, 1)
func RadicalInverse(i int) float32 {
	bits := uint32(i)
	bits = (bits << 16) | (bits >> 16)
	bits = ((bits & 0x55555555) << 1) | ((bits & 0xAAAAAAAA) >> 1)
	bits = ((bits & 0x33333333) << 2) | ((bits & 0xCCCCCCCC) >> 2)
	bits = ((bits & 0x0F0F0F0F) << 4) | ((bits & 0xF0F0F0F0) >> 4)
	bits = ((bits & 0x00FF00FF) << 8) | ((bits & 0xFF00FF00) >> 8)
	return float32(bits) * 2.3283064365386963e-10
}

// HammersleyPoints generates the per-sample (cos φ, sin φ) pairs of the
// Hammersley sequence, with φ = 2π · RadicalInverse(i). The result is
// uploaded once as an RG16F 1D texture and indexed by the filter shaders.
//
// Parameters:
//   - samples: the number of points to generate
//
// Returns:
//   - [][2]float32: one (cos φ, sin φ) pair per sample
func HammersleyPoints(samples int) [][2]float32 {
	points := make([][2]float32, samples)
	for i := range points {
		phi := float64(RadicalInverse(i)) * 2.0 * math.Pi
		points[i][0] = float32(math.Cos(phi))
		points[i][1] = float32(math.Sin(phi))
	}
	return points
}
