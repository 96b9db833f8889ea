// Package compute provides the gravitational force evaluators.
//
//   - direct: exact pairwise sum, split across goroutines for larger systems
//   - barneshut: kd-tree approximation controlled by an opening angle theta
//
// Both use Plummer softening: the acceleration on body i is
//
//	a_i = G · Σ_j m_j (p_j − p_i) / (|p_j − p_i|² + ε²)^{3/2}
//
// Selecting an evaluator by name:
//
//	eval, err := compute.New(compute.BarnesHut, 0.5)
//
// With ε = 0 and two coincident bodies the result is not finite; the
// engine reports that as a numerical instability.
package compute
