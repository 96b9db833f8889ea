// Package analysis provides orbit and chaos analysis of recorded runs.
//
//   - [MeasureOrbit]: orbital period and shape of one body, compared to
//     Kepler's third law
//   - [DominantPeriod]: period of the strongest oscillation in a series
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [TrajectoryASCII]: terminal plot of body paths
//
// # Kepler Check
//
//	orbit, err := analysis.MeasureOrbit(samples, 1, cfg.G)
//	fmt.Printf("T = %.4f (Kepler %.4f, error %.2f%%)\n",
//	    orbit.Period, orbit.KeplerPeriod, 100*orbit.RelativeError())
package analysis
