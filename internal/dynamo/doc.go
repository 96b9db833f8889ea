// Package dynamo provides the core primitives of the gravitational N-body
// simulation.
//
//   - [Store]: structure-of-arrays body storage addressed by [Handle]
//   - [ForceEvaluator]: pluggable acceleration kernel (exact or approximate)
//   - [Scheme]: time integration scheme operating on a [Stepper]
//   - [Engine]: owns the simulation state and advances it one step at a time
//
// # Example
//
//	store := dynamo.NewStore()
//	store.Add(r2.Vec{X: -1}, r2.Vec{Y: 0.5}, 1)
//	store.Add(r2.Vec{X: 1}, r2.Vec{Y: -0.5}, 1)
//	eng, _ := dynamo.NewEngine(store, compute.NewDirect(), integrators.NewSymplecticEuler(), dynamo.DefaultParams())
//	err := eng.Step()
//
// # Faults
//
// A step that produces a non-finite acceleration, velocity or position
// fails with [ErrNumericalInstability] and moves the engine to [Faulted].
// Further steps fail with [ErrFaulted] until [Engine.Reset] re-seeds it.
//
// # Thread Safety
//
// Store and Engine are NOT thread-safe. A single goroutine owns them; other
// goroutines observe the simulation only through published snapshots.
package dynamo
