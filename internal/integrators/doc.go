// Package integrators provides the time stepping schemes of the engine.
//
//   - [Explicit]: first-order kick then drift ("explicit", "euler")
//   - [VelocityVerlet]: second-order symplectic scheme ("verlet")
//
// Both apply the isokinetic thermostat [VelocityCoef] to the velocities
// and wrap positions back into the box with [PeriodicBoundary].
package integrators
