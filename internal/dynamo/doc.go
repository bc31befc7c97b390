// Package dynamo provides the simulation state and the driver loop.
//
// The package defines the types shared by the engine:
//
//   - [System]: positions, velocities and parameters of a particle system
//   - [ForceField]: pair interaction collaborator (see package physics)
//   - [Integrator]: time stepping collaborator (see package integrators)
//   - [Simulator]: runs a system and records energy [Sample] values
//   - [Ensemble]: runs independent replicas concurrently
//
// # Example
//
//	field := physics.PairwiseField{Sigma: 1, Eps: 1}
//	sys, _ := dynamo.NewSystem(tensor.Host(), params, field, integrators.NewVelocityVerlet(), pos, vel)
//	defer sys.Release()
//	result, _ := dynamo.New().Run(ctx, sys, cfg)
//
// # Thread Safety
//
// System and Simulator instances are NOT thread-safe. For parallel
// simulations, use the [Ensemble] type which builds one system per replica.
package dynamo
