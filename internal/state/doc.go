// Package state models the population snapshot the trajectory engine
// steps through time.
//
// A [System] couples a per-taxon vector with a [Mode] that fixes what
// the entries mean:
//
//   - [KindFrequency]: entries live on the probability simplex and the
//     total mass is 1 by convention
//   - [KindPopulation]: entries are absolute counts and the mass is the
//     rounded sum, optionally capped at a carrying capacity
//
// [System.Sanitize] is the single place invariants are enforced: it
// zeroes non-finite, nonpositive, and below-cutoff entries, then
// projects onto the simplex or applies the capacity clamp, and always
// recomputes the mass. The integrator produces raw, unconstrained
// vectors and relies on Sanitize being called after every step.
//
// Species accessors ([System.Get], [System.Set], [System.Increase],
// [System.Decrease]) use 1-based indexing; an out-of-range index is a
// programming error and panics.
package state
