// Package syncutil holds the mutexes guarding bridge state. Building with
// -tags=deadlock swaps them for github.com/sasha-s/go-deadlock versions that
// report lock-order inversions and locks held past a timeout.
package syncutil
