// Package engine runs benchmark test jobs asynchronously. It registers each
// submitted job, executes it on its own goroutine through a runner, records
// exactly one terminal outcome, and answers status and stop requests while
// jobs are in flight.
package engine
