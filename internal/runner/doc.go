// Package runner defines the contract between the job engine and the units
// that do the actual work: a pipeline process measured for throughput, and a
// density sweep that drives such a process repeatedly. It also provides the
// os/exec based implementations used in production.
package runner
