// Package memgov observes process and system memory usage and derives
// the processing limits (chunk size, concurrency) the pipeline is
// allowed to use at the current memory pressure tier.
package memgov
