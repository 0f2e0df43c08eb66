/*
Package metrics provides Prometheus metrics and health endpoints for Muster.

All metrics are registered at package init and exposed through Handler.
The Collector samples record counts from the store on a fixed interval;
stage code records durations and counters inline via the package-level
instruments and the Timer helper:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StageDuration, string(step))

Health endpoints (/health, /ready, /live) report per-component status
registered by the daemon at startup.
*/
package metrics
