/*
Package orchestrator drives the document pipeline as a deterministic
state machine over the record store. Each stage writes its step state
before the execution advances, artifact keys are functions of the
document id alone, and completed steps are skipped on rerun, so any
number of executions for the same document converge on one set of
artifacts.

Failure policy: transient external errors retry with jittered
backoff up to a per-stage cap; permanent errors and timeouts mark the
step error and halt the execution. The record then carries the
failing step and a human-readable message.
*/
package orchestrator
