// Package prompt composes LLM prompt bundles for the insight stage.
// Composition is pure: no network, no storage. The only variability
// is the rotation source, injected so tests can pin a seed, which
// keeps the rest of the pipeline deterministic.
package prompt
