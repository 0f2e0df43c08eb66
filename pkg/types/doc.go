/*
Package types defines the core data structures used throughout Muster.

This package contains the fundamental types of the document pipeline's
domain model: the per-document record, step states, PII findings, blob
references, and OCR blocks. These types are used by all other packages
for state management and orchestration logic.

The DocumentRecord is the durable row keyed by document_id. Its JSON
field names are a stable contract consumed by external read handlers
and must not change. Status is always a derivation of the step map
(see DeriveStatus) and never regresses during an execution.
*/
package types
