/*
Package store provides the durable per-document record store.

Records are keyed by document_id and persisted as JSON values in a
BoltDB bucket. A second bucket holds insights-only copies so the read
side can serve finished artifacts without walking the full record.

Concurrent writers to the same record are serialized two ways: Mutate
performs the read-modify-write inside a single BoltDB transaction, and
Update offers compare-and-set on updated_at for callers that modify a
record outside a transaction. On ErrConflict the writer re-reads,
re-applies its changes, and retries.

Status is re-derived from the step map on every Mutate and is guarded
against regression.
*/
package store
