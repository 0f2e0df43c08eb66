/*
Package blob provides the content store for originals and derived
artifacts, addressed by {bucket, key}.

Two backends implement the Store interface: S3Store for production and
FSStore for local deployments and tests. The canonical key layout is
owned by this package:

	uploads/{owner_id}/{YYYYMMDD_HHMMSS}_{document_id}.{ext}
	textract-results/{document_id}/full_results.json
	textract-results/{document_id}/full_text.txt
	textract-results/{document_id}/extraction_summary.json
	redacted/{document_id}/dd214_redacted.txt

Artifact keys are functions of document_id only, so re-running a stage
overwrites its own output instead of duplicating it.

Create notifications for originals come from bucket events in S3
deployments; the fs backend substitutes a fsnotify Watcher that
publishes blob.created events on the shared broker.
*/
package blob
