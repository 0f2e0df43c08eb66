// Package ingress bridges blob arrival and pipeline execution. It
// consumes blob.created events, recognizes originals by their key
// layout, claims a deterministic execution name on the document record,
// and hands the document to the worker pool. Keys outside the uploads
// layout are logged and dropped.
package ingress
