/*
Package events provides the in-process event bus for the pipeline.

The broker fans blob-create notifications out to the ingress trigger
and surfaces execution lifecycle events for observers. Delivery is
best-effort: a subscriber with a full buffer misses the event rather
than blocking the publisher. The record store, not the event stream,
is the source of truth for progress.
*/
package events
