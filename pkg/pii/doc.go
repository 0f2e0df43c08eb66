/*
Package pii produces the findings list that drives redaction.

Two signal sources combine: pattern rules (always on) covering SSN,
DoD ID, phone, email and ZIP shapes plus the DD214 structural labels,
and an optional external entity classifier behind the Classifier
interface. The always-redact DD214 boxes are emitted as findings
unconditionally so coverage never depends on a pattern hit.

A classifier timeout or hard failure does not fail the stage: the
detector completes with the default finding set and reports the run
as degraded so the record can carry the marker.
*/
package pii
