// Package redact turns OCR text plus a findings list into the framed
// redacted artifact. Replacement markers carry the finding kind so a
// reviewer can see what class of value was removed. The pass is
// idempotent: framed input is unwrapped before rules run and markers
// never re-match.
package redact
