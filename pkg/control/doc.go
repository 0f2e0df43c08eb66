// Package control is the document-facing surface: provision an upload,
// read the record, fetch the redacted artifact, fetch insights. The
// procedures are transport-neutral; Handler wraps them in JSON HTTP.
package control
