// Package sweep enforces document retention. Records carry an absolute
// TTL stamped at creation; once it passes, the sweeper deletes the
// original, every derived artifact, the insights row, and finally the
// record.
package sweep
