/*
Package log provides structured logging for Muster using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Usage

Initialize once at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		File:       "/var/log/muster/muster.log",
	})

When File is set, output is duplicated to a size-rotated log file in addition
to the primary writer.

Components derive child loggers so every line carries its origin:

	logger := log.WithComponent("orchestrator")
	logger.Info().Str("document_id", id).Msg("execution started")

Pipeline code attaches document identity with WithDocumentID and WithStep so
one document's path through the stages can be reassembled from interleaved
worker output.
*/
package log
