/*
Package ocr adapts the external asynchronous OCR service.

The Client interface covers the three phases of a job: Start submits,
Poll observes, FetchAll drains the paginated block results following
every continuation token. TextractClient is the production
implementation; tests substitute fakes.

After a successful fetch the ArtifactWriter persists three artifacts
per document: the complete block dump (full_results.json), a plain
text join of the LINE blocks (full_text.txt), and an extraction
summary carrying the extracted fields, block statistics, and a 500
character preview (extraction_summary.json).

Text longer than MaxInlineTextChars is never carried inline between
stages; downstream stages read it back through the full_text pointer.
*/
package ocr
