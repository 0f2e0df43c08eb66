/*
Package extract performs deterministic field extraction from OCR line
blocks of a DD214.

The extractor is a pure function over the newline-joined LINE buffer:
for each target field an ordered pattern list is tried and the first
capture wins. It never fails a pipeline stage; fields that do not
match are absent from the output and surface downstream as a degraded
insight.

Beyond the raw fields, the package derives total service months from
a duration string, buckets them into an experience tier, and infers
leadership band and likely clearance for prompt context.
*/
package extract
