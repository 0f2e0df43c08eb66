/*
Package insight turns a redacted document into the career insight
artifact. The LLM sits behind the single-operation Converser
interface with adapters for Bedrock and the Anthropic API, so the
generator, parsing, and fallback logic never touch provider SDKs.

A failed or unparseable primary analysis degrades to a static
fallback artifact rather than failing the stage; the record carries
the fallback flag so readers can tell the two apart.
*/
package insight
