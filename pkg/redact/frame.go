package redact

import (
	"fmt"
	"strings"
	"time"
)

const (
	headerTitle = "=== REDACTED DD214 DOCUMENT ==="
	bodyOpen    = "REDACTED CONTENT:\n================\n"
	bodyClose   = "\n================\nEND OF REDACTED DOCUMENT"
)

// Frame wraps a redacted body in the standard header and footer.
func Frame(body string, itemsRedacted int, now time.Time) string {
	var b strings.Builder
	b.WriteString(headerTitle)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "PII Items Redacted: %d\n", itemsRedacted)
	b.WriteString("\nThis document has been automatically redacted to protect\npersonally identifiable information (PII).\n\n")
	b.WriteString(bodyOpen)
	b.WriteString(body)
	b.WriteString(bodyClose)
	b.WriteString("\n\nNote: This is a redacted copy. The original document is stored securely\nand is only accessible to authorized personnel.\n")
	return b.String()
}

// unwrap extracts the body from an already-framed artifact. framed is
// false when text carries no frame, in which case body is text itself.
func unwrap(text string) (body string, framed bool) {
	if !strings.HasPrefix(text, headerTitle) {
		return text, false
	}
	start := strings.Index(text, bodyOpen)
	if start < 0 {
		return text, false
	}
	start += len(bodyOpen)
	end := strings.LastIndex(text, bodyClose)
	if end < start {
		return text, false
	}
	return text[start:end], true
}
