package blob

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// Canonical key layout. The ingress trigger parses upload keys, and
// external consumers depend on the artifact prefixes, so none of these
// shapes may change.
const (
	uploadsPrefix  = "uploads/"
	resultsPrefix  = "textract-results/"
	redactedPrefix = "redacted/"

	uploadTimeLayout = "20060102_150405"
)

// AllowedExtensions lists the accepted original formats.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// uploadKeyRe matches uploads/{owner_id}/{YYYYMMDD_HHMMSS}_{document_id}.{ext}
var uploadKeyRe = regexp.MustCompile(`^uploads/([^/]+)/(\d{8}_\d{6})_([^/._]+)\.([A-Za-z]+)$`)

// UploadKey builds the object key for an original.
func UploadKey(ownerID, documentID, ext string, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("uploads/%s/%s_%s.%s",
		ownerID, now.UTC().Format(uploadTimeLayout), documentID, ext)
}

// ParseUploadKey recovers owner and document identity from an upload
// key. Returns false for keys outside the uploads layout.
func ParseUploadKey(key string) (ownerID, documentID string, ok bool) {
	m := uploadKeyRe.FindStringSubmatch(key)
	if m == nil {
		return "", "", false
	}
	ext := "." + strings.ToLower(m[4])
	if !AllowedExtensions[ext] {
		return "", "", false
	}
	return m[1], m[3], true
}

// IsUploadPrefix reports whether key lives under the originals prefix.
func IsUploadPrefix(key string) bool {
	return strings.HasPrefix(key, uploadsPrefix)
}

// FullResultsKey is the complete paginated OCR block dump.
func FullResultsKey(documentID string) string {
	return path.Join(resultsPrefix+documentID, "full_results.json")
}

// FullTextKey is the convenience plain-text dump.
func FullTextKey(documentID string) string {
	return path.Join(resultsPrefix+documentID, "full_text.txt")
}

// ExtractionSummaryKey is the extracted fields + stats artifact.
func ExtractionSummaryKey(documentID string) string {
	return path.Join(resultsPrefix+documentID, "extraction_summary.json")
}

// RedactedKey is the redacted text artifact.
func RedactedKey(documentID string) string {
	return path.Join(redactedPrefix+documentID, "dd214_redacted.txt")
}

// DocumentKeys lists every artifact key a document may own, for the
// TTL sweep.
func DocumentKeys(documentID string) []string {
	return []string{
		FullResultsKey(documentID),
		FullTextKey(documentID),
		ExtractionSummaryKey(documentID),
		RedactedKey(documentID),
	}
}
