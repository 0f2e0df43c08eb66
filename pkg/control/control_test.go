package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, store.Store, blob.Store) {
	t.Helper()
	st, err := store.NewBoltStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)

	svc := NewService(st, blobs, "originals", 90*24*time.Hour)
	return svc, st, blobs
}

func TestProvisionUpload(t *testing.T) {
	svc, st, _ := newTestService(t)

	up, err := svc.ProvisionUpload(context.Background(), ProvisionRequest{
		OwnerID:     "vet1",
		OwnerEmail:  "vet@example.com",
		Filename:    "dd214.pdf",
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, up.DocumentID)
	assert.NotEmpty(t, up.UploadURL)
	assert.True(t, up.ExpiresAt.After(time.Now()))

	rec, err := st.Get(up.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPendingUpload, rec.Status)
	assert.Equal(t, "vet1", rec.OwnerID)
	assert.Equal(t, "vet@example.com", rec.OwnerEmail)
	require.NotNil(t, rec.SourceRef)
	assert.Equal(t, "dd214.pdf", rec.SourceRef.OriginalFilename)

	ownerID, documentID, ok := blob.ParseUploadKey(rec.SourceRef.Key)
	require.True(t, ok)
	assert.Equal(t, "vet1", ownerID)
	assert.Equal(t, up.DocumentID, documentID)
}

func TestProvisionUploadRejectsUnknownExtension(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ProvisionUpload(context.Background(), ProvisionRequest{
		OwnerID: "vet1", Filename: "dd214.docx", ContentType: "application/msword",
	})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.ProvisionUpload(context.Background(), ProvisionRequest{
		Filename: "dd214.pdf", ContentType: "application/pdf",
	})
	assert.Error(t, err)
}

func TestGetRedactedNotReady(t *testing.T) {
	svc, st, _ := newTestService(t)
	require.NoError(t, st.Create(types.NewRecord("doc-1", "vet1", time.Hour)))

	_, err := svc.GetRedacted(context.Background(), "doc-1")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestGetRedactedReturnsSignedURL(t *testing.T) {
	svc, st, blobs := newTestService(t)
	require.NoError(t, st.Create(types.NewRecord("doc-2", "vet1", time.Hour)))

	key := blob.RedactedKey("doc-2")
	require.NoError(t, blobs.Put(context.Background(), "redacted-docs", key, []byte("redacted"), blob.PutOptions{Encrypt: true}))
	_, err := st.Mutate("doc-2", func(rec *types.DocumentRecord) error {
		rec.RedactedRef = &types.BlobRef{Bucket: "redacted-docs", Key: key}
		return nil
	})
	require.NoError(t, err)

	url, err := svc.GetRedacted(context.Background(), "doc-2")
	require.NoError(t, err)
	assert.Contains(t, url, "dd214_redacted.txt")
	assert.Contains(t, url, "expires=")
}

func TestGetInsights(t *testing.T) {
	svc, st, _ := newTestService(t)
	require.NoError(t, st.Create(types.NewRecord("doc-3", "vet1", time.Hour)))

	_, err := svc.GetInsights("doc-3")
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, st.PutInsights("doc-3", []byte(`{"analysis_method":"enhanced_comprehensive"}`)))
	artifact, err := svc.GetInsights("doc-3")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(artifact, &decoded))
	assert.Equal(t, "enhanced_comprehensive", decoded["analysis_method"])

	_, err = svc.GetInsights("no-such-doc")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHTTPProvisionAndPoll(t *testing.T) {
	svc, st, _ := newTestService(t)
	srv := httptest.NewServer(Handler(svc))
	defer srv.Close()

	body := `{"owner_id":"vet1","filename":"dd214.pdf","content_type":"application/pdf"}`
	resp, err := http.Post(srv.URL+"/v1/uploads", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var up Upload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	require.NotEmpty(t, up.DocumentID)

	recResp, err := http.Get(srv.URL + "/v1/documents/" + up.DocumentID)
	require.NoError(t, err)
	defer recResp.Body.Close()
	require.Equal(t, http.StatusOK, recResp.StatusCode)

	var rec types.DocumentRecord
	require.NoError(t, json.NewDecoder(recResp.Body).Decode(&rec))
	assert.Equal(t, up.DocumentID, rec.DocumentID)
	assert.Equal(t, types.StatusPendingUpload, rec.Status)

	// Artifacts are pending until the pipeline produces them.
	pending, err := http.Get(srv.URL + "/v1/documents/" + up.DocumentID + "/redacted")
	require.NoError(t, err)
	defer pending.Body.Close()
	assert.Equal(t, http.StatusAccepted, pending.StatusCode)

	require.NoError(t, st.PutInsights(up.DocumentID, []byte(`{"extracted_profile":{}}`)))
	insights, err := http.Get(srv.URL + "/v1/documents/" + up.DocumentID + "/insights")
	require.NoError(t, err)
	defer insights.Body.Close()
	assert.Equal(t, http.StatusOK, insights.StatusCode)
}

func TestHTTPUnknownDocument(t *testing.T) {
	svc, _, _ := newTestService(t)
	srv := httptest.NewServer(Handler(svc))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/documents/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPRejectsBadUploadRequest(t *testing.T) {
	svc, _, _ := newTestService(t)
	srv := httptest.NewServer(Handler(svc))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/uploads", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/v1/uploads", "application/json",
		strings.NewReader(`{"owner_id":"vet1","filename":"virus.exe","content_type":"application/octet-stream"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}
