package ingress

import (
	"sync"
	"testing"
	"time"

	"github.com/musterhq/muster/pkg/blob"
	"github.com/musterhq/muster/pkg/events"
	"github.com/musterhq/muster/pkg/store"
	"github.com/musterhq/muster/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu        sync.Mutex
	submitted []string
}

func (r *recordingRunner) Submit(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, documentID)
}

func (r *recordingRunner) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.submitted...)
}

func newTestTrigger(t *testing.T) (*Trigger, store.Store, *recordingRunner) {
	t.Helper()
	st, err := store.NewBoltStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	runner := &recordingRunner{}
	return NewTrigger(st, events.NewBroker(), runner, 90*24*time.Hour), st, runner
}

func uploadEvent(ownerID, documentID string) *events.Event {
	return &events.Event{
		Type:   events.EventBlobCreated,
		Bucket: "originals",
		Key:    blob.UploadKey(ownerID, documentID, "pdf", time.Now()),
	}
}

func TestHandleStartsExecution(t *testing.T) {
	trig, st, runner := newTestTrigger(t)
	require.NoError(t, st.Create(types.NewRecord("doc-1", "vet1", time.Hour)))

	trig.Handle(uploadEvent("vet1", "doc-1"))

	require.Equal(t, []string{"doc-1"}, runner.submitted)

	rec, err := st.Get("doc-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, rec.Status)
	assert.Equal(t, "dd214-doc-1", rec.ExecutionHandle)
	assert.NotNil(t, rec.ProcessingStartedAt)
	require.NotNil(t, rec.SourceRef)
	assert.Equal(t, "originals", rec.SourceRef.Bucket)
}

func TestHandleDuplicateEventStartsOnce(t *testing.T) {
	trig, st, runner := newTestTrigger(t)
	require.NoError(t, st.Create(types.NewRecord("doc-2", "vet1", time.Hour)))

	ev := uploadEvent("vet1", "doc-2")
	trig.Handle(ev)
	trig.Handle(ev)

	assert.Equal(t, []string{"doc-2"}, runner.submitted)
}

func TestHandleCreatesMissingRecord(t *testing.T) {
	trig, st, runner := newTestTrigger(t)

	trig.Handle(uploadEvent("vet2", "doc-3"))

	require.Equal(t, []string{"doc-3"}, runner.submitted)
	rec, err := st.Get("doc-3")
	require.NoError(t, err)
	assert.Equal(t, "vet2", rec.OwnerID)
	assert.Equal(t, types.StatusProcessing, rec.Status)
}

func TestHandleIgnoresOtherPrefixes(t *testing.T) {
	trig, _, runner := newTestTrigger(t)

	trig.Handle(&events.Event{
		Type:   events.EventBlobCreated,
		Bucket: "originals",
		Key:    "textract-results/doc-4/full_text.txt",
	})
	trig.Handle(&events.Event{
		Type:   events.EventBlobDeleted,
		Bucket: "originals",
		Key:    blob.UploadKey("vet1", "doc-4", "pdf", time.Now()),
	})

	assert.Empty(t, runner.submitted)
}

func TestHandleSkipsInvalidUploadKeys(t *testing.T) {
	trig, _, runner := newTestTrigger(t)

	trig.Handle(&events.Event{
		Type:   events.EventBlobCreated,
		Bucket: "originals",
		Key:    "uploads/vet1/not-a-canonical-name.exe",
	})

	assert.Empty(t, runner.submitted)
}

func TestTriggerConsumesBrokerEvents(t *testing.T) {
	st, err := store.NewBoltStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	runner := &recordingRunner{}
	trig := NewTrigger(st, broker, runner, time.Hour)
	trig.Start()

	broker.Publish(uploadEvent("vet1", "doc-5"))

	require.Eventually(t, func() bool {
		return len(runner.ids()) == 1
	}, time.Second, 5*time.Millisecond)

	trig.Stop()
	assert.Equal(t, []string{"doc-5"}, runner.ids())
}
