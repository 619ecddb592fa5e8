package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/testutil"
)

func TestSelectPath(t *testing.T) {
	assert.Equal(t, PathDirect, SelectPath(39<<20))
	assert.Equal(t, PathDirect, SelectPath(40<<20), "the boundary itself goes direct")
	assert.Equal(t, PathDelegated, SelectPath(40<<20+1))
	assert.Equal(t, PathDelegated, SelectPath(41<<20))
}

func newTestPipeline(t *testing.T, storage platform.ObjectStorage, backend *testutil.FakePlatform, relayURL string) (*Pipeline, *[]time.Duration) {
	t.Helper()
	records := platform.NewRecordsClient(backend.URL(), "anon-key", &http.Client{})
	p := NewPipeline(storage, records, relayURL, func() string { return "session-token" }, 4)

	var sleeps []time.Duration
	p.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return p, &sleeps
}

func TestUploadBatchDirectPath(t *testing.T) {
	backend := testutil.NewFakePlatform()
	defer backend.Close()
	storage := testutil.NewMemoryStorage()
	p, _ := newTestPipeline(t, storage, backend, "http://relay.invalid")

	files := []File{{Name: "report.pdf", ContentType: "application/pdf", Content: []byte("pdf bytes")}}
	result, err := p.UploadBatch(context.Background(), files, models.PostSource("post-1"), "user-1", 0, nil)
	require.NoError(t, err)

	require.Empty(t, result.Failed)
	require.Len(t, result.Attachments, 1)
	att := result.Attachments[0]
	assert.NotEmpty(t, att.ID, "row id comes from the server")
	assert.Equal(t, "report.pdf", att.FileName)
	assert.Equal(t, models.CategoryPDF, att.Category)
	assert.Equal(t, "user-1", att.UploadedBy)
	assert.Equal(t, models.SourcePost, att.Source.Type)
	assert.Equal(t, 1, storage.Len())
	assert.Len(t, backend.Rows("attachments"), 1)
}

func TestDirectUploadRetriesWithLinearBackoff(t *testing.T) {
	backend := testutil.NewFakePlatform()
	defer backend.Close()
	storage := testutil.NewMemoryStorage()
	storage.FailPuts = 2
	p, sleeps := newTestPipeline(t, storage, backend, "http://relay.invalid")

	files := []File{{Name: "photo.jpg", ContentType: "image/jpeg", Content: []byte("jpeg")}}
	result, err := p.UploadBatch(context.Background(), files, models.PostSource("post-1"), "user-1", 0, nil)
	require.NoError(t, err)

	require.Empty(t, result.Failed)
	assert.Equal(t, 3, storage.PutCalls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *sleeps)
}

func TestDirectUploadGivesUpAfterThreeAttempts(t *testing.T) {
	backend := testutil.NewFakePlatform()
	defer backend.Close()
	storage := testutil.NewMemoryStorage()
	storage.FailPuts = 3
	p, sleeps := newTestPipeline(t, storage, backend, "http://relay.invalid")

	files := []File{{Name: "photo.jpg", ContentType: "image/jpeg", Content: []byte("jpeg")}}
	result, err := p.UploadBatch(context.Background(), files, models.PostSource("post-1"), "user-1", 0, nil)
	require.NoError(t, err, "per-file failures never fail the batch call")

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "photo.jpg", result.Failed[0].Name)
	assert.Equal(t, 3, storage.PutCalls)
	assert.Len(t, *sleeps, 2, "no sleep after the final attempt")
	assert.Empty(t, backend.Rows("attachments"))
}

func TestDelegatedUploadSingleAttempt(t *testing.T) {
	backend := testutil.NewFakePlatform()
	defer backend.Close()
	storage := testutil.NewMemoryStorage()

	var relayCalls int64
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&relayCalls, 1)
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(64<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "big.zip", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"path": r.FormValue("path"),
			"url":  "https://storage.test/" + r.FormValue("path"),
		})
	}))
	defer relay.Close()

	p, _ := newTestPipeline(t, storage, backend, relay.URL)

	files := []File{{Name: "big.zip", ContentType: "application/zip", Content: []byte("zip"), Size: 41 << 20}}
	result, err := p.UploadBatch(context.Background(), files, models.MessageSource("msg-1"), "user-1", 0, nil)
	require.NoError(t, err)

	require.Empty(t, result.Failed)
	require.Len(t, result.Attachments, 1)
	assert.Contains(t, result.Attachments[0].FileURL, "https://storage.test/message/")
	assert.Equal(t, int64(1), atomic.LoadInt64(&relayCalls))
	assert.Equal(t, 0, storage.PutCalls, "delegated files never touch direct storage")
}

func TestDelegatedUploadFailureIsTerminal(t *testing.T) {
	backend := testutil.NewFakePlatform()
	defer backend.Close()
	storage := testutil.NewMemoryStorage()

	var relayCalls int64
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&relayCalls, 1)
		http.Error(w, `{"error":"storage unavailable"}`, http.StatusBadGateway)
	}))
	defer relay.Close()

	p, sleeps := newTestPipeline(t, storage, backend, relay.URL)

	files := []File{{Name: "big.zip", ContentType: "application/zip", Content: []byte("zip"), Size: 41 << 20}}
	result, err := p.UploadBatch(context.Background(), files, models.MessageSource("msg-1"), "user-1", 0, nil)
	require.NoError(t, err)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(1), atomic.LoadInt64(&relayCalls), "the relay path never retries client-side")
	assert.Empty(t, *sleeps)
	assert.False(t, models.IsTransient(result.Failed[0].Err))
}

func TestRowInsertFailureOrphansObject(t *testing.T) {
	backend := testutil.NewFakePlatform()
	defer backend.Close()
	storage := testutil.NewMemoryStorage()
	p, _ := newTestPipeline(t, storage, backend, "http://relay.invalid")

	backend.FailNext(3)

	files := []File{{Name: "report.pdf", ContentType: "application/pdf", Content: []byte("pdf")}}
	result, err := p.UploadBatch(context.Background(), files, models.PostSource("post-1"), "user-1", 0, nil)
	require.NoError(t, err)

	require.Len(t, result.Failed, 1)
	// The object stays behind: there is no compensating delete for a
	// failed row insert.
	assert.Equal(t, 1, storage.Len())
	assert.Empty(t, backend.Rows("attachments"))
}

func TestUploadBatchMixedOutcome(t *testing.T) {
	backend := testutil.NewFakePlatform()
	defer backend.Close()
	storage := testutil.NewMemoryStorage()
	p, _ := newTestPipeline(t, storage, backend, "http://relay.invalid")

	files := []File{
		{Name: "fine.pdf", ContentType: "application/pdf", Content: []byte("pdf")},
		{Name: "huge.mov", ContentType: "video/quicktime", Size: 600 << 20},
		{Name: "broken.heic", ContentType: "image/heic", Content: []byte("garbage")},
	}
	result, err := p.UploadBatch(context.Background(), files, models.PostSource("post-1"), "user-1", 0, nil)
	require.NoError(t, err)

	require.Len(t, result.Attachments, 1)
	assert.Equal(t, "fine.pdf", result.Attachments[0].FileName)

	require.Len(t, result.Failed, 2)
	names := []string{result.Failed[0].Name, result.Failed[1].Name}
	assert.Contains(t, names, "huge.mov")
	assert.Contains(t, names, "broken.heic")
}

func TestUploadBatchRespectsExistingCount(t *testing.T) {
	backend := testutil.NewFakePlatform()
	defer backend.Close()
	p, _ := newTestPipeline(t, testutil.NewMemoryStorage(), backend, "http://relay.invalid")

	files := []File{
		{Name: "a.pdf", ContentType: "application/pdf", Content: []byte("a")},
		{Name: "b.pdf", ContentType: "application/pdf", Content: []byte("b")},
	}
	_, err := p.UploadBatch(context.Background(), files, models.PostSource("post-1"), "user-1", 3, nil)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}
