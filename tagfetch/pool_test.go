package tagfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanPool_ConcurrentScans(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trackID := r.URL.Query().Get("track_id")
		w.Header().Set("Content-Type", "application/json")
		if trackID == "bad" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":115,"message":"track not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"title":"` + trackID + `","duration":10}`))
	}))
	defer ts.Close()

	pool := NewScanPool(newTestScanner(t, ts.URL), 3, 16, nil)
	require.NoError(t, pool.Start(context.Background()))

	h := &captureHandler{}
	for _, id := range []string{"a", "b", "c", "bad", "d"} {
		require.NoError(t, pool.Submit(id, h))
	}
	require.NoError(t, pool.Stop(5*time.Second))

	records, errs := h.counts()
	assert.Equal(t, 4, records)
	assert.Equal(t, 1, errs)

	stats := pool.Stats()
	assert.Equal(t, int64(5), stats.Processed)
	assert.Equal(t, int64(1), stats.Failed)

	titles := make(map[string]bool)
	for _, r := range h.records {
		title, ok := r.Get(TagTitle)
		require.True(t, ok)
		titles[title] = true
	}
	assert.Len(t, titles, 4)
}

func TestScanPool_SubmitAfterStop(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"T"}`))
	}))
	defer ts.Close()

	pool := NewScanPool(newTestScanner(t, ts.URL), 1, 4, nil)
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Stop(time.Second))

	assert.Error(t, pool.Submit("x", &captureHandler{}))
}
