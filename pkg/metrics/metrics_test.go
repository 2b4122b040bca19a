package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecorderExposesCounters(t *testing.T) {
	r := NewRecorder()

	r.ObserveCycle(OutcomeIdle)
	r.ObserveCycle(OutcomeProcessed)
	r.ObserveCycle(OutcomeProcessed)
	r.ObserveResponse("run_task", "acknowledged")
	r.MarkProcessed(time.Unix(1_700_000_000, 0))

	body := scrape(t, r.Handler())

	assert.Contains(t, body, `handoff_cycles_total{outcome="idle"} 1`)
	assert.Contains(t, body, `handoff_cycles_total{outcome="processed"} 2`)
	assert.Contains(t, body, `handoff_responses_total{action="run_task",status="acknowledged"} 1`)
	assert.Contains(t, body, `handoff_last_processed_timestamp_seconds 1.7e+09`)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder

	r.ObserveCycle(OutcomeFailed)
	r.ObserveResponse("message", "received")
	r.MarkProcessed(time.Now())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerRoutes(t *testing.T) {
	r := NewRecorder()
	r.ObserveCycle(OutcomeMalformed)
	srv := NewServer(r, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)

	assert.Contains(t, scrape(t, srv.Handler()), `handoff_cycles_total{outcome="malformed"} 1`)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(NewRecorder(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.serve(ctx, listener)
	}()

	url := "http://" + listener.Addr().String() + "/healthz"
	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
