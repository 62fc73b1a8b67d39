package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icl-lang/iclc/core/registry"
	"github.com/icl-lang/iclc/packs/python"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(python.Pack{}))
	return reg
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleHealthReportsOK(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var doc map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "ok", doc["status"])
}

func TestHandleCompileReturnsBundlePerTarget(t *testing.T) {
	rec := postJSON(t, handleCompile(newTestRegistry(t)), compileRequest{
		Source: `x := 1 + 2;`, Targets: []string{"python"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var docs []outcomeDoc
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Error)
	assert.NotEmpty(t, docs[0].Files)
}

func TestHandleCompileSurfacesFrontEndErrors(t *testing.T) {
	rec := postJSON(t, handleCompile(newTestRegistry(t)), compileRequest{
		Source: `x := y + 1;`, Targets: []string{"python"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCheckOKForValidSource(t *testing.T) {
	rec := postJSON(t, handleCheck, compileRequest{Source: `x := 1;`})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCheckRejectsInvalidSource(t *testing.T) {
	rec := postJSON(t, handleCheck, compileRequest{Source: `x := ;`})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleExplainWithUnknownTargetIsBadRequest(t *testing.T) {
	rec := postJSON(t, handleExplain(newTestRegistry(t)), compileRequest{
		Source: `x := 1;`, Targets: []string{"nonexistent"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExplainWithoutTargetReturnsGraph(t *testing.T) {
	rec := postJSON(t, handleExplain(newTestRegistry(t)), compileRequest{Source: `x := 1 + 2;`})
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc, "graph")
}

func TestSameOriginAllowsMatchingHostAndNoOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
	req.Host = "example.com"
	assert.True(t, sameOrigin(req))

	req.Header.Set("Origin", "http://example.com")
	assert.True(t, sameOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, sameOrigin(req))
}

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(WatchEvent{JobID: "job-1", Type: "result"})

	select {
	case msg := <-client.send:
		var ev WatchEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, "job-1", ev.JobID)
		assert.NotEmpty(t, ev.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("expected broadcast to reach registered client")
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)
	_, open := <-client.send
	assert.False(t, open, "unregister must close the client's send channel")
}

func TestNewJobIDIsNonEmptyAndUnique(t *testing.T) {
	a := NewJobID()
	b := NewJobID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
