package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/streaming"
)

func newStreamingServer(t *testing.T) (*streaming.Manager, *httptest.Server) {
	t.Helper()
	mgr := streaming.NewManager(64)
	mux := http.NewServeMux()
	NewStreamingHandler(mgr, zap.NewNop()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return mgr, srv
}

func TestSSERequiresMessageID(t *testing.T) {
	_, srv := newStreamingServer(t)
	resp, err := http.Get(srv.URL + "/stream/sse")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSSEReplaysBacklog(t *testing.T) {
	mgr, srv := newStreamingServer(t)

	mgr.Publish("msg-1", streaming.Event{Type: streaming.EventMessageDelta, Payload: json.RawMessage(`{"text":"a"}`)})
	mgr.Publish("msg-1", streaming.Event{Type: streaming.EventCitationProvisional, Payload: json.RawMessage(`{}`)})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream/sse?message_id=msg-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			types = append(types, strings.TrimPrefix(line, "event: "))
		}
		if len(types) == 2 {
			break
		}
	}
	assert.Equal(t, []string{streaming.EventMessageDelta, streaming.EventCitationProvisional}, types)
}

func TestSSEResumesFromLastEventID(t *testing.T) {
	mgr, srv := newStreamingServer(t)

	for i := 0; i < 3; i++ {
		mgr.Publish("msg-1", streaming.Event{Type: streaming.EventMessageDelta})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream/sse?message_id=msg-1", nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "2")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "id: ") {
			assert.Equal(t, "id: 3", line)
			return
		}
	}
	t.Fatal("no replayed event received")
}

func TestSSETypeFilter(t *testing.T) {
	mgr, srv := newStreamingServer(t)

	mgr.Publish("msg-1", streaming.Event{Type: streaming.EventMessageDelta})
	mgr.Publish("msg-1", streaming.Event{Type: streaming.EventCitationFinal})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/stream/sse?message_id=msg-1&types=citation.final", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			assert.Equal(t, "event: "+streaming.EventCitationFinal, line)
			return
		}
	}
	t.Fatal("no event received")
}

func TestWebSocketDeliversLiveEvents(t *testing.T) {
	mgr, srv := newStreamingServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream/ws?message_id=msg-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server loop a beat to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	mgr.Publish("msg-1", streaming.Event{Type: streaming.EventMessageCompleted})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt streaming.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, streaming.EventMessageCompleted, evt.Type)
	assert.Equal(t, "msg-1", evt.MessageID)
}
