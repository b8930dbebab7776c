package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterStreamsPublishedRecords(t *testing.T) {
	b := NewBroadcaster(8)
	srv := httptest.NewServer(b)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?topic=candidate.v1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let the subscriber register
	b.Publish("candidate.v1", json.RawMessage(`{"id":"abc"}`))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc"}`, string(msg))
}

func TestBroadcasterIgnoresOtherTopics(t *testing.T) {
	b := NewBroadcaster(8)
	srv := httptest.NewServer(b)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?topic=candidate.v1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	b.Publish("fusion.trace.v1", json.RawMessage(`{"id":"nope"}`))
	b.Publish("candidate.v1", json.RawMessage(`{"id":"yes"}`))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"yes"}`, string(msg))
}
