package websocket

import (
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

	"penx/internal/shared"
	"penx/pkg/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func dial(t *testing.T, srv *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) shared.CommentEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev shared.CommentEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestPublishReachesOnlyTheBookRoom(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, r.URL.Query().Get("room"))
	}))
	defer srv.Close()

	one := dial(t, srv, "1")
	two := dial(t, srv, "2")
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	h.Publish(shared.NewCommentAdded(models.Comment{ID: 5, BookID: "1", Comment: "hi"}))

	ev := readEvent(t, one)
	assert.Equal(t, shared.CommentAdded, ev.Type)
	assert.EqualValues(t, 5, ev.CommentID)
	require.NotNil(t, ev.Comment)
	assert.Equal(t, "hi", ev.Comment.Comment)

	require.NoError(t, two.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := two.ReadMessage()
	assert.Error(t, err, "room 2 must not receive events for book 1")
}

func TestLateJoinerGetsHistory(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, r.URL.Query().Get("room"))
	}))
	defer srv.Close()

	h.Publish(shared.NewCommentDeleted("3", 9))
	require.Eventually(t, func() bool { return len(h.History("3")) == 1 }, time.Second, 10*time.Millisecond)

	conn := dial(t, srv, "3")
	ev := readEvent(t, conn)
	assert.Equal(t, shared.CommentDeleted, ev.Type)
	assert.EqualValues(t, 9, ev.CommentID)
}

func TestHistoryIsBounded(t *testing.T) {
	h := NewHub()
	for i := 0; i < historySize+10; i++ {
		h.remember(envelope{room: "1", data: []byte{byte(i)}})
	}
	hist := h.History("1")
	assert.Len(t, hist, historySize)
	assert.Equal(t, byte(10), hist[0][0])
}

func TestDisconnectUnregisters(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.Serve(w, r, r.URL.Query().Get("room"))
	}))
	defer srv.Close()

	conn := dial(t, srv, "1")
	require.Eventually(t, func() bool { return h.RoomSize("1") == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return h.RoomSize("1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
