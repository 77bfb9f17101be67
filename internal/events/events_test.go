package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameforge/frameforge-agent/internal/logging"
)

func TestRecorder_FiltersByPrefix(t *testing.T) {
	r := NewRecorder()
	r.Emit(ChannelTaskUpdate, map[string]int{"progress": 10})
	r.Emit(ChannelShotImagesBatch, "b")
	r.Emit(ChannelSceneImagesBatch, "c")

	assert.Len(t, r.Events(""), 3)
	assert.Len(t, r.Events("batch:"), 2)
	assert.Len(t, r.Events(ChannelTaskUpdate), 1)

	r.Reset()
	assert.Empty(t, r.Events(""))
}

func TestMulti_FansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, nil, b}
	m.Emit("x", 1)

	assert.Len(t, a.Events(""), 1)
	assert.Len(t, b.Events(""), 1)
}

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_DeliversMatchingChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logging.Discard())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	tasks := dialHub(t, srv, "?channel=render-task:")
	all := dialHub(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	hub.Emit(ChannelShotImagesBatch, map[string]int{"total": 3})
	hub.Emit(ChannelTaskUpdate, map[string]string{"id": "t1"})

	readEvent := func(conn *websocket.Conn) Event {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	}

	// The filtered subscriber skips the batch event.
	assert.Equal(t, ChannelTaskUpdate, readEvent(tasks).Channel)

	assert.Equal(t, ChannelShotImagesBatch, readEvent(all).Channel)
	ev := readEvent(all)
	assert.Equal(t, ChannelTaskUpdate, ev.Channel)
	assert.Equal(t, map[string]any{"id": "t1"}, ev.Payload)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logging.Discard())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_EmitWithoutRunDoesNotBlock(t *testing.T) {
	hub := NewHub(logging.Discard())
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Emit("x", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked with nobody draining the hub")
	}
}

func TestLocalOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:8797", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/events", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, localOrigin(r), "origin %q", tt.origin)
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages []string
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, string(message.([]byte)))
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func (f *fakePublisher) published() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.channels...), append([]string(nil), f.messages...)
}

func TestRedisPublisher_PublishesWithPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := &fakePublisher{}
	p := newRedisPublisher(fake, logging.Discard())
	go p.Run(ctx)

	p.Emit(ChannelTaskUpdate, map[string]int{"progress": 50})

	require.Eventually(t, func() bool {
		ch, _ := fake.published()
		return len(ch) == 1
	}, 2*time.Second, 5*time.Millisecond)

	channels, messages := fake.published()
	assert.Equal(t, "frameforge:render-task:update", channels[0])
	assert.JSONEq(t, `{"progress":50}`, messages[0])
}
