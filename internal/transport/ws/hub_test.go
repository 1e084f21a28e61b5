package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveyflow/internal/config"
	"surveyflow/internal/service"
)

func receive(t *testing.T, ch chan []byte) (Message, bool) {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			return Message{}, false
		}
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg, true
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func TestHub_BroadcastReachesOnlyTheSession(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := &Connection{SessionID: "a", Send: make(chan []byte, 4), Hub: hub}
	b := &Connection{SessionID: "b", Send: make(chan []byte, 4), Hub: hub}
	hub.Register(a)
	hub.Register(b)

	hub.BroadcastToSession("a", service.EventPageChanged, map[string]int{"pageIndex": 2})

	msg, ok := receive(t, a.Send)
	require.True(t, ok)
	assert.Equal(t, MessageType(service.EventPageChanged), msg.Type)
	assert.JSONEq(t, `{"pageIndex": 2}`, string(msg.Payload))
	assert.Empty(t, b.Send)
}

func TestHub_DisconnectClosesConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conns := []*Connection{
		{SessionID: "a", Send: make(chan []byte, 1), Hub: hub},
		{SessionID: "a", Send: make(chan []byte, 1), Hub: hub},
	}
	for _, c := range conns {
		hub.Register(c)
	}
	assert.Eventually(t, func() bool { return hub.Connections("a") == 2 }, time.Second, 10*time.Millisecond)

	hub.DisconnectSession("a")
	for _, c := range conns {
		_, ok := receive(t, c.Send)
		assert.False(t, ok)
	}
	assert.Eventually(t, func() bool { return hub.Connections("a") == 0 }, time.Second, 10*time.Millisecond)

	// Unregistering after a disconnect must not close the channel twice
	hub.Unregister(conns[0])
}

func newWSServer(t *testing.T) (*httptest.Server, *Hub, *service.AuthService) {
	t.Helper()
	auth := service.NewAuthService(config.AuthConfig{
		HostUsername:       "admin",
		HostPassword:       "secret",
		JWTSecret:          "ws-test-secret-12345",
		RespondentTokenTTL: time.Hour,
	})
	hub := NewHub(zap.NewNop())
	h := NewHandler(hub, auth, []string{"https://survey.example.com"}, zap.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/sessions/{sessionId}", h.SessionWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, auth
}

func TestHandler_SessionWS(t *testing.T) {
	srv, hub, auth := newWSServer(t)
	token, err := auth.GenerateRespondentToken("s1", "sess-1")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/sessions/sess-1?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgConnected, msg.Type)

	require.Eventually(t, func() bool { return hub.Connections("sess-1") == 1 }, time.Second, 10*time.Millisecond)
	hub.BroadcastToSession("sess-1", service.EventVisibilityChanged, map[string][]int{"shown": {2}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageType(service.EventVisibilityChanged), msg.Type)
	assert.JSONEq(t, `{"shown": [2]}`, string(msg.Payload))
}

func TestHandler_SessionWSRejects(t *testing.T) {
	srv, _, auth := newWSServer(t)
	token, err := auth.GenerateRespondentToken("s1", "sess-1")
	require.NoError(t, err)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/sessions/"

	tests := []struct {
		name   string
		url    string
		origin string
		status int
	}{
		{"missing token", base + "sess-1", "", http.StatusUnauthorized},
		{"garbage token", base + "sess-1?token=nope", "", http.StatusUnauthorized},
		{"other session", base + "sess-2?token=" + token, "", http.StatusForbidden},
		{"foreign origin", base + "sess-1?token=" + token, "https://evil.example.com", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			_, resp, err := websocket.DefaultDialer.Dial(tt.url, header)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestOriginChecker(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://a.example.com")

	assert.True(t, originChecker(nil)(req))
	assert.True(t, originChecker([]string{"*"})(req))
	assert.True(t, originChecker([]string{"https://a.example.com"})(req))
	assert.False(t, originChecker([]string{"https://b.example.com"})(req))
}
