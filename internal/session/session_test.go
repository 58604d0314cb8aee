package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"vizard/internal/credentials"
	"vizard/internal/executor"
	"vizard/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Started once at init by the genai SDK's opencensus dependency.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

var testUpgrader = websocket.Upgrader{}

// newTestRuntime starts a websocket server running handler per connection
// and returns its ws:// URL.
func newTestRuntime(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// drain keeps a server connection open until the client closes it.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestConnectSendsIdentity(t *testing.T) {
	params := make(chan map[string]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params <- map[string]string{
			"userId":    r.URL.Query().Get("userId"),
			"projectId": r.URL.Query().Get("projectId"),
			"role":      r.URL.Query().Get("role"),
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drain(conn)
	}))
	t.Cleanup(srv.Close)

	m := New(Config{
		Endpoint:  "ws" + strings.TrimPrefix(srv.URL, "http"),
		UserID:    "u-1",
		ProjectID: "p-9",
	})
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	got := <-params
	assert.Equal(t, "u-1", got["userId"])
	assert.Equal(t, "p-9", got["projectId"])
	assert.Equal(t, "data_agent", got["role"])
}

func TestRequestCorrelation(t *testing.T) {
	url := newTestRuntime(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env types.Envelope
			if json.Unmarshal(data, &env) != nil {
				continue
			}
			reply, _ := env.Reply(map[string]any{"success": true})
			out, _ := json.Marshal(reply)
			conn.WriteMessage(websocket.TextMessage, out)
		}
	})

	m := New(Config{Endpoint: url})
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	req := &types.Envelope{Type: types.TypeDataReq, Payload: json.RawMessage(`{"query":"SELECT 1"}`)}
	reply, err := m.Request(context.Background(), req, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, req.ID, reply.ID)
	assert.Equal(t, types.TypeDataRes, reply.Type)
}

func TestRequestTimeoutDropsLateReply(t *testing.T) {
	captured := make(chan *types.Envelope, 1)
	release := make(chan *types.Envelope, 1)
	url := newTestRuntime(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return
		}
		captured <- &env
		// Hold the connection; the test body hands back the late reply.
		reply := <-release
		out, _ := json.Marshal(reply)
		conn.WriteMessage(websocket.TextMessage, out)
		drain(conn)
	})

	m := New(Config{Endpoint: url})
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	req := &types.Envelope{Type: types.TypePromptReq, Payload: json.RawMessage(`{"prompt":"x"}`)}
	_, err := m.Request(context.Background(), req, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	// Send the reply after the deadline; it must be dropped silently.
	env := <-captured
	reply, _ := env.Reply(map[string]any{"late": true})
	release <- reply
	time.Sleep(100 * time.Millisecond)

	m.pendingMu.Lock()
	remaining := len(m.pending)
	m.pendingMu.Unlock()
	assert.Zero(t, remaining)
}

func TestClosureRejectsPending(t *testing.T) {
	url := newTestRuntime(t, func(conn *websocket.Conn) {
		// Take the request, then drop the connection without replying.
		conn.ReadMessage()
		conn.Close()
	})

	m := New(Config{Endpoint: url, ReconnectDelay: 10 * time.Millisecond, MaxReconnectAttempts: 1})
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	req := &types.Envelope{Type: types.TypePromptReq, Payload: json.RawMessage(`{"prompt":"x"}`)}
	_, err := m.Request(context.Background(), req, 5*time.Second)
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestOversizeReplySubstituted(t *testing.T) {
	frames := make(chan *types.Envelope, 1)
	url := newTestRuntime(t, func(conn *websocket.Conn) {
		env := &types.Envelope{
			ID:      "big-1",
			Type:    types.TypeDataReq,
			From:    &types.Peer{Role: types.RoleRuntime},
			To:      &types.Peer{Role: types.RoleDataAgent},
			Payload: json.RawMessage(`{"query":"SELECT * FROM wide"}`),
		}
		out, _ := json.Marshal(env)
		conn.WriteMessage(websocket.TextMessage, out)

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var reply types.Envelope
		if json.Unmarshal(data, &reply) == nil {
			frames <- &reply
		}
		drain(conn)
	})

	wide := &mockExecutor{ExecuteFunc: func(ctx context.Context, query string) (executor.Result, error) {
		row := map[string]any{"blob": strings.Repeat("x", 4096)}
		return executor.Result{Success: true, Data: []map[string]any{row}}, nil
	}}

	m := New(Config{Endpoint: url, MaxMessageBytes: 1024}, WithRowExecutor(wide))
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	reply := <-frames
	assert.Equal(t, "big-1", reply.ID)
	assert.Equal(t, types.TypeDataRes, reply.Type)

	var diag map[string]any
	require.NoError(t, json.Unmarshal(reply.Payload, &diag))
	assert.Contains(t, diag["error"], "size")
	assert.Greater(t, diag["size"].(float64), float64(1024))
	assert.Equal(t, float64(1024), diag["max"])
}

func TestReconnectBound(t *testing.T) {
	// First dial succeeds and is closed immediately; every redial is
	// refused so no successful open resets the attempt counter.
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dials.Add(1) > 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	m := New(Config{
		Endpoint:             "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectDelay:       10 * time.Millisecond,
		MaxReconnectAttempts: 2,
	})
	require.NoError(t, m.Connect(context.Background()))

	select {
	case <-m.Closed():
	case <-time.After(5 * time.Second):
		t.Fatal("session never reached terminal state")
	}
	// Initial dial plus exactly MaxReconnectAttempts redials.
	assert.Equal(t, int32(3), dials.Load())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	url := newTestRuntime(t, func(conn *websocket.Conn) { drain(conn) })

	m := New(Config{Endpoint: url})
	require.NoError(t, m.Connect(context.Background()))

	m.Disconnect()
	m.Disconnect()

	select {
	case <-m.Closed():
	default:
		t.Fatal("closed channel not signalled")
	}
	assert.ErrorIs(t, m.Send(&types.Envelope{Type: types.TypeDataReq}), ErrDisconnected)
}

func TestMalformedFrameDoesNotKillLoop(t *testing.T) {
	replies := make(chan *types.Envelope, 1)
	url := newTestRuntime(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"payload":{}}`)) // missing type

		env := &types.Envelope{ID: "q-1", Type: types.TypeDataReq, Payload: json.RawMessage(`{"query":"SELECT 1"}`)}
		out, _ := json.Marshal(env)
		conn.WriteMessage(websocket.TextMessage, out)

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var reply types.Envelope
		if json.Unmarshal(data, &reply) == nil {
			replies <- &reply
		}
		drain(conn)
	})

	exec := &mockExecutor{ExecuteFunc: func(ctx context.Context, query string) (executor.Result, error) {
		return executor.Result{Success: true, Data: []map[string]any{{"n": 1}}}, nil
	}}

	m := New(Config{Endpoint: url}, WithRowExecutor(exec))
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	reply := <-replies
	assert.Equal(t, "q-1", reply.ID)
	assert.Equal(t, types.TypeDataRes, reply.Type)
}

func TestLoginAndVerifyFlow(t *testing.T) {
	loginGot := make(chan *types.Envelope, 2)

	sum := sha256.Sum256([]byte("swordfish"))
	digest := hex.EncodeToString(sum[:])

	creds := newMockCreds(credentials.User{Username: "alice", Password: "swordfish"})

	url := newTestRuntime(t, func(conn *websocket.Conn) {
		login := &types.Envelope{
			ID:      "l-1",
			Type:    types.TypeLoginReq,
			Payload: json.RawMessage(`{"username":"alice","password":"` + digest + `"}`),
		}
		writeFrame := func(env *types.Envelope) {
			out, _ := json.Marshal(env)
			conn.WriteMessage(websocket.TextMessage, out)
		}
		writeFrame(login)

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var reply types.Envelope
		if json.Unmarshal(data, &reply) != nil {
			return
		}
		loginGot <- &reply

		var lr loginResult
		if json.Unmarshal(reply.Payload, &lr) != nil {
			return
		}
		verify := &types.Envelope{
			ID:      "v-1",
			Type:    types.TypeVerifyReq,
			Payload: json.RawMessage(`{"username":"alice","token":"` + lr.Token + `"}`),
		}
		writeFrame(verify)

		_, data, err = conn.ReadMessage()
		if err != nil {
			return
		}
		var vreply types.Envelope
		if json.Unmarshal(data, &vreply) == nil {
			loginGot <- &vreply
		}
		drain(conn)
	})

	m := New(Config{Endpoint: url}, WithCredentialStore(creds))
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	reply := <-loginGot
	assert.Equal(t, types.TypeLoginRes, reply.Type)
	var lr loginResult
	require.NoError(t, json.Unmarshal(reply.Payload, &lr))
	assert.True(t, lr.Success)
	require.NotEmpty(t, lr.Token)
	assert.Equal(t, lr.Token, creds.recorded["alice"])

	vreply := <-loginGot
	assert.Equal(t, types.TypeVerifyRes, vreply.Type)
	var vr verifyResult
	require.NoError(t, json.Unmarshal(vreply.Payload, &vr))
	assert.True(t, vr.Valid)
}

func TestLoginRejectsPlaintextPassword(t *testing.T) {
	replies := make(chan *types.Envelope, 1)
	creds := newMockCreds(credentials.User{Username: "alice", Password: "swordfish"})

	url := newTestRuntime(t, func(conn *websocket.Conn) {
		env := &types.Envelope{
			ID:      "l-2",
			Type:    types.TypeLoginReq,
			Payload: json.RawMessage(`{"username":"alice","password":"swordfish"}`),
		}
		out, _ := json.Marshal(env)
		conn.WriteMessage(websocket.TextMessage, out)

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var reply types.Envelope
		if json.Unmarshal(data, &reply) == nil {
			replies <- &reply
		}
		drain(conn)
	})

	m := New(Config{Endpoint: url}, WithCredentialStore(creds))
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	reply := <-replies
	var lr loginResult
	require.NoError(t, json.Unmarshal(reply.Payload, &lr))
	assert.False(t, lr.Success)
	assert.Equal(t, "invalid credentials", lr.Error)
}
