package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/engine"
)

type nopSender struct{}

func (nopSender) Unicast(string, engine.Event)     {}
func (nopSender) Multicast([]string, engine.Event) {}
func (nopSender) Broadcast(engine.Event)           {}

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	eng := engine.New(zerolog.Nop(), nopSender{}, engine.Options{DefaultRoom: "General"})
	router := NewRouter(zerolog.Nop(), eng, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, "http://localhost:5173")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, eng
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestListRooms(t *testing.T) {
	srv, eng := newTestServer(t)
	eng.Join("c1", "alice")
	eng.CreateRoom("c1", "Random")

	var rooms []string
	getJSON(t, srv.URL+"/api/rooms", &rooms)
	assert.Equal(t, []string{"General", "Random"}, rooms)
}

func TestListUsers(t *testing.T) {
	srv, eng := newTestServer(t)
	eng.Join("c1", "alice")
	eng.Join("c2", "bob")

	var users []*engine.Connection
	getJSON(t, srv.URL+"/api/users", &users)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestGetMessagesPaging(t *testing.T) {
	srv, eng := newTestServer(t)
	eng.Join("c1", "alice")
	for i := 0; i < 30; i++ {
		eng.SendMessage("c1", engine.SendMessagePayload{Content: fmt.Sprintf("msg-%d", i)})
	}

	// default limit is 20, from the newest end.
	var page []*engine.Message
	getJSON(t, srv.URL+"/api/messages/General", &page)
	require.Len(t, page, 20)
	assert.Equal(t, "msg-10", page[0].Content)
	assert.Equal(t, "msg-29", page[19].Content)

	// explicit limit and offset walk back in history.
	page = nil
	getJSON(t, srv.URL+"/api/messages/General?limit=5&offset=20", &page)
	require.Len(t, page, 5)
	assert.Equal(t, "msg-5", page[0].Content)
	assert.Equal(t, "msg-9", page[4].Content)

	// exhausted history is an empty array, not an error.
	page = nil
	resp := getJSON(t, srv.URL+"/api/messages/General?limit=5&offset=100", &page)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, page)

	// unknown room behaves the same way.
	page = nil
	resp = getJSON(t, srv.URL+"/api/messages/Nowhere", &page)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, page)
}

func TestGetMessagesBadParamsFallBack(t *testing.T) {
	srv, eng := newTestServer(t)
	eng.Join("c1", "alice")
	eng.SendMessage("c1", engine.SendMessagePayload{Content: "hello"})

	var page []*engine.Message
	getJSON(t, srv.URL+"/api/messages/General?limit=banana&offset=-3", &page)
	require.Len(t, page, 1)
	assert.Equal(t, "hello", page[0].Content)
}

func TestRootStatusLine(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}
