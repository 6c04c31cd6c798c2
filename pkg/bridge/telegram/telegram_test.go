package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regalspin/gamepanel/pkg/bridge"
)

func newTestServer(t *testing.T, updates string) (*httptest.Server, func(method string) []map[string][]string) {
	t.Helper()

	var mu sync.Mutex
	calls := make(map[string][]map[string][]string)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Path shape: /bot<token>/<method>
		method := r.URL.Path[len("/bottest-token/"):]

		mu.Lock()
		calls[method] = append(calls[method], r.URL.Query())
		mu.Unlock()

		switch method {
		case "getUpdates":
			fmt.Fprint(w, updates)
		default:
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	t.Cleanup(server.Close)

	getCalls := func(method string) []map[string][]string {
		mu.Lock()
		defer mu.Unlock()
		return calls[method]
	}
	return server, getCalls
}

func newTestAdapter(server *httptest.Server) *Adapter {
	return New(Settings{
		BotToken: "test-token",
		ChatID:   "-100123",
		APIBase:  server.URL,
	})
}

func TestSend(t *testing.T) {
	server, getCalls := newTestServer(t, `{"ok":true,"result":[]}`)
	adapter := newTestAdapter(server)

	buttons := []bridge.Button{
		{Label: "Confirm", Token: "approve:u1:r1"},
		{Label: "Decline", Token: "decline:u1:r1"},
	}
	require.NoError(t, adapter.Send(context.Background(), "<b>ACCOUNT SAVE REQUEST</b>", buttons))

	calls := getCalls("sendMessage")
	require.Len(t, calls, 1)
	q := calls[0]
	assert.Equal(t, "-100123", q["chat_id"][0])
	assert.Equal(t, "HTML", q["parse_mode"][0])
	assert.Equal(t, "<b>ACCOUNT SAVE REQUEST</b>", q["text"][0])

	var markup struct {
		InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(q["reply_markup"][0]), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "Confirm", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "approve:u1:r1", markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "decline:u1:r1", markup.InlineKeyboard[0][1].CallbackData)
}

func TestSendUnconfigured(t *testing.T) {
	adapter := New(Settings{})

	err := adapter.Send(context.Background(), "message", nil)
	assert.Error(t, err)
}

func TestPollOnceNoUpdates(t *testing.T) {
	server, getCalls := newTestServer(t, `{"ok":true,"result":[]}`)
	adapter := newTestAdapter(server)

	update, err := adapter.PollOnce(context.Background(), "r1", 7)
	require.NoError(t, err)
	assert.False(t, update.Matched)
	assert.Equal(t, int64(7), update.NextCursor)

	calls := getCalls("getUpdates")
	require.Len(t, calls, 1)
	assert.Equal(t, "7", calls[0]["offset"][0])
	assert.Equal(t, `["callback_query"]`, calls[0]["allowed_updates"][0])
}

func TestPollOnceMatchesApprove(t *testing.T) {
	updates := `{"ok":true,"result":[
		{"update_id":41,"callback_query":{"id":"cb1","data":"approve:u1:r1","message":{"message_id":5,"chat":{"id":-100123}}}}
	]}`
	server, _ := newTestServer(t, updates)
	adapter := newTestAdapter(server)

	update, err := adapter.PollOnce(context.Background(), "r1", 0)
	require.NoError(t, err)
	assert.True(t, update.Matched)
	assert.Equal(t, bridge.ActionApprove, update.Action)
	assert.Equal(t, int64(42), update.NextCursor, "Cursor must advance past the observed update")
}

func TestPollOnceMatchesDecline(t *testing.T) {
	updates := `{"ok":true,"result":[
		{"update_id":10,"callback_query":{"id":"cb1","data":"decline:u1:r1","message":{"message_id":5,"chat":{"id":-100123}}}}
	]}`
	server, _ := newTestServer(t, updates)
	adapter := newTestAdapter(server)

	update, err := adapter.PollOnce(context.Background(), "r1", 0)
	require.NoError(t, err)
	assert.True(t, update.Matched)
	assert.Equal(t, bridge.ActionDecline, update.Action)
}

func TestPollOnceSkipsForeignCallbacks(t *testing.T) {
	// Presses for other requests advance the cursor without matching
	updates := `{"ok":true,"result":[
		{"update_id":3,"callback_query":{"id":"cb1","data":"approve:u9:other","message":{"message_id":5,"chat":{"id":-100123}}}},
		{"update_id":4,"callback_query":{"id":"cb2","data":"ignore_completed"}}
	]}`
	server, _ := newTestServer(t, updates)
	adapter := newTestAdapter(server)

	update, err := adapter.PollOnce(context.Background(), "r1", 0)
	require.NoError(t, err)
	assert.False(t, update.Matched)
	assert.Equal(t, int64(5), update.NextCursor)
}

func TestMethodURLProxyWrapping(t *testing.T) {
	adapter := New(Settings{
		BotToken:  "tok",
		ChatID:    "1",
		ProxyBase: "https://proxy.example.com/fetch?url=",
	})

	wrapped := adapter.methodURL("sendMessage", nil)
	assert.Contains(t, wrapped, "https://proxy.example.com/fetch?url=")
	assert.Contains(t, wrapped, "https%3A%2F%2Fapi.telegram.org", "Inner URL must be escaped")
}
