package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facebot/internal/core/domain"
)

func TestFetchContent_ReturnsBase64Body(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02} // JPEG-ish bytes

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/bot/message/msg-42/content", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write(raw)
	}))
	defer server.Close()

	client := NewLineClient("http://unused", server.URL, "test-token")

	got, err := client.FetchContent(context.Background(), "msg-42")

	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), got)
}

func TestFetchContent_NonSuccessStatusIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewLineClient("http://unused", server.URL, "test-token")

	_, err := client.FetchContent(context.Background(), "msg-42")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestFetchContent_TransportErrorIsFetchError(t *testing.T) {
	// Server is closed immediately, so the call fails at the transport level
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewLineClient("http://unused", server.URL, "test-token")

	_, err := client.FetchContent(context.Background(), "msg-42")

	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestReply_SendsTokenAndOrderedMessages(t *testing.T) {
	var received replyRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/bot/message/reply", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := NewLineClient(server.URL, "http://unused", "test-token")

	messages := []domain.ReplyMessage{
		domain.NewTextMessage("first"),
		domain.NewTextMessage("second"),
	}
	err := client.Reply(context.Background(), "reply-token-1", messages)

	require.NoError(t, err)
	assert.Equal(t, "reply-token-1", received.ReplyToken)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "text", received.Messages[0].Type)
	assert.Equal(t, "first", received.Messages[0].Text)
	assert.Equal(t, "second", received.Messages[1].Text)
}

func TestReply_NonSuccessStatusIsReplyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid reply token"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewLineClient(server.URL, "http://unused", "test-token")

	err := client.Reply(context.Background(), "used-token", []domain.ReplyMessage{domain.NewTextMessage("hi")})

	assert.ErrorIs(t, err, ErrReplyFailed)
}
