package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(retries int) *DiscordNotifier {
	return &DiscordNotifier{
		Client:  &http.Client{Timeout: 5 * time.Second},
		Retries: retries,
		Backoff: time.Millisecond,
		Logger:  zerolog.Nop(),
	}
}

func TestDiscordSend_PostsContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := newTestNotifier(0).Send(context.Background(), srv.URL, "hello")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"content": "hello"}, got)
}

func TestDiscordSend_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Cannot send an empty message"}`))
	}))
	defer srv.Close()

	err := newTestNotifier(0).Send(context.Background(), srv.URL, "")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "empty message")
}

func TestDiscordNotify_NoWebhook(t *testing.T) {
	err := newTestNotifier(2).Notify(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrNoWebhook)
}

func TestDiscordNotify_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(3).Notify(context.Background(), srv.URL, "x"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDiscordNotify_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestNotifier(2).Notify(context.Background(), srv.URL, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts exhausted")
	assert.Equal(t, int32(3), calls.Load())
}

func TestDiscordNotify_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestNotifier(5)
	n.Backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := n.Notify(ctx, srv.URL, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
