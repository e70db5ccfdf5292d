package genie

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charotAmine/databricks-genieslack/pkg/logger"
)

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := New(Config{Token: "x", SpaceID: "s"}, nil)
	require.Error(t, err)

	_, err = New(Config{Host: "https://example.com", SpaceID: "s"}, nil)
	require.Error(t, err)

	_, err = New(Config{Host: "https://example.com", Token: "x"}, nil)
	require.Error(t, err)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotContentType string
	mux := http.NewServeMux()
	mux.HandleFunc(messagePath, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		writeBody(w, map[string]any{"id": "m1", "status": "COMPLETED"})
	})

	c := newTestClient(t, mux, time.Millisecond, time.Second)
	_, err := c.GetMessage(context.Background(), "c1", "m1")
	require.NoError(t, err)
	require.Equal(t, "Bearer pat-token", gotAuth)
	require.Equal(t, "application/json", gotContentType)
}

func TestClient_UnauthorizedIsDistinguished(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(messagePath, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	c := newTestClient(t, mux, time.Millisecond, time.Second)
	_, err := c.GetMessage(context.Background(), "c1", "m1")
	require.Error(t, err)

	var genieErr *Error
	require.ErrorAs(t, err, &genieErr)
	require.Equal(t, ErrorUnauthorized, genieErr.Code)
}

func TestClient_HTTPFailureIsTransportError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(messagePath, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	c := newTestClient(t, mux, time.Millisecond, time.Second)
	_, err := c.GetMessage(context.Background(), "c1", "m1")

	var genieErr *Error
	require.ErrorAs(t, err, &genieErr)
	require.Equal(t, ErrorTransport, genieErr.Code)
}

func TestClient_NetworkFailureIsTransportError(t *testing.T) {
	c, err := New(Config{
		Host:    "http://127.0.0.1:1",
		Token:   "pat-token",
		SpaceID: "space-1",
	}, logger.NewNop())
	require.NoError(t, err)

	_, err = c.GetMessage(context.Background(), "c1", "m1")

	var genieErr *Error
	require.ErrorAs(t, err, &genieErr)
	require.Equal(t, ErrorTransport, genieErr.Code)
	require.Error(t, errors.Unwrap(genieErr))
}

func TestSendFeedback_NormalizesRatingCase(t *testing.T) {
	var body map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc(messagePath+"/feedback", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	})

	c := newTestClient(t, mux, time.Millisecond, time.Second)
	ok := c.SendFeedback(context.Background(), "c1", "m1", Rating("positive"), "")
	require.True(t, ok)
	require.Equal(t, "POSITIVE", body["rating"])
	require.NotContains(t, body, "feedback_text")
}

func TestSendFeedback_IncludesCommentWhenSet(t *testing.T) {
	var body map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc(messagePath+"/feedback", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	})

	c := newTestClient(t, mux, time.Millisecond, time.Second)
	ok := c.SendFeedback(context.Background(), "c1", "m1", RatingNegative, "wrong table")
	require.True(t, ok)
	require.Equal(t, "NEGATIVE", body["rating"])
	require.Equal(t, "wrong table", body["feedback_text"])
}

func TestSendFeedback_FailureReturnsFalse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(messagePath+"/feedback", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	c := newTestClient(t, mux, time.Millisecond, time.Second)
	require.False(t, c.SendFeedback(context.Background(), "c1", "m1", RatingPositive, ""))
}

func TestMessageStatus_Terminal(t *testing.T) {
	require.True(t, StatusCompleted.Terminal())
	require.True(t, StatusFailed.Terminal())
	require.True(t, StatusCancelled.Terminal())
	require.False(t, MessageStatus("SUBMITTED").Terminal())
	require.False(t, MessageStatus("EXECUTING_QUERY").Terminal())
}
