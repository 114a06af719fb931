package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// streamHandler writes each line followed by a flush, then keeps the
// connection open until the client goes away or the test ends.
func streamHandler(t *testing.T, lines []string, hold bool) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range lines {
			_, _ = fmt.Fprintln(w, line)
			flusher.Flush()
		}
		if hold {
			<-r.Context().Done()
		}
	}
}

func collectEvents(t *testing.T, stream *TurnStream) []TurnEvent {
	t.Helper()
	var out []TurnEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-stream.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timeout collecting events, got %d so far", len(out))
		}
	}
}

func TestStreamTurnEvents_DeliversUntilTerminal(t *testing.T) {
	client := newTestClient(t, streamHandler(t, []string{
		`{"event":"status"}`,
		`{"event":"tool_start","step_id":"st1","tool_name":"log_search"}`,
		`{"event":"tool_end","step_id":"st1","status":"completed","content":"Found 3 errors"}`,
		`{"event":"complete","final_response":"The errors are caused by..."}`,
	}, false))

	stream, err := client.StreamTurnEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, stream)
	require.Len(t, events, 4)
	require.Equal(t, EventStatus, events[0].Event)
	require.Equal(t, "log_search", events[1].ToolName)
	require.Equal(t, "Found 3 errors", events[2].Content)
	require.Equal(t, EventComplete, events[3].Event)
	require.True(t, events[3].Terminal())
	require.NoError(t, stream.Err())
}

func TestStreamTurnEvents_StopsAfterTerminalEvent(t *testing.T) {
	client := newTestClient(t, streamHandler(t, []string{
		`{"event":"error","message":"model overloaded"}`,
		`{"event":"status"}`,
	}, false))

	stream, err := client.StreamTurnEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	require.Equal(t, EventError, events[0].Event)
	require.NoError(t, stream.Err())
}

func TestStreamTurnEvents_SkipsBlankAndMalformedLines(t *testing.T) {
	client := newTestClient(t, streamHandler(t, []string{
		``,
		`this is not json`,
		`{"step_id":"no-kind"}`,
		`{"event":"complete","final_response":"done"}`,
	}, false))

	stream, err := client.StreamTurnEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	require.Equal(t, EventComplete, events[0].Event)
}

func TestStreamTurnEvents_CleanEOFWithoutTerminal(t *testing.T) {
	client := newTestClient(t, streamHandler(t, []string{
		`{"event":"status"}`,
	}, false))

	stream, err := client.StreamTurnEvents(context.Background(), "t1")
	require.NoError(t, err)

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	require.NoError(t, stream.Err())
}

func TestStreamTurnEvents_CancellationReportsContextError(t *testing.T) {
	client := newTestClient(t, streamHandler(t, []string{
		`{"event":"status"}`,
	}, true))

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.StreamTurnEvents(ctx, "t1")
	require.NoError(t, err)

	select {
	case <-stream.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first event")
	}
	cancel()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-stream.Events():
			if !ok {
				require.True(t, errors.Is(stream.Err(), context.Canceled))
				return
			}
		case <-timeout:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestStreamTurnEvents_NonSuccessHandshake(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"unknown turn"}`))
	})

	_, err := client.StreamTurnEvents(context.Background(), "t-missing")
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Code)
	require.Equal(t, "unknown turn", statusErr.Message)
}

func TestStreamTurnEvents_EmptyTurnID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.StreamTurnEvents(context.Background(), " ")
	require.Error(t, err)
}
