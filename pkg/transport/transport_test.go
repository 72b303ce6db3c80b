package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aixgo-dev/gremlin/internal/logging"
	"github.com/aixgo-dev/gremlin/internal/testserver"
	"github.com/aixgo-dev/gremlin/pkg/bytecode"
	"github.com/aixgo-dev/gremlin/pkg/protocol"
	"github.com/aixgo-dev/gremlin/pkg/traversal"
)

func request(t *testing.T, id string) protocol.Request {
	t.Helper()
	doc, err := bytecode.FromAction(traversal.Anon().V().Count())
	require.NoError(t, err)
	return protocol.NewBytecodeRequest(id, doc, "")
}

func connect(t *testing.T, srv *testserver.Server, opts ...Option) *Transport {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	tr := New(srv.URL(), opts...)
	require.NoError(t, tr.Connect(context.Background()))
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestTransport_SubmitAndCollect(t *testing.T) {
	srv := testserver.New(t, testserver.Reply(testserver.List(testserver.Int64(3))))
	tr := connect(t, srv)

	stream, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)
	assert.Equal(t, "r1", stream.RequestID())

	data, err := stream.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, data, 1)

	decoded, err := protocol.Decode(data[0])
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3)}, decoded)

	require.Len(t, srv.Requests(), 1)
	assert.Equal(t, "r1", srv.Requests()[0].RequestID)
	assert.Equal(t, protocol.ProcessorTraversal, srv.Requests()[0].Processor)
	assert.Equal(t, []string{protocol.MimeType}, srv.MimeTypes())
	assert.Zero(t, tr.Pending())
}

func TestTransport_PartialContent(t *testing.T) {
	srv := testserver.New(t, testserver.Chunks(testserver.List("a"), testserver.List("b"), testserver.List("c")))
	tr := connect(t, srv)

	stream, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)

	var codes []int
	for {
		resp, err := stream.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		codes = append(codes, resp.Status.Code)
	}
	assert.Equal(t, []int{206, 206, 200}, codes)

	_, err = stream.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestTransport_NoContent(t *testing.T) {
	srv := testserver.New(t, testserver.NoContent())
	tr := connect(t, srv)

	stream, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)

	data, err := stream.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestTransport_ErrorStatus(t *testing.T) {
	srv := testserver.New(t, testserver.Fail(protocol.StatusScriptEvaluationError, "no such property"))
	tr := connect(t, srv)

	stream, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)

	_, err = stream.Collect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrScriptEvaluation)

	var statusErr *protocol.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "no such property", statusErr.Status.Message)
	assert.NotNil(t, statusErr.Query)

	_, err = stream.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestTransport_ConnectionStates(t *testing.T) {
	srv := testserver.New(t, testserver.Reply(nil))
	tr := New(srv.URL(), WithLogger(logging.Discard()))

	_, err := tr.Submit(context.Background(), request(t, "r1"))
	assert.ErrorIs(t, err, protocol.ErrNotConnected)
	assert.ErrorIs(t, tr.Ping(context.Background()), protocol.ErrNotConnected)
	assert.False(t, tr.Connected())

	require.NoError(t, tr.Connect(context.Background()))
	assert.True(t, tr.Connected())
	assert.ErrorIs(t, tr.Connect(context.Background()), protocol.ErrAlreadyConnected)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.False(t, tr.Connected())

	_, err = tr.Submit(context.Background(), request(t, "r2"))
	assert.ErrorIs(t, err, protocol.ErrClientClosed)
	assert.ErrorIs(t, tr.Connect(context.Background()), protocol.ErrClientClosed)
}

func TestTransport_CannotConnect(t *testing.T) {
	tr := New("ws://127.0.0.1:1/gremlin", WithLogger(logging.Discard()), WithHandshakeTimeout(time.Second))

	err := tr.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrCannotConnect)
	assert.ErrorIs(t, err, protocol.ErrConnection)
	assert.False(t, tr.Connected())
}

func TestTransport_CloseFailsPendingRequests(t *testing.T) {
	srv := testserver.New(t, nil)
	tr := connect(t, srv)

	stream, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Pending())

	require.NoError(t, tr.Close())

	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, protocol.ErrDisconnect)
}

func TestTransport_CloseStrict(t *testing.T) {
	srv := testserver.New(t, nil)

	t.Run("reports abandoned requests", func(t *testing.T) {
		tr := connect(t, srv)
		_, err := tr.Submit(context.Background(), request(t, "r1"))
		require.NoError(t, err)

		err = tr.CloseStrict()
		assert.ErrorIs(t, err, protocol.ErrResourceLeak)
		assert.NoError(t, tr.CloseStrict())
	})

	t.Run("clean close", func(t *testing.T) {
		tr := connect(t, srv)
		assert.NoError(t, tr.CloseStrict())
	})
}

func TestTransport_ServerDisconnect(t *testing.T) {
	srv := testserver.New(t, nil)
	tr := connect(t, srv)

	stream, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(srv.Requests()) == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.DropConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = stream.Next(ctx)
	assert.ErrorIs(t, err, protocol.ErrDisconnect)
	assert.False(t, tr.Connected())

	_, err = tr.Submit(context.Background(), request(t, "r2"))
	assert.ErrorIs(t, err, protocol.ErrDisconnect)
}

func TestTransport_UnknownRequestID(t *testing.T) {
	srv := testserver.New(t, testserver.Reply(nil))
	var events sync.Map
	tr := connect(t, srv, WithEventHook(func(e string) { events.Store(e, true) }))

	require.Eventually(t, func() bool {
		srv.Push(testserver.Success("not-a-request", nil))
		return tr.Err() != nil
	}, 2*time.Second, 20*time.Millisecond)

	assert.ErrorIs(t, tr.Err(), protocol.ErrUnknownRequestStopped)
	_, ok := events.Load(EventUnknownRequest)
	assert.True(t, ok)

	// The transport keeps working.
	stream, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)
	_, err = stream.Collect(context.Background())
	assert.NoError(t, err)
}

func TestTransport_DuplicateRequestID(t *testing.T) {
	srv := testserver.New(t, nil)
	tr := connect(t, srv)

	_, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)
	_, err = tr.Submit(context.Background(), request(t, "r1"))
	assert.ErrorIs(t, err, protocol.ErrResourceLeak)
}

func TestTransport_ConcurrentRequests(t *testing.T) {
	srv := testserver.New(t, func(req protocol.Request) []protocol.Response {
		return []protocol.Response{
			{RequestID: req.RequestID, Status: protocol.Status{Code: protocol.StatusPartialContent}, Result: protocol.Result{Data: req.RequestID}},
			testserver.Success(req.RequestID, req.RequestID),
		}
	})
	tr := connect(t, srv)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			stream, err := tr.Submit(context.Background(), request(t, id))
			if err != nil {
				errs <- err
				return
			}
			data, err := stream.Collect(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if len(data) != 2 || data[0] != id || data[1] != id {
				errs <- fmt.Errorf("request %s got %v", id, data)
			}
		}(fmt.Sprintf("r%d", i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, srv.Requests(), 20)
}

func TestTransport_NextHonorsContext(t *testing.T) {
	srv := testserver.New(t, nil)
	tr := connect(t, srv)

	stream, err := tr.Submit(context.Background(), request(t, "r1"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = stream.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransport_Ping(t *testing.T) {
	srv := testserver.New(t, nil)
	tr := connect(t, srv)

	require.NoError(t, tr.Ping(context.Background()))
}

func TestTransport_Events(t *testing.T) {
	srv := testserver.New(t, nil)
	var mu sync.Mutex
	var events []string
	tr := New(srv.URL(), WithLogger(logging.Discard()), WithEventHook(func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}))

	require.NoError(t, tr.Connect(context.Background()))
	require.NoError(t, tr.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{EventConnect, EventClose}, events)
}

// stalledServer accepts WebSocket connections and never reads from them.
func stalledServer(t *testing.T) string {
	t.Helper()
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/gremlin"
}

func TestTransport_WriteToStalledPeer(t *testing.T) {
	script := strings.Repeat("x", 4<<20)

	errNoFailure := errors.New("every write succeeded")
	submitUntilError := func(tr *Transport, ctx func() (context.Context, context.CancelFunc)) error {
		for i := 0; i < 64; i++ {
			c, cancel := ctx()
			_, err := tr.Submit(c, protocol.NewEvalRequest(fmt.Sprintf("r%d", i), script, ""))
			cancel()
			if err != nil {
				return err
			}
		}
		return errNoFailure
	}

	t.Run("write timeout", func(t *testing.T) {
		tr := New(stalledServer(t), WithLogger(logging.Discard()), WithWriteTimeout(100*time.Millisecond))
		require.NoError(t, tr.Connect(context.Background()))
		t.Cleanup(func() { _ = tr.Close() })

		err := submitUntilError(tr, func() (context.Context, context.CancelFunc) {
			return context.WithCancel(context.Background())
		})
		assert.ErrorIs(t, err, protocol.ErrDisconnect)
		assert.False(t, tr.Connected())

		_, err = tr.Submit(context.Background(), request(t, "after"))
		assert.ErrorIs(t, err, protocol.ErrDisconnect)
	})

	t.Run("context deadline", func(t *testing.T) {
		tr := New(stalledServer(t), WithLogger(logging.Discard()), WithWriteTimeout(time.Hour))
		require.NoError(t, tr.Connect(context.Background()))
		t.Cleanup(func() { _ = tr.Close() })

		done := make(chan error, 1)
		go func() {
			done <- submitUntilError(tr, func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 100*time.Millisecond)
			})
		}()

		select {
		case err := <-done:
			assert.Error(t, err)
			assert.NotErrorIs(t, err, errNoFailure)
			assert.False(t, tr.Connected())
		case <-time.After(10 * time.Second):
			t.Fatal("submit should honor the context deadline")
		}
	})
}
