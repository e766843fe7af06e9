package directory

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingMsg struct {
	Text string `json:"text"`
}

func (pingMsg) Path() string { return "/ping" }

func echoHandler(_ context.Context, m pingMsg) (pingMsg, error) {
	return pingMsg{Text: "echo:" + m.Text}, nil
}

func TestLocalRoute(t *testing.T) {
	d := New()
	Route[pingMsg, pingMsg](d, Client, LocalHandler[pingMsg, pingMsg](echoHandler))

	r, err := SendLocal[pingMsg, pingMsg](context.Background(), d, pingMsg{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", r.Text)
}

func TestRouteMissIsKindRoute(t *testing.T) {
	d := New()
	_, err := SendLocal[pingMsg, pingMsg](context.Background(), d, pingMsg{Text: "hi"})
	require.Error(t, err)
	assert.True(t, Is(KindRoute, err))
}

func TestSendFallsThroughClientToServer(t *testing.T) {
	d := New()
	Route[pingMsg, pingMsg](d, Server, LocalHandler[pingMsg, pingMsg](echoHandler))

	r, err := Send[pingMsg, pingMsg](context.Background(), d, pingMsg{Text: "a"})
	require.NoError(t, err)
	assert.Equal(t, "echo:a", r.Text)
}

func TestSendDoesNotFallThroughOnApplicationError(t *testing.T) {
	d := New()
	boom := assert.AnError
	Route[pingMsg, pingMsg](d, Client, LocalHandler[pingMsg, pingMsg](func(context.Context, pingMsg) (pingMsg, error) {
		return pingMsg{}, boom
	}))
	Route[pingMsg, pingMsg](d, Server, LocalHandler[pingMsg, pingMsg](echoHandler))

	_, err := Send[pingMsg, pingMsg](context.Background(), d, pingMsg{Text: "a"})
	require.Error(t, err)
	assert.Equal(t, boom, err)
}

func TestReplaceInsertedRoute(t *testing.T) {
	d := New()
	Route[pingMsg, pingMsg](d, Client, LocalHandler[pingMsg, pingMsg](func(context.Context, pingMsg) (pingMsg, error) {
		return pingMsg{Text: "first"}, nil
	}))
	Route[pingMsg, pingMsg](d, Client, LocalHandler[pingMsg, pingMsg](func(context.Context, pingMsg) (pingMsg, error) {
		return pingMsg{Text: "second"}, nil
	}))

	r, err := SendLocal[pingMsg, pingMsg](context.Background(), d, pingMsg{})
	require.NoError(t, err)
	assert.Equal(t, "second", r.Text)
}

func TestOpaqueRouteByID(t *testing.T) {
	d := New()
	RouteByID[OpaqueMessage, OpaqueMessage](d, Client, "greet", LocalHandler[OpaqueMessage, OpaqueMessage](
		func(_ context.Context, m OpaqueMessage) (OpaqueMessage, error) {
			return OpaqueMessage{ID: m.ID, Bytes: append([]byte("reply:"), m.Bytes...)}, nil
		}))

	r, err := SendLocal[OpaqueMessage, OpaqueMessage](context.Background(), d, OpaqueMessage{ID: "greet", Bytes: []byte("hi")})
	require.NoError(t, err)
	assert.Equal(t, "reply:hi", string(r.Bytes))
}

func TestRouteByIDExposesInternalFactoryAtIDPath(t *testing.T) {
	d := New()
	RouteByID[OpaqueMessage, OpaqueMessage](d, Client, "weather.lookup", LocalHandler[OpaqueMessage, OpaqueMessage](
		func(_ context.Context, m OpaqueMessage) (OpaqueMessage, error) {
			return OpaqueMessage{ID: m.ID, Bytes: append([]byte("reply:"), m.Bytes...)}, nil
		}))

	mux := http.NewServeMux()
	d.Internal.Configure(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// The receiving side must serve this exact path — "/<id>", matching
	// OpaqueMessage.Path() literally — not "/opaque/<id>" or any other
	// shape, since that's what a remote rpc.Send for this envelope
	// builds its request URL from.
	resp, err := http.Post(srv.URL+"/weather.lookup", "application/json", bytes.NewReader([]byte(`{"id":"weather.lookup","bytes":"aGk="}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPendingResolvesAndRedispatches(t *testing.T) {
	d := New()
	fut := NewFuture[routeEntry]()
	Route[pingMsg, pingMsg](d, Client, PendingOf[pingMsg, pingMsg](fut))

	results := make(chan pingMsg, 1)
	errs := make(chan error, 1)
	go func() {
		r, err := SendLocal[pingMsg, pingMsg](context.Background(), d, pingMsg{Text: "held"})
		results <- r
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	fut.Resolve(newHandlerEntry[pingMsg, pingMsg](echoHandler), nil)

	select {
	case r := <-results:
		require.NoError(t, <-errs)
		assert.Equal(t, "echo:held", r.Text)
	case <-time.After(time.Second):
		t.Fatal("pending route never redispatched")
	}
}

func TestPendingReplacementAfterResolveIsHonored(t *testing.T) {
	d := New()
	fut := NewFuture[routeEntry]()
	Route[pingMsg, pingMsg](d, Client, PendingOf[pingMsg, pingMsg](fut))
	fut.Resolve(newHandlerEntry[pingMsg, pingMsg](echoHandler), nil)

	r, err := SendLocal[pingMsg, pingMsg](context.Background(), d, pingMsg{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "echo:x", r.Text)

	// A later Route for the same type must take effect: once resolved,
	// the pendingRoute has swapped itself out of the lane for the
	// concrete handler, so the new registration is what the lane holds.
	Route[pingMsg, pingMsg](d, Client, LocalHandler[pingMsg, pingMsg](func(context.Context, pingMsg) (pingMsg, error) {
		return pingMsg{Text: "replaced"}, nil
	}))
	r, err = SendLocal[pingMsg, pingMsg](context.Background(), d, pingMsg{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "replaced", r.Text)
}

func TestPassThroughForwardsToUpstream(t *testing.T) {
	d := New()
	SetDefault[pingMsg, pingMsg](d, Server, PassThrough[pingMsg, pingMsg]())
	Route[pingMsg, pingMsg](d, Upstream, LocalHandler[pingMsg, pingMsg](echoHandler))

	// Server has no concrete route for pingMsg, so its PassThrough
	// fallback must forward the send on to the upstream lane rather
	// than swallowing it.
	r, err := SendIn[pingMsg, pingMsg](context.Background(), d, pingMsg{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "echo:x", r.Text)
}

func TestRejectAllFallback(t *testing.T) {
	d := New()
	SetDefault[pingMsg, pingMsg](d, Upstream, RejectAll[pingMsg, pingMsg]())

	_, err := SendOut[pingMsg, pingMsg](context.Background(), d, pingMsg{})
	require.Error(t, err)
	assert.True(t, Is(KindRoute, err))
}

func TestCurrentDirectory(t *testing.T) {
	d := New()
	MakeCurrent(d)
	got, ok := Current()
	require.True(t, ok)
	assert.Same(t, d, got)
}

func TestDirectoryCloseAggregatesCloserErrors(t *testing.T) {
	d := New()
	boom := assert.AnError
	d.RegisterCloser(func() error { return boom })
	d.RegisterCloser(func() error { return nil })

	err := d.Close()
	require.Error(t, err)
}
