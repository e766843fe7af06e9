package rpc_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	directory "github.com/spiral/roundtable"
	"github.com/spiral/roundtable/pkg/codec"
	"github.com/spiral/roundtable/pkg/rpc"
)

type echoMsg struct {
	Text string `json:"text"`
}

func (echoMsg) Path() string { return "/echo" }

func echoServer(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var in echoMsg
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoMsg{Text: "echo:" + in.Text})
	}
}

func TestSendOverHTTP(t *testing.T) {
	srv := httptest.NewServer(echoServer(t))
	defer srv.Close()

	remote := rpc.NewHTTP(srv.URL, codec.JSON)
	out, err := rpc.Send[echoMsg, echoMsg](context.Background(), remote, echoMsg{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out.Text)
}

func TestSendOverUnixSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		_ = http.Serve(ln, echoServer(t))
	}()

	remote := rpc.NewUnix(sockPath, codec.JSON)
	out, err := rpc.Send[echoMsg, echoMsg](context.Background(), remote, echoMsg{Text: "sock"})
	require.NoError(t, err)
	assert.Equal(t, "echo:sock", out.Text)
}

func TestSendOpaqueMessageHitsIDPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /weather.lookup", func(w http.ResponseWriter, r *http.Request) {
		var in directory.OpaqueMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(directory.OpaqueMessage{ID: in.ID, Bytes: []byte("ok")})
	})
	// Anything that doesn't land on the registered pattern above 404s,
	// catching a Send that builds the wrong URL (e.g. the envelope's
	// empty Path() of the past, or a doubled slash) instead of silently
	// matching some other route.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	remote := rpc.NewHTTP(srv.URL, codec.JSON)
	out, err := rpc.Send[directory.OpaqueMessage, directory.OpaqueMessage](
		context.Background(), remote, directory.OpaqueMessage{ID: "weather.lookup", Bytes: []byte("req")},
	)
	require.NoError(t, err)
	assert.Equal(t, "weather.lookup", out.ID)
	assert.Equal(t, []byte("ok"), out.Bytes)
}

func TestSendAgainstUnreachableRemoteIsTransportError(t *testing.T) {
	remote := rpc.NewUnix(filepath.Join(os.TempDir(), "does-not-exist.sock"), codec.JSON)
	_, err := rpc.Send[echoMsg, echoMsg](context.Background(), remote, echoMsg{Text: "x"})
	require.Error(t, err)
	assert.True(t, directory.Is(directory.KindTransport, err))
}
