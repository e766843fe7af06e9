// Package httpfactory turns registered messages into HTTP endpoints:
// one net/http handler per message path, decoding the request body with
// the chosen codec, forwarding it to a caller-supplied send function,
// and encoding the response back. It knows nothing about Directory or
// Message[R] — it is a leaf package taking a locally declared
// structural constraint, so the root package can hold two Factory
// values without an import cycle (spec.md §4.6).
package httpfactory

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/spiral/roundtable/pkg/codec"
	"github.com/spiral/roundtable/pkg/rerr"
)

// pathed is the structural constraint Register needs: anything with a
// static Path(), matching the root package's Message[R].
type pathed interface {
	Path() string
}

type route struct {
	codec  codec.Kind
	handle func(ctx context.Context, body []byte) ([]byte, error)
}

// Factory is a registry of message paths to HTTP handlers. A Directory
// holds two: External (exposed on the public listener) and Internal
// (exposed on the Unix-socket listener used by spawned plugins).
type Factory struct {
	mu     sync.Mutex
	routes map[string]route
}

// New returns an empty Factory.
func New() *Factory {
	return &Factory{routes: make(map[string]route)}
}

// Register attaches path to send: an incoming POST at path is decoded
// as M with kind, passed to send, and the result encoded back as kind.
// Registering the same path twice replaces the previous handler.
func Register[M pathed, R any](f *Factory, path string, kind codec.Kind, send func(ctx context.Context, msg M) (R, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = route{
		codec: kind,
		handle: func(ctx context.Context, body []byte) ([]byte, error) {
			var msg M
			if err := codec.DecodeBytes(kind, body, &msg); err != nil {
				return nil, err
			}
			resp, err := send(ctx, msg)
			if err != nil {
				return nil, err
			}
			return codec.EncodeBytes(kind, resp)
		},
	}
}

// Configure attaches every registered route to mux as a POST handler.
// Call it once the Directory's registrations are complete and before
// the listener starts serving; Configure itself does not start a server.
func (f *Factory) Configure(mux *http.ServeMux) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for path, r := range f.routes {
		r := r
		mux.HandleFunc("POST "+path, func(w http.ResponseWriter, req *http.Request) {
			serveOne(w, req, r)
		})
	}
}

func serveOne(w http.ResponseWriter, req *http.Request, r route) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	out, err := r.handle(req.Context(), body)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", r.codec.ContentType())
	_, _ = w.Write(out)
}

func statusFor(err error) int {
	switch {
	case rerr.Is(rerr.KindRoute, err):
		return http.StatusNotFound
	case rerr.Is(rerr.KindCodec, err):
		return http.StatusBadRequest
	case rerr.Is(rerr.KindTransport, err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
