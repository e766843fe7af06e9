// Package rpc implements the remote endpoint adapter (spec.md §4.2): a
// Remote wraps either an HTTP URL or a Unix socket path and, given a
// message, performs exactly one request/response round trip over the
// wire. Both transports share one request path in Send, since spec.md §6
// mandates the same HTTP wire format for sockets as for public URLs.
package rpc

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spiral/roundtable/internal"
	"github.com/spiral/roundtable/pkg/codec"
	"github.com/spiral/roundtable/pkg/rerr"
)

// Kind distinguishes the two supported remote transports.
type Kind int

const (
	HTTP Kind = iota
	Unix
)

// Remote is one upstream route: an HTTP URL or a Unix socket path, plus
// the wire codec used to encode requests and decode responses.
type Remote struct {
	Kind  Kind
	URL   string // base URL for HTTP; socket path for Unix
	Codec codec.Kind

	// client is built lazily and cached; a Unix Remote gets a client
	// whose Transport dials the socket instead of TCP.
	once   sync.Once
	client *http.Client
}

// NewHTTP builds a Remote that sends to an HTTP URL.
func NewHTTP(url string, kind codec.Kind) Remote {
	return Remote{Kind: HTTP, URL: strings.TrimRight(url, "/"), Codec: kind}
}

// NewUnix builds a Remote that sends over a Unix domain socket, carrying
// plain HTTP requests the same way an HTTP Remote would.
func NewUnix(socketPath string, kind codec.Kind) Remote {
	return Remote{Kind: Unix, URL: socketPath, Codec: kind}
}

func (r *Remote) httpClient() *http.Client {
	r.once.Do(func() {
		if r.Kind == HTTP {
			r.client = &http.Client{Timeout: 30 * time.Second}
			return
		}
		socketPath := r.URL
		r.client = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					d := net.Dialer{}
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		}
	})
	return r.client
}

func (r *Remote) requestURL(path string) string {
	// Message.Path() values always carry their own leading "/" (the
	// opaque envelope's is "/"+ID); trim it here so neither transport
	// ever produces a doubled slash.
	path = strings.TrimPrefix(path, "/")
	if r.Kind == HTTP {
		return r.URL + "/" + path
	}
	// The host portion is irrelevant for a Unix-socket dialer; "unix" is
	// a conventional placeholder (matching dockerd's own client usage).
	return "http://unix/" + path
}

var bufPool = sync.Pool{ //nolint:gochecknoglobals
	New: func() any { return new(bytes.Buffer) },
}

func encode(kind codec.Kind, v any) ([]byte, error) {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	if err := codec.Encode(kind, buf, v); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// pathed is the structural constraint Send needs: anything with a
// static Path(), which every directory.Message[R] satisfies. Declaring
// it locally instead of importing the root package's Message[R]
// interface keeps this package a leaf the root package can depend on
// without creating an import cycle.
type pathed interface {
	Path() string
}

// Send performs exactly one request/response round trip against remote
// for msg, and decodes the response as R. No retry is attempted;
// connection failures and truncated reads both surface as KindTransport.
func Send[M pathed, R any](ctx context.Context, remote Remote, msg M) (R, error) {
	const op = "rpc: send"
	var zero R

	reqID := uuid.NewString()
	log := internal.Logger().With("req_id", reqID, "path", msg.Path())

	body, err := encode(remote.Codec, msg)
	if err != nil {
		log.Error("encode failed", "err", err)
		return zero, err
	}

	url := remote.requestURL(msg.Path())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return zero, rerr.E(op, rerr.KindTransport, err)
	}
	req.Header.Set("Content-Type", remote.Codec.ContentType())
	req.Header.Set("X-Request-Id", reqID)

	log.Debug("sending remote request", "url", url)
	resp, err := remote.httpClient().Do(req)
	if err != nil {
		log.Error("remote request failed", "err", err)
		return zero, rerr.E(op, rerr.KindTransport, err)
	}
	defer resp.Body.Close()

	data, err := internal.ReadResponseBody(resp.Body)
	if err != nil {
		log.Error("remote response truncated", "err", err)
		return zero, rerr.E(op, rerr.KindTransport, err)
	}

	if resp.StatusCode >= 400 {
		log.Error("remote returned error status", "status", resp.StatusCode)
		return zero, rerr.E(op, rerr.KindTransport, fmt.Errorf("remote %s returned status %d: %s", url, resp.StatusCode, string(data)))
	}

	var out R
	if err := codec.DecodeBytes(remote.Codec, data, &out); err != nil {
		return zero, err
	}
	return out, nil
}
