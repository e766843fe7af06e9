package directory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/spiral/roundtable/internal"
	"github.com/spiral/roundtable/pkg/codec"
	"github.com/spiral/roundtable/pkg/httpfactory"
	"github.com/spiral/roundtable/pkg/metrics"
	"github.com/spiral/roundtable/pkg/rpc"
)

// Directory is the per-reactor routing table: three Lanes (client,
// server, upstream) plus the Unix-socket workspace shared by any
// plugins it spawns. Send and SendLocal consult client, then server,
// then upstream; SendIn starts at server and SendOut consults upstream
// only. Within a single Lane, lookup is a plain map read guarded by that
// Lane's own mutex.
type Directory struct {
	client   *Lane
	server   *Lane
	upstream *Lane

	// External is attached to the Directory's public HTTP listener,
	// Internal to the Unix-socket listener a spawned plugin's runtime
	// binds (spec.md §4.6). Route and RouteByID auto-populate Internal
	// for every client/server registration and the opaque envelope;
	// External is populated explicitly by the embedding program for
	// whichever messages it chooses to expose publicly.
	External *httpfactory.Factory
	Internal *httpfactory.Factory

	// Metrics is nil unless installed with NewWithMetrics; every metrics
	// call site guards against a nil Metrics so instrumentation stays
	// optional for tests that don't need a registry.
	Metrics *metrics.Metrics

	sockets *internal.SocketDir

	mu      sync.Mutex
	closers []func() error
}

// New returns an empty Directory with no routes registered in any lane
// and no metrics collection.
func New() *Directory {
	return &Directory{
		client:   newLane(),
		server:   newLane(),
		upstream: newLane(),
		External: httpfactory.New(),
		Internal: httpfactory.New(),
		sockets:  &internal.SocketDir{},
	}
}

// NewWithMetrics is New plus a Metrics set registered against reg.
func NewWithMetrics(reg prometheus.Registerer) *Directory {
	d := New()
	d.Metrics = metrics.NewMetrics(reg)
	return d
}

func (d *Directory) laneFor(lane LaneKind) *Lane {
	switch lane {
	case Client:
		return d.client
	case Server:
		return d.server
	default:
		return d.upstream
	}
}

// SocketPath returns the Unix socket path for name under this
// Directory's temporary workspace, creating the workspace on first use.
func (d *Directory) SocketPath(name string) (string, error) {
	return d.sockets.Path(name)
}

// RegisterCloser records fn to run during Close, in reverse
// registration order (last-spawned plugin torn down first).
func (d *Directory) RegisterCloser(fn func() error) {
	d.mu.Lock()
	d.closers = append(d.closers, fn)
	d.mu.Unlock()
}

// Close tears down every registered closer (spawned plugin processes,
// in LIFO order) and then removes the socket workspace, aggregating any
// failures with multierr rather than stopping at the first one.
func (d *Directory) Close() error {
	d.mu.Lock()
	closers := d.closers
	d.closers = nil
	d.mu.Unlock()

	var errs error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if err := d.sockets.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// RouteSource is the closed tagged union of everything a route can be
// registered from: a local handler, a remote endpoint, or a pending
// route awaiting one of the other two. Modeled as an interface with an
// unexported method (rather than a Rust-style enum, which Go lacks) plus
// the constructor functions below, per SPEC_FULL.md's design note on
// RouteSource.
type RouteSource[M Message[R], R any] interface {
	install(d *Directory, lane LaneKind, key routeKey) routeEntry
}

type localSource[M Message[R], R any] struct {
	h Handler[M, R]
}

func (s localSource[M, R]) install(*Directory, LaneKind, routeKey) routeEntry {
	return newHandlerEntry[M, R](s.h)
}

// LocalHandler registers an in-process handler as the route source.
func LocalHandler[M Message[R], R any](h Handler[M, R]) RouteSource[M, R] {
	return localSource[M, R]{h: h}
}

type remoteEntry[M Message[R], R any] struct {
	remote rpc.Remote
}

func (e remoteEntry[M, R]) call(ctx context.Context, msg any) (any, error) {
	m, ok := msg.(M)
	if !ok {
		return nil, E("directory: remote call", KindCodec, errTypeMismatch)
	}
	return rpc.Send[M, R](ctx, e.remote, m)
}

type remoteSource[M Message[R], R any] struct {
	remote rpc.Remote
}

func (s remoteSource[M, R]) install(*Directory, LaneKind, routeKey) routeEntry {
	return remoteEntry[M, R]{remote: s.remote}
}

// RemoteRoute registers a remote HTTP or Unix-socket endpoint as the
// route source: every send for M is serialized, sent over the wire, and
// its response decoded back into R.
func RemoteRoute[M Message[R], R any](remote rpc.Remote) RouteSource[M, R] {
	return remoteSource[M, R]{remote: remote}
}

type pendingSource[M Message[R], R any] struct {
	fut *Future[routeEntry]
}

func (s pendingSource[M, R]) install(d *Directory, lane LaneKind, key routeKey) routeEntry {
	return Pending[M, R](d, lane, key, s.fut)
}

// PendingOf registers a route whose concrete source (local or remote)
// is not known yet. Messages sent before fut resolves block on it; once
// resolved, the Directory installs the concrete route in fut's place and
// redispatches every waiting call through the normal lane (spec.md §4.3).
func PendingOf[M Message[R], R any](fut *Future[routeEntry]) RouteSource[M, R] {
	return pendingSource[M, R]{fut: fut}
}

type passThroughEntry[M Message[R], R any] struct {
	d *Directory
}

func (e passThroughEntry[M, R]) call(ctx context.Context, msg any) (any, error) {
	m, ok := msg.(M)
	if !ok {
		return nil, E("directory: pass-through", KindCodec, errTypeMismatch)
	}
	return SendOut[M, R](ctx, e.d, m)
}

type passThroughSource[M Message[R], R any] struct{}

func (passThroughSource[M, R]) install(d *Directory, _ LaneKind, _ routeKey) routeEntry {
	return passThroughEntry[M, R]{d: d}
}

// PassThrough builds a route source that forwards an unmatched message
// on to the upstream lane instead of treating the miss as an error
// (spec.md §9's "forward-to-upstream" terminator). Installing it as a
// lane's fallback means every message that lane doesn't otherwise
// recognize is redispatched through SendOut.
func PassThrough[M Message[R], R any]() RouteSource[M, R] {
	return passThroughSource[M, R]{}
}

// RejectAll builds a route source that always fails with KindRoute.
// Useful as an explicit lane default when falling through further would
// be wrong (e.g. a server lane that must never reach a stray upstream).
func RejectAll[M Message[R], R any]() RouteSource[M, R] {
	return localSource[M, R]{h: func(context.Context, M) (R, error) {
		var zero R
		return zero, E("directory: reject-all", KindRoute, ErrRoute)
	}}
}

// Route installs src as the handler for M's static type in lane, and
// — for the client and server lanes — auto-populates the Internal HTTP
// factory at M's static Path() so a spawned plugin's runtime can reach
// this route over its Unix socket (spec.md §4.6). Registering the same
// type twice replaces the previous entry.
func Route[M Message[R], R any](d *Directory, lane LaneKind, src RouteSource[M, R]) {
	key := typedKey[M]()
	entry := src.install(d, lane, key)
	insert[M, R](d.laneFor(lane), entry)

	if lane == Client || lane == Server {
		registerInternal[M, R](d, lane)
	}
}

// RouteByID installs src for the opaque envelope id in lane, used for
// extension messages routed by string id instead of Go type identity
// (plugin-declared messages, spec.md §4.8). For the client and server
// lanes this also exposes the route on the Internal HTTP factory at
// "/<id>", matching OpaqueMessage.Path() literally (spec.md §6) so a
// remote rpc.Send for an OpaqueMessage and the receiving Internal
// factory agree on the same path.
func RouteByID[M Message[R], R any](d *Directory, lane LaneKind, id string, src RouteSource[M, R]) {
	key := strKey(id)
	entry := src.install(d, lane, key)
	d.laneFor(lane).insertStr(id, entry)

	if lane == Client || lane == Server {
		httpfactory.Register[M, R](d.Internal, "/"+id, codec.JSON, func(ctx context.Context, msg M) (R, error) {
			if lane == Client {
				return SendLocal[M, R](ctx, d, msg)
			}
			return SendIn[M, R](ctx, d, msg)
		})
	}
}

// registerInternal exposes M's static Path() on the Internal HTTP
// factory, forwarding through SendLocal for a client-lane registration
// or SendIn for a server-lane one — both of which cascade onward per
// spec.md §4.5, so a plugin reaching back into its host over HTTP gets
// the same fallthrough behavior an in-process send would.
func registerInternal[M Message[R], R any](d *Directory, lane LaneKind) {
	var zero M
	path := zero.Path()
	if _, opaque := IsOpaque(zero); opaque || path == "" {
		// The opaque envelope has no static path; RouteByID handles it.
		return
	}
	httpfactory.Register[M, R](d.Internal, path, codec.JSON, func(ctx context.Context, msg M) (R, error) {
		if lane == Client {
			return SendLocal[M, R](ctx, d, msg)
		}
		return SendIn[M, R](ctx, d, msg)
	})
}

// SetDefault installs src as lane's fallback, consulted when neither the
// typed nor the string-keyed table has an entry for an incoming message.
func SetDefault[M Message[R], R any](d *Directory, lane LaneKind, src RouteSource[M, R]) {
	entry := src.install(d, lane, routeKey{})
	d.laneFor(lane).setFallback(entry)
}

// installResolved installs entry at key in lane; called exactly once by
// a pendingRoute when its Future resolves.
func (d *Directory) installResolved(lane LaneKind, key routeKey, entry routeEntry) {
	l := d.laneFor(lane)
	if key.isStr {
		l.insertStr(key.str, entry)
		return
	}
	l.mu.Lock()
	l.types[key.typ] = entry
	l.mu.Unlock()
}

// SendOut sends msg through d's upstream lane only — the last lane in
// the cascade, so it has nothing left to fall through to (spec.md §4.5).
func SendOut[M Message[R], R any](ctx context.Context, d *Directory, msg M) (R, error) {
	return observedSend[M, R](ctx, d, Upstream, msg)
}

// SendIn looks up msg in d's server lane, falling through to SendOut on
// a KindRoute miss (spec.md §4.5: "send_in: look up in server; on miss,
// fall through to send_out").
func SendIn[M Message[R], R any](ctx context.Context, d *Directory, msg M) (R, error) {
	r, err := observedSend[M, R](ctx, d, Server, msg)
	if err == nil || !Is(KindRoute, err) {
		return r, err
	}
	return SendOut[M, R](ctx, d, msg)
}

// SendLocal looks up msg in d's client lane, falling through to SendIn
// on a KindRoute miss (spec.md §4.5: "send_local: look up in client; on
// miss, fall through to send_in") — so a single call cascades through
// all three lanes, stopping at the first non-route-miss outcome.
func SendLocal[M Message[R], R any](ctx context.Context, d *Directory, msg M) (R, error) {
	r, err := observedSend[M, R](ctx, d, Client, msg)
	if err == nil || !Is(KindRoute, err) {
		return r, err
	}
	return SendIn[M, R](ctx, d, msg)
}

// observedSend wraps send with the SendsTotal/SendDuration/RouteMisses
// metrics, a no-op when d.Metrics is nil.
func observedSend[M Message[R], R any](ctx context.Context, d *Directory, lane LaneKind, msg M) (R, error) {
	start := time.Now()
	r, err := send[M, R](ctx, d.laneFor(lane), msg)
	if d.Metrics == nil {
		return r, err
	}
	d.Metrics.SendDuration.WithLabelValues(lane.String()).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if Is(KindRoute, err) {
			d.Metrics.RouteMisses.WithLabelValues(lane.String()).Inc()
		}
		if Is(KindTransport, err) {
			d.Metrics.TransportErrors.Inc()
		}
	}
	d.Metrics.SendsTotal.WithLabelValues(lane.String(), outcome).Inc()
	return r, err
}

// Send is an alias for SendLocal (spec.md §4.5), which itself cascades
// through client, then server, then upstream, falling through to the
// next lane only on a KindRoute miss, never on an application-level
// handler error (spec.md §4.4).
func Send[M Message[R], R any](ctx context.Context, d *Directory, msg M) (R, error) {
	return SendLocal[M, R](ctx, d, msg)
}

var current atomic.Pointer[Directory] //nolint:gochecknoglobals

// MakeCurrent installs d as the package-level "current" Directory,
// consulted by code that has no Directory value in hand (e.g. a
// plugin's runtime entry point). This is the Go-idiomatic substitute for
// the original's thread_local! Arbiter registry: Go goroutines are not
// confined to one OS thread, so there is exactly one current Directory
// per process rather than one per thread (see DESIGN.md's Open
// Question log).
func MakeCurrent(d *Directory) { current.Store(d) }

// Current returns the package-level current Directory, if one has been
// installed with MakeCurrent.
func Current() (*Directory, bool) {
	d := current.Load()
	return d, d != nil
}
