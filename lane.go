package directory

import (
	"context"
	"reflect"
	"sync"
)

// routeEntry is the type-erased form of a route: whatever was inserted
// for a given (Lane, key), boxed behind a uniform call signature so a
// Lane can hold local handlers, remote endpoints and pending routes in
// the same map. Concrete constructors (handlerEntry, remoteEntry and
// passThroughEntry in directory.go, pendingRoute) close over the real
// M/R types.
type routeEntry interface {
	call(ctx context.Context, msg any) (any, error)
}

type handlerEntry[M Message[R], R any] struct {
	h Handler[M, R]
}

func (e handlerEntry[M, R]) call(ctx context.Context, msg any) (any, error) {
	m, ok := msg.(M)
	if !ok {
		return nil, E("lane: call", KindCodec, errTypeMismatch)
	}
	return e.h(ctx, m)
}

// newHandlerEntry boxes a Handler as a routeEntry.
func newHandlerEntry[M Message[R], R any](h Handler[M, R]) routeEntry {
	return handlerEntry[M, R]{h: h}
}

// LaneKind names one of the three lanes a Directory holds.
type LaneKind int

const (
	Client LaneKind = iota
	Server
	Upstream
)

func (k LaneKind) String() string {
	switch k {
	case Client:
		return "client"
	case Server:
		return "server"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Lane is a typed + string-keyed lookup table of route entries, with an
// optional fallback consulted when both maps miss (spec.md §4.4's
// `default`, only meaningful on the upstream lane). Lookup keys are
// independent across lanes: a Directory holds three Lanes.
//
// Unlike the original's single-threaded-per-arbiter Router, Go
// goroutines are not confined to one OS thread, so Lane guards its state
// with a mutex rather than relying on thread confinement (see
// DESIGN.md's Open Question log).
type Lane struct {
	mu       sync.RWMutex
	types    map[reflect.Type]routeEntry
	strings  map[string]routeEntry
	fallback routeEntry
}

func newLane() *Lane {
	return &Lane{
		types:   make(map[reflect.Type]routeEntry),
		strings: make(map[string]routeEntry),
	}
}

func typeKey[M any]() reflect.Type {
	return reflect.TypeOf((*M)(nil)).Elem()
}

// insert stores h under the type identity of M. Inserting twice
// replaces the previous entry (spec.md §3 invariant).
func insert[M Message[R], R any](l *Lane, h routeEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types[typeKey[M]()] = h
}

// insertStr stores h under a string id, for the opaque lane.
func (l *Lane) insertStr(id string, h routeEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.strings[id] = h
}

// setFallback installs the optional default route for this lane.
func (l *Lane) setFallback(h routeEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fallback = h
}

// recipientFor looks up the entry for msg: by ID for an OpaqueMessage,
// by Go type identity otherwise. The bool result is false only when no
// specific entry and no fallback exist.
func (l *Lane) recipientFor(msg any) (routeEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if om, ok := IsOpaque(msg); ok {
		if h, found := l.strings[om.ID]; found {
			return h, true
		}
	} else if h, found := l.types[reflect.TypeOf(msg)]; found {
		return h, true
	}
	if l.fallback != nil {
		return l.fallback, true
	}
	return nil, false
}

// send looks up a handler for msg and forwards to it, or resolves with
// KindRoute if none is registered (and no fallback is set).
func send[M Message[R], R any](ctx context.Context, l *Lane, msg M) (R, error) {
	var zero R
	h, ok := l.recipientFor(msg)
	if !ok {
		return zero, E("lane: send", KindRoute, ErrRoute)
	}
	res, err := h.call(ctx, msg)
	if err != nil {
		return zero, err
	}
	r, ok := res.(R)
	if !ok {
		return zero, E("lane: send", KindCodec, errTypeMismatch)
	}
	return r, nil
}

// replace swaps the entry for M's type key; it is the same operation as
// insert. A resolving pendingRoute installs its concrete handler through
// Directory.installResolved, not through replace.
func replace[M Message[R], R any](l *Lane, h routeEntry) {
	insert[M, R](l, h)
}

// replaceStr is the string-keyed counterpart of replace.
func (l *Lane) replaceStr(id string, h routeEntry) {
	l.insertStr(id, h)
}
