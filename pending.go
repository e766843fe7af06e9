package directory

import (
	"context"
	"reflect"
	"sync"
)

// pendingRoute wraps a route that is not yet ready. It already behaves
// as a routeEntry and may be installed into a Lane immediately; messages
// arriving before the wrapped future resolves are held (each as one
// blocked call to Future.Wait) and redispatched once it does.
//
// Grounded on router/pending.rs's PendingRoute: messages are never
// served by a cached reference to the resolved handler directly — they
// are redispatched through the owning Directory's normal send path, so
// that a later Insert for the same key is honored (spec.md §4.3).
type pendingRoute[M Message[R], R any] struct {
	fut  *Future[routeEntry]
	lane LaneKind
	d    *Directory
	key  routeKey
	once sync.Once
}

// routeKey identifies where a resolved pendingRoute should install
// itself: either a Go type (typed lane) or a string id (opaque lane).
type routeKey struct {
	typ reflect.Type
	str string
	isStr bool
}

func typedKey[M any]() routeKey {
	return routeKey{typ: typeKey[M]()}
}

func strKey(id string) routeKey {
	return routeKey{str: id, isStr: true}
}

// Pending wraps fut as an immediately-installable routeEntry for lane.
// Call Future.Resolve on fut once the concrete route (local handler,
// remote endpoint, or another pending route) is known.
func Pending[M Message[R], R any](d *Directory, lane LaneKind, key routeKey, fut *Future[routeEntry]) routeEntry {
	return &pendingRoute[M, R]{fut: fut, lane: lane, d: d, key: key}
}

func (p *pendingRoute[M, R]) call(ctx context.Context, msg any) (any, error) {
	entry, err := p.fut.Wait(ctx)
	if err != nil {
		return nil, E("pending: resolve", KindRoute, err)
	}
	p.once.Do(func() {
		p.d.installResolved(p.lane, p.key, entry)
	})
	m, ok := msg.(M)
	if !ok {
		return nil, E("pending: call", KindCodec, errTypeMismatch)
	}
	// Redispatch through the normal lane rather than calling entry
	// directly, so a later Insert for this key (made after resolution,
	// before this message was redispatched) is honored.
	switch p.lane {
	case Client:
		r, err := SendLocal[M, R](ctx, p.d, m)
		return r, err
	case Server:
		r, err := SendIn[M, R](ctx, p.d, m)
		return r, err
	default:
		r, err := SendOut[M, R](ctx, p.d, m)
		return r, err
	}
}
