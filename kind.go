package directory

import "github.com/spiral/roundtable/pkg/rerr"

// Kind, the four error kinds, E, Is and ErrRoute are re-exported at the
// package root from pkg/rerr, which is kept as its own leaf package so
// pkg/codec and pkg/rpc can classify errors the same way without
// importing this package (that would create an import cycle: this
// package already imports pkg/rpc for remote routes).
type Kind = rerr.Kind

const (
	KindRoute     = rerr.KindRoute
	KindCodec     = rerr.KindCodec
	KindTransport = rerr.KindTransport
	KindMailbox   = rerr.KindMailbox
)

// E wraps err with an operation name and a Kind.
func E(op string, kind Kind, err error) error { return rerr.E(op, kind, err) }

// Is reports whether err carries the given Kind.
func Is(kind Kind, err error) bool { return rerr.Is(kind, err) }

// ErrRoute is the sentinel wrapped (with KindRoute) on a routing miss.
var ErrRoute = rerr.ErrRoute
