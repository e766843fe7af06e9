// Package rerr defines the error kinds shared by the routing core,
// the codec and the remote transport. It is a leaf package so none of
// codec/rpc/httpfactory/plugin need to import the root routing package
// just to classify an error, and the root package can import all of
// them without a cycle.
package rerr

import (
	stderrors "errors"

	"github.com/spiral/errors"
)

// Kind classifies the core error conditions described in the spec:
// route lookup misses, codec failures, transport failures and mailbox
// failures. A handler-level application error is never wrapped in a
// Kind; it is transported verbatim as the plain error returned from a
// Handler.
type Kind = errors.Kind

const (
	// KindRoute: no handler exists for the message in any lane consulted.
	KindRoute Kind = iota + 100
	// KindCodec: serialize or deserialize failure at any hop.
	KindCodec
	// KindTransport: HTTP request failure, socket connect failure, or a
	// truncated response.
	KindTransport
	// KindMailbox: local handler's mailbox is closed, or otherwise
	// refuses the message outside of an application-level error.
	KindMailbox
)

// E wraps err with an operation name and a Kind, following the
// `const op = errors.Op(...); errors.E(op, kind, err)` idiom used
// throughout the teacher package (encoders.go, internal/receive.go).
func E(op string, kind Kind, err error) error {
	return errors.E(errors.Op(op), kind, err)
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(kind Kind, err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(kind, err)
}

// ErrRoute is returned (wrapped with KindRoute) whenever a lane lookup
// misses in every lane consulted and no default upstream is set.
var ErrRoute = stderrors.New("roundtable: no route for message")
