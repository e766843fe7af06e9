// Package directory implements an in-process message routing table: a
// per-reactor directory that maps a message's static Go type, or a
// string id for the opaque extension envelope, to exactly one handler.
package directory

import "context"

// Message is implemented by every value routed through a Directory. R is
// the type of its response. Path is the HTTP path the message is
// registered under when exposed over a Factory; for every type but the
// opaque envelope it is a fixed string, and for OpaqueMessage it is
// "/"+ID, since that envelope is routed by ID rather than Go type
// identity.
type Message[R any] interface {
	Path() string
}

// Handler is the local, in-process counterpart of a "mailbox" in the
// actor framework this package assumes but does not implement: a plain
// function from a message to its response.
type Handler[M Message[R], R any] func(ctx context.Context, msg M) (R, error)
