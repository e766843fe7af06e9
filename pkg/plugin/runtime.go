package plugin

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	directory "github.com/spiral/roundtable"
	"github.com/spiral/roundtable/internal"
)

// Runtime is a running plugin process's server half: the Unix-socket
// listener it answers on, and the host's main socket path so the
// plugin can dial back in if it needs to.
type Runtime struct {
	HostSocket string
	listener   net.Listener
	server     *http.Server
}

// Run reads the first two positional arguments Spawn passed this process
// (the host's main socket, then this plugin's own socket — the same
// order plugin/server.rs reads them in; any descriptor OptArgs follow
// them and are left to the plugin), binds a Unix-socket HTTP
// server on its own socket with d's Internal factory attached, installs
// d as the package-level current Directory, and serves until the
// listener errors or ctx is done.
//
// Deliberately out of scope (per spec.md's own Non-goals): signal
// handling and graceful shutdown coordination with the parent process
// beyond what ctx cancellation already gives a caller.
func Run(ctx context.Context, d *directory.Directory) (*Runtime, error) {
	if len(os.Args) < 3 {
		return nil, fmt.Errorf("plugin: expected at least two socket arguments, got %d", len(os.Args)-1)
	}
	hostSocket := os.Args[1]
	ownSocket := os.Args[2]
	log := internal.Logger().With("socket", ownSocket, "host_socket", hostSocket)

	ln, err := net.Listen("unix", ownSocket)
	if err != nil {
		return nil, fmt.Errorf("plugin: listen on %s: %w", ownSocket, err)
	}

	mux := http.NewServeMux()
	d.Internal.Configure(mux)
	srv := &http.Server{Handler: mux}

	directory.MakeCurrent(d)

	rt := &Runtime{HostSocket: hostSocket, listener: ln, server: srv}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	log.Info("plugin listening")
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Error("plugin server stopped", "err", err)
		return rt, fmt.Errorf("plugin: serve %s: %w", ownSocket, err)
	}
	return rt, nil
}

// Close shuts the runtime's listener down.
func (r *Runtime) Close() error {
	return r.server.Close()
}
