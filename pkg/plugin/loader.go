package plugin

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	directory "github.com/spiral/roundtable"
	"github.com/spiral/roundtable/internal"
	"github.com/spiral/roundtable/pkg/codec"
	"github.com/spiral/roundtable/pkg/rpc"
)

// Process is a spawned plugin: the running *exec.Cmd plus the name it
// was registered under. Its only public use is via Directory.Close,
// which is wired to Kill+Wait every spawned Process in LIFO order.
type Process struct {
	Name string
	cmd  *exec.Cmd
}

// Spawn validates desc, launches its executable with the host's main
// socket and the plugin's own socket as its first two arguments
// (mirroring plugin/client.rs's Plugin::add_to), and registers one
// upstream route per declared message id pointing at the plugin's
// socket. The process is registered with d.RegisterCloser so
// Directory.Close tears it down.
func Spawn(ctx context.Context, d *directory.Directory, desc Descriptor) (*Process, error) {
	const op = "plugin: spawn"
	log := internal.Logger().With("plugin", desc.Name)

	if err := desc.Validate(); err != nil {
		log.Error("invalid plugin descriptor", "err", err)
		recordSpawn(d, "error")
		return nil, directory.E(op, directory.KindRoute, err)
	}

	sockMain, err := d.SocketPath("main")
	if err != nil {
		recordSpawn(d, "error")
		return nil, directory.E(op, directory.KindTransport, err)
	}
	sockPlugin, err := d.SocketPath(desc.Name)
	if err != nil {
		recordSpawn(d, "error")
		return nil, directory.E(op, directory.KindTransport, err)
	}

	args := append([]string{sockMain, sockPlugin}, desc.OptArgs...)
	cmd := exec.CommandContext(ctx, desc.ExecPath, args...)
	if v, ok := os.LookupEnv("TEST_LOG"); ok {
		cmd.Env = append(os.Environ(), fmt.Sprintf("TEST_LOG=%s", v))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Debug("starting plugin process", "exec_path", desc.ExecPath, "socket", sockPlugin)
	if err := cmd.Start(); err != nil {
		log.Error("failed to start plugin", "err", err)
		recordSpawn(d, "error")
		return nil, directory.E(op, directory.KindTransport, err)
	}

	p := &Process{Name: desc.Name, cmd: cmd}
	d.RegisterCloser(func() error {
		if cmd.Process == nil {
			return nil
		}
		_ = cmd.Process.Kill()
		return cmd.Wait()
	})

	for _, id := range desc.Messages {
		remote := rpc.NewUnix(sockPlugin, codec.JSON)
		directory.RouteByID[directory.OpaqueMessage, directory.OpaqueMessage](
			d, directory.Upstream, id, directory.RemoteRoute[directory.OpaqueMessage, directory.OpaqueMessage](remote),
		)
	}

	log.Info("plugin spawned", "pid", cmd.Process.Pid, "messages", desc.Messages)
	recordSpawn(d, "ok")
	return p, nil
}

func recordSpawn(d *directory.Directory, outcome string) {
	if d.Metrics == nil {
		return
	}
	d.Metrics.PluginSpawns.WithLabelValues(outcome).Inc()
}
