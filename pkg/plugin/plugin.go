// Package plugin spawns and runs subprocess extensions: processes that
// own a Unix socket, register a set of message ids as upstream routes
// on the host Directory, and answer them over plain HTTP.
//
// Grounded on plugin/client.rs and plugin/server.rs of the original
// implementation (see original_source/src/plugin): a plugin descriptor
// carries a name, an executable path and the message ids it answers;
// spawning it passes the host's socket and the plugin's own socket as
// its first two arguments.
package plugin

import (
	"github.com/go-playground/validator/v10"
)

// Descriptor describes one plugin to spawn. Messages lists the opaque
// envelope ids the plugin answers; the loader registers one upstream
// route per id once the process is running.
type Descriptor struct {
	Name     string   `mapstructure:"name" validate:"required"`
	ExecPath string   `mapstructure:"exec_path" validate:"required"`
	Messages []string `mapstructure:"messages" validate:"required,min=1,dive,required"`
	OptArgs  []string `mapstructure:"opt_args"`
}

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals

// Validate checks d against its struct tags: a plugin descriptor with
// no name, no executable, or no declared messages is rejected before
// a process is ever spawned.
func (d Descriptor) Validate() error {
	return validate.Struct(d)
}
