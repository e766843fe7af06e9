// Package internal holds helpers that are not part of the public
// routing API: per-directory socket directories and the truncated-read
// classification shared by the remote transport.
package internal

import (
	"os"
	"path/filepath"
)

// SocketDir is a lazily-created per-Directory temporary directory
// holding the Unix sockets for the directory itself (main.sock) and any
// spawned plugins (<name>.sock). Grounded on the path layout the
// original constructs via crate::app::sock_path("main") /
// sock_path(&plugin_name).
type SocketDir struct {
	dir string
}

// Path returns the socket path for name, creating the backing directory
// on first use.
func (s *SocketDir) Path(name string) (string, error) {
	if s.dir == "" {
		dir, err := os.MkdirTemp("", "roundtable-")
		if err != nil {
			return "", err
		}
		s.dir = dir
	}
	return filepath.Join(s.dir, name+".sock"), nil
}

// Close removes the socket directory and everything under it.
func (s *SocketDir) Close() error {
	if s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	return err
}
