// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lostfound/lib/service"
)

const (
	// SocketEnv overrides the default service socket path.
	SocketEnv = "LOSTFOUND_SOCKET"

	// UserEnv names the acting user when --user is not given.
	UserEnv = "LOSTFOUND_USER"
)

// Connection holds the --socket and --user flags. Embed it in the
// params of any command that talks to lostfound-service.
type Connection struct {
	SocketPath string
	User       string
}

// AddFlags registers --socket and --user with environment defaults.
func (c *Connection) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.SocketPath, "socket", DefaultSocketPath(),
		"lostfound-service socket path (env "+SocketEnv+")")
	flagSet.StringVarP(&c.User, "user", "u", os.Getenv(UserEnv),
		"act as this user (env "+UserEnv+")")
}

// Client returns a socket client acting as the configured user. Fails
// when no user is set; use [Connection.Anonymous] for unauthenticated
// actions.
func (c *Connection) Client() (*service.Client, error) {
	if c.User == "" {
		return nil, fmt.Errorf("no user: pass --user or set %s", UserEnv)
	}
	return service.NewClient(c.SocketPath, c.User), nil
}

// Anonymous returns a socket client that sends no user.
func (c *Connection) Anonymous() *service.Client {
	return service.NewClient(c.SocketPath, "")
}

// DefaultSocketPath is $LOSTFOUND_SOCKET, or the service's default
// socket under ~/.cache/lostfound.
func DefaultSocketPath() string {
	if path := os.Getenv(SocketEnv); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "lostfound", "lostfound.sock")
}
