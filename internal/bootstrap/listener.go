// Package bootstrap resolves this proxy's listener: inherited file
// descriptors take priority, then a UNIX domain socket, then a TCP bind
// address.
package bootstrap

import (
	"fmt"
	"net"
	"os"

	"github.com/alxayo/media-proxy/internal/config"
)

// firstInheritedFD is the lowest file descriptor number a parent process
// (e.g. systemd socket activation, or a zero-downtime restart supervisor)
// would hand down beyond stdio.
const firstInheritedFD = 3

// Listen resolves cfg's listener per the priority order: FD_UNIX/FD_TCP
// inherited descriptor, else BIND_UNIX/UDS domain socket, else BIND TCP
// address.
func Listen(cfg *config.Config) (net.Listener, error) {
	if cfg.FDUnix >= 0 {
		return listenFromFD(cfg.FDUnix, "unix")
	}
	if cfg.FDTCP >= 0 {
		return listenFromFD(cfg.FDTCP, "tcp")
	}
	if cfg.UDS || cfg.BindUnix != "" {
		path := cfg.BindUnix
		if path == "" {
			path = "./socket/media-proxy.sock"
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		return net.Listen("unix", path)
	}
	return net.Listen("tcp", cfg.Bind)
}

// listenFromFD adopts an inherited descriptor at firstInheritedFD+index as
// a net.Listener.
func listenFromFD(index int, network string) (net.Listener, error) {
	fd := uintptr(firstInheritedFD + index)
	file := os.NewFile(fd, fmt.Sprintf("inherited-%s-fd-%d", network, index))
	if file == nil {
		return nil, fmt.Errorf("invalid inherited fd %d", fd)
	}
	ln, err := net.FileListener(file)
	if err != nil {
		return nil, fmt.Errorf("adopt inherited %s fd %d: %w", network, fd, err)
	}
	return ln, nil
}
