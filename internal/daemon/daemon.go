// Package daemon runs the index server as a long-lived process bound to a
// unix socket, guarded so only one instance serves a socket at a time.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alucardeht/coffeeidx/internal/logger"
	"github.com/alucardeht/coffeeidx/internal/rpc"
)

var log = logger.ForComponent("daemon")

var ErrAlreadyRunning = errors.New("index server already running")

type Daemon struct {
	socketPath string
	lifecycle  *Lifecycle
	listener   *SocketListener
	startTime  time.Time
}

func New(socketPath string) *Daemon {
	return &Daemon{
		socketPath: socketPath,
		lifecycle:  NewLifecycle(socketPath),
		listener:   NewSocketListener(socketPath),
	}
}

// Run serves srv on the socket until ctx is done.
func (d *Daemon) Run(ctx context.Context, srv *rpc.Server) error {
	if Running(d.socketPath) {
		return fmt.Errorf("%w on %s", ErrAlreadyRunning, d.socketPath)
	}
	if err := d.lifecycle.Acquire(); err != nil {
		return err
	}
	defer d.lifecycle.Cleanup()

	l, err := d.listener.Start()
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.socketPath, err)
	}
	defer d.listener.Close()

	d.startTime = time.Now()
	log.Info("index server listening", "socket", d.socketPath, "pid_file", d.lifecycle.PIDFile().Path())

	err = srv.Serve(ctx, l)
	log.Info("index server stopped", "uptime", d.Uptime())
	return err
}

func (d *Daemon) SocketPath() string {
	return d.socketPath
}

func (d *Daemon) Uptime() time.Duration {
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime)
}
