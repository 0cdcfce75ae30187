package daemon

import (
	"errors"
	"net"
	"os"
	"path/filepath"
)

// SocketListener owns a unix socket file: it replaces a stale one on Start
// and removes it on Close.
type SocketListener struct {
	path     string
	listener net.Listener
}

func NewSocketListener(socketPath string) *SocketListener {
	return &SocketListener{path: socketPath}
}

func (sl *SocketListener) Start() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(sl.path), 0o700); err != nil {
		return nil, err
	}

	if err := os.Remove(sl.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	listener, err := net.Listen("unix", sl.path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(sl.path, 0o700); err != nil {
		listener.Close()
		return nil, err
	}

	sl.listener = listener
	return listener, nil
}

func (sl *SocketListener) Close() error {
	if sl.listener == nil {
		return nil
	}
	err := sl.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	os.Remove(sl.path)
	return err
}
