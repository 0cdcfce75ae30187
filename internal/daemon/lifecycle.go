package daemon

import (
	"fmt"
	"net"
	"time"
)

// Lifecycle guards a socket path so only one server binds it: an exclusive
// lock next to the socket plus a pid file for diagnostics.
type Lifecycle struct {
	lockFile   *LockFile
	pidFile    *PIDFile
	socketPath string
}

func NewLifecycle(socketPath string) *Lifecycle {
	return &Lifecycle{
		lockFile:   NewLockFile(socketPath + ".lock"),
		pidFile:    NewPIDFile(socketPath + ".pid"),
		socketPath: socketPath,
	}
}

func (lm *Lifecycle) Acquire() error {
	if err := lm.lockFile.Acquire(); err != nil {
		if pid, _ := lm.pidFile.Read(); pid != 0 {
			return fmt.Errorf("%w: pid %d", err, pid)
		}
		return err
	}
	if err := lm.pidFile.Write(); err != nil {
		lm.lockFile.Release()
		return err
	}
	return nil
}

func (lm *Lifecycle) Cleanup() {
	lm.pidFile.Remove()
	lm.lockFile.Release()
}

func (lm *Lifecycle) PIDFile() *PIDFile {
	return lm.pidFile
}

// Running reports whether something answers on socketPath.
func Running(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
