// Package hostmon answers "is the model host ready to accept invocations"
// and, when allowed, brings it up. At most one host process is ever launched
// by this process; the handle is remembered so a later call does not launch a
// second one while the first is still alive.
package hostmon

import (
	"context"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"parastream/internal/config"
	"parastream/internal/logging"
)

const (
	// probeTimeout bounds a single reachability probe.
	probeTimeout = 500 * time.Millisecond

	// pollInterval is the gap between probes while waiting for a freshly
	// launched host to come up.
	pollInterval = 300 * time.Millisecond
)

// Status reports the outcome of EnsureRunning. Started is true whenever a
// launch was attempted during the call, regardless of whether the host then
// became reachable in time.
type Status struct {
	Reachable bool `json:"reachable"`
	Started   bool `json:"started"`
}

type Monitor struct {
	log *logging.Logger

	mu     sync.Mutex
	proc   *exec.Cmd
	exited chan struct{}
}

func New(log *logging.Logger) *Monitor {
	return &Monitor{log: log}
}

// Probe attempts a TCP connection to host:port. It returns false on any
// connection error or timeout and has no side effect beyond the transient
// connection attempt.
func (m *Monitor) Probe(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// EnsureRunning probes the configured host and, when the caller or the
// configuration asks for it, launches the host process and waits for it to
// become reachable. Launch failures are swallowed: the caller sees
// {Reachable: false, Started: false}, never an error.
func (m *Monitor) EnsureRunning(ctx context.Context, cfg config.Model, allowStart bool) Status {
	if m.Probe(cfg.Host, cfg.Port, probeTimeout) {
		return Status{Reachable: true}
	}

	if !allowStart && !cfg.Autostart {
		return Status{}
	}

	// Never spawn a process to manage a remote host.
	if !isLoopback(cfg.Host) {
		m.log.Debug("model host %s is not local, refusing to autostart", cfg.Host)
		return Status{}
	}

	if !m.launch(cfg.StartCommand) {
		return Status{}
	}

	deadline := time.Now().Add(cfg.StartupTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return Status{Started: true}
		case <-time.After(pollInterval):
		}
		if m.Probe(cfg.Host, cfg.Port, probeTimeout) {
			return Status{Reachable: true, Started: true}
		}
	}
	return Status{Started: true}
}

// launch starts the host command unless a process launched earlier is still
// alive. It reports whether a live launched process exists after the call.
func (m *Monitor) launch(command []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proc != nil {
		select {
		case <-m.exited:
			m.proc = nil
		default:
			// Still alive from an earlier call; skip re-launching.
			return true
		}
	}

	if len(command) == 0 {
		return false
	}

	cmd := exec.Command(command[0], command[1:]...)
	if err := cmd.Start(); err != nil {
		m.log.Error("failed to start model host %q: %v", command[0], err)
		return false
	}
	m.log.Info("launched model host: %s (pid %d)", command[0], cmd.Process.Pid)

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	m.proc = cmd
	m.exited = exited
	return true
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
