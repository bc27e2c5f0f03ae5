// Package daemon runs a long-lived function under the operating system's
// service manager (systemd, launchd or the Windows SCM).
package daemon

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	kardianos "github.com/kardianos/service"
	"github.com/sirupsen/logrus"
)

// Actions accepted by Control.
const (
	ActionInstall   = "install"
	ActionUninstall = "uninstall"
	ActionStart     = "start"
	ActionStop      = "stop"
	ActionRestart   = "restart"
	ActionRun       = "run"
)

// DefaultStopTimeout bounds how long Stop waits for the run function.
const DefaultStopTimeout = 10 * time.Second

// RunFunc is the service body. It must return once ctx is cancelled.
type RunFunc func(ctx context.Context) error

// Config describes the service to the service manager.
type Config struct {
	Name        string
	DisplayName string
	Description string
	// Arguments are passed to the executable when the manager starts it.
	Arguments   []string
	StopTimeout time.Duration
}

// Manager adapts a RunFunc to the kardianos service interface.
type Manager struct {
	cfg Config
	run RunFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// NewManager creates a manager for run.
func NewManager(cfg Config, run RunFunc) *Manager {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	return &Manager{cfg: cfg, run: run}
}

func (m *Manager) newService() (kardianos.Service, error) {
	if m.run == nil {
		return nil, errors.New("run function cannot be nil")
	}
	return kardianos.New(m, &kardianos.Config{
		Name:        m.cfg.Name,
		DisplayName: m.cfg.DisplayName,
		Description: m.cfg.Description,
		Arguments:   m.cfg.Arguments,
	})
}

// Start launches the run function in the background.
func (m *Manager) Start(s kardianos.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return errors.New("service already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	m.cancel = cancel
	m.done = done

	logrus.WithFields(logrus.Fields{
		"function": "Start",
		"service":  m.cfg.Name,
		"platform": platform(s),
	}).Info("Starting service")

	go func() {
		err := m.run(ctx)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Start",
				"service":  m.cfg.Name,
				"error":    err.Error(),
			}).Error("Service exited with error")
		}
		done <- err
	}()
	return nil
}

// Stop cancels the run function and waits for it up to the stop timeout.
func (m *Manager) Stop(s kardianos.Service) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "Stop",
		"service":  m.cfg.Name,
	}).Info("Stopping service")

	cancel()
	select {
	case err := <-done:
		return err
	case <-time.After(m.cfg.StopTimeout):
		return fmt.Errorf("service %s did not stop within %v", m.cfg.Name, m.cfg.StopTimeout)
	}
}

// Control performs action against the installed service. ActionRun runs the
// service in the foreground until the manager or an interrupt stops it.
func (m *Manager) Control(action string) error {
	s, err := m.newService()
	if err != nil {
		return err
	}

	switch action {
	case ActionRun:
		return s.Run()
	case ActionInstall, ActionUninstall, ActionStart, ActionStop, ActionRestart:
		if err := kardianos.Control(s, action); err != nil {
			if action == ActionInstall && runtime.GOOS == "windows" {
				return fmt.Errorf("failed to install Windows service (requires administrator privileges): %w", err)
			}
			return fmt.Errorf("failed to %s service: %w", action, err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "Control",
			"service":  m.cfg.Name,
			"action":   action,
		}).Info("Service control succeeded")
		return nil
	default:
		return fmt.Errorf("unknown service action %q", action)
	}
}

// IsAction reports whether arg names a Control action.
func IsAction(arg string) bool {
	switch arg {
	case ActionInstall, ActionUninstall, ActionStart, ActionStop, ActionRestart, ActionRun:
		return true
	}
	return false
}

func platform(s kardianos.Service) string {
	if s == nil {
		return runtime.GOOS
	}
	return s.Platform()
}
