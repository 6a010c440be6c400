// Package restart executes the reload itself: tearing down the host process
// and bringing up a successor running the same invocation.
package restart

import (
	"fmt"
	"sync/atomic"
	"time"

	"molt/internal/event"
	"molt/internal/logging"
	"molt/internal/process"
)

// Platform is the narrow process-control surface the executor drives.
// Production wiring uses DefaultPlatform; tests substitute recorders.
type Platform struct {
	Invocation    func() process.Invocation
	Replace       func(process.Invocation) error
	SpawnDetached func(process.Invocation) (int, error)
	SpawnWait     func(process.Invocation) (int, error)
	SpawnWaitPTY  func(process.Invocation) (int, error)
	InterruptSelf func() error
	Exit          func(code int)
}

func DefaultPlatform() Platform {
	return Platform{
		Invocation: process.CurrentInvocation,
		Replace:    process.Replace,
		SpawnDetached: func(inv process.Invocation) (int, error) {
			child, err := process.SpawnDetached(inv)
			if err != nil {
				return 0, err
			}
			return child.Pid, nil
		},
		SpawnWait:     process.SpawnWait,
		SpawnWaitPTY:  process.SpawnWaitPTY,
		InterruptSelf: process.InterruptSelf,
		Exit:          process.Exit,
	}
}

type Options struct {
	Mode      Mode
	ForceExit bool
	UsePTY    bool
	Logger    *logging.Logger
	Bus       *event.Bus[event.Event]

	// StopWatcher asks the synchronizer loop to wind down. Used by the
	// spawn_exit strategy when the host is left to unwind on its own.
	StopWatcher func()

	Platform Platform
}

// Executor runs one of the three restart strategies. It is entered at most
// once per process lifetime; duplicate triggers from queued events are
// dropped.
type Executor struct {
	mode        Mode
	forceExit   bool
	usePTY      bool
	logger      *logging.Logger
	bus         *event.Bus[event.Event]
	stopWatcher func()
	platform    Platform

	triggered atomic.Bool
}

func New(options Options) (*Executor, error) {
	if !options.Mode.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, options.Mode)
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(logging.LevelInfo, nil)
	}
	platform := options.Platform
	if platform.Invocation == nil {
		platform = DefaultPlatform()
	}
	return &Executor{
		mode:        options.Mode,
		forceExit:   options.ForceExit,
		usePTY:      options.UsePTY,
		logger:      logger,
		bus:         options.Bus,
		stopWatcher: options.StopWatcher,
		platform:    platform,
	}, nil
}

func (e *Executor) Mode() Mode {
	return e.mode
}

// Reload runs the configured strategy. For exec it does not return on
// success; for spawn_exit with force_exit and for spawn_wait it exits the
// process. A spawn or replace failure is fatal: the supervisory contract is
// broken and the process terminates abnormally rather than staying on stale
// code.
func (e *Executor) Reload(path string) {
	if !e.triggered.CompareAndSwap(false, true) {
		return
	}

	e.logger.Info("reloading", map[string]string{
		"mode": e.mode.String(),
		"path": path,
	})
	if e.bus != nil {
		e.bus.Publish(event.Event{
			Type:      event.TypeReloadStarted,
			Path:      path,
			Mode:      e.mode.String(),
			Timestamp: time.Now().UTC(),
		})
	}

	inv := e.platform.Invocation()

	switch e.mode {
	case ModeExec:
		err := e.platform.Replace(inv)
		// Replace only returns on failure.
		e.fatal("process replacement failed", err)

	case ModeSpawnExit:
		pid, err := e.platform.SpawnDetached(inv)
		if err != nil {
			e.fatal("spawn failed", err)
			return
		}
		e.logger.Info("successor started", map[string]string{
			"pid": fmt.Sprintf("%d", pid),
		})
		if e.forceExit {
			e.platform.Exit(0)
			return
		}
		if err := e.platform.InterruptSelf(); err != nil {
			e.logger.Warn("interrupt delivery failed", map[string]string{
				"error": err.Error(),
			})
		}
		if e.stopWatcher != nil {
			e.stopWatcher()
		}

	case ModeSpawnWait:
		// Interrupt first so the host releases listeners and other
		// resources before the successor tries to claim them.
		if err := e.platform.InterruptSelf(); err != nil {
			e.logger.Warn("interrupt delivery failed", map[string]string{
				"error": err.Error(),
			})
		}
		spawn := e.platform.SpawnWait
		if e.usePTY {
			spawn = e.platform.SpawnWaitPTY
		}
		code, err := spawn(inv)
		if err != nil {
			e.fatal("spawn failed", err)
			return
		}
		e.platform.Exit(code)
	}
}

func (e *Executor) fatal(message string, err error) {
	fields := map[string]string{"mode": e.mode.String()}
	if err != nil {
		fields["error"] = err.Error()
	}
	e.logger.Error(message, fields)
	e.platform.Exit(1)
}
