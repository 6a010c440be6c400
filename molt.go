package molt

import (
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"molt/internal/event"
	"molt/internal/fsevents"
	"molt/internal/inspect"
	"molt/internal/logging"
	"molt/internal/notify"
	"molt/internal/restart"
	"molt/internal/trigger"
	"molt/internal/watchsync"
)

// Re-exported collaborator types, so hosts can plug in their own
// implementations without reaching into internal packages.
type (
	// Snapshot is one observation of the host's source layout.
	Snapshot = inspect.Snapshot
	// Inspector supplies fresh Snapshots to the watch-path computation.
	Inspector = inspect.Inspector
	// InspectorFunc adapts a function to Inspector.
	InspectorFunc = inspect.InspectorFunc
	// EventSource is the filesystem notification capability.
	EventSource = fsevents.Source
	// ReloadEvent is one lifecycle notification from Events.
	ReloadEvent = event.Event
	// EventType tags a ReloadEvent.
	EventType = event.Type
)

// Lifecycle event types delivered on the Events channel.
const (
	EventWatchAdded     = event.TypeWatchAdded
	EventWatchFailed    = event.TypeWatchFailed
	EventWatchRemoved   = event.TypeWatchRemoved
	EventChangeDetected = event.TypeChangeDetected
	EventReloadStarted  = event.TypeReloadStarted
)

// Reloader watches the running program's own source directories and
// restarts the process when one of them changes.
type Reloader struct {
	config    Config
	logger    *logging.Logger
	bus       *event.Bus[event.Event]
	inspector Inspector
	source    EventSource
	sync      *watchsync.Synchronizer
	filter    *trigger.Filter
	executor  *restart.Executor

	startOnce sync.Once
	watch     *Watch
	startErr  error
}

// Option customizes construction.
type Option func(*options)

type options struct {
	inspector Inspector
	source    EventSource
	logOutput io.Writer
	units     []string
	platform  *restart.Platform
}

// WithInspector replaces the default process introspection.
func WithInspector(inspector Inspector) Option {
	return func(o *options) { o.inspector = inspector }
}

// WithEventSource replaces the fsnotify-backed event source.
func WithEventSource(source EventSource) Option {
	return func(o *options) { o.source = source }
}

// WithLogOutput redirects the reloader's log stream (default os.Stderr).
func WithLogOutput(output io.Writer) Option {
	return func(o *options) { o.logOutput = output }
}

// WithUnits registers source files as loaded units with the default
// inspector. Ignored when WithInspector is used.
func WithUnits(files ...string) Option {
	return func(o *options) { o.units = append(o.units, files...) }
}

func withPlatform(platform restart.Platform) Option {
	return func(o *options) { o.platform = &platform }
}

// New validates the configuration and wires the reloader. An invalid mode
// or log level fails here, never at reload time.
func New(cfg Config, opts ...Option) (*Reloader, error) {
	mode, err := restart.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		return nil, errInvalidLogLevel(cfg.LogLevel)
	}
	cfg = cfg.withDefaults()

	var opt options
	for _, apply := range opts {
		apply(&opt)
	}

	output := opt.logOutput
	if output == nil {
		output = io.Writer(os.Stderr)
	}
	logger := logging.NewLoggerWithOutput(level, output).With(map[string]string{
		"component": "molt",
	})

	bus := event.NewBus[event.Event](event.BusOptions{})

	inspector := opt.inspector
	if inspector == nil {
		inspector = inspect.NewProcessInspector(opt.units...)
	}

	reloader := &Reloader{
		config:    cfg,
		logger:    logger,
		bus:       bus,
		inspector: inspector,
	}

	source := opt.source
	if source == nil {
		source = fsevents.NewNotify(reloader.onChange, fsevents.Options{
			Logger:     logger,
			Debounce:   cfg.Debounce,
			MaxWatches: cfg.MaxWatches,
		})
	}
	reloader.source = source

	reloader.sync = watchsync.New(watchsync.Options{
		Source:     source,
		Inspector:  inspector,
		ExtraPaths: cfg.ExtraPaths,
		Interval:   cfg.PollInterval,
		Logger:     logger,
		Bus:        bus,
	})

	reloader.filter = trigger.New(trigger.Options{
		ExtraPaths: cfg.ExtraPaths,
		Suffixes:   cfg.SourceSuffixes,
		Artifacts:  cfg.ArtifactSuffixes,
		Current:    reloader.sync.Current,
		Logger:     logger,
	})

	executorOptions := restart.Options{
		Mode:        mode,
		ForceExit:   cfg.ForceExit,
		UsePTY:      cfg.UsePTY,
		Logger:      logger,
		Bus:         bus,
		StopWatcher: reloader.sync.Stop,
	}
	if opt.platform != nil {
		executorOptions.Platform = *opt.platform
	}
	executor, err := restart.New(executorOptions)
	if err != nil {
		return nil, err
	}
	reloader.executor = executor

	return reloader, nil
}

// StartWatcher starts the event source and the reconciliation loop. The
// first reconciliation pass runs before it returns, so the initial watch
// set is in place when the host continues. A backend initialization failure
// is returned and nothing is left running.
//
// Go has no daemon threads, so the foreground/background distinction of
// the spawn_wait strategy is expressed through the returned handle: a host
// using spawn_wait should block on Done before exiting, since the watcher
// goroutine is what supervises the successor; hosts using the other modes
// may ignore the handle entirely.
func (r *Reloader) StartWatcher() (*Watch, error) {
	r.startOnce.Do(func() {
		if err := r.source.Start(); err != nil {
			r.startErr = err
			return
		}
		r.sync.Sync()
		go r.sync.Run()
		r.watch = &Watch{reloader: r}
		r.logger.Info("watcher started", map[string]string{
			"mode":     r.executor.Mode().String(),
			"interval": r.config.PollInterval.String(),
		})
	})
	return r.watch, r.startErr
}

// Events subscribes to reload lifecycle notifications.
func (r *Reloader) Events() (<-chan ReloadEvent, func()) {
	return r.bus.Subscribe()
}

// NotifyHandler returns an http.Handler that streams lifecycle events (and
// recent log entries) over websocket. The host decides where to mount it.
func (r *Reloader) NotifyHandler() http.Handler {
	return &notify.StreamHandler{
		Bus:         r.bus,
		Logger:      r.logger,
		IncludeLogs: true,
	}
}

// onChange is the event-source callback: filter, publish, reload.
func (r *Reloader) onChange(ev fsevents.Event) {
	if !r.filter.ShouldReload(ev.Path) {
		return
	}
	r.bus.Publish(event.Event{
		Type:      event.TypeChangeDetected,
		Path:      ev.Path,
		Timestamp: time.Now().UTC(),
	})
	r.executor.Reload(ev.Path)
}

// Watch is the handle returned by StartWatcher.
type Watch struct {
	reloader *Reloader
	stopOnce sync.Once
}

// Stop winds the watcher down: the loop finishes its current iteration,
// registrations are released, and the event source is closed. Blocks until
// the loop has exited.
func (w *Watch) Stop() {
	if w == nil {
		return
	}
	w.stopOnce.Do(func() {
		w.reloader.sync.Stop()
		<-w.reloader.sync.Done()
		_ = w.reloader.source.Close()
		w.reloader.bus.Close()
	})
}

// Done is closed when the watcher loop has exited, either through Stop or
// because a reload took over the process's fate.
func (w *Watch) Done() <-chan struct{} {
	return w.reloader.sync.Done()
}
