package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"swasthai/internal/assistant"
	"swasthai/internal/config"
	"swasthai/internal/dispatch"
	"swasthai/internal/eventbus"
	"swasthai/internal/httpapi"
	"swasthai/internal/observability/pprof"
	"swasthai/internal/reminder"
	rtsup "swasthai/internal/runtime/supervisor"
	"swasthai/internal/storage"
	"swasthai/internal/task/scheduler"
	logx "swasthai/pkg/logx"
)

// App wires the daemon: storage, the reminder runner behind the scheduler,
// the dispatch channels, the assistant client and the HTTP API.
type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store  storage.Store
	disp   *dispatch.Service
	runner *reminder.Runner
	sched  *scheduler.Service
	ai     *assistant.Client
	http   *httpapi.Service
	pprof  *pprof.Service
}

// Status is served on /api/status.
type Status struct {
	StartedAt     time.Time              `json:"startedAt"`
	Today         string                 `json:"today"`
	Scheduler     scheduler.Snapshot     `json:"scheduler"`
	Channels      []string               `json:"channels"`
	Dispatches    []dispatch.HistoryItem `json:"dispatches"`
	Assistant     bool                   `json:"assistant"`
	Tasks         []rtsup.TaskStats      `json:"tasks"`
	EventsDropped uint64                 `json:"eventsDropped"`
}

// New loads cfgPath and builds every component. Nothing runs until Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	bus := eventbus.New()

	sc, err := MapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	dc, err := MapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	ac, err := mapAssistantConfig(cfg)
	if err != nil {
		return nil, err
	}
	hc, err := mapHTTPConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	sched := scheduler.New(mapSchedulerConfig(cfg), log.With(logx.String("comp", "scheduler")))
	disp := dispatch.New(dc, log.With(logx.String("comp", "dispatch")), dispatch.WithBus(bus))
	runner := reminder.NewRunner(store, disp, log.With(logx.String("comp", "reminder")),
		reminder.WithLocation(sched.Location()),
		reminder.WithWindowDays(cfg.Scan.WindowDays),
		reminder.WithBus(bus),
	)
	ai := assistant.New(ac, log.With(logx.String("comp", "assistant")))

	a := &App{
		cfgm:   cfgm,
		log:    log.With(logx.String("comp", "app")),
		logs:   logSvc,
		bus:    bus,
		store:  store,
		disp:   disp,
		runner: runner,
		sched:  sched,
		ai:     ai,
		pprof:  pprof.New(mapPprofConfig(cfg), log.With(logx.String("comp", "pprof"))),
	}
	startedAt := time.Now()
	a.http = httpapi.New(hc, httpapi.Deps{
		Store:     store,
		Scanner:   runner,
		Assistant: ai,
		Bus:       bus,
		Status:    func() any { return a.status(startedAt) },
	}, log.With(logx.String("comp", "http")))

	if !ai.Enabled() {
		a.log.Warn("assistant disabled: no api key configured")
	}
	return a, nil
}

// HTTPAddr returns the bound API address once started.
func (a *App) HTTPAddr() string { return a.http.Addr() }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) status(startedAt time.Time) Status {
	st := Status{
		StartedAt:  startedAt,
		Today:      a.runner.Today().Format(reminder.DateLayout),
		Scheduler:  a.sched.Snapshot(),
		Channels:   a.disp.Channels(),
		Dispatches: a.disp.History(),
		Assistant:  a.ai.Enabled(),
	}
	if a.sup != nil {
		st.Tasks = a.sup.Snapshot()
	}
	if a.bus != nil {
		st.EventsDropped = a.bus.Dropped()
	}
	return st
}

// Start runs the scheduler, the API and the background loops.
func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := MapDispatchConfig(cfg); err != nil {
			return err
		}
		if _, err := mapAssistantConfig(cfg); err != nil {
			return err
		}
		if _, err := MapStorageConfig(cfg); err != nil {
			return err
		}
		return nil
	})

	cfg := a.cfgm.Get()
	if err := a.registerScan(cfg); err != nil {
		return err
	}
	a.sched.Start(a.sup.Context())

	if err := a.http.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	if a.pprof.Enabled() {
		a.pprof.Start(a.sup.Context())
	}

	if cfg.Scan.RunOnStart {
		a.sup.Go0("reminder.scan.startup", func(c context.Context) {
			tctx, cancel := context.WithTimeout(c, scanTimeout(cfg))
			defer cancel()
			if _, err := a.runner.Run(tctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("startup scan failed", logx.Err(err))
			}
		})
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started",
		logx.String("http", a.http.Addr()),
		logx.Strings("channels", a.disp.Channels()),
		logx.String("tz", a.sched.Location().String()),
	)
	return nil
}

// registerScan (re)installs the daily reminder scan.
func (a *App) registerScan(cfg *config.Config) error {
	job := func(ctx context.Context) error {
		_, err := a.runner.Run(ctx)
		return err
	}
	timeout := scanTimeout(cfg)
	if s := strings.TrimSpace(cfg.Scan.Schedule); s != "" {
		return a.sched.AddSchedule(scanJobName, s, timeout, job)
	}
	return a.sched.AddDaily(scanJobName, cfg.Scan.At, timeout, job)
}

// applyConfig fans a validated config out to the live components.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	ch := config.Summarize(prev, next)
	if len(ch.Sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Attrs...)
	a.log.Debug("config change summary", fields...)
	for _, s := range ch.RestartRequired {
		a.log.Warn(s+" config changed; restart required for changes to take effect", logx.String("section", s))
	}

	if ch.Has("logging") {
		a.logs.Apply(mapLogConfig(next))
	}
	if ch.Has("scheduler") {
		a.sched.Apply(mapSchedulerConfig(next))
	}
	if ch.Has("scheduler") || ch.Has("scan") {
		if err := a.registerScan(next); err != nil {
			a.log.Warn("invalid scan schedule; keeping previous", logx.Err(err))
		}
		a.runner.Apply(a.sched.Location(), next.Scan.WindowDays)
	}
	if ch.Has("dispatch") {
		if dc, err := MapDispatchConfig(next); err != nil {
			a.log.Warn("invalid dispatch config; keeping previous", logx.Err(err))
		} else {
			a.disp.Apply(dc)
		}
	}
	if ch.Has("assistant") {
		if ac, err := mapAssistantConfig(next); err != nil {
			a.log.Warn("invalid assistant config; keeping previous", logx.Err(err))
		} else {
			a.ai.Apply(ac)
		}
	}
	if ch.Has("pprof") {
		a.pprof.Reconfigure(ctx, mapPprofConfig(next))
	}
	a.log.Info("config reloaded", fields...)
}

// Stop shuts components down in reverse dependency order. Every step is
// bounded so one component cannot stall the whole stop.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			took := time.Since(start)
			if took >= 500*time.Millisecond {
				a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
			} else {
				a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
			go func() {
				err := <-done
				took := time.Since(start)
				if err != nil {
					a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
				} else {
					a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
				}
			}()
		}
	}

	step("http", 5*time.Second, func(c context.Context) error { a.http.Stop(c); return nil })
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("pprof", 1*time.Second, func(c context.Context) error { a.pprof.Stop(c); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	// storage last: a scan may still be appending until the supervisor drains
	step("storage", 1*time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
