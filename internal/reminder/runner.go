package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"swasthai/internal/eventbus"
	logx "swasthai/pkg/logx"
)

// Source is the storage the runner reads members and the log from.
type Source interface {
	List(ctx context.Context) ([]Member, error)
	ListNotifications(ctx context.Context) ([]Notification, error)
	Appender
}

// Report is what one scan produced; it is also returned by the manual scan endpoint.
type Report struct {
	Today           string         `json:"today"`
	Considered      int            `json:"considered"`
	Selected        int            `json:"selected"`
	SkippedExisting int            `json:"skippedExisting"`
	SkippedInvalid  int            `json:"skippedInvalid"`
	Sent            int            `json:"sent"`
	Pending         int            `json:"pending"`
	New             []Notification `json:"new"`
	Took            time.Duration  `json:"took"`
}

// Runner loads state, evaluates the engine for today's date and reports.
// Runs are serialised within the process.
type Runner struct {
	runMu sync.Mutex

	mu     sync.Mutex
	loc    *time.Location
	window int

	src   Source
	disp  Dispatcher
	bus   eventbus.Bus
	log   logx.Logger
	clock func() time.Time
}

type RunnerOption func(*Runner)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) RunnerOption { return func(r *Runner) { r.clock = now } }

func WithLocation(loc *time.Location) RunnerOption {
	return func(r *Runner) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithWindowDays(n int) RunnerOption { return func(r *Runner) { r.window = n } }

func WithBus(bus eventbus.Bus) RunnerOption { return func(r *Runner) { r.bus = bus } }

func NewRunner(src Source, disp Dispatcher, log logx.Logger, opts ...RunnerOption) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Runner{
		src:    src,
		disp:   disp,
		log:    log,
		loc:    time.Local,
		window: DefaultWindowDays,
		clock:  time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Apply updates timezone and window for subsequent runs.
func (r *Runner) Apply(loc *time.Location, windowDays int) {
	r.mu.Lock()
	if loc != nil {
		r.loc = loc
	}
	if windowDays > 0 {
		r.window = windowDays
	}
	r.mu.Unlock()
}

// Today returns the current calendar date in the runner's timezone.
func (r *Runner) Today() time.Time {
	r.mu.Lock()
	loc := r.loc
	r.mu.Unlock()
	return DateOf(r.clock().In(loc))
}

// Run scans for the current date.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	return r.RunAt(ctx, r.Today())
}

// RunAt scans as if today were the given date.
//
// A pass is not interrupted by cancellation of ctx: once a reminder is sent
// its log entry must be written, and each delivery is already bounded by
// the dispatcher's own timeout. Values carried by ctx are kept.
func (r *Runner) RunAt(ctx context.Context, today time.Time) (Report, error) {
	ctx = context.WithoutCancel(ctx)
	r.runMu.Lock()
	defer r.runMu.Unlock()

	r.mu.Lock()
	window := r.window
	r.mu.Unlock()

	today = DateOf(today)
	rep := Report{Today: today.Format(DateLayout)}
	start := r.clock()
	r.publish(eventbus.ScanStarted, rep)

	members, err := r.src.List(ctx)
	if err != nil {
		return r.fail(rep, fmt.Errorf("load members: %w", err))
	}
	existing, err := r.src.ListNotifications(ctx)
	if err != nil {
		return r.fail(rep, fmt.Errorf("load notifications: %w", err))
	}

	eng := &Engine{
		Dispatcher: r.disp,
		Log:        r.src,
		WindowDays: window,
		Now:        r.clock,
		Logger:     r.log,
	}
	res, err := eng.ScanAndNotify(ctx, members, existing, today)
	rep.Considered = res.Considered
	rep.Selected = res.Selected
	rep.SkippedExisting = res.SkippedExisting
	rep.SkippedInvalid = res.SkippedInvalid
	rep.Sent = res.Sent
	rep.Pending = res.Pending
	rep.New = res.New
	rep.Took = r.clock().Sub(start)
	if err != nil {
		return r.fail(rep, err)
	}

	r.log.Info("scan finished",
		logx.String("today", rep.Today),
		logx.Int("members", len(members)),
		logx.Int("selected", rep.Selected),
		logx.Int("new", len(rep.New)),
		logx.Int("sent", rep.Sent),
		logx.Int("pending", rep.Pending),
		logx.Duration("took", rep.Took),
	)
	r.publish(eventbus.ScanFinished, rep)
	return rep, nil
}

func (r *Runner) fail(rep Report, err error) (Report, error) {
	r.log.Error("scan failed", logx.String("today", rep.Today), logx.Err(err))
	r.publish(eventbus.ScanFailed, rep)
	return rep, err
}

func (r *Runner) publish(typ string, rep Report) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(eventbus.Event{Type: typ, Data: rep})
}
