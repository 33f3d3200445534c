package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
	"github.com/spf13/cobra"

	"swasthai/internal/app"
	"swasthai/internal/config"
	"swasthai/internal/dispatch"
	"swasthai/internal/reminder"
	logx "swasthai/pkg/logx"
)

func newScanCmd(o *rootOpts) *cobra.Command {
	var (
		today  string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the reminder scan once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			return runScan(cmd.Context(), o, cfg, today, dryRun, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&today, "today", "", `date to scan as ("2024-06-05", "tomorrow", "next monday")`)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not send or persist notifications")
	return cmd
}

func runScan(ctx context.Context, o *rootOpts, cfg *config.Config, rawToday string, dryRun bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "healthctl"))
	loc := location(cfg.Scheduler.Timezone)

	today := reminder.DateOf(time.Now().In(loc))
	if strings.TrimSpace(rawToday) != "" {
		t, err := parseToday(rawToday, time.Now(), loc)
		if err != nil {
			return err
		}
		if t.After(today) && !dryRun {
			return fmt.Errorf("--today %s is in the future; use --dry-run to preview it", t.Format(reminder.DateLayout))
		}
		today = t
	}

	store, err := openStore(o, log.With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		src  reminder.Source = store
		disp reminder.Dispatcher
		rec  *recorder
	)
	if dryRun {
		src = &dryRunSource{Store: store}
		rec = &recorder{}
		disp = rec
	} else {
		dc, err := app.MapDispatchConfig(cfg)
		if err != nil {
			return err
		}
		disp = dispatch.New(dc, log.With(logx.String("comp", "dispatch")))
	}

	runner := reminder.NewRunner(src, disp, log,
		reminder.WithLocation(loc),
		reminder.WithWindowDays(cfg.Scan.WindowDays),
	)
	rep, err := runner.RunAt(ctx, today)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "today %s: %d selected, %d sent, %d pending, %d already notified, %d invalid\n",
		rep.Today, rep.Selected, rep.Sent, rep.Pending, rep.SkippedExisting, rep.SkippedInvalid)
	for _, n := range rep.New {
		fmt.Fprintf(out, "  %s  %-20s %-24s in %d day(s)  [%s]\n", n.EventDate, n.MemberName, n.EventTitle, n.DaysUntil, n.Status)
	}
	if dryRun {
		fmt.Fprintln(out, "dry run: nothing was sent or saved")
	}
	return nil
}

// parseToday accepts YYYY-MM-DD or a natural language date relative to now.
func parseToday(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := reminder.ParseDate(raw); err == nil {
		return t, nil
	}
	res, err := dateparser.Parse(&dateparser.Configuration{CurrentTime: now.In(loc)}, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --today %q: %w", raw, err)
	}
	return reminder.DateOf(res.Time.In(loc)), nil
}

func location(tz string) *time.Location {
	if tz = strings.TrimSpace(tz); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.Local
}
