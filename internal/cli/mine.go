package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/forge-miner/pkg/batch"
	"github.com/Sternrassler/forge-miner/pkg/countdown"
	"github.com/Sternrassler/forge-miner/pkg/logging"
	"github.com/Sternrassler/forge-miner/pkg/metrics"
	"github.com/Sternrassler/forge-miner/pkg/ratelimit"
	"github.com/Sternrassler/forge-miner/pkg/run"
)

// ErrCancelled is returned when a run was interrupted. The partial table
// has been written.
var ErrCancelled = errors.New("run cancelled")

// Dates on the command line are calendar days.
const dateLayout = "2006-01-02"

// progressEvery throttles countdown log lines.
const progressEvery = 10

// mineOptions are the flags shared by the mining commands.
type mineOptions struct {
	input  string
	column string
	format string
	output string
	since  string
	until  string
}

func (o *mineOptions) addFlags(cmd *cobra.Command, column string) {
	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "CSV file with a header row (\"-\" reads stdin)")
	f.StringVar(&o.column, "column", column, "input column holding the identifiers")
	f.StringVarP(&o.format, "format", "f", FormatTable, "output format: table, csv, markdown or json")
	f.StringVarP(&o.output, "output", "o", "", "write results to a file instead of stdout")
	f.StringVar(&o.since, "since", "", "start of the time range (YYYY-MM-DD)")
	f.StringVar(&o.until, "until", "", "end of the time range, inclusive (YYYY-MM-DD)")
}

// timeRange parses --since and --until. Until covers its whole day.
func (o *mineOptions) timeRange() (since, until time.Time, err error) {
	if o.since != "" {
		if since, err = time.Parse(dateLayout, o.since); err != nil {
			return since, until, fmt.Errorf("invalid --since %q: want YYYY-MM-DD", o.since)
		}
	}
	if o.until != "" {
		if until, err = time.Parse(dateLayout, o.until); err != nil {
			return since, until, fmt.Errorf("invalid --until %q: want YYYY-MM-DD", o.until)
		}
		until = until.Add(24*time.Hour - time.Second)
	}
	if !since.IsZero() && !until.IsZero() && since.After(until) {
		return since, until, fmt.Errorf("--since %s is after --until %s", o.since, o.until)
	}
	return since, until, nil
}

// mine runs one pipeline over the identifiers named by args or --input and
// writes the result table. Identifiers failing valid never reach the
// pipeline; they are listed as invalid.
func (a *app) mine(cmd *cobra.Command, args []string, opts *mineOptions, headers []string,
	valid func(string) error, pipeline func(*services) batch.Pipeline) error {
	if err := validFormat(opts.format); err != nil {
		return err
	}

	ids, err := resolveIdentifiers(args, opts.input, opts.column, a.stdin)
	if err != nil {
		return err
	}
	ids, malformed := partition(ids, valid)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := a.newServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	if a.cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, a.cfg.Metrics.Addr, a.logger); err != nil {
				a.logger.Warn().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	cd := countdown.New(countdown.Config{Margin: a.cfg.Backoff.Margin}, a.countdownLogger(), logging.NewLogger("countdown"))
	rc := run.New(ctx, headers, cd, a.logger)
	rc.Policy.Retries = a.cfg.Backoff.Retries
	for _, id := range malformed {
		rc.Invalid.Add(id)
	}
	if len(malformed) > 0 {
		rc.Logger.Warn().Strs("identifiers", malformed).Msg("Skipping malformed identifiers")
	}

	bc := batch.DefaultConfig()
	bc.Summary = svc.client
	bc.OnSummary = a.logSummary
	bc.OnUnit = a.logUnit(len(ids))
	if svc.store != nil {
		bc.Store = svc.store
	}

	rc.Logger.Info().Int("identifiers", len(ids)).Msg("Run started")
	report := batch.NewProcessor(pipeline(svc), bc).Run(rc, ids)

	if err := a.writeReport(report, opts); err != nil {
		return err
	}
	renderRunSummary(a.stderr, report)

	if report.Cancelled {
		return ErrCancelled
	}
	return nil
}

func (a *app) writeReport(r *batch.Report, opts *mineOptions) error {
	var w io.Writer = a.stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := renderReport(w, r, opts.format); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// countdownLogger reports quota waits: once when a wait starts, every
// progressEvery seconds and when it ends.
func (a *app) countdownLogger() countdown.Publisher {
	return countdown.PublisherFunc(func(s countdown.State) {
		switch {
		case !s.Active:
			a.logger.Info().Msg("Quota wait finished, resuming")
		case s.RemainingSeconds == s.TotalSeconds:
			a.logger.Warn().Int("wait_seconds", s.TotalSeconds).Msg("Quota exhausted, waiting")
		case s.RemainingSeconds%progressEvery == 0:
			a.logger.Info().Int("wait_seconds", s.RemainingSeconds).Msg("Waiting for quota")
		}
	})
}

func (a *app) logUnit(total int) func(batch.UnitResult) {
	return func(u batch.UnitResult) {
		evt := a.logger.Info()
		if u.State != batch.Committed {
			evt = a.logger.Warn()
		}
		evt.Str("identifier", u.Identifier).
			Str("position", fmt.Sprintf("%d/%d", u.Position+1, total)).
			Stringer("state", u.State).
			Dur("duration", u.Duration).
			Msg("Identifier processed")
	}
}

func (a *app) logSummary(s ratelimit.Summary) {
	a.logger.Debug().
		Int("remaining", s.Remaining).
		Int("limit", s.Limit).
		Time("reset_at", s.ResetAt).
		Msg("Quota summary")
}
