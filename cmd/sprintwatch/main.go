// Command sprintwatch prints, per engineer, the active-sprint issues that
// still need attention.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/opensdd/sprintwatch/core/config"
	"github.com/opensdd/sprintwatch/core/jira"
	"github.com/opensdd/sprintwatch/core/output"
	"github.com/opensdd/sprintwatch/core/report"
	"github.com/opensdd/sprintwatch/core/search"
	"github.com/opensdd/sprintwatch/core/sprint"
	"github.com/spf13/cobra"
)

type options struct {
	verbose     bool
	format      string
	concurrency int
	timezone    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("sprintwatch failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "sprintwatch <config.yaml>",
		Short: "Report active-sprint issues that need attention, per engineer",
		Long: "sprintwatch finds the active sprint of the configured Jira board and lists, for every\n" +
			"configured engineer, the sprint issues that are not done or were updated recently.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug details to stderr")
	f.StringVarP(&opts.format, "format", "f", string(output.FormatText), "output format: text, json or prefetch")
	f.IntVar(&opts.concurrency, "concurrency", 0, "parallel engineer searches (overrides config)")
	f.StringVar(&opts.timezone, "timezone", "", "IANA zone for the recency cutoff (overrides config)")
	return cmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func run(ctx context.Context, stdout io.Writer, configPath string, opts *options) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if opts.concurrency < 0 {
		return &config.ConfigurationError{Field: "concurrency", Reason: "must be at least 1"}
	}
	if opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}
	if opts.timezone != "" {
		cfg.Timezone = opts.timezone
	}
	slog.Debug("Loaded configuration", "config", cfg.String())

	client, err := jira.NewClient(cfg.ClientOptions())
	if err != nil {
		return fmt.Errorf("failed to create jira client: %w", err)
	}
	loc, err := resolveLocation(ctx, cfg, client)
	if err != nil {
		return err
	}

	asm := &report.Assembler{
		Sprints:     &sprint.Locator{Client: client},
		Search:      &search.Engine{Client: client, BaseURL: client.BaseURL(), PageSize: cfg.PageSize},
		Concurrency: cfg.Concurrency,
	}
	if cfg.ResolveDisplayNames {
		asm.Users = client
	}
	rep, err := asm.Build(ctx, report.Request{
		Board:      cfg.Board(),
		Project:    cfg.ProjectKey,
		Engineers:  cfg.Engineers,
		RecentDays: cfg.Days(),
		Now:        time.Now(),
		Location:   loc,
	})
	if err != nil {
		return err
	}
	if n := rep.Failures(); n > 0 {
		slog.Warn("Some engineers could not be queried", "failed", n, "total", len(rep.Engineers))
	}
	return output.Render(stdout, format, rep)
}

// resolveLocation picks the zone JQL dates are evaluated in: the configured
// one, else the Jira profile's, else the local zone.
func resolveLocation(ctx context.Context, cfg *config.Config, client *jira.Client) (*time.Location, error) {
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, &config.ConfigurationError{Field: "timezone", Reason: fmt.Sprintf("%q is not a known IANA zone", cfg.Timezone)}
		}
		return loc, nil
	}
	loc, err := client.Location(ctx)
	if err == nil {
		slog.Debug("Using jira profile timezone", "zone", loc.String())
		return loc, nil
	}
	if jira.IsAuthentication(err) {
		return nil, err
	}
	slog.Warn("Could not read jira profile timezone, using local zone", "zone", time.Local.String(), "err", err)
	return time.Local, nil
}
