package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/hopper/internal/report"
	"github.com/0x6d61/hopper/internal/trace"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded redirect traces",
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one trace with its redirect chain",
		Args:  cobra.ExactArgs(1),
		RunE:  runTraceShow,
	}
	show.Flags().StringP("format", "f", "text", "Output format (text, json)")

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete traces older than --max-age",
		Args:  cobra.NoArgs,
		RunE:  runTraceCleanup,
	}
	cleanup.Flags().Duration("max-age", 0, "Maximum trace age (default from config, 168h)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recorded traces, newest first",
			Args:  cobra.NoArgs,
			RunE:  runTraceList,
		},
		show,
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a trace",
			Args:  cobra.ExactArgs(1),
			RunE:  runTraceDelete,
		},
		cleanup,
	)
	return cmd
}

func openStore(cmd *cobra.Command) (*trace.SQLiteStore, time.Duration, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, 0, err
	}
	if cfg.Trace.Database == "" {
		return nil, 0, errors.New("trace database is required (use --trace-db or trace.database in the config)")
	}
	store, err := trace.NewSQLiteStore(cfg.Trace.Database)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open trace database %q: %w", cfg.Trace.Database, err)
	}
	return store, cfg.Trace.MaxAge, nil
}

func runTraceList(cmd *cobra.Command, args []string) error {
	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No traces recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tREDIRECTS\tOUTCOME\tURL")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			s.ID, s.CreatedAt.Local().Format(time.DateTime), s.StatusCode, s.Redirects, s.Outcome, s.StartURL)
	}
	return tw.Flush()
}

func runTraceShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	reporter, err := report.New(format)
	if err != nil {
		return err
	}

	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := store.LoadByID(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%w: %s", trace.ErrNotFound, args[0])
	}

	result := &report.Result{
		Entries:   []report.Entry{{Trace: t}},
		StartTime: t.CreatedAt,
		EndTime:   t.CreatedAt.Add(t.Duration),
	}
	return reporter.Generate(cmd.Context(), result, cmd.OutOrStdout())
}

func runTraceDelete(cmd *cobra.Command, args []string) error {
	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted trace %s\n", args[0])
	return nil
}

func runTraceCleanup(cmd *cobra.Command, args []string) error {
	store, maxAge, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if cmd.Flags().Changed("max-age") {
		maxAge, _ = cmd.Flags().GetDuration("max-age")
	}
	deleted, err := store.Cleanup(cmd.Context(), maxAge)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d trace(s) older than %s\n", deleted, maxAge)
	return nil
}
