package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/khotba/khotba_server/config"
	"github.com/khotba/khotba_server/internal/database"
	"github.com/khotba/khotba_server/internal/logging"
	"github.com/khotba/khotba_server/internal/pkg/cron"
	"github.com/khotba/khotba_server/internal/pkg/fileutil"
	"github.com/khotba/khotba_server/internal/repository"
)

var (
	configPath string
	dryRun     bool
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove orphan uploads, stale scratch files and rendered videos of deleted records",
		Long: `cleanup runs the same sweep as the server's periodic job, once.

It shares the server's lock file, so it is a no-op while a sweep is running.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to the config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be removed without removing it")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	return cmd
}

func run(out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := logging.New(logging.Options{Level: logLevel, Stdout: os.Stderr})
	if err != nil {
		return err
	}
	defer closer.Close()

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	layout := fileutil.NewLayout(cfg.Storage)
	svc := cron.NewService(repository.NewAnalysisRepository(db), layout, cfg.Cleanup, logger)

	report, err := svc.RunOnce(dryRun)
	if err != nil {
		return err
	}

	renderReport(out, report)
	return nil
}

func renderReport(out io.Writer, report *cron.Report) {
	if report.Skipped {
		fmt.Fprintln(out, "Another cleanup is running, nothing done.")
		return
	}
	if len(report.Removals) == 0 {
		fmt.Fprintln(out, "Nothing to clean.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "File", "Size", "Status"})

	for _, rm := range report.Removals {
		status := "removed"
		switch {
		case report.DryRun:
			status = "would remove"
		case rm.Err != nil:
			status = "failed: " + rm.Err.Error()
		}
		t.AppendRow(table.Row{rm.Kind, filepath.Base(rm.Path), humanize.Bytes(uint64(rm.Size)), status})
	}

	t.AppendFooter(table.Row{
		"", fmt.Sprintf("%d files", len(report.Removals)),
		humanize.Bytes(uint64(report.Bytes())), "",
	})
	t.Render()

	if report.DryRun {
		fmt.Fprintln(out, "Dry run: no file was removed. Run without --dry-run to remove them.")
	}
}
