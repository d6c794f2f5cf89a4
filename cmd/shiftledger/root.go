package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/shift-ledger/internal/config"
	"github.com/example/shift-ledger/internal/logging"
)

// commandEnv carries what every command needs once configuration is loaded.
type commandEnv struct {
	stdout   io.Writer
	stderr   io.Writer
	envFiles []string

	cfg    config.Config
	logger *slog.Logger
}

// load reads .env files and the environment. Logs go to stderr so command
// output on stdout stays machine readable.
func (r *commandEnv) load() error {
	if err := config.LoadDotEnv(r.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	r.cfg = cfg
	r.logger = logging.New(r.stderr, cfg.LogLevel)
	slog.SetDefault(r.logger)
	return nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rt := &commandEnv{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "shiftledger",
		Short: "Part-time shift ledger: calendar sync, attendance auto-fill and payroll",
		Long: `shiftledger mirrors tagged calendar events into a local SQLite ledger,
fills pending shifts from the attendance portal and aggregates fiscal-year income.
Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringSliceVar(&rt.envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env)")

	root.AddCommand(
		newServeCommand(rt),
		newSyncCommand(rt),
		newMigrateCommand(rt),
		newReportCommand(rt),
		newCheckCommand(rt),
		newHashTokenCommand(rt),
	)
	return root
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
