package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/shift-ledger/internal/application"
	"github.com/example/shift-ledger/internal/payroll"
	"github.com/example/shift-ledger/internal/persistence/sqlite"
)

func newSyncCommand(rt *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one calendar sync and attendance auto-fill",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer a.Close(rt.logger)

			result, err := a.scheduler.RunNow(ctx, "cli")
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(rt.stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(syncOutput{
				Success:    result.Success,
				Created:    result.Created,
				Updated:    result.Updated,
				Deleted:    result.Deleted,
				AutoFilled: result.AutoFilled,
				Error:      result.Error,
			}); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("同期に失敗しました: %s", result.Error)
			}
			return nil
		},
	}
}

type syncOutput struct {
	Success    bool   `json:"success"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Deleted    int    `json:"deleted"`
	AutoFilled int    `json:"autoFilled"`
	Error      string `json:"error,omitempty"`
}

func newMigrateCommand(rt *commandEnv) *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(); err != nil {
				return err
			}
			ctx := cmd.Context()
			storage, err := openStorage(ctx, rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			printf(rt.stdout, "schema version %s (%d applied)\n", status.CurrentVersion, len(status.Applied))
			return nil
		},
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations without applying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(); err != nil {
				return err
			}
			ctx := cmd.Context()
			storage, err := sqlite.OpenPath(ctx, rt.cfg.DatabasePath, rt.logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(rt.stdout, 0, 4, 2, ' ', 0)
			for _, applied := range status.Applied {
				printf(w, "%s\tapplied\t%s\n", applied.Version, applied.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			for _, pending := range status.Pending {
				printf(w, "%s\tpending\t%s\n", pending.Version, pending.Description)
			}
			return w.Flush()
		},
	})
	return migrate
}

func newReportCommand(rt *commandEnv) *cobra.Command {
	var (
		year   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show fiscal year income per month and per employer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer a.Close(rt.logger)

			report, err := a.reports.IncomeReport(ctx, year)
			if err != nil {
				return err
			}
			if asJSON {
				encoder := json.NewEncoder(rt.stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(report)
			}
			return writeReport(rt.stdout, report)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year (December of the prior year through November); current when 0")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func writeReport(out io.Writer, report application.IncomeReport) error {
	printf(out, "%d年度 (%s - %s)\n", report.Year, report.Start.Format("2006-01-02"), report.End.AddDate(0, 0, -1).Format("2006-01-02"))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, month := range report.Months {
		printf(w, "%d/%02d\t%s円\t%d件\t\n", month.Year, int(month.Month), payroll.FormatCurrency(month.Total), month.Shifts)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	printf(out, "\n")
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, employer := range report.Employers {
		printf(w, "%s\t%s円\t%d件\n", employer.EmployerName, payroll.FormatCurrency(employer.Total), employer.Shifts)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	printf(out, "合計 %s円\n", payroll.FormatCurrency(report.Total))
	return nil
}

func newCheckCommand(rt *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the database and calendar connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer a.Close(rt.logger)

			var failed []string
			report := func(name string, err error) {
				if err != nil {
					failed = append(failed, name)
					printf(rt.stdout, "%-10s NG  %v\n", name, err)
					return
				}
				printf(rt.stdout, "%-10s OK\n", name)
			}
			report("database", a.storage.Ping(ctx))
			report("calendar", a.calendar.Health(ctx))
			if rt.cfg.AttendanceConfigured() && rt.cfg.AutoFillEmployer != "" {
				printf(rt.stdout, "%-10s auto-fill for %q\n", "attendance", rt.cfg.AutoFillEmployer)
			} else {
				printf(rt.stdout, "%-10s disabled\n", "attendance")
			}
			printf(rt.stdout, "%-10s next run %s\n", "schedule", a.scheduler.Next().Format("2006-01-02 15:04 MST"))

			if len(failed) > 0 {
				return fmt.Errorf("接続確認に失敗しました: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

func newHashTokenCommand(rt *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Print the argon2id hash of an API token for API_TOKEN_HASH",
		Long:  "Hashes the token given as argument, or the first line of stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("トークンを指定してください")
			}

			hash, err := application.HashToken(token, application.DefaultArgon2idParams)
			if err != nil {
				return err
			}
			printf(rt.stdout, "%s\n", hash)
			return nil
		},
	}
}
