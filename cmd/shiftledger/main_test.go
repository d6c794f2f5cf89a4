package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/example/shift-ledger/internal/application"
)

var environmentKeys = []string{
	"DATABASE_URL", "GAS_API_URL", "CALENDAR_TOKEN", "CALENDAR_TAG",
	"FREEE_EMAIL", "FREEE_PASSWORD", "FREEE_EMPLOYEE_ID", "FREEE_LOGIN_URL", "FREEE_BASE_URL", "FREEE_JOB_NAME",
	"CHROME_PATH", "LEDGER_TIMEZONE", "SYNC_CRON", "SYNC_ON_START", "SYNC_TIMEOUT",
	"HTTP_ADDR", "API_TOKEN_HASH", "LOG_LEVEL",
}

// isolateEnvironment blanks every configuration variable and points the
// ledger at a fresh database. It returns the --env-file flag to pass.
func isolateEnvironment(t *testing.T) string {
	t.Helper()
	for _, key := range environmentKeys {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(dir, "ledger.db"))
	t.Setenv("LOG_LEVEL", "error")
	return "--env-file=" + filepath.Join(dir, "missing.env")
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestHashTokenCommand(t *testing.T) {
	out, err := runCLI(t, "", "hash-token", "s3cret")
	if err != nil {
		t.Fatalf("expected hash-token to succeed, got %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := application.VerifyToken(hash, "s3cret"); err != nil {
		t.Fatalf("expected printed hash to verify, got %v", err)
	}

	out, err = runCLI(t, "from-stdin\n", "hash-token")
	if err != nil {
		t.Fatalf("expected stdin token to be hashed, got %v", err)
	}
	if err := application.VerifyToken(strings.TrimSpace(out), "from-stdin"); err != nil {
		t.Fatalf("expected stdin hash to verify, got %v", err)
	}

	if _, err := runCLI(t, "\n", "hash-token"); err == nil {
		t.Fatalf("expected empty token to be rejected")
	}
}

func TestMigrateCommand(t *testing.T) {
	envFile := isolateEnvironment(t)

	out, err := runCLI(t, "", envFile, "migrate", "status")
	if err != nil {
		t.Fatalf("expected migrate status to succeed, got %v", err)
	}
	if !strings.Contains(out, "001") || !strings.Contains(out, "pending") {
		t.Fatalf("expected pending initial migration, got %q", out)
	}

	out, err = runCLI(t, "", envFile, "migrate")
	if err != nil {
		t.Fatalf("expected migrate to succeed, got %v", err)
	}
	if strings.TrimSpace(out) != "schema version 001 (1 applied)" {
		t.Fatalf("unexpected migrate output %q", out)
	}

	out, err = runCLI(t, "", envFile, "migrate", "status")
	if err != nil {
		t.Fatalf("expected migrate status to succeed, got %v", err)
	}
	if !strings.Contains(out, "applied") || strings.Contains(out, "pending") {
		t.Fatalf("expected only applied migrations, got %q", out)
	}
}

func TestReportCommandOnEmptyLedger(t *testing.T) {
	envFile := isolateEnvironment(t)

	out, err := runCLI(t, "", envFile, "report", "--year", "2025")
	if err != nil {
		t.Fatalf("expected report to succeed, got %v", err)
	}
	if !strings.Contains(out, "2025年度 (2024-12-01 - 2025-11-30)") {
		t.Fatalf("expected fiscal year header, got %q", out)
	}
	if !strings.Contains(out, "合計 0円") {
		t.Fatalf("expected zero total, got %q", out)
	}
}

func TestSyncCommandWithoutCalendar(t *testing.T) {
	envFile := isolateEnvironment(t)

	out, err := runCLI(t, "", envFile, "sync")
	if err == nil {
		t.Fatalf("expected sync without calendar URL to fail")
	}
	if !strings.Contains(out, `"success": false`) {
		t.Fatalf("expected failed result on stdout, got %q", out)
	}
}

func TestSyncCommandImportsCalendarEvents(t *testing.T) {
	envFile := isolateEnvironment(t)

	jst := time.FixedZone("JST", 9*3600)
	year := time.Now().In(jst).Year()
	start := time.Date(year, time.June, 10, 9, 0, 0, 0, jst)
	body := fmt.Sprintf(`{"events":[{"id":"evt-1@google.com","title":"[バイト] カフェ","jobName":"カフェ","startTime":%q,"endTime":%q,"description":"","isAllDay":false}],"count":1}`,
		start.Format(time.RFC3339), start.Add(8*time.Hour).Format(time.RFC3339))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("year") == strconv.Itoa(year) {
			_, _ = w.Write([]byte(body))
			return
		}
		_, _ = w.Write([]byte(`{"events":[],"count":0}`))
	}))
	t.Cleanup(server.Close)
	t.Setenv("GAS_API_URL", server.URL+"/exec")

	out, err := runCLI(t, "", envFile, "sync")
	if err != nil {
		t.Fatalf("expected sync to succeed, got %v (%s)", err, out)
	}
	if !strings.Contains(out, `"success": true`) || !strings.Contains(out, `"created": 1`) {
		t.Fatalf("expected one created shift, got %q", out)
	}

	out, err = runCLI(t, "", envFile, "sync")
	if err != nil {
		t.Fatalf("expected second sync to succeed, got %v", err)
	}
	if !strings.Contains(out, `"created": 0`) || !strings.Contains(out, `"updated": 0`) {
		t.Fatalf("expected an idempotent second run, got %q", out)
	}

	out, err = runCLI(t, "", envFile, "check")
	if err == nil {
		t.Fatalf("expected check to fail on the unhealthy calendar endpoint, got %q", out)
	}
	if !strings.Contains(out, "database   OK") {
		t.Fatalf("expected database check to pass, got %q", out)
	}
}
