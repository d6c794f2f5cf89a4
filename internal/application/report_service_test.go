package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/shift-ledger/internal/persistence"
)

type reportStoreStub struct {
	mu    sync.Mutex
	rows  []persistence.ReportRow
	err   error
	calls int
	from  time.Time
	to    time.Time
}

func (s *reportStoreStub) ListReportRows(ctx context.Context, from, to time.Time) ([]persistence.ReportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.from, s.to = from, to
	if s.err != nil {
		return nil, s.err
	}
	var out []persistence.ReportRow
	for _, row := range s.rows {
		if !row.Start.Before(from) && row.Start.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func TestReportService_IncomeReport(t *testing.T) {
	t.Parallel()

	jst := time.FixedZone("JST", 9*3600)
	store := &reportStoreStub{rows: []persistence.ReportRow{
		// 2023-12-01 00:30 JST is still November in UTC.
		{ShiftID: "s1", Start: time.Date(2023, time.November, 30, 15, 30, 0, 0, time.UTC), EmployerID: "cafe", EmployerName: "カフェ", Income: 5000, TransportFee: 300},
		{ShiftID: "s2", Start: time.Date(2024, time.March, 10, 9, 0, 0, 0, jst), EmployerID: "book", EmployerName: "書店", Income: 8000, Expenses: 500},
		{ShiftID: "s3", Start: time.Date(2024, time.March, 20, 9, 0, 0, 0, jst), EmployerID: "cafe", EmployerName: "カフェ", Income: 4000},
		{ShiftID: "s4", Start: time.Date(2024, time.December, 1, 9, 0, 0, 0, jst), EmployerID: "cafe", EmployerName: "カフェ", Income: 9999},
	}}
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, jst)
	svc := NewReportService(store, jst, func() time.Time { return now })

	report, err := svc.IncomeReport(context.Background(), 2024)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if !report.Start.Equal(time.Date(2023, time.December, 1, 0, 0, 0, 0, jst)) {
		t.Fatalf("expected report to start 2023-12-01, got %v", report.Start)
	}
	if report.Total != 17800 {
		t.Fatalf("expected total 17800, got %d", report.Total)
	}
	if len(report.Months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(report.Months))
	}
	if report.Months[0].Month != time.December || report.Months[0].Year != 2023 {
		t.Fatalf("expected first month December 2023, got %d-%d", report.Months[0].Year, report.Months[0].Month)
	}
	if report.Months[0].Total != 5300 || report.Months[0].Shifts != 1 {
		t.Fatalf("expected December total 5300 over 1 shift, got %+v", report.Months[0])
	}
	if report.Months[3].Month != time.March || report.Months[3].Total != 12500 || report.Months[3].Shifts != 2 {
		t.Fatalf("expected March total 12500 over 2 shifts, got %+v", report.Months[3])
	}
	if len(report.Employers) != 2 {
		t.Fatalf("expected 2 employers, got %d", len(report.Employers))
	}
	if report.Employers[0].EmployerID != "cafe" || report.Employers[0].Total != 9300 {
		t.Fatalf("expected cafe first with 9300, got %+v", report.Employers[0])
	}
	if report.Employers[1].EmployerID != "book" || report.Employers[1].Total != 8500 {
		t.Fatalf("expected book second with 8500, got %+v", report.Employers[1])
	}
}

func TestReportService_CurrentFiscalYear(t *testing.T) {
	t.Parallel()

	jst := time.FixedZone("JST", 9*3600)
	cases := []struct {
		now  time.Time
		want int
	}{
		{now: time.Date(2024, time.November, 30, 23, 0, 0, 0, jst), want: 2024},
		{now: time.Date(2024, time.December, 1, 0, 0, 0, 0, jst), want: 2025},
		{now: time.Date(2025, time.January, 5, 0, 0, 0, 0, jst), want: 2025},
	}
	for _, tc := range cases {
		now := tc.now
		svc := NewReportService(&reportStoreStub{}, jst, func() time.Time { return now })
		if got := svc.CurrentFiscalYear(); got != tc.want {
			t.Fatalf("expected fiscal year %d for %v, got %d", tc.want, tc.now, got)
		}
	}
}

func TestReportService_ZeroYearUsesCurrentFiscalYear(t *testing.T) {
	t.Parallel()

	store := &reportStoreStub{}
	now := time.Date(2024, time.December, 10, 0, 0, 0, 0, time.UTC)
	svc := NewReportService(store, nil, func() time.Time { return now })

	report, err := svc.IncomeReport(context.Background(), 0)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if report.Year != 2025 {
		t.Fatalf("expected fiscal year 2025, got %d", report.Year)
	}
	if !store.from.Equal(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected range to start 2024-12-01, got %v", store.from)
	}
}

func TestReportService_RejectsNegativeYear(t *testing.T) {
	t.Parallel()

	svc := NewReportService(&reportStoreStub{}, nil, nil)
	_, err := svc.IncomeReport(context.Background(), -3)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReportService_CachesUntilInvalidated(t *testing.T) {
	t.Parallel()

	store := &reportStoreStub{rows: []persistence.ReportRow{
		{ShiftID: "s1", Start: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), EmployerID: "e", EmployerName: "e", Income: 1000},
	}}
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc := NewReportService(store, nil, func() time.Time { return now })
	ctx := context.Background()

	first, err := svc.IncomeReport(ctx, 2024)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	first.Months[4].Total = -1

	second, err := svc.IncomeReport(ctx, 2024)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected cached report, got %d store calls", store.calls)
	}
	if second.Months[5].Total != 1000 || second.Months[4].Total == -1 {
		t.Fatalf("expected cached report to be isolated from callers, got %+v", second.Months)
	}

	svc.Invalidate()
	if _, err := svc.IncomeReport(ctx, 2024); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected invalidation to force a reload, got %d store calls", store.calls)
	}
}

func TestReportService_DoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	store := &reportStoreStub{err: errors.New("disk I/O error")}
	svc := NewReportService(store, nil, nil)

	if _, err := svc.IncomeReport(context.Background(), 2024); err == nil {
		t.Fatalf("expected store error")
	}
	store.err = nil
	if _, err := svc.IncomeReport(context.Background(), 2024); err != nil {
		t.Fatalf("expected success after recovery, got %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected two store calls, got %d", store.calls)
	}
}
