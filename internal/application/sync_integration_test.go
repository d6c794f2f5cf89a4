package application_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/example/shift-ledger/internal/application"
	"github.com/example/shift-ledger/internal/persistence"
	"github.com/example/shift-ledger/internal/testfixtures"
)

func TestSyncService_AgainstSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := testfixtures.NewSQLiteHarness(t)
	h.SeedEmployer(t, testfixtures.NewEmployerFixture(
		testfixtures.WithEmployerName("モシモス"),
		testfixtures.WithHourlyWage(1000),
		testfixtures.WithDefaultTransportFee(300),
	))

	worked := testfixtures.NewEvent("モシモス", testfixtures.LocalTime(2024, time.May, 10, 9, 0), 8, testfixtures.WithEventID("worked@google.com"))
	cafe := testfixtures.NewEvent("カフェ", testfixtures.LocalTime(2024, time.May, 11, 18, 0), 5, testfixtures.WithEventID("cafe@google.com"))
	december := testfixtures.NewEvent("モシモス", testfixtures.LocalTime(2023, time.December, 20, 10, 0), 4, testfixtures.WithEventID("december@google.com"))
	november := testfixtures.NewEvent("モシモス", testfixtures.LocalTime(2023, time.November, 15, 10, 0), 4, testfixtures.WithEventID("november@google.com"))
	untagged := testfixtures.NewEvent("", testfixtures.LocalTime(2024, time.May, 12, 10, 0), 2, testfixtures.WithoutJobName())

	events := testfixtures.NewEventSource().Add(worked, cafe, december, november, untagged)
	records := testfixtures.NewAttendanceSource().Add(2024, 5,
		testfixtures.AttendanceRecord("2024-05-10", "9:00", "17:00"),
		testfixtures.AttendanceRecord("2024-05-11", "18:00", "23:00"),
	)

	factory := testfixtures.NewServiceFactory()
	reports := factory.NewReportService(testfixtures.ReportServiceDeps{Store: h.Storage})
	changes := 0
	svc := factory.NewSyncService(testfixtures.SyncServiceDeps{
		Store:            h.Storage,
		Events:           events,
		Attendance:       records,
		AutoFillEmployer: "モシモス",
		OnChange: func(application.SyncResult) {
			changes++
			reports.Invalidate()
		},
	})

	before, err := reports.IncomeReport(ctx, 2024)
	if err != nil {
		t.Fatalf("expected empty report, got %v", err)
	}
	if before.Total != 0 {
		t.Fatalf("expected empty ledger, got total %d", before.Total)
	}

	first := svc.Trigger(ctx)
	want := application.SyncResult{Success: true, Created: 3, AutoFilled: 1}
	if first != want {
		t.Fatalf("expected %+v, got %+v", want, first)
	}
	if got := records.Calls(); !reflect.DeepEqual(got, []string{"2023-12", "2024-05"}) {
		t.Fatalf("expected pending months to be scraped in order, got %v", got)
	}
	if _, err := h.Storage.GetEmployerByName(ctx, "カフェ"); err != nil {
		t.Fatalf("expected employer to be created from the job name, got %v", err)
	}
	if _, err := h.Storage.GetShiftByEvent(ctx, november.ID, november.Start); err == nil {
		t.Fatalf("expected November of the prior year to be ignored")
	}

	shift, err := h.Storage.GetShiftByEvent(ctx, worked.ID, worked.Start)
	if err != nil {
		t.Fatalf("expected worked shift, got %v", err)
	}
	if shift.Status != persistence.StatusCompleted {
		t.Fatalf("expected auto-filled shift to be completed, got %s", shift.Status)
	}
	entry, err := h.Storage.GetEntryByShift(ctx, shift.ID)
	if err != nil {
		t.Fatalf("expected auto-filled entry, got %v", err)
	}
	if entry.Income == nil || *entry.Income != 8000 || entry.TransportFee == nil || *entry.TransportFee != 300 {
		t.Fatalf("unexpected auto-filled amounts %+v", entry)
	}
	if entry.Note == nil || *entry.Note != application.AutoFillNote {
		t.Fatalf("expected auto-fill note, got %v", entry.Note)
	}

	report, err := reports.IncomeReport(ctx, 2024)
	if err != nil {
		t.Fatalf("expected report, got %v", err)
	}
	if report.Total != 8300 {
		t.Fatalf("expected cached report to be invalidated with total 8300, got %d", report.Total)
	}
	if may := report.Months[5]; may.Month != time.May || may.Total != 8300 || may.Shifts != 1 {
		t.Fatalf("unexpected May bucket %+v", may)
	}

	longer := december
	longer.End = longer.Start.Add(5 * time.Hour)
	events.Reset()
	events.Add(worked, longer, untagged)

	second := svc.Trigger(ctx)
	want = application.SyncResult{Success: true, Updated: 1, Deleted: 1}
	if second != want {
		t.Fatalf("expected %+v, got %+v", want, second)
	}
	if _, err := h.Storage.GetShiftByEvent(ctx, cafe.ID, cafe.Start); err == nil {
		t.Fatalf("expected removed event's shift to be deleted")
	}
	updated, err := h.Storage.GetShiftByEvent(ctx, december.ID, december.Start)
	if err != nil {
		t.Fatalf("expected December shift, got %v", err)
	}
	if !updated.End.Equal(longer.End) {
		t.Fatalf("expected end %v, got %v", longer.End, updated.End)
	}

	third := svc.Trigger(ctx)
	if third != (application.SyncResult{Success: true}) {
		t.Fatalf("expected an idempotent run, got %+v", third)
	}
	if changes != 2 {
		t.Fatalf("expected OnChange for the two changing runs, got %d", changes)
	}
}
