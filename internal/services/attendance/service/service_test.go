package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
	"github.com/shiftproof/shiftproof/internal/random"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/session"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

var (
	testNow    = time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)
	siteAnchor = presence.Anchor{Lat: 52.5200, Lng: 13.4050}
)

type fixture struct {
	svc        *Service
	events     *fakeEventStore
	challenges *fakeChallengeStore
	registry   *fakeRegistry
	metrics    *recordingMetrics
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events:     &fakeEventStore{},
		challenges: newFakeChallengeStore(),
		registry:   newFakeRegistry(),
		metrics:    newRecordingMetrics(),
		now:        testNow,
	}
	f.registry.projects["proj-1"] = storage.Project{ID: "proj-1", Site: &siteAnchor}
	f.registry.members[[2]string{"proj-1", "emp-1"}] = true

	var ids atomic.Int64
	svc, err := New(Stores{Events: f.events, Challenges: f.challenges, Registry: f.registry}, Config{
		Picker: random.PickerFunc(func(start, end time.Time) (time.Time, error) {
			return start.Add(time.Hour), nil
		}),
		Metrics:     f.metrics,
		Clock:       func() time.Time { return f.now },
		IDGenerator: func() (string, error) { return fmt.Sprintf("ch-%d", ids.Add(1)), nil },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) record(employeeID, projectID string, action ledger.Action, at time.Time) {
	_, _ = f.events.AppendEvent(context.Background(), ledger.Event{EmployeeID: employeeID, ProjectID: projectID, Action: action, OccurredAt: at})
}

func (f *fixture) openShift() {
	f.record("emp-1", "proj-1", ledger.ActionEnter, f.now.Add(-90*time.Minute))
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperrors.CodeOf(err); got != want {
		t.Fatalf("error code = %s (%v), want %s", got, err, want)
	}
}

// north returns a point meters due north of the site.
func north(meters float64) (float64, float64) {
	return siteAnchor.Lat + meters/presence.EarthRadiusMeters*180/math.Pi, siteAnchor.Lng
}

func TestNewRequiresStores(t *testing.T) {
	t.Parallel()

	if _, err := New(Stores{}, Config{}); err == nil {
		t.Fatal("expected error for missing stores")
	}
	svc, err := New(Stores{Events: &fakeEventStore{}, Challenges: newFakeChallengeStore(), Registry: newFakeRegistry()}, Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if svc.defaultRadius != DefaultRadiusMeters || svc.defaultLocation != time.UTC || svc.picker == nil {
		t.Fatalf("defaults not applied: %+v", svc)
	}
}

func TestMonthTimesheetTwoSessionsOneDay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	day := func(h int) time.Time { return time.Date(2026, time.April, 14, h, 0, 0, 0, time.UTC) }
	f.record("emp-1", "proj-1", ledger.ActionEnter, day(8))
	f.record("emp-1", "proj-1", ledger.ActionExit, day(12))
	f.record("emp-1", "proj-1", ledger.ActionEnter, day(13))
	f.record("emp-1", "proj-1", ledger.ActionExit, day(17))

	sheet, err := f.svc.MonthTimesheet(context.Background(), MonthTimesheetInput{EmployeeID: "emp-1", Month: "2026-04"})
	if err != nil {
		t.Fatalf("month timesheet: %v", err)
	}
	d := sheet.Days[13]
	if d.Minutes() != 480 || !d.FirstStart.Equal(day(8)) || !d.LastEnd.Equal(day(17)) {
		t.Fatalf("day 14 = %+v", d)
	}
	if sheet.TotalMinutes() != 480 || len(sheet.Anomalies) != 0 {
		t.Fatalf("total = %v anomalies = %v", sheet.TotalMinutes(), sheet.Anomalies)
	}
}

func TestMonthTimesheetIncludesEntryPendingAtMonthStart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.record("emp-1", "proj-1", ledger.ActionEnter, time.Date(2026, time.March, 31, 22, 0, 0, 0, time.UTC))
	f.record("emp-1", "proj-1", ledger.ActionExit, time.Date(2026, time.April, 1, 2, 0, 0, 0, time.UTC))

	march, err := f.svc.MonthTimesheet(context.Background(), MonthTimesheetInput{EmployeeID: "emp-1", Month: "2026-03"})
	if err != nil {
		t.Fatalf("march: %v", err)
	}
	april, err := f.svc.MonthTimesheet(context.Background(), MonthTimesheetInput{EmployeeID: "emp-1", Month: "2026-04"})
	if err != nil {
		t.Fatalf("april: %v", err)
	}
	if march.Days[30].Minutes() != 120 || april.Days[0].Minutes() != 120 {
		t.Fatalf("march 31 = %v april 1 = %v, want 120 each", march.Days[30].Minutes(), april.Days[0].Minutes())
	}
}

func TestMonthTimesheetProjectScopeAndTimezone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.registry.projects["proj-2"] = storage.Project{ID: "proj-2", Timezone: "Asia/Tokyo"}
	if _, err := time.LoadLocation("Asia/Tokyo"); err != nil {
		t.Skipf("timezone unavailable: %v", err)
	}
	// 20:00-22:00 UTC on April 9 is 05:00-07:00 on April 10 in Tokyo.
	f.record("emp-1", "proj-2", ledger.ActionEnter, time.Date(2026, time.April, 9, 20, 0, 0, 0, time.UTC))
	f.record("emp-1", "proj-2", ledger.ActionExit, time.Date(2026, time.April, 9, 22, 0, 0, 0, time.UTC))
	f.record("emp-1", "proj-1", ledger.ActionEnter, time.Date(2026, time.April, 9, 8, 0, 0, 0, time.UTC))
	f.record("emp-1", "proj-1", ledger.ActionExit, time.Date(2026, time.April, 9, 9, 0, 0, 0, time.UTC))

	sheet, err := f.svc.MonthTimesheet(context.Background(), MonthTimesheetInput{EmployeeID: "emp-1", Month: "2026-04", ProjectID: "proj-2"})
	if err != nil {
		t.Fatalf("month timesheet: %v", err)
	}
	if sheet.Location.String() != "Asia/Tokyo" || sheet.ProjectID != "proj-2" {
		t.Fatalf("location = %s project = %s", sheet.Location, sheet.ProjectID)
	}
	if sheet.Days[9].Minutes() != 120 || sheet.TotalMinutes() != 120 {
		t.Fatalf("day 10 = %v total = %v, want 120", sheet.Days[9].Minutes(), sheet.TotalMinutes())
	}

	all, err := f.svc.MonthTimesheet(context.Background(), MonthTimesheetInput{EmployeeID: "emp-1", Month: "2026-04", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("unscoped: %v", err)
	}
	if all.TotalMinutes() != 180 {
		t.Fatalf("unscoped total = %v, want 180", all.TotalMinutes())
	}
}

func TestMonthTimesheetValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.MonthTimesheet(ctx, MonthTimesheetInput{Month: "2026-04"})
	assertCode(t, err, apperrors.CodeEmployeeMissing)
	_, err = f.svc.MonthTimesheet(ctx, MonthTimesheetInput{EmployeeID: "emp-1", Month: "April"})
	assertCode(t, err, apperrors.CodeTimesheetInvalidMonth)
	_, err = f.svc.MonthTimesheet(ctx, MonthTimesheetInput{EmployeeID: "emp-1", Month: "2026-04", Timezone: "Mars/Olympus"})
	assertCode(t, err, apperrors.CodeTimesheetInvalidTimezone)

	sheet, err := f.svc.MonthTimesheet(ctx, MonthTimesheetInput{EmployeeID: "emp-9", Month: "2026-04"})
	if err != nil || sheet.Total != 0 {
		t.Fatalf("no events = %v, %v; want zeroed sheet", sheet.Total, err)
	}
}

func TestMonthTimesheetReportsAnomalies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	day := func(h int) time.Time { return time.Date(2026, time.April, 2, h, 0, 0, 0, time.UTC) }
	f.record("emp-1", "proj-1", ledger.ActionExit, day(7))
	f.record("emp-1", "proj-1", ledger.ActionEnter, day(8))
	f.record("emp-1", "proj-1", ledger.ActionEnter, day(9))
	f.record("emp-1", "proj-1", ledger.ActionExit, day(10))

	sheet, err := f.svc.MonthTimesheet(context.Background(), MonthTimesheetInput{EmployeeID: "emp-1", Month: "2026-04"})
	if err != nil {
		t.Fatalf("month timesheet: %v", err)
	}
	if sheet.TotalMinutes() != 120 || len(sheet.Anomalies) != 2 {
		t.Fatalf("total = %v anomalies = %+v", sheet.TotalMinutes(), sheet.Anomalies)
	}
	if f.metrics.anomalies[session.AnomalyOrphanExit] != 1 || f.metrics.anomalies[session.AnomalyDoubleEntry] != 1 {
		t.Fatalf("metrics = %v", f.metrics.anomalies)
	}
}

func TestMonthTimesheetPropagatesStorageFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.events.err = errors.New("disk gone")
	_, err := f.svc.MonthTimesheet(context.Background(), MonthTimesheetInput{EmployeeID: "emp-1", Month: "2026-04"})
	if err == nil || apperrors.CodeOf(err) != apperrors.CodeUnknown {
		t.Fatalf("err = %v, want wrapped storage failure", err)
	}
}

func TestProjectTimesheets(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.registry.members[[2]string{"proj-1", "emp-0"}] = true
	f.registry.members[[2]string{"proj-1", "emp-x"}] = false
	f.record("emp-0", "proj-1", ledger.ActionEnter, time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC))
	f.record("emp-0", "proj-1", ledger.ActionExit, time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC))
	f.record("emp-1", "proj-1", ledger.ActionEnter, time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC))
	f.record("emp-1", "proj-1", ledger.ActionExit, time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC))

	sheets, err := f.svc.ProjectTimesheets(context.Background(), "proj-1", "2026-04", "")
	if err != nil {
		t.Fatalf("project timesheets: %v", err)
	}
	if len(sheets) != 2 || sheets[0].EmployeeID != "emp-0" || sheets[1].EmployeeID != "emp-1" {
		t.Fatalf("sheets = %+v", sheets)
	}
	if sheets[0].TotalMinutes() != 60 || sheets[1].TotalMinutes() != 120 {
		t.Fatalf("totals = %v, %v", sheets[0].TotalMinutes(), sheets[1].TotalMinutes())
	}

	_, err = f.svc.ProjectTimesheets(context.Background(), "", "2026-04", "")
	assertCode(t, err, apperrors.CodeProjectScopeMissing)
}

func TestEnsureTodayChallengesPreconditions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	f := newFixture(t)
	_, err := f.svc.EnsureTodayChallenges(ctx, "emp-1", "")
	assertCode(t, err, apperrors.CodeProjectScopeMissing)
	_, err = f.svc.EnsureTodayChallenges(ctx, "emp-2", "proj-1")
	assertCode(t, err, apperrors.CodeProjectMembershipRequired)
	_, err = f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	assertCode(t, err, apperrors.CodeShiftNotActive)

	f.record("emp-1", "proj-1", ledger.ActionEnter, f.now.Add(-26*time.Hour))
	_, err = f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	assertCode(t, err, apperrors.CodeShiftNotActive)

	f.openShift()
	f.record("emp-1", "proj-1", ledger.ActionExit, f.now.Add(-time.Minute))
	_, err = f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	assertCode(t, err, apperrors.CodeShiftNotActive)

	f.registry.projects["proj-1"] = storage.Project{ID: "proj-1"}
	_, err = f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	assertCode(t, err, apperrors.CodeProjectSiteLocationMissing)

	if len(f.challenges.challenges) != 0 {
		t.Fatalf("challenges written despite failed preconditions: %d", len(f.challenges.challenges))
	}
}

func TestEnsureTodayChallengesCreatesBothSlotsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.openShift()
	ctx := context.Background()

	first, err := f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(first) != 2 || first[0].Slot != presence.SlotMorning || first[1].Slot != presence.SlotAfternoon {
		t.Fatalf("challenges = %+v", first)
	}
	if want := time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC); !first[0].FiredAt.Equal(want) {
		t.Fatalf("slot 1 fired at %s, want %s", first[0].FiredAt, want)
	}
	if want := time.Date(2026, time.May, 4, 14, 0, 0, 0, time.UTC); !first[1].FiredAt.Equal(want) {
		t.Fatalf("slot 2 fired at %s, want %s", first[1].FiredAt, want)
	}
	if first[0].RadiusMeters != DefaultRadiusMeters || first[0].SiteLat != siteAnchor.Lat || first[0].CalendarDate.String() != "2026-05-04" {
		t.Fatalf("challenge = %+v", first[0])
	}

	second, err := f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID || !first[i].FiredAt.Equal(second[i].FiredAt) {
			t.Fatalf("slot %d changed: %+v -> %+v", i+1, first[i], second[i])
		}
	}
	if f.metrics.challenges[ChallengeCreated] != 2 || f.metrics.challenges[ChallengeExisting] != 2 {
		t.Fatalf("metrics = %v", f.metrics.challenges)
	}

	listed, err := f.svc.ListTodayChallenges(ctx, "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed = %d, want 2", len(listed))
	}
}

func TestEnsureTodayChallengesUsesProjectRadius(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.registry.projects["proj-1"] = storage.Project{ID: "proj-1", Site: &siteAnchor, RadiusMeters: 300}
	f.openShift()

	got, err := f.svc.EnsureTodayChallenges(context.Background(), "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if got[0].RadiusMeters != 300 {
		t.Fatalf("radius = %v, want 300", got[0].RadiusMeters)
	}
}

// racingChallengeStore lets a competing writer win every insert.
type racingChallengeStore struct {
	*fakeChallengeStore
}

func (r racingChallengeStore) CreateChallenge(ctx context.Context, c presence.Challenge) error {
	winner := c
	winner.ID = "winner-" + c.ID
	if err := r.fakeChallengeStore.CreateChallenge(ctx, winner); err != nil {
		return err
	}
	return r.fakeChallengeStore.CreateChallenge(ctx, c)
}

func TestEnsureTodayChallengesSwallowsLostRace(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.openShift()
	svc, err := New(Stores{Events: f.events, Challenges: racingChallengeStore{f.challenges}, Registry: f.registry}, Config{
		Metrics: f.metrics,
		Clock:   func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := svc.EnsureTodayChallenges(context.Background(), "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, c := range got {
		if len(c.ID) < 7 || c.ID[:7] != "winner-" {
			t.Fatalf("challenge %s is not the winning row", c.ID)
		}
	}
	if f.metrics.challenges[ChallengeCollision] != 2 {
		t.Fatalf("metrics = %v, want two collisions", f.metrics.challenges)
	}
}

func TestCreateChallengeFiresNow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.openShift()
	ctx := context.Background()

	_, err := f.svc.CreateChallenge(ctx, "emp-1", "proj-1", 3)
	assertCode(t, err, apperrors.CodeChallengeInvalidSlot)

	c, err := f.svc.CreateChallenge(ctx, "emp-1", "proj-1", 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !c.FiredAt.Equal(f.now) || c.Slot != presence.SlotAfternoon {
		t.Fatalf("challenge = %+v, want slot 2 fired now", c)
	}
	again, err := f.svc.CreateChallenge(ctx, "emp-1", "proj-1", 2)
	if err != nil || again.ID != c.ID {
		t.Fatalf("second create = %+v, %v; want existing", again, err)
	}
}

func TestReplaceFireTime(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ReplaceFireTime(ctx, ReplaceFireTimeInput{EmployeeID: "emp-1", ProjectID: "proj-1", Slot: 1})
	assertCode(t, err, apperrors.CodeShiftNotActive)

	f.openShift()
	_, err = f.svc.ReplaceFireTime(ctx, ReplaceFireTimeInput{EmployeeID: "emp-1", ProjectID: "proj-1", Slot: 1})
	assertCode(t, err, apperrors.CodeChallengeNotFound)

	created, err := f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	moved := f.now.Add(5 * time.Minute)
	got, err := f.svc.ReplaceFireTime(ctx, ReplaceFireTimeInput{EmployeeID: "emp-1", ProjectID: "proj-1", Slot: 1, FiredAt: &moved})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got.ID != created[0].ID || !got.FiredAt.Equal(moved) {
		t.Fatalf("replaced = %+v", got)
	}

	got, err = f.svc.ReplaceFireTime(ctx, ReplaceFireTimeInput{EmployeeID: "emp-1", ProjectID: "proj-1", Slot: 2})
	if err != nil || !got.FiredAt.Equal(f.now) {
		t.Fatalf("replace default = %+v, %v; want fired now", got, err)
	}

	if err := f.challenges.MarkResponded(ctx, created[0].ID, f.now); err != nil {
		t.Fatalf("mark: %v", err)
	}
	_, err = f.svc.ReplaceFireTime(ctx, ReplaceFireTimeInput{EmployeeID: "emp-1", ProjectID: "proj-1", Slot: 1})
	assertCode(t, err, apperrors.CodeChallengeAlreadyResponded)
}

func TestRespondToChallengeGeofence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.openShift()
	ctx := context.Background()
	created, err := f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	challengeID := created[0].ID

	lat, lng := north(160)
	outcome, err := f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: challengeID, EmployeeID: "emp-1", Lat: lat, Lng: lng})
	if err != nil {
		t.Fatalf("respond 160 m: %v", err)
	}
	if outcome.Accepted || outcome.Reason != presence.ReasonOutOfRange {
		t.Fatalf("160 m outcome = %+v, want out_of_range", outcome)
	}
	if c := f.challenges.challenges[challengeID]; c.Responded {
		t.Fatal("rejected response mutated the challenge")
	}

	lat, lng = north(140)
	outcome, err = f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: challengeID, EmployeeID: "emp-1", Lat: lat, Lng: lng})
	if err != nil {
		t.Fatalf("respond 140 m: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("140 m outcome = %+v, want accepted", outcome)
	}
	c := f.challenges.challenges[challengeID]
	if !c.Responded || c.RespondedAt == nil || !c.RespondedAt.Equal(f.now) {
		t.Fatalf("challenge = %+v, want responded now", c)
	}

	outcome, err = f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: challengeID, EmployeeID: "emp-1", Lat: lat, Lng: lng})
	if err != nil {
		t.Fatalf("respond again: %v", err)
	}
	if outcome.Reason != presence.ReasonAlreadyResponded {
		t.Fatalf("second outcome = %+v, want already_responded", outcome)
	}
	if len(f.metrics.adjudicated) != 3 {
		t.Fatalf("adjudications observed = %d, want 3", len(f.metrics.adjudicated))
	}
}

func TestRespondToChallengeRejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.openShift()
	ctx := context.Background()
	created, err := f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	outcome, err := f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: "nope", EmployeeID: "emp-1", Lat: siteAnchor.Lat, Lng: siteAnchor.Lng})
	if err != nil || outcome.Reason != presence.ReasonChallengeNotFound {
		t.Fatalf("missing = %+v, %v", outcome, err)
	}
	outcome, err = f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: created[0].ID, EmployeeID: "emp-2", Lat: siteAnchor.Lat, Lng: siteAnchor.Lng})
	if err != nil || outcome.Reason != presence.ReasonChallengeNotOwned {
		t.Fatalf("foreign = %+v, %v", outcome, err)
	}

	_, err = f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: created[0].ID, EmployeeID: "emp-1", Lat: 95, Lng: 0})
	assertCode(t, err, apperrors.CodeInvalidCoordinates)

	f.now = time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC)
	outcome, err = f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: created[0].ID, EmployeeID: "emp-1", Lat: siteAnchor.Lat, Lng: siteAnchor.Lng})
	if err != nil || outcome.Reason != presence.ReasonExpired {
		t.Fatalf("late slot 1 = %+v, %v; want expired", outcome, err)
	}
	// Slot 2 is still open at noon.
	outcome, err = f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: created[1].ID, EmployeeID: "emp-1", Lat: siteAnchor.Lat, Lng: siteAnchor.Lng})
	if err != nil || !outcome.Accepted {
		t.Fatalf("slot 2 at noon = %+v, %v; want accepted", outcome, err)
	}

	f.registry.members[[2]string{"proj-1", "emp-1"}] = false
	outcome, err = f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: created[0].ID, EmployeeID: "emp-1", Lat: siteAnchor.Lat, Lng: siteAnchor.Lng})
	if err != nil || outcome.Reason != presence.ReasonNotProjectMember {
		t.Fatalf("former member = %+v, %v", outcome, err)
	}
}

func TestRespondToChallengeDoubleSubmit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.openShift()
	ctx := context.Background()
	created, err := f.svc.EnsureTodayChallenges(ctx, "emp-1", "proj-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	var accepted, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 6; i++ {
		g.Go(func() error {
			outcome, err := f.svc.RespondToChallenge(ctx, RespondInput{ChallengeID: created[0].ID, EmployeeID: "emp-1", Lat: siteAnchor.Lat, Lng: siteAnchor.Lng})
			if err != nil {
				return err
			}
			if outcome.Accepted {
				accepted.Add(1)
			} else if outcome.Reason == presence.ReasonAlreadyResponded {
				rejected.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if accepted.Load() != 1 || rejected.Load() != 5 {
		t.Fatalf("accepted = %d rejected = %d, want 1 and 5", accepted.Load(), rejected.Load())
	}
}

func TestRecordToggleFlipsDirection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	want := []ledger.Action{ledger.ActionEnter, ledger.ActionExit, ledger.ActionEnter}
	for i, action := range want {
		at := f.now.Add(time.Duration(i) * time.Minute)
		evt, err := f.svc.RecordToggle(ctx, ToggleInput{EmployeeID: "emp-1", ProjectID: "proj-1", OccurredAt: &at, Geo: &ledger.Geo{Lat: 52.52, Lng: 13.4}})
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if evt.Action != action || evt.Seq == 0 {
			t.Fatalf("toggle %d = %+v, want %s", i, evt, action)
		}
	}

	_, err := f.svc.RecordToggle(ctx, ToggleInput{EmployeeID: "emp-2", ProjectID: "proj-1"})
	assertCode(t, err, apperrors.CodeProjectMembershipRequired)
	_, err = f.svc.RecordToggle(ctx, ToggleInput{EmployeeID: "emp-1"})
	assertCode(t, err, apperrors.CodeProjectScopeMissing)
	_, err = f.svc.RecordToggle(ctx, ToggleInput{EmployeeID: "emp-1", ProjectID: "proj-1", Geo: &ledger.Geo{Lat: 0, Lng: 200}})
	assertCode(t, err, apperrors.CodeInvalidCoordinates)
}

func TestListEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.record("emp-1", "proj-1", ledger.ActionEnter, f.now.Add(time.Duration(i)*time.Hour))
	}

	page, err := f.svc.ListEvents(ctx, ListEventsInput{EmployeeID: "emp-1", PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Events) != 2 || page.NextPageToken != "2" {
		t.Fatalf("page = %+v", page)
	}
	page, err = f.svc.ListEvents(ctx, ListEventsInput{EmployeeID: "emp-1", PageSize: 2, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Events) != 1 || page.NextPageToken != "" {
		t.Fatalf("page 2 = %+v", page)
	}

	_, err = f.svc.ListEvents(ctx, ListEventsInput{EmployeeID: "emp-1", Filter: `badfield = "x"`})
	assertCode(t, err, apperrors.CodeInvalidEventFilter)
	_, err = f.svc.ListEvents(ctx, ListEventsInput{EmployeeID: "emp-1", PageToken: "abc"})
	assertCode(t, err, apperrors.CodeInvalidRequest)
}
