package workspace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rcliao/nexuslearn/internal/identity"
	"github.com/rcliao/nexuslearn/internal/model"
	"github.com/rcliao/nexuslearn/internal/store"
)

func newTestWorkspace(t *testing.T) (*Workspace, *identity.Store) {
	t.Helper()
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	ids := identity.New(kv).WithCost(bcrypt.MinCost)
	w := New(kv, ids, nil)
	t.Cleanup(func() {
		w.Close()
		kv.Close()
	})
	if _, err := ids.Signup(context.Background(), "a@x.com", "p"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	return w, ids
}

func TestAddSubjectPrepends(t *testing.T) {
	w, _ := newTestWorkspace(t)

	first, err := w.AddSubject("Math", "", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, _ := w.AddSubject("  History ", "wars", "#000000")

	subs := w.Subjects()
	if len(subs) != 2 || subs[0].ID != second.ID || subs[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", subs)
	}
	if subs[0].Title != "History" || subs[0].Color != "#000000" {
		t.Errorf("unexpected subject %+v", subs[0])
	}

	inPalette := false
	for _, c := range Palette {
		if first.Color == c {
			inPalette = true
		}
	}
	if !inPalette {
		t.Errorf("expected palette color, got %q", first.Color)
	}
	if first.Goals == nil || first.Progress != 0 {
		t.Errorf("expected empty goals and zero progress, got %+v", first)
	}
}

func TestAddSubjectValidation(t *testing.T) {
	w, ids := newTestWorkspace(t)

	if _, err := w.AddSubject("   ", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := w.AddSubject("Math", "", "blue"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad color, got %v", err)
	}

	ids.Logout(context.Background())
	if _, err := w.AddSubject("Math", "", ""); !errors.Is(err, identity.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestGoalProgress(t *testing.T) {
	w, _ := newTestWorkspace(t)
	s, _ := w.AddSubject("Math", "", "")

	g1, err := w.AddGoal(s.ID, "Algebra")
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}
	if _, err := w.ToggleGoal(s.ID, g1.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	got, _ := w.FindSubject(s.ID)
	if got.Progress != 100 {
		t.Errorf("expected 100, got %v", got.Progress)
	}

	w.AddGoal(s.ID, "Geometry")
	got, _ = w.FindSubject(s.ID)
	if got.Progress != 50 {
		t.Errorf("expected 50, got %v", got.Progress)
	}

	if err := w.DeleteGoal(s.ID, g1.ID); err != nil {
		t.Fatalf("delete goal: %v", err)
	}
	got, _ = w.FindSubject(s.ID)
	if got.Progress != 0 || len(got.Goals) != 1 {
		t.Errorf("expected one open goal and 0 progress, got %+v", got)
	}
}

func TestGoalErrors(t *testing.T) {
	w, _ := newTestWorkspace(t)
	s, _ := w.AddSubject("Math", "", "")

	if _, err := w.AddGoal("nope", "x"); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("expected ErrSubjectNotFound, got %v", err)
	}
	if _, err := w.AddGoal(s.ID, " "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := w.ToggleGoal(s.ID, "nope"); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		goals []model.Goal
		want  float64
	}{
		{nil, 0},
		{[]model.Goal{{Completed: true}}, 100},
		{[]model.Goal{{Completed: true}, {}, {}, {Completed: true}}, 50},
		{[]model.Goal{{}, {}}, 0},
	}
	for _, tt := range tests {
		if got := Progress(tt.goals); got != tt.want {
			t.Errorf("Progress(%v) = %v, want %v", tt.goals, got, tt.want)
		}
	}
}

func TestUpdateAndDeleteSubject(t *testing.T) {
	w, _ := newTestWorkspace(t)
	s, _ := w.AddSubject("Math", "", "")
	w.RecordPlan("Math", model.StudyPlan{Plan: "## Week 1"})

	title := "Calculus"
	got, err := w.UpdateSubject(s.ID, SubjectUpdate{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "Calculus" || got.Color != s.Color {
		t.Errorf("unexpected update result %+v", got)
	}

	if err := w.DeleteSubject(s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(w.Subjects()) != 0 {
		t.Error("expected no subjects")
	}
	if len(w.History()) != 1 {
		t.Error("history must survive subject deletion")
	}
	if err := w.DeleteSubject(s.ID); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("expected ErrSubjectNotFound, got %v", err)
	}
}

func TestRecordPlanPrepends(t *testing.T) {
	w, _ := newTestWorkspace(t)
	w.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	first, _ := w.RecordPlan("Math", model.StudyPlan{Plan: "a"})
	second, _ := w.RecordPlan("Physics", model.StudyPlan{Plan: "b"})

	h := w.History()
	if len(h) != 2 || h[0].ID != second.ID || h[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", h)
	}
	if first.Date != "2024-03-01T12:00:00.000Z" {
		t.Errorf("unexpected date %q", first.Date)
	}
	if first.Plan.Sources == nil {
		t.Error("expected non-nil sources")
	}
}

func TestScheduleStudySession(t *testing.T) {
	w, _ := newTestWorkspace(t)
	w.AddSubject("Math", "", "#4ade80")
	plan, _ := w.RecordPlan("Math", model.StudyPlan{Plan: "x"})

	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	ev, err := w.ScheduleStudySession(plan.ID, start)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if ev.Title != "Study: Math" || ev.Color != "#4ade80" || ev.PlanID != plan.ID {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Start != "2024-05-06T09:00:00.000Z" || ev.End != "2024-05-06T10:00:00.000Z" {
		t.Errorf("unexpected span %s - %s", ev.Start, ev.End)
	}

	if got := w.EventsOn(start); len(got) != 1 {
		t.Errorf("expected one event on day, got %v", got)
	}
	if got := w.EventsOn(start.AddDate(0, 0, 1)); len(got) != 0 {
		t.Errorf("expected no events next day, got %v", got)
	}

	if _, err := w.ScheduleStudySession("missing", start); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}

	if err := w.DeleteEvent(ev.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if got := w.Events(); len(got) != 0 {
		t.Errorf("expected no events after delete, got %v", got)
	}
	if err := w.DeleteEvent(ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound for missing event, got %v", err)
	}
}

// countingKV counts writes that reach the store.
type countingKV struct {
	store.KV
	sets int
}

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	c.sets++
	return c.KV.Set(ctx, key, value)
}

func TestRemoveMissingDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	ckv := &countingKV{KV: kv}
	ids := identity.New(ckv).WithCost(bcrypt.MinCost)
	w := New(ckv, ids, nil)
	t.Cleanup(func() {
		w.Close()
		kv.Close()
	})
	if _, err := ids.Signup(ctx, "a@x.com", "p"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := w.AddReminder("Math", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), ""); err != nil {
		t.Fatalf("remind: %v", err)
	}

	before := ckv.sets
	if err := w.DeleteEvent("missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
	if err := w.DismissReminder("missing"); !errors.Is(err, ErrReminderNotFound) {
		t.Errorf("expected ErrReminderNotFound, got %v", err)
	}
	if ckv.sets != before {
		t.Errorf("expected no writes for missing ids, got %d", ckv.sets-before)
	}
	if len(w.Reminders()) != 1 {
		t.Errorf("expected the reminder to stay, got %v", w.Reminders())
	}
}

func TestRemindersStaySorted(t *testing.T) {
	w, _ := newTestWorkspace(t)
	day := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }

	w.AddReminder("A", day(10, 0), "")
	w.AddReminder("B", day(9, 0), "")
	w.AddReminder("C", day(9, 30), "")
	w.AddReminder("D", day(9, 30), "")

	got := w.Reminders()
	want := []string{"B", "C", "D", "A"}
	if len(got) != len(want) {
		t.Fatalf("expected %d reminders, got %d", len(want), len(got))
	}
	for i, title := range want {
		if got[i].SubjectTitle != title {
			t.Errorf("position %d: expected %s, got %s", i, title, got[i].SubjectTitle)
		}
	}

	if due := w.DueReminders(day(9, 45)); len(due) != 3 {
		t.Errorf("expected 3 due reminders, got %d", len(due))
	}

	if err := w.DismissReminder(got[0].ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if len(w.Reminders()) != 3 {
		t.Error("expected reminder to be removed")
	}
	w.ClearReminders()
	if len(w.Reminders()) != 0 {
		t.Error("expected no reminders")
	}
}

func TestSetPlanReminder(t *testing.T) {
	w, _ := newTestWorkspace(t)
	plan, _ := w.RecordPlan("Biology", model.StudyPlan{Plan: "x"})

	r, err := w.SetPlanReminder(plan.ID, time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("remind: %v", err)
	}
	if r.SubjectTitle != "Biology" || r.PlanID != plan.ID {
		t.Errorf("unexpected reminder %+v", r)
	}
}

func TestActiveView(t *testing.T) {
	w, ids := newTestWorkspace(t)
	ctx := context.Background()

	if w.ActiveView() != model.ViewDashboard {
		t.Errorf("expected dashboard default, got %q", w.ActiveView())
	}
	if err := w.SetActiveView("nowhere"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	w.SetActiveView(model.ViewCalendar)

	ids.Signup(ctx, "b@x.com", "p")
	if w.ActiveView() != model.ViewDashboard {
		t.Errorf("B should start on dashboard, got %q", w.ActiveView())
	}
	ids.Login(ctx, "a@x.com", "p")
	if w.ActiveView() != model.ViewCalendar {
		t.Errorf("expected A's calendar view, got %q", w.ActiveView())
	}
}

func TestBudgetPlanIsPerAccount(t *testing.T) {
	w, ids := newTestWorkspace(t)
	ctx := context.Background()

	if w.BudgetPlan() != nil {
		t.Fatal("expected no budget plan")
	}
	w.SaveBudgetPlan(model.BudgetPlan{Summary: "ok", Tips: []string{"save"}})

	ids.Signup(ctx, "b@x.com", "p")
	if w.BudgetPlan() != nil {
		t.Error("B must not see A's budget")
	}
	ids.Login(ctx, "a@x.com", "p")
	if p := w.BudgetPlan(); p == nil || p.Summary != "ok" {
		t.Errorf("expected A's budget, got %+v", p)
	}
}
