package workspace

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/nexuslearn/internal/model"
)

const (
	// StudySessionLength is the duration of a scheduled study event.
	StudySessionLength = time.Hour
	// DefaultReminderDelay is how far ahead a plan reminder is set when no
	// time is given.
	DefaultReminderDelay = 10 * time.Minute
)

// History returns generated plans, newest first.
func (w *Workspace) History() []model.HistoricalStudyPlan {
	return w.history.Get()
}

// FindPlan returns the history entry with the given id.
func (w *Workspace) FindPlan(id string) (model.HistoricalStudyPlan, error) {
	for _, h := range w.history.Get() {
		if h.ID == id {
			return h, nil
		}
	}
	return model.HistoricalStudyPlan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
}

// RecordPlan snapshots a generated plan at the head of the history.
func (w *Workspace) RecordPlan(subjectTitle string, plan model.StudyPlan) (model.HistoricalStudyPlan, error) {
	if err := w.requireOwner(); err != nil {
		return model.HistoricalStudyPlan{}, err
	}
	if plan.Sources == nil {
		plan.Sources = []model.Source{}
	}
	h := model.HistoricalStudyPlan{
		ID:           w.NewID(),
		SubjectTitle: subjectTitle,
		Date:         w.timestamp(w.Now()),
		Plan:         plan,
	}
	w.history.Update(func(prev []model.HistoricalStudyPlan) []model.HistoricalStudyPlan {
		next := make([]model.HistoricalStudyPlan, 0, len(prev)+1)
		next = append(next, h)
		return append(next, prev...)
	})
	return h, nil
}

// Events returns every calendar event in insertion order.
func (w *Workspace) Events() []model.CalendarEvent {
	return w.events.Get()
}

// EventsOn returns the events starting on the calendar day of day, in day's
// location.
func (w *Workspace) EventsOn(day time.Time) []model.CalendarEvent {
	y, m, d := day.Date()
	var out []model.CalendarEvent
	for _, e := range w.events.Get() {
		start, err := time.Parse(time.RFC3339, e.Start)
		if err != nil {
			continue
		}
		ey, em, ed := start.In(day.Location()).Date()
		if ey == y && em == m && ed == d {
			out = append(out, e)
		}
	}
	return out
}

// ScheduleStudySession adds a one hour "Study: <subject>" event for a plan,
// colored like the subject with the same title.
func (w *Workspace) ScheduleStudySession(planID string, start time.Time) (model.CalendarEvent, error) {
	if err := w.requireOwner(); err != nil {
		return model.CalendarEvent{}, err
	}
	plan, err := w.FindPlan(planID)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	ev := model.CalendarEvent{
		ID:     w.NewID(),
		Title:  "Study: " + plan.SubjectTitle,
		Start:  w.timestamp(start),
		End:    w.timestamp(start.Add(StudySessionLength)),
		PlanID: plan.ID,
	}
	for _, s := range w.subjects.Get() {
		if s.Title == plan.SubjectTitle {
			ev.Color = s.Color
			break
		}
	}
	w.events.Update(func(prev []model.CalendarEvent) []model.CalendarEvent {
		next := make([]model.CalendarEvent, 0, len(prev)+1)
		next = append(next, prev...)
		return append(next, ev)
	})
	return ev, nil
}

// DeleteEvent removes a calendar event. A missing id leaves the stored
// events untouched.
func (w *Workspace) DeleteEvent(id string) error {
	if err := w.requireOwner(); err != nil {
		return err
	}
	if !slices.ContainsFunc(w.events.Get(), func(e model.CalendarEvent) bool { return e.ID == id }) {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	w.events.Update(func(prev []model.CalendarEvent) []model.CalendarEvent {
		return slices.DeleteFunc(slices.Clone(prev), func(e model.CalendarEvent) bool { return e.ID == id })
	})
	return nil
}

// Reminders returns pending reminders, earliest first.
func (w *Workspace) Reminders() []model.Reminder {
	return w.reminders.Get()
}

// AddReminder inserts a reminder and keeps the list ordered by time. Equal
// times keep insertion order.
func (w *Workspace) AddReminder(subjectTitle string, at time.Time, planID string) (model.Reminder, error) {
	subjectTitle = strings.TrimSpace(subjectTitle)
	if subjectTitle == "" {
		return model.Reminder{}, fmt.Errorf("%w: subject title is required", ErrInvalidInput)
	}
	if err := w.requireOwner(); err != nil {
		return model.Reminder{}, err
	}
	r := model.Reminder{
		ID:           w.NewID(),
		SubjectTitle: subjectTitle,
		RemindAt:     w.timestamp(at),
		PlanID:       planID,
	}
	w.reminders.Update(func(prev []model.Reminder) []model.Reminder {
		next := make([]model.Reminder, 0, len(prev)+1)
		next = append(next, prev...)
		next = append(next, r)
		sort.SliceStable(next, func(i, j int) bool {
			return remindTime(next[i]).Before(remindTime(next[j]))
		})
		return next
	})
	return r, nil
}

// SetPlanReminder schedules a reminder for a plan in the history.
func (w *Workspace) SetPlanReminder(planID string, at time.Time) (model.Reminder, error) {
	plan, err := w.FindPlan(planID)
	if err != nil {
		return model.Reminder{}, err
	}
	return w.AddReminder(plan.SubjectTitle, at, plan.ID)
}

// DismissReminder removes one reminder. A missing id leaves the stored
// reminders untouched.
func (w *Workspace) DismissReminder(id string) error {
	if err := w.requireOwner(); err != nil {
		return err
	}
	if !slices.ContainsFunc(w.reminders.Get(), func(r model.Reminder) bool { return r.ID == id }) {
		return fmt.Errorf("%w: %s", ErrReminderNotFound, id)
	}
	w.reminders.Update(func(prev []model.Reminder) []model.Reminder {
		return slices.DeleteFunc(slices.Clone(prev), func(r model.Reminder) bool { return r.ID == id })
	})
	return nil
}

// ClearReminders removes every reminder.
func (w *Workspace) ClearReminders() error {
	if err := w.requireOwner(); err != nil {
		return err
	}
	w.reminders.Set([]model.Reminder{})
	return nil
}

// DueReminders returns the reminders at or before now.
func (w *Workspace) DueReminders(now time.Time) []model.Reminder {
	var due []model.Reminder
	for _, r := range w.reminders.Get() {
		if !remindTime(r).After(now) {
			due = append(due, r)
		}
	}
	return due
}

// remindTime parses RemindAt. Unparseable values sort first.
func remindTime(r model.Reminder) time.Time {
	t, err := time.Parse(time.RFC3339, r.RemindAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
