// Package workspace implements the per-account study records: subjects and
// goals, study plan history, calendar events, reminders, the chat transcript,
// the active view and the last budget plan.
package workspace

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/nexuslearn/internal/identity"
	"github.com/rcliao/nexuslearn/internal/model"
	"github.com/rcliao/nexuslearn/internal/state"
	"github.com/rcliao/nexuslearn/internal/store"
)

// Logical storage keys. Each is namespaced per account by state.ScopedKey.
const (
	KeyActiveView     = "activeView"
	KeyCalendarEvents = "calendarEvents"
	KeyReminders      = "reminders"
	KeySubjects       = "subjects"
	KeyStudyHistory   = "studyPlanHistory"
	KeyChatHistory    = "studyBuddyChatHistory"
	KeyBudgetPlan     = "budgetPlan"
)

// LogicalKeys lists every key a workspace writes.
var LogicalKeys = []string{
	KeyActiveView, KeyCalendarEvents, KeyReminders, KeySubjects,
	KeyStudyHistory, KeyChatHistory, KeyBudgetPlan,
}

// Palette is the fixed set of subject colors.
var Palette = []string{
	"#38bdf8", // sky
	"#fb923c", // orange
	"#4ade80", // green
	"#a78bfa", // violet
	"#f472b6", // pink
	"#2dd4bf", // teal
}

var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrGoalNotFound     = errors.New("goal not found")
	ErrPlanNotFound     = errors.New("study plan not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrReminderNotFound = errors.New("reminder not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// isoLayout matches JavaScript's Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Workspace bundles the active account's cells.
type Workspace struct {
	subjects  *state.Cell[[]model.Subject]
	history   *state.Cell[[]model.HistoricalStudyPlan]
	events    *state.Cell[[]model.CalendarEvent]
	reminders *state.Cell[[]model.Reminder]
	chat      *state.Cell[[]model.ChatMessage]
	view      *state.Cell[model.View]
	budget    *state.Cell[*model.BudgetPlan]

	// Now is the clock used for timestamps.
	Now func() time.Time

	mu      sync.Mutex
	entropy *rand.Rand
}

// New opens a workspace over kv that follows owner's active session.
func New(kv store.KV, owner state.Owner, logger *log.Logger) *Workspace {
	return &Workspace{
		subjects:  state.New(kv, owner, KeySubjects, []model.Subject{}, logger),
		history:   state.New(kv, owner, KeyStudyHistory, []model.HistoricalStudyPlan{}, logger),
		events:    state.New(kv, owner, KeyCalendarEvents, []model.CalendarEvent{}, logger),
		reminders: state.New(kv, owner, KeyReminders, []model.Reminder{}, logger),
		chat:      state.New(kv, owner, KeyChatHistory, []model.ChatMessage{}, logger),
		view:      state.New(kv, owner, KeyActiveView, model.ViewDashboard, logger),
		budget:    state.New[*model.BudgetPlan](kv, owner, KeyBudgetPlan, nil, logger),
		Now:       time.Now,
		entropy:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Close detaches every cell from session changes.
func (w *Workspace) Close() {
	w.subjects.Close()
	w.history.Close()
	w.events.Close()
	w.reminders.Close()
	w.chat.Close()
	w.view.Close()
	w.budget.Close()
}

// Owner returns the email of the account the workspace is bound to.
func (w *Workspace) Owner() string {
	return w.subjects.Owner()
}

// ChatCell exposes the transcript cell to the assistant loop.
func (w *Workspace) ChatCell() *state.Cell[[]model.ChatMessage] {
	return w.chat
}

// NewID returns a fresh ULID.
func (w *Workspace) NewID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(w.Now()), w.entropy).String()
}

// RandomColor picks a palette color uniformly at random.
func (w *Workspace) RandomColor() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Palette[w.entropy.Intn(len(Palette))]
}

func (w *Workspace) requireOwner() error {
	if w.Owner() == "" {
		return identity.ErrNotAuthenticated
	}
	return nil
}

func (w *Workspace) timestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ActiveView returns the persisted view, falling back to the dashboard for
// unknown values.
func (w *Workspace) ActiveView() model.View {
	v := w.view.Get()
	if !model.ValidViews[v] {
		return model.ViewDashboard
	}
	return v
}

// SetActiveView persists v.
func (w *Workspace) SetActiveView(v model.View) error {
	if !model.ValidViews[v] {
		return fmt.Errorf("%w: unknown view %q", ErrInvalidInput, v)
	}
	if err := w.requireOwner(); err != nil {
		return err
	}
	w.view.Set(v)
	return nil
}

// BudgetPlan returns the last saved budget plan, or nil.
func (w *Workspace) BudgetPlan() *model.BudgetPlan {
	return w.budget.Get()
}

// SaveBudgetPlan replaces the saved budget plan.
func (w *Workspace) SaveBudgetPlan(p model.BudgetPlan) error {
	if err := w.requireOwner(); err != nil {
		return err
	}
	w.budget.Set(&p)
	return nil
}

// ChatHistory returns the persisted assistant transcript.
func (w *Workspace) ChatHistory() []model.ChatMessage {
	return w.chat.Get()
}

// ClearChat empties the assistant transcript.
func (w *Workspace) ClearChat() error {
	if err := w.requireOwner(); err != nil {
		return err
	}
	w.chat.Set([]model.ChatMessage{})
	return nil
}
