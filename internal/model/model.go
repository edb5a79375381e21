// Package model defines the core nexuslearn data types.
//
// JSON field names match the layout the browser client wrote to local
// storage, so exported data stays interchangeable.
package model

// Account is a registered user's durable credential and profile record.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	Name         string `json:"name,omitempty"`
}

// Session is the public projection of the active account.
type Session struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Session returns the account's public projection.
func (a Account) Session() Session {
	return Session{ID: a.ID, Email: a.Email, Name: a.Name}
}

// Goal is a single checklist item owned by a Subject.
type Goal struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Subject is a course the student tracks progress on.
type Subject struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       string  `json:"color"`
	Progress    float64 `json:"progress"`
	Goals       []Goal  `json:"goals"`
}

// Source is a grounding reference attached to a generated study plan.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// StudyPlan is a generated plan body with its web sources.
type StudyPlan struct {
	Plan    string   `json:"plan"`
	Sources []Source `json:"sources"`
}

// HistoricalStudyPlan is an immutable snapshot of a generated plan.
type HistoricalStudyPlan struct {
	ID           string    `json:"id"`
	SubjectTitle string    `json:"subjectTitle"`
	Date         string    `json:"date"`
	Plan         StudyPlan `json:"plan"`
}

// BudgetItem is one category of a budget breakdown.
type BudgetItem struct {
	Category   string  `json:"category"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// BudgetPlan is a generated monthly budget.
type BudgetPlan struct {
	Summary   string       `json:"summary"`
	Breakdown []BudgetItem `json:"breakdown"`
	Tips      []string     `json:"tips"`
}

// Expense is a fixed monthly cost fed to the budget generator.
type Expense struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// CalendarEvent is an entry in the in-app calendar. Start and End are
// RFC 3339 instants.
type CalendarEvent struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Start  string `json:"start"`
	End    string `json:"end"`
	PlanID string `json:"planId,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Reminder is a pending study reminder. RemindAt is an RFC 3339 instant.
type Reminder struct {
	ID           string `json:"id"`
	SubjectTitle string `json:"subjectTitle"`
	RemindAt     string `json:"remindAt"`
	PlanID       string `json:"planId,omitempty"`
}

// Chat roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is one entry of the assistant transcript.
type ChatMessage struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
}

// View names a top-level screen.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewBudget    View = "budget"
	ViewCalendar  View = "calendar"
	ViewSettings  View = "settings"
)

// ValidViews are the allowed values of the activeView record.
var ValidViews = map[View]bool{
	ViewDashboard: true,
	ViewBudget:    true,
	ViewCalendar:  true,
	ViewSettings:  true,
}
