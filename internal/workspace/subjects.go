package workspace

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/rcliao/nexuslearn/internal/model"
)

// SubjectUpdate holds the editable subject fields. Nil fields are left as is.
type SubjectUpdate struct {
	Title       *string
	Description *string
	Color       *string
}

// Progress returns the percentage of completed goals, or 0 with no goals.
func Progress(goals []model.Goal) float64 {
	if len(goals) == 0 {
		return 0
	}
	done := 0
	for _, g := range goals {
		if g.Completed {
			done++
		}
	}
	return float64(done) / float64(len(goals)) * 100
}

// Subjects returns the subject list, newest first.
func (w *Workspace) Subjects() []model.Subject {
	return w.subjects.Get()
}

// FindSubject returns the subject with the given id.
func (w *Workspace) FindSubject(id string) (model.Subject, error) {
	for _, s := range w.subjects.Get() {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Subject{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
}

// NewSubject builds an unsaved subject with a fresh id. An empty color picks
// one from the palette.
func (w *Workspace) NewSubject(title, description, color string) model.Subject {
	if color == "" {
		color = w.RandomColor()
	}
	return model.Subject{
		ID:          w.NewID(),
		Title:       title,
		Description: description,
		Color:       color,
		Progress:    0,
		Goals:       []model.Goal{},
	}
}

// AddSubject creates a subject and puts it at the head of the list.
func (w *Workspace) AddSubject(title, description, color string) (model.Subject, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Subject{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := validColor(color); err != nil {
		return model.Subject{}, err
	}
	if err := w.requireOwner(); err != nil {
		return model.Subject{}, err
	}
	s := w.NewSubject(title, strings.TrimSpace(description), color)
	w.subjects.Update(func(prev []model.Subject) []model.Subject {
		return prependSubject(prev, s)
	})
	return s, nil
}

// AddSubjectAs prepends s only if owner is still the active account. It
// reports whether the subject was stored.
func (w *Workspace) AddSubjectAs(owner string, s model.Subject) bool {
	return w.subjects.UpdateAs(owner, func(prev []model.Subject) []model.Subject {
		return prependSubject(prev, s)
	})
}

// UpdateSubject edits a subject's title, description or color.
func (w *Workspace) UpdateSubject(id string, upd SubjectUpdate) (model.Subject, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return model.Subject{}, fmt.Errorf("%w: title cannot be blank", ErrInvalidInput)
	}
	if upd.Color != nil {
		if err := validColor(*upd.Color); err != nil {
			return model.Subject{}, err
		}
	}
	var out model.Subject
	err := w.mutateSubject(id, func(s *model.Subject) error {
		if upd.Title != nil {
			s.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.Description != nil {
			s.Description = strings.TrimSpace(*upd.Description)
		}
		if upd.Color != nil && *upd.Color != "" {
			s.Color = *upd.Color
		}
		out = *s
		return nil
	})
	return out, err
}

// DeleteSubject removes a subject. Plans already in the history are kept.
func (w *Workspace) DeleteSubject(id string) error {
	if err := w.requireOwner(); err != nil {
		return err
	}
	if _, err := w.FindSubject(id); err != nil {
		return err
	}
	w.subjects.Update(func(prev []model.Subject) []model.Subject {
		next := make([]model.Subject, 0, len(prev))
		for _, s := range prev {
			if s.ID != id {
				next = append(next, s)
			}
		}
		return next
	})
	return nil
}

// AddGoal appends a goal to a subject and recomputes its progress.
func (w *Workspace) AddGoal(subjectID, text string) (model.Goal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Goal{}, fmt.Errorf("%w: goal text is required", ErrInvalidInput)
	}
	g := model.Goal{ID: w.NewID(), Text: text}
	err := w.mutateSubject(subjectID, func(s *model.Subject) error {
		s.Goals = append(s.Goals, g)
		return nil
	})
	return g, err
}

// ToggleGoal flips a goal's completed flag and recomputes progress.
func (w *Workspace) ToggleGoal(subjectID, goalID string) (model.Goal, error) {
	var out model.Goal
	err := w.mutateSubject(subjectID, func(s *model.Subject) error {
		for i := range s.Goals {
			if s.Goals[i].ID == goalID {
				s.Goals[i].Completed = !s.Goals[i].Completed
				out = s.Goals[i]
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrGoalNotFound, goalID)
	})
	return out, err
}

// DeleteGoal removes a goal and recomputes progress.
func (w *Workspace) DeleteGoal(subjectID, goalID string) error {
	return w.mutateSubject(subjectID, func(s *model.Subject) error {
		for i := range s.Goals {
			if s.Goals[i].ID == goalID {
				s.Goals = append(s.Goals[:i], s.Goals[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrGoalNotFound, goalID)
	})
}

// mutateSubject applies fn to a copy of the subject, recomputes progress and
// stores the result. Nothing is written when fn fails.
func (w *Workspace) mutateSubject(id string, fn func(*model.Subject) error) error {
	if err := w.requireOwner(); err != nil {
		return err
	}
	cur, err := w.FindSubject(id)
	if err != nil {
		return err
	}
	cur.Goals = append([]model.Goal{}, cur.Goals...)
	if err := fn(&cur); err != nil {
		return err
	}
	cur.Progress = Progress(cur.Goals)

	w.subjects.Update(func(prev []model.Subject) []model.Subject {
		next := make([]model.Subject, len(prev))
		for i, s := range prev {
			if s.ID == id {
				s = cur
			}
			next[i] = s
		}
		return next
	})
	return nil
}

// validColor accepts "" (pick from the palette) or a #rrggbb hex color.
func validColor(c string) error {
	if c == "" {
		return nil
	}
	if _, err := colorful.Hex(c); err != nil {
		return fmt.Errorf("%w: color %q is not a #rrggbb hex value", ErrInvalidInput, c)
	}
	return nil
}

func prependSubject(prev []model.Subject, s model.Subject) []model.Subject {
	next := make([]model.Subject, 0, len(prev)+1)
	next = append(next, s)
	return append(next, prev...)
}
