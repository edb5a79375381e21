// Package assistant runs the Study Buddy conversation: a streamed reply per
// user message, with at most one addSubject tool call per turn.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"google.golang.org/genai"

	"github.com/rcliao/nexuslearn/internal/gemini"
	"github.com/rcliao/nexuslearn/internal/generator"
	"github.com/rcliao/nexuslearn/internal/identity"
	"github.com/rcliao/nexuslearn/internal/model"
	"github.com/rcliao/nexuslearn/internal/state"
)

// Apology is appended to the transcript when a turn fails.
const Apology = "Sorry, I encountered an error. Please try again."

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrTurnInFlight = errors.New("a reply is already in progress")
	// ErrSessionChanged stops a turn whose account logged out or switched.
	ErrSessionChanged   = errors.New("session changed during reply")
	ErrGenerationFailed = generator.ErrGenerationFailed
)

// State is the phase of the current turn.
type State int32

const (
	Idle State = iota
	Streaming
	ToolCall
)

func (s State) String() string {
	switch s {
	case Streaming:
		return "streaming"
	case ToolCall:
		return "tool-call"
	default:
		return "idle"
	}
}

// Streamer sends streamed generation requests. *gemini.Client satisfies it.
type Streamer interface {
	GenerateContentStream(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Subjects is the subject list the assistant reads and adds to.
// *workspace.Workspace satisfies it.
type Subjects interface {
	Subjects() []model.Subject
	NewSubject(title, description, color string) model.Subject
	AddSubjectAs(owner string, s model.Subject) bool
}

var addSubjectTool = &genai.FunctionDeclaration{
	Name:        "addSubject",
	Description: "Adds a new subject to the student's list of subjects.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: `The title of the subject, e.g., "Quantum Mechanics".`,
			},
			"description": {
				Type:        genai.TypeString,
				Description: "A brief description of the subject. (Optional)",
			},
		},
		Required: []string{"title"},
	},
}

// Assistant owns the transcript of the active account.
type Assistant struct {
	client   Streamer
	subjects Subjects
	messages *state.Cell[[]model.ChatMessage]

	// OnUpdate, if set, receives every message as it is added or grows.
	OnUpdate func(model.ChatMessage)

	busy  atomic.Bool
	phase atomic.Int32

	mu      sync.Mutex
	owner   string
	history []*genai.Content
	lastErr error
}

// New creates an assistant whose transcript lives in messages.
func New(client Streamer, subjects Subjects, messages *state.Cell[[]model.ChatMessage]) *Assistant {
	return &Assistant{
		client:   client,
		subjects: subjects,
		messages: messages,
	}
}

// Messages returns the transcript.
func (a *Assistant) Messages() []model.ChatMessage {
	return a.messages.Get()
}

// State returns the phase of the turn in progress.
func (a *Assistant) State() State {
	return State(a.phase.Load())
}

// LastError returns the cause of the last failed turn.
func (a *Assistant) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// SystemInstruction describes the assistant's role and the student's
// current subjects.
func (a *Assistant) SystemInstruction() string {
	subs := a.subjects.Subjects()
	list := "no specific subjects listed yet"
	if len(subs) > 0 {
		titles := make([]string, len(subs))
		for i, s := range subs {
			titles[i] = s.Title
		}
		list = strings.Join(titles, ", ")
	}
	return "You are Study Buddy, an AI assistant for students. Be friendly, encouraging, and helpful. " +
		"The student is currently studying the following subjects: " + list + ". " +
		"Tailor your answers to these subjects if possible. Keep your answers concise. " +
		"If the user mentions a new subject they are studying, ask if they would like to add it to their subject list. " +
		"If they agree, call the 'addSubject' function to add it for them."
}

// SendMessage runs one turn. A blank message or a turn already in progress
// leaves the transcript untouched.
func (a *Assistant) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !a.busy.CompareAndSwap(false, true) {
		return ErrTurnInFlight
	}
	defer a.busy.Store(false)
	defer a.setPhase(Idle)

	owner := a.messages.Owner()
	if owner == "" {
		return identity.ErrNotAuthenticated
	}

	a.mu.Lock()
	if a.owner != owner {
		a.owner = owner
		a.history = seedHistory(a.messages.Get())
	}
	mark := len(a.history)
	a.mu.Unlock()

	if !a.add(owner, model.ChatMessage{ID: newID(), Role: model.RoleUser, Text: text}) {
		return ErrSessionChanged
	}
	a.push(gemini.UserText(text))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: gemini.Instruction(a.SystemInstruction()),
		Tools:             []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{addSubjectTool}}},
	}

	reply, calls, err := a.stream(ctx, owner, cfg)
	if err != nil {
		return a.fail(owner, mark, err)
	}
	if len(calls) == 0 {
		a.pushReply(reply, nil)
		return nil
	}

	// Only the first call is answered, so it is the only one the history
	// carries. Every call part needs a matching response part.
	a.pushReply(reply, calls[:1])
	a.setPhase(ToolCall)
	resp := a.call(owner, calls[0].FunctionCall)
	a.push(&genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{FunctionResponse: resp}}})

	reply, _, err = a.stream(ctx, owner, cfg)
	if err != nil {
		return a.fail(owner, mark, err)
	}
	a.pushReply(reply, nil)
	return nil
}

// stream sends the history, appends a model placeholder and fills it with
// the streamed text. It returns the text and the function-call parts the
// model sent.
func (a *Assistant) stream(ctx context.Context, owner string, cfg *genai.GenerateContentConfig) (string, []*genai.Part, error) {
	a.setPhase(Streaming)

	a.mu.Lock()
	contents := append([]*genai.Content(nil), a.history...)
	a.mu.Unlock()

	placeholder := model.ChatMessage{ID: newID(), Role: model.RoleModel}
	if !a.add(owner, placeholder) {
		return "", nil, ErrSessionChanged
	}

	var text strings.Builder
	var calls []*genai.Part
	for chunk, err := range a.client.GenerateContentStream(ctx, contents, cfg) {
		if err != nil {
			return "", nil, err
		}
		if t := gemini.Text(chunk); t != "" {
			text.WriteString(t)
			placeholder.Text = text.String()
			if !a.replace(owner, placeholder) {
				return "", nil, ErrSessionChanged
			}
		}
		calls = append(calls, gemini.CallParts(chunk)...)
	}
	return text.String(), calls, nil
}

// pushReply records a model turn. Empty turns are skipped.
func (a *Assistant) pushReply(text string, calls []*genai.Part) {
	var parts []*genai.Part
	if text != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}
	parts = append(parts, calls...)
	if len(parts) > 0 {
		a.push(&genai.Content{Role: genai.RoleModel, Parts: parts})
	}
}

// call runs a tool and returns the response to send back.
func (a *Assistant) call(owner string, fc *genai.FunctionCall) *genai.FunctionResponse {
	respond := func(key, msg string) *genai.FunctionResponse {
		return &genai.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: map[string]any{key: msg}}
	}
	if fc.Name != addSubjectTool.Name {
		return respond("error", "Unknown function: "+fc.Name)
	}

	title := strings.TrimSpace(gemini.StringArg(fc, "title"))
	if title == "" {
		return respond("error", "A subject title is required.")
	}
	s := a.subjects.NewSubject(title, gemini.StringArg(fc, "description"), "")
	if !a.subjects.AddSubjectAs(owner, s) {
		return respond("error", "The student's session has ended.")
	}
	return respond("result", "Successfully added subject: "+title)
}

// fail records err, appends the apology and rolls the request history back
// to before the turn.
func (a *Assistant) fail(owner string, mark int, err error) error {
	a.mu.Lock()
	a.lastErr = err
	if a.owner == owner && mark <= len(a.history) {
		a.history = a.history[:mark]
	}
	a.mu.Unlock()

	if errors.Is(err, ErrSessionChanged) {
		return err
	}
	a.add(owner, model.ChatMessage{ID: newID(), Role: model.RoleModel, Text: Apology})
	return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
}

func (a *Assistant) add(owner string, msg model.ChatMessage) bool {
	ok := a.messages.UpdateAs(owner, func(prev []model.ChatMessage) []model.ChatMessage {
		next := make([]model.ChatMessage, 0, len(prev)+1)
		next = append(next, prev...)
		return append(next, msg)
	})
	if ok {
		a.notify(msg)
	}
	return ok
}

func (a *Assistant) replace(owner string, msg model.ChatMessage) bool {
	ok := a.messages.UpdateAs(owner, func(prev []model.ChatMessage) []model.ChatMessage {
		next := make([]model.ChatMessage, len(prev))
		for i, m := range prev {
			if m.ID == msg.ID {
				m = msg
			}
			next[i] = m
		}
		return next
	})
	if ok {
		a.notify(msg)
	}
	return ok
}

func (a *Assistant) notify(msg model.ChatMessage) {
	if a.OnUpdate != nil {
		a.OnUpdate(msg)
	}
}

func (a *Assistant) push(c *genai.Content) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, c)
}

func (a *Assistant) setPhase(s State) {
	a.phase.Store(int32(s))
}

// seedHistory turns a persisted transcript into request history. Empty
// replies and apologies are left out.
func seedHistory(msgs []model.ChatMessage) []*genai.Content {
	var out []*genai.Content
	for _, m := range msgs {
		if m.Text == "" || (m.Role == model.RoleModel && m.Text == Apology) {
			continue
		}
		out = append(out, genai.NewContentFromText(m.Text, genai.Role(m.Role)))
	}
	return out
}

func newID() string {
	return ulid.Make().String()
}
