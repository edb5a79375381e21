// Package generator produces study plans and budget plans from the
// generation service.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/rcliao/nexuslearn/internal/gemini"
	"github.com/rcliao/nexuslearn/internal/model"
)

var (
	ErrGenerationFailed = errors.New("generation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// Client sends one-shot generation requests. *gemini.Client satisfies it.
type Client interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator builds prompts and decodes replies.
type Generator struct {
	client Client
}

// New creates a Generator.
func New(client Client) *Generator {
	return &Generator{client: client}
}

const studyPlanPrompt = `As an expert academic advisor, create a detailed, focused, and structured one-month study plan for a student taking a course on '%s'.
Course Description: "%s".
The plan should be broken down into weekly goals. For each week, list key topics, suggest specific learning activities (e.g., 'Read chapter X', 'Practice problem sets on Y'), recommend learning methods, and provide practical revision strategies.
The output must be well-structured, easy to read, and actionable. Also, provide links to high-quality, relevant online resources that can aid in learning.`

// StudyPlan asks for a one-month plan grounded with web search.
func (g *Generator) StudyPlan(ctx context.Context, title, description string) (model.StudyPlan, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.StudyPlan{}, fmt.Errorf("%w: subject title is required", ErrInvalidInput)
	}

	contents := []*genai.Content{gemini.UserText(fmt.Sprintf(studyPlanPrompt, title, description))}
	resp, err := g.client.GenerateContent(ctx, contents, &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return model.StudyPlan{}, fmt.Errorf("%w: study plan: %v", ErrGenerationFailed, err)
	}
	text := gemini.Text(resp)
	if strings.TrimSpace(text) == "" {
		return model.StudyPlan{}, fmt.Errorf("%w: study plan: empty response", ErrGenerationFailed)
	}
	return model.StudyPlan{Plan: text, Sources: sources(resp)}, nil
}

// sources keeps the grounding chunks that carry both a uri and a title.
func sources(resp *genai.GenerateContentResponse) []model.Source {
	out := []model.Source{}
	g := gemini.Grounding(resp)
	if g == nil {
		return out
	}
	for _, c := range g.GroundingChunks {
		if c == nil || c.Web == nil || c.Web.URI == "" || c.Web.Title == "" {
			continue
		}
		out = append(out, model.Source{URI: c.Web.URI, Title: c.Web.Title})
	}
	return out
}

const (
	budgetPrompt = "I am a student with a monthly income of $%s. My fixed monthly expenses are: %s. Please create a personalized budget plan for me. Provide a breakdown of spending categories, and offer practical, student-focused savings tips."

	budgetAdvisor = "You are a friendly and pragmatic financial advisor for students. Your goal is to provide clear, actionable budgeting advice that is realistic and encouraging."
)

var budgetSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "A brief, encouraging summary of the budget plan.",
		},
		"breakdown": {
			Type:        genai.TypeArray,
			Description: "A list of budget categories with their percentage and allocated amount.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category":   {Type: genai.TypeString, Description: "Name of the budget category (e.g., 'Housing', 'Food', 'Savings')."},
					"percentage": {Type: genai.TypeNumber, Description: "The percentage of the total income allocated to this category."},
					"amount":     {Type: genai.TypeNumber, Description: "The dollar amount allocated to this category."},
				},
				Required: []string{"category", "percentage", "amount"},
			},
		},
		"tips": {
			Type:        genai.TypeArray,
			Description: "A list of actionable financial tips for students.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"summary", "breakdown", "tips"},
}

// ValidExpenses drops rows with a blank category or a non-positive amount.
func ValidExpenses(expenses []model.Expense) []model.Expense {
	var out []model.Expense
	for _, e := range expenses {
		e.Category = strings.TrimSpace(e.Category)
		if e.Category == "" || e.Amount <= 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// BudgetPlan asks for a structured monthly budget.
func (g *Generator) BudgetPlan(ctx context.Context, income float64, expenses []model.Expense) (model.BudgetPlan, error) {
	if income <= 0 {
		return model.BudgetPlan{}, fmt.Errorf("%w: income must be greater than zero", ErrInvalidInput)
	}
	valid := ValidExpenses(expenses)
	if len(valid) == 0 {
		return model.BudgetPlan{}, fmt.Errorf("%w: at least one expense with a category and a positive amount is required", ErrInvalidInput)
	}

	parts := make([]string, len(valid))
	for i, e := range valid {
		parts[i] = fmt.Sprintf("%s: $%s", e.Category, money(e.Amount))
	}
	prompt := fmt.Sprintf(budgetPrompt, money(income), strings.Join(parts, ", "))

	resp, err := g.client.GenerateContent(ctx, []*genai.Content{gemini.UserText(prompt)}, &genai.GenerateContentConfig{
		SystemInstruction: gemini.Instruction(budgetAdvisor),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    budgetSchema,
	})
	if err != nil {
		return model.BudgetPlan{}, fmt.Errorf("%w: budget plan: %v", ErrGenerationFailed, err)
	}

	plan, err := decodeBudget(gemini.Text(resp))
	if err != nil {
		return model.BudgetPlan{}, fmt.Errorf("%w: budget plan: %v", ErrGenerationFailed, err)
	}
	return plan, nil
}

// decodeBudget parses a budget reply and requires every top-level field.
func decodeBudget(text string) (model.BudgetPlan, error) {
	var raw struct {
		Summary   *string             `json:"summary"`
		Breakdown *[]model.BudgetItem `json:"breakdown"`
		Tips      *[]string           `json:"tips"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return model.BudgetPlan{}, fmt.Errorf("decode: %w", err)
	}
	var missing []string
	if raw.Summary == nil {
		missing = append(missing, "summary")
	}
	if raw.Breakdown == nil {
		missing = append(missing, "breakdown")
	}
	if raw.Tips == nil {
		missing = append(missing, "tips")
	}
	if len(missing) > 0 {
		return model.BudgetPlan{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return model.BudgetPlan{
		Summary:   *raw.Summary,
		Breakdown: *raw.Breakdown,
		Tips:      *raw.Tips,
	}, nil
}

// money formats an amount the shortest way, so 1500 prints as "1500".
func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BudgetStore keeps the last generated budget plan.
// *workspace.Workspace satisfies it.
type BudgetStore interface {
	SaveBudgetPlan(p model.BudgetPlan) error
}

// RefreshBudget generates a budget plan and saves it. A failed generation
// leaves the saved plan as it was.
func (g *Generator) RefreshBudget(ctx context.Context, bs BudgetStore, income float64, expenses []model.Expense) (model.BudgetPlan, error) {
	plan, err := g.BudgetPlan(ctx, income, expenses)
	if err != nil {
		return model.BudgetPlan{}, err
	}
	if err := bs.SaveBudgetPlan(plan); err != nil {
		return model.BudgetPlan{}, fmt.Errorf("save budget plan: %w", err)
	}
	return plan, nil
}
