package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/rcliao/nexuslearn/internal/generator"
	"github.com/rcliao/nexuslearn/internal/model"
)

func init() {
	budgetCmd := &cobra.Command{
		Use:   "budget",
		Short: "Generate and show a monthly budget plan",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a budget plan from income and fixed expenses",
		Long:  "Generate a budget plan. Expenses are category=amount pairs, e.g. -e Rent=800 -e Phone=40.",
		Run:   runBudgetCreate,
	}
	createCmd.Flags().Float64P("income", "i", 0, "Monthly income (required)")
	createCmd.Flags().StringArrayP("expense", "e", nil, "Fixed expense as category=amount (repeatable)")
	createCmd.MarkFlagRequired("income")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the last generated budget plan",
		Run:   runBudgetShow,
	}

	budgetCmd.AddCommand(createCmd, showCmd)
	RootCmd.AddCommand(budgetCmd)
}

// parseExpenses turns category=amount pairs into expenses.
func parseExpenses(pairs []string) ([]model.Expense, error) {
	out := make([]model.Expense, 0, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i < 0 {
			return nil, fmt.Errorf("expense %q: expected category=amount", p)
		}
		amount, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(p[i+1:]), "$"), 64)
		if err != nil {
			return nil, fmt.Errorf("expense %q: %w", p, err)
		}
		out = append(out, model.Expense{Category: strings.TrimSpace(p[:i]), Amount: amount})
	}
	return out, nil
}

func runBudgetCreate(cmd *cobra.Command, args []string) {
	income, _ := cmd.Flags().GetFloat64("income")
	pairs, _ := cmd.Flags().GetStringArray("expense")

	expenses, err := parseExpenses(pairs)
	if err != nil {
		exitErr("budget create", err)
	}

	a := mustOpenApp(cmd)
	defer a.Close()

	client, err := newGeminiClient(cmd.Context())
	if err != nil {
		exitErr("budget create", err)
	}
	plan, err := generator.New(client).RefreshBudget(cmd.Context(), a.ws, income, expenses)
	if err != nil {
		exitErr("budget create", err)
	}
	printBudget(plan)
}

func runBudgetShow(cmd *cobra.Command, args []string) {
	a := mustOpenApp(cmd)
	defer a.Close()

	plan := a.ws.BudgetPlan()
	if plan == nil {
		exitErr("budget show", fmt.Errorf("no budget plan yet (run 'nexuslearn budget create')"))
	}
	printBudget(*plan)
}

func printBudget(p model.BudgetPlan) {
	if !textFormat() {
		printJSON(p)
		return
	}
	title := color.New(color.Bold, color.Underline)

	fmt.Fprintln(color.Output, wordwrap.String(p.Summary, textWidth))
	fmt.Fprintln(color.Output)
	rows := make([][]any, 0, len(p.Breakdown))
	for _, b := range p.Breakdown {
		rows = append(rows, []any{b.Category, fmt.Sprintf("%.0f%%", b.Percentage), fmt.Sprintf("$%.2f", b.Amount)})
	}
	printTable([]string{"CATEGORY", "SHARE", "AMOUNT"}, rows)

	if len(p.Tips) > 0 {
		_, _ = title.Fprintln(color.Output, "\nTips")
		for _, t := range p.Tips {
			fmt.Fprintln(color.Output, bullet(t, textWidth))
		}
	}
}
