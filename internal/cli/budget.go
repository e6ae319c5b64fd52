package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/pkg/alerts"
	"github.com/finmate-app/finmate/pkg/model"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage monthly spending budgets",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a budget for a category and month",
	RunE:  runBudgetSet,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show budget status for a month",
	RunE:  runBudgetStatus,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetSetCmd)
	budgetCmd.AddCommand(budgetStatusCmd)

	budgetSetCmd.Flags().StringP("user", "u", "", "User ID")
	budgetSetCmd.Flags().StringP("category", "c", "", "Category name")
	budgetSetCmd.Flags().StringP("amount", "a", "", "Target amount (e.g. 500.00)")
	budgetSetCmd.Flags().StringP("month", "m", "", "Month (YYYY-MM, default: current)")
	_ = budgetSetCmd.MarkFlagRequired("user")
	_ = budgetSetCmd.MarkFlagRequired("category")
	_ = budgetSetCmd.MarkFlagRequired("amount")

	budgetStatusCmd.Flags().StringP("month", "m", "", "Month (YYYY-MM, default: current)")
}

// monthFlag parses a YYYY-MM flag, defaulting to the current month.
func monthFlag(value string) (time.Time, error) {
	if value == "" {
		return model.MonthOf(time.Now()), nil
	}
	month, err := model.ParseMonthKey(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", value, err)
	}
	return month, nil
}

func runBudgetSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user")
	categoryName, _ := cmd.Flags().GetString("category")
	amountStr, _ := cmd.Flags().GetString("amount")
	monthStr, _ := cmd.Flags().GetString("month")

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}
	month, err := monthFlag(monthStr)
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	category, err := store.GetCategoryByName(cmd.Context(), categoryName)
	if err != nil {
		return err
	}

	budget := &model.Budget{
		UserID:          userID,
		CategoryID:      category.ID,
		Amount:          amount,
		Month:           month,
		SpentAmount:     decimal.Zero,
		RemainingAmount: amount,
	}
	if err := store.SetBudget(cmd.Context(), budget); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	fmt.Printf("Budget set:\n")
	fmt.Printf("  Category:  %s\n", categoryName)
	fmt.Printf("  Amount:    $%s\n", amount.StringFixed(2))
	fmt.Printf("  Month:     %s\n", model.MonthKey(month))

	return nil
}

func runBudgetStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	monthStr, _ := cmd.Flags().GetString("month")
	month, err := monthFlag(monthStr)
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	budgets, err := store.ActiveBudgets(cmd.Context(), month)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	if len(budgets) == 0 {
		fmt.Printf("No budgets for %s. Use 'finmate budget set' to create one.\n", model.MonthKey(month))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "USER\tCATEGORY\tAMOUNT\tSPENT\tREMAINING\tUSAGE\n")
	for _, b := range budgets {
		pct := alerts.PercentUsed(b.SpentAmount, b.Amount)

		status := ""
		switch alerts.Evaluate(b.SpentAmount, b.Amount, model.DefaultAlertThreshold) {
		case model.LevelExceeded:
			status = " [EXCEEDED]"
		case model.LevelWarning:
			status = " [WARNING]"
		}

		fmt.Fprintf(w, "%s\t%s\t$%s\t$%s\t$%s\t%.1f%%%s\n",
			b.UserEmail, b.CategoryName, b.Amount.StringFixed(2),
			b.SpentAmount.StringFixed(2), b.RemainingAmount.StringFixed(2),
			pct, status,
		)
	}
	w.Flush()

	return nil
}
