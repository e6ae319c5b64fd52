package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/pkg/model"
)

var transactionCmd = &cobra.Command{
	Use:   "transaction",
	Short: "Record ledger transactions",
}

var transactionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a single transaction",
	RunE:  runTransactionAdd,
}

func init() {
	rootCmd.AddCommand(transactionCmd)
	transactionCmd.AddCommand(transactionAddCmd)

	transactionAddCmd.Flags().StringP("user", "u", "", "User ID")
	transactionAddCmd.Flags().StringP("category", "c", "", "Category name")
	transactionAddCmd.Flags().StringP("amount", "a", "", "Amount (e.g. 42.50)")
	transactionAddCmd.Flags().StringP("kind", "k", "expense", "Kind (expense, income)")
	transactionAddCmd.Flags().StringP("description", "d", "", "Description")
	transactionAddCmd.Flags().String("date", "", "Date (YYYY-MM-DD, default: today)")
	_ = transactionAddCmd.MarkFlagRequired("user")
	_ = transactionAddCmd.MarkFlagRequired("category")
	_ = transactionAddCmd.MarkFlagRequired("amount")
}

func runTransactionAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user")
	categoryName, _ := cmd.Flags().GetString("category")
	amountStr, _ := cmd.Flags().GetString("amount")
	kindStr, _ := cmd.Flags().GetString("kind")
	description, _ := cmd.Flags().GetString("description")
	dateStr, _ := cmd.Flags().GetString("date")

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}

	kind := model.CategoryKind(kindStr)
	if kind != model.KindExpense && kind != model.KindIncome {
		return fmt.Errorf("invalid kind %q (want expense or income)", kindStr)
	}

	date := time.Now().UTC()
	if dateStr != "" {
		if date, err = time.Parse("2006-01-02", dateStr); err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
		}
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

	txn := &model.Transaction{
		UserID:      userID,
		CategoryID:  category.ID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Date:        date,
	}
	if err := store.AddTransaction(cmd.Context(), txn); err != nil {
		return fmt.Errorf("add transaction: %w", err)
	}

	fmt.Printf("Recorded transaction:\n")
	fmt.Printf("  ID:        %s\n", txn.ID)
	fmt.Printf("  Category:  %s\n", categoryName)
	fmt.Printf("  Kind:      %s\n", kind)
	fmt.Printf("  Amount:    $%s\n", amount.StringFixed(2))
	fmt.Printf("  Date:      %s\n", date.Format("2006-01-02"))

	return nil
}
