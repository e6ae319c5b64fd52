package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finmate-app/finmate/pkg/model"
	"github.com/finmate-app/finmate/pkg/notify"
	"github.com/finmate-app/finmate/pkg/storage"
)

// Summarizer produces weekly spending summaries for users who opted in.
type Summarizer struct {
	storage storage.Storage
	mailer  notify.Mailer
	logger  *slog.Logger
	now     func() time.Time
}

// NewSummarizer creates a weekly summary job. A nil mailer disables email
// delivery.
func NewSummarizer(store storage.Storage, mailer notify.Mailer, logger *slog.Logger, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		storage: store,
		mailer:  mailer,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithSummaryClock overrides the time source.
func WithSummaryClock(now func() time.Time) SummarizerOption {
	return func(s *Summarizer) { s.now = now }
}

// Run generates a summary for every user with the weekly_summary preference
// enabled. Users without transactions in the window are skipped. Returns the
// number of summaries produced.
func (s *Summarizer) Run(ctx context.Context) (int, error) {
	prefs, err := s.storage.ListEnabledPreferences(ctx, model.PrefWeeklySummary)
	if err != nil {
		return 0, fmt.Errorf("list summary preferences: %w", err)
	}

	sent := 0
	for _, pref := range prefs {
		created, err := s.summarizeUser(ctx, pref)
		if err != nil {
			s.logger.Error("weekly summary", "user", pref.UserID, "error", err)
			continue
		}
		if created {
			sent++
		}
	}

	s.logger.Info("weekly summary run completed", "summaries", sent)
	return sent, nil
}

func (s *Summarizer) summarizeUser(ctx context.Context, pref model.NotificationPreference) (bool, error) {
	user, err := s.storage.GetUser(ctx, pref.UserID)
	if err != nil {
		return false, err
	}

	end := s.now().UTC()
	start := end.AddDate(0, 0, -7)

	txns, err := s.storage.TransactionsInRange(ctx, user.ID, start, end)
	if err != nil {
		return false, fmt.Errorf("query transactions: %w", err)
	}
	if len(txns) == 0 {
		return false, nil
	}

	income := decimal.Zero
	expenses := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, txn := range txns {
		switch txn.Kind {
		case model.KindIncome:
			income = income.Add(txn.Amount)
		case model.KindExpense:
			expenses = expenses.Add(txn.Amount)
			byCategory[txn.CategoryName] = byCategory[txn.CategoryName].Add(txn.Amount)
		}
	}
	net := income.Sub(expenses)

	title := fmt.Sprintf("Weekly Summary - %s to %s",
		start.Format("Jan 02"), end.Format("Jan 02"))
	message := composeSummaryMessage(income, expenses, net, topCategories(byCategory, 3))

	payload, err := json.Marshal(map[string]any{
		"total_income":      income.InexactFloat64(),
		"total_expenses":    expenses.InexactFloat64(),
		"net_cash_flow":     net.InexactFloat64(),
		"transaction_count": len(txns),
	})
	if err != nil {
		return false, fmt.Errorf("marshal summary payload: %w", err)
	}

	notification := &model.Notification{
		UserID:  user.ID,
		Type:    model.NotifyWeeklySummary,
		Title:   title,
		Message: message,
		Status:  model.StatusPending,
		Payload: string(payload),
	}
	if err := s.storage.CreateNotification(ctx, notification); err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}

	if pref.DeliveryMethod.IncludesEmail() && s.mailer != nil {
		if err := s.mailer.Send(ctx, user.Email, "FinMate: "+title, message); err != nil {
			if updErr := s.storage.UpdateNotificationStatus(ctx, notification.ID, model.StatusFailed, time.Now().UTC()); updErr != nil {
				s.logger.Error("mark summary failed", "notification", notification.ID, "error", updErr)
			}
			return false, fmt.Errorf("send summary email: %w", err)
		}
	}

	if err := s.storage.UpdateNotificationStatus(ctx, notification.ID, model.StatusSent, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("mark notification sent: %w", err)
	}

	s.logger.Info("weekly summary sent", "user", user.Email, "transactions", len(txns))
	return true, nil
}

type categoryTotal struct {
	Name  string
	Total decimal.Decimal
}

// topCategories returns the n largest expense categories, biggest first.
func topCategories(byCategory map[string]decimal.Decimal, n int) []categoryTotal {
	totals := make([]categoryTotal, 0, len(byCategory))
	for name, total := range byCategory {
		totals = append(totals, categoryTotal{Name: name, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Name < totals[j].Name
		}
		return totals[i].Total.GreaterThan(totals[j].Total)
	})
	if len(totals) > n {
		totals = totals[:n]
	}
	return totals
}

func composeSummaryMessage(income, expenses, net decimal.Decimal, top []categoryTotal) string {
	var b strings.Builder
	b.WriteString("Here's your weekly financial summary:\n\n")
	fmt.Fprintf(&b, "Total Income: $%s\n", income.StringFixed(2))
	fmt.Fprintf(&b, "Total Expenses: $%s\n", expenses.StringFixed(2))
	fmt.Fprintf(&b, "Net Cash Flow: $%s\n", net.StringFixed(2))

	if len(top) > 0 {
		b.WriteString("\nTop Spending Categories:\n")
		for i, c := range top {
			fmt.Fprintf(&b, "%d. %s: $%s\n", i+1, c.Name, c.Total.StringFixed(2))
		}
	}

	if net.Sign() < 0 {
		fmt.Fprintf(&b, "\nYou spent $%s more than you earned this week.", net.Abs().StringFixed(2))
	} else {
		fmt.Fprintf(&b, "\nGreat job! You saved $%s this week.", net.StringFixed(2))
	}
	return b.String()
}
