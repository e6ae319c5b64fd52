package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/finmate-app/finmate/pkg/alerts"
	"github.com/finmate-app/finmate/pkg/model"
	"github.com/finmate-app/finmate/pkg/storage"
)

const emailFooter = "\n\n---\nThis is an automated message from FinMate. Visit your dashboard for more details."

// Dispatcher converts alert decisions into persisted notifications and
// delivers them per user preference. Dispatch for a single alert is strictly
// sequential: create notification, attempt delivery, then mark the alert and
// notification sent. A failed email leaves the alert record unsent so the
// next reconciliation run retries.
type Dispatcher struct {
	storage storage.Storage
	mailer  Mailer
	prefs   *Resolver
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil mailer disables email delivery;
// in-app notifications are still persisted.
func NewDispatcher(store storage.Storage, mailer Mailer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		storage: store,
		mailer:  mailer,
		prefs:   NewResolver(store),
		logger:  logger,
	}
}

// Dispatch handles one alert decision end to end.
func (d *Dispatcher) Dispatch(ctx context.Context, alert alerts.Alert) error {
	record, _, err := d.storage.GetOrCreateAlert(ctx, alert.UserID, alert.BudgetID, alert.Level, alert.Month)
	if err != nil {
		return fmt.Errorf("get or create alert: %w", err)
	}
	if record.IsSent {
		// A concurrent run already handled this condition.
		d.logger.Debug("alert already sent",
			"budget", alert.BudgetID,
			"level", alert.Level,
			"month", model.MonthKey(alert.Month),
		)
		return nil
	}

	title, message, notifType := ComposeAlertMessage(alert)
	payload, err := json.Marshal(map[string]any{
		"percentage_used": alert.PercentUsed,
		"spent_amount":    alert.SpentAmount.InexactFloat64(),
		"budget_amount":   alert.BudgetAmount.InexactFloat64(),
		"category":        alert.CategoryName,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	notification := &model.Notification{
		UserID:   alert.UserID,
		Type:     notifType,
		Title:    title,
		Message:  message,
		Status:   model.StatusPending,
		BudgetID: alert.BudgetID,
		Payload:  string(payload),
	}
	if err := d.storage.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	pref, err := d.prefs.Resolve(ctx, alert.UserID, model.PrefBudgetAlert)
	if err != nil {
		return err
	}

	if pref.DeliveryMethod.IncludesEmail() && d.mailer != nil {
		subject := "FinMate: " + title
		if err := d.mailer.Send(ctx, alert.UserEmail, subject, message+emailFooter); err != nil {
			if updErr := d.storage.UpdateNotificationStatus(ctx, notification.ID, model.StatusFailed, time.Now().UTC()); updErr != nil {
				d.logger.Error("mark notification failed", "notification", notification.ID, "error", updErr)
			}
			// The alert record stays unsent; the next run retries.
			return fmt.Errorf("send alert email: %w", err)
		}
	}

	now := time.Now().UTC()
	if err := d.storage.MarkAlertSent(ctx, record.ID, now); err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	if err := d.storage.UpdateNotificationStatus(ctx, notification.ID, model.StatusSent, now); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}

	d.logger.Info("budget alert sent",
		"user", alert.UserEmail,
		"category", alert.CategoryName,
		"level", alert.Level,
		"pct", alert.PercentUsed,
	)
	return nil
}

// ComposeAlertMessage renders the deterministic title and message for an
// alert decision. Warning states the percentage used and both absolute
// amounts; exceeded states the absolute overage.
func ComposeAlertMessage(alert alerts.Alert) (title, message string, typ model.NotificationType) {
	spent := alert.SpentAmount.StringFixed(2)
	amount := alert.BudgetAmount.StringFixed(2)

	if alert.Level == model.LevelExceeded {
		overage := alert.SpentAmount.Sub(alert.BudgetAmount).StringFixed(2)
		title = fmt.Sprintf("Budget Exceeded: %s", alert.CategoryName)
		message = fmt.Sprintf(
			"You've exceeded your %s budget by $%s ($%s of $%s). Review your spending to get back on track.",
			alert.CategoryName, overage, spent, amount,
		)
		return title, message, model.NotifyBudgetExceeded
	}

	title = fmt.Sprintf("Budget Alert: %s", alert.CategoryName)
	message = fmt.Sprintf(
		"You've used %.1f%% of your %s budget ($%s of $%s). Consider reducing spending in this category.",
		alert.PercentUsed, alert.CategoryName, spent, amount,
	)
	return title, message, model.NotifyBudgetWarning
}
