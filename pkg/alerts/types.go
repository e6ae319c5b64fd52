// Package alerts decides when a budget's spend crosses an alert level.
package alerts

import (
	"time"

	"github.com/finmate-app/finmate/pkg/model"
	"github.com/shopspring/decimal"
)

// Alert is a threshold-crossing decision ready for dispatch. It carries
// everything the dispatcher needs, so dispatch does no extra lookups beyond
// the user's delivery preference.
type Alert struct {
	UserID       string           `json:"user_id"`
	UserEmail    string           `json:"user_email"`
	BudgetID     string           `json:"budget_id"`
	CategoryName string           `json:"category"`
	Level        model.AlertLevel `json:"level"`
	Month        time.Time        `json:"month"`
	PercentUsed  float64          `json:"percent_used"`
	SpentAmount  decimal.Decimal  `json:"spent_amount"`
	BudgetAmount decimal.Decimal  `json:"budget_amount"`
}
