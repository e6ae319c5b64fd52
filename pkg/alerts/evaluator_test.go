package alerts_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finmate-app/finmate/pkg/alerts"
	"github.com/finmate-app/finmate/pkg/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		spent     string
		amount    string
		threshold float64
		want      model.AlertLevel
	}{
		{"below threshold", "50", "100", 80, model.LevelNone},
		{"just under threshold", "79.99", "100", 80, model.LevelNone},
		{"at threshold", "80", "100", 80, model.LevelWarning},
		{"typical warning", "84", "100", 80, model.LevelWarning},
		{"just under full", "99.99", "100", 80, model.LevelWarning},
		{"at full", "100", "100", 80, model.LevelExceeded},
		{"over full", "150", "100", 80, model.LevelExceeded},
		{"custom threshold", "60", "100", 50, model.LevelWarning},
		{"zero amount", "10", "0", 80, model.LevelNone},
		{"negative amount", "10", "-5", 80, model.LevelNone},
		{"negative spend clamps to zero", "-10", "100", 80, model.LevelNone},
		{"exact cents arithmetic", "0.30", "0.30", 80, model.LevelExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := alerts.Evaluate(dec(tt.spent), dec(tt.amount), tt.threshold)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPercentUsed(t *testing.T) {
	assert.InDelta(t, 84.0, alerts.PercentUsed(dec("84"), dec("100")), 0.001)
	assert.InDelta(t, 120.0, alerts.PercentUsed(dec("60"), dec("50")), 0.001)
	assert.Equal(t, 0.0, alerts.PercentUsed(dec("10"), dec("0")))
	assert.Equal(t, 0.0, alerts.PercentUsed(dec("-10"), dec("100")))
}
