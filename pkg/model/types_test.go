package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finmate-app/finmate/pkg/model"
)

func TestDeliveryMethod_IncludesEmail(t *testing.T) {
	assert.True(t, model.DeliverEmail.IncludesEmail())
	assert.True(t, model.DeliverBoth.IncludesEmail())
	assert.False(t, model.DeliverInApp.IncludesEmail())
}

func TestDefaultPreference(t *testing.T) {
	pref := model.DefaultPreference("user-1", model.PrefBudgetAlert)

	assert.Equal(t, "user-1", pref.UserID)
	assert.Equal(t, model.PrefBudgetAlert, pref.Type)
	assert.True(t, pref.IsEnabled)
	assert.Equal(t, model.DeliverBoth, pref.DeliveryMethod)
	assert.Equal(t, model.DefaultAlertThreshold, pref.AlertThreshold)
}
