package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/pkg/model"
	"github.com/finmate-app/finmate/pkg/notify"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage notification preferences",
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a notification preference",
	RunE:  runPrefsSet,
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective preference for a user and type",
	RunE:  runPrefsShow,
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	prefsCmd.AddCommand(prefsShowCmd)

	prefsSetCmd.Flags().StringP("user", "u", "", "User ID")
	prefsSetCmd.Flags().StringP("type", "t", string(model.PrefBudgetAlert), "Notification type (budget_alert, weekly_summary)")
	prefsSetCmd.Flags().Bool("enabled", true, "Enable this notification type")
	prefsSetCmd.Flags().String("method", string(model.DeliverBoth), "Delivery method (email, in_app, both)")
	prefsSetCmd.Flags().Float64("threshold", model.DefaultAlertThreshold, "Budget alert threshold percentage")
	_ = prefsSetCmd.MarkFlagRequired("user")

	prefsShowCmd.Flags().StringP("user", "u", "", "User ID")
	prefsShowCmd.Flags().StringP("type", "t", string(model.PrefBudgetAlert), "Notification type")
	_ = prefsShowCmd.MarkFlagRequired("user")
}

func runPrefsSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user")
	typ, _ := cmd.Flags().GetString("type")
	enabled, _ := cmd.Flags().GetBool("enabled")
	method, _ := cmd.Flags().GetString("method")
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	delivery := model.DeliveryMethod(method)
	switch delivery {
	case model.DeliverEmail, model.DeliverInApp, model.DeliverBoth:
	default:
		return fmt.Errorf("invalid delivery method %q", method)
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pref := &model.NotificationPreference{
		UserID:         userID,
		Type:           model.PreferenceType(typ),
		IsEnabled:      enabled,
		DeliveryMethod: delivery,
		AlertThreshold: threshold,
	}
	if err := store.SetPreference(cmd.Context(), pref); err != nil {
		return fmt.Errorf("set preference: %w", err)
	}

	fmt.Printf("Preference set:\n")
	fmt.Printf("  Type:       %s\n", typ)
	fmt.Printf("  Enabled:    %t\n", enabled)
	fmt.Printf("  Delivery:   %s\n", delivery)
	fmt.Printf("  Threshold:  %.0f%%\n", threshold)

	return nil
}

func runPrefsShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user")
	typ, _ := cmd.Flags().GetString("type")

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pref, err := notify.NewResolver(store).Resolve(cmd.Context(), userID, model.PreferenceType(typ))
	if err != nil {
		return err
	}

	fmt.Printf("Effective preference for %s/%s:\n", userID, typ)
	fmt.Printf("  Enabled:    %t\n", pref.IsEnabled)
	fmt.Printf("  Delivery:   %s\n", pref.DeliveryMethod)
	fmt.Printf("  Threshold:  %.0f%%\n", pref.AlertThreshold)

	return nil
}
