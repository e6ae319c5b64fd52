package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Inspect and manage notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent notifications for a user",
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)

	notificationsListCmd.Flags().StringP("user", "u", "", "User ID")
	notificationsListCmd.Flags().IntP("limit", "n", 20, "Maximum number of notifications")
	_ = notificationsListCmd.MarkFlagRequired("user")
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	notifs, err := store.ListNotifications(cmd.Context(), userID, limit)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}
	if len(notifs) == 0 {
		fmt.Println("No notifications.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tCREATED\tTITLE")
	for _, n := range notifs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			n.ID, n.Type, n.Status, n.CreatedAt.Format(time.DateOnly), n.Title)
	}
	return w.Flush()
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.MarkNotificationRead(cmd.Context(), args[0], time.Now().UTC()); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	fmt.Printf("Notification %s marked as read\n", args[0])
	return nil
}
