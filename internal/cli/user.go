package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/pkg/model"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user",
	RunE:  runUserAdd,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)

	userAddCmd.Flags().StringP("email", "e", "", "Email address")
	userAddCmd.Flags().StringP("name", "n", "", "Display name")
	_ = userAddCmd.MarkFlagRequired("email")
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	user := &model.User{Email: email, Name: name}
	if err := store.CreateUser(cmd.Context(), user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("Created user %s (%s)\n", user.ID, user.Email)
	return nil
}
