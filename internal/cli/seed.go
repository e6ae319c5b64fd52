package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the default category set into storage",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringP("file", "f", "", "Category definitions file (default from config)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = cfg.Seed.CategoriesPath
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := seed.Categories(cmd.Context(), store, path)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d categories from %s\n", count, path)
	return nil
}
